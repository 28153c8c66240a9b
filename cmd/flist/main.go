// Package main provides a command line front end for the F-List JSON API client. It calls a
// single endpoint and prints the normalized response as JSON.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/flistgo/flistapi/internal/buildinfo"
	"github.com/flistgo/flistapi/internal/config"
	"github.com/flistgo/flistapi/internal/logging"
	"github.com/flistgo/flistapi/sdk/flist"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func init() {
	logging.SetupBaseLogger()
	buildinfo.Version = Version
	buildinfo.Commit = Commit
	buildinfo.BuildDate = BuildDate
}

// paramFlags collects repeated -param key=value flags.
type paramFlags url.Values

func (p paramFlags) String() string {
	return url.Values(p).Encode()
}

func (p paramFlags) Set(raw string) error {
	key, value, ok := strings.Cut(raw, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return fmt.Errorf("expected key=value, got %q", raw)
	}
	url.Values(p).Add(key, value)
	return nil
}

func main() {
	os.Exit(run())
}

func run() int {
	params := paramFlags{}
	var (
		configPath  string
		endpoint    string
		login       bool
		skipAuth    bool
		forceAuth   bool
		doNotUseAPI bool
		showVersion bool
	)

	flag.StringVar(&configPath, "config", "", "Configure File Path")
	flag.StringVar(&endpoint, "endpoint", "", "Endpoint to call, e.g. character-get")
	flag.Var(params, "param", "Form parameter as key=value (repeatable)")
	flag.BoolVar(&login, "login", false, "Only log in and print the ticket response")
	flag.BoolVar(&skipAuth, "skip-auth", false, "Do not log in before the call")
	flag.BoolVar(&forceAuth, "force-auth", false, "Log in before the call even with a valid ticket")
	flag.BoolVar(&doNotUseAPI, "no-api", false, "Call the endpoint outside the api/ path")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("flist Version: %s, Commit: %s, BuiltAt: %s\n", buildinfo.Version, buildinfo.Commit, buildinfo.BuildDate)
		return 0
	}

	wd, err := os.Getwd()
	if err != nil {
		log.Errorf("failed to get working directory: %v", err)
		return 1
	}
	if errLoad := godotenv.Load(filepath.Join(wd, ".env")); errLoad != nil {
		if !errors.Is(errLoad, os.ErrNotExist) {
			log.WithError(errLoad).Warn("failed to load .env file")
		}
	}

	cfg, err := config.LoadConfigOptional(configPath, configPath == "")
	if err != nil {
		log.Errorf("failed to load config: %v", err)
		return 1
	}
	if err = logging.ConfigureLogOutput(cfg); err != nil {
		log.Errorf("failed to configure log output: %v", err)
		return 1
	}

	if !login && strings.TrimSpace(endpoint) == "" {
		flag.Usage()
		return 2
	}

	username, _ := lookupEnv("FLIST_USERNAME", "USERNAME")
	password, _ := lookupEnv("FLIST_PASSWORD", "PASSWORD")
	client := flist.New(username, password, flist.WithConfig(cfg))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logging.WithRequestID(ctx, logging.GenerateRequestID())

	var result any
	if login {
		result, err = client.Authenticate(ctx)
	} else {
		result, err = client.Request(ctx, endpoint, flist.RequestOptions{
			Params:      url.Values(params),
			SkipAuth:    skipAuth,
			ForceAuth:   forceAuth,
			DoNotUseAPI: doNotUseAPI,
		})
	}
	if err != nil {
		var apiErr *flist.APIError
		if errors.As(err, &apiErr) {
			log.Errorf("api error from %s: %s", apiErr.Endpoint, apiErr.Message)
		} else {
			log.Errorf("request failed: %v", err)
		}
		return 1
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		log.Errorf("failed to encode response: %v", err)
		return 1
	}
	fmt.Println(string(out))
	return 0
}

func lookupEnv(keys ...string) (string, bool) {
	for _, key := range keys {
		if value, ok := os.LookupEnv(key); ok {
			if trimmed := strings.TrimSpace(value); trimmed != "" {
				return trimmed, true
			}
		}
	}
	return "", false
}
