// Package util holds small helpers shared by the client and the CLI: log level handling,
// secret masking and outbound proxy setup.
package util

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/flistgo/flistapi/internal/config"
	log "github.com/sirupsen/logrus"
)

// SetLogLevel configures the logrus log level based on the configuration.
// It sets the log level to DebugLevel if debug mode is enabled, otherwise to InfoLevel.
func SetLogLevel(cfg *config.Config) {
	currentLevel := log.GetLevel()
	newLevel := log.InfoLevel
	if cfg != nil && cfg.Debug {
		newLevel = log.DebugLevel
	}

	if currentLevel != newLevel {
		log.SetLevel(newLevel)
		log.Debugf("log level changed from %s to %s", currentLevel, newLevel)
	}
}

// WritablePath returns the cleaned WRITABLE_PATH environment variable when it is set.
// It accepts both uppercase and lowercase variants.
func WritablePath() string {
	for _, key := range []string{"WRITABLE_PATH", "writable_path"} {
		if value, ok := os.LookupEnv(key); ok {
			trimmed := strings.TrimSpace(value)
			if trimmed != "" {
				return filepath.Clean(trimmed)
			}
		}
	}
	return ""
}
