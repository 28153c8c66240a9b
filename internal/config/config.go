// Package config loads the client settings from a YAML file. Every field has a working default,
// so a missing file is only an error when the caller asks for one explicitly.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultBaseURL is the root of the F-List JSON endpoints. It must end with a slash.
	DefaultBaseURL = "https://www.f-list.net/json/"

	// DefaultRequestTimeout bounds a single HTTP exchange, in seconds.
	DefaultRequestTimeout = 30

	// DefaultTicketTTL is how long a ticket is trusted after a successful login. F-List does not
	// report the real lifetime, so this is a conservative guess.
	DefaultTicketTTL = 24 * time.Hour
)

// Config represents the client configuration, loaded from a YAML file.
type Config struct {
	// BaseURL overrides the API root, mostly useful for tests and mirrors.
	BaseURL string `yaml:"base-url" json:"base-url"`

	// ProxyURL is the URL of an optional proxy server to use for outbound requests.
	// socks5://, http:// and https:// schemes are supported.
	ProxyURL string `yaml:"proxy-url" json:"proxy-url"`

	// RequestTimeout is the per-request timeout in seconds. <= 0 falls back to the default.
	RequestTimeout int `yaml:"request-timeout" json:"request-timeout"`

	// TicketTTL is a Go duration string ("24h", "90m"). Empty uses DefaultTicketTTL.
	TicketTTL string `yaml:"ticket-ttl" json:"ticket-ttl"`

	// UserAgent replaces the default User-Agent header when set.
	UserAgent string `yaml:"user-agent" json:"user-agent"`

	// Debug enables debug level logging.
	Debug bool `yaml:"debug" json:"debug"`

	// LoggingToFile writes logs to a rotating file instead of stdout.
	LoggingToFile bool `yaml:"logging-to-file" json:"logging-to-file"`

	// LogDir is where log files go when LoggingToFile is set. Empty means "logs".
	LogDir string `yaml:"log-dir" json:"log-dir"`

	// LogsMaxBackups limits how many rotated log files are kept. 0 keeps all of them.
	LogsMaxBackups int `yaml:"logs-max-backups" json:"logs-max-backups"`

	// LogsMaxAgeDays removes rotated log files older than this many days. 0 disables the check.
	LogsMaxAgeDays int `yaml:"logs-max-age-days" json:"logs-max-age-days"`
}

// Default returns a configuration populated with defaults.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// LoadConfig reads the YAML file at configFile. The file must exist.
func LoadConfig(configFile string) (*Config, error) {
	return LoadConfigOptional(configFile, false)
}

// LoadConfigOptional reads the YAML file at configFile. When optional is true a missing file or
// an empty path yields the defaults instead of an error.
func LoadConfigOptional(configFile string, optional bool) (*Config, error) {
	cfg := &Config{}
	path := strings.TrimSpace(configFile)
	if path == "" {
		if !optional {
			return nil, fmt.Errorf("config: no config file given")
		}
		cfg.applyDefaults()
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if optional && errors.Is(err, os.ErrNotExist) {
			cfg.applyDefaults()
			return cfg, nil
		}
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	}
	if err = yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}
	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

// Validate rejects values that cannot be fixed up by defaults.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	if ttl := strings.TrimSpace(c.TicketTTL); ttl != "" {
		d, err := time.ParseDuration(ttl)
		if err != nil {
			return fmt.Errorf("config: invalid ticket-ttl %q: %w", ttl, err)
		}
		if d <= 0 {
			return fmt.Errorf("config: ticket-ttl must be positive, got %q", ttl)
		}
	}
	return nil
}

// Timeout returns the request timeout as a duration.
func (c *Config) Timeout() time.Duration {
	if c == nil || c.RequestTimeout <= 0 {
		return DefaultRequestTimeout * time.Second
	}
	return time.Duration(c.RequestTimeout) * time.Second
}

// TicketLifetime returns the parsed ticket TTL, falling back to DefaultTicketTTL.
func (c *Config) TicketLifetime() time.Duration {
	if c == nil {
		return DefaultTicketTTL
	}
	d, err := time.ParseDuration(strings.TrimSpace(c.TicketTTL))
	if err != nil || d <= 0 {
		return DefaultTicketTTL
	}
	return d
}

func (c *Config) applyDefaults() {
	c.BaseURL = strings.TrimSpace(c.BaseURL)
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(c.BaseURL, "/") {
		c.BaseURL += "/"
	}
	c.ProxyURL = strings.TrimSpace(c.ProxyURL)
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	if strings.TrimSpace(c.TicketTTL) == "" {
		c.TicketTTL = DefaultTicketTTL.String()
	}
	if strings.TrimSpace(c.LogDir) == "" {
		c.LogDir = "logs"
	}
}
