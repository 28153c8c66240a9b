// Package config provides the public configuration API.
//
// It re-exports the internal configuration types and helpers so external projects can build a
// flist.Client from a YAML file without importing internal packages.
package config

import internalconfig "github.com/flistgo/flistapi/internal/config"

type Config = internalconfig.Config

const (
	DefaultBaseURL        = internalconfig.DefaultBaseURL
	DefaultRequestTimeout = internalconfig.DefaultRequestTimeout
	DefaultTicketTTL      = internalconfig.DefaultTicketTTL
)

func Default() *Config { return internalconfig.Default() }

func LoadConfig(configFile string) (*Config, error) { return internalconfig.LoadConfig(configFile) }

func LoadConfigOptional(configFile string, optional bool) (*Config, error) {
	return internalconfig.LoadConfigOptional(configFile, optional)
}
