// Package config resolves the connection settings for a Protect console
// from an optional YAML file and the environment, with the environment
// winning. A .env file in the working directory is honored for local
// development.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variable names.
const (
	EnvHost         = "PROTECT_HOST"
	EnvAPIKey       = "PROTECT_API_KEY"
	EnvVerifyTLS    = "PROTECT_VERIFY_TLS"
	EnvPollInterval = "PROTECT_POLL_INTERVAL"
	EnvConfigFile   = "PROTECT_CONFIG_FILE"
)

// Validation errors.
var (
	ErrMissingHost     = errors.New("console host is required")
	ErrMissingAPIKey   = errors.New("api key is required")
	ErrBadPollInterval = errors.New("poll interval must be at least 10 seconds")
)

const minPollInterval = 10 * time.Second

// Config holds everything needed to talk to one console.
type Config struct {
	// Host is the console address, with or without the https:// scheme.
	Host string `yaml:"host"`

	// APIKey is the static integration API key.
	APIKey string `yaml:"api_key"`

	// VerifyTLS controls certificate verification. Consoles ship with
	// self-signed certificates, so this defaults to false.
	VerifyTLS bool `yaml:"verify_tls"`

	// PollInterval is the scheduled refresh cadence.
	PollInterval time.Duration `yaml:"poll_interval"`
}

// Load resolves the configuration: built-in defaults, then the YAML
// file named by PROTECT_CONFIG_FILE (if any), then environment
// variables. The result is validated before being returned.
func Load() (*Config, error) {
	// Best effort; absence of a .env file is normal outside development.
	_ = godotenv.Load()

	cfg := &Config{
		PollInterval: 30 * time.Second,
	}

	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.loadEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) loadEnv() error {
	if v := os.Getenv(EnvHost); v != "" {
		c.Host = v
	}
	if v := os.Getenv(EnvAPIKey); v != "" {
		c.APIKey = v
	}
	if v := os.Getenv(EnvVerifyTLS); v != "" {
		verify, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvVerifyTLS, err)
		}
		c.VerifyTLS = verify
	}
	if v := os.Getenv(EnvPollInterval); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvPollInterval, err)
		}
		c.PollInterval = d
	}
	return nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Host == "" {
		return ErrMissingHost
	}
	if c.APIKey == "" {
		return ErrMissingAPIKey
	}
	if c.PollInterval < minPollInterval {
		return fmt.Errorf("%w: got %s", ErrBadPollInterval, c.PollInterval)
	}
	return nil
}
