// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkletter Contributors

// Package config loads application configuration from YAML files, flags, and
// the environment.
package config

import (
	"os"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// Config is the root application configuration.
type Config struct {
	Server        ServerConfig        `koanf:"server"`
	Database      DatabaseConfig      `koanf:"database"`
	Email         EmailConfig         `koanf:"email"`
	Log           LogConfig           `koanf:"log"`
	Observability ObservabilityConfig `koanf:"observability"`
}

// ServerConfig configures the public HTTP API.
type ServerConfig struct {
	// Addr is the listen address, e.g. "127.0.0.1:8000".
	Addr string `koanf:"addr"`
	// BaseURL is the externally reachable root of the application, used to
	// build confirmation links.
	BaseURL string `koanf:"base_url"`
}

// DatabaseConfig configures the PostgreSQL connection.
type DatabaseConfig struct {
	URL string `koanf:"url"`
}

// EmailConfig configures the outbound email client.
type EmailConfig struct {
	// APIURL is the delivery API root, e.g. "https://api.postmarkapp.com".
	APIURL string `koanf:"api_url"`
	Token  string `koanf:"token"`
	Sender string `koanf:"sender"`
	// DevLog delivers emails to the log instead of the API. For local use.
	DevLog bool `koanf:"dev_log"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	// Format is "json" or "text".
	Format string `koanf:"format"`
	// Level is "debug", "info", "warn", or "error".
	Level string `koanf:"level"`
}

// ObservabilityConfig configures the metrics and health probe listener.
type ObservabilityConfig struct {
	// Addr is the listen address. Empty disables the observability server.
	Addr string `koanf:"addr"`
}

// Default returns the configuration defaults applied before any file or flag
// overrides.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:    "127.0.0.1:8000",
			BaseURL: "http://127.0.0.1:8000",
		},
		Email: EmailConfig{
			APIURL: "https://api.postmarkapp.com",
		},
		Log: LogConfig{
			Format: "json",
			Level:  "info",
		},
	}
}

// Load reads configuration in precedence order: defaults, then the YAML file
// at path (skipped when path is empty), then command-line flags, then the
// DATABASE_URL environment variable.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	cfg := Default()
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").
				With("path", path).
				Wrap(err)
		}
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").
				With("operation", "merge flags").
				Wrap(err)
		}
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").
			With("operation", "unmarshal config").
			Wrap(err)
	}

	// Deploy platforms commonly inject the connection string directly.
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		cfg.Database.URL = dbURL
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that required settings are present.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return oops.Code("CONFIG_INVALID").Errorf("server.addr is required")
	}
	if c.Server.BaseURL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("server.base_url is required")
	}
	if c.Database.URL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("database.url is required (set database.url or DATABASE_URL)")
	}
	if !c.Email.DevLog {
		if c.Email.Token == "" {
			return oops.Code("CONFIG_INVALID").Errorf("email.token is required")
		}
		if c.Email.Sender == "" {
			return oops.Code("CONFIG_INVALID").Errorf("email.sender is required")
		}
	}
	return nil
}
