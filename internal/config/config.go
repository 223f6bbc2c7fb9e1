// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 autism-tools Contributors

// Package config loads layered application settings.
//
// Precedence, lowest first: built-in defaults, the YAML file, the .env file
// and process environment, then command-line flags that were set explicitly.
package config

import (
	"errors"
	"io/fs"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// Environment names.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

// DevSecretKey is the fallback signing secret. Production refuses it.
//
//nolint:gosec // G101: well-known development default, rejected in production.
const DevSecretKey = "dev-secret-key"

// MinProductionSecretLength is the shortest secret accepted in production.
const MinProductionSecretLength = 32

// Config is the full application configuration.
type Config struct {
	Environment string         `koanf:"environment" env:"APP_ENV"`
	HTTP        HTTPConfig     `koanf:"http"`
	Metrics     MetricsConfig  `koanf:"metrics"`
	Log         LogConfig      `koanf:"log"`
	Database    DatabaseConfig `koanf:"database"`
	Session     SessionConfig  `koanf:"session"`
}

// HTTPConfig configures the web listener.
type HTTPConfig struct {
	Addr              string        `koanf:"addr"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	RequestTimeout    time.Duration `koanf:"request_timeout"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout"`
}

// MetricsConfig configures the observability listener. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// LogConfig configures slog output.
type LogConfig struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
}

// DatabaseConfig configures the PostgreSQL pool.
type DatabaseConfig struct {
	URL            string        `koanf:"url" env:"DATABASE_URL"`
	ConnectTimeout time.Duration `koanf:"connect_timeout"`
	// MaxConns caps the pool size. Zero keeps the pgxpool default.
	MaxConns int32 `koanf:"max_conns"`
}

// SessionConfig configures the signed session cookie.
type SessionConfig struct {
	Secret           string        `koanf:"secret" env:"SECRET_KEY"`
	CookieName       string        `koanf:"cookie_name"`
	SessionDuration  time.Duration `koanf:"session_duration"`
	RememberDuration time.Duration `koanf:"remember_duration"`
	SecureCookie     bool          `koanf:"secure_cookie"`
}

// Defaults returns the built-in values as flat koanf keys.
func Defaults() map[string]any {
	return map[string]any{
		"environment":               EnvDevelopment,
		"http.addr":                 ":5000",
		"http.read_header_timeout":  10 * time.Second,
		"http.request_timeout":      30 * time.Second,
		"http.shutdown_timeout":     10 * time.Second,
		"metrics.addr":              "127.0.0.1:9100",
		"log.format":                "json",
		"log.level":                 "info",
		"database.url":              "",
		"database.connect_timeout":  30 * time.Second,
		"database.max_conns":        0,
		"session.secret":            DevSecretKey,
		"session.cookie_name":       "session",
		"session.session_duration":  24 * time.Hour,
		"session.remember_duration": 30 * 24 * time.Hour,
		"session.secure_cookie":     false,
	}
}

// flagKeys maps command-line flag names to koanf keys.
var flagKeys = map[string]string{
	"addr":            "http.addr",
	"request-timeout": "http.request_timeout",
	"metrics-addr":    "metrics.addr",
	"log-format":      "log.format",
	"log-level":       "log.level",
	"secure-cookie":   "session.secure_cookie",
	"env":             "environment",
}

// BindFlags registers the non-secret settings on fs.
// Only flags the user sets explicitly override other sources.
func BindFlags(fs *pflag.FlagSet) {
	d := Defaults()
	fs.String("addr", d["http.addr"].(string), "HTTP listen address")
	fs.Duration("request-timeout", d["http.request_timeout"].(time.Duration), "per-request timeout")
	fs.String("metrics-addr", d["metrics.addr"].(string), "metrics/health HTTP address (empty = disabled)")
	fs.String("log-format", d["log.format"].(string), "log format (json or text)")
	fs.String("log-level", d["log.level"].(string), "log level (debug, info, warn, error)")
	fs.Bool("secure-cookie", d["session.secure_cookie"].(bool), "mark cookies Secure")
	fs.String("env", d["environment"].(string), "environment (development, test, production)")
}

// LoadOptions selects the sources Load reads.
type LoadOptions struct {
	// File is an optional YAML file. A missing file is an error.
	File string
	// EnvFile is loaded into the process environment when it exists.
	// Variables already set are not overwritten.
	EnvFile string
	// Flags holds flags registered with BindFlags. May be nil.
	Flags *pflag.FlagSet
}

// Load assembles a Config from all sources. It does not validate.
func Load(opts LoadOptions) (*Config, error) {
	k := koanf.New(".")
	for key, val := range Defaults() {
		if err := k.Set(key, val); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("key", key).Wrap(err)
		}
	}

	if opts.File != "" {
		if err := k.Load(file.Provider(opts.File), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").
				With("operation", "read config file").
				With("path", opts.File).
				Wrap(err)
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("operation", "decode config").Wrap(err)
	}

	if opts.EnvFile != "" {
		if err := godotenv.Load(opts.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, oops.Code("CONFIG_LOAD_FAILED").
				With("operation", "read env file").
				With("path", opts.EnvFile).
				Wrap(err)
		}
	}
	if err := env.Parse(cfg); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("operation", "read environment").Wrap(err)
	}

	if opts.Flags != nil {
		if err := applyFlags(cfg, opts.Flags); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// applyFlags decodes explicitly set flags over cfg.
func applyFlags(cfg *Config, fs *pflag.FlagSet) error {
	fk := koanf.New(".")
	provider := posflag.ProviderWithFlag(fs, ".", nil, func(f *pflag.Flag) (string, any) {
		key, ok := flagKeys[f.Name]
		if !ok {
			return "", nil
		}
		return key, f.Value.String()
	})
	if err := fk.Load(provider, nil); err != nil {
		return oops.Code("CONFIG_LOAD_FAILED").With("operation", "read flags").Wrap(err)
	}
	if err := fk.Unmarshal("", cfg); err != nil {
		return oops.Code("CONFIG_LOAD_FAILED").With("operation", "decode flags").Wrap(err)
	}
	return nil
}

// IsProduction reports whether the production environment is selected.
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

var (
	validEnvironments = []string{EnvDevelopment, EnvTest, EnvProduction}
	validLogFormats   = []string{"json", "text"}
	validLogLevels    = []string{"debug", "info", "warn", "error"}
)

// Validate reports every problem found, not just the first.
func (c *Config) Validate() error {
	var problems []string

	if !slices.Contains(validEnvironments, c.Environment) {
		problems = append(problems, "environment must be one of "+strings.Join(validEnvironments, ", "))
	}
	if c.HTTP.Addr == "" {
		problems = append(problems, "http.addr is required")
	}
	if !slices.Contains(validLogFormats, c.Log.Format) {
		problems = append(problems, "log.format must be json or text")
	}
	if !slices.Contains(validLogLevels, strings.ToLower(c.Log.Level)) {
		problems = append(problems, "log.level must be one of "+strings.Join(validLogLevels, ", "))
	}
	if c.Database.URL == "" {
		problems = append(problems, "database url is required (set DATABASE_URL)")
	}
	if c.Database.MaxConns < 0 {
		problems = append(problems, "database.max_conns must not be negative")
	}
	if c.Session.CookieName == "" {
		problems = append(problems, "session.cookie_name is required")
	}

	durations := []struct {
		key string
		val time.Duration
	}{
		{"http.read_header_timeout", c.HTTP.ReadHeaderTimeout},
		{"http.request_timeout", c.HTTP.RequestTimeout},
		{"http.shutdown_timeout", c.HTTP.ShutdownTimeout},
		{"database.connect_timeout", c.Database.ConnectTimeout},
		{"session.session_duration", c.Session.SessionDuration},
		{"session.remember_duration", c.Session.RememberDuration},
	}
	for _, d := range durations {
		if d.val <= 0 {
			problems = append(problems, d.key+" must be positive")
		}
	}

	switch {
	case c.Session.Secret == "":
		problems = append(problems, "session secret is required (set SECRET_KEY)")
	case c.IsProduction() && c.Session.Secret == DevSecretKey:
		problems = append(problems, "the development secret key cannot be used in production")
	case c.IsProduction() && len(c.Session.Secret) < MinProductionSecretLength:
		problems = append(problems, "session secret is too short for production")
	}

	if len(problems) > 0 {
		return oops.Code("CONFIG_INVALID").
			With("problems", problems).
			Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// LookupEnvFile returns ".env" when it exists in the working directory.
func LookupEnvFile() string {
	if _, err := os.Stat(".env"); err == nil {
		return ".env"
	}
	return ""
}
