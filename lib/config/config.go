// Copyright 2026 The Belfast Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Environment is the deployment the console talks to.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// Config is the full console configuration.
type Config struct {
	Environment Environment `yaml:"environment" json:"environment"`

	API          APIConfig          `yaml:"api" json:"api"`
	Session      SessionConfig      `yaml:"session" json:"session"`
	Registration RegistrationConfig `yaml:"registration" json:"registration"`
	Passkey      PasskeyConfig      `yaml:"passkey" json:"passkey"`
	Logging      LoggingConfig      `yaml:"logging" json:"logging"`

	Development *Overrides `yaml:"development,omitempty" json:"development,omitempty"`
	Staging     *Overrides `yaml:"staging,omitempty" json:"staging,omitempty"`
	Production  *Overrides `yaml:"production,omitempty" json:"production,omitempty"`
}

// Overrides are the per-environment replaceable sections. Empty fields
// leave the base value alone.
type Overrides struct {
	API     *APIConfig     `yaml:"api,omitempty" json:"api,omitempty"`
	Session *SessionConfig `yaml:"session,omitempty" json:"session,omitempty"`
	Logging *LoggingConfig `yaml:"logging,omitempty" json:"logging,omitempty"`
}

// APIConfig locates the admin API.
type APIConfig struct {
	// BaseURL includes the version prefix, e.g.
	// https://game.example.net/api/v1.
	BaseURL string `yaml:"base_url" json:"base_url"`

	// Timeout bounds a single request, as a Go duration string.
	Timeout string `yaml:"timeout" json:"timeout"`

	// Retries is how many times an idempotent request is retried
	// after a transient failure. Mutations are never retried.
	Retries int `yaml:"retries" json:"retries"`
}

// SessionConfig controls where the admin session is persisted.
type SessionConfig struct {
	// File holds the admin session cookies between invocations.
	File string `yaml:"file" json:"file"`

	// AgeIdentityFile, when set, seals the session file to the X25519
	// identity stored there.
	AgeIdentityFile string `yaml:"age_identity_file" json:"age_identity_file"`
}

// RegistrationConfig tunes the registration challenge flow.
type RegistrationConfig struct {
	// PollInterval is the challenge status polling period.
	PollInterval string `yaml:"poll_interval" json:"poll_interval"`
}

// PasskeyConfig names the external WebAuthn authenticator helper.
type PasskeyConfig struct {
	// HelperCommand is argv of a program that performs WebAuthn
	// ceremonies over JSON on stdin/stdout. Empty disables passkeys.
	HelperCommand []string `yaml:"helper_command" json:"helper_command"`
}

// LoggingConfig controls console diagnostics.
type LoggingConfig struct {
	// Level is debug, info, warn, or error.
	Level string `yaml:"level" json:"level"`
}

// DefaultBaseURL is the API location of a local game server.
const DefaultBaseURL = "http://localhost:2289/api/v1"

// Default returns a configuration usable without a file.
func Default() *Config {
	return &Config{
		Environment: Development,
		API: APIConfig{
			BaseURL: DefaultBaseURL,
			Timeout: "30s",
			Retries: 0,
		},
		Session: SessionConfig{
			File: "${XDG_CONFIG_HOME:-${HOME}/.config}/belfast/session.json",
		},
		Registration: RegistrationConfig{
			PollInterval: "3s",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads the file named by BELFAST_CONFIG, or returns Default when
// the variable is unset.
func Load() (*Config, error) {
	path := os.Getenv("BELFAST_CONFIG")
	if path == "" {
		cfg := Default()
		cfg.expandVariables()
		return cfg, nil
	}
	return LoadFile(path)
}

// LoadFile reads configuration from path on top of Default.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := cfg.decode(path, data); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()
	return cfg, nil
}

func (c *Config) decode(path string, data []byte) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		return json.Unmarshal(jsonc.ToJSON(data), c)
	default:
		return yaml.Unmarshal(data, c)
	}
}

func (c *Config) applyEnvironmentOverrides() {
	var overrides *Overrides
	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
	}
	if overrides == nil {
		return
	}

	if api := overrides.API; api != nil {
		if api.BaseURL != "" {
			c.API.BaseURL = api.BaseURL
		}
		if api.Timeout != "" {
			c.API.Timeout = api.Timeout
		}
		if api.Retries != 0 {
			c.API.Retries = api.Retries
		}
	}
	if session := overrides.Session; session != nil {
		if session.File != "" {
			c.Session.File = session.File
		}
		if session.AgeIdentityFile != "" {
			c.Session.AgeIdentityFile = session.AgeIdentityFile
		}
	}
	if logging := overrides.Logging; logging != nil && logging.Level != "" {
		c.Logging.Level = logging.Level
	}
}

func (c *Config) expandVariables() {
	c.Session.File = expandVars(c.Session.File)
	c.Session.AgeIdentityFile = expandVars(c.Session.AgeIdentityFile)
	for i, arg := range c.Passkey.HelperCommand {
		c.Passkey.HelperCommand[i] = expandVars(arg)
	}
}

var varPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-((?:[^{}]|\$\{[^}]*\})*))?\}`)

// expandVars replaces ${VAR} and ${VAR:-default}. A default may itself
// contain one ${VAR} reference.
func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		if parts[2] == "" {
			return ""
		}
		return expandVars(parts[2])
	})
}

// Validate reports every problem in the configuration at once.
func (c *Config) Validate() error {
	var errs []error

	switch c.Environment {
	case Development, Staging, Production:
	default:
		errs = append(errs, fmt.Errorf("invalid environment: %q", c.Environment))
	}

	baseURL, err := url.Parse(c.API.BaseURL)
	switch {
	case c.API.BaseURL == "":
		errs = append(errs, errors.New("api.base_url is required"))
	case err != nil:
		errs = append(errs, fmt.Errorf("api.base_url: %w", err))
	case baseURL.Scheme != "http" && baseURL.Scheme != "https":
		errs = append(errs, fmt.Errorf("api.base_url must be http or https, got %q", baseURL.Scheme))
	case c.Environment == Production && baseURL.Scheme != "https" && !isLoopback(baseURL.Hostname()):
		errs = append(errs, errors.New("api.base_url must use https in production"))
	}

	if _, err := c.RequestTimeout(); err != nil {
		errs = append(errs, err)
	}
	if c.API.Retries < 0 {
		errs = append(errs, fmt.Errorf("api.retries must not be negative, got %d", c.API.Retries))
	}
	if _, err := c.PollInterval(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.LogLevel(); err != nil {
		errs = append(errs, err)
	}
	if c.Session.File == "" {
		errs = append(errs, errors.New("session.file is required"))
	}

	return errors.Join(errs...)
}

// RequestTimeout parses api.timeout. Zero disables the timeout.
func (c *Config) RequestTimeout() (time.Duration, error) {
	return parseDuration("api.timeout", c.API.Timeout, 0)
}

// PollInterval parses registration.poll_interval.
func (c *Config) PollInterval() (time.Duration, error) {
	interval, err := parseDuration("registration.poll_interval", c.Registration.PollInterval, 3*time.Second)
	if err == nil && interval <= 0 {
		return 0, fmt.Errorf("registration.poll_interval must be positive, got %s", interval)
	}
	return interval, err
}

// LogLevel parses logging.level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if c.Logging.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(c.Logging.Level)); err != nil {
		return 0, fmt.Errorf("logging.level: %w", err)
	}
	return level, nil
}

func parseDuration(field, value string, fallback time.Duration) (time.Duration, error) {
	if value == "" {
		return fallback, nil
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	if duration < 0 {
		return 0, fmt.Errorf("%s must not be negative, got %s", field, value)
	}
	return duration, nil
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
