// Package config loads the cloudstudy configuration file.
//
// Precedence, lowest first: built-in defaults, ~/.cloudstudy/config.yaml,
// environment variables, command-line flags (applied by the caller).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	apperrors "github.com/felixgeelhaar/cloudstudy/internal/errors"
	"github.com/felixgeelhaar/cloudstudy/internal/log"
)

// DefaultBackendURL is where the backend listens out of the box.
const DefaultBackendURL = "http://localhost:3001"

// Environment variables read by ApplyEnv.
const (
	EnvBackendURL        = "CLOUDSTUDY_BACKEND_URL"
	EnvBackendURLCompat  = "BACKEND_URL"
	EnvSessionPassphrase = "CLOUDSTUDY_SESSION_PASSPHRASE"
	EnvLogLevel          = "CLOUDSTUDY_LOG_LEVEL"
	EnvLogFormat         = "CLOUDSTUDY_LOG_FORMAT"
)

// Config is the full client configuration.
type Config struct {
	BackendURL string        `yaml:"backend_url" json:"backend_url"`
	HTTP       HTTPConfig    `yaml:"http" json:"http"`
	Session    SessionConfig `yaml:"session" json:"session"`
	Logging    LoggingConfig `yaml:"logging" json:"logging"`
}

type HTTPConfig struct {
	Timeout           time.Duration `yaml:"timeout" json:"timeout"`
	MaxRetries        int           `yaml:"max_retries" json:"max_retries"`
	RetryDelay        time.Duration `yaml:"retry_delay" json:"retry_delay"`
	ValidateResponses bool          `yaml:"validate_responses" json:"validate_responses"`
}

type SessionConfig struct {
	Path string `yaml:"path" json:"path"`
	// Passphrase enables encryption of the stored token.
	Passphrase string `yaml:"passphrase,omitempty" json:"-"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`   // "debug", "info", "warn", "error"
	Format string `yaml:"format" json:"format"` // "text", "json"
	// File receives logs while the terminal UI owns the screen.
	File string `yaml:"file" json:"file"`
}

// Dir returns ~/.cloudstudy, or .cloudstudy when there is no home directory.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".cloudstudy"
	}
	return filepath.Join(home, ".cloudstudy")
}

// DefaultPath returns the default configuration file path.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// Default returns the built-in configuration.
func Default() *Config {
	dir := Dir()
	return &Config{
		BackendURL: DefaultBackendURL,
		HTTP: HTTPConfig{
			Timeout:           30 * time.Second,
			MaxRetries:        3,
			RetryDelay:        time.Second,
			ValidateResponses: true,
		},
		Session: SessionConfig{
			Path: filepath.Join(dir, "session.json"),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			File:   filepath.Join(dir, "cloudstudy.log"),
		},
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, apperrors.NewConfigReadError(path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, apperrors.NewConfigReadError(path, err)
	}

	cfg.Session.Path = ExpandHome(cfg.Session.Path)
	cfg.Logging.File = ExpandHome(cfg.Logging.File)
	return cfg, nil
}

// Save writes cfg to path with 0600 permissions, creating the directory.
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrCodeConfigWriteFailed, "failed to marshal config", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeConfigWriteFailed, fmt.Sprintf("failed to create config directory for %s", path), err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeConfigWriteFailed, fmt.Sprintf("failed to write config file: %s", path), err)
	}
	return nil
}

// ApplyEnv overlays environment variables. CLOUDSTUDY_BACKEND_URL wins over
// BACKEND_URL.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv(EnvBackendURLCompat); v != "" {
		c.BackendURL = v
	}
	if v := getenv(EnvBackendURL); v != "" {
		c.BackendURL = v
	}
	if v := getenv(EnvSessionPassphrase); v != "" {
		c.Session.Passphrase = v
	}
	if v := getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}
	if v := getenv(EnvLogFormat); v != "" {
		c.Logging.Format = v
	}
}

// Validate checks the configuration for values no command can work with.
func (c *Config) Validate() error {
	var problems []string

	u, err := url.Parse(c.BackendURL)
	switch {
	case c.BackendURL == "":
		problems = append(problems, "backend_url is required")
	case err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "":
		problems = append(problems, fmt.Sprintf("backend_url %q must be an absolute http(s) URL", c.BackendURL))
	}

	if c.HTTP.Timeout <= 0 {
		problems = append(problems, "http.timeout must be positive")
	}
	if c.HTTP.MaxRetries < 0 {
		problems = append(problems, "http.max_retries must not be negative")
	}
	if c.HTTP.RetryDelay < 0 {
		problems = append(problems, "http.retry_delay must not be negative")
	}
	if c.Session.Path == "" {
		problems = append(problems, "session.path is required")
	}
	if _, err := log.ParseLevel(c.Logging.Level); err != nil {
		problems = append(problems, "logging.level: "+err.Error())
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json", "":
	default:
		problems = append(problems, fmt.Sprintf("logging.format %q must be text or json", c.Logging.Format))
	}

	if len(problems) > 0 {
		return apperrors.NewConfigInvalidError(strings.Join(problems, "; "))
	}
	return nil
}

// Keys lists the names accepted by Get and Set.
var Keys = []string{
	"backend_url",
	"http.timeout",
	"http.max_retries",
	"http.retry_delay",
	"http.validate_responses",
	"session.path",
	"logging.level",
	"logging.format",
	"logging.file",
}

// Get returns a value by dotted key.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "backend_url":
		return c.BackendURL, nil
	case "http.timeout":
		return c.HTTP.Timeout.String(), nil
	case "http.max_retries":
		return strconv.Itoa(c.HTTP.MaxRetries), nil
	case "http.retry_delay":
		return c.HTTP.RetryDelay.String(), nil
	case "http.validate_responses":
		return strconv.FormatBool(c.HTTP.ValidateResponses), nil
	case "session.path":
		return c.Session.Path, nil
	case "logging.level":
		return c.Logging.Level, nil
	case "logging.format":
		return c.Logging.Format, nil
	case "logging.file":
		return c.Logging.File, nil
	default:
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
}

// Set assigns a value by dotted key. The result is not validated.
func (c *Config) Set(key, value string) error {
	switch key {
	case "backend_url":
		c.BackendURL = value
	case "http.timeout", "http.retry_delay":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if key == "http.timeout" {
			c.HTTP.Timeout = d
		} else {
			c.HTTP.RetryDelay = d
		}
	case "http.max_retries":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		c.HTTP.MaxRetries = n
	case "http.validate_responses":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		c.HTTP.ValidateResponses = b
	case "session.path":
		c.Session.Path = ExpandHome(value)
	case "logging.level":
		c.Logging.Level = value
	case "logging.format":
		c.Logging.Format = value
	case "logging.file":
		c.Logging.File = ExpandHome(value)
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}

// ExpandHome replaces a leading "~/" with the home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
