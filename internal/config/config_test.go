package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/felixgeelhaar/cloudstudy/internal/errors"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, DefaultBackendURL, cfg.BackendURL)
	assert.Equal(t, 30*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, 3, cfg.HTTP.MaxRetries)
	assert.Equal(t, time.Second, cfg.HTTP.RetryDelay)
	assert.True(t, cfg.HTTP.ValidateResponses)
	assert.Equal(t, "session.json", filepath.Base(cfg.Session.Path))
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_OverlaysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
backend_url: https://api.example.com
http:
  timeout: 5s
  retry_delay: 250ms
logging:
  level: debug
`), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com", cfg.BackendURL)
	assert.Equal(t, 5*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, 250*time.Millisecond, cfg.HTTP.RetryDelay)
	assert.Equal(t, 3, cfg.HTTP.MaxRetries, "unset keys keep their defaults")
	assert.True(t, cfg.HTTP.ValidateResponses)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http: [unclosed"), 0600))

	_, err := Load(path)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeConfigReadFailed))
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dir", "config.yaml")
	cfg := Default()
	cfg.BackendURL = "http://10.0.0.2:3001"
	cfg.HTTP.ValidateResponses = false
	cfg.Session.Passphrase = "secret"

	require.NoError(t, Save(cfg, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestApplyEnv(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantURL string
	}{
		{"none", map[string]string{}, DefaultBackendURL},
		{"compat", map[string]string{EnvBackendURLCompat: "http://compat:1"}, "http://compat:1"},
		{"prefixed wins", map[string]string{EnvBackendURLCompat: "http://compat:1", EnvBackendURL: "http://main:2"}, "http://main:2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.ApplyEnv(func(k string) string { return tt.env[k] })
			assert.Equal(t, tt.wantURL, cfg.BackendURL)
		})
	}

	cfg := Default()
	cfg.ApplyEnv(func(k string) string {
		return map[string]string{
			EnvSessionPassphrase: "pass",
			EnvLogLevel:          "warn",
			EnvLogFormat:         "json",
		}[k]
	})
	assert.Equal(t, "pass", cfg.Session.Passphrase)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty backend", func(c *Config) { c.BackendURL = "" }},
		{"relative backend", func(c *Config) { c.BackendURL = "localhost:3001" }},
		{"ftp backend", func(c *Config) { c.BackendURL = "ftp://host" }},
		{"zero timeout", func(c *Config) { c.HTTP.Timeout = 0 }},
		{"negative retries", func(c *Config) { c.HTTP.MaxRetries = -1 }},
		{"negative delay", func(c *Config) { c.HTTP.RetryDelay = -time.Second }},
		{"no session path", func(c *Config) { c.Session.Path = "" }},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeConfigInvalid), "got %v", err)
		})
	}
}

func TestGetSet(t *testing.T) {
	cfg := Default()

	for _, key := range Keys {
		_, err := cfg.Get(key)
		assert.NoError(t, err, key)
	}

	require.NoError(t, cfg.Set("http.timeout", "10s"))
	require.NoError(t, cfg.Set("http.max_retries", "0"))
	require.NoError(t, cfg.Set("http.validate_responses", "false"))
	require.NoError(t, cfg.Set("backend_url", "https://b.example"))

	v, err := cfg.Get("http.timeout")
	require.NoError(t, err)
	assert.Equal(t, "10s", v)
	assert.Equal(t, 0, cfg.HTTP.MaxRetries)
	assert.False(t, cfg.HTTP.ValidateResponses)
	assert.Equal(t, "https://b.example", cfg.BackendURL)

	assert.Error(t, cfg.Set("http.timeout", "soon"))
	assert.Error(t, cfg.Set("http.max_retries", "many"))
	assert.Error(t, cfg.Set("nope", "x"))
	_, err = cfg.Get("nope")
	assert.Error(t, err)
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	assert.Equal(t, filepath.Join(home, "x", "y"), ExpandHome("~/x/y"))
	assert.Equal(t, "/abs/path", ExpandHome("/abs/path"))
	assert.Equal(t, "~user/x", ExpandHome("~user/x"))
}
