package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/cloudstudy/internal/backendtest"
	"github.com/felixgeelhaar/cloudstudy/internal/config"
	"github.com/felixgeelhaar/cloudstudy/internal/exitcode"
)

type testEnv struct {
	dir     string
	cfgPath string
	server  *backendtest.Server
	env     map[string]string
}

// newTestEnv writes a config file pointing at an in-process backend with
// everything else under a temp dir.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	t.Setenv("CI", "true")

	server := backendtest.New()
	t.Cleanup(server.Close)

	dir := t.TempDir()
	cfg := config.Default()
	cfg.BackendURL = server.URL
	cfg.HTTP.MaxRetries = 1
	cfg.HTTP.RetryDelay = time.Millisecond
	cfg.HTTP.Timeout = 5 * time.Second
	cfg.Session.Path = filepath.Join(dir, "session.json")
	cfg.Logging.File = filepath.Join(dir, "cloudstudy.log")
	cfg.Logging.Level = "error"

	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, config.Save(cfg, cfgPath))

	e := &testEnv{dir: dir, cfgPath: cfgPath, server: server, env: map[string]string{}}
	original := getenv
	getenv = func(key string) string { return e.env[key] }
	t.Cleanup(func() { getenv = original })
	return e
}

func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func (e *testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(append([]string{"--config", e.cfgPath}, args...))

	err := ExecuteContext(context.Background())
	return out.String(), err
}

func (e *testEnv) status(t *testing.T) map[string]any {
	t.Helper()
	out, err := e.run(t, "status", "--format", "json")
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	return got
}

func TestVersion(t *testing.T) {
	e := newTestEnv(t)

	out, err := e.run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "cloudstudy ")

	out, err = e.run(t, "version", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"version"`)
}

func TestLogin_StoresSession(t *testing.T) {
	e := newTestEnv(t)
	e.server.AddUser("a@b.com", "secret", "admin")

	out, err := e.run(t, "login", "--email", "a@b.com", "--password", "secret")
	require.NoError(t, err)
	assert.Equal(t, "Logged in as a@b.com (admin)\n", out)

	st := e.status(t)
	assert.Equal(t, true, st["logged_in"])
	assert.Equal(t, false, st["encrypted"])
	assert.NotEmpty(t, st["fingerprint"])
	token, ok := st["token"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "1", token["subject"])
}

func TestLogin_EncryptedWithPassphrase(t *testing.T) {
	e := newTestEnv(t)
	e.env[config.EnvSessionPassphrase] = "correct horse"
	e.server.AddUser("a@b.com", "secret", "user")

	_, err := e.run(t, "login", "--email", "a@b.com", "--password", "secret")
	require.NoError(t, err)

	st := e.status(t)
	assert.Equal(t, true, st["logged_in"])
	assert.Equal(t, true, st["encrypted"])

	data, err := os.ReadFile(filepath.Join(e.dir, "session.json"))
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, true, doc["encrypted"])

	e.env[config.EnvSessionPassphrase] = "wrong"
	_, err = e.run(t, "status")
	require.Error(t, err)
	assert.Equal(t, exitcode.SessionError, exitcode.DetermineExitCode(err))
}

func TestLogin_WrongPassword(t *testing.T) {
	e := newTestEnv(t)
	e.server.AddUser("a@b.com", "secret", "user")

	_, err := e.run(t, "login", "--email", "a@b.com", "--password", "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid email or password")
	assert.Equal(t, exitcode.AuthError, exitcode.DetermineExitCode(err))

	assert.Equal(t, false, e.status(t)["logged_in"])
}

func TestLogin_MissingFlagsWithoutTerminal(t *testing.T) {
	e := newTestEnv(t)

	_, err := e.run(t, "login", "--email", "a@b.com")
	require.Error(t, err)
	assert.Equal(t, exitcode.UsageError, exitcode.DetermineExitCode(err))
}

func TestLogin_InvalidEmail(t *testing.T) {
	e := newTestEnv(t)

	_, err := e.run(t, "login", "--email", "not-an-email", "--password", "secret")
	require.Error(t, err)
	assert.Equal(t, exitcode.UsageError, exitcode.DetermineExitCode(err))
	assert.Empty(t, e.server.RequestIDs())
}

func TestLogin_BackendUnreachable(t *testing.T) {
	e := newTestEnv(t)
	e.server.Close()

	_, err := e.run(t, "login", "--email", "a@b.com", "--password", "secret")
	require.Error(t, err)
	assert.Equal(t, exitcode.NetworkError, exitcode.DetermineExitCode(err))
}

func TestLogin_BackendURLFlag(t *testing.T) {
	e := newTestEnv(t)
	other := backendtest.New()
	t.Cleanup(other.Close)
	other.AddUser("a@b.com", "secret", "user")

	_, err := e.run(t, "--backend-url", other.URL, "login", "--email", "a@b.com", "--password", "secret")
	require.NoError(t, err)
	assert.Len(t, other.RequestIDs(), 1)
	assert.Empty(t, e.server.RequestIDs())
}

func TestRegister(t *testing.T) {
	e := newTestEnv(t)
	image := filepath.Join(e.dir, "me.png")
	require.NoError(t, os.WriteFile(image, []byte("\x89PNG"), 0o600))

	out, err := e.run(t, "register", "--email", "a@b.com", "--password", "secret", "--image", image)
	require.NoError(t, err)
	assert.Contains(t, out, "User registered successfully")
	assert.True(t, e.server.HasUser("a@b.com"))
	require.Len(t, e.server.Uploads(), 1)

	assert.Equal(t, false, e.status(t)["logged_in"])
}

func TestRegister_Duplicate(t *testing.T) {
	e := newTestEnv(t)
	e.server.AddUser("a@b.com", "secret", "user")

	_, err := e.run(t, "register", "--email", "a@b.com", "--password", "secret")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "User already exists")
	assert.Equal(t, exitcode.AuthError, exitcode.DetermineExitCode(err))
}

func TestRegister_BadImage(t *testing.T) {
	e := newTestEnv(t)
	gif := filepath.Join(e.dir, "me.gif")
	require.NoError(t, os.WriteFile(gif, []byte("GIF89a"), 0o600))

	_, err := e.run(t, "register", "--email", "a@b.com", "--password", "secret", "--image", gif)
	require.Error(t, err)
	assert.Equal(t, exitcode.UsageError, exitcode.DetermineExitCode(err))
	assert.False(t, e.server.HasUser("a@b.com"))
}

func TestLogout(t *testing.T) {
	e := newTestEnv(t)
	e.server.AddUser("a@b.com", "secret", "user")

	_, err := e.run(t, "login", "--email", "a@b.com", "--password", "secret")
	require.NoError(t, err)

	out, err := e.run(t, "logout")
	require.NoError(t, err)
	assert.Equal(t, "Logged out\n", out)
	assert.Equal(t, false, e.status(t)["logged_in"])

	_, err = e.run(t, "logout")
	assert.NoError(t, err)
}

func TestStatus_Text(t *testing.T) {
	e := newTestEnv(t)

	out, err := e.run(t, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Session:  logged out")
	assert.Contains(t, out, e.server.URL)

	_, err = e.run(t, "status", "--format", "xml")
	assert.Error(t, err)
}

func TestConfig_GetSet(t *testing.T) {
	e := newTestEnv(t)

	_, err := e.run(t, "config", "set", "http.max_retries", "5")
	require.NoError(t, err)

	out, err := e.run(t, "config", "get", "http.max_retries")
	require.NoError(t, err)
	assert.Equal(t, "5\n", out)

	_, err = e.run(t, "config", "set", "nope", "1")
	assert.Error(t, err)
}

func TestConfig_SetRejectsInvalidValue(t *testing.T) {
	e := newTestEnv(t)
	before, err := os.ReadFile(e.cfgPath)
	require.NoError(t, err)

	_, err = e.run(t, "config", "set", "backend_url", "ftp://example.com")
	require.Error(t, err)
	assert.Equal(t, exitcode.ConfigError, exitcode.DetermineExitCode(err))

	after, err := os.ReadFile(e.cfgPath)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestConfig_SetIgnoresOverrides(t *testing.T) {
	e := newTestEnv(t)
	e.env[config.EnvBackendURL] = "http://override:1"

	_, err := e.run(t, "config", "set", "logging.level", "debug")
	require.NoError(t, err)

	cfg, err := config.Load(e.cfgPath)
	require.NoError(t, err)
	assert.Equal(t, e.server.URL, cfg.BackendURL)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestConfig_ViewMasksPassphrase(t *testing.T) {
	e := newTestEnv(t)
	e.env[config.EnvSessionPassphrase] = "hunter2"

	out, err := e.run(t, "config", "view")
	require.NoError(t, err)
	assert.Contains(t, out, "backend_url: "+e.server.URL)
	assert.Contains(t, out, "********")
	assert.NotContains(t, out, "hunter2")

	out, err = e.run(t, "config", "view", "--format", "json")
	require.NoError(t, err)
	assert.NotContains(t, out, "hunter2")
}

func TestConfig_PathAndInit(t *testing.T) {
	e := newTestEnv(t)

	out, err := e.run(t, "config", "path")
	require.NoError(t, err)
	assert.Equal(t, e.cfgPath+"\n", out)

	_, err = e.run(t, "config", "init")
	assert.Error(t, err)

	out, err = e.run(t, "config", "init", "--force")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+e.cfgPath)

	cfg, err := config.Load(e.cfgPath)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultBackendURL, cfg.BackendURL)
}

func TestInvalidConfigBlocksBackendCommands(t *testing.T) {
	e := newTestEnv(t)
	require.NoError(t, os.WriteFile(e.cfgPath, []byte("backend_url: not a url\n"), 0o600))

	_, err := e.run(t, "login", "--email", "a@b.com", "--password", "secret")
	require.Error(t, err)
	assert.Equal(t, exitcode.ConfigError, exitcode.DetermineExitCode(err))

	// config commands still work so the file can be fixed.
	_, err = e.run(t, "config", "set", "backend_url", e.server.URL)
	assert.NoError(t, err)
}
