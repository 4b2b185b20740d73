package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/cloudstudy/internal/api"
	"github.com/felixgeelhaar/cloudstudy/internal/auth"
	"github.com/felixgeelhaar/cloudstudy/internal/config"
	"github.com/felixgeelhaar/cloudstudy/internal/log"
	"github.com/felixgeelhaar/cloudstudy/internal/session"
	"github.com/felixgeelhaar/cloudstudy/internal/store"
	"github.com/felixgeelhaar/cloudstudy/internal/version"
)

// offlineAnnotation marks commands that work without a usable backend
// configuration. It is inherited by subcommands.
const offlineAnnotation = "cloudstudy/offline"

var (
	cfgFile    string
	backendURL string
	logLevel   string
	logFormat  string
)

// getenv is swapped in tests.
var getenv = os.Getenv

// app is built by the root PersistentPreRunE for every command.
var app *appContext

type appContext struct {
	cfg      *config.Config
	cfgPath  string
	logger   *log.Logger
	logClose io.Closer
	client   *api.Client
	tokens   *session.FileStore
	store    *store.Store
	flow     *auth.Flow
}

func (a *appContext) close() {
	if a != nil && a.logClose != nil {
		_ = a.logClose.Close()
		a.logClose = nil
	}
}

var rootCmd = &cobra.Command{
	Use:   "cloudstudy",
	Short: "Terminal client for the Cloudinary study backend",
	Long: `cloudstudy signs you in to the Cloudinary study backend and shows your
profile. Run it without a command to open the interactive client, or use the
login, register, logout and status commands from scripts.

Configuration is read from ~/.cloudstudy/config.yaml, then from the
CLOUDSTUDY_* environment variables, then from flags.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		app.close()
	},
}

// Execute runs the root command
func Execute() error {
	return ExecuteContext(context.Background())
}

// ExecuteContext runs the root command with ctx, usually cancelled on SIGINT.
func ExecuteContext(ctx context.Context) error {
	defer func() { app.close() }()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		log.DefaultLogger().WithError(err).DebugContext(ctx, "command failed")
	}
	return err
}

func init() {
	// Assigned here because setup inspects rootCmd itself.
	rootCmd.PersistentPreRunE = setup
	rootCmd.RunE = runUI

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.cloudstudy/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&backendURL, "backend-url", "", "backend base URL (overrides config and "+config.EnvBackendURL+")")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: text or json")

	rootCmd.Version = version.GetInfo().Short()
}

func isOffline(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[offlineAnnotation] == "true" {
			return true
		}
	}
	return false
}

// setup resolves the configuration and wires the client for cmd.
func setup(cmd *cobra.Command, args []string) error {
	cfgPath := cfgFile
	if cfgPath == "" {
		cfgPath = config.DefaultPath()
	}
	cfgPath = config.ExpandHome(cfgPath)

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	cfg.ApplyEnv(getenv)
	if backendURL != "" {
		cfg.BackendURL = backendURL
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logFormat != "" {
		cfg.Logging.Format = logFormat
	}

	if !isOffline(cmd) {
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	logger, closer, err := newLogger(cfg, cmd, interactiveUI(cmd))
	if err != nil {
		return err
	}
	log.SetDefaultLogger(logger)

	client := api.NewWithConfig(cfg.BackendURL, &api.Config{
		MaxRetries:        cfg.HTTP.MaxRetries,
		RetryDelay:        cfg.HTTP.RetryDelay,
		Timeout:           cfg.HTTP.Timeout,
		ValidateResponses: cfg.HTTP.ValidateResponses,
	}).WithLogger(logger.WithGroup("api"))

	tokens := session.NewFileStore(cfg.Session.Path, cfg.Session.Passphrase)
	st := store.New(store.Initial())

	app = &appContext{
		cfg:      cfg,
		cfgPath:  cfgPath,
		logger:   logger,
		logClose: closer,
		client:   client,
		tokens:   tokens,
		store:    st,
		flow:     auth.NewFlow(client, tokens, st, auth.WithLogger(logger)),
	}

	logger.Debug("configured",
		"command", cmd.CommandPath(),
		"config", cfgPath,
		"backend_url", cfg.BackendURL,
		"session", cfg.Session.Path,
		"encrypted", tokens.Encrypted(),
	)
	return nil
}

// newLogger writes to stderr, or to the log file while the terminal UI owns
// the screen.
func newLogger(cfg *config.Config, cmd *cobra.Command, toFile bool) (*log.Logger, io.Closer, error) {
	lc := log.DefaultConfig()

	if cfg.Logging.Level != "" {
		level, err := log.ParseLevel(cfg.Logging.Level)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid log level: %w", err)
		}
		lc.Level = level
	}
	if cfg.Logging.Format != "" {
		lc.Format = log.ParseFormat(strings.ToLower(cfg.Logging.Format))
	}
	lc.Output = log.NewOutput(cmd.ErrOrStderr())

	if !toFile {
		return log.New(lc), nil, nil
	}
	if cfg.Logging.File == "" {
		return log.Discard(), nil, nil
	}

	out, closer, err := log.OutputFile(cfg.Logging.File)
	if err != nil {
		return nil, nil, err
	}
	lc.Output = out
	return log.New(lc), closer, nil
}
