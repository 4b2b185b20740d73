package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/cloudstudy/internal/config"
	"github.com/felixgeelhaar/cloudstudy/internal/tui"
	"github.com/felixgeelhaar/cloudstudy/internal/ux"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or edit cloudstudy configuration",
	Long: `Manage the configuration stored at ~/.cloudstudy/config.yaml

Examples:
  # View the effective configuration (file, environment and flags)
  cloudstudy config view

  # Write a default configuration file
  cloudstudy config init

  # Get a specific value
  cloudstudy config get backend_url

  # Set a specific value
  cloudstudy config set backend_url https://api.example.com

  # Show configuration file path
  cloudstudy config path
`,
	Annotations: map[string]string{offlineAnnotation: "true"},
}

var (
	configViewFormat string
	configInitForce  bool
)

var configViewCmd = &cobra.Command{
	Use:   "view",
	Short: "Display the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigView,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), app.cfgPath)
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a specific configuration value",
	Long:  "Print one effective configuration value. Keys use dot notation (e.g., http.timeout).",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		value, err := app.cfg.Get(args[0])
		if err != nil {
			return ux.EnhanceError(err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), value)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a specific configuration value",
	Long: `Set one value in the configuration file. Keys use dot notation
(e.g., http.max_retries 5). The file is only written if the result is valid.`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

func init() {
	configViewCmd.Flags().StringVarP(&configViewFormat, "format", "f", ux.FormatYAML, "output format: yaml, json")
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "overwrite an existing file")

	configCmd.AddCommand(configViewCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)

	rootCmd.AddCommand(configCmd)
}

func runConfigView(cmd *cobra.Command, args []string) error {
	format := configViewFormat
	if format == ux.FormatText {
		format = ux.FormatYAML
	}
	formatter, err := ux.NewFormatter(format, &ux.FormatterOptions{Writer: cmd.OutOrStdout()})
	if err != nil {
		return ux.EnhanceError(err)
	}

	shown := *app.cfg
	if shown.Session.Passphrase != "" {
		shown.Session.Passphrase = "********"
	}
	return formatter.Format(&shown)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := app.cfgPath

	_, err := os.Stat(path)
	exists := err == nil
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to check %s: %w", path, err)
	}

	if exists && !configInitForce {
		if !tui.ShouldPrompt() {
			return fmt.Errorf("%s already exists; pass --force to overwrite it", path)
		}
		ok, err := tui.PromptForConfirmation(fmt.Sprintf("Overwrite %s?", path), false)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(cmd.OutOrStdout(), "Left the existing file unchanged")
			return nil
		}
	}

	cfg := config.Default()
	if backendURL != "" {
		cfg.BackendURL = backendURL
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.Save(cfg, path); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]

	// Start from the file alone so environment and flag overrides are not
	// written back.
	cfg, err := config.Load(app.cfgPath)
	if err != nil {
		return err
	}
	if err := cfg.Set(key, value); err != nil {
		return ux.EnhanceError(err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.Save(cfg, app.cfgPath); err != nil {
		return err
	}

	app.logger.Debug("configuration updated", "key", key, "path", app.cfgPath)
	fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", key, value)
	return nil
}
