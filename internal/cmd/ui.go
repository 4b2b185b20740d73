package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/cloudstudy/internal/nav"
	"github.com/felixgeelhaar/cloudstudy/internal/tui"
)

var uiStart string

var uiCmd = &cobra.Command{
	Use:   "ui",
	Short: "Open the interactive client",
	Long: `Open the interactive terminal client. This is also what runs when
cloudstudy is started without a command.

Logs go to logging.file while the client is open.

Routes:
  /                    home
  /login               login form
  /register            register form
  /dashboard/profile   your profile (requires login)`,
	Args: cobra.NoArgs,
	RunE: runUI,
}

func init() {
	for _, c := range []*cobra.Command{rootCmd, uiCmd} {
		c.Flags().StringVar(&uiStart, "start", string(nav.RouteHome), "route to open first")
	}
	rootCmd.AddCommand(uiCmd)
}

func interactiveUI(cmd *cobra.Command) bool {
	return cmd == rootCmd || cmd == uiCmd
}

func runUI(cmd *cobra.Command, args []string) error {
	if !tui.IsInteractive() {
		return fmt.Errorf("the interactive client needs a terminal; use the login, register or status commands instead")
	}

	model, err := tui.New(cmd.Context(), app.flow,
		tui.WithStart(nav.Route(uiStart)),
		tui.WithLogger(app.logger.WithGroup("tui")),
	)
	if err != nil {
		return err
	}
	return tui.Run(cmd.Context(), model)
}
