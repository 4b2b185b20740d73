package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/cloudstudy/internal/auth"
	apperrors "github.com/felixgeelhaar/cloudstudy/internal/errors"
	"github.com/felixgeelhaar/cloudstudy/internal/tui"
)

var (
	loginEmail    string
	loginPassword string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and store the session token",
	Long: `Sign in with email and password. The access token is written to
session.path, encrypted when a session passphrase is configured.

Missing flags are asked for interactively when a terminal is attached.

Examples:
  cloudstudy login
  cloudstudy login --email me@example.com --password secret`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

func init() {
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "account email")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "account password")

	rootCmd.AddCommand(loginCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	email, password := loginEmail, loginPassword

	if email == "" || password == "" {
		if !tui.ShouldPrompt() {
			return apperrors.NewValidationError(errors.New("--email and --password are required when not running in a terminal"))
		}
		var err error
		email, password, err = tui.PromptForLogin(email)
		if err != nil {
			return err
		}
	}

	user, err := app.flow.Login(cmd.Context(), email, password)
	if err != nil {
		return flowError(err, auth.MessageLoginFailed, apperrors.NewLoginFailedError)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s)\n", user.Email, user.DisplayRole())
	return nil
}
