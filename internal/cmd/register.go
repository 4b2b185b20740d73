package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/cloudstudy/internal/auth"
	"github.com/felixgeelhaar/cloudstudy/internal/config"
	apperrors "github.com/felixgeelhaar/cloudstudy/internal/errors"
	"github.com/felixgeelhaar/cloudstudy/internal/tui"
)

var (
	registerEmail    string
	registerPassword string
	registerImage    string
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account",
	Long: `Create an account, optionally with a profile image (.png, .jpg or .jpeg).
Registering does not sign you in; run 'cloudstudy login' afterwards.

Examples:
  cloudstudy register
  cloudstudy register --email me@example.com --password secret --image ~/me.png`,
	Args: cobra.NoArgs,
	RunE: runRegister,
}

func init() {
	registerCmd.Flags().StringVar(&registerEmail, "email", "", "account email")
	registerCmd.Flags().StringVar(&registerPassword, "password", "", "account password (at least 6 characters)")
	registerCmd.Flags().StringVar(&registerImage, "image", "", "profile image file")

	rootCmd.AddCommand(registerCmd)
}

func runRegister(cmd *cobra.Command, args []string) error {
	in := auth.RegisterInput{
		Email:     registerEmail,
		Password:  registerPassword,
		ImagePath: config.ExpandHome(registerImage),
	}

	if in.Email == "" || in.Password == "" {
		if !tui.ShouldPrompt() {
			return apperrors.NewValidationError(errors.New("--email and --password are required when not running in a terminal"))
		}
		var err error
		in, err = tui.PromptForRegister(in)
		if err != nil {
			return err
		}
	}

	message, err := app.flow.Register(cmd.Context(), in)
	if err != nil {
		return flowError(err, auth.MessageRegisterFailed, apperrors.NewRegisterFailedError)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, message)
	fmt.Fprintln(out, "Run 'cloudstudy login' to sign in.")
	return nil
}
