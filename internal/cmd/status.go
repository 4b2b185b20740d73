package cmd

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/cloudstudy/internal/session"
	"github.com/felixgeelhaar/cloudstudy/internal/ux"
)

var statusFormat string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the stored session",
	Long: `Show whether a session token is stored and what it says about itself.
The token is decoded without verifying its signature; only the backend can
tell whether it is still accepted.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVarP(&statusFormat, "format", "f", ux.FormatText, "output format: text, json, yaml")
	statusCmd.Annotations = map[string]string{offlineAnnotation: "true"}

	rootCmd.AddCommand(statusCmd)
}

// sessionStatus is the status report.
type sessionStatus struct {
	BackendURL  string             `json:"backend_url" yaml:"backend_url"`
	SessionPath string             `json:"session_path" yaml:"session_path"`
	Encrypted   bool               `json:"encrypted" yaml:"encrypted"`
	LoggedIn    bool               `json:"logged_in" yaml:"logged_in"`
	Fingerprint string             `json:"fingerprint,omitempty" yaml:"fingerprint,omitempty"`
	SavedAt     *time.Time         `json:"saved_at,omitempty" yaml:"saved_at,omitempty"`
	Token       *session.TokenInfo `json:"token,omitempty" yaml:"token,omitempty"`
	Expired     bool               `json:"expired" yaml:"expired"`
}

func buildSessionStatus(tokens *session.FileStore, backend string, now time.Time) (*sessionStatus, error) {
	st := &sessionStatus{
		BackendURL:  backend,
		SessionPath: tokens.Path(),
		Encrypted:   tokens.Encrypted(),
	}

	token, err := tokens.Load()
	if errors.Is(err, session.ErrNoToken) {
		return st, nil
	}
	if err != nil {
		return nil, err
	}

	st.LoggedIn = true
	st.Fingerprint = session.Fingerprint(token)
	if saved, ok := tokens.UpdatedAt(); ok {
		st.SavedAt = &saved
	}
	if info, err := session.Inspect(token); err == nil {
		st.Token = info
		st.Expired = info.Expired(now)
	}
	return st, nil
}

// RenderText implements ux.TextRenderer.
func (s *sessionStatus) RenderText(w io.Writer) error {
	state := "logged out"
	switch {
	case s.LoggedIn && s.Expired:
		state = "logged in (token expired)"
	case s.LoggedIn:
		state = "logged in"
	}

	lines := []string{
		fmt.Sprintf("Session:  %s", state),
		fmt.Sprintf("Backend:  %s", s.BackendURL),
		fmt.Sprintf("Stored:   %s (encrypted: %t)", s.SessionPath, s.Encrypted),
	}
	if s.LoggedIn {
		lines = append(lines, fmt.Sprintf("Token:    %s", s.Fingerprint))
	}
	if s.SavedAt != nil {
		lines = append(lines, fmt.Sprintf("Saved:    %s", s.SavedAt.Format(time.RFC3339)))
	}
	if s.Token != nil {
		if s.Token.Subject != "" {
			lines = append(lines, fmt.Sprintf("Subject:  %s", s.Token.Subject))
		}
		if s.Token.ExpiresAt != nil {
			lines = append(lines, fmt.Sprintf("Expires:  %s", s.Token.ExpiresAt.Format(time.RFC3339)))
		}
	}

	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	formatter, err := ux.NewFormatter(statusFormat, &ux.FormatterOptions{Writer: cmd.OutOrStdout()})
	if err != nil {
		return err
	}

	st, err := buildSessionStatus(app.tokens, app.cfg.BackendURL, time.Now())
	if err != nil {
		return err
	}
	return formatter.Format(st)
}
