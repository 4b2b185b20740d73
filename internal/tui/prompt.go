package tui

import (
	"fmt"
	"os"

	"github.com/charmbracelet/huh"

	"github.com/felixgeelhaar/cloudstudy/internal/auth"
)

// Prompt represents a simple interactive prompt configuration
type Prompt struct {
	Message     string
	Default     string
	Placeholder string
	Required    bool
}

// PromptForString displays an interactive prompt and returns the user's input
func PromptForString(p Prompt) (string, error) {
	value := p.Default

	input := huh.NewInput().
		Title(p.Message).
		Placeholder(p.Placeholder).
		Value(&value)

	if err := huh.NewForm(huh.NewGroup(input)).Run(); err != nil {
		return "", fmt.Errorf("prompt failed: %w", err)
	}

	if p.Required && value == "" {
		return "", fmt.Errorf("value is required")
	}

	return value, nil
}

// PromptForConfirmation displays a yes/no confirmation prompt
func PromptForConfirmation(message string, defaultValue bool) (bool, error) {
	confirmed := defaultValue

	confirm := huh.NewConfirm().
		Title(message).
		Value(&confirmed)

	if err := huh.NewForm(huh.NewGroup(confirm)).Run(); err != nil {
		return false, fmt.Errorf("prompt failed: %w", err)
	}

	return confirmed, nil
}

// PromptForLogin asks for credentials with the same form and validation as
// the login view. email pre-fills the first field.
func PromptForLogin(email string) (string, string, error) {
	v := &loginValues{email: email}
	if err := newLoginForm(v).Run(); err != nil {
		return "", "", fmt.Errorf("prompt failed: %w", err)
	}
	return v.email, v.password, nil
}

// PromptForRegister asks for the register form fields. Values in in pre-fill
// the form.
func PromptForRegister(in auth.RegisterInput) (auth.RegisterInput, error) {
	v := &registerValues{email: in.Email, password: in.Password, imagePath: in.ImagePath}
	if err := newRegisterForm(v).Run(); err != nil {
		return auth.RegisterInput{}, fmt.Errorf("prompt failed: %w", err)
	}
	return auth.RegisterInput{
		Email:     v.email,
		Password:  v.password,
		ImagePath: expandImagePath(v.imagePath),
	}, nil
}

// IsInteractive returns true if stdin is a terminal (not piped)
func IsInteractive() bool {
	fileInfo, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}

// ciEnvVars are set by common CI runners.
var ciEnvVars = []string{
	"CI",
	"GITHUB_ACTIONS",
	"GITLAB_CI",
	"JENKINS_URL",
	"TRAVIS",
	"CIRCLECI",
	"BUILDKITE",
}

// InCI reports whether getenv shows a CI runner.
func InCI(getenv func(string) string) bool {
	for _, envVar := range ciEnvVars {
		if getenv(envVar) != "" {
			return true
		}
	}
	return false
}

// ShouldPrompt returns true if prompts should be shown based on environment
// Prompts are disabled in CI environments or when stdin is not a terminal
func ShouldPrompt() bool {
	return !InCI(os.Getenv) && IsInteractive()
}
