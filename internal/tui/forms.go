package tui

import (
	"errors"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/felixgeelhaar/cloudstudy/internal/auth"
	"github.com/felixgeelhaar/cloudstudy/internal/config"
)

// loginValues backs the login form. The form writes through these pointers,
// so they must outlive every form built over them.
type loginValues struct {
	email    string
	password string
}

type registerValues struct {
	email     string
	password  string
	imagePath string
}

// check turns a validator's error into the message the form prints.
func check(validate func(string) error) func(string) error {
	return func(s string) error {
		if err := validate(s); err != nil {
			return errors.New(auth.ErrorMessage(err, err.Error()))
		}
		return nil
	}
}

func required(message string) func(string) error {
	return func(s string) error {
		if s == "" {
			return errors.New(message)
		}
		return nil
	}
}

func newLoginForm(v *loginValues) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("email").
				Title("Email").
				Value(&v.email).
				Validate(check(auth.ValidateEmail)),
			huh.NewInput().
				Key("password").
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&v.password).
				Validate(required("Password is required")),
		).Title("Login"),
	).WithShowHelp(false)
}

func newRegisterForm(v *registerValues) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("email").
				Title("Email").
				Value(&v.email).
				Validate(check(auth.ValidateEmail)),
			huh.NewInput().
				Key("password").
				Title("Password").
				Description("At least 6 characters").
				EchoMode(huh.EchoModePassword).
				Value(&v.password).
				Validate(check(auth.ValidatePassword)),
			huh.NewInput().
				Key("image").
				Title("Profile image").
				Description("Optional .png, .jpg or .jpeg file").
				Placeholder("~/Pictures/me.png").
				Value(&v.imagePath).
				Validate(check(func(s string) error {
					return auth.ValidateImagePath(expandImagePath(s))
				})),
		).Title("Register"),
	).WithShowHelp(false)
}

func expandImagePath(s string) string {
	return config.ExpandHome(strings.TrimSpace(s))
}
