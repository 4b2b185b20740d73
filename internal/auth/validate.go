package auth

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/asaskevich/govalidator"
)

// MinPasswordLength is the shortest password the register form accepts.
const MinPasswordLength = 6

// ImageExtensions are the accepted profile picture extensions.
var ImageExtensions = []string{".png", ".jpg", ".jpeg"}

// ValidationError is a client-side input check that failed before any
// request was sent.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateEmail checks that email is present and well formed.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return &ValidationError{Field: "email", Message: "Email is required"}
	}
	if !govalidator.IsEmail(email) {
		return &ValidationError{Field: "email", Message: "Enter a valid email address"}
	}
	return nil
}

// ValidateLogin checks login credentials.
func ValidateLogin(email, password string) error {
	if err := ValidateEmail(email); err != nil {
		return err
	}
	if password == "" {
		return &ValidationError{Field: "password", Message: "Password is required"}
	}
	return nil
}

// ValidatePassword checks a new account password.
func ValidatePassword(password string) error {
	if password == "" {
		return &ValidationError{Field: "password", Message: "Password is required"}
	}
	if len([]rune(password)) < MinPasswordLength {
		return &ValidationError{
			Field:   "password",
			Message: fmt.Sprintf("Password must be at least %d characters", MinPasswordLength),
		}
	}
	return nil
}

// ValidateImagePath checks an optional profile picture. Empty means none.
func ValidateImagePath(path string) error {
	if path == "" {
		return nil
	}

	ext := strings.ToLower(filepath.Ext(path))
	allowed := false
	for _, e := range ImageExtensions {
		if ext == e {
			allowed = true
			break
		}
	}
	if !allowed {
		return &ValidationError{
			Field:   "image",
			Message: fmt.Sprintf("Image must be one of %s", strings.Join(ImageExtensions, ", ")),
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		return &ValidationError{Field: "image", Message: fmt.Sprintf("Cannot read image: %s", path)}
	}
	if info.IsDir() {
		return &ValidationError{Field: "image", Message: fmt.Sprintf("Image is a directory: %s", path)}
	}
	return nil
}

// ValidateRegister checks a registration.
func ValidateRegister(email, password, imagePath string) error {
	if err := ValidateEmail(email); err != nil {
		return err
	}
	if err := ValidatePassword(password); err != nil {
		return err
	}
	return ValidateImagePath(imagePath)
}
