package ux

import (
	"errors"
	"fmt"
	"strings"

	apperrors "github.com/felixgeelhaar/cloudstudy/internal/errors"
)

// ErrorWithSuggestion wraps an error with helpful recovery suggestions
type ErrorWithSuggestion struct {
	Err        error
	Suggestion string
}

// Error implements the error interface
func (e *ErrorWithSuggestion) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%v\n\nSuggestion: %s", e.Err, e.Suggestion)
	}
	return e.Err.Error()
}

// Unwrap provides access to the underlying error
func (e *ErrorWithSuggestion) Unwrap() error {
	return e.Err
}

// NewErrorWithSuggestion creates a new error with a suggestion
func NewErrorWithSuggestion(err error, suggestion string) error {
	if err == nil {
		return nil
	}
	return &ErrorWithSuggestion{
		Err:        err,
		Suggestion: suggestion,
	}
}

// EnhanceError adds a suggestion to errors that don't carry one.
// Application errors already list their suggestions and pass through.
func EnhanceError(err error) error {
	if err == nil {
		return nil
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}

	errMsg := err.Error()

	switch {
	case strings.Contains(errMsg, "connection refused") || strings.Contains(errMsg, "no such host"):
		return NewErrorWithSuggestion(err,
			"Check that the backend is running, or point at another one with --backend-url")

	case strings.Contains(errMsg, "context deadline exceeded"):
		return NewErrorWithSuggestion(err,
			"The backend is slow to answer; raise http.timeout with 'cloudstudy config set http.timeout 60s'")

	case strings.Contains(errMsg, "x509") || strings.Contains(errMsg, "certificate"):
		return NewErrorWithSuggestion(err,
			"The backend's TLS certificate was rejected; check the backend URL scheme and host")

	case strings.Contains(errMsg, "no such file or directory") && strings.Contains(errMsg, "config.yaml"):
		return NewErrorWithSuggestion(err,
			"Write a default configuration with 'cloudstudy config init'")

	case strings.Contains(errMsg, "permission denied"):
		return NewErrorWithSuggestion(err,
			"Check file permissions on ~/.cloudstudy and the session file")

	case strings.Contains(errMsg, "unknown format"):
		return NewErrorWithSuggestion(err,
			fmt.Sprintf("Use one of: %s", strings.Join(Formats, ", ")))

	case strings.Contains(errMsg, "unknown configuration key"):
		return NewErrorWithSuggestion(err,
			"List the keys with 'cloudstudy config view'")
	}

	return err
}

// FormatError provides consistent error formatting with context
func FormatError(err error, context string) error {
	if err == nil {
		return nil
	}

	enhanced := EnhanceError(err)
	if context != "" {
		return fmt.Errorf("%s: %w", context, enhanced)
	}
	return enhanced
}
