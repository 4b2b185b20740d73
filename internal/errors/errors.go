package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

// Error categories
const (
	// Store errors (STORE-001 to STORE-099)
	ErrCodeStoreUnknownAction ErrorCode = "STORE-001"
	ErrCodeStoreMissingUser   ErrorCode = "STORE-002"

	// Auth errors (AUTH-001 to AUTH-099)
	ErrCodeAuthInvalidCredentials ErrorCode = "AUTH-001"
	ErrCodeAuthRegisterRejected   ErrorCode = "AUTH-002"
	ErrCodeAuthNotLoggedIn        ErrorCode = "AUTH-003"
	ErrCodeAuthValidation         ErrorCode = "AUTH-004"

	// Backend API errors (API-001 to API-099)
	ErrCodeAPINetwork  ErrorCode = "API-001"
	ErrCodeAPIResponse ErrorCode = "API-002"
	ErrCodeAPIContract ErrorCode = "API-003"

	// Session token errors (SESSION-001 to SESSION-099)
	ErrCodeSessionReadFailed  ErrorCode = "SESSION-001"
	ErrCodeSessionWriteFailed ErrorCode = "SESSION-002"
	ErrCodeSessionDecrypt     ErrorCode = "SESSION-003"
	ErrCodeSessionMalformed   ErrorCode = "SESSION-004"

	// Configuration errors (CONFIG-001 to CONFIG-099)
	ErrCodeConfigInvalid     ErrorCode = "CONFIG-001"
	ErrCodeConfigReadFailed  ErrorCode = "CONFIG-002"
	ErrCodeConfigWriteFailed ErrorCode = "CONFIG-003"
)

const docsBase = "https://github.com/felixgeelhaar/cloudstudy"

// AppError represents an enhanced error with code, suggestions, and documentation
type AppError struct {
	Code        ErrorCode
	Message     string
	Suggestions []string
	DocsURL     string
	Cause       error
}

// Error implements the error interface
func (e *AppError) Error() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("[%s] %s", e.Code, e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf(": %v", e.Cause))
	}

	if len(e.Suggestions) > 0 {
		b.WriteString("\n\nSuggestions:")
		for _, suggestion := range e.Suggestions {
			b.WriteString(fmt.Sprintf("\n  • %s", suggestion))
		}
	}

	if e.DocsURL != "" {
		b.WriteString(fmt.Sprintf("\n\nDocumentation: %s", e.DocsURL))
	}

	return b.String()
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a new AppError wrapping an existing error
func Wrap(code ErrorCode, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WithSuggestion adds a suggestion to the error
func (e *AppError) WithSuggestion(suggestion string) *AppError {
	e.Suggestions = append(e.Suggestions, suggestion)
	return e
}

// WithSuggestions adds multiple suggestions to the error
func (e *AppError) WithSuggestions(suggestions ...string) *AppError {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

// WithDocs adds a documentation URL to the error
func (e *AppError) WithDocs(url string) *AppError {
	e.DocsURL = url
	return e
}

// CodeOf returns the code of the first AppError in err's chain.
func CodeOf(err error) (ErrorCode, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code, true
	}
	return "", false
}

// HasCode reports whether err's chain contains an AppError with the given code.
func HasCode(err error, code ErrorCode) bool {
	c, ok := CodeOf(err)
	return ok && c == code
}

// Common error constructors for frequently used errors

// NewLoginFailedError creates an error for a rejected login.
// message is the text the backend returned, shown verbatim.
func NewLoginFailedError(message string, cause error) *AppError {
	return Wrap(ErrCodeAuthInvalidCredentials, message, cause).
		WithSuggestion("Check your email and password").
		WithSuggestion("Create an account with 'cloudstudy register --email <email> --password <password>'")
}

// NewRegisterFailedError creates an error for a rejected registration.
func NewRegisterFailedError(message string, cause error) *AppError {
	return Wrap(ErrCodeAuthRegisterRejected, message, cause).
		WithSuggestion("If the account already exists, run 'cloudstudy login'").
		WithSuggestion("Profile images must be .png, .jpg or .jpeg")
}

// NewValidationError creates a client-side validation error
func NewValidationError(cause error) *AppError {
	return Wrap(ErrCodeAuthValidation, "invalid input", cause).
		WithSuggestion("Run the command with --help to see the required flags")
}

// NewNotLoggedInError creates an error for commands that need a stored session
func NewNotLoggedInError() *AppError {
	return New(ErrCodeAuthNotLoggedIn, "not logged in").
		WithSuggestion("Run 'cloudstudy login' to authenticate")
}

// NewNetworkError creates a backend connectivity error
func NewNetworkError(backendURL string, cause error) *AppError {
	return Wrap(ErrCodeAPINetwork, fmt.Sprintf("network error talking to %s", backendURL), cause).
		WithSuggestion("Check that the backend is running").
		WithSuggestion("Set the backend with --backend-url or CLOUDSTUDY_BACKEND_URL").
		WithDocs(docsBase + "#configuration")
}

// NewContractError creates an error for a response that breaks the API contract
func NewContractError(endpoint string, cause error) *AppError {
	return Wrap(ErrCodeAPIContract, fmt.Sprintf("unexpected response from %s", endpoint), cause).
		WithSuggestion("Make sure the backend version matches this client").
		WithSuggestion("Disable the check with 'http.validate_responses: false' in the config file")
}

// NewSessionError creates a session token storage error
func NewSessionError(code ErrorCode, path string, cause error) *AppError {
	e := Wrap(code, fmt.Sprintf("session store %s", path), cause)
	switch code {
	case ErrCodeSessionDecrypt:
		e.WithSuggestion("Check CLOUDSTUDY_SESSION_PASSPHRASE or session.passphrase")
		e.WithSuggestion("Run 'cloudstudy logout' to discard the stored session")
	default:
		e.WithSuggestion("Verify the file exists and you have read/write permissions")
	}
	return e
}

// NewConfigInvalidError creates a configuration validation error
func NewConfigInvalidError(details string) *AppError {
	return New(ErrCodeConfigInvalid, fmt.Sprintf("invalid configuration: %s", details)).
		WithSuggestion("Run 'cloudstudy config view' to inspect the effective configuration").
		WithDocs(docsBase + "#configuration")
}

// NewConfigReadError creates a configuration read/parse error
func NewConfigReadError(path string, cause error) *AppError {
	return Wrap(ErrCodeConfigReadFailed, fmt.Sprintf("failed to read config file: %s", path), cause).
		WithSuggestion("Check the file syntax and format").
		WithSuggestion("Run 'cloudstudy config init' to write a fresh default file")
}
