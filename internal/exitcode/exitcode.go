package exitcode

import (
	"os"
	"strings"

	apperrors "github.com/felixgeelhaar/cloudstudy/internal/errors"
)

// Exit codes for consistent error handling across the CLI
const (
	// Success indicates successful execution
	Success = 0
	// GeneralError indicates a general error condition
	GeneralError = 1
	// UsageError indicates invalid command usage or rejected input
	UsageError = 2
	// ConfigError indicates the configuration could not be read or is invalid
	ConfigError = 3
	// SessionError indicates the stored session could not be read or written
	SessionError = 4
	// AuthError indicates the backend refused the credentials or registration
	AuthError = 5
	// NetworkError indicates the backend could not be reached
	NetworkError = 6
	// Interrupted indicates the user cancelled with a signal
	Interrupted = 130
)

// Exit terminates the program with the given exit code
func Exit(code int) {
	os.Exit(code)
}

// ExitWithError exits with an appropriate code based on error type
func ExitWithError(err error) {
	if err == nil {
		Exit(Success)
		return
	}
	Exit(DetermineExitCode(err))
}

// DetermineExitCode analyzes an error and returns the appropriate exit code.
// Application error codes take precedence over the message heuristics.
func DetermineExitCode(err error) int {
	if err == nil {
		return Success
	}

	if code, ok := apperrors.CodeOf(err); ok {
		return fromErrorCode(code)
	}

	errMsg := strings.ToLower(err.Error())

	// Authentication errors
	if containsAny(errMsg, "authentication", "unauthorized", "forbidden", "permission denied",
		"invalid email or password", "token", "401", "403") {
		return AuthError
	}

	// Network errors
	if containsAny(errMsg, "network", "connection", "timeout", "unreachable", "dns",
		"no route to host", "service unavailable", "502", "503", "504") {
		return NetworkError
	}

	// Usage errors
	if containsAny(errMsg, "invalid flag", "unknown flag", "unknown command", "required flag",
		"missing argument", "invalid argument", "accepts ") {
		return UsageError
	}

	// Default to general error
	return GeneralError
}

func fromErrorCode(code apperrors.ErrorCode) int {
	switch code {
	case apperrors.ErrCodeAuthValidation:
		return UsageError
	case apperrors.ErrCodeAuthInvalidCredentials,
		apperrors.ErrCodeAuthRegisterRejected,
		apperrors.ErrCodeAuthNotLoggedIn:
		return AuthError
	case apperrors.ErrCodeAPINetwork:
		return NetworkError
	case apperrors.ErrCodeSessionReadFailed,
		apperrors.ErrCodeSessionWriteFailed,
		apperrors.ErrCodeSessionDecrypt,
		apperrors.ErrCodeSessionMalformed:
		return SessionError
	case apperrors.ErrCodeConfigInvalid,
		apperrors.ErrCodeConfigReadFailed,
		apperrors.ErrCodeConfigWriteFailed:
		return ConfigError
	default:
		return GeneralError
	}
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// GetExitCodeDescription returns a human-readable description of an exit code
func GetExitCodeDescription(code int) string {
	switch code {
	case Success:
		return "Success"
	case GeneralError:
		return "General error"
	case UsageError:
		return "Usage error (invalid flags, arguments or input)"
	case ConfigError:
		return "Configuration error"
	case SessionError:
		return "Session storage error"
	case AuthError:
		return "Authentication error"
	case NetworkError:
		return "Network error"
	case Interrupted:
		return "Interrupted"
	default:
		return "Unknown error"
	}
}
