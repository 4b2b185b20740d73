package api

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// APIError is a non-2xx response from the backend.
type APIError struct {
	StatusCode int
	// Message is the server-supplied "error" (or "message") field, verbatim.
	// Empty when the body carried neither.
	Message   string
	RequestID string
}

func (e *APIError) Error() string {
	head := fmt.Sprintf("backend API error (status %d", e.StatusCode)
	if e.RequestID != "" {
		head += fmt.Sprintf(", request_id %s", e.RequestID)
	}
	head += ")"
	if e.Message == "" {
		return head
	}
	return head + ": " + e.Message
}

// Retryable reports whether the status is worth another attempt.
func (e *APIError) Retryable() bool {
	return e.StatusCode >= 500
}

// NetworkError means the request did not complete, including timeouts and
// cancellation.
type NetworkError struct {
	Method string
	Path   string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the request ran out of time.
func (e *NetworkError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(e.Err, &ne) && ne.Timeout()
}

// ContractError is a successful response whose body does not match the
// backend contract.
type ContractError struct {
	Method     string
	Path       string
	StatusCode int
	Err        error
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("%s %s returned %d with an unexpected body: %v", e.Method, e.Path, e.StatusCode, e.Err)
}

func (e *ContractError) Unwrap() error {
	return e.Err
}
