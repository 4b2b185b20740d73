// Package auth implements login, registration and logout against the backend
// and keeps the store and the persisted session token in step.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/felixgeelhaar/cloudstudy/internal/api"
	"github.com/felixgeelhaar/cloudstudy/internal/log"
	"github.com/felixgeelhaar/cloudstudy/internal/session"
	"github.com/felixgeelhaar/cloudstudy/internal/store"
)

// RedirectDelay is how long the register view shows its confirmation before
// moving to the login view.
const RedirectDelay = 2 * time.Second

// User-facing messages used when the backend supplies none.
const (
	MessageLoginFailed    = "Login failed"
	MessageRegisterFailed = "Error registering user"
	MessageRegistered     = "User registered successfully"
	MessageNetwork        = "Network error"
)

// Backend is the subset of the API client the flow needs.
type Backend interface {
	Login(ctx context.Context, in api.LoginRequest) (*api.LoginResponse, error)
	Register(ctx context.Context, in api.RegisterRequest) (*api.RegisterResponse, error)
}

// Flow owns the write paths into the store.
type Flow struct {
	backend Backend
	tokens  session.Store
	store   *store.Store
	// dispatch is store.Dispatch; tests replace it to simulate rejection.
	dispatch func(store.Action) error
	logger  *log.Logger
}

// Option configures a Flow.
type Option func(*Flow)

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(f *Flow) { f.logger = l }
}

// NewFlow creates a flow.
func NewFlow(backend Backend, tokens session.Store, st *store.Store, opts ...Option) *Flow {
	f := &Flow{
		backend: backend,
		tokens:  tokens,
		store:   st,
		logger:  log.Discard(),
	}
	f.dispatch = st.Dispatch
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Store returns the store the flow dispatches to.
func (f *Flow) Store() *store.Store {
	return f.store
}

// Authenticate validates the credentials and calls POST /login. It touches
// neither the store nor the session token.
func (f *Flow) Authenticate(ctx context.Context, email, password string) (*api.LoginResponse, error) {
	email = strings.TrimSpace(email)
	if err := ValidateLogin(email, password); err != nil {
		return nil, err
	}

	f.logger.DebugContext(ctx, "logging in", "email", email)
	resp, err := f.backend.Login(ctx, api.LoginRequest{Email: email, Password: password})
	if err != nil {
		f.logger.InfoContext(ctx, "login failed", "email", email, "error", err)
		return nil, err
	}
	return resp, nil
}

// Establish persists the access token and dispatches login. If ctx is done
// the response is stale and nothing happens. A rejected dispatch removes the
// token again, so the store and the session file never disagree.
func (f *Flow) Establish(ctx context.Context, resp *api.LoginResponse) error {
	if err := ctx.Err(); err != nil {
		f.logger.DebugContext(ctx, "dropping stale login response", "error", err)
		return err
	}
	if resp == nil {
		return store.ErrMissingUser
	}

	if err := f.tokens.Save(resp.AccessToken); err != nil {
		return fmt.Errorf("failed to persist session token: %w", err)
	}

	if err := f.dispatch(store.Login(resp.User)); err != nil {
		f.logger.ErrorContext(ctx, "login dispatch rejected", "error", err)
		if clearErr := f.tokens.Clear(); clearErr != nil {
			f.logger.WarnContext(ctx, "failed to remove token after rejected login", "error", clearErr)
			return errors.Join(err, clearErr)
		}
		return err
	}

	f.logger.InfoContext(ctx, "signed in",
		"email", resp.User.Email,
		"token_fingerprint", session.Fingerprint(resp.AccessToken),
	)
	return nil
}

// Login authenticates and, on success, establishes the session.
func (f *Flow) Login(ctx context.Context, email, password string) (store.User, error) {
	resp, err := f.Authenticate(ctx, email, password)
	if err != nil {
		return store.User{}, err
	}
	if err := f.Establish(ctx, resp); err != nil {
		return store.User{}, err
	}
	return resp.User, nil
}

// RegisterInput is a new account. ImagePath is optional.
type RegisterInput struct {
	Email     string
	Password  string
	ImagePath string
}

// Register validates the input and calls POST /register. It returns the
// confirmation to show. Registration never signs the user in.
func (f *Flow) Register(ctx context.Context, in RegisterInput) (string, error) {
	in.Email = strings.TrimSpace(in.Email)
	if err := ValidateRegister(in.Email, in.Password, in.ImagePath); err != nil {
		return "", err
	}

	req := api.RegisterRequest{Email: in.Email, Password: in.Password}
	if in.ImagePath != "" {
		img, err := api.ImageFromFile(in.ImagePath)
		if err != nil {
			return "", &ValidationError{Field: "image", Message: err.Error()}
		}
		req.Image = img
	}

	f.logger.DebugContext(ctx, "registering", "email", in.Email, "image", req.Image != nil)
	resp, err := f.backend.Register(ctx, req)
	if err != nil {
		f.logger.InfoContext(ctx, "registration failed", "email", in.Email, "error", err)
		return "", err
	}

	if resp.Message == "" {
		return MessageRegistered, nil
	}
	return resp.Message, nil
}

// Logout clears the persisted token and dispatches logout. The store is
// signed out even when clearing fails; the clear error is still returned.
func (f *Flow) Logout() error {
	clearErr := f.tokens.Clear()
	if clearErr != nil {
		f.logger.Warn("failed to clear session token", "error", clearErr)
	}

	if err := f.dispatch(store.Logout()); err != nil {
		f.logger.Error("logout dispatch rejected", "error", err)
		return errors.Join(clearErr, err)
	}

	f.logger.Info("signed out")
	return clearErr
}

// ErrorMessage turns an error from the flow into the text shown to the user.
// Backend messages are shown verbatim; fallback is used when there is none.
func ErrorMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}

	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Message
	}

	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Message != "" {
			return apiErr.Message
		}
		return fallback
	}

	var netErr *api.NetworkError
	if errors.As(err, &netErr) {
		return MessageNetwork
	}

	return fallback
}
