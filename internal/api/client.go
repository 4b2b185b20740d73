// Package api is the HTTP client for the cloudstudy backend.
//
// Usage:
//
//	client := api.New("http://localhost:3001")
//	resp, err := client.Login(ctx, api.LoginRequest{Email: e, Password: p})
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/cloudstudy/internal/log"
	"github.com/felixgeelhaar/cloudstudy/internal/version"
)

const (
	// RequestIDHeader carries the per-request correlation id.
	RequestIDHeader = "X-Request-ID"

	maxResponseBytes = 1 << 20
)

// Config holds client transport settings.
type Config struct {
	MaxRetries int
	RetryDelay time.Duration
	Timeout    time.Duration
	// ValidateResponses checks 2xx bodies against the embedded contract.
	ValidateResponses bool
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *Config {
	return &Config{
		MaxRetries:        3,
		RetryDelay:        time.Second,
		Timeout:           30 * time.Second,
		ValidateResponses: true,
	}
}

// Client talks to the backend REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	maxRetries int
	retryDelay time.Duration
	contract   *Contract
	userAgent  string
	logger     *log.Logger
}

// New creates a client with the default configuration.
func New(baseURL string) *Client {
	return NewWithConfig(baseURL, nil)
}

// NewWithConfig creates a client. A nil cfg means DefaultConfig.
func NewWithConfig(baseURL string, cfg *Config) *Client {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		userAgent:  version.GetInfo().UserAgent(),
		logger:     log.Discard(),
	}

	if cfg.ValidateResponses {
		// The embedded document is covered by tests; a load failure only
		// disables validation.
		if contract, err := DefaultContract(); err == nil {
			c.contract = contract
		}
	}
	return c
}

// WithLogger sets the logger and returns c.
func (c *Client) WithLogger(l *log.Logger) *Client {
	c.logger = l
	return c
}

// WithContract replaces the response contract. nil disables validation.
func (c *Client) WithContract(contract *Contract) *Client {
	c.contract = contract
	return c
}

// BaseURL returns the backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// request is a fully buffered request body so it can be replayed on retry.
type request struct {
	method      string
	path        string
	contentType string
	body        []byte
	// idempotent requests are retried; all others get exactly one attempt.
	idempotent bool
}

// response is a buffered 2xx response.
type response struct {
	status    int
	body      []byte
	requestID string
}

// errorResponse is the backend's error body.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// do performs req. Idempotent requests are retried on network errors and
// 5xx responses; 4xx responses are returned immediately.
func (c *Client) do(ctx context.Context, req request) (*response, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			c.logger.DebugContext(ctx, "retrying request",
				"method", req.method, "path", req.path, "attempt", attempt, "error", lastErr)

			select {
			case <-ctx.Done():
				return nil, &NetworkError{Method: req.method, Path: req.path, Err: ctx.Err()}
			case <-time.After(c.retryDelay * time.Duration(attempt)):
			}
		}

		resp, err := c.attempt(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, &NetworkError{Method: req.method, Path: req.path, Err: ctx.Err()}
		}
		if !req.idempotent || !retryable(err) {
			return nil, err
		}
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

func retryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	var netErr *NetworkError
	return errors.As(err, &netErr)
}

func (c *Client) attempt(ctx context.Context, req request) (*response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.baseURL+req.path, bytes.NewReader(req.body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	requestID := uuid.New().String()
	httpReq.Header.Set("Content-Type", req.contentType)
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.Header.Set(RequestIDHeader, requestID)

	start := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &NetworkError{Method: req.method, Path: req.path, Err: err}
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		return nil, &NetworkError{Method: req.method, Path: req.path, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if id := httpResp.Header.Get(RequestIDHeader); id != "" {
		requestID = id
	}

	c.logger.DebugContext(log.WithRequestID(ctx, requestID), "backend request",
		"method", req.method,
		"path", req.path,
		"status", httpResp.StatusCode,
		"duration", time.Since(start),
	)

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, parseError(httpResp.StatusCode, requestID, body)
	}

	return &response{status: httpResp.StatusCode, body: body, requestID: requestID}, nil
}

func parseError(status int, requestID string, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status, RequestID: requestID}

	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err == nil {
		switch {
		case errResp.Error != "":
			apiErr.Message = errResp.Error
		case errResp.Message != "":
			apiErr.Message = errResp.Message
		}
	}
	return apiErr
}

// decode validates a 2xx body against the contract, then unmarshals it into
// target.
func (c *Client) decode(req request, resp *response, target any) error {
	if c.contract != nil {
		var doc any
		if err := json.Unmarshal(resp.body, &doc); err != nil {
			return &ContractError{Method: req.method, Path: req.path, StatusCode: resp.status, Err: err}
		}
		if err := c.contract.ValidateResponse(req.method, req.path, resp.status, doc); err != nil {
			return &ContractError{Method: req.method, Path: req.path, StatusCode: resp.status, Err: err}
		}
	}

	if err := json.Unmarshal(resp.body, target); err != nil {
		return &ContractError{
			Method:     req.method,
			Path:       req.path,
			StatusCode: resp.status,
			Err:        fmt.Errorf("failed to decode response: %w", err),
		}
	}
	return nil
}
