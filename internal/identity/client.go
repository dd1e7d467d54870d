// Package identity talks to the external identity provider used for
// account sign-up and sign-in. Provider error strings are mapped onto
// structured auth errors so callers can offer the right remediation.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"applypilot/internal/config"
	"applypilot/internal/errors"
)

const maxResponseSize = 1 << 20 // 1MB

// Session is the credential set returned by a successful sign-in
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	User         User   `json:"user"`
}

// User identifies the authenticated account
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Client is an HTTP client for the identity provider
type Client struct {
	baseURL     string
	serviceKey  string
	minPassword int
	httpClient  *http.Client
	logger      *errors.Logger
}

// NewClient creates an identity client from configuration
func NewClient(cfg *config.Config, logger *errors.Logger) *Client {
	timeout := cfg.Identity.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	minPassword := cfg.Identity.MinPasswordLength
	if minPassword <= 0 {
		minPassword = 8
	}
	return &Client{
		baseURL:     strings.TrimSuffix(cfg.Identity.BaseURL, "/"),
		serviceKey:  cfg.Identity.ServiceKey,
		minPassword: minPassword,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: logger,
	}
}

// SignUp registers a new account. Password length is checked locally so
// an obviously invalid password never reaches the provider.
func (c *Client) SignUp(ctx context.Context, email, password string) (*Session, error) {
	if err := c.validateCredentials(email, password); err != nil {
		return nil, err
	}

	session, err := c.post(ctx, "/auth/v1/signup", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("Account registered", "email", email)
	return session, nil
}

// SignIn authenticates an existing account
func (c *Client) SignIn(ctx context.Context, email, password string) (*Session, error) {
	if err := c.validateCredentials(email, password); err != nil {
		return nil, err
	}

	session, err := c.post(ctx, "/auth/v1/token?grant_type=password", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("Account signed in", "email", email)
	return session, nil
}

// ResendVerification asks the provider to re-send the confirmation email
// for an unconfirmed sign-up
func (c *Client) ResendVerification(ctx context.Context, email string) error {
	if strings.TrimSpace(email) == "" {
		return errors.NewValidationError(errors.ErrCodeEmptyInput,
			"Email address is required", nil)
	}

	_, err := c.post(ctx, "/auth/v1/resend", map[string]string{
		"type":  "signup",
		"email": email,
	})
	if err != nil {
		return err
	}

	c.logger.Info("Verification email re-sent", "email", email)
	return nil
}

func (c *Client) validateCredentials(email, password string) error {
	if strings.TrimSpace(email) == "" {
		return errors.NewValidationError(errors.ErrCodeEmptyInput,
			"Email address is required", nil)
	}
	if len(password) < c.minPassword {
		return errors.NewAuthError(errors.ErrCodePasswordTooShort,
			fmt.Sprintf("Password must be at least %d characters", c.minPassword), nil).
			WithContext("min_length", c.minPassword)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, payload map[string]string) (*Session, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.NewInternalError(errors.ErrCodeInvalidRequest,
			"Failed to encode identity request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, errors.NewInternalError(errors.ErrCodeInvalidRequest,
			"Failed to build identity request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.serviceKey != "" {
		req.Header.Set("apikey", c.serviceKey)
		req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.NewTransportError(errors.ErrCodeGatewayUnreachable,
			"Identity provider is unreachable", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, errors.NewTransportError(errors.ErrCodeGatewayUnreachable,
			"Failed to read identity response", err)
	}

	if resp.StatusCode >= 400 {
		return nil, mapProviderError(resp.StatusCode, data)
	}

	var session Session
	if len(data) > 0 {
		if err := json.Unmarshal(data, &session); err != nil {
			return nil, errors.NewTransportError(errors.ErrCodeInvalidFormat,
				"Identity provider returned an unparsable response", err)
		}
	}
	return &session, nil
}

// providerError covers the error shapes the provider emits across its
// endpoint versions
type providerError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
}

func (p providerError) text() string {
	for _, s := range []string{p.ErrorDescription, p.Msg, p.Message, p.Error} {
		if s != "" {
			return s
		}
	}
	return ""
}

// mapProviderError classifies a provider rejection by its message text.
// Each mapped code implies a distinct remediation: resend the
// verification email, retry the credentials, or switch to sign-in.
func mapProviderError(status int, body []byte) *AuthFailure {
	var perr providerError
	_ = json.Unmarshal(body, &perr)

	message := perr.text()
	if message == "" {
		message = fmt.Sprintf("Identity provider rejected the request (HTTP %d)", status)
	}

	lower := strings.ToLower(message)
	switch {
	case strings.Contains(lower, "email not confirmed"):
		return newAuthFailure(errors.ErrCodeEmailNotConfirmed, message,
			"Confirm your email address, or request a new verification email", status)
	case strings.Contains(lower, "invalid login credentials"):
		return newAuthFailure(errors.ErrCodeInvalidCredentials, message,
			"Check the email and password and try again", status)
	case strings.Contains(lower, "already registered"), strings.Contains(lower, "already been registered"):
		return newAuthFailure(errors.ErrCodeEmailRegistered, message,
			"An account with this email exists; sign in instead", status)
	default:
		return newAuthFailure(errors.ErrCodeInvalidRequest, message, "", status)
	}
}

// AuthFailure is an AppError alias kept for readability at call sites
type AuthFailure = errors.AppError

func newAuthFailure(code, message, remediation string, status int) *AuthFailure {
	failure := errors.NewAuthError(code, message, nil).
		WithContext("status_code", status)
	if remediation != "" {
		failure = failure.WithContext("remediation", remediation)
	}
	return failure
}
