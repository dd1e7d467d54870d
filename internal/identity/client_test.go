package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"applypilot/internal/config"
	"applypilot/internal/errors"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *int64) {
	t.Helper()

	var requests int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&requests, 1)
		handler.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)

	cfg := &config.Config{
		Identity: config.IdentityConfig{
			BaseURL:           srv.URL,
			ServiceKey:        "test-key",
			Timeout:           5 * time.Second,
			MinPasswordLength: 8,
		},
	}
	logger, err := errors.New("error")
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}

	return NewClient(cfg, logger), &requests
}

func TestSignUpShortPasswordIsLocal(t *testing.T) {
	client, requests := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	_, err := client.SignUp(context.Background(), "user@example.com", "short")
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	appErr, ok := err.(*errors.AppError)
	if !ok {
		t.Fatalf("expected *errors.AppError, got %T", err)
	}
	if appErr.Code != errors.ErrCodePasswordTooShort {
		t.Errorf("error code = %v, want %v", appErr.Code, errors.ErrCodePasswordTooShort)
	}
	if got := atomic.LoadInt64(requests); got != 0 {
		t.Errorf("expected zero provider requests, got %d", got)
	}
}

func TestSignInSuccess(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/v1/token" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if grant := r.URL.Query().Get("grant_type"); grant != "password" {
			t.Errorf("grant_type = %q, want password", grant)
		}
		if key := r.Header.Get("apikey"); key != "test-key" {
			t.Errorf("apikey header = %q, want test-key", key)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok","refresh_token":"ref","token_type":"bearer","expires_in":3600,"user":{"id":"u1","email":"user@example.com"}}`))
	}))

	session, err := client.SignIn(context.Background(), "user@example.com", "longenough")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.AccessToken != "tok" {
		t.Errorf("access token = %q, want tok", session.AccessToken)
	}
	if session.User.Email != "user@example.com" {
		t.Errorf("user email = %q", session.User.Email)
	}
}

func TestSignInUnconfirmedEmail(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Email not confirmed"}`))
	}))

	_, err := client.SignIn(context.Background(), "user@example.com", "longenough")
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	appErr, ok := err.(*errors.AppError)
	if !ok {
		t.Fatalf("expected *errors.AppError, got %T", err)
	}
	if appErr.Code != errors.ErrCodeEmailNotConfirmed {
		t.Errorf("error code = %v, want %v", appErr.Code, errors.ErrCodeEmailNotConfirmed)
	}
	if appErr.Context["remediation"] == "" {
		t.Error("expected a remediation hint for unconfirmed email")
	}
}

func TestSignInWrongCredentials(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error_description":"Invalid login credentials"}`))
	}))

	_, err := client.SignIn(context.Background(), "user@example.com", "longenough")
	appErr, ok := err.(*errors.AppError)
	if !ok {
		t.Fatalf("expected *errors.AppError, got %T", err)
	}
	if appErr.Code != errors.ErrCodeInvalidCredentials {
		t.Errorf("error code = %v, want %v", appErr.Code, errors.ErrCodeInvalidCredentials)
	}
}

func TestSignUpDuplicateEmail(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/v1/signup" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"msg":"User already registered"}`))
	}))

	_, err := client.SignUp(context.Background(), "user@example.com", "longenough")
	appErr, ok := err.(*errors.AppError)
	if !ok {
		t.Fatalf("expected *errors.AppError, got %T", err)
	}
	if appErr.Code != errors.ErrCodeEmailRegistered {
		t.Errorf("error code = %v, want %v", appErr.Code, errors.ErrCodeEmailRegistered)
	}
	if appErr.Message != "User already registered" {
		t.Errorf("provider message not surfaced verbatim: %q", appErr.Message)
	}
}

func TestResendVerification(t *testing.T) {
	client, requests := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/v1/resend" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))

	if err := client.ResendVerification(context.Background(), "user@example.com"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := atomic.LoadInt64(requests); got != 1 {
		t.Errorf("expected one provider request, got %d", got)
	}
}

func TestUnreachableProviderIsTransport(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	client.baseURL = "http://127.0.0.1:1"

	_, err := client.SignIn(context.Background(), "user@example.com", "longenough")
	appErr, ok := err.(*errors.AppError)
	if !ok {
		t.Fatalf("expected *errors.AppError, got %T", err)
	}
	if appErr.Type != errors.ErrorTypeTransport {
		t.Errorf("error type = %v, want transport", appErr.Type)
	}
}
