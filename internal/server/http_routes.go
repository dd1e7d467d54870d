package server

import (
	"net/http"
	"strings"

	"applypilot/internal/gateway"
	"applypilot/internal/identity"
	"applypilot/internal/observability"
	"applypilot/internal/workflow"
)

// setupRoutes configures all HTTP routes and middleware. The upstream
// clients and session registry are created here so they share the
// observability manager's lifetime.
func (s *Server) setupRoutes(om *observability.ObservabilityManager) *http.ServeMux {
	s.GatewayClient = gateway.NewClient(s.AppConfig, s.Logger)
	s.IdentityClient = identity.NewClient(s.AppConfig, s.Logger)
	s.Sessions = NewSessionRegistry(
		newInstrumentedGateway(s.GatewayClient, om),
		s.AppConfig.Server.SessionTTL,
		workflow.Options{MaxFileSize: s.AppConfig.App.MaxFileSize},
		s.Logger,
	)

	mux := http.NewServeMux()

	// Middleware layers with observability
	rateLimit := s.createRateLimitMiddleware(om)
	sizeLimit := s.requestSizeLimitMiddleware()
	protected := func(h http.HandlerFunc) http.HandlerFunc {
		return rateLimit(s.authMiddleware(sizeLimit(h)))
	}

	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("GET /stats", s.statsHandler)

	// Workflow sessions
	mux.HandleFunc("POST /api/v1/sessions", protected(s.createSessionHandler(om)))
	mux.HandleFunc("GET /api/v1/sessions/{id}", protected(s.getSessionHandler))
	mux.HandleFunc("DELETE /api/v1/sessions/{id}", protected(s.deleteSessionHandler))
	mux.HandleFunc("POST /api/v1/sessions/{id}/resume", protected(s.uploadResumeHandler(om)))
	mux.HandleFunc("DELETE /api/v1/sessions/{id}/resume", protected(s.deleteResumeHandler))
	mux.HandleFunc("POST /api/v1/sessions/{id}/job", protected(s.submitJobHandler(om)))
	mux.HandleFunc("DELETE /api/v1/sessions/{id}/job", protected(s.deleteJobHandler))
	mux.HandleFunc("POST /api/v1/sessions/{id}/match", protected(s.matchHandler))
	mux.HandleFunc("POST /api/v1/sessions/{id}/cover-letter", protected(s.coverLetterHandler))
	mux.HandleFunc("POST /api/v1/sessions/{id}/enhance", protected(s.enhanceHandler))

	// Identity
	mux.HandleFunc("POST /auth/v1/signup", rateLimit(sizeLimit(s.signupHandler)))
	mux.HandleFunc("POST /auth/v1/signin", rateLimit(sizeLimit(s.signinHandler)))
	mux.HandleFunc("POST /auth/v1/resend", rateLimit(sizeLimit(s.resendHandler)))

	return mux
}

// authMiddleware provides API key authentication
func (s *Server) authMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Skip authentication if no API keys are configured
		if len(s.APIKeys) == 0 {
			next(w, r)
			return
		}

		// Check for API key in X-API-Key header
		apiKey := r.Header.Get("X-API-Key")
		if apiKey == "" {
			// Check for Bearer token in Authorization header as fallback
			authHeader := r.Header.Get("Authorization")
			if after, ok := strings.CutPrefix(authHeader, "Bearer "); ok {
				apiKey = after
			}
		}

		if apiKey == "" {
			s.Logger.Info("Authentication failed: missing API key",
				"endpoint", r.URL.Path,
				"client_ip", r.RemoteAddr)
			writeErrorResponse(w, "Missing API key", "X-API-Key header or Authorization Bearer token required", http.StatusUnauthorized)
			return
		}

		// Validate API key
		if !s.APIKeys[apiKey] {
			s.Logger.Info("Authentication failed: invalid API key",
				"endpoint", r.URL.Path,
				"client_ip", r.RemoteAddr,
				"api_key_prefix", maskAPIKey(apiKey))
			writeErrorResponse(w, "Invalid API key", "Unauthorized access", http.StatusUnauthorized)
			return
		}

		// Log successful authentication
		s.Logger.Debug("API authentication successful",
			"endpoint", r.URL.Path,
			"client_ip", r.RemoteAddr,
			"api_key_prefix", maskAPIKey(apiKey))

		next(w, r)
	}
}

// requestSizeLimitMiddleware limits the size of incoming requests
func (s *Server) requestSizeLimitMiddleware() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if s.MaxRequestSize > 0 {
				// Limit the request body size
				r.Body = http.MaxBytesReader(w, r.Body, s.MaxRequestSize)
			}

			next(w, r)
		}
	}
}

// maskAPIKey masks an API key for logging (shows only first 8 characters)
func maskAPIKey(apiKey string) string {
	if len(apiKey) <= 8 {
		return "****"
	}
	return apiKey[:8] + "****"
}
