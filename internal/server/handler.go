package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"applypilot/internal/errors"
	"applypilot/internal/observability"
	"applypilot/internal/workflow"

	"go.opentelemetry.io/otel/attribute"
)

// createSessionHandler starts a new workflow session
func (s *Server) createSessionHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		tracer := om.Tracer("applypilot.api")
		ctx, span := tracer.Start(ctx, "api.session.create")
		defer span.End()

		orch := s.Sessions.Create()

		om.GetMetrics().RecordBusinessMetric(ctx, "session_created", true, om)
		span.SetAttributes(attribute.String("session.id", orch.SessionID()))

		writeJSON(w, http.StatusCreated, SessionResponse{SessionID: orch.SessionID()})
	}
}

// getSessionHandler returns the current workflow state snapshot
func (s *Server) getSessionHandler(w http.ResponseWriter, r *http.Request) {
	orch, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, orch.Snapshot())
}

// deleteSessionHandler ends a workflow session
func (s *Server) deleteSessionHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.Sessions.Get(id); err != nil {
		writeAppError(w, err)
		return
	}
	s.Sessions.Remove(id)
	w.WriteHeader(http.StatusNoContent)
}

// uploadResumeHandler accepts a resume document for parsing
func (s *Server) uploadResumeHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tracer := om.Tracer("applypilot.api")
		_, span := tracer.Start(r.Context(), "api.resume.upload")
		defer span.End()

		orch, ok := s.session(w, r)
		if !ok {
			return
		}

		filename, content, err := readUploadedFile(r)
		if err != nil {
			span.RecordError(err)
			writeAppError(w, err)
			return
		}

		span.SetAttributes(
			attribute.String("upload.filename", filename),
			attribute.Int("upload.bytes", len(content)),
		)

		if err := orch.SubmitResume(filename, content); err != nil {
			span.RecordError(err)
			writeAppError(w, err)
			return
		}

		writeJSON(w, http.StatusAccepted, orch.Snapshot())
	}
}

// deleteResumeHandler removes the uploaded resume and its derived results
func (s *Server) deleteResumeHandler(w http.ResponseWriter, r *http.Request) {
	orch, ok := s.session(w, r)
	if !ok {
		return
	}
	orch.RemoveResume()
	writeJSON(w, http.StatusOK, orch.Snapshot())
}

// submitJobHandler accepts a job description, either as pasted text
// (application/json) or as an uploaded document (multipart form)
func (s *Server) submitJobHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tracer := om.Tracer("applypilot.api")
		_, span := tracer.Start(r.Context(), "api.job.submit")
		defer span.End()

		orch, ok := s.session(w, r)
		if !ok {
			return
		}

		var err error
		if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
			var filename string
			var content []byte
			filename, content, err = readUploadedFile(r)
			if err == nil {
				span.SetAttributes(attribute.String("job.source", "file"))
				err = orch.SubmitJobFile(filename, content)
			}
		} else {
			var req JobTextRequest
			if perr := parseJSONRequest(r, &req); perr != nil {
				span.RecordError(perr)
				writeErrorResponse(w, "Invalid request body", perr.Error(), http.StatusBadRequest)
				return
			}
			span.SetAttributes(attribute.String("job.source", "text"))
			err = orch.SubmitJobText(req.Text)
		}

		if err != nil {
			span.RecordError(err)
			writeAppError(w, err)
			return
		}

		writeJSON(w, http.StatusAccepted, orch.Snapshot())
	}
}

// deleteJobHandler removes the job record and its derived results
func (s *Server) deleteJobHandler(w http.ResponseWriter, r *http.Request) {
	orch, ok := s.session(w, r)
	if !ok {
		return
	}
	orch.RemoveJob()
	writeJSON(w, http.StatusOK, orch.Snapshot())
}

// matchHandler triggers similarity scoring for the session
func (s *Server) matchHandler(w http.ResponseWriter, r *http.Request) {
	orch, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := orch.RunMatching(); err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, orch.Snapshot())
}

// coverLetterHandler requests cover letter generation in the given tone
func (s *Server) coverLetterHandler(w http.ResponseWriter, r *http.Request) {
	orch, ok := s.session(w, r)
	if !ok {
		return
	}

	var req CoverLetterRequest
	if err := parseJSONRequest(r, &req); err != nil {
		writeErrorResponse(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}

	if err := orch.GenerateCoverLetter(req.Tone); err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, orch.Snapshot())
}

// enhanceHandler requests a score-guided resume rewrite
func (s *Server) enhanceHandler(w http.ResponseWriter, r *http.Request) {
	orch, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := orch.EnhanceResume(); err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, orch.Snapshot())
}

// signupHandler registers a new account with the identity provider
func (s *Server) signupHandler(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := parseJSONRequest(r, &req); err != nil {
		writeErrorResponse(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}

	session, err := s.IdentityClient.SignUp(r.Context(), req.Email, req.Password)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

// signinHandler authenticates an existing account
func (s *Server) signinHandler(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := parseJSONRequest(r, &req); err != nil {
		writeErrorResponse(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}

	session, err := s.IdentityClient.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// resendHandler re-sends the verification email for an unconfirmed account
func (s *Server) resendHandler(w http.ResponseWriter, r *http.Request) {
	var req ResendRequest
	if err := parseJSONRequest(r, &req); err != nil {
		writeErrorResponse(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.IdentityClient.ResendVerification(r.Context(), req.Email); err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

// session resolves the {id} path value to a live orchestrator, writing a
// not-found response when the session is unknown
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*workflow.Orchestrator, bool) {
	orch, err := s.Sessions.Get(r.PathValue("id"))
	if err != nil {
		writeAppError(w, err)
		return nil, false
	}
	return orch, true
}

// readUploadedFile extracts the single "file" part from a multipart upload
func readUploadedFile(r *http.Request) (string, []byte, error) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return "", nil, errors.NewValidationError(errors.ErrCodeInvalidRequest,
			"Expected a multipart form upload with a 'file' field", err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return "", nil, errors.NewValidationError(errors.ErrCodeInvalidRequest,
			"Missing 'file' field in upload", err)
	}
	defer func() { _ = file.Close() }()

	content, err := io.ReadAll(file)
	if err != nil {
		return "", nil, errors.NewIOError(errors.ErrCodeFileNotReadable,
			"Failed to read uploaded file", err)
	}
	return header.Filename, content, nil
}

// createRateLimitMiddleware adds observability to rate limiting
func (s *Server) createRateLimitMiddleware(om *observability.ObservabilityManager) func(http.HandlerFunc) http.HandlerFunc {
	originalMiddleware := s.rateLimitMiddleware()

	return func(next http.HandlerFunc) http.HandlerFunc {
		return originalMiddleware(func(w http.ResponseWriter, r *http.Request) {
			// Wrap the ResponseWriter to detect rate limit responses
			wrapper := &responseWrapper{ResponseWriter: w, statusCode: 200}

			next(wrapper, r)

			// If rate limited, record metric
			if wrapper.statusCode == http.StatusTooManyRequests {
				metrics := om.GetMetrics()
				metrics.RecordBusinessMetric(r.Context(), "rate_limit_hit", true, om,
					attribute.String("endpoint", r.URL.Path),
					attribute.String("method", r.Method))
			}
		})
	}
}

// responseWrapper wraps http.ResponseWriter to capture status code
type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWrapper) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// writeJSON writes a JSON response with the given status
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// writeAppError maps a structured error to an HTTP status and body
func writeAppError(w http.ResponseWriter, err error) {
	appErr, ok := err.(*errors.AppError)
	if !ok {
		writeErrorResponse(w, "Internal error", err.Error(), http.StatusInternalServerError)
		return
	}

	status := http.StatusInternalServerError
	switch appErr.Type {
	case errors.ErrorTypeValidation:
		status = http.StatusBadRequest
		if appErr.Code == errors.ErrCodeSessionNotFound {
			status = http.StatusNotFound
		}
	case errors.ErrorTypeAuth:
		status = http.StatusUnauthorized
		switch appErr.Code {
		case errors.ErrCodeEmailRegistered:
			status = http.StatusConflict
		case errors.ErrCodePasswordTooShort:
			status = http.StatusBadRequest
		}
	case errors.ErrorTypeBusiness:
		status = http.StatusUnprocessableEntity
	case errors.ErrorTypeTransport:
		switch appErr.Code {
		case errors.ErrCodeGatewayTimeout:
			status = http.StatusGatewayTimeout
		case errors.ErrCodeCircuitOpen:
			status = http.StatusServiceUnavailable
		default:
			status = http.StatusBadGateway
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error:   string(appErr.Type),
		Message: appErr.Message,
		Code:    appErr.Code,
		Context: appErr.Context,
	})
}
