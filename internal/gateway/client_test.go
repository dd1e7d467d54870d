package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"applypilot/internal/config"
	"applypilot/internal/errors"
	"applypilot/internal/types"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := &config.Config{
		Gateway: config.GatewayConfig{
			BaseURL:    srv.URL,
			Timeout:    5 * time.Second,
			MaxRetries: 0,
		},
	}
	logger, err := errors.New("error")
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}

	return NewClient(cfg, logger), srv
}

func TestCalculateSimilaritySuccess(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/calculate-similarity" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"data":{"overall_score":72.5,"skill_match_score":66.67,"experience_match_score":58,"keyword_match_score":80.25,"missing_skills":["AWS"]}}`))
	}))

	result, err := client.CalculateSimilarity(context.Background(), "resume text", "job text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.OverallScore != 72.5 {
		t.Errorf("overall score = %v, want 72.5", result.OverallScore)
	}
	if len(result.MissingSkills) != 1 || result.MissingSkills[0] != "AWS" {
		t.Errorf("missing skills = %v, want [AWS]", result.MissingSkills)
	}
}

func TestParseResumeBusinessError(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("expected multipart upload: %v", err)
		}
		if _, _, err := r.FormFile("file"); err != nil {
			t.Errorf("expected form field 'file': %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"success":false,"error":"Document is too short to be a resume (minimum 100 characters required)"}`))
	}))

	_, err := client.ParseResume(context.Background(), "resume.pdf", []byte("short"))
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	appErr, ok := err.(*errors.AppError)
	if !ok {
		t.Fatalf("expected *errors.AppError, got %T", err)
	}
	if appErr.Type != errors.ErrorTypeBusiness {
		t.Errorf("error type = %v, want business", appErr.Type)
	}
	if appErr.Message != "Document is too short to be a resume (minimum 100 characters required)" {
		t.Errorf("message not surfaced verbatim: %q", appErr.Message)
	}
	if hint := appErr.Context["category_hint"]; hint != HintDocumentTooShort {
		t.Errorf("category hint = %v, want %v", hint, HintDocumentTooShort)
	}
}

func TestAnalyzeJobTextTransportError(t *testing.T) {
	client, srv := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	_, err := client.AnalyzeJobText(context.Background(), "some job description")
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	appErr, ok := err.(*errors.AppError)
	if !ok {
		t.Fatalf("expected *errors.AppError, got %T", err)
	}
	if appErr.Type != errors.ErrorTypeTransport {
		t.Errorf("error type = %v, want transport", appErr.Type)
	}
	if appErr.Code != errors.ErrCodeGatewayUnreachable {
		t.Errorf("error code = %v, want %v", appErr.Code, errors.ErrCodeGatewayUnreachable)
	}
}

func TestNonJSONErrorResponseIsTransport(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>Bad Gateway</html>"))
	}))

	_, err := client.AnalyzeJobText(context.Background(), "some job description")
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	appErr, ok := err.(*errors.AppError)
	if !ok {
		t.Fatalf("expected *errors.AppError, got %T", err)
	}
	if appErr.Type != errors.ErrorTypeTransport {
		t.Errorf("error type = %v, want transport", appErr.Type)
	}
}

func TestGenerateCoverLetterRejectsUnknownTone(t *testing.T) {
	calls := 0
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))

	_, err := client.GenerateCoverLetter(context.Background(), types.ResumeRecord{}, types.JobRecord{}, "sarcastic")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	appErr, ok := err.(*errors.AppError)
	if !ok || appErr.Type != errors.ErrorTypeValidation {
		t.Errorf("expected validation error, got %v", err)
	}
	if calls != 0 {
		t.Errorf("expected no network calls, got %d", calls)
	}
}

func TestAnalyzeJobFileUsesFileEndpoint(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/analyze-job-file" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"data":{"job_title":"Data Engineer","required_skills":["Python","SQL"]}}`))
	}))

	record, err := client.AnalyzeJobFile(context.Background(), "job.txt", []byte("job posting text"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.JobTitle != "Data Engineer" {
		t.Errorf("job title = %q, want Data Engineer", record.JobTitle)
	}
}

func TestEnhanceResumeDecodesScores(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"data":{"enhanced_resume":"rewritten text","new_similarity_scores":{"overall_score":84.5,"skill_match_score":90,"experience_match_score":67.6,"keyword_match_score":88}}}`))
	}))

	result, err := client.EnhanceResume(context.Background(), "resume", "job", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.EnhancedResume != "rewritten text" {
		t.Errorf("enhanced resume = %q", result.EnhancedResume)
	}
	if result.NewScores.OverallScore != 84.5 {
		t.Errorf("new overall score = %v, want 84.5", result.NewScores.OverallScore)
	}
}

func TestCategoryHint(t *testing.T) {
	tests := []struct {
		name     string
		message  string
		expected string
	}{
		{
			name:     "too short",
			message:  "Document is too short to be a resume (minimum 100 characters required)",
			expected: HintDocumentTooShort,
		},
		{
			name:     "not a resume",
			message:  "Document doesn't appear to be a resume. Please upload a valid resume.",
			expected: HintNotAResume,
		},
		{
			name:     "missing contact",
			message:  "Resume must contain contact information",
			expected: HintMissingContactInfo,
		},
		{
			name:     "unsupported type",
			message:  "Unsupported file type. Only PDF and DOCX are allowed.",
			expected: HintUnsupportedFileType,
		},
		{
			name:     "unknown message",
			message:  "Something else entirely",
			expected: HintGeneric,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CategoryHint(tt.message); got != tt.expected {
				t.Errorf("CategoryHint(%q) = %v, want %v", tt.message, got, tt.expected)
			}
		})
	}
}
