// Package gateway implements the HTTP client for the remote analysis
// service that performs resume parsing, job analysis, similarity scoring,
// cover letter generation and resume enhancement. Every failure is
// normalized into the service's {success:false, error} semantics before
// callers see it: transport problems become transport errors, gateway
// rejections become business errors carrying the service's message.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"time"

	"applypilot/internal/config"
	"applypilot/internal/errors"
	"applypilot/internal/types"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Operation names used for breakers, metrics and log fields
const (
	OpParseResume = "parse_resume"
	OpAnalyzeJob  = "analyze_job"
	OpSimilarity  = "calculate_similarity"
	OpCoverLetter = "generate_cover_letter"
	OpEnhance     = "enhance_resume"
)

// Responses larger than this are treated as malformed
const maxResponseSize = 10 * 1024 * 1024

// envelope is the gateway's uniform response shape
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// operation holds the resolved per-operation settings
type operation struct {
	name       string
	path       string
	timeout    time.Duration
	maxRetries int
	breaker    *OperationBreaker
}

// Client talks to the remote analysis gateway
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *errors.Logger
	ops        map[string]*operation
	onRetry    func(operation string)
}

// SetRetryObserver installs a callback invoked once per retry attempt.
// Must be called before the client is shared across goroutines.
func (c *Client) SetRetryObserver(fn func(operation string)) {
	c.onRetry = fn
}

// NewClient creates a gateway client from configuration
func NewClient(cfg *config.Config, logger *errors.Logger) *Client {
	buildOp := func(name, path string, opCfg config.GatewayOperationConfig) *operation {
		return &operation{
			name:       name,
			path:       path,
			timeout:    *opCfg.Timeout,
			maxRetries: *opCfg.MaxRetries,
			breaker:    NewOperationBreaker(name, opCfg.CircuitBreaker, logger),
		}
	}

	ops := map[string]*operation{
		OpParseResume: buildOp(OpParseResume, "/parse-resume", cfg.GetParseResumeConfig()),
		OpAnalyzeJob:  buildOp(OpAnalyzeJob, "/analyze-job", cfg.GetAnalyzeJobConfig()),
		OpSimilarity:  buildOp(OpSimilarity, "/calculate-similarity", cfg.GetSimilarityConfig()),
		OpCoverLetter: buildOp(OpCoverLetter, "/generate-cover-letter", cfg.GetCoverLetterConfig()),
		OpEnhance:     buildOp(OpEnhance, "/enhance-resume", cfg.GetEnhanceConfig()),
	}

	return &Client{
		baseURL: cfg.Gateway.BaseURL,
		apiKey:  cfg.Gateway.APIKey,
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: logger,
		ops:    ops,
	}
}

// ParseResume submits a resume document as a single-part upload and returns
// the structured record extracted from it
func (c *Client) ParseResume(ctx context.Context, filename string, content []byte) (types.ResumeRecord, error) {
	op := c.ops[OpParseResume]

	raw, err := c.execute(ctx, op, func(reqCtx context.Context) (*http.Request, error) {
		return c.newMultipartRequest(reqCtx, op.path, filename, content)
	})
	if err != nil {
		return types.ResumeRecord{}, err
	}

	var record types.ResumeRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return types.ResumeRecord{}, c.malformedResponse(op, err)
	}
	return record, nil
}

// AnalyzeJobText submits pasted job description text for analysis
func (c *Client) AnalyzeJobText(ctx context.Context, jobDescription string) (types.JobRecord, error) {
	op := c.ops[OpAnalyzeJob]

	payload := map[string]string{"job_description": jobDescription}
	raw, err := c.execute(ctx, op, func(reqCtx context.Context) (*http.Request, error) {
		return c.newJSONRequest(reqCtx, op.path, payload)
	})
	if err != nil {
		return types.JobRecord{}, err
	}

	var record types.JobRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return types.JobRecord{}, c.malformedResponse(op, err)
	}
	return record, nil
}

// AnalyzeJobFile submits an uploaded job description document for analysis
func (c *Client) AnalyzeJobFile(ctx context.Context, filename string, content []byte) (types.JobRecord, error) {
	op := c.ops[OpAnalyzeJob]

	raw, err := c.execute(ctx, op, func(reqCtx context.Context) (*http.Request, error) {
		return c.newMultipartRequest(reqCtx, op.path+"-file", filename, content)
	})
	if err != nil {
		return types.JobRecord{}, err
	}

	var record types.JobRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return types.JobRecord{}, c.malformedResponse(op, err)
	}
	return record, nil
}

// CalculateSimilarity scores a resume text against a job text
func (c *Client) CalculateSimilarity(ctx context.Context, resumeText, jobText string) (types.ScoreResult, error) {
	op := c.ops[OpSimilarity]

	payload := map[string]string{
		"resume_text": resumeText,
		"job_text":    jobText,
	}
	raw, err := c.execute(ctx, op, func(reqCtx context.Context) (*http.Request, error) {
		return c.newJSONRequest(reqCtx, op.path, payload)
	})
	if err != nil {
		return types.ScoreResult{}, err
	}

	var result types.ScoreResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return types.ScoreResult{}, c.malformedResponse(op, err)
	}
	return result, nil
}

// GenerateCoverLetter produces a cover letter for the given records and tone
func (c *Client) GenerateCoverLetter(ctx context.Context, resume types.ResumeRecord, job types.JobRecord, tone string) (types.CoverLetter, error) {
	op := c.ops[OpCoverLetter]

	if !types.ValidTone(tone) {
		return types.CoverLetter{}, errors.NewValidationError(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("Unsupported tone: %s", tone), nil)
	}

	payload := map[string]any{
		"resume_data": resume,
		"job_data":    job,
		"tone":        tone,
	}
	raw, err := c.execute(ctx, op, func(reqCtx context.Context) (*http.Request, error) {
		return c.newJSONRequest(reqCtx, op.path, payload)
	})
	if err != nil {
		return types.CoverLetter{}, err
	}

	var letter types.CoverLetter
	if err := json.Unmarshal(raw, &letter); err != nil {
		return types.CoverLetter{}, c.malformedResponse(op, err)
	}
	letter.Tone = tone
	return letter, nil
}

// EnhanceResume requests a rewrite of the resume targeted at the job,
// returning the rewritten text and its fresh scores
func (c *Client) EnhanceResume(ctx context.Context, resumeText, jobText string, recommendations *types.Recommendations) (types.EnhancementResult, error) {
	op := c.ops[OpEnhance]

	payload := map[string]any{
		"resume_text":     resumeText,
		"job_text":        jobText,
		"recommendations": recommendations,
	}
	raw, err := c.execute(ctx, op, func(reqCtx context.Context) (*http.Request, error) {
		return c.newJSONRequest(reqCtx, op.path, payload)
	})
	if err != nil {
		return types.EnhancementResult{}, err
	}

	var result types.EnhancementResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return types.EnhancementResult{}, c.malformedResponse(op, err)
	}
	return result, nil
}

// CheckHealth probes the gateway's health endpoint
func (c *Client) CheckHealth(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return errors.NewInternalError(errors.ErrCodeInvalidRequest,
			"Failed to build gateway health request", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.NewTransportError(errors.ErrCodeGatewayUnreachable,
			"Analysis service is unreachable", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Warn("Failed to close gateway health response body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return errors.NewTransportError(errors.ErrCodeGatewayUnreachable,
			fmt.Sprintf("Analysis service health check returned status %d", resp.StatusCode), nil)
	}
	return nil
}

// GetStats returns per-operation circuit breaker statistics
func (c *Client) GetStats() map[string]any {
	stats := make(map[string]any, len(c.ops))
	for name, op := range c.ops {
		stats[name] = op.breaker.GetStats()
	}
	return stats
}

// IsHealthy reports whether every operation breaker is closed
func (c *Client) IsHealthy() bool {
	for _, op := range c.ops {
		if !op.breaker.IsHealthy() {
			return false
		}
	}
	return true
}

// execute runs one gateway operation with circuit breaker protection and
// retry with exponential backoff. Only transport failures are retried;
// gateway rejections are final.
func (c *Client) execute(ctx context.Context, op *operation, newRequest func(ctx context.Context) (*http.Request, error)) (json.RawMessage, error) {
	var lastErr error

	for attempt := 0; attempt <= op.maxRetries; attempt++ {
		if attempt > 0 {
			if c.onRetry != nil {
				c.onRetry(op.name)
			}
			c.logger.Debug("Retrying gateway operation",
				"operation", op.name,
				"attempt", attempt,
				"max_retries", op.maxRetries)

			baseDelay := time.Duration(math.Pow(2, float64(attempt-1))) * time.Second
			select {
			case <-ctx.Done():
				return nil, errors.NewTransportError(errors.ErrCodeGatewayTimeout,
					"Request cancelled while waiting to retry", ctx.Err()).WithContext("operation", op.name)
			case <-time.After(baseDelay):
			}
		}

		raw, err := op.breaker.Execute(func() (json.RawMessage, error) {
			return c.doRequest(ctx, op, newRequest)
		})
		if err == nil {
			if attempt > 0 {
				c.logger.Info("Gateway operation succeeded after retry",
					"operation", op.name,
					"successful_attempt", attempt+1)
			}
			return raw, nil
		}

		if stderrors.Is(err, gobreaker.ErrOpenState) || stderrors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, errors.NewTransportError(errors.ErrCodeCircuitOpen,
				"Analysis service is temporarily unavailable", err).WithContext("operation", op.name)
		}

		lastErr = err
		if !isRetryable(err) {
			return nil, err
		}
	}

	c.logger.LogError(lastErr, "Gateway operation failed after all retry attempts",
		"operation", op.name,
		"total_attempts", op.maxRetries+1)
	return nil, lastErr
}

// doRequest performs a single HTTP exchange and normalizes the outcome
func (c *Client) doRequest(ctx context.Context, op *operation, newRequest func(ctx context.Context) (*http.Request, error)) (json.RawMessage, error) {
	reqCtx, cancel := context.WithTimeout(ctx, op.timeout)
	defer cancel()

	req, err := newRequest(reqCtx)
	if err != nil {
		return nil, errors.NewInternalError(errors.ErrCodeInvalidRequest,
			"Failed to build gateway request", err).WithContext("operation", op.name)
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if reqCtx.Err() == context.DeadlineExceeded {
			return nil, errors.NewTransportError(errors.ErrCodeGatewayTimeout,
				fmt.Sprintf("Analysis service did not respond within %s", op.timeout), err).
				WithContext("operation", op.name)
		}
		return nil, errors.NewTransportError(errors.ErrCodeGatewayUnreachable,
			"Analysis service is unreachable", err).WithContext("operation", op.name)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Warn("Failed to close gateway response body",
				"operation", op.name, "error", err)
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, errors.NewTransportError(errors.ErrCodeGatewayUnreachable,
			"Failed to read analysis service response", err).WithContext("operation", op.name)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, errors.NewTransportError(errors.ErrCodeGatewayUnreachable,
				fmt.Sprintf("Analysis service returned status %d", resp.StatusCode), err).
				WithContext("operation", op.name)
		}
		return nil, c.malformedResponse(op, err)
	}

	if !env.Success {
		message := env.Error
		if message == "" {
			message = "Analysis service rejected the request"
		}
		return nil, errors.NewBusinessError(errors.ErrCodeGatewayRejected, message, nil).
			WithContext("operation", op.name).
			WithContext("status_code", resp.StatusCode).
			WithContext("category_hint", CategoryHint(message))
	}

	return env.Data, nil
}

// newJSONRequest builds a JSON POST request against the gateway
func (c *Client) newJSONRequest(ctx context.Context, path string, payload any) (*http.Request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// newMultipartRequest builds a single-part file upload request
func (c *Client) newMultipartRequest(ctx context.Context, path, filename string, content []byte) (*http.Request, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(content); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req, nil
}

func (c *Client) malformedResponse(op *operation, cause error) *errors.AppError {
	return errors.NewTransportError(errors.ErrCodeGatewayUnreachable,
		"Analysis service returned a malformed response", cause).WithContext("operation", op.name)
}

// isRetryable determines whether an error should trigger a retry
func isRetryable(err error) bool {
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return appErr.Type == errors.ErrorTypeTransport && appErr.Code != errors.ErrCodeCircuitOpen
	}
	return false
}
