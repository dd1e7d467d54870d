package server

import (
	"context"

	"applypilot/internal/gateway"
	"applypilot/internal/observability"
	"applypilot/internal/types"
	"applypilot/internal/workflow"

	"go.opentelemetry.io/otel/attribute"
)

// instrumentedGateway wraps the gateway client with per-operation tracing
// and metrics. It is what the session orchestrators see, so every call
// issued by a workflow shows up in the telemetry.
type instrumentedGateway struct {
	inner *gateway.Client
	om    *observability.ObservabilityManager
}

func newInstrumentedGateway(inner *gateway.Client, om *observability.ObservabilityManager) workflow.Gateway {
	metrics := om.GetMetrics()
	inner.SetRetryObserver(func(operation string) {
		metrics.RecordGatewayRetry(context.Background(), operation, om)
	})
	return &instrumentedGateway{inner: inner, om: om}
}

func (g *instrumentedGateway) ParseResume(ctx context.Context, filename string, content []byte) (types.ResumeRecord, error) {
	var record types.ResumeRecord
	metrics := g.om.GetMetrics()
	err := metrics.TrackGatewayOperation(ctx, gateway.OpParseResume, func(ctx context.Context) error {
		var opErr error
		record, opErr = g.inner.ParseResume(ctx, filename, content)
		return opErr
	}, g.om)
	metrics.RecordBusinessMetric(ctx, "resume_parsed", err == nil, g.om,
		attribute.Int("content_bytes", len(content)))
	return record, err
}

func (g *instrumentedGateway) AnalyzeJobText(ctx context.Context, jobDescription string) (types.JobRecord, error) {
	var record types.JobRecord
	metrics := g.om.GetMetrics()
	err := metrics.TrackGatewayOperation(ctx, gateway.OpAnalyzeJob, func(ctx context.Context) error {
		var opErr error
		record, opErr = g.inner.AnalyzeJobText(ctx, jobDescription)
		return opErr
	}, g.om)
	metrics.RecordBusinessMetric(ctx, "job_analyzed", err == nil, g.om,
		attribute.String("source", "text"))
	return record, err
}

func (g *instrumentedGateway) AnalyzeJobFile(ctx context.Context, filename string, content []byte) (types.JobRecord, error) {
	var record types.JobRecord
	metrics := g.om.GetMetrics()
	err := metrics.TrackGatewayOperation(ctx, gateway.OpAnalyzeJob, func(ctx context.Context) error {
		var opErr error
		record, opErr = g.inner.AnalyzeJobFile(ctx, filename, content)
		return opErr
	}, g.om)
	metrics.RecordBusinessMetric(ctx, "job_analyzed", err == nil, g.om,
		attribute.String("source", "file"))
	return record, err
}

func (g *instrumentedGateway) CalculateSimilarity(ctx context.Context, resumeText, jobText string) (types.ScoreResult, error) {
	var result types.ScoreResult
	metrics := g.om.GetMetrics()
	err := metrics.TrackGatewayOperation(ctx, gateway.OpSimilarity, func(ctx context.Context) error {
		var opErr error
		result, opErr = g.inner.CalculateSimilarity(ctx, resumeText, jobText)
		return opErr
	}, g.om)
	attrs := []attribute.KeyValue{}
	if err == nil {
		attrs = append(attrs, attribute.Float64("overall_score", result.OverallScore))
	}
	metrics.RecordBusinessMetric(ctx, "match_scored", err == nil, g.om, attrs...)
	return result, err
}

func (g *instrumentedGateway) GenerateCoverLetter(ctx context.Context, resume types.ResumeRecord, job types.JobRecord, tone string) (types.CoverLetter, error) {
	var letter types.CoverLetter
	metrics := g.om.GetMetrics()
	err := metrics.TrackGatewayOperation(ctx, gateway.OpCoverLetter, func(ctx context.Context) error {
		var opErr error
		letter, opErr = g.inner.GenerateCoverLetter(ctx, resume, job, tone)
		return opErr
	}, g.om)
	metrics.RecordBusinessMetric(ctx, "cover_letter_generated", err == nil, g.om,
		attribute.String("tone", tone))
	return letter, err
}

func (g *instrumentedGateway) EnhanceResume(ctx context.Context, resumeText, jobText string, recommendations *types.Recommendations) (types.EnhancementResult, error) {
	var result types.EnhancementResult
	metrics := g.om.GetMetrics()
	err := metrics.TrackGatewayOperation(ctx, gateway.OpEnhance, func(ctx context.Context) error {
		var opErr error
		result, opErr = g.inner.EnhanceResume(ctx, resumeText, jobText, recommendations)
		return opErr
	}, g.om)
	metrics.RecordBusinessMetric(ctx, "resume_enhanced", err == nil, g.om)
	return result, err
}
