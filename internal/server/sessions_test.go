package server

import (
	"context"
	"testing"
	"time"

	"applypilot/internal/errors"
	"applypilot/internal/types"
	"applypilot/internal/workflow"
)

// stubGateway satisfies workflow.Gateway for registry tests; no registry
// test issues gateway calls.
type stubGateway struct{}

func (stubGateway) ParseResume(ctx context.Context, filename string, content []byte) (types.ResumeRecord, error) {
	return types.ResumeRecord{}, nil
}

func (stubGateway) AnalyzeJobText(ctx context.Context, jobDescription string) (types.JobRecord, error) {
	return types.JobRecord{}, nil
}

func (stubGateway) AnalyzeJobFile(ctx context.Context, filename string, content []byte) (types.JobRecord, error) {
	return types.JobRecord{}, nil
}

func (stubGateway) CalculateSimilarity(ctx context.Context, resumeText, jobText string) (types.ScoreResult, error) {
	return types.ScoreResult{}, nil
}

func (stubGateway) GenerateCoverLetter(ctx context.Context, resume types.ResumeRecord, job types.JobRecord, tone string) (types.CoverLetter, error) {
	return types.CoverLetter{}, nil
}

func (stubGateway) EnhanceResume(ctx context.Context, resumeText, jobText string, recommendations *types.Recommendations) (types.EnhancementResult, error) {
	return types.EnhancementResult{}, nil
}

func newTestRegistry(t *testing.T, ttl time.Duration) *SessionRegistry {
	t.Helper()

	logger, err := errors.New("error")
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	r := NewSessionRegistry(stubGateway{}, ttl, workflow.Options{}, logger)
	t.Cleanup(r.Close)
	return r
}

func TestSessionCreateAndGet(t *testing.T) {
	r := newTestRegistry(t, time.Hour)

	orch := r.Create()
	if orch.SessionID() == "" {
		t.Fatal("expected a session ID")
	}

	got, err := r.Get(orch.SessionID())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != orch {
		t.Error("Get returned a different orchestrator")
	}
	if r.Count() != 1 {
		t.Errorf("Count() = %d, want 1", r.Count())
	}
}

func TestSessionGetUnknownID(t *testing.T) {
	r := newTestRegistry(t, time.Hour)

	_, err := r.Get("no-such-session")
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	appErr, ok := err.(*errors.AppError)
	if !ok {
		t.Fatalf("expected *errors.AppError, got %T", err)
	}
	if appErr.Code != errors.ErrCodeSessionNotFound {
		t.Errorf("error code = %v, want %v", appErr.Code, errors.ErrCodeSessionNotFound)
	}
}

func TestSessionRemove(t *testing.T) {
	r := newTestRegistry(t, time.Hour)

	orch := r.Create()
	r.Remove(orch.SessionID())

	if _, err := r.Get(orch.SessionID()); err == nil {
		t.Error("expected removed session to be gone")
	}
	if r.Count() != 0 {
		t.Errorf("Count() = %d, want 0", r.Count())
	}
}

func TestSessionIdleEviction(t *testing.T) {
	r := newTestRegistry(t, 20*time.Millisecond)

	orch := r.Create()
	time.Sleep(50 * time.Millisecond)
	r.evictIdle()

	if _, err := r.Get(orch.SessionID()); err == nil {
		t.Error("expected idle session to be evicted")
	}
	if r.Count() != 0 {
		t.Errorf("Count() = %d, want 0", r.Count())
	}
}
