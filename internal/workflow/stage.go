// Package workflow implements the application-intake workflow: resume
// ingestion, job ingestion, similarity scoring and document generation,
// sequenced by a single orchestrator per session. Stage state only ever
// changes inside the orchestrator; presentation code reads snapshots.
package workflow

import (
	"applypilot/internal/errors"
)

// StageStatus is the tagged status of one workflow stage
type StageStatus string

const (
	StageEmpty   StageStatus = "empty"
	StageLoading StageStatus = "loading"
	StageReady   StageStatus = "ready"
	StageError   StageStatus = "error"
)

// Phase is the workflow area currently active for presentation
type Phase string

const (
	PhaseIntake     Phase = "intake"
	PhaseAnalysis   Phase = "analysis"
	PhaseGeneration Phase = "generation"
)

// stage holds one stage's tagged state. Data is only meaningful when
// Status is ready, Cause only when Status is error. seq is the monotonic
// request counter used to discard stale completions.
type stage[T any] struct {
	Status StageStatus
	Data   T
	Cause  *errors.AppError
	seq    uint64
}

// isValidTransition reports whether a stage may move between statuses.
// Loading to loading is a superseding re-submission; any state may be
// reset to empty by removal. There is no terminal state.
func isValidTransition(from, to StageStatus) bool {
	if to == StageEmpty {
		return true
	}
	switch from {
	case StageEmpty:
		return to == StageLoading
	case StageLoading:
		return to == StageLoading || to == StageReady || to == StageError
	case StageReady, StageError:
		return to == StageLoading
	default:
		return false
	}
}

// beginRequest transitions the stage to loading and returns the sequence
// number identifying the newly issued request
func (s *stage[T]) beginRequest() uint64 {
	if isValidTransition(s.Status, StageLoading) {
		s.Status = StageLoading
		s.Cause = nil
	}
	s.seq++
	return s.seq
}

// isCurrent reports whether a completion with the given sequence number
// belongs to the most recently issued request
func (s *stage[T]) isCurrent(seq uint64) bool {
	return s.seq == seq
}

// complete stores a successful result for the stage
func (s *stage[T]) complete(data T) {
	if !isValidTransition(s.Status, StageReady) {
		return
	}
	s.Status = StageReady
	s.Data = data
	s.Cause = nil
}

// fail records a failure cause for the stage
func (s *stage[T]) fail(cause *errors.AppError) {
	if !isValidTransition(s.Status, StageError) {
		return
	}
	s.Status = StageError
	s.Cause = cause
}

// reset returns the stage to empty and discards its data
func (s *stage[T]) reset() {
	var zero T
	s.Status = StageEmpty
	s.Data = zero
	s.Cause = nil
}
