package workflow

import (
	"context"
	"strings"
	"sync"
	"time"

	"applypilot/internal/common"
	"applypilot/internal/errors"
	"applypilot/internal/score"
	"applypilot/internal/types"

	"github.com/google/uuid"
)

// Gateway is the slice of the analysis service the orchestrator consumes
type Gateway interface {
	ParseResume(ctx context.Context, filename string, content []byte) (types.ResumeRecord, error)
	AnalyzeJobText(ctx context.Context, jobDescription string) (types.JobRecord, error)
	AnalyzeJobFile(ctx context.Context, filename string, content []byte) (types.JobRecord, error)
	CalculateSimilarity(ctx context.Context, resumeText, jobText string) (types.ScoreResult, error)
	GenerateCoverLetter(ctx context.Context, resume types.ResumeRecord, job types.JobRecord, tone string) (types.CoverLetter, error)
	EnhanceResume(ctx context.Context, resumeText, jobText string, recommendations *types.Recommendations) (types.EnhancementResult, error)
}

// Enhancement pairs a rewrite with the score it superseded. The original
// score is always kept; a regression is advisory, never an error.
type Enhancement = score.EnhancementReport

// State is an immutable snapshot of the workflow for presentation code
type State struct {
	SessionID string `json:"session_id"`
	Phase     Phase  `json:"phase"`

	ResumeStatus   StageStatus         `json:"resume_status"`
	ResumeFilename string              `json:"resume_filename,omitempty"`
	Resume         *types.ResumeRecord `json:"resume,omitempty"`
	ResumeError    *errors.AppError    `json:"resume_error,omitempty"`

	JobStatus StageStatus      `json:"job_status"`
	Job       *types.JobRecord `json:"job,omitempty"`
	JobError  *errors.AppError `json:"job_error,omitempty"`

	MatchStatus StageStatus        `json:"match_status"`
	Score       *types.ScoreResult `json:"score,omitempty"`
	ScoreBand   score.Band         `json:"score_band,omitempty"`
	MatchError  *errors.AppError   `json:"match_error,omitempty"`

	// Enhancement is solicited while the overall score is below the
	// good-enough threshold; it stays available on demand either way
	OfferEnhancement bool `json:"offer_enhancement"`

	GenerationStatus StageStatus        `json:"generation_status"`
	CoverLetter      *types.CoverLetter `json:"cover_letter,omitempty"`
	Enhancement      *Enhancement       `json:"enhancement,omitempty"`
	GenerationError  *errors.AppError   `json:"generation_error,omitempty"`

	LastActivity time.Time `json:"last_activity"`
}

// Options tunes orchestrator behavior
type Options struct {
	MaxFileSize int64
}

// Orchestrator sequences the intake, matching and generation stages for
// one session. It is the single writer of all stage state: every
// transition happens under its lock, one at a time. Gateway calls run in
// their own goroutines and re-enter through apply methods that check the
// request sequence number before touching anything.
type Orchestrator struct {
	mu     sync.RWMutex
	ctx    context.Context
	gw     Gateway
	logger *errors.Logger
	opts   Options

	sessionID string

	resume     stage[types.ResumeRecord]
	resumeName string
	resumeRev  string

	job     stage[types.JobRecord]
	jobRev  string
	jobText string

	match stage[types.ScoreResult]
	// matchPending coalesces triggers that arrive while a request is in
	// flight; at most one similarity request runs at a time
	matchPending bool
	// record identities snapshotted when the in-flight request was issued
	matchResumeRev string
	matchJobRev    string

	generation  stage[struct{}]
	coverLetter *types.CoverLetter
	enhancement *Enhancement

	lastActivity time.Time
}

// New creates an orchestrator bound to a session lifetime context. The
// context outlives individual HTTP requests so in-flight gateway calls
// are only cancelled by superseding requests or session teardown.
func New(ctx context.Context, gw Gateway, logger *errors.Logger, opts Options) *Orchestrator {
	return &Orchestrator{
		ctx:          ctx,
		gw:           gw,
		logger:       logger,
		opts:         opts,
		sessionID:    uuid.NewString(),
		lastActivity: time.Now(),
		resume:       stage[types.ResumeRecord]{Status: StageEmpty},
		job:          stage[types.JobRecord]{Status: StageEmpty},
		match:        stage[types.ScoreResult]{Status: StageEmpty},
		generation:   stage[struct{}]{Status: StageEmpty},
	}
}

// SessionID returns the session identifier
func (o *Orchestrator) SessionID() string {
	return o.sessionID
}

// SubmitResume validates and submits a resume document for parsing.
// Unsupported file types are rejected locally with no network call and
// the stage keeps its prior state.
func (o *Orchestrator) SubmitResume(filename string, content []byte) error {
	if err := common.ValidateResumeFileType(filename); err != nil {
		return err
	}
	if len(content) == 0 {
		return errors.NewValidationError(errors.ErrCodeEmptyInput,
			"Resume file is empty", nil)
	}
	if o.opts.MaxFileSize > 0 && int64(len(content)) > o.opts.MaxFileSize {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest,
			"Resume file exceeds the maximum allowed size", nil).
			WithContext("max_bytes", o.opts.MaxFileSize)
	}

	o.mu.Lock()
	seq := o.resume.beginRequest()
	o.resumeName = filename
	o.touch()
	o.mu.Unlock()

	o.logger.Info("Resume submitted for parsing",
		"session_id", o.sessionID, "filename", filename, "bytes", len(content))

	go func() {
		record, err := o.gw.ParseResume(o.ctx, filename, content)
		o.applyResumeResult(seq, record, err)
	}()
	return nil
}

// RemoveResume resets the resume stage and synchronously invalidates any
// derived score and enhancement
func (o *Orchestrator) RemoveResume() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.resume.reset()
	o.resume.seq++ // orphan any in-flight parse
	o.resumeName = ""
	o.resumeRev = ""
	o.invalidateDerivedLocked()
	o.touch()

	o.logger.Info("Resume removed, derived results cleared", "session_id", o.sessionID)
}

// SubmitJobText submits pasted job description text. Empty text after
// trimming is rejected locally.
func (o *Orchestrator) SubmitJobText(text string) error {
	if strings.TrimSpace(text) == "" {
		return errors.NewValidationError(errors.ErrCodeEmptyInput,
			"Job description text is empty", nil)
	}

	o.mu.Lock()
	seq := o.job.beginRequest()
	o.touch()
	o.mu.Unlock()

	o.logger.Info("Job text submitted for analysis",
		"session_id", o.sessionID, "chars", len(text))

	go func() {
		record, err := o.gw.AnalyzeJobText(o.ctx, text)
		o.applyJobResult(seq, record, err)
	}()
	return nil
}

// SubmitJobFile validates and submits a job description document
func (o *Orchestrator) SubmitJobFile(filename string, content []byte) error {
	if err := common.ValidateJobFileType(filename); err != nil {
		return err
	}
	if len(content) == 0 {
		return errors.NewValidationError(errors.ErrCodeEmptyInput,
			"Job description file is empty", nil)
	}
	if o.opts.MaxFileSize > 0 && int64(len(content)) > o.opts.MaxFileSize {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest,
			"Job description file exceeds the maximum allowed size", nil).
			WithContext("max_bytes", o.opts.MaxFileSize)
	}

	o.mu.Lock()
	seq := o.job.beginRequest()
	o.touch()
	o.mu.Unlock()

	o.logger.Info("Job file submitted for analysis",
		"session_id", o.sessionID, "filename", filename, "bytes", len(content))

	go func() {
		record, err := o.gw.AnalyzeJobFile(o.ctx, filename, content)
		o.applyJobResult(seq, record, err)
	}()
	return nil
}

// RemoveJob resets the job stage and synchronously invalidates any derived
// score and enhancement
func (o *Orchestrator) RemoveJob() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.job.reset()
	o.job.seq++ // orphan any in-flight analysis
	o.jobRev = ""
	o.jobText = ""
	o.invalidateDerivedLocked()
	o.touch()

	o.logger.Info("Job removed, derived results cleared", "session_id", o.sessionID)
}

// RunMatching triggers similarity scoring. It is idempotent: a trigger
// while a request is in flight is coalesced into a single re-run.
func (o *Orchestrator) RunMatching() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.runMatchingLocked()
}

func (o *Orchestrator) runMatchingLocked() error {
	if o.resume.Status != StageReady || o.job.Status != StageReady {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest,
			"Matching requires both a parsed resume and an analyzed job", nil)
	}

	if o.match.Status == StageLoading {
		o.matchPending = true
		o.logger.Debug("Matching already in flight, coalescing trigger",
			"session_id", o.sessionID)
		return nil
	}

	jobText, err := score.JobComparisonText(o.job.Data)
	if err != nil {
		return err
	}
	o.jobText = jobText

	seq := o.match.beginRequest()
	o.matchResumeRev = o.resumeRev
	o.matchJobRev = o.jobRev
	resumeText := o.resume.Data.RawText
	o.touch()

	o.logger.Info("Matching issued",
		"session_id", o.sessionID, "sequence", seq)

	go func() {
		result, err := o.gw.CalculateSimilarity(o.ctx, resumeText, jobText)
		o.applyMatchResult(seq, result, err)
	}()
	return nil
}

// GenerateCoverLetter requests a cover letter in the given tone. Each
// invocation fully replaces the previous letter.
func (o *Orchestrator) GenerateCoverLetter(tone string) error {
	if !types.ValidTone(tone) {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest,
			"Tone must be one of: professional, enthusiastic, formal", nil)
	}

	o.mu.Lock()
	if o.resume.Status != StageReady || o.job.Status != StageReady {
		o.mu.Unlock()
		return errors.NewValidationError(errors.ErrCodeInvalidRequest,
			"Cover letter generation requires both a parsed resume and an analyzed job", nil)
	}
	seq := o.generation.beginRequest()
	resume := o.resume.Data
	job := o.job.Data
	o.touch()
	o.mu.Unlock()

	o.logger.Info("Cover letter generation issued",
		"session_id", o.sessionID, "tone", tone)

	go func() {
		letter, err := o.gw.GenerateCoverLetter(o.ctx, resume, job, tone)
		o.applyCoverLetterResult(seq, letter, err)
	}()
	return nil
}

// EnhanceResume requests a rewrite of the resume guided by the current
// score's recommendations. Available on demand regardless of the current
// score; the snapshot's OfferEnhancement flag says whether to solicit it.
func (o *Orchestrator) EnhanceResume() error {
	o.mu.Lock()
	if o.match.Status != StageReady {
		o.mu.Unlock()
		return errors.NewValidationError(errors.ErrCodeInvalidRequest,
			"Enhancement requires a computed match score", nil)
	}
	seq := o.generation.beginRequest()
	resumeText := o.resume.Data.RawText
	jobText := o.jobText
	original := o.match.Data
	recommendations := o.match.Data.Recommendations
	o.touch()
	o.mu.Unlock()

	o.logger.Info("Resume enhancement issued", "session_id", o.sessionID)

	go func() {
		result, err := o.gw.EnhanceResume(o.ctx, resumeText, jobText, recommendations)
		o.applyEnhancementResult(seq, original, result, err)
	}()
	return nil
}

// applyResumeResult handles a parse completion. Stale completions, those
// issued before a newer submission or a removal, are discarded.
func (o *Orchestrator) applyResumeResult(seq uint64, record types.ResumeRecord, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.resume.isCurrent(seq) {
		o.logger.Debug("Discarding stale resume parse response",
			"session_id", o.sessionID, "sequence", seq)
		return
	}

	if err != nil {
		o.resume.fail(asAppError(err))
		o.touch()
		o.logger.LogError(err, "Resume parsing failed", "session_id", o.sessionID)
		return
	}

	o.resume.complete(record)
	o.resumeRev = uuid.NewString()
	o.touch()
	o.logger.Info("Resume parsed",
		"session_id", o.sessionID,
		"skills", len(record.Skills),
		"raw_chars", len(record.RawText))

	// A changed input invalidates the previous score pair
	o.invalidateDerivedLocked()
	o.autoMatchLocked()
}

// applyJobResult handles a job analysis completion
func (o *Orchestrator) applyJobResult(seq uint64, record types.JobRecord, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.job.isCurrent(seq) {
		o.logger.Debug("Discarding stale job analysis response",
			"session_id", o.sessionID, "sequence", seq)
		return
	}

	if err != nil {
		o.job.fail(asAppError(err))
		o.touch()
		o.logger.LogError(err, "Job analysis failed", "session_id", o.sessionID)
		return
	}

	o.job.complete(record)
	o.jobRev = uuid.NewString()
	o.touch()
	o.logger.Info("Job analyzed",
		"session_id", o.sessionID,
		"job_title", record.JobTitle,
		"required_skills", len(record.RequiredSkills))

	o.invalidateDerivedLocked()
	o.autoMatchLocked()
}

// applyMatchResult handles a similarity completion. Beyond the sequence
// check, the record identities snapshotted at issue time must still match
// the current records; on mismatch the response is discarded and, if both
// records are still present, the matching is re-issued.
func (o *Orchestrator) applyMatchResult(seq uint64, result types.ScoreResult, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.match.isCurrent(seq) {
		o.logger.Debug("Discarding stale similarity response",
			"session_id", o.sessionID, "sequence", seq)
		return
	}

	if o.matchResumeRev != o.resumeRev || o.matchJobRev != o.jobRev {
		o.logger.Debug("Discarding similarity response for replaced inputs",
			"session_id", o.sessionID, "sequence", seq)
		o.match.reset()
		if o.resume.Status == StageReady && o.job.Status == StageReady {
			if err := o.runMatchingLocked(); err != nil {
				o.logger.LogError(err, "Failed to re-issue matching", "session_id", o.sessionID)
			}
		}
		return
	}

	if err != nil {
		o.match.fail(asAppError(err))
		o.matchPending = false
		o.touch()
		o.logger.LogError(err, "Similarity scoring failed", "session_id", o.sessionID)
		return
	}

	if verr := score.Validate(result); verr != nil {
		o.match.fail(asAppError(verr))
		o.matchPending = false
		o.touch()
		o.logger.LogError(verr, "Similarity result out of bounds", "session_id", o.sessionID)
		return
	}

	o.match.complete(result)
	// A fresh score supersedes the enhancement paired with the old one
	o.enhancement = nil
	o.touch()
	o.logger.Info("Match scored",
		"session_id", o.sessionID,
		"overall", result.OverallScore,
		"band", string(score.BandFor(result.OverallScore)))

	if o.matchPending {
		o.matchPending = false
		if err := o.runMatchingLocked(); err != nil {
			o.logger.LogError(err, "Failed to run coalesced matching", "session_id", o.sessionID)
		}
	}
}

// applyCoverLetterResult handles a generation completion
func (o *Orchestrator) applyCoverLetterResult(seq uint64, letter types.CoverLetter, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.generation.isCurrent(seq) {
		o.logger.Debug("Discarding stale cover letter response",
			"session_id", o.sessionID, "sequence", seq)
		return
	}

	if err != nil {
		o.generation.fail(asAppError(err))
		o.touch()
		o.logger.LogError(err, "Cover letter generation failed", "session_id", o.sessionID)
		return
	}

	o.generation.complete(struct{}{})
	o.coverLetter = &letter
	o.touch()
	o.logger.Info("Cover letter generated",
		"session_id", o.sessionID, "tone", letter.Tone, "chars", len(letter.Text))
}

// applyEnhancementResult handles an enhancement completion. The original
// score is always retained; a lower new score flags a regression.
func (o *Orchestrator) applyEnhancementResult(seq uint64, original types.ScoreResult, result types.EnhancementResult, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.generation.isCurrent(seq) {
		o.logger.Debug("Discarding stale enhancement response",
			"session_id", o.sessionID, "sequence", seq)
		return
	}

	if err != nil {
		o.generation.fail(asAppError(err))
		o.touch()
		o.logger.LogError(err, "Resume enhancement failed", "session_id", o.sessionID)
		return
	}

	delta := score.Delta(original, result.NewScores)
	o.generation.complete(struct{}{})
	o.enhancement = &Enhancement{
		Result:    result,
		Original:  original,
		Delta:     delta,
		Regressed: delta < 0,
	}
	o.touch()
	o.logger.Info("Resume enhanced",
		"session_id", o.sessionID,
		"delta", delta,
		"regressed", delta < 0)
}

// autoMatchLocked triggers matching when both intake stages are ready
func (o *Orchestrator) autoMatchLocked() {
	if o.resume.Status != StageReady || o.job.Status != StageReady {
		return
	}
	if err := o.runMatchingLocked(); err != nil {
		o.logger.LogError(err, "Failed to auto-trigger matching", "session_id", o.sessionID)
	}
}

// invalidateDerivedLocked clears everything computed from the current
// (resume, job) pair. Stale scores must never be shown against inputs
// that no longer exist.
func (o *Orchestrator) invalidateDerivedLocked() {
	o.match.reset()
	o.match.seq++ // orphan any in-flight similarity request
	o.matchPending = false
	o.matchResumeRev = ""
	o.matchJobRev = ""
	o.enhancement = nil
}

// Snapshot returns a copy of the current workflow state
func (o *Orchestrator) Snapshot() State {
	o.mu.RLock()
	defer o.mu.RUnlock()

	state := State{
		SessionID:        o.sessionID,
		Phase:            o.phaseLocked(),
		ResumeStatus:     o.resume.Status,
		ResumeFilename:   o.resumeName,
		ResumeError:      o.resume.Cause,
		JobStatus:        o.job.Status,
		JobError:         o.job.Cause,
		MatchStatus:      o.match.Status,
		MatchError:       o.match.Cause,
		GenerationStatus: o.generation.Status,
		GenerationError:  o.generation.Cause,
		CoverLetter:      o.coverLetter,
		Enhancement:      o.enhancement,
		LastActivity:     o.lastActivity,
	}

	if o.resume.Status == StageReady {
		record := o.resume.Data
		state.Resume = &record
	}
	if o.job.Status == StageReady {
		record := o.job.Data
		state.Job = &record
	}
	if o.match.Status == StageReady {
		result := o.match.Data
		state.Score = &result
		state.ScoreBand = score.BandFor(result.OverallScore)
		state.OfferEnhancement = score.ShouldOfferEnhancement(result.OverallScore)
	}
	return state
}

// LastActivity reports when the session last changed, for TTL eviction
func (o *Orchestrator) LastActivity() time.Time {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.lastActivity
}

// phaseLocked computes the presentation phase from stage states
func (o *Orchestrator) phaseLocked() Phase {
	if o.resume.Status != StageReady || o.job.Status != StageReady {
		return PhaseIntake
	}
	if o.generation.Status != StageEmpty || o.coverLetter != nil || o.enhancement != nil {
		return PhaseGeneration
	}
	return PhaseAnalysis
}

func (o *Orchestrator) touch() {
	o.lastActivity = time.Now()
}

// asAppError coerces gateway errors into the structured form; anything
// else is wrapped as an internal failure
func asAppError(err error) *errors.AppError {
	if appErr, ok := err.(*errors.AppError); ok {
		return appErr
	}
	return errors.NewInternalError(errors.ErrCodeInternalError, err.Error(), err)
}
