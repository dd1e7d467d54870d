package server

import (
	"context"
	"sync"
	"time"

	"applypilot/internal/errors"
	"applypilot/internal/workflow"
)

// SessionRegistry owns the live workflow orchestrators, keyed by session
// ID. Sessions idle longer than the TTL are evicted by a janitor
// goroutine; eviction cancels the session context so in-flight gateway
// calls are abandoned.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*sessionEntry

	gw     workflow.Gateway
	opts   workflow.Options
	ttl    time.Duration
	logger *errors.Logger
	done   chan struct{}
	once   sync.Once
}

type sessionEntry struct {
	orchestrator *workflow.Orchestrator
	cancel       context.CancelFunc
}

// NewSessionRegistry creates a registry and starts its eviction janitor
func NewSessionRegistry(gw workflow.Gateway, ttl time.Duration, opts workflow.Options, logger *errors.Logger) *SessionRegistry {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}

	r := &SessionRegistry{
		sessions: make(map[string]*sessionEntry),
		gw:       gw,
		opts:     opts,
		ttl:      ttl,
		logger:   logger,
		done:     make(chan struct{}),
	}

	go r.janitor()
	return r
}

// Create starts a new workflow session and returns its orchestrator
func (r *SessionRegistry) Create() *workflow.Orchestrator {
	ctx, cancel := context.WithCancel(context.Background())
	orch := workflow.New(ctx, r.gw, r.logger, r.opts)

	r.mu.Lock()
	r.sessions[orch.SessionID()] = &sessionEntry{orchestrator: orch, cancel: cancel}
	count := len(r.sessions)
	r.mu.Unlock()

	r.logger.Info("Workflow session created",
		"session_id", orch.SessionID(), "active_sessions", count)
	return orch
}

// Get returns the orchestrator for a session ID
func (r *SessionRegistry) Get(id string) (*workflow.Orchestrator, error) {
	r.mu.RLock()
	entry, ok := r.sessions[id]
	r.mu.RUnlock()

	if !ok {
		return nil, errors.NewValidationError(errors.ErrCodeSessionNotFound,
			"No active session with this ID", nil).WithContext("session_id", id)
	}
	return entry.orchestrator, nil
}

// Remove ends a session, cancelling any in-flight gateway calls
func (r *SessionRegistry) Remove(id string) {
	r.mu.Lock()
	entry, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	if ok {
		entry.cancel()
		r.logger.Info("Workflow session removed", "session_id", id)
	}
}

// Count reports the number of active sessions
func (r *SessionRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Close stops the janitor and cancels every active session
func (r *SessionRegistry) Close() {
	r.once.Do(func() { close(r.done) })

	r.mu.Lock()
	defer r.mu.Unlock()
	for id, entry := range r.sessions {
		entry.cancel()
		delete(r.sessions, id)
	}
}

func (r *SessionRegistry) janitor() {
	interval := r.ttl / 4
	if interval > time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.done:
			return
		case <-ticker.C:
			r.evictIdle()
		}
	}
}

func (r *SessionRegistry) evictIdle() {
	cutoff := time.Now().Add(-r.ttl)

	r.mu.Lock()
	var evicted []string
	for id, entry := range r.sessions {
		if entry.orchestrator.LastActivity().Before(cutoff) {
			entry.cancel()
			delete(r.sessions, id)
			evicted = append(evicted, id)
		}
	}
	r.mu.Unlock()

	for _, id := range evicted {
		r.logger.Info("Idle workflow session evicted", "session_id", id, "ttl", r.ttl)
	}
}
