// Package progress maintains resumable execution records for document
// processing sessions. Tracking is advisory: every persistence failure
// is swallowed after local diagnosis, so a loaded session may lag the
// true state if writes have been failing.
package progress

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jonathan/ae-intake/internal/compliance"
	"github.com/jonathan/ae-intake/internal/db"
)

// Session status values
const (
	StatusRunning   = "running"
	StatusPaused    = "paused"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// ActionProgress is the log action under which session snapshots are
// stored. Progress rows and compliance rows share the same table.
const ActionProgress = "processing_progress"

// initialStep names the state of a freshly created session
const initialStep = "initialized"

// Session is a resumable execution record for one document's pipeline
// run. Sessions are never deleted, only superseded by a terminal
// status.
type Session struct {
	ID             string         `json:"session_id"`
	DocumentID     string         `json:"document_id"`
	CurrentStep    string         `json:"current_step"`
	TotalSteps     int            `json:"total_steps"`
	CompletedSteps int            `json:"completed_steps"`
	Status         string         `json:"status"`
	LastCheckpoint string         `json:"last_checkpoint"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// Store is the log-backed persistence for session snapshots.
// *db.DB satisfies it.
type Store interface {
	AppendProcessingLog(ctx context.Context, input *db.ProcessingLogInput) (*db.ProcessingLog, error)
	LatestProcessingLog(ctx context.Context, action, sessionID string) (*db.ProcessingLog, error)
}

// Tracker persists and restores processing sessions
type Tracker struct {
	store Store
	audit *compliance.Logger
	cache *SessionCache

	// OnError receives swallowed persistence failures. Defaults to
	// log.Printf.
	OnError func(err error)
}

// NewTracker creates a Tracker. The cache is injected so callers
// control its lifetime and sharing.
func NewTracker(store Store, audit *compliance.Logger, cache *SessionCache) *Tracker {
	return &Tracker{
		store: store,
		audit: audit,
		cache: cache,
		OnError: func(err error) {
			log.Printf("progress: %v", err)
		},
	}
}

// NewSession creates a session for a document run and persists the
// initial snapshot before returning the session id. The id is derived
// from the document id and the current time; collisions are accepted.
func (t *Tracker) NewSession(ctx context.Context, documentID string, totalSteps int) string {
	session := Session{
		ID:             fmt.Sprintf("%s_%d", documentID, time.Now().UnixMilli()),
		DocumentID:     documentID,
		CurrentStep:    initialStep,
		TotalSteps:     totalSteps,
		CompletedSteps: 0,
		Status:         StatusRunning,
		LastCheckpoint: initialStep,
	}
	t.SaveProgress(ctx, session)
	return session.ID
}

// SaveProgress persists the full session snapshot as one log append
// and updates the cache. Persistence failures are diagnosed locally
// and swallowed; the cache is updated regardless so in-process reads
// stay coherent.
func (t *Tracker) SaveProgress(ctx context.Context, session Session) {
	t.cache.Put(session)

	_, err := t.store.AppendProcessingLog(ctx, &db.ProcessingLogInput{
		UserID:  compliance.SystemUser,
		Action:  ActionProgress,
		Details: snapshotDetails(session),
	})
	if err != nil && t.OnError != nil {
		t.OnError(fmt.Errorf("failed to save session %s: %w", session.ID, err))
	}
}

// LoadProgress returns the session for id, checking the cache first
// and falling back to the most recent persisted snapshot. A missing or
// malformed record is absence, not an error.
func (t *Tracker) LoadProgress(ctx context.Context, id string) (*Session, bool) {
	if session, ok := t.cache.Get(id); ok {
		return &session, true
	}

	row, err := t.store.LatestProcessingLog(ctx, ActionProgress, id)
	if err != nil {
		if t.OnError != nil {
			t.OnError(fmt.Errorf("failed to load session %s: %w", id, err))
		}
		return nil, false
	}
	if row == nil {
		return nil, false
	}

	session, ok := sessionFromDetails(row.Details)
	if !ok {
		return nil, false
	}
	t.cache.Put(session)
	return &session, true
}

// Checkpoint returns a continuation that records completion of the
// named step once invoked. Deferring the write lets the caller do the
// guarded unit of work first and checkpoint after it succeeds.
//
// On invocation the continuation advances CompletedSteps by one, sets
// CurrentStep and LastCheckpoint, shallow-merges metadata (later keys
// overwrite), saves the snapshot, and pairs it with an audit event.
func (t *Tracker) Checkpoint(id, step string, metadata map[string]any) func(ctx context.Context) {
	return func(ctx context.Context) {
		session, ok := t.LoadProgress(ctx, id)
		if !ok {
			if t.OnError != nil {
				t.OnError(fmt.Errorf("checkpoint %q: session %s not found", step, id))
			}
			return
		}

		session.CompletedSteps++
		session.CurrentStep = step
		session.LastCheckpoint = step
		if len(metadata) > 0 {
			if session.Metadata == nil {
				session.Metadata = make(map[string]any, len(metadata))
			}
			for k, v := range metadata {
				session.Metadata[k] = v
			}
		}
		t.SaveProgress(ctx, *session)

		if t.audit != nil {
			t.audit.Log(ctx, compliance.Event{
				Action: "checkpoint_created",
				Details: map[string]any{
					"session_id":      session.ID,
					"document_id":     session.DocumentID,
					"step":            step,
					"completed_steps": session.CompletedSteps,
					"total_steps":     session.TotalSteps,
				},
			})
		}
	}
}

// SetStatus transitions a session to the given status. Valid
// transitions are running to paused, completed, or failed, and paused
// back to running; terminal states accept no further transitions.
func (t *Tracker) SetStatus(ctx context.Context, id, status string) error {
	session, ok := t.LoadProgress(ctx, id)
	if !ok {
		return fmt.Errorf("session not found: %s", id)
	}
	if !ValidTransition(session.Status, status) {
		return fmt.Errorf("invalid status transition %s -> %s for session %s", session.Status, status, id)
	}
	session.Status = status
	t.SaveProgress(ctx, *session)
	return nil
}

// Resume forces a non-completed session back to running
func (t *Tracker) Resume(ctx context.Context, id string) error {
	session, ok := t.LoadProgress(ctx, id)
	if !ok {
		return fmt.Errorf("session not found: %s", id)
	}
	if session.Status == StatusCompleted {
		return fmt.Errorf("session %s already completed", id)
	}
	session.Status = StatusRunning
	t.SaveProgress(ctx, *session)
	return nil
}

// ValidTransition reports whether a status change is allowed.
// Non-terminal states accept themselves so repeated saves stay
// idempotent; completed and failed accept nothing, including
// themselves.
func ValidTransition(from, to string) bool {
	switch from {
	case StatusRunning:
		return to == StatusRunning || to == StatusPaused || to == StatusCompleted || to == StatusFailed
	case StatusPaused:
		return to == StatusPaused || to == StatusRunning
	default:
		return false
	}
}

// snapshotDetails flattens a session into log row details
func snapshotDetails(s Session) map[string]any {
	return map[string]any{
		"session_id":      s.ID,
		"document_id":     s.DocumentID,
		"current_step":    s.CurrentStep,
		"total_steps":     s.TotalSteps,
		"completed_steps": s.CompletedSteps,
		"status":          s.Status,
		"last_checkpoint": s.LastCheckpoint,
		"metadata":        s.Metadata,
	}
}

// sessionFromDetails reconstructs a session from persisted details,
// verifying that every required field is present and correctly typed.
// Numbers arrive as float64 after the JSON round trip.
func sessionFromDetails(details map[string]any) (Session, bool) {
	var s Session
	var ok bool

	if s.ID, ok = details["session_id"].(string); !ok || s.ID == "" {
		return Session{}, false
	}
	if s.DocumentID, ok = details["document_id"].(string); !ok {
		return Session{}, false
	}
	if s.CurrentStep, ok = details["current_step"].(string); !ok {
		return Session{}, false
	}
	if s.Status, ok = details["status"].(string); !ok {
		return Session{}, false
	}
	if s.LastCheckpoint, ok = details["last_checkpoint"].(string); !ok {
		return Session{}, false
	}

	total, ok := asInt(details["total_steps"])
	if !ok {
		return Session{}, false
	}
	completed, ok := asInt(details["completed_steps"])
	if !ok {
		return Session{}, false
	}
	s.TotalSteps = total
	s.CompletedSteps = completed

	if m, ok := details["metadata"].(map[string]any); ok {
		s.Metadata = m
	}

	return s, true
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
