package progress

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/ae-intake/internal/compliance"
	"github.com/jonathan/ae-intake/internal/db"
)

// memStore is an in-memory append-only log for tracker tests
type memStore struct {
	rows      []*db.ProcessingLogInput
	appendErr error
	latestErr error
}

func (s *memStore) AppendProcessingLog(_ context.Context, input *db.ProcessingLogInput) (*db.ProcessingLog, error) {
	if s.appendErr != nil {
		return nil, s.appendErr
	}
	s.rows = append(s.rows, input)
	return &db.ProcessingLog{ID: uuid.New()}, nil
}

func (s *memStore) LatestProcessingLog(_ context.Context, action, sessionID string) (*db.ProcessingLog, error) {
	if s.latestErr != nil {
		return nil, s.latestErr
	}
	for i := len(s.rows) - 1; i >= 0; i-- {
		row := s.rows[i]
		if row.Action != action {
			continue
		}
		if id, _ := row.Details["session_id"].(string); id == sessionID {
			return &db.ProcessingLog{ID: uuid.New(), Action: row.Action, Details: row.Details}, nil
		}
	}
	return nil, nil
}

func newTestTracker(store *memStore) *Tracker {
	return NewTracker(store, compliance.NewLogger(store), NewSessionCache())
}

func TestNewSession_InitialSnapshot(t *testing.T) {
	store := &memStore{}
	tracker := newTestTracker(store)
	ctx := context.Background()

	docID := uuid.New().String()
	sessionID := tracker.NewSession(ctx, docID, 3)

	assert.True(t, strings.HasPrefix(sessionID, docID+"_"))

	session, ok := tracker.LoadProgress(ctx, sessionID)
	require.True(t, ok)
	assert.Equal(t, docID, session.DocumentID)
	assert.Equal(t, "initialized", session.CurrentStep)
	assert.Equal(t, "initialized", session.LastCheckpoint)
	assert.Equal(t, 3, session.TotalSteps)
	assert.Equal(t, 0, session.CompletedSteps)
	assert.Equal(t, StatusRunning, session.Status)

	// One persisted snapshot under the progress action
	require.Len(t, store.rows, 1)
	assert.Equal(t, ActionProgress, store.rows[0].Action)
	assert.Equal(t, compliance.SystemUser, store.rows[0].UserID)
}

func TestLoadProgress_Missing(t *testing.T) {
	tracker := newTestTracker(&memStore{})
	_, ok := tracker.LoadProgress(context.Background(), "nope")
	assert.False(t, ok)
}

func TestLoadProgress_ColdFromStore(t *testing.T) {
	store := &memStore{}
	tracker := newTestTracker(store)
	ctx := context.Background()

	sessionID := tracker.NewSession(ctx, uuid.New().String(), 3)

	// Fresh tracker sharing the store but not the cache
	cold := newTestTracker(store)
	session, ok := cold.LoadProgress(ctx, sessionID)
	require.True(t, ok)
	assert.Equal(t, sessionID, session.ID)
	assert.Equal(t, StatusRunning, session.Status)

	// The cold load warms the cache
	_, cached := cold.cache.Get(sessionID)
	assert.True(t, cached)
}

func TestLoadProgress_MalformedRecordIsAbsence(t *testing.T) {
	store := &memStore{}
	store.rows = append(store.rows, &db.ProcessingLogInput{
		Action: ActionProgress,
		Details: map[string]any{
			"session_id": "sess_1",
			// missing document_id, status, step fields
		},
	})
	tracker := newTestTracker(store)

	_, ok := tracker.LoadProgress(context.Background(), "sess_1")
	assert.False(t, ok)
}

func TestLoadProgress_StoreErrorIsAbsence(t *testing.T) {
	store := &memStore{latestErr: errors.New("timeout")}
	tracker := newTestTracker(store)

	var reported error
	tracker.OnError = func(err error) { reported = err }

	_, ok := tracker.LoadProgress(context.Background(), "sess_1")
	assert.False(t, ok)
	assert.Error(t, reported)
}

func TestLoadProgress_JSONRoundTripNumbers(t *testing.T) {
	// Numbers come back as float64 once details pass through JSONB
	store := &memStore{}
	store.rows = append(store.rows, &db.ProcessingLogInput{
		Action: ActionProgress,
		Details: map[string]any{
			"session_id":      "sess_json",
			"document_id":     uuid.New().String(),
			"current_step":    "extraction",
			"total_steps":     float64(3),
			"completed_steps": float64(2),
			"status":          StatusRunning,
			"last_checkpoint": "extraction",
		},
	})
	tracker := newTestTracker(store)

	session, ok := tracker.LoadProgress(context.Background(), "sess_json")
	require.True(t, ok)
	assert.Equal(t, 3, session.TotalSteps)
	assert.Equal(t, 2, session.CompletedSteps)
}

func TestSaveProgress_WriteFailureKeepsCacheCoherent(t *testing.T) {
	store := &memStore{}
	tracker := newTestTracker(store)
	ctx := context.Background()

	sessionID := tracker.NewSession(ctx, uuid.New().String(), 3)

	var reported error
	tracker.OnError = func(err error) { reported = err }
	store.appendErr = errors.New("disk full")

	session, _ := tracker.LoadProgress(ctx, sessionID)
	session.CurrentStep = "extraction"
	tracker.SaveProgress(ctx, *session)

	assert.Error(t, reported)

	// In-process reads still see the new state
	reloaded, ok := tracker.LoadProgress(ctx, sessionID)
	require.True(t, ok)
	assert.Equal(t, "extraction", reloaded.CurrentStep)
}

func TestCheckpoint_ContinuationAdvancesSession(t *testing.T) {
	store := &memStore{}
	tracker := newTestTracker(store)
	ctx := context.Background()

	sessionID := tracker.NewSession(ctx, uuid.New().String(), 3)

	resume := tracker.Checkpoint(sessionID, "security_scan", map[string]any{"risk_level": "LOW"})

	// Nothing changes until the continuation runs
	session, _ := tracker.LoadProgress(ctx, sessionID)
	assert.Equal(t, 0, session.CompletedSteps)

	resume(ctx)

	session, ok := tracker.LoadProgress(ctx, sessionID)
	require.True(t, ok)
	assert.Equal(t, 1, session.CompletedSteps)
	assert.Equal(t, "security_scan", session.CurrentStep)
	assert.Equal(t, "security_scan", session.LastCheckpoint)
	assert.Equal(t, "LOW", session.Metadata["risk_level"])

	// Checkpoint pairs the snapshot with an audit event
	var auditActions []string
	for _, row := range store.rows {
		if row.Action != ActionProgress {
			auditActions = append(auditActions, row.Action)
		}
	}
	assert.Contains(t, auditActions, "compliance_checkpoint_created")
}

func TestCheckpoint_MetadataMerge(t *testing.T) {
	store := &memStore{}
	tracker := newTestTracker(store)
	ctx := context.Background()

	sessionID := tracker.NewSession(ctx, uuid.New().String(), 3)

	tracker.Checkpoint(sessionID, "a", map[string]any{"k1": "v1", "shared": "old"})(ctx)
	tracker.Checkpoint(sessionID, "b", map[string]any{"k2": "v2", "shared": "new"})(ctx)

	session, ok := tracker.LoadProgress(ctx, sessionID)
	require.True(t, ok)
	assert.Equal(t, 2, session.CompletedSteps)
	assert.Equal(t, "v1", session.Metadata["k1"])
	assert.Equal(t, "v2", session.Metadata["k2"])
	assert.Equal(t, "new", session.Metadata["shared"])
}

func TestCheckpoint_UnknownSession(t *testing.T) {
	tracker := newTestTracker(&memStore{})

	var reported error
	tracker.OnError = func(err error) { reported = err }

	tracker.Checkpoint("missing", "step", nil)(context.Background())
	assert.Error(t, reported)
}

func TestSetStatus_Transitions(t *testing.T) {
	store := &memStore{}
	tracker := newTestTracker(store)
	ctx := context.Background()

	sessionID := tracker.NewSession(ctx, uuid.New().String(), 3)

	require.NoError(t, tracker.SetStatus(ctx, sessionID, StatusPaused))
	require.NoError(t, tracker.SetStatus(ctx, sessionID, StatusRunning))
	require.NoError(t, tracker.SetStatus(ctx, sessionID, StatusCompleted))

	// Terminal: no way out, not even to itself
	assert.Error(t, tracker.SetStatus(ctx, sessionID, StatusRunning))
	assert.Error(t, tracker.SetStatus(ctx, sessionID, StatusCompleted))

	session, _ := tracker.LoadProgress(ctx, sessionID)
	assert.Equal(t, StatusCompleted, session.Status)
}

func TestSetStatus_UnknownSession(t *testing.T) {
	tracker := newTestTracker(&memStore{})
	err := tracker.SetStatus(context.Background(), "missing", StatusPaused)
	assert.Error(t, err)
}

func TestResume(t *testing.T) {
	store := &memStore{}
	tracker := newTestTracker(store)
	ctx := context.Background()

	sessionID := tracker.NewSession(ctx, uuid.New().String(), 3)
	require.NoError(t, tracker.SetStatus(ctx, sessionID, StatusPaused))

	require.NoError(t, tracker.Resume(ctx, sessionID))
	session, _ := tracker.LoadProgress(ctx, sessionID)
	assert.Equal(t, StatusRunning, session.Status)
}

func TestResume_CompletedRejected(t *testing.T) {
	store := &memStore{}
	tracker := newTestTracker(store)
	ctx := context.Background()

	sessionID := tracker.NewSession(ctx, uuid.New().String(), 3)
	require.NoError(t, tracker.SetStatus(ctx, sessionID, StatusCompleted))

	err := tracker.Resume(ctx, sessionID)
	assert.Error(t, err)
}

func TestValidTransition(t *testing.T) {
	tests := []struct {
		from, to string
		allowed  bool
	}{
		{StatusRunning, StatusPaused, true},
		{StatusRunning, StatusCompleted, true},
		{StatusRunning, StatusFailed, true},
		{StatusPaused, StatusRunning, true},
		{StatusPaused, StatusCompleted, false},
		{StatusPaused, StatusFailed, false},
		{StatusCompleted, StatusRunning, false},
		{StatusFailed, StatusRunning, false},
		{StatusRunning, StatusRunning, true},
		{StatusPaused, StatusPaused, true},
		{StatusCompleted, StatusCompleted, false},
		{StatusCompleted, StatusFailed, false},
		{StatusFailed, StatusFailed, false},
	}

	for _, tt := range tests {
		t.Run(tt.from+"_to_"+tt.to, func(t *testing.T) {
			assert.Equal(t, tt.allowed, ValidTransition(tt.from, tt.to))
		})
	}
}
