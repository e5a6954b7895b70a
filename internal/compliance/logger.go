// Package compliance provides best-effort audit logging for the intake
// pipeline. Writes go to the shared processing log; a failed write is
// reported locally and never reaches the caller.
package compliance

import (
	"context"
	"log"

	"github.com/google/uuid"

	"github.com/jonathan/ae-intake/internal/db"
)

// ActionPrefix namespaces every compliance action in the shared log
const ActionPrefix = "compliance_"

// SystemUser is the fallback identity when no user can be resolved
const SystemUser = "system"

// Event is a single audit event
type Event struct {
	Action     string
	DocumentID *uuid.UUID
	UserID     string
	Details    map[string]any
}

// LogStore is the append-only sink for audit rows.
// *db.DB satisfies it.
type LogStore interface {
	AppendProcessingLog(ctx context.Context, input *db.ProcessingLogInput) (*db.ProcessingLog, error)
}

// Logger appends audit events to a LogStore
type Logger struct {
	store LogStore

	// OnError receives write failures. Defaults to log.Printf.
	OnError func(err error)
}

// NewLogger creates a Logger backed by the given store
func NewLogger(store LogStore) *Logger {
	return &Logger{
		store: store,
		OnError: func(err error) {
			log.Printf("compliance: failed to write audit event: %v", err)
		},
	}
}

// Log appends one audit event. It is best-effort: a persistence
// failure is passed to OnError and otherwise swallowed, so an audit
// write can never abort the operation being audited.
//
// The acting identity resolves as: explicit event user, else the
// authenticated identity carried by ctx, else the system sentinel.
func (l *Logger) Log(ctx context.Context, event Event) {
	details := make(map[string]any, len(event.Details)+2)
	for k, v := range event.Details {
		details[k] = v
	}

	// Every audit row carries a PHI summary, zero-valued when the
	// caller supplied none.
	if _, ok := details["phi_fields_detected"]; !ok {
		details["phi_fields_detected"] = 0
	}
	if _, ok := details["phi_classifications"]; !ok {
		details["phi_classifications"] = map[string]int{}
	}

	userID := event.UserID
	if userID == "" {
		userID = IdentityFromContext(ctx)
	}
	if userID == "" {
		userID = SystemUser
	}

	_, err := l.store.AppendProcessingLog(ctx, &db.ProcessingLogInput{
		DocumentID: event.DocumentID,
		UserID:     userID,
		Action:     ActionPrefix + event.Action,
		Details:    details,
	})
	if err != nil && l.OnError != nil {
		l.OnError(err)
	}
}

type identityKey struct{}

// WithIdentity returns a context carrying the authenticated identity
func WithIdentity(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, identityKey{}, userID)
}

// IdentityFromContext returns the authenticated identity, or ""
func IdentityFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(identityKey{}).(string); ok {
		return id
	}
	return ""
}
