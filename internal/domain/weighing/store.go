package weighing

import (
	"context"
	"time"
)

// Store is the durable pending-session record, keyed by vehicle number.
// Any durable key-value backend satisfies it; the engine never caches
// session state outside the store.
//
// Sessions are removed only on finalization or explicit operator discard.
// Stale sessions are surfaced for cleanup, never auto-evicted.
type Store interface {
	// Upsert persists the session, merging over any existing record for
	// the same vehicle number and refreshing LastTouchedAt.
	Upsert(ctx context.Context, session *Session) error

	// Get returns the session for a vehicle number, or NotFound.
	Get(ctx context.Context, vehicleNo string) (*Session, error)

	// List returns sessions, optionally filtered by stage, ordered by
	// last activity (most recent first).
	List(ctx context.Context, stage *Stage) ([]*Session, error)

	// ListStale returns non-abandoned sessions with no activity inside
	// the window.
	ListStale(ctx context.Context, window time.Duration) ([]*Session, error)

	// Remove deletes the session record. Called only after finalization
	// or explicit operator discard.
	Remove(ctx context.Context, vehicleNo string) error
}
