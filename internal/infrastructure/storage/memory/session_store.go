package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"padihub/internal/core/apperror"
	"padihub/internal/domain/weighing"
)

// SessionStore is an in-memory weighing.Store.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*weighing.Session
}

var _ weighing.Store = (*SessionStore)(nil)

// NewSessionStore creates an empty session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*weighing.Session),
	}
}

func (s *SessionStore) clone(session *weighing.Session) *weighing.Session {
	cp := *session
	cp.Deductions = session.Deductions.Clone()
	cp.SelectedReceiptIDs = append(weighing.IDList(nil), session.SelectedReceiptIDs...)
	return &cp
}

// Upsert persists the session keyed by vehicle number.
func (s *SessionStore) Upsert(_ context.Context, session *weighing.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.VehicleNo] = s.clone(session)
	return nil
}

// Get returns the session for a vehicle number.
func (s *SessionStore) Get(_ context.Context, vehicleNo string) (*weighing.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[vehicleNo]
	if !ok {
		return nil, apperror.NewNotFound("weighing session", vehicleNo)
	}
	return s.clone(session), nil
}

// List returns sessions ordered by last activity, most recent first.
func (s *SessionStore) List(_ context.Context, stage *weighing.Stage) ([]*weighing.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*weighing.Session
	for _, session := range s.sessions {
		if stage != nil && session.Stage() != *stage {
			continue
		}
		out = append(out, s.clone(session))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastTouchedAt.After(out[j].LastTouchedAt)
	})
	return out, nil
}

// ListStale returns non-abandoned sessions idle beyond the window.
func (s *SessionStore) ListStale(_ context.Context, window time.Duration) ([]*weighing.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*weighing.Session
	for _, session := range s.sessions {
		if session.Abandoned {
			continue
		}
		if session.IsStale(window) {
			out = append(out, s.clone(session))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastTouchedAt.Before(out[j].LastTouchedAt)
	})
	return out, nil
}

// Remove deletes the session record.
func (s *SessionStore) Remove(_ context.Context, vehicleNo string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[vehicleNo]; !ok {
		return apperror.NewNotFound("weighing session", vehicleNo)
	}
	delete(s.sessions, vehicleNo)
	return nil
}
