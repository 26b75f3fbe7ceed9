package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/eulucasalbert/tiktok-lovable-railway/internal/domain"
)

// Store is an in-memory implementation of the usecase repositories. It backs
// tests and ephemeral runs where no database path is configured.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]domain.Session
	events   map[string][]domain.Event // session id -> rows
	targets  map[string][]domain.GiftTarget
}

func NewStore() *Store {
	return &Store{
		sessions: make(map[string]domain.Session),
		events:   make(map[string][]domain.Event),
		targets:  make(map[string][]domain.GiftTarget),
	}
}

// SessionRepository

func (s *Store) CreateSession(ctx context.Context, sess domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
	return nil
}

func (s *Store) GetSession(ctx context.Context, id string) (domain.Session, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	return sess, ok, nil
}

func (s *Store) LatestPendingSession(ctx context.Context) (domain.Session, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var newest domain.Session
	found := false
	for _, sess := range s.sessions {
		if sess.Status != domain.StatusPending {
			continue
		}
		if !found || sess.CreatedAt.After(newest.CreatedAt) {
			newest = sess
			found = true
		}
	}
	return newest, found, nil
}

func (s *Store) UpdateSessionStatus(ctx context.Context, id string, status domain.SessionStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil
	}
	sess.Status = status
	s.sessions[id] = sess
	return nil
}

func (s *Store) ListSessions(ctx context.Context, limit int) ([]domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) DeleteStaleSessions(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().Add(-olderThan)
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, sess := range s.sessions {
		if sess.Status == domain.StatusConnecting || sess.Status == domain.StatusConnected {
			continue
		}
		if sess.CreatedAt.Before(cutoff) {
			delete(s.events, id)
			delete(s.sessions, id)
			n++
		}
	}
	return n, nil
}

// DeleteSession removes a session row outright, the way external cleanup
// does. Test helper for the stale-session race.
func (s *Store) DeleteSession(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	delete(s.events, id)
}

// EventRepository

func (s *Store) AppendEvent(ctx context.Context, e domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[e.SessionID] = append(s.events[e.SessionID], e)
	return nil
}

func (s *Store) ListEvents(ctx context.Context, sessionID string, limit int) ([]domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := s.events[sessionID]
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	out := make([]domain.Event, len(rows))
	copy(out, rows)
	return out, nil
}

func (s *Store) DeleteSessionEvents(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.events, sessionID)
	return nil
}

// GiftTargetRepository

func (s *Store) GiftTargetsForHandle(ctx context.Context, handle string) ([]domain.GiftTarget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.targets[handle], nil
}

// SetGiftTargets replaces the configured target set for a handle.
func (s *Store) SetGiftTargets(handle string, targets []domain.GiftTarget) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.targets[handle] = targets
}
