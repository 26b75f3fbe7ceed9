package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Watcher drives the manager from session-table changes: a new pending
// session triggers activation, a terminal status written externally on the
// active session triggers teardown. The first tick adopts a pending session
// that already existed at process start.
type Watcher struct {
	log      *zerolog.Logger
	sessions SessionRepository
	manager  *Manager
	interval time.Duration

	lastPending string
}

func NewWatcher(log *zerolog.Logger, sessions SessionRepository, manager *Manager, interval time.Duration) *Watcher {
	return &Watcher{log: log, sessions: sessions, manager: manager, interval: interval}
}

// Run polls until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	w.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Tick(ctx)
		}
	}
}

// Tick performs one observation pass. Exported so tests and callers can step
// the watcher without the ticker.
func (w *Watcher) Tick(ctx context.Context) {
	w.observeActive(ctx)
	w.adoptPending(ctx)
}

func (w *Watcher) observeActive(ctx context.Context) {
	sid, _, ok := w.manager.Active()
	if !ok {
		return
	}
	s, found, err := w.sessions.GetSession(ctx, sid)
	if err != nil {
		w.log.Error().Err(err).Str("session", sid).Msg("active session lookup failed")
		return
	}
	if !found || s.Status.Terminal() {
		w.log.Info().Str("session", sid).Msg("active session ended externally")
		w.manager.TeardownSession(ctx, sid)
	}
}

func (w *Watcher) adoptPending(ctx context.Context) {
	s, ok, err := w.sessions.LatestPendingSession(ctx)
	if err != nil {
		w.log.Error().Err(err).Msg("pending session lookup failed")
		return
	}
	if !ok {
		w.log.Debug().Msg("no pending session")
		return
	}
	// Each pending session gets exactly one connection attempt; failed ones
	// stay in error status until an external actor retries with a new row.
	if s.ID == w.lastPending {
		return
	}
	w.lastPending = s.ID
	w.log.Info().Str("session", s.ID).Str("username", s.Username).Msg("pending session found")
	if err := w.manager.Activate(ctx, s.Username, s.ID); err != nil {
		w.log.Error().Err(err).Str("session", s.ID).Msg("activation failed")
	}
}
