package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/eulucasalbert/tiktok-lovable-railway/internal/domain"
	obs "github.com/eulucasalbert/tiktok-lovable-railway/internal/infrastructure/observability"
)

// binding is the one live upstream attachment: connection, session scope and
// the gift target set loaded for the broadcaster.
type binding struct {
	sessionID string
	handle    string
	conn      FeedConn
	targets   []domain.GiftTarget
}

// Manager owns the single-active-connection invariant. Activating a new
// target fully tears down the previous binding (connection, derived battle
// state, persisted events) before the new session is marked connecting, and
// routes feed events to the classifier, the battle machine and the sink.
type Manager struct {
	log      *zerolog.Logger
	sessions SessionRepository
	events   EventRepository
	gifts    GiftTargetRepository
	sink     *EventSink
	battle   *BattleMachine
	dial     FeedDialer
	metrics  *obs.Metrics

	mu     sync.Mutex
	active *binding
}

func NewManager(log *zerolog.Logger, sessions SessionRepository, events EventRepository,
	gifts GiftTargetRepository, sink *EventSink, battle *BattleMachine,
	dial FeedDialer, metrics *obs.Metrics) *Manager {
	return &Manager{
		log:      log,
		sessions: sessions,
		events:   events,
		gifts:    gifts,
		sink:     sink,
		battle:   battle,
		dial:     dial,
		metrics:  metrics,
	}
}

// Activate binds the session to the broadcaster's live feed, replacing any
// current binding. On dial failure the session is marked error, nothing is
// registered and the active pointer stays clear.
func (m *Manager) Activate(ctx context.Context, handle, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.teardownLocked(ctx)

	handle = strings.TrimPrefix(strings.TrimSpace(handle), "@")
	m.log.Info().Str("session", sessionID).Str("target", handle).Msg("connecting to live feed")
	if err := m.sessions.UpdateSessionStatus(ctx, sessionID, domain.StatusConnecting); err != nil {
		m.log.Error().Err(err).Str("session", sessionID).Msg("status write failed")
		m.metrics.StoreErrorsTotal.WithLabelValues("update_status").Inc()
	}

	conn, err := m.dial(ctx, handle)
	if err != nil {
		m.log.Error().Err(err).Str("target", handle).Msg("live feed connect failed")
		if serr := m.sessions.UpdateSessionStatus(ctx, sessionID, domain.StatusError); serr != nil {
			m.log.Error().Err(serr).Str("session", sessionID).Msg("status write failed")
			m.metrics.StoreErrorsTotal.WithLabelValues("update_status").Inc()
		}
		return fmt.Errorf("connect to %s: %w", handle, err)
	}

	targets, err := m.gifts.GiftTargetsForHandle(ctx, handle)
	if err != nil {
		m.log.Warn().Err(err).Str("target", handle).Msg("gift target config load failed, using default")
		m.metrics.StoreErrorsTotal.WithLabelValues("gift_targets").Inc()
		targets = nil
	}

	if err := m.sessions.UpdateSessionStatus(ctx, sessionID, domain.StatusConnected); err != nil {
		m.log.Error().Err(err).Str("session", sessionID).Msg("status write failed")
		m.metrics.StoreErrorsTotal.WithLabelValues("update_status").Inc()
	}

	b := &binding{sessionID: sessionID, handle: handle, conn: conn, targets: targets}
	m.active = b
	m.battle.Reset()
	m.sink.Bind(sessionID)
	conn.Run(m.handlersFor(b))
	m.metrics.ActiveConnection.Set(1)
	m.log.Info().Str("session", sessionID).Str("target", handle).Int("giftTargets", len(targets)).Msg("connected to live feed")
	return nil
}

// handlersFor builds the feed handler set scoped to one binding. Each handler
// re-checks that its binding is still the active one, so a connection being
// replaced cannot leak events into the next session's state.
func (m *Manager) handlersFor(b *binding) FeedHandlers {
	guard := func(typ string, fn func(ctx context.Context)) {
		if !m.isActive(b) {
			return
		}
		m.metrics.FeedEventsTotal.WithLabelValues(typ).Inc()
		fn(context.Background())
	}
	return FeedHandlers{
		Gift: func(g GiftEvent) {
			guard("gift", func(ctx context.Context) {
				c := Classify(g, b.targets)
				if c.IsTarget {
					m.log.Info().Str("from", g.Sender).Str("gift", g.GiftName).Str("matchedBy", string(c.MatchedBy)).Int("repeat", g.RepeatCount).Msg("target gift received")
				}
				m.sink.RecordGift(ctx, g, c)
			})
		},
		Like: func(l LikeEvent) {
			guard("like", func(ctx context.Context) {
				m.sink.RecordLike(ctx, l)
			})
		},
		BattleStart: func(ev BattleStartEvent) {
			guard("battle_start", func(ctx context.Context) {
				m.battle.Start(ctx, ev.Participants)
			})
		},
		BattleScore: func(ev BattleScoreEvent) {
			guard("battle_score", func(ctx context.Context) {
				m.battle.Score(ctx, ev.ScoreA, ev.ScoreB)
			})
		},
		BattleResult: func(ev BattleResultEvent) {
			guard("battle_result", func(ctx context.Context) {
				m.battle.Result(ctx, ev.HostWin)
			})
		},
		StreamEnd: func() {
			m.log.Info().Str("target", b.handle).Msg("stream ended")
			m.TeardownSession(context.Background(), b.sessionID)
		},
		Err: func(err error) {
			m.log.Error().Err(err).Str("target", b.handle).Msg("live feed error")
			m.TeardownSession(context.Background(), b.sessionID)
		},
	}
}

// Teardown releases whatever binding is active. Idempotent.
func (m *Manager) Teardown(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.teardownLocked(ctx)
}

// TeardownSession releases the binding only if it still belongs to the given
// session, so a stale connection's end-of-stream cannot tear down its
// replacement.
func (m *Manager) TeardownSession(ctx context.Context, sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil || m.active.sessionID != sessionID {
		return
	}
	m.teardownLocked(ctx)
}

func (m *Manager) teardownLocked(ctx context.Context) {
	if m.active == nil {
		return
	}
	b := m.active
	m.active = nil
	m.sink.Unbind()
	if err := b.conn.Close(); err != nil {
		m.log.Debug().Err(err).Msg("feed close")
	}

	// Events must go before the status write: the events table references
	// the session row and external cleanup deletes terminal sessions.
	if err := m.events.DeleteSessionEvents(ctx, b.sessionID); err != nil {
		m.log.Error().Err(err).Str("session", b.sessionID).Msg("event cleanup failed")
		m.metrics.StoreErrorsTotal.WithLabelValues("delete_events").Inc()
	}
	if s, ok, err := m.sessions.GetSession(ctx, b.sessionID); err == nil && ok && !s.Status.Terminal() {
		if err := m.sessions.UpdateSessionStatus(ctx, b.sessionID, domain.StatusDisconnected); err != nil {
			m.log.Error().Err(err).Str("session", b.sessionID).Msg("status write failed")
			m.metrics.StoreErrorsTotal.WithLabelValues("update_status").Inc()
		}
	}

	m.battle.Reset()
	m.metrics.ActiveConnection.Set(0)
	m.log.Info().Str("session", b.sessionID).Str("target", b.handle).Msg("session torn down")
}

// Active reports the currently bound session, if any.
func (m *Manager) Active() (sessionID, handle string, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return "", "", false
	}
	return m.active.sessionID, m.active.handle, true
}

func (m *Manager) isActive(b *binding) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active == b
}
