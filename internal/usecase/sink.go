package usecase

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/eulucasalbert/tiktok-lovable-railway/internal/domain"
	obs "github.com/eulucasalbert/tiktok-lovable-railway/internal/infrastructure/observability"
	"github.com/eulucasalbert/tiktok-lovable-railway/pkg/shared/redact"
)

// EventSink is the append-only writer to the store, scoped to the currently
// bound session id. Writes are independent and unordered; a write against a
// session row that no longer exists is skipped with a warning, because
// external cleanup may delete sessions concurrently.
type EventSink struct {
	log      *zerolog.Logger
	sessions SessionRepository
	events   EventRepository
	metrics  *obs.Metrics

	mu        sync.Mutex
	sessionID string
}

func NewEventSink(log *zerolog.Logger, sessions SessionRepository, events EventRepository, metrics *obs.Metrics) *EventSink {
	return &EventSink{log: log, sessions: sessions, events: events, metrics: metrics}
}

// Bind scopes subsequent writes to the given session id.
func (s *EventSink) Bind(sessionID string) {
	s.mu.Lock()
	s.sessionID = sessionID
	s.mu.Unlock()
}

// Unbind turns the sink into a no-op until the next Bind.
func (s *EventSink) Unbind() {
	s.Bind("")
}

// RecordBattle persists one battle fact (round start, score, result, round
// end, game end) as an event row.
func (s *EventSink) RecordBattle(ctx context.Context, kind string, payload map[string]any) {
	sid := s.bound()
	if sid == "" || !s.sessionAlive(ctx, sid, kind) {
		return
	}
	name := kind
	s.append(ctx, domain.Event{
		ID:        uuid.NewString(),
		Type:      domain.EventTypeBattle,
		Username:  "battle_system",
		GiftName:  &name,
		SessionID: sid,
		Raw:       rawEvent(kind, payload),
		CreatedAt: time.Now().UTC(),
	})
}

// RecordGift persists an inbound gift, typed by its classification.
func (s *EventSink) RecordGift(ctx context.Context, g GiftEvent, c domain.Classification) {
	sid := s.bound()
	if sid == "" {
		return
	}
	typ := domain.EventTypeGift
	if c.IsTarget {
		typ = domain.EventTypeHeartMe
	}
	if !s.sessionAlive(ctx, sid, typ) {
		return
	}
	value := g.DiamondCount
	if value == 0 {
		value = g.RepeatCount
	}
	payload := map[string]any{
		"username":          g.Sender,
		"giftName":          g.GiftName,
		"giftId":            g.GiftID,
		"repeatCount":       g.RepeatCount,
		"diamondCount":      g.DiamondCount,
		"profilePictureUrl": g.AvatarURL,
	}
	if c.IsTarget {
		payload["matchedBy"] = string(c.MatchedBy)
	}
	s.append(ctx, domain.Event{
		ID:         uuid.NewString(),
		Type:       typ,
		Username:   g.Sender,
		GiftName:   &g.GiftName,
		GiftValue:  &value,
		ProfilePic: &g.AvatarURL,
		SessionID:  sid,
		Raw:        rawEvent(typ, payload),
		CreatedAt:  time.Now().UTC(),
	})
}

// RecordLike persists a like-count update from the feed.
func (s *EventSink) RecordLike(ctx context.Context, l LikeEvent) {
	sid := s.bound()
	if sid == "" || !s.sessionAlive(ctx, sid, domain.EventTypeLike) {
		return
	}
	count := l.Count
	s.append(ctx, domain.Event{
		ID:         uuid.NewString(),
		Type:       domain.EventTypeLike,
		Username:   l.Sender,
		LikeCount:  &count,
		ProfilePic: &l.AvatarURL,
		SessionID:  sid,
		Raw: rawEvent(domain.EventTypeLike, map[string]any{
			"username":  l.Sender,
			"likeCount": l.Count,
		}),
		CreatedAt: time.Now().UTC(),
	})
}

func (s *EventSink) bound() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

func (s *EventSink) sessionAlive(ctx context.Context, sid, kind string) bool {
	_, ok, err := s.sessions.GetSession(ctx, sid)
	if err != nil {
		s.log.Error().Err(err).Str("session", sid).Msg("session lookup failed, dropping event")
		s.metrics.StoreErrorsTotal.WithLabelValues("get_session").Inc()
		return false
	}
	if !ok {
		s.log.Warn().Str("session", sid).Str("kind", kind).Msg("session no longer exists, skipping event")
		s.metrics.StaleSessionsTotal.Inc()
		return false
	}
	return true
}

func (s *EventSink) append(ctx context.Context, e domain.Event) {
	if err := s.events.AppendEvent(ctx, e); err != nil {
		s.log.Error().Err(err).Str("session", e.SessionID).Str("type", e.Type).Msg("event write failed")
		s.metrics.StoreErrorsTotal.WithLabelValues("append_event").Inc()
	}
}

func rawEvent(kind string, payload map[string]any) string {
	if payload == nil {
		payload = map[string]any{}
	}
	m := redact.Map(payload)
	m["type"] = kind
	m["timestamp"] = time.Now().UTC().Format(time.RFC3339)
	b, err := json.Marshal(m)
	if err != nil {
		return `{"type":"` + kind + `"}`
	}
	return string(b)
}
