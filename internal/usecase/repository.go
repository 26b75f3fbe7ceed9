package usecase

import (
	"context"
	"time"

	"github.com/eulucasalbert/tiktok-lovable-railway/internal/domain"
)

type SessionRepository interface {
	CreateSession(ctx context.Context, s domain.Session) error
	GetSession(ctx context.Context, id string) (domain.Session, bool, error)
	// LatestPendingSession returns the most recently created pending session.
	LatestPendingSession(ctx context.Context) (domain.Session, bool, error)
	UpdateSessionStatus(ctx context.Context, id string, status domain.SessionStatus) error
	ListSessions(ctx context.Context, limit int) ([]domain.Session, error)
	// DeleteStaleSessions removes terminal or never-adopted sessions (and
	// their events) older than the cutoff. Returns the number of sessions
	// removed.
	DeleteStaleSessions(ctx context.Context, olderThan time.Duration) (int, error)
}

type EventRepository interface {
	AppendEvent(ctx context.Context, e domain.Event) error
	ListEvents(ctx context.Context, sessionID string, limit int) ([]domain.Event, error)
	DeleteSessionEvents(ctx context.Context, sessionID string) error
}

type GiftTargetRepository interface {
	// GiftTargetsForHandle loads the configured target set for a broadcaster
	// handle. An empty result means no per-target config exists; the
	// classifier falls back to its built-in default.
	GiftTargetsForHandle(ctx context.Context, handle string) ([]domain.GiftTarget, error)
}
