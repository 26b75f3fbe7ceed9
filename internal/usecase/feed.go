package usecase

import (
	"context"

	"github.com/eulucasalbert/tiktok-lovable-railway/internal/domain"
)

// Feed event variants. The feed adapter decodes raw upstream payloads into
// these once, at the boundary; optional fields are defaulted there so
// downstream logic never re-checks optionality.

type GiftEvent struct {
	GiftID       int64
	GiftName     string
	RepeatCount  int
	DiamondCount int
	Sender       string
	AvatarURL    string
}

type LikeEvent struct {
	Sender    string
	Count     int
	AvatarURL string
}

type BattleStartEvent struct {
	// Participants in feed order; the first usable entry is the host side.
	Participants []domain.Participant
	RoomID       string
}

type BattleScoreEvent struct {
	ScoreA int
	ScoreB int
}

type BattleResultEvent struct {
	HostWin bool
}

// FeedHandlers routes decoded feed events. Unset handlers are skipped.
type FeedHandlers struct {
	Gift         func(GiftEvent)
	Like         func(LikeEvent)
	BattleStart  func(BattleStartEvent)
	BattleScore  func(BattleScoreEvent)
	BattleResult func(BattleResultEvent)
	StreamEnd    func()
	Err          func(error)
}

// FeedConn is one live upstream connection. Run registers the handler set and
// starts delivery; events arrive in delivery order until Close.
type FeedConn interface {
	Run(FeedHandlers)
	Close() error
}

// FeedDialer opens a connection to the broadcaster's live feed.
type FeedDialer func(ctx context.Context, handle string) (FeedConn, error)
