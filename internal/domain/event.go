package domain

import "time"

// Event kinds recorded by the battle engine. Battle kinds are stored with
// EventTypeBattle as the row type and the kind in the gift_name column, the
// same shape gift rows use for their gift name.
const (
	EventTypeBattle  = "battle"
	EventTypeGift    = "gift"
	EventTypeHeartMe = "heartme"
	EventTypeLike    = "like"

	BattleKindStart    = "battle_start"
	BattleKindScore    = "battle_score"
	BattleKindResult   = "battle_result"
	BattleKindRoundEnd = "battle_round_end"
	BattleKindGameEnd  = "battle_end"
)

// Event is one append-only row scoped to a session. Optional columns are
// pointers so absent values stay NULL in the store.
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"event_type"`
	Username   string    `json:"username"`
	LikeCount  *int      `json:"like_count,omitempty"`
	GiftName   *string   `json:"gift_name,omitempty"`
	GiftValue  *int      `json:"gift_value,omitempty"`
	ProfilePic *string   `json:"profile_pic,omitempty"`
	SessionID  string    `json:"session_id"`
	Raw        string    `json:"raw_event"`
	CreatedAt  time.Time `json:"created_at"`
}
