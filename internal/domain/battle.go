package domain

import "time"

// MaxHearts is the heart count both sides start a game with.
const MaxHearts = 5

// Participant identifies one side of a head-to-head battle round.
type Participant struct {
	UserID   string `json:"userId"`
	Nickname string `json:"nickname"`
}

// BattleState is the in-process state of the current battle. A is always the
// host side, B the opposing side; the ordering is fixed at round start.
type BattleState struct {
	ParticipantA   *Participant `json:"participantA"`
	ParticipantB   *Participant `json:"participantB"`
	HeartsA        int          `json:"heartsA"`
	HeartsB        int          `json:"heartsB"`
	ScoreA         int          `json:"scoreA"`
	ScoreB         int          `json:"scoreB"`
	RoundStarted   bool         `json:"roundStarted"`
	RoundProcessed bool         `json:"roundProcessed"`
	LastUpdateAt   time.Time    `json:"lastUpdateAt"`
}

// NewBattleState returns the reset state: hearts full, scores zero, no round.
func NewBattleState() BattleState {
	return BattleState{HeartsA: MaxHearts, HeartsB: MaxHearts}
}

// GameOver reports whether either side has run out of hearts.
func (b BattleState) GameOver() bool {
	return b.HeartsA == 0 || b.HeartsB == 0
}
