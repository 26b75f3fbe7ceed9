package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/eulucasalbert/tiktok-lovable-railway/internal/domain"
	obs "github.com/eulucasalbert/tiktok-lovable-railway/internal/infrastructure/observability"
)

// RoundQuietPeriod is the inactivity window after the last score update that
// resolves a round by score comparison when no explicit result arrived.
const RoundQuietPeriod = 15 * time.Second

// BattleRecorder persists committed battle facts. Persistence is best-effort
// relative to state correctness: the recorder logs failures and never reports
// them back.
type BattleRecorder interface {
	RecordBattle(ctx context.Context, kind string, payload map[string]any)
}

// BattleMachine owns the round lifecycle for the active session: start, score
// accrual, timeout- or result-based resolution, heart deduction, game end,
// reset. All transitions are atomic under one mutex; committed facts are
// recorded before the transition is visible to observers.
type BattleMachine struct {
	log  *zerolog.Logger
	sink BattleRecorder

	// now and after are swappable so the quiescence path is testable
	// without sleeping.
	now   func() time.Time
	after func(d time.Duration, fn func())

	metrics *obs.Metrics

	mu    sync.Mutex
	state domain.BattleState
}

func NewBattleMachine(log *zerolog.Logger, sink BattleRecorder, metrics *obs.Metrics) *BattleMachine {
	return &BattleMachine{
		log:     log,
		sink:    sink,
		now:     time.Now,
		after:   func(d time.Duration, fn func()) { time.AfterFunc(d, fn) },
		metrics: metrics,
		state:   domain.NewBattleState(),
	}
}

// Start begins a round from a battle-start event. The first two identities
// with a usable display name are taken in feed order as host then opponent.
// Fewer than two usable identities is a no-op, not an error.
func (b *BattleMachine) Start(ctx context.Context, participants []domain.Participant) {
	usable := make([]domain.Participant, 0, 2)
	for _, p := range participants {
		if p.Nickname == "" {
			continue
		}
		usable = append(usable, p)
		if len(usable) == 2 {
			break
		}
	}
	if len(usable) < 2 {
		b.log.Debug().Int("usable", len(usable)).Msg("battle start ignored: not enough participants")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	host, opp := usable[0], usable[1]
	b.state.ParticipantA = &host
	b.state.ParticipantB = &opp
	b.state.RoundStarted = true
	b.state.RoundProcessed = false
	b.state.ScoreA = 0
	b.state.ScoreB = 0
	b.state.LastUpdateAt = b.now()

	b.log.Info().Str("host", host.Nickname).Str("opponent", opp.Nickname).Msg("battle round started")
	b.sink.RecordBattle(ctx, domain.BattleKindStart, map[string]any{
		"participantA": host.Nickname,
		"participantB": opp.Nickname,
	})
}

// Score applies a score-update event and arms a deferred quiescence check.
// Ignored entirely while no round is in progress.
func (b *BattleMachine) Score(ctx context.Context, scoreA, scoreB int) {
	b.mu.Lock()
	if !b.state.RoundStarted {
		b.mu.Unlock()
		return
	}
	b.state.ScoreA = scoreA
	b.state.ScoreB = scoreB
	b.state.LastUpdateAt = b.now()
	b.log.Debug().Int("scoreA", scoreA).Int("scoreB", scoreB).Msg("battle score updated")
	b.sink.RecordBattle(ctx, domain.BattleKindScore, map[string]any{
		"scoreA": scoreA,
		"scoreB": scoreB,
	})
	b.mu.Unlock()

	// Each update arms its own check; the guards are re-evaluated at fire
	// time, so only the check that observes quiescence resolves the round.
	b.after(RoundQuietPeriod, func() {
		b.checkQuiescence(context.Background())
	})
}

// checkQuiescence resolves the round by score comparison when no newer score
// update arrived within the quiet period and no other path resolved it first.
func (b *BattleMachine) checkQuiescence(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.state.RoundStarted || b.state.RoundProcessed {
		return
	}
	if b.now().Sub(b.state.LastUpdateAt) < RoundQuietPeriod {
		return
	}

	switch {
	case b.state.ScoreA > b.state.ScoreB:
		b.state.HeartsB = clampHearts(b.state.HeartsB - 1)
		b.log.Info().Int("scoreA", b.state.ScoreA).Int("scoreB", b.state.ScoreB).Msg("round lost by opponent")
	case b.state.ScoreB > b.state.ScoreA:
		b.state.HeartsA = clampHearts(b.state.HeartsA - 1)
		b.log.Info().Int("scoreA", b.state.ScoreA).Int("scoreB", b.state.ScoreB).Msg("round lost by host")
	default:
		b.log.Info().Int("score", b.state.ScoreA).Msg("round tied, no heart deducted")
	}
	b.state.RoundProcessed = true
	b.metrics.RoundsResolvedTotal.WithLabelValues("score_timeout").Inc()

	b.sink.RecordBattle(ctx, domain.BattleKindRoundEnd, map[string]any{
		"scoreA":  b.state.ScoreA,
		"scoreB":  b.state.ScoreB,
		"heartsA": b.state.HeartsA,
		"heartsB": b.state.HeartsB,
	})
	b.finishGameLocked(ctx)
}

// Result applies an explicit battle-result event. A no-op when the round was
// already resolved; otherwise this path wins and a later quiescence check
// becomes the no-op.
func (b *BattleMachine) Result(ctx context.Context, hostWon bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state.RoundProcessed {
		return
	}
	winner := "participantA"
	if hostWon {
		b.state.HeartsB = clampHearts(b.state.HeartsB - 1)
	} else {
		b.state.HeartsA = clampHearts(b.state.HeartsA - 1)
		winner = "participantB"
	}
	b.state.RoundProcessed = true
	b.metrics.RoundsResolvedTotal.WithLabelValues("explicit_result").Inc()
	b.log.Info().Bool("hostWon", hostWon).Int("heartsA", b.state.HeartsA).Int("heartsB", b.state.HeartsB).Msg("battle result received")

	b.sink.RecordBattle(ctx, domain.BattleKindResult, map[string]any{
		"winner":  winner,
		"heartsA": b.state.HeartsA,
		"heartsB": b.state.HeartsB,
	})
	b.finishGameLocked(ctx)
}

// finishGameLocked records the game end and resets when a side ran out of
// hearts. The engine does not pause between games: the next battle-start
// begins a fresh game.
func (b *BattleMachine) finishGameLocked(ctx context.Context) {
	if !b.state.GameOver() {
		return
	}
	winner := "participantA"
	if b.state.HeartsA == 0 {
		winner = "participantB"
	}
	b.metrics.GamesEndedTotal.Inc()
	b.log.Info().Str("winner", winner).Msg("game over")
	b.sink.RecordBattle(ctx, domain.BattleKindGameEnd, map[string]any{
		"winner":       winner,
		"finalHeartsA": b.state.HeartsA,
		"finalHeartsB": b.state.HeartsB,
	})
	b.resetLocked()
}

// Reset restores the idle state: hearts full, scores zero, no participants.
func (b *BattleMachine) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resetLocked()
}

func (b *BattleMachine) resetLocked() {
	b.state = domain.NewBattleState()
	b.log.Debug().Msg("battle state reset")
}

// Snapshot returns a copy of the current state safe for concurrent readers.
func (b *BattleMachine) Snapshot() domain.BattleState {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.state
	if b.state.ParticipantA != nil {
		a := *b.state.ParticipantA
		s.ParticipantA = &a
	}
	if b.state.ParticipantB != nil {
		p := *b.state.ParticipantB
		s.ParticipantB = &p
	}
	return s
}

func clampHearts(n int) int {
	if n < 0 {
		return 0
	}
	if n > domain.MaxHearts {
		return domain.MaxHearts
	}
	return n
}
