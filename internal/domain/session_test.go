package domain

import "testing"

func TestSessionStatusTerminal(t *testing.T) {
	for status, want := range map[SessionStatus]bool{
		StatusPending:      false,
		StatusConnecting:   false,
		StatusConnected:    false,
		StatusDisconnected: true,
		StatusError:        true,
	} {
		if got := status.Terminal(); got != want {
			t.Fatalf("%s.Terminal() = %v, want %v", status, got, want)
		}
	}
}

func TestSessionStatusValid(t *testing.T) {
	if !StatusPending.Valid() {
		t.Fatalf("pending reported invalid")
	}
	if SessionStatus("bogus").Valid() {
		t.Fatalf("bogus reported valid")
	}
}

func TestBattleStateGameOver(t *testing.T) {
	s := NewBattleState()
	if s.GameOver() {
		t.Fatalf("fresh state reports game over")
	}
	s.HeartsA = 0
	if !s.GameOver() {
		t.Fatalf("zero hearts not reported as game over")
	}
}
