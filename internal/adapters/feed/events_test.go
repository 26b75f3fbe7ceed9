package feed

import (
	"testing"

	"github.com/eulucasalbert/tiktok-lovable-railway/internal/usecase"
)

func TestDecodeGiftDefaultsRepeatCount(t *testing.T) {
	raw := []byte(`{"type":"gift","data":{"giftId":5281,"giftName":"Heart Me","uniqueId":"fan42","profilePictureUrl":"http://x/p.png"}}`)
	v, err := decodeEnvelope(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	g, ok := v.(usecase.GiftEvent)
	if !ok {
		t.Fatalf("decoded %T, want GiftEvent", v)
	}
	if g.GiftID != 5281 || g.GiftName != "Heart Me" || g.Sender != "fan42" {
		t.Fatalf("gift = %+v", g)
	}
	if g.RepeatCount != 1 {
		t.Fatalf("repeatCount = %d, want defaulted 1", g.RepeatCount)
	}
}

func TestDecodeLikeDefaultsCount(t *testing.T) {
	v, err := decodeEnvelope([]byte(`{"type":"like","data":{"uniqueId":"viewer"}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	l := v.(usecase.LikeEvent)
	if l.Count != 1 || l.Sender != "viewer" {
		t.Fatalf("like = %+v", l)
	}
}

func TestDecodeBattleStartPreservesAnchorOrder(t *testing.T) {
	// The host side is defined by document order, so slot keys sorting
	// differently from their appearance must not reorder participants.
	raw := []byte(`{"type":"linkMicBattle","data":{"roomId":"r1","anchorInfo":{
		"zz_slot":{"userId":"10","nickname":"host"},
		"aa_slot":{"userId":"20","nickname":"rival"}
	}}}`)
	v, err := decodeEnvelope(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	b := v.(usecase.BattleStartEvent)
	if b.RoomID != "r1" {
		t.Fatalf("roomId = %q", b.RoomID)
	}
	if len(b.Participants) != 2 {
		t.Fatalf("got %d participants, want 2", len(b.Participants))
	}
	if b.Participants[0].Nickname != "host" || b.Participants[1].Nickname != "rival" {
		t.Fatalf("participants reordered: %+v", b.Participants)
	}
}

func TestDecodeBattleStartWithoutAnchors(t *testing.T) {
	v, err := decodeEnvelope([]byte(`{"type":"linkMicBattle","data":{"roomId":"r1"}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	b := v.(usecase.BattleStartEvent)
	if len(b.Participants) != 0 {
		t.Fatalf("participants = %+v, want none", b.Participants)
	}
}

func TestDecodeBattleScore(t *testing.T) {
	v, err := decodeEnvelope([]byte(`{"type":"linkMicArmies","data":{"audienceCount1":12,"audienceCount2":7}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	s := v.(usecase.BattleScoreEvent)
	if s.ScoreA != 12 || s.ScoreB != 7 {
		t.Fatalf("score = %+v", s)
	}
}

func TestDecodeBattleResult(t *testing.T) {
	v, err := decodeEnvelope([]byte(`{"type":"linkMicMethod","data":{"win":true}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	r := v.(usecase.BattleResultEvent)
	if !r.HostWin {
		t.Fatalf("hostWin = false, want true")
	}
}

func TestDecodeStreamEnd(t *testing.T) {
	v, err := decodeEnvelope([]byte(`{"type":"streamEnd","data":{}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := v.(streamEnd); !ok {
		t.Fatalf("decoded %T, want streamEnd", v)
	}
}

func TestDecodeUnknownTypeIsSkipped(t *testing.T) {
	v, err := decodeEnvelope([]byte(`{"type":"roomUser","data":{"viewerCount":3}}`))
	if err != nil {
		t.Fatalf("unknown type returned error: %v", err)
	}
	if v != nil {
		t.Fatalf("unknown type decoded to %T, want nil", v)
	}
}

func TestDecodeMalformedEnvelope(t *testing.T) {
	if _, err := decodeEnvelope([]byte(`{not json`)); err == nil {
		t.Fatalf("malformed envelope decoded without error")
	}
	if _, err := decodeEnvelope([]byte(`{"type":"gift","data":"not an object"}`)); err == nil {
		t.Fatalf("malformed gift data decoded without error")
	}
}
