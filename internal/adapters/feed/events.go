package feed

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/eulucasalbert/tiktok-lovable-railway/internal/domain"
	"github.com/eulucasalbert/tiktok-lovable-railway/internal/usecase"
)

// The feed speaks a JSON envelope per message: {"type": "...", "data": {...}}.
// decodeEnvelope maps each raw message into one of a closed set of internal
// event variants with fields validated and defaulted once, so downstream
// logic never re-checks optionality. Unknown types are skipped, not errors.

const (
	typeGift         = "gift"
	typeLike         = "like"
	typeBattleStart  = "linkMicBattle"
	typeBattleScore  = "linkMicArmies"
	typeBattleResult = "linkMicMethod"
	typeStreamEnd    = "streamEnd"
)

type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func decodeEnvelope(raw []byte) (any, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("envelope: %w", err)
	}
	switch env.Type {
	case typeGift:
		return decodeGift(env.Data)
	case typeLike:
		return decodeLike(env.Data)
	case typeBattleStart:
		return decodeBattleStart(env.Data)
	case typeBattleScore:
		return decodeBattleScore(env.Data)
	case typeBattleResult:
		return decodeBattleResult(env.Data)
	case typeStreamEnd:
		return streamEnd{}, nil
	default:
		return nil, nil
	}
}

type streamEnd struct{}

func decodeGift(data json.RawMessage) (usecase.GiftEvent, error) {
	var g struct {
		GiftID            int64  `json:"giftId"`
		GiftName          string `json:"giftName"`
		RepeatCount       int    `json:"repeatCount"`
		DiamondCount      int    `json:"diamondCount"`
		UniqueID          string `json:"uniqueId"`
		ProfilePictureURL string `json:"profilePictureUrl"`
	}
	if err := json.Unmarshal(data, &g); err != nil {
		return usecase.GiftEvent{}, fmt.Errorf("gift: %w", err)
	}
	if g.RepeatCount <= 0 {
		g.RepeatCount = 1
	}
	return usecase.GiftEvent{
		GiftID:       g.GiftID,
		GiftName:     g.GiftName,
		RepeatCount:  g.RepeatCount,
		DiamondCount: g.DiamondCount,
		Sender:       g.UniqueID,
		AvatarURL:    g.ProfilePictureURL,
	}, nil
}

func decodeLike(data json.RawMessage) (usecase.LikeEvent, error) {
	var l struct {
		LikeCount         int    `json:"likeCount"`
		UniqueID          string `json:"uniqueId"`
		ProfilePictureURL string `json:"profilePictureUrl"`
	}
	if err := json.Unmarshal(data, &l); err != nil {
		return usecase.LikeEvent{}, fmt.Errorf("like: %w", err)
	}
	if l.LikeCount <= 0 {
		l.LikeCount = 1
	}
	return usecase.LikeEvent{Sender: l.UniqueID, Count: l.LikeCount, AvatarURL: l.ProfilePictureURL}, nil
}

// decodeBattleStart walks anchorInfo in document order: JSON objects do not
// survive a round-trip through a Go map with their key order intact, and the
// host side is defined as the first anchor the feed lists.
func decodeBattleStart(data json.RawMessage) (usecase.BattleStartEvent, error) {
	var b struct {
		RoomID     string          `json:"roomId"`
		AnchorInfo json.RawMessage `json:"anchorInfo"`
	}
	if err := json.Unmarshal(data, &b); err != nil {
		return usecase.BattleStartEvent{}, fmt.Errorf("battle start: %w", err)
	}
	ev := usecase.BattleStartEvent{RoomID: b.RoomID}
	if len(b.AnchorInfo) == 0 {
		return ev, nil
	}
	dec := json.NewDecoder(bytes.NewReader(b.AnchorInfo))
	tok, err := dec.Token()
	if err != nil {
		return ev, fmt.Errorf("battle start anchors: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return ev, fmt.Errorf("battle start anchors: not an object")
	}
	for dec.More() {
		if _, err := dec.Token(); err != nil { // slot key, order matters, value does not
			return ev, fmt.Errorf("battle start anchors: %w", err)
		}
		var info struct {
			UserID   string `json:"userId"`
			Nickname string `json:"nickname"`
		}
		if err := dec.Decode(&info); err != nil {
			return ev, fmt.Errorf("battle start anchors: %w", err)
		}
		ev.Participants = append(ev.Participants, domain.Participant{UserID: info.UserID, Nickname: info.Nickname})
	}
	return ev, nil
}

func decodeBattleScore(data json.RawMessage) (usecase.BattleScoreEvent, error) {
	var s struct {
		AudienceCount1 int `json:"audienceCount1"`
		AudienceCount2 int `json:"audienceCount2"`
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return usecase.BattleScoreEvent{}, fmt.Errorf("battle score: %w", err)
	}
	return usecase.BattleScoreEvent{ScoreA: s.AudienceCount1, ScoreB: s.AudienceCount2}, nil
}

func decodeBattleResult(data json.RawMessage) (usecase.BattleResultEvent, error) {
	var r struct {
		Win bool `json:"win"`
	}
	if err := json.Unmarshal(data, &r); err != nil {
		return usecase.BattleResultEvent{}, fmt.Errorf("battle result: %w", err)
	}
	return usecase.BattleResultEvent{HostWin: r.Win}, nil
}
