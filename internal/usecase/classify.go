package usecase

import (
	"strings"

	"github.com/eulucasalbert/tiktok-lovable-railway/internal/domain"
)

// DefaultGiftTarget is used when no per-target config was loaded for the
// active broadcaster.
var DefaultGiftTarget = domain.GiftTarget{
	GiftID: 5281,
	Names:  []string{"Heart Me", "Coração"},
	Value:  1,
}

// Classify decides whether an inbound gift is a target gift. A gift matches
// when its numeric id is configured, or when its display name contains any
// configured name case-insensitively. The id criterion wins precedence in the
// reported MatchKind when both apply. Pure and deterministic.
func Classify(gift GiftEvent, targets []domain.GiftTarget) domain.Classification {
	if len(targets) == 0 {
		targets = []domain.GiftTarget{DefaultGiftTarget}
	}
	name := strings.ToLower(gift.GiftName)
	byName := false
	for _, t := range targets {
		if gift.GiftID == t.GiftID {
			return domain.Classification{IsTarget: true, MatchedBy: domain.MatchByID}
		}
		if byName || name == "" {
			continue
		}
		for _, n := range t.Names {
			if n != "" && strings.Contains(name, strings.ToLower(n)) {
				byName = true
				break
			}
		}
	}
	if byName {
		return domain.Classification{IsTarget: true, MatchedBy: domain.MatchByName}
	}
	return domain.Classification{}
}
