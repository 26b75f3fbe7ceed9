package domain

// GiftTarget is one configured target gift: a numeric identifier plus one or
// more localized display names, loaded read-only for the active session.
type GiftTarget struct {
	GiftID int64    `json:"giftId"`
	Names  []string `json:"names"`
	Value  int      `json:"value"`
}

type MatchKind string

const (
	MatchByID   MatchKind = "id"
	MatchByName MatchKind = "name"
)

// Classification is the outcome of matching an inbound gift against the
// configured target set. MatchedBy is empty when the gift is not a target.
type Classification struct {
	IsTarget  bool      `json:"isTarget"`
	MatchedBy MatchKind `json:"matchedBy,omitempty"`
}
