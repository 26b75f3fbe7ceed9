package domain

import "time"

type SessionStatus string

const (
	StatusPending      SessionStatus = "pending"
	StatusConnecting   SessionStatus = "connecting"
	StatusConnected    SessionStatus = "connected"
	StatusDisconnected SessionStatus = "disconnected"
	StatusError        SessionStatus = "error"
)

// Terminal reports whether the status ends a session's lifecycle. Terminal
// writes may originate outside the engine and must be honored by teardown.
func (s SessionStatus) Terminal() bool {
	return s == StatusDisconnected || s == StatusError
}

func (s SessionStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConnecting, StatusConnected, StatusDisconnected, StatusError:
		return true
	}
	return false
}

// Session is one "watch this broadcaster" request. At most one session is
// bound to the live upstream connection at a time.
type Session struct {
	ID        string        `json:"id"`
	Username  string        `json:"username"`
	Status    SessionStatus `json:"status"`
	CreatedAt time.Time     `json:"createdAt"`
}
