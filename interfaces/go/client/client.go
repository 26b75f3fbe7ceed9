package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client is a minimal Go client for the bridge API: request a session for a
// broadcaster, inspect sessions and their events.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func New(baseURL string) *Client { return &Client{BaseURL: baseURL, HTTP: http.DefaultClient} }

type Session struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

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

// CreateSession inserts a pending session for the broadcaster handle; the
// bridge adopts it and connects.
func (c *Client) CreateSession(username string) (Session, error) {
	body, _ := json.Marshal(map[string]string{"username": username})
	resp, err := c.HTTP.Post(c.BaseURL+"/api/sessions", "application/json", bytes.NewReader(body))
	if err != nil {
		return Session{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return Session{}, fmt.Errorf("create session: status %d", resp.StatusCode)
	}
	var sess Session
	if err := json.NewDecoder(resp.Body).Decode(&sess); err != nil {
		return Session{}, err
	}
	return sess, nil
}

func (c *Client) ListSessions(limit int) ([]Session, int, error) {
	resp, err := c.HTTP.Get(fmt.Sprintf("%s/api/sessions?limit=%d", c.BaseURL, limit))
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	var out struct {
		Items []Session `json:"items"`
		Total int       `json:"total"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, 0, err
	}
	return out.Items, out.Total, nil
}

func (c *Client) ListEvents(sessionID string, limit int) ([]Event, int, error) {
	resp, err := c.HTTP.Get(fmt.Sprintf("%s/api/sessions/%s/events?limit=%d", c.BaseURL, sessionID, limit))
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	var out struct {
		Items []Event `json:"items"`
		Total int     `json:"total"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, 0, err
	}
	return out.Items, out.Total, nil
}

// DeleteSession requests a disconnect by writing the terminal status; the
// bridge tears the live connection down when this is the active session.
func (c *Client) DeleteSession(sessionID string) error {
	req, err := http.NewRequest(http.MethodDelete, c.BaseURL+"/api/sessions/"+sessionID, nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("delete session: status %d", resp.StatusCode)
	}
	return nil
}
