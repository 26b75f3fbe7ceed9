package feed

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	obs "github.com/eulucasalbert/tiktok-lovable-railway/internal/infrastructure/observability"
	"github.com/eulucasalbert/tiktok-lovable-railway/internal/usecase"
)

// Client is one websocket connection to a broadcaster's live feed. It
// satisfies usecase.FeedConn.
type Client struct {
	log     *zerolog.Logger
	metrics *obs.Metrics
	conn    *websocket.Conn
	handle  string
	closed  atomic.Bool
}

// Options tunes the dialer. Zero values fall back to defaults.
type Options struct {
	HandshakeTimeout time.Duration
	InsecureTLS      bool
}

// Dial connects to the feed endpoint for the given broadcaster handle.
// http(s) schemes in baseURL are normalized to ws(s).
func Dial(ctx context.Context, log *zerolog.Logger, metrics *obs.Metrics, baseURL, handle string, opts Options) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("feed url: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return nil, fmt.Errorf("feed url: unsupported scheme %q", u.Scheme)
	}
	q := u.Query()
	q.Set("uniqueId", handle)
	u.RawQuery = q.Encode()

	timeout := opts.HandshakeTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	dialer := websocket.Dialer{
		HandshakeTimeout: timeout,
		NetDialContext:   (&net.Dialer{Timeout: timeout}).DialContext,
	}
	if u.Scheme == "wss" && opts.InsecureTLS {
		dialer.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	conn, resp, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		return nil, fmt.Errorf("dial %s: %w", u.Host, err)
	}
	log.Info().Str("upstream", u.Host).Str("target", handle).Msg("live feed connected")
	return &Client{log: log, metrics: metrics, conn: conn, handle: handle}, nil
}

// Run starts the read pump with the given handler set. Events are dispatched
// in delivery order on a single goroutine.
func (c *Client) Run(h usecase.FeedHandlers) {
	go c.readPump(h)
}

// Close shuts the connection down; the read pump exits without surfacing the
// resulting read error.
func (c *Client) Close() error {
	c.closed.Store(true)
	deadline := time.Now().Add(2 * time.Second)
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	return c.conn.Close()
}

func (c *Client) readPump(h usecase.FeedHandlers) {
	defer func() { _ = c.conn.Close() }()
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if c.closed.Load() {
				return
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				if h.StreamEnd != nil {
					h.StreamEnd()
				}
				return
			}
			if h.Err != nil {
				h.Err(err)
			}
			return
		}
		c.dispatch(h, data)
	}
}

func (c *Client) dispatch(h usecase.FeedHandlers, data []byte) {
	ev, err := decodeEnvelope(data)
	if err != nil {
		c.log.Warn().Err(err).Str("target", c.handle).Msg("undecodable feed payload dropped")
		c.metrics.DecodeErrorsTotal.Inc()
		return
	}
	switch e := ev.(type) {
	case usecase.GiftEvent:
		if h.Gift != nil {
			h.Gift(e)
		}
	case usecase.LikeEvent:
		if h.Like != nil {
			h.Like(e)
		}
	case usecase.BattleStartEvent:
		if h.BattleStart != nil {
			h.BattleStart(e)
		}
	case usecase.BattleScoreEvent:
		if h.BattleScore != nil {
			h.BattleScore(e)
		}
	case usecase.BattleResultEvent:
		if h.BattleResult != nil {
			h.BattleResult(e)
		}
	case streamEnd:
		if h.StreamEnd != nil {
			h.StreamEnd()
		}
	case nil:
		// unknown event type, skip
	}
}
