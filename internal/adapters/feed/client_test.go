package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	obs "github.com/eulucasalbert/tiktok-lovable-railway/internal/infrastructure/observability"
	"github.com/eulucasalbert/tiktok-lovable-railway/internal/usecase"
)

// feedServer is a websocket endpoint that plays back scripted messages for one
// connection and then closes it with the given close code.
type feedServer struct {
	t         *testing.T
	messages  []string
	closeCode int

	mu     sync.Mutex
	handle string
}

func (s *feedServer) handler(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.handle = r.URL.Query().Get("uniqueId")
	s.mu.Unlock()

	up := websocket.Upgrader{}
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		s.t.Errorf("upgrade: %v", err)
		return
	}
	defer conn.Close()
	for _, msg := range s.messages {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
			return
		}
	}
	if s.closeCode != 0 {
		deadline := time.Now().Add(time.Second)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(s.closeCode, ""), deadline)
	}
	// Hold the connection until the peer closes it.
	_, _, _ = conn.ReadMessage()
}

func (s *feedServer) seenHandle() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handle
}

func dialTest(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	log := obs.NewLogger("error")
	c, err := Dial(context.Background(), log, obs.NewMetrics(), srv.URL, "somehost", Options{})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return c
}

func TestDialNormalizesSchemeAndSendsHandle(t *testing.T) {
	fs := &feedServer{t: t, closeCode: websocket.CloseNormalClosure}
	srv := httptest.NewServer(http.HandlerFunc(fs.handler))
	defer srv.Close()

	// srv.URL is http://...; Dial must speak ws://.
	c := dialTest(t, srv)
	defer c.Close()

	done := make(chan struct{})
	c.Run(usecase.FeedHandlers{StreamEnd: func() { close(done) }})
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("stream end not delivered")
	}
	if got := fs.seenHandle(); got != "somehost" {
		t.Fatalf("uniqueId = %q, want somehost", got)
	}
}

func TestRunDeliversEventsInOrder(t *testing.T) {
	fs := &feedServer{
		t: t,
		messages: []string{
			`{"type":"gift","data":{"giftId":5281,"giftName":"Heart Me","uniqueId":"fan"}}`,
			`{"type":"like","data":{"uniqueId":"viewer","likeCount":4}}`,
			`{"type":"linkMicArmies","data":{"audienceCount1":8,"audienceCount2":3}}`,
		},
		closeCode: websocket.CloseNormalClosure,
	}
	srv := httptest.NewServer(http.HandlerFunc(fs.handler))
	defer srv.Close()

	c := dialTest(t, srv)
	defer c.Close()

	var mu sync.Mutex
	var order []string
	done := make(chan struct{})
	c.Run(usecase.FeedHandlers{
		Gift: func(g usecase.GiftEvent) {
			mu.Lock()
			order = append(order, "gift:"+g.GiftName)
			mu.Unlock()
		},
		Like: func(l usecase.LikeEvent) {
			mu.Lock()
			order = append(order, "like")
			mu.Unlock()
		},
		BattleScore: func(s usecase.BattleScoreEvent) {
			mu.Lock()
			order = append(order, "score")
			mu.Unlock()
		},
		StreamEnd: func() { close(done) },
	})
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("stream end not delivered")
	}

	mu.Lock()
	defer mu.Unlock()
	want := []string{"gift:Heart Me", "like", "score"}
	if len(order) != len(want) {
		t.Fatalf("delivered %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("delivered %v, want %v", order, want)
		}
	}
}

func TestUndecodablePayloadIsDroppedNotFatal(t *testing.T) {
	fs := &feedServer{
		t: t,
		messages: []string{
			`not json at all`,
			`{"type":"like","data":{"uniqueId":"viewer","likeCount":1}}`,
		},
		closeCode: websocket.CloseNormalClosure,
	}
	srv := httptest.NewServer(http.HandlerFunc(fs.handler))
	defer srv.Close()

	c := dialTest(t, srv)
	defer c.Close()

	likes := make(chan usecase.LikeEvent, 1)
	done := make(chan struct{})
	c.Run(usecase.FeedHandlers{
		Like:      func(l usecase.LikeEvent) { likes <- l },
		StreamEnd: func() { close(done) },
		Err:       func(err error) { t.Errorf("unexpected feed error: %v", err) },
	})
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("stream end not delivered")
	}
	select {
	case l := <-likes:
		if l.Sender != "viewer" {
			t.Fatalf("like = %+v", l)
		}
	default:
		t.Fatalf("like after bad payload was not delivered")
	}
}

func TestCloseSuppressesReadError(t *testing.T) {
	fs := &feedServer{t: t}
	srv := httptest.NewServer(http.HandlerFunc(fs.handler))
	defer srv.Close()

	c := dialTest(t, srv)
	errs := make(chan error, 1)
	ends := make(chan struct{}, 1)
	c.Run(usecase.FeedHandlers{
		Err:       func(err error) { errs <- err },
		StreamEnd: func() { ends <- struct{}{} },
	})
	time.Sleep(50 * time.Millisecond)
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	select {
	case err := <-errs:
		t.Fatalf("local close surfaced as feed error: %v", err)
	case <-ends:
		t.Fatalf("local close surfaced as stream end")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestDialRejectsUnsupportedScheme(t *testing.T) {
	log := obs.NewLogger("error")
	if _, err := Dial(context.Background(), log, obs.NewMetrics(), "ftp://example.com", "x", Options{}); err == nil {
		t.Fatalf("ftp scheme accepted")
	}
}
