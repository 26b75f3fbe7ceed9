package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/eulucasalbert/tiktok-lovable-railway/internal/adapters/storage/memory"
	"github.com/eulucasalbert/tiktok-lovable-railway/internal/domain"
	obs "github.com/eulucasalbert/tiktok-lovable-railway/internal/infrastructure/observability"
)

// fakeConn records the handler set so tests can push feed events through it.
type fakeConn struct {
	mu       sync.Mutex
	handlers FeedHandlers
	closed   bool
}

func (c *fakeConn) Run(h FeedHandlers) {
	c.mu.Lock()
	c.handlers = h
	c.mu.Unlock()
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) push() FeedHandlers {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handlers
}

type managerFixture struct {
	manager *Manager
	battle  *BattleMachine
	sink    *EventSink
	store   *memory.Store
	conns   []*fakeConn
	dialErr error
}

func newManagerFixture(t *testing.T) *managerFixture {
	t.Helper()
	log := obs.NewLogger("error")
	metrics := obs.NewMetrics()
	store := memory.NewStore()
	f := &managerFixture{store: store}
	f.sink = NewEventSink(log, store, store, metrics)
	f.battle = NewBattleMachine(log, f.sink, metrics)
	dial := func(ctx context.Context, handle string) (FeedConn, error) {
		if f.dialErr != nil {
			return nil, f.dialErr
		}
		c := &fakeConn{}
		f.conns = append(f.conns, c)
		return c, nil
	}
	f.manager = NewManager(log, store, store, store, f.sink, f.battle, dial, metrics)
	return f
}

func (f *managerFixture) addSession(t *testing.T, id, username string) {
	t.Helper()
	err := f.store.CreateSession(context.Background(), domain.Session{
		ID:        id,
		Username:  username,
		Status:    domain.StatusPending,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
}

func (f *managerFixture) status(t *testing.T, id string) domain.SessionStatus {
	t.Helper()
	s, ok, err := f.store.GetSession(context.Background(), id)
	if err != nil || !ok {
		t.Fatalf("get session %s: ok=%v err=%v", id, ok, err)
	}
	return s.Status
}

func TestActivateMarksConnectedAndBindsSink(t *testing.T) {
	f := newManagerFixture(t)
	f.addSession(t, "s1", "@somehost")

	if err := f.manager.Activate(context.Background(), "@somehost", "s1"); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if got := f.status(t, "s1"); got != domain.StatusConnected {
		t.Fatalf("status = %q, want connected", got)
	}
	sid, handle, ok := f.manager.Active()
	if !ok || sid != "s1" {
		t.Fatalf("active = %q %v, want s1", sid, ok)
	}
	if handle != "somehost" {
		t.Fatalf("handle = %q, want @ stripped", handle)
	}

	// Events flowing through the connection land in the bound session.
	f.conns[0].push().Like(LikeEvent{Sender: "viewer", Count: 1})
	rows, _ := f.store.ListEvents(context.Background(), "s1", 0)
	if len(rows) != 1 {
		t.Fatalf("got %d events, want 1", len(rows))
	}
}

func TestActivateDialFailureMarksError(t *testing.T) {
	f := newManagerFixture(t)
	f.addSession(t, "s1", "ghost")
	f.dialErr = errors.New("user not live")

	if err := f.manager.Activate(context.Background(), "ghost", "s1"); err == nil {
		t.Fatalf("activate succeeded, want error")
	}
	if got := f.status(t, "s1"); got != domain.StatusError {
		t.Fatalf("status = %q, want error", got)
	}
	if _, _, ok := f.manager.Active(); ok {
		t.Fatalf("manager holds a binding after dial failure")
	}
}

func TestActivateReplacesPreviousBinding(t *testing.T) {
	f := newManagerFixture(t)
	f.addSession(t, "s1", "first")
	f.addSession(t, "s2", "second")

	if err := f.manager.Activate(context.Background(), "first", "s1"); err != nil {
		t.Fatalf("activate s1: %v", err)
	}
	f.conns[0].push().Like(LikeEvent{Sender: "viewer", Count: 1})

	if err := f.manager.Activate(context.Background(), "second", "s2"); err != nil {
		t.Fatalf("activate s2: %v", err)
	}

	if !f.conns[0].isClosed() {
		t.Fatalf("previous connection not closed")
	}
	if got := f.status(t, "s1"); got != domain.StatusDisconnected {
		t.Fatalf("old session status = %q, want disconnected", got)
	}
	rows, _ := f.store.ListEvents(context.Background(), "s1", 0)
	if len(rows) != 0 {
		t.Fatalf("old session kept %d events, want purge on switch", len(rows))
	}
	sid, _, _ := f.manager.Active()
	if sid != "s2" {
		t.Fatalf("active = %q, want s2", sid)
	}
}

func TestStaleConnectionCannotLeakEvents(t *testing.T) {
	f := newManagerFixture(t)
	f.addSession(t, "s1", "first")
	f.addSession(t, "s2", "second")

	if err := f.manager.Activate(context.Background(), "first", "s1"); err != nil {
		t.Fatalf("activate s1: %v", err)
	}
	old := f.conns[0].push()
	if err := f.manager.Activate(context.Background(), "second", "s2"); err != nil {
		t.Fatalf("activate s2: %v", err)
	}

	// A late delivery on the replaced connection must be dropped, not written
	// into the new session.
	old.Like(LikeEvent{Sender: "straggler", Count: 9})
	rows, _ := f.store.ListEvents(context.Background(), "s2", 0)
	if len(rows) != 0 {
		t.Fatalf("stale connection wrote %d events into the new session", len(rows))
	}
}

func TestStaleConnectionStreamEndCannotTearDownReplacement(t *testing.T) {
	f := newManagerFixture(t)
	f.addSession(t, "s1", "first")
	f.addSession(t, "s2", "second")

	if err := f.manager.Activate(context.Background(), "first", "s1"); err != nil {
		t.Fatalf("activate s1: %v", err)
	}
	old := f.conns[0].push()
	if err := f.manager.Activate(context.Background(), "second", "s2"); err != nil {
		t.Fatalf("activate s2: %v", err)
	}

	old.StreamEnd()
	sid, _, ok := f.manager.Active()
	if !ok || sid != "s2" {
		t.Fatalf("active = %q %v after stale stream end, want s2", sid, ok)
	}
	if got := f.status(t, "s2"); got != domain.StatusConnected {
		t.Fatalf("replacement status = %q, want connected", got)
	}
}

func TestStreamEndTearsDownActiveSession(t *testing.T) {
	f := newManagerFixture(t)
	f.addSession(t, "s1", "somehost")

	if err := f.manager.Activate(context.Background(), "somehost", "s1"); err != nil {
		t.Fatalf("activate: %v", err)
	}
	f.conns[0].push().StreamEnd()

	if _, _, ok := f.manager.Active(); ok {
		t.Fatalf("manager still bound after stream end")
	}
	if got := f.status(t, "s1"); got != domain.StatusDisconnected {
		t.Fatalf("status = %q, want disconnected", got)
	}
	if !f.conns[0].isClosed() {
		t.Fatalf("connection not closed after stream end")
	}
}

func TestTeardownPreservesExternalTerminalStatus(t *testing.T) {
	f := newManagerFixture(t)
	f.addSession(t, "s1", "somehost")

	if err := f.manager.Activate(context.Background(), "somehost", "s1"); err != nil {
		t.Fatalf("activate: %v", err)
	}
	// An external actor already marked the session; teardown must not
	// overwrite the terminal status it finds.
	if err := f.store.UpdateSessionStatus(context.Background(), "s1", domain.StatusError); err != nil {
		t.Fatalf("update status: %v", err)
	}
	f.manager.Teardown(context.Background())

	if got := f.status(t, "s1"); got != domain.StatusError {
		t.Fatalf("status = %q, teardown overwrote external terminal status", got)
	}
}

func TestTeardownIsIdempotent(t *testing.T) {
	f := newManagerFixture(t)
	f.addSession(t, "s1", "somehost")
	if err := f.manager.Activate(context.Background(), "somehost", "s1"); err != nil {
		t.Fatalf("activate: %v", err)
	}
	f.manager.Teardown(context.Background())
	f.manager.Teardown(context.Background())
	f.manager.TeardownSession(context.Background(), "s1")
	if _, _, ok := f.manager.Active(); ok {
		t.Fatalf("binding survived teardown")
	}
}

func TestSwitchResetsBattleState(t *testing.T) {
	f := newManagerFixture(t)
	f.addSession(t, "s1", "first")
	f.addSession(t, "s2", "second")

	if err := f.manager.Activate(context.Background(), "first", "s1"); err != nil {
		t.Fatalf("activate s1: %v", err)
	}
	f.conns[0].push().BattleStart(BattleStartEvent{Participants: []domain.Participant{
		{UserID: "1", Nickname: "alice"},
		{UserID: "2", Nickname: "bob"},
	}})
	if !f.battle.Snapshot().RoundStarted {
		t.Fatalf("round did not start")
	}

	if err := f.manager.Activate(context.Background(), "second", "s2"); err != nil {
		t.Fatalf("activate s2: %v", err)
	}
	s := f.battle.Snapshot()
	if s.RoundStarted || s.ParticipantA != nil {
		t.Fatalf("battle state leaked across sessions: %+v", s)
	}
}

func TestGiftEventsAreClassifiedWithSessionTargets(t *testing.T) {
	f := newManagerFixture(t)
	f.addSession(t, "s1", "somehost")
	f.store.SetGiftTargets("somehost", []domain.GiftTarget{
		{GiftID: 777, Names: []string{"Lucky Star"}, Value: 3},
	})

	if err := f.manager.Activate(context.Background(), "somehost", "s1"); err != nil {
		t.Fatalf("activate: %v", err)
	}
	h := f.conns[0].push()
	h.Gift(GiftEvent{GiftID: 777, GiftName: "Lucky Star", RepeatCount: 1, Sender: "fan"})
	h.Gift(GiftEvent{GiftID: 5281, GiftName: "Heart Me", RepeatCount: 1, Sender: "fan"})

	rows, _ := f.store.ListEvents(context.Background(), "s1", 0)
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0].Type != domain.EventTypeHeartMe {
		t.Fatalf("configured target typed %q, want heartme", rows[0].Type)
	}
	// The configured set replaces the default, so the default id is plain.
	if rows[1].Type != domain.EventTypeGift {
		t.Fatalf("default id typed %q with custom config, want gift", rows[1].Type)
	}
}
