package orch

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/pairwire/pairwire/internal/core"
	"github.com/pairwire/pairwire/internal/domain"
	"github.com/pairwire/pairwire/internal/store"
)

// fakeConn records every frame sent to a session.
type fakeConn struct {
	mu     sync.Mutex
	frames []core.Frame
}

func (c *fakeConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, f)
	return nil
}

func (c *fakeConn) Close() {}

func (c *fakeConn) events(t *testing.T) []map[string]any {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]map[string]any, 0, len(c.frames))
	for _, f := range c.frames {
		var m map[string]any
		if err := json.Unmarshal(f, &m); err != nil {
			t.Fatalf("bad frame %q: %v", f, err)
		}
		out = append(out, m)
	}
	return out
}

func (c *fakeConn) countType(t *testing.T, typ string) int {
	t.Helper()
	n := 0
	for _, ev := range c.events(t) {
		if ev["type"] == typ {
			n++
		}
	}
	return n
}

func (c *fakeConn) last(t *testing.T) map[string]any {
	t.Helper()
	evs := c.events(t)
	if len(evs) == 0 {
		t.Fatal("no events")
	}
	return evs[len(evs)-1]
}

func connect(o *Orchestrator, sid domain.SessionID) *fakeConn {
	conn := &fakeConn{}
	ident, _ := domain.NewIdentity(domain.UserID("u-"+sid), "user-"+string(sid))
	o.Connect(sid, ident, conn)
	return conn
}

func roomOf(t *testing.T, ev map[string]any) domain.RoomID {
	t.Helper()
	id, ok := ev["roomId"].(string)
	if !ok || id == "" {
		t.Fatalf("event %v has no roomId", ev)
	}
	return domain.RoomID(id)
}

func TestMatchScenario(t *testing.T) {
	o := New()
	c1 := connect(o, "s1")
	c2 := connect(o, "s2")

	o.FindMatch("s1")
	if got := c1.last(t)["type"]; got != core.EvWaitingForMatch {
		t.Fatalf("s1 got %v, want waiting-for-match", got)
	}

	o.FindMatch("s2")

	m1 := c1.last(t)
	m2 := c2.last(t)
	if m1["type"] != core.EvMatched || m2["type"] != core.EvMatched {
		t.Fatalf("events = %v / %v, want matched for both", m1, m2)
	}
	if roomOf(t, m1) != roomOf(t, m2) {
		t.Error("members see different room ids")
	}
	if m1["partnerId"] != "s2" || m2["partnerId"] != "s1" {
		t.Errorf("partner ids = %v / %v", m1["partnerId"], m2["partnerId"])
	}
	// s1 was waiting, s2 arrived second: s2 initiates.
	if m1["isInitiator"] != false || m2["isInitiator"] != true {
		t.Errorf("initiator flags = %v / %v", m1["isInitiator"], m2["isInitiator"])
	}

	roomID := roomOf(t, m1)
	if err := o.Relay("s1", roomID, Signal{Kind: SignalChatMessage, Message: "hi"}); err != nil {
		t.Fatalf("Relay: %v", err)
	}
	chat := c2.last(t)
	if chat["type"] != core.EvChatMessage || chat["message"] != "hi" || chat["from"] != "s1" {
		t.Fatalf("chat event = %v", chat)
	}
	if _, ok := chat["timestamp"].(float64); !ok {
		t.Error("chat event missing timestamp")
	}

	o.Disconnect("s2")
	if got := c1.last(t)["type"]; got != core.EvPartnerDisconnected {
		t.Fatalf("s1 got %v, want partner-disconnected", got)
	}

	// s1 returns to idle, not auto re-queued.
	st := o.Stats()
	if st.Sessions != 1 || st.Waiting != 0 || st.Rooms != 0 {
		t.Errorf("stats = %+v, want 1 session, 0 waiting, 0 rooms", st)
	}
}

func TestFindMatch_AlreadyInRoom(t *testing.T) {
	o := New()
	c1 := connect(o, "s1")
	connect(o, "s2")
	o.FindMatch("s1")
	o.FindMatch("s2")
	roomID := roomOf(t, c1.last(t))

	o.FindMatch("s1")
	ev := c1.last(t)
	if ev["type"] != core.EvAlreadyInRoom || roomOf(t, ev) != roomID {
		t.Fatalf("event = %v, want already-in-room for %s", ev, roomID)
	}
	if st := o.Stats(); st.Rooms != 1 {
		t.Errorf("rooms = %d, existing state must be untouched", st.Rooms)
	}
}

func TestFindMatch_RepeatedWhileWaiting(t *testing.T) {
	o := New()
	c1 := connect(o, "s1")
	o.FindMatch("s1")
	o.FindMatch("s1")

	if n := c1.countType(t, core.EvWaitingForMatch); n != 2 {
		t.Errorf("waiting-for-match count = %d, want 2", n)
	}
	if st := o.Stats(); st.Waiting != 1 {
		t.Errorf("waiting = %d, session queued twice?", st.Waiting)
	}
}

func TestSkip(t *testing.T) {
	o := New()
	c1 := connect(o, "s1")
	c2 := connect(o, "s2")
	o.FindMatch("s1")
	o.FindMatch("s2")
	roomID := roomOf(t, c1.last(t))

	o.Skip("s1", roomID)

	if n := c2.countType(t, core.EvPartnerSkipped); n != 1 {
		t.Errorf("partner-skipped count for s2 = %d, want 1", n)
	}
	if n := c1.countType(t, core.EvPartnerSkipped); n != 0 {
		t.Errorf("skipper received %d partner-skipped events about itself", n)
	}
	// Skipper is re-queued, partner is not.
	if got := c1.last(t)["type"]; got != core.EvWaitingForMatch {
		t.Errorf("s1 got %v, want waiting-for-match", got)
	}
	st := o.Stats()
	if st.Rooms != 0 || st.Waiting != 1 {
		t.Errorf("stats = %+v, want room destroyed and one waiting", st)
	}

	// Second skip for the same room is a no-op.
	o.Skip("s1", roomID)
	if n := c2.countType(t, core.EvPartnerSkipped); n != 1 {
		t.Errorf("duplicate skip produced %d notifications", n)
	}

	// A new arrival pairs with the re-queued skipper.
	c3 := connect(o, "s3")
	o.FindMatch("s3")
	if c1.last(t)["type"] != core.EvMatched || c3.last(t)["type"] != core.EvMatched {
		t.Error("re-queued skipper did not pair with new arrival")
	}
	// s3 completed the pair: s3 initiates.
	if c3.last(t)["isInitiator"] != true {
		t.Error("new arrival must be the initiator")
	}
}

func TestDisconnect_Waiting(t *testing.T) {
	o := New()
	connect(o, "s1")
	o.FindMatch("s1")
	o.Disconnect("s1")

	if st := o.Stats(); st.Waiting != 0 || st.Sessions != 0 {
		t.Fatalf("stats = %+v, want empty", st)
	}

	// s1 must never be selected by a later pairing attempt.
	c2 := connect(o, "s2")
	o.FindMatch("s2")
	if got := c2.last(t)["type"]; got != core.EvWaitingForMatch {
		t.Fatalf("s2 got %v, want waiting-for-match", got)
	}
}

func TestDisconnect_Idempotent(t *testing.T) {
	o := New()
	connect(o, "s1")
	c2 := connect(o, "s2")
	o.FindMatch("s1")
	o.FindMatch("s2")

	o.Disconnect("s1")
	o.Disconnect("s1")

	if n := c2.countType(t, core.EvPartnerDisconnected); n != 1 {
		t.Errorf("partner-disconnected count = %d, want exactly 1", n)
	}
}

func TestRelay_CrossRoomRejected(t *testing.T) {
	o := New()
	c1 := connect(o, "s1")
	c2 := connect(o, "s2")
	connect(o, "s3")
	o.FindMatch("s1")
	o.FindMatch("s2")
	roomID := roomOf(t, c1.last(t))

	before1 := len(c1.events(t))
	before2 := len(c2.events(t))

	err := o.Relay("s3", roomID, Signal{Kind: SignalOffer})
	if !errors.Is(err, ErrNotRoomMember) {
		t.Fatalf("Relay err = %v, want ErrNotRoomMember", err)
	}
	if len(c1.events(t)) != before1 || len(c2.events(t)) != before2 {
		t.Error("rejected relay leaked to room members")
	}
}

func TestRelay_UnknownRoom(t *testing.T) {
	o := New()
	connect(o, "s1")
	if err := o.Relay("s1", "no-such-room", Signal{Kind: SignalOffer}); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("Relay err = %v, want ErrRoomNotFound", err)
	}
}

func TestRelay_SignalKinds(t *testing.T) {
	o := New()
	c1 := connect(o, "s1")
	connect(o, "s2")
	o.FindMatch("s1")
	o.FindMatch("s2")
	roomID := roomOf(t, c1.last(t))

	cases := []struct {
		sig      Signal
		wantType string
	}{
		{Signal{Kind: SignalOffer}, core.EvWebRTCOffer},
		{Signal{Kind: SignalAnswer}, core.EvWebRTCAnswer},
		{Signal{Kind: SignalICECandidate}, core.EvWebRTCICECandidate},
		{Signal{Kind: SignalCameraToggle, IsOn: true}, core.EvPartnerCameraToggle},
		{Signal{Kind: SignalMicToggle, IsOn: false}, core.EvPartnerMicToggle},
	}
	for _, tc := range cases {
		if err := o.Relay("s2", roomID, tc.sig); err != nil {
			t.Fatalf("Relay(%s): %v", tc.sig.Kind, err)
		}
		ev := c1.last(t)
		if ev["type"] != tc.wantType {
			t.Errorf("relayed %s, partner saw %v", tc.sig.Kind, ev["type"])
		}
		if ev["from"] != "s2" {
			t.Errorf("%s tagged from %v, want s2", tc.sig.Kind, ev["from"])
		}
	}

	if err := o.Relay("s2", roomID, Signal{Kind: "bogus"}); !errors.Is(err, ErrUnknownSignal) {
		t.Errorf("bogus kind err = %v, want ErrUnknownSignal", err)
	}

	// Toggle state is mirrored on the sender's session.
	o.mu.Lock()
	s2, _ := o.directory.Get("s2")
	camera, mic := s2.CameraOn, s2.MicOn
	o.mu.Unlock()
	if !camera || mic {
		t.Errorf("mirror flags camera=%v mic=%v, want true/false", camera, mic)
	}
}

type captureSink struct {
	mu    sync.Mutex
	chats []store.ChatRecord
}

func (s *captureSink) RecordAudit(store.AuditRecord) {}
func (s *captureSink) RecordMessage(r store.ChatRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chats = append(s.chats, r)
}

func TestRelay_ChatHistorySink(t *testing.T) {
	sink := &captureSink{}
	o := New().WithSinks(sink, sink)
	c1 := connect(o, "s1")
	connect(o, "s2")
	o.FindMatch("s1")
	o.FindMatch("s2")
	roomID := roomOf(t, c1.last(t))

	if err := o.Relay("s2", roomID, Signal{Kind: SignalChatMessage, Message: "hello"}); err != nil {
		t.Fatalf("Relay: %v", err)
	}
	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.chats) != 1 || sink.chats[0].Message != "hello" || sink.chats[0].RoomID != roomID {
		t.Fatalf("sink chats = %+v", sink.chats)
	}
}

func TestSweepStaleRooms(t *testing.T) {
	o := New()
	c1 := connect(o, "s1")
	c2 := connect(o, "s2")
	o.FindMatch("s1")
	o.FindMatch("s2")
	roomID := roomOf(t, c1.last(t))

	// Fresh room survives the sweep.
	if n := o.SweepStaleRooms(time.Hour); n != 0 {
		t.Fatalf("swept %d fresh rooms", n)
	}

	o.mu.Lock()
	room, ok := o.rooms.Get(roomID)
	if !ok {
		o.mu.Unlock()
		t.Fatal("room missing")
	}
	room.CreatedAt = time.Now().Add(-2 * time.Hour)
	o.mu.Unlock()

	if n := o.SweepStaleRooms(time.Hour); n != 1 {
		t.Fatalf("swept %d rooms, want 1", n)
	}
	if c1.countType(t, core.EvPartnerDisconnected) != 1 || c2.countType(t, core.EvPartnerDisconnected) != 1 {
		t.Error("both members must be notified once")
	}
	st := o.Stats()
	if st.Rooms != 0 || st.Waiting != 0 || st.Sessions != 2 {
		t.Errorf("stats = %+v, want sessions back to idle", st)
	}
}

func TestConcurrentFindMatch_ExclusivePairing(t *testing.T) {
	o := New()
	const n = 40 // even, so everyone pairs

	sids := make([]domain.SessionID, n)
	for i := range sids {
		sids[i] = domain.SessionID(fmt.Sprintf("s%03d", i))
		connect(o, sids[i])
	}

	var wg sync.WaitGroup
	for _, sid := range sids {
		wg.Add(1)
		go func(sid domain.SessionID) {
			defer wg.Done()
			o.FindMatch(sid)
		}(sid)
	}
	wg.Wait()

	st := o.Stats()
	if st.Rooms != n/2 || st.Waiting != 0 {
		t.Fatalf("stats = %+v, want %d rooms and nobody waiting", st, n/2)
	}

	// No session id may appear in two rooms, every room has two
	// distinct matched members pointing back at it.
	o.mu.Lock()
	defer o.mu.Unlock()
	seen := make(map[domain.SessionID]bool)
	for _, sid := range sids {
		s, ok := o.directory.Get(sid)
		if !ok || s.State != domain.StateMatched {
			t.Fatalf("session %s not matched", sid)
		}
		room, ok := o.rooms.Get(s.RoomID)
		if !ok || !room.Has(sid) {
			t.Fatalf("session %s room ref broken", sid)
		}
		if room.MemberA == room.MemberB {
			t.Fatalf("room %s has duplicate members", room.ID)
		}
		if seen[sid] {
			t.Fatalf("session %s counted twice", sid)
		}
		seen[sid] = true
	}
}
