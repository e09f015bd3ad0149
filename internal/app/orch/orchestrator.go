// Package orch is the single coordination point for all session, queue
// and room state. Every mutating operation runs under one mutex, so no
// two pairing decisions can observe the same waiting session and
// teardown is exactly-once. Nothing under the lock blocks: network
// sends go through non-blocking TrySend and store sinks are
// fire-and-forget channel offers.
package orch

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pairwire/pairwire/internal/app"
	"github.com/pairwire/pairwire/internal/core"
	"github.com/pairwire/pairwire/internal/domain"
	"github.com/pairwire/pairwire/internal/store"
)

type Orchestrator struct {
	mu        sync.Mutex
	directory *app.Directory
	queue     *app.MatchQueue
	rooms     *app.RoomRegistry

	audit    store.AuditSink   // optional
	messages store.MessageSink // optional

	now func() time.Time
}

func New() *Orchestrator {
	return &Orchestrator{
		directory: app.NewDirectory(),
		queue:     app.NewMatchQueue(),
		rooms:     app.NewRoomRegistry(),
		now:       time.Now,
	}
}

// WithSinks attaches the optional audit/history side channels.
func (o *Orchestrator) WithSinks(audit store.AuditSink, messages store.MessageSink) *Orchestrator {
	o.audit = audit
	o.messages = messages
	return o
}

// Connect registers a freshly authenticated connection as a session in
// CONNECTED state. The gateway guarantees sid is unique per connection.
func (o *Orchestrator) Connect(sid domain.SessionID, ident domain.Identity, conn core.SignalConnection) {
	o.mu.Lock()
	if _, ok := o.directory.Get(sid); ok {
		// Duplicate connection id; should not happen with uuid ids.
		log.Error().Str("module", "orch").Str("sid", string(sid)).Msg("duplicate session id, resetting old session")
		o.disconnectLocked(sid)
	}
	o.directory.Add(&app.Session{
		ID:          sid,
		Identity:    ident,
		State:       domain.StateConnected,
		ConnectedAt: o.now(),
		Conn:        conn,
	})
	o.mu.Unlock()

	log.Info().Str("module", "orch").Str("sid", string(sid)).Str("user", string(ident.ID)).Msg("session connected")
	o.recordAudit(store.AuditRecord{Kind: store.AuditConnected, SessionID: sid, At: o.now()})
}

// FindMatch pairs the session with a waiting partner or parks it in
// the queue. Pairing removes the partner from the queue and creates
// the room in the same serialized step.
func (o *Orchestrator) FindMatch(sid domain.SessionID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.findMatchLocked(sid)
}

func (o *Orchestrator) findMatchLocked(sid domain.SessionID) {
	s, ok := o.directory.Get(sid)
	if !ok {
		log.Warn().Str("module", "orch").Str("sid", string(sid)).Msg("find-match from unknown session")
		return
	}

	switch s.State {
	case domain.StateMatched:
		if _, ok := o.rooms.Get(s.RoomID); !ok {
			// Room reference points nowhere; reset the session and
			// let the request proceed as if idle.
			o.resetSessionLocked(s, "matched session without active room")
		} else {
			notify(s.Conn, core.AlreadyInRoomEvent{Type: core.EvAlreadyInRoom, RoomID: s.RoomID})
			return
		}
	case domain.StateWaiting:
		// Repeated find-match while queued is harmless.
		notify(s.Conn, core.WaitingEvent{Type: core.EvWaitingForMatch})
		return
	}

	partnerID, ok := o.queue.PopOther(sid)
	if !ok {
		o.queue.Add(sid)
		s.State = domain.StateWaiting
		notify(s.Conn, core.WaitingEvent{Type: core.EvWaitingForMatch})
		log.Info().Str("module", "orch").Str("sid", string(sid)).Msg("waiting for match")
		return
	}

	partner, ok := o.directory.Get(partnerID)
	if !ok || partner.State != domain.StateWaiting {
		// The queue held a session the directory no longer agrees is
		// waiting. Drop it and retry with whoever is left.
		log.Error().Str("module", "orch").Str("sid", string(partnerID)).Msg("stale queue entry")
		if ok {
			o.resetSessionLocked(partner, "queued session not in waiting state")
		}
		o.findMatchLocked(sid)
		return
	}

	// partner was already waiting, sid arrived second: sid initiates.
	room := o.rooms.Create(partnerID, sid)
	partner.State = domain.StateMatched
	partner.RoomID = room.ID
	s.State = domain.StateMatched
	s.RoomID = room.ID

	notify(partner.Conn, core.MatchedEvent{
		Type:        core.EvMatched,
		RoomID:      room.ID,
		PartnerID:   sid,
		Partner:     s.Identity,
		IsInitiator: false,
	})
	notify(s.Conn, core.MatchedEvent{
		Type:        core.EvMatched,
		RoomID:      room.ID,
		PartnerID:   partnerID,
		Partner:     partner.Identity,
		IsInitiator: true,
	})

	log.Info().Str("module", "orch").
		Str("room", string(room.ID)).
		Str("waiting", string(partnerID)).
		Str("initiator", string(sid)).
		Msg("matched")
	o.recordAudit(store.AuditRecord{Kind: store.AuditRoomCreated, SessionID: sid, RoomID: room.ID, At: o.now()})
}

// Skip closes the room on behalf of the skipper, notifies the partner
// and immediately re-queues the skipper. Idempotent: a second skip for
// the same room is a no-op.
func (o *Orchestrator) Skip(sid domain.SessionID, roomID domain.RoomID) {
	o.mu.Lock()
	defer o.mu.Unlock()

	s, ok := o.directory.Get(sid)
	if !ok {
		return
	}
	room, ok := o.rooms.Get(roomID)
	if !ok || !room.Has(sid) || s.RoomID != roomID {
		// Already cleaned up, or a room the session never belonged to.
		log.Debug().Str("module", "orch").Str("sid", string(sid)).Str("room", string(roomID)).Msg("skip ignored")
		return
	}

	o.closeRoomLocked(room, sid, core.EvPartnerSkipped)
	log.Info().Str("module", "orch").Str("sid", string(sid)).Str("room", string(roomID)).Msg("skipped")

	o.findMatchLocked(sid)
}

// Disconnect unwinds whatever state the session holds and destroys the
// record. Idempotent: a second call for the same sid is a no-op.
func (o *Orchestrator) Disconnect(sid domain.SessionID) {
	o.mu.Lock()
	gone := o.disconnectLocked(sid)
	o.mu.Unlock()

	if gone {
		log.Info().Str("module", "orch").Str("sid", string(sid)).Msg("session disconnected")
		o.recordAudit(store.AuditRecord{Kind: store.AuditDisconnected, SessionID: sid, At: o.now()})
	}
}

func (o *Orchestrator) disconnectLocked(sid domain.SessionID) bool {
	s, ok := o.directory.Get(sid)
	if !ok {
		return false
	}

	switch s.State {
	case domain.StateWaiting:
		o.queue.Remove(sid)
	case domain.StateMatched:
		if room, ok := o.rooms.Get(s.RoomID); ok && room.Has(sid) {
			o.closeRoomLocked(room, sid, core.EvPartnerDisconnected)
		}
	}
	o.directory.Remove(sid)
	return true
}

// closeRoomLocked tears the room down on behalf of leaver: the other
// member is notified with the reason event and released back to
// CONNECTED; the leaver's room reference is cleared but its next state
// is the caller's business (re-queue on skip, destroy on disconnect).
func (o *Orchestrator) closeRoomLocked(room *domain.Room, leaver domain.SessionID, reason string) {
	o.rooms.Remove(room.ID)

	if s, ok := o.directory.Get(leaver); ok {
		s.State = domain.StateConnected
		s.RoomID = ""
	}

	partnerID, _ := room.Other(leaver)
	if partner, ok := o.directory.Get(partnerID); ok {
		partner.State = domain.StateConnected
		partner.RoomID = ""
		notify(partner.Conn, core.PartnerGoneEvent{Type: reason, RoomID: room.ID})
	}

	o.recordAudit(store.AuditRecord{
		Kind:      store.AuditRoomClosed,
		SessionID: leaver,
		RoomID:    room.ID,
		Reason:    reason,
		At:        o.now(),
	})
}

// resetSessionLocked is the defensive guard for an observed invariant
// violation: detach the single affected session from queue and room
// references and put it back to CONNECTED. The rest of the system
// keeps running.
func (o *Orchestrator) resetSessionLocked(s *app.Session, cause string) {
	log.Error().Str("module", "orch").Str("sid", string(s.ID)).Str("cause", cause).Msg("state inconsistency, resetting session")
	o.queue.Remove(s.ID)
	s.State = domain.StateConnected
	s.RoomID = ""
}

// Stats is a read-only snapshot for the REST surface.
type Stats struct {
	Sessions int `json:"sessions"`
	Waiting  int `json:"waiting"`
	Rooms    int `json:"rooms"`
}

func (o *Orchestrator) Stats() Stats {
	o.mu.Lock()
	defer o.mu.Unlock()
	return Stats{
		Sessions: o.directory.Len(),
		Waiting:  o.queue.Len(),
		Rooms:    o.rooms.Len(),
	}
}

func (o *Orchestrator) recordAudit(r store.AuditRecord) {
	if o.audit != nil {
		o.audit.RecordAudit(r)
	}
}

// notify marshals and best-effort sends an event. TrySend never
// blocks; a full send buffer drops the event and the write pump's
// deadline handling will eventually tear the connection down.
func notify(conn core.SignalConnection, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Msg("marshal event")
		return
	}
	if err := conn.TrySend(core.Frame(b)); err != nil {
		log.Warn().Err(err).Str("module", "orch").Msg("send event")
	}
}
