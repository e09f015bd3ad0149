package orch

import (
	"errors"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/pairwire/pairwire/internal/core"
	"github.com/pairwire/pairwire/internal/domain"
	"github.com/pairwire/pairwire/internal/store"
)

var (
	ErrRoomNotFound  = errors.New("room not found")
	ErrNotRoomMember = errors.New("not a room member")
	ErrUnknownSignal = errors.New("unknown signal kind")
)

type SignalKind string

const (
	SignalOffer        SignalKind = "offer"
	SignalAnswer       SignalKind = "answer"
	SignalICECandidate SignalKind = "iceCandidate"
	SignalChatMessage  SignalKind = "chatMessage"
	SignalCameraToggle SignalKind = "cameraToggle"
	SignalMicToggle    SignalKind = "micToggle"
)

// Signal is the closed union of payloads the relay forwards. Exactly
// the field matching Kind is meaningful; the adapter validates payload
// shape before building one.
type Signal struct {
	Kind      SignalKind
	SDP       webrtc.SessionDescription // offer, answer
	Candidate webrtc.ICECandidateInit   // iceCandidate
	Message   string                    // chatMessage
	IsOn      bool                      // cameraToggle, micToggle
}

// Relay forwards a room-scoped signal to the sender's partner. The
// payload is passed through untouched, tagged with the sender id. A
// sender that is not a current member of an active roomID gets an
// error and nothing is delivered to anyone.
//
// Per-sender ordering is preserved end to end: each connection's read
// pump calls Relay sequentially and the partner's send buffer is
// drained by a single write pump.
func (o *Orchestrator) Relay(sid domain.SessionID, roomID domain.RoomID, sig Signal) error {
	o.mu.Lock()

	s, ok := o.directory.Get(sid)
	if !ok {
		o.mu.Unlock()
		return ErrNotRoomMember
	}
	room, ok := o.rooms.Get(roomID)
	if !ok {
		o.mu.Unlock()
		return ErrRoomNotFound
	}
	if !room.Has(sid) || s.RoomID != roomID {
		o.mu.Unlock()
		return ErrNotRoomMember
	}

	partnerID, _ := room.Other(sid)
	partner, ok := o.directory.Get(partnerID)
	if !ok {
		// Membership says the partner exists but the directory
		// disagrees; close out the orphaned room.
		o.closeRoomLocked(room, partnerID, core.EvPartnerDisconnected)
		o.mu.Unlock()
		log.Error().Str("module", "orch").Str("room", string(roomID)).Str("sid", string(partnerID)).Msg("room member missing from directory")
		return ErrRoomNotFound
	}

	switch sig.Kind {
	case SignalOffer:
		notify(partner.Conn, core.OfferEvent{Type: core.EvWebRTCOffer, Offer: sig.SDP, From: sid})
	case SignalAnswer:
		notify(partner.Conn, core.AnswerEvent{Type: core.EvWebRTCAnswer, Answer: sig.SDP, From: sid})
	case SignalICECandidate:
		notify(partner.Conn, core.ICECandidateEvent{Type: core.EvWebRTCICECandidate, Candidate: sig.Candidate, From: sid})
	case SignalChatMessage:
		ts := o.now().UnixMilli()
		notify(partner.Conn, core.ChatMessageEvent{Type: core.EvChatMessage, Message: sig.Message, From: sid, Timestamp: ts})
		if o.messages != nil {
			o.messages.RecordMessage(store.ChatRecord{RoomID: roomID, From: sid, Message: sig.Message, At: o.now()})
		}
	case SignalCameraToggle:
		s.CameraOn = sig.IsOn
		notify(partner.Conn, core.ToggleEvent{Type: core.EvPartnerCameraToggle, IsOn: sig.IsOn, From: sid})
	case SignalMicToggle:
		s.MicOn = sig.IsOn
		notify(partner.Conn, core.ToggleEvent{Type: core.EvPartnerMicToggle, IsOn: sig.IsOn, From: sid})
	default:
		o.mu.Unlock()
		return ErrUnknownSignal
	}

	o.mu.Unlock()
	return nil
}
