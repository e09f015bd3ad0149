package core

import (
	"github.com/pion/webrtc/v4"

	"github.com/pairwire/pairwire/internal/domain"
)

// Server → client event names.
const (
	EvMatched             = "matched"
	EvWaitingForMatch     = "waiting-for-match"
	EvAlreadyInRoom       = "already-in-room"
	EvPartnerSkipped      = "partner-skipped"
	EvPartnerDisconnected = "partner-disconnected"
	EvWebRTCOffer         = "webrtc-offer"
	EvWebRTCAnswer        = "webrtc-answer"
	EvWebRTCICECandidate  = "webrtc-ice-candidate"
	EvChatMessage         = "chat-message"
	EvPartnerCameraToggle = "partner-camera-toggle"
	EvPartnerMicToggle    = "partner-mic-toggle"
)

type MatchedEvent struct {
	Type        string           `json:"type"`
	RoomID      domain.RoomID    `json:"roomId"`
	PartnerID   domain.SessionID `json:"partnerId"`
	Partner     domain.Identity  `json:"partner"`
	IsInitiator bool             `json:"isInitiator"`
}

type WaitingEvent struct {
	Type string `json:"type"`
}

type AlreadyInRoomEvent struct {
	Type   string        `json:"type"`
	RoomID domain.RoomID `json:"roomId"`
}

// PartnerGoneEvent covers both partner-skipped and partner-disconnected.
type PartnerGoneEvent struct {
	Type   string        `json:"type"`
	RoomID domain.RoomID `json:"roomId"`
}

type OfferEvent struct {
	Type  string                    `json:"type"`
	Offer webrtc.SessionDescription `json:"offer"`
	From  domain.SessionID          `json:"from"`
}

type AnswerEvent struct {
	Type   string                    `json:"type"`
	Answer webrtc.SessionDescription `json:"answer"`
	From   domain.SessionID          `json:"from"`
}

type ICECandidateEvent struct {
	Type      string                  `json:"type"`
	Candidate webrtc.ICECandidateInit `json:"candidate"`
	From      domain.SessionID        `json:"from"`
}

type ChatMessageEvent struct {
	Type      string           `json:"type"`
	Message   string           `json:"message"`
	From      domain.SessionID `json:"from"`
	Timestamp int64            `json:"timestamp"`
}

type ToggleEvent struct {
	Type string           `json:"type"`
	IsOn bool             `json:"isOn"`
	From domain.SessionID `json:"from"`
}
