package signal

import (
	"encoding/json"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/pairwire/pairwire/internal/app/orch"
	"github.com/pairwire/pairwire/internal/domain"
)

// handleSDP validates a webrtc-offer / webrtc-answer envelope and
// relays the description verbatim. The SDP body is opaque here; only
// shape is checked.
func (ctl *SignalWSController) handleSDP(sid domain.SessionID, c *WsSignalConn, msgType string, data []byte) bool {
	type sdpPayload struct {
		Type   string                    `json:"type"`
		RoomID domain.RoomID             `json:"roomId"`
		Offer  webrtc.SessionDescription `json:"offer"`
		Answer webrtc.SessionDescription `json:"answer"`
	}
	var p sdpPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("bad sdp payload")
		return ctl.violation(sid, c, "bad_payload")
	}

	sig := orch.Signal{Kind: orch.SignalOffer, SDP: p.Offer}
	if msgType == "webrtc-answer" {
		sig = orch.Signal{Kind: orch.SignalAnswer, SDP: p.Answer}
	}
	if p.RoomID == "" || sig.SDP.SDP == "" {
		return ctl.violation(sid, c, "bad_payload")
	}
	return ctl.relay(sid, c, p.RoomID, sig)
}

func (ctl *SignalWSController) handleCandidate(sid domain.SessionID, c *WsSignalConn, data []byte) bool {
	type candidatePayload struct {
		Type      string                  `json:"type"`
		RoomID    domain.RoomID           `json:"roomId"`
		Candidate webrtc.ICECandidateInit `json:"candidate"`
	}
	var p candidatePayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("bad candidate payload")
		return ctl.violation(sid, c, "bad_payload")
	}
	if p.RoomID == "" || p.Candidate.Candidate == "" {
		return ctl.violation(sid, c, "bad_payload")
	}
	return ctl.relay(sid, c, p.RoomID, orch.Signal{Kind: orch.SignalICECandidate, Candidate: p.Candidate})
}

// relay hands the validated signal to the orchestrator; rejections are
// protocol violations reported to the sender only.
func (ctl *SignalWSController) relay(sid domain.SessionID, c *WsSignalConn, roomID domain.RoomID, sig orch.Signal) bool {
	if err := ctl.Orch.Relay(sid, roomID, sig); err != nil {
		log.Warn().Err(err).Str("module", "signal").
			Str("sid", string(sid)).
			Str("room", string(roomID)).
			Str("kind", string(sig.Kind)).
			Msg("relay rejected")
		return ctl.violation(sid, c, err.Error())
	}
	return true
}
