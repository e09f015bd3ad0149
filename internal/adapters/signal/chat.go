package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/pairwire/pairwire/internal/app/orch"
	"github.com/pairwire/pairwire/internal/domain"
)

const maxChatMessageLen = 2000

func (ctl *SignalWSController) handleChat(sid domain.SessionID, c *WsSignalConn, data []byte) bool {
	type chatPayload struct {
		Type    string        `json:"type"`
		RoomID  domain.RoomID `json:"roomId"`
		Message string        `json:"message"`
	}
	var p chatPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("bad chat payload")
		return ctl.violation(sid, c, "bad_payload")
	}
	if p.RoomID == "" || p.Message == "" || len(p.Message) > maxChatMessageLen {
		return ctl.violation(sid, c, "bad_payload")
	}
	return ctl.relay(sid, c, p.RoomID, orch.Signal{Kind: orch.SignalChatMessage, Message: p.Message})
}

func (ctl *SignalWSController) handleToggle(sid domain.SessionID, c *WsSignalConn, msgType string, data []byte) bool {
	type togglePayload struct {
		Type   string        `json:"type"`
		RoomID domain.RoomID `json:"roomId"`
		IsOn   bool          `json:"isOn"`
	}
	var p togglePayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("bad toggle payload")
		return ctl.violation(sid, c, "bad_payload")
	}
	if p.RoomID == "" {
		return ctl.violation(sid, c, "bad_payload")
	}

	kind := orch.SignalCameraToggle
	if msgType == "toggle-mic" {
		kind = orch.SignalMicToggle
	}
	return ctl.relay(sid, c, p.RoomID, orch.Signal{Kind: kind, IsOn: p.IsOn})
}
