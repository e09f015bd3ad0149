package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/pairwire/pairwire/internal/domain"
)

func (ctl *SignalWSController) handleFindMatch(sid domain.SessionID, c *WsSignalConn) {
	if !ctl.matchLimiter.Allow(sid) {
		log.Warn().Str("module", "signal").Str("sid", string(sid)).Msg("find-match rate limited")
		ctl.sendJSON(c, map[string]any{
			"type":  "error",
			"error": "too_many_requests",
		})
		return
	}
	ctl.Orch.FindMatch(sid)
}

func (ctl *SignalWSController) handleSkip(sid domain.SessionID, c *WsSignalConn, data []byte) bool {
	type skipPayload struct {
		Type   string        `json:"type"`
		RoomID domain.RoomID `json:"roomId"`
	}
	var p skipPayload
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == "" {
		log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("bad skip payload")
		return ctl.violation(sid, c, "bad_payload")
	}
	if !ctl.matchLimiter.Allow(sid) {
		log.Warn().Str("module", "signal").Str("sid", string(sid)).Msg("skip rate limited")
		ctl.sendJSON(c, map[string]any{
			"type":  "error",
			"error": "too_many_requests",
		})
		return true
	}
	ctl.Orch.Skip(sid, p.RoomID)
	return true
}
