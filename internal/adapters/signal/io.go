package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/pairwire/pairwire/internal/domain"
)

func (ctl *SignalWSController) writePump(ctx context.Context, c *WsSignalConn) {
	ticker := time.NewTicker(ctl.PingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump reads envelopes for the life of the connection. On exit the
// disconnect path runs exactly once; it is idempotent on the
// orchestrator side anyway.
func (ctl *SignalWSController) readPump(ctx context.Context, cancel context.CancelFunc, sid domain.SessionID, c *WsSignalConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump closing")
		ctl.Orch.Disconnect(sid)
		ctl.matchLimiter.Forget(sid)
		ctl.violations.Forget(sid)
		cancel()
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("readPump read error")
				}
				return
			}
			if !ctl.dispatch(sid, c, data) {
				return
			}
		}
	}
}

// dispatch routes one client envelope. Returns false when the
// connection should be dropped (abusive violation rate).
func (ctl *SignalWSController) dispatch(sid domain.SessionID, c *WsSignalConn, data []byte) bool {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("bad json")
		return ctl.violation(sid, c, "bad_payload")
	}

	switch env.Type {
	case "ping":
		ctl.handlePing(c)
	case "find-match":
		ctl.handleFindMatch(sid, c)
	case "skip-user":
		return ctl.handleSkip(sid, c, data)
	case "webrtc-offer", "webrtc-answer":
		return ctl.handleSDP(sid, c, env.Type, data)
	case "webrtc-ice-candidate":
		return ctl.handleCandidate(sid, c, data)
	case "chat-message":
		return ctl.handleChat(sid, c, data)
	case "toggle-camera", "toggle-mic":
		return ctl.handleToggle(sid, c, env.Type, data)
	default:
		log.Warn().Str("module", "signal").Str("sid", string(sid)).Str("type", env.Type).Msg("unknown signal")
		return ctl.violation(sid, c, "unknown_type")
	}
	return true
}

// violation reports a protocol violation to the sender only. Nothing
// is delivered anywhere else; recurring abuse drops the connection.
func (ctl *SignalWSController) violation(sid domain.SessionID, c *WsSignalConn, reason string) bool {
	ctl.sendJSON(c, map[string]any{
		"type":  "error",
		"error": reason,
	})
	if !ctl.violations.Allow(sid) {
		log.Warn().Str("module", "signal").Str("sid", string(sid)).Msg("dropping abusive connection")
		return false
	}
	return true
}

func (ctl *SignalWSController) sendJSON(c *WsSignalConn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(b)
}
