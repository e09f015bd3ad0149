// Package signal is the websocket adapter: it owns the transport
// (upgrade, pumps, buffered send) and translates wire envelopes into
// orchestrator calls. All state decisions live in the orchestrator.
package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/pairwire/pairwire/internal/app/orch"
	"github.com/pairwire/pairwire/internal/core"
	"github.com/pairwire/pairwire/internal/domain"
)

var ErrBackpressure = errors.New("backpressure")

// IdentityKey is the gin context key under which the auth middleware
// stores the verified identity.
const IdentityKey = "identity"

// Number of protocol violations tolerated per window before the
// connection is dropped as abusive.
const violationLimit = 20

type SignalWSController struct {
	Orch       *orch.Orchestrator
	ReadLimit  int64
	PingPeriod time.Duration
	SendBuffer int

	matchLimiter *SlidingLimiter
	violations   *SlidingLimiter
}

func NewSignalWSController(o *orch.Orchestrator, readLimit int64, pingPeriod time.Duration, sendBuffer int) *SignalWSController {
	if pingPeriod <= 0 {
		pingPeriod = 54 * time.Second
	}
	if sendBuffer <= 0 {
		sendBuffer = 32
	}
	return &SignalWSController{
		Orch:         o,
		ReadLimit:    readLimit,
		PingPeriod:   pingPeriod,
		SendBuffer:   sendBuffer,
		matchLimiter: NewSlidingLimiter(10, 10*time.Second),
		violations:   NewSlidingLimiter(violationLimit, time.Minute),
	}
}

type WsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal upgrades an authenticated request and registers the
// session. The auth middleware has already verified the credential; a
// request without an identity never reaches this point.
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	identVal, exists := c.Get(IdentityKey)
	ident, ok := identVal.(domain.Identity)
	if !exists || !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	if ctl.ReadLimit > 0 {
		ws.SetReadLimit(ctl.ReadLimit)
	}

	sid := domain.SessionID(uuid.NewString())
	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("user", string(ident.ID)).Msg("new WS connection")

	conn := &WsSignalConn{
		conn: ws,
		send: make(chan core.Frame, ctl.SendBuffer),
	}

	ctl.Orch.Connect(sid, ident, conn)
	ctx, cancel := context.WithCancel(ctx)

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cancel, sid, conn)
}
