package orch

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pairwire/pairwire/internal/core"
	"github.com/pairwire/pairwire/internal/domain"
	"github.com/pairwire/pairwire/internal/store"
)

// RunSweeper force-closes rooms older than maxAge every interval,
// bounding memory growth from missed or late disconnects. Blocks until
// ctx is done; run it on its own goroutine.
func (o *Orchestrator) RunSweeper(ctx context.Context, interval, maxAge time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := o.SweepStaleRooms(maxAge); n > 0 {
				log.Info().Str("module", "orch").Int("rooms", n).Msg("swept stale rooms")
			}
		}
	}
}

// SweepStaleRooms closes every room older than maxAge, notifying both
// members as if the partner disconnected, and returns how many rooms
// were closed.
func (o *Orchestrator) SweepStaleRooms(maxAge time.Duration) int {
	o.mu.Lock()
	defer o.mu.Unlock()

	stale := o.rooms.OlderThan(o.now().Add(-maxAge))
	for _, room := range stale {
		o.rooms.Remove(room.ID)
		for _, sid := range []domain.SessionID{room.MemberA, room.MemberB} {
			if s, ok := o.directory.Get(sid); ok {
				s.State = domain.StateConnected
				s.RoomID = ""
				notify(s.Conn, core.PartnerGoneEvent{Type: core.EvPartnerDisconnected, RoomID: room.ID})
			}
		}
		log.Warn().Str("module", "orch").Str("room", string(room.ID)).Time("created", room.CreatedAt).Msg("room exceeded max age")
		o.recordAudit(store.AuditRecord{
			Kind:   store.AuditRoomClosed,
			RoomID: room.ID,
			Reason: "stale",
			At:     o.now(),
		})
	}
	return len(stale)
}
