package app

import (
	"time"

	"github.com/google/uuid"

	"github.com/pairwire/pairwire/internal/domain"
)

// RoomRegistry is the table of active rooms. Not self-locking; owned
// by the orchestrator.
type RoomRegistry struct {
	rooms map[domain.RoomID]*domain.Room
	now   func() time.Time
}

func NewRoomRegistry() *RoomRegistry {
	return &RoomRegistry{
		rooms: make(map[domain.RoomID]*domain.Room),
		now:   time.Now,
	}
}

// Create registers a fresh active room pairing waiting session a with
// newly-arrived session b. b is the initiator (fixed rule: the session
// whose match request completed the pair creates the offer).
func (r *RoomRegistry) Create(a, b domain.SessionID) *domain.Room {
	room := &domain.Room{
		ID:        domain.RoomID(uuid.NewString()),
		MemberA:   a,
		MemberB:   b,
		CreatedAt: r.now(),
		Active:    true,
	}
	r.rooms[room.ID] = room
	return room
}

// Get returns the active room with the given id.
func (r *RoomRegistry) Get(id domain.RoomID) (*domain.Room, bool) {
	room, ok := r.rooms[id]
	if !ok || !room.Active {
		return nil, false
	}
	return room, true
}

// Remove marks the room inactive and drops it from the table.
// Safe to call for an already-removed id.
func (r *RoomRegistry) Remove(id domain.RoomID) {
	if room, ok := r.rooms[id]; ok {
		room.Active = false
		delete(r.rooms, id)
	}
}

func (r *RoomRegistry) Len() int { return len(r.rooms) }

// OlderThan returns rooms created before the cutoff; used by the
// staleness sweep to bound memory growth from missed disconnects.
func (r *RoomRegistry) OlderThan(cutoff time.Time) []*domain.Room {
	var stale []*domain.Room
	for _, room := range r.rooms {
		if room.CreatedAt.Before(cutoff) {
			stale = append(stale, room)
		}
	}
	return stale
}
