package domain

import "time"

type RoomID string

// Room is an ephemeral pairing of exactly two sessions. Initiator is
// the member responsible for creating the WebRTC offer; the rule is
// fixed: the session whose match request completed the pair initiates,
// the session that was already waiting does not.
type Room struct {
	ID        RoomID
	MemberA   SessionID // already waiting when the pair formed
	MemberB   SessionID // arrived second; the initiator
	CreatedAt time.Time
	Active    bool
}

// Other returns the room mate of sid.
func (r *Room) Other(sid SessionID) (SessionID, bool) {
	switch sid {
	case r.MemberA:
		return r.MemberB, true
	case r.MemberB:
		return r.MemberA, true
	default:
		return "", false
	}
}

// Has reports whether sid is a member of the room.
func (r *Room) Has(sid SessionID) bool {
	return sid == r.MemberA || sid == r.MemberB
}

// Initiator reports whether sid is the offering side.
func (r *Room) Initiator(sid SessionID) bool {
	return sid == r.MemberB
}
