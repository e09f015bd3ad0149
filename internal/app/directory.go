package app

import (
	"time"

	"github.com/pairwire/pairwire/internal/core"
	"github.com/pairwire/pairwire/internal/domain"
)

// Session is the server-side record of one authenticated participant.
// Identity and transport are separate: the Session carries a stable id
// and lifecycle state and merely holds the current transport handle.
type Session struct {
	ID          domain.SessionID
	Identity    domain.Identity
	State       domain.SessionState
	RoomID      domain.RoomID // set only while MATCHED
	CameraOn    bool          // mirrored for relay/display, not authoritative
	MicOn       bool
	ConnectedAt time.Time

	Conn core.SignalConnection
}

// Directory is the process-wide table of active sessions. It is not
// safe for concurrent use: the orchestrator serializes every access
// under its coordination lock.
type Directory struct {
	sessions map[domain.SessionID]*Session
}

func NewDirectory() *Directory {
	return &Directory{sessions: make(map[domain.SessionID]*Session)}
}

func (d *Directory) Add(s *Session) {
	d.sessions[s.ID] = s
}

func (d *Directory) Get(sid domain.SessionID) (*Session, bool) {
	s, ok := d.sessions[sid]
	return s, ok
}

func (d *Directory) Remove(sid domain.SessionID) {
	delete(d.sessions, sid)
}

func (d *Directory) Len() int { return len(d.sessions) }

// CountByState reports how many sessions are in each lifecycle state.
func (d *Directory) CountByState() map[domain.SessionState]int {
	out := make(map[domain.SessionState]int, 3)
	for _, s := range d.sessions {
		out[s.State]++
	}
	return out
}
