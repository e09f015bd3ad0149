package domain

type SessionID string

// SessionState is the lifecycle of one connected participant.
//
//	CONNECTED — authenticated, idle
//	WAITING   — parked in the match queue
//	MATCHED   — member of exactly one active room
type SessionState int

const (
	StateConnected SessionState = iota
	StateWaiting
	StateMatched
)

func (s SessionState) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateWaiting:
		return "waiting"
	case StateMatched:
		return "matched"
	default:
		return "unknown"
	}
}
