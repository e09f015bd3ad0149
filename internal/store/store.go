// Package store holds the write-only side channels to the durable
// collaborators (session audit trail, chat history). Writes are
// fire-and-forget observations: they never gate signaling delivery and
// never run under the coordination lock.
package store

import (
	"time"

	"github.com/pairwire/pairwire/internal/domain"
)

type AuditKind string

const (
	AuditConnected    AuditKind = "connected"
	AuditDisconnected AuditKind = "disconnected"
	AuditRoomCreated  AuditKind = "room-created"
	AuditRoomClosed   AuditKind = "room-closed"
)

type AuditRecord struct {
	Kind      AuditKind
	SessionID domain.SessionID
	RoomID    domain.RoomID
	Reason    string
	At        time.Time
}

type ChatRecord struct {
	RoomID  domain.RoomID
	From    domain.SessionID
	Message string
	At      time.Time
}

// AuditSink receives connect/disconnect/room-lifecycle records.
type AuditSink interface {
	RecordAudit(AuditRecord)
}

// MessageSink receives chat messages for history.
type MessageSink interface {
	RecordMessage(ChatRecord)
}
