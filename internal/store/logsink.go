package store

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// LogSink is the default AuditSink/MessageSink: it journals records
// through the structured log from a single drain goroutine. Enqueue
// never blocks; when the buffer is full the record is dropped, because
// history is an observation, not a delivery precondition.
type LogSink struct {
	records chan any
	done    chan struct{}
	once    sync.Once
}

func NewLogSink(buffer int) *LogSink {
	s := &LogSink{
		records: make(chan any, buffer),
		done:    make(chan struct{}),
	}
	go s.drain()
	return s
}

func (s *LogSink) RecordAudit(r AuditRecord)  { s.offer(r) }
func (s *LogSink) RecordMessage(r ChatRecord) { s.offer(r) }

func (s *LogSink) offer(r any) {
	select {
	case s.records <- r:
	default:
		log.Warn().Str("module", "store").Msg("sink buffer full, record dropped")
	}
}

func (s *LogSink) drain() {
	defer close(s.done)
	for r := range s.records {
		switch rec := r.(type) {
		case AuditRecord:
			log.Info().Str("module", "store").
				Str("kind", string(rec.Kind)).
				Str("sid", string(rec.SessionID)).
				Str("room", string(rec.RoomID)).
				Str("reason", rec.Reason).
				Time("at", rec.At).
				Msg("audit")
		case ChatRecord:
			log.Info().Str("module", "store").
				Str("room", string(rec.RoomID)).
				Str("from", string(rec.From)).
				Int("len", len(rec.Message)).
				Time("at", rec.At).
				Msg("chat message")
		}
	}
}

// Close stops the drain goroutine after flushing buffered records.
func (s *LogSink) Close() {
	s.once.Do(func() { close(s.records) })
	<-s.done
}
