// Package sink provides the outbound queues events travel through on their
// way to a connected client.
package sink

import (
	"context"
	"log/slog"

	"chattr/domain/event"
	"chattr/observability"
)

// SessionSink is the per-connection outbound queue. The dispatcher enqueues
// under the hub's serialization, a dedicated writer goroutine drains towards
// the transport. The buffer bounds backpressure: a client too slow to keep
// up loses events instead of stalling the broker.
type SessionSink struct {
	Events     chan event.DomainEvent
	log        *slog.Logger
	monitoring *observability.Monitoring
}

func NewSessionSink(log *slog.Logger, bufferSize int, monitoring *observability.Monitoring) *SessionSink {
	return &SessionSink{
		Events:     make(chan event.DomainEvent, bufferSize),
		log:        log,
		monitoring: monitoring,
	}
}

// Consume is called by the dispatcher. It hands the event to the owning
// connection's writer through the channel and never blocks the broker:
// a full queue drops the event with a warning.
func (s *SessionSink) Consume(ctx context.Context, e event.DomainEvent) error {
	select {
	case s.Events <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		s.log.Warn("Session queue full, dropping event", "room", e.RoomName())
		if s.monitoring != nil {
			s.monitoring.IncEventsDropped()
		}
		return nil
	}
}
