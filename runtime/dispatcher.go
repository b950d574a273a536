package runtime

import (
	"context"
	"fmt"
	"log/slog"

	"chattr/domain/event"
	"chattr/observability"
)

// Dispatcher delivers events to every session attached to a room, and
// mirrors each one into the telemetry channel for the permanent sinks.
//
// Publish is always called under the hub's serialization, so for any room
// the enqueue order into each recipient's queue equals the publish order:
// FIFO per room per recipient. No ordering holds across rooms.
type Dispatcher struct {
	log        *slog.Logger
	store      *SessionStore
	telemetry  chan event.DomainEvent
	monitoring *observability.Monitoring
}

func NewDispatcher(log *slog.Logger, store *SessionStore,
	monitoring *observability.Monitoring, telemetryBuffer int) *Dispatcher {
	return &Dispatcher{
		log:        log,
		store:      store,
		telemetry:  make(chan event.DomainEvent, telemetryBuffer),
		monitoring: monitoring,
	}
}

// TelemetryEvents exposes the channel the telemetry worker drains.
func (d *Dispatcher) TelemetryEvents() chan event.DomainEvent {
	return d.telemetry
}

// Publish fans an event out to the broadcast group of roomName. Recipients
// are resolved now, not at drain time, so a session joining after a publish
// never sees that event twice through snapshot plus push.
func (d *Dispatcher) Publish(ctx context.Context, roomName string, e event.DomainEvent) {
	for _, sink := range d.store.SinksForRoom(roomName) {
		if err := sink.Consume(ctx, e); err != nil {
			d.log.Warn(fmt.Sprintf("Failed to deliver event to a session of %s", roomName),
				"error", err)
			continue
		}
		d.monitoring.IncEventsDelivered()
	}
	d.publishTelemetry(e)
}

// PublishTo pushes an event to a single connection, used for the caller-only
// SetUsers/SetMessages snapshots on room entry.
func (d *Dispatcher) PublishTo(ctx context.Context, connID string, e event.DomainEvent) {
	sink, ok := d.store.SinkFor(connID)
	if !ok {
		return
	}
	if err := sink.Consume(ctx, e); err != nil {
		d.log.Warn("Failed to deliver event to caller", "conn_id", connID, "error", err)
		return
	}
	d.monitoring.IncEventsDelivered()
	d.publishTelemetry(e)
}

func (d *Dispatcher) publishTelemetry(e event.DomainEvent) {
	select {
	case d.telemetry <- e:
	default:
		d.log.Debug("Observability telemetry event lost")
	}
}
