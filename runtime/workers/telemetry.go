package workers

import (
	"context"
	"log/slog"
	"time"

	"chattr/contract"
	"chattr/domain/event"
)

// TelemetryWorker drains the dispatcher's telemetry mirror into the
// permanent sinks (projections, metrics).
//
// It provides best-effort fan-out with no guarantees regarding delivery,
// ordering, durability, or retries: it exists for observability and side
// effects, never for the delivery path clients depend on.
type TelemetryWorker struct {
	log         *slog.Logger
	events      chan event.DomainEvent
	sinks       []contract.EventSink
	sinkTimeout time.Duration
}

func NewTelemetryWorker(log *slog.Logger, events chan event.DomainEvent,
	sinkTimeout time.Duration, sinks ...contract.EventSink) *TelemetryWorker {
	return &TelemetryWorker{
		log:         log,
		events:      events,
		sinks:       sinks,
		sinkTimeout: sinkTimeout,
	}
}

var _ contract.Worker = (*TelemetryWorker)(nil)

func (w *TelemetryWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping telemetry fanout")
			return nil
		case evt, ok := <-w.events:
			if !ok {
				w.log.Debug("Telemetry channel is closed")
				return nil
			}
			w.Fanout(ctx, evt)
		}
	}
}

// Fanout hands one event to every permanent sink. A sink that blocks past
// the timeout is skipped so one slow consumer cannot hold up the rest.
func (w *TelemetryWorker) Fanout(ctx context.Context, evt event.DomainEvent) {
	for _, sink := range w.sinks {
		sinkCtx, cancel := context.WithTimeout(ctx, w.sinkTimeout)
		if err := sink.Consume(sinkCtx, evt); err != nil {
			w.log.Warn("Telemetry sink rejected event", "error", err)
		}
		cancel()
	}
}
