package sink

import (
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"

	"chattr/domain/event"
	"chattr/observability"
)

func TestSessionSink_Enqueues_In_Order(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	s := NewSessionSink(log, 8, nil)

	for i := 0; i < 5; i++ {
		req.NoError(s.Consume(ctx, event.RoomAbandoned{Room: fmt.Sprintf("room-%d", i)}))
	}

	for i := 0; i < 5; i++ {
		evt := <-s.Events
		req.Equal(fmt.Sprintf("room-%d", i), evt.RoomName())
	}
}

func TestSessionSink_Full_Queue_Drops_Instead_Of_Blocking(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	monitoring := observability.NewMonitoring(log)
	s := NewSessionSink(log, 1, monitoring)

	// Given the queue is full and nobody drains it
	req.NoError(s.Consume(ctx, event.RoomAbandoned{Room: "kept"}))

	// When another event arrives
	req.NoError(s.Consume(ctx, event.RoomAbandoned{Room: "dropped"}))

	// Then the broker was never blocked and the drop was counted
	req.Equal(uint64(1), monitoring.GetLatest().EventsDropped)

	evt := <-s.Events
	req.Equal("kept", evt.RoomName())
	select {
	case extra := <-s.Events:
		req.Fail("unexpected event", "got %v", extra.RoomName())
	default:
	}
}

func TestSessionSink_Cancelled_Context_Surfaces_On_A_Full_Queue(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	s := NewSessionSink(log, 1, nil)

	// Given the queue is full
	req.NoError(s.Consume(context.Background(), event.RoomAbandoned{Room: "kept"}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// When an enqueue races a dead context, cancellation wins over the drop
	err := s.Consume(ctx, event.RoomAbandoned{Room: "late"})
	req.ErrorIs(err, context.Canceled)
}
