package test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"chattr/domain"
	"chattr/domain/event"
	"chattr/mocks"
	"chattr/observability"
	"chattr/projection"
	"chattr/runtime"
	"chattr/runtime/workers"
	"chattr/services"
	"chattr/sink"
)

// Test_Scenario wires the whole broker together, supervisor and telemetry
// included, and walks one room through its full life: creation, a join, a
// message, and abandonment on disconnect.
func Test_Scenario(t *testing.T) {
	ctx := context.Background()
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	// 1. Broker core
	monitoring := observability.NewMonitoring(log)
	store := runtime.NewSessionStore()
	dispatcher := runtime.NewDispatcher(log, store, monitoring, 1024)
	hub := runtime.NewHub(log, store, dispatcher, nil, monitoring)
	service := services.NewRoomService(hub)

	// 2. Permanent sinks: a real projection plus a mock to assert delivery
	timeline := projection.NewTimeline(10)

	ctrl := gomock.NewController(t)
	mockPermanentSink := mocks.NewMockEventSink(ctrl)

	// Create a channel to wait for a signal at the end of process
	done := make(chan struct{})
	mockPermanentSink.EXPECT().
		Consume(gomock.Any(), gomock.Any()).
		Do(func(ctx context.Context, e event.DomainEvent) {
			if _, abandoned := e.(event.RoomAbandoned); abandoned {
				close(done) // Signaling the lifecycle completed
			}
		}).
		Return(nil).
		AnyTimes()

	// 3. Supervised telemetry fanout
	supervisor := workers.NewSupervisor(log)
	supervisor.Add(workers.NewTelemetryWorker(
		log, dispatcher.TelemetryEvents(), time.Second, timeline, mockPermanentSink))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go supervisor.Run(runCtx)

	// 4. Two users connect through their session sinks
	alice := domain.User{ID: "u1", DisplayName: "Alice"}
	bob := domain.User{ID: "u2", DisplayName: "Bob"}
	aliceSink := sink.NewSessionSink(log, 64, monitoring)
	bobSink := sink.NewSessionSink(log, 64, monitoring)

	service.EnterLobby(ctx, "conn-a", alice, aliceSink)
	service.EnterLobby(ctx, "conn-b", bob, bobSink)

	// 5. Room lifecycle: create, enter, chat, disconnect
	descriptor, err := service.CreateRoom(ctx, "conn-a", "warroom", "hush")
	req.NoError(err)
	req.True(descriptor.RequiresPasskey)

	req.NoError(service.EnterRoom(ctx, "conn-a", "warroom", "hush"))
	req.NoError(service.EnterRoom(ctx, "conn-b", "warroom", "hush"))
	req.NoError(service.SendMessageToRoom(ctx, "conn-a", "warroom", "status report"))

	service.Disconnect(ctx, "conn-a")
	service.Disconnect(ctx, "conn-b")

	// 6. The telemetry pipeline observed the abandonment
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		req.Fail("RoomAbandoned never reached the permanent sinks")
	}

	// 7. The projection and metrics agree with the story
	req.Eventually(func() bool {
		return timeline.MessageCount("warroom") >= 1
	}, 2*time.Second, 10*time.Millisecond, "timeline missed the room message")

	stats := monitoring.GetLatest()
	req.Equal(uint64(1), stats.RoomsCreated)
	req.Equal(uint64(1), stats.RoomsAbandoned)
	req.Equal(0, stats.Sessions)
	req.Equal(1, stats.Rooms, "only the lobby remains")

	supervisor.Stop()
}
