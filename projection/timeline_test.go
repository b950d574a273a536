package projection

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"chattr/domain"
	"chattr/domain/event"
)

func message(text string) domain.Message {
	return domain.Message{
		ID:         uuid.New(),
		SenderID:   "u1",
		SenderName: "Alice",
		Text:       text,
		PostedAt:   time.Now().UTC(),
	}
}

func TestTimeline_Counts_And_Keeps_A_Bounded_Window(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	timeline := NewTimeline(3)

	// When more messages arrive than the window holds
	for i := 0; i < 5; i++ {
		err := timeline.Consume(ctx, event.MessageReceived{
			Room:    "general",
			Message: message(fmt.Sprintf("msg-%d", i)),
		})
		req.NoError(err)
	}

	// Then the count is exact and the window keeps only the tail
	req.Equal(uint64(5), timeline.MessageCount("general"))

	recent := timeline.Recent("general")
	req.Len(recent, 3)
	req.Equal("msg-2", recent[0].Text)
	req.Equal("msg-4", recent[2].Text)
}

func TestTimeline_Tracks_Presence_Per_Room(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	timeline := NewTimeline(10)

	alice := domain.User{ID: "u1", DisplayName: "Alice"}
	bob := domain.User{ID: "u2", DisplayName: "Bob"}

	req.NoError(timeline.Consume(ctx, event.UserEntered{Room: "general", User: alice}))
	req.NoError(timeline.Consume(ctx, event.UserEntered{Room: "general", User: bob}))
	req.Equal(2, timeline.ObservedPresence("general"))

	req.NoError(timeline.Consume(ctx, event.UserLeft{Room: "general", UserID: alice.ID}))
	req.Equal(1, timeline.ObservedPresence("general"))

	// A departure for an unknown room never goes negative
	req.NoError(timeline.Consume(ctx, event.UserLeft{Room: "empty", UserID: "ghost"}))
	req.Equal(0, timeline.ObservedPresence("empty"))
}

func TestTimeline_Forgets_Abandoned_Rooms(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	timeline := NewTimeline(10)

	req.NoError(timeline.Consume(ctx, event.MessageReceived{Room: "general", Message: message("hello")}))
	req.NoError(timeline.Consume(ctx, event.UserEntered{Room: "general", User: domain.User{ID: "u1"}}))

	// When the room is abandoned
	req.NoError(timeline.Consume(ctx, event.RoomAbandoned{Room: "general"}))

	// Then all of its state is released
	req.Equal(uint64(0), timeline.MessageCount("general"))
	req.Empty(timeline.Recent("general"))
	req.Equal(0, timeline.ObservedPresence("general"))
}
