package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"

	"chattr/domain"
	"chattr/domain/event"
	"chattr/errors"
	"chattr/moderation"
	"chattr/observability"
)

// recordSink captures delivered events in order. It guards itself so tests
// with concurrent senders can read it back safely.
type recordSink struct {
	mu     sync.Mutex
	events []event.DomainEvent
}

func (s *recordSink) Consume(ctx context.Context, e event.DomainEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *recordSink) Events() []event.DomainEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]event.DomainEvent, len(s.events))
	copy(out, s.events)
	return out
}

func (s *recordSink) Received(roomName, userID string) []domain.Message {
	var msgs []domain.Message
	for _, e := range s.Events() {
		if evt, ok := e.(event.MessageReceived); ok && evt.Room == roomName && evt.Message.SenderID == userID {
			msgs = append(msgs, evt.Message)
		}
	}
	return msgs
}

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	monitoring := observability.NewMonitoring(log)
	store := NewSessionStore()
	dispatcher := NewDispatcher(log, store, monitoring, 1024)
	return NewHub(log, store, dispatcher, nil, monitoring)
}

func TestHub_First_Lobby_Entry_Pushes_Empty_Membership_And_Own_Join(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	hub := newTestHub(t)
	alice := domain.User{ID: "u1", DisplayName: "Alice"}
	sink := &recordSink{}

	// When the first connection enters the lobby
	hub.EnterLobby(ctx, "conn-1", alice, sink)

	// Then the caller receives exactly the snapshot pair
	events := sink.Events()
	req.Len(events, 2)

	setUsers, ok := events[0].(event.SetUsers)
	req.True(ok)
	req.Equal(domain.LobbyName, setUsers.Room)
	req.Empty(setUsers.Users, "membership before the join is empty")

	setMessages, ok := events[1].(event.SetMessages)
	req.True(ok)
	req.Len(setMessages.Messages, 1, "history carries the caller's own join announcement")
	req.Equal("Alice has joined Lobby!", setMessages.Messages[0].Text)
}

func TestHub_Second_Lobby_Entry_Announces_To_Existing_Members_Only(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	hub := newTestHub(t)
	alice := domain.User{ID: "u1", DisplayName: "Alice"}
	bob := domain.User{ID: "u2", DisplayName: "Bob"}
	aliceSink := &recordSink{}
	bobSink := &recordSink{}

	hub.EnterLobby(ctx, "conn-1", alice, aliceSink)

	// When a second user enters
	hub.EnterLobby(ctx, "conn-2", bob, bobSink)

	// Then the existing member sees the entry and the announcement as pushes
	aliceEvents := aliceSink.Events()
	req.Len(aliceEvents, 4)
	entered, ok := aliceEvents[2].(event.UserEntered)
	req.True(ok)
	req.Equal(bob, entered.User)
	joinMsg, ok := aliceEvents[3].(event.MessageReceived)
	req.True(ok)
	req.Equal("Bob has joined Lobby!", joinMsg.Message.Text)

	// And the newcomer gets them folded into the snapshot, never as pushes
	bobEvents := bobSink.Events()
	req.Len(bobEvents, 2)
	setUsers := bobEvents[0].(event.SetUsers)
	req.Equal([]domain.User{alice}, setUsers.Users)
	setMessages := bobEvents[1].(event.SetMessages)
	req.Len(setMessages.Messages, 2)
	req.Equal("Bob has joined Lobby!", setMessages.Messages[1].Text)
}

func TestHub_Rejoining_UserID_Is_Silent(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	hub := newTestHub(t)
	alice := domain.User{ID: "u1", DisplayName: "Alice"}
	firstSink := &recordSink{}
	secondSink := &recordSink{}

	hub.EnterLobby(ctx, "conn-1", alice, firstSink)

	// When the same user id connects again (second device)
	hub.EnterLobby(ctx, "conn-2", alice, secondSink)

	// Then no duplicate announcements fire
	req.Len(firstSink.Events(), 2, "the first device sees nothing new")

	secondEvents := secondSink.Events()
	req.Len(secondEvents, 2)
	setMessages := secondEvents[1].(event.SetMessages)
	req.Len(setMessages.Messages, 1, "only the original join announcement exists")
}

func TestHub_CreateRoom_Announces_To_The_Lobby(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	hub := newTestHub(t)
	alice := domain.User{ID: "u1", DisplayName: "Alice"}
	bob := domain.User{ID: "u2", DisplayName: "Bob"}
	aliceSink := &recordSink{}
	bobSink := &recordSink{}
	hub.EnterLobby(ctx, "conn-1", alice, aliceSink)
	hub.EnterLobby(ctx, "conn-2", bob, bobSink)

	// When Alice creates a room
	descriptor, err := hub.CreateRoom(ctx, "conn-1", "general", "")
	req.NoError(err)
	req.Equal("general", descriptor.Name)
	req.False(descriptor.RequiresPasskey)

	// Then every lobby member hears about it
	for _, sink := range []*recordSink{aliceSink, bobSink} {
		events := sink.Events()
		created, ok := events[len(events)-1].(event.RoomCreated)
		req.True(ok)
		req.Equal("general", created.Room.Name)
	}

	// And the creator is NOT inside the new room
	req.Equal(2, hub.RoomCount())
	room, _ := hub.rooms.Get("general")
	req.Equal(0, room.MemberCount())
}

func TestHub_CreateRoom_Rejects_Collisions_Atomically(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	hub := newTestHub(t)
	hub.EnterLobby(ctx, "conn-1", domain.User{ID: "u1", DisplayName: "Alice"}, &recordSink{})

	_, err := hub.CreateRoom(ctx, "conn-1", "general", "")
	req.NoError(err)

	// A duplicate name fails without side effects
	_, err = hub.CreateRoom(ctx, "conn-1", "general", "")
	req.ErrorIs(err, errors.ErrNameTaken)
	req.Equal(2, hub.RoomCount())

	// The lobby name itself is a collision
	_, err = hub.CreateRoom(ctx, "conn-1", domain.LobbyName, "")
	req.ErrorIs(err, errors.ErrNameTaken)
}

func TestHub_CreateRoom_Requires_A_Registered_Session(t *testing.T) {
	req := require.New(t)
	hub := newTestHub(t)

	_, err := hub.CreateRoom(context.Background(), "ghost", "general", "")

	req.ErrorIs(err, errors.ErrSessionUnknown)
}

func TestHub_EnterRoom_Passkey_Gate(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	hub := newTestHub(t)
	alice := domain.User{ID: "u1", DisplayName: "Alice"}
	bob := domain.User{ID: "u2", DisplayName: "Bob"}
	hub.EnterLobby(ctx, "conn-1", alice, &recordSink{})
	hub.EnterLobby(ctx, "conn-2", bob, &recordSink{})

	descriptor, err := hub.CreateRoom(ctx, "conn-1", "vault", "sesame")
	req.NoError(err)
	req.True(descriptor.RequiresPasskey)

	// An absent room fails before any passkey check
	req.ErrorIs(hub.EnterRoom(ctx, "conn-2", "nowhere", "sesame"), errors.ErrRoomNotFound)

	// A wrong passkey is rejected without joining
	req.ErrorIs(hub.EnterRoom(ctx, "conn-2", "vault", "wrong"), errors.ErrInvalidPasskey)
	room, _ := hub.rooms.Get("vault")
	req.Equal(0, room.MemberCount())

	// The right passkey opens the gate
	req.NoError(hub.EnterRoom(ctx, "conn-2", "vault", "sesame"))
	req.Equal(1, room.MemberCount())
}

func TestHub_Entering_A_Second_Room_Leaves_The_Previous_One(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	hub := newTestHub(t)
	alice := domain.User{ID: "u1", DisplayName: "Alice"}
	observer := domain.User{ID: "u9", DisplayName: "Observer"}
	aliceSink := &recordSink{}
	observerSink := &recordSink{}
	hub.EnterLobby(ctx, "conn-1", alice, aliceSink)
	hub.EnterLobby(ctx, "conn-9", observer, observerSink)

	_, err := hub.CreateRoom(ctx, "conn-1", "first", "")
	req.NoError(err)
	_, err = hub.CreateRoom(ctx, "conn-1", "second", "")
	req.NoError(err)

	req.NoError(hub.EnterRoom(ctx, "conn-1", "first", ""))

	// When Alice moves to another room
	req.NoError(hub.EnterRoom(ctx, "conn-1", "second", ""))

	// Then the first room, now empty, is abandoned and announced to the lobby
	req.Equal(2, hub.RoomCount(), "lobby + second remain")
	_, ok := hub.rooms.Get("first")
	req.False(ok)

	var abandoned []event.RoomAbandoned
	for _, e := range observerSink.Events() {
		if evt, isAbandoned := e.(event.RoomAbandoned); isAbandoned {
			abandoned = append(abandoned, evt)
		}
	}
	req.Len(abandoned, 1)
	req.Equal("first", abandoned[0].Room)

	// And Alice still belongs to the lobby plus the new room only
	req.Equal([]string{domain.LobbyName, "second"}, hub.store.Rooms("conn-1"))
}

func TestHub_Disconnect_Abandons_Emptied_Rooms_Exactly_Once(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	hub := newTestHub(t)
	alice := domain.User{ID: "u1", DisplayName: "Alice"}
	observer := domain.User{ID: "u9", DisplayName: "Observer"}
	observerSink := &recordSink{}
	hub.EnterLobby(ctx, "conn-1", alice, &recordSink{})
	hub.EnterLobby(ctx, "conn-9", observer, observerSink)

	_, err := hub.CreateRoom(ctx, "conn-1", "general", "")
	req.NoError(err)
	req.NoError(hub.EnterRoom(ctx, "conn-1", "general", ""))

	// When the last member disconnects
	hub.Disconnect(ctx, "conn-1")

	// Then the room is gone and the lobby heard exactly one abandonment
	_, ok := hub.rooms.Get("general")
	req.False(ok)

	abandonedCount := 0
	leftCount := 0
	for _, e := range observerSink.Events() {
		switch evt := e.(type) {
		case event.RoomAbandoned:
			abandonedCount++
			req.Equal("general", evt.Room)
		case event.UserLeft:
			leftCount++
			req.Equal(alice.ID, evt.UserID)
		}
	}
	req.Equal(1, abandonedCount)
	req.Equal(1, leftCount, "the lobby departure is announced as UserLeft")

	// A second disconnect of the same connection is a no-op
	hub.Disconnect(ctx, "conn-1")
	abandonedAgain := 0
	for _, e := range observerSink.Events() {
		if _, isAbandoned := e.(event.RoomAbandoned); isAbandoned {
			abandonedAgain++
		}
	}
	req.Equal(1, abandonedAgain)
}

func TestHub_Lobby_Survives_Everyone_Leaving(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	hub := newTestHub(t)
	hub.EnterLobby(ctx, "conn-1", domain.User{ID: "u1", DisplayName: "Alice"}, &recordSink{})

	hub.Disconnect(ctx, "conn-1")

	req.Equal(1, hub.RoomCount())
	lobby, ok := hub.rooms.Get(domain.LobbyName)
	req.True(ok)
	req.Equal(0, lobby.MemberCount())

	// An emptied lobby still accepts entries
	hub.EnterLobby(ctx, "conn-2", domain.User{ID: "u2", DisplayName: "Bob"}, &recordSink{})
	req.Equal(1, lobby.MemberCount())
}

func TestHub_Staged_Departures_UserLeft_Then_Abandonment(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	hub := newTestHub(t)
	alice := domain.User{ID: "u1", DisplayName: "Alice"}
	bob := domain.User{ID: "u2", DisplayName: "Bob"}
	bobSink := &recordSink{}
	lobbyObserverSink := &recordSink{}
	hub.EnterLobby(ctx, "conn-1", alice, &recordSink{})
	hub.EnterLobby(ctx, "conn-2", bob, bobSink)
	hub.EnterLobby(ctx, "conn-9", domain.User{ID: "u9", DisplayName: "Observer"}, lobbyObserverSink)

	_, err := hub.CreateRoom(ctx, "conn-1", "alpha", "")
	req.NoError(err)
	req.NoError(hub.EnterRoom(ctx, "conn-1", "alpha", ""))
	req.NoError(hub.EnterRoom(ctx, "conn-2", "alpha", ""))

	// When the first member disconnects
	hub.Disconnect(ctx, "conn-1")

	// Then the remaining member hears UserLeft and the room stays active
	var roomDepartures []event.UserLeft
	for _, e := range bobSink.Events() {
		if evt, left := e.(event.UserLeft); left && evt.Room == "alpha" {
			roomDepartures = append(roomDepartures, evt)
		}
	}
	req.Len(roomDepartures, 1)
	req.Equal(alice.ID, roomDepartures[0].UserID)
	room, ok := hub.rooms.Get("alpha")
	req.True(ok)
	req.Equal(1, room.MemberCount())

	// When the second member disconnects too
	hub.Disconnect(ctx, "conn-2")

	// Then the room is removed and the lobby hears the abandonment
	_, ok = hub.rooms.Get("alpha")
	req.False(ok)
	abandoned := 0
	for _, e := range lobbyObserverSink.Events() {
		if evt, isAbandoned := e.(event.RoomAbandoned); isAbandoned {
			abandoned++
			req.Equal("alpha", evt.Room)
		}
	}
	req.Equal(1, abandoned)
}

func TestHub_Entering_An_Open_Room_Pushes_The_Scripted_Snapshot(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	hub := newTestHub(t)
	alice := domain.User{ID: "u1", DisplayName: "Alice"}
	aliceSink := &recordSink{}
	hub.EnterLobby(ctx, "conn-1", alice, aliceSink)

	_, err := hub.CreateRoom(ctx, "conn-1", "alpha", "")
	req.NoError(err)

	req.NoError(hub.EnterRoom(ctx, "conn-1", "alpha", ""))

	// The caller receives the empty pre-join membership and a history that
	// holds only its own join announcement
	events := aliceSink.Events()
	var setUsers *event.SetUsers
	var setMessages *event.SetMessages
	for _, e := range events {
		switch evt := e.(type) {
		case event.SetUsers:
			if evt.Room == "alpha" {
				setUsers = &evt
			}
		case event.SetMessages:
			if evt.Room == "alpha" {
				setMessages = &evt
			}
		}
	}
	req.NotNil(setUsers)
	req.Empty(setUsers.Users)
	req.NotNil(setMessages)
	req.Len(setMessages.Messages, 1)
	req.Equal("Alice has joined alpha!", setMessages.Messages[0].Text)
}

func TestHub_SendMessage_Validates_Session_And_Room(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	hub := newTestHub(t)
	hub.EnterLobby(ctx, "conn-1", domain.User{ID: "u1", DisplayName: "Alice"}, &recordSink{})

	req.ErrorIs(hub.SendMessage(ctx, "ghost", domain.LobbyName, "hello"), errors.ErrSessionUnknown)
	req.ErrorIs(hub.SendMessage(ctx, "conn-1", "nowhere", "hello"), errors.ErrRoomNotFound)
	req.NoError(hub.SendMessage(ctx, "conn-1", domain.LobbyName, "hello"))
}

func TestHub_SendMessage_Censors_User_Text_But_Not_Announcements(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	monitoring := observability.NewMonitoring(log)
	store := NewSessionStore()
	dispatcher := NewDispatcher(log, store, monitoring, 1024)
	moderator, err := moderation.NewModerator([]string{"idiot"}, '*', log)
	req.NoError(err)
	hub := NewHub(log, store, dispatcher, &moderator, monitoring)

	alice := domain.User{ID: "u1", DisplayName: "Alice"}
	sink := &recordSink{}
	hub.EnterLobby(ctx, "conn-1", alice, sink)

	req.NoError(hub.SendMessage(ctx, "conn-1", domain.LobbyName, "you idiot"))

	msgs := sink.Received(domain.LobbyName, alice.ID)
	req.Len(msgs, 1)
	req.Equal("you *****", msgs[0].Text)

	// The join announcement went through the history untouched
	lobby, _ := hub.rooms.Get(domain.LobbyName)
	req.Equal("Alice has joined Lobby!", lobby.Snapshot()[0].Text)
}

func TestHub_Delivery_Is_FIFO_Per_Sender_Under_Concurrency(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	hub := newTestHub(t)
	receiverSink := &recordSink{}
	hub.EnterLobby(ctx, "conn-r", domain.User{ID: "receiver", DisplayName: "Receiver"}, receiverSink)

	const senders = 4
	const perSender = 50

	var wg sync.WaitGroup
	for s := 0; s < senders; s++ {
		senderID := fmt.Sprintf("sender-%d", s)
		connID := fmt.Sprintf("conn-%d", s)
		hub.EnterLobby(ctx, connID, domain.User{ID: senderID, DisplayName: senderID}, &recordSink{})

		wg.Add(1)
		go func(connID string) {
			defer wg.Done()
			for i := 0; i < perSender; i++ {
				_ = hub.SendMessage(ctx, connID, domain.LobbyName, fmt.Sprintf("%d", i))
			}
		}(connID)
	}
	wg.Wait()

	// Every sender's messages reach the receiver in send order
	for s := 0; s < senders; s++ {
		senderID := fmt.Sprintf("sender-%d", s)
		msgs := receiverSink.Received(domain.LobbyName, senderID)
		req.Len(msgs, perSender)
		for i, msg := range msgs {
			req.Equal(fmt.Sprintf("%d", i), msg.Text, "out-of-order delivery for %s", senderID)
		}
		// Timestamps never regress along the delivery order
		for i := 1; i < len(msgs); i++ {
			req.False(msgs[i].PostedAt.Before(msgs[i-1].PostedAt))
		}
	}
}

func TestHub_Lobby_Resync_Keeps_The_Room_Attachment(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	hub := newTestHub(t)
	alice := domain.User{ID: "u1", DisplayName: "Alice"}
	bob := domain.User{ID: "u2", DisplayName: "Bob"}
	aliceSink := &recordSink{}
	bobSink := &recordSink{}

	hub.EnterLobby(ctx, "conn-1", alice, aliceSink)
	hub.EnterLobby(ctx, "conn-2", bob, bobSink)
	_, err := hub.CreateRoom(ctx, "conn-1", "alpha", "")
	req.NoError(err)
	req.NoError(hub.EnterRoom(ctx, "conn-1", "alpha", ""))

	// When the connection re-enters the lobby while inside the room
	hub.EnterLobby(ctx, "conn-1", alice, aliceSink)

	// Then the room attachment survives the resync
	req.Equal([]string{domain.LobbyName, "alpha"}, hub.store.Rooms("conn-1"))

	// And disconnecting still reconciles the room: abandoned exactly once
	hub.Disconnect(ctx, "conn-1")
	req.Equal(1, hub.RoomCount(), "only the lobby remains")
	abandoned := 0
	for _, e := range bobSink.Events() {
		if evt, ok := e.(event.RoomAbandoned); ok && evt.Room == "alpha" {
			abandoned++
		}
	}
	req.Equal(1, abandoned)
}

func TestHub_Departure_Announced_Once_Per_UserID_Across_Connections(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	hub := newTestHub(t)
	alice := domain.User{ID: "u1", DisplayName: "Alice"}
	bob := domain.User{ID: "u2", DisplayName: "Bob"}
	bobSink := &recordSink{}

	hub.EnterLobby(ctx, "conn-obs", bob, bobSink)
	hub.EnterLobby(ctx, "conn-1", alice, &recordSink{})
	hub.EnterLobby(ctx, "conn-2", alice, &recordSink{})

	// When both of Alice's connections go away
	hub.Disconnect(ctx, "conn-1")
	hub.Disconnect(ctx, "conn-2")

	// Then the lobby hears exactly one departure, matching the silent rejoin
	left, goodbyes := 0, 0
	for _, e := range bobSink.Events() {
		switch evt := e.(type) {
		case event.UserLeft:
			if evt.UserID == alice.ID {
				left++
			}
		case event.MessageReceived:
			if evt.Message.Text == "Alice has left Lobby!" {
				goodbyes++
			}
		}
	}
	req.Equal(1, left)
	req.Equal(1, goodbyes)
}
