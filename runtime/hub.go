// Package runtime hosts the broker core: the room registry, the session
// store, and the hub that orchestrates the join/leave/create/abandon
// lifecycle. It contains no transport concerns.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"chattr/auth"
	"chattr/contract"
	"chattr/domain"
	"chattr/domain/event"
	"chattr/errors"
	"chattr/moderation"
	"chattr/observability"
)

// Hub is the room lifecycle controller. It is constructed once at process
// start and injected by reference into every handler; there is no ambient
// global state anywhere.
//
// A single mutex serializes every lifecycle mutation together with the
// recipient resolution of the broadcasts it triggers. That is what makes
// rejections atomic, keeps disconnect scans from observing torn state, and
// gives each room FIFO delivery per recipient: events are enqueued into the
// per-session queues in publish order, and the queues themselves are drained
// in order by one writer per connection.
type Hub struct {
	mu         sync.Mutex
	log        *slog.Logger
	rooms      *RoomRegistry
	store      *SessionStore
	dispatcher *Dispatcher
	moderator  *moderation.Moderator
	monitoring *observability.Monitoring
	now        func() time.Time
}

func NewHub(log *slog.Logger, store *SessionStore, dispatcher *Dispatcher,
	moderator *moderation.Moderator, monitoring *observability.Monitoring) *Hub {
	h := &Hub{
		log:        log,
		rooms:      NewRoomRegistry(time.Now().UTC()),
		store:      store,
		dispatcher: dispatcher,
		moderator:  moderator,
		monitoring: monitoring,
		now:        func() time.Time { return time.Now().UTC() },
	}
	monitoring.SetGaugeProvider(func() (int, int) {
		return h.RoomCount(), store.SessionCount()
	})
	return h
}

// EnterLobby registers the connection on first contact and joins it to the
// lobby. It always succeeds: the lobby has no passkey and always exists.
func (h *Hub) EnterLobby(ctx context.Context, connID string, identity domain.User, sink contract.EventSink) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.store.Register(connID, identity, sink)
	h.enterUnderLock(ctx, connID, identity, h.rooms.Lobby())
}

// CreateRoom atomically inserts a new empty room and announces it to the
// lobby. The passkey is hashed before the critical section so the slow part
// never runs under the lock; a collision is rejected without side effects.
func (h *Hub) CreateRoom(ctx context.Context, connID, name, passkey string) (domain.RoomDescriptor, error) {
	passkeyHash := ""
	if passkey != "" {
		var err error
		passkeyHash, err = auth.HashPasskey(passkey)
		if err != nil {
			return domain.RoomDescriptor{}, fmt.Errorf("hash passkey: %w", err)
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	identity, ok := h.store.Identity(connID)
	if !ok {
		return domain.RoomDescriptor{}, errors.ErrSessionUnknown
	}

	room, err := h.rooms.Create(name, identity.ID, passkeyHash, h.now())
	if err != nil {
		return domain.RoomDescriptor{}, err
	}
	h.monitoring.IncRoomsCreated()

	descriptor := room.Descriptor()
	h.dispatcher.Publish(ctx, domain.LobbyName, event.RoomCreated{Room: descriptor})
	return descriptor, nil
}

// EnterRoom joins the connection to an existing room after the passkey
// gate. A session already inside another room leaves it first, with the
// same reconciliation a disconnect would run, so a connection is never in
// more than the lobby plus one room.
func (h *Hub) EnterRoom(ctx context.Context, connID, name, passkey string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	identity, ok := h.store.Identity(connID)
	if !ok {
		return errors.ErrSessionUnknown
	}

	room, found := h.rooms.Get(name)
	if !found {
		return errors.ErrRoomNotFound
	}
	if room.RequiresPasskey() {
		match, err := auth.ComparePasskey(passkey, room.PasskeyHash)
		if err != nil {
			return fmt.Errorf("compare passkey: %w", err)
		}
		if !match {
			return errors.ErrInvalidPasskey
		}
	}

	for _, previous := range h.store.Rooms(connID) {
		if previous == domain.LobbyName || previous == name {
			continue
		}
		h.store.DetachRoom(connID, previous)
		h.reconcileRoomUnderLock(ctx, previous, identity)
	}

	h.enterUnderLock(ctx, connID, identity, room)
	return nil
}

// SendMessage appends one message to a room's history and fans it out.
// User text passes the moderation censor; server announcements do not.
func (h *Hub) SendMessage(ctx context.Context, connID, roomName, text string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	identity, ok := h.store.Identity(connID)
	if !ok {
		return errors.ErrSessionUnknown
	}
	room, found := h.rooms.Get(roomName)
	if !found {
		return errors.ErrRoomNotFound
	}

	if h.moderator != nil {
		text, _ = h.moderator.Censor(text)
	}
	h.postUnderLock(ctx, room, identity, text)
	return nil
}

// Disconnect reconciles every room the connection belonged to. It never
// fails: the connection is already gone, so errors are logged and dropped.
func (h *Hub) Disconnect(ctx context.Context, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	identity, rooms, ok := h.store.Unregister(connID)
	if !ok {
		return
	}

	for _, roomName := range rooms {
		h.reconcileRoomUnderLock(ctx, roomName, identity)
	}
}

// RoomCount reports the registry size, lobby included.
func (h *Hub) RoomCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.rooms.Count()
}

// enterUnderLock runs the shared tail of EnterLobby and EnterRoom:
// announce to the existing members, then attach the caller and push it the
// snapshot. The entry announcements are published before the caller is
// attached, so the caller never receives its own UserEntered or join
// message as pushes: its join message arrives inside SetMessages, and
// SetUsers carries the membership as it was before the join. A user id
// already present in the room (another connection) is joined silently: no
// duplicate member, no duplicate announcements.
func (h *Hub) enterUnderLock(ctx context.Context, connID string, identity domain.User, room *domain.Room) {
	before := room.Members()
	added := room.AddMember(identity)
	if added {
		h.dispatcher.Publish(ctx, room.Name, event.UserEntered{Room: room.Name, User: identity})
		h.postUnderLock(ctx, room, identity,
			fmt.Sprintf("%s has joined %s!", identity.DisplayName, roomLabel(room.Name)))
	}
	h.store.AttachRoom(connID, room.Name)

	h.dispatcher.PublishTo(ctx, connID, event.SetUsers{Room: room.Name, Users: before})
	h.dispatcher.PublishTo(ctx, connID, event.SetMessages{Room: room.Name, Messages: room.Snapshot()})
}

// reconcileRoomUnderLock removes one departed membership and decides between
// UserLeft and abandonment. A user id that is no longer a member (another
// connection of the same user already reconciled it) departs silently,
// mirroring the join side where a duplicate AddMember stays quiet.
func (h *Hub) reconcileRoomUnderLock(ctx context.Context, roomName string, identity domain.User) {
	room, found := h.rooms.Get(roomName)
	if !found {
		h.log.Debug(fmt.Sprintf("Room %s vanished before reconciliation", roomName))
		return
	}

	removed, empty := room.RemoveMember(identity.ID)
	if !removed {
		return
	}

	h.postUnderLock(ctx, room, identity,
		fmt.Sprintf("%s has left %s!", identity.DisplayName, roomLabel(room.Name)))

	if room.Name == domain.LobbyName {
		h.dispatcher.Publish(ctx, domain.LobbyName, event.UserLeft{Room: room.Name, UserID: identity.ID})
		return
	}

	if empty {
		// The emptiness check and the removal run under the same critical
		// section as any concurrent entry, so a room is never both removed
		// and freshly joined.
		h.rooms.Remove(room.Name)
		h.monitoring.IncRoomsAbandoned()
		h.dispatcher.Publish(ctx, domain.LobbyName, event.RoomAbandoned{Room: room.Name})
		return
	}

	h.dispatcher.Publish(ctx, room.Name, event.UserLeft{Room: room.Name, UserID: identity.ID})
}

func (h *Hub) postUnderLock(ctx context.Context, room *domain.Room, sender domain.User, text string) {
	msg := room.Append(sender.ID, sender.DisplayName, text, h.now())
	h.monitoring.IncMessagesPosted()
	h.dispatcher.Publish(ctx, room.Name, event.MessageReceived{Room: room.Name, Message: msg})
}

// roomLabel keeps announcements readable for the distinguished lobby name.
func roomLabel(name string) string {
	if name == domain.LobbyName {
		return "Lobby"
	}
	return name
}
