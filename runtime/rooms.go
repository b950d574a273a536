package runtime

import (
	"time"

	"chattr/domain"
	"chattr/errors"
)

// RoomRegistry is the authoritative name -> Room map. It carries no lock of
// its own: the hub serializes every access together with the membership and
// history mutations that surround it.
type RoomRegistry struct {
	rooms map[string]*domain.Room
	lobby *domain.Room
}

func NewRoomRegistry(now time.Time) *RoomRegistry {
	lobby := domain.NewRoom(domain.LobbyName, "", "", now)
	return &RoomRegistry{
		rooms: map[string]*domain.Room{domain.LobbyName: lobby},
		lobby: lobby,
	}
}

func (r *RoomRegistry) Lobby() *domain.Room {
	return r.lobby
}

// Create inserts a new empty room. Name collisions, lobby included, are
// rejected without touching the registry.
func (r *RoomRegistry) Create(name, creatorID, passkeyHash string, now time.Time) (*domain.Room, error) {
	if _, taken := r.rooms[name]; taken {
		return nil, errors.ErrNameTaken
	}
	room := domain.NewRoom(name, creatorID, passkeyHash, now)
	r.rooms[name] = room
	return room, nil
}

func (r *RoomRegistry) Get(name string) (*domain.Room, bool) {
	room, ok := r.rooms[name]
	return room, ok
}

// Remove deletes a room. The lobby is protected: removing it, like removing
// an absent name, is a no-op.
func (r *RoomRegistry) Remove(name string) {
	if name == domain.LobbyName {
		return
	}
	delete(r.rooms, name)
}

func (r *RoomRegistry) Count() int {
	return len(r.rooms)
}
