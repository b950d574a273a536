package domain

import (
	"time"

	"github.com/google/uuid"
)

// LobbyName is the distinguished room every connection joins first.
// The lobby always exists and is never removed, whatever its membership.
const LobbyName = "ChattRLobby"

// Room owns its membership set and its append-only message history.
// Rooms carry no synchronization of their own: every mutation happens
// under the hub's serialization, never from two goroutines at once.
type Room struct {
	Name        string
	CreatorID   string
	PasskeyHash string // empty means public
	CreatedAt   time.Time

	members    map[string]User
	memberIDs  []string // insertion order, for stable SetUsers payloads
	history    []Message
	lastPosted time.Time
}

func NewRoom(name, creatorID, passkeyHash string, createdAt time.Time) *Room {
	return &Room{
		Name:        name,
		CreatorID:   creatorID,
		PasskeyHash: passkeyHash,
		CreatedAt:   createdAt,
		members:     make(map[string]User),
	}
}

// RequiresPasskey tells whether entry is gated. The secret itself is never
// exposed through descriptors or events.
func (r *Room) RequiresPasskey() bool {
	return r.PasskeyHash != ""
}

// Descriptor returns the public-safe view of the room.
func (r *Room) Descriptor() RoomDescriptor {
	return RoomDescriptor{
		Name:            r.Name,
		CreatedAt:       r.CreatedAt,
		RequiresPasskey: r.RequiresPasskey(),
	}
}

// AddMember joins a user to the room. Idempotent per user id: re-adding an
// existing member changes nothing and reports false so the caller can skip
// the entry broadcast.
func (r *Room) AddMember(user User) bool {
	if _, ok := r.members[user.ID]; ok {
		return false
	}
	r.members[user.ID] = user
	r.memberIDs = append(r.memberIDs, user.ID)
	return true
}

// RemoveMember removes a member by id. It reports whether a member was
// actually removed and whether the room is empty afterwards, the latter
// being the lifecycle signal for abandonment.
func (r *Room) RemoveMember(userID string) (removed, empty bool) {
	if _, ok := r.members[userID]; ok {
		delete(r.members, userID)
		for i, id := range r.memberIDs {
			if id == userID {
				r.memberIDs = append(r.memberIDs[:i], r.memberIDs[i+1:]...)
				break
			}
		}
		removed = true
	}
	return removed, len(r.members) == 0
}

// Members returns the membership in join order.
func (r *Room) Members() []User {
	users := make([]User, 0, len(r.members))
	for _, id := range r.memberIDs {
		users = append(users, r.members[id])
	}
	return users
}

func (r *Room) MemberCount() int {
	return len(r.members)
}

// Append stores a message at the tail of the history and returns it with a
// server-assigned id and timestamp. Timestamps are monotonically
// non-decreasing per room even if the wall clock steps backwards.
func (r *Room) Append(senderID, senderName, text string, now time.Time) Message {
	if now.Before(r.lastPosted) {
		now = r.lastPosted
	}
	r.lastPosted = now
	msg := Message{
		ID:         uuid.New(),
		SenderID:   senderID,
		SenderName: senderName,
		Text:       text,
		PostedAt:   now,
	}
	r.history = append(r.history, msg)
	return msg
}

// Snapshot returns the full history, oldest first, as an independent slice.
func (r *Room) Snapshot() []Message {
	out := make([]Message, len(r.history))
	copy(out, r.history)
	return out
}

// RoomDescriptor is what clients learn about a room.
type RoomDescriptor struct {
	Name            string
	CreatedAt       time.Time
	RequiresPasskey bool
}
