// Package event defines the push events the broker fans out to sessions.
// Events are immutable payloads; routing is decided by the dispatcher,
// not by the event itself.
package event

import (
	"chattr/domain"
)

// DomainEvent is anything the broker can push to a connected session.
// RoomName identifies the room the event is about, which is not always
// the room it is delivered to (room lifecycle events go to the lobby).
type DomainEvent interface {
	RoomName() string
}

// UserEntered announces a new member to a room's existing members.
type UserEntered struct {
	Room string
	User domain.User
}

func (e UserEntered) RoomName() string { return e.Room }

// UserLeft announces a departure by user id.
type UserLeft struct {
	Room   string
	UserID string
}

func (e UserLeft) RoomName() string { return e.Room }

// MessageReceived carries one appended message. Its wire name keeps the
// original protocol spelling "recieveMessage" for client compatibility.
type MessageReceived struct {
	Room    string
	Message domain.Message
}

func (e MessageReceived) RoomName() string { return e.Room }

// SetUsers replaces the caller's member list on room entry.
type SetUsers struct {
	Room  string
	Users []domain.User
}

func (e SetUsers) RoomName() string { return e.Room }

// SetMessages replaces the caller's history on room entry, oldest first.
type SetMessages struct {
	Room     string
	Messages []domain.Message
}

func (e SetMessages) RoomName() string { return e.Room }

// RoomCreated tells lobby members a new room can be entered.
type RoomCreated struct {
	Room domain.RoomDescriptor
}

func (e RoomCreated) RoomName() string { return e.Room.Name }

// RoomAbandoned tells lobby members a room emptied out and was removed.
type RoomAbandoned struct {
	Room string
}

func (e RoomAbandoned) RoomName() string { return e.Room }
