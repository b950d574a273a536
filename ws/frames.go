package ws

import (
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"

	"chattr/domain"
	"chattr/domain/event"
	"chattr/errors"
)

// Client operations. One frame per call, correlated by requestId.
const (
	OpEnterLobby         = "enterLobby"
	OpCreateRoom         = "createRoom"
	OpEnterRoom          = "enterRoom"
	OpSendMessageToLobby = "sendMessageToLobby"
	OpSendMessageToRoom  = "sendMessageToRoom"
)

// Server frame kinds. Events carry pushes, results and errors answer calls.
const (
	FrameEvent  = "event"
	FrameResult = "result"
	FrameError  = "error"
)

// Wire names of the push events. "recieveMessage" keeps the original
// protocol's spelling so existing clients keep working.
const (
	EventSetUsers      = "setUsers"
	EventSetMessages   = "setMessages"
	EventUserEntered   = "userEntered"
	EventUserLeft      = "userLeft"
	EventMessage       = "recieveMessage"
	EventRoomCreated   = "roomCreated"
	EventRoomAbandoned = "roomAbandoned"
)

// Error codes returned to the caller. Transport-level problems (bad JSON,
// unknown op) get their own codes; the rest map from the broker's errors.
const (
	CodeBadFrame       = "badFrame"
	CodeUnknownOp      = "unknownOp"
	CodeInvalidPayload = "invalidPayload"
	CodeNameTaken      = "nameTaken"
	CodeRoomNotFound   = "roomNotFound"
	CodeInvalidPasskey = "invalidPasskey"
	CodeInternal       = "internal"
)

// ClientFrame is one call from the client. Payload stays raw until the op
// is known.
type ClientFrame struct {
	Op        string          `json:"op" validate:"required"`
	RequestID string          `json:"requestId"`
	Payload   json.RawMessage `json:"payload"`
}

type CreateRoomPayload struct {
	Name    string `json:"name" validate:"required,max=64"`
	Passkey string `json:"passkey" validate:"max=128"`
}

type EnterRoomPayload struct {
	Name    string `json:"name" validate:"required,max=64"`
	Passkey string `json:"passkey" validate:"max=128"`
}

// SendMessagePayload serves both send ops; sendMessageToLobby ignores Room.
type SendMessagePayload struct {
	Room string `json:"room" validate:"max=64"`
	Text string `json:"text" validate:"required,max=2000"`
}

// ServerFrame is one message to the client: a push, a call result or a
// call error.
type ServerFrame struct {
	Type      string `json:"type"`
	Event     string `json:"event,omitempty"`
	Room      string `json:"room,omitempty"`
	RequestID string `json:"requestId,omitempty"`
	Code      string `json:"code,omitempty"`
	Message   string `json:"message,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

// Wire DTOs. Domain types never cross the socket directly.

type UserDTO struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

type MessageDTO struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"senderId"`
	SenderName string    `json:"senderName"`
	Text       string    `json:"text"`
	PostedAt   time.Time `json:"postedAt"`
}

type RoomDTO struct {
	Name            string    `json:"name"`
	CreatedAt       time.Time `json:"createdAt"`
	RequiresPasskey bool      `json:"requiresPasskey"`
}

func toUserDTO(u domain.User) UserDTO {
	return UserDTO{ID: u.ID, DisplayName: u.DisplayName}
}

func toMessageDTO(m domain.Message) MessageDTO {
	return MessageDTO{
		ID:         m.ID.String(),
		SenderID:   m.SenderID,
		SenderName: m.SenderName,
		Text:       m.Text,
		PostedAt:   m.PostedAt,
	}
}

func toRoomDTO(d domain.RoomDescriptor) RoomDTO {
	return RoomDTO{
		Name:            d.Name,
		CreatedAt:       d.CreatedAt,
		RequiresPasskey: d.RequiresPasskey,
	}
}

// encodeEvent turns a broker push into its server frame. Unknown event
// types report false and are skipped by the writer.
func encodeEvent(e event.DomainEvent) (ServerFrame, bool) {
	switch evt := e.(type) {
	case event.SetUsers:
		return ServerFrame{
			Type: FrameEvent, Event: EventSetUsers, Room: evt.Room,
			Payload: lo.Map(evt.Users, func(u domain.User, _ int) UserDTO { return toUserDTO(u) }),
		}, true
	case event.SetMessages:
		return ServerFrame{
			Type: FrameEvent, Event: EventSetMessages, Room: evt.Room,
			Payload: lo.Map(evt.Messages, func(m domain.Message, _ int) MessageDTO { return toMessageDTO(m) }),
		}, true
	case event.UserEntered:
		return ServerFrame{
			Type: FrameEvent, Event: EventUserEntered, Room: evt.Room,
			Payload: toUserDTO(evt.User),
		}, true
	case event.UserLeft:
		return ServerFrame{
			Type: FrameEvent, Event: EventUserLeft, Room: evt.Room,
			Payload: map[string]string{"userId": evt.UserID},
		}, true
	case event.MessageReceived:
		return ServerFrame{
			Type: FrameEvent, Event: EventMessage, Room: evt.Room,
			Payload: toMessageDTO(evt.Message),
		}, true
	case event.RoomCreated:
		return ServerFrame{
			Type: FrameEvent, Event: EventRoomCreated, Room: evt.Room.Name,
			Payload: toRoomDTO(evt.Room),
		}, true
	case event.RoomAbandoned:
		return ServerFrame{
			Type: FrameEvent, Event: EventRoomAbandoned, Room: evt.Room,
		}, true
	}
	return ServerFrame{}, false
}

// errorFrame maps a broker error onto its wire code.
func errorFrame(requestID string, err error) ServerFrame {
	code := CodeInternal
	switch err {
	case errors.ErrNameTaken:
		code = CodeNameTaken
	case errors.ErrRoomNotFound:
		code = CodeRoomNotFound
	case errors.ErrInvalidPasskey:
		code = CodeInvalidPasskey
	}
	return ServerFrame{
		Type:      FrameError,
		RequestID: requestID,
		Code:      code,
		Message:   err.Error(),
	}
}

func resultFrame(requestID string, payload any) ServerFrame {
	return ServerFrame{Type: FrameResult, RequestID: requestID, Payload: payload}
}

var validate = validator.New()
