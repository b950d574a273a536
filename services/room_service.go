//go:generate go run go.uber.org/mock/mockgen -source=room_service.go -destination=../mocks/mock_room_service.go -package=mocks
package services

import (
	"context"

	"chattr/contract"
	"chattr/domain"
	"chattr/runtime"
)

// IRoomService is the operation surface the transport layer programs
// against. It mirrors the caller-facing operations one to one.
type IRoomService interface {
	EnterLobby(ctx context.Context, connID string, identity domain.User, sink contract.EventSink)
	CreateRoom(ctx context.Context, connID, name, passkey string) (domain.RoomDescriptor, error)
	EnterRoom(ctx context.Context, connID, name, passkey string) error
	SendMessageToLobby(ctx context.Context, connID, text string) error
	SendMessageToRoom(ctx context.Context, connID, roomName, text string) error
	Disconnect(ctx context.Context, connID string)
}

type RoomService struct {
	hub *runtime.Hub
}

func NewRoomService(hub *runtime.Hub) *RoomService {
	return &RoomService{hub: hub}
}

var _ IRoomService = (*RoomService)(nil)

func (s *RoomService) EnterLobby(ctx context.Context, connID string, identity domain.User, sink contract.EventSink) {
	s.hub.EnterLobby(ctx, connID, identity, sink)
}

func (s *RoomService) CreateRoom(ctx context.Context, connID, name, passkey string) (domain.RoomDescriptor, error) {
	return s.hub.CreateRoom(ctx, connID, name, passkey)
}

func (s *RoomService) EnterRoom(ctx context.Context, connID, name, passkey string) error {
	return s.hub.EnterRoom(ctx, connID, name, passkey)
}

func (s *RoomService) SendMessageToLobby(ctx context.Context, connID, text string) error {
	return s.hub.SendMessage(ctx, connID, domain.LobbyName, text)
}

func (s *RoomService) SendMessageToRoom(ctx context.Context, connID, roomName, text string) error {
	return s.hub.SendMessage(ctx, connID, roomName, text)
}

func (s *RoomService) Disconnect(ctx context.Context, connID string) {
	s.hub.Disconnect(ctx, connID)
}
