package errors

import "fmt"

var (
	// ErrNameTaken reports a room creation collision. Caller-local: the
	// registry is left untouched.
	ErrNameTaken = fmt.Errorf("room name is taken")
	// ErrRoomNotFound reports entry into a room absent from the registry.
	ErrRoomNotFound = fmt.Errorf("room not found")
	// ErrInvalidPasskey reports a passkey mismatch on a gated room.
	ErrInvalidPasskey = fmt.Errorf("invalid passkey")

	ErrSessionUnknown = fmt.Errorf("unknown session")
	ErrWorkerPanic    = fmt.Errorf("worker panic")
	ErrEmptyWords     = fmt.Errorf("no words have been found")
	ErrOnlyWordFiles  = fmt.Errorf("words directory contains directories")
)
