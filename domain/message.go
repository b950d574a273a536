// Package domain contains core concepts of the chat system.
// This file defines Message values and related rules.
// Messages are immutable once appended and validated by the domain.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message represents an immutable chat entry in a room history.
type Message struct {
	ID         uuid.UUID // unique identifier
	SenderID   string
	SenderName string
	Text       string
	PostedAt   time.Time
}
