package realtime

import (
	"context"
	"errors"
	"time"

	v1 "chatpad/shared/contracts/realtime/v1"
)

// Message is the persisted chat message. Records are append-only.
type Message struct {
	ID        string
	UserID    string
	Contents  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Public returns the wire form. It carries server-assigned fields only.
func (m Message) Public() v1.Message {
	return v1.Message{
		ID:        m.ID,
		UserID:    m.UserID,
		Contents:  m.Contents,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// CreateMessageInput describes a message append. Now defaults to the wall clock.
type CreateMessageInput struct {
	UserID   string
	Contents string
	Now      time.Time
}

// MessageStore persists and lists messages.
//
// Requirements:
//   - Create returns the record exactly as persisted (id and timestamps included)
//   - ListRecent returns the newest limit messages ordered oldest first
type MessageStore interface {
	Create(ctx context.Context, in CreateMessageInput) (Message, error)
	ListRecent(ctx context.Context, limit int) ([]Message, error)
	Close() error
}

var ErrInvalidMessage = errors.New("realtime: invalid message")

func validateCreate(in CreateMessageInput) error {
	if in.UserID == "" || in.Contents == "" {
		return ErrInvalidMessage
	}
	return nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}
