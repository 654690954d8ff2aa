package realtime

import (
	"time"

	"chatpad/cmd/identity/ids"
)

// NewConnectionID returns a ULID naming one websocket connection.
func NewConnectionID(now time.Time) (string, error) {
	return ids.NewULID(now)
}

// NewMessageID returns the ULID primary key of a message (26 chars, checked by the schema).
func NewMessageID(now time.Time) (string, error) {
	return ids.NewULID(now)
}
