package realtime

import (
	"context"
	"sync"
	"time"
)

const memMaxMessages = 10_000

// InMemoryStore is the fallback when no database is configured.
// It keeps the newest memMaxMessages in insertion order.
type InMemoryStore struct {
	mu   sync.Mutex
	msgs []Message
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{msgs: make([]Message, 0, 256)}
}

// Close is a noop.
func (s *InMemoryStore) Close() error { return nil }

func (s *InMemoryStore) Create(ctx context.Context, in CreateMessageInput) (Message, error) {
	if err := validateCreate(in); err != nil {
		return Message{}, err
	}
	if err := ctx.Err(); err != nil {
		return Message{}, err
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC().Truncate(time.Microsecond)

	id, err := NewMessageID(now)
	if err != nil {
		return Message{}, err
	}
	msg := Message{ID: id, UserID: in.UserID, Contents: in.Contents, CreatedAt: now, UpdatedAt: now}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.msgs = append(s.msgs, msg)
	if len(s.msgs) > memMaxMessages {
		s.msgs = append(s.msgs[:0:0], s.msgs[len(s.msgs)-memMaxMessages:]...)
	}
	return msg, nil
}

func (s *InMemoryStore) ListRecent(ctx context.Context, limit int) ([]Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	limit = clampLimit(limit)

	s.mu.Lock()
	defer s.mu.Unlock()

	start := len(s.msgs) - limit
	if start < 0 {
		start = 0
	}
	return append([]Message(nil), s.msgs[start:]...), nil
}
