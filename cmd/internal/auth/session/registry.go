package session

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Record is the server-side half of a refresh token.
type Record struct {
	TokenID   string
	UserID    string
	Revoked   bool
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Registry persists refresh records.
type Registry interface {
	Create(ctx context.Context, rec Record) error

	// FindActive returns the record for tokenID if it exists and is not
	// revoked; otherwise ErrRecordNotFound.
	FindActive(ctx context.Context, tokenID string) (Record, error)

	// Revoke marks the record revoked. Revoking a missing or already revoked
	// record is not an error.
	Revoke(ctx context.Context, tokenID string, now time.Time) error
}

// MemoryRegistry is the in-process Registry used without a database.
type MemoryRegistry struct {
	mu      sync.RWMutex
	records map[string]Record
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{records: make(map[string]Record)}
}

func (m *MemoryRegistry) Create(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(rec.TokenID) == "" || strings.TrimSpace(rec.UserID) == "" {
		return ErrRecordNotFound
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.TokenID] = rec
	return nil
}

func (m *MemoryRegistry) FindActive(ctx context.Context, tokenID string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[tokenID]
	if !ok || rec.Revoked {
		return Record{}, ErrRecordNotFound
	}
	return rec, nil
}

func (m *MemoryRegistry) Revoke(ctx context.Context, tokenID string, _ time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if rec, ok := m.records[tokenID]; ok {
		rec.Revoked = true
		m.records[tokenID] = rec
	}
	return nil
}
