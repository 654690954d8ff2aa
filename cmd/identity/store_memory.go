package identity

import (
	"context"
	"strings"
	"sync"
	"time"

	"chatpad/cmd/identity/ids"
)

// MemoryStore keeps users in process memory. Used when no database is configured.
type MemoryStore struct {
	mu     sync.RWMutex
	byID   map[string]User
	byNorm map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:   make(map[string]User),
		byNorm: make(map[string]string),
	}
}

func (s *MemoryStore) GetByID(ctx context.Context, id string) (User, error) {
	const op = "identity.GetByID"
	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[strings.TrimSpace(id)]
	if !ok {
		return User{}, notFound(op)
	}
	return u, nil
}

func (s *MemoryStore) GetByUsername(ctx context.Context, username string) (User, error) {
	const op = "identity.GetByUsername"
	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byNorm[NormalizeUsername(username)]
	if !ok {
		return User{}, notFound(op)
	}
	return s.byID[id], nil
}

func (s *MemoryStore) Create(ctx context.Context, in CreateUserInput) (User, error) {
	const op = "identity.Create"
	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	u, err := newUser(op, in)
	if err != nil {
		return User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byNorm[u.UsernameNorm]; taken {
		return User{}, ConflictError{Op: op, Field: "username"}
	}
	s.byID[u.ID] = u
	s.byNorm[u.UsernameNorm] = u.ID
	return u, nil
}

// newUser validates input and assigns id and timestamps.
func newUser(op string, in CreateUserInput) (User, error) {
	if err := ValidateUsername(in.Username); err != nil {
		return User{}, invalid(op, "invalid username")
	}
	if strings.TrimSpace(in.PasswordHash) == "" {
		return User{}, invalid(op, "password hash is required")
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC().Truncate(time.Microsecond)

	id, err := ids.NewULID(now)
	if err != nil {
		return User{}, err
	}

	name := strings.TrimSpace(in.Username)
	return User{
		ID:           id,
		Username:     name,
		UsernameNorm: NormalizeUsername(name),
		PasswordHash: in.PasswordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}
