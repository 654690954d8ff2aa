package identity

import "context"

// Reader is the read side used by the auth gate and login.
// Both lookups return ErrNotFound (via OpError) for a missing user.
type Reader interface {
	GetByID(ctx context.Context, id string) (User, error)
	GetByUsername(ctx context.Context, username string) (User, error)
}

// Store adds account creation. Create returns a ConflictError when the
// normalized username is already taken.
type Store interface {
	Reader
	Create(ctx context.Context, in CreateUserInput) (User, error)
}
