package identity

import (
	"time"
)

// User is the chatpad account principal. PasswordHash never leaves the server.
type User struct {
	ID           string
	Username     string
	UsernameNorm string
	PasswordHash string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Sanitized is the only user representation sent to clients.
type Sanitized struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Username  string    `json:"username"`
}

func (u User) Sanitize() Sanitized {
	return Sanitized{
		ID:        u.ID,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
		Username:  u.Username,
	}
}

// CreateUserInput carries an already hashed password.
type CreateUserInput struct {
	Username     string
	PasswordHash string
	Now          time.Time
}
