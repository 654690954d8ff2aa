package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"chatpad/cmd/identity"
	"chatpad/cmd/internal/apperr"
)

const msgUsernameTaken = "Account with username already exists"

// PasswordHasher is the password primitive used by login and registration.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(encoded, plain string) bool
	VerifyDummy(plain string) bool
}

// Service runs the session issuance flow. Every error it returns is an
// apperr kind (Unauthorized, BadRequest) or an internal failure.
type Service struct {
	cfg    Config
	users  identity.Store
	hasher PasswordHasher
	creds  *Credentials
}

// Issued is the result of a successful login or registration.
type Issued struct {
	User    identity.User
	Access  Minted
	Refresh Minted
}

func NewService(cfg Config, users identity.Store, hasher PasswordHasher, creds *Credentials) *Service {
	return &Service{cfg: cfg, users: users, hasher: hasher, creds: creds}
}

func (s *Service) Config() Config { return s.cfg }

// Login returns the same Unauthorized error for an unknown user and a wrong
// password. The unknown-user path still performs one password verify.
func (s *Service) Login(ctx context.Context, username, password string, now time.Time) (Issued, error) {
	const op = "session.Login"

	u, err := s.users.GetByUsername(ctx, username)
	switch {
	case identity.IsNotFound(err):
		s.hasher.VerifyDummy(password)
		return Issued{}, apperr.Unauthorized(op)
	case err != nil:
		return Issued{}, fmt.Errorf("%s: lookup: %w", op, err)
	}

	if !s.hasher.Verify(u.PasswordHash, password) {
		return Issued{}, apperr.Unauthorized(op)
	}
	return s.issue(ctx, op, u, now)
}

// Register checks the username before creating the account; a unique
// violation on insert (concurrent registration) maps to the same error.
func (s *Service) Register(ctx context.Context, username, password string, now time.Time) (Issued, error) {
	const op = "session.Register"

	if err := identity.ValidateUsername(username); err != nil {
		return Issued{}, apperr.BadRequest(op, "Invalid username")
	}

	_, err := s.users.GetByUsername(ctx, username)
	switch {
	case err == nil:
		return Issued{}, apperr.BadRequest(op, msgUsernameTaken)
	case !identity.IsNotFound(err):
		return Issued{}, fmt.Errorf("%s: lookup: %w", op, err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		var oe identity.OpError
		if errors.As(err, &oe) && errors.Is(err, identity.ErrInvalidInput) {
			return Issued{}, apperr.BadRequest(op, capitalize(oe.Msg))
		}
		return Issued{}, fmt.Errorf("%s: hash: %w", op, err)
	}

	u, err := s.users.Create(ctx, identity.CreateUserInput{Username: username, PasswordHash: hash, Now: now})
	switch {
	case identity.IsConflict(err):
		return Issued{}, apperr.BadRequest(op, msgUsernameTaken)
	case identity.IsInvalidInput(err):
		return Issued{}, apperr.BadRequest(op, "Invalid username")
	case err != nil:
		return Issued{}, fmt.Errorf("%s: create: %w", op, err)
	}
	return s.issue(ctx, op, u, now)
}

func (s *Service) issue(ctx context.Context, op string, u identity.User, now time.Time) (Issued, error) {
	access, err := s.creds.MintAccess(u.ID, now)
	if err != nil {
		return Issued{}, fmt.Errorf("%s: mint access: %w", op, err)
	}
	refresh, err := s.creds.MintRefresh(ctx, u.ID, now)
	if err != nil {
		return Issued{}, fmt.Errorf("%s: mint refresh: %w", op, err)
	}
	return Issued{User: u, Access: access, Refresh: refresh}, nil
}

// Refresh mints a new access token from a valid refresh token. The refresh
// token is not rotated. A missing token, a bad signature, the wrong kind or
// a missing/revoked record all yield Unauthorized.
func (s *Service) Refresh(ctx context.Context, refreshToken string, now time.Time) (Minted, error) {
	const op = "session.Refresh"

	if strings.TrimSpace(refreshToken) == "" {
		return Minted{}, apperr.Unauthorized(op)
	}

	rec, _, err := s.creds.ResolveRefresh(ctx, refreshToken, now)
	if err != nil {
		if isCredentialFailure(err) {
			return Minted{}, apperr.Wrap(op, apperr.ErrUnauthorized, "Unauthorized", err)
		}
		return Minted{}, fmt.Errorf("%s: %w", op, err)
	}

	access, err := s.creds.MintAccess(rec.UserID, now)
	if err != nil {
		return Minted{}, fmt.Errorf("%s: mint access: %w", op, err)
	}
	return access, nil
}

// Logout revokes the refresh record only when RevokeOnLogout is set. It
// reports whether a record was revoked; failures are returned for logging,
// callers still clear cookies.
func (s *Service) Logout(ctx context.Context, refreshToken string, now time.Time) (bool, error) {
	if !s.cfg.RevokeOnLogout || strings.TrimSpace(refreshToken) == "" {
		return false, nil
	}

	rec, _, err := s.creds.ResolveRefresh(ctx, refreshToken, now)
	if err != nil {
		if isCredentialFailure(err) {
			return false, nil
		}
		return false, fmt.Errorf("session.Logout: %w", err)
	}
	if err := s.creds.Revoke(ctx, rec.TokenID, now); err != nil {
		return false, fmt.Errorf("session.Logout: %w", err)
	}
	return true, nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
