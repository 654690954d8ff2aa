package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"chatpad/cmd/security/token"
)

// Credentials mints and checks both token kinds. Minting a refresh token
// persists its record before the token string is returned.
type Credentials struct {
	access   *token.Codec
	refresh  *token.Codec
	registry Registry
	newID    func() string
}

func NewCredentials(cfg Config, registry Registry) (*Credentials, error) {
	if registry == nil {
		return nil, errors.New("session: nil registry")
	}
	access, err := token.NewCodec(token.KindAccess, cfg.AccessSecret, cfg.AccessTTL)
	if err != nil {
		return nil, fmt.Errorf("%w: access codec: %v", ErrConfig, err)
	}
	refresh, err := token.NewCodec(token.KindRefresh, cfg.RefreshSecret, cfg.RefreshTTL)
	if err != nil {
		return nil, fmt.Errorf("%w: refresh codec: %v", ErrConfig, err)
	}
	return &Credentials{access: access, refresh: refresh, registry: registry, newID: uuid.NewString}, nil
}

// Minted is one signed token with its expiry.
type Minted struct {
	Token     string
	ExpiresAt time.Time
}

func (c *Credentials) MintAccess(userID string, now time.Time) (Minted, error) {
	s, claims, err := c.access.Issue(userID, "", now)
	if err != nil {
		return Minted{}, err
	}
	return Minted{Token: s, ExpiresAt: claims.ExpiresAt.Time}, nil
}

// MintRefresh creates a record under a fresh random token id, then signs the token.
func (c *Credentials) MintRefresh(ctx context.Context, userID string, now time.Time) (Minted, error) {
	tokenID := c.newID()

	s, claims, err := c.refresh.Issue(userID, tokenID, now)
	if err != nil {
		return Minted{}, err
	}

	rec := Record{
		TokenID:   tokenID,
		UserID:    userID,
		CreatedAt: now.UTC(),
		ExpiresAt: claims.ExpiresAt.UTC(),
	}
	if err := c.registry.Create(ctx, rec); err != nil {
		return Minted{}, fmt.Errorf("persist refresh record: %w", err)
	}
	return Minted{Token: s, ExpiresAt: claims.ExpiresAt.Time}, nil
}

// VerifyAccess checks signature and expiry under the access secret. The kind
// claim is not checked here; callers compare it to token.KindAccess.
func (c *Credentials) VerifyAccess(tok string, now time.Time) (token.Claims, error) {
	return c.access.Verify(tok, now)
}

// ResolveRefresh returns the active record behind a refresh token. It fails
// with token.ErrInvalid, token.ErrWrongKind or ErrRecordNotFound.
func (c *Credentials) ResolveRefresh(ctx context.Context, tok string, now time.Time) (Record, token.Claims, error) {
	claims, err := c.refresh.Parse(tok, now)
	if err != nil {
		return Record{}, token.Claims{}, err
	}
	if claims.TokenID() == "" {
		return Record{}, token.Claims{}, ErrRecordNotFound
	}

	rec, err := c.registry.FindActive(ctx, claims.TokenID())
	if err != nil {
		return Record{}, token.Claims{}, err
	}
	if rec.UserID != claims.UserID() {
		return Record{}, token.Claims{}, ErrRecordNotFound
	}
	return rec, claims, nil
}

// Revoke revokes the record named by tokenID.
func (c *Credentials) Revoke(ctx context.Context, tokenID string, now time.Time) error {
	return c.registry.Revoke(ctx, tokenID, now)
}
