package identity

import (
	"errors"
	"fmt"

	"chatpad/cmd/security/password"
)

// Hasher adapts cmd/security/password to account operations. It keeps a
// dummy hash so a login for an unknown user still costs one Argon2id verify.
type Hasher struct {
	cfg   password.Config
	dummy string
}

func NewHasher(cfg password.Config) (*Hasher, error) {
	dummy, err := cfg.DummyHash()
	if err != nil {
		return nil, fmt.Errorf("identity: dummy hash: %w", err)
	}
	return &Hasher{cfg: cfg, dummy: dummy}, nil
}

// HasherFromEnv builds a Hasher from CHATPAD_ARGON2_* / CHATPAD_PASSWORD_* settings.
func HasherFromEnv() (*Hasher, error) {
	cfg, err := password.FromEnv()
	if err != nil {
		return nil, err
	}
	return NewHasher(cfg)
}

func (h *Hasher) MinLength() int { return h.cfg.Policy.MinLength }

// Hash applies the password policy; a violation is ErrInvalidInput with a client-safe message.
func (h *Hasher) Hash(plain string) (string, error) {
	const op = "identity.HashPassword"

	enc, err := h.cfg.Hash(plain)
	switch {
	case err == nil:
		return enc, nil
	case errors.Is(err, password.ErrPasswordTooShort):
		return "", invalid(op, fmt.Sprintf("password must be at least %d characters", h.cfg.Policy.MinLength))
	case errors.Is(err, password.ErrPasswordTooLong):
		return "", invalid(op, "password too long")
	case errors.Is(err, password.ErrWeakPassword):
		return "", invalid(op, "password too weak")
	default:
		return "", err
	}
}

// Verify reports a match. Malformed stored hashes count as a mismatch.
func (h *Hasher) Verify(encoded, plain string) bool {
	ok, err := h.cfg.Verify(encoded, plain)
	return err == nil && ok
}

// VerifyDummy burns one verify against the dummy hash and always returns false.
func (h *Hasher) VerifyDummy(plain string) bool {
	_, _ = h.cfg.Verify(h.dummy, plain)
	return false
}
