package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Codec binds one kind to its secret and lifetime.
type Codec struct {
	kind   Kind
	secret []byte
	ttl    time.Duration
}

func NewCodec(kind Kind, secret []byte, ttl time.Duration) (*Codec, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("token kind %q unsupported", kind)
	}
	if len(secret) == 0 {
		return nil, fmt.Errorf("%s: %w", kind, ErrSecretMissing)
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("%s: ttl must be positive", kind)
	}
	return &Codec{kind: kind, secret: append([]byte(nil), secret...), ttl: ttl}, nil
}

func (c *Codec) Kind() Kind { return c.kind }

func (c *Codec) TTL() time.Duration { return c.ttl }

// Issue signs a token of the codec's kind for subject. tokenID may be empty.
func (c *Codec) Issue(subject, tokenID string, now time.Time) (string, Claims, error) {
	claims := Claims{Kind: c.kind}
	claims.Subject = subject
	claims.ID = tokenID

	s, err := Sign(claims, c.secret, c.ttl, now)
	if err != nil {
		return "", Claims{}, err
	}
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(c.ttl))
	return s, claims, nil
}

// Verify checks signature and expiry only. The kind claim is returned as-is.
func (c *Codec) Verify(tokenString string, now time.Time) (Claims, error) {
	return Verify(tokenString, c.secret, now)
}

// Parse is Verify followed by the kind check.
func (c *Codec) Parse(tokenString string, now time.Time) (Claims, error) {
	claims, err := c.Verify(tokenString, now)
	if err != nil {
		return Claims{}, err
	}
	if claims.Kind != c.kind {
		return Claims{}, ErrWrongKind
	}
	return claims, nil
}
