package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

func (k Kind) Valid() bool { return k == KindAccess || k == KindRefresh }

// Claims is the signed claim set. ID (jti) is only set on refresh tokens.
type Claims struct {
	Kind Kind `json:"tokenType"`
	jwt.RegisteredClaims
}

// UserID returns the subject claim.
func (c Claims) UserID() string { return c.Subject }

// TokenID returns the jti claim.
func (c Claims) TokenID() string { return c.ID }

var signingMethod = jwt.SigningMethodHS256

// Sign stamps iat=now and exp=now+ttl onto claims and signs them with secret.
func Sign(claims Claims, secret []byte, ttl time.Duration, now time.Time) (string, error) {
	if len(secret) == 0 {
		return "", ErrSecretMissing
	}
	if ttl <= 0 {
		return "", fmt.Errorf("token ttl must be positive, got %s", ttl)
	}
	if !claims.Kind.Valid() {
		return "", fmt.Errorf("token kind %q unsupported", claims.Kind)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", errors.New("token subject required")
	}

	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))

	s, err := jwt.NewWithClaims(signingMethod, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return s, nil
}

// Verify checks signature and expiry as of now. Any failure is ErrInvalid.
func Verify(tokenString string, secret []byte, now time.Time) (Claims, error) {
	if len(secret) == 0 || strings.TrimSpace(tokenString) == "" {
		return Claims{}, ErrInvalid
	}

	var claims Claims
	parsed, err := jwt.ParseWithClaims(tokenString, &claims,
		func(*jwt.Token) (any, error) { return secret, nil },
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return Claims{}, ErrInvalid
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return Claims{}, ErrInvalid
	}
	return claims, nil
}
