package session

import (
	"errors"

	"chatpad/cmd/internal/apperr"
	"chatpad/cmd/security/token"
)

var (
	// ErrRecordNotFound is returned by Registry.FindActive for a missing or revoked record.
	ErrRecordNotFound = errors.New("refresh record not found")

	// ErrConfig is returned for invalid or incomplete configuration.
	ErrConfig = apperr.ErrConfig
)

// isCredentialFailure separates "this token is no good" from infrastructure errors.
func isCredentialFailure(err error) bool {
	return errors.Is(err, token.ErrInvalid) ||
		errors.Is(err, token.ErrWrongKind) ||
		errors.Is(err, ErrRecordNotFound)
}
