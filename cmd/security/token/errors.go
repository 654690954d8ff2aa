package token

import "errors"

var (
	ErrInvalid   = errors.New("token invalid")
	ErrWrongKind = errors.New("token kind mismatch")

	ErrSecretMissing  = errors.New("token secret missing")
	ErrSecretTooShort = errors.New("token secret too short")
)
