package identity

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const MaxUsernameLen = 64

// NormalizeUsername is the lookup key for uniqueness: trimmed and lower-cased.
func NormalizeUsername(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ValidateUsername rejects blank, over-long, or control-character usernames.
func ValidateUsername(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return ErrInvalidInput
	}
	if utf8.RuneCountInString(s) > MaxUsernameLen || !utf8.ValidString(s) {
		return ErrInvalidInput
	}
	if strings.IndexFunc(s, unicode.IsControl) >= 0 {
		return ErrInvalidInput
	}
	return nil
}
