package token

import (
	"os"
	"strings"
)

// #nosec G101 -- environment variable names, not credentials.
const (
	AccessSecretEnv          = "CHATPAD_JWT_ACCESS_SECRET"
	RefreshSecretEnv         = "CHATPAD_JWT_REFRESH_SECRET"
	AccessSecretFallbackEnv  = "JWT_ACCESS_SECRET"
	RefreshSecretFallbackEnv = "JWT_REFRESH_SECRET"
)

// SecretFromEnv returns the first non-blank value among keys (trimmed).
func SecretFromEnv(keys ...string) ([]byte, error) {
	for _, k := range keys {
		if raw := strings.TrimSpace(os.Getenv(k)); raw != "" {
			return []byte(raw), nil
		}
	}
	return nil, ErrSecretMissing
}

// ValidateSecret enforces a minimum byte length. minBytes <= 0 only rejects empty secrets.
func ValidateSecret(secret []byte, minBytes int) error {
	if len(secret) == 0 {
		return ErrSecretMissing
	}
	if minBytes > 0 && len(secret) < minBytes {
		return ErrSecretTooShort
	}
	return nil
}
