package app

import (
	"bytes"
	"errors"
	"fmt"

	"chatpad/cmd/internal/auth/session"
	"chatpad/cmd/security/token"
)

const strongSecretMinBytes = 32

// ValidateSecurityConfig enforces the startup secret policy. It is a no-op
// unless RequireStrongSecrets is set.
func ValidateSecurityConfig(cfg Config, sess session.Config) error {
	if !cfg.RequireStrongSecrets {
		return nil
	}

	secrets := []struct {
		env    string
		secret []byte
	}{
		{token.AccessSecretEnv, sess.AccessSecret},
		{token.RefreshSecretEnv, sess.RefreshSecret},
	}
	for _, s := range secrets {
		if err := token.ValidateSecret(s.secret, strongSecretMinBytes); err != nil {
			if errors.Is(err, token.ErrSecretTooShort) {
				return fmt.Errorf("security policy: CHATPAD_REQUIRE_STRONG_SECRETS=true but %s is too short (min %d bytes)",
					s.env, strongSecretMinBytes)
			}
			return fmt.Errorf("security policy: %s: %w", s.env, err)
		}
	}
	if sharedSecret(sess) {
		return errors.New("security policy: CHATPAD_REQUIRE_STRONG_SECRETS=true but access and refresh secrets are identical")
	}
	return nil
}

func sharedSecret(sess session.Config) bool {
	return bytes.Equal(sess.AccessSecret, sess.RefreshSecret)
}
