package session

import (
	"errors"
	"net/http"
	"testing"
	"time"
)

func setSecrets(t *testing.T) {
	t.Helper()
	t.Setenv("CHATPAD_JWT_ACCESS_SECRET", "a-secret")
	t.Setenv("CHATPAD_JWT_REFRESH_SECRET", "r-secret")
}

func TestLoadConfigFromEnv_Defaults(t *testing.T) {
	setSecrets(t)

	cfg, err := LoadConfigFromEnv()
	if err != nil {
		t.Fatalf("LoadConfigFromEnv: %v", err)
	}
	if cfg.AccessTTL != 30*time.Minute || cfg.RefreshTTL != 14*24*time.Hour {
		t.Fatalf("ttl defaults = %s / %s", cfg.AccessTTL, cfg.RefreshTTL)
	}
	c := cfg.Cookies
	if c.AccessMaxAge != 600*time.Second || c.RefreshMaxAge != 1209600*time.Second {
		t.Fatalf("cookie max-age defaults = %s / %s", c.AccessMaxAge, c.RefreshMaxAge)
	}
	if c.AccessName != "accessToken" || c.RefreshName != "refreshToken" || c.SameSite != http.SameSiteStrictMode {
		t.Fatalf("cookie defaults = %+v", c)
	}
	if cfg.RevokeOnLogout {
		t.Fatalf("RevokeOnLogout must default to false")
	}
}

func TestLoadConfigFromEnv_FallbackSecrets(t *testing.T) {
	t.Setenv("CHATPAD_JWT_ACCESS_SECRET", "")
	t.Setenv("CHATPAD_JWT_REFRESH_SECRET", "")
	t.Setenv("JWT_ACCESS_SECRET", "legacy-a")
	t.Setenv("JWT_REFRESH_SECRET", "legacy-r")

	cfg, err := LoadConfigFromEnv()
	if err != nil {
		t.Fatalf("LoadConfigFromEnv: %v", err)
	}
	if string(cfg.AccessSecret) != "legacy-a" || string(cfg.RefreshSecret) != "legacy-r" {
		t.Fatalf("fallback secrets not used")
	}
}

func TestLoadConfigFromEnv_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing access", map[string]string{"CHATPAD_JWT_ACCESS_SECRET": "", "JWT_ACCESS_SECRET": ""}},
		{"missing refresh", map[string]string{"CHATPAD_JWT_REFRESH_SECRET": "", "JWT_REFRESH_SECRET": ""}},
		{"bad ttl", map[string]string{"CHATPAD_AUTH_ACCESS_TTL": "soon"}},
		{"negative ttl", map[string]string{"CHATPAD_AUTH_REFRESH_TTL": "-1h"}},
		{"bad bool", map[string]string{"CHATPAD_AUTH_REVOKE_ON_LOGOUT": "maybe"}},
		{"bad path", map[string]string{"CHATPAD_AUTH_COOKIE_PATH": "api"}},
		{"none insecure", map[string]string{"CHATPAD_AUTH_COOKIE_SAMESITE": "none"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setSecrets(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadConfigFromEnv()
			if !errors.Is(err, ErrConfig) {
				t.Fatalf("expected ErrConfig, got %v", err)
			}
		})
	}
}

func TestLoadConfigFromEnv_Overrides(t *testing.T) {
	setSecrets(t)
	t.Setenv("CHATPAD_AUTH_ACCESS_TTL", "5m")
	t.Setenv("CHATPAD_AUTH_COOKIE_SECURE", "true")
	t.Setenv("CHATPAD_AUTH_COOKIE_SAMESITE", "lax")
	t.Setenv("CHATPAD_AUTH_REVOKE_ON_LOGOUT", "1")

	cfg, err := LoadConfigFromEnv()
	if err != nil {
		t.Fatalf("LoadConfigFromEnv: %v", err)
	}
	if cfg.AccessTTL != 5*time.Minute || !cfg.Cookies.Secure || cfg.Cookies.SameSite != http.SameSiteLaxMode || !cfg.RevokeOnLogout {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
}
