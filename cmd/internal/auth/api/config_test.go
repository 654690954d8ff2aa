package authapi

import (
	"testing"
	"time"
)

func TestLoadConfigFromEnv_Defaults(t *testing.T) {
	cfg := LoadConfigFromEnv()
	if cfg != DefaultConfig() {
		t.Fatalf("cfg = %+v, want defaults", cfg)
	}
}

func TestLoadConfigFromEnv_OverridesAndFallbacks(t *testing.T) {
	t.Setenv("CHATPAD_AUTH_MAX_BODY_BYTES", "2048")
	t.Setenv("CHATPAD_AUTH_TRUST_PROXY", "true")
	t.Setenv("CHATPAD_AUTH_LOGIN_IP_MAX", "0")
	t.Setenv("CHATPAD_AUTH_LOGIN_IP_WINDOW", "not-a-duration")

	cfg := LoadConfigFromEnv()
	if cfg.MaxBodyBytes != 2048 || !cfg.TrustProxy {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.LoginIPMax != 0 {
		t.Fatalf("LoginIPMax = %d, want 0 (disabled)", cfg.LoginIPMax)
	}
	if cfg.LoginIPWindow != 5*time.Minute {
		t.Fatalf("invalid window should fall back, got %s", cfg.LoginIPWindow)
	}
}
