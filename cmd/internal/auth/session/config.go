package session

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"chatpad/cmd/security/token"
)

// CookieConfig describes the two credential cookies.
type CookieConfig struct {
	AccessName    string
	RefreshName   string
	AccessMaxAge  time.Duration
	RefreshMaxAge time.Duration
	Path          string
	Domain        string
	Secure        bool
	SameSite      http.SameSite
}

type Config struct {
	AccessSecret  []byte
	RefreshSecret []byte

	AccessTTL  time.Duration
	RefreshTTL time.Duration

	Cookies CookieConfig

	// RevokeOnLogout also revokes the refresh record named by the logout
	// request's refresh cookie. Off by default: logout only clears cookies.
	RevokeOnLogout bool
}

// DefaultConfig has everything except the secrets.
func DefaultConfig() Config {
	return Config{
		AccessTTL:  30 * time.Minute,
		RefreshTTL: 14 * 24 * time.Hour,
		Cookies: CookieConfig{
			AccessName:    "accessToken",
			RefreshName:   "refreshToken",
			AccessMaxAge:  600 * time.Second,
			RefreshMaxAge: 1_209_600 * time.Second,
			Path:          "/",
			SameSite:      http.SameSiteStrictMode,
		},
	}
}

// LoadConfigFromEnv reads session configuration.
//
// Required:
//   - CHATPAD_JWT_ACCESS_SECRET (or JWT_ACCESS_SECRET)
//   - CHATPAD_JWT_REFRESH_SECRET (or JWT_REFRESH_SECRET)
//
// Optional:
//   - CHATPAD_AUTH_ACCESS_TTL, CHATPAD_AUTH_REFRESH_TTL
//   - CHATPAD_AUTH_ACCESS_COOKIE_MAX_AGE, CHATPAD_AUTH_REFRESH_COOKIE_MAX_AGE
//   - CHATPAD_AUTH_COOKIE_SECURE, CHATPAD_AUTH_COOKIE_PATH, CHATPAD_AUTH_COOKIE_DOMAIN
//   - CHATPAD_AUTH_COOKIE_SAMESITE (strict|lax|none)
//   - CHATPAD_AUTH_REVOKE_ON_LOGOUT
//
// Every failure wraps ErrConfig.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	var err error
	if cfg.AccessSecret, err = token.SecretFromEnv(token.AccessSecretEnv, token.AccessSecretFallbackEnv); err != nil {
		return Config{}, fmt.Errorf("%w: %s: %v", ErrConfig, token.AccessSecretEnv, err)
	}
	if cfg.RefreshSecret, err = token.SecretFromEnv(token.RefreshSecretEnv, token.RefreshSecretFallbackEnv); err != nil {
		return Config{}, fmt.Errorf("%w: %s: %v", ErrConfig, token.RefreshSecretEnv, err)
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"CHATPAD_AUTH_ACCESS_TTL", &cfg.AccessTTL},
		{"CHATPAD_AUTH_REFRESH_TTL", &cfg.RefreshTTL},
		{"CHATPAD_AUTH_ACCESS_COOKIE_MAX_AGE", &cfg.Cookies.AccessMaxAge},
		{"CHATPAD_AUTH_REFRESH_COOKIE_MAX_AGE", &cfg.Cookies.RefreshMaxAge},
	}
	for _, d := range durations {
		v := strings.TrimSpace(os.Getenv(d.key))
		if v == "" {
			continue
		}
		parsed, perr := time.ParseDuration(v)
		if perr != nil || parsed <= 0 {
			return Config{}, fmt.Errorf("%w: %s must be a positive duration", ErrConfig, d.key)
		}
		*d.dst = parsed
	}

	bools := []struct {
		key string
		dst *bool
	}{
		{"CHATPAD_AUTH_COOKIE_SECURE", &cfg.Cookies.Secure},
		{"CHATPAD_AUTH_REVOKE_ON_LOGOUT", &cfg.RevokeOnLogout},
	}
	for _, b := range bools {
		v := strings.TrimSpace(os.Getenv(b.key))
		if v == "" {
			continue
		}
		parsed, perr := strconv.ParseBool(v)
		if perr != nil {
			return Config{}, fmt.Errorf("%w: %s must be a boolean", ErrConfig, b.key)
		}
		*b.dst = parsed
	}

	if v := strings.TrimSpace(os.Getenv("CHATPAD_AUTH_COOKIE_PATH")); v != "" {
		if !strings.HasPrefix(v, "/") {
			return Config{}, fmt.Errorf("%w: CHATPAD_AUTH_COOKIE_PATH must start with /", ErrConfig)
		}
		cfg.Cookies.Path = v
	}
	cfg.Cookies.Domain = strings.TrimSpace(os.Getenv("CHATPAD_AUTH_COOKIE_DOMAIN"))

	if v := strings.TrimSpace(os.Getenv("CHATPAD_AUTH_COOKIE_SAMESITE")); v != "" {
		switch strings.ToLower(v) {
		case "strict":
			cfg.Cookies.SameSite = http.SameSiteStrictMode
		case "lax":
			cfg.Cookies.SameSite = http.SameSiteLaxMode
		case "none":
			cfg.Cookies.SameSite = http.SameSiteNoneMode
		default:
			return Config{}, fmt.Errorf("%w: CHATPAD_AUTH_COOKIE_SAMESITE must be strict, lax or none", ErrConfig)
		}
	}
	if cfg.Cookies.SameSite == http.SameSiteNoneMode && !cfg.Cookies.Secure {
		return Config{}, fmt.Errorf("%w: SameSite=None requires CHATPAD_AUTH_COOKIE_SECURE=true", ErrConfig)
	}

	return cfg, nil
}
