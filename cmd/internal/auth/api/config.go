package authapi

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config controls the auth HTTP surface.
type Config struct {
	MaxBodyBytes int64
	TrustProxy   bool

	// LoginIPMax failed logins per LoginIPWindow from one address before 429.
	// Zero disables the throttle.
	LoginIPMax    int
	LoginIPWindow time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxBodyBytes:  64 << 10,
		LoginIPMax:    20,
		LoginIPWindow: 5 * time.Minute,
	}
}

// LoadConfigFromEnv reads CHATPAD_AUTH_MAX_BODY_BYTES, CHATPAD_AUTH_TRUST_PROXY,
// CHATPAD_AUTH_LOGIN_IP_MAX and CHATPAD_AUTH_LOGIN_IP_WINDOW. Invalid values
// fall back to defaults.
func LoadConfigFromEnv() Config {
	def := DefaultConfig()
	return Config{
		MaxBodyBytes:  envInt64("CHATPAD_AUTH_MAX_BODY_BYTES", def.MaxBodyBytes),
		TrustProxy:    envBool("CHATPAD_AUTH_TRUST_PROXY", def.TrustProxy),
		LoginIPMax:    envInt("CHATPAD_AUTH_LOGIN_IP_MAX", def.LoginIPMax),
		LoginIPWindow: envDuration("CHATPAD_AUTH_LOGIN_IP_WINDOW", def.LoginIPWindow),
	}
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func envInt64(key string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
