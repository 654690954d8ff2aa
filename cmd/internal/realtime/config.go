package realtime

import (
	"net"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// GatewayConfig tunes the websocket gateway.
type GatewayConfig struct {
	// AllowedOrigins is an explicit allowlist. When empty, only same-host
	// origins are accepted (websocket.Accept's default).
	AllowedOrigins []string
	OriginRequired bool

	// InsecureSkipVerify disables the origin check entirely. Dev only.
	InsecureSkipVerify bool

	WriteTimeout  time.Duration
	IdleTimeout   time.Duration
	SendQueueSize int

	HeartbeatInterval time.Duration
	HeartbeatTimeout  time.Duration

	RateEvents int
	RateWindow time.Duration
}

const (
	wsDefaultSendQueueSize = 256
	wsMinSendQueueSize     = 32
	wsDefaultWriteTimeout  = 5 * time.Second
)

func DefaultGatewayConfig() GatewayConfig {
	return GatewayConfig{
		WriteTimeout:      wsDefaultWriteTimeout,
		IdleTimeout:       idleTimeout,
		SendQueueSize:     wsDefaultSendQueueSize,
		HeartbeatInterval: heartbeatInterval,
		HeartbeatTimeout:  heartbeatTimeout,
		RateEvents:        rateLimitEvents,
		RateWindow:        rateLimitWindow,
	}
}

// LoadGatewayConfigFromEnv reads CHATPAD_WS_* settings. Invalid values fall
// back to defaults.
func LoadGatewayConfigFromEnv() GatewayConfig {
	cfg := DefaultGatewayConfig()

	cfg.InsecureSkipVerify = envBoolWS("CHATPAD_WS_DEV_INSECURE", false)
	cfg.OriginRequired = envBoolWS("CHATPAD_WS_ORIGIN_REQUIRED", false)
	cfg.AllowedOrigins = envCSVWS("CHATPAD_WS_ALLOWED_ORIGINS")

	cfg.WriteTimeout = envDurationWS("CHATPAD_WS_WRITE_TIMEOUT", cfg.WriteTimeout)
	cfg.IdleTimeout = envDurationWS("CHATPAD_WS_IDLE_TIMEOUT", cfg.IdleTimeout)
	cfg.SendQueueSize = envIntWS("CHATPAD_WS_SEND_QUEUE", cfg.SendQueueSize)

	cfg.HeartbeatInterval = envDurationWS("CHATPAD_WS_HEARTBEAT_INTERVAL", cfg.HeartbeatInterval)
	cfg.HeartbeatTimeout = envDurationWS("CHATPAD_WS_HEARTBEAT_TIMEOUT", cfg.HeartbeatTimeout)

	cfg.RateEvents = envIntWS("CHATPAD_WS_RATE_EVENTS", cfg.RateEvents)
	cfg.RateWindow = envDurationWS("CHATPAD_WS_RATE_WINDOW", cfg.RateWindow)

	return cfg.normalized()
}

func (c GatewayConfig) normalized() GatewayConfig {
	d := DefaultGatewayConfig()
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = d.IdleTimeout
	}
	if c.SendQueueSize < wsMinSendQueueSize {
		c.SendQueueSize = wsMinSendQueueSize
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = d.HeartbeatInterval
	}
	if c.HeartbeatTimeout <= 0 {
		c.HeartbeatTimeout = d.HeartbeatTimeout
	}
	if c.RateEvents <= 0 {
		c.RateEvents = d.RateEvents
	}
	if c.RateWindow <= 0 {
		c.RateWindow = d.RateWindow
	}
	return c
}

// ---- origin policy ----

// originAllowed applies the explicit allowlist. An empty allowlist defers to
// websocket.Accept's same-host check.
func (c GatewayConfig) originAllowed(origin string) bool {
	origin = strings.TrimSpace(origin)
	if origin == "" {
		return !c.OriginRequired
	}
	if len(c.AllowedOrigins) == 0 {
		return true
	}

	host := originHostOnly(origin)
	for _, a := range c.AllowedOrigins {
		a = strings.TrimSpace(a)
		switch {
		case a == "":
			continue
		case a == "*", a == origin:
			return true
		case host != "" && host == originHostOnly(a):
			return true
		}
	}
	return false
}

func originHostOnly(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if strings.Contains(s, "://") {
		u, err := url.Parse(s)
		if err != nil {
			return ""
		}
		s = strings.TrimSpace(u.Host)
		if s == "" {
			return ""
		}
	}
	if host, _, err := net.SplitHostPort(s); err == nil {
		return strings.ToLower(host)
	}
	return strings.ToLower(s)
}

// originPatterns derives websocket.Accept patterns from the allowlist so the
// two checks agree on cross-origin hosts.
func (c GatewayConfig) originPatterns() []string {
	seen := make(map[string]struct{}, len(c.AllowedOrigins))
	for _, a := range c.AllowedOrigins {
		h := originHostOnly(a)
		if h == "" || h == "*" {
			continue
		}
		seen[h] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for h := range seen {
		out = append(out, h)
	}
	sort.Strings(out)
	return out
}

// ---- env helpers ----

func envBoolWS(key string, def bool) bool {
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

func envIntWS(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envDurationWS(key string, def time.Duration) time.Duration {
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

func envCSVWS(key string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
