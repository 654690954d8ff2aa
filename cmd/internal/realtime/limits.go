package realtime

import "time"

const (
	// Max bytes per websocket frame read (hard limit).
	maxFrameBytes = 64 << 10 // 64 KiB

	// Max message contents length (runes).
	maxMessageChars = 4000
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 100
)

const (
	heartbeatInterval = 25 * time.Second
	heartbeatTimeout  = 5 * time.Second

	// Per-connection rate limits (events per window).
	rateLimitEvents = 30
	rateLimitWindow = 10 * time.Second

	// Connections with no inbound frame for this long are closed.
	idleTimeout = time.Hour
)
