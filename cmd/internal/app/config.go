package app

import (
	"time"

	"chatpad/cmd/internal/migrations"
)

// Config contains the server runtime configuration loaded from CHATPAD_* variables.
// Auth, session and websocket settings are loaded by their own packages.
type Config struct {
	HTTPAddr  string
	LogLevel  string
	LogFormat string // json | pretty

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	// WriteTimeout 0 disables the server write deadline. Websocket
	// connections are long-lived and must not inherit one.
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int

	DatabaseURL string
	DBSchema    string
	DBMaxConns  int32
	DBMinConns  int32
	AutoMigrate bool

	// If true, /readyz returns 503 unless the database is configured and reachable.
	ReadinessRequireDB bool

	MetricsEnabled bool

	// If true, both JWT secrets must be at least 32 bytes and differ.
	RequireStrongSecrets bool

	CORSAllowedOrigins   []string
	CORSAllowCredentials bool
	CORSMaxAgeSeconds    int
}

// LoadConfig loads Config from the environment with defaults.
func LoadConfig() Config {
	return Config{
		HTTPAddr:  EnvString("CHATPAD_HTTP_ADDR", "0.0.0.0:3000"),
		LogLevel:  EnvString("CHATPAD_LOG_LEVEL", "info"),
		LogFormat: EnvString("CHATPAD_LOG_FORMAT", "json"),

		ReadHeaderTimeout: EnvDuration("CHATPAD_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("CHATPAD_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("CHATPAD_HTTP_WRITE_TIMEOUT", 0),
		IdleTimeout:       EnvDuration("CHATPAD_HTTP_IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    EnvInt("CHATPAD_HTTP_MAX_HEADER_BYTES", 1<<20),

		DatabaseURL: EnvString("CHATPAD_DATABASE_URL", ""),
		DBSchema:    EnvString("CHATPAD_DB_SCHEMA", migrations.DefaultSchema),
		DBMaxConns:  EnvInt32("CHATPAD_DB_MAX_CONNS", 10),
		DBMinConns:  EnvInt32("CHATPAD_DB_MIN_CONNS", 0),
		AutoMigrate: EnvBool("CHATPAD_DB_AUTO_MIGRATE", true),

		ReadinessRequireDB: EnvBool("CHATPAD_READINESS_REQUIRE_DB", false),
		MetricsEnabled:     EnvBool("CHATPAD_METRICS_ENABLED", true),

		RequireStrongSecrets: EnvBool("CHATPAD_REQUIRE_STRONG_SECRETS", false),

		CORSAllowedOrigins:   EnvCSV("CHATPAD_CORS_ALLOWED_ORIGINS"),
		CORSAllowCredentials: EnvBool("CHATPAD_CORS_ALLOW_CREDENTIALS", true),
		CORSMaxAgeSeconds:    EnvInt("CHATPAD_CORS_MAX_AGE", 600),
	}
}
