package app

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"chatpad/cmd/internal/migrations"
)

// Run is the serve entrypoint used by cmd/chatpad. It returns an error
// instead of exiting so deferred cleanup runs.
func Run(ctx context.Context) error {
	cfg := LoadConfig()
	log := NewLogger(cfg.LogLevel, cfg.LogFormat, nil)

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := New(ctx, cfg, log)
	if err != nil {
		log.Error("server.init.fail", "err", err)
		return err
	}
	return a.Run(ctx)
}

// Migrate applies pending migrations to CHATPAD_DATABASE_URL and reports the
// resulting version.
func Migrate(ctx context.Context) (int64, error) {
	cfg := LoadConfig()
	if cfg.DatabaseURL == "" {
		return 0, errors.New("migrate: CHATPAD_DATABASE_URL is not set")
	}
	log := NewLogger(cfg.LogLevel, cfg.LogFormat, nil)

	pool, err := NewDBPool(ctx, cfg)
	if err != nil {
		return 0, fmt.Errorf("migrate: connect: %w", err)
	}
	defer pool.Close()

	if err := migrations.Up(ctx, pool, cfg.DBSchema); err != nil {
		return 0, err
	}
	v, err := migrations.Version(ctx, pool, cfg.DBSchema)
	if err != nil {
		return 0, err
	}
	log.Info("db.migrate.done", "schema", cfg.DBSchema, "version", v)
	return v, nil
}
