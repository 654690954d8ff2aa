// Package app wires the chatpad server runtime: config, logging, storage,
// the session model and the realtime channel.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"chatpad/cmd/identity"
	authapi "chatpad/cmd/internal/auth/api"
	"chatpad/cmd/internal/auth/gate"
	"chatpad/cmd/internal/auth/session"
	"chatpad/cmd/internal/migrations"
	"chatpad/cmd/internal/realtime"
	"chatpad/cmd/internal/telemetry"
)

const shutdownTimeout = 10 * time.Second

// backends bundles the three stores so they can be swapped together between
// Postgres and in-memory mode. The app owns the pool.
type backends struct {
	users    identity.Store
	registry session.Registry
	messages realtime.MessageStore
	pool     *pgxpool.Pool
}

func (b backends) Close(_ context.Context) error {
	var err error
	if b.messages != nil {
		err = b.messages.Close()
	}
	if b.pool != nil {
		b.pool.Close()
	}
	return err
}

// App owns the HTTP server wiring and the realtime channel.
type App struct {
	cfg     Config
	log     Logger
	metrics *telemetry.Metrics
	stores  backends
	channel *realtime.Channel
	handler http.Handler
}

// New constructs a fully wired App. Session secrets are required; a missing
// secret is a startup error.
func New(ctx context.Context, cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.LogFormat, nil)
	}

	sessCfg, err := session.LoadConfigFromEnv()
	if err != nil {
		return nil, err
	}
	if err := ValidateSecurityConfig(cfg, sessCfg); err != nil {
		return nil, err
	}
	if sharedSecret(sessCfg) {
		log.Warn("security.secrets.shared", "detail", "access and refresh secrets are identical")
	}

	hasher, err := identity.HasherFromEnv()
	if err != nil {
		return nil, fmt.Errorf("password config: %w", err)
	}

	stores, err := newBackends(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	a, err := assemble(cfg, log, sessCfg, hasher, stores)
	if err != nil {
		_ = stores.Close(ctx)
		return nil, err
	}
	return a, nil
}

func assemble(cfg Config, log Logger, sessCfg session.Config, hasher *identity.Hasher, stores backends) (*App, error) {
	metrics := telemetry.New()

	creds, err := session.NewCredentials(sessCfg, stores.registry)
	if err != nil {
		return nil, err
	}
	sessions := session.NewService(sessCfg, stores.users, hasher, creds)
	cookies := gate.NewCookies(sessCfg.Cookies)
	g := gate.New(log, creds, stores.users, cookies, gate.WithMetrics(metrics))

	auth, err := authapi.NewHandler(log, authapi.LoadConfigFromEnv(), sessions, g, cookies, authapi.WithMetrics(metrics))
	if err != nil {
		return nil, err
	}

	channel := realtime.NewChannel(log, stores.messages, realtime.WithChannelMetrics(metrics))
	ws, err := realtime.NewWSGateway(log, realtime.LoadGatewayConfigFromEnv(), channel, g, realtime.WithGatewayMetrics(metrics))
	if err != nil {
		return nil, err
	}
	messages, err := realtime.NewMessagesHandler(log, channel, g)
	if err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, log: log, metrics: metrics, stores: stores, channel: channel}

	mux := http.NewServeMux()
	registerHTTP(mux, routes{
		log:      log,
		cfg:      cfg,
		pool:     stores.pool,
		metrics:  metrics,
		auth:     auth,
		messages: messages,
		ws:       ws,
	})
	a.handler = WithSecurityHeaders(WithCORS(WithRequestLogging(mux, log, metrics), cfg, log))
	return a, nil
}

// Handler returns the fully wrapped HTTP handler.
func (a *App) Handler() http.Handler { return a.handler }

// Run listens on the configured address and serves until ctx is done or the
// server fails.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.cfg.HTTPAddr)
	if err != nil {
		a.log.Error("server.listen.fail", "addr", a.cfg.HTTPAddr, "err", err)
		_ = a.stores.Close(context.Background())
		return err
	}
	return a.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done. Request contexts derive
// from ctx, so open websockets end with it; any subscriber still admitted
// after Shutdown is closed before storage is released.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Addr:              ln.Addr().String(),
		Handler:           a.handler,
		BaseContext:       func(net.Listener) context.Context { return ctx },
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      a.cfg.WriteTimeout,
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	base := runtimeBaseURL(srv.Addr)
	a.log.Info("server.start",
		"addr", srv.Addr,
		"http_url", base,
		"ws_url", wsBaseURL(base)+"/ws",
		"db_enabled", a.stores.pool != nil,
		"metrics_enabled", a.cfg.MetricsEnabled,
	)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		_ = a.stores.Close(context.Background())
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Shutdown does not track hijacked websocket connections.
	shutdownErr := srv.Shutdown(shutdownCtx)
	if shutdownErr != nil {
		a.log.Error("server.shutdown.fail", "err", shutdownErr)
	}
	closed := a.channel.CloseAll()
	if err := a.stores.Close(shutdownCtx); err != nil {
		a.log.Error("store.close.fail", "err", err)
	}

	a.log.Info("server.stopped", "closed_subscribers", closed)
	return shutdownErr
}

// Close releases storage without running the server.
func (a *App) Close(ctx context.Context) error { return a.stores.Close(ctx) }

// newBackends picks Postgres when a database URL is configured and the
// in-memory stores otherwise.
func newBackends(ctx context.Context, cfg Config, log Logger) (backends, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		log.Info("db.disabled.inmemory_store")
		return backends{
			users:    identity.NewMemoryStore(),
			registry: session.NewMemoryRegistry(),
			messages: realtime.NewInMemoryStore(),
		}, nil
	}

	pool, err := NewDBPool(ctx, cfg)
	if err != nil {
		return backends{}, fmt.Errorf("db connect: %w", err)
	}

	if cfg.AutoMigrate {
		if err := migrations.Up(ctx, pool, cfg.DBSchema); err != nil {
			pool.Close()
			return backends{}, fmt.Errorf("db migrate: %w", err)
		}
	}

	users, err := identity.NewPostgresStore(pool, identity.WithSchema(cfg.DBSchema))
	if err != nil {
		pool.Close()
		return backends{}, err
	}
	registry, err := session.NewPostgresRegistry(pool, cfg.DBSchema)
	if err != nil {
		pool.Close()
		return backends{}, err
	}
	messages, err := realtime.NewPostgresStore(pool, realtime.WithSchema(cfg.DBSchema))
	if err != nil {
		pool.Close()
		return backends{}, err
	}

	log.Info("db.enabled.postgres_store", "schema", cfg.DBSchema, "auto_migrate", cfg.AutoMigrate)
	return backends{users: users, registry: registry, messages: messages, pool: pool}, nil
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
