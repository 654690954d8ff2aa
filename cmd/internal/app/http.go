package app

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	authapi "chatpad/cmd/internal/auth/api"
	"chatpad/cmd/internal/realtime"
	"chatpad/cmd/internal/respond"
	"chatpad/cmd/internal/telemetry"
)

const readinessPingTimeout = 2 * time.Second

type routes struct {
	log      Logger
	cfg      Config
	pool     *pgxpool.Pool
	metrics  *telemetry.Metrics
	auth     *authapi.Handler
	messages *realtime.MessagesHandler
	ws       *realtime.WSGateway
}

func registerHTTP(mux *http.ServeMux, rt routes) {
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		respond.JSON(w, http.StatusOK, respond.Envelope{Success: true, Message: "ok"})
	})

	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if rt.cfg.ReadinessRequireDB && rt.pool == nil {
			respond.Fail(w, http.StatusServiceUnavailable, "db not configured")
			return
		}
		if rt.pool != nil {
			if err := PingDB(r.Context(), rt.pool, readinessPingTimeout); err != nil {
				rt.log.Info("readyz.db.not_ready", "err", err)
				respond.Fail(w, http.StatusServiceUnavailable, "db not ready")
				return
			}
		}
		respond.JSON(w, http.StatusOK, respond.Envelope{Success: true, Message: "ready"})
	})

	if rt.cfg.MetricsEnabled {
		mux.Handle("GET /metrics", rt.metrics.Handler())
	}

	rt.auth.Register(mux)
	rt.messages.Register(mux)
	mux.Handle("GET /ws", rt.ws)
}

// runtimeBaseURL turns a listen address into a URL a local client can dial.
// Wildcard hosts map to 127.0.0.1.
func runtimeBaseURL(addr string) string {
	host, port, err := net.SplitHostPort(strings.TrimSpace(addr))
	if err != nil {
		return "http://" + strings.TrimSpace(addr)
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}

func wsBaseURL(base string) string {
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://")
	default:
		return "ws://" + base
	}
}
