// Package authapi serves the session issuance endpoints under /auth.
package authapi

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"chatpad/cmd/internal/apperr"
	"chatpad/cmd/internal/auth/gate"
	"chatpad/cmd/internal/auth/session"
	"chatpad/cmd/internal/respond"
	"chatpad/cmd/internal/telemetry"
)

// Handler wires the auth endpoints to the session service and the gate.
type Handler struct {
	log      *slog.Logger
	cfg      Config
	sessions *session.Service
	gate     *gate.Gate
	cookies  *gate.Cookies
	metrics  *telemetry.Metrics
	throttle *loginThrottle
	now      func() time.Time
}

type HandlerOption func(*Handler)

func WithMetrics(m *telemetry.Metrics) HandlerOption { return func(h *Handler) { h.metrics = m } }

func WithClock(now func() time.Time) HandlerOption { return func(h *Handler) { h.now = now } }

func NewHandler(log *slog.Logger, cfg Config, sessions *session.Service, g *gate.Gate, cookies *gate.Cookies, opts ...HandlerOption) (*Handler, error) {
	if sessions == nil || g == nil || cookies == nil {
		return nil, errors.New("authapi: session service, gate and cookies are required")
	}
	if log == nil {
		log = slog.Default()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultConfig().MaxBodyBytes
	}

	h := &Handler{
		log:      log,
		cfg:      cfg,
		sessions: sessions,
		gate:     g,
		cookies:  cookies,
		throttle: newLoginThrottle(cfg.LoginIPMax, cfg.LoginIPWindow),
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h, nil
}

// Register mounts the /auth routes.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /auth/login", h.handleLogin)
	mux.HandleFunc("POST /auth/register", h.handleRegister)
	mux.HandleFunc("POST /auth/refresh", h.handleRefresh)
	mux.HandleFunc("POST /auth/logout", h.handleLogout)
	mux.Handle("GET /auth/me", h.gate.Trace(http.HandlerFunc(h.handleMe)))
}

type credentialsRequest struct {
	Username *string `json:"username"`
	Password *string `json:"password"`
}

func (h *Handler) decodeCredentials(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	var req credentialsRequest
	if err := respond.Decode(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		respond.Fail(w, http.StatusBadRequest, "Invalid request body")
		return "", "", false
	}
	if req.Username == nil || req.Password == nil {
		respond.Fail(w, http.StatusBadRequest, "username and password are required")
		return "", "", false
	}
	return *req.Username, *req.Password, true
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	now := h.now().UTC()
	ip := clientIP(r, h.cfg.TrustProxy)

	if blocked, retry := h.throttle.check(ip, now); blocked {
		h.audit(r, "login", "rate_limited", "", "ip", ip)
		writeRateLimited(w, retry)
		return
	}

	username, password, ok := h.decodeCredentials(w, r)
	if !ok {
		return
	}

	issued, err := h.sessions.Login(r.Context(), username, password, now)
	if err != nil {
		if errors.Is(err, apperr.ErrUnauthorized) {
			h.throttle.fail(ip, now)
			h.audit(r, "login", "fail", "", "ip", ip)
		} else {
			h.log.Error("auth.login.fail", "err", err)
		}
		respond.Error(w, err)
		return
	}

	h.throttle.reset(ip)
	h.sendCredentials(w, issued)
	h.audit(r, "login", "ok", issued.User.ID)
	respond.OK(w, issued.User.Sanitize())
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	username, password, ok := h.decodeCredentials(w, r)
	if !ok {
		return
	}

	issued, err := h.sessions.Register(r.Context(), username, password, h.now().UTC())
	if err != nil {
		if errors.Is(err, apperr.ErrBadRequest) {
			h.audit(r, "register", "rejected", "", "reason", apperr.PublicMessage(err))
		} else {
			h.log.Error("auth.register.fail", "err", err)
		}
		respond.Error(w, err)
		return
	}

	h.sendCredentials(w, issued)
	h.audit(r, "register", "ok", issued.User.ID)
	respond.Created(w, issued.User.Sanitize())
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	access, err := h.sessions.Refresh(r.Context(), h.cookies.RefreshCredential(r), h.now().UTC())
	if err != nil {
		if errors.Is(err, apperr.ErrUnauthorized) {
			h.audit(r, "refresh", "fail", "")
		} else {
			h.log.Error("auth.refresh.fail", "err", err)
		}
		respond.Error(w, err)
		return
	}

	h.cookies.SendAccessCredential(w, access.Token)
	h.audit(r, "refresh", "ok", "")
	respond.JSON(w, http.StatusOK, respond.Envelope{Success: true})
}

// handleLogout always clears both cookies; revocation is best-effort.
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	revoked, err := h.sessions.Logout(r.Context(), h.cookies.RefreshCredential(r), h.now().UTC())
	if err != nil {
		h.log.Warn("auth.logout.revoke.fail", "err", err)
	}

	h.cookies.ClearAccessCredential(w)
	h.cookies.ClearRefreshCredential(w)
	h.audit(r, "logout", "ok", "", "revoked", revoked)
	respond.JSON(w, http.StatusOK, respond.Envelope{Success: true})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	u, ok := gate.UserFromContext(r.Context())
	if !ok {
		respond.Fail(w, http.StatusNotFound, "No account found")
		return
	}
	respond.JSON(w, http.StatusOK, respond.Envelope{
		Success: true,
		Message: "Successfully retrieved account",
		Data:    u.Sanitize(),
	})
}

func (h *Handler) sendCredentials(w http.ResponseWriter, issued session.Issued) {
	h.cookies.SendAccessCredential(w, issued.Access.Token)
	h.cookies.SendRefreshCredential(w, issued.Refresh.Token)
}

// audit emits an auth.audit event and counts it. Token values are never logged.
func (h *Handler) audit(r *http.Request, action, result, userID string, kv ...any) {
	h.metrics.AuthEvent(action, result)

	attrs := append([]any{
		"action", action,
		"result", result,
		"user_agent", strings.TrimSpace(r.UserAgent()),
	}, kv...)
	if userID != "" {
		attrs = append(attrs, "user_id", userID)
	}
	h.log.Info("auth.audit", attrs...)
}

func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if raw := r.Header.Get("X-Forwarded-For"); raw != "" {
			for _, p := range strings.Split(raw, ",") {
				if ip := net.ParseIP(strings.TrimSpace(p)); ip != nil {
					return ip.String()
				}
			}
		}
		if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
			return ip.String()
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err != nil {
		return ""
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.String()
	}
	return ""
}
