package gate

import (
	"log/slog"
	"net/http"
	"time"

	"chatpad/cmd/identity"
	"chatpad/cmd/internal/respond"
	"chatpad/cmd/internal/telemetry"
	"chatpad/cmd/security/token"
)

// AccessVerifier checks signature and expiry of an access token.
type AccessVerifier interface {
	VerifyAccess(tok string, now time.Time) (token.Claims, error)
}

type Gate struct {
	verifier AccessVerifier
	users    identity.Reader
	cookies  *Cookies
	log      *slog.Logger
	metrics  *telemetry.Metrics
	now      func() time.Time
}

type Option func(*Gate)

func WithMetrics(m *telemetry.Metrics) Option { return func(g *Gate) { g.metrics = m } }

func WithClock(now func() time.Time) Option { return func(g *Gate) { g.now = now } }

func New(log *slog.Logger, verifier AccessVerifier, users identity.Reader, cookies *Cookies, opts ...Option) *Gate {
	if log == nil {
		log = slog.Default()
	}
	g := &Gate{
		verifier: verifier,
		users:    users,
		cookies:  cookies,
		log:      log,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Authenticate runs the chain against r's access cookie.
func (g *Gate) Authenticate(r *http.Request) Result {
	res := Result{Stage: StageNoCredential}

	raw := g.cookies.AccessCredential(r)
	if raw == "" {
		res.Reason = ReasonNoCredential
		return res
	}

	claims, err := g.verifier.VerifyAccess(raw, g.now())
	if err != nil {
		res.Reason = ReasonInvalidToken
		return res
	}
	res.Stage = StageCandidateVerified

	if claims.Kind != token.KindAccess {
		res.Reason = ReasonWrongKind
		return res
	}
	res.Stage = StageKindChecked

	u, err := g.users.GetByID(r.Context(), claims.UserID())
	if err != nil {
		if identity.IsNotFound(err) {
			res.Reason = ReasonUnknownUser
		} else {
			res.Reason = ReasonLookupFailed
			res.Cause = err
		}
		return res
	}

	res.Stage = StageIdentityResolved
	res.User = u
	return res
}

// Require rejects unauthenticated requests and attaches the user otherwise.
func (g *Gate) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res := g.Authenticate(r)
		if !res.OK() {
			g.reject(w, r, "require", res)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), res.User)))
	})
}

// Trace never rejects. The user is attached only when the chain completes.
func (g *Gate) Trace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res := g.Authenticate(r)
		if !res.OK() {
			if res.Reason == ReasonLookupFailed {
				g.log.Warn("auth.gate.trace.lookup_failed", "path", r.URL.Path, "err", res.Cause)
			}
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), res.User)))
	})
}

// reject writes the rejection for res and records it.
func (g *Gate) reject(w http.ResponseWriter, r *http.Request, variant string, res Result) {
	g.metrics.GateRejected(variant, string(res.Reason))

	if res.Reason == ReasonLookupFailed {
		g.log.Error("auth.gate.lookup.fail", "path", r.URL.Path, "err", res.Cause)
	} else {
		g.log.Debug("auth.gate.reject", "variant", variant, "path", r.URL.Path,
			"stage", res.Stage.String(), "reason", string(res.Reason))
	}
	respond.Error(w, res.Err())
}
