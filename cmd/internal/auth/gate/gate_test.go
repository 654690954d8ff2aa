package gate

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"chatpad/cmd/identity"
	"chatpad/cmd/internal/auth/session"
	"chatpad/cmd/security/token"
)

var (
	accessSecret  = []byte("gate-access-secret-0123456789abcdef")
	refreshSecret = []byte("gate-refresh-secret-0123456789abcde")
	clock         = time.Unix(1_760_000_000, 0).UTC()
)

// countingReader records lookups so tests can assert the chain stopped early.
type countingReader struct {
	identity.Reader
	calls int
	fail  error
}

func (c *countingReader) GetByID(ctx context.Context, id string) (identity.User, error) {
	c.calls++
	if c.fail != nil {
		return identity.User{}, c.fail
	}
	return c.Reader.GetByID(ctx, id)
}

type harness struct {
	gate    *Gate
	users   *countingReader
	store   *identity.MemoryStore
	alice   identity.User
	access  *token.Codec
	refresh *token.Codec
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	store := identity.NewMemoryStore()
	alice, err := store.Create(context.Background(), identity.CreateUserInput{Username: "alice", PasswordHash: "h"})
	require.NoError(t, err)

	cfg := session.DefaultConfig()
	cfg.AccessSecret, cfg.RefreshSecret = accessSecret, refreshSecret
	creds, err := session.NewCredentials(cfg, session.NewMemoryRegistry())
	require.NoError(t, err)

	access, err := token.NewCodec(token.KindAccess, accessSecret, cfg.AccessTTL)
	require.NoError(t, err)
	refresh, err := token.NewCodec(token.KindRefresh, refreshSecret, cfg.RefreshTTL)
	require.NoError(t, err)

	users := &countingReader{Reader: store}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	g := New(log, creds, users, NewCookies(cfg.Cookies), WithClock(func() time.Time { return clock }))

	return &harness{gate: g, users: users, store: store, alice: alice, access: access, refresh: refresh}
}

func (h *harness) request(t *testing.T, tok string) *http.Request {
	t.Helper()
	r := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	if tok != "" {
		r.AddCookie(&http.Cookie{Name: "accessToken", Value: tok})
	}
	return r
}

func (h *harness) issue(t *testing.T, c *token.Codec, sub string, at time.Time) string {
	t.Helper()
	s, _, err := c.Issue(sub, "", at)
	require.NoError(t, err)
	return s
}

func TestAuthenticate_Stages(t *testing.T) {
	h := newHarness(t)

	sameSecretRefresh, err := token.NewCodec(token.KindRefresh, accessSecret, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name     string
		tok      string
		stage    Stage
		reason   Reason
		lookups  int
		status   int
		wantUser bool
	}{
		{"no cookie", "", StageNoCredential, ReasonNoCredential, 0, http.StatusUnauthorized, false},
		{"garbage", "nope", StageNoCredential, ReasonInvalidToken, 0, http.StatusForbidden, false},
		{"expired", h.issue(t, h.access, h.alice.ID, clock.Add(-31*time.Minute)), StageNoCredential, ReasonInvalidToken, 0, http.StatusForbidden, false},
		{"refresh under refresh secret", h.issue(t, h.refresh, h.alice.ID, clock), StageNoCredential, ReasonInvalidToken, 0, http.StatusForbidden, false},
		{"refresh kind under access secret", h.issue(t, sameSecretRefresh, h.alice.ID, clock), StageCandidateVerified, ReasonWrongKind, 0, http.StatusForbidden, false},
		{"unknown user", h.issue(t, h.access, "01HZZZZZZZZZZZZZZZZZZZZZZZ", clock), StageKindChecked, ReasonUnknownUser, 1, http.StatusForbidden, false},
		{"valid", h.issue(t, h.access, h.alice.ID, clock), StageIdentityResolved, ReasonNone, 1, http.StatusOK, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h.users.calls = 0
			res := h.gate.Authenticate(h.request(t, tt.tok))
			require.Equal(t, tt.stage, res.Stage)
			require.Equal(t, tt.reason, res.Reason)
			require.Equal(t, tt.lookups, h.users.calls, "identity lookups")
			if tt.wantUser {
				require.Equal(t, h.alice.ID, res.User.ID)
			}

			h.users.calls = 0
			rec := httptest.NewRecorder()
			var reached bool
			h.gate.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				reached = true
				u, ok := UserFromContext(r.Context())
				require.True(t, ok)
				require.Equal(t, h.alice.ID, u.ID)
				w.WriteHeader(http.StatusOK)
			})).ServeHTTP(rec, h.request(t, tt.tok))

			require.Equal(t, tt.status, rec.Code)
			require.Equal(t, tt.wantUser, reached)
			if !tt.wantUser {
				var body map[string]any
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
				require.Equal(t, false, body["success"])
				require.Equal(t, http.StatusText(tt.status), body["message"])
			}
		})
	}
}

func TestTrace_NeverRejects(t *testing.T) {
	h := newHarness(t)

	deleted := "01HZZZZZZZZZZZZZZZZZZZZZZZ"
	cases := map[string]struct {
		tok      string
		wantUser bool
	}{
		"no cookie":    {"", false},
		"expired":      {h.issue(t, h.access, h.alice.ID, clock.Add(-time.Hour)), false},
		"deleted user": {h.issue(t, h.access, deleted, clock), false},
		"refresh":      {h.issue(t, h.refresh, h.alice.ID, clock), false},
		"valid":        {h.issue(t, h.access, h.alice.ID, clock), true},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			var got identity.User
			var ok bool
			h.gate.Trace(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got, ok = UserFromContext(r.Context())
				w.WriteHeader(http.StatusTeapot)
			})).ServeHTTP(rec, h.request(t, tc.tok))

			require.Equal(t, http.StatusTeapot, rec.Code)
			require.Equal(t, tc.wantUser, ok)
			if tc.wantUser {
				require.Equal(t, "alice", got.Username)
			}
		})
	}
}

func TestRequire_LookupFailureIsInternal(t *testing.T) {
	h := newHarness(t)
	h.users.fail = errors.New("db down")

	rec := httptest.NewRecorder()
	h.gate.Require(http.NotFoundHandler()).ServeHTTP(rec, h.request(t, h.issue(t, h.access, h.alice.ID, clock)))
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = httptest.NewRecorder()
	h.gate.Trace(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})).ServeHTTP(rec, h.request(t, h.issue(t, h.access, h.alice.ID, clock)))
	require.Equal(t, http.StatusNoContent, rec.Code)
}
