package realtime

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/require"

	"chatpad/cmd/identity"
	"chatpad/cmd/internal/auth/gate"
	"chatpad/cmd/internal/auth/session"
	v1 "chatpad/shared/contracts/realtime/v1"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// harness serves /ws and /messages behind a real gate with in-memory stores.
type harness struct {
	srv     *httptest.Server
	channel *Channel
	store   MessageStore
	users   *identity.MemoryStore
	creds   *session.Credentials
}

func newHarness(t *testing.T, mutate ...func(*GatewayConfig)) *harness {
	t.Helper()

	scfg := session.DefaultConfig()
	scfg.AccessSecret = []byte("realtime-access-secret-0123456789")
	scfg.RefreshSecret = []byte("realtime-refresh-secret-012345678")
	creds, err := session.NewCredentials(scfg, session.NewMemoryRegistry())
	require.NoError(t, err)

	log := discardLogger()
	users := identity.NewMemoryStore()
	g := gate.New(log, creds, users, gate.NewCookies(scfg.Cookies))

	store := NewInMemoryStore()
	ch := NewChannel(log, store)

	gwcfg := DefaultGatewayConfig()
	for _, m := range mutate {
		m(&gwcfg)
	}
	gw, err := NewWSGateway(log, gwcfg, ch, g)
	require.NoError(t, err)
	mh, err := NewMessagesHandler(log, ch, g)
	require.NoError(t, err)

	mux := http.NewServeMux()
	mux.Handle("GET /ws", gw)
	mh.Register(mux)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return &harness{srv: srv, channel: ch, store: store, users: users, creds: creds}
}

// login creates a user and returns it with an access cookie header value.
func (h *harness) login(t *testing.T, name string) (identity.User, string) {
	t.Helper()
	u, err := h.users.Create(context.Background(), identity.CreateUserInput{Username: name, PasswordHash: "h"})
	require.NoError(t, err)
	m, err := h.creds.MintAccess(u.ID, time.Now())
	require.NoError(t, err)
	return u, "accessToken=" + m.Token
}

func (h *harness) wsURL() string {
	return "ws" + strings.TrimPrefix(h.srv.URL, "http") + "/ws"
}

func (h *harness) dialRaw(t *testing.T, cookie string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	hdr := http.Header{}
	if cookie != "" {
		hdr.Set("Cookie", cookie)
	}
	return websocket.Dial(ctx, h.wsURL(), &websocket.DialOptions{HTTPHeader: hdr})
}

// dial connects and consumes the subscribed acknowledgement.
func (h *harness) dial(t *testing.T, cookie, userID string) *websocket.Conn {
	t.Helper()
	c, _, err := h.dialRaw(t, cookie)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close(websocket.StatusNormalClosure, "") })

	f := readFrame(t, c)
	require.Equal(t, v1.TypeSubscribed, f.Type)
	require.Equal(t, userID, f.UserID)
	require.Equal(t, v1.Channel, f.Channel)
	return c
}

func readFrame(t *testing.T, c *websocket.Conn) v1.Frame {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	typ, data, err := c.Read(ctx)
	require.NoError(t, err)
	require.Equal(t, websocket.MessageText, typ)

	var f v1.Frame
	require.NoError(t, json.Unmarshal(data, &f))
	return f
}

func writeText(t *testing.T, c *websocket.Conn, s string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.Write(ctx, websocket.MessageText, []byte(s)))
}

// drain decodes every frame currently queued on client.
func drain(t *testing.T, c *Client) []v1.Frame {
	t.Helper()
	var out []v1.Frame
	for {
		select {
		case b := <-c.Send:
			var f v1.Frame
			require.NoError(t, json.Unmarshal(b, &f))
			out = append(out, f)
		default:
			return out
		}
	}
}
