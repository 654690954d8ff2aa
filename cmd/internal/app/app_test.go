package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/require"

	v1 "chatpad/shared/contracts/realtime/v1"
)

func TestRuntimeBaseURL(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{name: "explicit localhost", in: "127.0.0.1:8080", want: "http://127.0.0.1:8080"},
		{name: "bind all v4", in: "0.0.0.0:8080", want: "http://127.0.0.1:8080"},
		{name: "bind all v6", in: "[::]:9090", want: "http://127.0.0.1:9090"},
		{name: "ipv6 host", in: "[2001:db8::1]:9090", want: "http://[2001:db8::1]:9090"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := runtimeBaseURL(tc.in)
			if got != tc.want {
				t.Fatalf("runtimeBaseURL(%q)=%q want=%q", tc.in, got, tc.want)
			}
		})
	}
}

func TestWSBaseURL(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{in: "http://127.0.0.1:8080", want: "ws://127.0.0.1:8080"},
		{in: "https://chat.example.com", want: "wss://chat.example.com"},
		{in: "127.0.0.1:8080", want: "ws://127.0.0.1:8080"},
	}

	for _, tc := range cases {
		got := wsBaseURL(tc.in)
		if got != tc.want {
			t.Fatalf("wsBaseURL(%q)=%q want=%q", tc.in, got, tc.want)
		}
	}
}

func newTestApp(t *testing.T) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(newApp(t).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func newApp(t *testing.T) *App {
	t.Helper()

	t.Setenv("CHATPAD_DATABASE_URL", "")
	t.Setenv("CHATPAD_CORS_ALLOWED_ORIGINS", "")
	t.Setenv("CHATPAD_JWT_ACCESS_SECRET", "app-access-secret-0123456789abcdef")
	t.Setenv("CHATPAD_JWT_REFRESH_SECRET", "app-refresh-secret-0123456789abcde")
	t.Setenv("CHATPAD_ARGON2_MEMORY_KIB", "8192")
	t.Setenv("CHATPAD_ARGON2_ITERATIONS", "1")

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	a, err := New(context.Background(), LoadConfig(), log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(context.Background()) })
	return a
}

func newJarClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar, Timeout: 5 * time.Second}
}

func postJSON(t *testing.T, c *http.Client, u string, body any) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := c.Post(u, "application/json", bytes.NewReader(b))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func cookieHeader(t *testing.T, c *http.Client, base string) string {
	t.Helper()
	u, err := url.Parse(base)
	require.NoError(t, err)
	var parts []string
	for _, ck := range c.Jar.Cookies(u) {
		parts = append(parts, ck.Name+"="+ck.Value)
	}
	return strings.Join(parts, "; ")
}

func TestApp_RegisterThenBroadcast(t *testing.T) {
	srv := newTestApp(t)

	alice := newJarClient(t)
	resp := postJSON(t, alice, srv.URL+"/auth/register", map[string]string{"username": "alice", "password": "correct horse battery"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, wsBaseURL(srv.URL)+"/ws", &websocket.DialOptions{
		HTTPHeader: http.Header{"Cookie": {cookieHeader(t, alice, srv.URL)}},
	})
	require.NoError(t, err)
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	readFrame := func() v1.Frame {
		_, data, err := conn.Read(ctx)
		require.NoError(t, err)
		var f v1.Frame
		require.NoError(t, json.Unmarshal(data, &f))
		return f
	}

	f := readFrame()
	require.Equal(t, v1.TypeSubscribed, f.Type)
	require.NotEmpty(t, f.UserID)

	resp = postJSON(t, alice, srv.URL+"/messages", map[string]string{"contents": "hello over http"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	f = readFrame()
	require.Equal(t, v1.TypeAnnounceMessage, f.Type)
	require.NotNil(t, f.Data)
	require.Equal(t, "hello over http", f.Data.Contents)

	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte("hello over ws")))
	f = readFrame()
	require.Equal(t, v1.TypeAnnounceMessage, f.Type)
	require.Equal(t, "hello over ws", f.Data.Contents)
}

func TestApp_ServeClosesWebsocketsOnShutdown(t *testing.T) {
	a := newApp(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	base := "http://" + ln.Addr().String()

	runCtx, stop := context.WithCancel(context.Background())
	defer stop()
	served := make(chan error, 1)
	go func() { served <- a.Serve(runCtx, ln) }()

	bob := newJarClient(t)
	resp := postJSON(t, bob, base+"/auth/register", map[string]string{"username": "bob", "password": "correct horse battery"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, wsBaseURL(base)+"/ws", &websocket.DialOptions{
		HTTPHeader: http.Header{"Cookie": {cookieHeader(t, bob, base)}},
	})
	require.NoError(t, err)
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var f v1.Frame
	require.NoError(t, json.Unmarshal(data, &f))
	require.Equal(t, v1.TypeSubscribed, f.Type)
	require.Equal(t, 1, a.channel.Len())

	stop()
	select {
	case err := <-served:
		require.NoError(t, err)
	case <-ctx.Done():
		t.Fatalf("Serve did not return after cancel")
	}

	_, _, err = conn.Read(ctx)
	require.Error(t, err)
	require.NoError(t, ctx.Err(), "socket stayed open until the test deadline")
	require.Equal(t, 0, a.channel.Len())
}

func TestApp_AnonymousRejected(t *testing.T) {
	srv := newTestApp(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, resp, err := websocket.Dial(ctx, wsBaseURL(srv.URL)+"/ws", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	r, err := http.Get(srv.URL + "/messages")
	require.NoError(t, err)
	_ = r.Body.Close()
	require.Equal(t, http.StatusUnauthorized, r.StatusCode)
}

func TestApp_OperationalEndpoints(t *testing.T) {
	srv := newTestApp(t)

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		r, err := http.Get(srv.URL + path)
		require.NoError(t, err, path)
		body, _ := io.ReadAll(r.Body)
		_ = r.Body.Close()
		require.Equal(t, http.StatusOK, r.StatusCode, path)
		if path == "/metrics" {
			require.Contains(t, string(body), "chatpad_http_requests_total")
		}
	}
}

func TestNew_MissingSecretFails(t *testing.T) {
	t.Setenv("CHATPAD_DATABASE_URL", "")
	t.Setenv("CHATPAD_JWT_ACCESS_SECRET", "")
	t.Setenv("JWT_ACCESS_SECRET", "")
	t.Setenv("CHATPAD_JWT_REFRESH_SECRET", "app-refresh-secret-0123456789abcde")

	_, err := New(context.Background(), LoadConfig(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.Error(t, err)
}
