// Package main is a CI-friendly smoke test for a running chatpad server.
//
// It registers two accounts, connects both to /ws with their cookies, and
// checks that a message sent by A over the socket and one posted by B over
// HTTP reach both subscribers with the same id. A non-string frame must come
// back as an error frame to the sender only. It finishes with a refresh and a
// logout.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/coder/websocket"

	v1 "chatpad/shared/contracts/realtime/v1"
)

const (
	subprotocol  = "chatpad.realtime.v1"
	maxReadBytes = 1 << 20
)

type smokeClient struct {
	name   string
	userID string
	http   *http.Client
	conn   *websocket.Conn

	inbox chan v1.Frame
	errCh chan error
}

func main() {
	var (
		baseURL  = flag.String("url", "http://127.0.0.1:3000", "Server base URL")
		origin   = flag.String("origin", "", "Origin header for the websocket handshake")
		password = flag.String("password", "smoke-test-password", "Password for the generated accounts")
		text     = flag.String("text", "hello chatpad 👋", "Message text to send")
		timeout  = flag.Duration("timeout", 7*time.Second, "Per-step timeout")
		verbose  = flag.Bool("v", false, "Verbose output")
	)
	flag.Parse()

	base, err := validateBaseURL(*baseURL)
	if err != nil {
		fatalf("invalid -url: %v", err)
	}

	root := context.Background()
	suffix := fmt.Sprintf("%d", time.Now().UnixNano()%1_000_000_000)

	a := mustRegister(root, base, "smoke_a"+suffix, *password, *timeout)
	b := mustRegister(root, base, "smoke_b"+suffix, *password, *timeout)

	mustConnect(root, a, base, *origin, *timeout)
	defer closeWS(a.conn)
	mustConnect(root, b, base, *origin, *timeout)
	defer closeWS(b.conn)

	if *verbose {
		fmt.Printf("connected: A=%s B=%s\n", a.userID, b.userID)
	}

	mustWrite(root, a.conn, *text, *timeout)
	first := a.mustReadAnnounce(root, *timeout)
	if got := b.mustReadAnnounce(root, *timeout); got.ID != first.ID {
		fatalf("fanout: B saw %s, A saw %s", got.ID, first.ID)
	}
	if first.UserID != a.userID || first.Contents != *text {
		fatalf("announce mismatch: %+v", first)
	}

	posted := mustPostMessage(root, b, base, *text+" (http)", *timeout)
	for _, c := range []*smokeClient{a, b} {
		if got := c.mustReadAnnounce(root, *timeout); got.ID != posted.ID {
			fatalf("http fanout (%s): got %s want %s", c.name, got.ID, posted.ID)
		}
	}

	mustWrite(root, a.conn, `{"not":"a string"}`, *timeout)
	if f := a.mustReadUntilType(root, v1.TypeError, *timeout); f.Message != v1.ErrNotString.Error() {
		fatalf("non-string frame: got error %q", f.Message)
	}

	mustListContains(root, a, base, []string{first.ID, posted.ID}, *timeout)

	mustPostOK(root, a, base+"/auth/refresh", nil, *timeout)
	mustPostOK(root, a, base+"/auth/logout", nil, *timeout)

	fmt.Printf("OK: A=%s B=%s ws_msg=%s http_msg=%s\n", a.userID, b.userID, first.ID, posted.ID)
}

func validateBaseURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	if strings.TrimSpace(u.Host) == "" {
		return "", errors.New("missing host")
	}
	return strings.TrimRight(u.String(), "/"), nil
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func mustRegister(parent context.Context, base, username, password string, stepTimeout time.Duration) *smokeClient {
	jar, err := cookiejar.New(nil)
	if err != nil {
		fatalf("cookie jar: %v", err)
	}
	c := &smokeClient{
		name:  username,
		http:  &http.Client{Jar: jar},
		inbox: make(chan v1.Frame, 512),
		errCh: make(chan error, 1),
	}

	env := c.mustDo(parent, http.MethodPost, base+"/auth/register",
		map[string]string{"username": username, "password": password}, http.StatusCreated, stepTimeout)

	var user struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(env.Data, &user); err != nil || user.ID == "" {
		fatalf("register %s: missing user id (%v)", username, err)
	}
	c.userID = user.ID
	return c
}

func mustConnect(parent context.Context, c *smokeClient, base, origin string, stepTimeout time.Duration) {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()

	u, _ := url.Parse(base)
	var cookies []string
	for _, ck := range c.http.Jar.Cookies(u) {
		cookies = append(cookies, ck.Name+"="+ck.Value)
	}

	h := http.Header{}
	h.Set("Cookie", strings.Join(cookies, "; "))
	if strings.TrimSpace(origin) != "" {
		h.Set("Origin", origin)
	}

	wsURL := "ws" + strings.TrimPrefix(base, "http") + "/ws"
	conn, resp, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		Subprotocols: []string{subprotocol},
		HTTPHeader:   h,
	})
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		fatalf("connect %s: %v", c.name, err)
	}
	conn.SetReadLimit(maxReadBytes)

	c.conn = conn
	c.startReadLoop()

	f := c.mustReadUntilType(parent, v1.TypeSubscribed, stepTimeout)
	if f.UserID != c.userID || f.Channel != v1.Channel {
		fatalf("subscribed mismatch (%s): %+v", c.name, f)
	}
}

func (c *smokeClient) startReadLoop() {
	go func() {
		defer close(c.inbox)

		for {
			_, data, err := c.conn.Read(context.Background())
			if err != nil {
				c.report(err)
				return
			}

			var f v1.Frame
			if err := json.Unmarshal(data, &f); err != nil {
				c.report(fmt.Errorf("bad json: %w", err))
				return
			}

			select {
			case c.inbox <- f:
			default:
				c.report(errors.New("inbox overflow: consumer too slow"))
				return
			}
		}
	}()
}

func (c *smokeClient) report(err error) {
	select {
	case c.errCh <- err:
	default:
	}
}

func (c *smokeClient) mustReadAnnounce(parent context.Context, stepTimeout time.Duration) v1.Message {
	f := c.mustReadUntilType(parent, v1.TypeAnnounceMessage, stepTimeout)
	if f.Data == nil {
		fatalf("announceMessage without data (%s)", c.name)
	}
	return *f.Data
}

func (c *smokeClient) mustReadUntilType(parent context.Context, want string, stepTimeout time.Duration) v1.Frame {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()

	select {
	case <-ctx.Done():
		fatalf("timeout waiting for %q (%s): %v", want, c.name, ctx.Err())
	case err := <-c.errCh:
		fatalf("connection error while waiting for %q (%s): %v", want, c.name, err)
	case f, ok := <-c.inbox:
		if !ok {
			fatalf("connection closed while waiting for %q (%s)", want, c.name)
		}
		if f.Type == v1.TypeError && want != v1.TypeError {
			fatalf("server error (%s): %q", c.name, f.Message)
		}
		if f.Type != want {
			fatalf("unexpected frame type (%s): got=%q want=%q", c.name, f.Type, want)
		}
		return f
	}
	panic("unreachable")
}

func mustPostMessage(parent context.Context, c *smokeClient, base, contents string, stepTimeout time.Duration) v1.Message {
	env := c.mustDo(parent, http.MethodPost, base+"/messages", map[string]string{"contents": contents}, http.StatusOK, stepTimeout)
	var m v1.Message
	if err := json.Unmarshal(env.Data, &m); err != nil {
		fatalf("decode posted message: %v", err)
	}
	return m
}

func mustListContains(parent context.Context, c *smokeClient, base string, ids []string, stepTimeout time.Duration) {
	env := c.mustDo(parent, http.MethodGet, base+"/messages?limit=100", nil, http.StatusOK, stepTimeout)
	var list []v1.Message
	if err := json.Unmarshal(env.Data, &list); err != nil {
		fatalf("decode message list: %v", err)
	}
	seen := make(map[string]bool, len(list))
	for _, m := range list {
		seen[m.ID] = true
	}
	for _, id := range ids {
		if !seen[id] {
			fatalf("message %s missing from GET /messages", id)
		}
	}
}

func mustPostOK(parent context.Context, c *smokeClient, u string, body any, stepTimeout time.Duration) {
	c.mustDo(parent, http.MethodPost, u, body, http.StatusOK, stepTimeout)
}

func (c *smokeClient) mustDo(parent context.Context, method, u string, body any, wantStatus int, stepTimeout time.Duration) envelope {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, u, &buf)
	if err != nil {
		fatalf("build request %s %s: %v", method, u, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		fatalf("%s %s (%s): %v", method, u, c.name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	var env envelope
	_ = json.NewDecoder(resp.Body).Decode(&env)
	if resp.StatusCode != wantStatus || !env.Success {
		fatalf("%s %s (%s): status=%d message=%q", method, u, c.name, resp.StatusCode, env.Message)
	}
	return env
}

func mustWrite(parent context.Context, conn *websocket.Conn, text string, stepTimeout time.Duration) {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()
	if err := conn.Write(ctx, websocket.MessageText, []byte(text)); err != nil {
		fatalf("write failed: %v", err)
	}
}

func closeWS(conn *websocket.Conn) {
	if conn != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "bye")
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "FAIL: "+format+"\n", args...)
	os.Exit(1)
}
