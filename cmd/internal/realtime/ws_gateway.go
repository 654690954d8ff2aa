package realtime

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"chatpad/cmd/internal/apperr"
	"chatpad/cmd/internal/auth/gate"
	"chatpad/cmd/internal/respond"
	"chatpad/cmd/internal/telemetry"
)

const (
	// wsSubprotocolV1 is negotiated when offered; clients may omit it.
	wsSubprotocolV1 = "chatpad.realtime.v1"

	wsCloseGrace      = 1 * time.Second
	wsMaxPingFailures = 3
)

// Guard admits only authenticated requests and attaches the user to the
// request context. *gate.Gate implements it.
type Guard interface {
	Require(next http.Handler) http.Handler
}

// WSGateway is the /ws entrypoint. The handshake is authenticated before the
// upgrade; rejected handshakes never open a connection.
type WSGateway struct {
	log     *slog.Logger
	cfg     GatewayConfig
	channel *Channel
	metrics *telemetry.Metrics
	handler http.Handler
}

type GatewayOption func(*WSGateway)

func WithGatewayMetrics(m *telemetry.Metrics) GatewayOption {
	return func(g *WSGateway) { g.metrics = m }
}

func NewWSGateway(log *slog.Logger, cfg GatewayConfig, channel *Channel, guard Guard, opts ...GatewayOption) (*WSGateway, error) {
	if channel == nil || guard == nil {
		return nil, errors.New("realtime: channel and guard are required")
	}
	if log == nil {
		log = slog.Default()
	}
	g := &WSGateway{log: log, cfg: cfg.normalized(), channel: channel}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	g.handler = guard.Require(http.HandlerFunc(g.accept))
	return g, nil
}

func (g *WSGateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.handler.ServeHTTP(w, r)
}

func (g *WSGateway) accept(w http.ResponseWriter, r *http.Request) {
	user, ok := gate.UserFromContext(r.Context())
	if !ok {
		respond.Error(w, apperr.Unauthorized("realtime.accept"))
		return
	}
	if !g.cfg.originAllowed(r.Header.Get("Origin")) {
		g.log.Info("ws.reject.origin", "origin", r.Header.Get("Origin"), "remote", r.RemoteAddr)
		respond.Error(w, apperr.Forbidden("realtime.accept"))
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols:       []string{wsSubprotocolV1},
		OriginPatterns:     g.cfg.originPatterns(),
		InsecureSkipVerify: g.cfg.InsecureSkipVerify,
	})
	if err != nil {
		g.log.Info("ws.accept.fail", "err", err)
		return
	}
	conn.SetReadLimit(maxFrameBytes)

	id, err := NewConnectionID(time.Now())
	if err != nil {
		g.log.Error("ws.conn_id.fail", "err", err)
		_ = conn.Close(websocket.StatusInternalError, "internal error")
		return
	}

	g.metrics.WSConnected()
	defer g.metrics.WSDisconnected()

	g.serve(r.Context(), conn, NewClient(id, user.ID, g.cfg.SendQueueSize))
}

// serve runs one admitted connection until it closes.
func (g *WSGateway) serve(parent context.Context, conn *websocket.Conn, client *Client) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	log := g.log.With("conn_id", client.ID, "user_id", client.UserID)

	var closeOnce sync.Once
	// shutdown removes the client from the topic before closing, so no
	// broadcaster holds it while goroutines are torn down.
	shutdown := func(code websocket.StatusCode, reason string) {
		closeOnce.Do(func() {
			g.channel.Remove(client)
			_ = conn.Close(code, reason)
			cancel()
		})
	}

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			select {
			case <-ctx.Done():
				return
			case <-client.Done():
				// A no-op unless the channel closed the client itself.
				shutdown(websocket.StatusGoingAway, "server shutting down")
				return
			case frame := <-client.Send:
				if err := writeFrame(ctx, conn, frame, g.cfg.WriteTimeout); err != nil {
					log.Info("ws.write.fail", "close_status", websocket.CloseStatus(err), "err", err)
					shutdown(websocket.StatusAbnormalClosure, "write failed")
					return
				}
			}
		}
	}()

	heartbeatDone := make(chan struct{})
	go func() {
		defer close(heartbeatDone)

		t := time.NewTicker(g.cfg.HeartbeatInterval)
		defer t.Stop()

		failures := 0
		for {
			select {
			case <-ctx.Done():
				return
			case <-client.Done():
				return
			case <-t.C:
				hbCtx, hbCancel := context.WithTimeout(ctx, g.cfg.HeartbeatTimeout)
				err := conn.Ping(hbCtx)
				hbCancel()

				if err != nil {
					failures++
					log.Info("ws.ping.fail", "failures", failures, "err", err)
					if failures >= wsMaxPingFailures {
						shutdown(websocket.StatusGoingAway, "heartbeat failed")
						return
					}
					continue
				}
				failures = 0
			}
		}
	}()

	g.channel.Admit(client)
	rl := NewRateLimiter(g.cfg.RateEvents, g.cfg.RateWindow)

readLoop:
	for {
		readCtx, readCancel := context.WithTimeout(ctx, g.cfg.IdleTimeout)
		typ, data, err := conn.Read(readCtx)
		idle := errors.Is(readCtx.Err(), context.DeadlineExceeded)
		readCancel()

		if err != nil {
			switch {
			case idle:
				shutdown(websocket.StatusGoingAway, "idle timeout")
			default:
				switch classifyReadErr(err) {
				case readErrClose:
					shutdown(websocket.StatusNormalClosure, "peer closed")
				case readErrCtxDone:
					shutdown(websocket.StatusNormalClosure, "context done")
				case readErrConnClosed:
					shutdown(websocket.StatusAbnormalClosure, "conn closed")
				default:
					log.Info("ws.read.fail", "err", err)
					shutdown(websocket.StatusAbnormalClosure, "read failed")
				}
			}
			break readLoop
		}

		if ok, _ := rl.Allow(time.Now()); !ok {
			sendError(client, "Too many messages")
			continue readLoop
		}

		if _, err := g.channel.Publish(ctx, client, typ == websocket.MessageText, data); err != nil {
			if !errors.Is(err, apperr.ErrBadRequest) {
				log.Error("ws.publish.fail", "err", err)
			}
			sendError(client, apperr.PublicMessage(err))
		}
	}

	shutdown(websocket.StatusNormalClosure, "bye")
	<-writerDone

	select {
	case <-heartbeatDone:
	case <-time.After(wsCloseGrace):
	}
}

func writeFrame(parent context.Context, conn *websocket.Conn, frame []byte, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, frame)
}

// ---- read error classification ----

type readErrKind uint8

const (
	readErrUnknown readErrKind = iota
	readErrClose
	readErrCtxDone
	readErrConnClosed
)

func classifyReadErr(err error) readErrKind {
	if websocket.CloseStatus(err) != -1 {
		return readErrClose
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return readErrCtxDone
	}
	if errors.Is(err, net.ErrClosed) || errors.Is(err, io.EOF) {
		return readErrConnClosed
	}
	return readErrUnknown
}
