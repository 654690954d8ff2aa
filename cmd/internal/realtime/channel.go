// Package realtime is the single-topic broadcast engine: the subscriber
// set, the websocket gateway, message persistence and the /messages API.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"chatpad/cmd/internal/apperr"
	"chatpad/cmd/internal/telemetry"
	v1 "chatpad/shared/contracts/realtime/v1"
)

// Channel owns the "message" topic. Messages are broadcast only after they
// are persisted, and the envelope is built from the stored record.
//
// Appends are sequenced: stamping, persisting and broadcasting a message
// happen under one lock, so the broadcast order is the (createdAt, id) order
// of the store.
type Channel struct {
	log      *slog.Logger
	topic    *Topic
	store    MessageStore
	metrics  *telemetry.Metrics
	maxChars int
	now      func() time.Time

	seq       sync.Mutex
	lastStamp time.Time
}

type ChannelOption func(*Channel)

func WithChannelMetrics(m *telemetry.Metrics) ChannelOption {
	return func(c *Channel) { c.metrics = m }
}

func WithChannelClock(now func() time.Time) ChannelOption {
	return func(c *Channel) { c.now = now }
}

// WithMaxMessageChars bounds inbound contents in runes.
func WithMaxMessageChars(n int) ChannelOption {
	return func(c *Channel) {
		if n > 0 {
			c.maxChars = n
		}
	}
}

// NewChannel falls back to an in-memory store when store is nil.
func NewChannel(log *slog.Logger, store MessageStore, opts ...ChannelOption) *Channel {
	if log == nil {
		log = slog.Default()
	}
	if store == nil {
		store = NewInMemoryStore()
	}
	c := &Channel{
		log:      log,
		topic:    NewTopic(v1.Channel),
		store:    store,
		maxChars: maxMessageChars,
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

func (c *Channel) Store() MessageStore { return c.store }

func (c *Channel) Len() int { return c.topic.Len() }

// Admit subscribes client and acknowledges to it alone.
func (c *Channel) Admit(client *Client) {
	n := c.topic.Subscribe(client)
	c.metrics.SetSubscribers(n)

	if frame, err := json.Marshal(v1.NewSubscribed(client.UserID)); err == nil {
		client.offer(frame)
	}
	c.log.Info("realtime.subscribe", "conn_id", client.ID, "user_id", client.UserID, "subscribers", n)
}

// Remove unsubscribes client and stops its goroutines. Nothing is broadcast.
func (c *Channel) Remove(client *Client) {
	if client == nil {
		return
	}
	ok, n := c.topic.Unsubscribe(client.ID)
	client.Close()
	if ok {
		c.metrics.SetSubscribers(n)
		c.log.Info("realtime.unsubscribe", "conn_id", client.ID, "user_id", client.UserID, "subscribers", n)
	}
}

// CloseAll unsubscribes and closes every client, ending their connections.
// It is used on server shutdown and reports how many clients were closed.
func (c *Channel) CloseAll() int {
	clients := c.topic.Drain()
	for _, cl := range clients {
		cl.Close()
	}
	c.metrics.SetSubscribers(0)
	if len(clients) > 0 {
		c.log.Info("realtime.close_all", "closed", len(clients))
	}
	return len(clients)
}

// Publish handles one inbound frame from client. An unacceptable payload is
// BadRequest; a persistence failure is returned as is and nothing is sent.
func (c *Channel) Publish(ctx context.Context, client *Client, text bool, data []byte) (Message, error) {
	const op = "realtime.Publish"

	contents, err := v1.DecodeInbound(text, data, c.maxChars)
	if err != nil {
		c.metrics.PublishFailed("invalid")
		return Message{}, apperr.BadRequest(op, err.Error())
	}

	msg, err := c.commit(ctx, client.UserID, contents, "ws")
	if err != nil {
		return Message{}, fmt.Errorf("%s: %w", op, err)
	}
	return msg, nil
}

// Post appends already validated contents on behalf of userID and fans the
// stored message out to every subscriber.
func (c *Channel) Post(ctx context.Context, userID, contents string) (Message, error) {
	return c.commit(ctx, userID, contents, "http")
}

func (c *Channel) commit(ctx context.Context, userID, contents, source string) (Message, error) {
	c.seq.Lock()
	defer c.seq.Unlock()

	msg, err := c.store.Create(ctx, CreateMessageInput{UserID: userID, Contents: contents, Now: c.stamp()})
	if err != nil {
		c.metrics.PublishFailed("store")
		return Message{}, err
	}
	if err := c.announce(msg, source); err != nil {
		c.log.Warn("realtime.announce.fail", "message_id", msg.ID, "err", err)
	}
	return msg, nil
}

// stamp returns a creation time strictly after the previous one at the
// store's microsecond precision. Callers hold seq.
func (c *Channel) stamp() time.Time {
	now := c.now().UTC().Truncate(time.Microsecond)
	if !now.After(c.lastStamp) {
		now = c.lastStamp.Add(time.Microsecond)
	}
	c.lastStamp = now
	return now
}

func (c *Channel) announce(msg Message, source string) error {
	frame, err := json.Marshal(v1.NewAnnounceMessage(msg.Public()))
	if err != nil {
		c.metrics.PublishFailed("encode")
		return err
	}

	sent, dropped := c.topic.Broadcast(frame)
	c.metrics.Published(source)
	if dropped > 0 {
		c.metrics.Dropped(dropped)
		c.log.Warn("realtime.broadcast.dropped", "message_id", msg.ID, "dropped", dropped, "sent", sent)
	}
	return nil
}

// sendError queues an error frame for client only.
func sendError(client *Client, msg string) bool {
	frame, err := json.Marshal(v1.NewError(msg))
	if err != nil {
		return false
	}
	return client.offer(frame)
}
