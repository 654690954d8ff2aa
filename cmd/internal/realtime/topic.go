package realtime

import "sync"

// Topic is a named subscriber set.
//
// Concurrency guarantees:
//   - Subscribe and Unsubscribe are safe under concurrent Broadcast.
//   - Broadcast holds the exclusive lock for the whole fan-out, so every
//     subscriber sees frames in the same relative order.
//   - Broadcast never blocks: a full queue drops the frame for that subscriber.
type Topic struct {
	Name string

	mu      sync.Mutex
	members map[string]*Client
}

func NewTopic(name string) *Topic {
	return &Topic{Name: name, members: make(map[string]*Client)}
}

// Subscribe adds c and reports the new subscriber count.
func (t *Topic) Subscribe(c *Client) int {
	if c == nil || c.ID == "" {
		return t.Len()
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.members[c.ID] = c
	return len(t.members)
}

// Unsubscribe removes the client with id and reports whether it was present
// and the remaining count.
func (t *Topic) Unsubscribe(id string) (bool, int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.members[id]
	delete(t.members, id)
	return ok, len(t.members)
}

// Drain empties the topic and returns the clients that were subscribed.
func (t *Topic) Drain() []*Client {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*Client, 0, len(t.members))
	for id, m := range t.members {
		out = append(out, m)
		delete(t.members, id)
	}
	return out
}

func (t *Topic) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.members)
}

// Broadcast offers frame to every subscriber and returns how many were
// reached and how many dropped it.
func (t *Topic) Broadcast(frame []byte) (sent, dropped int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, m := range t.members {
		if m.offer(frame) {
			sent++
		} else {
			dropped++
		}
	}
	return sent, dropped
}
