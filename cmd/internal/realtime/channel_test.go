package realtime

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"chatpad/cmd/internal/apperr"
	v1 "chatpad/shared/contracts/realtime/v1"
)

type failingStore struct{ InMemoryStore }

func (f *failingStore) Create(context.Context, CreateMessageInput) (Message, error) {
	return Message{}, errors.New("database unavailable")
}

func TestChannel_AdmitAcksOnlyNewcomer(t *testing.T) {
	ch := NewChannel(discardLogger(), nil)
	a := NewClient("a", "user-a", 8)
	b := NewClient("b", "user-b", 8)

	ch.Admit(a)
	require.Len(t, drain(t, a), 1)

	ch.Admit(b)
	require.Empty(t, drain(t, a))
	frames := drain(t, b)
	require.Len(t, frames, 1)
	require.Equal(t, v1.TypeSubscribed, frames[0].Type)
	require.Equal(t, "user-b", frames[0].UserID)
	require.Equal(t, 2, ch.Len())

	ch.Remove(a)
	require.Equal(t, 1, ch.Len())
	require.Empty(t, drain(t, b), "remove must not broadcast")
}

func TestChannel_PublishPersistsThenFansOutToAll(t *testing.T) {
	at := time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)
	store := NewInMemoryStore()
	ch := NewChannel(discardLogger(), store, WithChannelClock(func() time.Time { return at }))

	a := NewClient("a", "user-a", 8)
	b := NewClient("b", "user-b", 8)
	ch.Admit(a)
	ch.Admit(b)
	drain(t, a)
	drain(t, b)

	msg, err := ch.Publish(context.Background(), a, true, []byte(`"hello"`))
	require.NoError(t, err)
	require.Equal(t, "user-a", msg.UserID)
	require.Equal(t, "hello", msg.Contents)
	require.Equal(t, at, msg.CreatedAt)

	stored, err := store.ListRecent(context.Background(), 10)
	require.NoError(t, err)
	require.Equal(t, []Message{msg}, stored)

	for _, c := range []*Client{a, b} {
		frames := drain(t, c)
		require.Len(t, frames, 1, c.ID)
		f := frames[0]
		require.Equal(t, v1.TypeAnnounceMessage, f.Type)
		require.NotNil(t, f.Data)
		require.Equal(t, msg.Public(), *f.Data)
	}
}

func TestChannel_PublishRejectsNonString(t *testing.T) {
	ch := NewChannel(discardLogger(), nil)
	a := NewClient("a", "user-a", 8)
	ch.Admit(a)
	drain(t, a)

	for _, tc := range []struct {
		text bool
		data string
	}{
		{true, `{"contents":"hi"}`},
		{true, `[1,2]`},
		{true, `null`},
		{true, " null "},
		{true, "a\x00b"},
		{false, "binary"},
		{true, ""},
	} {
		_, err := ch.Publish(context.Background(), a, tc.text, []byte(tc.data))
		require.ErrorIs(t, err, apperr.ErrBadRequest, tc.data)
	}
	require.Empty(t, drain(t, a))

	msgs, err := ch.Store().ListRecent(context.Background(), 10)
	require.NoError(t, err)
	require.Empty(t, msgs)
}

func TestChannel_PersistenceFailureBroadcastsNothing(t *testing.T) {
	ch := NewChannel(discardLogger(), &failingStore{})
	a := NewClient("a", "user-a", 8)
	b := NewClient("b", "user-b", 8)
	ch.Admit(a)
	ch.Admit(b)
	drain(t, a)
	drain(t, b)

	_, err := ch.Publish(context.Background(), a, true, []byte("hello"))
	require.Error(t, err)
	require.NotErrorIs(t, err, apperr.ErrBadRequest)
	require.Equal(t, "Internal Server Error", apperr.PublicMessage(err))
	require.Empty(t, drain(t, a))
	require.Empty(t, drain(t, b))
}

func TestChannel_AllSubscribersSeeSameOrder(t *testing.T) {
	store := NewInMemoryStore()
	ch := NewChannel(discardLogger(), store)

	subs := make([]*Client, 4)
	for i := range subs {
		subs[i] = NewClient(fmt.Sprintf("c%d", i), fmt.Sprintf("user-%d", i), 512)
		ch.Admit(subs[i])
		drain(t, subs[i])
	}

	const perSender = 50
	var wg sync.WaitGroup
	for _, sender := range subs[:2] {
		wg.Add(1)
		go func(c *Client) {
			defer wg.Done()
			for i := 0; i < perSender; i++ {
				_, err := ch.Publish(context.Background(), c, true, []byte(fmt.Sprintf("%s-%d", c.ID, i)))
				if err != nil {
					t.Errorf("publish: %v", err)
					return
				}
			}
		}(sender)
	}
	wg.Wait()

	stored, err := store.ListRecent(context.Background(), MaxListLimit)
	require.NoError(t, err)
	byID := make(map[string]Message, len(stored))
	for _, m := range stored {
		byID[m.ID] = m
	}

	var reference []string
	for i, c := range subs {
		frames := drain(t, c)
		require.Len(t, frames, 2*perSender)

		order := make([]string, 0, len(frames))
		for _, f := range frames {
			require.Equal(t, v1.TypeAnnounceMessage, f.Type)
			m, ok := byID[f.Data.ID]
			require.True(t, ok, "announced id %s not persisted", f.Data.ID)
			require.Equal(t, m.Public(), *f.Data)
			order = append(order, f.Data.ID)
		}
		if i == 0 {
			reference = order
			continue
		}
		require.Equal(t, reference, order, "subscriber %s saw a different order", c.ID)
	}
}

func TestChannel_BroadcastOrderMatchesStoreOrder(t *testing.T) {
	at := time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)
	store := NewInMemoryStore()
	ch := NewChannel(discardLogger(), store, WithChannelClock(func() time.Time { return at }))

	watcher := NewClient("w", "user-w", 512)
	ch.Admit(watcher)
	drain(t, watcher)

	const perSender = 20
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		sender := NewClient(fmt.Sprintf("s%d", i), fmt.Sprintf("user-s%d", i), 1)
		wg.Add(2)
		go func(c *Client) {
			defer wg.Done()
			for n := 0; n < perSender; n++ {
				if _, err := ch.Publish(context.Background(), c, true, []byte(fmt.Sprintf("ws-%s-%d", c.ID, n))); err != nil {
					t.Errorf("publish: %v", err)
					return
				}
			}
		}(sender)
		go func(userID string) {
			defer wg.Done()
			for n := 0; n < perSender; n++ {
				if _, err := ch.Post(context.Background(), userID, fmt.Sprintf("http-%s-%d", userID, n)); err != nil {
					t.Errorf("post: %v", err)
					return
				}
			}
		}(sender.UserID)
	}
	wg.Wait()

	frames := drain(t, watcher)
	require.Len(t, frames, 4*perSender)

	stored, err := store.ListRecent(context.Background(), MaxListLimit)
	require.NoError(t, err)
	sort.Slice(stored, func(i, j int) bool {
		if !stored[i].CreatedAt.Equal(stored[j].CreatedAt) {
			return stored[i].CreatedAt.Before(stored[j].CreatedAt)
		}
		return stored[i].ID < stored[j].ID
	})
	require.Len(t, stored, len(frames))

	for i, f := range frames {
		require.Equal(t, v1.TypeAnnounceMessage, f.Type)
		require.Equal(t, stored[i].ID, f.Data.ID, "frame %d", i)
		if i > 0 {
			require.True(t, stored[i].CreatedAt.After(stored[i-1].CreatedAt), "createdAt must strictly increase")
		}
	}
	require.True(t, stored[0].CreatedAt.Equal(at))
}

func TestChannel_CloseAllEndsEveryClient(t *testing.T) {
	ch := NewChannel(discardLogger(), nil)
	a := NewClient("a", "user-a", 8)
	b := NewClient("b", "user-b", 8)
	ch.Admit(a)
	ch.Admit(b)

	require.Equal(t, 2, ch.CloseAll())
	require.Equal(t, 0, ch.Len())
	for _, c := range []*Client{a, b} {
		select {
		case <-c.Done():
		default:
			t.Fatalf("client %s not closed", c.ID)
		}
	}
	require.Equal(t, 0, ch.CloseAll())
}
