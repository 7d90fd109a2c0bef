package broadcaster_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/crosschain-labs/swap-coordinator/pkg/broadcaster"
)

func TestBroadcast_FanOutRespectsCapacityWithoutBlocking(t *testing.T) {
	const (
		subscribers = 4
		capacity    = 3
		messages    = 10
	)

	b := broadcaster.New(capacity)
	subs := make([]*broadcaster.Subscriber, subscribers)
	for i := range subs {
		subs[i] = b.Register()
	}

	done := make(chan struct{})
	go func() {
		for i := 0; i < messages; i++ {
			b.Broadcast([]byte(fmt.Sprintf("msg-%d", i)))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Broadcast blocked on a full outbox")
	}

	for _, sub := range subs {
		require.Len(t, sub.Outbox, capacity)
	}
}

func TestBroadcast_DeliversInFIFOOrder(t *testing.T) {
	b := broadcaster.New(8)
	sub := b.Register()

	b.Broadcast([]byte("first"))
	b.Broadcast([]byte("second"))
	b.Broadcast([]byte("third"))

	require.Equal(t, "first", string(<-sub.Outbox))
	require.Equal(t, "second", string(<-sub.Outbox))
	require.Equal(t, "third", string(<-sub.Outbox))
}

func TestUnregister_ClosesOutboxAndIsIdempotent(t *testing.T) {
	b := broadcaster.New(4)
	sub := b.Register()
	require.Equal(t, 1, b.Count())

	b.Unregister(sub.ID)
	require.Equal(t, 0, b.Count())

	_, ok := <-sub.Outbox
	require.False(t, ok, "outbox should be closed after Unregister")

	require.NotPanics(t, func() { b.Unregister(sub.ID) })
}

func TestBroadcast_AfterUnregisterIsANoop(t *testing.T) {
	b := broadcaster.New(4)
	sub := b.Register()
	b.Unregister(sub.ID)

	require.NotPanics(t, func() { b.Broadcast([]byte("late")) })
}

func TestClose_ClosesAllOutboxes(t *testing.T) {
	b := broadcaster.New(4)
	a := b.Register()
	c := b.Register()

	b.Close()
	require.Equal(t, 0, b.Count())

	_, ok := <-a.Outbox
	require.False(t, ok)
	_, ok = <-c.Outbox
	require.False(t, ok)
}
