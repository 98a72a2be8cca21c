package ws

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu     sync.Mutex
	writes [][]byte
	fail   bool
	closed bool

	notify chan []byte
}

func newFakeConn() *fakeConn {
	return &fakeConn{notify: make(chan []byte, 16)}
}

func (f *fakeConn) WriteMessage(messageType int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("write failed")
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	f.writes = append(f.writes, cp)
	select {
	case f.notify <- cp:
	default:
	}
	return nil
}

func (f *fakeConn) SetWriteDeadline(t time.Time) error { return nil }

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) received() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.writes...)
}

func (f *fakeConn) wait(t *testing.T, timeout time.Duration) []byte {
	t.Helper()
	select {
	case data := <-f.notify:
		return data
	case <-time.After(timeout):
		t.Fatal("timed out waiting for websocket write")
		return nil
	}
}

func newTestHub(t *testing.T) (*Hub, *redis.Client) {
	t.Helper()
	s, err := miniredis.Run()
	require.NoError(t, err)

	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		s.Close()
	})

	return NewHub(rdb, time.Second), rdb
}

// waitSubscribed blocks until the hub's relay connection is subscribed to the
// channel, so a following publish cannot outrun the subscription.
func waitSubscribed(t *testing.T, rdb *redis.Client, channel string) {
	t.Helper()
	require.Eventually(t, func() bool {
		subs, err := rdb.PubSubNumSub(context.Background(), channel).Result()
		return err == nil && subs[channel] > 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRegisterUnregisterCounts(t *testing.T) {
	h, _ := newTestHub(t)

	c1 := newFakeConn()
	c2 := newFakeConn()
	c3 := newFakeConn()

	s1 := h.Register("u1", c1)
	s2 := h.Register("u1", c2)
	s3 := h.Register("u2", c3)

	assert.Equal(t, 2, h.ActiveUsers())
	assert.Equal(t, 3, h.TotalSessions())

	h.Unregister(s1)
	assert.Equal(t, 2, h.ActiveUsers())
	assert.Equal(t, 2, h.TotalSessions())

	h.Unregister(s2)
	assert.Equal(t, 1, h.ActiveUsers())

	// double unregister is a no-op
	h.Unregister(s2)
	assert.Equal(t, 1, h.TotalSessions())

	h.Unregister(s3)
	assert.Equal(t, 0, h.ActiveUsers())
	assert.Equal(t, 0, h.TotalSessions())
}

func TestDeliverToUserFanOutIsolation(t *testing.T) {
	h, _ := newTestHub(t)

	good1 := newFakeConn()
	bad := newFakeConn()
	bad.fail = true
	good2 := newFakeConn()

	h.Register("u1", good1)
	h.Register("u1", bad)
	h.Register("u1", good2)

	sent := h.deliverToUser("u1", []byte("hello"))

	// one bad socket never blocks the siblings
	assert.Equal(t, 2, sent)
	assert.Len(t, good1.received(), 1)
	assert.Len(t, good2.received(), 1)

	// the failed session is closed and dropped
	assert.True(t, bad.closed)
	assert.Equal(t, 2, h.TotalSessions())
}

func TestDeliverToUserIsolatesUsers(t *testing.T) {
	h, _ := newTestHub(t)

	mine := newFakeConn()
	theirs := newFakeConn()
	h.Register("u1", mine)
	h.Register("u2", theirs)

	h.deliverToUser("u1", []byte("private"))

	assert.Len(t, mine.received(), 1)
	assert.Empty(t, theirs.received())
}

func TestDeliverBroadcastReachesAllUsers(t *testing.T) {
	h, _ := newTestHub(t)

	c1 := newFakeConn()
	c2 := newFakeConn()
	h.Register("u1", c1)
	h.Register("u2", c2)

	h.deliverBroadcast([]byte("to everyone"))

	assert.Equal(t, [][]byte{[]byte("to everyone")}, c1.received())
	assert.Equal(t, [][]byte{[]byte("to everyone")}, c2.received())
}

func TestRelayDeliversPublishedMessages(t *testing.T) {
	h, rdb := newTestHub(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	conn := newFakeConn()
	h.Register("u1", conn)
	waitSubscribed(t, rdb, "ws:user:u1")

	// publishing through the hub round-trips via Redis pub/sub
	require.NoError(t, h.SendToUser(ctx, "u1", []byte(`{"hi":true}`)))
	assert.Equal(t, []byte(`{"hi":true}`), conn.wait(t, 2*time.Second))

	waitSubscribed(t, rdb, "ws:broadcast")
	require.NoError(t, h.Broadcast(ctx, []byte("all")))
	assert.Equal(t, []byte("all"), conn.wait(t, 2*time.Second))
}

func TestRelayKeepsSubscriptionWhileSessionsRemain(t *testing.T) {
	h, rdb := newTestHub(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	c1 := newFakeConn()
	c2 := newFakeConn()
	s1 := h.Register("u1", c1)
	h.Register("u1", c2)
	waitSubscribed(t, rdb, "ws:user:u1")

	// closing one of two sessions must not tear down the subscription
	h.Unregister(s1)

	require.NoError(t, h.SendToUser(ctx, "u1", []byte("still here")))
	assert.Equal(t, []byte("still here"), c2.wait(t, 2*time.Second))
	assert.Empty(t, c1.received())
}

func TestRelayStopsDeliveringAfterLastUnregister(t *testing.T) {
	h, rdb := newTestHub(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	conn := newFakeConn()
	sess := h.Register("u1", conn)
	waitSubscribed(t, rdb, "ws:user:u1")

	require.NoError(t, h.SendToUser(ctx, "u1", []byte("first")))
	conn.wait(t, 2*time.Second)

	h.Unregister(sess)

	require.NoError(t, h.SendToUser(ctx, "u1", []byte("second")))
	time.Sleep(100 * time.Millisecond)
	assert.Len(t, conn.received(), 1, "unsubscribed user must not receive")
}
