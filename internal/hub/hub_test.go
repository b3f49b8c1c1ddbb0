package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfrund/parley/internal/event"
	"github.com/nfrund/parley/internal/pubsub"
	"github.com/nfrund/parley/internal/registry"
)

const testTopic = "main-chat"

func newTestHub(t *testing.T) (*Hub, *registry.Registry) {
	t.Helper()

	bridge := pubsub.NewWatermillBridge()
	t.Cleanup(func() { bridge.Close() })

	reg := registry.New()
	h := New(bridge, bridge, reg)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, h.Open(ctx, testTopic))

	return h, reg
}

func subscribe(t *testing.T, reg *registry.Registry, name string, queueSize int) *registry.Connection {
	t.Helper()
	conn := registry.NewConnection(name, queueSize)
	reg.Register(conn)
	require.True(t, reg.Subscribe(conn.ID, testTopic))
	return conn
}

func readFrame(t *testing.T, conn *registry.Connection, timeout time.Duration) event.Event {
	t.Helper()
	select {
	case payload, ok := <-conn.Outbound():
		require.True(t, ok, "outbound queue closed unexpectedly")
		var ev event.Event
		require.NoError(t, json.Unmarshal(payload, &ev))
		return ev
	case <-time.After(timeout):
		t.Fatal("timed out waiting for frame")
		return event.Event{}
	}
}

func TestPublish_FanOutCompleteness(t *testing.T) {
	h, reg := newTestHub(t)

	before := time.Now().UnixMilli()
	conns := []*registry.Connection{
		subscribe(t, reg, "alice", 8),
		subscribe(t, reg, "bob", 8),
		subscribe(t, reg, "carol", 8),
	}

	require.NoError(t, h.Publish(context.Background(), testTopic, conns[0].ID, event.Chat("alice", "hi")))

	for _, conn := range conns {
		ev := readFrame(t, conn, 2*time.Second)
		assert.Equal(t, event.TypeChat, ev.Type)
		assert.Equal(t, "alice", ev.Username)
		assert.Equal(t, "hi", ev.Content)
		assert.GreaterOrEqual(t, ev.Timestamp, before, "timestamp must be assigned at fan-out")
	}

	// Exactly once: nothing further queued.
	for _, conn := range conns {
		select {
		case payload := <-conn.Outbound():
			t.Fatalf("unexpected extra frame: %s", payload)
		case <-time.After(100 * time.Millisecond):
		}
	}
}

func TestPublish_PerConnectionFIFO(t *testing.T) {
	h, reg := newTestHub(t)
	conn := subscribe(t, reg, "alice", 16)

	contents := []string{"one", "two", "three", "four", "five"}
	for _, c := range contents {
		require.NoError(t, h.Publish(context.Background(), testTopic, conn.ID, event.Chat("alice", c)))
	}

	for _, want := range contents {
		ev := readFrame(t, conn, 2*time.Second)
		assert.Equal(t, want, ev.Content)
	}
}

// A tight publish burst must come out of the queue in publish order; racing
// bus goroutines once reordered bursts like a, b, c, d into a, d, b, c.
func TestPublish_BurstKeepsPublishOrder(t *testing.T) {
	h, reg := newTestHub(t)
	conn := subscribe(t, reg, "alice", 64)

	const total = 40
	want := make([]string, total)
	for i := range want {
		want[i] = fmt.Sprintf("burst-%02d", i)
		require.NoError(t, h.Publish(context.Background(), testTopic, conn.ID, event.Chat("alice", want[i])))
	}

	for _, content := range want {
		ev := readFrame(t, conn, 2*time.Second)
		assert.Equal(t, content, ev.Content)
	}
}

func TestPublish_SlowConsumerIsolation(t *testing.T) {
	h, reg := newTestHub(t)

	slow := subscribe(t, reg, "slow", 1)
	require.True(t, slow.TrySend([]byte("stuck"))) // fill the queue, nobody drains it
	healthy := subscribe(t, reg, "healthy", 8)

	require.NoError(t, h.Publish(context.Background(), testTopic, "", event.Chat("bob", "still here")))
	require.NoError(t, h.Publish(context.Background(), testTopic, "", event.Chat("bob", "marker")))

	// The healthy connection receives promptly despite the jammed peer.
	ev := readFrame(t, healthy, 2*time.Second)
	assert.Equal(t, "still here", ev.Content)
	ev = readFrame(t, healthy, 2*time.Second)
	assert.Equal(t, "marker", ev.Content)

	// Fan-out is serial per topic, so once the marker arrived the first
	// broadcast has fully completed: the slow peer had its event dropped and
	// its queue closed. Only the pre-existing payload remains.
	assert.Equal(t, []byte("stuck"), <-slow.Outbound())
	_, open := <-slow.Outbound()
	assert.False(t, open, "slow connection queue should be closed")
}

func TestSendDirect_OnlyTargetReceives(t *testing.T) {
	h, reg := newTestHub(t)

	target := subscribe(t, reg, "alice", 8)
	other := subscribe(t, reg, "bob", 8)

	assert.True(t, h.SendDirect(target, event.SystemError("bad frame")))

	ev := readFrame(t, target, time.Second)
	assert.Equal(t, event.TypeSystem, ev.Type)
	assert.Equal(t, "bad frame", ev.Content)
	assert.NotZero(t, ev.Timestamp)

	select {
	case payload := <-other.Outbound():
		t.Fatalf("direct frame leaked to another connection: %s", payload)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestSendDirect_RefusedWhenQueueFull(t *testing.T) {
	h, reg := newTestHub(t)

	conn := subscribe(t, reg, "alice", 1)
	require.True(t, conn.TrySend([]byte("occupied")))

	assert.False(t, h.SendDirect(conn, event.SystemError("no room")))
}
