package realtime

import (
	"context"
	"testing"
	"time"

	"music_stream/internal/domain"
	"music_stream/pkg/logger"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(userID string, buffer int) *Client {
	return &Client{
		id:     userID + "-session",
		userID: userID,
		send:   make(chan []byte, buffer),
		quit:   make(chan struct{}),
	}
}

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	hub := NewHub(logger.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)
	return hub, cancel
}

func receive(t *testing.T, c *Client) domain.Event {
	t.Helper()
	select {
	case payload := <-c.send:
		var ev struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		require.NoError(t, json.Unmarshal(payload, &ev))
		return domain.Event{Type: ev.Type, Data: ev.Data}
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
		return domain.Event{}
	}
}

func assertNothing(t *testing.T, c *Client) {
	t.Helper()
	select {
	case payload := <-c.send:
		t.Fatalf("unexpected event %s", payload)
	case <-time.After(30 * time.Millisecond):
	}
}

func TestHub_PublishToTargetsOneRoom(t *testing.T) {
	hub, _ := startHub(t)
	alice := newTestClient("alice", 8)
	bob := newTestClient("bob", 8)
	hub.Join(alice, "alice")
	hub.Join(bob, "bob")

	hub.PublishTo("bob", domain.Event{Type: domain.EventReceiveMessage, Data: "hello"})

	assert.Equal(t, domain.EventReceiveMessage, receive(t, bob).Type)
	assertNothing(t, alice)
}

func TestHub_BroadcastSkipsUnjoinedSessions(t *testing.T) {
	hub, _ := startHub(t)
	alice := newTestClient("alice", 8)
	bob := newTestClient("bob", 8)
	lurker := newTestClient("carol", 8)
	hub.Join(alice, "alice")
	hub.Join(bob, "bob")

	hub.Broadcast(domain.Event{Type: domain.EventUserStatusUpdate})

	assert.Equal(t, domain.EventUserStatusUpdate, receive(t, alice).Type)
	assert.Equal(t, domain.EventUserStatusUpdate, receive(t, bob).Type)
	assertNothing(t, lurker)
	assert.Equal(t, 2, hub.Online())
}

func TestHub_PreservesPublishOrder(t *testing.T) {
	hub, _ := startHub(t)
	bob := newTestClient("bob", 64)
	hub.Join(bob, "bob")

	for i := 0; i < 20; i++ {
		hub.PublishTo("bob", domain.Event{Type: domain.EventReceiveMessage, Data: i})
	}

	for i := 0; i < 20; i++ {
		ev := receive(t, bob)
		assert.JSONEq(t, string(mustJSON(t, i)), string(ev.Data.(json.RawMessage)))
	}
}

func TestHub_LeaveStopsDelivery(t *testing.T) {
	hub, _ := startHub(t)
	bob := newTestClient("bob", 8)
	hub.Join(bob, "bob")
	require.True(t, hub.IsOnline("bob"))

	hub.Leave(bob)
	require.Eventually(t, func() bool { return !hub.IsOnline("bob") }, time.Second, 5*time.Millisecond)

	hub.PublishTo("bob", domain.Event{Type: domain.EventReceiveMessage})
	assertNothing(t, bob)

	// leaving twice is harmless
	hub.Leave(bob)
}

func TestHub_EvictsSlowSession(t *testing.T) {
	hub, _ := startHub(t)
	slow := newTestClient("slow", 1)
	hub.Join(slow, "slow")

	for i := 0; i < 3; i++ {
		hub.PublishTo("slow", domain.Event{Type: domain.EventReceiveMessage})
	}

	require.Eventually(t, func() bool { return !hub.IsOnline("slow") }, time.Second, 5*time.Millisecond)
	select {
	case <-slow.quit:
	default:
		t.Fatal("slow session was not closed")
	}
}

func TestHub_RunStopClosesSessions(t *testing.T) {
	hub, cancel := startHub(t)
	bob := newTestClient("bob", 8)
	hub.Join(bob, "bob")

	cancel()

	select {
	case <-bob.quit:
	case <-time.After(time.Second):
		t.Fatal("session not closed on shutdown")
	}

	// membership calls after shutdown do not block
	done := make(chan struct{})
	go func() {
		hub.Join(newTestClient("late", 1), "late")
		hub.Leave(bob)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Join blocked after shutdown")
	}
}

func mustJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}
