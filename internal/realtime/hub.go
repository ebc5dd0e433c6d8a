// Package realtime carries presence, song-sharing and chat events to connected
// websocket sessions. Every session joins the room named after its user.
package realtime

import (
	"context"
	"sync"

	"music_stream/internal/domain"
	"music_stream/internal/metrics"
	"music_stream/internal/service"
	"music_stream/pkg/logger"

	"github.com/goccy/go-json"
)

const publishQueueSize = 1024

var _ service.Notifier = (*Hub)(nil)

type membership struct {
	client *Client
	userID string
}

type delivery struct {
	userID  string // empty means every room
	payload []byte
}

// Hub owns the room table. Join, Leave and publishes are serialized through Run,
// so events published to one room arrive in publish order.
type Hub struct {
	join    chan membership
	leave   chan *Client
	publish chan delivery
	done    chan struct{}

	mu    sync.RWMutex
	rooms map[string]map[*Client]bool

	log logger.Logger
}

func NewHub(log logger.Logger) *Hub {
	return &Hub{
		join:    make(chan membership),
		leave:   make(chan *Client),
		publish: make(chan delivery, publishQueueSize),
		done:    make(chan struct{}),
		rooms:   make(map[string]map[*Client]bool),
		log:     log.With("component", "hub"),
	}
}

// Run processes membership changes and deliveries until ctx is done, then
// closes every session.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case m := <-h.join:
			h.add(m)
		case c := <-h.leave:
			h.remove(c)
		case d := <-h.publish:
			h.deliver(d)
		}
	}
}

// Join subscribes c to the room of userID. It returns once the hub has
// registered the membership, so later publishes reach c.
func (h *Hub) Join(c *Client, userID string) {
	select {
	case h.join <- membership{client: c, userID: userID}:
	case <-h.done:
	}
}

func (h *Hub) Leave(c *Client) {
	select {
	case h.leave <- c:
	case <-h.done:
	}
}

// PublishTo queues event for every session in the user's room.
func (h *Hub) PublishTo(userID string, event domain.Event) {
	if userID == "" {
		return
	}
	h.enqueue(userID, event)
}

// Broadcast queues event for every joined session.
func (h *Hub) Broadcast(event domain.Event) {
	h.enqueue("", event)
}

func (h *Hub) enqueue(userID string, event domain.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.log.Error("Failed to encode event", "type", event.Type, "error", err)
		return
	}

	select {
	case h.publish <- delivery{userID: userID, payload: payload}:
		metrics.EventsPublished.WithLabelValues(event.Type).Inc()
	default:
		metrics.EventsDropped.Inc()
		h.log.Warn("Publish queue full, event dropped", "type", event.Type, "user_id", userID)
	}
}

// Online returns the number of users with at least one joined session.
func (h *Hub) Online() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

func (h *Hub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[userID]) > 0
}

func (h *Hub) add(m membership) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[m.userID]
	if !ok {
		room = make(map[*Client]bool)
		h.rooms[m.userID] = room
	}
	if room[m.client] {
		return
	}
	room[m.client] = true
	metrics.WSConnections.Inc()
	h.log.Debug("Session joined", "user_id", m.userID, "session", m.client.id)
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *Client) {
	room, ok := h.rooms[c.userID]
	if !ok || !room[c] {
		return
	}
	delete(room, c)
	if len(room) == 0 {
		delete(h.rooms, c.userID)
	}
	metrics.WSConnections.Dec()
	c.close()
}

func (h *Hub) deliver(d delivery) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if d.userID != "" {
		for c := range h.rooms[d.userID] {
			h.offer(c, d.payload)
		}
		return
	}
	for _, room := range h.rooms {
		for c := range room {
			h.offer(c, d.payload)
		}
	}
}

// offer hands payload to c; a session that cannot keep up is evicted.
func (h *Hub) offer(c *Client, payload []byte) {
	if c.enqueue(payload) {
		return
	}
	metrics.EventsDropped.Inc()
	h.log.Warn("Session too slow, closing", "user_id", c.userID, "session", c.id)
	h.removeLocked(c)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for userID, room := range h.rooms {
		for c := range room {
			metrics.WSConnections.Dec()
			c.close()
		}
		delete(h.rooms, userID)
	}
}
