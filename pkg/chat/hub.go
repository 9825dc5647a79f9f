// Package chat implements the per-order real-time channel: a hub of broadcast
// groups keyed by room ID, gorilla/websocket connections pumping frames, and a
// persistence worker that keeps socket pumps off the database.
package chat

import (
	"sync"

	"go.uber.org/zap"
)

// Hub maps each room to the set of live connections subscribed to it.
// Membership is added on connect and removed on disconnect. Delivery across
// connections is best-effort: frames carry a per-room seq so clients can
// detect gaps.
type Hub struct {
	logger *zap.Logger

	mu    sync.RWMutex
	rooms map[string]map[*Client]struct{}
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		logger: logger,
		rooms:  make(map[string]map[*Client]struct{}),
	}
}

func (h *Hub) join(roomID string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	group, ok := h.rooms[roomID]
	if !ok {
		group = make(map[*Client]struct{})
		h.rooms[roomID] = group
	}
	group[c] = struct{}{}
}

func (h *Hub) leave(roomID string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	group, ok := h.rooms[roomID]
	if !ok {
		return
	}
	delete(group, c)
	if len(group) == 0 {
		delete(h.rooms, roomID)
	}
}

// Broadcast queues payload on every connection in the room group. A client
// whose send queue is full is closed instead of buffered without bound, so one
// slow consumer cannot stall the room.
func (h *Hub) Broadcast(roomID string, payload []byte) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.rooms[roomID]))
	for c := range h.rooms[roomID] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if !c.enqueue(payload) {
			h.logger.Warn("Dropping slow chat connection",
				zap.String("room_id", roomID),
				zap.String("user_id", c.userID))
			c.closeSlow()
		}
	}
}

// RoomSize reports the current number of live connections in a room.
func (h *Hub) RoomSize(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}
