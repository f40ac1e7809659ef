// Package realtime is the broadcast fabric: named rooms of long-lived
// websocket connections, fanned out to by the lifecycle engine and the chat
// handlers. Delivery is at-most-once and best-effort against the membership
// snapshot at publish time; there is no replay log. A reconnecting client
// reconciles by re-fetching full task state.
package realtime

import (
	"encoding/json"
	"log/slog"
	"sync"
)

type Hub struct {
	mu    sync.Mutex
	rooms map[string]map[*Conn]struct{}

	logger *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		rooms:  make(map[string]map[*Conn]struct{}),
		logger: logger,
	}
}

func (h *Hub) Join(room string, c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Conn]struct{})
		h.rooms[room] = members
	}
	members[c] = struct{}{}
	c.rooms[room] = struct{}{}
}

// Remove drops the connection from every room it joined. Called on
// disconnect; after it returns the connection receives nothing further.
func (h *Hub) Remove(c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for room := range c.rooms {
		if members, ok := h.rooms[room]; ok {
			delete(members, c)
			if len(members) == 0 {
				delete(h.rooms, room)
			}
		}
	}
	c.rooms = make(map[string]struct{})
}

// Publish marshals the payload once and hands it to every member of the
// room. Enqueueing happens under the hub lock, so two publishes for the same
// room reach each member's send queue in publish order; a member whose queue
// is full is disconnected rather than allowed to stall the rest.
func (h *Hub) Publish(room string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("marshal broadcast payload", "room", room, "err", err)
		return
	}

	h.mu.Lock()
	var stalled []*Conn
	for c := range h.rooms[room] {
		if !c.enqueue(data) {
			stalled = append(stalled, c)
		}
	}
	h.mu.Unlock()

	for _, c := range stalled {
		h.logger.Warn("dropping slow realtime consumer", "room", room, "conn", c.id)
		h.Remove(c)
		c.Close()
	}
}

// RoomSize reports current membership, for tests and the stats endpoint.
func (h *Hub) RoomSize(room string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[room])
}
