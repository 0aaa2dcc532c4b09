// Package realtime fans chat events out to websocket listeners grouped in
// rooms, one room per chat id. Delivery is fire-and-forget: nothing is
// acknowledged, retried or stored for listeners that miss an event.
package realtime

import (
	"encoding/json"
	"log"
	"sync"
)

// Frame is the wire shape of every server → client event.
type Frame struct {
	Event  string `json:"event"`
	ChatID uint   `json:"chatId,omitempty"`
	Data   any    `json:"data,omitempty"`
}

// Subscriber receives frames for the rooms it has joined. Deliver must not
// block; it reports false when the frame was dropped.
type Subscriber interface {
	ID() string
	Deliver(frame []byte) bool
}

// Hub tracks room membership. The zero value is not usable; call NewHub.
type Hub struct {
	mu    sync.RWMutex
	rooms map[uint]map[string]Subscriber
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{rooms: make(map[uint]map[string]Subscriber)}
}

// Join subscribes s to a chat's room. Joining twice is a no-op.
func (h *Hub) Join(chatID uint, s Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room := h.rooms[chatID]
	if room == nil {
		room = make(map[string]Subscriber)
		h.rooms[chatID] = room
	}
	room[s.ID()] = s
}

// Leave removes s from a chat's room. Empty rooms are dropped.
func (h *Hub) Leave(chatID uint, s Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(chatID, s.ID())
}

// LeaveAll removes s from every room, as on disconnect.
func (h *Hub) LeaveAll(s Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for chatID := range h.rooms {
		h.leaveLocked(chatID, s.ID())
	}
}

func (h *Hub) leaveLocked(chatID uint, id string) {
	room := h.rooms[chatID]
	if room == nil {
		return
	}
	delete(room, id)
	if len(room) == 0 {
		delete(h.rooms, chatID)
	}
}

// Members returns how many subscribers are in a chat's room.
func (h *Hub) Members(chatID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[chatID])
}

// Rooms returns the number of non-empty rooms.
func (h *Hub) Rooms() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

// Publish delivers event to everyone currently in the chat's room. The
// payload is marshaled once. A subscriber whose queue is full misses the
// frame; publishing never blocks and never fails the caller.
func (h *Hub) Publish(chatID uint, event string, payload any) {
	frame, err := json.Marshal(Frame{Event: event, ChatID: chatID, Data: payload})
	if err != nil {
		log.Printf("realtime: marshal %s for chat %d: %v", event, chatID, err)
		return
	}

	h.mu.RLock()
	subs := make([]Subscriber, 0, len(h.rooms[chatID]))
	for _, s := range h.rooms[chatID] {
		subs = append(subs, s)
	}
	h.mu.RUnlock()

	for _, s := range subs {
		if !s.Deliver(frame) {
			log.Printf("realtime: dropped %s for chat %d on connection %s", event, chatID, s.ID())
		}
	}
}
