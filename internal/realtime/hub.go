package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Client is a single connection that can receive pushed messages.
// The network side is owned by the websocket handler.
type Client interface {
	Send(message []byte) bool
	Close()
}

// EventType names a task change pushed to clients.
type EventType string

const (
	EventTaskCreated       EventType = "task_created"
	EventTaskUpdated       EventType = "task_updated"
	EventTaskDeleted       EventType = "task_deleted"
	EventTaskStatusChanged EventType = "task_status_changed"
	EventApprovalRequested EventType = "approval_requested"
	EventApprovalDecided   EventType = "approval_decided"
	EventTaskDeadlineMoved EventType = "task_deadline_updated"
)

// Event is the JSON message sent over the socket.
type Event struct {
	Type            EventType `json:"type"`
	TaskID          uint      `json:"task_id"`
	ActorID         uint      `json:"actor_id"`
	Status          string    `json:"status,omitempty"`
	PendingApprover *uint     `json:"pending_approver,omitempty"`
	Version         int       `json:"version"`
	At              time.Time `json:"at"`
}

// Hub maintains active user connections and broadcasts events to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[uint]map[Client]struct{}
	log     *zap.Logger
}

// NewHub returns an empty hub.
func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		clients: make(map[uint]map[Client]struct{}),
		log:     log,
	}
}

// Register adds a client under a user ID.
func (h *Hub) Register(userID uint, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[userID]; !ok {
		h.clients[userID] = make(map[Client]struct{})
	}
	h.clients[userID][client] = struct{}{}
}

// Unregister removes a client; if user has no more clients, cleans up map.
func (h *Hub) Unregister(userID uint, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if clients, ok := h.clients[userID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.clients, userID)
		}
	}
}

// Connected returns the number of live clients of a user.
func (h *Hub) Connected(userID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// Broadcast sends a message to all clients of a user and returns how many
// accepted it. Failed clients are left for their handler to unregister.
func (h *Hub) Broadcast(userID uint, message []byte) int {
	h.mu.RLock()
	targets := make([]Client, 0, len(h.clients[userID]))
	for c := range h.clients[userID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	sent := 0
	for _, c := range targets {
		if c.Send(message) {
			sent++
		}
	}
	return sent
}

// Publish sends evt once to every distinct recipient. Zero ids are skipped.
func (h *Hub) Publish(evt Event, recipients ...uint) {
	msg, err := json.Marshal(evt)
	if err != nil {
		h.log.Error("marshal realtime event", zap.String("type", string(evt.Type)), zap.Error(err))
		return
	}
	seen := make(map[uint]struct{}, len(recipients))
	for _, id := range recipients {
		if id == 0 {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		h.Broadcast(id, msg)
	}
}
