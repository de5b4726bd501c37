package sse

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
)

const defaultBufferSize = 16

// Event is one server-sent event
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// FormatSSE renders the event in text/event-stream framing
func (e Event) FormatSSE() string {
	data, err := json.Marshal(e.Data)
	if err != nil {
		data = []byte("null")
	}
	return "event: " + e.Type + "\ndata: " + string(data) + "\n\n"
}

// Client is a subscriber of one resource
type Client struct {
	ID       string
	Resource string
	Channel  chan Event
}

// NewClient creates a buffered subscriber of resource
func NewClient(resource string, bufferSize int) *Client {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	return &Client{
		ID:       uuid.New().String(),
		Resource: resource,
		Channel:  make(chan Event, bufferSize),
	}
}

// Hub fans events out to the subscribers of each resource
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{clients: make(map[string]map[*Client]struct{})}
}

// Register subscribes client to its resource
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[client.Resource] == nil {
		h.clients[client.Resource] = make(map[*Client]struct{})
	}
	h.clients[client.Resource][client] = struct{}{}
}

// Unregister removes client and closes its channel
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.clients[client.Resource]
	if !ok {
		return
	}
	if _, exists := clients[client]; !exists {
		return
	}
	delete(clients, client)
	close(client.Channel)
	if len(clients) == 0 {
		delete(h.clients, client.Resource)
	}
}

// Broadcast sends event to every subscriber of resource. Subscribers with
// a full buffer miss the event.
func (h *Hub) Broadcast(resource string, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients[resource] {
		select {
		case client.Channel <- event:
		default:
		}
	}
}

// Publish broadcasts a stage update of a research session
func (h *Hub) Publish(sessionID, stage string, data any) {
	h.Broadcast(sessionID, Event{Type: stage, Data: data})
}

// ClientCount returns the number of subscribers of resource
func (h *Hub) ClientCount(resource string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[resource])
}
