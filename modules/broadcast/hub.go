package broadcast

import (
	"sync"

	"github.com/go-monolith/mono/pkg/types"
)

// Hub is the connection table. It implements session.Emitter: frames are
// encoded once per emission and queued on each recipient without blocking.
// A recipient whose queue is full is dropped and its socket closed.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	logger  types.Logger
}

// NewHub creates an empty Hub.
func NewHub(logger types.Logger) *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		logger:  logger,
	}
}

// Register adds client to the hub, replacing any client with the same id.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	old := h.clients[client.ID]
	h.clients[client.ID] = client
	h.mu.Unlock()

	if old != nil && old != client {
		old.closeQueue()
	}
	h.logger.Debug("Client registered", "connID", client.ID)
}

// Unregister removes the client with connID and closes its queue. It is
// safe to call more than once.
func (h *Hub) Unregister(connID string) {
	h.mu.Lock()
	client, ok := h.clients[connID]
	if ok {
		delete(h.clients, connID)
	}
	h.mu.Unlock()

	if ok {
		client.closeQueue()
		h.logger.Debug("Client unregistered", "connID", connID)
	}
}

// Emit delivers event to every listed connection that is still registered.
func (h *Hub) Emit(connIDs []string, event string, payload any) {
	if len(connIDs) == 0 {
		return
	}
	data, err := EncodeFrame(event, payload)
	if err != nil {
		h.logger.Error("Failed to encode frame", "event", event, "error", err)
		return
	}

	var slow []*Client
	h.mu.RLock()
	for _, id := range connIDs {
		client, ok := h.clients[id]
		if !ok {
			continue
		}
		if !client.enqueue(data) {
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	h.drop(slow)
}

// EmitAllExcept delivers event to every registered connection but except.
func (h *Hub) EmitAllExcept(except string, event string, payload any) {
	data, err := EncodeFrame(event, payload)
	if err != nil {
		h.logger.Error("Failed to encode frame", "event", event, "error", err)
		return
	}

	var slow []*Client
	h.mu.RLock()
	for id, client := range h.clients {
		if id == except {
			continue
		}
		if !client.enqueue(data) {
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	h.drop(slow)
}

// Send queues a pre-encoded frame for a single connection.
func (h *Hub) Send(connID string, data []byte) bool {
	h.mu.RLock()
	client, ok := h.clients[connID]
	h.mu.RUnlock()
	if !ok {
		return false
	}
	if !client.enqueue(data) {
		h.drop([]*Client{client})
		return false
	}
	return true
}

// drop unregisters clients that could not keep up.
func (h *Hub) drop(clients []*Client) {
	for _, client := range clients {
		h.mu.Lock()
		if h.clients[client.ID] == client {
			delete(h.clients, client.ID)
		}
		h.mu.Unlock()

		if !client.Closed() {
			h.logger.Warn("Dropping slow client", "connID", client.ID)
		}
		client.closeQueue()
	}
}

// ClientCount returns the number of registered connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// CloseAll closes every client's queue, which makes each write pump close
// its socket. It returns the number of clients closed.
func (h *Hub) CloseAll() int {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[string]*Client)
	h.mu.Unlock()

	for _, client := range clients {
		client.closeQueue()
	}
	return len(clients)
}
