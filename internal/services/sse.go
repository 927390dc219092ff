package services

import (
	"sync"

	"github.com/siteflow/siteflow/internal/models"
)

type sseClient struct {
	orgID string
	ch    chan models.Activity
}

// SSEHub fans workflow activity out to connected clients of the same organization
type SSEHub struct {
	clients map[string]*sseClient
	mu      sync.RWMutex
}

func NewSSEHub() *SSEHub {
	return &SSEHub{
		clients: make(map[string]*sseClient),
	}
}

// Subscribe registers a client of orgID and returns its event channel
func (h *SSEHub) Subscribe(clientID, orgID string) <-chan models.Activity {
	h.mu.Lock()
	defer h.mu.Unlock()

	// Buffered so a slow reader never blocks Publish
	ch := make(chan models.Activity, 100)
	h.clients[clientID] = &sseClient{orgID: orgID, ch: ch}
	return ch
}

// Unsubscribe removes a client from the hub
func (h *SSEHub) Unsubscribe(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c, ok := h.clients[clientID]; ok {
		close(c.ch)
		delete(h.clients, clientID)
	}
}

// Publish delivers an activity to every client in the activity's organization
func (h *SSEHub) Publish(activity models.Activity) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.clients {
		if c.orgID != activity.OrgID {
			continue
		}
		select {
		case c.ch <- activity:
		default:
			// Client is slow, skip this event
		}
	}
}

// ClientCount returns the number of connected clients
func (h *SSEHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
