package realtime

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"taskboard/internal/metrics"
)

// Client represents a single websocket client connection.
// The actual network conn is managed in the ws handler.
type Client interface {
	Send(message []byte) bool
	Close()
}

// subscription is what a client asked to watch.
type subscription struct {
	table  string
	filter Filter
}

// Hub maintains active user connections and pushes change events to the
// subscriptions that match them. A user only ever receives events for rows
// they own.
type Hub struct {
	mu              sync.RWMutex
	userIDToClients map[string]map[Client]subscription
	log             *zap.Logger
}

var hubInstance *Hub
var once sync.Once

// GetHub returns a singleton hub instance.
func GetHub() *Hub {
	once.Do(func() {
		hubInstance = NewHub(zap.L())
	})
	return hubInstance
}

// NewHub creates a standalone hub.
func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		userIDToClients: make(map[string]map[Client]subscription),
		log:             log,
	}
}

// Register adds a client watching table (optionally filtered) under a user ID.
func (h *Hub) Register(userID string, client Client, table string, filter Filter) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.userIDToClients[userID]; !ok {
		h.userIDToClients[userID] = make(map[Client]subscription)
	}
	if _, exists := h.userIDToClients[userID][client]; !exists {
		metrics.RealtimeSubscribers.WithLabelValues(table).Inc()
	}
	h.userIDToClients[userID][client] = subscription{table: table, filter: filter}
}

// Unregister removes a client; if user has no more clients, cleans up map.
func (h *Hub) Unregister(userID string, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients, ok := h.userIDToClients[userID]
	if !ok {
		return
	}
	if sub, ok := clients[client]; ok {
		metrics.RealtimeSubscribers.WithLabelValues(sub.table).Dec()
		delete(clients, client)
	}
	if len(clients) == 0 {
		delete(h.userIDToClients, userID)
	}
}

// Publish sends the event to every subscription of its owner that watches the
// event's table and whose filter matches. It returns the number of clients
// the event was delivered to.
func (h *Hub) Publish(evt ChangeEvent) int {
	message, err := json.Marshal(evt)
	if err != nil {
		h.log.Error("failed to encode change event", zap.String("table", evt.Table), zap.Error(err))
		return 0
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	delivered := 0
	for c, sub := range h.userIDToClients[evt.Owner] {
		if sub.table != evt.Table || !sub.filter.Matches(evt) {
			continue
		}
		if c.Send(message) {
			delivered++
		}
		// a failed write is cleaned up by the handler's reader loop
	}
	metrics.RealtimeEvents.WithLabelValues(evt.Table, string(evt.Type)).Inc()
	return delivered
}

// Count returns the number of registered clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, clients := range h.userIDToClients {
		n += len(clients)
	}
	return n
}
