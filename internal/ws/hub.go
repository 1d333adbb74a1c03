// Package ws fans persisted chat messages out to connected websocket
// clients.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/Vasu1712/lounge-backend/internal/metrics"
	"github.com/Vasu1712/lounge-backend/internal/models"
	"github.com/Vasu1712/lounge-backend/internal/realtime"
	"github.com/gorilla/websocket"
)

// sendBuffer must leave room for the ready frame pushed on register.
const sendBuffer = 256

type Client struct {
	ID     string
	UserID string
	Send   chan []byte
	Conn   *websocket.Conn
}

// Hub owns the set of registered clients. Only Run mutates it.
type Hub struct {
	Clients    map[*Client]bool
	Register   chan *Client
	Unregister chan *Client

	broker realtime.Broker
	log    *slog.Logger
	done   chan struct{}
	mu     sync.RWMutex
}

func NewHub(broker realtime.Broker, log *slog.Logger) *Hub {
	return &Hub{
		Clients:    make(map[*Client]bool),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		broker:     broker,
		log:        log,
		done:       make(chan struct{}),
	}
}

var readyFrame = mustMarshal(models.Event{Type: models.EventReady})

// Run subscribes to the broker and serves register, unregister and delivery
// until ctx is done. Every client is closed on return.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)
	defer h.closeAll()

	events, err := h.broker.Subscribe(ctx)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case client := <-h.Register:
			h.mu.Lock()
			h.Clients[client] = true
			h.mu.Unlock()
			// Subscribed before this point, so anything persisted after the
			// client sees ready reaches it.
			client.Send <- readyFrame
			metrics.ConnectedSockets.Inc()
		case client := <-h.Unregister:
			h.remove(client)
		case msg, ok := <-events:
			if !ok {
				return errors.New("realtime subscription closed")
			}
			h.deliver(msg)
		}
	}
}

func (h *Hub) deliver(msg models.Message) {
	frame, err := json.Marshal(models.Event{Type: models.EventMessage, Message: &msg})
	if err != nil {
		h.log.Error("encode realtime frame", "id", msg.ID, "err", err)
		return
	}
	h.mu.RLock()
	var slow []*Client
	for client := range h.Clients {
		if !msg.Involves(client.UserID) {
			continue
		}
		select {
		case client.Send <- frame:
			metrics.RealtimeFrames.WithLabelValues("delivered").Inc()
		default:
			metrics.RealtimeFrames.WithLabelValues("dropped").Inc()
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	// A client that cannot keep up is disconnected and resyncs from history.
	for _, client := range slow {
		h.log.Warn("dropping slow realtime client", "client", client.ID, "user", client.UserID)
		h.remove(client)
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.Clients[client]; ok {
		delete(h.Clients, client)
		close(client.Send)
		metrics.ConnectedSockets.Dec()
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.Clients {
		delete(h.Clients, client)
		close(client.Send)
		metrics.ConnectedSockets.Dec()
	}
}

// Count returns the number of registered clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.Clients)
}

func (h *Hub) register(c *Client) bool {
	select {
	case h.Register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) unregister(c *Client) {
	select {
	case h.Unregister <- c:
	case <-h.done:
	}
}

func mustMarshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
