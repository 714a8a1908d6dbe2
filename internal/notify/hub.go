package notify

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/sofemci/predictive/internal/services"
)

const broadcastBuffer = 64

// Message is the envelope written to websocket clients
type Message struct {
	Type    string              `json:"type"`
	Payload services.AlertEvent `json:"payload"`
}

// Hub maintains the set of live alert-feed clients and broadcasts alert events
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
}

// NewHub creates a new hub; call Run to start delivering
func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan []byte, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[*Client]bool),
	}
}

// Run delivers registrations and broadcasts until stop is closed
func (h *Hub) Run(stop <-chan struct{}) {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			log.Printf("Alert feed client registered: %s", client.addr())

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
				log.Printf("Alert feed client unregistered: %s", client.addr())
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.Send <- message:
				default:
					log.Printf("Alert feed client %s is not keeping up, removing", client.addr())
					close(client.Send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()

		case <-stop:
			close(h.done)
			h.mu.Lock()
			for client := range h.clients {
				close(client.Send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return
		}
	}
}

// Register adds a client to the hub. It is a no-op once the hub stopped.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client.Send)
	}
}

func (h *Hub) leave(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// NotifyAlert broadcasts the event to every client. It never blocks the
// caller: when the hub is saturated the event is dropped.
func (h *Hub) NotifyAlert(_ context.Context, event services.AlertEvent) {
	data, err := json.Marshal(Message{Type: "alert", Payload: event})
	if err != nil {
		log.Printf("Error marshalling alert event for broadcast: %v", err)
		return
	}
	select {
	case h.broadcast <- data:
	default:
		log.Printf("Alert feed backlog full, dropping %s event for alert %s", event.Kind, event.Alert.UUID)
	}
}
