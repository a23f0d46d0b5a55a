package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event types pushed to live readers.
const (
	EventPostCreated  = "post_created"
	EventPostLiked    = "post_liked"
	EventPostUnliked  = "post_unliked"
	EventCommentAdded = "comment_added"
)

// Event is one activity notification.
type Event struct {
	Type       string    `json:"type"`
	PostID     uuid.UUID `json:"postId"`
	UserID     uuid.UUID `json:"userId"`
	TotalLikes *int      `json:"totalLikes,omitempty"`
	At         time.Time `json:"at"`
}

// Publisher is what the post actor needs from the hub.
type Publisher interface {
	Publish(event Event)
}

// Hub maintains the set of active clients and broadcasts messages.
type Hub struct {
	// Registered clients. Maps user ID to a set of active client connections.
	Clients map[uuid.UUID]map[*Client]bool

	// Encoded events waiting to go out to every client.
	Broadcast chan []byte

	// Register requests from the clients.
	Register chan *Client

	// Unregister requests from clients.
	Unregister chan *Client

	done   chan struct{}
	logger *slog.Logger

	// Mutex to protect concurrent access to the clients map.
	mu sync.RWMutex
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		Broadcast:  make(chan []byte, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Clients:    make(map[uuid.UUID]map[*Client]bool),
		done:       make(chan struct{}),
		logger:     logger.With("component", "live_hub"),
	}
}

// Run starts the hub's processing loop. It returns when ctx is cancelled,
// closing every client's send channel on the way out.
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info("websocket hub started")
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for userID, userClients := range h.Clients {
				for client := range userClients {
					close(client.Send)
				}
				delete(h.Clients, userID)
			}
			h.mu.Unlock()
			h.logger.Info("websocket hub stopped")
			return

		case client := <-h.Register:
			h.mu.Lock()
			if _, ok := h.Clients[client.UserID]; !ok {
				h.Clients[client.UserID] = make(map[*Client]bool)
			}
			h.Clients[client.UserID][client] = true
			h.logger.Debug("client registered", "user_id", client.UserID, "connections", len(h.Clients[client.UserID]))
			h.mu.Unlock()

		case client := <-h.Unregister:
			h.mu.Lock()
			if userClients, ok := h.Clients[client.UserID]; ok {
				if _, clientOk := userClients[client]; clientOk {
					delete(userClients, client)
					close(client.Send)
					if len(userClients) == 0 {
						delete(h.Clients, client.UserID)
					}
					h.logger.Debug("client unregistered", "user_id", client.UserID, "remaining", len(userClients))
				}
			}
			h.mu.Unlock()

		case message := <-h.Broadcast:
			h.mu.RLock()
			for _, userClients := range h.Clients {
				for client := range userClients {
					select {
					case client.Send <- message:
					default:
						h.logger.Warn("send buffer full, dropping event", "user_id", client.UserID)
					}
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Publish encodes the event and queues it for broadcast. It never blocks the
// caller; events are dropped when the queue is full.
func (h *Hub) Publish(event Event) {
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("failed to encode event", "type", event.Type, "error", err)
		return
	}
	select {
	case h.Broadcast <- payload:
	default:
		h.logger.Warn("broadcast queue full, dropping event", "type", event.Type, "post_id", event.PostID)
	}
}

// Connections counts live client connections.
func (h *Hub) Connections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, userClients := range h.Clients {
		n += len(userClients)
	}
	return n
}

// register hands a client to the loop unless the hub has stopped.
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
