package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/flashdeck-backend/internal/domain"
)

// Message types
const (
	MessageTypeLeaderboardUpdate = "leaderboard_update"
	MessageTypeSubscribe         = "subscribe"
	MessageTypeUnsubscribe       = "unsubscribe"
	MessageTypePing              = "ping"
	MessageTypePong              = "pong"
	MessageTypeError             = "error"
)

// Message represents a WebSocket message
type Message struct {
	Type      string      `json:"type"`
	DeckID    string      `json:"deck_id,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// LeaderboardUpdate contains re-ranked leaderboard data for broadcast
type LeaderboardUpdate struct {
	DeckID     string                    `json:"deck_id"`
	Entries    []domain.LeaderboardEntry `json:"entries"`
	TotalUsers int                       `json:"total_users"`
}

// Hub maintains the set of active clients and broadcasts leaderboard
// updates to clients subscribed per deck
type Hub struct {
	clients     map[string]map[*Client]bool
	allClients  map[*Client]bool
	register    chan *Client
	unregister  chan *Client
	broadcast   chan *Message
	subscribe   chan *subscriptionRequest
	unsubscribe chan *subscriptionRequest
	mu          sync.RWMutex
	logger      *slog.Logger
	ctx         context.Context
	cancel      context.CancelFunc
}

type subscriptionRequest struct {
	client *Client
	deckID string
}

// NewHub creates a new Hub
func NewHub(logger *slog.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:     make(map[string]map[*Client]bool),
		allClients:  make(map[*Client]bool),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		broadcast:   make(chan *Message, 256),
		subscribe:   make(chan *subscriptionRequest, 64),
		unsubscribe: make(chan *subscriptionRequest, 64),
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	h.logger.Info("WebSocket hub started")
	for {
		select {
		case <-h.ctx.Done():
			h.logger.Info("WebSocket hub stopping")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.allClients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.allClients[client]; ok {
				delete(h.allClients, client)
				for deckID, clients := range h.clients {
					if _, ok := clients[client]; ok {
						delete(clients, client)
						if len(clients) == 0 {
							delete(h.clients, deckID)
						}
					}
				}
				close(client.send)
			}
			h.mu.Unlock()

		case req := <-h.subscribe:
			h.mu.Lock()
			if _, ok := h.clients[req.deckID]; !ok {
				h.clients[req.deckID] = make(map[*Client]bool)
			}
			h.clients[req.deckID][req.client] = true
			h.mu.Unlock()
			h.logger.Debug("client subscribed", "client_id", req.client.id, "deck_id", req.deckID)

		case req := <-h.unsubscribe:
			h.mu.Lock()
			if clients, ok := h.clients[req.deckID]; ok {
				delete(clients, req.client)
				if len(clients) == 0 {
					delete(h.clients, req.deckID)
				}
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.broadcastMessage(message)
		}
	}
}

// Stop stops the hub
func (h *Hub) Stop() {
	h.cancel()
}

// broadcastMessage sends a message to the clients subscribed to its deck,
// or to everyone when the message carries no deck id
func (h *Hub) broadcastMessage(message *Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("failed to marshal message", "error", err)
		return
	}

	targets := h.allClients
	if message.DeckID != "" {
		targets = h.clients[message.DeckID]
	}
	for client := range targets {
		select {
		case client.send <- data:
		default:
			// Client's buffer is full, skip
			h.logger.Warn("client buffer full, skipping", "client_id", client.id)
		}
	}
}

// BroadcastLeaderboardUpdate pushes a re-ranked leaderboard to every
// client watching the deck
func (h *Hub) BroadcastLeaderboardUpdate(deckID string, entries []domain.LeaderboardEntry) {
	message := &Message{
		Type:   MessageTypeLeaderboardUpdate,
		DeckID: deckID,
		Data: LeaderboardUpdate{
			DeckID:     deckID,
			Entries:    entries,
			TotalUsers: len(entries),
		},
		Timestamp: time.Now(),
	}

	select {
	case h.broadcast <- message:
	default:
		h.logger.Warn("broadcast channel full, dropping message")
	}
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Subscribe adds a client to a deck subscription
func (h *Hub) Subscribe(client *Client, deckID string) {
	h.subscribe <- &subscriptionRequest{client: client, deckID: deckID}
}

// Unsubscribe removes a client from a deck subscription
func (h *Hub) Unsubscribe(client *Client, deckID string) {
	h.unsubscribe <- &subscriptionRequest{client: client, deckID: deckID}
}

// GetSubscriberCount returns the number of subscribers for a deck
func (h *Hub) GetSubscriberCount(deckID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[deckID])
}

// GetTotalConnections returns the total number of connected clients
func (h *Hub) GetTotalConnections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.allClients)
}
