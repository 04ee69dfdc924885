package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/tetris-scores/internal/domain"
)

// Message types
const (
	MessageTypeScoreAccepted = "score_accepted"
	MessageTypeSubscribe     = "subscribe"
	MessageTypeUnsubscribe   = "unsubscribe"
	MessageTypePing          = "ping"
	MessageTypePong          = "pong"
	MessageTypeError         = "error"
)

// Message represents a WebSocket message
type Message struct {
	Type      string      `json:"type"`
	Player    string      `json:"player,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// ScoreAccepted is the broadcast payload for a freshly persisted score.
type ScoreAccepted struct {
	Score     domain.ScoreRecord       `json:"score"`
	TopScores []domain.LeaderboardEntry `json:"topScores,omitempty"`
}

// Hub maintains the set of active clients and broadcasts accepted scores.
// Clients optionally subscribe to a player name to watch a single player;
// score broadcasts also go to every connected client.
type Hub struct {
	// Clients subscribed per player name
	watchers map[string]map[*Client]bool

	// All connected clients
	allClients map[*Client]bool

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Outbound broadcasts
	broadcast chan *Message

	// Subscription requests
	subscribe chan *subscriptionRequest

	// Unsubscription requests
	unsubscribe chan *subscriptionRequest

	mu sync.RWMutex

	logger *slog.Logger

	// Context for shutdown
	ctx    context.Context
	cancel context.CancelFunc
}

type subscriptionRequest struct {
	client *Client
	player string
}

// NewHub creates a new Hub
func NewHub(logger *slog.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		watchers:    make(map[string]map[*Client]bool),
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
			h.logger.Debug("client registered", "client_id", client.id)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.allClients[client]; ok {
				delete(h.allClients, client)
				// Remove from all player subscriptions
				for player, clients := range h.watchers {
					if _, ok := clients[client]; ok {
						delete(clients, client)
						if len(clients) == 0 {
							delete(h.watchers, player)
						}
					}
				}
				close(client.send)
			}
			h.mu.Unlock()
			h.logger.Debug("client unregistered", "client_id", client.id)

		case req := <-h.subscribe:
			h.mu.Lock()
			if _, ok := h.watchers[req.player]; !ok {
				h.watchers[req.player] = make(map[*Client]bool)
			}
			h.watchers[req.player][req.client] = true
			req.client.subs[req.player] = true
			h.mu.Unlock()
			h.logger.Debug("client subscribed", "client_id", req.client.id, "player", req.player)

		case req := <-h.unsubscribe:
			h.mu.Lock()
			if clients, ok := h.watchers[req.player]; ok {
				delete(clients, req.client)
				if len(clients) == 0 {
					delete(h.watchers, req.player)
				}
			}
			delete(req.client.subs, req.player)
			h.mu.Unlock()
			h.logger.Debug("client unsubscribed", "client_id", req.client.id, "player", req.player)

		case message := <-h.broadcast:
			h.broadcastMessage(message)
		}
	}
}

// Stop stops the hub
func (h *Hub) Stop() {
	h.cancel()
}

// broadcastMessage delivers a message to connected clients. Clients with no
// subscriptions receive everything; clients watching specific players only
// receive messages tagged with one of their players.
func (h *Hub) broadcastMessage(message *Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("failed to marshal message", "error", err)
		return
	}

	for client := range h.allClients {
		if message.Player != "" && len(client.subs) > 0 && !client.subs[message.Player] {
			continue
		}
		select {
		case client.send <- data:
		default:
			// Client's buffer is full, skip
			h.logger.Warn("client buffer full, skipping", "client_id", client.id)
		}
	}
}

// BroadcastScoreAccepted notifies clients of a freshly persisted score along
// with the refreshed top of the board.
func (h *Hub) BroadcastScoreAccepted(rec domain.ScoreRecord, top []domain.LeaderboardEntry) {
	message := &Message{
		Type:   MessageTypeScoreAccepted,
		Player: rec.Name,
		Data: ScoreAccepted{
			Score:     rec,
			TopScores: top,
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

// Subscribe adds a client to a player's watcher set
func (h *Hub) Subscribe(client *Client, player string) {
	h.subscribe <- &subscriptionRequest{
		client: client,
		player: player,
	}
}

// Unsubscribe removes a client from a player's watcher set
func (h *Hub) Unsubscribe(client *Client, player string) {
	h.unsubscribe <- &subscriptionRequest{
		client: client,
		player: player,
	}
}

// GetWatcherCount returns the number of clients watching a player
func (h *Hub) GetWatcherCount(player string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if clients, ok := h.watchers[player]; ok {
		return len(clients)
	}
	return 0
}

// GetTotalConnections returns the total number of connected clients
func (h *Hub) GetTotalConnections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.allClients)
}
