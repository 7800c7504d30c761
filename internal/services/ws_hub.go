package services

import (
	"encoding/json"
	"sync"
	"time"

	"vape-market-backend/internal/models"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	wsSendBuffer   = 32
	wsWriteTimeout = 10 * time.Second
)

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type      string           `json:"type"`
	ListingID string           `json:"listing_id,omitempty"`
	Counters  *models.Counters `json:"counters,omitempty"`
	Listing   *models.Listing  `json:"listing,omitempty"`
	Message   string           `json:"message,omitempty"`
}

// WSClient is one connected Mini App
type WSClient struct {
	key  string
	conn *websocket.Conn
	send chan []byte
}

// WSHub fans feed updates out to every connected client
type WSHub struct {
	mu      sync.RWMutex
	clients map[*WSClient]struct{}
}

// NewWSHub creates a new WebSocket hub
func NewWSHub() *WSHub {
	return &WSHub{
		clients: make(map[*WSClient]struct{}),
	}
}

// Register adds a connection and starts its writer
func (h *WSHub) Register(key string, conn *websocket.Conn) *WSClient {
	c := &WSClient{
		key:  key,
		conn: conn,
		send: make(chan []byte, wsSendBuffer),
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	go c.writePump()

	log.Info().Str("account", key).Msg("WebSocket connection registered")
	return c
}

// Unregister removes a connection; its writer closes the socket
func (h *WSHub) Unregister(c *WSClient) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()

	if ok {
		close(c.send)
		log.Info().Str("account", c.key).Msg("WebSocket connection unregistered")
	}
}

// Count returns the number of connected clients
func (h *WSHub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast queues a message for every client. Clients whose buffer is full are dropped.
func (h *WSHub) Broadcast(message WSMessage) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Error().Err(err).Str("type", message.Type).Msg("Failed to marshal message")
		return
	}

	var slow []*WSClient
	h.mu.RLock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		log.Warn().Str("account", c.key).Msg("Dropping slow WebSocket client")
		h.Unregister(c)
	}
}

// NotifyCounters tells clients a listing's vote counters changed
func (h *WSHub) NotifyCounters(outcome *models.VoteOutcome) {
	counters := outcome.Counters
	h.Broadcast(WSMessage{
		Type:      "counters",
		ListingID: outcome.ListingID,
		Counters:  &counters,
	})
}

// NotifyListingCreated tells clients a new listing is live
func (h *WSHub) NotifyListingCreated(listing *models.Listing) {
	h.Broadcast(WSMessage{
		Type:      "listing_created",
		ListingID: listing.ID,
		Listing:   listing,
	})
}

// Close disconnects every client
func (h *WSHub) Close() {
	h.mu.RLock()
	all := make([]*WSClient, 0, len(h.clients))
	for c := range h.clients {
		all = append(all, c)
	}
	h.mu.RUnlock()

	for _, c := range all {
		h.Unregister(c)
	}
}

// writePump is the only writer of the connection
func (c *WSClient) writePump() {
	defer c.conn.Close()

	for data := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Error().Err(err).Str("account", c.key).Msg("Failed to send message")
			// drain until Unregister closes the channel
			for range c.send {
			}
			return
		}
	}

	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
}

// Send queues a message for one registered client
func (h *WSHub) Send(c *WSClient, message WSMessage) bool {
	data, err := json.Marshal(message)
	if err != nil {
		log.Error().Err(err).Str("type", message.Type).Msg("Failed to marshal message")
		return false
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[c]; !ok {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}
