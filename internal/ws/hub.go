package ws

import (
	"encoding/json"
	"sync"

	"confidential_casino/internal/logger"
	"confidential_casino/internal/service"
	"confidential_casino/internal/solana"
)

// Hub fans session events out to every open connection of a player.
type Hub struct {
	clients map[solana.PublicKey]map[*Client]struct{}
	mu      sync.RWMutex
	closed  bool
}

func NewHub() *Hub {
	return &Hub{clients: make(map[solana.PublicKey]map[*Client]struct{})}
}

func (h *Hub) Register(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	set, ok := h.clients[c.Player]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.Player] = set
	}
	set[c] = struct{}{}
	logger.Debug("ws client registered", "player", c.Player.String(), "connections", len(set))
	return true
}

func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.Player]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	close(c.Send)
	if len(set) == 0 {
		delete(h.clients, c.Player)
	}
	logger.Debug("ws client unregistered", "player", c.Player.String())
}

// Notify implements service.Notifier. Slow clients lose the frame instead of blocking the wager flow.
func (h *Hub) Notify(player solana.PublicKey, ev service.SessionEvent) {
	msg, err := json.Marshal(Message{Type: ev.Type, Session: &ev.Session})
	if err != nil {
		logger.Error("ws marshal event", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients[player] {
		select {
		case c.Send <- msg:
		default:
			logger.Warn("ws send buffer full, dropping event", "player", player.String(), "type", ev.Type)
		}
	}
}

// Connections returns the number of open connections of player.
func (h *Hub) Connections(player solana.PublicKey) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[player])
}

// Close disconnects everyone and refuses new registrations.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for player, set := range h.clients {
		for c := range set {
			close(c.Send)
		}
		delete(h.clients, player)
	}
}
