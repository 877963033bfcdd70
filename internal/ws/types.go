package ws

import "confidential_casino/internal/game"

const (
	// client - server
	MsgPing = "ping"

	// server - client
	MsgReady = "ready"
	MsgPong  = "pong"
	MsgError = "error"
)

// Message is one frame on the wire. Session events reuse their own type names.
type Message struct {
	Type    string     `json:"type"`
	Session *game.View `json:"session,omitempty"`
	Error   string     `json:"error,omitempty"`
}
