package service

import (
	"confidential_casino/internal/game"
	"confidential_casino/internal/solana"
)

// Session event types
const (
	EventSubmitted = "wager_submitted"
	EventRevealed  = "wager_revealed"
	EventClaimed   = "wager_claimed"
	EventFailed    = "wager_failed"
	EventAbandoned = "wager_abandoned"
)

// SessionEvent is pushed to the player on every transition.
type SessionEvent struct {
	Type    string    `json:"type"`
	Session game.View `json:"session"`
}

// Notifier delivers session events. Notify must not block.
type Notifier interface {
	Notify(player solana.PublicKey, event SessionEvent)
}

type nopNotifier struct{}

func (nopNotifier) Notify(solana.PublicKey, SessionEvent) {}
