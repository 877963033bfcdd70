package domain

import "time"

// AuditLog represents an audit log entry for tracking wager lifecycle actions
type AuditLog struct {
	ID        int64                  `db:"id" json:"id"`
	Player    string                 `db:"player" json:"player"`
	SessionID string                 `db:"session_id" json:"session_id,omitempty"`
	Action    string                 `db:"action" json:"action"`
	Category  string                 `db:"category" json:"category"`
	Details   map[string]interface{} `db:"details" json:"details"`
	IP        string                 `db:"ip" json:"ip,omitempty"`
	UserAgent string                 `db:"user_agent" json:"user_agent,omitempty"`
	CreatedAt time.Time              `db:"created_at" json:"created_at"`
}

// Audit action categories
const (
	AuditCategoryAuth  = "auth"
	AuditCategoryWager = "wager"
)

// Audit actions
const (
	// Auth actions
	AuditActionLogin = "login"

	// Wager actions
	AuditActionSubmit  = "wager_submit"
	AuditActionReveal  = "wager_reveal"
	AuditActionClaim   = "wager_claim"
	AuditActionFail    = "wager_fail"
	AuditActionAbandon = "wager_abandon"
)
