package repository

import (
	"context"
	"encoding/json"

	"confidential_casino/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditRepository handles audit log database operations
type AuditRepository struct {
	db *pgxpool.Pool
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{db: db}
}

// Create inserts a new audit log entry
func (r *AuditRepository) Create(ctx context.Context, log *domain.AuditLog) error {
	detailsJSON, err := json.Marshal(log.Details)
	if err != nil {
		detailsJSON = []byte("{}")
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO audit_logs (player, session_id, action, category, details, ip, user_agent)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7)
	`, log.Player, log.SessionID, log.Action, log.Category, detailsJSON, log.IP, log.UserAgent)
	return err
}

// GetByPlayer returns the newest audit logs of one wallet
func (r *AuditRepository) GetByPlayer(ctx context.Context, player string, limit int) ([]*domain.AuditLog, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, player, COALESCE(session_id, ''), action, category, details, ip, user_agent, created_at
		FROM audit_logs
		WHERE player = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, player, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanAuditLogs(rows)
}

// GetBySession returns the lifecycle of one wager, oldest first
func (r *AuditRepository) GetBySession(ctx context.Context, sessionID string) ([]*domain.AuditLog, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, player, COALESCE(session_id, ''), action, category, details, ip, user_agent, created_at
		FROM audit_logs
		WHERE session_id = $1
		ORDER BY created_at ASC
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanAuditLogs(rows)
}

func scanAuditLogs(rows pgx.Rows) ([]*domain.AuditLog, error) {
	var logs []*domain.AuditLog
	for rows.Next() {
		var log domain.AuditLog
		var detailsJSON []byte
		if err := rows.Scan(&log.ID, &log.Player, &log.SessionID, &log.Action, &log.Category, &detailsJSON, &log.IP, &log.UserAgent, &log.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(detailsJSON, &log.Details); err != nil {
			log.Details = make(map[string]interface{})
		}
		logs = append(logs, &log)
	}
	return logs, rows.Err()
}
