package service

import (
	"context"

	"confidential_casino/internal/domain"
	"confidential_casino/internal/logger"
)

// AuditRepo stores audit entries. The pgx repository implements it.
type AuditRepo interface {
	Create(ctx context.Context, log *domain.AuditLog) error
	GetByPlayer(ctx context.Context, player string, limit int) ([]*domain.AuditLog, error)
	GetBySession(ctx context.Context, sessionID string) ([]*domain.AuditLog, error)
}

// AuditService handles audit logging. Without a repository entries only go to the log.
type AuditService struct {
	repo AuditRepo
}

// NewAuditService creates a new audit service
func NewAuditService(repo AuditRepo) *AuditService {
	return &AuditService{repo: repo}
}

// Log creates a new audit log entry
func (s *AuditService) Log(ctx context.Context, entry *domain.AuditLog) {
	if s == nil {
		return
	}
	logger.WithContext(ctx).Info("audit", "action", entry.Action, "player", entry.Player, "session", entry.SessionID)
	if s.repo == nil {
		return
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		logger.Error("failed to create audit log", "error", err, "action", entry.Action, "player", entry.Player)
	}
}

// LogWager logs one wager lifecycle action
func (s *AuditService) LogWager(ctx context.Context, player, sessionID, action string, details map[string]interface{}) {
	s.Log(ctx, &domain.AuditLog{
		Player:    player,
		SessionID: sessionID,
		Action:    action,
		Category:  domain.AuditCategoryWager,
		Details:   details,
	})
}

// LogLogin logs a wallet login
func (s *AuditService) LogLogin(ctx context.Context, player, ip, userAgent string) {
	s.Log(ctx, &domain.AuditLog{
		Player:    player,
		Action:    domain.AuditActionLogin,
		Category:  domain.AuditCategoryAuth,
		IP:        ip,
		UserAgent: userAgent,
	})
}

// GetPlayerAuditLogs returns audit logs for a player
func (s *AuditService) GetPlayerAuditLogs(ctx context.Context, player string, limit int) ([]*domain.AuditLog, error) {
	if s == nil || s.repo == nil {
		return nil, nil
	}
	return s.repo.GetByPlayer(ctx, player, limit)
}

// GetSessionAuditLogs returns the recorded lifecycle of one wager
func (s *AuditService) GetSessionAuditLogs(ctx context.Context, sessionID string) ([]*domain.AuditLog, error) {
	if s == nil || s.repo == nil {
		return nil, nil
	}
	return s.repo.GetBySession(ctx, sessionID)
}
