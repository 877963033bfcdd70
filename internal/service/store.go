package service

import (
	"context"
	"sort"
	"sync"

	"confidential_casino/internal/domain"
	"confidential_casino/internal/solana"
)

// SessionStore persists wager sessions so open ones survive a restart.
type SessionStore interface {
	Save(ctx context.Context, s domain.WagerSession) error
	Get(ctx context.Context, id solana.PublicKey) (*domain.WagerSession, error)
	List(ctx context.Context, player solana.PublicKey, limit int) ([]domain.WagerSession, error)
	ListOpen(ctx context.Context, player solana.PublicKey) ([]domain.WagerSession, error)
}

// MemoryStore is the SessionStore used when no database is configured.
type MemoryStore struct {
	sessions map[solana.PublicKey]domain.WagerSession
	mu       sync.RWMutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[solana.PublicKey]domain.WagerSession)}
}

func (m *MemoryStore) Save(_ context.Context, s domain.WagerSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ResultHandles = append([]*domain.Handle(nil), s.ResultHandles...)
	m.sessions[s.ID] = s
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id solana.PublicKey) (*domain.WagerSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return &s, nil
}

func (m *MemoryStore) List(_ context.Context, player solana.PublicKey, limit int) ([]domain.WagerSession, error) {
	return m.filter(player, limit, func(*domain.WagerSession) bool { return true }), nil
}

func (m *MemoryStore) ListOpen(_ context.Context, player solana.PublicKey) ([]domain.WagerSession, error) {
	return m.filter(player, 0, (*domain.WagerSession).Open), nil
}

// filter returns the player's sessions newest first.
func (m *MemoryStore) filter(player solana.PublicKey, limit int, keep func(*domain.WagerSession) bool) []domain.WagerSession {
	m.mu.RLock()
	var out []domain.WagerSession
	for _, s := range m.sessions {
		if s.Player == player && keep(&s) {
			out = append(out, s)
		}
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
