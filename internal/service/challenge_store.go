package service

import (
	"context"
	"errors"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// ChallengeStore keeps short-lived server challenges (auth nonces, prepared
// reveal requests). Take is single use.
type ChallengeStore interface {
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Take(ctx context.Context, key string) ([]byte, error)
}

// RedisChallengeStore shares challenges between instances.
type RedisChallengeStore struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisChallengeStore(rdb *redis.Client) *RedisChallengeStore {
	return &RedisChallengeStore{rdb: rdb, prefix: "challenge:"}
}

func (s *RedisChallengeStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.rdb.Set(ctx, s.prefix+key, value, ttl).Err()
}

func (s *RedisChallengeStore) Take(ctx context.Context, key string) ([]byte, error) {
	val, err := s.rdb.GetDel(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrChallengeNotFound
	}
	return val, err
}

type memoryChallenge struct {
	value   []byte
	expires time.Time
}

// MemoryChallengeStore is the single-process fallback.
type MemoryChallengeStore struct {
	items map[string]memoryChallenge
	mu    sync.Mutex
	now   func() time.Time
}

func NewMemoryChallengeStore() *MemoryChallengeStore {
	return &MemoryChallengeStore{items: make(map[string]memoryChallenge), now: time.Now}
}

func (s *MemoryChallengeStore) Put(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	// drop expired entries while we hold the lock
	for k, v := range s.items {
		if now.After(v.expires) {
			delete(s.items, k)
		}
	}
	s.items[key] = memoryChallenge{value: append([]byte(nil), value...), expires: now.Add(ttl)}
	return nil
}

func (s *MemoryChallengeStore) Take(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[key]
	if !ok {
		return nil, ErrChallengeNotFound
	}
	delete(s.items, key)
	if s.now().After(item.expires) {
		return nil, ErrChallengeNotFound
	}
	return item.value, nil
}
