package middleware

import (
	"sync"
	"time"
)

type clientInfo struct {
	start time.Time
	count int64
}

// memoryLimiter is the fixed-window counter used when Redis is not configured.
type memoryLimiter struct {
	window  time.Duration
	clients map[string]*clientInfo
	now     func() time.Time
	mu      sync.Mutex
}

func newMemoryLimiter(window time.Duration) *memoryLimiter {
	return &memoryLimiter{
		window:  window,
		clients: make(map[string]*clientInfo),
		now:     time.Now,
	}
}

// incr counts one request for key and returns the count in the current window.
func (l *memoryLimiter) incr(key string) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if len(l.clients) > 4096 {
		for k, ci := range l.clients {
			if now.Sub(ci.start) > l.window {
				delete(l.clients, k)
			}
		}
	}

	ci, ok := l.clients[key]
	if !ok || now.Sub(ci.start) > l.window {
		l.clients[key] = &clientInfo{start: now, count: 1}
		return 1
	}
	ci.count++
	return ci.count
}
