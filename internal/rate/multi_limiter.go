package rate

import (
	"context"
	"fmt"
	"sync"
	"time"

	rdb "github.com/redis/go-redis/v9"
)

// MultiLimiter permite límites distintos por endpoint sobre el mismo backend.
type MultiLimiter interface {
	AllowWithLimits(ctx context.Context, key string, limit int, window time.Duration) (Result, error)
}

// Pool cachea un Limiter por configuración limit+window.
type Pool struct {
	mu       sync.RWMutex
	limiters map[string]Limiter
	build    func(limit int, window time.Duration) Limiter
}

// NewRedisPool arma limiters fixed-window sobre redis.
func NewRedisPool(client rdb.Cmdable, prefix string) *Pool {
	return &Pool{
		limiters: make(map[string]Limiter),
		build: func(limit int, window time.Duration) Limiter {
			return NewRedisLimiter(client, prefix, limit, window)
		},
	}
}

// NewMemoryPool arma limiters en memoria.
func NewMemoryPool() *Pool {
	return &Pool{
		limiters: make(map[string]Limiter),
		build: func(limit int, window time.Duration) Limiter {
			return NewMemoryLimiter(limit, window)
		},
	}
}

// AllowWithLimits implementa MultiLimiter.
func (p *Pool) AllowWithLimits(ctx context.Context, key string, limit int, window time.Duration) (Result, error) {
	configKey := fmt.Sprintf("%d:%s", limit, window.String())

	p.mu.RLock()
	limiter, exists := p.limiters[configKey]
	p.mu.RUnlock()

	if !exists {
		p.mu.Lock()
		if limiter, exists = p.limiters[configKey]; !exists {
			limiter = p.build(limit, window)
			p.limiters[configKey] = limiter
		}
		p.mu.Unlock()
	}
	return limiter.Allow(ctx, key)
}
