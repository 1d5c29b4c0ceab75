package http

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/tazhibayda/greetings-service/internal/repo"
)

// Limiter decides whether the client identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// IPRateLimiter keeps one token bucket per client in process memory.
type IPRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	lastSeen map[string]time.Time
	rate     rate.Limit
	burst    int
	ttl      time.Duration
}

func NewIPRateLimiter(requests int, window time.Duration) *IPRateLimiter {
	return &IPRateLimiter{
		limiters: make(map[string]*rate.Limiter),
		lastSeen: make(map[string]time.Time),
		rate:     rate.Every(window / time.Duration(requests)),
		burst:    requests,
		ttl:      10 * window,
	}
}

func (l *IPRateLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.limiters[key]
	if !ok {
		b = rate.NewLimiter(l.rate, l.burst)
		l.limiters[key] = b
	}
	l.lastSeen[key] = time.Now()
	return b.Allow(), nil
}

// Cleanup drops idle buckets every interval until ctx is done.
func (l *IPRateLimiter) Cleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.prune(time.Now())
		}
	}
}

func (l *IPRateLimiter) prune(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for k, seen := range l.lastSeen {
		if now.Sub(seen) > l.ttl {
			delete(l.limiters, k)
			delete(l.lastSeen, k)
		}
	}
}

// RedisLimiter is a fixed-window counter shared by all replicas.
type RedisLimiter struct {
	R      *repo.Redis
	Limit  int64
	Window time.Duration
	Prefix string
}

func NewRedisLimiter(r *repo.Redis, requests int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{R: r, Limit: int64(requests), Window: window, Prefix: "greetings:rl:"}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	n, err := l.R.Hit(ctx, l.Prefix+key, l.Window)
	if err != nil {
		return false, err
	}
	return n <= l.Limit, nil
}
