package middleware

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
)

// CounterStore bounds request rate per key within a fixed window. The
// in-memory store covers single-instance deployments; the Redis store is
// shared across instances.
type CounterStore interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

// MemoryCounterStore keeps windowed counters in process memory.
type MemoryCounterStore struct {
	mu      sync.Mutex
	buckets map[string]*bucket
}

type bucket struct {
	count int64
	reset time.Time
}

// NewMemoryCounterStore creates an in-memory counter store.
func NewMemoryCounterStore() *MemoryCounterStore {
	return &MemoryCounterStore{buckets: make(map[string]*bucket)}
}

// Incr bumps the counter for key, starting a fresh window when the previous
// one has elapsed.
func (s *MemoryCounterStore) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	b, ok := s.buckets[key]
	if !ok || now.After(b.reset) {
		b = &bucket{reset: now.Add(window)}
		s.buckets[key] = b
	}
	b.count++
	return b.count, nil
}

// RedisCounterStore keeps windowed counters in Redis so multiple server
// instances share one limit.
type RedisCounterStore struct {
	Client redis.Scripter
}

// The INCR and the EXPIRE must be one atomic step: a crash between them
// would leave a counter with no TTL, throttling that key forever.
var incrWithWindow = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

// Incr bumps the counter for key; the key expires with the window.
func (s *RedisCounterStore) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	return incrWithWindow.Run(ctx, s.Client, []string{key}, window.Milliseconds()).Int64()
}

// RateLimitMiddleware limits requests per client IP over a counter store.
type RateLimitMiddleware struct {
	store CounterStore
}

// NewRateLimitMiddleware creates a new rate limiting middleware.
func NewRateLimitMiddleware(store CounterStore) *RateLimitMiddleware {
	return &RateLimitMiddleware{store: store}
}

// RateLimit applies rate limiting based on IP address. Counter store
// failures fail open: blocking all traffic because the limiter backend is
// down would be worse than briefly not limiting.
func (m *RateLimitMiddleware) RateLimit(maxRequests int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := fmt.Sprintf("ratelimit:%s", getClientIP(r))
			n, err := m.store.Incr(r.Context(), key, window)
			if err != nil {
				log.WithError(err).Warn("Rate limit counter unavailable, allowing request")
				next.ServeHTTP(w, r)
				return
			}
			if n > int64(maxRequests) {
				http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
