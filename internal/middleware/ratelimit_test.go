package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestMemoryCounterStore_Incr(t *testing.T) {
	store := NewMemoryCounterStore()
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		n, err := store.Incr(ctx, "k", time.Minute)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != i {
			t.Errorf("expected count %d, got %d", i, n)
		}
	}

	// Independent keys get independent windows.
	n, err := store.Incr(ctx, "other", time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 {
		t.Errorf("expected fresh counter for new key, got %d", n)
	}
}

func TestMemoryCounterStore_WindowResets(t *testing.T) {
	store := NewMemoryCounterStore()
	ctx := context.Background()

	if _, err := store.Incr(ctx, "k", 10*time.Millisecond); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	n, err := store.Incr(ctx, "k", 10*time.Millisecond)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 {
		t.Errorf("expected counter to reset after window, got %d", n)
	}
}

func TestRateLimit_AllowsUnderLimit(t *testing.T) {
	mw := NewRateLimitMiddleware(NewMemoryCounterStore())
	handler := mw.RateLimit(3, time.Minute)(okHandler())

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/fleet", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("request %d: expected 200, got %d", i+1, rec.Code)
		}
	}
}

func TestRateLimit_BlocksOverLimit(t *testing.T) {
	mw := NewRateLimitMiddleware(NewMemoryCounterStore())
	handler := mw.RateLimit(2, time.Minute)(okHandler())

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/fleet", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/fleet", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", rec.Code)
	}
}

func TestRateLimit_PerClientIP(t *testing.T) {
	mw := NewRateLimitMiddleware(NewMemoryCounterStore())
	handler := mw.RateLimit(1, time.Minute)(okHandler())

	first := httptest.NewRequest(http.MethodGet, "/api/fleet", nil)
	first.RemoteAddr = "10.0.0.1:1234"
	handler.ServeHTTP(httptest.NewRecorder(), first)

	// A different client is not affected by the first one's counter.
	second := httptest.NewRequest(http.MethodGet, "/api/fleet", nil)
	second.RemoteAddr = "10.0.0.2:1234"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, second)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 for a different client, got %d", rec.Code)
	}
}

func TestRateLimit_ForwardedForHeader(t *testing.T) {
	mw := NewRateLimitMiddleware(NewMemoryCounterStore())
	handler := mw.RateLimit(1, time.Minute)(okHandler())

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/fleet", nil)
		req.RemoteAddr = "10.0.0.9:1234" // proxy address
		req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.9")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if i == 1 && rec.Code != http.StatusTooManyRequests {
			t.Errorf("expected forwarded client to be limited, got %d", rec.Code)
		}
	}
}

// scriptRecorder emulates the counter script server-side so the store can be
// exercised without a Redis instance. Each Incr must arrive as one script
// invocation carrying both the key and the window, never as separate INCR
// and EXPIRE commands.
type scriptRecorder struct {
	mu       sync.Mutex
	counts   map[string]int64
	windowMs map[string]int64
	evals    int
}

func newScriptRecorder() *scriptRecorder {
	return &scriptRecorder{counts: map[string]int64{}, windowMs: map[string]int64{}}
}

func (s *scriptRecorder) Eval(_ context.Context, _ string, keys []string, args ...interface{}) *redis.Cmd {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evals++
	key := keys[0]
	s.counts[key]++
	if s.counts[key] == 1 {
		ttl, _ := args[0].(int64)
		s.windowMs[key] = ttl
	}
	return redis.NewCmdResult(s.counts[key], nil)
}

func (s *scriptRecorder) EvalSha(context.Context, string, []string, ...interface{}) *redis.Cmd {
	// Force the fallback to Eval, as a server without the cached script would.
	return redis.NewCmdResult(nil, errors.New("NOSCRIPT script not loaded"))
}

func (s *scriptRecorder) ScriptExists(_ context.Context, hashes ...string) *redis.BoolSliceCmd {
	return redis.NewBoolSliceResult(make([]bool, len(hashes)), nil)
}

func (s *scriptRecorder) ScriptLoad(context.Context, string) *redis.StringCmd {
	return redis.NewStringResult("", nil)
}

func TestRedisCounterStore_Incr(t *testing.T) {
	rec := newScriptRecorder()
	store := &RedisCounterStore{Client: rec}
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		n, err := store.Incr(ctx, "ratelimit:10.0.0.1", 30*time.Second)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != i {
			t.Errorf("expected count %d, got %d", i, n)
		}
	}

	// One script invocation per Incr: the count and the expiry travel
	// together, so no crash can strand a counter without a TTL.
	if rec.evals != 3 {
		t.Errorf("expected 3 script invocations, got %d", rec.evals)
	}
	if ttl := rec.windowMs["ratelimit:10.0.0.1"]; ttl != 30000 {
		t.Errorf("expected window of 30000ms on first increment, got %d", ttl)
	}
}

type failingCounterStore struct{}

func (failingCounterStore) Incr(context.Context, string, time.Duration) (int64, error) {
	return 0, errors.New("counter backend down")
}

func TestRateLimit_FailsOpenOnStoreError(t *testing.T) {
	mw := NewRateLimitMiddleware(failingCounterStore{})
	handler := mw.RateLimit(1, time.Minute)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/fleet", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("expected request to pass when counter store fails, got %d", rec.Code)
	}
}
