package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"unistay/pkg/auth"
	apperrors "unistay/pkg/errors"
	httputil "unistay/pkg/http"
	"unistay/pkg/logger"
	"unistay/pkg/metrics"
)

// RateLimitStore counts hits per key in fixed windows.
type RateLimitStore interface {
	// Incr adds one hit to key's current window and returns the count so far
	// and the time until the window resets.
	Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
	Stop()
}

type KeyExtractor func(r *http.Request) (key string, keyType string)

type RateLimiter struct {
	store     RateLimitStore
	limit     int64
	window    time.Duration
	extractor KeyExtractor
	log       *logger.Logger
}

func NewRateLimiter(store RateLimitStore, limit int, window time.Duration, extractor KeyExtractor, log *logger.Logger) *RateLimiter {
	if extractor == nil {
		extractor = DefaultKeyExtractor
	}
	return &RateLimiter{
		store:     store,
		limit:     int64(limit),
		window:    window,
		extractor: extractor,
		log:       log,
	}
}

func (rl *RateLimiter) Stop() {
	rl.store.Stop()
}

// Allow reports whether key is under the limit. Store failures let the
// request through.
func (rl *RateLimiter) Allow(ctx context.Context, key string) (allowed bool, remaining int64, reset time.Duration) {
	if key == "" {
		return true, rl.limit, 0
	}

	count, reset, err := rl.store.Incr(ctx, key, rl.window)
	if err != nil {
		rl.log.Warn("Rate limit store unavailable, allowing request", "error", err)
		return true, rl.limit, 0
	}

	remaining = max(0, rl.limit-count)
	return count <= rl.limit, remaining, reset
}

func RateLimit(limiter *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, keyType := limiter.extractor(r)

			allowed, remaining, reset := limiter.Allow(r.Context(), key)
			w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(limiter.limit, 10))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

			if !allowed {
				metrics.RateLimitedTotal.WithLabelValues(keyType).Inc()
				rejectRateLimited(w, limiter.log, r, key, reset)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func rejectRateLimited(w http.ResponseWriter, log *logger.Logger, r *http.Request, key string, reset time.Duration) {
	log.Warn("Rate limit exceeded",
		"request_id", logger.RequestID(r.Context()),
		"key", key,
		"path", r.URL.Path,
	)

	seconds := int64(reset.Round(time.Second) / time.Second)
	w.Header().Set("Retry-After", strconv.FormatInt(max(1, seconds), 10))
	_ = httputil.WriteError(w, apperrors.TooManyRequests("Rate limit exceeded"))
}

// DefaultKeyExtractor limits signed-in callers by user id and everyone else
// by client IP.
func DefaultKeyExtractor(r *http.Request) (string, string) {
	if p := auth.FromContext(r.Context()); p != nil && p.UserID != "" {
		return "user:" + p.UserID, "user"
	}
	return "ip:" + ClientIP(r), "ip"
}

type windowCounter struct {
	count   int64
	resetAt time.Time
}

// InMemoryRateLimitStore keeps counters in process. Counts are per instance.
type InMemoryRateLimitStore struct {
	mu       sync.Mutex
	counters map[string]*windowCounter
	now      func() time.Time
	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewInMemoryRateLimitStore() *InMemoryRateLimitStore {
	store := &InMemoryRateLimitStore{
		counters: make(map[string]*windowCounter),
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}

	go store.cleanup()

	return store
}

func (s *InMemoryRateLimitStore) Incr(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	c, ok := s.counters[key]
	if !ok || !now.Before(c.resetAt) {
		c = &windowCounter{resetAt: now.Add(window)}
		s.counters[key] = c
	}
	c.count++

	return c.count, c.resetAt.Sub(now), nil
}

func (s *InMemoryRateLimitStore) cleanup() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.mu.Lock()
			now := s.now()
			for key, c := range s.counters {
				if !now.Before(c.resetAt) {
					delete(s.counters, key)
				}
			}
			s.mu.Unlock()
		case <-s.stopCh:
			return
		}
	}
}

func (s *InMemoryRateLimitStore) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}
