package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"unistay/pkg/auth"
	apperrors "unistay/pkg/errors"
	httputil "unistay/pkg/http"
	"unistay/pkg/logger"
)

const IdempotencyReplayHeader = "Idempotent-Replay"

// IdempotencyStore keeps the first successful response for a scoped key.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) (*CachedResponse, bool, error)
	Set(ctx context.Context, key string, response *CachedResponse) error
	Stop()
}

type CachedResponse struct {
	StatusCode  int         `json:"status"`
	Headers     http.Header `json:"headers"`
	Body        []byte      `json:"body"`
	Fingerprint string      `json:"fingerprint"`
	CreatedAt   time.Time   `json:"created_at"`
}

type InMemoryIdempotencyStore struct {
	mu      sync.Mutex
	entries map[string]*CachedResponse
	ttl     time.Duration
	stop    chan struct{}
	once    sync.Once
}

func NewInMemoryIdempotencyStore(ttl time.Duration) *InMemoryIdempotencyStore {
	s := &InMemoryIdempotencyStore{
		entries: make(map[string]*CachedResponse),
		ttl:     ttl,
		stop:    make(chan struct{}),
	}
	go s.evictLoop(ttl)
	return s
}

func (s *InMemoryIdempotencyStore) Get(_ context.Context, key string) (*CachedResponse, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cached, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}
	if time.Since(cached.CreatedAt) > s.ttl {
		delete(s.entries, key)
		return nil, false, nil
	}
	return cached, true, nil
}

func (s *InMemoryIdempotencyStore) Set(_ context.Context, key string, response *CachedResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.entries[key]; !taken {
		s.entries[key] = response
	}
	return nil
}

func (s *InMemoryIdempotencyStore) evictLoop(ttl time.Duration) {
	every := min(ttl, time.Hour)
	if every <= 0 {
		every = time.Minute
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case now := <-ticker.C:
			s.mu.Lock()
			for key, cached := range s.entries {
				if now.Sub(cached.CreatedAt) > s.ttl {
					delete(s.entries, key)
				}
			}
			s.mu.Unlock()
		}
	}
}

func (s *InMemoryIdempotencyStore) Stop() {
	s.once.Do(func() { close(s.stop) })
}

// recorder tees the downstream response so it can be stored after the
// handler returns.
type recorder struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (rw *recorder) WriteHeader(status int) {
	if rw.status != 0 {
		return
	}
	rw.status = status
	rw.ResponseWriter.WriteHeader(status)
}

func (rw *recorder) Write(b []byte) (int, error) {
	if rw.status == 0 {
		rw.status = http.StatusOK
	}
	rw.body.Write(b)
	return rw.ResponseWriter.Write(b)
}

// Idempotency replays the stored 2xx response when a mutating request repeats
// its key. Reusing a key with a different payload is a conflict. Store
// failures are logged and the request proceeds unprotected.
func Idempotency(store IdempotencyStore, headerName string, log *logger.Logger) func(http.Handler) http.Handler {
	if headerName == "" {
		headerName = "Idempotency-Key"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientKey := r.Header.Get(headerName)
			if clientKey == "" || r.Method == http.MethodGet || r.Method == http.MethodHead {
				next.ServeHTTP(w, r)
				return
			}

			payload, err := io.ReadAll(r.Body)
			if err != nil {
				var tooLarge *http.MaxBytesError
				if errors.As(err, &tooLarge) {
					_ = httputil.WriteError(w, apperrors.New(apperrors.CodeBadRequest, "Request body too large", http.StatusRequestEntityTooLarge))
					return
				}
				_ = httputil.WriteError(w, apperrors.InvalidInput("Could not read request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(payload))

			ctx := r.Context()
			key := scopedIdempotencyKey(r, clientKey)
			fingerprint := fingerprintPayload(payload)

			cached, found, err := store.Get(ctx, key)
			if err != nil {
				log.Warn("Idempotency lookup failed, serving request without replay protection",
					"request_id", logger.RequestID(ctx), "error", err)
			}
			if found {
				if cached.Fingerprint != fingerprint {
					_ = httputil.WriteError(w, apperrors.Conflict("Idempotency key was already used with a different request body"))
					return
				}
				replay(w, cached)
				return
			}

			rw := &recorder{ResponseWriter: w}
			next.ServeHTTP(rw, r)

			if rw.status < 200 || rw.status >= 300 {
				return
			}
			headers := w.Header().Clone()
			headers.Del(RequestIDHeader)
			err = store.Set(ctx, key, &CachedResponse{
				StatusCode:  rw.status,
				Headers:     headers,
				Body:        rw.body.Bytes(),
				Fingerprint: fingerprint,
				CreatedAt:   time.Now(),
			})
			if err != nil {
				log.Warn("Failed to store idempotent response", "request_id", logger.RequestID(ctx), "error", err)
			}
		})
	}
}

// scopedIdempotencyKey binds the client key to caller and route so two users
// cannot replay each other's responses.
func scopedIdempotencyKey(r *http.Request, clientKey string) string {
	caller := "anonymous"
	if p := auth.FromContext(r.Context()); p != nil {
		caller = p.UserID
	}
	return caller + "|" + r.Method + "|" + r.URL.Path + "|" + clientKey
}

func fingerprintPayload(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

func replay(w http.ResponseWriter, cached *CachedResponse) {
	for name, values := range cached.Headers {
		for _, v := range values {
			w.Header().Add(name, v)
		}
	}
	w.Header().Set(IdempotencyReplayHeader, "true")
	w.WriteHeader(cached.StatusCode)
	_, _ = w.Write(cached.Body)
}
