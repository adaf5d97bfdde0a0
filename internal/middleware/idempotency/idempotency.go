// Package idempotency replays responses of POST requests that carry an
// Idempotency-Key header, so retried requests are processed once.
package idempotency

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"rewards/internal/log"
)

const (
	// Header is the standard HTTP header for idempotency keys
	Header = "Idempotency-Key"

	// HitHeader marks a replayed response.
	HitHeader = "X-Idempotency-Hit"

	// DefaultTTL is how long successful responses are kept.
	DefaultTTL = 24 * time.Hour

	// LockTimeout prevents indefinite locks if a request crashes
	LockTimeout = 10 * time.Second

	responsePrefix = "idempotency:"
	lockPrefix     = "lock:"
	maxKeyLength   = 255
)

// Response is a cached handler response.
type Response struct {
	StatusCode  int    `json:"status"`
	ContentType string `json:"contentType"`
	Body        []byte `json:"body"`
}

// Store persists responses and short-lived processing locks.
type Store interface {
	Get(ctx context.Context, key string) (Response, bool, error)
	Save(ctx context.Context, key string, resp Response, ttl time.Duration) error
	// Lock acquires key for token unless another token holds it.
	Lock(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	// Unlock releases key only if token still holds it.
	Unlock(ctx context.Context, key, token string) error
}

// responseRecorder captures HTTP responses for caching.
type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	body       bytes.Buffer
}

func (rw *responseRecorder) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseRecorder) Write(b []byte) (int, error) {
	rw.body.Write(b)
	return rw.ResponseWriter.Write(b)
}

// Middleware returns the idempotency middleware.
//
// Flow:
//  1. Requests without the header pass straight through.
//  2. A stored response for the key is replayed with X-Idempotency-Hit.
//  3. The key is locked; a concurrent duplicate gets 409.
//  4. The request runs and a 2xx response is stored for ttl.
func Middleware(store Store, ttl time.Duration) func(http.Handler) http.Handler {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(Header)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()
			logger := log.FromContext(ctx).WithComponent(log.ComponentIdempotency).With(log.FieldIdempotency, key)

			if len(key) > maxKeyLength {
				writeError(w, http.StatusBadRequest, "bad_request", "Idempotency-Key is too long")
				return
			}

			cacheKey := responsePrefix + r.Method + ":" + r.URL.Path + ":" + key
			lockKey := lockPrefix + cacheKey

			cached, found, err := store.Get(ctx, cacheKey)
			if err != nil {
				logger.ErrorContext(ctx, "Idempotency lookup failed", log.FieldError, err)
				writeError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
				return
			}
			if found {
				logger.InfoContext(ctx, "Idempotency cache hit")
				replay(w, cached)
				return
			}

			token := uuid.NewString()
			acquired, err := store.Lock(ctx, lockKey, token, LockTimeout)
			if err != nil {
				logger.ErrorContext(ctx, "Idempotency lock acquisition failed", log.FieldError, err)
				writeError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
				return
			}
			if !acquired {
				logger.WarnContext(ctx, "Concurrent idempotent request detected")
				writeError(w, http.StatusConflict, "conflict", "A request with this idempotency key is currently being processed")
				return
			}
			defer func() {
				if err := store.Unlock(context.WithoutCancel(ctx), lockKey, token); err != nil {
					logger.WarnContext(ctx, "Failed to release idempotency lock", log.FieldError, err)
				}
			}()

			rec := &responseRecorder{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rec, r)

			if rec.statusCode < 200 || rec.statusCode >= 300 {
				return
			}
			resp := Response{
				StatusCode:  rec.statusCode,
				ContentType: rec.Header().Get("Content-Type"),
				Body:        rec.body.Bytes(),
			}
			if err := store.Save(context.WithoutCancel(ctx), cacheKey, resp, ttl); err != nil {
				logger.ErrorContext(ctx, "Failed to cache idempotent response", log.FieldError, err)
				return
			}
			logger.DebugContext(ctx, "Cached idempotent response", "ttl", ttl)
		})
	}
}

func replay(w http.ResponseWriter, resp Response) {
	if resp.ContentType != "" {
		w.Header().Set("Content-Type", resp.ContentType)
	}
	w.Header().Set(HitHeader, "true")
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(resp.Body)
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": kind, "message": message})
}

func encodeResponse(resp Response) ([]byte, error) {
	return json.Marshal(resp)
}

func decodeResponse(b []byte) (Response, error) {
	var resp Response
	if err := json.Unmarshal(b, &resp); err != nil {
		return Response{}, err
	}
	if resp.StatusCode == 0 {
		return Response{}, errors.New("cached response has no status")
	}
	return resp, nil
}
