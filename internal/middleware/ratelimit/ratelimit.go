// Package ratelimit limits write requests per client with a fixed one-minute window.
package ratelimit

import (
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"rewards/internal/cache"
)

const window = time.Minute

// Limiter counts requests per client IP. Client windows live in an LRU cache,
// so idle clients expire and the tracked set stays bounded.
type Limiter struct {
	mu        sync.Mutex
	clients   *cache.LRUCache[*clientWindow]
	cleaner   *cache.Manager
	totalHits atomic.Int64
	now       func() time.Time

	requestsPerMinute int
}

type clientWindow struct {
	start    time.Time
	requests int
}

// Config holds rate limiter configuration
type Config struct {
	RequestsPerMinute int
	CleanupInterval   time.Duration
	// IdleTimeout is how long a client is remembered after its last request.
	IdleTimeout time.Duration
	MaxClients  int
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 60,
		CleanupInterval:   5 * time.Minute,
		IdleTimeout:       10 * time.Minute,
		MaxClients:        100_000,
	}
}

func NewLimiter(config Config) *Limiter {
	def := DefaultConfig()
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = def.RequestsPerMinute
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = def.CleanupInterval
	}
	if config.IdleTimeout < window {
		config.IdleTimeout = def.IdleTimeout
	}
	if config.MaxClients <= 0 {
		config.MaxClients = def.MaxClients
	}

	rl := &Limiter{
		clients:           cache.NewLRUCache[*clientWindow](config.MaxClients, config.IdleTimeout),
		cleaner:           cache.NewManager(),
		now:               time.Now,
		requestsPerMinute: config.RequestsPerMinute,
	}
	rl.clients.SetClock(func() time.Time { return rl.now() })
	rl.cleaner.Register(rl.clients)
	rl.cleaner.StartCleanup(config.CleanupInterval)
	return rl
}

// Allow counts a request from clientIP and reports whether it is within the limit.
func (rl *Limiter) Allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	w, ok := rl.clients.Get(clientIP)
	if !ok || now.Sub(w.start) >= window {
		w = &clientWindow{start: now}
	}
	w.requests++
	// Set restarts the idle timeout
	rl.clients.Set(clientIP, w)

	if w.requests > rl.requestsPerMinute {
		rl.totalHits.Add(1)
		return false
	}
	return true
}

// RetryAfter returns the seconds until clientIP's window resets.
func (rl *Limiter) RetryAfter(clientIP string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	w, ok := rl.clients.Get(clientIP)
	if !ok {
		return 0
	}
	remaining := window - rl.now().Sub(w.start)
	if remaining <= 0 {
		return 0
	}
	return int(remaining.Round(time.Second) / time.Second)
}

func (rl *Limiter) cleanupStaleEntries() int {
	return rl.clients.CleanExpired()
}

// ActiveClients returns the number of currently tracked clients
func (rl *Limiter) ActiveClients() int {
	return rl.clients.Size()
}

// Stop ends the background eviction of idle clients.
func (rl *Limiter) Stop() {
	rl.cleaner.Stop()
}

// Metrics for monitoring rate limit performance
type Metrics struct {
	TotalHits   int64
	ClientCount int64
}

func (rl *Limiter) GetMetrics() Metrics {
	return Metrics{
		TotalHits:   rl.totalHits.Load(),
		ClientCount: int64(rl.ActiveClients()),
	}
}

// Middleware rejects requests over the limit with a Retry-After header.
// onLimit writes the rejection; when nil a plain 429 is sent.
func (rl *Limiter) Middleware(extractIP func(*http.Request) string, onLimit func(http.ResponseWriter, *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientIP := extractIP(r)

			if !rl.Allow(clientIP) {
				w.Header().Set("Retry-After", strconv.Itoa(max(rl.RetryAfter(clientIP), 1)))
				if onLimit != nil {
					onLimit(w, r)
				} else {
					http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
				}
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
