package idempotency

import (
	"context"
	"time"

	"rewards/internal/cache"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps idempotency state in process. It is used when no Redis
// is configured and only protects a single server instance.
type MemoryStore struct {
	responses *cache.LRUCache[Response]
	locks     *cache.LRUCache[string]
	manager   *cache.Manager
}

// NewMemoryStore holds at most maxEntries responses for ttl.
func NewMemoryStore(maxEntries int, ttl time.Duration) *MemoryStore {
	s := &MemoryStore{
		responses: cache.NewLRUCache[Response](maxEntries, ttl),
		locks:     cache.NewLRUCache[string](maxEntries, LockTimeout),
		manager:   cache.NewManager(),
	}
	s.manager.Register(s.responses)
	s.manager.Register(s.locks)
	s.manager.StartCleanup(10 * time.Minute)
	return s
}

// Get ignores ctx; the lookup is in memory.
func (s *MemoryStore) Get(_ context.Context, key string) (Response, bool, error) {
	resp, ok := s.responses.Get(key)
	return resp, ok, nil
}

// Save uses the TTL given at construction.
func (s *MemoryStore) Save(_ context.Context, key string, resp Response, _ time.Duration) error {
	s.responses.Set(key, resp)
	return nil
}

func (s *MemoryStore) Lock(_ context.Context, key, token string, _ time.Duration) (bool, error) {
	return s.locks.Add(key, token), nil
}

func (s *MemoryStore) Unlock(_ context.Context, key, token string) error {
	s.locks.DeleteIf(key, func(owner string) bool { return owner == token })
	return nil
}

func (s *MemoryStore) Size() int {
	return s.responses.Size()
}

func (s *MemoryStore) Close() error {
	s.manager.Stop()
	return nil
}
