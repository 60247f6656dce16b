package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryStore is a process-local Store. It backs the "memory" cache backend
// and the redis fallback layer. Entries are stored without a go-cache TTL:
// like every other backend, freshness is judged against maxAge at read time.
type MemoryStore struct {
	c   *gocache.Cache
	now func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{c: gocache.New(gocache.NoExpiration, 0), now: time.Now}
}

func (s *MemoryStore) Get(_ context.Context, key string, maxAge time.Duration) ([]byte, bool) {
	v, ok := s.c.Get(key)
	if !ok {
		return nil, false
	}
	e, ok := v.(Entry)
	if !ok || e.Version != SchemaVersion || !e.Fresh(s.now(), maxAge) {
		return nil, false
	}
	return e.Payload, true
}

func (s *MemoryStore) Put(_ context.Context, key string, payload []byte) error {
	s.c.Set(key, Entry{Version: SchemaVersion, StoredAt: s.now(), Payload: payload}, gocache.NoExpiration)
	return nil
}

func (s *MemoryStore) Health(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }
