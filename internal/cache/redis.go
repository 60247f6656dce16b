package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps cache entries in redis so several dashboard processes on
// one host can share a cache. Redis trouble degrades to the in-memory
// fallback layer — the fetch path never sees a cache error, only misses.
type RedisStore struct {
	rdb       *redis.Client
	mem       *MemoryStore
	retention time.Duration
	now       func() time.Time
}

// NewRedisStore connects and pings the server. retention bounds how long
// redis keeps an entry around at all; freshness is still judged against
// maxAge at read time, exactly like the file backend.
func NewRedisStore(ctx context.Context, addr, password string, db int, retention time.Duration) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisStore{rdb: rdb, mem: NewMemoryStore(), retention: retention, now: time.Now}, nil
}

func (s *RedisStore) Get(ctx context.Context, key string, maxAge time.Duration) ([]byte, bool) {
	b, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		// redis.Nil and a down redis both read as a miss here; the fallback
		// layer may still hold an entry written while redis was away.
		return s.mem.Get(ctx, key, maxAge)
	}
	var e Entry
	if err := json.Unmarshal(b, &e); err != nil {
		return nil, false
	}
	if e.Version != SchemaVersion || !e.Fresh(s.now(), maxAge) {
		return nil, false
	}
	return e.Payload, true
}

func (s *RedisStore) Put(ctx context.Context, key string, payload []byte) error {
	b, err := json.Marshal(Entry{Version: SchemaVersion, StoredAt: s.now(), Payload: payload})
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	if err := s.rdb.Set(ctx, key, b, s.retention).Err(); err != nil {
		_ = s.mem.Put(ctx, key, payload)
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Health(ctx context.Context) error { return s.rdb.Ping(ctx).Err() }

func (s *RedisStore) Close() error { return s.rdb.Close() }
