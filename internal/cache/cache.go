// Package cache implements the time-bounded result cache the data fetchers
// read and write through. Every backend stores the same versioned envelope
// and judges freshness at read time, so entries are never evicted on expiry;
// a stale entry is simply ignored until the next Put overwrites it.
package cache

import (
	"context"
	"encoding/json"
	"time"
)

// SchemaVersion is bumped whenever the envelope or the payload record shapes
// change incompatibly. Entries written under another version read as a miss.
const SchemaVersion = 1

// Entry is the stored (timestamp, payload) pair.
type Entry struct {
	Version  int             `json:"version"`
	StoredAt time.Time       `json:"stored_at"`
	Payload  json.RawMessage `json:"payload"`
}

// Fresh reports whether the entry is younger than maxAge at the given time.
func (e Entry) Fresh(now time.Time, maxAge time.Duration) bool {
	return now.Sub(e.StoredAt) < maxAge
}

// Store is the cache contract the fetchers rely on.
//
// Get returns the payload stored under key only if it is younger than maxAge.
// A missing, stale, corrupt or unreadable entry is a miss, never an error —
// the fetch path must behave as if nothing were cached.
//
// Put persists the payload together with the current time, overwriting any
// prior entry, and is atomic with respect to concurrent Gets.
type Store interface {
	Get(ctx context.Context, key string, maxAge time.Duration) ([]byte, bool)
	Put(ctx context.Context, key string, payload []byte) error
	Health(ctx context.Context) error
	Close() error
}
