package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FileStore keeps one JSON envelope file per cache key under a single
// directory. The directory is created lazily on first write. There is no
// index and no eviction: stale files sit around until overwritten.
type FileStore struct {
	dir string
	now func() time.Time
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir, now: time.Now}
}

func (s *FileStore) Get(_ context.Context, key string, maxAge time.Duration) ([]byte, bool) {
	b, err := os.ReadFile(s.path(key))
	if err != nil {
		return nil, false
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

// Put writes the envelope to a temp file and renames it into place, so a
// concurrent Get sees either the old entry or the new one, never a partial
// write.
func (s *FileStore) Put(_ context.Context, key string, payload []byte) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	b, err := json.Marshal(Entry{Version: SchemaVersion, StoredAt: s.now(), Payload: payload})
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	tmp, err := os.CreateTemp(s.dir, ".put-*")
	if err != nil {
		return fmt.Errorf("create temp entry: %w", err)
	}
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write cache entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close cache entry: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path(key)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("store cache entry: %w", err)
	}
	return nil
}

func (s *FileStore) Health(context.Context) error { return os.MkdirAll(s.dir, 0o755) }

func (s *FileStore) Close() error { return nil }

// path maps a key to its file name. The sanitized key keeps files
// recognizable when poking around the cache dir; the hash suffix keeps keys
// that sanitize to the same string from colliding.
func (s *FileStore) path(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(s.dir, sanitizeKey(key)+"-"+hex.EncodeToString(sum[:])[:12]+".json")
}

const maxNameLen = 64

func sanitizeKey(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '-', r == '.', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	name := b.String()
	if len(name) > maxNameLen {
		name = name[:maxNameLen]
	}
	return name
}
