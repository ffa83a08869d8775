package database

import (
	"context"
	"sync"
)

// Fixed record keys. They match the keys the browser edition of the blog
// used, so an exported browser storage dump can be loaded as-is.
const (
	PostsKey       = "blog_posts"
	CredentialKey  = "blog_admin_password"
	ImageConfigKey = "blog_image_config"
)

// Store is a durable key/value record store. Each Set replaces the whole
// value of a key; readers never observe a partially written value.
type Store interface {
	// Get returns the value stored under key. ok is false when the key was never set.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte) error
}

// MemoryStore keeps records in process memory. Used by tests and DB_TYPE=memory.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string][]byte)}
}

func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.records[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), value...), true, nil
}

func (s *MemoryStore) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[key] = append([]byte(nil), value...)
	return nil
}
