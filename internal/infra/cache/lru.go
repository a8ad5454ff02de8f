package cache

import (
	"context"

	lru "github.com/hashicorp/golang-lru"

	"github.com/MRamiBalles/immolife/internal/infra/storage"
)

// DefaultLRUSize is the number of slots kept in memory.
const DefaultLRUSize = 16

// CachedSlotStore is a read-through, write-through LRU in front of another SlotStore.
// It is not the source of truth; List always asks the backend.
type CachedSlotStore struct {
	backend storage.SlotStore
	cache   *lru.Cache
}

// NewCachedSlotStore wraps backend. size <= 0 uses DefaultLRUSize.
func NewCachedSlotStore(backend storage.SlotStore, size int) *CachedSlotStore {
	if size <= 0 {
		size = DefaultLRUSize
	}
	cache, _ := lru.New(size)
	return &CachedSlotStore{backend: backend, cache: cache}
}

func (s *CachedSlotStore) Put(ctx context.Context, key string, data []byte) error {
	if err := s.backend.Put(ctx, key, data); err != nil {
		s.cache.Remove(key)
		return err
	}
	s.cache.Add(key, append([]byte(nil), data...))
	return nil
}

func (s *CachedSlotStore) Get(ctx context.Context, key string) ([]byte, error) {
	if v, ok := s.cache.Get(key); ok {
		return append([]byte(nil), v.([]byte)...), nil
	}
	data, err := s.backend.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	s.cache.Add(key, append([]byte(nil), data...))
	return data, nil
}

func (s *CachedSlotStore) Delete(ctx context.Context, key string) error {
	s.cache.Remove(key)
	return s.backend.Delete(ctx, key)
}

func (s *CachedSlotStore) List(ctx context.Context) ([]string, error) {
	return s.backend.List(ctx)
}

var _ storage.SlotStore = (*CachedSlotStore)(nil)
