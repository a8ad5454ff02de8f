// Package cache provides Redis-backed save slots and an in-process read cache for any slot store.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MRamiBalles/immolife/internal/infra/storage"
)

// KeyPrefix namespaces save slots in a shared Redis.
const KeyPrefix = "immolife_save_"

// ErrCacheMiss is returned by RedisClient.Get for absent keys.
var ErrCacheMiss = errors.New("cache miss")

// RedisClient is an interface for Redis operations.
// This allows for easy mocking in tests.
type RedisClient interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Del(ctx context.Context, keys ...string) (int, error)
	Keys(ctx context.Context, pattern string) ([]string, error)
}

// RedisSlotStore keeps one save envelope per key under KeyPrefix.
type RedisSlotStore struct {
	client     RedisClient
	expiration time.Duration
}

// NewRedisSlotStore creates a slot store. Saves never expire.
func NewRedisSlotStore(client RedisClient) *RedisSlotStore {
	return &RedisSlotStore{client: client}
}

func (s *RedisSlotStore) Put(ctx context.Context, key string, data []byte) error {
	if err := s.client.Set(ctx, s.slotKey(key), data, s.expiration); err != nil {
		return fmt.Errorf("failed to put slot %s: %w", key, err)
	}
	return nil
}

func (s *RedisSlotStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.slotKey(key))
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, storage.ErrSlotNotFound
		}
		return nil, fmt.Errorf("failed to get slot %s: %w", key, err)
	}
	return []byte(data), nil
}

func (s *RedisSlotStore) Delete(ctx context.Context, key string) error {
	n, err := s.client.Del(ctx, s.slotKey(key))
	if err != nil {
		return fmt.Errorf("failed to delete slot %s: %w", key, err)
	}
	if n == 0 {
		return storage.ErrSlotNotFound
	}
	return nil
}

func (s *RedisSlotStore) List(ctx context.Context) ([]string, error) {
	keys, err := s.client.Keys(ctx, KeyPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("failed to list slots: %w", err)
	}
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, strings.TrimPrefix(k, KeyPrefix))
	}
	return out, nil
}

// slotKey generates the Redis key for a save slot.
func (s *RedisSlotStore) slotKey(slot string) string {
	return KeyPrefix + slot
}

var _ storage.SlotStore = (*RedisSlotStore)(nil)
