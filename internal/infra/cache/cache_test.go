package cache

import (
	"context"
	"path"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MRamiBalles/immolife/internal/infra/storage"
)

// fakeRedis is an in-memory RedisClient.
type fakeRedis struct {
	mu   sync.Mutex
	data map[string]string
}

func newFakeRedis() *fakeRedis { return &fakeRedis{data: map[string]string{}} }

func (f *fakeRedis) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	if !ok {
		return "", ErrCacheMiss
	}
	return v, nil
}

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch v := value.(type) {
	case []byte:
		f.data[key] = string(v)
	case string:
		f.data[key] = v
	}
	return nil
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	return n, nil
}

func (f *fakeRedis) Keys(_ context.Context, pattern string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for k := range f.data {
		if ok, _ := path.Match(pattern, k); ok {
			out = append(out, k)
		}
	}
	return out, nil
}

func TestRedisSlotStore(t *testing.T) {
	ctx := context.Background()
	client := newFakeRedis()
	client.data["unrelated"] = "x"
	s := NewRedisSlotStore(client)

	_, err := s.Get(ctx, "autosave")
	assert.ErrorIs(t, err, storage.ErrSlotNotFound)

	require.NoError(t, s.Put(ctx, "autosave", []byte("a")))
	require.NoError(t, s.Put(ctx, "slot 2", []byte("b")))
	assert.Equal(t, "a", client.data["immolife_save_autosave"])

	keys, err := s.List(ctx)
	require.NoError(t, err)
	sort.Strings(keys)
	assert.Equal(t, []string{"autosave", "slot 2"}, keys)

	require.NoError(t, s.Delete(ctx, "autosave"))
	assert.ErrorIs(t, s.Delete(ctx, "autosave"), storage.ErrSlotNotFound)
}

// countingStore records backend reads.
type countingStore struct {
	*storage.MemorySlotStore
	gets int
}

func (c *countingStore) Get(ctx context.Context, key string) ([]byte, error) {
	c.gets++
	return c.MemorySlotStore.Get(ctx, key)
}

func TestCachedSlotStoreReadsThrough(t *testing.T) {
	ctx := context.Background()
	backend := &countingStore{MemorySlotStore: storage.NewMemorySlotStore()}
	require.NoError(t, backend.Put(ctx, "quicksave", []byte("q")))

	s := NewCachedSlotStore(backend, 2)
	for i := 0; i < 3; i++ {
		data, err := s.Get(ctx, "quicksave")
		require.NoError(t, err)
		assert.Equal(t, "q", string(data))
	}
	assert.Equal(t, 1, backend.gets)

	require.NoError(t, s.Put(ctx, "quicksave", []byte("q2")))
	data, err := s.Get(ctx, "quicksave")
	require.NoError(t, err)
	assert.Equal(t, "q2", string(data))
	assert.Equal(t, 1, backend.gets)

	require.NoError(t, s.Delete(ctx, "quicksave"))
	_, err = s.Get(ctx, "quicksave")
	assert.ErrorIs(t, err, storage.ErrSlotNotFound)
}
