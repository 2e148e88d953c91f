package cache

import (
	"context"
	"fmt"

	"github.com/dgraph-io/ristretto"
)

// memoryStore is an in-process store on a ristretto cache, used as the front
// tier and by synthetic venues in tests.
type memoryStore struct {
	cache *ristretto.Cache
}

// NewMemory creates an in-process store.
func NewMemory() (Store, error) {
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e5,
		MaxCost:     1 << 26,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("creating memory cache: %w", err)
	}
	return &memoryStore{cache: c}, nil
}

func (s *memoryStore) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := s.cache.Get(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMiss, key)
	}
	return v.([]byte), nil
}

func (s *memoryStore) Set(_ context.Context, key string, value []byte) error {
	s.cache.Set(key, value, int64(len(value)))
	// Ristretto admits asynchronously; force visibility for read-after-write.
	s.cache.Wait()
	return nil
}

// tiered serves reads from a fast front store, falling back to the shared
// back store and populating the front on the way out.
type tiered struct {
	front Store
	back  Reader
}

// NewTiered layers front over back.
func NewTiered(front Store, back Reader) Reader {
	return &tiered{front: front, back: back}
}

func (t *tiered) Get(ctx context.Context, key string) ([]byte, error) {
	if v, err := t.front.Get(ctx, key); err == nil {
		return v, nil
	}
	v, err := t.back.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	_ = t.front.Set(ctx, key, v)
	return v, nil
}
