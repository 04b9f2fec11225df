package docstore

import (
	"context"

	"github.com/puzpuzpuz/xsync/v3"
)

// MemoryRegistry keeps every named map in process memory. The default engine
// for tests and for embedding without persistence.
type MemoryRegistry struct {
	maps *xsync.MapOf[string, *MemoryStore]
}

// NewMemoryRegistry creates an empty in-memory registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		maps: xsync.NewMapOf[string, *MemoryStore](),
	}
}

func (r *MemoryRegistry) GetMap(ctx context.Context, name string) (KeyValueStore, error) {
	store, _ := r.maps.LoadOrCompute(name, func() *MemoryStore {
		return NewMemoryStore()
	})
	return store, nil
}

func (r *MemoryRegistry) DeleteMap(ctx context.Context, name string) error {
	r.maps.Delete(name)
	return nil
}

func (r *MemoryRegistry) Close() error {
	r.maps.Clear()
	return nil
}

// MemoryStore is a concurrent in-process KeyValueStore. Atomicity of Update
// and GetOrPut comes from the sharded map's per-key Compute.
type MemoryStore struct {
	data *xsync.MapOf[string, string]
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: xsync.NewMapOf[string, string]()}
}

func (s *MemoryStore) Get(ctx context.Context, key string) (string, bool, error) {
	value, found := s.data.Load(key)
	return value, found, nil
}

func (s *MemoryStore) Put(ctx context.Context, key, value string) (string, bool, error) {
	previous, replaced := s.data.LoadAndStore(key, value)
	if !replaced {
		return "", false, nil
	}
	return previous, true, nil
}

func (s *MemoryStore) Remove(ctx context.Context, key string) (string, bool, error) {
	removed, existed := s.data.LoadAndDelete(key)
	if !existed {
		return "", false, nil
	}
	return removed, true, nil
}

func (s *MemoryStore) ContainsKey(ctx context.Context, key string) (bool, error) {
	_, found := s.data.Load(key)
	return found, nil
}

func (s *MemoryStore) Update(ctx context.Context, key, def string, updater func(string) string) (UpdateResult, error) {
	var result UpdateResult
	s.data.Compute(key, func(old string, loaded bool) (string, bool) {
		if !loaded {
			result = UpdateResult{Value: def}
			return def, false
		}
		prior := old
		next := updater(prior)
		result = UpdateResult{Previous: &prior, Value: next}
		return next, false
	})
	return result, nil
}

func (s *MemoryStore) GetOrPut(ctx context.Context, key string, def func() string) (string, error) {
	value, _ := s.data.LoadOrCompute(key, def)
	return value, nil
}

func (s *MemoryStore) Entries(ctx context.Context, fn func(key, value string) (bool, error)) error {
	var err error
	s.data.Range(func(key, value string) bool {
		var more bool
		more, err = fn(key, value)
		return more && err == nil
	})
	return err
}

func (s *MemoryStore) Size(ctx context.Context) (int64, error) {
	return int64(s.data.Size()), nil
}

func (s *MemoryStore) IsEmpty(ctx context.Context) (bool, error) {
	return s.data.Size() == 0, nil
}

func (s *MemoryStore) Clear(ctx context.Context) error {
	s.data.Clear()
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
