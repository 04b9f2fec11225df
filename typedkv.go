package docstore

import "context"

// TypedMap wraps a string-keyed KeyValueStore to expose a map keyed by a
// generic serializable type K. Keys pass through the codec's canonical string
// form on every operation; value semantics are unchanged. This is what lets a
// collection store documents under non-string identifiers while the backing
// map only understands strings.
type TypedMap[K any] struct {
	kv    KeyValueStore
	codec Codec[K]
}

// NewTypedMap wraps kv with key translation through codec.
func NewTypedMap[K any](kv KeyValueStore, codec Codec[K]) *TypedMap[K] {
	return &TypedMap[K]{kv: kv, codec: codec}
}

// Raw returns the wrapped string-keyed store.
func (m *TypedMap[K]) Raw() KeyValueStore {
	return m.kv
}

func (m *TypedMap[K]) Get(ctx context.Context, key K) (string, bool, error) {
	k, err := m.codec.EncodeToString(key)
	if err != nil {
		return "", false, err
	}
	return m.kv.Get(ctx, k)
}

func (m *TypedMap[K]) Put(ctx context.Context, key K, value string) (string, bool, error) {
	k, err := m.codec.EncodeToString(key)
	if err != nil {
		return "", false, err
	}
	return m.kv.Put(ctx, k, value)
}

func (m *TypedMap[K]) Remove(ctx context.Context, key K) (string, bool, error) {
	k, err := m.codec.EncodeToString(key)
	if err != nil {
		return "", false, err
	}
	return m.kv.Remove(ctx, k)
}

func (m *TypedMap[K]) ContainsKey(ctx context.Context, key K) (bool, error) {
	k, err := m.codec.EncodeToString(key)
	if err != nil {
		return false, err
	}
	return m.kv.ContainsKey(ctx, k)
}

func (m *TypedMap[K]) Update(ctx context.Context, key K, def string, updater func(string) string) (UpdateResult, error) {
	k, err := m.codec.EncodeToString(key)
	if err != nil {
		return UpdateResult{}, err
	}
	return m.kv.Update(ctx, k, def, updater)
}

func (m *TypedMap[K]) GetOrPut(ctx context.Context, key K, def func() string) (string, error) {
	k, err := m.codec.EncodeToString(key)
	if err != nil {
		return "", err
	}
	return m.kv.GetOrPut(ctx, k, def)
}

// Entries iterates all pairs, decoding each key back through the codec.
func (m *TypedMap[K]) Entries(ctx context.Context, fn func(key K, value string) (bool, error)) error {
	return m.kv.Entries(ctx, func(k, v string) (bool, error) {
		key, err := m.codec.DecodeString(k)
		if err != nil {
			return false, err
		}
		return fn(key, v)
	})
}

func (m *TypedMap[K]) Size(ctx context.Context) (int64, error) {
	return m.kv.Size(ctx)
}

func (m *TypedMap[K]) IsEmpty(ctx context.Context) (bool, error) {
	return m.kv.IsEmpty(ctx)
}

func (m *TypedMap[K]) Clear(ctx context.Context) error {
	return m.kv.Clear(ctx)
}

func (m *TypedMap[K]) Close() error {
	return m.kv.Close()
}
