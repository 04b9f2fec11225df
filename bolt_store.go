package docstore

import (
	"context"
	"errors"
	"os"

	"go.etcd.io/bbolt"
)

// BoltRegistry persists named maps as buckets of one bbolt file. This is the
// ordered, disk-backed engine: single process, full durability, atomic
// updates through write transactions.
type BoltRegistry struct {
	db *bbolt.DB
}

// OpenBoltRegistry opens (creating if necessary) the bbolt file at path.
func OpenBoltRegistry(path string, mode os.FileMode, opts *bbolt.Options) (*BoltRegistry, error) {
	db, err := bbolt.Open(path, mode, opts)
	if err != nil {
		return nil, err
	}
	return &BoltRegistry{db: db}, nil
}

// NewBoltRegistry wraps an already-open bbolt database.
func NewBoltRegistry(db *bbolt.DB) *BoltRegistry {
	return &BoltRegistry{db: db}
}

func (r *BoltRegistry) GetMap(ctx context.Context, name string) (KeyValueStore, error) {
	err := r.db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(name))
		return err
	})
	if errors.Is(err, bbolt.ErrDatabaseNotOpen) {
		return nil, WithContext(ErrStoreClosed, map[string]interface{}{"map": name})
	}
	if err != nil {
		return nil, err
	}
	return &BoltStore{db: r.db, bucket: []byte(name)}, nil
}

func (r *BoltRegistry) DeleteMap(ctx context.Context, name string) error {
	err := r.db.Update(func(tx *bbolt.Tx) error {
		return tx.DeleteBucket([]byte(name))
	})
	if errors.Is(err, bbolt.ErrBucketNotFound) {
		return nil
	}
	return err
}

func (r *BoltRegistry) Close() error {
	return r.db.Close()
}

// BoltStore is one named map inside a BoltRegistry's file. Every operation
// runs in its own transaction; Update and GetOrPut are atomic because bbolt
// serializes write transactions.
type BoltStore struct {
	db     *bbolt.DB
	bucket []byte
}

// errStopIteration signals early termination inside ForEach.
var errStopIteration = errors.New("stop iteration")

func (s *BoltStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	var found bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if b == nil {
			return bbolt.ErrBucketNotFound
		}
		if data := b.Get([]byte(key)); data != nil {
			value = string(data)
			found = true
		}
		return nil
	})
	return value, found, err
}

func (s *BoltStore) Put(ctx context.Context, key, value string) (string, bool, error) {
	var previous string
	var replaced bool
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if b == nil {
			return bbolt.ErrBucketNotFound
		}
		if data := b.Get([]byte(key)); data != nil {
			previous = string(data)
			replaced = true
		}
		return b.Put([]byte(key), []byte(value))
	})
	if err != nil {
		return "", false, err
	}
	return previous, replaced, nil
}

func (s *BoltStore) Remove(ctx context.Context, key string) (string, bool, error) {
	var removed string
	var existed bool
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if b == nil {
			return bbolt.ErrBucketNotFound
		}
		if data := b.Get([]byte(key)); data != nil {
			removed = string(data)
			existed = true
		}
		return b.Delete([]byte(key))
	})
	if err != nil {
		return "", false, err
	}
	return removed, existed, nil
}

func (s *BoltStore) ContainsKey(ctx context.Context, key string) (bool, error) {
	_, found, err := s.Get(ctx, key)
	return found, err
}

func (s *BoltStore) Update(ctx context.Context, key, def string, updater func(string) string) (UpdateResult, error) {
	var result UpdateResult
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if b == nil {
			return bbolt.ErrBucketNotFound
		}
		data := b.Get([]byte(key))
		if data == nil {
			result = UpdateResult{Value: def}
			return b.Put([]byte(key), []byte(def))
		}
		prior := string(data)
		next := updater(prior)
		result = UpdateResult{Previous: &prior, Value: next}
		return b.Put([]byte(key), []byte(next))
	})
	if err != nil {
		return UpdateResult{}, err
	}
	return result, nil
}

func (s *BoltStore) GetOrPut(ctx context.Context, key string, def func() string) (string, error) {
	var value string
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if b == nil {
			return bbolt.ErrBucketNotFound
		}
		if data := b.Get([]byte(key)); data != nil {
			value = string(data)
			return nil
		}
		value = def()
		return b.Put([]byte(key), []byte(value))
	})
	return value, err
}

func (s *BoltStore) Entries(ctx context.Context, fn func(key, value string) (bool, error)) error {
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if b == nil {
			return bbolt.ErrBucketNotFound
		}
		return b.ForEach(func(k, v []byte) error {
			more, err := fn(string(k), string(v))
			if err != nil {
				return err
			}
			if !more {
				return errStopIteration
			}
			return nil
		})
	})
	if errors.Is(err, errStopIteration) {
		return nil
	}
	return err
}

func (s *BoltStore) Size(ctx context.Context) (int64, error) {
	var size int64
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if b == nil {
			return bbolt.ErrBucketNotFound
		}
		size = int64(b.Stats().KeyN)
		return nil
	})
	return size, err
}

func (s *BoltStore) IsEmpty(ctx context.Context) (bool, error) {
	size, err := s.Size(ctx)
	return size == 0, err
}

func (s *BoltStore) Clear(ctx context.Context) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(s.bucket); err != nil && !errors.Is(err, bbolt.ErrBucketNotFound) {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(s.bucket)
		return err
	})
}

// Close is a no-op: the registry owns the file handle.
func (s *BoltStore) Close() error {
	return nil
}
