package docstore

import "context"

// KeyValueStore is the contract docstore requires from a backing map. One
// named store holds the documents of a single collection, a single secondary
// index, or one of the shared registry maps. Values are serialized JSON text.
//
// Every operation may suspend on I/O; implementations must honor context
// cancellation where their client libraries support it. Point operations must
// be safe for concurrent use from multiple goroutines.
type KeyValueStore interface {
	// Get returns the value for key, or found=false if absent.
	Get(ctx context.Context, key string) (value string, found bool, err error)

	// Put stores value under key and returns the previous value, if any.
	Put(ctx context.Context, key, value string) (previous string, replaced bool, err error)

	// Remove deletes key and returns the removed value, if any.
	Remove(ctx context.Context, key string) (removed string, existed bool, err error)

	// ContainsKey reports whether key is present.
	ContainsKey(ctx context.Context, key string) (bool, error)

	// Update atomically reads and replaces the value for key. If key is
	// absent, def itself is stored and the result carries no previous value;
	// the updater is not applied. Otherwise the updater is applied to the
	// prior value and its result stored.
	Update(ctx context.Context, key, def string, updater func(string) string) (UpdateResult, error)

	// GetOrPut returns the existing value for key, or atomically stores and
	// returns the value produced by def.
	GetOrPut(ctx context.Context, key string, def func() string) (string, error)

	// Entries iterates over all key-value pairs in unspecified order. The
	// callback returns false to stop early.
	Entries(ctx context.Context, fn func(key, value string) (bool, error)) error

	// Size returns the number of stored pairs.
	Size(ctx context.Context) (int64, error)

	// IsEmpty reports whether the store holds no pairs.
	IsEmpty(ctx context.Context) (bool, error)

	// Clear removes all pairs.
	Clear(ctx context.Context) error

	// Close releases underlying resources. The registry that produced the
	// store may share resources between stores; Close must be safe to call
	// on each.
	Close() error
}

// UpdateResult reports the outcome of KeyValueStore.Update.
type UpdateResult struct {
	// Previous is the prior value, nil when the key was absent and the
	// default was stored.
	Previous *string

	// Value is the value now stored.
	Value string
}

// StoreRegistry opens, creates and deletes named backing maps. One registry
// backs a whole Database; collection and index maps are materialized lazily
// through GetMap.
type StoreRegistry interface {
	// GetMap returns the named store, creating it if absent.
	GetMap(ctx context.Context, name string) (KeyValueStore, error)

	// DeleteMap removes the named store and all its contents.
	DeleteMap(ctx context.Context, name string) error

	// Close releases all resources held by the registry and its stores.
	Close() error
}
