package docstore

import (
	"context"
	"sync"
)

// collectionsMapName tracks materialized collection names for listing.
const collectionsMapName = "docstore:collections"

// Database is the top-level handle over one backing store registry. It owns
// the shared catalog and ID-generator maps and caches one Collection instance
// per name, which is what scopes the per-collection write lock.
type Database struct {
	registry StoreRegistry
	logger   Logger
	metrics  Metrics

	mu          sync.Mutex
	collections map[string]collectionHandle
	catalog     *indexCatalog
	idGenKV     KeyValueStore
	namesKV     KeyValueStore
}

// collectionHandle is the type-erased view of a cached Collection.
type collectionHandle interface {
	lock()
	unlock()
}

// NewDatabase creates a database over registry with no-op logger and metrics
func NewDatabase(registry StoreRegistry) *Database {
	return &Database{
		registry:    registry,
		logger:      &NoOpLogger{},
		metrics:     &NoOpMetrics{},
		collections: make(map[string]collectionHandle),
	}
}

// NewDatabaseWithLogger creates a database with a custom logger
func NewDatabaseWithLogger(registry StoreRegistry, logger Logger) *Database {
	db := NewDatabase(registry)
	db.logger = logger
	return db
}

// NewDatabaseWithObservability creates a database with logging and metrics
func NewDatabaseWithObservability(registry StoreRegistry, logger Logger, metrics Metrics) *Database {
	db := NewDatabase(registry)
	db.logger = logger
	db.metrics = metrics
	return db
}

// SetLogger updates the logger for this database
func (db *Database) SetLogger(logger Logger) {
	db.logger = logger
}

// SetMetrics updates the metrics collector for this database
func (db *Database) SetMetrics(metrics Metrics) {
	db.metrics = metrics
}

// CollectionOption configures a collection on first materialization.
type CollectionOption func(*collectionConfig)

type collectionConfig struct {
	idProperty string
}

// WithIDProperty overrides the document property holding the identifier
// (default "_id").
func WithIDProperty(property string) CollectionOption {
	return func(cfg *collectionConfig) {
		cfg.idProperty = property
	}
}

// CollectionOf materializes the named collection with identifiers of type K.
// Collections are created lazily on first access; repeated calls return the
// same instance, and options only apply on the first one. Re-opening a name
// under a different identifier type is an error (the write lock lives on the
// instance, so two differently-typed views of one collection would race).
func CollectionOf[K comparable](ctx context.Context, db *Database, name string, codec Codec[K], opts ...CollectionOption) (*Collection[K], error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if cached, ok := db.collections[name]; ok {
		coll, ok := cached.(*Collection[K])
		if !ok {
			return nil, WithContext(ErrTypeMismatch, map[string]interface{}{
				"collection": name,
			})
		}
		return coll, nil
	}

	cfg := collectionConfig{idProperty: DefaultIDProperty}
	for _, opt := range opts {
		opt(&cfg)
	}

	if err := db.openSharedMaps(ctx); err != nil {
		return nil, err
	}

	docKV, err := db.registry.GetMap(ctx, collectionMapName(name))
	if err != nil {
		return nil, err
	}
	if _, _, err := db.namesKV.Put(ctx, name, "{}"); err != nil {
		return nil, err
	}

	coll := &Collection[K]{
		name:       name,
		idProperty: cfg.idProperty,
		docs:       NewTypedMap(docKV, codec),
		registry:   db.registry,
		catalog:    db.catalog,
		generator:  NewIDGenerator(db.idGenKV, codec),
		codec:      codec,
		logger:     db.logger,
		metrics:    db.metrics,
	}
	db.collections[name] = coll
	db.logger.Debug("collection materialized", "collection", name, "idProperty", cfg.idProperty)
	return coll, nil
}

// Collection materializes a string-keyed collection with the default JSON
// codec, the common case for UUID identifiers.
func (db *Database) Collection(ctx context.Context, name string, opts ...CollectionOption) (*Collection[string], error) {
	return CollectionOf[string](ctx, db, name, JSONCodec[string]{}, opts...)
}

// Int64Collection materializes a collection with sequential numeric
// identifiers.
func (db *Database) Int64Collection(ctx context.Context, name string, opts ...CollectionOption) (*Collection[int64], error) {
	return CollectionOf[int64](ctx, db, name, JSONCodec[int64]{}, opts...)
}

// Collections lists the names of all collections this database has
// materialized, including ones from previous processes over the same backing
// store.
func (db *Database) Collections(ctx context.Context) ([]string, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if err := db.openSharedMaps(ctx); err != nil {
		return nil, err
	}
	var names []string
	err := db.namesKV.Entries(ctx, func(name, _ string) (bool, error) {
		names = append(names, name)
		return true, nil
	})
	return names, err
}

// DropCollection deletes the collection's document map, all its index maps
// and its catalog entry. ID-generator state survives, so a re-created
// collection keeps issuing fresh identifiers.
func (db *Database) DropCollection(ctx context.Context, name string) error {
	db.mu.Lock()
	handle := db.collections[name]
	delete(db.collections, name)
	if err := db.openSharedMaps(ctx); err != nil {
		db.mu.Unlock()
		return err
	}
	catalog := db.catalog
	namesKV := db.namesKV
	db.mu.Unlock()

	if handle != nil {
		handle.lock()
		defer handle.unlock()
	}

	selectors, err := catalog.selectors(ctx, name)
	if err != nil {
		return err
	}
	for _, selector := range selectors {
		if err := db.registry.DeleteMap(ctx, indexMapName(name, selector)); err != nil {
			return err
		}
	}
	if err := catalog.drop(ctx, name); err != nil {
		return err
	}
	if err := db.registry.DeleteMap(ctx, collectionMapName(name)); err != nil {
		return err
	}
	if _, _, err := namesKV.Remove(ctx, name); err != nil {
		return err
	}
	db.logger.Info("collection dropped", "collection", name)
	return nil
}

// Close releases the backing registry and every store it produced.
func (db *Database) Close() error {
	return db.registry.Close()
}

// openSharedMaps lazily opens the catalog, generator and name-tracking maps.
// Caller holds db.mu.
func (db *Database) openSharedMaps(ctx context.Context) error {
	if db.catalog != nil {
		return nil
	}
	catalogKV, err := db.registry.GetMap(ctx, catalogMapName)
	if err != nil {
		return err
	}
	idGenKV, err := db.registry.GetMap(ctx, idGenMapName)
	if err != nil {
		return err
	}
	namesKV, err := db.registry.GetMap(ctx, collectionsMapName)
	if err != nil {
		return err
	}
	db.catalog = &indexCatalog{kv: catalogKV}
	db.idGenKV = idGenKV
	db.namesKV = namesKV
	return nil
}
