package docstore

import (
	"context"
	"sync"
	"time"
)

// Collection provides CRUD over JSON documents keyed by a generic identifier,
// with secondary index maintenance and selector-based equality queries.
//
// All write operations (Insert, RemoveByID, RemoveWhere, UpdateByID,
// CreateIndex, DropIndex, Clear) serialize through one mutex scoped to this
// instance, so at most one writer mutates documents and indexes at a time and
// no writer observes a half-updated index. Reads (FindByID, Find, GetIndex)
// do not take the lock: there is no snapshot isolation, and a concurrent
// reader may observe a document before or after the index update tied to the
// same write.
type Collection[K comparable] struct {
	name       string
	idProperty string
	docs       *TypedMap[K]
	registry   StoreRegistry
	catalog    *indexCatalog
	generator  *IDGenerator[K]
	codec      Codec[K]
	logger     Logger
	metrics    Metrics
	mu         sync.Mutex
}

// Name returns the collection name.
func (c *Collection[K]) Name() string { return c.name }

// IDProperty returns the document property holding the identifier.
func (c *Collection[K]) IDProperty() string { return c.idProperty }

// Insert stores doc under the identifier found in its id property; a prior
// document under the same identifier is overwritten. Inserting a document
// without an identifier is a caller error (ErrNoIdentifier): use
// InsertWithGenerator to have one issued. Returns the stored document.
func (c *Collection[K]) Insert(ctx context.Context, doc Document) (Document, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id, encodedID, found, err := c.extractID(doc)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, WithContext(ErrNoIdentifier, map[string]interface{}{
			"collection": c.name,
			"idProperty": c.idProperty,
		})
	}
	return c.insertLocked(ctx, doc, id, encodedID)
}

// InsertWithGenerator behaves like Insert, except that a document without an
// identifier gets one issued by the per-collection generator: the first
// issued identifier is next(seed), later ones next(previous).
func (c *Collection[K]) InsertWithGenerator(ctx context.Context, doc Document, seed K, next func(K) K) (Document, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id, encodedID, found, err := c.extractID(doc)
	if err != nil {
		return nil, err
	}
	if !found {
		generated, err := c.generator.Update(ctx, c.name, next(seed), next)
		if err != nil {
			return nil, err
		}
		id = generated.Value
		if encodedID, err = c.codec.EncodeToString(id); err != nil {
			return nil, err
		}
		if err := c.attachID(doc, encodedID); err != nil {
			return nil, err
		}
		c.metrics.Increment(MetricIDGenerated, "collection", c.name)
	}
	return c.insertLocked(ctx, doc, id, encodedID)
}

// insertLocked writes the document and maintains every catalogued index:
// the bucket for the previous value (if the identifier was already present)
// loses the identity hash, the bucket for the new value gains it. Caller
// holds the lock.
func (c *Collection[K]) insertLocked(ctx context.Context, doc Document, id K, encodedID string) (Document, error) {
	start := time.Now()

	text, err := encodeDocument(doc)
	if err != nil {
		c.metrics.Increment(MetricInsertError, "collection", c.name)
		return nil, err
	}

	prevText, replaced, err := c.docs.Put(ctx, id, text)
	if err != nil {
		c.metrics.Increment(MetricInsertError, "collection", c.name)
		return nil, err
	}

	var prev Document
	if replaced {
		if prev, err = decodeDocument(prevText); err != nil {
			c.logger.Warn("overwritten document is not valid JSON, stale index buckets possible",
				"collection", c.name, "error", err)
			prev = nil
		}
	}

	hash := IdentityHash(encodedID)
	selectors, err := c.catalog.selectors(ctx, c.name)
	if err != nil {
		return nil, err
	}
	for _, selector := range selectors {
		idx, err := c.openIndex(ctx, selector)
		if err != nil {
			return nil, err
		}
		if prev != nil {
			if err := c.discardFrom(ctx, idx, selector, prev, hash); err != nil {
				return nil, err
			}
		}
		if value, ok := Lookup(doc, selector); ok {
			encoded, err := encodeValue(value)
			if err != nil {
				return nil, err
			}
			if err := idx.add(ctx, encoded, hash); err != nil {
				c.metrics.Increment(MetricIndexErrors, "collection", c.name, "selector", selector)
				return nil, err
			}
			c.metrics.Increment(MetricIndexUpdate, "collection", c.name, "selector", selector)
		}
	}

	c.metrics.Increment(MetricInsertSuccess, "collection", c.name)
	c.metrics.Timing(MetricInsertDuration, time.Since(start), "collection", c.name)
	c.logger.Debug("document inserted", "collection", c.name, "id", encodedID)
	return doc, nil
}

// FindByID returns the document stored under id, or ErrNotFound. Lock-free
// point lookup.
func (c *Collection[K]) FindByID(ctx context.Context, id K) (Document, error) {
	text, found, err := c.docs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}
	return decodeDocument(text)
}

// Find returns every document whose value at selector equals value.
//
// This is always a full collection scan. Secondary indexes hold identity
// hashes, not identifiers, so for an open-ended identifier type the index
// cannot yield concrete documents; it answers membership and cardinality
// only. The scan is the documented cost of unconstrained identifier types,
// not an oversight.
func (c *Collection[K]) Find(ctx context.Context, selector string, value interface{}) ([]Document, error) {
	start := time.Now()

	target, err := encodeValue(value)
	if err != nil {
		return nil, err
	}

	var results []Document
	err = c.docs.Raw().Entries(ctx, func(_, text string) (bool, error) {
		doc, err := decodeDocument(text)
		if err != nil {
			c.logger.Warn("skipping undecodable document during scan",
				"collection", c.name, "error", err)
			return true, nil
		}
		v, ok := Lookup(doc, selector)
		if !ok {
			return true, nil
		}
		encoded, err := encodeValue(v)
		if err != nil {
			return false, err
		}
		if encoded == target {
			results = append(results, doc)
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	c.metrics.Increment(MetricFindScans, "collection", c.name)
	c.metrics.Timing(MetricFindDuration, time.Since(start), "collection", c.name)
	c.metrics.Histogram(MetricFindResults, float64(len(results)), "collection", c.name)
	return results, nil
}

// RemoveByID deletes the document stored under id and discards its identity
// hash from every index bucket it occupied. Returns the removed document, or
// ErrNotFound.
func (c *Collection[K]) RemoveByID(ctx context.Context, id K) (Document, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.removeLocked(ctx, id)
}

func (c *Collection[K]) removeLocked(ctx context.Context, id K) (Document, error) {
	start := time.Now()

	encodedID, err := c.codec.EncodeToString(id)
	if err != nil {
		return nil, err
	}

	text, existed, err := c.docs.Remove(ctx, id)
	if err != nil {
		c.metrics.Increment(MetricRemoveError, "collection", c.name)
		return nil, err
	}
	if !existed {
		return nil, ErrNotFound
	}

	doc, err := decodeDocument(text)
	if err != nil {
		return nil, err
	}

	hash := IdentityHash(encodedID)
	selectors, err := c.catalog.selectors(ctx, c.name)
	if err != nil {
		return nil, err
	}
	for _, selector := range selectors {
		idx, err := c.openIndex(ctx, selector)
		if err != nil {
			return nil, err
		}
		if err := c.discardFrom(ctx, idx, selector, doc, hash); err != nil {
			return nil, err
		}
	}

	c.metrics.Increment(MetricRemoveSuccess, "collection", c.name)
	c.metrics.Timing(MetricRemoveDuration, time.Since(start), "collection", c.name)
	c.logger.Debug("document removed", "collection", c.name, "id", encodedID)
	return doc, nil
}

// RemoveWhere deletes every document whose value at selector equals value,
// reporting whether any removal occurred.
func (c *Collection[K]) RemoveWhere(ctx context.Context, selector string, value interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	target, err := encodeValue(value)
	if err != nil {
		return false, err
	}

	var ids []K
	err = c.docs.Entries(ctx, func(id K, text string) (bool, error) {
		doc, err := decodeDocument(text)
		if err != nil {
			c.logger.Warn("skipping undecodable document during scan",
				"collection", c.name, "error", err)
			return true, nil
		}
		v, ok := Lookup(doc, selector)
		if !ok {
			return true, nil
		}
		encoded, err := encodeValue(v)
		if err != nil {
			return false, err
		}
		if encoded == target {
			ids = append(ids, id)
		}
		return true, nil
	})
	if err != nil {
		return false, err
	}

	for _, id := range ids {
		if _, err := c.removeLocked(ctx, id); err != nil {
			return false, err
		}
	}
	return len(ids) > 0, nil
}

// UpdateByID loads the document stored under id, applies updater and
// re-inserts the result under the same identifier. Re-insertion re-runs full
// index maintenance for every catalogued selector, not only ones whose value
// changed: correctness over efficiency. Returns ErrNotFound when the document
// is absent or the updater yields nil (no-op).
func (c *Collection[K]) UpdateByID(ctx context.Context, id K, updater func(Document) (Document, error)) (Document, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := time.Now()

	text, found, err := c.docs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}

	doc, err := decodeDocument(text)
	if err != nil {
		return nil, err
	}

	updated, err := updater(doc)
	if err != nil {
		c.metrics.Increment(MetricUpdateError, "collection", c.name)
		return nil, err
	}
	if updated == nil {
		return nil, ErrNotFound
	}

	encodedID, err := c.codec.EncodeToString(id)
	if err != nil {
		return nil, err
	}
	if err := c.attachID(updated, encodedID); err != nil {
		return nil, err
	}

	stored, err := c.insertLocked(ctx, updated, id, encodedID)
	if err != nil {
		return nil, err
	}
	c.metrics.Increment(MetricUpdateSuccess, "collection", c.name)
	c.metrics.Timing(MetricUpdateDuration, time.Since(start), "collection", c.name)
	return stored, nil
}

// CreateIndex builds a secondary index over selector. Returns immediately if
// the selector is already catalogued. Existing documents are backfilled in
// batches of DefaultIndexBatchSize to avoid one unbounded operation; the
// selector joins the catalog only after the full backfill completes. An
// orphaned index map left by an interrupted backfill is discarded and rebuilt
// on the next attempt.
func (c *Collection[K]) CreateIndex(ctx context.Context, selector string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	exists, err := c.catalog.contains(ctx, c.name, selector)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	start := time.Now()

	idx, err := c.openIndex(ctx, selector)
	if err != nil {
		return err
	}
	// A map without a catalog entry is garbage from an interrupted backfill.
	if err := idx.kv.Clear(ctx); err != nil {
		return err
	}

	groups := make(map[string]hashSet)
	batched := 0
	flush := func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := idx.addAll(ctx, groups); err != nil {
			return err
		}
		groups = make(map[string]hashSet)
		batched = 0
		return nil
	}

	err = c.docs.Raw().Entries(ctx, func(encodedID, text string) (bool, error) {
		doc, err := decodeDocument(text)
		if err != nil {
			c.logger.Warn("skipping undecodable document during index backfill",
				"collection", c.name, "selector", selector, "error", err)
			return true, nil
		}
		value, ok := Lookup(doc, selector)
		if !ok {
			return true, nil
		}
		encoded, err := encodeValue(value)
		if err != nil {
			return false, err
		}
		set, ok := groups[encoded]
		if !ok {
			set = make(hashSet)
			groups[encoded] = set
		}
		set[IdentityHash(encodedID)] = struct{}{}

		if batched++; batched >= DefaultIndexBatchSize {
			return true, flush()
		}
		return true, nil
	})
	if err != nil {
		return err
	}
	if len(groups) > 0 {
		if err := flush(); err != nil {
			return err
		}
	}

	if err := c.catalog.append(ctx, c.name, selector); err != nil {
		return err
	}

	if buckets, err := idx.kv.Size(ctx); err == nil {
		c.metrics.Gauge(MetricIndexedBuckets, float64(buckets),
			"collection", c.name, "selector", selector)
	}
	c.metrics.Increment(MetricIndexCreate, "collection", c.name, "selector", selector)
	c.metrics.Timing(MetricIndexBackfill, time.Since(start), "collection", c.name, "selector", selector)
	c.logger.Info("index created", "collection", c.name, "selector", selector)
	return nil
}

// DropIndex deletes the backing index map and removes selector from the
// catalog. Dropping a selector that was never indexed is a no-op (the delete
// also collects any orphaned map).
func (c *Collection[K]) DropIndex(ctx context.Context, selector string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.registry.DeleteMap(ctx, indexMapName(c.name, selector)); err != nil {
		return err
	}
	exists, err := c.catalog.contains(ctx, c.name, selector)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}
	if err := c.catalog.remove(ctx, c.name, selector); err != nil {
		return err
	}
	c.metrics.Increment(MetricIndexDrop, "collection", c.name, "selector", selector)
	c.logger.Info("index dropped", "collection", c.name, "selector", selector)
	return nil
}

// GetIndex materializes the secondary index for selector, or ErrNotFound if
// the selector is not catalogued. Lock-free.
func (c *Collection[K]) GetIndex(ctx context.Context, selector string) (IndexBuckets, error) {
	exists, err := c.catalog.contains(ctx, c.name, selector)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrNotFound
	}
	idx, err := c.openIndex(ctx, selector)
	if err != nil {
		return nil, err
	}
	return idx.buckets(ctx)
}

// IndexNames returns the catalogued selectors for this collection.
func (c *Collection[K]) IndexNames(ctx context.Context) ([]string, error) {
	return c.catalog.selectors(ctx, c.name)
}

// Size returns the number of stored documents.
func (c *Collection[K]) Size(ctx context.Context) (int64, error) {
	return c.docs.Size(ctx)
}

// CollectionDetails is the read-only introspection of a collection: document
// count plus the distinct-value bucket count of every catalogued index.
type CollectionDetails struct {
	Name         string         `json:"name"`
	IDProperty   string         `json:"id_property"`
	Documents    int64          `json:"documents"`
	IndexBuckets map[string]int `json:"index_buckets"`
}

// Details reports collection introspection.
func (c *Collection[K]) Details(ctx context.Context) (CollectionDetails, error) {
	details := CollectionDetails{
		Name:         c.name,
		IDProperty:   c.idProperty,
		IndexBuckets: make(map[string]int),
	}

	size, err := c.docs.Size(ctx)
	if err != nil {
		return details, err
	}
	details.Documents = size

	selectors, err := c.catalog.selectors(ctx, c.name)
	if err != nil {
		return details, err
	}
	for _, selector := range selectors {
		idx, err := c.openIndex(ctx, selector)
		if err != nil {
			return details, err
		}
		buckets, err := idx.kv.Size(ctx)
		if err != nil {
			return details, err
		}
		details.IndexBuckets[selector] = int(buckets)
	}
	return details, nil
}

// Clear empties the document map and resets every catalogued index map.
// Catalog entries survive, so indexes keep tracking documents inserted after
// the clear.
func (c *Collection[K]) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.docs.Clear(ctx); err != nil {
		return err
	}
	selectors, err := c.catalog.selectors(ctx, c.name)
	if err != nil {
		return err
	}
	for _, selector := range selectors {
		idx, err := c.openIndex(ctx, selector)
		if err != nil {
			return err
		}
		if err := idx.kv.Clear(ctx); err != nil {
			return err
		}
	}
	c.logger.Info("collection cleared", "collection", c.name)
	return nil
}

// lock and unlock expose the collection mutex to Database.DropCollection,
// which must exclude writers while tearing maps down.
func (c *Collection[K]) lock()   { c.mu.Lock() }
func (c *Collection[K]) unlock() { c.mu.Unlock() }

// openIndex returns the secondary index for selector, creating the backing
// map if absent.
func (c *Collection[K]) openIndex(ctx context.Context, selector string) (*secondaryIndex, error) {
	kv, err := c.registry.GetMap(ctx, indexMapName(c.name, selector))
	if err != nil {
		return nil, err
	}
	return &secondaryIndex{kv: kv}, nil
}

// discardFrom removes hash from the bucket doc occupies at selector, if any.
func (c *Collection[K]) discardFrom(ctx context.Context, idx *secondaryIndex, selector string, doc Document, hash uint64) error {
	value, ok := Lookup(doc, selector)
	if !ok {
		return nil
	}
	encoded, err := encodeValue(value)
	if err != nil {
		return err
	}
	if err := idx.discard(ctx, encoded, hash); err != nil {
		c.metrics.Increment(MetricIndexErrors, "collection", c.name, "selector", selector)
		return err
	}
	return nil
}

// extractID pulls the identifier out of doc's id property. Absent or null
// identifiers report found=false; a present identifier that cannot decode to
// K is an error.
func (c *Collection[K]) extractID(doc Document) (K, string, bool, error) {
	var zero K
	raw, ok := doc[c.idProperty]
	if !ok || raw == nil {
		return zero, "", false, nil
	}
	encoded, err := encodeValue(raw)
	if err != nil {
		return zero, "", false, err
	}
	id, err := c.codec.DecodeString(encoded)
	if err != nil {
		return zero, "", false, WithContext(ErrInvalidData, map[string]interface{}{
			"collection": c.name,
			"idProperty": c.idProperty,
			"reason":     err.Error(),
		})
	}
	return id, encoded, true, nil
}

// attachID sets doc's id property from the canonical encoding, so the stored
// document carries the identifier exactly as the codec renders it.
func (c *Collection[K]) attachID(doc Document, encodedID string) error {
	value, err := decodeJSONValue(encodedID)
	if err != nil {
		return err
	}
	doc[c.idProperty] = value
	return nil
}
