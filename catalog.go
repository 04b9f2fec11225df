package docstore

import (
	"context"
	"encoding/json"
)

// indexCatalog is the per-database registry of active index selectors:
// collection name → ordered list of selectors. A selector appears here only
// after its backfill completed, so a backing index map without a catalog
// entry is garbage, never an index.
type indexCatalog struct {
	kv KeyValueStore
}

func (c *indexCatalog) selectors(ctx context.Context, collection string) ([]string, error) {
	text, found, err := c.kv.Get(ctx, collection)
	if err != nil || !found {
		return nil, err
	}
	var selectors []string
	if err := json.Unmarshal([]byte(text), &selectors); err != nil {
		return nil, WithContext(ErrInvalidData, map[string]interface{}{
			"collection": collection,
			"reason":     err.Error(),
		})
	}
	return selectors, nil
}

func (c *indexCatalog) contains(ctx context.Context, collection, selector string) (bool, error) {
	selectors, err := c.selectors(ctx, collection)
	if err != nil {
		return false, err
	}
	for _, s := range selectors {
		if s == selector {
			return true, nil
		}
	}
	return false, nil
}

// append registers selector for collection. Append-only: callers check for
// duplicates under the collection lock first.
func (c *indexCatalog) append(ctx context.Context, collection, selector string) error {
	selectors, err := c.selectors(ctx, collection)
	if err != nil {
		return err
	}
	selectors = append(selectors, selector)
	data, err := json.Marshal(selectors)
	if err != nil {
		return err
	}
	_, _, err = c.kv.Put(ctx, collection, string(data))
	return err
}

func (c *indexCatalog) remove(ctx context.Context, collection, selector string) error {
	selectors, err := c.selectors(ctx, collection)
	if err != nil {
		return err
	}
	kept := selectors[:0]
	for _, s := range selectors {
		if s != selector {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		_, _, err = c.kv.Remove(ctx, collection)
		return err
	}
	data, err := json.Marshal(kept)
	if err != nil {
		return err
	}
	_, _, err = c.kv.Put(ctx, collection, string(data))
	return err
}

func (c *indexCatalog) drop(ctx context.Context, collection string) error {
	_, _, err := c.kv.Remove(ctx, collection)
	return err
}
