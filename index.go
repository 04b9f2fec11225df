package docstore

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
)

// A secondary index is one backing map per (collection, selector): canonical
// value string → set of identity hashes of documents currently holding that
// value. Hashes are persisted as decimal strings because JSON numbers cannot
// carry a full uint64.

// IndexBuckets is the materialized view of one secondary index, keyed by the
// canonical value string with hashes in ascending order.
type IndexBuckets map[string][]uint64

type hashSet map[uint64]struct{}

func decodeHashSet(text string) (hashSet, error) {
	var raw []string
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, WithContext(ErrInvalidData, map[string]interface{}{
			"reason": err.Error(),
		})
	}
	set := make(hashSet, len(raw))
	for _, s := range raw {
		h, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return nil, WithContext(ErrInvalidData, map[string]interface{}{
				"reason": err.Error(),
			})
		}
		set[h] = struct{}{}
	}
	return set, nil
}

func encodeHashSet(set hashSet) string {
	hashes := set.sorted()
	raw := make([]string, len(hashes))
	for i, h := range hashes {
		raw[i] = strconv.FormatUint(h, 10)
	}
	data, _ := json.Marshal(raw)
	return string(data)
}

func (s hashSet) sorted() []uint64 {
	hashes := make([]uint64, 0, len(s))
	for h := range s {
		hashes = append(hashes, h)
	}
	sort.Slice(hashes, func(i, j int) bool { return hashes[i] < hashes[j] })
	return hashes
}

// secondaryIndex wraps the backing map of one (collection, selector) pair.
// Callers serialize mutations through the collection lock; the methods here
// only guarantee single-bucket consistency.
type secondaryIndex struct {
	kv KeyValueStore
}

// add inserts hash into the bucket for value, creating the bucket if absent.
func (idx *secondaryIndex) add(ctx context.Context, value string, hash uint64) error {
	current, found, err := idx.kv.Get(ctx, value)
	if err != nil {
		return err
	}

	set := make(hashSet)
	if found {
		if set, err = decodeHashSet(current); err != nil {
			return err
		}
	}
	set[hash] = struct{}{}

	_, _, err = idx.kv.Put(ctx, value, encodeHashSet(set))
	return err
}

// addAll merges a whole value→hash-set grouping, used by index backfill.
func (idx *secondaryIndex) addAll(ctx context.Context, groups map[string]hashSet) error {
	for value, hashes := range groups {
		current, found, err := idx.kv.Get(ctx, value)
		if err != nil {
			return err
		}
		set := hashes
		if found {
			if set, err = decodeHashSet(current); err != nil {
				return err
			}
			for h := range hashes {
				set[h] = struct{}{}
			}
		}
		if _, _, err := idx.kv.Put(ctx, value, encodeHashSet(set)); err != nil {
			return err
		}
	}
	return nil
}

// discard removes hash from the bucket for value. An empty bucket is deleted
// rather than left as an empty set.
func (idx *secondaryIndex) discard(ctx context.Context, value string, hash uint64) error {
	current, found, err := idx.kv.Get(ctx, value)
	if err != nil || !found {
		return err
	}

	set, err := decodeHashSet(current)
	if err != nil {
		return err
	}
	delete(set, hash)

	if len(set) == 0 {
		_, _, err = idx.kv.Remove(ctx, value)
		return err
	}
	_, _, err = idx.kv.Put(ctx, value, encodeHashSet(set))
	return err
}

// buckets materializes the whole index.
func (idx *secondaryIndex) buckets(ctx context.Context) (IndexBuckets, error) {
	out := make(IndexBuckets)
	err := idx.kv.Entries(ctx, func(value, text string) (bool, error) {
		set, err := decodeHashSet(text)
		if err != nil {
			return false, err
		}
		out[value] = set.sorted()
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
