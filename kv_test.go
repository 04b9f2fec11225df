package docstore

import (
	"context"
	"fmt"
	"testing"
)

// testKeyValueStoreContract runs the behavior every engine must provide.
// Engine test files call it with a freshly opened empty store.
func testKeyValueStoreContract(t *testing.T, store KeyValueStore) {
	ctx := context.Background()

	t.Run("GetMissing", func(t *testing.T) {
		value, found, err := store.Get(ctx, "missing")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if found || value != "" {
			t.Errorf("expected absent, got value=%q found=%v", value, found)
		}
	})

	t.Run("PutReportsPrevious", func(t *testing.T) {
		prev, replaced, err := store.Put(ctx, "k", "v1")
		if err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		if replaced || prev != "" {
			t.Errorf("first put: prev=%q replaced=%v", prev, replaced)
		}

		prev, replaced, err = store.Put(ctx, "k", "v2")
		if err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		if !replaced || prev != "v1" {
			t.Errorf("second put: prev=%q replaced=%v", prev, replaced)
		}

		value, found, err := store.Get(ctx, "k")
		if err != nil || !found || value != "v2" {
			t.Errorf("Get: value=%q found=%v err=%v", value, found, err)
		}
	})

	t.Run("ContainsKey", func(t *testing.T) {
		ok, err := store.ContainsKey(ctx, "k")
		if err != nil || !ok {
			t.Errorf("expected key present: ok=%v err=%v", ok, err)
		}
		ok, err = store.ContainsKey(ctx, "other")
		if err != nil || ok {
			t.Errorf("expected key absent: ok=%v err=%v", ok, err)
		}
	})

	t.Run("RemoveReportsRemoved", func(t *testing.T) {
		removed, existed, err := store.Remove(ctx, "k")
		if err != nil {
			t.Fatalf("Remove failed: %v", err)
		}
		if !existed || removed != "v2" {
			t.Errorf("Remove: removed=%q existed=%v", removed, existed)
		}

		_, existed, err = store.Remove(ctx, "k")
		if err != nil {
			t.Fatalf("Remove failed: %v", err)
		}
		if existed {
			t.Error("second remove should report absent")
		}
	})

	t.Run("UpdateAbsentStoresDefault", func(t *testing.T) {
		res, err := store.Update(ctx, "counter", "10", func(prior string) string {
			t.Error("updater must not run for an absent key")
			return prior
		})
		if err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		if res.Previous != nil || res.Value != "10" {
			t.Errorf("absent update: %+v", res)
		}
	})

	t.Run("UpdatePresentAppliesFunction", func(t *testing.T) {
		res, err := store.Update(ctx, "counter", "10", func(prior string) string {
			return prior + "0"
		})
		if err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		if res.Previous == nil || *res.Previous != "10" || res.Value != "100" {
			t.Errorf("present update: %+v", res)
		}

		value, _, err := store.Get(ctx, "counter")
		if err != nil || value != "100" {
			t.Errorf("persisted value: %q err=%v", value, err)
		}
	})

	t.Run("GetOrPut", func(t *testing.T) {
		value, err := store.GetOrPut(ctx, "counter", func() string { return "ignored" })
		if err != nil || value != "100" {
			t.Errorf("existing: %q err=%v", value, err)
		}
		value, err = store.GetOrPut(ctx, "fresh", func() string { return "new" })
		if err != nil || value != "new" {
			t.Errorf("missing: %q err=%v", value, err)
		}
	})

	t.Run("EntriesAndSize", func(t *testing.T) {
		if err := store.Clear(ctx); err != nil {
			t.Fatalf("Clear failed: %v", err)
		}
		for i := 0; i < 5; i++ {
			key := fmt.Sprintf("e%d", i)
			if _, _, err := store.Put(ctx, key, "v"); err != nil {
				t.Fatalf("Put failed: %v", err)
			}
		}

		size, err := store.Size(ctx)
		if err != nil || size != 5 {
			t.Errorf("Size: %d err=%v", size, err)
		}
		empty, err := store.IsEmpty(ctx)
		if err != nil || empty {
			t.Errorf("IsEmpty: %v err=%v", empty, err)
		}

		seen := 0
		err = store.Entries(ctx, func(key, value string) (bool, error) {
			seen++
			return true, nil
		})
		if err != nil || seen != 5 {
			t.Errorf("Entries: seen=%d err=%v", seen, err)
		}

		// Early stop.
		seen = 0
		err = store.Entries(ctx, func(key, value string) (bool, error) {
			seen++
			return seen < 2, nil
		})
		if err != nil || seen != 2 {
			t.Errorf("early stop: seen=%d err=%v", seen, err)
		}
	})

	t.Run("Clear", func(t *testing.T) {
		if err := store.Clear(ctx); err != nil {
			t.Fatalf("Clear failed: %v", err)
		}
		empty, err := store.IsEmpty(ctx)
		if err != nil || !empty {
			t.Errorf("expected empty after clear: %v err=%v", empty, err)
		}
	})
}
