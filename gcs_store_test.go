package docstore

import (
	"context"
	"os"
	"testing"
)

// TestIntegration_GCSStore needs a real bucket and Application Default
// Credentials (or GOOGLE_APPLICATION_CREDENTIALS):
//
//	TEST_GCS_BUCKET=your-test-bucket go test -run TestIntegration_GCSStore -v
func TestIntegration_GCSStore(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping GCS integration test in short mode")
	}
	bucket := os.Getenv("TEST_GCS_BUCKET")
	if bucket == "" {
		t.Skip("TEST_GCS_BUCKET not set")
	}

	ctx := context.Background()
	registry, err := NewGCSRegistry(ctx, GCSConfig{Bucket: bucket})
	if err != nil {
		t.Skipf("GCS client unavailable: %v", err)
	}
	t.Cleanup(func() { _ = registry.Close() })

	t.Run("Contract", func(t *testing.T) {
		name := "contract-" + NewID()
		store, err := registry.GetMap(ctx, name)
		if err != nil {
			t.Fatalf("GetMap failed: %v", err)
		}
		t.Cleanup(func() { _ = store.Clear(ctx) })
		testKeyValueStoreContract(t, store)
	})

	t.Run("ConditionalUpdate", func(t *testing.T) {
		store, err := registry.GetMap(ctx, "update-"+NewID())
		if err != nil {
			t.Fatalf("GetMap failed: %v", err)
		}
		t.Cleanup(func() { _ = store.Clear(ctx) })

		res, err := store.Update(ctx, "counter", "1", func(prior string) string {
			return prior + "1"
		})
		if err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		if res.Value != "1" {
			t.Errorf("expected default stored, got %q", res.Value)
		}

		res, err = store.Update(ctx, "counter", "1", func(prior string) string {
			return prior + "1"
		})
		if err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		if res.Value != "11" {
			t.Errorf("expected updater applied, got %q", res.Value)
		}
	})
}
