package docstore

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// TestNewPrometheusMetrics tests creating Prometheus metrics
func TestNewPrometheusMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewPrometheusMetrics(registry)

	if metrics == nil {
		t.Fatal("expected PrometheusMetrics, got nil")
	}

	if metrics.registry != registry {
		t.Error("registry not set correctly")
	}

	// Verify default metrics were registered
	if len(metrics.counters) == 0 {
		t.Error("expected counters to be registered")
	}
	if len(metrics.gauges) == 0 {
		t.Error("expected gauges to be registered")
	}
	if len(metrics.histograms) == 0 {
		t.Error("expected histograms to be registered")
	}
}

// TestNewPrometheusMetricsWithNilRegistry tests using default registry
func TestNewPrometheusMetricsWithNilRegistry(t *testing.T) {
	// Note: This will use the default Prometheus registry
	// We can't easily test this without polluting the global registry
	// So we skip this test or use a custom registry
	t.Skip("Skipping test that would pollute default registry")
}

// TestPrometheusMetricsIncrement tests counter increments
func TestPrometheusMetricsIncrement(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewPrometheusMetrics(registry)

	// Test increment with labels (must match registered label count)
	metrics.Increment(MetricEngineOps, "operation", "get", "engine", "memory")
	metrics.Increment(MetricEngineOps, "operation", "put", "engine", "bolt")
	metrics.Increment(MetricEngineOps, "operation", "remove", "engine", "memory")

	// Verify metrics were recorded (by checking registry)
	metricFamilies, err := registry.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	// Should have at least the engine operations counter
	found := false
	for _, mf := range metricFamilies {
		if strings.Contains(mf.GetName(), "engine_operations_total") {
			found = true
			break
		}
	}
	if !found {
		t.Error("expected engine_operations_total metric to be registered")
	}
}

// TestPrometheusMetricsGauge tests gauge operations
func TestPrometheusMetricsGauge(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewPrometheusMetrics(registry)

	// Test gauge with labels (must match registered label count)
	metrics.Gauge(MetricIndexedBuckets, 5, "collection", "users", "selector", "email")
	metrics.Gauge(MetricIndexedBuckets, 12, "collection", "users", "selector", "email")
	metrics.Gauge(MetricIndexedBuckets, 3, "collection", "orders", "selector", "status")

	// Verify metrics were recorded
	metricFamilies, err := registry.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	found := false
	for _, mf := range metricFamilies {
		if strings.Contains(mf.GetName(), "index_buckets") {
			found = true
			break
		}
	}
	if !found {
		t.Error("expected index bucket gauge to be registered")
	}
}

// TestPrometheusMetricsHistogram tests histogram observations
func TestPrometheusMetricsHistogram(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewPrometheusMetrics(registry)

	// Test histogram with labels (must match registered label count)
	metrics.Histogram(MetricEngineLatency, 0.1, "operation", "get", "engine", "memory")
	metrics.Histogram(MetricEngineLatency, 0.05, "operation", "get", "engine", "memory")
	metrics.Histogram(MetricEngineLatency, 0.15, "operation", "put", "engine", "bolt")

	// Verify metrics were recorded
	metricFamilies, err := registry.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	found := false
	for _, mf := range metricFamilies {
		if strings.Contains(mf.GetName(), "engine_operation_duration") {
			found = true
			break
		}
	}
	if !found {
		t.Error("expected engine operation duration histogram to be registered")
	}
}

// TestPrometheusMetricsTiming tests timing observations
func TestPrometheusMetricsTiming(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewPrometheusMetrics(registry)

	// Test timing with labels (must match registered label count)
	metrics.Timing(MetricEngineLatency, 100*time.Millisecond, "operation", "get", "engine", "memory")
	metrics.Timing(MetricEngineLatency, 50*time.Millisecond, "operation", "get", "engine", "memory")
	metrics.Timing(MetricEngineLatency, 150*time.Millisecond, "operation", "put", "engine", "bolt")

	// Verify histogram was updated (Timing should record to histogram)
	metricFamilies, err := registry.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	found := false
	for _, mf := range metricFamilies {
		if strings.Contains(mf.GetName(), "engine_operation_duration") {
			found = true
			// Verify it's a histogram
			if mf.GetType() != 4 { // HISTOGRAM = 4
				t.Errorf("expected histogram type, got %v", mf.GetType())
			}
			break
		}
	}
	if !found {
		t.Error("expected engine operation duration metric")
	}
}

// TestPrometheusMetricsGetRegistry tests registry retrieval
func TestPrometheusMetricsGetRegistry(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewPrometheusMetrics(registry)

	retrieved := metrics.GetRegistry()
	if retrieved != registry {
		t.Error("GetRegistry returned wrong registry")
	}
}

// TestPrometheusMetricsLabelExtraction tests label extraction
func TestPrometheusMetricsLabelExtraction(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewPrometheusMetrics(registry)

	// Test with correct label count (must match registered labels)
	// MetricEngineOps expects "operation" and "engine" labels
	metrics.Increment(MetricEngineOps, "operation", "get", "engine", "memory")
	metrics.Increment(MetricEngineOps, "operation", "put", "engine", "redis")

	// MetricIndexUpdate expects "collection" and "selector" labels
	metrics.Increment(MetricIndexUpdate, "collection", "users", "selector", "email")
	metrics.Increment(MetricIndexUpdate, "collection", "orders", "selector", "status")
}

// TestPrometheusMetricsAllMetricTypes tests all registered metric types
func TestPrometheusMetricsAllMetricTypes(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewPrometheusMetrics(registry)

	// Record various metrics
	metrics.Increment(MetricEngineOps, "operation", "get", "engine", "memory")
	metrics.Increment(MetricEngineErrors, "operation", "put", "engine", "redis")
	metrics.Increment(MetricIndexUpdate, "collection", "users", "selector", "email")
	metrics.Increment(MetricIndexErrors, "collection", "orders", "selector", "status")

	metrics.Gauge(MetricIndexedBuckets, 42, "collection", "users", "selector", "email")

	metrics.Histogram(MetricEngineLatency, 0.075, "operation", "get", "engine", "memory")
	metrics.Histogram(MetricFindDuration, 0.12, "collection", "products")
	metrics.Histogram(MetricFindResults, 37, "collection", "products")

	// Gather all metrics
	metricFamilies, err := registry.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	// Verify we have multiple metric families
	if len(metricFamilies) < 5 {
		t.Errorf("expected at least 5 metric families, got %d", len(metricFamilies))
	}
}

// TestPrometheusMetricsImplementsInterface verifies interface implementation
func TestPrometheusMetricsImplementsInterface(t *testing.T) {
	var _ Metrics = &PrometheusMetrics{}
}

// TestPrometheusMetricsConcurrency tests concurrent metric updates
func TestPrometheusMetricsConcurrency(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewPrometheusMetrics(registry)

	// Run concurrent updates
	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				metrics.Increment(MetricEngineOps, "operation", "concurrent", "engine", "memory")
				metrics.Gauge(MetricIndexedBuckets, float64(j), "collection", "users", "selector", "email")
				metrics.Histogram(MetricEngineLatency, float64(j), "operation", "concurrent", "engine", "memory")
			}
			done <- true
		}()
	}

	// Wait for all goroutines
	for i := 0; i < 10; i++ {
		<-done
	}

	// Should complete without panic
}
