package docstore

import "time"

// Metrics provides observability for docstore operations
type Metrics interface {
	// Increment increases a counter by 1
	Increment(name string, tags ...string)

	// Gauge sets an absolute value
	Gauge(name string, value float64, tags ...string)

	// Histogram records a value distribution (result counts, batch sizes, etc)
	Histogram(name string, value float64, tags ...string)

	// Timing records a duration
	Timing(name string, duration time.Duration, tags ...string)
}

// NoOpMetrics is a metrics collector that does nothing
type NoOpMetrics struct{}

func (m *NoOpMetrics) Increment(name string, tags ...string)                      {}
func (m *NoOpMetrics) Gauge(name string, value float64, tags ...string)           {}
func (m *NoOpMetrics) Histogram(name string, value float64, tags ...string)       {}
func (m *NoOpMetrics) Timing(name string, duration time.Duration, tags ...string) {}

// InMemoryMetrics stores metrics in memory for testing
type InMemoryMetrics struct {
	Counters   map[string]int
	Gauges     map[string]float64
	Histograms map[string][]float64
	Timings    map[string][]time.Duration
}

func NewInMemoryMetrics() *InMemoryMetrics {
	return &InMemoryMetrics{
		Counters:   make(map[string]int),
		Gauges:     make(map[string]float64),
		Histograms: make(map[string][]float64),
		Timings:    make(map[string][]time.Duration),
	}
}

func (m *InMemoryMetrics) Increment(name string, tags ...string) {
	m.Counters[name]++
}

func (m *InMemoryMetrics) Gauge(name string, value float64, tags ...string) {
	m.Gauges[name] = value
}

func (m *InMemoryMetrics) Histogram(name string, value float64, tags ...string) {
	m.Histograms[name] = append(m.Histograms[name], value)
}

func (m *InMemoryMetrics) Timing(name string, duration time.Duration, tags ...string) {
	m.Timings[name] = append(m.Timings[name], duration)
}

// Common metric names
const (
	MetricInsertSuccess  = "docstore.insert.success"
	MetricInsertError    = "docstore.insert.error"
	MetricInsertDuration = "docstore.insert.duration"
	MetricRemoveSuccess  = "docstore.remove.success"
	MetricRemoveError    = "docstore.remove.error"
	MetricRemoveDuration = "docstore.remove.duration"
	MetricUpdateSuccess  = "docstore.update.success"
	MetricUpdateError    = "docstore.update.error"
	MetricUpdateDuration = "docstore.update.duration"
	MetricFindDuration   = "docstore.find.duration"
	MetricFindResults    = "docstore.find.results"
	MetricFindScans      = "docstore.find.scans"

	MetricIndexCreate    = "docstore.index.create"
	MetricIndexDrop      = "docstore.index.drop"
	MetricIndexBackfill  = "docstore.index.backfill_duration"
	MetricIndexUpdate    = "docstore.index.update"
	MetricIndexErrors    = "docstore.index.errors"
	MetricIndexedBuckets = "docstore.index.buckets"

	MetricIDGenerated = "docstore.idgen.generated"

	MetricEngineOps     = "docstore.engine.ops"
	MetricEngineErrors  = "docstore.engine.errors"
	MetricEngineLatency = "docstore.engine.latency"
	MetricEngineRetries = "docstore.engine.retries"
)
