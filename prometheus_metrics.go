package docstore

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetrics implements the Metrics interface using Prometheus
type PrometheusMetrics struct {
	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
	histograms map[string]*prometheus.HistogramVec
	registry   *prometheus.Registry
}

// NewPrometheusMetrics creates a new Prometheus metrics instance.
// If registry is nil, uses the default Prometheus registry.
func NewPrometheusMetrics(registry *prometheus.Registry) *PrometheusMetrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer.(*prometheus.Registry)
	}

	pm := &PrometheusMetrics{
		counters:   make(map[string]*prometheus.CounterVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
		histograms: make(map[string]*prometheus.HistogramVec),
		registry:   registry,
	}

	pm.registerDefaultMetrics()
	return pm
}

// registerDefaultMetrics registers all standard docstore metrics
func (p *PrometheusMetrics) registerDefaultMetrics() {
	p.counters[MetricEngineOps] = promauto.With(p.registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docstore",
			Subsystem: "engine",
			Name:      "operations_total",
			Help:      "Total number of backing store operations",
		},
		[]string{"operation", "engine"},
	)

	p.counters[MetricEngineErrors] = promauto.With(p.registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docstore",
			Subsystem: "engine",
			Name:      "errors_total",
			Help:      "Total number of backing store errors",
		},
		[]string{"operation", "engine"},
	)

	p.counters[MetricEngineRetries] = promauto.With(p.registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docstore",
			Subsystem: "engine",
			Name:      "update_retries_total",
			Help:      "Total number of optimistic update retries",
		},
		[]string{"engine"},
	)

	for metric, parts := range map[string]struct{ subsystem, name, help string }{
		MetricInsertSuccess: {"insert", "success_total", "Total number of successful document inserts"},
		MetricInsertError:   {"insert", "errors_total", "Total number of failed document inserts"},
		MetricRemoveSuccess: {"remove", "success_total", "Total number of successful document removals"},
		MetricRemoveError:   {"remove", "errors_total", "Total number of failed document removals"},
		MetricUpdateSuccess: {"update", "success_total", "Total number of successful document updates"},
		MetricUpdateError:   {"update", "errors_total", "Total number of failed document updates"},
		MetricFindScans:     {"find", "scans_total", "Total number of full collection scans"},
		MetricIDGenerated:   {"idgen", "generated_total", "Total number of generated identifiers"},
	} {
		p.counters[metric] = promauto.With(p.registry).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "docstore",
				Subsystem: parts.subsystem,
				Name:      parts.name,
				Help:      parts.help,
			},
			[]string{"collection"},
		)
	}

	for metric, parts := range map[string]struct{ subsystem, name, help string }{
		MetricIndexCreate: {"index", "creates_total", "Total number of index creations"},
		MetricIndexDrop:   {"index", "drops_total", "Total number of index drops"},
	} {
		p.counters[metric] = promauto.With(p.registry).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "docstore",
				Subsystem: parts.subsystem,
				Name:      parts.name,
				Help:      parts.help,
			},
			[]string{"collection", "selector"},
		)
	}

	p.counters[MetricIndexUpdate] = promauto.With(p.registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docstore",
			Subsystem: "index",
			Name:      "updates_total",
			Help:      "Total number of secondary index bucket updates",
		},
		[]string{"collection", "selector"},
	)

	p.counters[MetricIndexErrors] = promauto.With(p.registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docstore",
			Subsystem: "index",
			Name:      "errors_total",
			Help:      "Total number of secondary index maintenance errors",
		},
		[]string{"collection", "selector"},
	)

	p.histograms[MetricEngineLatency] = promauto.With(p.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docstore",
			Subsystem: "engine",
			Name:      "operation_duration_seconds",
			Help:      "Backing store operation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation", "engine"},
	)

	p.histograms[MetricFindDuration] = promauto.With(p.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docstore",
			Subsystem: "find",
			Name:      "duration_seconds",
			Help:      "Collection scan duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"collection"},
	)

	p.histograms[MetricFindResults] = promauto.With(p.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docstore",
			Subsystem: "find",
			Name:      "results",
			Help:      "Number of documents returned by find operations",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 5000, 10000},
		},
		[]string{"collection"},
	)

	for metric, subsystem := range map[string]string{
		MetricInsertDuration: "insert",
		MetricRemoveDuration: "remove",
		MetricUpdateDuration: "update",
	} {
		p.histograms[metric] = promauto.With(p.registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "docstore",
				Subsystem: subsystem,
				Name:      "duration_seconds",
				Help:      "Operation duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"collection"},
		)
	}

	p.histograms[MetricIndexBackfill] = promauto.With(p.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docstore",
			Subsystem: "index",
			Name:      "backfill_duration_seconds",
			Help:      "Index backfill duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"collection", "selector"},
	)

	p.gauges[MetricIndexedBuckets] = promauto.With(p.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "docstore",
			Subsystem: "index",
			Name:      "buckets",
			Help:      "Number of distinct value buckets per secondary index",
		},
		[]string{"collection", "selector"},
	)
}

// Increment increments a Prometheus counter
func (p *PrometheusMetrics) Increment(name string, tags ...string) {
	counter, ok := p.counters[name]
	if !ok {
		counter = promauto.With(p.registry).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "docstore",
				Name:      name,
				Help:      "Dynamic counter: " + name,
			},
			p.extractLabels(tags),
		)
		p.counters[name] = counter
	}

	counter.With(p.extractLabelValues(tags)).Inc()
}

// Gauge sets a Prometheus gauge value
func (p *PrometheusMetrics) Gauge(name string, value float64, tags ...string) {
	gauge, ok := p.gauges[name]
	if !ok {
		gauge = promauto.With(p.registry).NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "docstore",
				Name:      name,
				Help:      "Dynamic gauge: " + name,
			},
			p.extractLabels(tags),
		)
		p.gauges[name] = gauge
	}

	gauge.With(p.extractLabelValues(tags)).Set(value)
}

// Histogram records a value in a Prometheus histogram
func (p *PrometheusMetrics) Histogram(name string, value float64, tags ...string) {
	histogram, ok := p.histograms[name]
	if !ok {
		histogram = promauto.With(p.registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "docstore",
				Name:      name,
				Help:      "Dynamic histogram: " + name,
				Buckets:   prometheus.DefBuckets,
			},
			p.extractLabels(tags),
		)
		p.histograms[name] = histogram
	}

	histogram.With(p.extractLabelValues(tags)).Observe(value)
}

// Timing records a duration in a Prometheus histogram
func (p *PrometheusMetrics) Timing(name string, duration time.Duration, tags ...string) {
	p.Histogram(name, duration.Seconds(), tags...)
}

// extractLabels extracts label names from tags (every even index)
func (p *PrometheusMetrics) extractLabels(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}

	labels := make([]string, 0, len(tags)/2)
	for i := 0; i < len(tags); i += 2 {
		labels = append(labels, tags[i])
	}
	return labels
}

// extractLabelValues creates a label map from tags (key-value pairs)
func (p *PrometheusMetrics) extractLabelValues(tags []string) prometheus.Labels {
	labels := make(prometheus.Labels)
	for i := 0; i < len(tags)-1; i += 2 {
		labels[tags[i]] = tags[i+1]
	}
	return labels
}

// GetRegistry returns the underlying Prometheus registry
func (p *PrometheusMetrics) GetRegistry() *prometheus.Registry {
	return p.registry
}
