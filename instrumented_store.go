package docstore

import (
	"context"
	"time"
)

// InstrumentedRegistry decorates another registry so that every operation on
// every store it produces is counted and timed under the engine metrics. The
// engine label tells deployments with several registries apart.
type InstrumentedRegistry struct {
	inner   StoreRegistry
	engine  string
	metrics Metrics
}

// NewInstrumentedRegistry wraps inner; engine names the backing implementation
// in metric labels (for example "bolt" or "redis").
func NewInstrumentedRegistry(inner StoreRegistry, engine string, metrics Metrics) *InstrumentedRegistry {
	return &InstrumentedRegistry{inner: inner, engine: engine, metrics: metrics}
}

func (r *InstrumentedRegistry) GetMap(ctx context.Context, name string) (KeyValueStore, error) {
	store, err := r.inner.GetMap(ctx, name)
	if err != nil {
		return nil, err
	}
	return &instrumentedStore{inner: store, engine: r.engine, metrics: r.metrics}, nil
}

func (r *InstrumentedRegistry) DeleteMap(ctx context.Context, name string) error {
	return r.inner.DeleteMap(ctx, name)
}

func (r *InstrumentedRegistry) Close() error {
	return r.inner.Close()
}

type instrumentedStore struct {
	inner   KeyValueStore
	engine  string
	metrics Metrics
}

// observe records one completed operation. Called via defer so the latency
// covers the whole call including error paths.
func (s *instrumentedStore) observe(op string, start time.Time, err *error) {
	s.metrics.Increment(MetricEngineOps, "operation", op, "engine", s.engine)
	s.metrics.Timing(MetricEngineLatency, time.Since(start), "operation", op, "engine", s.engine)
	if *err != nil {
		s.metrics.Increment(MetricEngineErrors, "operation", op, "engine", s.engine)
	}
}

func (s *instrumentedStore) Get(ctx context.Context, key string) (value string, found bool, err error) {
	defer s.observe("get", time.Now(), &err)
	return s.inner.Get(ctx, key)
}

func (s *instrumentedStore) Put(ctx context.Context, key, value string) (previous string, replaced bool, err error) {
	defer s.observe("put", time.Now(), &err)
	return s.inner.Put(ctx, key, value)
}

func (s *instrumentedStore) Remove(ctx context.Context, key string) (removed string, existed bool, err error) {
	defer s.observe("remove", time.Now(), &err)
	return s.inner.Remove(ctx, key)
}

func (s *instrumentedStore) ContainsKey(ctx context.Context, key string) (found bool, err error) {
	defer s.observe("contains", time.Now(), &err)
	return s.inner.ContainsKey(ctx, key)
}

func (s *instrumentedStore) Update(ctx context.Context, key, def string, updater func(string) string) (result UpdateResult, err error) {
	defer s.observe("update", time.Now(), &err)
	return s.inner.Update(ctx, key, def, updater)
}

func (s *instrumentedStore) GetOrPut(ctx context.Context, key string, def func() string) (value string, err error) {
	defer s.observe("get_or_put", time.Now(), &err)
	return s.inner.GetOrPut(ctx, key, def)
}

func (s *instrumentedStore) Entries(ctx context.Context, fn func(key, value string) (bool, error)) (err error) {
	defer s.observe("entries", time.Now(), &err)
	return s.inner.Entries(ctx, fn)
}

func (s *instrumentedStore) Size(ctx context.Context) (size int64, err error) {
	defer s.observe("size", time.Now(), &err)
	return s.inner.Size(ctx)
}

func (s *instrumentedStore) IsEmpty(ctx context.Context) (empty bool, err error) {
	defer s.observe("is_empty", time.Now(), &err)
	return s.inner.IsEmpty(ctx)
}

func (s *instrumentedStore) Clear(ctx context.Context) (err error) {
	defer s.observe("clear", time.Now(), &err)
	return s.inner.Clear(ctx)
}

func (s *instrumentedStore) Close() error {
	return s.inner.Close()
}
