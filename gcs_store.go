package docstore

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCSConfig contains Google Cloud Storage configuration.
type GCSConfig struct {
	Bucket          string
	CredentialsFile string // Path to service account JSON file (optional, uses ADC if empty)
}

// GCSRegistry keeps each map entry as one object under maps/<name>/<key>.
// Unlike S3, GCS supports true conditional writes via generation matching,
// so Update is atomic across processes.
type GCSRegistry struct {
	client  *storage.Client
	bucket  string
	retry   RetryConfig
	metrics Metrics
}

// NewGCSRegistry connects to Google Cloud Storage and owns the resulting
// client.
func NewGCSRegistry(ctx context.Context, cfg GCSConfig) (*GCSRegistry, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	// If no credentials file, uses Application Default Credentials (ADC)

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	return &GCSRegistry{client: client, bucket: cfg.Bucket, retry: DefaultRetryConfig(), metrics: &NoOpMetrics{}}, nil
}

// SetMetrics installs a metrics collector; stores opened afterwards report
// optimistic update retries.
func (r *GCSRegistry) SetMetrics(metrics Metrics) {
	r.metrics = metrics
}

func (r *GCSRegistry) GetMap(ctx context.Context, name string) (KeyValueStore, error) {
	return r.open(name), nil
}

func (r *GCSRegistry) DeleteMap(ctx context.Context, name string) error {
	return r.open(name).Clear(ctx)
}

func (r *GCSRegistry) open(name string) *GCSStore {
	return &GCSStore{
		client:  r.client,
		bucket:  r.bucket,
		prefix:  "maps/" + url.PathEscape(name) + "/",
		retry:   r.retry,
		metrics: r.metrics,
	}
}

func (r *GCSRegistry) Close() error {
	return r.client.Close()
}

// GCSStore is one named map stored as a prefix of objects.
type GCSStore struct {
	client  *storage.Client
	bucket  string
	prefix  string
	retry   RetryConfig
	metrics Metrics
}

func (s *GCSStore) object(key string) *storage.ObjectHandle {
	return s.client.Bucket(s.bucket).Object(s.prefix + url.PathEscape(key))
}

func (s *GCSStore) Get(ctx context.Context, key string) (string, bool, error) {
	reader, err := s.object(key).NewReader(ctx)
	if err != nil {
		if err == storage.ErrObjectNotExist {
			return "", false, nil
		}
		return "", false, err
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return "", false, err
	}
	return string(data), true, nil
}

func (s *GCSStore) Put(ctx context.Context, key, value string) (string, bool, error) {
	previous, existed, err := s.Get(ctx, key)
	if err != nil {
		return "", false, err
	}
	if err := s.write(ctx, s.object(key), value); err != nil {
		return "", false, err
	}
	return previous, existed, nil
}

func (s *GCSStore) write(ctx context.Context, obj *storage.ObjectHandle, value string) error {
	writer := obj.NewWriter(ctx)
	if _, err := writer.Write([]byte(value)); err != nil {
		_ = writer.Close() //nolint:errcheck // Write error takes precedence
		return err
	}
	return writer.Close()
}

func (s *GCSStore) Remove(ctx context.Context, key string) (string, bool, error) {
	removed, existed, err := s.Get(ctx, key)
	if err != nil {
		return "", false, err
	}
	if !existed {
		return "", false, nil
	}
	if err := s.object(key).Delete(ctx); err != nil {
		if err == storage.ErrObjectNotExist {
			return "", false, nil
		}
		return "", false, err
	}
	return removed, true, nil
}

func (s *GCSStore) ContainsKey(ctx context.Context, key string) (bool, error) {
	_, err := s.object(key).Attrs(ctx)
	if err != nil {
		if err == storage.ErrObjectNotExist {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Update performs read-modify-write with a generation precondition and
// retries on conflict. GenerationMatch 0 requires the object not to exist,
// which covers the insert-default path.
func (s *GCSStore) Update(ctx context.Context, key, def string, updater func(string) string) (UpdateResult, error) {
	obj := s.object(key)

	for i := 0; i < s.retry.MaxRetries; i++ {
		var generation int64
		var prior string
		existed := true

		attrs, err := obj.Attrs(ctx)
		if err == storage.ErrObjectNotExist {
			existed = false
		} else if err != nil {
			return UpdateResult{}, err
		} else {
			generation = attrs.Generation
			prior, _, err = s.Get(ctx, key)
			if err != nil {
				return UpdateResult{}, err
			}
		}

		var result UpdateResult
		next := def
		if existed {
			next = updater(prior)
			result = UpdateResult{Previous: &prior, Value: next}
		} else {
			result = UpdateResult{Value: def}
		}

		conditional := obj.If(storage.Conditions{GenerationMatch: generation})
		err = s.write(ctx, conditional, next)
		if err == nil {
			return result, nil
		}
		if !isGCSPreconditionFailure(err) {
			return UpdateResult{}, err
		}
		s.metrics.Increment(MetricEngineRetries, "engine", "gcs")
		if i < s.retry.MaxRetries-1 {
			time.Sleep(s.retry.backoffFor(i))
		}
	}

	return UpdateResult{}, WithContext(ErrUpdateRetries, map[string]interface{}{
		"key":     key,
		"retries": s.retry.MaxRetries,
	})
}

func isGCSPreconditionFailure(err error) bool {
	return strings.Contains(err.Error(), "conditionNotMet") ||
		strings.Contains(err.Error(), "precondition")
}

func (s *GCSStore) GetOrPut(ctx context.Context, key string, def func() string) (string, error) {
	value, found, err := s.Get(ctx, key)
	if err != nil {
		return "", err
	}
	if found {
		return value, nil
	}

	value = def()
	conditional := s.object(key).If(storage.Conditions{DoesNotExist: true})
	if err := s.write(ctx, conditional, value); err != nil {
		if isGCSPreconditionFailure(err) {
			// Lost the race: another writer inserted first.
			value, _, err = s.Get(ctx, key)
			return value, err
		}
		return "", err
	}
	return value, nil
}

func (s *GCSStore) Entries(ctx context.Context, fn func(key, value string) (bool, error)) error {
	it := s.client.Bucket(s.bucket).Objects(ctx, &storage.Query{Prefix: s.prefix})
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			return nil
		}
		if err != nil {
			return err
		}

		key, err := url.PathUnescape(strings.TrimPrefix(attrs.Name, s.prefix))
		if err != nil {
			continue
		}
		value, found, err := s.Get(ctx, key)
		if err != nil {
			return err
		}
		if !found {
			continue
		}
		more, err := fn(key, value)
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
}

func (s *GCSStore) Size(ctx context.Context) (int64, error) {
	it := s.client.Bucket(s.bucket).Objects(ctx, &storage.Query{Prefix: s.prefix})
	var count int64
	for {
		_, err := it.Next()
		if err == iterator.Done {
			return count, nil
		}
		if err != nil {
			return 0, err
		}
		count++
	}
}

func (s *GCSStore) IsEmpty(ctx context.Context) (bool, error) {
	it := s.client.Bucket(s.bucket).Objects(ctx, &storage.Query{Prefix: s.prefix})
	_, err := it.Next()
	if err == iterator.Done {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return false, nil
}

func (s *GCSStore) Clear(ctx context.Context) error {
	it := s.client.Bucket(s.bucket).Objects(ctx, &storage.Query{Prefix: s.prefix})
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			return nil
		}
		if err != nil {
			return err
		}
		obj := s.client.Bucket(s.bucket).Object(attrs.Name)
		if err := obj.Delete(ctx); err != nil && err != storage.ErrObjectNotExist {
			return err
		}
	}
}

// Close is a no-op: the registry owns the client.
func (s *GCSStore) Close() error {
	return nil
}
