package docstore

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisMapPrefix = "docstore:map:"
	redisNamesSet  = "docstore:maps"
	redisScanCount = 100
)

// RedisRegistry keeps each named map in one Redis hash, with the set of map
// names tracked alongside. Suitable for sharing one logical database between
// processes; the per-collection lock still lives in each process, so writers
// of one collection must share one Database instance.
type RedisRegistry struct {
	client     *redis.Client
	retry      RetryConfig
	metrics    Metrics
	ownsClient bool
}

// NewRedisRegistry wraps an existing Redis client.
func NewRedisRegistry(client *redis.Client) *RedisRegistry {
	return &RedisRegistry{client: client, retry: DefaultRetryConfig(), metrics: &NoOpMetrics{}}
}

// NewRedisRegistryWithOwnedClient wraps a Redis client that will be closed
// together with the registry.
func NewRedisRegistryWithOwnedClient(client *redis.Client) *RedisRegistry {
	r := NewRedisRegistry(client)
	r.ownsClient = true
	return r
}

// SetMetrics installs a metrics collector; stores opened afterwards report
// optimistic update retries.
func (r *RedisRegistry) SetMetrics(metrics Metrics) {
	r.metrics = metrics
}

func (r *RedisRegistry) GetMap(ctx context.Context, name string) (KeyValueStore, error) {
	if err := r.client.SAdd(ctx, redisNamesSet, name).Err(); err != nil {
		return nil, err
	}
	return &RedisStore{client: r.client, key: redisMapPrefix + name, retry: r.retry, metrics: r.metrics}, nil
}

func (r *RedisRegistry) DeleteMap(ctx context.Context, name string) error {
	if err := r.client.Del(ctx, redisMapPrefix+name).Err(); err != nil {
		return err
	}
	return r.client.SRem(ctx, redisNamesSet, name).Err()
}

func (r *RedisRegistry) Close() error {
	if r.ownsClient {
		return r.client.Close()
	}
	return nil
}

// RedisStore is one named map stored as a Redis hash. Update uses an
// optimistic WATCH/MULTI transaction with bounded retries, since Redis has no
// server-side read-modify-write for arbitrary functions.
type RedisStore struct {
	client  *redis.Client
	key     string
	retry   RetryConfig
	metrics Metrics
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.HGet(ctx, s.key, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (s *RedisStore) Put(ctx context.Context, key, value string) (string, bool, error) {
	var prior *redis.StringCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		prior = pipe.HGet(ctx, s.key, key)
		pipe.HSet(ctx, s.key, key, value)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", false, err
	}
	previous, err := prior.Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return previous, true, nil
}

func (s *RedisStore) Remove(ctx context.Context, key string) (string, bool, error) {
	var prior *redis.StringCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		prior = pipe.HGet(ctx, s.key, key)
		pipe.HDel(ctx, s.key, key)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", false, err
	}
	removed, err := prior.Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return removed, true, nil
}

func (s *RedisStore) ContainsKey(ctx context.Context, key string) (bool, error) {
	return s.client.HExists(ctx, s.key, key).Result()
}

func (s *RedisStore) Update(ctx context.Context, key, def string, updater func(string) string) (UpdateResult, error) {
	var result UpdateResult

	attempt := func(tx *redis.Tx) error {
		prior, err := tx.HGet(ctx, s.key, key).Result()
		absent := errors.Is(err, redis.Nil)
		if err != nil && !absent {
			return err
		}

		next := def
		if absent {
			result = UpdateResult{Value: def}
		} else {
			next = updater(prior)
			result = UpdateResult{Previous: &prior, Value: next}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, s.key, key, next)
			return nil
		})
		return err
	}

	for i := 0; i < s.retry.MaxRetries; i++ {
		err := s.client.Watch(ctx, attempt, s.key)
		if err == nil {
			return result, nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return UpdateResult{}, err
		}
		s.metrics.Increment(MetricEngineRetries, "engine", "redis")
		if i < s.retry.MaxRetries-1 {
			time.Sleep(s.retry.backoffFor(i))
		}
	}

	return UpdateResult{}, WithContext(ErrUpdateRetries, map[string]interface{}{
		"map":     s.key,
		"key":     key,
		"retries": s.retry.MaxRetries,
	})
}

func (s *RedisStore) GetOrPut(ctx context.Context, key string, def func() string) (string, error) {
	value, found, err := s.Get(ctx, key)
	if err != nil {
		return "", err
	}
	if found {
		return value, nil
	}

	value = def()
	stored, err := s.client.HSetNX(ctx, s.key, key, value).Result()
	if err != nil {
		return "", err
	}
	if stored {
		return value, nil
	}
	// Lost the race: another writer inserted first.
	return s.client.HGet(ctx, s.key, key).Result()
}

func (s *RedisStore) Entries(ctx context.Context, fn func(key, value string) (bool, error)) error {
	var cursor uint64
	for {
		pairs, next, err := s.client.HScan(ctx, s.key, cursor, "*", redisScanCount).Result()
		if err != nil {
			return err
		}
		for i := 0; i+1 < len(pairs); i += 2 {
			more, err := fn(pairs[i], pairs[i+1])
			if err != nil {
				return err
			}
			if !more {
				return nil
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

func (s *RedisStore) Size(ctx context.Context) (int64, error) {
	return s.client.HLen(ctx, s.key).Result()
}

func (s *RedisStore) IsEmpty(ctx context.Context) (bool, error) {
	size, err := s.Size(ctx)
	return size == 0, err
}

func (s *RedisStore) Clear(ctx context.Context) error {
	return s.client.Del(ctx, s.key).Err()
}

// Close is a no-op: the registry owns the client.
func (s *RedisStore) Close() error {
	return nil
}
