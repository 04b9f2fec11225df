package docstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresDefaultTable = "docstore_entries"

const postgresSchema = `
CREATE TABLE IF NOT EXISTS %s (
    map_name TEXT NOT NULL,
    key      TEXT NOT NULL,
    value    TEXT NOT NULL,
    PRIMARY KEY (map_name, key)
)`

// PostgresRegistry stores every map in a single two-column-keyed table.
// Update runs a row-locking transaction, so read-modify-write is atomic
// across processes without client-side retries.
type PostgresRegistry struct {
	pool     *pgxpool.Pool
	table    string
	ownsPool bool
}

// NewPostgresRegistry wraps an existing pool and ensures the backing table
// exists.
func NewPostgresRegistry(ctx context.Context, pool *pgxpool.Pool) (*PostgresRegistry, error) {
	return newPostgresRegistry(ctx, pool, false)
}

// OpenPostgresRegistry connects with the given DSN and owns the resulting
// pool.
func OpenPostgresRegistry(ctx context.Context, dsn string) (*PostgresRegistry, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	registry, err := newPostgresRegistry(ctx, pool, true)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return registry, nil
}

func newPostgresRegistry(ctx context.Context, pool *pgxpool.Pool, ownsPool bool) (*PostgresRegistry, error) {
	r := &PostgresRegistry{pool: pool, table: postgresDefaultTable, ownsPool: ownsPool}
	if _, err := pool.Exec(ctx, fmt.Sprintf(postgresSchema, r.table)); err != nil {
		return nil, fmt.Errorf("creating table %s: %w", r.table, err)
	}
	return r, nil
}

func (r *PostgresRegistry) GetMap(ctx context.Context, name string) (KeyValueStore, error) {
	return &PostgresStore{pool: r.pool, table: r.table, name: name}, nil
}

func (r *PostgresRegistry) DeleteMap(ctx context.Context, name string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE map_name = $1", r.table)
	_, err := r.pool.Exec(ctx, query, name)
	return err
}

func (r *PostgresRegistry) Close() error {
	if r.ownsPool {
		r.pool.Close()
	}
	return nil
}

// PostgresStore is one named map within the registry's table.
type PostgresStore struct {
	pool  *pgxpool.Pool
	table string
	name  string
}

func (s *PostgresStore) Get(ctx context.Context, key string) (string, bool, error) {
	query := fmt.Sprintf("SELECT value FROM %s WHERE map_name = $1 AND key = $2", s.table)
	var value string
	err := s.pool.QueryRow(ctx, query, s.name, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (s *PostgresStore) Put(ctx context.Context, key, value string) (string, bool, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s (map_name, key, value) VALUES ($1, $2, $3)
		ON CONFLICT (map_name, key) DO UPDATE SET value = EXCLUDED.value
		RETURNING (SELECT value FROM %s WHERE map_name = $1 AND key = $2)`,
		s.table, s.table)
	var previous *string
	if err := s.pool.QueryRow(ctx, query, s.name, key, value).Scan(&previous); err != nil {
		return "", false, err
	}
	if previous == nil {
		return "", false, nil
	}
	return *previous, true, nil
}

func (s *PostgresStore) Remove(ctx context.Context, key string) (string, bool, error) {
	query := fmt.Sprintf("DELETE FROM %s WHERE map_name = $1 AND key = $2 RETURNING value", s.table)
	var removed string
	err := s.pool.QueryRow(ctx, query, s.name, key).Scan(&removed)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return removed, true, nil
}

func (s *PostgresStore) ContainsKey(ctx context.Context, key string) (bool, error) {
	query := fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s WHERE map_name = $1 AND key = $2)", s.table)
	var exists bool
	if err := s.pool.QueryRow(ctx, query, s.name, key).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (s *PostgresStore) Update(ctx context.Context, key, def string, updater func(string) string) (UpdateResult, error) {
	var result UpdateResult
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		lock := fmt.Sprintf("SELECT value FROM %s WHERE map_name = $1 AND key = $2 FOR UPDATE", s.table)
		var prior string
		err := tx.QueryRow(ctx, lock, s.name, key).Scan(&prior)
		absent := errors.Is(err, pgx.ErrNoRows)
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

		upsert := fmt.Sprintf(`
			INSERT INTO %s (map_name, key, value) VALUES ($1, $2, $3)
			ON CONFLICT (map_name, key) DO UPDATE SET value = EXCLUDED.value`,
			s.table)
		_, err = tx.Exec(ctx, upsert, s.name, key, next)
		return err
	})
	if err != nil {
		return UpdateResult{}, err
	}
	return result, nil
}

func (s *PostgresStore) GetOrPut(ctx context.Context, key string, def func() string) (string, error) {
	value, found, err := s.Get(ctx, key)
	if err != nil {
		return "", err
	}
	if found {
		return value, nil
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (map_name, key, value) VALUES ($1, $2, $3)
		ON CONFLICT (map_name, key) DO NOTHING`,
		s.table)
	if _, err := s.pool.Exec(ctx, query, s.name, key, def()); err != nil {
		return "", err
	}

	value, _, err = s.Get(ctx, key)
	return value, err
}

func (s *PostgresStore) Entries(ctx context.Context, fn func(key, value string) (bool, error)) error {
	query := fmt.Sprintf("SELECT key, value FROM %s WHERE map_name = $1 ORDER BY key", s.table)
	rows, err := s.pool.Query(ctx, query, s.name)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return err
		}
		more, err := fn(key, value)
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
	return rows.Err()
}

func (s *PostgresStore) Size(ctx context.Context) (int64, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE map_name = $1", s.table)
	var count int64
	if err := s.pool.QueryRow(ctx, query, s.name).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *PostgresStore) IsEmpty(ctx context.Context) (bool, error) {
	size, err := s.Size(ctx)
	return size == 0, err
}

func (s *PostgresStore) Clear(ctx context.Context) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE map_name = $1", s.table)
	_, err := s.pool.Exec(ctx, query, s.name)
	return err
}

// Close is a no-op: the registry owns the pool.
func (s *PostgresStore) Close() error {
	return nil
}
