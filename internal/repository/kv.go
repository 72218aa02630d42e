package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"pokedex-core/internal/domain"

	"github.com/rs/zerolog"
)

// Entry is one persisted key/value row. FetchedAt carries the cache
// timestamp; callers owning non-cache keys can ignore it.
type Entry struct {
	Key       string
	Value     []byte
	FetchedAt time.Time
}

// KVRepository implements the persistent-store boundary: string-keyed
// get/set/delete/list over a single sqlite table.
type KVRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewKVRepository(db *sql.DB, logger zerolog.Logger) *KVRepository {
	return &KVRepository{db: db, logger: logger}
}

func (r *KVRepository) Get(ctx context.Context, key string) (*Entry, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT key, value, fetched_at FROM kv_entries WHERE key = ?`, key)

	var entry Entry
	if err := row.Scan(&entry.Key, &entry.Value, &entry.FetchedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("key %q: %w", key, domain.ErrNotFound)
		}
		r.logger.Error().Err(err).Str("key", key).Msg("failed to read kv entry")
		return nil, fmt.Errorf("failed to read kv entry: %w: %w", domain.ErrPersistence, err)
	}

	return &entry, nil
}

func (r *KVRepository) Set(ctx context.Context, key string, value []byte, fetchedAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO kv_entries (key, value, fetched_at, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (key) DO UPDATE SET
		   value = excluded.value,
		   fetched_at = excluded.fetched_at,
		   updated_at = excluded.updated_at`,
		key, value, fetchedAt, time.Now())
	if err != nil {
		r.logger.Error().Err(err).Str("key", key).Msg("failed to write kv entry")
		return fmt.Errorf("failed to write kv entry: %w: %w", domain.ErrPersistence, err)
	}

	return nil
}

func (r *KVRepository) Delete(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM kv_entries WHERE key = ?`, key); err != nil {
		r.logger.Error().Err(err).Str("key", key).Msg("failed to delete kv entry")
		return fmt.Errorf("failed to delete kv entry: %w: %w", domain.ErrPersistence, err)
	}
	return nil
}

// DeletePrefix drops every key under the given namespace in one statement.
func (r *KVRepository) DeletePrefix(ctx context.Context, prefix string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM kv_entries WHERE key LIKE ? ESCAPE '\'`, escapeLike(prefix)+"%")
	if err != nil {
		r.logger.Error().Err(err).Str("prefix", prefix).Msg("failed to delete kv entries by prefix")
		return 0, fmt.Errorf("failed to delete kv entries: %w: %w", domain.ErrPersistence, err)
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted kv entries: %w: %w", domain.ErrPersistence, err)
	}
	return deleted, nil
}

func (r *KVRepository) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT key FROM kv_entries WHERE key LIKE ? ESCAPE '\' ORDER BY key`, escapeLike(prefix)+"%")
	if err != nil {
		r.logger.Error().Err(err).Str("prefix", prefix).Msg("failed to list kv keys")
		return nil, fmt.Errorf("failed to list kv keys: %w: %w", domain.ErrPersistence, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan kv key: %w: %w", domain.ErrPersistence, err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate kv keys: %w: %w", domain.ErrPersistence, err)
	}

	return keys, nil
}

// escapeLike protects literal LIKE metacharacters in key prefixes.
func escapeLike(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '%', '_', '\\':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}
