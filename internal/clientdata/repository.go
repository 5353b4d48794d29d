// Package clientdata provides persistent caching for external API client
// responses. All data is stored as msgpack blobs with expiration
// timestamps for cache-first behavior.
package clientdata

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Known cache sources. Source names partition the cache keyspace so
// different clients cannot collide on keys.
const (
	SourceAlphaVantage = "alphavantage_quote"
)

// Repository provides cache operations over cache.db.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new client data repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Store saves data with expiration = now + ttl. Upserts on (source, key).
func (r *Repository) Store(source, key string, data interface{}, ttl time.Duration) error {
	blob, err := msgpack.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal cache data: %w", err)
	}

	now := time.Now()
	_, err = r.db.Exec(`
		INSERT OR REPLACE INTO quote_cache (source, cache_key, data, expires_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, source, key, blob, now.Add(ttl).Unix(), now.Unix())
	if err != nil {
		return fmt.Errorf("failed to store cache entry: %w", err)
	}

	return nil
}

// GetIfFresh unmarshals the cached value into dest if it exists and has
// not expired. Returns false when there is no fresh entry.
func (r *Repository) GetIfFresh(source, key string, dest interface{}) (bool, error) {
	return r.get(source, key, dest, true)
}

// GetStale unmarshals the cached value into dest regardless of
// expiration. Used as a fallback when the upstream API is unreachable
// (stale data beats no data).
func (r *Repository) GetStale(source, key string, dest interface{}) (bool, error) {
	return r.get(source, key, dest, false)
}

func (r *Repository) get(source, key string, dest interface{}, freshOnly bool) (bool, error) {
	query := "SELECT data FROM quote_cache WHERE source = ? AND cache_key = ?"
	args := []interface{}{source, key}
	if freshOnly {
		query += " AND expires_at > ?"
		args = append(args, time.Now().Unix())
	}

	var blob []byte
	err := r.db.QueryRow(query, args...).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read cache entry: %w", err)
	}

	if err := msgpack.Unmarshal(blob, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cache data: %w", err)
	}

	return true, nil
}

// DeleteExpired removes all expired entries and returns the count.
func (r *Repository) DeleteExpired() (int64, error) {
	result, err := r.db.Exec("DELETE FROM quote_cache WHERE expires_at <= ?", time.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired cache entries: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted cache entries: %w", err)
	}

	return deleted, nil
}
