// Package registry provides persistence for model version snapshots.
package registry

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	domain "github.com/gridmind/gridmind-go/internal/domain/version"
	"github.com/gridmind/gridmind-go/internal/shared"
)

// SQLiteRegistry stores model versions in SQLite: one row per version
// holding the snapshot blob plus a JSON metadata sidecar. Retention is
// bounded to the most recent K versions.
type SQLiteRegistry struct {
	mu        sync.Mutex
	db        *sql.DB
	retention int
	closed    bool
}

// NewSQLiteRegistry creates a new SQLite-backed registry.
func NewSQLiteRegistry(config shared.RegistryConfig) (*SQLiteRegistry, error) {
	if config.Path == "" {
		config.Path = ".data/versions.db"
	}
	if config.Retention <= 0 {
		config.Retention = 20
	}

	dir := filepath.Dir(config.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("%w: failed to create directory: %v", domain.ErrStoreInitFailed, err)
	}

	db, err := sql.Open("sqlite", config.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open database: %v", domain.ErrStoreInitFailed, err)
	}

	registry := &SQLiteRegistry{db: db, retention: config.Retention}

	if err := registry.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return registry, nil
}

func (r *SQLiteRegistry) initSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS model_versions (
			version INTEGER PRIMARY KEY AUTOINCREMENT,
			state BLOB NOT NULL,
			metadata TEXT NOT NULL,
			created_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_versions_created ON model_versions(created_at);
	`

	if _, err := r.db.Exec(schema); err != nil {
		return fmt.Errorf("%w: failed to create schema: %v", domain.ErrStoreInitFailed, err)
	}

	return nil
}

// Backup persists a snapshot and returns its version handle. Versions
// beyond the retention count are evicted oldest-first.
func (r *SQLiteRegistry) Backup(ctx context.Context, state []byte, metadata domain.Metadata) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return 0, domain.ErrStoreClosed
	}

	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrBackupFailed, err)
	}

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO model_versions (state, metadata, created_at)
		VALUES (?, ?, ?)
	`, state, string(metaJSON), time.Now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrBackupFailed, err)
	}

	version, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrBackupFailed, err)
	}

	_, err = r.db.ExecContext(ctx, `
		DELETE FROM model_versions WHERE version NOT IN (
			SELECT version FROM model_versions ORDER BY created_at DESC, version DESC LIMIT ?
		)
	`, r.retention)
	if err != nil {
		return version, fmt.Errorf("%w: eviction failed: %v", domain.ErrBackupFailed, err)
	}

	return version, nil
}

// Get returns a stored version.
func (r *SQLiteRegistry) Get(ctx context.Context, version int64) (*domain.ModelVersion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, domain.ErrStoreClosed
	}

	return r.scanVersion(r.db.QueryRowContext(ctx, `
		SELECT version, state, metadata, created_at
		FROM model_versions WHERE version = ?
	`, version))
}

// Latest returns the most recent version.
func (r *SQLiteRegistry) Latest(ctx context.Context) (*domain.ModelVersion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, domain.ErrStoreClosed
	}

	return r.scanVersion(r.db.QueryRowContext(ctx, `
		SELECT version, state, metadata, created_at
		FROM model_versions ORDER BY version DESC LIMIT 1
	`))
}

func (r *SQLiteRegistry) scanVersion(row *sql.Row) (*domain.ModelVersion, error) {
	var (
		version   int64
		state     []byte
		metaJSON  string
		createdAt int64
	)

	err := row.Scan(&version, &state, &metaJSON, &createdAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrVersionNotFound
	}
	if err != nil {
		return nil, err
	}

	var metadata domain.Metadata
	if err := json.Unmarshal([]byte(metaJSON), &metadata); err != nil {
		return nil, fmt.Errorf("corrupt metadata for version %d: %w", version, err)
	}

	return &domain.ModelVersion{
		Version:   version,
		State:     state,
		Metadata:  metadata,
		CreatedAt: time.UnixMilli(createdAt),
	}, nil
}

// List returns metadata for all retained versions, newest first. Snapshot
// blobs are not loaded.
func (r *SQLiteRegistry) List(ctx context.Context) ([]domain.ModelVersion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, domain.ErrStoreClosed
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT version, metadata, created_at
		FROM model_versions ORDER BY version DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []domain.ModelVersion
	for rows.Next() {
		var (
			version   int64
			metaJSON  string
			createdAt int64
		)
		if err := rows.Scan(&version, &metaJSON, &createdAt); err != nil {
			return nil, err
		}

		var metadata domain.Metadata
		if err := json.Unmarshal([]byte(metaJSON), &metadata); err != nil {
			return nil, fmt.Errorf("corrupt metadata for version %d: %w", version, err)
		}

		versions = append(versions, domain.ModelVersion{
			Version:   version,
			Metadata:  metadata,
			CreatedAt: time.UnixMilli(createdAt),
		})
	}

	return versions, rows.Err()
}

// Count returns the number of retained versions.
func (r *SQLiteRegistry) Count(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return 0, domain.ErrStoreClosed
	}

	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM model_versions`).Scan(&count)
	return count, err
}

// Close closes the registry.
func (r *SQLiteRegistry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}

	r.closed = true
	return r.db.Close()
}
