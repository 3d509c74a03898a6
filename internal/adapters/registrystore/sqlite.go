package registrystore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"accountmeta/internal/domain/account"
)

const schema = `
CREATE TABLE IF NOT EXISTS registry_snapshots (
	source TEXT NOT NULL,
	key TEXT NOT NULL,
	fetched_at DATETIME NOT NULL,
	PRIMARY KEY (source, key)
);

CREATE TABLE IF NOT EXISTS registry_entries (
	source TEXT NOT NULL,
	key TEXT NOT NULL,
	position INTEGER NOT NULL,
	address TEXT NOT NULL,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	icon TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (source, key, position),
	FOREIGN KEY (source, key) REFERENCES registry_snapshots(source, key) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_registry_entries_address ON registry_entries(address);
`

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

// Migrate creates the schema if it does not exist
func (r *SQLiteRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// SaveSnapshot replaces the stored snapshot for (source, key)
func (r *SQLiteRepository) SaveSnapshot(ctx context.Context, s account.Snapshot) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	source := s.Source.String()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM registry_entries WHERE source = ? AND key = ?`,
		source, s.Key,
	); err != nil {
		return fmt.Errorf("failed to clear entries: %w", err)
	}

	fetchedAt := s.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now()
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO registry_snapshots (source, key, fetched_at)
		VALUES (?, ?, ?)
		ON CONFLICT(source, key) DO UPDATE SET
			fetched_at = excluded.fetched_at
	`, source, s.Key, fetchedAt.UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO registry_entries (source, key, position, address, name, description, icon)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare entry insert: %w", err)
	}
	defer stmt.Close()

	for i, e := range s.Entries {
		if _, err := stmt.ExecContext(ctx, source, s.Key, i, e.Address, e.Name, e.Description, e.Icon); err != nil {
			return fmt.Errorf("failed to save entry %s: %w", e.Address, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot returns the stored snapshot for (source, key) or ErrSnapshotNotFound
func (r *SQLiteRepository) LoadSnapshot(ctx context.Context, source account.SourceKind, key string) (*account.Snapshot, error) {
	var fetchedAtStr string
	err := r.db.QueryRowContext(ctx,
		`SELECT fetched_at FROM registry_snapshots WHERE source = ? AND key = ?`,
		source.String(), key,
	).Scan(&fetchedAtStr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: source=%s, key=%s", account.ErrSnapshotNotFound, source, key)
		}
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}

	fetchedAt, err := parseTime(fetchedAtStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse fetched_at: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT address, name, description, icon
		FROM registry_entries
		WHERE source = ? AND key = ?
		ORDER BY position ASC
	`, source.String(), key)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	entries := make([]account.Metadata, 0)
	for rows.Next() {
		m := account.Metadata{Source: source}
		if err := rows.Scan(&m.Address, &m.Name, &m.Description, &m.Icon); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		entries = append(entries, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating entries: %w", err)
	}

	return &account.Snapshot{
		Key:       key,
		Source:    source,
		Entries:   entries,
		FetchedAt: fetchedAt,
	}, nil
}

// Close closes the database connection
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		// SQLite may hand DATETIME columns back in its own layout
		return time.Parse("2006-01-02 15:04:05", s)
	}
	return t, nil
}
