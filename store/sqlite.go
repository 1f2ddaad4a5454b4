package store

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"github.com/Neumenon/coda/coda"
)

// SQLiteStore stores snapshots in a single SQLite file.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens or creates the store described by cfg. Parent directories are
// created and the schema is applied if missing.
func Open(ctx context.Context, cfg Config) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	driver := cfg.Driver
	if driver == "" {
		driver = DriverModernc
	}
	if driver != DriverModernc && driver != DriverCgo {
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}
	if cfg.Path == "" {
		return nil, errors.New("store path is required")
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open(driver, cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db, logger: logger}
	if err := s.createSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("snapshot store initialized", "driver", driver, "path", cfg.Path)
	return s, nil
}

func (s *SQLiteStore) createSchema(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS snapshots (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			digest TEXT NOT NULL,
			format TEXT NOT NULL,
			body BLOB NOT NULL,
			columns INTEGER NOT NULL,
			cells INTEGER NOT NULL,
			created_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_snapshots_name
			ON snapshots(name);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Save encodes db as version 2 text and stores it under name. When the newest
// snapshot of name already has the same content it is returned instead of a
// new row.
func (s *SQLiteStore) Save(ctx context.Context, name string, db *coda.Database) (*Snapshot, error) {
	if name == "" {
		return nil, errors.New("snapshot name is required")
	}

	opts := coda.DefaultEncodeOptions()
	var buf bytes.Buffer
	if err := coda.Encode(&buf, db, opts); err != nil {
		return nil, fmt.Errorf("encoding %s: %w", name, err)
	}
	body := buf.Bytes()
	digest := Digest(body)

	latest, err := s.Latest(ctx, name)
	switch {
	case err == nil && latest.Digest == digest:
		s.logger.Debug("snapshot unchanged", "name", name, "id", latest.ID)
		return latest, nil
	case err != nil && !errors.Is(err, ErrNotFound):
		return nil, err
	}

	snap := &Snapshot{
		ID:        uuid.New().String(),
		Name:      name,
		Digest:    digest,
		Format:    opts.Version.Marker(),
		Columns:   len(db.Columns()),
		Cells:     db.CellCount(),
		CreatedAt: time.Now().UTC(),
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO snapshots (id, name, digest, format, body, columns, cells, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, snap.ID, snap.Name, snap.Digest, snap.Format, body, snap.Columns, snap.Cells,
		snap.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("inserting snapshot: %w", err)
	}

	s.logger.Info("snapshot saved", "name", name, "id", snap.ID, "cells", snap.Cells)
	return snap, nil
}

// Get returns a snapshot including its body.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, digest, format, columns, cells, created_at, body
		FROM snapshots WHERE id = ?
	`, id)

	var (
		snap    Snapshot
		created string
	)
	err := row.Scan(&snap.ID, &snap.Name, &snap.Digest, &snap.Format,
		&snap.Columns, &snap.Cells, &created, &snap.Body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying snapshot: %w", err)
	}
	if snap.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	return &snap, nil
}

// Load decodes the snapshot with the given id.
func (s *SQLiteStore) Load(ctx context.Context, id string) (*coda.Database, error) {
	snap, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return coda.Decode(ctx, bytes.NewReader(snap.Body), coda.DecodeOptions{
		Name:   snap.Name,
		Logger: s.logger,
	})
}

// Latest returns the newest snapshot stored under name, without its body.
func (s *SQLiteStore) Latest(ctx context.Context, name string) (*Snapshot, error) {
	snaps, err := s.list(ctx, name, 1)
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, ErrNotFound
	}
	return snaps[0], nil
}

// List returns snapshots newest first, without bodies. An empty name lists
// every snapshot.
func (s *SQLiteStore) List(ctx context.Context, name string) ([]*Snapshot, error) {
	return s.list(ctx, name, -1)
}

func (s *SQLiteStore) list(ctx context.Context, name string, limit int) ([]*Snapshot, error) {
	query := `
		SELECT id, name, digest, format, columns, cells, created_at
		FROM snapshots
		WHERE (? = '' OR name = ?)
		ORDER BY rowid DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, name, name, limit)
	if err != nil {
		return nil, fmt.Errorf("querying snapshots: %w", err)
	}
	defer rows.Close()

	var out []*Snapshot
	for rows.Next() {
		var (
			snap    Snapshot
			created string
		)
		if err := rows.Scan(&snap.ID, &snap.Name, &snap.Digest, &snap.Format,
			&snap.Columns, &snap.Cells, &created); err != nil {
			return nil, fmt.Errorf("scanning snapshot: %w", err)
		}
		if snap.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		out = append(out, &snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating snapshots: %w", err)
	}
	return out, nil
}

// Delete removes a snapshot.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM snapshots WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting snapshot: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
