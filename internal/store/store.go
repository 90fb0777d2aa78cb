package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cruciblehq/cruxpkgs/internal/drv"
	"github.com/opencontainers/go-digest"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS derivations (
	digest     TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	json       TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS realizations (
	digest      TEXT NOT NULL REFERENCES derivations(digest),
	output      TEXT NOT NULL,
	path        TEXT NOT NULL,
	realized_at INTEGER NOT NULL,
	PRIMARY KEY (digest, output)
);
CREATE INDEX IF NOT EXISTS idx_realizations_path ON realizations(path);
`

// A recorded derivation.
type Record struct {
	Digest    digest.Digest // Identity of the description.
	Name      string        // Display name.
	JSON      []byte        // Canonical description.
	CreatedAt time.Time     // When the derivation was first recorded.
}

// Counts of recorded rows.
type Stats struct {
	Derivations  int
	Realizations int
}

// SQLite-backed derivation database.
type Store struct {
	db *sql.DB
}

// Opens (creating if needed) the database at path.
//
// The special path ":memory:" opens a private in-memory database.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrStore, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStore, err)
	}

	// One connection keeps an in-memory database alive and serializes
	// writers on a file database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %w", ErrStore, err)
	}

	return &Store{db: db}, nil
}

// Closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Records a derivation. Recording the same derivation again is a no-op.
func (s *Store) PutDerivation(ctx context.Context, h drv.Handle) error {
	d := h.Force()
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStore, err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO derivations (digest, name, json, created_at) VALUES (?, ?, ?, ?)`,
		h.Digest().String(), d.DisplayName(), string(data), time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStore, err)
	}
	return nil
}

// Returns a recorded derivation, or [ErrNotFound].
func (s *Store) Derivation(ctx context.Context, dg digest.Digest) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT digest, name, json, created_at FROM derivations WHERE digest = ?`, dg.String())

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: derivation %s", ErrNotFound, dg)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStore, err)
	}
	return rec, nil
}

// Returns every recorded derivation, most recent first.
func (s *Store) Derivations(ctx context.Context) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT digest, name, json, created_at FROM derivations ORDER BY created_at DESC, name`)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStore, err)
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrStore, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStore, err)
	}
	return out, nil
}

// Records the path an output of a derivation was realized at.
//
// The derivation must have been recorded with [Store.PutDerivation].
func (s *Store) AddRealization(ctx context.Context, dg digest.Digest, output, path string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO realizations (digest, output, path, realized_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (digest, output) DO UPDATE SET path = excluded.path, realized_at = excluded.realized_at`,
		dg.String(), output, path, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStore, err)
	}
	return nil
}

// Returns the realized outputs of a derivation, keyed by output name.
func (s *Store) Realizations(ctx context.Context, dg digest.Digest) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT output, path FROM realizations WHERE digest = ?`, dg.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStore, err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var output, path string
		if err := rows.Scan(&output, &path); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrStore, err)
		}
		out[output] = path
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStore, err)
	}
	return out, nil
}

// Forgets the realizations of a derivation, e.g. after its outputs were
// found missing on disk.
func (s *Store) Invalidate(ctx context.Context, dg digest.Digest) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM realizations WHERE digest = ?`, dg.String()); err != nil {
		return fmt.Errorf("%w: %w", ErrStore, err)
	}
	return nil
}

// Returns row counts.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM derivations), (SELECT COUNT(*) FROM realizations)`,
	).Scan(&st.Derivations, &st.Realizations)
	if err != nil {
		return Stats{}, fmt.Errorf("%w: %w", ErrStore, err)
	}
	return st, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*Record, error) {
	var (
		dg, name, data string
		created        int64
	)
	if err := row.Scan(&dg, &name, &data, &created); err != nil {
		return nil, err
	}
	parsed, err := digest.Parse(dg)
	if err != nil {
		return nil, err
	}
	return &Record{
		Digest:    parsed,
		Name:      name,
		JSON:      []byte(data),
		CreatedAt: time.Unix(created, 0),
	}, nil
}
