package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/roomforge/roomforge/pkg/codec"
	"github.com/roomforge/roomforge/pkg/generate"
)

// SQLiteStore persists records in a single-file SQLite database. The
// layout itself is stored as a binary codec blob, the options as JSON.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens or creates the database at the given path and runs
// migrations.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, storeErr(err, "creating database directory")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, storeErr(err, "opening database %s", path)
	}

	// WAL for concurrent readers, busy timeout to wait on locks.
	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, storeErr(err, "applying %s", pragma)
		}
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// migrate creates the schema if it doesn't exist.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS layouts (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			seed INTEGER NOT NULL,
			options TEXT NOT NULL,
			layout BLOB NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_layouts_created_at ON layouts(created_at)`,
	}
	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return storeErr(err, "migration failed")
		}
	}
	return nil
}

// Put inserts or replaces a record by id.
func (s *SQLiteStore) Put(ctx context.Context, rec *Record) error {
	optsJSON, err := json.Marshal(rec.Options)
	if err != nil {
		return storeErr(err, "encoding options for record %s", rec.ID)
	}
	blob, err := codec.EncodeBinary(rec.Layout)
	if err != nil {
		return storeErr(err, "encoding layout for record %s", rec.ID)
	}
	// Seed is stored as the int64 bit pattern; SQLite has no unsigned
	// 64-bit integer type.
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO layouts (id, name, created_at, seed, options, layout)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Name, rec.CreatedAt, int64(rec.Seed), string(optsJSON), blob)
	if err != nil {
		return storeErr(err, "writing record %s", rec.ID)
	}
	return nil
}

// Get retrieves a full record.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, created_at, seed, options, layout FROM layouts WHERE id = ?`, id)

	var rec Record
	var seed int64
	var optsJSON string
	var blob []byte
	err := row.Scan(&rec.ID, &rec.Name, &rec.CreatedAt, &seed, &optsJSON, &blob)
	if err == sql.ErrNoRows {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, storeErr(err, "reading record %s", id)
	}
	rec.Seed = uint64(seed)
	if err := json.Unmarshal([]byte(optsJSON), &rec.Options); err != nil {
		return nil, storeErr(err, "decoding options for record %s", id)
	}
	l, err := codec.DecodeBinary(blob)
	if err != nil {
		return nil, storeErr(err, "decoding layout for record %s", id)
	}
	rec.Layout = l
	return &rec, nil
}

// List returns all records without their layouts, newest first.
func (s *SQLiteStore) List(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, created_at, seed, options FROM layouts ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, storeErr(err, "listing records")
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		var seed int64
		var optsJSON string
		var createdAt time.Time
		if err := rows.Scan(&rec.ID, &rec.Name, &createdAt, &seed, &optsJSON); err != nil {
			return nil, storeErr(err, "scanning record")
		}
		rec.CreatedAt = createdAt
		rec.Seed = uint64(seed)
		var opts generate.Options
		if err := json.Unmarshal([]byte(optsJSON), &opts); err == nil {
			rec.Options = opts
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(err, "listing records")
	}
	return out, nil
}

// Delete removes a record.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM layouts WHERE id = ?`, id)
	if err != nil {
		return storeErr(err, "deleting record %s", id)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound(id)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var _ Store = (*SQLiteStore)(nil)
