// Package store persists named layout records. Three backends exist:
// FileStore (a JSON directory, zero setup), SQLiteStore (single-file
// database) and MongoStore (shared deployments). The CLI selects one
// from a URI: file:dir, sqlite:path, or mongodb://...
package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/roomforge/roomforge/pkg/errors"
	"github.com/roomforge/roomforge/pkg/generate"
	"github.com/roomforge/roomforge/pkg/layout"
)

// Record is one saved layout with the request that produced it.
type Record struct {
	ID        string           `json:"id" bson:"_id"`
	Name      string           `json:"name" bson:"name"`
	CreatedAt time.Time        `json:"created_at" bson:"created_at"`
	Seed      uint64           `json:"seed" bson:"seed"`
	Options   generate.Options `json:"options" bson:"options"`

	// Layout is omitted from List results; fetch a single record to
	// get it.
	Layout *layout.Layout `json:"layout,omitempty" bson:"layout,omitempty"`
}

// NewRecord builds a record for a generated layout with a fresh id.
func NewRecord(name string, opts generate.Options, l *layout.Layout) *Record {
	return &Record{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
		Seed:      l.Seed,
		Options:   opts,
		Layout:    l,
	}
}

// Store is a persistent collection of layout records.
// Implementations are safe for concurrent use.
type Store interface {
	// Put inserts or replaces a record by id.
	Put(ctx context.Context, rec *Record) error

	// Get retrieves a full record. Absent ids fail with NOT_FOUND.
	Get(ctx context.Context, id string) (*Record, error)

	// List returns all records without their layouts, newest first.
	List(ctx context.Context) ([]Record, error)

	// Delete removes a record. Absent ids fail with NOT_FOUND.
	Delete(ctx context.Context, id string) error

	// Close releases backend resources.
	Close() error
}

func notFound(id string) error {
	return errors.New(errors.ErrCodeNotFound, "layout record %q not found", id)
}

func storeErr(cause error, format string, args ...any) error {
	return errors.Wrap(errors.ErrCodeStore, cause, format, args...)
}
