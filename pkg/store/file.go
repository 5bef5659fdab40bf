package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FileStore keeps each record as <id>.json under a directory.
type FileStore struct {
	dir string
}

// NewFileStore creates a file-backed store in dir, creating it if
// needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, storeErr(err, "creating store directory %s", dir)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// Put inserts or replaces a record by id.
func (s *FileStore) Put(ctx context.Context, rec *Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return storeErr(err, "encoding record %s", rec.ID)
	}
	if err := os.WriteFile(s.path(rec.ID), data, 0644); err != nil {
		return storeErr(err, "writing record %s", rec.ID)
	}
	return nil
}

// Get retrieves a full record.
func (s *FileStore) Get(ctx context.Context, id string) (*Record, error) {
	data, err := os.ReadFile(s.path(id))
	if os.IsNotExist(err) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, storeErr(err, "reading record %s", id)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, storeErr(err, "decoding record %s", id)
	}
	return &rec, nil
}

// List returns all records without their layouts, newest first.
func (s *FileStore) List(ctx context.Context) ([]Record, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, storeErr(err, "listing store directory %s", s.dir)
	}
	var out []Record
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		id := strings.TrimSuffix(e.Name(), ".json")
		rec, err := s.Get(ctx, id)
		if err != nil {
			// Skip corrupt entries rather than failing the listing.
			continue
		}
		rec.Layout = nil
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Delete removes a record.
func (s *FileStore) Delete(ctx context.Context, id string) error {
	err := os.Remove(s.path(id))
	if os.IsNotExist(err) {
		return notFound(id)
	}
	if err != nil {
		return storeErr(err, "deleting record %s", id)
	}
	return nil
}

// Close does nothing for the file backend.
func (s *FileStore) Close() error {
	return nil
}

var _ Store = (*FileStore)(nil)
