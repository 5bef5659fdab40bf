package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/roomforge/roomforge/pkg/errors"
	"github.com/roomforge/roomforge/pkg/generate"
	"github.com/roomforge/roomforge/pkg/layout"
)

func sampleLayout(seed uint64) *layout.Layout {
	return &layout.Layout{
		SchemaVersion: layout.SchemaVersion,
		Width:         32, Height: 32,
		Seed: seed,
		Rooms: []layout.Room{
			{ID: 0, Bounds: layout.Rect{X: 2, Y: 2, W: 6, H: 6}, Type: layout.RoomLobby,
				Doorways: []layout.Point{{X: 7, Y: 4}}},
			{ID: 1, Bounds: layout.Rect{X: 20, Y: 2, W: 6, H: 6}, Type: layout.RoomBoss,
				Doorways: []layout.Point{{X: 20, Y: 4}}},
		},
		Corridors: []layout.Corridor{
			{ID: 0, RoomA: 0, RoomB: 1, Width: 5, Tag: layout.TagPrimary,
				Cells: []layout.Point{{X: 8, Y: 4}, {X: 19, Y: 4}}},
		},
	}
}

func TestNewRecord(t *testing.T) {
	opts := generate.Options{Seed: 42}
	l := sampleLayout(42)
	rec := NewRecord("office-a", opts, l)

	if rec.ID == "" {
		t.Fatal("record has no id")
	}
	if rec.Name != "office-a" || rec.Seed != 42 {
		t.Fatalf("record fields: %+v", rec)
	}
	if rec.CreatedAt.IsZero() || rec.CreatedAt.Location() != time.UTC {
		t.Fatalf("created_at not set in UTC: %v", rec.CreatedAt)
	}
	other := NewRecord("office-b", opts, l)
	if other.ID == rec.ID {
		t.Fatal("record ids collide")
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer s.Close()
	ctx := context.Background()

	rec := NewRecord("hq", generate.Options{Seed: 9}, sampleLayout(9))
	if err := s.Put(ctx, rec); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := s.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != rec.Name || got.Seed != rec.Seed {
		t.Fatalf("record fields lost: %+v", got)
	}
	if got.Layout == nil || !got.Layout.Equal(rec.Layout) {
		t.Fatal("layout not preserved")
	}

	// Put with the same id replaces.
	rec.Name = "hq-renamed"
	if err := s.Put(ctx, rec); err != nil {
		t.Fatalf("replace: %v", err)
	}
	got, err = s.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("get after replace: %v", err)
	}
	if got.Name != "hq-renamed" {
		t.Fatalf("replace did not stick: %q", got.Name)
	}
}

func TestFileStoreNotFound(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	ctx := context.Background()

	if _, err := s.Get(ctx, "nope"); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Fatalf("get absent: %v", err)
	}
	if err := s.Delete(ctx, "nope"); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Fatalf("delete absent: %v", err)
	}
}

func TestFileStoreListOrder(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, name := range []string{"oldest", "middle", "newest"} {
		rec := NewRecord(name, generate.Options{Seed: uint64(i)}, sampleLayout(uint64(i)))
		rec.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		if err := s.Put(ctx, rec); err != nil {
			t.Fatalf("put %s: %v", name, err)
		}
	}

	list, err := s.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("listed %d records", len(list))
	}
	if list[0].Name != "newest" || list[2].Name != "oldest" {
		t.Fatalf("not newest-first: %q, %q, %q", list[0].Name, list[1].Name, list[2].Name)
	}
	for _, rec := range list {
		if rec.Layout != nil {
			t.Fatalf("list leaked a layout for %q", rec.Name)
		}
	}
}

func TestFileStoreListSkipsCorrupt(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	ctx := context.Background()

	rec := NewRecord("good", generate.Options{Seed: 1}, sampleLayout(1))
	if err := s.Put(ctx, rec); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{"), 0644); err != nil {
		t.Fatalf("write corrupt: %v", err)
	}

	list, err := s.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].Name != "good" {
		t.Fatalf("corrupt entry not skipped: %+v", list)
	}
}

func TestFileStoreDelete(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	ctx := context.Background()

	rec := NewRecord("temp", generate.Options{Seed: 3}, sampleLayout(3))
	if err := s.Put(ctx, rec); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.Delete(ctx, rec.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get(ctx, rec.ID); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Fatalf("record survived delete: %v", err)
	}
}
