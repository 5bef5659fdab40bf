// Package codec serializes layouts in two interchangeable formats: an
// explicit, human-readable JSON document and a compact binary form for
// storage and transport. Both carry a schema version and both decode
// through the same migration chain, so a reader at the current version
// accepts every version it has ever written.
//
// Decoding fails closed. Malformed input and unsupported versions are
// hard errors; no best-effort partial layout is ever returned.
package codec

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/roomforge/roomforge/pkg/errors"
	"github.com/roomforge/roomforge/pkg/layout"
)

// Sanity ceilings applied before allocating during decode. Any layout
// the generator can produce sits far below all of them.
const (
	maxRooms     = 4096
	maxCorridors = 16384
	maxCells     = 1 << 20
	maxDoorways  = 256
	maxDimension = 1 << 16
)

// EncodeJSON serializes l as an indented JSON document. The layout's
// schema version is stamped to the current version; encoding is
// deterministic for a given layout.
func EncodeJSON(l *layout.Layout) ([]byte, error) {
	out := l.Clone()
	out.SchemaVersion = layout.SchemaVersion
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return nil, errors.WrapStage(errors.ErrCodeInternal, errors.StageDecode, err, "encoding layout")
	}
	return buf.Bytes(), nil
}

// DecodeJSON parses a JSON layout document of any supported schema
// version and returns it migrated to the current version.
func DecodeJSON(data []byte) (*layout.Layout, error) {
	var probe struct {
		SchemaVersion int `json:"schemaVersion"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, errors.WrapStage(errors.ErrCodeDecodeMalformed, errors.StageDecode, err, "not a layout document")
	}
	if err := checkVersion(probe.SchemaVersion); err != nil {
		return nil, err
	}

	var l layout.Layout
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&l); err != nil {
		return nil, errors.WrapStage(errors.ErrCodeDecodeMalformed, errors.StageDecode, err, "parsing schema v%d layout", probe.SchemaVersion)
	}
	if err := migrate(&l); err != nil {
		return nil, err
	}
	if err := sanity(&l); err != nil {
		return nil, err
	}
	return &l, nil
}

// checkVersion rejects versions this reader does not know how to
// migrate.
func checkVersion(v int) error {
	if v < 1 || v > layout.SchemaVersion {
		return errors.NewStage(errors.ErrCodeDecodeVersion, errors.StageDecode,
			"schema version %d not supported (current is %d)", v, layout.SchemaVersion)
	}
	return nil
}

// migrate upgrades a decoded layout in place, one version step at a
// time, until it reaches the current schema. Each step is total: a
// valid vN layout always produces a valid vN+1 layout.
func migrate(l *layout.Layout) error {
	for l.SchemaVersion < layout.SchemaVersion {
		switch l.SchemaVersion {
		case 1:
			migrateV1(l)
		default:
			return errors.NewStage(errors.ErrCodeDecodeVersion, errors.StageDecode,
				"no migration from schema version %d", l.SchemaVersion)
		}
	}
	return nil
}

// migrateV1 upgrades v1 to v2. Version 1 predates corridor tags and
// room depth: the tag is recovered from the corridor width (wide
// corridors were always backbone) and depth defaults to zero.
func migrateV1(l *layout.Layout) {
	for i := range l.Corridors {
		if l.Corridors[i].Tag == "" {
			if l.Corridors[i].Width >= 5 {
				l.Corridors[i].Tag = layout.TagPrimary
			} else {
				l.Corridors[i].Tag = layout.TagSecondary
			}
		}
	}
	for i := range l.Rooms {
		if l.Rooms[i].Depth < 0 {
			l.Rooms[i].Depth = 0
		}
	}
	l.SchemaVersion = 2
}

// sanity applies cheap structural checks shared by both decoders. Full
// geometric validation is the caller's choice; this only rejects data
// that no writer could have produced.
func sanity(l *layout.Layout) error {
	if l.Width <= 0 || l.Height <= 0 || l.Width > maxDimension || l.Height > maxDimension {
		return malformed("map dimensions %dx%d out of range", l.Width, l.Height)
	}
	if len(l.Rooms) > maxRooms {
		return malformed("room count %d exceeds limit", len(l.Rooms))
	}
	if len(l.Corridors) > maxCorridors {
		return malformed("corridor count %d exceeds limit", len(l.Corridors))
	}
	for i := range l.Rooms {
		if !l.Rooms[i].Type.Valid() {
			return malformed("room %d has unknown type %q", l.Rooms[i].ID, l.Rooms[i].Type)
		}
	}
	for i := range l.Corridors {
		c := &l.Corridors[i]
		if c.Tag != layout.TagPrimary && c.Tag != layout.TagSecondary {
			return malformed("corridor %d has unknown tag %q", c.ID, c.Tag)
		}
		if len(c.Cells) > maxCells {
			return malformed("corridor %d cell count %d exceeds limit", c.ID, len(c.Cells))
		}
	}
	return nil
}

func malformed(format string, args ...any) error {
	return errors.NewStage(errors.ErrCodeDecodeMalformed, errors.StageDecode, format, args...)
}

// roomTypeIndex maps a room type to its byte encoding. The inverse of
// indexing into layout.RoomTypes.
func roomTypeIndex(t layout.RoomType) (byte, error) {
	for i, known := range layout.RoomTypes {
		if t == known {
			return byte(i), nil
		}
	}
	return 0, fmt.Errorf("unknown room type %q", t)
}
