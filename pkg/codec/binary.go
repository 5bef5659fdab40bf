package codec

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/roomforge/roomforge/pkg/errors"
	"github.com/roomforge/roomforge/pkg/layout"
)

// Binary layout container. Two magic bytes, a version byte, then
// little-endian fixed-width fields:
//
//	"RF" | version u8
//	width u32 | height u32 | seed u64
//	roomCount u16
//	  per room: id u16 | x i16 | y i16 | w u16 | h u16 | type u8 |
//	            depth u8 (v2+) | doorwayCount u16 | doorways (x i16, y i16)...
//	corridorCount u16
//	  per corridor: id u16 | roomA u16 | roomB u16 | width u8 |
//	                tag u8 (v2+) | cellCount u32 | cells (x i16, y i16)...
//
// The room type byte indexes layout.RoomTypes; the tag byte is 0 for
// primary, 1 for secondary. Version 1 payloads omit the depth and tag
// bytes and are migrated on read.
var binaryMagic = [2]byte{'R', 'F'}

const (
	tagBytePrimary   = 0
	tagByteSecondary = 1
)

// EncodeBinary serializes l in the compact binary format at the
// current schema version.
func EncodeBinary(l *layout.Layout) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(binaryMagic[:])
	buf.WriteByte(layout.SchemaVersion)

	w := &leWriter{w: &buf}
	w.u32(uint32(l.Width))
	w.u32(uint32(l.Height))
	w.u64(l.Seed)

	w.u16(uint16(len(l.Rooms)))
	for i := range l.Rooms {
		r := &l.Rooms[i]
		typeByte, err := roomTypeIndex(r.Type)
		if err != nil {
			return nil, errors.WrapStage(errors.ErrCodeInternal, errors.StageDecode, err, "encoding room %d", r.ID)
		}
		w.u16(uint16(r.ID))
		w.i16(int16(r.Bounds.X))
		w.i16(int16(r.Bounds.Y))
		w.u16(uint16(r.Bounds.W))
		w.u16(uint16(r.Bounds.H))
		w.b(typeByte)
		w.b(byte(r.Depth))
		w.u16(uint16(len(r.Doorways)))
		for _, d := range r.Doorways {
			w.i16(int16(d.X))
			w.i16(int16(d.Y))
		}
	}

	w.u16(uint16(len(l.Corridors)))
	for i := range l.Corridors {
		c := &l.Corridors[i]
		w.u16(uint16(c.ID))
		w.u16(uint16(c.RoomA))
		w.u16(uint16(c.RoomB))
		w.b(byte(c.Width))
		if c.Tag == layout.TagPrimary {
			w.b(tagBytePrimary)
		} else {
			w.b(tagByteSecondary)
		}
		w.u32(uint32(len(c.Cells)))
		for _, p := range c.Cells {
			w.i16(int16(p.X))
			w.i16(int16(p.Y))
		}
	}
	return buf.Bytes(), nil
}

// DecodeBinary parses a binary layout payload of any supported version
// and returns it migrated to the current schema.
func DecodeBinary(data []byte) (*layout.Layout, error) {
	if len(data) < 3 || data[0] != binaryMagic[0] || data[1] != binaryMagic[1] {
		return nil, malformed("not a binary layout payload")
	}
	version := int(data[2])
	if err := checkVersion(version); err != nil {
		return nil, err
	}

	r := &leReader{r: bytes.NewReader(data[3:])}
	l := &layout.Layout{SchemaVersion: version}
	l.Width = int(r.u32())
	l.Height = int(r.u32())
	l.Seed = r.u64()

	roomCount := int(r.u16())
	if roomCount > maxRooms {
		return nil, malformed("room count %d exceeds limit", roomCount)
	}
	l.Rooms = make([]layout.Room, 0, roomCount)
	for i := 0; i < roomCount; i++ {
		var room layout.Room
		room.ID = int(r.u16())
		room.Bounds.X = int(r.i16())
		room.Bounds.Y = int(r.i16())
		room.Bounds.W = int(r.u16())
		room.Bounds.H = int(r.u16())
		typeByte := r.b()
		if int(typeByte) >= len(layout.RoomTypes) {
			return nil, malformed("room %d has unknown type byte %d", room.ID, typeByte)
		}
		room.Type = layout.RoomTypes[typeByte]
		if version >= 2 {
			room.Depth = int(r.b())
		}
		doorways := int(r.u16())
		if doorways > maxDoorways {
			return nil, malformed("room %d doorway count %d exceeds limit", room.ID, doorways)
		}
		for j := 0; j < doorways; j++ {
			room.Doorways = append(room.Doorways, layout.Point{X: int(r.i16()), Y: int(r.i16())})
		}
		l.Rooms = append(l.Rooms, room)
	}

	corridorCount := int(r.u16())
	if corridorCount > maxCorridors {
		return nil, malformed("corridor count %d exceeds limit", corridorCount)
	}
	l.Corridors = make([]layout.Corridor, 0, corridorCount)
	for i := 0; i < corridorCount; i++ {
		var c layout.Corridor
		c.ID = int(r.u16())
		c.RoomA = int(r.u16())
		c.RoomB = int(r.u16())
		c.Width = int(r.b())
		if version >= 2 {
			switch r.b() {
			case tagBytePrimary:
				c.Tag = layout.TagPrimary
			case tagByteSecondary:
				c.Tag = layout.TagSecondary
			default:
				return nil, malformed("corridor %d has unknown tag byte", c.ID)
			}
		}
		cells := int(r.u32())
		if cells > maxCells {
			return nil, malformed("corridor %d cell count %d exceeds limit", c.ID, cells)
		}
		c.Cells = make([]layout.Point, 0, cells)
		for j := 0; j < cells; j++ {
			c.Cells = append(c.Cells, layout.Point{X: int(r.i16()), Y: int(r.i16())})
		}
		l.Corridors = append(l.Corridors, c)
	}

	if r.err != nil {
		return nil, errors.WrapStage(errors.ErrCodeDecodeMalformed, errors.StageDecode, r.err, "truncated binary layout")
	}
	if rem := r.r.Len(); rem > 0 {
		return nil, malformed("%d trailing bytes after layout", rem)
	}
	if err := migrate(l); err != nil {
		return nil, err
	}
	if err := sanity(l); err != nil {
		return nil, err
	}
	return l, nil
}

// leWriter writes little-endian fixed-width values to an in-memory
// buffer. Writes to a bytes.Buffer cannot fail, so no error plumbing.
type leWriter struct {
	w *bytes.Buffer
}

func (w *leWriter) b(v byte) { w.w.WriteByte(v) }
func (w *leWriter) u16(v uint16) {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	w.w.Write(tmp[:])
}
func (w *leWriter) i16(v int16) { w.u16(uint16(v)) }
func (w *leWriter) u32(v uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	w.w.Write(tmp[:])
}
func (w *leWriter) u64(v uint64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	w.w.Write(tmp[:])
}

// leReader reads little-endian fixed-width values, latching the first
// error. After an error every read returns zero, which the caller's
// final err check converts into a single malformed-payload error.
type leReader struct {
	r   *bytes.Reader
	err error
}

func (r *leReader) read(n int) []byte {
	if r.err != nil {
		return make([]byte, n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r.r, buf); err != nil {
		r.err = err
		return make([]byte, n)
	}
	return buf
}

func (r *leReader) b() byte { return r.read(1)[0] }
func (r *leReader) u16() uint16 { return binary.LittleEndian.Uint16(r.read(2)) }
func (r *leReader) i16() int16 { return int16(r.u16()) }
func (r *leReader) u32() uint32 { return binary.LittleEndian.Uint32(r.read(4)) }
func (r *leReader) u64() uint64 { return binary.LittleEndian.Uint64(r.read(8)) }
