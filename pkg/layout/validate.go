package layout

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrOutOfBounds is returned by [Layout.Validate] when a room lies
	// outside the map rectangle.
	ErrOutOfBounds = errors.New("room out of map bounds")

	// ErrDegenerateRoom is returned by [Layout.Validate] when a room has
	// non-positive width or height.
	ErrDegenerateRoom = errors.New("room has non-positive extent")

	// ErrRoomOverlap is returned by [Layout.Validate] when two room
	// rectangles intersect.
	ErrRoomOverlap = errors.New("rooms overlap")

	// ErrCorridorThroughRoom is returned by [Layout.Validate] when a
	// corridor centerline cell lies inside a room anywhere other than a
	// declared doorway.
	ErrCorridorThroughRoom = errors.New("corridor crosses room interior")

	// ErrBadCorridorWidth is returned by [Layout.Validate] for corridor
	// widths other than 3 or 5.
	ErrBadCorridorWidth = errors.New("corridor width must be 3 or 5")

	// ErrUnknownRoomRef is returned by [Layout.Validate] when a corridor
	// references a room id that does not exist.
	ErrUnknownRoomRef = errors.New("corridor references unknown room")

	// ErrNotConnected is returned by [Layout.Validate] when the room
	// graph is not fully connected.
	ErrNotConnected = errors.New("layout is not fully connected")
)

// Validate checks every structural invariant a layout must satisfy
// before it is considered valid: positive room extents inside the map,
// pairwise disjoint rooms, corridors that stay out of room interiors
// except at declared doorways, legal corridor widths and room
// references, and full connectivity of the room graph.
//
// Validation order is fixed (geometry before graph), so a layout with
// several defects reports the same error on every run.
func (l *Layout) Validate() error {
	bounds := l.Bounds()
	if !bounds.Valid() {
		return fmt.Errorf("map dimensions %dx%d: %w", l.Width, l.Height, ErrDegenerateRoom)
	}

	for i := range l.Rooms {
		r := &l.Rooms[i]
		if !r.Bounds.Valid() {
			return fmt.Errorf("room %d: %w", r.ID, ErrDegenerateRoom)
		}
		if !bounds.ContainsRect(r.Bounds) {
			return fmt.Errorf("room %d at %+v: %w", r.ID, r.Bounds, ErrOutOfBounds)
		}
	}

	for i := range l.Rooms {
		for j := i + 1; j < len(l.Rooms); j++ {
			if l.Rooms[i].Bounds.Intersects(l.Rooms[j].Bounds) {
				return fmt.Errorf("rooms %d and %d: %w", l.Rooms[i].ID, l.Rooms[j].ID, ErrRoomOverlap)
			}
		}
	}

	rooms := make(map[int]*Room, len(l.Rooms))
	for i := range l.Rooms {
		rooms[l.Rooms[i].ID] = &l.Rooms[i]
	}

	for _, c := range l.Corridors {
		if c.Width != 3 && c.Width != 5 {
			return fmt.Errorf("corridor %d width %d: %w", c.ID, c.Width, ErrBadCorridorWidth)
		}
		if _, ok := rooms[c.RoomA]; !ok {
			return fmt.Errorf("corridor %d room %d: %w", c.ID, c.RoomA, ErrUnknownRoomRef)
		}
		if _, ok := rooms[c.RoomB]; !ok {
			return fmt.Errorf("corridor %d room %d: %w", c.ID, c.RoomB, ErrUnknownRoomRef)
		}
		for _, cell := range c.Cells {
			for i := range l.Rooms {
				r := &l.Rooms[i]
				if r.Bounds.Contains(cell) && !r.HasDoorway(cell) {
					return fmt.Errorf("corridor %d cell %+v in room %d: %w",
						c.ID, cell, r.ID, ErrCorridorThroughRoom)
				}
			}
		}
	}

	if !l.Connected() {
		return fmt.Errorf("%d rooms, %d corridors: %w", len(l.Rooms), len(l.Corridors), ErrNotConnected)
	}
	return nil
}

// Connected reports whether every room is reachable from every other
// room via corridor adjacency. It runs a breadth-first traversal from
// the lowest room id. Layouts with fewer than two rooms are connected.
func (l *Layout) Connected() bool {
	if len(l.Rooms) < 2 {
		return true
	}

	ids := make([]int, len(l.Rooms))
	for i := range l.Rooms {
		ids[i] = l.Rooms[i].ID
	}
	sort.Ints(ids)

	adj := l.Adjacency()
	visited := make(map[int]bool, len(ids))
	queue := []int{ids[0]}
	visited[ids[0]] = true
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, n := range adj[cur] {
			if !visited[n] {
				visited[n] = true
				queue = append(queue, n)
			}
		}
	}
	return len(visited) == len(ids)
}

// Equal reports field-for-field structural equality of two layouts.
// The codec round-trip contract is decode(encode(l)).Equal(l) for every
// valid layout.
func (l *Layout) Equal(o *Layout) bool {
	if l.SchemaVersion != o.SchemaVersion || l.Width != o.Width ||
		l.Height != o.Height || l.Seed != o.Seed ||
		len(l.Rooms) != len(o.Rooms) || len(l.Corridors) != len(o.Corridors) {
		return false
	}
	for i := range l.Rooms {
		a, b := &l.Rooms[i], &o.Rooms[i]
		if a.ID != b.ID || a.Bounds != b.Bounds || a.Type != b.Type || a.Depth != b.Depth {
			return false
		}
		if len(a.Doorways) != len(b.Doorways) {
			return false
		}
		for j := range a.Doorways {
			if a.Doorways[j] != b.Doorways[j] {
				return false
			}
		}
	}
	for i := range l.Corridors {
		a, b := &l.Corridors[i], &o.Corridors[i]
		if a.ID != b.ID || a.Width != b.Width || a.RoomA != b.RoomA ||
			a.RoomB != b.RoomB || a.Tag != b.Tag || len(a.Cells) != len(b.Cells) {
			return false
		}
		for j := range a.Cells {
			if a.Cells[j] != b.Cells[j] {
				return false
			}
		}
	}
	return true
}
