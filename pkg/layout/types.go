// Package layout defines the floor-plan data model shared by every
// generation stage: points, rectangles, rooms, corridors, and the Layout
// aggregate, together with the structural validation that must hold
// before a layout is handed to consumers or serialized.
//
// A Layout is built once per generation request. It is either discarded
// (generation failed validation) or handed whole to downstream consumers;
// it is never mutated after validation succeeds. Consumers that need to
// change anything must Clone first.
package layout

// Point is a grid cell coordinate.
type Point struct {
	X int `json:"x" bson:"x"`
	Y int `json:"y" bson:"y"`
}

// ManhattanDist returns the L1 distance between two points.
func ManhattanDist(a, b Point) int {
	return abs(a.X-b.X) + abs(a.Y-b.Y)
}

// Adjacent reports whether two cells share an edge.
func Adjacent(a, b Point) bool {
	return ManhattanDist(a, b) == 1
}

// Rect is an axis-aligned rectangle with integer origin and size.
// A valid Rect has W > 0 and H > 0.
type Rect struct {
	X int `json:"x" bson:"x"`
	Y int `json:"y" bson:"y"`
	W int `json:"w" bson:"w"`
	H int `json:"h" bson:"h"`
}

// Right returns the exclusive right edge (X + W).
func (r Rect) Right() int { return r.X + r.W }

// Bottom returns the exclusive bottom edge (Y + H).
func (r Rect) Bottom() int { return r.Y + r.H }

// Area returns W × H.
func (r Rect) Area() int { return r.W * r.H }

// Center returns the integer center cell.
func (r Rect) Center() Point {
	return Point{X: r.X + r.W/2, Y: r.Y + r.H/2}
}

// Contains reports whether p lies inside the rectangle.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X < r.Right() && p.Y >= r.Y && p.Y < r.Bottom()
}

// ContainsRect reports whether inner lies fully inside r.
func (r Rect) ContainsRect(inner Rect) bool {
	return inner.X >= r.X && inner.Y >= r.Y &&
		inner.Right() <= r.Right() && inner.Bottom() <= r.Bottom()
}

// Intersects reports whether the two rectangles share any cell.
func (r Rect) Intersects(o Rect) bool {
	return r.X < o.Right() && o.X < r.Right() &&
		r.Y < o.Bottom() && o.Y < r.Bottom()
}

// Inset returns the rectangle shrunk by n cells on every side.
// The result may be degenerate (non-positive extent); callers check.
func (r Rect) Inset(n int) Rect {
	return Rect{X: r.X + n, Y: r.Y + n, W: r.W - 2*n, H: r.H - 2*n}
}

// Translate returns the rectangle moved by (dx, dy).
func (r Rect) Translate(dx, dy int) Rect {
	return Rect{X: r.X + dx, Y: r.Y + dy, W: r.W, H: r.H}
}

// Valid reports whether the rectangle has positive extent.
func (r Rect) Valid() bool { return r.W > 0 && r.H > 0 }

// OnPerimeter reports whether p lies on the rectangle's one-cell border.
func (r Rect) OnPerimeter(p Point) bool {
	if !r.Contains(p) {
		return false
	}
	return p.X == r.X || p.X == r.Right()-1 || p.Y == r.Y || p.Y == r.Bottom()-1
}

// RoomType is the semantic classification of a room.
type RoomType string

// Room types assigned by the classifier. Exactly one room per layout is
// a BossRoom.
const (
	RoomOffice     RoomType = "office"
	RoomConference RoomType = "conference"
	RoomBreakRoom  RoomType = "break_room"
	RoomStorage    RoomType = "storage"
	RoomLobby      RoomType = "lobby"
	RoomServerRoom RoomType = "server_room"
	RoomSecurity   RoomType = "security"
	RoomBoss       RoomType = "boss_room"
)

// RoomTypes lists every room type in declaration order. The order is
// load-bearing: it defines the byte encoding used by the binary codec
// and the fallback order during classification.
var RoomTypes = []RoomType{
	RoomOffice,
	RoomConference,
	RoomBreakRoom,
	RoomStorage,
	RoomLobby,
	RoomServerRoom,
	RoomSecurity,
	RoomBoss,
}

// Valid reports whether t is a known room type.
func (t RoomType) Valid() bool {
	for _, known := range RoomTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Room is a rectangular space produced by the partition stage.
// Bounds are immutable after creation except for translation during
// optimization; the doorway list is read-only once connectivity has
// been established.
type Room struct {
	ID       int      `json:"id" bson:"id"`
	Bounds   Rect     `json:"bounds" bson:"bounds"`
	Type     RoomType `json:"type" bson:"type"`
	Doorways []Point  `json:"doorways,omitempty" bson:"doorways,omitempty"`
	Depth    int      `json:"depth" bson:"depth"`
}

// HasDoorway reports whether p is one of the room's declared doorways.
func (r *Room) HasDoorway(p Point) bool {
	for _, d := range r.Doorways {
		if d == p {
			return true
		}
	}
	return false
}

// CorridorTag distinguishes backbone corridors from branch corridors.
type CorridorTag string

const (
	// TagPrimary marks a wide backbone corridor between core rooms.
	TagPrimary CorridorTag = "primary"
	// TagSecondary marks a narrow branch corridor attaching a peripheral
	// room to the backbone network.
	TagSecondary CorridorTag = "secondary"
)

// Corridor joins two rooms. Cells is the ordered centerline path: the
// first cell is adjacent to a doorway of RoomA, the last adjacent to a
// doorway of RoomB. Width is 3 or 5.
type Corridor struct {
	ID    int         `json:"id" bson:"id"`
	Cells []Point     `json:"cells" bson:"cells"`
	Width int         `json:"width" bson:"width"`
	RoomA int         `json:"roomA" bson:"room_a"`
	RoomB int         `json:"roomB" bson:"room_b"`
	Tag   CorridorTag `json:"tag" bson:"tag"`
}

// SchemaVersion is the current layout schema version written by the codec.
const SchemaVersion = 2

// Layout is the complete generation result: the full set of rooms and
// corridors plus the parameters needed to reproduce it.
type Layout struct {
	SchemaVersion int        `json:"schemaVersion" bson:"schema_version"`
	Width         int        `json:"width" bson:"width"`
	Height        int        `json:"height" bson:"height"`
	Seed          uint64     `json:"seed" bson:"seed"`
	Rooms         []Room     `json:"rooms" bson:"rooms"`
	Corridors     []Corridor `json:"corridors" bson:"corridors"`
}

// Bounds returns the map bounding rectangle.
func (l *Layout) Bounds() Rect {
	return Rect{X: 0, Y: 0, W: l.Width, H: l.Height}
}

// Room returns the room with the given id, or nil if absent.
func (l *Layout) Room(id int) *Room {
	for i := range l.Rooms {
		if l.Rooms[i].ID == id {
			return &l.Rooms[i]
		}
	}
	return nil
}

// BossRoom returns the layout's boss room, or nil if none was assigned.
func (l *Layout) BossRoom() *Room {
	for i := range l.Rooms {
		if l.Rooms[i].Type == RoomBoss {
			return &l.Rooms[i]
		}
	}
	return nil
}

// Clone returns a deep copy. Downstream consumers read layouts in place;
// anything that wants to mutate must work on a clone.
func (l *Layout) Clone() *Layout {
	out := &Layout{
		SchemaVersion: l.SchemaVersion,
		Width:         l.Width,
		Height:        l.Height,
		Seed:          l.Seed,
		Rooms:         make([]Room, len(l.Rooms)),
		Corridors:     make([]Corridor, len(l.Corridors)),
	}
	for i, r := range l.Rooms {
		r.Doorways = append([]Point(nil), r.Doorways...)
		out.Rooms[i] = r
	}
	for i, c := range l.Corridors {
		c.Cells = append([]Point(nil), c.Cells...)
		out.Corridors[i] = c
	}
	return out
}

// Adjacency returns the room-adjacency lists induced by the corridors,
// keyed by room id with neighbor lists sorted ascending. The sorted
// order keeps every traversal over the graph deterministic.
func (l *Layout) Adjacency() map[int][]int {
	adj := make(map[int][]int, len(l.Rooms))
	for i := range l.Rooms {
		adj[l.Rooms[i].ID] = nil
	}
	for _, c := range l.Corridors {
		adj[c.RoomA] = append(adj[c.RoomA], c.RoomB)
		adj[c.RoomB] = append(adj[c.RoomB], c.RoomA)
	}
	for id := range adj {
		sortInts(adj[id])
	}
	return adj
}

func sortInts(s []int) {
	// Insertion sort; neighbor lists are tiny.
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j] < s[j-1]; j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
