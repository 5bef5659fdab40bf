package connect

import (
	"io"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/roomforge/roomforge/pkg/errors"
	"github.com/roomforge/roomforge/pkg/layout"
)

func testLogger() *log.Logger { return log.New(io.Discard) }

func testParams() Params {
	return Params{
		CoreRooms:       2,
		PrimaryWidth:    5,
		SecondaryWidth:  3,
		RedundancyRatio: 0.5,
	}
}

// quadRooms places four rooms in the corners of a 40x40 map with wide
// free lanes between them.
func quadRooms() []layout.Room {
	return []layout.Room{
		{ID: 0, Bounds: layout.Rect{X: 2, Y: 2, W: 6, H: 6}, Type: layout.RoomLobby},
		{ID: 1, Bounds: layout.Rect{X: 30, Y: 2, W: 6, H: 6}, Type: layout.RoomOffice},
		{ID: 2, Bounds: layout.Rect{X: 2, Y: 30, W: 6, H: 6}, Type: layout.RoomStorage},
		{ID: 3, Bounds: layout.Rect{X: 30, Y: 30, W: 6, H: 6}, Type: layout.RoomBoss},
	}
}

// run drives every pass to completion and returns the finished rooms
// and corridors.
func run(t *testing.T, rooms []layout.Room) ([]layout.Room, []layout.Corridor) {
	t.Helper()
	b := New(rooms, 40, 40, testParams(), testLogger())
	for {
		done, err := b.StepBackbone()
		if err != nil {
			t.Fatalf("backbone: %v", err)
		}
		if done {
			break
		}
	}
	for {
		done, err := b.StepBranch()
		if err != nil {
			t.Fatalf("branch: %v", err)
		}
		if done {
			break
		}
	}
	for {
		done, err := b.StepRedundancy()
		if err != nil {
			t.Fatalf("redundancy: %v", err)
		}
		if done {
			break
		}
	}
	outRooms, corridors, err := b.Finish()
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	return outRooms, corridors
}

func TestBuilderConnectsAllRooms(t *testing.T) {
	rooms, corridors := run(t, quadRooms())

	if len(corridors) < len(rooms)-1 {
		t.Fatalf("%d corridors cannot connect %d rooms", len(corridors), len(rooms))
	}

	l := &layout.Layout{
		SchemaVersion: layout.SchemaVersion,
		Width:         40, Height: 40,
		Rooms: rooms, Corridors: corridors,
	}
	if err := l.Validate(); err != nil {
		t.Fatalf("finished network fails validation: %v", err)
	}
}

func TestBuilderCorridorProperties(t *testing.T) {
	rooms, corridors := run(t, quadRooms())

	roomByID := make(map[int]*layout.Room, len(rooms))
	for i := range rooms {
		roomByID[rooms[i].ID] = &rooms[i]
	}

	for _, c := range corridors {
		switch c.Tag {
		case layout.TagPrimary:
			if c.Width != 5 {
				t.Errorf("corridor %d: primary width %d", c.ID, c.Width)
			}
		case layout.TagSecondary:
			if c.Width != 3 {
				t.Errorf("corridor %d: secondary width %d", c.ID, c.Width)
			}
		default:
			t.Errorf("corridor %d: unknown tag %q", c.ID, c.Tag)
		}
		if c.RoomA >= c.RoomB {
			t.Errorf("corridor %d: room pair not ordered: %d, %d", c.ID, c.RoomA, c.RoomB)
		}
		if len(c.Cells) == 0 {
			t.Fatalf("corridor %d has no cells", c.ID)
		}

		// Each end must sit just outside a doorway of its room.
		if !touchesDoorway(roomByID[c.RoomA], c.Cells[0]) {
			t.Errorf("corridor %d start %+v not adjacent to a doorway of room %d",
				c.ID, c.Cells[0], c.RoomA)
		}
		if !touchesDoorway(roomByID[c.RoomB], c.Cells[len(c.Cells)-1]) {
			t.Errorf("corridor %d end %+v not adjacent to a doorway of room %d",
				c.ID, c.Cells[len(c.Cells)-1], c.RoomB)
		}
	}
}

func touchesDoorway(r *layout.Room, p layout.Point) bool {
	for _, d := range r.Doorways {
		if layout.Adjacent(d, p) {
			return true
		}
	}
	return false
}

func TestBuilderDoorwaysOnPerimeter(t *testing.T) {
	rooms, _ := run(t, quadRooms())
	for _, r := range rooms {
		if len(r.Doorways) == 0 {
			t.Errorf("room %d has no doorways", r.ID)
		}
		for _, d := range r.Doorways {
			if !r.Bounds.OnPerimeter(d) {
				t.Errorf("room %d doorway %+v not on its perimeter", r.ID, d)
			}
		}
	}
}

func TestBuilderDeterministic(t *testing.T) {
	_, first := run(t, quadRooms())
	_, second := run(t, quadRooms())
	if len(first) != len(second) {
		t.Fatalf("corridor counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		a, b := first[i], second[i]
		if a.RoomA != b.RoomA || a.RoomB != b.RoomB || a.Tag != b.Tag || len(a.Cells) != len(b.Cells) {
			t.Fatalf("corridor %d differs across runs: %+v vs %+v", i, a, b)
		}
		for j := range a.Cells {
			if a.Cells[j] != b.Cells[j] {
				t.Fatalf("corridor %d cell %d differs", i, j)
			}
		}
	}
}

func TestRedundancyTarget(t *testing.T) {
	cases := []struct {
		ratio string
		p     Params
		rooms int
		want  int
	}{
		{"0.15 of 20", Params{RedundancyRatio: 0.15}, 20, 3},
		{"0.15 of 4", Params{RedundancyRatio: 0.15}, 4, 0},
		{"0.5 of 5", Params{RedundancyRatio: 0.5}, 5, 2},
		{"zero", Params{RedundancyRatio: 0}, 20, 0},
	}
	for _, tc := range cases {
		rooms := make([]layout.Room, tc.rooms)
		for i := range rooms {
			rooms[i] = layout.Room{ID: i, Bounds: layout.Rect{X: i * 10, Y: 2, W: 4, H: 4}}
		}
		b := New(rooms, tc.rooms*10+10, 10, tc.p, testLogger())
		if got := b.RedundancyTarget(); got != tc.want {
			t.Errorf("%s: target %d, want %d", tc.ratio, got, tc.want)
		}
	}
}

func TestBackboneUnroutableFails(t *testing.T) {
	// Two rooms filling the map with no free cell between them: the
	// attachment cell of either room lies inside the other.
	rooms := []layout.Room{
		{ID: 0, Bounds: layout.Rect{X: 0, Y: 0, W: 10, H: 8}, Type: layout.RoomOffice},
		{ID: 1, Bounds: layout.Rect{X: 10, Y: 0, W: 10, H: 8}, Type: layout.RoomOffice},
	}
	b := New(rooms, 20, 8, testParams(), testLogger())

	var err error
	for i := 0; i < 10; i++ {
		var done bool
		done, err = b.StepBackbone()
		if err != nil || done {
			break
		}
	}
	if err == nil {
		t.Fatal("expected backbone failure for unroutable rooms")
	}
	if !errors.Is(err, errors.ErrCodeConnectivity) {
		t.Fatalf("wrong code: %v", err)
	}
	if got := errors.GetStage(err); got != errors.StageConnect {
		t.Fatalf("stage %q, want %q", got, errors.StageConnect)
	}
}

// wallBuilder places two rooms on each side of a corridor wall that
// spans the full map height. The right pair is unreachable by the
// branch pass and can only be attached by crossing the wall at the
// relaxed repair cost.
func wallBuilder() *Builder {
	rooms := []layout.Room{
		{ID: 0, Bounds: layout.Rect{X: 1, Y: 1, W: 5, H: 5}, Type: layout.RoomOffice},
		{ID: 1, Bounds: layout.Rect{X: 1, Y: 15, W: 5, H: 5}, Type: layout.RoomOffice},
		{ID: 2, Bounds: layout.Rect{X: 21, Y: 1, W: 5, H: 5}, Type: layout.RoomOffice},
		{ID: 3, Bounds: layout.Rect{X: 21, Y: 15, W: 5, H: 5}, Type: layout.RoomOffice},
	}
	p := Params{CoreRooms: 1, PrimaryWidth: 5, SecondaryWidth: 3, RedundancyRatio: 0.5}
	b := New(rooms, 28, 21, p, testLogger())

	wall := make([]layout.Point, 21)
	for y := range wall {
		wall[y] = layout.Point{X: 14, Y: y}
	}
	b.Grid().BurnCorridor(wall, 3)
	return b
}

func drive(t *testing.T, b *Builder) {
	t.Helper()
	for {
		if done, err := b.StepBackbone(); err != nil {
			t.Fatalf("backbone: %v", err)
		} else if done {
			break
		}
	}
	for {
		if done, err := b.StepBranch(); err != nil {
			t.Fatalf("branch: %v", err)
		} else if done {
			break
		}
	}
	for {
		if done, err := b.StepRedundancy(); err != nil {
			t.Fatalf("redundancy: %v", err)
		} else if done {
			break
		}
	}
}

func TestRedundancySkipsUnreachedRooms(t *testing.T) {
	b := wallBuilder()
	drive(t, b)

	// Rooms 2 and 3 could be routed to each other on their side of the
	// wall, but a corridor between two unreached rooms is an island,
	// not a loop, so the redundancy pass must not create it.
	for _, c := range b.corridors {
		if c.RoomA == 2 && c.RoomB == 3 {
			t.Fatal("redundancy joined two rooms that are cut off from the backbone")
		}
	}
	if b.connected[2] || b.connected[3] {
		t.Fatal("rooms beyond the wall marked connected before repair")
	}
	if b.added != 0 {
		t.Fatalf("accepted %d loop edges with no eligible pair", b.added)
	}
}

func TestFinishRepairsRoomsBeyondWall(t *testing.T) {
	b := wallBuilder()
	drive(t, b)

	rooms, corridors, err := b.Finish()
	if err != nil {
		t.Fatalf("finish: %v", err)
	}

	l := &layout.Layout{
		SchemaVersion: layout.SchemaVersion,
		Width:         28, Height: 21,
		Rooms: rooms, Corridors: corridors,
	}
	if err := l.Validate(); err != nil {
		t.Fatalf("repaired network fails validation: %v", err)
	}

	// Repair had to cross the wall, where only relaxed search succeeds.
	crossed := false
	for _, c := range corridors {
		for _, p := range c.Cells {
			if p.X >= 13 && p.X <= 15 {
				crossed = true
			}
		}
	}
	if !crossed {
		t.Fatal("no corridor crosses the wall, repair cannot have run")
	}
}

func TestFinishRepairFailureSurfaces(t *testing.T) {
	rooms := []layout.Room{
		{ID: 0, Bounds: layout.Rect{X: 0, Y: 0, W: 10, H: 8}, Type: layout.RoomOffice},
		{ID: 1, Bounds: layout.Rect{X: 10, Y: 0, W: 10, H: 8}, Type: layout.RoomOffice},
	}
	b := New(rooms, 20, 8, testParams(), testLogger())

	// Skip straight to Finish with nothing connected; the repair pass
	// cannot help because no free cell exists between the rooms.
	_, _, err := b.Finish()
	if !errors.Is(err, errors.ErrCodeConnectivity) {
		t.Fatalf("got %v, want CONNECTIVITY_FAILED", err)
	}
}
