package connect

import (
	"github.com/roomforge/roomforge/pkg/layout"
	"github.com/roomforge/roomforge/pkg/pathgrid"
)

// edge is a routable corridor candidate between two rooms. Cells is
// the smoothed centerline; doorA/doorB are the perimeter cells the
// corridor attaches to.
type edge struct {
	a, b         int // room ids, a < b
	cells        []layout.Point
	doorA, doorB layout.Point
}

// less orders candidate edges by (path length, idA, idB): shortest
// first, room id pair as the deterministic tie-break.
func less(x, y edge) bool {
	if len(x.cells) != len(y.cells) {
		return len(x.cells) < len(y.cells)
	}
	if x.a != y.a {
		return x.a < y.a
	}
	return x.b < y.b
}

// route attempts to build the corridor candidate joining rooms a and b
// on the current grid. A no-path outcome is reported as ok=false, never
// as a failure; the caller decides what that means.
func (b *Builder) route(idA, idB int, opts pathgrid.SearchOptions) (edge, bool) {
	if idA > idB {
		idA, idB = idB, idA
	}
	ra := &b.rooms[b.byID[idA]]
	rb := &b.rooms[b.byID[idB]]

	doorA, outA := attachPoint(ra.Bounds, rb.Bounds.Center())
	doorB, outB := attachPoint(rb.Bounds, ra.Bounds.Center())

	path, err := pathgrid.Find(b.grid, outA, outB, opts)
	if err != nil {
		if !stageUnreachable(err) {
			b.logger.Debug("route failed", "from", idA, "to", idB, "err", err)
		}
		return edge{}, false
	}
	path = pathgrid.Smooth(b.grid, path, opts)

	return edge{a: idA, b: idB, cells: path, doorA: doorA, doorB: doorB}, true
}

// attachPoint picks the doorway for a corridor leaving bounds toward
// target: the perimeter cell of the facing side nearest the target,
// pulled off the corners so the outward normal is unambiguous. It
// returns the doorway cell (on the perimeter, inside the room) and the
// cell just outside it where the corridor path starts.
func attachPoint(bounds layout.Rect, target layout.Point) (door, out layout.Point) {
	c := bounds.Center()
	dx := target.X - c.X
	dy := target.Y - c.Y

	// Face the dominant axis toward the target; vertical wins ties so
	// equal pulls resolve the same way everywhere.
	horizontal := abs(dx) > abs(dy)

	if horizontal {
		y := clamp(target.Y, bounds.Y+1, bounds.Bottom()-2)
		if dx > 0 {
			door = layout.Point{X: bounds.Right() - 1, Y: y}
			out = layout.Point{X: bounds.Right(), Y: y}
		} else {
			door = layout.Point{X: bounds.X, Y: y}
			out = layout.Point{X: bounds.X - 1, Y: y}
		}
		return door, out
	}

	x := clamp(target.X, bounds.X+1, bounds.Right()-2)
	if dy > 0 {
		door = layout.Point{X: x, Y: bounds.Bottom() - 1}
		out = layout.Point{X: x, Y: bounds.Bottom()}
	} else {
		door = layout.Point{X: x, Y: bounds.Y}
		out = layout.Point{X: x, Y: bounds.Y - 1}
	}
	return door, out
}

// accept materializes a candidate edge: doorways are recorded on both
// rooms and opened on the grid, the corridor footprint is burned so
// every later search avoids it, and both rooms join the connected set.
func (b *Builder) accept(e edge, width int, tag layout.CorridorTag) {
	b.addDoorway(e.a, e.doorA)
	b.addDoorway(e.b, e.doorB)
	b.grid.BurnCorridor(e.cells, width)

	b.corridors = append(b.corridors, layout.Corridor{
		ID:    len(b.corridors),
		Cells: e.cells,
		Width: width,
		RoomA: e.a,
		RoomB: e.b,
		Tag:   tag,
	})
	b.connected[e.a] = true
	b.connected[e.b] = true
}

func (b *Builder) addDoorway(roomID int, p layout.Point) {
	r := &b.rooms[b.byID[roomID]]
	if !r.HasDoorway(p) {
		r.Doorways = append(r.Doorways, p)
	}
	b.grid.OpenDoorway(p)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
