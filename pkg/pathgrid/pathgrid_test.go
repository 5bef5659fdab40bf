package pathgrid

import (
	"errors"
	"testing"

	"github.com/roomforge/roomforge/pkg/layout"
)

func TestGridStates(t *testing.T) {
	g := New(10, 10)
	if g.Width() != 10 || g.Height() != 10 {
		t.Fatalf("dimensions: %dx%d", g.Width(), g.Height())
	}
	if g.At(3, 3) != CellFree {
		t.Fatal("fresh grid is not free")
	}
	if g.At(-1, 0) != CellRoom || g.At(10, 10) != CellRoom {
		t.Fatal("out of bounds must read as solid")
	}

	g.MarkRoom(layout.Rect{X: 2, Y: 2, W: 3, H: 3}, []layout.Point{{X: 2, Y: 3}})
	if g.At(3, 3) != CellRoom {
		t.Fatal("room interior not marked")
	}
	if g.At(2, 3) != CellDoorway {
		t.Fatal("doorway not reopened")
	}

	g.BurnCorridor([]layout.Point{{X: 7, Y: 2}, {X: 7, Y: 3}}, 3)
	if g.At(7, 2) != CellCorridor || g.At(8, 3) != CellCorridor {
		t.Fatal("corridor footprint not burned to full width")
	}
	if g.At(2, 3) != CellDoorway {
		t.Fatal("burning must never close a doorway")
	}
	if g.At(3, 3) != CellRoom {
		t.Fatal("burning must never claim room interior")
	}
}

func TestGridCloneIndependent(t *testing.T) {
	g := New(5, 5)
	c := g.Clone()
	c.BurnCorridor([]layout.Point{{X: 2, Y: 2}}, 3)
	if g.At(2, 2) != CellFree {
		t.Fatal("clone shares cells with original")
	}
}

func TestFindStraightLine(t *testing.T) {
	g := New(10, 10)
	path, err := Find(g, layout.Point{X: 1, Y: 5}, layout.Point{X: 8, Y: 5}, SearchOptions{})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(path) != 8 {
		t.Fatalf("path length %d, want 8", len(path))
	}
	for i, p := range path {
		if p.Y != 5 || p.X != 1+i {
			t.Fatalf("cell %d is %+v, expected straight horizontal run", i, p)
		}
	}
}

func TestFindRoutesAroundRoom(t *testing.T) {
	g := New(20, 20)
	g.MarkRoom(layout.Rect{X: 8, Y: 0, W: 4, H: 15}, nil)

	start, goal := layout.Point{X: 2, Y: 5}, layout.Point{X: 17, Y: 5}
	path, err := Find(g, start, goal, SearchOptions{})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if path[0] != start || path[len(path)-1] != goal {
		t.Fatalf("endpoints moved: %+v .. %+v", path[0], path[len(path)-1])
	}
	for i, p := range path {
		if g.At(p.X, p.Y) == CellRoom {
			t.Fatalf("cell %d crosses the room: %+v", i, p)
		}
		if i > 0 && !layout.Adjacent(path[i-1], p) {
			t.Fatalf("path not 4-connected at cell %d", i)
		}
	}
	// The only way around is under the obstacle's bottom edge at y 15,
	// which costs 10 cells down and 10 back up on top of the direct run.
	if len(path) < 36 {
		t.Fatalf("path length %d, expected at least 36 for the forced detour", len(path))
	}
}

func TestFindNoPath(t *testing.T) {
	g := New(10, 10)
	// Solid wall splits the map in two.
	g.MarkRoom(layout.Rect{X: 5, Y: 0, W: 1, H: 10}, nil)

	_, err := Find(g, layout.Point{X: 1, Y: 1}, layout.Point{X: 8, Y: 8}, SearchOptions{})
	if !errors.Is(err, ErrNoPath) {
		t.Fatalf("got %v, want ErrNoPath", err)
	}
}

func TestFindBlockedEndpoint(t *testing.T) {
	g := New(10, 10)
	g.MarkRoom(layout.Rect{X: 4, Y: 4, W: 2, H: 2}, nil)
	_, err := Find(g, layout.Point{X: 4, Y: 4}, layout.Point{X: 8, Y: 8}, SearchOptions{})
	if !errors.Is(err, ErrNoPath) {
		t.Fatalf("blocked start should fail: %v", err)
	}
	_, err = Find(g, layout.Point{X: 0, Y: 0}, layout.Point{X: 12, Y: 0}, SearchOptions{})
	if !errors.Is(err, ErrNoPath) {
		t.Fatalf("out-of-bounds goal should fail: %v", err)
	}
}

func TestFindCorridorCostRelaxation(t *testing.T) {
	g := New(11, 11)
	// Corridor wall across the full width blocks normal routing.
	cells := make([]layout.Point, 11)
	for x := 0; x < 11; x++ {
		cells[x] = layout.Point{X: x, Y: 5}
	}
	g.BurnCorridor(cells, 3)

	start, goal := layout.Point{X: 5, Y: 1}, layout.Point{X: 5, Y: 9}
	if _, err := Find(g, start, goal, SearchOptions{}); !errors.Is(err, ErrNoPath) {
		t.Fatalf("corridor should be impassable by default: %v", err)
	}

	path, err := Find(g, start, goal, SearchOptions{CorridorCost: 4})
	if err != nil {
		t.Fatalf("relaxed search: %v", err)
	}
	crossed := false
	for _, p := range path {
		if g.At(p.X, p.Y) == CellCorridor {
			crossed = true
		}
	}
	if !crossed {
		t.Fatal("relaxed path never crossed the corridor it had to cross")
	}
}

func TestFindDeterministic(t *testing.T) {
	g := New(30, 30)
	g.MarkRoom(layout.Rect{X: 10, Y: 10, W: 5, H: 5}, nil)
	start, goal := layout.Point{X: 2, Y: 2}, layout.Point{X: 27, Y: 27}

	first, err := Find(g, start, goal, SearchOptions{})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	for run := 0; run < 5; run++ {
		again, err := Find(g, start, goal, SearchOptions{})
		if err != nil {
			t.Fatalf("run %d: %v", run, err)
		}
		if len(again) != len(first) {
			t.Fatalf("run %d: length %d vs %d", run, len(again), len(first))
		}
		for i := range first {
			if again[i] != first[i] {
				t.Fatalf("run %d: cell %d differs", run, i)
			}
		}
	}
}

func TestSmoothReducesTurns(t *testing.T) {
	g := New(20, 20)
	// Hand-built staircase between two cells in open space.
	var stair []layout.Point
	x, y := 2, 2
	stair = append(stair, layout.Point{X: x, Y: y})
	for i := 0; i < 8; i++ {
		x++
		stair = append(stair, layout.Point{X: x, Y: y})
		y++
		stair = append(stair, layout.Point{X: x, Y: y})
	}

	smoothed := Smooth(g, stair, SearchOptions{})
	if smoothed[0] != stair[0] || smoothed[len(smoothed)-1] != stair[len(stair)-1] {
		t.Fatal("smoothing moved an endpoint")
	}
	if got, orig := Turns(smoothed), Turns(stair); got >= orig {
		t.Fatalf("turns not reduced: %d vs %d", got, orig)
	}
	// In open space the whole staircase flattens to a single bend.
	if got := Turns(smoothed); got > 1 {
		t.Fatalf("staircase smoothed to %d turns, want at most 1", got)
	}
	if len(smoothed) > len(stair) {
		t.Fatalf("smoothing lengthened the path: %d vs %d cells", len(smoothed), len(stair))
	}
	for i := 1; i < len(smoothed); i++ {
		if !layout.Adjacent(smoothed[i-1], smoothed[i]) {
			t.Fatalf("smoothed path not 4-connected at cell %d", i)
		}
	}
}

func TestSmoothRespectsObstacles(t *testing.T) {
	g := New(20, 20)
	g.MarkRoom(layout.Rect{X: 5, Y: 5, W: 6, H: 6}, nil)

	start, goal := layout.Point{X: 2, Y: 7}, layout.Point{X: 15, Y: 7}
	path, err := Find(g, start, goal, SearchOptions{})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	smoothed := Smooth(g, path, SearchOptions{})
	for i, p := range smoothed {
		if g.At(p.X, p.Y) == CellRoom {
			t.Fatalf("smoothed cell %d entered the obstacle: %+v", i, p)
		}
	}
}

func TestTurns(t *testing.T) {
	straight := []layout.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 0}, {X: 3, Y: 0}}
	if got := Turns(straight); got != 0 {
		t.Fatalf("straight path has %d turns", got)
	}
	bend := []layout.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}}
	if got := Turns(bend); got != 1 {
		t.Fatalf("single bend counted as %d turns", got)
	}
}
