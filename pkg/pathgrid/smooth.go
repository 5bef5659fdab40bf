package pathgrid

import "github.com/roomforge/roomforge/pkg/layout"

// Smooth straightens a path without moving its endpoints. From each
// cell it greedily jumps to the furthest later path cell reachable by
// one clear straight run or one clear L-shaped run through a corner,
// which collapses collinear steps and replaces the staircase zig-zags
// the search produces along diagonals with at most one turn each. The
// returned sequence contains every cell of the straightened route,
// still 4-connected, never longer than the input.
func Smooth(g *Grid, path []layout.Point, opts SearchOptions) []layout.Point {
	if len(path) <= 2 {
		return path
	}

	out := []layout.Point{path[0]}
	i := 0
	for i < len(path)-1 {
		best := i + 1
		var corner layout.Point
		bent := false
		for j := len(path) - 1; j > i+1; j-- {
			if straightClear(g, path[i], path[j], opts) {
				best, bent = j, false
				break
			}
			if c, ok := cornerClear(g, path[i], path[j], opts); ok {
				best, corner, bent = j, c, true
				break
			}
		}
		if bent {
			out = appendSegment(out, path[i], corner)
			out = appendSegment(out, corner, path[best])
		} else {
			out = appendSegment(out, path[i], path[best])
		}
		i = best
	}
	return out
}

// straightClear reports whether a and b share an axis and every cell
// strictly between them is passable.
func straightClear(g *Grid, a, b layout.Point, opts SearchOptions) bool {
	if a.X != b.X && a.Y != b.Y {
		return false
	}
	dx, dy := sign(b.X-a.X), sign(b.Y-a.Y)
	for p := (layout.Point{X: a.X + dx, Y: a.Y + dy}); p != b; p.X, p.Y = p.X+dx, p.Y+dy {
		if !passable(g, p, opts) {
			return false
		}
	}
	return true
}

// cornerClear reports whether a and b, on different rows and columns,
// are joined by a passable L-shaped run, trying the corner on a's row
// first so the choice is deterministic. Returns the corner cell.
func cornerClear(g *Grid, a, b layout.Point, opts SearchOptions) (layout.Point, bool) {
	for _, c := range [2]layout.Point{{X: b.X, Y: a.Y}, {X: a.X, Y: b.Y}} {
		if passable(g, c, opts) && straightClear(g, a, c, opts) && straightClear(g, c, b, opts) {
			return c, true
		}
	}
	return layout.Point{}, false
}

// appendSegment extends out with every cell after a up to and
// including b, walking the straight line between them.
func appendSegment(out []layout.Point, a, b layout.Point) []layout.Point {
	dx, dy := sign(b.X-a.X), sign(b.Y-a.Y)
	for p := (layout.Point{X: a.X + dx, Y: a.Y + dy}); ; p.X, p.Y = p.X+dx, p.Y+dy {
		out = append(out, p)
		if p == b {
			return out
		}
	}
}

// Turns counts direction changes along a path. Exposed for tests and
// corridor quality scoring.
func Turns(path []layout.Point) int {
	turns := 0
	for i := 2; i < len(path); i++ {
		d1 := layout.Point{X: path[i-1].X - path[i-2].X, Y: path[i-1].Y - path[i-2].Y}
		d2 := layout.Point{X: path[i].X - path[i-1].X, Y: path[i].Y - path[i-1].Y}
		if d1 != d2 {
			turns++
		}
	}
	return turns
}

func sign(n int) int {
	switch {
	case n > 0:
		return 1
	case n < 0:
		return -1
	default:
		return 0
	}
}
