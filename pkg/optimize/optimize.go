// Package optimize implements the iterative force-based refinement pass
// that runs after connectivity.
//
// Each iteration is a pure function over an explicit State: every room
// pair exerts a repulsive force that grows as rooms crowd or overlap,
// every corridor-connected pair exerts a mild attraction, the summed
// force is damped and applied as a position delta. The loop stops at
// the iteration cap, when total displacement drops below epsilon, or
// when the composite score stops improving for several consecutive
// iterations, whichever triggers first.
//
// After the force loop, positions snap to the grid. Snapping is then
// re-validated per room: a snap that reintroduces an overlap or pulls
// a doorway away from its corridor endpoint is reverted, because a
// sub-grid-aligned room beats a broken invariant.
//
// Failing to converge is not an error. The best-scored intermediate
// state is kept and the result is flagged, nothing is thrown.
package optimize

import (
	"math"

	"github.com/charmbracelet/log"

	"github.com/roomforge/roomforge/pkg/layout"
)

// Params tune the force simulation.
type Params struct {
	MaxIterations int     // Iteration cap; 0 disables the force loop entirely
	Damping       float64 // Force-to-displacement scale, 0.1 by default
	Epsilon       float64 // Total displacement below which the loop stops
	StallLimit    int     // Consecutive non-improving iterations before stopping

	// TargetSpacing is the preferred edge-to-edge gap between rooms,
	// in cells. Pairs closer than this repel.
	TargetSpacing float64
}

// DefaultParams returns the tuning used by the pipeline.
func DefaultParams(maxIterations int) Params {
	return Params{
		MaxIterations: maxIterations,
		Damping:       0.1,
		Epsilon:       0.5,
		StallLimit:    5,
		TargetSpacing: 2,
	}
}

// Vec is a 2D force/velocity vector.
type Vec struct {
	X, Y float64
}

// State is one snapshot of the simulation: continuous room positions
// (origin corners), velocities, the composite score, and the total
// displacement of the last step. Step returns a new State and never
// mutates its input, which keeps the optimizer unit-testable in
// isolation from timing concerns.
type State struct {
	Positions    []Vec
	Velocities   []Vec
	Score        float64
	Displacement float64
}

// Result reports what the optimizer did.
type Result struct {
	Layout     *layout.Layout
	Converged  bool
	Iterations int
	Reverted   int // rooms whose snap was rolled back
}

// Run refines room positions of l and returns the refined layout. The
// input layout is never mutated. Non-convergence within the iteration
// cap is reported through Result.Converged, logged by the caller, and
// is deliberately not an error.
func Run(l *layout.Layout, p Params, logger *log.Logger) Result {
	work := l.Clone()
	rooms := work.Rooms
	edges := corridorEdges(work)

	st := initialState(rooms)
	st.Score = score(positionsToRects(st.Positions, rooms), edges, p)

	converged := false
	iterations := 0
	best := st
	stall := 0

	for i := 0; i < p.MaxIterations; i++ {
		st = Step(st, rooms, edges, p)
		iterations++

		if st.Score > best.Score {
			best = st
			stall = 0
		} else {
			stall++
		}
		if st.Displacement < p.Epsilon {
			converged = true
			break
		}
		if p.StallLimit > 0 && stall >= p.StallLimit {
			converged = true
			break
		}
	}
	if p.MaxIterations == 0 {
		// Nothing ran; the unmodified input is the result, unconverged.
		best = st
	}

	reverted := applySnapped(work, best.Positions)
	if !converged && p.MaxIterations > 0 {
		logger.Warn("optimizer did not converge, keeping best intermediate state",
			"iterations", iterations, "score", best.Score)
	}
	return Result{Layout: work, Converged: converged, Iterations: iterations, Reverted: reverted}
}

// Step advances the simulation by one iteration and returns the new
// state. It is a pure function of (state, rooms, edges, params).
func Step(st State, rooms []layout.Room, edges [][2]int, p Params) State {
	n := len(rooms)
	forces := make([]Vec, n)

	// Pairwise repulsion, scaled by how far inside the target spacing
	// (or into actual overlap) the pair sits.
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			f := repulsion(rectAt(st.Positions[i], rooms[i]), rectAt(st.Positions[j], rooms[j]), p)
			forces[i].X -= f.X
			forces[i].Y -= f.Y
			forces[j].X += f.X
			forces[j].Y += f.Y
		}
	}

	// Mild attraction along corridor edges keeps connected rooms near
	// each other.
	for _, e := range edges {
		i, j := e[0], e[1]
		ci := centerOf(st.Positions[i], rooms[i])
		cj := centerOf(st.Positions[j], rooms[j])
		const pull = 0.02
		forces[i].X += (cj.X - ci.X) * pull
		forces[i].Y += (cj.Y - ci.Y) * pull
		forces[j].X += (ci.X - cj.X) * pull
		forces[j].Y += (ci.Y - cj.Y) * pull
	}

	next := State{
		Positions:  make([]Vec, n),
		Velocities: make([]Vec, n),
	}
	total := 0.0
	for i := 0; i < n; i++ {
		dx := forces[i].X * p.Damping
		dy := forces[i].Y * p.Damping
		next.Positions[i] = Vec{X: st.Positions[i].X + dx, Y: st.Positions[i].Y + dy}
		next.Velocities[i] = Vec{X: dx, Y: dy}
		total += math.Abs(dx) + math.Abs(dy)
	}
	next.Displacement = total
	next.Score = score(positionsToRects(next.Positions, rooms), edges, p)
	return next
}

// repulsion returns the force pushing room j away from room i. Zero
// when the pair is already at or beyond the target spacing.
func repulsion(a, b layout.Rect, p Params) Vec {
	gapX := float64(gap1D(a.X, a.Right(), b.X, b.Right()))
	gapY := float64(gap1D(a.Y, a.Bottom(), b.Y, b.Bottom()))
	gap := math.Max(gapX, gapY) // negative when overlapping on both axes

	if gap >= p.TargetSpacing {
		return Vec{}
	}
	strength := p.TargetSpacing - gap // grows linearly into overlap

	ca := a.Center()
	cb := b.Center()
	dx := float64(cb.X - ca.X)
	dy := float64(cb.Y - ca.Y)
	norm := math.Hypot(dx, dy)
	if norm == 0 {
		// Coincident centers push apart along x; the direction only
		// needs to be consistent, not meaningful.
		return Vec{X: strength, Y: 0}
	}
	return Vec{X: dx / norm * strength, Y: dy / norm * strength}
}

// gap1D returns the separation between two intervals: positive when
// disjoint, negative when overlapping.
func gap1D(aLo, aHi, bLo, bHi int) int {
	if aHi <= bLo {
		return bLo - aHi
	}
	if bHi <= aLo {
		return aLo - bHi
	}
	// Overlap amount, negated.
	hi := aHi
	if bHi < hi {
		hi = bHi
	}
	lo := aLo
	if bLo > lo {
		lo = bLo
	}
	return -(hi - lo)
}

// score is the composite layout quality: spacing adequacy and corridor
// alignment reward, overlaps penalized hard. Higher is better.
func score(rects []layout.Rect, edges [][2]int, p Params) float64 {
	s := 0.0
	for i := 0; i < len(rects); i++ {
		for j := i + 1; j < len(rects); j++ {
			gapX := float64(gap1D(rects[i].X, rects[i].Right(), rects[j].X, rects[j].Right()))
			gapY := float64(gap1D(rects[i].Y, rects[i].Bottom(), rects[j].Y, rects[j].Bottom()))
			gap := math.Max(gapX, gapY)
			switch {
			case gap < 0:
				s -= 10 // overlap
			case gap >= p.TargetSpacing:
				s += 1
			default:
				s += gap / p.TargetSpacing
			}
		}
	}
	for _, e := range edges {
		a, b := rects[e[0]], rects[e[1]]
		if a.Center().X == b.Center().X || a.Center().Y == b.Center().Y {
			s += 0.5 // axis-aligned connected pair
		}
	}
	return s
}

// applySnapped writes positions back into the layout, snapping each to
// the nearest integer cell, and reverts any room whose snap breaks an
// invariant: overlap with another room, leaving the map, or detaching
// a corridor endpoint from the room's doorways. Doorways translate
// with their room. Returns the number of reverted rooms.
func applySnapped(l *layout.Layout, positions []Vec) int {
	reverted := 0
	for i := range l.Rooms {
		orig := l.Rooms[i]
		nx := int(math.Round(positions[i].X))
		ny := int(math.Round(positions[i].Y))
		dx, dy := nx-orig.Bounds.X, ny-orig.Bounds.Y
		if dx == 0 && dy == 0 {
			continue
		}

		moved := orig
		moved.Bounds = orig.Bounds.Translate(dx, dy)
		moved.Doorways = make([]layout.Point, len(orig.Doorways))
		for j, d := range orig.Doorways {
			moved.Doorways[j] = layout.Point{X: d.X + dx, Y: d.Y + dy}
		}

		l.Rooms[i] = moved
		if !snapValid(l, i) {
			l.Rooms[i] = orig
			reverted++
		}
	}
	return reverted
}

// snapValid checks the moved room at index i against the rest of the
// layout.
func snapValid(l *layout.Layout, i int) bool {
	r := &l.Rooms[i]
	if !l.Bounds().ContainsRect(r.Bounds) {
		return false
	}
	for j := range l.Rooms {
		if j != i && r.Bounds.Intersects(l.Rooms[j].Bounds) {
			return false
		}
	}
	// Every corridor touching this room must still end adjacent to one
	// of its doorways, and no corridor may now pass through the room's
	// interior.
	for _, c := range l.Corridors {
		if len(c.Cells) == 0 {
			continue
		}
		if c.RoomA == r.ID && !endpointAttached(c.Cells[0], r) {
			return false
		}
		if c.RoomB == r.ID && !endpointAttached(c.Cells[len(c.Cells)-1], r) {
			return false
		}
		for _, cell := range c.Cells {
			if r.Bounds.Contains(cell) && !r.HasDoorway(cell) {
				return false
			}
		}
	}
	return true
}

func endpointAttached(end layout.Point, r *layout.Room) bool {
	for _, d := range r.Doorways {
		if layout.Adjacent(end, d) {
			return true
		}
	}
	return false
}

func corridorEdges(l *layout.Layout) [][2]int {
	idx := make(map[int]int, len(l.Rooms))
	for i := range l.Rooms {
		idx[l.Rooms[i].ID] = i
	}
	edges := make([][2]int, 0, len(l.Corridors))
	for _, c := range l.Corridors {
		edges = append(edges, [2]int{idx[c.RoomA], idx[c.RoomB]})
	}
	return edges
}

func initialState(rooms []layout.Room) State {
	st := State{
		Positions:  make([]Vec, len(rooms)),
		Velocities: make([]Vec, len(rooms)),
	}
	for i := range rooms {
		st.Positions[i] = Vec{X: float64(rooms[i].Bounds.X), Y: float64(rooms[i].Bounds.Y)}
	}
	return st
}

func rectAt(p Vec, r layout.Room) layout.Rect {
	return layout.Rect{X: int(math.Round(p.X)), Y: int(math.Round(p.Y)), W: r.Bounds.W, H: r.Bounds.H}
}

func centerOf(p Vec, r layout.Room) Vec {
	return Vec{X: p.X + float64(r.Bounds.W)/2, Y: p.Y + float64(r.Bounds.H)/2}
}

func positionsToRects(positions []Vec, rooms []layout.Room) []layout.Rect {
	out := make([]layout.Rect, len(rooms))
	for i := range rooms {
		out[i] = rectAt(positions[i], rooms[i])
	}
	return out
}
