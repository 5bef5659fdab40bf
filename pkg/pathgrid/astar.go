package pathgrid

import (
	"container/heap"
	"errors"
	"fmt"

	"github.com/roomforge/roomforge/pkg/layout"
)

// ErrNoPath is returned by [Find] when no route exists between the two
// cells under the current obstacle state. Not-found is a legitimate
// outcome and is never treated as fatal here; callers decide whether
// to relax constraints or give up.
var ErrNoPath = errors.New("no path between cells")

// SearchOptions tune passability for one search.
type SearchOptions struct {
	// CorridorCost is the per-step cost of walking a cell already
	// claimed by a corridor. Zero means corridors are impassable, which
	// is the normal routing mode; the connectivity repair pass sets a
	// positive penalty to allow crossings as a last resort.
	CorridorCost int
}

// stepCost is the base cost of moving one free cell. Costs are
// integers throughout: grid-cell steps, no floating point drift.
const stepCost = 1

// Find runs a best-first search from start to goal over g and returns
// the ordered cell sequence including both endpoints.
//
// The open set is a binary heap keyed by (cost-so-far + Manhattan
// heuristic) with ties broken by (heuristic, y, x), so when several
// optimal paths exist the same one is produced on every run. Neighbor
// expansion order is fixed (north, east, south, west) for the same
// reason. Complexity is O(W×H·log(W×H)).
func Find(g *Grid, start, goal layout.Point, opts SearchOptions) ([]layout.Point, error) {
	if !g.InBounds(start.X, start.Y) || !g.InBounds(goal.X, goal.Y) {
		return nil, fmt.Errorf("endpoint outside %dx%d grid: %w", g.w, g.h, ErrNoPath)
	}
	if !passable(g, start, opts) || !passable(g, goal, opts) {
		return nil, fmt.Errorf("endpoint blocked: %w", ErrNoPath)
	}
	if start == goal {
		return []layout.Point{start}, nil
	}

	idx := func(p layout.Point) int { return p.Y*g.w + p.X }

	costSoFar := make(map[int]int, 64)
	cameFrom := make(map[int]int, 64)
	costSoFar[idx(start)] = 0

	open := &openSet{}
	heap.Init(open)
	heap.Push(open, searchNode{p: start, f: layout.ManhattanDist(start, goal), h: layout.ManhattanDist(start, goal)})

	// Fixed expansion order: N, E, S, W.
	deltas := [4][2]int{{0, -1}, {1, 0}, {0, 1}, {-1, 0}}

	for open.Len() > 0 {
		cur := heap.Pop(open).(searchNode)
		if cur.p == goal {
			return rebuild(cameFrom, idx, start, goal, g.w), nil
		}
		curCost := costSoFar[idx(cur.p)]
		if cur.f-cur.h > curCost {
			continue // stale heap entry
		}

		for _, d := range deltas {
			next := layout.Point{X: cur.p.X + d[0], Y: cur.p.Y + d[1]}
			if !g.InBounds(next.X, next.Y) || !passable(g, next, opts) {
				continue
			}
			nextCost := curCost + cellCost(g, next, opts)
			if prev, seen := costSoFar[idx(next)]; seen && prev <= nextCost {
				continue
			}
			costSoFar[idx(next)] = nextCost
			cameFrom[idx(next)] = idx(cur.p)
			h := layout.ManhattanDist(next, goal)
			heap.Push(open, searchNode{p: next, f: nextCost + h, h: h})
		}
	}
	return nil, fmt.Errorf("%v to %v: %w", start, goal, ErrNoPath)
}

func passable(g *Grid, p layout.Point, opts SearchOptions) bool {
	switch g.At(p.X, p.Y) {
	case CellFree, CellDoorway:
		return true
	case CellCorridor:
		return opts.CorridorCost > 0
	default:
		return false
	}
}

func cellCost(g *Grid, p layout.Point, opts SearchOptions) int {
	if g.At(p.X, p.Y) == CellCorridor {
		return opts.CorridorCost
	}
	return stepCost
}

func rebuild(cameFrom map[int]int, idx func(layout.Point) int, start, goal layout.Point, w int) []layout.Point {
	var rev []layout.Point
	cur := idx(goal)
	startIdx := idx(start)
	for cur != startIdx {
		rev = append(rev, layout.Point{X: cur % w, Y: cur / w})
		cur = cameFrom[cur]
	}
	rev = append(rev, start)

	out := make([]layout.Point, len(rev))
	for i := range rev {
		out[i] = rev[len(rev)-1-i]
	}
	return out
}

// searchNode is one open-set entry.
type searchNode struct {
	p layout.Point
	f int // cost so far + heuristic
	h int // heuristic alone, first tie-break
}

// openSet implements heap.Interface with the deterministic ordering
// (f, h, y, x).
type openSet []searchNode

func (s openSet) Len() int { return len(s) }

func (s openSet) Less(i, j int) bool {
	a, b := s[i], s[j]
	if a.f != b.f {
		return a.f < b.f
	}
	if a.h != b.h {
		return a.h < b.h
	}
	if a.p.Y != b.p.Y {
		return a.p.Y < b.p.Y
	}
	return a.p.X < b.p.X
}

func (s openSet) Swap(i, j int) { s[i], s[j] = s[j], s[i] }

func (s *openSet) Push(x any) { *s = append(*s, x.(searchNode)) }

func (s *openSet) Pop() any {
	old := *s
	n := len(old)
	item := old[n-1]
	*s = old[:n-1]
	return item
}
