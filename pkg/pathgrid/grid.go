// Package pathgrid provides the rasterized occupancy map and the
// weighted shortest-path search used to route corridors.
//
// The grid is tri-state (free, room interior, corridor) plus a doorway
// state that stays passable no matter what surrounds it. Corridors are
// burned in incrementally as they are accepted, one at a time, so every
// later search automatically avoids every earlier corridor; nothing is
// ever rebuilt from scratch. Point queries are O(1).
package pathgrid

import "github.com/roomforge/roomforge/pkg/layout"

// Cell is the occupancy state of one grid cell.
type Cell uint8

const (
	// CellFree is unoccupied map space.
	CellFree Cell = iota
	// CellRoom is room interior, impassable to corridor routing.
	CellRoom
	// CellCorridor is an accepted corridor footprint.
	CellCorridor
	// CellDoorway is a room perimeter cell that corridors may attach to.
	// Doorways are always passable.
	CellDoorway
)

// Grid is the obstacle raster at map resolution.
type Grid struct {
	w, h  int
	cells []Cell
}

// New creates an all-free grid of the given dimensions.
func New(w, h int) *Grid {
	return &Grid{w: w, h: h, cells: make([]Cell, w*h)}
}

// Width returns the grid width in cells.
func (g *Grid) Width() int { return g.w }

// Height returns the grid height in cells.
func (g *Grid) Height() int { return g.h }

// InBounds reports whether (x, y) lies on the grid.
func (g *Grid) InBounds(x, y int) bool {
	return x >= 0 && x < g.w && y >= 0 && y < g.h
}

// At returns the state of (x, y). Out-of-bounds cells read as CellRoom
// so callers treat the map edge as solid.
func (g *Grid) At(x, y int) Cell {
	if !g.InBounds(x, y) {
		return CellRoom
	}
	return g.cells[y*g.w+x]
}

func (g *Grid) set(x, y int, c Cell) {
	if g.InBounds(x, y) {
		g.cells[y*g.w+x] = c
	}
}

// MarkRoom stamps a room's interior as impassable, then re-opens its
// declared doorway cells.
func (g *Grid) MarkRoom(bounds layout.Rect, doorways []layout.Point) {
	for y := bounds.Y; y < bounds.Bottom(); y++ {
		for x := bounds.X; x < bounds.Right(); x++ {
			g.set(x, y, CellRoom)
		}
	}
	for _, d := range doorways {
		g.set(d.X, d.Y, CellDoorway)
	}
}

// OpenDoorway marks a single perimeter cell passable. Called as
// corridors are accepted and doorways come into existence.
func (g *Grid) OpenDoorway(p layout.Point) {
	g.set(p.X, p.Y, CellDoorway)
}

// BurnCorridor stamps an accepted corridor footprint: each centerline
// cell is widened to the corridor width. Only free cells are claimed;
// room interiors and doorways are left untouched so burning can never
// close an attachment point.
func (g *Grid) BurnCorridor(cells []layout.Point, width int) {
	radius := width / 2
	for _, c := range cells {
		for dy := -radius; dy <= radius; dy++ {
			for dx := -radius; dx <= radius; dx++ {
				x, y := c.X+dx, c.Y+dy
				if g.At(x, y) == CellFree {
					g.set(x, y, CellCorridor)
				}
			}
		}
	}
}

// Clone returns an independent copy of the grid, for callers that
// probe speculative routes without committing them.
func (g *Grid) Clone() *Grid {
	out := &Grid{w: g.w, h: g.h, cells: make([]Cell, len(g.cells))}
	copy(out.cells, g.cells)
	return out
}
