// Package connect builds the corridor network that joins every room.
//
// The builder runs three passes over the room set:
//
//  1. Backbone: the core rooms (largest by area, plus any lobby or boss
//     room) are joined by a minimum spanning tree computed with Prim's
//     algorithm, where an edge's weight is the actual pathfinder route
//     length between the two rooms' nearest attachment points. Each
//     accepted edge becomes a width-5 primary corridor and is burned
//     into the obstacle grid immediately, so later searches route
//     around it.
//  2. Branch: every remaining room is attached to its nearest
//     already-connected room by a width-3 secondary corridor.
//  3. Redundancy: extra loop edges are added for floor(ratio × rooms)
//     of the shortest room pairs that have no direct corridor yet. Only
//     rooms already reachable from the backbone qualify, so a loop is
//     always a loop and never a detached island. Loops never remove or
//     shorten existing corridors.
//
// A breadth-first validation over the induced room graph follows. If
// any room is unreached, one repair attempt re-runs the branch pass
// with relaxed obstacle constraints (existing corridors become passable
// at a cost penalty) before the stage surfaces a failure.
//
// Every tie (equal-weight MST edges, equal-distance branch targets,
// equal-length redundancy pairs) breaks on the ascending room id pair,
// which keeps the corridor set deterministic for a fixed input.
package connect

import (
	stderrors "errors"
	"sort"

	"github.com/charmbracelet/log"

	"github.com/roomforge/roomforge/pkg/errors"
	"github.com/roomforge/roomforge/pkg/layout"
	"github.com/roomforge/roomforge/pkg/pathgrid"
)

// Params tune the connectivity passes.
type Params struct {
	// CoreRooms is how many of the largest rooms seed the backbone.
	CoreRooms int
	// PrimaryWidth is the backbone corridor width (5 by default).
	PrimaryWidth int
	// SecondaryWidth is the branch corridor width (3 by default).
	SecondaryWidth int
	// RedundancyRatio is the fraction of the room count added as loop
	// edges after full connectivity, rounded down.
	RedundancyRatio float64
}

// relaxedCorridorCost is the per-step penalty for crossing an existing
// corridor during the repair pass.
const relaxedCorridorCost = 3

// Builder incrementally connects a room set. Create one with New, then
// drive the passes with StepBackbone, StepBranch and StepRedundancy
// until each reports done, and call Finish to validate (and repair if
// needed) the result. The step granularity exists so a host loop can
// interleave other work between corridors.
type Builder struct {
	rooms  []layout.Room
	byID   map[int]int // room id -> index into rooms
	grid   *pathgrid.Grid
	params Params
	logger *log.Logger

	core      []int // ascending ids of backbone rooms
	connected map[int]bool
	corridors []layout.Corridor
	skipped   []int // rooms the branch pass could not reach
	added     int   // redundancy edges accepted so far
}

// New prepares a builder for the given classified rooms. The obstacle
// grid is initialized with every room interior marked impassable.
func New(rooms []layout.Room, mapW, mapH int, p Params, logger *log.Logger) *Builder {
	b := &Builder{
		rooms:     make([]layout.Room, len(rooms)),
		byID:      make(map[int]int, len(rooms)),
		grid:      pathgrid.New(mapW, mapH),
		params:    p,
		logger:    logger,
		connected: make(map[int]bool),
	}
	copy(b.rooms, rooms)
	for i := range b.rooms {
		b.byID[b.rooms[i].ID] = i
		b.grid.MarkRoom(b.rooms[i].Bounds, b.rooms[i].Doorways)
	}
	b.core = b.pickCore()
	if len(b.core) > 0 {
		b.connected[b.core[0]] = true
	}
	return b
}

// Grid exposes the obstacle grid, primarily for tests.
func (b *Builder) Grid() *pathgrid.Grid { return b.grid }

// pickCore selects the backbone rooms: the CoreRooms largest by area
// (ties by ascending id), plus every lobby and boss room. The result
// is sorted ascending.
func (b *Builder) pickCore() []int {
	byArea := make([]int, len(b.rooms))
	for i := range b.rooms {
		byArea[i] = i
	}
	sort.Slice(byArea, func(x, y int) bool {
		a, c := &b.rooms[byArea[x]], &b.rooms[byArea[y]]
		if a.Bounds.Area() != c.Bounds.Area() {
			return a.Bounds.Area() > c.Bounds.Area()
		}
		return a.ID < c.ID
	})

	in := make(map[int]bool)
	n := b.params.CoreRooms
	if n > len(byArea) {
		n = len(byArea)
	}
	for _, i := range byArea[:n] {
		in[b.rooms[i].ID] = true
	}
	for i := range b.rooms {
		if t := b.rooms[i].Type; t == layout.RoomLobby || t == layout.RoomBoss {
			in[b.rooms[i].ID] = true
		}
	}

	core := make([]int, 0, len(in))
	for id := range in {
		core = append(core, id)
	}
	sort.Ints(core)
	return core
}

// StepBackbone accepts one MST edge of the backbone, or reports done
// when every core room is connected. One call is one bounded chunk of
// work.
func (b *Builder) StepBackbone() (bool, error) {
	remaining := b.unconnectedCore()
	if len(remaining) == 0 {
		return true, nil
	}

	// Prim's: cheapest edge from the connected set to an unconnected
	// core room, by actual path length on the current grid.
	best, found := b.cheapestEdge(b.connectedIDs(), remaining, pathgrid.SearchOptions{})
	if !found {
		return false, errors.NewStage(errors.ErrCodeConnectivity, errors.StageConnect,
			"backbone: no route from connected core to rooms %v", remaining)
	}

	b.accept(best, b.params.PrimaryWidth, layout.TagPrimary)
	b.logger.Debug("backbone corridor accepted",
		"from", best.a, "to", best.b, "length", len(best.cells))
	return len(b.unconnectedCore()) == 0, nil
}

// StepBranch attaches the lowest-id unconnected room to its nearest
// connected room, or reports done when every room is connected or has
// been recorded for repair.
func (b *Builder) StepBranch() (bool, error) {
	id, ok := b.nextUnconnected()
	if !ok {
		return true, nil
	}

	best, found := b.cheapestEdge(b.connectedIDs(), []int{id}, pathgrid.SearchOptions{})
	if !found {
		// Not fatal yet: the repair pass gets a shot at it.
		b.skipped = append(b.skipped, id)
		b.logger.Debug("branch target unreachable, deferring to repair", "room", id)
		return b.branchDone(), nil
	}

	b.accept(best, b.params.SecondaryWidth, layout.TagSecondary)
	return b.branchDone(), nil
}

func (b *Builder) branchDone() bool {
	_, more := b.nextUnconnected()
	return !more
}

// RedundancyTarget returns how many loop edges the redundancy pass
// aims to add: floor(ratio × room count).
func (b *Builder) RedundancyTarget() int {
	return int(b.params.RedundancyRatio * float64(len(b.rooms)))
}

// StepRedundancy adds one loop edge between the closest pair of
// already-reachable rooms that has no direct corridor, or reports done
// when the target count is reached or no candidate pair remains
// routable. Rooms the branch pass could not reach are excluded: a
// corridor between two of them would form an island the repair pass
// then mistakes for connected.
func (b *Builder) StepRedundancy() (bool, error) {
	if b.added >= b.RedundancyTarget() {
		return true, nil
	}

	direct := make(map[[2]int]bool, len(b.corridors))
	for _, c := range b.corridors {
		direct[[2]int{c.RoomA, c.RoomB}] = true
	}

	reach := b.reached()
	var best edge
	found := false
	for i := range b.rooms {
		for j := i + 1; j < len(b.rooms); j++ {
			a, c := b.rooms[i].ID, b.rooms[j].ID
			if a > c {
				a, c = c, a
			}
			if direct[[2]int{a, c}] || !reach[a] || !reach[c] {
				continue
			}
			e, ok := b.route(a, c, pathgrid.SearchOptions{})
			if !ok {
				continue
			}
			if !found || less(e, best) {
				best, found = e, true
			}
		}
	}
	if !found {
		b.logger.Debug("redundancy pass exhausted", "added", b.added, "target", b.RedundancyTarget())
		return true, nil
	}

	b.accept(best, b.params.SecondaryWidth, layout.TagSecondary)
	b.added++
	return b.added >= b.RedundancyTarget(), nil
}

// Finish validates full connectivity, attempting one repair pass with
// relaxed obstacle constraints if the graph is broken, and returns the
// rooms (now carrying their doorways) and the corridor set.
func (b *Builder) Finish() ([]layout.Room, []layout.Corridor, error) {
	if unreached := b.unreached(); len(unreached) > 0 {
		b.logger.Warn("connectivity validation failed, attempting repair", "unreached", unreached)
		b.repair(unreached)
		if still := b.unreached(); len(still) > 0 {
			return nil, nil, errors.NewStage(errors.ErrCodeConnectivity, errors.StageConnect,
				"rooms %v unreachable after repair", still)
		}
	}
	return b.rooms, b.corridors, nil
}

// repair retries the branch pass for each unreached room with existing
// corridors passable at a penalty. Reachability is recomputed from the
// corridor graph before every attempt rather than read off the
// connected map, so a corridor accepted for one room (which may have
// pulled a whole unreached cluster in with it) is visible to the next.
// This is the single sanctioned retry in the whole pipeline.
func (b *Builder) repair(unreached []int) {
	relaxed := pathgrid.SearchOptions{CorridorCost: relaxedCorridorCost}
	for _, id := range unreached {
		reach := b.reached()
		if reach[id] {
			continue
		}
		best, found := b.cheapestEdge(sortedIDs(reach), []int{id}, relaxed)
		if !found {
			continue
		}
		b.accept(best, b.params.SecondaryWidth, layout.TagSecondary)
		b.logger.Info("repair corridor accepted", "room", id, "length", len(best.cells))
	}
}

// reached returns the set of room ids reachable from the backbone seed
// over the corridor graph.
func (b *Builder) reached() map[int]bool {
	adj := make(map[int][]int, len(b.rooms))
	for _, c := range b.corridors {
		adj[c.RoomA] = append(adj[c.RoomA], c.RoomB)
		adj[c.RoomB] = append(adj[c.RoomB], c.RoomA)
	}

	seed := b.seedRoom()
	visited := map[int]bool{seed: true}
	queue := []int{seed}
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
	return visited
}

// seedRoom is the origin of every reachability walk: the lowest-id
// core room, the same room New marks connected first.
func (b *Builder) seedRoom() int {
	if len(b.core) > 0 {
		return b.core[0]
	}
	return b.allIDs()[0]
}

// unreached returns the room ids the validation walk never visits,
// ascending.
func (b *Builder) unreached() []int {
	if len(b.rooms) < 2 {
		return nil
	}
	reach := b.reached()
	var missing []int
	for _, id := range b.allIDs() {
		if !reach[id] {
			missing = append(missing, id)
		}
	}
	return missing
}

func (b *Builder) allIDs() []int {
	ids := make([]int, len(b.rooms))
	for i := range b.rooms {
		ids[i] = b.rooms[i].ID
	}
	sort.Ints(ids)
	return ids
}

func (b *Builder) connectedIDs() []int {
	return sortedIDs(b.connected)
}

func sortedIDs(set map[int]bool) []int {
	ids := make([]int, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func (b *Builder) unconnectedCore() []int {
	var out []int
	for _, id := range b.core {
		if !b.connected[id] {
			out = append(out, id)
		}
	}
	return out
}

// nextUnconnected returns the lowest-id room that is neither connected
// nor already deferred to repair.
func (b *Builder) nextUnconnected() (int, bool) {
	skipped := make(map[int]bool, len(b.skipped))
	for _, id := range b.skipped {
		skipped[id] = true
	}
	for _, id := range b.allIDs() {
		if !b.connected[id] && !skipped[id] {
			return id, true
		}
	}
	return 0, false
}

// cheapestEdge finds the lowest-cost routable edge from any room in
// from to any room in to. Both inputs must be sorted ascending; the
// scan order plus the (length, idA, idB) comparison makes the winner
// deterministic.
func (b *Builder) cheapestEdge(from, to []int, opts pathgrid.SearchOptions) (edge, bool) {
	var best edge
	found := false
	for _, a := range from {
		for _, c := range to {
			if a == c {
				continue
			}
			e, ok := b.route(a, c, opts)
			if !ok {
				continue
			}
			if !found || less(e, best) {
				best, found = e, true
			}
		}
	}
	return best, found
}

func stageUnreachable(err error) bool {
	return stderrors.Is(err, pathgrid.ErrNoPath)
}
