// Package classify assigns a semantic room type to every partition leaf.
//
// Classification is rule based: each room's size bucket, partition
// depth bucket, and centrality select a weighted distribution over room
// types, which is sampled from the pipeline's seeded source. Draws are
// consumed in ascending room id order, so re-running the classifier on
// an unchanged room set with the same source state reproduces the same
// assignments exactly.
//
// Exactly one room becomes the boss room: the one maximizing area, then
// proximity to the map center, with ascending id as the final tie-break.
// Per-type minimum sizes are enforced by falling back to the next
// eligible type in the distribution, never by resizing a room.
package classify

import (
	"sort"

	"github.com/roomforge/roomforge/pkg/layout"
	"github.com/roomforge/roomforge/pkg/rng"
)

// Size buckets by room area.
const (
	sizeSmall  = iota // under 36 cells
	sizeMedium        // 36 to 99 cells
	sizeLarge         // 100 cells and up
)

// Depth buckets by partition depth.
const (
	depthShallow = iota // depth 0-2: near the root, big cuts
	depthMid            // depth 3-4
	depthDeep           // depth 5+: heavily subdivided edges
)

// weighted is one entry of a type distribution. Entries are sampled by
// cumulative weight; fallback order on a minimum-size rejection is the
// declaration order of the slice.
type weighted struct {
	t layout.RoomType
	w int
}

// distributions holds the rule table indexed by [size][depth][central].
// The table is data, not code, so tuning the feel of a map is a matter
// of editing weights. Every cell lists at least one type with no
// minimum-size requirement (office or storage) so sampling can never
// dead-end.
var distributions = [3][3][2][]weighted{
	// sizeSmall
	{
		// depthShallow          central=false                        central=true
		{{{layout.RoomStorage, 5}, {layout.RoomOffice, 4}, {layout.RoomSecurity, 1}},
			{{layout.RoomOffice, 5}, {layout.RoomSecurity, 3}, {layout.RoomStorage, 2}}},
		// depthMid
		{{{layout.RoomStorage, 5}, {layout.RoomOffice, 4}, {layout.RoomServerRoom, 2}},
			{{layout.RoomOffice, 5}, {layout.RoomSecurity, 2}, {layout.RoomServerRoom, 2}}},
		// depthDeep
		{{{layout.RoomStorage, 6}, {layout.RoomServerRoom, 2}, {layout.RoomOffice, 2}},
			{{layout.RoomOffice, 4}, {layout.RoomStorage, 3}, {layout.RoomSecurity, 2}}},
	},
	// sizeMedium
	{
		{{{layout.RoomOffice, 6}, {layout.RoomBreakRoom, 2}, {layout.RoomStorage, 2}},
			{{layout.RoomLobby, 4}, {layout.RoomOffice, 4}, {layout.RoomBreakRoom, 2}}},
		{{{layout.RoomOffice, 6}, {layout.RoomConference, 2}, {layout.RoomBreakRoom, 2}},
			{{layout.RoomOffice, 4}, {layout.RoomConference, 3}, {layout.RoomBreakRoom, 2}}},
		{{{layout.RoomOffice, 6}, {layout.RoomStorage, 3}, {layout.RoomServerRoom, 1}},
			{{layout.RoomOffice, 5}, {layout.RoomBreakRoom, 3}, {layout.RoomStorage, 2}}},
	},
	// sizeLarge
	{
		{{{layout.RoomConference, 4}, {layout.RoomOffice, 4}, {layout.RoomBreakRoom, 2}},
			{{layout.RoomLobby, 5}, {layout.RoomConference, 3}, {layout.RoomOffice, 2}}},
		{{{layout.RoomConference, 4}, {layout.RoomOffice, 4}, {layout.RoomServerRoom, 2}},
			{{layout.RoomLobby, 4}, {layout.RoomConference, 4}, {layout.RoomOffice, 2}}},
		{{{layout.RoomOffice, 5}, {layout.RoomConference, 3}, {layout.RoomBreakRoom, 2}},
			{{layout.RoomConference, 4}, {layout.RoomOffice, 4}, {layout.RoomBreakRoom, 2}}},
	},
}

// minArea returns the minimum area a room must have to carry a type.
// A candidate below the threshold is rejected and the sampler falls
// back to the next eligible entry.
func minArea(t layout.RoomType) int {
	switch t {
	case layout.RoomConference:
		return 30
	case layout.RoomLobby:
		return 35
	case layout.RoomServerRoom:
		return 16
	case layout.RoomBreakRoom:
		return 20
	case layout.RoomBoss:
		return 40
	default:
		return 0
	}
}

// Assign classifies rooms in place on a copy and returns it. The input
// slice is not modified. mapW and mapH are the map dimensions used for
// centrality; src must be the pipeline source positioned after the
// partition stage.
func Assign(rooms []layout.Room, mapW, mapH int, src *rng.Source) []layout.Room {
	out := make([]layout.Room, len(rooms))
	copy(out, rooms)
	if len(out) == 0 {
		return out
	}

	bossID := pickBoss(out, mapW, mapH)

	// Ascending id order fixes the draw sequence.
	order := make([]int, len(out))
	for i := range out {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return out[order[a]].ID < out[order[b]].ID })

	for _, i := range order {
		r := &out[i]
		if r.ID == bossID {
			r.Type = layout.RoomBoss
			continue
		}
		r.Type = sample(r, mapW, mapH, src)
	}
	return out
}

// pickBoss returns the id of the room that maximizes (area, proximity
// to map center), ties broken by ascending id.
func pickBoss(rooms []layout.Room, mapW, mapH int) int {
	center := layout.Point{X: mapW / 2, Y: mapH / 2}
	best := 0
	bestArea, bestDist := -1, 0
	for i := range rooms {
		r := &rooms[i]
		area := r.Bounds.Area()
		dist := layout.ManhattanDist(r.Bounds.Center(), center)
		switch {
		case area > bestArea,
			area == bestArea && dist < bestDist,
			area == bestArea && dist == bestDist && r.ID < best:
			best, bestArea, bestDist = r.ID, area, dist
		}
	}
	return best
}

func sample(r *layout.Room, mapW, mapH int, src *rng.Source) layout.RoomType {
	dist := distributions[sizeBucket(r)][depthBucket(r)][boolIdx(central(r, mapW, mapH))]

	total := 0
	for _, e := range dist {
		total += e.w
	}
	draw := src.IntN(total)

	// Locate the drawn entry, then walk forward (wrapping) until an
	// entry passes the minimum-size constraint. The office/storage
	// floor guarantees termination.
	start := 0
	for i, e := range dist {
		if draw < e.w {
			start = i
			break
		}
		draw -= e.w
	}
	for k := 0; k < len(dist); k++ {
		e := dist[(start+k)%len(dist)]
		if r.Bounds.Area() >= minArea(e.t) {
			return e.t
		}
	}
	return layout.RoomOffice
}

func sizeBucket(r *layout.Room) int {
	switch a := r.Bounds.Area(); {
	case a < 36:
		return sizeSmall
	case a < 100:
		return sizeMedium
	default:
		return sizeLarge
	}
}

func depthBucket(r *layout.Room) int {
	switch {
	case r.Depth <= 2:
		return depthShallow
	case r.Depth <= 4:
		return depthMid
	default:
		return depthDeep
	}
}

// central reports whether the room center falls within the middle
// quarter of the map's half-extent on both axes.
func central(r *layout.Room, mapW, mapH int) bool {
	c := r.Bounds.Center()
	dx := c.X - mapW/2
	if dx < 0 {
		dx = -dx
	}
	dy := c.Y - mapH/2
	if dy < 0 {
		dy = -dy
	}
	return dx <= mapW/4 && dy <= mapH/4
}

func boolIdx(b bool) int {
	if b {
		return 1
	}
	return 0
}
