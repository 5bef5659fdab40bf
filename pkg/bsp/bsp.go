// Package bsp implements the recursive binary space partition that
// carves the map into candidate rooms.
//
// The tree is stored as an arena of nodes addressed by integer index,
// so parent/child links are plain indices and the structure serializes
// without pointer cycles. Traversal is always by explicit recursion
// order (left subtree before right), never by iteration over an
// unordered container, which is what makes the draw sequence and
// therefore the resulting tree bit-identical for a fixed seed on
// every platform.
//
// The split offset is drawn from a configurable asymmetry band around
// the golden ratio rather than a fixed midpoint. That single choice is
// what keeps layouts from degenerating into uniform grids without any
// post-hoc jitter.
package bsp

import (
	"github.com/roomforge/roomforge/pkg/errors"
	"github.com/roomforge/roomforge/pkg/layout"
	"github.com/roomforge/roomforge/pkg/rng"
)

// NoNode marks an absent arena link.
const NoNode = -1

// Constraints bound the partition recursion.
type Constraints struct {
	MinRoomW int // Minimum room width after margin
	MinRoomH int // Minimum room height after margin
	MaxRoomW int // Maximum room width; larger leaves force a split when possible
	MaxRoomH int // Maximum room height
	MaxDepth int // Hard recursion cap
	MaxRooms int // Leaf budget; splitting stops when reached
	Margin   int // Corridor margin reserved between siblings and around rooms

	// SplitLow and SplitHigh bound the split ratio band. A ratio is
	// drawn uniformly from [SplitLow, SplitHigh) of the split axis span.
	SplitLow  float64
	SplitHigh float64
}

// Node is a single arena entry. A node is either a leaf (no children,
// holds a room rectangle) or an internal node (exactly two children,
// no room); there is no third state.
type Node struct {
	Bounds layout.Rect // Partition rectangle of this node
	Parent int         // Arena index of the parent, NoNode at the root
	Left   int         // Arena index of the left/top child, NoNode for leaves
	Right  int         // Arena index of the right/bottom child, NoNode for leaves
	Depth  int         // Distance from the root
	Room   layout.Rect // Leaf room rectangle, zero for internal nodes
}

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool { return n.Left == NoNode }

// Tree is a built partition tree. The root is always arena index 0.
type Tree struct {
	Nodes  []Node
	Bounds layout.Rect

	leafCount int
}

// Build partitions bounds according to c using draws from src.
//
// It returns an INSUFFICIENT_SPACE generation failure when no valid
// split exists at the root, which by contract means the bounding
// rectangle cannot host two minimum-size rooms on either axis. The
// failure is not retried internally.
func Build(bounds layout.Rect, c Constraints, src *rng.Source) (*Tree, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	t := &Tree{Bounds: bounds}
	t.Nodes = append(t.Nodes, Node{Bounds: bounds, Parent: NoNode, Left: NoNode, Right: NoNode})

	if !c.canSplit(bounds, axisVertical) && !c.canSplit(bounds, axisHorizontal) {
		return nil, errors.NewStage(errors.ErrCodeInsufficientSpace, errors.StagePartition,
			"bounding rectangle %dx%d cannot fit two rooms of minimum size %dx%d (seed %d)",
			bounds.W, bounds.H, c.MinRoomW, c.MinRoomH, src.Seed())
	}

	t.leafCount = 1
	t.split(0, c, src)
	t.placeRooms(c, src)
	return t, nil
}

type axis int

const (
	axisVertical   axis = iota // split along X: children side by side
	axisHorizontal             // split along Y: children stacked
)

func (c Constraints) check() *errors.Error {
	if c.MinRoomW <= 0 || c.MinRoomH <= 0 {
		return errors.New(errors.ErrCodeInvalidRequest, "minimum room size must be positive")
	}
	if c.SplitLow <= 0 || c.SplitHigh >= 1 || c.SplitLow >= c.SplitHigh {
		return errors.New(errors.ErrCodeInvalidRequest,
			"split band [%v, %v) must satisfy 0 < low < high < 1", c.SplitLow, c.SplitHigh)
	}
	return nil
}

// minSpan is the smallest node extent along a that still leaves room
// for a minimum-size room plus its margin on both sides.
func (c Constraints) minSpan(a axis) int {
	if a == axisVertical {
		return c.MinRoomW + 2*c.Margin
	}
	return c.MinRoomH + 2*c.Margin
}

// canSplit reports whether r can be divided along a into two children
// that each still host a minimum-size room. A Margin-wide corridor gap
// is reserved between the children.
func (c Constraints) canSplit(r layout.Rect, a axis) bool {
	span := r.W
	if a == axisHorizontal {
		span = r.H
	}
	return span >= 2*c.minSpan(a)+c.Margin
}

// split recursively divides node i. Children are appended to the arena
// in preorder and recursed left before right.
func (t *Tree) split(i int, c Constraints, src *rng.Source) {
	node := &t.Nodes[i]
	if node.Depth >= c.MaxDepth {
		return
	}
	if c.MaxRooms > 0 && t.leafCount >= c.MaxRooms {
		return
	}

	a, ok := t.chooseAxis(node.Bounds, c, src)
	if !ok {
		return
	}

	span := node.Bounds.W
	if a == axisHorizontal {
		span = node.Bounds.H
	}
	gap := span - c.Margin // total extent available to the two children
	offset := int(float64(gap) * src.InRange(c.SplitLow, c.SplitHigh))
	// Clamp so both children can still host a minimum room.
	if min := c.minSpan(a); offset < min {
		offset = min
	}
	if max := gap - c.minSpan(a); offset > max {
		offset = max
	}

	b := node.Bounds
	var left, right layout.Rect
	if a == axisVertical {
		left = layout.Rect{X: b.X, Y: b.Y, W: offset, H: b.H}
		right = layout.Rect{X: b.X + offset + c.Margin, Y: b.Y, W: b.W - offset - c.Margin, H: b.H}
	} else {
		left = layout.Rect{X: b.X, Y: b.Y, W: b.W, H: offset}
		right = layout.Rect{X: b.X, Y: b.Y + offset + c.Margin, W: b.W, H: b.H - offset - c.Margin}
	}

	depth := node.Depth + 1
	li := len(t.Nodes)
	t.Nodes = append(t.Nodes, Node{Bounds: left, Parent: i, Left: NoNode, Right: NoNode, Depth: depth})
	ri := len(t.Nodes)
	t.Nodes = append(t.Nodes, Node{Bounds: right, Parent: i, Left: NoNode, Right: NoNode, Depth: depth})
	t.Nodes[i].Left = li
	t.Nodes[i].Right = ri
	t.leafCount++ // one leaf became two

	t.split(li, c, src)
	t.split(ri, c, src)
}

// chooseAxis picks the split axis, biased toward the longer side. When
// the rectangle is close to square both axes are candidates and one
// draw decides. Returns false when neither axis is splittable.
func (t *Tree) chooseAxis(r layout.Rect, c Constraints, src *rng.Source) (axis, bool) {
	canV := c.canSplit(r, axisVertical)
	canH := c.canSplit(r, axisHorizontal)
	switch {
	case !canV && !canH:
		return 0, false
	case canV && !canH:
		return axisVertical, true
	case canH && !canV:
		return axisHorizontal, true
	}

	// Both possible: bias toward the longer side, draw when near-square.
	if r.W*4 > r.H*5 {
		return axisVertical, true
	}
	if r.H*4 > r.W*5 {
		return axisHorizontal, true
	}
	if src.IntN(2) == 0 {
		return axisVertical, true
	}
	return axisHorizontal, true
}

// placeRooms assigns each leaf its room rectangle: the leaf bounds
// shrunk by the corridor margin, trimmed to the maximum room size with
// the slack distributed by a draw so oversize leaves do not all hug
// the same corner. Leaves are visited in recursion order.
func (t *Tree) placeRooms(c Constraints, src *rng.Source) {
	var walk func(i int)
	walk = func(i int) {
		n := &t.Nodes[i]
		if !n.IsLeaf() {
			walk(n.Left)
			walk(n.Right)
			return
		}
		room := n.Bounds.Inset(c.Margin)
		if c.MaxRoomW > 0 && room.W > c.MaxRoomW {
			slack := room.W - c.MaxRoomW
			room.X += src.IntN(slack + 1)
			room.W = c.MaxRoomW
		}
		if c.MaxRoomH > 0 && room.H > c.MaxRoomH {
			slack := room.H - c.MaxRoomH
			room.Y += src.IntN(slack + 1)
			room.H = c.MaxRoomH
		}
		n.Room = room
	}
	walk(0)
}

// Leaves returns arena indices of all leaves in recursion order
// (left subtree before right). This order defines room identity.
func (t *Tree) Leaves() []int {
	var out []int
	var walk func(i int)
	walk = func(i int) {
		n := &t.Nodes[i]
		if n.IsLeaf() {
			out = append(out, i)
			return
		}
		walk(n.Left)
		walk(n.Right)
	}
	walk(0)
	return out
}

// Rooms materializes the leaf rectangles as rooms. Ids are assigned
// by leaf order, giving every room a stable identity for the rest of
// the pipeline. Types are assigned later by the classifier.
func (t *Tree) Rooms() []layout.Room {
	leaves := t.Leaves()
	rooms := make([]layout.Room, len(leaves))
	for i, li := range leaves {
		n := &t.Nodes[li]
		rooms[i] = layout.Room{
			ID:     i,
			Bounds: n.Room,
			Depth:  n.Depth,
		}
	}
	return rooms
}
