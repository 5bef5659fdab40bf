package optimize

import (
	"io"
	"math"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/roomforge/roomforge/pkg/layout"
)

func testLogger() *log.Logger { return log.New(io.Discard) }

func spacedLayout() *layout.Layout {
	return &layout.Layout{
		SchemaVersion: layout.SchemaVersion,
		Width:         40, Height: 40,
		Rooms: []layout.Room{
			{ID: 0, Bounds: layout.Rect{X: 2, Y: 2, W: 6, H: 6}, Type: layout.RoomLobby,
				Doorways: []layout.Point{{X: 7, Y: 5}}},
			{ID: 1, Bounds: layout.Rect{X: 20, Y: 2, W: 6, H: 6}, Type: layout.RoomBoss,
				Doorways: []layout.Point{{X: 20, Y: 5}}},
		},
		Corridors: []layout.Corridor{
			{ID: 0, RoomA: 0, RoomB: 1, Width: 3, Tag: layout.TagPrimary,
				Cells: []layout.Point{
					{X: 8, Y: 5}, {X: 9, Y: 5}, {X: 10, Y: 5}, {X: 11, Y: 5}, {X: 12, Y: 5},
					{X: 13, Y: 5}, {X: 14, Y: 5}, {X: 15, Y: 5}, {X: 16, Y: 5}, {X: 17, Y: 5},
					{X: 18, Y: 5}, {X: 19, Y: 5},
				}},
		},
	}
}

func TestRunZeroIterations(t *testing.T) {
	in := spacedLayout()
	res := Run(in, DefaultParams(0), testLogger())

	if res.Converged {
		t.Fatal("a loop that never ran must not report convergence")
	}
	if res.Iterations != 0 {
		t.Fatalf("iterations = %d, want 0", res.Iterations)
	}
	if !res.Layout.Equal(in) {
		t.Fatal("zero iterations must keep positions exactly")
	}
}

func TestRunDoesNotMutateInput(t *testing.T) {
	in := spacedLayout()
	snapshot := in.Clone()
	Run(in, DefaultParams(50), testLogger())
	if !in.Equal(snapshot) {
		t.Fatal("input layout mutated")
	}
}

func TestRunKeepsLayoutValid(t *testing.T) {
	in := spacedLayout()
	if err := in.Validate(); err != nil {
		t.Fatalf("fixture invalid before optimization: %v", err)
	}
	res := Run(in, DefaultParams(50), testLogger())
	if err := res.Layout.Validate(); err != nil {
		t.Fatalf("optimizer broke the layout: %v", err)
	}
}

func TestRunDeterministic(t *testing.T) {
	a := Run(spacedLayout(), DefaultParams(50), testLogger())
	b := Run(spacedLayout(), DefaultParams(50), testLogger())
	if a.Converged != b.Converged || a.Iterations != b.Iterations {
		t.Fatalf("runs disagree: %+v vs %+v", a, b)
	}
	if !a.Layout.Equal(b.Layout) {
		t.Fatal("optimized layouts differ across identical runs")
	}
}

func TestStepPure(t *testing.T) {
	l := spacedLayout()
	rooms := l.Rooms
	edges := [][2]int{{0, 1}}
	st := State{
		Positions:  []Vec{{X: 2, Y: 2}, {X: 20, Y: 2}},
		Velocities: make([]Vec, 2),
	}
	before := make([]Vec, len(st.Positions))
	copy(before, st.Positions)

	next := Step(st, rooms, edges, DefaultParams(50))
	for i := range before {
		if st.Positions[i] != before[i] {
			t.Fatalf("Step mutated its input at room %d", i)
		}
	}
	if &next.Positions[0] == &st.Positions[0] {
		t.Fatal("Step returned aliased position storage")
	}
}

func TestStepSeparatesCrowdedRooms(t *testing.T) {
	rooms := []layout.Room{
		{ID: 0, Bounds: layout.Rect{X: 10, Y: 10, W: 6, H: 6}},
		{ID: 1, Bounds: layout.Rect{X: 16, Y: 10, W: 6, H: 6}}, // touching, gap 0
	}
	st := State{
		Positions:  []Vec{{X: 10, Y: 10}, {X: 16, Y: 10}},
		Velocities: make([]Vec, 2),
	}
	next := Step(st, rooms, nil, DefaultParams(50))

	gapBefore := st.Positions[1].X - (st.Positions[0].X + 6)
	gapAfter := next.Positions[1].X - (next.Positions[0].X + 6)
	if gapAfter <= gapBefore {
		t.Fatalf("touching rooms did not separate: gap %v -> %v", gapBefore, gapAfter)
	}
	if next.Displacement <= 0 {
		t.Fatal("expected nonzero displacement for a crowded pair")
	}
}

func TestStepAttractsConnectedRooms(t *testing.T) {
	rooms := []layout.Room{
		{ID: 0, Bounds: layout.Rect{X: 0, Y: 0, W: 4, H: 4}},
		{ID: 1, Bounds: layout.Rect{X: 30, Y: 0, W: 4, H: 4}},
	}
	st := State{
		Positions:  []Vec{{X: 0, Y: 0}, {X: 30, Y: 0}},
		Velocities: make([]Vec, 2),
	}
	next := Step(st, rooms, [][2]int{{0, 1}}, DefaultParams(50))

	distBefore := st.Positions[1].X - st.Positions[0].X
	distAfter := next.Positions[1].X - next.Positions[0].X
	if distAfter >= distBefore {
		t.Fatalf("connected rooms did not pull together: %v -> %v", distBefore, distAfter)
	}
}

func TestScorePenalizesOverlap(t *testing.T) {
	p := DefaultParams(1)
	apart := []layout.Rect{{X: 0, Y: 0, W: 4, H: 4}, {X: 10, Y: 0, W: 4, H: 4}}
	overlapping := []layout.Rect{{X: 0, Y: 0, W: 4, H: 4}, {X: 2, Y: 0, W: 4, H: 4}}
	if score(apart, nil, p) <= score(overlapping, nil, p) {
		t.Fatal("overlapping rooms should score worse than spaced rooms")
	}
}

func TestGap1D(t *testing.T) {
	cases := []struct {
		name				string
		aLo, aHi, bLo, bHi, want	int
	}{
		{"disjoint right", 0, 4, 8, 12, 4},
		{"disjoint left", 8, 12, 0, 4, 4},
		{"touching", 0, 4, 4, 8, 0},
		{"overlapping", 0, 6, 4, 10, -2},
		{"contained", 0, 10, 3, 5, -2},
	}
	for _, tc := range cases {
		if got := gap1D(tc.aLo, tc.aHi, tc.bLo, tc.bHi); got != tc.want {
			t.Errorf("%s: gap1D=%d, want %d", tc.name, got, tc.want)
		}
	}
}

func TestSnapRevertsBrokenMove(t *testing.T) {
	l := spacedLayout()
	// Force room 1 far enough left that its doorway would detach from
	// the corridor's final cell; the snap must roll it back.
	positions := []Vec{
		{X: 2, Y: 2},
		{X: 14, Y: 9},
	}
	reverted := applySnapped(l, positions)
	if reverted != 1 {
		t.Fatalf("reverted = %d, want 1", reverted)
	}
	if l.Rooms[1].Bounds != (layout.Rect{X: 20, Y: 2, W: 6, H: 6}) {
		t.Fatalf("room 1 not restored: %+v", l.Rooms[1].Bounds)
	}
	if err := l.Validate(); err != nil {
		t.Fatalf("layout invalid after revert: %v", err)
	}
}

func TestSnapRejectsOutOfBounds(t *testing.T) {
	l := spacedLayout()
	l.Corridors = nil
	l.Rooms = l.Rooms[:1]
	positions := []Vec{{X: -3, Y: 2}}
	if reverted := applySnapped(l, positions); reverted != 1 {
		t.Fatalf("reverted = %d, want 1 for an off-map snap", reverted)
	}
	if l.Rooms[0].Bounds.X != 2 {
		t.Fatalf("room left the map: %+v", l.Rooms[0].Bounds)
	}
}

func TestSnapTranslatesDoorways(t *testing.T) {
	l := &layout.Layout{
		SchemaVersion: layout.SchemaVersion,
		Width:         40, Height: 40,
		Rooms: []layout.Room{
			{ID: 0, Bounds: layout.Rect{X: 2, Y: 2, W: 6, H: 6},
				Doorways: []layout.Point{{X: 7, Y: 5}}},
		},
	}
	if reverted := applySnapped(l, []Vec{{X: 4, Y: 3}}); reverted != 0 {
		t.Fatalf("legal move reverted (%d)", reverted)
	}
	if l.Rooms[0].Bounds != (layout.Rect{X: 4, Y: 3, W: 6, H: 6}) {
		t.Fatalf("bounds: %+v", l.Rooms[0].Bounds)
	}
	if l.Rooms[0].Doorways[0] != (layout.Point{X: 9, Y: 6}) {
		t.Fatalf("doorway did not travel with the room: %+v", l.Rooms[0].Doorways[0])
	}
}

func TestConvergenceOnStableInput(t *testing.T) {
	// Two well-spaced rooms with no corridor: no forces at all, so the
	// first iteration has zero displacement and the loop converges.
	l := &layout.Layout{
		SchemaVersion: layout.SchemaVersion,
		Width:         40, Height: 40,
		Rooms: []layout.Room{
			{ID: 0, Bounds: layout.Rect{X: 2, Y: 2, W: 4, H: 4}},
			{ID: 1, Bounds: layout.Rect{X: 20, Y: 20, W: 4, H: 4}},
		},
	}
	res := Run(l, DefaultParams(50), testLogger())
	if !res.Converged {
		t.Fatal("force-free layout should converge immediately")
	}
	if res.Iterations != 1 {
		t.Fatalf("iterations = %d, want 1", res.Iterations)
	}
	if math.Abs(float64(res.Layout.Rooms[0].Bounds.X-2)) > 0 {
		t.Fatalf("room drifted: %+v", res.Layout.Rooms[0].Bounds)
	}
}
