package generate

import (
	"testing"

	"github.com/roomforge/roomforge/pkg/errors"
)

func TestValidateAppliesDefaults(t *testing.T) {
	var o Options
	if err := o.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("zero options rejected: %v", err)
	}
	if o.Width != DefaultWidth || o.Height != DefaultHeight {
		t.Fatalf("dimensions not defaulted: %dx%d", o.Width, o.Height)
	}
	if o.MinRooms != DefaultMinRooms || o.MaxRooms != DefaultMaxRooms {
		t.Fatalf("room counts not defaulted: %d..%d", o.MinRooms, o.MaxRooms)
	}
	if o.SplitLow != DefaultSplitLow || o.SplitHigh != DefaultSplitHigh {
		t.Fatalf("split band not defaulted: [%v, %v]", o.SplitLow, o.SplitHigh)
	}
	if o.PrimaryWidth != DefaultPrimaryWidth || o.SecondaryWidth != DefaultSecondaryWidth {
		t.Fatalf("corridor widths not defaulted: %d/%d", o.PrimaryWidth, o.SecondaryWidth)
	}
	if o.Seed != 0 {
		t.Fatalf("seed must never be defaulted, got %d", o.Seed)
	}
	if o.Logger == nil {
		t.Fatal("logger not defaulted")
	}
}

func TestValidatePreservesExplicitValues(t *testing.T) {
	o := Options{Width: 48, Height: 32, MaxRooms: 10, MinRooms: 4}
	if err := o.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if o.Width != 48 || o.Height != 32 || o.MaxRooms != 10 || o.MinRooms != 4 {
		t.Fatalf("explicit values overwritten: %+v", o)
	}
}

func TestValidateIdempotent(t *testing.T) {
	o := Options{Width: 48}
	if err := o.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("first validate: %v", err)
	}
	first := o
	if err := o.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("second validate: %v", err)
	}
	if o != first {
		t.Fatal("second validation changed the options")
	}
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name string
		o    Options
	}{
		{"negative width", Options{Width: -1}},
		{"negative height", Options{Height: -10}},
		{"min room size too small", Options{MinRoomSize: 2}},
		{"min room size above max", Options{MinRoomSize: 8, MaxRoomSize: 5}},
		{"negative min rooms", Options{MinRooms: -1}},
		{"min rooms above max", Options{MinRooms: 20, MaxRooms: 10}},
		{"negative max depth", Options{MaxDepth: -1}},
		{"negative margin", Options{Margin: -1}},
		{"even primary width", Options{PrimaryWidth: 4}},
		{"unsupported secondary width", Options{SecondaryWidth: 7}},
		{"inverted split band", Options{SplitLow: 0.7, SplitHigh: 0.6}},
		{"split high above one", Options{SplitLow: 0.4, SplitHigh: 1.2}},
		{"negative core rooms", Options{CoreRooms: -2}},
		{"redundancy above one", Options{RedundancyRatio: 1.5}},
		{"negative redundancy", Options{RedundancyRatio: -0.1}},
		{"negative iterations", Options{MaxIterations: -5}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.o.ValidateAndSetDefaults()
			if !errors.Is(err, errors.ErrCodeInvalidRequest) {
				t.Fatalf("got %v, want INVALID_REQUEST", err)
			}
		})
	}
}

func TestHashStable(t *testing.T) {
	a := Options{Seed: 42, Width: 48}
	b := Options{Seed: 42, Width: 48}
	if err := a.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if err := b.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if a.Hash() != b.Hash() {
		t.Fatal("equal requests hashed differently")
	}
}

func TestHashSensitivity(t *testing.T) {
	base := Options{Seed: 42}
	if err := base.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("validate: %v", err)
	}

	differing := []struct {
		name   string
		mutate func(*Options)
	}{
		{"seed", func(o *Options) { o.Seed = 43 }},
		{"width", func(o *Options) { o.Width = 80 }},
		{"max rooms", func(o *Options) { o.MaxRooms = 12 }},
		{"redundancy", func(o *Options) { o.RedundancyRatio = 0.3 }},
		{"skip optimize", func(o *Options) { o.SkipOptimize = true }},
	}
	for _, tc := range differing {
		t.Run(tc.name, func(t *testing.T) {
			o := base
			tc.mutate(&o)
			if o.Hash() == base.Hash() {
				t.Fatal("generation-relevant field not part of the hash")
			}
		})
	}

	// Refresh only controls cache reads; it must not fragment the cache.
	refreshed := base
	refreshed.Refresh = true
	if refreshed.Hash() != base.Hash() {
		t.Fatal("refresh flag changed the hash")
	}
}
