package generate

import (
	"encoding/json"
	"io"

	"github.com/charmbracelet/log"

	"github.com/roomforge/roomforge/pkg/cache"
	"github.com/roomforge/roomforge/pkg/errors"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and API
// =============================================================================

const (
	// DefaultWidth is the default map width in cells.
	DefaultWidth = 64

	// DefaultHeight is the default map height in cells.
	DefaultHeight = 64

	// DefaultMinRooms is the minimum acceptable room count.
	DefaultMinRooms = 6

	// DefaultMaxRooms is the partition leaf budget.
	DefaultMaxRooms = 16

	// DefaultMinRoomSize is the minimum room side length in cells.
	DefaultMinRoomSize = 4

	// DefaultMaxRoomSize is the maximum room side length in cells.
	DefaultMaxRoomSize = 12

	// DefaultMaxDepth is the partition recursion cap.
	DefaultMaxDepth = 8

	// DefaultMargin is the corridor margin reserved around rooms.
	DefaultMargin = 2

	// DefaultPrimaryWidth is the backbone corridor width.
	DefaultPrimaryWidth = 5

	// DefaultSecondaryWidth is the branch corridor width.
	DefaultSecondaryWidth = 3

	// DefaultCoreRooms is how many of the largest rooms seed the backbone.
	DefaultCoreRooms = 4

	// DefaultRedundancyRatio is the fraction of the room count added as
	// loop corridors after full connectivity.
	DefaultRedundancyRatio = 0.15

	// DefaultMaxIterations is the optimizer iteration cap.
	DefaultMaxIterations = 50
)

// DefaultSplitLow and DefaultSplitHigh bound the partition split ratio,
// centered on the golden ratio.
const (
	DefaultSplitLow  = 0.38
	DefaultSplitHigh = 0.62
)

// =============================================================================
// Options - Generation Request Configuration
// =============================================================================

// Options contains all configuration for a generation request.
// This struct supports JSON serialization for API requests and presets.
//
// Zero-valued numeric fields take their defaults during validation;
// Seed is the exception and is used as given, so equal requests stay
// reproducible. Callers wanting a fresh layout each run derive the seed
// from time at their own boundary.
type Options struct {
	Width  int `json:"width,omitempty" toml:"width"`
	Height int `json:"height,omitempty" toml:"height"`

	Seed uint64 `json:"seed" toml:"seed"`

	MinRooms    int `json:"min_rooms,omitempty" toml:"min_rooms"`
	MaxRooms    int `json:"max_rooms,omitempty" toml:"max_rooms"`
	MinRoomSize int `json:"min_room_size,omitempty" toml:"min_room_size"`
	MaxRoomSize int `json:"max_room_size,omitempty" toml:"max_room_size"`
	MaxDepth    int `json:"max_depth,omitempty" toml:"max_depth"`
	Margin      int `json:"margin,omitempty" toml:"margin"`

	// SplitLow and SplitHigh bound the partition split asymmetry band.
	SplitLow  float64 `json:"split_low,omitempty" toml:"split_low"`
	SplitHigh float64 `json:"split_high,omitempty" toml:"split_high"`

	PrimaryWidth    int     `json:"primary_width,omitempty" toml:"primary_width"`
	SecondaryWidth  int     `json:"secondary_width,omitempty" toml:"secondary_width"`
	CoreRooms       int     `json:"core_rooms,omitempty" toml:"core_rooms"`
	RedundancyRatio float64 `json:"redundancy_ratio,omitempty" toml:"redundancy_ratio"`

	// MaxIterations caps the optimizer. Zero means "use the default",
	// like every other numeric field; to run no iterations at all, set
	// SkipOptimize instead.
	MaxIterations int  `json:"max_iterations,omitempty" toml:"max_iterations"`
	SkipOptimize  bool `json:"skip_optimize,omitempty" toml:"skip_optimize"`

	// Refresh bypasses the cache read (the result is still written).
	Refresh bool `json:"refresh,omitempty" toml:"-"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-" toml:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// ValidateAndSetDefaults checks the request and applies defaults.
// Contradictory values are rejected with INVALID_REQUEST; nothing is
// ever clamped silently. Idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	o.setDefaults()

	switch {
	case o.Width <= 0 || o.Height <= 0:
		return errors.New(errors.ErrCodeInvalidRequest, "map dimensions must be positive, got %dx%d", o.Width, o.Height)
	case o.MinRoomSize < 3:
		return errors.New(errors.ErrCodeInvalidRequest, "min_room_size %d below minimum of 3", o.MinRoomSize)
	case o.MinRoomSize > o.MaxRoomSize:
		return errors.New(errors.ErrCodeInvalidRequest, "min_room_size %d exceeds max_room_size %d", o.MinRoomSize, o.MaxRoomSize)
	case o.MinRooms < 1:
		return errors.New(errors.ErrCodeInvalidRequest, "min_rooms must be at least 1, got %d", o.MinRooms)
	case o.MinRooms > o.MaxRooms:
		return errors.New(errors.ErrCodeInvalidRequest, "min_rooms %d exceeds max_rooms %d", o.MinRooms, o.MaxRooms)
	case o.MaxDepth < 1:
		return errors.New(errors.ErrCodeInvalidRequest, "max_depth must be at least 1, got %d", o.MaxDepth)
	case o.Margin < 1:
		return errors.New(errors.ErrCodeInvalidRequest, "margin must be at least 1, got %d", o.Margin)
	case !validCorridorWidth(o.PrimaryWidth) || !validCorridorWidth(o.SecondaryWidth):
		return errors.New(errors.ErrCodeInvalidRequest, "corridor widths must be 3 or 5, got primary %d secondary %d", o.PrimaryWidth, o.SecondaryWidth)
	case o.SplitLow <= 0 || o.SplitHigh >= 1 || o.SplitLow >= o.SplitHigh:
		return errors.New(errors.ErrCodeInvalidRequest, "split band [%.2f, %.2f] must satisfy 0 < low < high < 1", o.SplitLow, o.SplitHigh)
	case o.CoreRooms < 1:
		return errors.New(errors.ErrCodeInvalidRequest, "core_rooms must be at least 1, got %d", o.CoreRooms)
	case o.RedundancyRatio < 0 || o.RedundancyRatio > 1:
		return errors.New(errors.ErrCodeInvalidRequest, "redundancy_ratio %.2f out of [0, 1]", o.RedundancyRatio)
	case o.MaxIterations < 0:
		return errors.New(errors.ErrCodeInvalidRequest, "max_iterations must not be negative, got %d", o.MaxIterations)
	}

	o.validated = true
	return nil
}

func validCorridorWidth(w int) bool {
	return w == 3 || w == 5
}

func (o *Options) setDefaults() {
	if o.Width == 0 {
		o.Width = DefaultWidth
	}
	if o.Height == 0 {
		o.Height = DefaultHeight
	}
	if o.MinRooms == 0 {
		o.MinRooms = DefaultMinRooms
	}
	if o.MaxRooms == 0 {
		o.MaxRooms = DefaultMaxRooms
	}
	if o.MinRoomSize == 0 {
		o.MinRoomSize = DefaultMinRoomSize
	}
	if o.MaxRoomSize == 0 {
		o.MaxRoomSize = DefaultMaxRoomSize
	}
	if o.MaxDepth == 0 {
		o.MaxDepth = DefaultMaxDepth
	}
	if o.Margin == 0 {
		o.Margin = DefaultMargin
	}
	if o.SplitLow == 0 {
		o.SplitLow = DefaultSplitLow
	}
	if o.SplitHigh == 0 {
		o.SplitHigh = DefaultSplitHigh
	}
	if o.PrimaryWidth == 0 {
		o.PrimaryWidth = DefaultPrimaryWidth
	}
	if o.SecondaryWidth == 0 {
		o.SecondaryWidth = DefaultSecondaryWidth
	}
	if o.CoreRooms == 0 {
		o.CoreRooms = DefaultCoreRooms
	}
	if o.RedundancyRatio == 0 {
		o.RedundancyRatio = DefaultRedundancyRatio
	}
	if o.MaxIterations == 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// Hash returns the cache hash of the request: a digest over every
// field that influences the generated layout. Refresh and runtime
// fields are excluded so they never fragment the cache.
func (o *Options) Hash() string {
	key := struct {
		W, H                 int
		Seed                 uint64
		MinRooms, MaxRooms   int
		MinSize, MaxSize     int
		MaxDepth, Margin     int
		SplitLow, SplitHigh  float64
		PrimaryW, SecondaryW int
		Core                 int
		Redundancy           float64
		Iterations           int
		SkipOptimize         bool
	}{
		o.Width, o.Height, o.Seed,
		o.MinRooms, o.MaxRooms, o.MinRoomSize, o.MaxRoomSize,
		o.MaxDepth, o.Margin, o.SplitLow, o.SplitHigh,
		o.PrimaryWidth, o.SecondaryWidth, o.CoreRooms, o.RedundancyRatio,
		o.MaxIterations, o.SkipOptimize,
	}
	data, _ := json.Marshal(key)
	return cache.Hash(data)
}
