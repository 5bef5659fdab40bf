package generate

import (
	"context"
	"time"

	"github.com/roomforge/roomforge/pkg/bsp"
	"github.com/roomforge/roomforge/pkg/classify"
	"github.com/roomforge/roomforge/pkg/connect"
	"github.com/roomforge/roomforge/pkg/errors"
	"github.com/roomforge/roomforge/pkg/layout"
	"github.com/roomforge/roomforge/pkg/observability"
	"github.com/roomforge/roomforge/pkg/optimize"
	"github.com/roomforge/roomforge/pkg/rng"
)

// Phase identifies a pipeline stage of a Stepper.
type Phase string

// Pipeline phases in execution order.
const (
	PhasePartition Phase = errors.StagePartition
	PhaseClassify  Phase = errors.StageClassify
	PhaseConnect   Phase = errors.StageConnect
	PhaseOptimize  Phase = errors.StageOptimize
	PhaseValidate  Phase = errors.StageValidate
	PhaseDone      Phase = "done"
)

// Stepper runs a generation request in bounded chunks so a host loop
// can interleave it with other work: call Step until it reports done,
// then collect the outcome with Result. Partition, classification,
// optimization and validation each complete in one chunk; the
// connectivity phase yields after every corridor.
//
// Cancellation is checked between chunks. A cancelled Stepper discards
// all partial state and reports the context error; it never hands out
// a half-built layout.
//
// A Stepper is single-use and not safe for concurrent use.
type Stepper struct {
	opts Options
	src  *rng.Source

	phase      Phase
	connectSub int // 0 backbone, 1 branch, 2 redundancy, 3 finish
	phaseStart time.Time

	rooms   []layout.Room
	builder *connect.Builder

	connectSteps int
	result       *layout.Layout
	converged    bool
	iterations   int
	stats        Stats
	err          error
}

// NewStepper validates opts and prepares an incremental run.
func NewStepper(opts Options) (*Stepper, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	return &Stepper{
		opts:       opts,
		src:        rng.New(opts.Seed),
		phase:      PhasePartition,
		phaseStart: time.Now(),
	}, nil
}

// Phase returns the phase the next Step call will execute.
func (s *Stepper) Phase() Phase {
	return s.phase
}

// Step executes one bounded chunk of work. It returns true when the
// run has finished, successfully or not; the error of a failed run is
// returned both here and by Result.
func (s *Stepper) Step(ctx context.Context) (bool, error) {
	if s.phase == PhaseDone {
		return true, s.err
	}
	if err := ctx.Err(); err != nil {
		s.discard(err)
		return true, s.err
	}

	var err error
	switch s.phase {
	case PhasePartition:
		err = s.partition()
	case PhaseClassify:
		err = s.classify()
	case PhaseConnect:
		err = s.connectChunk()
	case PhaseOptimize:
		err = s.optimize()
	case PhaseValidate:
		err = s.validate()
	}
	if err != nil {
		s.discard(err)
		return true, s.err
	}
	return s.phase == PhaseDone, nil
}

// Result returns the finished layout and whether the optimizer
// converged. It fails with GENERATION_FAILED if the run is still in
// progress.
func (s *Stepper) Result() (*layout.Layout, bool, error) {
	if s.err != nil {
		return nil, false, s.err
	}
	if s.phase != PhaseDone {
		return nil, false, errors.New(errors.ErrCodeGeneration, "generation still in progress (phase %s)", s.phase)
	}
	return s.result, s.converged, nil
}

// Stats returns per-phase timings and counts. Only meaningful once the
// run is done.
func (s *Stepper) Stats() Stats {
	return s.stats
}

// Progress estimates completion in [0, 1].
func (s *Stepper) Progress() float64 {
	switch s.phase {
	case PhasePartition:
		return 0.0
	case PhaseClassify:
		return 0.15
	case PhaseConnect:
		total := len(s.rooms) + s.builder.RedundancyTarget()
		if total == 0 {
			return 0.8
		}
		frac := float64(s.connectSteps) / float64(total)
		if frac > 1 {
			frac = 1
		}
		return 0.25 + 0.55*frac
	case PhaseOptimize:
		return 0.85
	case PhaseValidate:
		return 0.95
	default:
		return 1.0
	}
}

func (s *Stepper) partition() error {
	constraints := bsp.Constraints{
		MinRoomW:  s.opts.MinRoomSize,
		MinRoomH:  s.opts.MinRoomSize,
		MaxRoomW:  s.opts.MaxRoomSize,
		MaxRoomH:  s.opts.MaxRoomSize,
		MaxDepth:  s.opts.MaxDepth,
		MaxRooms:  s.opts.MaxRooms,
		Margin:    s.opts.Margin,
		SplitLow:  s.opts.SplitLow,
		SplitHigh: s.opts.SplitHigh,
	}
	tree, err := bsp.Build(layout.Rect{W: s.opts.Width, H: s.opts.Height}, constraints, s.src)
	if err != nil {
		return err
	}
	rooms := tree.Rooms()
	if len(rooms) < s.opts.MinRooms {
		return errors.NewStage(errors.ErrCodeInsufficientSpace, errors.StagePartition,
			"partition produced %d rooms, need at least %d (map %dx%d, seed %d)",
			len(rooms), s.opts.MinRooms, s.opts.Width, s.opts.Height, s.opts.Seed)
	}
	s.rooms = rooms
	s.advance(PhaseClassify, &s.stats.PartitionTime)
	return nil
}

func (s *Stepper) classify() error {
	s.rooms = classify.Assign(s.rooms, s.opts.Width, s.opts.Height, s.src)
	s.builder = connect.New(s.rooms, s.opts.Width, s.opts.Height, connect.Params{
		CoreRooms:       s.opts.CoreRooms,
		PrimaryWidth:    s.opts.PrimaryWidth,
		SecondaryWidth:  s.opts.SecondaryWidth,
		RedundancyRatio: s.opts.RedundancyRatio,
	}, s.opts.Logger)
	s.advance(PhaseConnect, &s.stats.ClassifyTime)
	return nil
}

// connectChunk runs one connectivity sub-step: a single corridor of
// the current pass, or the final validation pass.
func (s *Stepper) connectChunk() error {
	switch s.connectSub {
	case 0:
		done, err := s.builder.StepBackbone()
		if err != nil {
			return err
		}
		if done {
			s.connectSub = 1
		} else {
			s.connectSteps++
		}
	case 1:
		done, err := s.builder.StepBranch()
		if err != nil {
			return err
		}
		if done {
			s.connectSub = 2
		} else {
			s.connectSteps++
		}
	case 2:
		done, err := s.builder.StepRedundancy()
		if err != nil {
			return err
		}
		if done {
			s.connectSub = 3
		} else {
			s.connectSteps++
		}
	case 3:
		rooms, corridors, err := s.builder.Finish()
		if err != nil {
			return err
		}
		s.result = &layout.Layout{
			SchemaVersion: layout.SchemaVersion,
			Width:         s.opts.Width,
			Height:        s.opts.Height,
			Seed:          s.opts.Seed,
			Rooms:         rooms,
			Corridors:     corridors,
		}
		s.advance(PhaseOptimize, &s.stats.ConnectTime)
	}
	return nil
}

func (s *Stepper) optimize() error {
	if s.opts.SkipOptimize {
		s.converged = true
		s.advance(PhaseValidate, &s.stats.OptimizeTime)
		return nil
	}
	res := optimize.Run(s.result, optimize.DefaultParams(s.opts.MaxIterations), s.opts.Logger)
	s.result = res.Layout
	s.converged = res.Converged
	s.iterations = res.Iterations
	s.advance(PhaseValidate, &s.stats.OptimizeTime)
	return nil
}

func (s *Stepper) validate() error {
	if err := s.result.Validate(); err != nil {
		return errors.WrapStage(errors.ErrCodeGeneration, errors.StageValidate, err,
			"generated layout failed validation (seed %d)", s.opts.Seed)
	}
	s.stats.RoomCount = len(s.result.Rooms)
	s.stats.CorridorCount = len(s.result.Corridors)
	s.stats.OptimizerIterations = s.iterations
	s.advance(PhaseDone, &s.stats.ValidateTime)
	return nil
}

// advance closes the current phase, recording its duration and
// emitting stage hooks, and opens the next one.
func (s *Stepper) advance(next Phase, bucket *time.Duration) {
	now := time.Now()
	*bucket = now.Sub(s.phaseStart)
	observability.Generation().OnStageComplete(context.Background(), string(s.phase), *bucket, nil)
	s.phase = next
	s.phaseStart = now
	if next != PhaseDone {
		observability.Generation().OnStageStart(context.Background(), string(next))
	}
}

// discard drops all partial state and latches the failure.
func (s *Stepper) discard(err error) {
	observability.Generation().OnStageComplete(context.Background(), string(s.phase), time.Since(s.phaseStart), err)
	s.rooms = nil
	s.builder = nil
	s.result = nil
	s.err = err
	s.phase = PhaseDone
}
