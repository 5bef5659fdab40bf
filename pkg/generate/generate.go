// Package generate provides the floor-plan generation pipeline.
//
// This package implements the complete partition → classify → connect →
// optimize → validate pipeline used by the CLI and the API. Centralizing
// the stage order and option handling here keeps every entry point
// behaving identically.
//
// # Architecture
//
// The pipeline consists of five stages:
//
//  1. Partition: recursive space partition of the map rectangle into rooms
//  2. Classify: rule-based room type assignment
//  3. Connect: corridor routing, connectivity validation and repair
//  4. Optimize: force-based position refinement with grid snapping
//  5. Validate: structural invariant check on the finished layout
//
// All stages draw from one seeded source, so a request is fully
// determined by its Options.
//
// # Usage
//
// One-shot, with caching:
//
//	runner := generate.NewRunner(cache, nil, logger)
//	result, err := runner.Execute(ctx, generate.Options{Seed: 42})
//
// Incremental, for hosts that need to interleave work:
//
//	stepper, err := generate.NewStepper(opts)
//	for {
//	    done, err := stepper.Step(ctx)
//	    ...
//	}
//	layout, converged, err := stepper.Result()
package generate

import (
	"context"
	"time"

	"github.com/roomforge/roomforge/pkg/layout"
)

// Stats contains generation timing and size information.
type Stats struct {
	PartitionTime time.Duration `json:"partition_time"`
	ClassifyTime  time.Duration `json:"classify_time"`
	ConnectTime   time.Duration `json:"connect_time"`
	OptimizeTime  time.Duration `json:"optimize_time"`
	ValidateTime  time.Duration `json:"validate_time"`
	TotalTime     time.Duration `json:"total_time"`

	RoomCount           int `json:"room_count"`
	CorridorCount       int `json:"corridor_count"`
	OptimizerIterations int `json:"optimizer_iterations"`
}

// Generate runs the whole pipeline without caching. Convenience for
// callers that do not need a Runner.
func Generate(ctx context.Context, opts Options) (*layout.Layout, bool, error) {
	stepper, err := NewStepper(opts)
	if err != nil {
		return nil, false, err
	}
	for {
		done, err := stepper.Step(ctx)
		if err != nil {
			return nil, false, err
		}
		if done {
			break
		}
	}
	return stepper.Result()
}
