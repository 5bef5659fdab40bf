// Package rng provides the deterministic random source threaded through
// every generation stage.
//
// Determinism is a structural guarantee of the pipeline, not a convention:
// a Source is an explicit stateful object created once per generation
// request from the request seed and passed down the stage chain. Nothing
// in the core reads ambient randomness. The draw counter makes consumption
// observable, and Clone captures the exact generator state so tests can
// prove that re-running a stage from the same state reproduces its output.
package rng

import "math/rand/v2"

// streamKey separates roomforge PCG streams from other consumers of the
// same seed value. The constant is the 64-bit golden ratio increment.
const streamKey = 0x9e3779b97f4a7c15

// Source is a seeded deterministic random source. Two sources created
// with the same seed produce identical draw sequences on every platform.
//
// Source is not safe for concurrent use; each generation request owns
// exactly one.
type Source struct {
	pcg   *rand.PCG
	rand  *rand.Rand
	seed  uint64
	draws uint64
}

// New creates a Source seeded with seed.
func New(seed uint64) *Source {
	pcg := rand.NewPCG(seed, streamKey)
	return &Source{
		pcg:  pcg,
		rand: rand.New(pcg),
		seed: seed,
	}
}

// Seed returns the seed the source was created with.
func (s *Source) Seed() uint64 { return s.seed }

// Draws returns the number of values drawn so far.
func (s *Source) Draws() uint64 { return s.draws }

// IntN returns a uniform int in [0, n). It panics if n <= 0.
func (s *Source) IntN(n int) int {
	s.draws++
	return s.rand.IntN(n)
}

// Float64 returns a uniform float64 in [0, 1).
func (s *Source) Float64() float64 {
	s.draws++
	return s.rand.Float64()
}

// InRange returns a uniform float64 in [lo, hi). It consumes exactly one draw.
func (s *Source) InRange(lo, hi float64) float64 {
	return lo + (hi-lo)*s.Float64()
}

// Clone returns an independent Source that continues from the exact
// current generator state. Draws from the clone do not advance the
// original, which is what lets a stage be re-run reproducibly.
func (s *Source) Clone() *Source {
	state, err := s.pcg.MarshalBinary()
	if err != nil {
		// PCG marshaling cannot fail; restart from the seed if it ever does.
		return New(s.seed)
	}
	pcg := &rand.PCG{}
	if err := pcg.UnmarshalBinary(state); err != nil {
		return New(s.seed)
	}
	return &Source{
		pcg:   pcg,
		rand:  rand.New(pcg),
		seed:  s.seed,
		draws: s.draws,
	}
}
