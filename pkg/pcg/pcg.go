// Package pcg implements the 32-bit PCG generator (XSH-RR output) used to
// drive the Monte Carlo core. Identical (seed, sequence) pairs reproduce
// bit-identical streams on every platform.
package pcg

import (
	"errors"
	"math/bits"
)

// ErrUnseeded is the panic value raised when drawing from an RNG that was never seeded.
var ErrUnseeded = errors.New("pcg: generator not seeded")

const (
	multiplier = 6364136223846793005

	// MaxInt is the inclusive upper bound of Int.
	MaxInt = 1<<31 - 1

	twoPow32 = 4294967296.0
)

// RNG is a deterministic PCG32 stream. The zero value is unusable until Seed
// is called. An RNG must not be shared between goroutines; give each
// simulation its own stream with a distinct sequence selector instead.
type RNG struct {
	state  uint64
	inc    uint64
	seeded bool
}

// New returns an RNG seeded with the given state and sequence selector.
func New(seed, seq uint64) *RNG {
	r := &RNG{}
	r.Seed(seed, seq)
	return r
}

// Seed resets the generator. Different sequence selectors yield independent
// streams for the same seed.
func (r *RNG) Seed(seed, seq uint64) {
	r.state = 0
	r.inc = seq<<1 | 1
	r.seeded = true
	r.Uint32()
	r.state += seed
	r.Uint32()
}

// Seeded reports whether Seed has been called.
func (r *RNG) Seeded() bool { return r != nil && r.seeded }

// Uint32 advances the state and returns the next 32 output bits.
func (r *RNG) Uint32() uint32 {
	if !r.seeded {
		panic(ErrUnseeded)
	}
	old := r.state
	r.state = old*multiplier + r.inc

	// Output permutation works on the pre-update state.
	xorshifted := uint32(((old >> 18) ^ old) >> 27)
	rot := int(old >> 59)
	return bits.RotateLeft32(xorshifted, -rot)
}

// Float64 returns a value in [0, 1). Zero is possible, one is not.
func (r *RNG) Float64() float64 {
	return float64(r.Uint32()) / twoPow32
}

// OpenFloat64 returns a value in (0, 1), never exactly 0 or 1.
func (r *RNG) OpenFloat64() float64 {
	return (float64(r.Uint32()) + 0.5) / twoPow32
}

// Int returns a value in [0, MaxInt].
func (r *RNG) Int() int {
	return int(r.Uint32() % (MaxInt + 1))
}
