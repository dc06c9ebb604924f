package ising

import (
	"errors"
	"fmt"
	"math"

	"ising-mc/internal/core"
)

// ErrInvalidBeta is returned for negative, NaN or infinite inverse temperatures.
var ErrInvalidBeta = errors.New("ising: invalid beta")

// MaxAcceptanceIndex is the largest reduced energy change on a square lattice.
const MaxAcceptanceIndex = 4

// Source supplies the uniform draws consumed by a Metropolis trial.
type Source interface {
	// Float64 returns a value in [0, 1).
	Float64() float64
	// OpenFloat64 returns a value in (0, 1).
	OpenFloat64() float64
}

// Acceptance maps a reduced energy change k in 1..4 to an acceptance probability.
type Acceptance interface {
	Probability(k int) float64
}

// AcceptanceTable holds exp(-2·beta·k) for k = 1..4. Slot 0 of the backing
// array is k=1; there is no entry for k=0.
type AcceptanceTable struct {
	beta float64
	p    [MaxAcceptanceIndex]float64
}

// NewAcceptanceTable precomputes the Metropolis acceptance probabilities.
func NewAcceptanceTable(beta float64) (AcceptanceTable, error) {
	if math.IsNaN(beta) || math.IsInf(beta, 0) || beta < 0 {
		return AcceptanceTable{}, fmt.Errorf("%w: %v", ErrInvalidBeta, beta)
	}
	t := AcceptanceTable{beta: beta}
	for k := 1; k <= MaxAcceptanceIndex; k++ {
		t.p[k-1] = math.Exp(-2 * beta * float64(k))
	}
	return t, nil
}

// Beta returns the inverse temperature the table was built for.
func (t AcceptanceTable) Beta() float64 { return t.beta }

// Probability returns exp(-2·beta·k). It panics for k outside 1..4.
func (t AcceptanceTable) Probability(k int) float64 {
	if k < 1 || k > MaxAcceptanceIndex {
		panic(fmt.Sprintf("ising: acceptance index %d out of range 1..%d", k, MaxAcceptanceIndex))
	}
	return t.p[k-1]
}

// EnergyDifference returns E' - E under H = -Σ s·s' for replacing the spin at
// (i, j) with trial = -s: 2·s·(sum of the four periodic neighbours), which is
// -2·trial·sum. The result is even and in [-8, 8].
func EnergyDifference(lat *core.Lattice, trial core.Spin, i, j int) int {
	return -2 * int(trial) * lat.NeighborSum(i, j)
}

// AcceptanceIndex maps a positive energy change (2, 4, 6 or 8) to its table
// index (1..4). Both table construction and lookup use this halving.
func AcceptanceIndex(dE int) int {
	return dE / 2
}

// SingleUpdate performs one Metropolis visit at (i, j) and reports whether the
// spin was flipped. A visit consumes one gating draw; half of the visits stop
// there. A proposed flip that does not raise the energy is accepted without a
// further draw; otherwise one more draw decides against the table.
func SingleUpdate(lat *core.Lattice, src Source, acc Acceptance, i, j int) bool {
	if src.OpenFloat64() >= 0.5 {
		return false
	}
	trial := -lat.Spin(i, j)
	dE := EnergyDifference(lat, trial, i, j)
	if dE <= 0 {
		lat.Set(i, j, trial)
		return true
	}
	w := src.Float64()
	if acc.Probability(AcceptanceIndex(dE)) >= w {
		lat.Set(i, j, trial)
		return true
	}
	return false
}

// Sweep visits every site once in row-major order and returns the number of
// accepted flips.
func Sweep(lat *core.Lattice, src Source, acc Acceptance) int {
	l := lat.Size()
	accepted := 0
	for i := 0; i < l; i++ {
		for j := 0; j < l; j++ {
			if SingleUpdate(lat, src, acc, i, j) {
				accepted++
			}
		}
	}
	return accepted
}
