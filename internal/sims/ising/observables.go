package ising

import "ising-mc/internal/core"

// Sample is one periodic measurement of a running lattice.
type Sample struct {
	Step          int64
	Magnetization float64
	Energy        float64
}

// Magnetization returns the mean spin, always in [-1, 1].
func Magnetization(lat *core.Lattice) float64 {
	sum := 0
	for _, s := range lat.Spins() {
		sum += int(s)
	}
	return float64(sum) / float64(lat.Sites())
}

// Energy returns the nearest-neighbour energy per site, always in [-2, 2].
// Each bond is counted once through the right and down neighbours.
func Energy(lat *core.Lattice) float64 {
	l := lat.Size()
	spins := lat.Spins()
	sum := 0
	for i := 0; i < l; i++ {
		row := i * l
		down := ((i + 1) % l) * l
		for j := 0; j < l; j++ {
			s := int(spins[row+j])
			right := int(spins[row+(j+1)%l])
			below := int(spins[down+j])
			sum += s * (right + below)
		}
	}
	return -float64(sum) / float64(lat.Sites())
}

// Measure captures the observables of lat at the given step.
func Measure(step int64, lat *core.Lattice) Sample {
	return Sample{Step: step, Magnetization: Magnetization(lat), Energy: Energy(lat)}
}

// UnsatisfiedBonds writes, for every site, how many of its four neighbours
// point the other way (0..4). dst is reused when it has room.
func UnsatisfiedBonds(lat *core.Lattice, dst []uint8) []uint8 {
	n := lat.Sites()
	if cap(dst) < n {
		dst = make([]uint8, n)
	}
	dst = dst[:n]
	l := lat.Size()
	spins := lat.Spins()
	for i := 0; i < l; i++ {
		for j := 0; j < l; j++ {
			s := int(spins[i*l+j])
			// s·Σ ranges over -4..4 in steps of 2; anti-aligned count is (4-s·Σ)/2.
			dst[i*l+j] = uint8((4 - s*lat.NeighborSum(i, j)) / 2)
		}
	}
	return dst
}
