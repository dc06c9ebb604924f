package core

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidDimension is returned when a lattice side length is not positive.
	ErrInvalidDimension = errors.New("core: invalid lattice dimension")
	// ErrAllocation is returned when the requested lattice cannot be allocated.
	ErrAllocation = errors.New("core: lattice allocation failed")
	// ErrReleased is the panic value raised when a released lattice is used.
	ErrReleased = errors.New("core: lattice released")
	// ErrOutOfRange wraps the panic raised for coordinates outside [0, L).
	ErrOutOfRange = errors.New("core: coordinates out of range")
)

// MaxSide bounds the lattice side so L*L cells stay addressable.
const MaxSide = 1 << 15

// Spin is a single Ising spin, always +1 or -1.
type Spin int8

const (
	Up   Spin = 1
	Down Spin = -1
)

// Direction selects one of the four nearest neighbours.
type Direction uint8

// North is row i-1 and West is column j-1, both wrapping at the edges.
const (
	North Direction = iota
	South
	West
	East
)

// IntSource yields non-negative integers; the parity of each draw decides a spin.
type IntSource interface {
	Int() int
}

// Lattice stores an L×L spin grid in row-major order with periodic boundaries.
type Lattice struct {
	l     int
	spins []Spin
}

// NewLattice allocates an L×L lattice with every spin up.
func NewLattice(l int) (*Lattice, error) {
	if l <= 0 {
		return nil, ErrInvalidDimension
	}
	if l > MaxSide {
		return nil, ErrAllocation
	}
	lat := &Lattice{l: l, spins: make([]Spin, l*l)}
	lat.Fill(Up)
	return lat, nil
}

// Size returns the side length L.
func (g *Lattice) Size() int { return g.l }

// Sites returns the number of cells, L².
func (g *Lattice) Sites() int { return g.l * g.l }

// Spins exposes the backing slice so callers can read values directly.
func (g *Lattice) Spins() []Spin {
	g.mustLive()
	return g.spins
}

// Index returns the linear slice index for row i and column j. It panics
// unless both coordinates are in [0, L).
func (g *Lattice) Index(i, j int) int {
	if uint(i) >= uint(g.l) || uint(j) >= uint(g.l) {
		panic(fmt.Errorf("%w: (%d, %d) on L=%d", ErrOutOfRange, i, j, g.l))
	}
	return i*g.l + j
}

// Spin returns the value at row i, column j.
func (g *Lattice) Spin(i, j int) Spin {
	g.mustLive()
	return g.spins[g.Index(i, j)]
}

// Set stores s at row i, column j. Values other than Up are stored as Down.
func (g *Lattice) Set(i, j int, s Spin) {
	g.mustLive()
	if s != Up {
		s = Down
	}
	g.spins[g.Index(i, j)] = s
}

// Flip negates the spin at row i, column j.
func (g *Lattice) Flip(i, j int) {
	g.mustLive()
	idx := g.Index(i, j)
	g.spins[idx] = -g.spins[idx]
}

// Fill sets every cell to s.
func (g *Lattice) Fill(s Spin) {
	g.mustLive()
	if s != Up {
		s = Down
	}
	for i := range g.spins {
		g.spins[i] = s
	}
}

// Randomize draws one integer per cell in row-major order; even draws become
// Up and odd draws Down.
func (g *Lattice) Randomize(src IntSource) {
	g.mustLive()
	for i := range g.spins {
		if src.Int()%2 == 0 {
			g.spins[i] = Up
		} else {
			g.spins[i] = Down
		}
	}
}

// Wrap applies toroidal wrapping to the provided coordinates.
func (g *Lattice) Wrap(i, j int) (int, int) {
	i = (i%g.l + g.l) % g.l
	j = (j%g.l + g.l) % g.l
	return i, j
}

// Neighbor returns the spin one step from (i, j) in direction d.
func (g *Lattice) Neighbor(i, j int, d Direction) Spin {
	g.mustLive()
	g.Index(i, j)
	l := g.l
	switch d {
	case North:
		i = (i - 1 + l) % l
	case South:
		i = (i + 1) % l
	case West:
		j = (j - 1 + l) % l
	case East:
		j = (j + 1) % l
	default:
		panic(fmt.Sprintf("core: unknown direction %d", d))
	}
	return g.spins[i*l+j]
}

// NeighborSum returns the sum of the four periodic neighbours of (i, j).
func (g *Lattice) NeighborSum(i, j int) int {
	g.mustLive()
	g.Index(i, j)
	l := g.l
	up := g.spins[((i-1+l)%l)*l+j]
	down := g.spins[((i+1)%l)*l+j]
	left := g.spins[i*l+(j-1+l)%l]
	right := g.spins[i*l+(j+1)%l]
	return int(up) + int(down) + int(left) + int(right)
}

// Clone returns an independent copy of the lattice.
func (g *Lattice) Clone() *Lattice {
	g.mustLive()
	return &Lattice{l: g.l, spins: append([]Spin(nil), g.spins...)}
}

// Release drops the spin buffer. Calling it again is a no-op.
func (g *Lattice) Release() {
	if g == nil {
		return
	}
	g.spins = nil
}

// Released reports whether Release has been called.
func (g *Lattice) Released() bool { return g == nil || g.spins == nil }

func (g *Lattice) mustLive() {
	if g.Released() {
		panic(ErrReleased)
	}
}
