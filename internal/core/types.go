package core

import "sort"

// Size describes the dimensions of a rendered simulation grid.
type Size struct {
	W int
	H int
}

// Sim is the contract the viewer drives: reseed, advance one step, and expose
// a display buffer with one byte per cell.
type Sim interface {
	Name() string
	Size() Size
	Reset(seed int64)
	Step()
	Cells() []uint8
}

// Observer is implemented by sims that report per-site observables.
type Observer interface {
	Steps() int64
	Magnetization() float64
	Energy() float64
}

// Factory constructs a Sim using an optional flag-style configuration map.
type Factory func(cfg map[string]string) Sim

var sims = map[string]Factory{}

// Register adds a simulation factory under the provided name.
func Register(name string, f Factory) {
	if name == "" || f == nil {
		return
	}
	sims[name] = f
}

// Sims exposes the registry of available simulation factories.
func Sims() map[string]Factory {
	return sims
}

// SimNames returns the registered names in sorted order.
func SimNames() []string {
	names := make([]string, 0, len(sims))
	for name := range sims {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
