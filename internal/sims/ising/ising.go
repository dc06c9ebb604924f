package ising

import (
	"fmt"

	"ising-mc/internal/core"
	"ising-mc/pkg/pcg"
)

// Model is one (L, beta) Metropolis simulation. It owns its lattice and its
// random stream; nothing in it is safe for concurrent use.
type Model struct {
	cfg   Config
	lat   *core.Lattice
	rng   *pcg.RNG
	table AcceptanceTable

	steps    int64
	visits   int64
	accepted int64

	display []uint8
	walls   []uint8
}

// New validates cfg and allocates the lattice. The lattice starts all up;
// call Reset or Seed before stepping.
func New(cfg Config) (*Model, error) {
	if !cfg.Schedule.Valid() {
		return nil, fmt.Errorf("ising: unknown schedule %q", cfg.Schedule)
	}
	table, err := NewAcceptanceTable(cfg.Beta)
	if err != nil {
		return nil, err
	}
	lat, err := core.NewLattice(cfg.L)
	if err != nil {
		return nil, fmt.Errorf("create lattice L=%d: %w", cfg.L, err)
	}
	m := &Model{
		cfg:     cfg,
		lat:     lat,
		rng:     &pcg.RNG{},
		table:   table,
		display: make([]uint8, lat.Sites()),
	}
	m.rebuildDisplay()
	return m, nil
}

// Name returns the simulation identifier.
func (m *Model) Name() string {
	if m.cfg.Schedule == ScheduleSequential {
		return "ising-sequential"
	}
	return "ising"
}

// Size reports the grid dimensions.
func (m *Model) Size() core.Size { return core.Size{W: m.cfg.L, H: m.cfg.L} }

// Cells exposes the display buffer: 1 for up spins, 0 for down spins.
func (m *Model) Cells() []uint8 { return m.display }

// Config returns the configuration the model was built with, including the
// current beta.
func (m *Model) Config() Config { return m.cfg }

// DomainWalls returns the anti-aligned neighbour count of every site. The
// slice is reused by the next call.
func (m *Model) DomainWalls() []uint8 {
	m.walls = UnsatisfiedBonds(m.lat, m.walls)
	return m.walls
}

// Lattice exposes the spin lattice.
func (m *Model) Lattice() *core.Lattice { return m.lat }

// Reset reseeds the random stream and randomizes the lattice. A zero seed
// falls back to the configured seed.
func (m *Model) Reset(seed int64) {
	effective := seed
	if effective == 0 {
		effective = m.cfg.Seed
	}
	m.Seed(uint64(effective), m.cfg.Sequence)
}

// Seed reseeds the random stream with an explicit (seed, sequence) pair,
// randomizes the lattice and clears the counters.
func (m *Model) Seed(seed, seq uint64) {
	m.rng.Seed(seed, seq)
	m.lat.Randomize(m.rng)
	m.steps = 0
	m.visits = 0
	m.accepted = 0
	m.rebuildDisplay()
}

// Step advances the simulation by one step of the configured schedule.
func (m *Model) Step() {
	m.advance()
	m.rebuildDisplay()
}

// Advance runs n steps without refreshing the display buffer.
func (m *Model) Advance(n int64) {
	for ; n > 0; n-- {
		m.advance()
	}
}

func (m *Model) advance() {
	switch m.cfg.Schedule {
	case ScheduleSequential:
		site := int(m.steps % int64(m.lat.Sites()))
		l := m.lat.Size()
		if SingleUpdate(m.lat, m.rng, m.table, site/l, site%l) {
			m.accepted++
		}
		m.visits++
	default:
		m.accepted += int64(Sweep(m.lat, m.rng, m.table))
		m.visits += int64(m.lat.Sites())
	}
	m.steps++
}

// Steps returns the number of steps taken since the last reseed.
func (m *Model) Steps() int64 { return m.steps }

// Magnetization returns the current magnetization per site.
func (m *Model) Magnetization() float64 { return Magnetization(m.lat) }

// Energy returns the current energy per site.
func (m *Model) Energy() float64 { return Energy(m.lat) }

// Sample measures the lattice at the current step.
func (m *Model) Sample() Sample { return Measure(m.steps, m.lat) }

// AcceptanceRate returns accepted flips per site visit since the last reseed.
func (m *Model) AcceptanceRate() float64 {
	if m.visits == 0 {
		return 0
	}
	return float64(m.accepted) / float64(m.visits)
}

// Beta returns the current inverse temperature.
func (m *Model) Beta() float64 { return m.cfg.Beta }

// SetBeta rebuilds the acceptance table for a new inverse temperature. The
// lattice and random stream are left untouched.
func (m *Model) SetBeta(beta float64) error {
	table, err := NewAcceptanceTable(beta)
	if err != nil {
		return err
	}
	m.table = table
	m.cfg.Beta = beta
	return nil
}

// Close releases the lattice. Further steps panic.
func (m *Model) Close() {
	m.lat.Release()
}

func (m *Model) rebuildDisplay() {
	for i, s := range m.lat.Spins() {
		if s == core.Up {
			m.display[i] = 1
		} else {
			m.display[i] = 0
		}
	}
}

func init() {
	core.Register("ising", func(cfg map[string]string) core.Sim {
		c := FromMap(cfg)
		c.Schedule = ScheduleSweep
		return mustNew(c)
	})
	core.Register("ising-sequential", func(cfg map[string]string) core.Sim {
		c := FromMap(cfg)
		c.Schedule = ScheduleSequential
		return mustNew(c)
	})
}

func mustNew(c Config) *Model {
	m, err := New(c)
	if err != nil {
		panic(err)
	}
	return m
}
