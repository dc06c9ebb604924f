package ising

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"ising-mc/internal/core"
	"ising-mc/pkg/pcg"
)

// scriptedSource replays fixed draws and counts how many were consumed.
type scriptedSource struct {
	open   []float64
	closed []float64
	opens  int
	closes int
}

func (s *scriptedSource) OpenFloat64() float64 {
	v := s.open[s.opens]
	s.opens++
	return v
}

func (s *scriptedSource) Float64() float64 {
	v := s.closed[s.closes]
	s.closes++
	return v
}

// countingSource forwards to a PCG stream and counts draws.
type countingSource struct {
	rng   *pcg.RNG
	draws int
}

func (c *countingSource) OpenFloat64() float64 { c.draws++; return c.rng.OpenFloat64() }
func (c *countingSource) Float64() float64     { c.draws++; return c.rng.Float64() }

// forbiddenAcceptance fails the test if the table is consulted.
type forbiddenAcceptance struct{ t *testing.T }

func (f forbiddenAcceptance) Probability(k int) float64 {
	f.t.Fatalf("acceptance table consulted with k=%d", k)
	return 0
}

// recordingAcceptance remembers the indices it was asked for.
type recordingAcceptance struct {
	table AcceptanceTable
	seen  []int
}

func (r *recordingAcceptance) Probability(k int) float64 {
	r.seen = append(r.seen, k)
	return r.table.Probability(k)
}

func latticeFrom(t *testing.T, rows [][]core.Spin) *core.Lattice {
	t.Helper()
	lat, err := core.NewLattice(len(rows))
	require.NoError(t, err)
	for i, row := range rows {
		for j, s := range row {
			lat.Set(i, j, s)
		}
	}
	return lat
}

func checkerboard3(t *testing.T) *core.Lattice {
	return latticeFrom(t, [][]core.Spin{
		{1, -1, 1},
		{-1, 1, -1},
		{1, -1, 1},
	})
}

func TestAcceptanceTableValues(t *testing.T) {
	for _, beta := range []float64{0, 0.2, BetaCritical, 0.5, 1.3} {
		table, err := NewAcceptanceTable(beta)
		require.NoError(t, err)
		require.Equal(t, beta, table.Beta())
		for k := 1; k <= MaxAcceptanceIndex; k++ {
			want := math.Exp(-2 * beta * float64(k))
			require.InDelta(t, want, table.Probability(k), 1e-15, "beta=%v k=%d", beta, k)
			p := table.Probability(k)
			if p <= 0 || p > 1 {
				t.Fatalf("probability %v outside (0,1]", p)
			}
		}
	}
}

func TestAcceptanceTableRejectsBadBeta(t *testing.T) {
	for _, beta := range []float64{-0.1, math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := NewAcceptanceTable(beta)
		if !errors.Is(err, ErrInvalidBeta) {
			t.Fatalf("beta=%v err = %v, want ErrInvalidBeta", beta, err)
		}
	}
}

func TestAcceptanceTableHasNoZeroIndex(t *testing.T) {
	table, err := NewAcceptanceTable(0.5)
	require.NoError(t, err)
	require.Panics(t, func() { table.Probability(0) })
	require.Panics(t, func() { table.Probability(-1) })
	require.Panics(t, func() { table.Probability(5) })
}

func TestAcceptanceIndexMatchesBoltzmannFactor(t *testing.T) {
	beta := 0.37
	table, err := NewAcceptanceTable(beta)
	require.NoError(t, err)
	for _, dE := range []int{2, 4, 6, 8} {
		k := AcceptanceIndex(dE)
		require.Equal(t, dE/2, k)
		require.InDelta(t, math.Exp(-beta*float64(dE)), table.Probability(k), 1e-15, "dE=%d", dE)
	}
}

func TestEnergyDifferenceCheckerboardCenter(t *testing.T) {
	lat := checkerboard3(t)
	require.Equal(t, -4, lat.NeighborSum(1, 1))

	// Center +1 among four -1 neighbours: flipping it aligns the site.
	dE := EnergyDifference(lat, -1, 1, 1)
	require.Equal(t, -8, dE)

	// The reverse move: a spin aligned with all four neighbours. Flipping it
	// raises the energy by 8, which is table index 4 = 8/2. Under the literal
	// 2·trial·Σ form this configuration would give -8 and never reach the
	// table, so index 4 is only reachable through AcceptanceIndex(8).
	lat.Set(1, 1, core.Down)
	dE = EnergyDifference(lat, core.Up, 1, 1)
	require.Equal(t, 8, dE)
	require.Equal(t, 4, AcceptanceIndex(dE))
}

func TestEnergyDifferenceMatchesObservable(t *testing.T) {
	rng := pcg.New(11, 3)
	for _, l := range []int{1, 2, 3, 5, 8} {
		lat, err := core.NewLattice(l)
		require.NoError(t, err)
		lat.Randomize(rng)
		sites := float64(lat.Sites())
		for i := 0; i < l; i++ {
			for j := 0; j < l; j++ {
				before := Energy(lat) * sites
				trial := -lat.Spin(i, j)
				dE := EnergyDifference(lat, trial, i, j)
				if dE%2 != 0 || dE < -8 || dE > 8 {
					t.Fatalf("dE=%d not an even value in [-8,8]", dE)
				}
				lat.Flip(i, j)
				after := Energy(lat) * sites
				lat.Flip(i, j)
				if l > 2 {
					require.InDelta(t, after-before, float64(dE), 1e-9, "L=%d site (%d,%d)", l, i, j)
				}
			}
		}
	}
}

func TestSingleUpdateGateSkipsWithoutFurtherDraws(t *testing.T) {
	for _, eps := range []float64{0.5, 0.75, 0.999} {
		lat := checkerboard3(t)
		before := append([]core.Spin(nil), lat.Spins()...)
		src := &scriptedSource{open: []float64{eps}}
		flipped := SingleUpdate(lat, src, forbiddenAcceptance{t}, 1, 1)
		require.False(t, flipped)
		require.Equal(t, 1, src.opens)
		require.Equal(t, 0, src.closes)
		require.Equal(t, before, lat.Spins())
	}
}

func TestDownhillMoveNeverConsultsTable(t *testing.T) {
	lat := checkerboard3(t)
	src := &scriptedSource{open: []float64{0.1}}
	flipped := SingleUpdate(lat, src, forbiddenAcceptance{t}, 1, 1)
	require.True(t, flipped)
	require.Equal(t, core.Down, lat.Spin(1, 1))
	require.Equal(t, 1, src.opens)
	require.Equal(t, 0, src.closes, "no second draw for dE <= 0")
}

func TestZeroCostMoveIsAccepted(t *testing.T) {
	// Two up and two down neighbours: flipping costs nothing.
	lat := latticeFrom(t, [][]core.Spin{
		{1, 1, 1},
		{-1, 1, 1},
		{1, -1, 1},
	})
	require.Equal(t, 0, EnergyDifference(lat, core.Down, 1, 1))
	src := &scriptedSource{open: []float64{0.25}}
	require.True(t, SingleUpdate(lat, src, forbiddenAcceptance{t}, 1, 1))
	require.Equal(t, 0, src.closes)
}

func TestUphillMoveUsesReducedIndex(t *testing.T) {
	table, err := NewAcceptanceTable(0.5)
	require.NoError(t, err)
	p := table.Probability(4)

	cases := []struct {
		name string
		w    float64
		flip bool
	}{
		{"below", p / 2, true},
		{"equal", p, true},
		{"above", math.Nextafter(p, 1), false},
		{"far above", 0.9, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			lat, _ := core.NewLattice(3)
			acc := &recordingAcceptance{table: table}
			src := &scriptedSource{open: []float64{0.2}, closed: []float64{tc.w}}
			got := SingleUpdate(lat, src, acc, 0, 0)
			require.Equal(t, tc.flip, got)
			require.Equal(t, []int{4}, acc.seen)
			require.Equal(t, 1, src.closes)
			if tc.flip {
				require.Equal(t, core.Down, lat.Spin(0, 0))
			} else {
				require.Equal(t, core.Up, lat.Spin(0, 0))
			}
		})
	}
}

func TestSingleUpdateTouchesOnlyItsSite(t *testing.T) {
	lat := checkerboard3(t)
	before := append([]core.Spin(nil), lat.Spins()...)
	src := &scriptedSource{open: []float64{0.01}}
	require.True(t, SingleUpdate(lat, src, forbiddenAcceptance{t}, 1, 1))
	for idx, s := range lat.Spins() {
		if idx == lat.Index(1, 1) {
			continue
		}
		require.Equal(t, before[idx], s, "site %d changed", idx)
	}
}

func TestSweepConsumesAtMostTwoDrawsPerSite(t *testing.T) {
	table, _ := NewAcceptanceTable(0.3)
	lat, _ := core.NewLattice(10)
	rng := pcg.New(5, 9)
	lat.Randomize(rng)
	src := &countingSource{rng: rng}
	for n := 0; n < 20; n++ {
		before := src.draws
		Sweep(lat, src, table)
		used := src.draws - before
		if used < lat.Sites() || used > 2*lat.Sites() {
			t.Fatalf("sweep %d used %d draws for %d sites", n, used, lat.Sites())
		}
	}
}

func TestSweepIsReproducible(t *testing.T) {
	table, err := NewAcceptanceTable(0.5)
	require.NoError(t, err)

	run := func() ([]core.Spin, int, int) {
		lat, _ := core.NewLattice(3)
		src := &countingSource{rng: pcg.New(42, 54)}
		accepted := Sweep(lat, src, table)
		return append([]core.Spin(nil), lat.Spins()...), accepted, src.draws
	}
	a, accA, drawsA := run()
	b, accB, drawsB := run()
	require.Equal(t, a, b)
	require.Equal(t, accA, accB)
	require.Equal(t, drawsA, drawsB)

	// One gated proposal, rejected against exp(-4).
	require.Equal(t, []core.Spin{1, 1, 1, 1, 1, 1, 1, 1, 1}, a)
	require.Equal(t, 0, accA)
	require.Equal(t, 10, drawsA)
}

func TestSweepPinnedTrajectory(t *testing.T) {
	rng := pcg.New(4, 54)
	lat, _ := core.NewLattice(4)
	lat.Randomize(rng)
	require.Equal(t, []core.Spin{-1, -1, 1, 1, -1, -1, 1, 1, -1, -1, 1, 1, 1, 1, -1, 1}, lat.Spins())

	table, _ := NewAcceptanceTable(0.44)
	src := &countingSource{rng: rng}
	for n := 0; n < 10; n++ {
		Sweep(lat, src, table)
	}
	require.Equal(t, []core.Spin{1, -1, 1, 1, 1, -1, -1, 1, 1, -1, -1, 1, 1, -1, -1, 1}, lat.Spins())
	require.Equal(t, 204, src.draws)
	require.InDelta(t, 0.125, Magnetization(lat), 1e-12)
	require.InDelta(t, -0.75, Energy(lat), 1e-12)
}

func TestColdOrderedLatticeStaysOrdered(t *testing.T) {
	table, _ := NewAcceptanceTable(1.0)
	lat, _ := core.NewLattice(16)
	rng := pcg.New(7, 1)
	for n := 0; n < 200; n++ {
		Sweep(lat, rng, table)
	}
	require.Equal(t, 1.0, Magnetization(lat))
	require.Equal(t, -2.0, Energy(lat))
}

func TestInfiniteTemperatureDisorders(t *testing.T) {
	table, _ := NewAcceptanceTable(0)
	lat, _ := core.NewLattice(32)
	rng := pcg.New(3, 3)
	for n := 0; n < 100; n++ {
		Sweep(lat, rng, table)
	}
	require.Less(t, math.Abs(Magnetization(lat)), 0.2)
	require.Less(t, math.Abs(Energy(lat)), 0.3)
}
