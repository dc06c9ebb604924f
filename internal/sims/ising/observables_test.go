package ising

import (
	"testing"

	"ising-mc/internal/core"
	"ising-mc/pkg/pcg"
)

func TestObservablesOrderedStates(t *testing.T) {
	lat, _ := core.NewLattice(6)
	if got := Magnetization(lat); got != 1 {
		t.Fatalf("all-up magnetization = %v, want 1", got)
	}
	if got := Energy(lat); got != -2 {
		t.Fatalf("all-up energy = %v, want -2", got)
	}

	lat.Fill(core.Down)
	if got := Magnetization(lat); got != -1 {
		t.Fatalf("all-down magnetization = %v, want -1", got)
	}
	if got := Energy(lat); got != -2 {
		t.Fatalf("all-down energy = %v, want -2", got)
	}

	for i := 0; i < 6; i++ {
		for j := 0; j < 6; j++ {
			if (i+j)%2 == 0 {
				lat.Set(i, j, core.Up)
			} else {
				lat.Set(i, j, core.Down)
			}
		}
	}
	if got := Magnetization(lat); got != 0 {
		t.Fatalf("checkerboard magnetization = %v, want 0", got)
	}
	if got := Energy(lat); got != 2 {
		t.Fatalf("checkerboard energy = %v, want 2", got)
	}
}

func TestObservablesSingleSite(t *testing.T) {
	lat, _ := core.NewLattice(1)
	lat.Set(0, 0, core.Down)
	if got := Magnetization(lat); got != -1 {
		t.Fatalf("magnetization = %v, want -1", got)
	}
	if got := Energy(lat); got != -2 {
		t.Fatalf("energy = %v, want -2 (self bonds)", got)
	}
}

func TestObservablesStayInRange(t *testing.T) {
	rng := pcg.New(4, 54)
	for l := 1; l <= 25; l++ {
		lat, err := core.NewLattice(l)
		if err != nil {
			t.Fatal(err)
		}
		lat.Randomize(rng)
		table, _ := NewAcceptanceTable(0.5)
		for step := 0; step < 20; step++ {
			m, e := Magnetization(lat), Energy(lat)
			if m < -1 || m > 1 {
				t.Fatalf("L=%d step %d magnetization %v outside [-1,1]", l, step, m)
			}
			if e < -2 || e > 2 {
				t.Fatalf("L=%d step %d energy %v outside [-2,2]", l, step, e)
			}
			Sweep(lat, rng, table)
		}
	}
}

func TestMeasure(t *testing.T) {
	rng := pcg.New(4, 54)
	lat, _ := core.NewLattice(4)
	lat.Randomize(rng)
	s := Measure(17, lat)
	if s.Step != 17 {
		t.Fatalf("step = %d", s.Step)
	}
	if s.Magnetization != 0.125 || s.Energy != -0.25 {
		t.Fatalf("sample = %+v, want m=0.125 e=-0.25", s)
	}
}

func TestUnsatisfiedBonds(t *testing.T) {
	lat, _ := core.NewLattice(3)
	walls := UnsatisfiedBonds(lat, nil)
	for idx, w := range walls {
		if w != 0 {
			t.Fatalf("ordered lattice site %d has %d walls", idx, w)
		}
	}

	lat.Set(1, 1, core.Down)
	walls = UnsatisfiedBonds(lat, walls)
	want := []uint8{
		0, 1, 0,
		1, 4, 1,
		0, 1, 0,
	}
	for idx := range want {
		if walls[idx] != want[idx] {
			t.Fatalf("walls = %v, want %v", walls, want)
		}
	}

	// Total anti-aligned bonds relate to the energy: E·N = 2·(#walls) - 2N.
	rng := pcg.New(8, 8)
	lat, _ = core.NewLattice(7)
	lat.Randomize(rng)
	total := 0
	for _, w := range UnsatisfiedBonds(lat, nil) {
		total += int(w)
	}
	bonds := total / 2
	n := float64(lat.Sites())
	if got, want := Energy(lat)*n, float64(2*bonds)-2*n; got != want {
		t.Fatalf("energy·N = %v, want %v", got, want)
	}
}
