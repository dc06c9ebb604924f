package pcg

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReferenceStream(t *testing.T) {
	rng := New(42, 54)
	want := []uint32{0xa15c02b7, 0x7b47f409, 0xba1d3330, 0x83d2f293, 0xbfa4784b, 0xcbed606e}
	for i, w := range want {
		if got := rng.Uint32(); got != w {
			t.Fatalf("draw %d = %#08x, want %#08x", i, got, w)
		}
	}
}

func TestSeedIsReproducible(t *testing.T) {
	a := New(42, 54)
	b := &RNG{}
	for i := 0; i < 100; i++ {
		a.Uint32()
	}
	a.Seed(42, 54)
	b.Seed(42, 54)
	for i := 0; i < 1000; i++ {
		require.Equal(t, a.Uint32(), b.Uint32(), "draw %d", i)
	}
}

func TestSequencesDiverge(t *testing.T) {
	a := New(42, 54)
	b := New(42, 55)
	same := 0
	for i := 0; i < 64; i++ {
		if a.Uint32() == b.Uint32() {
			same++
		}
	}
	require.Less(t, same, 4, "streams with different selectors should not track each other")
}

func TestIncrementIsOdd(t *testing.T) {
	for _, seq := range []uint64{0, 1, 2, 54, 1 << 63, ^uint64(0)} {
		r := New(7, seq)
		require.Equal(t, uint64(1), r.inc&1, "seq %d", seq)
	}
}

func TestRanges(t *testing.T) {
	const n = 200000
	rng := New(42, 54)

	for i := 0; i < n; i++ {
		x := rng.Float64()
		if x < 0 || x >= 1 {
			t.Fatalf("Float64 out of [0,1): %v", x)
		}
	}
	for i := 0; i < n; i++ {
		x := rng.OpenFloat64()
		if x <= 0 || x >= 1 {
			t.Fatalf("OpenFloat64 out of (0,1): %v", x)
		}
	}
	minInt, maxInt := MaxInt, 0
	for i := 0; i < n; i++ {
		v := rng.Int()
		if v < 0 || v > MaxInt {
			t.Fatalf("Int out of [0,%d]: %d", MaxInt, v)
		}
		minInt = min(minInt, v)
		maxInt = max(maxInt, v)
	}
	require.Less(t, minInt, MaxInt/100)
	require.Greater(t, maxInt, MaxInt-MaxInt/100)
}

func TestFloatConversionsAtExtremes(t *testing.T) {
	require.Equal(t, 0.0, float64(uint32(0))/twoPow32)
	require.Less(t, float64(^uint32(0))/twoPow32, 1.0)
	require.Greater(t, (float64(uint32(0))+0.5)/twoPow32, 0.0)
	require.Less(t, (float64(^uint32(0))+0.5)/twoPow32, 1.0)
}

func TestUnseededPanics(t *testing.T) {
	var rng RNG
	require.False(t, rng.Seeded())
	require.PanicsWithValue(t, ErrUnseeded, func() { rng.Uint32() })
	require.PanicsWithValue(t, ErrUnseeded, func() { rng.Float64() })
}

func TestMeanIsCentered(t *testing.T) {
	const n = 100000
	rng := New(1, 1)
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += rng.Float64()
	}
	mean := sum / n
	require.InDelta(t, 0.5, mean, 0.01)
}
