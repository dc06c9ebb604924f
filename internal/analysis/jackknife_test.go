package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJackknifeOfLinearMatchesBlocking(t *testing.T) {
	data := []float64{0.3, -0.1, 0.8, 0.2, 0.5, -0.4, 0.9, 0.1, 0.0, 0.6, -0.2, 0.7}
	for _, k := range []int{2, 3, 4, 6, 12} {
		jk, err := Jackknife(data, k, []Func{Identity}, func(v []float64) float64 { return v[0] })
		require.NoError(t, err)
		bl, err := Blocking(data, k, Identity)
		require.NoError(t, err)
		require.InDelta(t, bl.Mean, jk.Mean, 1e-12, "k=%d", k)
		require.InDelta(t, bl.Err, jk.Err, 1e-12, "k=%d", k)
	}
}

func TestJackknifeBlockEstimates(t *testing.T) {
	// Blocks of two: means 1.5, 3.5, 5.5. Leaving one out gives 4.5, 3.5, 2.5;
	// squared: 20.25, 12.25, 6.25.
	data := []float64{1, 2, 3, 4, 5, 6}
	est, err := Jackknife(data, 3, []Func{Identity}, func(v []float64) float64 { return v[0] * v[0] })
	require.NoError(t, err)
	mean := (20.25 + 12.25 + 6.25) / 3
	ss := math.Pow(20.25-mean, 2) + math.Pow(12.25-mean, 2) + math.Pow(6.25-mean, 2)
	require.InDelta(t, mean, est.Mean, 1e-12)
	require.InDelta(t, math.Sqrt(2.0/3.0*ss), est.Err, 1e-12)
}

func TestJackknifeErrors(t *testing.T) {
	_, err := Jackknife(seq(4), 1, []Func{Identity}, func(v []float64) float64 { return v[0] })
	require.ErrorIs(t, err, ErrBlocks)
	_, err = Jackknife(seq(4), 2, nil, func(v []float64) float64 { return 0 })
	require.Error(t, err)
	_, err = Jackknife(seq(4), 2, []Func{Identity}, nil)
	require.Error(t, err)
}

func TestSecondaryObservablesOnOrderedSeries(t *testing.T) {
	// Magnetization flipping between ±1 with fixed energy.
	m := []float64{1, -1, 1, -1, 1, -1, 1, -1}
	e := []float64{-2, -2, -2, -2, -2, -2, -2, -2}

	est, err := AbsMeanSquared(m, 4)
	require.NoError(t, err)
	require.InDelta(t, 1, est.Mean, 1e-12)

	est, err = Susceptibility(m, 4)
	require.NoError(t, err)
	require.InDelta(t, 0, est.Mean, 1e-12)
	require.InDelta(t, 0, est.Err, 1e-12)

	est, err = Binder(m, 4)
	require.NoError(t, err)
	require.InDelta(t, 2.0/3.0, est.Mean, 1e-12)

	est, err = SpecificHeat(e, 4)
	require.NoError(t, err)
	require.InDelta(t, 0, est.Mean, 1e-12)
}

func TestSusceptibilityOfMixedSeries(t *testing.T) {
	// Two blocks: {0.5, 0.5} and {1, 0}. Leaving out block 0 gives <m²>=0.5,
	// <|m|>=0.5, chi=0.25; leaving out block 1 gives 0.25-0.25=0.
	m := []float64{0.5, 0.5, 1, 0}
	est, err := Susceptibility(m, 2)
	require.NoError(t, err)
	require.InDelta(t, 0.125, est.Mean, 1e-12)
	require.InDelta(t, math.Sqrt(0.5*(2*0.125*0.125)), est.Err, 1e-12)
}
