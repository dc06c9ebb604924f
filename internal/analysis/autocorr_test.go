package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"ising-mc/pkg/pcg"
)

func directACF(x []float64, maxLag int) []float64 {
	mean := 0.0
	for _, v := range x {
		mean += v
	}
	mean /= float64(len(x))
	c := make([]float64, maxLag)
	for t := range c {
		for i := 0; i+t < len(x); i++ {
			c[t] += (x[i] - mean) * (x[i+t] - mean)
		}
	}
	c0 := c[0]
	for t := range c {
		c[t] /= c0
	}
	return c
}

// ar1 generates x[i] = phi·x[i-1] + gaussian noise, whose autocorrelation is
// phi^t.
func ar1(n int, phi float64, seed, seq uint64) []float64 {
	rng := pcg.New(seed, seq)
	x := make([]float64, n)
	for i := 1; i < n; i++ {
		u1, u2 := rng.OpenFloat64(), rng.Float64()
		g := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
		x[i] = phi*x[i-1] + g
	}
	return x
}

func TestAutocorrelationMatchesDirectSum(t *testing.T) {
	x := ar1(300, 0.7, 9, 9)
	got, err := Autocorrelation(x, 40)
	require.NoError(t, err)
	want := directACF(x, 40)
	require.Len(t, got, 40)
	require.InDelta(t, 1, got[0], 1e-12)
	for lag := range want {
		require.InDelta(t, want[lag], got[lag], 1e-9, "lag %d", lag)
	}
}

func TestAutocorrelationErrors(t *testing.T) {
	_, err := Autocorrelation([]float64{1, 2, 3}, 3)
	require.Error(t, err)
	_, err = Autocorrelation([]float64{1, 2, 3}, 0)
	require.Error(t, err)
	_, err = Autocorrelation([]float64{2, 2, 2, 2}, 2)
	require.ErrorIs(t, err, ErrConstantSeries)
}

func TestMeanAutocorrelationClampsLag(t *testing.T) {
	a := ar1(50, 0.5, 1, 1)
	b := ar1(30, 0.5, 2, 2)
	acf, err := MeanAutocorrelation([][]float64{a, b}, 100)
	require.NoError(t, err)
	require.Len(t, acf, 29)
	require.InDelta(t, 1, acf[0], 1e-12)

	_, err = MeanAutocorrelation(nil, 10)
	require.Error(t, err)
}

func TestEstimateTauExactExponential(t *testing.T) {
	acf := make([]float64, 100)
	for lag := range acf {
		acf[lag] = math.Exp(-float64(lag) / 12.5)
	}
	tau, err := EstimateTau(acf, 0)
	require.NoError(t, err)
	require.InDelta(t, 12.5, tau, 1e-9)
	require.Equal(t, 13, RoundTau(tau))
}

func TestEstimateTauAR1(t *testing.T) {
	x := ar1(50000, 0.9, 2024, 7)
	acf, err := Autocorrelation(x, 200)
	require.NoError(t, err)
	tau, err := EstimateTau(acf, DefaultFitFloor)
	require.NoError(t, err)
	// True value is -1/ln(0.9) ≈ 9.49.
	require.InDelta(t, 9.5, tau, 1.5)
}

func TestEstimateTauFailures(t *testing.T) {
	_, err := EstimateTau([]float64{1, 0.01, 0.5}, 0.05)
	require.ErrorIs(t, err, ErrFit)
	_, err = EstimateTau([]float64{1, 1, 1}, 0.05)
	require.ErrorIs(t, err, ErrFit)
}
