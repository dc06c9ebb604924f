package analysis

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/stat"
)

var (
	// ErrConstantSeries is returned when a series has no variance.
	ErrConstantSeries = errors.New("analysis: series has zero variance")
	// ErrFit is returned when an autocorrelation cannot be fitted to a decay.
	ErrFit = errors.New("analysis: exponential fit failed")
)

// DefaultFitFloor is the smallest autocorrelation value kept in the tau fit.
const DefaultFitFloor = 0.05

// Autocorrelation returns the normalized autocorrelation C(t)/C(0) of x for
// lags 0..maxLag-1. The series is centred and zero-padded to 2N before the
// FFT so the sums are linear, not circular.
func Autocorrelation(x []float64, maxLag int) ([]float64, error) {
	n := len(x)
	if maxLag < 1 || maxLag >= n {
		return nil, fmt.Errorf("analysis: max lag %d must be in [1, %d)", maxLag, n)
	}
	mean := stat.Mean(x, nil)
	padded := make([]float64, 2*n)
	for i, v := range x {
		padded[i] = v - mean
	}

	fft := fourier.NewFFT(2 * n)
	coeff := fft.Coefficients(nil, padded)
	for i, c := range coeff {
		coeff[i] = complex(real(c)*real(c)+imag(c)*imag(c), 0)
	}
	power := fft.Sequence(nil, coeff)

	if power[0] <= 0 || math.IsNaN(power[0]) {
		return nil, ErrConstantSeries
	}
	acf := make([]float64, maxLag)
	for t := range acf {
		acf[t] = power[t] / power[0]
	}
	return acf, nil
}

// MeanAutocorrelation averages the autocorrelations of several runs of the
// same system. maxLag is clamped to the shortest series.
func MeanAutocorrelation(series [][]float64, maxLag int) ([]float64, error) {
	if len(series) == 0 {
		return nil, fmt.Errorf("analysis: no series")
	}
	for _, s := range series {
		if len(s)-1 < maxLag {
			maxLag = len(s) - 1
		}
	}
	sum := make([]float64, maxLag)
	for _, s := range series {
		acf, err := Autocorrelation(s, maxLag)
		if err != nil {
			return nil, err
		}
		for t, v := range acf {
			sum[t] += v
		}
	}
	for t := range sum {
		sum[t] /= float64(len(series))
	}
	return sum, nil
}

// EstimateTau fits C(t) = A·exp(-t/τ) by linear regression of ln C(t) on t
// over the leading lags where C(t) > floor, and returns τ in steps.
func EstimateTau(acf []float64, floor float64) (float64, error) {
	if floor <= 0 {
		floor = DefaultFitFloor
	}
	var lags, logs []float64
	for t, c := range acf {
		if c <= floor {
			break
		}
		lags = append(lags, float64(t))
		logs = append(logs, math.Log(c))
	}
	if len(lags) < 2 {
		return 0, fmt.Errorf("%w: only %d lags above %.3g", ErrFit, len(lags), floor)
	}
	_, slope := stat.LinearRegression(lags, logs, nil, false)
	if slope >= 0 || math.IsNaN(slope) {
		return 0, fmt.Errorf("%w: non-decaying slope %v", ErrFit, slope)
	}
	return -1 / slope, nil
}

// RoundTau converts a fitted tau to whole steps for the tau table.
func RoundTau(tau float64) int {
	return int(math.Round(tau))
}
