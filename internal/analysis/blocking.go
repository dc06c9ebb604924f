// Package analysis estimates equilibrium observables and their errors from
// correlated Monte Carlo time series: blocking for primary means, block
// jackknife for derived quantities, and FFT autocorrelation for tau_exp.
package analysis

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// ErrBlocks is returned when the block count k is not in [2, len(data)].
var ErrBlocks = errors.New("analysis: invalid block count")

// Func maps a raw sample to the quantity being averaged.
type Func func(float64) float64

// Primary functions shared by the estimators.
var (
	Identity Func = func(x float64) float64 { return x }
	Abs      Func = math.Abs
	Square   Func = func(x float64) float64 { return x * x }
	Fourth   Func = func(x float64) float64 { return x * x * x * x }
)

// Estimate is a mean with its statistical error.
type Estimate struct {
	Mean float64
	Err  float64
}

func (e Estimate) String() string {
	return fmt.Sprintf("%.8f ± %.8f", e.Mean, e.Err)
}

// blockMeans splits data into k equal blocks of len(data)/k samples, dropping
// the remainder, and returns the mean of f over each block.
func blockMeans(data []float64, k int, f Func) ([]float64, int, error) {
	if k < 2 || k > len(data) {
		return nil, 0, fmt.Errorf("%w: k=%d, need 2 <= k <= %d", ErrBlocks, k, len(data))
	}
	size := len(data) / k
	means := make([]float64, k)
	for b := range means {
		sum := 0.0
		for _, x := range data[b*size : (b+1)*size] {
			sum += f(x)
		}
		means[b] = sum / float64(size)
	}
	return means, size, nil
}

// Blocking returns the mean of f over data and the standard error of that mean
// estimated from k block means: stddev(block means)/√k.
func Blocking(data []float64, k int, f Func) (Estimate, error) {
	if f == nil {
		f = Identity
	}
	means, _, err := blockMeans(data, k, f)
	if err != nil {
		return Estimate{}, err
	}
	return Estimate{
		Mean: stat.Mean(means, nil),
		Err:  stat.StdDev(means, nil) / math.Sqrt(float64(k)),
	}, nil
}
