package analysis

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// Secondary combines the means of the primary functions into a derived
// observable. means[i] is the mean of primaries[i].
type Secondary func(means []float64) float64

// Jackknife estimates a secondary observable and its error with the block
// jackknife: for each of the k blocks, the primaries are averaged over the
// other k-1 blocks and fed to secondary. The estimate is the mean of those k
// values and the error is sqrt((k-1)/k · Σ(F_i - F̄)²).
func Jackknife(data []float64, k int, primaries []Func, secondary Secondary) (Estimate, error) {
	if len(primaries) == 0 || secondary == nil {
		return Estimate{}, fmt.Errorf("analysis: jackknife needs primaries and a secondary")
	}
	blockSums := make([][]float64, len(primaries))
	totals := make([]float64, len(primaries))
	var size int
	for p, f := range primaries {
		means, n, err := blockMeans(data, k, f)
		if err != nil {
			return Estimate{}, err
		}
		size = n
		blockSums[p] = means
		for _, m := range means {
			totals[p] += m * float64(n)
		}
	}

	reduced := float64((k - 1) * size)
	estimates := make([]float64, k)
	means := make([]float64, len(primaries))
	for b := 0; b < k; b++ {
		for p := range primaries {
			means[p] = (totals[p] - blockSums[p][b]*float64(size)) / reduced
		}
		estimates[b] = secondary(means)
	}

	mean := stat.Mean(estimates, nil)
	ss := 0.0
	for _, v := range estimates {
		d := v - mean
		ss += d * d
	}
	return Estimate{Mean: mean, Err: math.Sqrt(float64(k-1) / float64(k) * ss)}, nil
}

// AbsMeanSquared estimates <|m|>².
func AbsMeanSquared(m []float64, k int) (Estimate, error) {
	return Jackknife(m, k, []Func{Abs}, func(v []float64) float64 { return v[0] * v[0] })
}

// Susceptibility estimates χ' = <m²> - <|m|>² (without the β·L² prefactor).
func Susceptibility(m []float64, k int) (Estimate, error) {
	return Jackknife(m, k, []Func{Square, Abs}, func(v []float64) float64 {
		return v[0] - v[1]*v[1]
	})
}

// Binder estimates the Binder cumulant U = 1 - <m⁴>/(3<m²>²).
func Binder(m []float64, k int) (Estimate, error) {
	return Jackknife(m, k, []Func{Square, Fourth}, func(v []float64) float64 {
		return 1 - v[1]/(3*v[0]*v[0])
	})
}

// SpecificHeat estimates C = <e²> - <e>² (without the β²·L² prefactor).
func SpecificHeat(e []float64, k int) (Estimate, error) {
	return Jackknife(e, k, []Func{Identity, Square}, func(v []float64) float64 {
		return v[1] - v[0]*v[0]
	})
}
