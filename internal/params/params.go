// Package params reads the (L, beta) grid a batch run iterates over.
package params

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// BetaCritical is ln(1+√2)/2, the exact square-lattice critical point.
const BetaCritical = 0.4406867935

var (
	// ErrEmpty is returned when a parameter file lists no L or no beta.
	ErrEmpty = errors.New("params: at least one L and one beta value required")
	// ErrInvalidDimension is returned for a lattice side that is not positive.
	ErrInvalidDimension = errors.New("params: lattice side must be positive")
	// ErrInvalidBeta is returned for a negative or non-finite beta.
	ErrInvalidBeta = errors.New("params: beta must be finite and non-negative")
)

// Pair is one (L, beta) combination.
type Pair struct {
	L    int
	Beta float64
}

func (p Pair) String() string {
	return fmt.Sprintf("L=%d beta=%f", p.L, p.Beta)
}

// Parse reads a parameter file. The first line is a header. Every following
// line holds up to two tab separated fields: an L value and a beta value.
// Either field may be blank, so the two columns can have different lengths.
// The result is the L-major cartesian product of both columns.
func Parse(r io.Reader) ([]Pair, error) {
	sc := bufio.NewScanner(r)
	var ls []int
	var betas []float64
	line := 0
	for sc.Scan() {
		line++
		if line == 1 {
			continue
		}
		fields := strings.Split(sc.Text(), "\t")
		if f := strings.TrimSpace(fields[0]); f != "" {
			l, err := strconv.Atoi(f)
			if err == nil {
				if l <= 0 {
					return nil, fmt.Errorf("line %d: %w: %d", line, ErrInvalidDimension, l)
				}
				ls = append(ls, l)
			}
		}
		if len(fields) > 1 {
			if f := strings.TrimSpace(fields[1]); f != "" {
				b, err := strconv.ParseFloat(f, 64)
				if err == nil {
					if err := checkBeta(b); err != nil {
						return nil, fmt.Errorf("line %d: %w", line, err)
					}
					betas = append(betas, b)
				}
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read params: %w", err)
	}
	if len(ls) == 0 || len(betas) == 0 {
		return nil, ErrEmpty
	}
	return Product(ls, betas), nil
}

// ReadFile opens path and parses it.
func ReadFile(path string) ([]Pair, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open params file: %w", err)
	}
	defer f.Close()
	pairs, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return pairs, nil
}

// Product returns every (L, beta) combination with L varying slowest.
func Product(ls []int, betas []float64) []Pair {
	out := make([]Pair, 0, len(ls)*len(betas))
	for _, l := range ls {
		for _, b := range betas {
			out = append(out, Pair{L: l, Beta: b})
		}
	}
	return out
}

// BetaRange returns n betas evenly spaced over the finite-size window
// [βc-h, βc+h] with h = min(1/L, βc/2). A single value is βc itself.
func BetaRange(l, n int) ([]float64, error) {
	if l <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDimension, l)
	}
	if n <= 0 {
		return nil, fmt.Errorf("params: beta count must be positive, got %d", n)
	}
	if n == 1 {
		return []float64{BetaCritical}, nil
	}
	h := math.Min(1/float64(l), BetaCritical/2)
	lo := BetaCritical - h
	step := 2 * h / float64(n-1)
	out := make([]float64, n)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	out[n-1] = BetaCritical + h
	return out, nil
}

// Validate checks a single pair.
func Validate(p Pair) error {
	if p.L <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidDimension, p.L)
	}
	return checkBeta(p.Beta)
}

func checkBeta(b float64) error {
	if math.IsNaN(b) || math.IsInf(b, 0) || b < 0 {
		return fmt.Errorf("%w: %v", ErrInvalidBeta, b)
	}
	return nil
}
