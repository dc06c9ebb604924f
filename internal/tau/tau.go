// Package tau stores exponential autocorrelation times per lattice size and
// derives thermalization cutoffs from them.
package tau

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
)

// Header is the first line written to a tau table file.
const Header = "# L    tau_exp"

// ErrUnknownSize is returned when no tau is recorded for a lattice side.
var ErrUnknownSize = errors.New("tau: no tau_exp recorded for lattice size")

// ErrInvalidFactor is returned for a negative thermalization factor.
var ErrInvalidFactor = errors.New("tau: thermalization factor must be non-negative")

// Table maps a lattice side to its exponential autocorrelation time in steps.
type Table map[int]int

// Parse reads "L tau" rows. Blank lines and lines starting with '#' are
// skipped, as are rows whose first two fields are not integers.
func Parse(r io.Reader) (Table, error) {
	t := Table{}
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		l, errL := strconv.Atoi(fields[0])
		tau, errT := strconv.Atoi(fields[1])
		if errL != nil || errT != nil {
			continue
		}
		t[l] = tau
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read tau table: %w", err)
	}
	return t, nil
}

// Load parses the table at path. A missing file yields an empty table.
func Load(path string) (Table, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return Table{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open tau table: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Cutoff returns factor·tau(L) in single-site updates, the amount of
// evolution discarded before sampling.
func (t Table) Cutoff(l, factor int) (int, error) {
	if factor < 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidFactor, factor)
	}
	tau, ok := t[l]
	if !ok {
		return 0, fmt.Errorf("%w: L=%d", ErrUnknownSize, l)
	}
	return factor * tau, nil
}

// Merge overwrites or adds every entry of other.
func (t Table) Merge(other Table) {
	for l, tau := range other {
		t[l] = tau
	}
}

// Sizes returns the recorded lattice sides in ascending order.
func (t Table) Sizes() []int {
	out := make([]int, 0, len(t))
	for l := range t {
		out = append(out, l)
	}
	slices.Sort(out)
	return out
}

// WriteTo writes the header and one "%-4d %d" row per size, sorted by L.
func (t Table) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var total int64
	n, err := fmt.Fprintln(bw, Header)
	total += int64(n)
	if err != nil {
		return total, err
	}
	for _, l := range t.Sizes() {
		n, err = fmt.Fprintf(bw, "%-4d %d\n", l, t[l])
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, bw.Flush()
}

// Save merges t into the table already stored at path and rewrites the file.
func (t Table) Save(path string) error {
	merged, err := Load(path)
	if err != nil {
		return err
	}
	merged.Merge(t)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create tau table: %w", err)
	}
	if _, err := merged.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("write tau table: %w", err)
	}
	return f.Close()
}
