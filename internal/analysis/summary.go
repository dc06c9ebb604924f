package analysis

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"ising-mc/internal/sims/ising"
	"ising-mc/internal/tau"
)

// Summary is one row of the analysis table for a single (L, beta) run.
type Summary struct {
	L       int
	Beta    float64
	Samples int
	Blocks  int

	M      Estimate
	AbsM   Estimate
	M2     Estimate
	E      Estimate
	AbsMSq Estimate
	Chi    Estimate
	Binder Estimate
	Heat   Estimate
}

// SummaryHeader names the columns written by WriteSummaries.
var SummaryHeader = []string{
	"L", "beta", "samples",
	"m", "err_m", "abs_m", "err_abs_m", "m2", "err_m2", "e", "err_e",
	"abs_m_sq", "err_abs_m_sq", "chi", "err_chi", "U", "err_U", "C", "err_C",
}

// Series splits samples into magnetization and energy series.
func Series(samples []ising.Sample) (m, e []float64) {
	m = make([]float64, len(samples))
	e = make([]float64, len(samples))
	for i, s := range samples {
		m[i] = s.Magnetization
		e[i] = s.Energy
	}
	return m, e
}

// Summarize computes every estimate for one run using k blocks.
func Summarize(l int, beta float64, samples []ising.Sample, k int) (Summary, error) {
	m, e := Series(samples)
	s := Summary{L: l, Beta: beta, Samples: len(samples), Blocks: k}

	primaries := []struct {
		dst  *Estimate
		data []float64
		f    Func
		name string
	}{
		{&s.M, m, Identity, "m"},
		{&s.AbsM, m, Abs, "|m|"},
		{&s.M2, m, Square, "m²"},
		{&s.E, e, Identity, "e"},
	}
	for _, p := range primaries {
		est, err := Blocking(p.data, k, p.f)
		if err != nil {
			return Summary{}, fmt.Errorf("L=%d beta=%f %s: %w", l, beta, p.name, err)
		}
		*p.dst = est
	}

	secondaries := []struct {
		dst  *Estimate
		data []float64
		fn   func([]float64, int) (Estimate, error)
		name string
	}{
		{&s.AbsMSq, m, AbsMeanSquared, "<|m|>²"},
		{&s.Chi, m, Susceptibility, "chi"},
		{&s.Binder, m, Binder, "U"},
		{&s.Heat, e, SpecificHeat, "C"},
	}
	for _, sec := range secondaries {
		est, err := sec.fn(sec.data, k)
		if err != nil {
			return Summary{}, fmt.Errorf("L=%d beta=%f %s: %w", l, beta, sec.name, err)
		}
		*sec.dst = est
	}
	return s, nil
}

// WriteSummaries writes a '#' header and one tab separated row per summary.
func WriteSummaries(w io.Writer, rows []Summary) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "# %s\n", strings.Join(SummaryHeader, "\t")); err != nil {
		return err
	}
	for _, r := range rows {
		if _, err := fmt.Fprintf(bw, "%d\t%.8f\t%d", r.L, r.Beta, r.Samples); err != nil {
			return err
		}
		for _, est := range []Estimate{r.M, r.AbsM, r.M2, r.E, r.AbsMSq, r.Chi, r.Binder, r.Heat} {
			if _, err := fmt.Fprintf(bw, "\t%.8f\t%.8f", est.Mean, est.Err); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(bw); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ReadSummaries parses a table written by WriteSummaries. Lines starting
// with '#' and blank lines are skipped.
func ReadSummaries(r io.Reader) ([]Summary, error) {
	var out []Summary
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != len(SummaryHeader) {
			return nil, fmt.Errorf("summary line %d: %d columns, want %d", line, len(fields), len(SummaryHeader))
		}
		l, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("summary line %d: L: %w", line, err)
		}
		nums := make([]float64, len(fields)-3)
		for i, f := range fields[3:] {
			if nums[i], err = strconv.ParseFloat(f, 64); err != nil {
				return nil, fmt.Errorf("summary line %d: column %d: %w", line, i+4, err)
			}
		}
		beta, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("summary line %d: beta: %w", line, err)
		}
		samples, err := strconv.Atoi(fields[2])
		if err != nil {
			return nil, fmt.Errorf("summary line %d: samples: %w", line, err)
		}
		s := Summary{L: l, Beta: beta, Samples: samples}
		for i, dst := range []*Estimate{&s.M, &s.AbsM, &s.M2, &s.E, &s.AbsMSq, &s.Chi, &s.Binder, &s.Heat} {
			*dst = Estimate{Mean: nums[2*i], Err: nums[2*i+1]}
		}
		out = append(out, s)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read summaries: %w", err)
	}
	return out, nil
}

// TauTable fits tau_exp for each lattice size from the magnetization series
// of its runs, averaging the autocorrelations of runs that share a size.
// maxLag ≤ 0 uses the full series.
func TauTable(seriesByL map[int][][]float64, maxLag int, floor float64) (tau.Table, error) {
	out := tau.Table{}
	for l, series := range seriesByL {
		lag := maxLag
		if lag <= 0 {
			lag = int(^uint(0) >> 1)
		}
		acf, err := MeanAutocorrelation(series, lag)
		if err != nil {
			return nil, fmt.Errorf("L=%d: %w", l, err)
		}
		t, err := EstimateTau(acf, floor)
		if err != nil {
			return nil, fmt.Errorf("L=%d: %w", l, err)
		}
		out[l] = RoundTau(t)
	}
	return out, nil
}
