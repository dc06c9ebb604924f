package analysis

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/interp"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"
)

var (
	// ErrNoPeak is returned when the points around a maximum do not bend down.
	ErrNoPeak = errors.New("analysis: no peak to fit")
	// ErrTooFewPoints is returned when a fit has fewer points than parameters.
	ErrTooFewPoints = errors.New("analysis: too few points to fit")
)

// DefaultPeakWindow is the number of points kept on each side of the maximum.
const DefaultPeakWindow = 5

// Point is one (beta, value ± err) measurement of a curve.
type Point struct {
	Beta float64
	Estimate
}

// Peak is the vertex of a parabola fitted around the maximum of a curve.
type Peak struct {
	L      int
	Beta   Estimate
	Height Estimate
	Points int
}

// PeakFit fits v(β) = a·(β - β_pc)² + v_max by weighted least squares to the
// window points on each side of the largest value. Points with a non-positive
// error make the fit unweighted. The errors of β_pc and v_max propagate the
// parameter covariance.
func PeakFit(points []Point, window int) (Peak, error) {
	if window <= 0 {
		window = DefaultPeakWindow
	}
	pts := slices.Clone(points)
	slices.SortFunc(pts, func(a, b Point) int { return cmpFloat(a.Beta, b.Beta) })

	top := 0
	for i, p := range pts {
		if p.Mean > pts[top].Mean {
			top = i
		}
	}
	lo, hi := max(0, top-window), min(len(pts), top+window+1)
	pts = pts[lo:hi]
	if len(pts) < 3 {
		return Peak{}, fmt.Errorf("%w: %d around the maximum", ErrTooFewPoints, len(pts))
	}

	// Fit in u = (β - β0)/h so the normal equations stay well scaled.
	beta0 := pts[top-lo].Beta
	h := math.Max(pts[len(pts)-1].Beta-beta0, beta0-pts[0].Beta)
	if h == 0 {
		return Peak{}, fmt.Errorf("%w: all points share one beta", ErrTooFewPoints)
	}
	weighted := true
	for _, p := range pts {
		if !(p.Err > 0) {
			weighted = false
		}
	}

	normal := mat.NewSymDense(3, nil)
	rhs := mat.NewVecDense(3, nil)
	for _, p := range pts {
		u := (p.Beta - beta0) / h
		w := 1.0
		if weighted {
			w = 1 / (p.Err * p.Err)
		}
		basis := [3]float64{1, u, u * u}
		for r := 0; r < 3; r++ {
			rhs.SetVec(r, rhs.AtVec(r)+w*basis[r]*p.Mean)
			for c := r; c < 3; c++ {
				normal.SetSym(r, c, normal.At(r, c)+w*basis[r]*basis[c])
			}
		}
	}
	var chol mat.Cholesky
	if ok := chol.Factorize(normal); !ok {
		return Peak{}, fmt.Errorf("%w: singular normal equations", ErrNoPeak)
	}
	var coef mat.VecDense
	if err := chol.SolveVecTo(&coef, rhs); err != nil {
		return Peak{}, fmt.Errorf("%w: %v", ErrNoPeak, err)
	}
	var cov mat.SymDense
	if err := chol.InverseTo(&cov); err != nil {
		return Peak{}, fmt.Errorf("%w: %v", ErrNoPeak, err)
	}

	c0, c1, c2 := coef.AtVec(0), coef.AtVec(1), coef.AtVec(2)
	if !(c2 < 0) {
		return Peak{}, fmt.Errorf("%w: curvature %v", ErrNoPeak, c2)
	}
	vertex := -c1 / (2 * c2)
	height := c0 - c1*c1/(4*c2)

	gradVertex := []float64{0, -1 / (2 * c2), c1 / (2 * c2 * c2)}
	gradHeight := []float64{1, -c1 / (2 * c2), c1 * c1 / (4 * c2 * c2)}
	return Peak{
		Beta:   Estimate{Mean: beta0 + h*vertex, Err: h * propagate(&cov, gradVertex)},
		Height: Estimate{Mean: height, Err: propagate(&cov, gradHeight)},
		Points: len(pts),
	}, nil
}

// propagate returns sqrt(gᵀ·cov·g).
func propagate(cov *mat.SymDense, g []float64) float64 {
	v := mat.NewVecDense(len(g), g)
	return math.Sqrt(math.Max(mat.Inner(v, cov, v), 0))
}

// PowerLaw is y(L) = Offset + Amplitude·L^Exponent.
type PowerLaw struct {
	Offset    Estimate
	Amplitude Estimate
	Exponent  Estimate
	Chi2      float64
}

// Eval returns the fitted curve at l.
func (p PowerLaw) Eval(l float64) float64 {
	return p.Offset.Mean + p.Amplitude.Mean*math.Pow(l, p.Exponent.Mean)
}

// exponent search range and grid for the power-law fit.
const (
	exponentMin  = -4.0
	exponentMax  = 4.0
	exponentGrid = 0.01
)

// FitPowerLaw fits y = c0 + c1·L^p by weighted least squares. For a fixed p
// the model is linear in (c0, c1), so p is chosen by a grid scan of the
// profile χ² refined with Nelder-Mead. The error of p comes from the
// curvature of the profile χ² (Δχ² = 1). Errors of zero make the fit
// unweighted.
func FitPowerLaw(ls, ys, errs []float64) (PowerLaw, error) {
	if len(ls) != len(ys) || len(ls) != len(errs) {
		return PowerLaw{}, fmt.Errorf("analysis: power law needs equal lengths, got %d/%d/%d", len(ls), len(ys), len(errs))
	}
	if len(ls) < 3 {
		return PowerLaw{}, fmt.Errorf("%w: %d sizes", ErrTooFewPoints, len(ls))
	}
	weights := make([]float64, len(errs))
	for i, e := range errs {
		if !(e > 0) {
			weights = nil
			break
		}
		weights[i] = 1 / (e * e)
	}
	for _, l := range ls {
		if !(l > 0) {
			return PowerLaw{}, fmt.Errorf("analysis: power law needs positive sizes, got %v", l)
		}
	}

	profile := func(p float64) float64 {
		return linearPowerFit(ls, ys, weights, p).Chi2
	}

	best, bestChi2 := math.NaN(), math.Inf(1)
	for p := exponentMin; p <= exponentMax+exponentGrid/2; p += exponentGrid {
		if math.Abs(p) < exponentGrid/2 {
			continue
		}
		if c := profile(p); c < bestChi2 {
			best, bestChi2 = p, c
		}
	}
	if math.IsNaN(best) {
		return PowerLaw{}, fmt.Errorf("%w: no exponent gives a finite χ²", ErrTooFewPoints)
	}
	res, err := optimize.Minimize(optimize.Problem{
		Func: func(x []float64) float64 { return profile(x[0]) },
	}, []float64{best}, nil, &optimize.NelderMead{})
	if err == nil && res.F < bestChi2 && math.Abs(res.X[0]) > exponentGrid/2 {
		best = res.X[0]
	}

	fit := linearPowerFit(ls, ys, weights, best)
	fit.Exponent = Estimate{Mean: best, Err: curvatureError(profile, best)}
	return fit, nil
}

// linearPowerFit solves the weighted linear regression of y on L^p.
func linearPowerFit(ls, ys, weights []float64, p float64) PowerLaw {
	xs := make([]float64, len(ls))
	for i, l := range ls {
		xs[i] = math.Pow(l, p)
	}
	c0, c1 := stat.LinearRegression(xs, ys, weights, false)

	var s, sx, sxx, chi2 float64
	for i, x := range xs {
		w := 1.0
		if weights != nil {
			w = weights[i]
		}
		s += w
		sx += w * x
		sxx += w * x * x
		r := ys[i] - c0 - c1*x
		chi2 += w * r * r
	}
	det := s*sxx - sx*sx
	if !(det > 0) || math.IsNaN(chi2) {
		return PowerLaw{Chi2: math.Inf(1)}
	}
	return PowerLaw{
		Offset:    Estimate{Mean: c0, Err: math.Sqrt(sxx / det)},
		Amplitude: Estimate{Mean: c1, Err: math.Sqrt(s / det)},
		Exponent:  Estimate{Mean: p},
		Chi2:      chi2,
	}
}

// curvatureError returns sqrt(2/χ²''(x)) from a central difference, or NaN
// when the profile is not convex at x.
func curvatureError(f func(float64) float64, x float64) float64 {
	h := 1e-4 * math.Max(1, math.Abs(x))
	d2 := (f(x+h) - 2*f(x) + f(x-h)) / (h * h)
	if !(d2 > 0) || math.IsInf(d2, 0) {
		return math.NaN()
	}
	return math.Sqrt(2 / d2)
}

// Crossing is the beta where the Binder cumulants of two sizes intersect.
type Crossing struct {
	L1, L2 int
	Beta   float64
}

// crossingScan is the number of sub-intervals searched for a sign change.
const crossingScan = 400

// BinderCrossings interpolates U(β) of each size with a natural cubic spline
// and locates the first intersection of consecutive sizes over their common
// beta range. Pairs whose curves do not cross are left out.
func BinderCrossings(curves map[int][]Point) ([]Crossing, error) {
	sizes := make([]int, 0, len(curves))
	splines := map[int]*interp.NaturalCubic{}
	bounds := map[int][2]float64{}
	for l, pts := range curves {
		pts = slices.Clone(pts)
		slices.SortFunc(pts, func(a, b Point) int { return cmpFloat(a.Beta, b.Beta) })
		pts = slices.CompactFunc(pts, func(a, b Point) bool { return a.Beta == b.Beta })
		if len(pts) < 3 {
			return nil, fmt.Errorf("%w: L=%d has %d betas", ErrTooFewPoints, l, len(pts))
		}
		xs := make([]float64, len(pts))
		ys := make([]float64, len(pts))
		for i, p := range pts {
			xs[i], ys[i] = p.Beta, p.Mean
		}
		var nc interp.NaturalCubic
		if err := nc.Fit(xs, ys); err != nil {
			return nil, fmt.Errorf("L=%d: %w", l, err)
		}
		splines[l] = &nc
		bounds[l] = [2]float64{xs[0], xs[len(xs)-1]}
		sizes = append(sizes, l)
	}
	slices.Sort(sizes)

	var out []Crossing
	for i := 0; i+1 < len(sizes); i++ {
		l1, l2 := sizes[i], sizes[i+1]
		lo := math.Max(bounds[l1][0], bounds[l2][0])
		hi := math.Min(bounds[l1][1], bounds[l2][1])
		if !(hi > lo) {
			continue
		}
		diff := func(b float64) float64 { return splines[l1].Predict(b) - splines[l2].Predict(b) }
		if beta, ok := firstRoot(diff, lo, hi); ok {
			out = append(out, Crossing{L1: l1, L2: l2, Beta: beta})
		}
	}
	return out, nil
}

// MeanCrossing averages the crossing betas.
func MeanCrossing(cs []Crossing) Estimate {
	if len(cs) == 0 {
		return Estimate{Mean: math.NaN(), Err: math.NaN()}
	}
	betas := make([]float64, len(cs))
	for i, c := range cs {
		betas[i] = c.Beta
	}
	mean, std := stat.MeanStdDev(betas, nil)
	if len(cs) == 1 {
		std = 0
	}
	return Estimate{Mean: mean, Err: std / math.Sqrt(float64(len(cs)))}
}

// firstRoot scans [lo, hi] for the first sign change of f and bisects it.
func firstRoot(f func(float64) float64, lo, hi float64) (float64, bool) {
	grid := make([]float64, crossingScan+1)
	floats.Span(grid, lo, hi)
	prev := f(grid[0])
	if prev == 0 {
		return grid[0], true
	}
	for _, x := range grid[1:] {
		cur := f(x)
		if cur == 0 {
			return x, true
		}
		if (prev < 0) != (cur < 0) {
			a, b, fa := x-(grid[1]-grid[0]), x, prev
			for n := 0; n < 100 && b-a > 1e-14; n++ {
				m := 0.5 * (a + b)
				fm := f(m)
				if (fm < 0) == (fa < 0) {
					a, fa = m, fm
				} else {
					b = m
				}
			}
			return 0.5 * (a + b), true
		}
		prev = cur
	}
	return 0, false
}

// KError is the estimated error of an observable at block count K.
type KError struct {
	K   int
	Err float64
}

// ErrorVsK evaluates estimator for every k in [kMin, kMax], skipping block
// counts the data cannot support.
func ErrorVsK(data []float64, kMin, kMax int, estimator func([]float64, int) (Estimate, error)) []KError {
	var out []KError
	for k := max(kMin, 2); k <= kMax; k++ {
		est, err := estimator(data, k)
		if err != nil {
			continue
		}
		out = append(out, KError{K: k, Err: est.Err})
	}
	return out
}

// SaturationK returns the first k whose error differs from the previous one
// by less than tol relative to it.
func SaturationK(points []KError, tol float64) (int, bool) {
	for i := 1; i < len(points); i++ {
		prev := points[i-1].Err
		if prev == 0 {
			continue
		}
		if math.Abs(points[i].Err-prev)/math.Abs(prev) < tol {
			return points[i].K, true
		}
	}
	return 0, false
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// FSS is the finite-size scaling analysis of a set of summaries.
type FSS struct {
	// Peaks holds the χ' peak fit of every size that has one, ordered by L.
	Peaks []Peak
	// BetaShift fits β_pc(L) = β_c + b·L^(-1/ν); Offset is β_c.
	BetaShift *PowerLaw
	// PeakGrowth fits χ'_max(L) = c0 + c1·L^(γ/ν).
	PeakGrowth *PowerLaw
	// Crossings of the Binder cumulants of consecutive sizes.
	Crossings []Crossing
	// Skipped lists the sizes whose peak could not be fitted, with the cause.
	Skipped map[int]error
}

// FiniteSizeScaling fits the χ' peak of each lattice size, the scaling of the
// peak position and height with L, and the Binder cumulant crossings. The
// power-law fits need peaks from at least three sizes and are nil otherwise.
func FiniteSizeScaling(rows []Summary, window int) (FSS, error) {
	chi := map[int][]Point{}
	binder := map[int][]Point{}
	for _, r := range rows {
		chi[r.L] = append(chi[r.L], Point{Beta: r.Beta, Estimate: r.Chi})
		binder[r.L] = append(binder[r.L], Point{Beta: r.Beta, Estimate: r.Binder})
	}
	sizes := make([]int, 0, len(chi))
	for l := range chi {
		sizes = append(sizes, l)
	}
	slices.Sort(sizes)

	out := FSS{Skipped: map[int]error{}}
	for _, l := range sizes {
		peak, err := PeakFit(chi[l], window)
		if err != nil {
			out.Skipped[l] = err
			continue
		}
		peak.L = l
		out.Peaks = append(out.Peaks, peak)
	}

	if len(out.Peaks) >= 3 {
		ls := make([]float64, len(out.Peaks))
		pos, posErr := make([]float64, len(ls)), make([]float64, len(ls))
		height, heightErr := make([]float64, len(ls)), make([]float64, len(ls))
		for i, p := range out.Peaks {
			ls[i] = float64(p.L)
			pos[i], posErr[i] = p.Beta.Mean, p.Beta.Err
			height[i], heightErr[i] = p.Height.Mean, p.Height.Err
		}
		shift, err := FitPowerLaw(ls, pos, posErr)
		if err != nil {
			return FSS{}, fmt.Errorf("beta_pc(L): %w", err)
		}
		growth, err := FitPowerLaw(ls, height, heightErr)
		if err != nil {
			return FSS{}, fmt.Errorf("chi'_max(L): %w", err)
		}
		out.BetaShift, out.PeakGrowth = &shift, &growth
	}

	usable := map[int][]Point{}
	for l, pts := range binder {
		if len(pts) >= 3 {
			usable[l] = pts
		}
	}
	crossings, err := BinderCrossings(usable)
	if err != nil {
		return FSS{}, err
	}
	out.Crossings = crossings
	return out, nil
}

// WriteFSS writes a human readable report of an FSS analysis.
func WriteFSS(w io.Writer, f FSS) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "# chi' peaks")
	fmt.Fprintln(bw, "# L	beta_pc	err_beta_pc	chi_max	err_chi_max	points")
	for _, p := range f.Peaks {
		fmt.Fprintf(bw, "%d	%.8f	%.8f	%.8f	%.8f	%d\n", p.L, p.Beta.Mean, p.Beta.Err, p.Height.Mean, p.Height.Err, p.Points)
	}
	for _, l := range sortedKeys(f.Skipped) {
		fmt.Fprintf(bw, "# L=%d skipped: %v\n", l, f.Skipped[l])
	}
	if f.BetaShift != nil {
		inv := f.BetaShift.Exponent
		fmt.Fprintf(bw, "beta_c	%s\n", f.BetaShift.Offset)
		fmt.Fprintf(bw, "1/nu	%s\n", Estimate{Mean: -inv.Mean, Err: inv.Err})
		fmt.Fprintf(bw, "nu	%s\n", Estimate{Mean: -1 / inv.Mean, Err: inv.Err / (inv.Mean * inv.Mean)})
	}
	if f.PeakGrowth != nil {
		fmt.Fprintf(bw, "gamma/nu	%s\n", f.PeakGrowth.Exponent)
	}
	fmt.Fprintln(bw, "# Binder crossings")
	for _, c := range f.Crossings {
		fmt.Fprintf(bw, "%d-%d	%.8f\n", c.L1, c.L2, c.Beta)
	}
	if len(f.Crossings) > 0 {
		fmt.Fprintf(bw, "beta_c(U)	%s\n", MeanCrossing(f.Crossings))
	}
	return bw.Flush()
}

func sortedKeys(m map[int]error) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
