// Package analyze implements the command that turns sample files into
// observable tables, tau_exp estimates and finite-size scaling fits.
package analyze

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/log"

	"ising-mc/internal/analysis"
	"ising-mc/internal/catalog"
	"ising-mc/internal/config"
	"ising-mc/internal/results"
	"ising-mc/internal/tau"
)

// ErrNoRuns is returned when the results root holds no usable sample files.
var ErrNoRuns = errors.New("analyze: no runs found")

// Mode selects what the command computes.
type Mode string

const (
	// ModeObservables writes the blocking and jackknife table.
	ModeObservables Mode = "observables"
	// ModeTau fits tau_exp per lattice size and updates the tau file.
	ModeTau Mode = "tau"
	// ModeCatalog lists the runs recorded in the SQLite catalog.
	ModeCatalog Mode = "catalog"
	// ModeFSS fits the χ' peaks, their scaling with L and the Binder crossings
	// of an observable table.
	ModeFSS Mode = "fss"
	// ModeKScan reports how the error of each observable depends on the
	// number of blocks.
	ModeKScan Mode = "kscan"
)

// Config holds the analysis configuration.
type Config struct {
	Mode       string  `env:"ISING_ANALYZE_MODE" envDefault:"observables"`
	ResultsDir string  `env:"ISING_OUT_DIR" envDefault:"results"`
	Blocks     int     `env:"ISING_BLOCKS" envDefault:"20"`
	OutDir     string  `env:"ISING_ANALYSIS_DIR" envDefault:"analysis"`
	TauDir     string  `env:"ISING_TAU_OUT_DIR" envDefault:"results-tau-exp"`
	TauFile    string  `env:"ISING_TAU_FILE" envDefault:"tau_exp_results.txt"`
	MaxLag     int     `env:"ISING_MAX_LAG"`
	Floor      float64 `env:"ISING_FIT_FLOOR" envDefault:"0.05"`
	Catalog    string  `env:"ISING_CATALOG"`
	L          int     `env:"ISING_CATALOG_L"`
	Summary    string  `env:"ISING_SUMMARY"`
	Window     int     `env:"ISING_PEAK_WINDOW" envDefault:"5"`
	KMin       int     `env:"ISING_K_MIN" envDefault:"4"`
	KMax       int     `env:"ISING_K_MAX" envDefault:"50"`
	Tolerance  float64 `env:"ISING_K_TOLERANCE" envDefault:"0.01"`
	LogLevel   string  `env:"ISING_LOG_LEVEL" envDefault:"info"`
}

// ParseConfig reads ISING_* variables, then lets flags override them.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.Mode, "mode", cfg.Mode, "observables, tau, catalog, fss or kscan")
	fs.StringVar(&cfg.ResultsDir, "results", cfg.ResultsDir, "results root to summarize")
	fs.IntVar(&cfg.Blocks, "k", cfg.Blocks, "number of blocks")
	fs.StringVar(&cfg.OutDir, "out", cfg.OutDir, "directory for analysis_v<N>.txt")
	fs.StringVar(&cfg.TauDir, "tau-results", cfg.TauDir, "results root of tau_exp chains")
	fs.StringVar(&cfg.TauFile, "tau", cfg.TauFile, "tau_exp table to update")
	fs.IntVar(&cfg.MaxLag, "max-lag", cfg.MaxLag, "largest lag of the autocorrelation (0 uses the whole chain)")
	fs.Float64Var(&cfg.Floor, "floor", cfg.Floor, "autocorrelation values at or below this end the fit")
	fs.StringVar(&cfg.Catalog, "catalog", cfg.Catalog, "SQLite run catalog")
	fs.IntVar(&cfg.L, "L", cfg.L, "catalog mode: only list this lattice side")
	fs.StringVar(&cfg.Summary, "summary", cfg.Summary, "fss mode: observable table (default: latest analysis_v<N>.txt in -out)")
	fs.IntVar(&cfg.Window, "window", cfg.Window, "fss mode: points kept on each side of the chi' maximum")
	fs.IntVar(&cfg.KMin, "k-min", cfg.KMin, "kscan mode: smallest number of blocks")
	fs.IntVar(&cfg.KMax, "k-max", cfg.KMax, "kscan mode: largest number of blocks")
	fs.Float64Var(&cfg.Tolerance, "k-tol", cfg.Tolerance, "kscan mode: relative error change treated as saturated")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run executes the configured mode.
func Run(ctx context.Context, cfg Config, out, errOut io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}
	logger, err := config.NewLogger(errOut, cfg.LogLevel, "ising-analyze")
	if err != nil {
		return err
	}
	switch Mode(cfg.Mode) {
	case ModeObservables:
		path, err := Observables(ctx, cfg, logger)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, path)
		return nil
	case ModeTau:
		table, err := Tau(ctx, cfg, logger)
		if err != nil {
			return err
		}
		_, err = table.WriteTo(out)
		return err
	case ModeCatalog:
		return listCatalog(ctx, cfg, out)
	case ModeFSS:
		f, err := FSS(ctx, cfg, logger)
		if err != nil {
			return err
		}
		return analysis.WriteFSS(out, f)
	case ModeKScan:
		rows, err := KScan(ctx, cfg, logger)
		if err != nil {
			return err
		}
		return writeKScan(out, rows)
	default:
		return fmt.Errorf("analyze: unknown mode %q", cfg.Mode)
	}
}

// Observables summarizes the latest sample file of every run folder under
// cfg.ResultsDir and writes the table to a new analysis_v<N>.txt in
// cfg.OutDir. It returns the path written.
func Observables(ctx context.Context, cfg Config, logger *log.Logger) (string, error) {
	runs, err := results.Scan(cfg.ResultsDir)
	if err != nil {
		return "", err
	}
	var rows []analysis.Summary
	for _, r := range runs {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		path, err := results.LatestVersionPath(r.Path, r.Name)
		if errors.Is(err, results.ErrNoVersions) {
			logger.Warn("skipping empty run folder", "folder", r.Path)
			continue
		}
		if err != nil {
			return "", err
		}
		samples, err := results.ReadSampleFile(path)
		if err != nil {
			return "", err
		}
		s, err := analysis.Summarize(r.L, r.Beta, samples, cfg.Blocks)
		if err != nil {
			return "", fmt.Errorf("%s: %w", path, err)
		}
		logger.Debug("summarized", "path", path, "samples", len(samples))
		rows = append(rows, s)
	}
	if len(rows) == 0 {
		return "", fmt.Errorf("%w in %s", ErrNoRuns, cfg.ResultsDir)
	}

	if err := results.EnsureDir(cfg.OutDir); err != nil {
		return "", err
	}
	path, err := results.NextVersionPath(cfg.OutDir, "analysis")
	if err != nil {
		return "", err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create analysis file: %w", err)
	}
	if err := analysis.WriteSummaries(f, rows); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	logger.Info("wrote analysis", "path", path, "runs", len(rows), "blocks", cfg.Blocks)
	return path, nil
}

// Tau fits tau_exp from every magnetization chain under cfg.TauDir and
// merges the result into cfg.TauFile. Chains of the same size are averaged.
func Tau(ctx context.Context, cfg Config, logger *log.Logger) (tau.Table, error) {
	runs, err := results.Scan(cfg.TauDir)
	if err != nil {
		return nil, err
	}
	series := map[int][][]float64{}
	for _, r := range runs {
		versions, err := results.Versions(r.Path, r.Name)
		if err != nil {
			return nil, err
		}
		for _, v := range versions {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			samples, err := results.ReadSampleFile(results.VersionPath(r.Path, r.Name, v))
			if err != nil {
				return nil, err
			}
			m, _ := analysis.Series(samples)
			series[r.L] = append(series[r.L], m)
		}
	}
	if len(series) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoRuns, cfg.TauDir)
	}
	table, err := analysis.TauTable(series, cfg.MaxLag, cfg.Floor)
	if err != nil {
		return nil, err
	}
	if err := table.Save(cfg.TauFile); err != nil {
		return nil, err
	}
	for _, l := range table.Sizes() {
		logger.Info("tau_exp", "L", l, "tau", table[l], "chains", len(series[l]))
	}
	return table, nil
}

// FSS runs the finite-size scaling analysis on cfg.Summary, or on the latest
// analysis_v<N>.txt in cfg.OutDir when no table is named.
func FSS(ctx context.Context, cfg Config, logger *log.Logger) (analysis.FSS, error) {
	path := cfg.Summary
	if path == "" {
		latest, err := results.LatestVersionPath(cfg.OutDir, "analysis")
		if err != nil {
			return analysis.FSS{}, fmt.Errorf("observable table in %s: %w", cfg.OutDir, err)
		}
		path = latest
	}
	f, err := os.Open(path)
	if err != nil {
		return analysis.FSS{}, err
	}
	defer f.Close()
	rows, err := analysis.ReadSummaries(f)
	if err != nil {
		return analysis.FSS{}, fmt.Errorf("%s: %w", path, err)
	}
	if len(rows) == 0 {
		return analysis.FSS{}, fmt.Errorf("%w in %s", ErrNoRuns, path)
	}
	if err := ctx.Err(); err != nil {
		return analysis.FSS{}, err
	}

	res, err := analysis.FiniteSizeScaling(rows, cfg.Window)
	if err != nil {
		return analysis.FSS{}, fmt.Errorf("%s: %w", path, err)
	}
	for l, cause := range res.Skipped {
		logger.Warn("no chi' peak", "L", l, "err", cause)
	}
	if res.BetaShift == nil {
		logger.Warn("too few sizes for the scaling fits", "peaks", len(res.Peaks))
	} else {
		logger.Info("beta_c from chi' peaks", "beta_c", res.BetaShift.Offset.Mean, "err", res.BetaShift.Offset.Err)
	}
	logger.Debug("fss", "path", path, "rows", len(rows), "crossings", len(res.Crossings))
	return res, nil
}

// KScanRow is the block-count scan of one observable of one run.
type KScanRow struct {
	L          int
	Beta       float64
	Observable string
	Scan       []analysis.KError
	// K is the first block count whose error stays within the tolerance, or
	// zero when the error never settles.
	K int
}

type estimator func([]float64, int) (analysis.Estimate, error)

func primary(f analysis.Func) estimator {
	return func(data []float64, k int) (analysis.Estimate, error) {
		return analysis.Blocking(data, k, f)
	}
}

// KScan computes the error of every observable of the latest sample file of
// each run for k = cfg.KMin..cfg.KMax blocks and finds where it saturates.
func KScan(ctx context.Context, cfg Config, logger *log.Logger) ([]KScanRow, error) {
	runs, err := results.Scan(cfg.ResultsDir)
	if err != nil {
		return nil, err
	}
	var rows []KScanRow
	for _, r := range runs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path, err := results.LatestVersionPath(r.Path, r.Name)
		if errors.Is(err, results.ErrNoVersions) {
			logger.Warn("skipping empty run folder", "folder", r.Path)
			continue
		}
		if err != nil {
			return nil, err
		}
		samples, err := results.ReadSampleFile(path)
		if err != nil {
			return nil, err
		}
		m, e := analysis.Series(samples)
		observables := []struct {
			name string
			data []float64
			est  estimator
		}{
			{"m", m, primary(analysis.Identity)},
			{"abs_m", m, primary(analysis.Abs)},
			{"m2", m, primary(analysis.Square)},
			{"e", e, primary(analysis.Identity)},
			{"chi", m, analysis.Susceptibility},
			{"U", m, analysis.Binder},
			{"C", e, analysis.SpecificHeat},
		}
		for _, o := range observables {
			scan := analysis.ErrorVsK(o.data, cfg.KMin, cfg.KMax, o.est)
			k, _ := analysis.SaturationK(scan, cfg.Tolerance)
			rows = append(rows, KScanRow{L: r.L, Beta: r.Beta, Observable: o.name, Scan: scan, K: k})
		}
		logger.Debug("scanned", "path", path, "samples", len(samples))
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoRuns, cfg.ResultsDir)
	}
	return rows, nil
}

func writeKScan(out io.Writer, rows []KScanRow) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "L\tbeta\tobservable\tk\terr")
	for _, r := range rows {
		if r.K == 0 {
			fmt.Fprintf(tw, "%d\t%.8f\t%s\tNA\t-\n", r.L, r.Beta, r.Observable)
			continue
		}
		var errAtK float64
		for _, p := range r.Scan {
			if p.K == r.K {
				errAtK = p.Err
			}
		}
		fmt.Fprintf(tw, "%d\t%.8f\t%s\t%d\t%.8f\n", r.L, r.Beta, r.Observable, r.K, errAtK)
	}
	return tw.Flush()
}

func listCatalog(ctx context.Context, cfg Config, out io.Writer) error {
	if cfg.Catalog == "" {
		return catalog.ErrNotConfigured
	}
	store, err := catalog.Open(cfg.Catalog)
	if err != nil {
		return err
	}
	defer store.Close()
	runs, err := store.ListRuns(ctx, cfg.L)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "id\tL\tbeta\tseed\tseq\tschedule\tsteps\tsamples\tacceptance\tfinished\tpath")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%d\t%f\t%d\t%d\t%s\t%d\t%d\t%.4f\t%s\t%s\n",
			r.ID, r.L, r.Beta, r.Seed, r.Sequence, r.Schedule, r.Steps, r.Samples,
			r.Acceptance, r.FinishedAt.Format(time.DateTime), r.Path)
	}
	return tw.Flush()
}
