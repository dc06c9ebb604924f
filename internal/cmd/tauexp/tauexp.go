// Package tauexp implements the command that produces long single-site
// Metropolis chains for measuring the exponential autocorrelation time.
package tauexp

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"ising-mc/internal/catalog"
	"ising-mc/internal/config"
	"ising-mc/internal/params"
	"ising-mc/internal/run"
	"ising-mc/internal/sims/ising"
)

// ErrNoSizes is returned when no lattice size was requested.
var ErrNoSizes = errors.New("tauexp: at least one -L is required")

// Config holds the tau_exp chain configuration.
type Config struct {
	Ls       string        `env:"ISING_TAU_L"`
	Beta     float64       `env:"ISING_TAU_BETA" envDefault:"0.44068679"`
	Sweeps   int64         `env:"ISING_TAU_SWEEPS" envDefault:"10000"`
	Runs     int           `env:"ISING_TAU_RUNS" envDefault:"1"`
	Seed     int64         `env:"ISING_SEED" envDefault:"42"`
	Sequence uint64        `env:"ISING_SEQ" envDefault:"54"`
	OutDir   string        `env:"ISING_TAU_OUT_DIR" envDefault:"results-tau-exp"`
	Workers  int           `env:"ISING_WORKERS" envDefault:"1"`
	Catalog  string        `env:"ISING_CATALOG"`
	LogLevel string        `env:"ISING_LOG_LEVEL" envDefault:"info"`
	Progress time.Duration `env:"ISING_PROGRESS" envDefault:"10s"`
}

// ParseConfig reads ISING_* variables, then lets flags override them.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.Ls, "L", cfg.Ls, "comma separated lattice sides")
	fs.Float64Var(&cfg.Beta, "beta", cfg.Beta, "inverse temperature")
	fs.Int64Var(&cfg.Sweeps, "sweeps", cfg.Sweeps, "chain length in sweeps; the chain makes sweeps·L² single-site steps")
	fs.IntVar(&cfg.Runs, "runs", cfg.Runs, "independent chains per lattice size")
	fs.Int64Var(&cfg.Seed, "seed", cfg.Seed, "PCG seed")
	fs.Uint64Var(&cfg.Sequence, "seq", cfg.Sequence, "base PCG sequence")
	fs.StringVar(&cfg.OutDir, "out", cfg.OutDir, "results root directory")
	fs.IntVar(&cfg.Workers, "workers", cfg.Workers, "parallel chains")
	fs.StringVar(&cfg.Catalog, "catalog", cfg.Catalog, "SQLite run catalog (empty disables)")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	fs.DurationVar(&cfg.Progress, "progress", cfg.Progress, "interval between progress logs")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Sizes parses the requested lattice sides.
func (c Config) Sizes() ([]int, error) {
	var out []int
	for _, f := range strings.Split(c.Ls, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		l, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("-L %q: %w", f, err)
		}
		if l <= 0 {
			return nil, fmt.Errorf("%w: %d", params.ErrInvalidDimension, l)
		}
		out = append(out, l)
	}
	if len(out) == 0 {
		return nil, ErrNoSizes
	}
	return out, nil
}

// Jobs expands the sizes into Runs chains each, all at the configured beta.
func (c Config) Jobs() ([]run.Job, error) {
	sizes, err := c.Sizes()
	if err != nil {
		return nil, err
	}
	if c.Runs <= 0 {
		return nil, fmt.Errorf("tauexp: runs must be positive, got %d", c.Runs)
	}
	var pairs []params.Pair
	for _, l := range sizes {
		for r := 0; r < c.Runs; r++ {
			pairs = append(pairs, params.Pair{L: l, Beta: c.Beta})
		}
	}
	return run.Jobs(pairs, c.Sequence), nil
}

// Run produces one sequential-schedule chain per job. Every step is sampled
// and nothing is discarded for thermalization.
func Run(ctx context.Context, cfg Config, out, errOut io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}
	logger, err := config.NewLogger(errOut, cfg.LogLevel, "tau-exp")
	if err != nil {
		return err
	}
	jobs, err := cfg.Jobs()
	if err != nil {
		return err
	}
	if cfg.Sweeps <= 0 {
		return fmt.Errorf("tauexp: sweeps must be positive, got %d", cfg.Sweeps)
	}

	rc := run.Config{
		Seed:        cfg.Seed,
		Schedule:    ising.ScheduleSequential,
		SampleEvery: 1,
		OutDir:      cfg.OutDir,
		Workers:     cfg.Workers,
		Progress:    cfg.Progress,
		Logger:      logger,
	}
	if cfg.Catalog != "" {
		store, err := catalog.Open(cfg.Catalog)
		if err != nil {
			return err
		}
		defer store.Close()
		rc.Catalog = store
	}

	// Chain length depends on L, so each size runs as its own batch.
	for _, group := range bySize(jobs) {
		l := group[0].L
		rc.Steps = cfg.Sweeps * int64(l*l)
		res, err := run.Run(ctx, rc, group)
		if err != nil {
			return err
		}
		for _, r := range res {
			fmt.Fprintf(out, "L=%d seq=%d steps=%d samples=%d %s\n", r.L, r.Sequence, rc.Steps, r.Samples, r.Path)
		}
	}
	return nil
}

// bySize groups consecutive jobs sharing a lattice side.
func bySize(jobs []run.Job) [][]run.Job {
	var out [][]run.Job
	for _, j := range jobs {
		if n := len(out); n > 0 && out[n-1][0].L == j.L {
			out[n-1] = append(out[n-1], j)
			continue
		}
		out = append(out, []run.Job{j})
	}
	return out
}
