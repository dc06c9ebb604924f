// Package run executes batches of independent (L, beta) Metropolis runs and
// streams their samples into the versioned results layout.
package run

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"ising-mc/internal/catalog"
	"ising-mc/internal/core"
	"ising-mc/internal/params"
	"ising-mc/internal/results"
	"ising-mc/internal/sims/ising"
	"ising-mc/internal/tau"
)

var (
	// ErrNoJobs is returned when Run is called with an empty batch.
	ErrNoJobs = errors.New("run: no jobs")
	// ErrInvalidConfig wraps configuration problems found before any job starts.
	ErrInvalidConfig = errors.New("run: invalid config")
)

// Recorder stores a finished run. *catalog.Store implements it.
type Recorder interface {
	RecordRun(ctx context.Context, run catalog.Run) (string, error)
}

// Job is one (L, beta) simulation with its own random sequence.
type Job struct {
	L        int
	Beta     float64
	Sequence uint64
}

func (j Job) String() string {
	return fmt.Sprintf("L=%d beta=%f seq=%d", j.L, j.Beta, j.Sequence)
}

// Jobs turns parameter pairs into jobs. Job i gets sequence base+i so parallel
// runs sharing a seed draw from distinct streams.
func Jobs(pairs []params.Pair, base uint64) []Job {
	out := make([]Job, len(pairs))
	for i, p := range pairs {
		out[i] = Job{L: p.L, Beta: p.Beta, Sequence: base + uint64(i)}
	}
	return out
}

// Config controls a batch.
type Config struct {
	Seed     int64
	Schedule ising.Schedule

	// Steps is the number of production steps after thermalization.
	Steps int64
	// SampleEvery writes a row every n-th production step.
	SampleEvery int64

	// Thermalization discards ThermalFactor·tau(L) single-site updates when
	// Tau knows L (rounded up to whole sweeps under ScheduleSweep) and
	// DefaultCutoff schedule steps otherwise.
	Tau           tau.Table
	ThermalFactor int
	DefaultCutoff int64

	OutDir   string
	Workers  int
	Progress time.Duration

	Logger  *log.Logger
	Catalog Recorder
}

// DefaultConfig returns a sweep-schedule batch writing to ./results.
func DefaultConfig() Config {
	return Config{
		Seed:          42,
		Schedule:      ising.ScheduleSweep,
		Steps:         100000,
		SampleEvery:   10,
		ThermalFactor: 20,
		DefaultCutoff: 10000,
		OutDir:        "results",
		Workers:       runtime.NumCPU(),
		Progress:      10 * time.Second,
	}
}

func (c Config) validate() error {
	switch {
	case !c.Schedule.Valid():
		return fmt.Errorf("%w: unknown schedule %q", ErrInvalidConfig, c.Schedule)
	case c.Steps <= 0:
		return fmt.Errorf("%w: steps must be positive", ErrInvalidConfig)
	case c.SampleEvery <= 0:
		return fmt.Errorf("%w: sample interval must be positive", ErrInvalidConfig)
	case c.ThermalFactor < 0 || c.DefaultCutoff < 0:
		return fmt.Errorf("%w: thermalization must be non-negative", ErrInvalidConfig)
	case c.OutDir == "":
		return fmt.Errorf("%w: output directory is required", ErrInvalidConfig)
	}
	return nil
}

func (c Config) logger() *log.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return log.New(io.Discard)
}

// Result describes a finished job.
type Result struct {
	Job
	Path           string
	RunID          string
	Thermalization int64
	Samples        int
	Acceptance     float64
	Final          ising.Sample
	Elapsed        time.Duration
}

// Run executes jobs on a pool of cfg.Workers goroutines and returns their
// results in job order. The first failure cancels the remaining jobs.
func Run(ctx context.Context, cfg Config, jobs []Job) ([]Result, error) {
	if len(jobs) == 0 {
		return nil, ErrNoJobs
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	for _, j := range jobs {
		if err := params.Validate(params.Pair{L: j.L, Beta: j.Beta}); err != nil {
			return nil, fmt.Errorf("job %s: %w", j, err)
		}
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	logger := cfg.logger()
	logger.Info("starting batch", "jobs", len(jobs), "workers", workers,
		"schedule", cfg.Schedule, "steps", cfg.Steps, "seed", cfg.Seed)

	out := make([]Result, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			res, err := RunJob(gctx, cfg, job)
			if err != nil {
				return fmt.Errorf("job %s: %w", job, err)
			}
			out[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	logger.Info("batch finished", "jobs", len(jobs))
	return out, nil
}

// RunJob runs a single job: thermalize, then sample into a new versioned
// results file, then record the run in the catalog when one is configured.
func RunJob(ctx context.Context, cfg Config, job Job) (Result, error) {
	if err := cfg.validate(); err != nil {
		return Result{}, err
	}
	logger := cfg.logger().With("L", job.L, "beta", job.Beta, "seq", job.Sequence)
	started := time.Now()

	model, err := ising.New(ising.Config{
		L:        job.L,
		Beta:     job.Beta,
		Seed:     cfg.Seed,
		Sequence: job.Sequence,
		Schedule: cfg.Schedule,
	})
	if err != nil {
		return Result{}, err
	}
	defer model.Close()
	model.Seed(uint64(cfg.Seed), job.Sequence)

	cutoff := thermalization(cfg, job.L, logger)

	base := results.BaseName(job.L, job.Beta)
	folder := results.Folder(cfg.OutDir, job.L, job.Beta)
	if err := results.EnsureDir(folder); err != nil {
		return Result{}, err
	}
	w, path, err := results.CreateNext(folder, base)
	if err != nil {
		return Result{}, err
	}
	// A partial file would pass for the latest version of this run, so any
	// failure before a clean close removes it.
	discard := func(cause error) (Result, error) {
		w.Close()
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warn("could not remove partial sample file", "path", path, "err", err)
		}
		return Result{}, cause
	}

	// One context check per sweep's worth of work.
	checkEvery := int64(1)
	if cfg.Schedule == ising.ScheduleSequential {
		checkEvery = int64(job.L * job.L)
	}
	progress := core.NewFixedStep(cfg.Progress)

	logger.Debug("thermalizing", "steps", cutoff)
	for s := int64(0); s < cutoff; s++ {
		if s%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return discard(err)
			}
		}
		model.Advance(1)
	}

	for s := int64(0); s < cfg.Steps; s++ {
		if s%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return discard(err)
			}
			if progress.ShouldStep() {
				logger.Info("progress", "step", s, "of", cfg.Steps,
					"m", model.Magnetization(), "e", model.Energy())
			}
		}
		model.Advance(1)
		if s%cfg.SampleEvery == 0 {
			if err := w.Write(ising.Measure(s, model.Lattice())); err != nil {
				return discard(err)
			}
		}
	}
	if err := w.Close(); err != nil {
		os.Remove(path)
		return Result{}, fmt.Errorf("close %s: %w", path, err)
	}

	res := Result{
		Job:            job,
		Path:           path,
		Thermalization: cutoff,
		Samples:        w.Rows(),
		Acceptance:     model.AcceptanceRate(),
		Final:          ising.Measure(cfg.Steps, model.Lattice()),
		Elapsed:        time.Since(started),
	}

	if cfg.Catalog != nil {
		id, err := cfg.Catalog.RecordRun(ctx, catalog.Run{
			L:              job.L,
			Beta:           job.Beta,
			Seed:           cfg.Seed,
			Sequence:       job.Sequence,
			Schedule:       string(cfg.Schedule),
			Thermalization: cutoff,
			Steps:          cfg.Steps,
			Samples:        res.Samples,
			Acceptance:     res.Acceptance,
			Path:           path,
			StartedAt:      started,
			FinishedAt:     started.Add(res.Elapsed),
		})
		if err != nil {
			return Result{}, err
		}
		res.RunID = id
	}

	logger.Info("run finished", "path", path, "samples", res.Samples,
		"m", res.Final.Magnetization, "e", res.Final.Energy,
		"acceptance", res.Acceptance, "elapsed", res.Elapsed.Round(time.Millisecond))
	return res, nil
}

// thermalization returns the number of schedule steps to discard. Tau
// tables hold tau_exp in single-site updates, so under the sweep schedule
// the cutoff is rounded up to whole sweeps of L² updates.
func thermalization(cfg Config, l int, logger *log.Logger) int64 {
	if cfg.Tau == nil {
		return cfg.DefaultCutoff
	}
	cutoff, err := cfg.Tau.Cutoff(l, cfg.ThermalFactor)
	if err != nil {
		logger.Warn("no tau_exp for lattice size, using default cutoff", "cutoff", cfg.DefaultCutoff)
		return cfg.DefaultCutoff
	}
	if cfg.Schedule == ising.ScheduleSweep {
		sites := int64(l) * int64(l)
		return (int64(cutoff) + sites - 1) / sites
	}
	return int64(cutoff)
}
