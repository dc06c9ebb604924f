package tauexp

import (
	"bytes"
	"context"
	"flag"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"ising-mc/internal/params"
	"ising-mc/internal/results"
	"ising-mc/internal/run"
	"ising-mc/internal/sims/ising"
)

func parse(t *testing.T, args ...string) Config {
	t.Helper()
	cfg, err := ParseConfig(flag.NewFlagSet("tau-exp", flag.ContinueOnError), args)
	require.NoError(t, err)
	return cfg
}

func TestParseConfigDefaults(t *testing.T) {
	cfg := parse(t)
	require.Equal(t, 0.44068679, cfg.Beta)
	require.EqualValues(t, 10000, cfg.Sweeps)
	require.EqualValues(t, 42, cfg.Seed)
	require.EqualValues(t, 54, cfg.Sequence)
	require.Equal(t, "results-tau-exp", cfg.OutDir)
	require.Equal(t, 1, cfg.Runs)
}

func TestParseConfigEnv(t *testing.T) {
	t.Setenv("ISING_TAU_L", "16,32")
	t.Setenv("ISING_TAU_SWEEPS", "20")
	cfg := parse(t, "-sweeps", "30")
	require.EqualValues(t, 30, cfg.Sweeps)
	sizes, err := cfg.Sizes()
	require.NoError(t, err)
	require.Equal(t, []int{16, 32}, sizes)
}

func TestJobs(t *testing.T) {
	cfg := parse(t, "-L", "4,8", "-runs", "2", "-seq", "10")
	jobs, err := cfg.Jobs()
	require.NoError(t, err)
	require.Equal(t, []run.Job{
		{L: 4, Beta: 0.44068679, Sequence: 10},
		{L: 4, Beta: 0.44068679, Sequence: 11},
		{L: 8, Beta: 0.44068679, Sequence: 12},
		{L: 8, Beta: 0.44068679, Sequence: 13},
	}, jobs)
	require.Len(t, bySize(jobs), 2)
}

func TestJobsErrors(t *testing.T) {
	_, err := parse(t).Jobs()
	require.ErrorIs(t, err, ErrNoSizes)

	_, err = parse(t, "-L", "0").Jobs()
	require.ErrorIs(t, err, params.ErrInvalidDimension)

	_, err = parse(t, "-L", "x").Jobs()
	require.Error(t, err)

	_, err = parse(t, "-L", "4", "-runs", "0").Jobs()
	require.Error(t, err)
}

func TestRunProducesSequentialChain(t *testing.T) {
	dir := t.TempDir()
	cfg := parse(t, "-L", "3", "-beta", "0.5", "-sweeps", "3", "-out", dir)

	var stdout bytes.Buffer
	require.NoError(t, Run(context.Background(), cfg, &stdout, nil))

	path := filepath.Join(dir, "L3_beta0.500000", "L3_beta0.500000_v1.txt")
	require.Contains(t, stdout.String(), "L=3 seq=54 steps=27 samples=27 "+path)

	samples, err := results.ReadSampleFile(path)
	require.NoError(t, err)
	require.Len(t, samples, 27)
	require.Equal(t, ising.Sample{Step: 0, Magnetization: -0.33333333, Energy: -0.66666667}, samples[0])
	require.Equal(t, ising.Sample{Step: 26, Magnetization: 0.55555556, Energy: -0.22222222}, samples[26])
}

func TestRunScalesStepsWithSize(t *testing.T) {
	dir := t.TempDir()
	cfg := parse(t, "-L", "2,3", "-sweeps", "2", "-out", dir, "-workers", "2")
	var stdout bytes.Buffer
	require.NoError(t, Run(context.Background(), cfg, &stdout, nil))
	require.Contains(t, stdout.String(), "L=2 seq=54 steps=8 samples=8")
	require.Contains(t, stdout.String(), "L=3 seq=55 steps=18 samples=18")
}

func TestRunRejectsNonPositiveSweeps(t *testing.T) {
	cfg := parse(t, "-L", "3", "-sweeps", "0", "-out", t.TempDir())
	require.Error(t, Run(context.Background(), cfg, nil, nil))
}
