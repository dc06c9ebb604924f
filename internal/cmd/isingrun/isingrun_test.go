package isingrun

import (
	"bytes"
	"context"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"ising-mc/internal/catalog"
	"ising-mc/internal/params"
)

func parse(t *testing.T, args ...string) Config {
	t.Helper()
	fs := flag.NewFlagSet("ising-run", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, args)
	require.NoError(t, err)
	return cfg
}

func TestParseConfigDefaults(t *testing.T) {
	cfg := parse(t)
	require.Equal(t, "sweep", cfg.Schedule)
	require.EqualValues(t, 100000, cfg.Steps)
	require.EqualValues(t, 10, cfg.SampleEvery)
	require.EqualValues(t, 1, cfg.Sequence)
	require.Equal(t, "tau_exp_results.txt", cfg.TauFile)
	require.Equal(t, 20, cfg.ThermalFactor)
	require.Equal(t, "results", cfg.OutDir)
	require.Equal(t, "info", cfg.LogLevel)
	require.Positive(t, cfg.Workers)
	require.Zero(t, cfg.Seed)
}

func TestParseConfigEnvThenFlags(t *testing.T) {
	t.Setenv("ISING_STEPS", "500")
	t.Setenv("ISING_SCHEDULE", "sequential")
	t.Setenv("ISING_SEED", "9")

	cfg := parse(t, "-seed", "11")
	require.EqualValues(t, 500, cfg.Steps)
	require.Equal(t, "sequential", cfg.Schedule)
	require.EqualValues(t, 11, cfg.Seed, "flag must override env")
}

func TestParseConfigRejectsBadEnv(t *testing.T) {
	t.Setenv("ISING_STEPS", "many")
	_, err := ParseConfig(flag.NewFlagSet("ising-run", flag.ContinueOnError), nil)
	require.Error(t, err)
}

func TestPairsFromLists(t *testing.T) {
	cfg := parse(t, "-L", "4, 8", "-beta", "0.3,0.5")
	pairs, err := cfg.Pairs()
	require.NoError(t, err)
	require.Equal(t, params.Product([]int{4, 8}, []float64{0.3, 0.5}), pairs)
}

func TestPairsFromBetaRange(t *testing.T) {
	cfg := parse(t, "-L", "10", "-beta-range", "3")
	pairs, err := cfg.Pairs()
	require.NoError(t, err)
	require.Len(t, pairs, 3)
	for _, p := range pairs {
		require.Equal(t, 10, p.L)
	}
	require.InDelta(t, params.BetaCritical, pairs[1].Beta, 1e-12)
}

func TestPairsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.txt")
	require.NoError(t, os.WriteFile(path, []byte("L\tbeta\n6\t0.4\n"), 0o644))
	cfg := parse(t, "-params", path)
	pairs, err := cfg.Pairs()
	require.NoError(t, err)
	require.Equal(t, []params.Pair{{L: 6, Beta: 0.4}}, pairs)
}

func TestPairsErrors(t *testing.T) {
	_, err := parse(t).Pairs()
	require.ErrorIs(t, err, ErrNoParameters)

	_, err = parse(t, "-L", "4").Pairs()
	require.ErrorIs(t, err, ErrNoParameters)

	_, err = parse(t, "-L", "four", "-beta", "0.4").Pairs()
	require.Error(t, err)

	_, err = parse(t, "-L", "4", "-beta", "-0.4").Pairs()
	require.ErrorIs(t, err, params.ErrInvalidBeta)
}

func TestRunWritesSamplesAndTable(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "results")
	db := filepath.Join(dir, "runs.db")
	cfg := parse(t,
		"-L", "4", "-beta", "0.44",
		"-seed", "42", "-seq", "54",
		"-steps", "6", "-sample-every", "2", "-default-cutoff", "5",
		"-tau", filepath.Join(dir, "missing.txt"),
		"-out", out, "-workers", "1", "-catalog", db,
	)

	var stdout, stderr bytes.Buffer
	require.NoError(t, Run(context.Background(), cfg, &stdout, &stderr))

	path := filepath.Join(out, "L4_beta0.440000", "L4_beta0.440000_v1.txt")
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(raw), "# step\tm\tenergy\n"))

	table := stdout.String()
	require.Contains(t, table, "acceptance")
	require.Contains(t, table, "-0.87500")
	require.Contains(t, table, path)
	require.Contains(t, stderr.String(), "batch finished")

	store, err := catalog.Open(db)
	require.NoError(t, err)
	defer store.Close()
	runs, err := store.ListRuns(context.Background(), 4)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.EqualValues(t, 54, runs[0].Sequence)
	require.Equal(t, path, runs[0].Path)
}

func TestRunDrawsSeedWhenZero(t *testing.T) {
	dir := t.TempDir()
	cfg := parse(t,
		"-L", "3", "-beta", "0.2", "-steps", "2", "-sample-every", "1",
		"-default-cutoff", "0", "-tau", filepath.Join(dir, "none.txt"),
		"-out", dir,
	)
	var stderr bytes.Buffer
	require.NoError(t, Run(context.Background(), cfg, nil, &stderr))
	require.Contains(t, stderr.String(), "drew random seed")
}

func TestRunRejectsBadLogLevel(t *testing.T) {
	cfg := parse(t, "-L", "3", "-beta", "0.2", "-log-level", "loud")
	require.Error(t, Run(context.Background(), cfg, nil, nil))
}
