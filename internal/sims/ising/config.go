package ising

import (
	"math"
	"strconv"

	"ising-mc/internal/core"
)

// BetaCritical is the exact critical inverse temperature of the square-lattice
// Ising model, ln(1+√2)/2.
const BetaCritical = 0.4406867935

// Schedule selects how a simulation step visits the lattice.
type Schedule string

const (
	// ScheduleSweep makes one step a full row-major sweep.
	ScheduleSweep Schedule = "sweep"
	// ScheduleSequential makes one step a single-site update at step mod L².
	ScheduleSequential Schedule = "sequential"
)

// Valid reports whether s is a known schedule.
func (s Schedule) Valid() bool {
	return s == ScheduleSweep || s == ScheduleSequential
}

// Config holds the parameters of a single (L, beta) simulation.
type Config struct {
	L        int
	Beta     float64
	Seed     int64
	Sequence uint64
	Schedule Schedule
}

// DefaultConfig returns the standard configuration.
func DefaultConfig() Config {
	return Config{
		L:        128,
		Beta:     BetaCritical,
		Seed:     42,
		Sequence: 54,
		Schedule: ScheduleSweep,
	}
}

// FromMap populates a Config from a string map (flag-style key/value pairs).
// Unparseable or out-of-range values keep their defaults.
func FromMap(cfg map[string]string) Config {
	c := DefaultConfig()
	if cfg == nil {
		return c
	}
	if v, ok := cfg["L"]; ok {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 && parsed <= core.MaxSide {
			c.L = parsed
		}
	}
	if v, ok := cfg["beta"]; ok {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil && parsed >= 0 && !math.IsInf(parsed, 0) {
			c.Beta = parsed
		}
	}
	if v, ok := cfg["seed"]; ok {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Seed = parsed
		}
	}
	if v, ok := cfg["seq"]; ok {
		if parsed, err := strconv.ParseUint(v, 10, 64); err == nil {
			c.Sequence = parsed
		}
	}
	if v, ok := cfg["schedule"]; ok {
		if s := Schedule(v); s.Valid() {
			c.Schedule = s
		}
	}
	return c
}
