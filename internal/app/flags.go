package app

import (
	"flag"
	"strconv"
)

// Config represents the command-line parameters of the viewer. Environment
// variables provide the defaults that flags then override.
type Config struct {
	Sim           string  `env:"ISING_VIEW_SIM" envDefault:"ising"`
	L             int     `env:"ISING_VIEW_L" envDefault:"128"`
	Beta          float64 `env:"ISING_VIEW_BETA" envDefault:"0.4406867935"`
	Seed          int64   `env:"ISING_VIEW_SEED" envDefault:"42"`
	Sequence      uint64  `env:"ISING_VIEW_SEQ" envDefault:"54"`
	Scale         int     `env:"ISING_VIEW_SCALE" envDefault:"4"`
	TPS           int     `env:"ISING_VIEW_TPS" envDefault:"30"`
	StepsPerFrame int     `env:"ISING_VIEW_STEPS_PER_FRAME" envDefault:"1"`
	HUDWidth      int     `env:"ISING_VIEW_HUD_WIDTH" envDefault:"240"`
}

// NewConfig returns a Config populated with the viewer defaults.
func NewConfig() *Config {
	return &Config{
		Sim:           "ising",
		L:             128,
		Beta:          0.4406867935,
		Seed:          42,
		Sequence:      54,
		Scale:         4,
		TPS:           30,
		StepsPerFrame: 1,
		HUDWidth:      240,
	}
}

// Bind attaches the configuration to the provided FlagSet.
func (c *Config) Bind(fs *flag.FlagSet) {
	fs.StringVar(&c.Sim, "sim", c.Sim, "simulation to run (ising or ising-sequential)")
	fs.IntVar(&c.L, "L", c.L, "lattice side")
	fs.Float64Var(&c.Beta, "beta", c.Beta, "inverse temperature")
	fs.Int64Var(&c.Seed, "seed", c.Seed, "seed for simulation reset")
	fs.Uint64Var(&c.Sequence, "seq", c.Sequence, "PCG sequence selector")
	fs.IntVar(&c.Scale, "scale", c.Scale, "pixel scale multiplier")
	fs.IntVar(&c.TPS, "tps", c.TPS, "ticks per second")
	fs.IntVar(&c.StepsPerFrame, "steps-per-frame", c.StepsPerFrame, "simulation steps per tick")
	fs.IntVar(&c.HUDWidth, "hud", c.HUDWidth, "HUD panel width in pixels (0 hides it)")
}

// SimOptions converts the configuration into the flag-style map sim factories
// accept.
func (c *Config) SimOptions() map[string]string {
	return map[string]string{
		"L":    strconv.Itoa(c.L),
		"beta": strconv.FormatFloat(c.Beta, 'g', -1, 64),
		"seed": strconv.FormatInt(c.Seed, 10),
		"seq":  strconv.FormatUint(c.Sequence, 10),
	}
}
