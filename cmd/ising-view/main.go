//go:build ebiten

package main

import (
	"errors"
	"flag"

	"github.com/hajimehoshi/ebiten/v2"

	"ising-mc/internal/app"
	"ising-mc/internal/config"
	"ising-mc/internal/core"
	_ "ising-mc/internal/sims/ising"
)

func main() {
	cfg := app.NewConfig()
	if err := config.ParseEnv(cfg); err != nil {
		config.Exitf("Error: %v", err)
	}
	cfg.Bind(flag.CommandLine)
	flag.Parse()

	factory, ok := core.Sims()[cfg.Sim]
	if !ok {
		config.Exitf("Error: unknown sim %q (have %v)", cfg.Sim, core.SimNames())
	}

	sim := factory(cfg.SimOptions())
	sim.Reset(cfg.Seed)

	game := app.New(sim, cfg)
	w, h := game.Layout(0, 0)

	ebiten.SetWindowTitle("ising-view: " + sim.Name())
	ebiten.SetTPS(cfg.TPS)
	ebiten.SetWindowSize(w, h)

	if err := ebiten.RunGame(game); err != nil && !errors.Is(err, ebiten.Termination) {
		config.Exitf("Error: %v", err)
	}
}
