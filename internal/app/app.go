//go:build ebiten

package app

import (
	"time"

	"ising-mc/internal/core"
	"ising-mc/internal/render"
	"ising-mc/internal/ui"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

// Game adapts a core simulation to the ebiten.Game interface.
type Game struct {
	sim     core.Sim
	painter *render.GridPainter
	hud     *ui.HUD
	overlay *ui.Overlay
	colors  render.SpinColors

	scale         int
	hudWidth      int
	stepsPerFrame int
	paused        bool
	tickOnce      bool
	seed          int64
}

// New constructs a Game for the provided simulation.
func New(sim core.Sim, cfg *Config) *Game {
	size := sim.Size()
	steps := cfg.StepsPerFrame
	if steps < 1 {
		steps = 1
	}
	return &Game{
		sim:           sim,
		painter:       render.NewGridPainter(size.W, size.H),
		hud:           ui.NewHUD(sim, cfg.HUDWidth),
		overlay:       ui.NewOverlay(sim, cfg.Scale),
		colors:        render.DefaultSpinColors,
		scale:         cfg.Scale,
		hudWidth:      cfg.HUDWidth,
		stepsPerFrame: steps,
		seed:          cfg.Seed,
	}
}

// Reset reinitializes the simulation state with the provided seed.
func (g *Game) Reset(seed int64) {
	g.seed = seed
	g.sim.Reset(seed)
	g.tickOnce = false
}

// Update handles per-frame input and advances the simulation.
func (g *Game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyQ) || inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		g.paused = !g.paused
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEnter) {
		g.paused = false
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyN) {
		g.tickOnce = true
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		g.Reset(g.seed)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyS) {
		g.Reset(time.Now().UnixNano())
	}

	g.hud.Update(g.sim.Size().W * g.scale)

	switch {
	case g.tickOnce:
		g.sim.Step()
		g.tickOnce = false
	case !g.paused:
		for i := 0; i < g.stepsPerFrame; i++ {
			g.sim.Step()
		}
	}
	g.overlay.Update()
	return nil
}

// Draw renders the lattice, the overlay and the HUD.
func (g *Game) Draw(screen *ebiten.Image) {
	g.painter.BlitSpins(screen, g.sim.Cells(), g.colors, g.scale)
	g.overlay.Draw(screen)
	g.hud.Draw(screen, g.sim.Size().W*g.scale, g.scale)
}

// Layout returns the logical screen size: the scaled lattice plus the HUD.
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	s := g.sim.Size()
	return s.W*g.scale + g.hudWidth, s.H * g.scale
}
