//go:build ebiten

package ui

import (
	"image/color"

	"ising-mc/internal/core"
	"ising-mc/internal/render"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

type wallProvider interface {
	DomainWalls() []uint8
}

var (
	wallTint   = color.RGBA{R: 255, G: 236, B: 96, A: 220}
	traceColor = color.RGBA{R: 250, G: 250, B: 250, A: 255}
	traceAxis  = color.RGBA{R: 120, G: 120, B: 130, A: 200}
	traceBG    = color.RGBA{R: 0, G: 0, B: 0, A: 140}
)

// Overlay draws optional diagnostics over the lattice: key 1 toggles domain
// walls, key 2 toggles a trace of recent magnetization.
type Overlay struct {
	sim       core.Sim
	scale     int
	showWalls bool
	showTrace bool

	walls    *render.GridPainter
	history  *History
	trace    []float64
	lastStep int64
}

// NewOverlay constructs an overlay for sim drawn at the given scale.
func NewOverlay(sim core.Sim, scale int) *Overlay {
	size := sim.Size()
	return &Overlay{
		sim:      sim,
		scale:    scale,
		walls:    render.NewGridPainter(size.W, size.H),
		history:  NewHistory(traceCapacity),
		lastStep: -1,
	}
}

// Update handles the toggle keys and records magnetization once per step.
func (o *Overlay) Update() {
	if inpututil.IsKeyJustPressed(ebiten.KeyDigit1) {
		o.showWalls = !o.showWalls
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyDigit2) {
		o.showTrace = !o.showTrace
	}
	obs, ok := o.sim.(core.Observer)
	if !ok {
		return
	}
	step := obs.Steps()
	if step < o.lastStep {
		o.history.Reset()
	}
	if step != o.lastStep {
		o.history.Push(obs.Magnetization())
		o.lastStep = step
	}
}

// Draw paints the enabled diagnostics.
func (o *Overlay) Draw(screen *ebiten.Image) {
	if o.showWalls {
		if provider, ok := o.sim.(wallProvider); ok {
			o.walls.BlitWalls(screen, provider.DomainWalls(), wallTint, o.scale)
		}
	}
	if o.showTrace {
		o.drawTrace(screen)
	}
}

func (o *Overlay) drawTrace(screen *ebiten.Image) {
	size := o.sim.Size()
	width := float32(size.W * o.scale)
	height := size.H * o.scale / 4
	if height < 16 {
		height = 16
	}
	top := size.H*o.scale - height

	vector.DrawFilledRect(screen, 0, float32(top), width, float32(height), traceBG, false)
	mid := float32(traceY(0, -1, 1, top, height))
	vector.StrokeLine(screen, 0, mid, width, mid, 1, traceAxis, false)

	o.trace = o.history.Values(o.trace)
	if len(o.trace) < 2 {
		return
	}
	dx := width / float32(o.history.Cap()-1)
	for i := 1; i < len(o.trace); i++ {
		x0 := float32(i-1) * dx
		x1 := float32(i) * dx
		y0 := float32(traceY(o.trace[i-1], -1, 1, top, height))
		y1 := float32(traceY(o.trace[i], -1, 1, top, height))
		vector.StrokeLine(screen, x0, y0, x1, y1, 1.5, traceColor, true)
	}
}

const traceCapacity = 512
