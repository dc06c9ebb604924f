//go:build ebiten

package ui

import (
	"fmt"
	"image"
	"image/color"
	"strconv"

	"ising-mc/internal/core"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text"
	"golang.org/x/image/font/basicfont"
)

var (
	panelBG    = color.RGBA{R: 16, G: 16, B: 20, A: 255}
	titleColor = color.RGBA{R: 200, G: 200, B: 210, A: 255}
	labelColor = color.RGBA{R: 220, G: 220, B: 230, A: 255}
	dimColor   = color.RGBA{R: 150, G: 150, B: 160, A: 255}
)

// HUD renders the parameter panel to the right of the lattice: adjustable
// controls with -/+ buttons, then every parameter group the sim reports.
type HUD struct {
	sim        core.Sim
	width      int
	panel      *ebiten.Image
	lastHeight int
	snapshot   core.ParameterSnapshot

	controls     []controlState
	setter       core.FloatParameterSetter
	panelOffsetX int
	title        string

	pixel *ebiten.Image
}

type controlState struct {
	control  core.ParameterControl
	value    float64
	hasValue bool

	top       int
	minusRect image.Rectangle
	plusRect  image.Rectangle
}

// NewHUD constructs a HUD for sim with a panel of the given width.
func NewHUD(sim core.Sim, width int) *HUD {
	if width < 0 {
		width = 0
	}
	h := &HUD{sim: sim, width: width, title: "ising"}
	if sim != nil && sim.Name() != "" {
		h.title = sim.Name()
	}
	if width > 0 {
		h.pixel = ebiten.NewImage(1, 1)
		h.pixel.Fill(color.White)
	}
	if provider, ok := sim.(core.ParameterControlsProvider); ok {
		for _, ctrl := range provider.ParameterControls() {
			if ctrl.Type == core.ParamTypeFloat {
				h.controls = append(h.controls, controlState{control: ctrl})
			}
		}
		h.layoutControls()
	}
	if setter, ok := sim.(core.FloatParameterSetter); ok {
		h.setter = setter
	}
	return h
}

// Update refreshes the snapshot and applies clicks on the -/+ buttons. The
// bracket keys nudge the first control.
func (h *HUD) Update(panelOffsetX int) {
	if h == nil {
		return
	}
	h.panelOffsetX = panelOffsetX
	provider, ok := h.sim.(core.ParameterProvider)
	if !ok {
		h.snapshot = core.ParameterSnapshot{}
		return
	}
	h.snapshot = provider.Parameters()
	h.refreshValues()

	if len(h.controls) > 0 {
		if inpututil.IsKeyJustPressed(ebiten.KeyBracketLeft) {
			h.adjust(&h.controls[0], -1)
		}
		if inpututil.IsKeyJustPressed(ebiten.KeyBracketRight) {
			h.adjust(&h.controls[0], 1)
		}
	}
	if !inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		return
	}
	mx, my := ebiten.CursorPosition()
	px := mx - h.panelOffsetX
	if px < 0 {
		return
	}
	pt := image.Pt(px, my)
	for i := range h.controls {
		state := &h.controls[i]
		switch {
		case pt.In(state.minusRect):
			h.adjust(state, -1)
			return
		case pt.In(state.plusRect):
			h.adjust(state, 1)
			return
		}
	}
}

// Draw paints the panel at offsetX, sized to the scaled lattice height.
func (h *HUD) Draw(screen *ebiten.Image, offsetX int, scale int) {
	if h == nil || h.width <= 0 {
		return
	}
	if scale <= 0 {
		scale = 1
	}
	height := h.sim.Size().H * scale
	if height <= 0 {
		return
	}
	if h.panel == nil || h.lastHeight != height {
		h.panel = ebiten.NewImage(h.width, height)
		h.lastHeight = height
	}
	h.panel.Fill(panelBG)
	y := h.drawControls()
	h.drawSnapshot(y)

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Translate(float64(offsetX), 0)
	screen.DrawImage(h.panel, op)
}

func (h *HUD) refreshValues() {
	for i := range h.controls {
		state := &h.controls[i]
		state.hasValue = false
		p, ok := h.snapshot.Lookup(state.control.Key)
		if !ok {
			continue
		}
		v, err := strconv.ParseFloat(p.Value, 64)
		if err != nil {
			continue
		}
		state.value = v
		state.hasValue = true
	}
}

func (h *HUD) adjust(state *controlState, direction int) {
	if h.setter == nil || !state.hasValue {
		return
	}
	target, ok := nudge(state.control, state.value, direction)
	if !ok {
		return
	}
	if h.setter.SetFloatParameter(state.control.Key, target) {
		state.value = target
	}
}

func (h *HUD) drawControls() int {
	face := basicfont.Face7x13
	text.Draw(h.panel, h.title, face, panelPadding, panelPadding+headerBaseline, titleColor)
	for i := range h.controls {
		state := &h.controls[i]
		labelY := state.top + labelBaseline
		text.Draw(h.panel, state.control.Label, face, panelPadding, labelY, labelColor)

		value := "--"
		valueColor := dimColor
		if state.hasValue {
			value = formatControl(state.control, state.value)
			valueColor = labelColor
		}
		width := text.BoundString(face, value).Dx()
		text.Draw(h.panel, value, face, state.minusRect.Min.X-buttonGap-width, labelY, valueColor)

		_, canLower := nudge(state.control, state.value, -1)
		_, canRaise := nudge(state.control, state.value, 1)
		h.drawButton(state.minusRect, "-", state.hasValue && canLower)
		h.drawButton(state.plusRect, "+", state.hasValue && canRaise)
	}
	return controlsTop + len(h.controls)*lineHeight + sectionGap
}

func (h *HUD) drawSnapshot(y int) {
	face := basicfont.Face7x13
	for _, group := range h.snapshot.Groups {
		text.Draw(h.panel, group.Name, face, panelPadding, y, titleColor)
		y += textLine
		for _, p := range group.Params {
			text.Draw(h.panel, fmt.Sprintf("%-14s %s", p.Label, formatParam(p)), face, panelPadding+indent, y, dimColor)
			y += textLine
		}
		y += textLine / 2
	}
}

func (h *HUD) drawButton(rect image.Rectangle, label string, enabled bool) {
	if h.pixel == nil {
		return
	}
	bg := color.RGBA{R: 54, G: 56, B: 64, A: 255}
	fg := color.RGBA{R: 230, G: 230, B: 240, A: 255}
	if !enabled {
		bg = color.RGBA{R: 32, G: 34, B: 40, A: 255}
		fg = color.RGBA{R: 120, G: 120, B: 130, A: 255}
	}
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(float64(rect.Dx()), float64(rect.Dy()))
	op.GeoM.Translate(float64(rect.Min.X), float64(rect.Min.Y))
	op.ColorScale.ScaleWithColor(bg)
	h.panel.DrawImage(h.pixel, op)

	face := basicfont.Face7x13
	bounds := text.BoundString(face, label)
	x := rect.Min.X + (rect.Dx()-bounds.Dx())/2
	y := rect.Min.Y + (rect.Dy()-bounds.Dy())/2 + bounds.Dy()
	text.Draw(h.panel, label, face, x, y, fg)
}

func (h *HUD) layoutControls() {
	if h.width <= 0 {
		return
	}
	for i := range h.controls {
		top := controlsTop + i*lineHeight
		buttonY := top + (lineHeight-buttonSize)/2
		plus := image.Rect(h.width-panelPadding-buttonSize, buttonY, h.width-panelPadding, buttonY+buttonSize)
		minus := image.Rect(plus.Min.X-buttonGap-buttonSize, buttonY, plus.Min.X-buttonGap, buttonY+buttonSize)
		h.controls[i].top = top
		h.controls[i].minusRect = minus
		h.controls[i].plusRect = plus
	}
}

const (
	panelPadding   = 12
	lineHeight     = 36
	buttonSize     = 24
	buttonGap      = 6
	headerBaseline = 18
	labelBaseline  = 24
	controlsTop    = panelPadding + headerBaseline + 14
	sectionGap     = 18
	textLine       = 16
	indent         = 8
)
