//go:build ebiten

package render

import (
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
)

// GridPainter uploads per-site data into a single image and draws it scaled.
type GridPainter struct {
	w, h int
	img  *ebiten.Image
	buf  []byte
}

// NewGridPainter allocates a painter for a grid of size w*h.
func NewGridPainter(w, h int) *GridPainter {
	gp := &GridPainter{w: w, h: h, buf: make([]byte, 4*w*h)}
	gp.img = ebiten.NewImage(w, h)
	return gp
}

// BlitSpins draws the spin display buffer.
func (gp *GridPainter) BlitSpins(dst *ebiten.Image, cells []uint8, colors SpinColors, scale int) {
	if len(cells) != gp.w*gp.h {
		return
	}
	fillSpinRGBA(gp.buf, cells, colors)
	gp.draw(dst, scale)
}

// BlitWalls draws domain walls on top of whatever is already in dst.
func (gp *GridPainter) BlitWalls(dst *ebiten.Image, walls []uint8, tint color.RGBA, scale int) {
	if len(walls) != gp.w*gp.h {
		return
	}
	fillWallRGBA(gp.buf, walls, tint)
	gp.draw(dst, scale)
}

func (gp *GridPainter) draw(dst *ebiten.Image, scale int) {
	gp.img.WritePixels(gp.buf)
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(float64(scale), float64(scale))
	dst.DrawImage(gp.img, op)
}

// Size returns the dimensions of the underlying image.
func (gp *GridPainter) Size() (int, int) { return gp.w, gp.h }
