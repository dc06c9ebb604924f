package render

import "image/color"

// SpinColors are the fill colours for up and down spins.
type SpinColors struct {
	Up   color.RGBA
	Down color.RGBA
}

// DefaultSpinColors paints up spins warm and down spins cold.
var DefaultSpinColors = SpinColors{
	Up:   color.RGBA{R: 236, G: 92, B: 64, A: 255},
	Down: color.RGBA{R: 36, G: 64, B: 128, A: 255},
}

// fillSpinRGBA converts display cells (1 up, 0 down) into RGBA pixels in buf.
func fillSpinRGBA(buf []byte, cells []uint8, colors SpinColors) {
	for i, c := range cells {
		col := colors.Down
		if c != 0 {
			col = colors.Up
		}
		base := i * 4
		buf[base+0] = col.R
		buf[base+1] = col.G
		buf[base+2] = col.B
		buf[base+3] = col.A
	}
}

// fillWallRGBA tints each site by its anti-aligned neighbour count (0..4).
// Sites inside a domain stay fully transparent.
func fillWallRGBA(buf []byte, walls []uint8, tint color.RGBA) {
	for i, w := range walls {
		if w > 4 {
			w = 4
		}
		base := i * 4
		if w == 0 {
			buf[base+0] = 0
			buf[base+1] = 0
			buf[base+2] = 0
			buf[base+3] = 0
			continue
		}
		// Premultiplied alpha: ebiten images expect colour scaled by alpha.
		alpha := uint16(tint.A) * uint16(w) / 4
		buf[base+0] = uint8(uint16(tint.R) * alpha / 255)
		buf[base+1] = uint8(uint16(tint.G) * alpha / 255)
		buf[base+2] = uint8(uint16(tint.B) * alpha / 255)
		buf[base+3] = uint8(alpha)
	}
}
