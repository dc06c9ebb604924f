package render

import (
	"image/color"
	"testing"
)

func TestFillSpinRGBA(t *testing.T) {
	colors := SpinColors{
		Up:   color.RGBA{R: 1, G: 2, B: 3, A: 255},
		Down: color.RGBA{R: 9, G: 8, B: 7, A: 255},
	}
	buf := make([]byte, 12)
	fillSpinRGBA(buf, []uint8{1, 0, 1}, colors)
	want := []byte{1, 2, 3, 255, 9, 8, 7, 255, 1, 2, 3, 255}
	for i := range want {
		if buf[i] != want[i] {
			t.Fatalf("buf = %v, want %v", buf, want)
		}
	}
}

func TestFillWallRGBA(t *testing.T) {
	tint := color.RGBA{R: 255, G: 255, B: 0, A: 200}
	buf := make([]byte, 16)
	for i := range buf {
		buf[i] = 0xAA
	}
	fillWallRGBA(buf, []uint8{0, 2, 4, 9}, tint)

	if buf[0] != 0 || buf[1] != 0 || buf[2] != 0 || buf[3] != 0 {
		t.Fatalf("site inside a domain not cleared: %v", buf[:4])
	}
	if buf[7] != 100 || buf[4] != 100 || buf[6] != 0 {
		t.Fatalf("half wall = %v, want premultiplied alpha 100", buf[4:8])
	}
	if buf[11] != 200 || buf[8] != 200 {
		t.Fatalf("full wall = %v", buf[8:12])
	}
	// Counts above four are clamped.
	for i := 0; i < 4; i++ {
		if buf[12+i] != buf[8+i] {
			t.Fatalf("clamped wall = %v, want %v", buf[12:16], buf[8:12])
		}
	}
}

func TestDefaultSpinColorsDiffer(t *testing.T) {
	if DefaultSpinColors.Up == DefaultSpinColors.Down {
		t.Fatal("up and down spins share a colour")
	}
}
