package renderer

import (
	"image/color"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Feather fades one edge of the frame toward a flat color so the effect
// blends into the surrounding page chrome instead of ending in a hard
// line.
type Feather struct {
	edge   string // left | right | top | bottom
	width  int
	target color.RGBA
}

// NewFeather builds a feather stage toward the given color.
func NewFeather(edge string, width int, target colorful.Color) *Feather {
	r, g, b := target.RGB255()
	return &Feather{
		edge:   edge,
		width:  width,
		target: color.RGBA{R: r, G: g, B: b, A: 255},
	}
}

// Apply blends pixels within the feather band toward the target color,
// fully flat at the edge itself.
func (f *Feather) Apply(pix []color.RGBA, w, h int) {
	if f.width < 1 {
		return
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			d := f.edgeDistance(x, y, w, h)
			if d >= f.width {
				continue
			}
			t := 1 - float32(d)/float32(f.width)
			p := &pix[y*w+x]
			p.R = lerp8(p.R, f.target.R, t)
			p.G = lerp8(p.G, f.target.G, t)
			p.B = lerp8(p.B, f.target.B, t)
		}
	}
}

func (f *Feather) edgeDistance(x, y, w, h int) int {
	switch f.edge {
	case "left":
		return x
	case "right":
		return w - 1 - x
	case "top":
		return y
	default: // bottom
		return h - 1 - y
	}
}

func lerp8(a, b uint8, t float32) uint8 {
	return uint8(float32(a) + (float32(b)-float32(a))*t + 0.5)
}
