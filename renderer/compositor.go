// Package renderer turns the simulated dye fields into pixels. It carries
// two interchangeable backends: a pure-CPU path that composites into a
// pixel buffer, and a GPU path that runs the solver itself in fragment
// shaders over float render targets.
package renderer

import (
	"image/color"

	"github.com/quellon/driftpane/fluid"
)

// Compositor blends the two dye layers into an opaque RGBA buffer at
// output resolution. Layer A sits under layer B; each layer's pixel alpha
// comes from its dye intensity scaled by the layer opacity, with the color
// looked up on the layer's ramp.
type Compositor struct {
	outW, outH int

	rampA, rampB       *fluid.Ramp
	opacityA, opacityB float32

	pix []color.RGBA
}

// NewCompositor builds a compositor for the given output resolution.
func NewCompositor(outW, outH int, rampA, rampB *fluid.Ramp, opacityA, opacityB float64) *Compositor {
	return &Compositor{
		outW:     outW,
		outH:     outH,
		rampA:    rampA,
		rampB:    rampB,
		opacityA: float32(opacityA),
		opacityB: float32(opacityB),
		pix:      make([]color.RGBA, outW*outH),
	}
}

// Size returns the output resolution.
func (c *Compositor) Size() (int, int) { return c.outW, c.outH }

// Compose samples both layers bilinearly at every output pixel and blends
// them over black. The returned slice is reused across calls.
func (c *Compositor) Compose(g *fluid.Grid) []color.RGBA {
	sx := float32(g.W) / float32(c.outW)
	sy := float32(g.H) / float32(c.outH)

	for y := 0; y < c.outH; y++ {
		gy := (float32(y)+0.5)*sy - 0.5
		for x := 0; x < c.outW; x++ {
			gx := (float32(x)+0.5)*sx - 0.5

			r, gg, b := c.layerColor(g, g.A, c.rampA, c.opacityA, gx, gy, 0, 0, 0)
			r, gg, b = c.layerColor(g, g.B, c.rampB, c.opacityB, gx, gy, r, gg, b)

			c.pix[y*c.outW+x] = color.RGBA{
				R: clamp8(r),
				G: clamp8(gg),
				B: clamp8(b),
				A: 255,
			}
		}
	}
	return c.pix
}

// layerColor samples one layer's dye at (gx, gy) and alpha-blends its ramp
// color over the accumulated background.
func (c *Compositor) layerColor(g *fluid.Grid, l *fluid.Layer, ramp *fluid.Ramp, opacity float32, gx, gy, br, bg, bb float32) (float32, float32, float32) {
	dr := sampleBilinear(l.DyeR.Read(), g.W, g.H, gx, gy)
	dg := sampleBilinear(l.DyeG.Read(), g.W, g.H, gx, gy)
	db := sampleBilinear(l.DyeB.Read(), g.W, g.H, gx, gy)

	t := float64((dr + dg + db) / (3 * 255))
	if t <= 0 {
		return br, bg, bb
	}
	if t > 1 {
		t = 1
	}

	cr, cg, cb := ramp.At255(t)
	a := float32(t) * opacity
	return br*(1-a) + cr*a,
		bg*(1-a) + cg*a,
		bb*(1-a) + cb*a
}

// sampleBilinear interpolates a scalar field at fractional grid
// coordinates, clamping at the edges.
func sampleBilinear(f []float32, w, h int, x, y float32) float32 {
	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}
	if x > float32(w-1) {
		x = float32(w - 1)
	}
	if y > float32(h-1) {
		y = float32(h - 1)
	}

	x0 := int(x)
	y0 := int(y)
	x1 := x0 + 1
	y1 := y0 + 1
	if x1 > w-1 {
		x1 = w - 1
	}
	if y1 > h-1 {
		y1 = h - 1
	}
	fx := x - float32(x0)
	fy := y - float32(y0)

	v00 := f[y0*w+x0]
	v10 := f[y0*w+x1]
	v01 := f[y1*w+x0]
	v11 := f[y1*w+x1]

	v0 := v00 + (v10-v00)*fx
	v1 := v01 + (v11-v01)*fx
	return v0 + (v1-v0)*fy
}

func clamp8(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}
