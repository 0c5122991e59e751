package renderer

import (
	"image/color"
	"testing"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/quellon/driftpane/fluid"
)

func mustColor(t *testing.T, hex string) colorful.Color {
	t.Helper()
	c, err := colorful.Hex(hex)
	if err != nil {
		t.Fatalf("parsing %q: %v", hex, err)
	}
	return c
}

func grayRamp() *fluid.Ramp {
	return fluid.MustParseRamp([]float64{0, 1}, []string{"#000000", "#ffffff"})
}

func redRamp() *fluid.Ramp {
	return fluid.MustParseRamp([]float64{0, 1}, []string{"#000000", "#ff0000"})
}

func fillDye(l *fluid.Layer, v float32) {
	for _, buf := range []*fluid.DoubleBuffer{l.DyeR, l.DyeG, l.DyeB} {
		f := buf.Read()
		for i := range f {
			f[i] = v
		}
	}
}

func TestComposeEmptyGridIsBlack(t *testing.T) {
	g := fluid.NewGrid(16, 9)
	c := NewCompositor(32, 18, grayRamp(), grayRamp(), 1, 1)

	pix := c.Compose(g)
	for i, p := range pix {
		if p.R != 0 || p.G != 0 || p.B != 0 || p.A != 255 {
			t.Fatalf("pixel %d = %+v, want opaque black", i, p)
		}
	}
}

func TestComposeSaturatedLayerHitsRampEnd(t *testing.T) {
	g := fluid.NewGrid(16, 9)
	fillDye(g.B, 255)
	c := NewCompositor(32, 18, grayRamp(), redRamp(), 1, 1)

	pix := c.Compose(g)
	p := pix[len(pix)/2]
	if p.R != 255 || p.G != 0 || p.B != 0 {
		t.Fatalf("saturated layer B pixel = %+v, want pure ramp-end red", p)
	}
}

func TestComposeLayerBCoversLayerA(t *testing.T) {
	g := fluid.NewGrid(16, 9)
	fillDye(g.A, 255)
	fillDye(g.B, 255)
	c := NewCompositor(32, 18, grayRamp(), redRamp(), 1, 1)

	pix := c.Compose(g)
	p := pix[len(pix)/2]
	// Full-intensity B at opacity 1 hides A entirely.
	if p.R != 255 || p.G != 0 || p.B != 0 {
		t.Fatalf("pixel = %+v, want layer B's red on top", p)
	}
}

func TestComposeOpacityScalesCoverage(t *testing.T) {
	g := fluid.NewGrid(16, 9)
	fillDye(g.B, 255)

	full := NewCompositor(32, 18, grayRamp(), grayRamp(), 1, 1)
	half := NewCompositor(32, 18, grayRamp(), grayRamp(), 1, 0.5)

	pf := full.Compose(g)[0]
	ph := half.Compose(g)[0]
	if ph.R >= pf.R {
		t.Fatalf("half opacity pixel %d not darker than full opacity %d", ph.R, pf.R)
	}
}

func TestSampleBilinearInterpolatesMidpoint(t *testing.T) {
	f := []float32{
		0, 100,
		0, 100,
	}
	got := sampleBilinear(f, 2, 2, 0.5, 0.5)
	if got != 50 {
		t.Fatalf("midpoint sample = %v, want 50", got)
	}
	if v := sampleBilinear(f, 2, 2, -3, 10); v != 0 {
		t.Fatalf("out-of-range sample = %v, want clamped corner 0", v)
	}
}

func TestFeatherFlattensEdge(t *testing.T) {
	const w, h = 8, 8
	pix := make([]color.RGBA, w*h)
	for i := range pix {
		pix[i] = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	}

	f := NewFeather("bottom", 4, mustColor(t, "#000000"))
	f.Apply(pix, w, h)

	if p := pix[(h-1)*w]; p.R != 0 {
		t.Fatalf("bottom edge pixel = %+v, want flat target color", p)
	}
	if p := pix[0]; p.R != 255 {
		t.Fatalf("far edge pixel = %+v, want untouched white", p)
	}
	// Monotonic fade within the band.
	prev := pix[(h-1)*w].R
	for y := h - 2; y >= h-4; y-- {
		cur := pix[y*w].R
		if cur < prev {
			t.Fatalf("feather fade not monotonic at row %d", y)
		}
		prev = cur
	}
}
