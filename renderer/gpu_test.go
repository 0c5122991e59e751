package renderer

import "testing"

// featherBlend mirrors the composite pass: the returned value is the
// feather color's share at a given uv.
func featherBlend(u, v float32, edge string, width, dw, dh int) float32 {
	axisX, axisY, start, invWidth := featherParams(edge, width, dw, dh)
	t := (axisX*u + axisY*v - start) * invWidth
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}

func TestFeatherParamsFadeFromNamedEdge(t *testing.T) {
	const dw, dh, width = 640, 360, 64
	cases := []struct {
		edge    string
		onEdge  [2]float32 // uv on the faded edge
		offEnd  [2]float32 // uv on the opposite edge
		bandEnd [2]float32 // uv exactly width pixels in from the faded edge
	}{
		{"left", [2]float32{0, 0.5}, [2]float32{1, 0.5}, [2]float32{64.0 / 640, 0.5}},
		{"right", [2]float32{1, 0.5}, [2]float32{0, 0.5}, [2]float32{1 - 64.0/640, 0.5}},
		{"top", [2]float32{0.5, 0}, [2]float32{0.5, 1}, [2]float32{0.5, 64.0 / 360}},
		{"bottom", [2]float32{0.5, 1}, [2]float32{0.5, 0}, [2]float32{0.5, 1 - 64.0/360}},
	}
	for _, c := range cases {
		if got := featherBlend(c.onEdge[0], c.onEdge[1], c.edge, width, dw, dh); got < 0.999 {
			t.Errorf("%s: blend on the faded edge = %g, want 1", c.edge, got)
		}
		if got := featherBlend(c.offEnd[0], c.offEnd[1], c.edge, width, dw, dh); got != 0 {
			t.Errorf("%s: blend at the opposite edge = %g, want 0", c.edge, got)
		}
		if got := featherBlend(c.bandEnd[0], c.bandEnd[1], c.edge, width, dw, dh); got > 1e-3 {
			t.Errorf("%s: blend at the band end = %g, want 0", c.edge, got)
		}
	}
}

// The band must fade monotonically and cover only width pixels, not the
// whole screen minus width.
func TestFeatherParamsBandIsNarrow(t *testing.T) {
	const dw, dh, width = 640, 360, 64
	for _, edge := range []string{"left", "top"} {
		inside := featherBlend(0.5, 0.5, edge, width, dw, dh)
		if inside != 0 {
			t.Errorf("%s: screen center blend = %g, want 0", edge, inside)
		}
		mid := featherBlend(32.0/640, 32.0/360, edge, width, dw, dh)
		if mid < 0.4 || mid > 0.6 {
			t.Errorf("%s: blend halfway into the band = %g, want ~0.5", edge, mid)
		}
	}
}
