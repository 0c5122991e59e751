package fluid

import (
	"math"
	"testing"

	"github.com/lucasb-eyer/go-colorful"
)

func TestRampEndpoints(t *testing.T) {
	r := testRamp(t)
	if c := r.At(-0.5); c != r.stops[0].Color {
		t.Errorf("t below 0 should return first stop, got %v", c)
	}
	if c := r.At(1.5); c != r.stops[len(r.stops)-1].Color {
		t.Errorf("t above 1 should return last stop, got %v", c)
	}
}

func TestRampMidpointIsLinearBlend(t *testing.T) {
	r, err := NewRamp([]RampStop{
		{T: 0, Color: colorful.Color{R: 0, G: 0, B: 0}},
		{T: 1, Color: colorful.Color{R: 1, G: 0.5, B: 0.2}},
	})
	if err != nil {
		t.Fatal(err)
	}
	c := r.At(0.5)
	for name, got := range map[string]float64{"R": c.R - 0.5, "G": c.G - 0.25, "B": c.B - 0.1} {
		if math.Abs(got) > 1e-9 {
			t.Errorf("channel %s off by %g at midpoint", name, got)
		}
	}
}

func TestRampSortsStops(t *testing.T) {
	r, err := NewRamp([]RampStop{
		{T: 1, Color: colorful.Color{R: 1}},
		{T: 0, Color: colorful.Color{B: 1}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if r.At(0).B != 1 {
		t.Error("stops were not sorted by position")
	}
}

func TestRampRejectsBadInput(t *testing.T) {
	if _, err := NewRamp([]RampStop{{T: 0}}); err == nil {
		t.Error("expected error for single stop")
	}
	if _, err := NewRamp([]RampStop{{T: -0.1}, {T: 1}}); err == nil {
		t.Error("expected error for out-of-range position")
	}
}

func TestAt255Scaling(t *testing.T) {
	r := testRamp(t)
	cr, cg, cb := r.At255(1)
	last := r.stops[len(r.stops)-1].Color
	if cr != float32(last.R*255) || cg != float32(last.G*255) || cb != float32(last.B*255) {
		t.Errorf("At255(1) = (%f,%f,%f), want last stop scaled", cr, cg, cb)
	}
}
