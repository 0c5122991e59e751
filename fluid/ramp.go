package fluid

import (
	"fmt"
	"sort"

	"github.com/lucasb-eyer/go-colorful"
)

// RampStop is one anchor of a multi-stop color ramp, positioned at T in
// [0,1].
type RampStop struct {
	T     float64
	Color colorful.Color
}

// Ramp maps a normalized intensity to a color by linear interpolation
// between the two bracketing stops.
type Ramp struct {
	stops []RampStop
}

// NewRamp builds a ramp from at least two stops. Stops are sorted by T;
// positions outside [0,1] are rejected.
func NewRamp(stops []RampStop) (*Ramp, error) {
	if len(stops) < 2 {
		return nil, fmt.Errorf("ramp needs at least 2 stops, got %d", len(stops))
	}
	sorted := make([]RampStop, len(stops))
	copy(sorted, stops)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].T < sorted[j].T })
	for _, st := range sorted {
		if st.T < 0 || st.T > 1 {
			return nil, fmt.Errorf("ramp stop position %f outside [0,1]", st.T)
		}
	}
	return &Ramp{stops: sorted}, nil
}

// MustParseRamp builds a ramp from hex colors at the given positions,
// panicking on malformed input. Intended for config defaults.
func MustParseRamp(positions []float64, hexes []string) *Ramp {
	if len(positions) != len(hexes) {
		panic("ramp: positions and colors length mismatch")
	}
	stops := make([]RampStop, len(positions))
	for i := range positions {
		c, err := colorful.Hex(hexes[i])
		if err != nil {
			panic(fmt.Sprintf("ramp: bad color %q: %v", hexes[i], err))
		}
		stops[i] = RampStop{T: positions[i], Color: c}
	}
	r, err := NewRamp(stops)
	if err != nil {
		panic(err)
	}
	return r
}

// At returns the interpolated color for t, clamping t to [0,1]. Before the
// first stop or after the last one the nearest stop color is returned.
func (r *Ramp) At(t float64) colorful.Color {
	if t <= r.stops[0].T {
		return r.stops[0].Color
	}
	last := r.stops[len(r.stops)-1]
	if t >= last.T {
		return last.Color
	}
	for i := 1; i < len(r.stops); i++ {
		if t <= r.stops[i].T {
			lo := r.stops[i-1]
			hi := r.stops[i]
			span := hi.T - lo.T
			if span <= 0 {
				return hi.Color
			}
			return lo.Color.BlendRgb(hi.Color, (t-lo.T)/span)
		}
	}
	return last.Color
}

// At255 returns the interpolated color scaled to dye range [0,255].
func (r *Ramp) At255(t float64) (cr, cg, cb float32) {
	c := r.At(t)
	return float32(c.R * 255), float32(c.G * 255), float32(c.B * 255)
}
