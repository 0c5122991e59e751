package fluid

import (
	"math"
	"math/rand"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// PointerSnapshot is the per-tick read-only pointer sample supplied by the
// host. Coordinates and velocity are in viewport space; mapping into grid
// space happens against the panel bounds when the forcing is applied.
type PointerSnapshot struct {
	X, Y       float32
	VelX, VelY float32
	Speed      float32
	Inside     bool
}

// Bounds is the panel's bounding box in viewport coordinates.
type Bounds struct {
	X, Y, W, H float32
}

// Forcing converts pointer state into localized velocity and dye splats on
// layer B. Layer A never receives pointer input.
type Forcing struct {
	// ForceScale multiplies the grid-space pointer velocity.
	ForceScale float32
	// Radius is the splat radius in grid cells; the linear falloff reaches
	// exactly zero there.
	Radius float32
	// DeadZone is the minimum pointer speed (viewport units/s) below which
	// no injection happens.
	DeadZone float32
	// DyeAmount scales dye injection at the splat center.
	DyeAmount float32
	// JitterAmp is the per-sample ramp jitter amplitude that breaks up
	// banding.
	JitterAmp float64
	// ReducedMotion suppresses all pointer forcing.
	ReducedMotion bool

	Ramp *Ramp

	noise opensimplex.Noise
	rng   *rand.Rand
	phase float64
}

// NewForcing builds a pointer forcing unit. The seed fixes both the ramp
// drift noise and the per-sample jitter so scripted runs are reproducible.
func NewForcing(ramp *Ramp, seed int64) *Forcing {
	return &Forcing{
		ForceScale: 0.6,
		Radius:     24,
		DeadZone:   2,
		DyeAmount:  160,
		JitterAmp:  0.04,
		Ramp:       ramp,
		noise:      opensimplex.NewNormalized(seed),
		rng:        rand.New(rand.NewSource(seed)),
	}
}

// Apply maps the pointer snapshot into grid space and splats force and dye
// into layer B. It must run before the tick's solver step.
func (f *Forcing) Apply(g *Grid, ptr PointerSnapshot, bounds Bounds, dt float32) {
	if f.ReducedMotion || !ptr.Inside || ptr.Speed <= f.DeadZone {
		f.phase += float64(dt) * 0.1
		return
	}
	if bounds.W <= 0 || bounds.H <= 0 {
		return
	}

	sx := float32(g.W) / bounds.W
	sy := float32(g.H) / bounds.H
	gx := (ptr.X - bounds.X) * sx
	gy := (ptr.Y - bounds.Y) * sy
	fx := ptr.VelX * sx * f.ForceScale
	fy := ptr.VelY * sy * f.ForceScale

	f.phase += float64(dt) * 0.1
	rampT := f.noise.Eval2(f.phase, 0)
	cr, cg, cb := f.Ramp.At255(rampT)

	f.SplatForce(g.B, g, gx, gy, fx, fy, f.Radius)
	f.SplatDye(g.B, g, gx, gy, cr, cg, cb, f.Radius)
}

// SplatForce adds a velocity impulse with linear radial falloff that is
// exactly zero at distance >= radius.
func (f *Forcing) SplatForce(l *Layer, g *Grid, cx, cy, fx, fy, radius float32) {
	u := l.U.Read()
	v := l.V.Read()
	forEachInRadius(g, cx, cy, radius, func(i int, falloff float32) {
		u[i] += fx * falloff
		v[i] += fy * falloff
	})
	setBoundary(u, g.W, g.H, FieldHorizontal)
	setBoundary(v, g.W, g.H, FieldVertical)
}

// SplatDye injects ramp-sampled dye with the same radial falloff, jittered
// per sample and clamped to [0,255].
func (f *Forcing) SplatDye(l *Layer, g *Grid, cx, cy, cr, cg, cb, radius float32) {
	dr := l.DyeR.Read()
	dg := l.DyeG.Read()
	db := l.DyeB.Read()
	amt := f.DyeAmount / 255
	forEachInRadius(g, cx, cy, radius, func(i int, falloff float32) {
		jitter := 1 + float32((f.rng.Float64()*2-1)*f.JitterAmp)
		k := amt * falloff * jitter
		dr[i] = clampDye(dr[i] + cr*k)
		dg[i] = clampDye(dg[i] + cg*k)
		db[i] = clampDye(db[i] + cb*k)
	})
	setBoundary(dr, g.W, g.H, FieldScalar)
	setBoundary(dg, g.W, g.H, FieldScalar)
	setBoundary(db, g.W, g.H, FieldScalar)
}

// SplatScalar deposits plain dye with radial falloff and no jitter, for
// sources other than the pointer.
func SplatScalar(g *Grid, l *Layer, cx, cy, cr, cg, cb, radius float32) {
	dr := l.DyeR.Read()
	dg := l.DyeG.Read()
	db := l.DyeB.Read()
	forEachInRadius(g, cx, cy, radius, func(i int, falloff float32) {
		dr[i] = clampDye(dr[i] + cr*falloff)
		dg[i] = clampDye(dg[i] + cg*falloff)
		db[i] = clampDye(db[i] + cb*falloff)
	})
	setBoundary(dr, g.W, g.H, FieldScalar)
	setBoundary(dg, g.W, g.H, FieldScalar)
	setBoundary(db, g.W, g.H, FieldScalar)
}

// forEachInRadius visits every interior cell within radius of (cx, cy),
// passing the linear falloff 1 - dist/radius. Bounds are clamped so no
// lookup can leave the interior.
func forEachInRadius(g *Grid, cx, cy, radius float32, fn func(i int, falloff float32)) {
	if radius <= 0 {
		return
	}
	x0 := clampInt(int(cx-radius), 1, g.W-2)
	x1 := clampInt(int(cx+radius)+1, 1, g.W-2)
	y0 := clampInt(int(cy-radius), 1, g.H-2)
	y1 := clampInt(int(cy+radius)+1, 1, g.H-2)

	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			dx := float32(x) - cx
			dy := float32(y) - cy
			dist := float32(math.Sqrt(float64(dx*dx + dy*dy)))
			if dist >= radius {
				continue
			}
			fn(y*g.W+x, 1-dist/radius)
		}
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
