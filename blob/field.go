// Package blob drives the slow ornamental dye blobs that keep the ambient
// layer alive when the pointer is idle. Blobs are ECS entities wandering
// on simplex noise; each one continuously splats a little dye into layer A.
package blob

import (
	"math/rand"

	"github.com/mlange-42/ark/ecs"
	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/quellon/driftpane/config"
	"github.com/quellon/driftpane/fluid"
)

// Position is a blob's center in grid cells.
type Position struct {
	X, Y float32
}

// Velocity is the blob's drift in grid cells per second.
type Velocity struct {
	X, Y float32
}

// Blob holds the per-blob shape parameters.
type Blob struct {
	Radius    float32
	Intensity float32
	Phase     float64 // noise-field offset, fixed per blob
}

// Field owns the blob entities and their motion.
type Field struct {
	world  *ecs.World
	mapper *ecs.Map3[Position, Velocity, Blob]
	filter ecs.Filter3[Position, Velocity, Blob]

	noise opensimplex.Noise
	speed float32
	w, h  int
	time  float64
}

// NewField spawns cfg.Count blobs scattered over a w x h grid.
func NewField(cfg config.BlobConfig, w, h int, seed int64) *Field {
	world := ecs.NewWorld()
	f := &Field{
		world:  world,
		mapper: ecs.NewMap3[Position, Velocity, Blob](world),
		filter: *ecs.NewFilter3[Position, Velocity, Blob](world),
		noise:  opensimplex.New(seed),
		speed:  float32(cfg.Speed),
		w:      w,
		h:      h,
	}

	rng := rand.New(rand.NewSource(seed))
	minR := float32(cfg.MinRadius)
	maxR := float32(cfg.MaxRadius)
	if maxR < minR {
		maxR = minR
	}
	for i := 0; i < cfg.Count; i++ {
		pos := &Position{
			X: rng.Float32() * float32(w),
			Y: rng.Float32() * float32(h),
		}
		vel := &Velocity{}
		b := &Blob{
			Radius:    minR + rng.Float32()*(maxR-minR),
			Intensity: 0.4 + rng.Float32()*0.6,
			Phase:     rng.Float64() * 1000,
		}
		f.mapper.NewEntity(pos, vel, b)
	}
	return f
}

// Step advances every blob along the noise field, wrapping at the grid
// edges so the population density stays constant.
func (f *Field) Step(dt float32) {
	f.time += float64(dt)

	query := f.filter.Query()
	for query.Next() {
		pos, vel, b := query.Get()

		// Two decorrelated noise channels give a curl-ish wander.
		nx := f.noise.Eval3(float64(pos.X)*0.02, float64(pos.Y)*0.02, f.time*0.1+b.Phase)
		ny := f.noise.Eval3(float64(pos.Y)*0.02, float64(pos.X)*0.02, f.time*0.1-b.Phase)
		vel.X = float32(nx) * f.speed
		vel.Y = float32(ny) * f.speed

		pos.X += vel.X * dt
		pos.Y += vel.Y * dt
		pos.X = wrap(pos.X, float32(f.w))
		pos.Y = wrap(pos.Y, float32(f.h))
	}
}

// Splat deposits each blob's dye into layer A with the same linear
// falloff the pointer forcing uses. The solver's clamp keeps repeated
// deposits from blowing out.
func (f *Field) Splat(g *fluid.Grid) {
	query := f.filter.Query()
	for query.Next() {
		pos, _, b := query.Get()
		amount := b.Intensity * 24
		fluid.SplatScalar(g, g.A, pos.X, pos.Y, amount, amount, amount, b.Radius)
	}
}

// Each visits every blob, for renderers that splat on their own surface
// instead of a CPU grid.
func (f *Field) Each(fn func(x, y, radius, intensity float32)) {
	query := f.filter.Query()
	for query.Next() {
		pos, _, b := query.Get()
		fn(pos.X, pos.Y, b.Radius, b.Intensity)
	}
}

// Count returns the live blob count.
func (f *Field) Count() int {
	n := 0
	query := f.filter.Query()
	for query.Next() {
		n++
	}
	return n
}

func wrap(v, max float32) float32 {
	for v < 0 {
		v += max
	}
	for v >= max {
		v -= max
	}
	return v
}
