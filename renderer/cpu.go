package renderer

import (
	"image/color"
	"time"

	"github.com/quellon/driftpane/blob"
	"github.com/quellon/driftpane/config"
	"github.com/quellon/driftpane/fluid"
)

// Presenter pushes a composed frame to the display. The headless runner
// supplies a no-op implementation.
type Presenter interface {
	Present(pix []color.RGBA, w, h int)
	Close()
}

// NullPresenter discards frames.
type NullPresenter struct{}

func (NullPresenter) Present([]color.RGBA, int, int) {}
func (NullPresenter) Close()                         {}

// CPUBackend runs the solver and compositor entirely on the CPU. It is
// the universal fallback when no usable float render target exists.
type CPUBackend struct {
	cfg     *config.Config
	seed    int64
	present Presenter

	grid    *fluid.Grid
	solver  *fluid.Solver
	forcing *fluid.Forcing
	blobs   *blob.Field

	comp    *Compositor
	bloom   *Bloom
	feather *Feather
}

// NewCPUBackend wires a CPU backend against the given presenter. Buffers
// are not allocated until Allocate runs.
func NewCPUBackend(cfg *config.Config, present Presenter) *CPUBackend {
	if present == nil {
		present = NullPresenter{}
	}
	seed := cfg.Sim.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	b := &CPUBackend{cfg: cfg, seed: seed, present: present}
	if cfg.Effects.Bloom.Enabled {
		b.bloom = NewBloom(cfg.Effects.Bloom.Downsample, cfg.Effects.Bloom.Passes, cfg.Effects.Bloom.Strength)
	}
	if cfg.Effects.Feather.Enabled {
		b.feather = NewFeather(cfg.Effects.Feather.Edge, cfg.Effects.Feather.Width, cfg.Derived.FeatherColor)
	}
	return b
}

func (b *CPUBackend) Name() string { return "cpu" }

// dynamicsFrom maps a layer's tuning onto solver parameters. Reduced
// motion zeroes the ambient drift; buoyancy stays, since rising dye alone
// reads as calm.
func dynamicsFrom(lc config.LayerConfig, reducedMotion bool) fluid.LayerDynamics {
	d := fluid.LayerDynamics{
		Viscosity:    float32(lc.Viscosity),
		DyeDiffusion: float32(lc.DyeDiffusion),
		Buoyancy:     float32(lc.Buoyancy),
		DriftX:       float32(lc.DriftX),
		DriftY:       float32(lc.DriftY),
	}
	if reducedMotion {
		d.DriftX = 0
		d.DriftY = 0
	}
	return d
}

func (b *CPUBackend) Allocate(w, h, iterations int) error {
	b.grid = fluid.NewGrid(w, h)
	b.solver = fluid.NewSolver(b.grid, iterations,
		dynamicsFrom(b.cfg.LayerA, b.cfg.Sim.ReducedMotion),
		dynamicsFrom(b.cfg.LayerB, b.cfg.Sim.ReducedMotion),
	)

	if b.forcing == nil {
		f := fluid.NewForcing(b.cfg.Derived.RampB, b.seed)
		f.ForceScale = float32(b.cfg.Forcing.ForceScale)
		f.Radius = float32(b.cfg.Forcing.Radius)
		f.DeadZone = float32(b.cfg.Forcing.DeadZone)
		f.DyeAmount = float32(b.cfg.Forcing.DyeAmount)
		f.JitterAmp = b.cfg.Forcing.JitterAmp
		f.ReducedMotion = b.cfg.Sim.ReducedMotion
		b.forcing = f
	}

	if b.cfg.Blob.Enabled {
		b.blobs = blob.NewField(b.cfg.Blob, w, h, b.seed)
	}

	if b.comp == nil {
		b.comp = NewCompositor(
			b.cfg.Screen.Width, b.cfg.Screen.Height,
			b.cfg.Derived.RampA, b.cfg.Derived.RampB,
			b.cfg.LayerA.Opacity, b.cfg.LayerB.Opacity,
		)
	}
	return nil
}

// Resize releases the old grid before allocating the new one, so at no
// point do two full-size grids coexist.
func (b *CPUBackend) Resize(w, h, iterations int) error {
	if b.grid != nil {
		b.grid.Release()
		b.grid = nil
	}
	return b.Allocate(w, h, iterations)
}

func (b *CPUBackend) ApplyPointer(ptr fluid.PointerSnapshot, bounds fluid.Bounds, dt float32) {
	b.forcing.Apply(b.grid, ptr, bounds, dt)
}

func (b *CPUBackend) Step(dt float32) error {
	if b.blobs != nil {
		b.blobs.Step(dt)
		b.blobs.Splat(b.grid)
	}
	b.solver.Step(dt)
	return nil
}

func (b *CPUBackend) Render() error {
	pix := b.comp.Compose(b.grid)
	w, h := b.comp.Size()
	if b.bloom != nil {
		b.bloom.Apply(pix, w, h)
	}
	if b.feather != nil {
		b.feather.Apply(pix, w, h)
	}
	b.present.Present(pix, w, h)
	return nil
}

func (b *CPUBackend) Destroy() {
	if b.grid != nil {
		b.grid.Release()
		b.grid = nil
	}
	b.solver = nil
	b.blobs = nil
}
