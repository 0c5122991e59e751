package fluid

import (
	"math"
	"math/rand"
	"testing"
)

func fillVelocity(g *Grid, l *Layer, seed int64) {
	fillVelocityPatch(g, l, seed, 0)
}

// fillVelocityPatch randomizes the velocity at least margin cells from the
// border, leaving the rim still.
func fillVelocityPatch(g *Grid, l *Layer, seed int64, margin int) {
	rng := rand.New(rand.NewSource(seed))
	u := l.U.Read()
	v := l.V.Read()
	for y := 1 + margin; y < g.H-1-margin; y++ {
		for x := 1 + margin; x < g.W-1-margin; x++ {
			i := g.Idx(x, y)
			u[i] = rng.Float32()*2 - 1
			v[i] = rng.Float32()*2 - 1
		}
	}
	setBoundary(u, g.W, g.H, FieldHorizontal)
	setBoundary(v, g.W, g.H, FieldVertical)
}

func maxAbsDivergence(s *Solver, l *Layer) float64 {
	var max float64
	for y := 1; y < s.Grid.H-1; y++ {
		for x := 1; x < s.Grid.W-1; x++ {
			d := math.Abs(float64(s.DivergenceAt(l, x, y)))
			if d > max {
				max = d
			}
		}
	}
	return max
}

func TestProjectRestoresDivergenceFree(t *testing.T) {
	g := NewGrid(18, 18)
	s := NewSolver(g, 300, LayerDynamics{}, LayerDynamics{})
	fillVelocityPatch(g, g.B, 7, 3)

	before := maxAbsDivergence(s, g.B)
	if before == 0 {
		t.Fatal("expected nonzero divergence before projection")
	}

	s.project(g.B)

	after := maxAbsDivergence(s, g.B)
	if after > before*0.05 {
		t.Errorf("projection left divergence %g (was %g), want <= %g", after, before, before*0.05)
	}
}

// Simulation grids follow the 16:9 tiers, so projection must apply each
// axis its own cell size. A shared cell size leaves the vertical terms
// mis-scaled by the aspect ratio on any nonsquare grid.
func TestProjectionHandlesNonsquareGrids(t *testing.T) {
	g := NewGrid(34, 20)
	s := NewSolver(g, 600, LayerDynamics{}, LayerDynamics{})
	fillVelocityPatch(g, g.B, 3, 3)
	before := maxAbsDivergence(s, g.B)

	s.project(g.B)

	after := maxAbsDivergence(s, g.B)
	if after > before*0.05 {
		t.Errorf("projection left divergence %g on 34x20 (was %g), want <= %g", after, before, before*0.05)
	}
}

// Projecting over and over has to keep shrinking the residual. A mismatch
// between the divergence, pressure and gradient stencils shows up here as
// the residual settling at a fixed fraction of the starting divergence no
// matter how often the field is projected.
func TestRepeatedProjectionsConverge(t *testing.T) {
	g := NewGrid(18, 18)
	s := NewSolver(g, 300, LayerDynamics{}, LayerDynamics{})
	fillVelocityPatch(g, g.B, 7, 3)
	before := maxAbsDivergence(s, g.B)

	for i := 0; i < 8; i++ {
		s.project(g.B)
	}

	if final := maxAbsDivergence(s, g.B); final > before*0.01 {
		t.Errorf("divergence stuck at %g after 8 projections (started at %g)", final, before)
	}
}

func TestStepKeepsDivergenceSmall(t *testing.T) {
	g := NewGrid(18, 18)
	s := NewSolver(g, 300,
		LayerDynamics{Viscosity: 0.0001},
		LayerDynamics{Viscosity: 0.00005, Buoyancy: -0.8})
	fillVelocityPatch(g, g.B, 11, 3)
	before := maxAbsDivergence(s, g.B)

	s.Step(1.0 / 60.0)

	if after := maxAbsDivergence(s, g.B); after > before*0.05 {
		t.Errorf("post-step divergence %g too large (pre-forcing max was %g)", after, before)
	}
}

func TestDyeStaysClamped(t *testing.T) {
	g := NewGrid(32, 24)
	s := NewSolver(g, 12, LayerDynamics{}, LayerDynamics{Buoyancy: -1.2, DyeDiffusion: 0.00001})
	f := NewForcing(testRamp(t), 3)
	f.DyeAmount = 1e6 // saturate on purpose

	for i := 0; i < 20; i++ {
		f.SplatForce(g.B, g, 16, 12, 3, -2, 8)
		f.SplatDye(g.B, g, 16, 12, 255, 255, 255, 8)
		s.Step(1.0 / 60.0)
	}

	for _, ch := range []*DoubleBuffer{g.B.DyeR, g.B.DyeG, g.B.DyeB} {
		for i, v := range ch.Read() {
			if v < 0 || v > 255 {
				t.Fatalf("dye value %f at cell %d outside [0,255]", v, i)
			}
		}
	}
}

func TestBoundaryRulesAfterStep(t *testing.T) {
	g := NewGrid(24, 20)
	s := NewSolver(g, 16, LayerDynamics{Viscosity: 0.0001}, LayerDynamics{Viscosity: 0.0001})
	fillVelocity(g, g.B, 5)
	f := NewForcing(testRamp(t), 9)
	f.SplatDye(g.B, g, 12, 10, 200, 120, 80, 6)

	s.Step(1.0 / 60.0)

	u := g.B.U.Read()
	v := g.B.V.Read()
	dr := g.B.DyeR.Read()
	for y := 1; y < g.H-1; y++ {
		if got, want := u[g.Idx(0, y)], -u[g.Idx(1, y)]; got != want {
			t.Fatalf("u left edge row %d: got %f, want %f", y, got, want)
		}
		if got, want := dr[g.Idx(0, y)], dr[g.Idx(1, y)]; got != want {
			t.Fatalf("dye left edge row %d: got %f, want %f (no sign flip)", y, got, want)
		}
	}
	for x := 1; x < g.W-1; x++ {
		if got, want := v[g.Idx(x, 0)], -v[g.Idx(x, 1)]; got != want {
			t.Fatalf("v top edge col %d: got %f, want %f", x, got, want)
		}
	}
}

func TestCornerIsAverageOfEdgeNeighbors(t *testing.T) {
	g := NewGrid(8, 8)
	f := make([]float32, g.W*g.H)
	for i := range f {
		f[i] = float32(i)
	}
	setBoundary(f, g.W, g.H, FieldScalar)
	if want := 0.5 * (f[g.Idx(1, 0)] + f[g.Idx(0, 1)]); f[0] != want {
		t.Errorf("corner (0,0) = %f, want %f", f[0], want)
	}
}

// Two independent runs with the same seed and the same scripted forcing
// sequence must produce identical state.
func TestDeterministicReplay(t *testing.T) {
	run := func() *Grid {
		g := NewGrid(40, 30)
		s := NewSolver(g, 10,
			LayerDynamics{Viscosity: 0.0002},
			LayerDynamics{Viscosity: 0.0001, Buoyancy: -1.0, DriftX: 0.05})
		f := NewForcing(testRamp(t), 42)
		bounds := Bounds{X: 0, Y: 0, W: 400, H: 300}
		for i := 0; i < 60; i++ {
			ptr := PointerSnapshot{
				X:      float32(100 + i*3),
				Y:      float32(150 - i),
				VelX:   180,
				VelY:   -60,
				Speed:  190,
				Inside: true,
			}
			f.Apply(g, ptr, bounds, 1.0/60.0)
			s.Step(1.0 / 60.0)
		}
		return g
	}

	a := run()
	b := run()

	pairs := []struct {
		name string
		x, y []float32
	}{
		{"u", a.B.U.Read(), b.B.U.Read()},
		{"v", a.B.V.Read(), b.B.V.Read()},
		{"dyeR", a.B.DyeR.Read(), b.B.DyeR.Read()},
		{"dyeG", a.B.DyeG.Read(), b.B.DyeG.Read()},
		{"dyeB", a.B.DyeB.Read(), b.B.DyeB.Read()},
	}
	for _, p := range pairs {
		for i := range p.x {
			if p.x[i] != p.y[i] {
				t.Fatalf("%s diverged at cell %d: %g vs %g", p.name, i, p.x[i], p.y[i])
			}
		}
	}
}

func TestReducedMotionKeepsFieldsStill(t *testing.T) {
	g := NewGrid(32, 24)
	s := NewSolver(g, 10,
		LayerDynamics{},
		LayerDynamics{}) // drift zeroed along with pointer force
	f := NewForcing(testRamp(t), 1)
	f.ReducedMotion = true
	bounds := Bounds{W: 320, H: 240}

	for i := 0; i < 100; i++ {
		ptr := PointerSnapshot{X: 160, Y: 120, VelX: 500, VelY: 500, Speed: 700, Inside: true}
		f.Apply(g, ptr, bounds, 1.0/60.0)
		s.Step(1.0 / 60.0)
	}

	for _, buf := range []*DoubleBuffer{g.B.U, g.B.V, g.B.DyeR, g.B.DyeG, g.B.DyeB} {
		for i, v := range buf.Read() {
			if v != 0 {
				t.Fatalf("field changed under reduced motion at cell %d: %g", i, v)
			}
		}
	}
}
