package fluid

// LayerDynamics holds the per-layer physical tuning. Layer A runs with
// higher viscosity, no buoyancy and no drift; layer B is buoyant and
// receives pointer input.
type LayerDynamics struct {
	Viscosity    float32
	DyeDiffusion float32
	// Buoyancy scales the vertical body force from dye density. Negative
	// values push up (grid y grows downward).
	Buoyancy float32
	DriftX   float32
	DriftY   float32
}

// Solver advances a Grid with the stable-fluids scheme: diffuse velocity,
// project, semi-Lagrangian advect, project again, then move the dye. The
// iteration count of the Jacobi relaxations comes from the active quality
// tier.
type Solver struct {
	Grid       *Grid
	Iterations int

	DynA LayerDynamics
	DynB LayerDynamics
}

// NewSolver wraps an allocated grid. Iterations below 1 are raised to 1.
func NewSolver(g *Grid, iterations int, dynA, dynB LayerDynamics) *Solver {
	if iterations < 1 {
		iterations = 1
	}
	return &Solver{Grid: g, Iterations: iterations, DynA: dynA, DynB: dynB}
}

// Step advances both layers by the fixed timestep dt. Forcing for the tick
// must already have been splatted into the layers.
func (s *Solver) Step(dt float32) {
	s.stepLayer(s.Grid.A, s.DynA, dt)
	s.stepLayer(s.Grid.B, s.DynB, dt)
}

func (s *Solver) stepLayer(l *Layer, dyn LayerDynamics, dt float32) {
	s.applyBodyForces(l, dyn, dt)

	s.diffuse(l.U, dyn.Viscosity, FieldHorizontal, dt)
	s.diffuse(l.V, dyn.Viscosity, FieldVertical, dt)
	s.project(l)

	u0 := l.U.Read()
	v0 := l.V.Read()
	s.advect(l.U, u0, v0, dt, FieldHorizontal, false)
	s.advect(l.V, u0, v0, dt, FieldVertical, false)
	s.project(l)

	if dyn.DyeDiffusion > 0 {
		s.diffuse(l.DyeR, dyn.DyeDiffusion, FieldScalar, dt)
		s.diffuse(l.DyeG, dyn.DyeDiffusion, FieldScalar, dt)
		s.diffuse(l.DyeB, dyn.DyeDiffusion, FieldScalar, dt)
	}
	u := l.U.Read()
	v := l.V.Read()
	s.advect(l.DyeR, u, v, dt, FieldScalar, true)
	s.advect(l.DyeG, u, v, dt, FieldScalar, true)
	s.advect(l.DyeB, u, v, dt, FieldScalar, true)
}

// applyBodyForces adds buoyancy from the local dye density plus the
// constant drift vector. Both are uniform-per-step, so they run before the
// diffuse/project/advect sequence.
func (s *Solver) applyBodyForces(l *Layer, dyn LayerDynamics, dt float32) {
	hasDrift := dyn.DriftX != 0 || dyn.DriftY != 0
	if dyn.Buoyancy == 0 && !hasDrift {
		return
	}
	g := s.Grid
	u := l.U.Read()
	v := l.V.Read()
	dr := l.DyeR.Read()
	dg := l.DyeG.Read()
	db := l.DyeB.Read()

	for y := 1; y < g.H-1; y++ {
		for x := 1; x < g.W-1; x++ {
			i := y*g.W + x
			if dyn.Buoyancy != 0 {
				density := (dr[i] + dg[i] + db[i]) / (3 * 255)
				v[i] += dyn.Buoyancy * density * dt
			}
			if hasDrift {
				u[i] += dyn.DriftX * dt
				v[i] += dyn.DriftY * dt
			}
		}
	}
	setBoundary(u, g.W, g.H, FieldHorizontal)
	setBoundary(v, g.W, g.H, FieldVertical)
}

// diffuse solves (I - a*laplacian)x = x0 by Jacobi relaxation with
// a = dt * diff * (W-2)*(H-2), re-applying the boundary rule after every
// iteration. A zero coefficient is a no-op.
func (s *Solver) diffuse(f *DoubleBuffer, diff float32, kind FieldKind, dt float32) {
	if diff <= 0 {
		return
	}
	g := s.Grid
	w, h := g.W, g.H
	a := dt * diff * float32(w-2) * float32(h-2)
	inv := 1 / (1 + 4*a)

	x0 := g.Tmp
	copy(x0, f.Read())

	for k := 0; k < s.Iterations; k++ {
		src := f.Read()
		dst := f.Write()
		for y := 1; y < h-1; y++ {
			row := y * w
			for x := 1; x < w-1; x++ {
				i := row + x
				dst[i] = (x0[i] + a*(src[i-1]+src[i+1]+src[i-w]+src[i+w])) * inv
			}
		}
		setBoundary(dst, w, h, kind)
		f.Swap()
	}
}

// project restores a divergence-free velocity field: forward-difference
// divergence, Jacobi pressure solve, backward-difference gradient
// subtraction. The three stencils compose to the five-point Laplacian the
// solve relaxes, so the gradient cancels exactly the divergence that was
// measured. Cell sizes are per axis, matching the advection scaling.
func (s *Solver) project(l *Layer) {
	g := s.Grid
	w, h := g.W, g.H
	u := l.U.Read()
	v := l.V.Read()
	div := g.Divergence
	invX := float32(w - 2)
	invY := float32(h - 2)
	cx := invX * invX
	cy := invY * invY
	rBeta := 1 / (2 * (cx + cy))

	for y := 1; y < h-1; y++ {
		row := y * w
		for x := 1; x < w-1; x++ {
			i := row + x
			div[i] = invX*(u[i+1]-u[i]) + invY*(v[i+w]-v[i])
		}
	}
	setBoundary(div, w, h, FieldScalar)

	clear(g.Pressure.Read())
	for k := 0; k < s.Iterations; k++ {
		src := g.Pressure.Read()
		dst := g.Pressure.Write()
		for y := 1; y < h-1; y++ {
			row := y * w
			for x := 1; x < w-1; x++ {
				i := row + x
				dst[i] = (cx*(src[i-1]+src[i+1]) + cy*(src[i-w]+src[i+w]) - div[i]) * rBeta
			}
		}
		setPressureBoundary(dst, w, h)
		g.Pressure.Swap()
	}

	p := g.Pressure.Read()
	for y := 1; y < h-1; y++ {
		row := y * w
		for x := 1; x < w-1; x++ {
			i := row + x
			u[i] -= invX * (p[i] - p[i-1])
			v[i] -= invY * (p[i] - p[i-w])
		}
	}
	setBoundary(u, w, h, FieldHorizontal)
	setBoundary(v, w, h, FieldVertical)
}

// advect moves f along (u, v) with a semi-Lagrangian backtrace: trace each
// cell backward by dt, clamp the sample position to the interior, and
// bilinearly interpolate. Dye fields additionally clamp to [0,255].
func (s *Solver) advect(f *DoubleBuffer, u, v []float32, dt float32, kind FieldKind, dye bool) {
	g := s.Grid
	w, h := g.W, g.H
	dtx := dt * float32(w-2)
	dty := dt * float32(h-2)

	src := f.Read()
	dst := f.Write()

	maxX := float32(w-2) + 0.5
	maxY := float32(h-2) + 0.5

	for y := 1; y < h-1; y++ {
		row := y * w
		for x := 1; x < w-1; x++ {
			i := row + x

			px := float32(x) - dtx*u[i]
			py := float32(y) - dty*v[i]
			if px < 0.5 {
				px = 0.5
			} else if px > maxX {
				px = maxX
			}
			if py < 0.5 {
				py = 0.5
			} else if py > maxY {
				py = maxY
			}

			x0 := int(px)
			y0 := int(py)
			fx := px - float32(x0)
			fy := py - float32(y0)
			i0 := y0*w + x0

			top := (1-fx)*src[i0] + fx*src[i0+1]
			bot := (1-fx)*src[i0+w] + fx*src[i0+w+1]
			val := (1-fy)*top + fy*bot
			if dye {
				val = clampDye(val)
			}
			dst[i] = val
		}
	}
	setBoundary(dst, w, h, kind)
	f.Swap()
}

// DivergenceAt recomputes the solver's own forward-difference divergence at
// a cell, used by diagnostics and tests.
func (s *Solver) DivergenceAt(l *Layer, x, y int) float32 {
	g := s.Grid
	if x < 1 || y < 1 || x > g.W-2 || y > g.H-2 {
		return 0
	}
	u := l.U.Read()
	v := l.V.Read()
	i := y*g.W + x
	return float32(g.W-2)*(u[i+1]-u[i]) + float32(g.H-2)*(v[i+g.W]-v[i])
}
