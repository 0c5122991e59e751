// Package fluid implements the grid-based stable-fluids solver that drives
// the animated background panels: dual simulation layers, semi-Lagrangian
// advection, Jacobi diffusion and pressure projection, pointer forcing and
// buoyancy coupling.
package fluid

// FieldKind selects the boundary reflection rule applied to a field.
type FieldKind int

const (
	// FieldScalar mirrors edge values without a sign flip (dye).
	FieldScalar FieldKind = iota
	// FieldHorizontal negates at the left/right edges (u velocity).
	FieldHorizontal
	// FieldVertical negates at the top/bottom edges (v velocity).
	FieldVertical
)

// DoubleBuffer is a read/write pair over two equally sized arrays. Exactly
// one pass owns the write side at a time; Swap publishes the write side as
// the new read side.
type DoubleBuffer struct {
	read  []float32
	write []float32
}

// NewDoubleBuffer allocates both sides with n cells.
func NewDoubleBuffer(n int) *DoubleBuffer {
	return &DoubleBuffer{
		read:  make([]float32, n),
		write: make([]float32, n),
	}
}

// Read returns the current read side.
func (b *DoubleBuffer) Read() []float32 { return b.read }

// Write returns the current write side.
func (b *DoubleBuffer) Write() []float32 { return b.write }

// Swap exchanges the read and write sides.
func (b *DoubleBuffer) Swap() { b.read, b.write = b.write, b.read }

// Len returns the cell count of one side.
func (b *DoubleBuffer) Len() int { return len(b.read) }

func (b *DoubleBuffer) release() {
	b.read = nil
	b.write = nil
}

// Layer holds the per-layer simulation state: velocity components and three
// dye channels, each double-buffered for ping-pong passes.
type Layer struct {
	U, V             *DoubleBuffer
	DyeR, DyeG, DyeB *DoubleBuffer
}

func newLayer(n int) *Layer {
	return &Layer{
		U:    NewDoubleBuffer(n),
		V:    NewDoubleBuffer(n),
		DyeR: NewDoubleBuffer(n),
		DyeG: NewDoubleBuffer(n),
		DyeB: NewDoubleBuffer(n),
	}
}

func (l *Layer) release() {
	l.U.release()
	l.V.release()
	l.DyeR.release()
	l.DyeG.release()
	l.DyeB.release()
}

// Grid owns all per-cell state for the two simulated layers plus the shared
// scratch buffers used by the pressure solve. Layer A is the ambient base
// layer, layer B the pointer-reactive top layer.
type Grid struct {
	W, H int

	A, B *Layer

	// Shared scratch. Pressure ping-pongs during the Jacobi solve;
	// Tmp holds the diffusion source term.
	Pressure   *DoubleBuffer
	Divergence []float32
	Tmp        []float32
}

// NewGrid allocates a grid at the given simulation resolution. Width and
// height must each be at least 3 so an interior exists.
func NewGrid(w, h int) *Grid {
	if w < 3 {
		w = 3
	}
	if h < 3 {
		h = 3
	}
	n := w * h
	return &Grid{
		W:          w,
		H:          h,
		A:          newLayer(n),
		B:          newLayer(n),
		Pressure:   NewDoubleBuffer(n),
		Divergence: make([]float32, n),
		Tmp:        make([]float32, n),
	}
}

// Idx maps cell coordinates to the flat array index.
func (g *Grid) Idx(x, y int) int { return y*g.W + x }

// Release drops every buffer so the memory is collectable. The grid must
// not be stepped afterwards; tier changes allocate a fresh grid.
func (g *Grid) Release() {
	g.A.release()
	g.B.release()
	g.Pressure.release()
	g.Divergence = nil
	g.Tmp = nil
}

// setBoundary re-applies the reflection rule on the outer ring of f.
// Horizontal fields negate at the left/right edges, vertical fields at the
// top/bottom edges, scalar fields mirror. Corner cells become the average
// of their two edge neighbors.
func setBoundary(f []float32, w, h int, kind FieldKind) {
	lastX := w - 1
	lastY := h - 1

	sideX := float32(1)
	if kind == FieldHorizontal {
		sideX = -1
	}
	sideY := float32(1)
	if kind == FieldVertical {
		sideY = -1
	}

	for y := 1; y < lastY; y++ {
		f[y*w] = sideX * f[y*w+1]
		f[y*w+lastX] = sideX * f[y*w+lastX-1]
	}
	for x := 1; x < lastX; x++ {
		f[x] = sideY * f[w+x]
		f[lastY*w+x] = sideY * f[(lastY-1)*w+x]
	}

	f[0] = 0.5 * (f[1] + f[w])
	f[lastX] = 0.5 * (f[lastX-1] + f[w+lastX])
	f[lastY*w] = 0.5 * (f[lastY*w+1] + f[(lastY-1)*w])
	f[lastY*w+lastX] = 0.5 * (f[lastY*w+lastX-1] + f[(lastY-1)*w+lastX])
}

// setPressureBoundary fills the outer ring for the pressure solve. The
// left/top edges mirror like a scalar field. The right/bottom edges copy
// the value two cells in: the forward-difference divergence at those edges
// reads the reflected velocity ring, which doubles the gradient's effect
// there, and the doubled stencil is what this fill gives the relaxation.
func setPressureBoundary(f []float32, w, h int) {
	lastX := w - 1
	lastY := h - 1

	for y := 1; y < lastY; y++ {
		f[y*w] = f[y*w+1]
		f[y*w+lastX] = f[y*w+lastX-2]
	}
	for x := 1; x < lastX; x++ {
		f[x] = f[w+x]
		f[lastY*w+x] = f[(lastY-2)*w+x]
	}

	f[0] = 0.5 * (f[1] + f[w])
	f[lastX] = 0.5 * (f[lastX-1] + f[w+lastX])
	f[lastY*w] = 0.5 * (f[lastY*w+1] + f[(lastY-1)*w])
	f[lastY*w+lastX] = 0.5 * (f[lastY*w+lastX-1] + f[(lastY-1)*w+lastX])
}

// clampDye keeps dye channels inside the displayable [0,255] range.
func clampDye(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}
