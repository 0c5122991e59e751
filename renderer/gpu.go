package renderer

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/go-gl/gl/v4.3-core/gl"
	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/quellon/driftpane/blob"
	"github.com/quellon/driftpane/config"
	"github.com/quellon/driftpane/fluid"
)

// ErrContextLost signals that the GL context died under the backend. The
// loop halts; the host reallocates once a fresh context exists.
var ErrContextLost = errors.New("gl context lost")

// fieldTex is one float texture with its framebuffer.
type fieldTex struct {
	tex uint32
	fbo uint32
}

func newFieldTex(w, h int, internalFormat int32, texelType uint32) (fieldTex, error) {
	var f fieldTex
	gl.GenTextures(1, &f.tex)
	gl.BindTexture(gl.TEXTURE_2D, f.tex)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.TexImage2D(gl.TEXTURE_2D, 0, internalFormat, int32(w), int32(h), 0, gl.RGBA, texelType, nil)

	gl.GenFramebuffers(1, &f.fbo)
	gl.BindFramebuffer(gl.FRAMEBUFFER, f.fbo)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, f.tex, 0)
	if status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER); status != gl.FRAMEBUFFER_COMPLETE {
		f.release()
		return fieldTex{}, fmt.Errorf("framebuffer incomplete: 0x%04x", status)
	}
	gl.ClearColor(0, 0, 0, 0)
	gl.Clear(gl.COLOR_BUFFER_BIT)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	return f, nil
}

func (f *fieldTex) release() {
	if f.fbo != 0 {
		gl.DeleteFramebuffers(1, &f.fbo)
		f.fbo = 0
	}
	if f.tex != 0 {
		gl.DeleteTextures(1, &f.tex)
		f.tex = 0
	}
}

// pingPong pairs two field textures for read/write passes.
type pingPong struct {
	read  fieldTex
	write fieldTex
}

func newPingPong(w, h int, internalFormat int32, texelType uint32) (*pingPong, error) {
	a, err := newFieldTex(w, h, internalFormat, texelType)
	if err != nil {
		return nil, err
	}
	b, err := newFieldTex(w, h, internalFormat, texelType)
	if err != nil {
		a.release()
		return nil, err
	}
	return &pingPong{read: a, write: b}, nil
}

func (p *pingPong) swap() { p.read, p.write = p.write, p.read }

func (p *pingPong) release() {
	p.read.release()
	p.write.release()
}

// gpuLayer is one simulated layer on the GPU: velocity in rg, dye in rgb.
type gpuLayer struct {
	vel *pingPong
	dye *pingPong
}

func (l *gpuLayer) release() {
	if l.vel != nil {
		l.vel.release()
	}
	if l.dye != nil {
		l.dye.release()
	}
}

// splat is one queued pointer injection, applied at the next Step.
type splat struct {
	x, y    float32 // grid cells
	radius  float32
	fx, fy  float32 // velocity amount
	r, g, b float32 // dye amount
}

// GPUBackend runs the solver as fragment-shader passes over float render
// targets and composites straight into an RGBA8 texture that raylib draws.
type GPUBackend struct {
	cfg  *config.Config
	caps Caps
	seed int64

	w, h       int
	iterations int

	internalFormat int32
	texelType      uint32

	layerA gpuLayer
	layerB gpuLayer

	pressure   *pingPong
	divergence fieldTex
	scratch    fieldTex
	display    fieldTex

	advectProg     uint32
	jacobiProg     uint32
	divergenceProg uint32
	gradientProg   uint32
	forcesProg     uint32
	splatProg      uint32
	boundaryProg   uint32
	compositeProg  uint32

	rampTexA uint32
	rampTexB uint32

	vao uint32

	pending []splat
	blobs   *blob.Field
	noise   opensimplex.Noise
	rng     *rand.Rand
	phase   float64

	allocated bool
	lost      bool
}

// NewGPUBackend wires a GPU backend against an already-probed context.
func NewGPUBackend(cfg *config.Config, caps Caps) (*GPUBackend, error) {
	internalFormat, texelType, err := caps.Format()
	if err != nil {
		return nil, err
	}
	seed := cfg.Sim.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &GPUBackend{
		cfg:            cfg,
		caps:           caps,
		seed:           seed,
		internalFormat: internalFormat,
		texelType:      texelType,
		noise:          opensimplex.NewNormalized(seed),
		rng:            rand.New(rand.NewSource(seed)),
	}, nil
}

func (b *GPUBackend) Name() string { return "gpu" }

func (b *GPUBackend) Allocate(w, h, iterations int) error {
	if b.allocated {
		return nil
	}
	b.w, b.h, b.iterations = w, h, iterations

	if err := b.compilePrograms(); err != nil {
		b.Destroy()
		return err
	}
	if err := b.allocateTargets(); err != nil {
		b.Destroy()
		return err
	}

	b.rampTexA = uploadRamp(b.cfg.Derived.RampA)
	b.rampTexB = uploadRamp(b.cfg.Derived.RampB)
	gl.GenVertexArrays(1, &b.vao)

	if b.cfg.Blob.Enabled {
		b.blobs = blob.NewField(b.cfg.Blob, w, h, b.seed)
	}

	b.allocated = true
	b.lost = false
	return nil
}

func (b *GPUBackend) compilePrograms() error {
	type stage struct {
		name string
		src  string
		dst  *uint32
	}
	stages := []stage{
		{"advect", advectSrc, &b.advectProg},
		{"jacobi", jacobiSrc, &b.jacobiProg},
		{"divergence", divergenceSrc, &b.divergenceProg},
		{"gradient", gradientSrc, &b.gradientProg},
		{"forces", forcesSrc, &b.forcesProg},
		{"splat", splatSrc, &b.splatProg},
		{"boundary", boundarySrc, &b.boundaryProg},
		{"composite", compositeSrc, &b.compositeProg},
	}
	for _, s := range stages {
		prog, err := compileProgram(vertexSrc, s.src)
		if err != nil {
			return fmt.Errorf("compiling %s pass: %w", s.name, err)
		}
		*s.dst = prog
	}
	return nil
}

func (b *GPUBackend) allocateTargets() error {
	var err error
	alloc := func(dst **pingPong) {
		if err != nil {
			return
		}
		*dst, err = newPingPong(b.w, b.h, b.internalFormat, b.texelType)
	}
	alloc(&b.layerA.vel)
	alloc(&b.layerA.dye)
	alloc(&b.layerB.vel)
	alloc(&b.layerB.dye)
	alloc(&b.pressure)
	if err != nil {
		return fmt.Errorf("allocating float targets: %w", err)
	}
	if b.divergence, err = newFieldTex(b.w, b.h, b.internalFormat, b.texelType); err != nil {
		return fmt.Errorf("allocating divergence target: %w", err)
	}
	if b.scratch, err = newFieldTex(b.w, b.h, b.internalFormat, b.texelType); err != nil {
		return fmt.Errorf("allocating scratch target: %w", err)
	}
	// Display target is plain RGBA8; raylib draws it directly.
	if b.display, err = newFieldTex(b.cfg.Screen.Width, b.cfg.Screen.Height, gl.RGBA8, gl.UNSIGNED_BYTE); err != nil {
		return fmt.Errorf("allocating display target: %w", err)
	}
	return nil
}

// Resize tears the targets down and reallocates at the new tier. Shader
// programs survive; only the textures depend on resolution.
func (b *GPUBackend) Resize(w, h, iterations int) error {
	b.releaseTargets()
	b.w, b.h, b.iterations = w, h, iterations
	if err := b.allocateTargets(); err != nil {
		return err
	}
	if b.cfg.Blob.Enabled {
		b.blobs = blob.NewField(b.cfg.Blob, w, h, b.seed)
	}
	return nil
}

// ApplyPointer queues splats for the next Step. The dead zone, ramp drift
// and jitter mirror the CPU forcing so both backends feel identical.
func (b *GPUBackend) ApplyPointer(ptr fluid.PointerSnapshot, bounds fluid.Bounds, dt float32) {
	fc := b.cfg.Forcing
	if b.cfg.Sim.ReducedMotion || !ptr.Inside || ptr.Speed <= float32(fc.DeadZone) {
		b.phase += float64(dt) * 0.1
		return
	}
	b.phase += float64(dt) * 0.1

	sx := float32(b.w) / bounds.W
	sy := float32(b.h) / bounds.H
	gx := (ptr.X - bounds.X) * sx
	gy := (ptr.Y - bounds.Y) * sy

	jitter := func() float32 {
		return float32(1 + (b.rng.Float64()*2-1)*fc.JitterAmp)
	}
	t := b.noise.Eval2(b.phase, 0)
	cr, cg, cb := b.cfg.Derived.RampB.At255(t)

	b.pending = append(b.pending, splat{
		x: gx, y: gy,
		radius: float32(fc.Radius),
		fx:     ptr.VelX * sx * float32(fc.ForceScale) * jitter(),
		fy:     ptr.VelY * sy * float32(fc.ForceScale) * jitter(),
		r:      cr * float32(fc.DyeAmount) / 255 * jitter(),
		g:      cg * float32(fc.DyeAmount) / 255 * jitter(),
		b:      cb * float32(fc.DyeAmount) / 255 * jitter(),
	})
}

func (b *GPUBackend) Step(dt float32) error {
	if b.lost {
		return ErrContextLost
	}
	gl.Disable(gl.BLEND)
	gl.BindVertexArray(b.vao)
	gl.Viewport(0, 0, int32(b.w), int32(b.h))

	// Pointer forcing lands on layer B only.
	for _, s := range b.pending {
		b.runSplat(b.layerB.vel, s.x, s.y, s.radius, s.fx, s.fy, 0)
		b.runSplat(b.layerB.dye, s.x, s.y, s.radius, s.r, s.g, s.b)
	}
	b.pending = b.pending[:0]

	// Ambient blobs feed layer A.
	if b.blobs != nil {
		b.blobs.Step(dt)
		b.blobs.Each(func(x, y, radius, intensity float32) {
			amount := intensity * 24
			b.runSplat(b.layerA.dye, x, y, radius, amount, amount, amount)
		})
	}

	b.stepLayer(&b.layerA, dynamicsFrom(b.cfg.LayerA, b.cfg.Sim.ReducedMotion), dt)
	b.stepLayer(&b.layerB, dynamicsFrom(b.cfg.LayerB, b.cfg.Sim.ReducedMotion), dt)

	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	return b.checkContext()
}

func (b *GPUBackend) stepLayer(l *gpuLayer, dyn fluid.LayerDynamics, dt float32) {
	b.runForces(l, dyn, dt)
	if dyn.Viscosity > 0 {
		b.runDiffusion(l.vel, dyn.Viscosity, dt, fieldVelocity)
	}
	b.runProject(l)
	b.runAdvect(l.vel, l.vel.read.tex, dt, false)
	b.runBoundary(l.vel, fieldVelocity)
	b.runProject(l)
	if dyn.DyeDiffusion > 0 {
		b.runDiffusion(l.dye, dyn.DyeDiffusion, dt, fieldScalar)
	}
	b.runAdvect(l.dye, l.vel.read.tex, dt, true)
	b.runBoundary(l.dye, fieldScalar)
}

type fieldClass int

const (
	fieldScalar fieldClass = iota
	fieldVelocity
	fieldPressure
)

func (b *GPUBackend) runForces(l *gpuLayer, dyn fluid.LayerDynamics, dt float32) {
	gl.UseProgram(b.forcesProg)
	gl.BindFramebuffer(gl.FRAMEBUFFER, l.vel.write.fbo)
	bindTexture(b.forcesProg, "velocity", 0, l.vel.read.tex)
	bindTexture(b.forcesProg, "dye", 1, l.dye.read.tex)
	gl.Uniform1f(loc(b.forcesProg, "buoyancy"), dyn.Buoyancy)
	gl.Uniform2f(loc(b.forcesProg, "drift"), dyn.DriftX, dyn.DriftY)
	gl.Uniform1f(loc(b.forcesProg, "dt"), dt)
	gl.DrawArrays(gl.TRIANGLES, 0, 3)
	l.vel.swap()
	b.runBoundary(l.vel, fieldVelocity)
}

func (b *GPUBackend) runDiffusion(f *pingPong, rate float32, dt float32, class fieldClass) {
	a := dt * rate * float32(b.w-2) * float32(b.h-2)
	alpha := 1 / a
	rBeta := 1 / (4 + alpha)

	// The pre-diffusion field is the source term and must stay stable
	// across iterations while the pair ping-pongs, so snapshot it.
	gl.CopyImageSubData(f.read.tex, gl.TEXTURE_2D, 0, 0, 0, 0,
		b.scratch.tex, gl.TEXTURE_2D, 0, 0, 0, 0,
		int32(b.w), int32(b.h), 1)
	src := b.scratch.tex
	for i := 0; i < b.iterations; i++ {
		gl.UseProgram(b.jacobiProg)
		gl.BindFramebuffer(gl.FRAMEBUFFER, f.write.fbo)
		bindTexture(b.jacobiProg, "x", 0, f.read.tex)
		bindTexture(b.jacobiProg, "b", 1, src)
		gl.Uniform2f(loc(b.jacobiProg, "texelSize"), 1/float32(b.w), 1/float32(b.h))
		gl.Uniform2f(loc(b.jacobiProg, "weight"), 1, 1)
		gl.Uniform1f(loc(b.jacobiProg, "alpha"), alpha)
		gl.Uniform1f(loc(b.jacobiProg, "rBeta"), rBeta)
		gl.DrawArrays(gl.TRIANGLES, 0, 3)
		f.swap()
		b.runBoundary(f, class)
	}
}

func (b *GPUBackend) runProject(l *gpuLayer) {
	invX := float32(b.w - 2)
	invY := float32(b.h - 2)
	cx := invX * invX
	cy := invY * invY

	// Divergence of the current velocity, forward differences per axis.
	gl.UseProgram(b.divergenceProg)
	gl.BindFramebuffer(gl.FRAMEBUFFER, b.divergence.fbo)
	bindTexture(b.divergenceProg, "velocity", 0, l.vel.read.tex)
	gl.Uniform2f(loc(b.divergenceProg, "texelSize"), 1/float32(b.w), 1/float32(b.h))
	gl.Uniform2f(loc(b.divergenceProg, "invCell"), invX, invY)
	gl.DrawArrays(gl.TRIANGLES, 0, 3)

	// Pressure solve from a zero guess.
	gl.BindFramebuffer(gl.FRAMEBUFFER, b.pressure.read.fbo)
	gl.ClearColor(0, 0, 0, 0)
	gl.Clear(gl.COLOR_BUFFER_BIT)
	for i := 0; i < b.iterations; i++ {
		gl.UseProgram(b.jacobiProg)
		gl.BindFramebuffer(gl.FRAMEBUFFER, b.pressure.write.fbo)
		bindTexture(b.jacobiProg, "x", 0, b.pressure.read.tex)
		bindTexture(b.jacobiProg, "b", 1, b.divergence.tex)
		gl.Uniform2f(loc(b.jacobiProg, "texelSize"), 1/float32(b.w), 1/float32(b.h))
		gl.Uniform2f(loc(b.jacobiProg, "weight"), cx, cy)
		gl.Uniform1f(loc(b.jacobiProg, "alpha"), -1)
		gl.Uniform1f(loc(b.jacobiProg, "rBeta"), 1/(2*(cx+cy)))
		gl.DrawArrays(gl.TRIANGLES, 0, 3)
		b.pressure.swap()
		b.runBoundary(b.pressure, fieldPressure)
	}

	// Subtract the pressure gradient, backward differences per axis.
	gl.UseProgram(b.gradientProg)
	gl.BindFramebuffer(gl.FRAMEBUFFER, l.vel.write.fbo)
	bindTexture(b.gradientProg, "pressure", 0, b.pressure.read.tex)
	bindTexture(b.gradientProg, "velocity", 1, l.vel.read.tex)
	gl.Uniform2f(loc(b.gradientProg, "texelSize"), 1/float32(b.w), 1/float32(b.h))
	gl.Uniform2f(loc(b.gradientProg, "invCell"), invX, invY)
	gl.DrawArrays(gl.TRIANGLES, 0, 3)
	l.vel.swap()
	b.runBoundary(l.vel, fieldVelocity)
}

func (b *GPUBackend) runAdvect(f *pingPong, velTex uint32, dt float32, dye bool) {
	gl.UseProgram(b.advectProg)
	gl.BindFramebuffer(gl.FRAMEBUFFER, f.write.fbo)
	bindTexture(b.advectProg, "velocity", 0, velTex)
	bindTexture(b.advectProg, "source", 1, f.read.tex)
	gl.Uniform2f(loc(b.advectProg, "texelSize"), 1/float32(b.w), 1/float32(b.h))
	gl.Uniform2f(loc(b.advectProg, "gridSize"), float32(b.w), float32(b.h))
	gl.Uniform1f(loc(b.advectProg, "dt"), dt)
	gl.Uniform1f(loc(b.advectProg, "dissipation"), 1)
	setBool(b.advectProg, "clampDye", dye)
	gl.DrawArrays(gl.TRIANGLES, 0, 3)
	f.swap()
}

func (b *GPUBackend) runBoundary(f *pingPong, class fieldClass) {
	gl.UseProgram(b.boundaryProg)
	gl.BindFramebuffer(gl.FRAMEBUFFER, f.write.fbo)
	bindTexture(b.boundaryProg, "field", 0, f.read.tex)
	gl.Uniform2f(loc(b.boundaryProg, "texelSize"), 1/float32(b.w), 1/float32(b.h))
	gl.Uniform2f(loc(b.boundaryProg, "gridSize"), float32(b.w), float32(b.h))
	if class == fieldVelocity {
		gl.Uniform4f(loc(b.boundaryProg, "hScale"), -1, 1, 1, 1)
		gl.Uniform4f(loc(b.boundaryProg, "vScale"), 1, -1, 1, 1)
	} else {
		gl.Uniform4f(loc(b.boundaryProg, "hScale"), 1, 1, 1, 1)
		gl.Uniform4f(loc(b.boundaryProg, "vScale"), 1, 1, 1, 1)
	}
	far := float32(-1)
	if class == fieldPressure {
		far = -2
	}
	gl.Uniform2f(loc(b.boundaryProg, "farOffset"), far, far)
	gl.DrawArrays(gl.TRIANGLES, 0, 3)
	f.swap()
}

func (b *GPUBackend) runSplat(f *pingPong, x, y, radius, ar, ag, ab float32) {
	gl.UseProgram(b.splatProg)
	gl.BindFramebuffer(gl.FRAMEBUFFER, f.write.fbo)
	bindTexture(b.splatProg, "target", 0, f.read.tex)
	gl.Uniform2f(loc(b.splatProg, "gridSize"), float32(b.w), float32(b.h))
	gl.Uniform2f(loc(b.splatProg, "center"), x, y)
	gl.Uniform1f(loc(b.splatProg, "radius"), radius)
	gl.Uniform3f(loc(b.splatProg, "amount"), ar, ag, ab)
	gl.DrawArrays(gl.TRIANGLES, 0, 3)
	f.swap()
}

// Render composites into the display texture and draws it over the whole
// window through raylib.
func (b *GPUBackend) Render() error {
	if b.lost {
		return ErrContextLost
	}
	dw, dh := b.cfg.Screen.Width, b.cfg.Screen.Height

	gl.Disable(gl.BLEND)
	gl.BindVertexArray(b.vao)
	gl.Viewport(0, 0, int32(dw), int32(dh))

	gl.UseProgram(b.compositeProg)
	gl.BindFramebuffer(gl.FRAMEBUFFER, b.display.fbo)
	bindTexture(b.compositeProg, "dyeA", 0, b.layerA.dye.read.tex)
	bindTexture(b.compositeProg, "dyeB", 1, b.layerB.dye.read.tex)
	bindTexture(b.compositeProg, "rampA", 2, b.rampTexA)
	bindTexture(b.compositeProg, "rampB", 3, b.rampTexB)
	gl.Uniform1f(loc(b.compositeProg, "opacityA"), float32(b.cfg.LayerA.Opacity))
	gl.Uniform1f(loc(b.compositeProg, "opacityB"), float32(b.cfg.LayerB.Opacity))
	b.setFeatherUniforms(dw, dh)
	gl.DrawArrays(gl.TRIANGLES, 0, 3)

	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	if err := b.checkContext(); err != nil {
		return err
	}

	tex := rl.Texture2D{
		ID:      b.display.tex,
		Width:   int32(dw),
		Height:  int32(dh),
		Mipmaps: 1,
		Format:  rl.UncompressedR8g8b8a8,
	}
	src := rl.Rectangle{Width: float32(dw), Height: float32(dh)}
	dst := rl.Rectangle{Width: float32(rl.GetScreenWidth()), Height: float32(rl.GetScreenHeight())}
	rl.DrawTexturePro(tex, src, dst, rl.Vector2{}, 0, rl.White)
	return nil
}

func (b *GPUBackend) setFeatherUniforms(dw, dh int) {
	fe := b.cfg.Effects.Feather
	setBool(b.compositeProg, "featherOn", fe.Enabled && fe.Width > 0)
	if !fe.Enabled || fe.Width <= 0 {
		return
	}
	axisX, axisY, start, invWidth := featherParams(fe.Edge, fe.Width, dw, dh)
	gl.Uniform4f(loc(b.compositeProg, "feather"), axisX, axisY, start, invWidth)
	c := b.cfg.Derived.FeatherColor
	gl.Uniform3f(loc(b.compositeProg, "featherColor"), float32(c.R), float32(c.G), float32(c.B))
}

// featherParams maps a feather edge onto the composite pass uniforms. The
// shader evaluates t = clamp((dot(uv, axis) - start) * invWidth, 0, 1),
// with t = 1 on the faded edge reaching 0 at width pixels in. For the
// negative-axis edges the band starts at -width in axis units, so the rest
// of the screen clamps to 0 rather than 1.
func featherParams(edge string, width, dw, dh int) (axisX, axisY, start, invWidth float32) {
	switch edge {
	case "left":
		axisX = -1
		start = -float32(width) / float32(dw)
		invWidth = float32(dw) / float32(width)
	case "right":
		axisX = 1
		start = 1 - float32(width)/float32(dw)
		invWidth = float32(dw) / float32(width)
	case "top":
		axisY = -1
		start = -float32(width) / float32(dh)
		invWidth = float32(dh) / float32(width)
	default: // bottom
		axisY = 1
		start = 1 - float32(width)/float32(dh)
		invWidth = float32(dh) / float32(width)
	}
	return axisX, axisY, start, invWidth
}

// checkContext verifies the display framebuffer still resolves. Anything
// else is treated as a lost context rather than a recoverable error.
func (b *GPUBackend) checkContext() error {
	gl.BindFramebuffer(gl.FRAMEBUFFER, b.display.fbo)
	ok := gl.CheckFramebufferStatus(gl.FRAMEBUFFER) == gl.FRAMEBUFFER_COMPLETE
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	if !ok {
		b.lost = true
		return ErrContextLost
	}
	return nil
}

func (b *GPUBackend) releaseTargets() {
	b.layerA.release()
	b.layerB.release()
	b.layerA = gpuLayer{}
	b.layerB = gpuLayer{}
	if b.pressure != nil {
		b.pressure.release()
		b.pressure = nil
	}
	b.divergence.release()
	b.scratch.release()
	b.display.release()
}

func (b *GPUBackend) Destroy() {
	b.releaseTargets()
	for _, prog := range []uint32{
		b.advectProg, b.jacobiProg, b.divergenceProg, b.gradientProg,
		b.forcesProg, b.splatProg, b.boundaryProg, b.compositeProg,
	} {
		if prog != 0 {
			gl.DeleteProgram(prog)
		}
	}
	b.advectProg, b.jacobiProg, b.divergenceProg, b.gradientProg = 0, 0, 0, 0
	b.forcesProg, b.splatProg, b.boundaryProg, b.compositeProg = 0, 0, 0, 0
	for _, tex := range []uint32{b.rampTexA, b.rampTexB} {
		if tex != 0 {
			gl.DeleteTextures(1, &tex)
		}
	}
	b.rampTexA, b.rampTexB = 0, 0
	if b.vao != 0 {
		gl.DeleteVertexArrays(1, &b.vao)
		b.vao = 0
	}
	b.allocated = false
}

// uploadRamp bakes a color ramp into a 256x1 RGBA8 lookup texture.
func uploadRamp(ramp *fluid.Ramp) uint32 {
	pix := make([]uint8, 256*4)
	for i := 0; i < 256; i++ {
		r, g, bb := ramp.At(float64(i) / 255).RGB255()
		pix[i*4] = r
		pix[i*4+1] = g
		pix[i*4+2] = bb
		pix[i*4+3] = 255
	}
	var tex uint32
	gl.GenTextures(1, &tex)
	gl.BindTexture(gl.TEXTURE_2D, tex)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, 256, 1, 0, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pix))
	return tex
}

func compileProgram(vertex, fragment string) (uint32, error) {
	vs, err := compileShader(gl.VERTEX_SHADER, vertex)
	if err != nil {
		return 0, err
	}
	fs, err := compileShader(gl.FRAGMENT_SHADER, fragment)
	if err != nil {
		gl.DeleteShader(vs)
		return 0, err
	}

	program := gl.CreateProgram()
	gl.AttachShader(program, vs)
	gl.AttachShader(program, fs)
	gl.LinkProgram(program)
	gl.DeleteShader(vs)
	gl.DeleteShader(fs)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)
		infoLog := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(infoLog))
		gl.DeleteProgram(program)
		return 0, fmt.Errorf("linking program: %s", strings.TrimRight(infoLog, "\x00"))
	}
	return program, nil
}

func compileShader(kind uint32, source string) (uint32, error) {
	shader := gl.CreateShader(kind)
	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		infoLog := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(infoLog))
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("compiling shader: %s", strings.TrimRight(infoLog, "\x00"))
	}
	return shader, nil
}

func loc(program uint32, name string) int32 {
	return gl.GetUniformLocation(program, gl.Str(name+"\x00"))
}

func bindTexture(program uint32, name string, unit int32, tex uint32) {
	gl.ActiveTexture(uint32(gl.TEXTURE0 + unit))
	gl.BindTexture(gl.TEXTURE_2D, tex)
	gl.Uniform1i(loc(program, name), unit)
}

func setBool(program uint32, name string, v bool) {
	var i int32
	if v {
		i = 1
	}
	gl.Uniform1i(loc(program, name), i)
}
