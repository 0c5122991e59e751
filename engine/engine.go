package engine

import (
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/quellon/driftpane/config"
	"github.com/quellon/driftpane/fluid"
	"github.com/quellon/driftpane/store"
	"github.com/quellon/driftpane/telemetry"
)

// tierKey is the key under which the active quality tier is persisted.
const tierKey = "quality_tier"

// State is the engine lifecycle state.
type State int

const (
	StateUnallocated State = iota
	StateAllocated
	StateWarmingUp
	StateRunning
	StateStopped
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateUnallocated:
		return "unallocated"
	case StateAllocated:
		return "allocated"
	case StateWarmingUp:
		return "warming-up"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	case StateDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// Backend is one realization of the solver + compositor pair. The CPU and
// GPU backends implement the same conceptual steps; the engine never cares
// which one it drives.
type Backend interface {
	Name() string
	// Allocate prepares buffers (and shader programs) at the given grid
	// resolution and Jacobi iteration count.
	Allocate(w, h, iterations int) error
	// Resize reallocates for a new quality tier. Old buffers are fully
	// released before the next step runs.
	Resize(w, h, iterations int) error
	// ApplyPointer injects the tick's forcing. Must run before Step.
	ApplyPointer(ptr fluid.PointerSnapshot, bounds fluid.Bounds, dt float32)
	// Step advances both layers by the fixed timestep.
	Step(dt float32) error
	// Render composites the current state to the display surface.
	Render() error
	// Destroy releases every buffer and GPU resource.
	Destroy()
}

// Engine owns the effect lifecycle. All collaborators are injected; the
// engine holds no hidden shared state.
type Engine struct {
	cfg     *config.Config
	backend Backend
	pointer PointerSource
	st      *store.Store
	log     *slog.Logger

	stats  *telemetry.FrameStats
	out    *telemetry.OutputManager
	ladder *Ladder
	loop   *FixedStep

	state  State
	bounds fluid.Bounds

	firstFrame chan struct{}
	firstOnce  sync.Once

	stepErr error
}

// Options carries the optional engine collaborators.
type Options struct {
	// Output receives CSV telemetry; nil disables it.
	Output *telemetry.OutputManager
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// New wires an engine from explicitly constructed parts. The persisted
// tier name, if present and known, seeds the initial quality tier.
func New(cfg *config.Config, backend Backend, pointer PointerSource, st *store.Store, opts Options) *Engine {
	if pointer == nil {
		pointer = NullPointer{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	startTier := 0
	if st != nil {
		if name, ok := st.Get(tierKey); ok {
			if i := cfg.TierIndex(name); i >= 0 {
				startTier = i
			}
		}
	}

	return &Engine{
		cfg:     cfg,
		backend: backend,
		pointer: pointer,
		st:      st,
		log:     logger,
		stats:   telemetry.NewFrameStats(cfg.Telemetry.StatsWindow),
		out:     opts.Output,
		ladder:  NewLadder(cfg.Quality, startTier),
		loop:    NewFixedStep(cfg.Sim.DT, cfg.Sim.MaxSubSteps),
		bounds: fluid.Bounds{
			W: float32(cfg.Screen.Width),
			H: float32(cfg.Screen.Height),
		},
		firstFrame: make(chan struct{}),
	}
}

// State returns the current lifecycle state.
func (e *Engine) State() State { return e.state }

// SetBounds updates the panel's viewport bounding box used for pointer
// mapping.
func (e *Engine) SetBounds(b fluid.Bounds) { e.bounds = b }

// Allocate prepares the backend at the active tier's resolution. A second
// call on an already allocated engine is a no-op.
func (e *Engine) Allocate() error {
	switch e.state {
	case StateAllocated:
		return nil
	case StateUnallocated:
	default:
		return fmt.Errorf("allocate: invalid in state %s", e.state)
	}

	tier := e.ladder.Current()
	if err := e.backend.Allocate(tier.Width, tier.Height, tier.Iterations); err != nil {
		return fmt.Errorf("allocating %s backend: %w", e.backend.Name(), err)
	}
	e.state = StateAllocated
	e.log.Info("engine allocated",
		"backend", e.backend.Name(),
		"tier", tier.Name,
		"grid", fmt.Sprintf("%dx%d", tier.Width, tier.Height),
	)
	return nil
}

// Warmup executes steps invisible ticks so the field has developed motion
// before the first visible frame. The heartbeat, when non-nil, fires every
// heartbeat-interval steps with (current, total). Control yields to the
// scheduler every few steps so the warm-up does not monopolize the thread;
// Warmup only returns after the final step has executed.
func (e *Engine) Warmup(steps int, heartbeat func(current, total int)) error {
	if e.state != StateAllocated {
		return fmt.Errorf("warmup: invalid in state %s", e.state)
	}
	e.state = StateWarmingUp

	yieldEvery := e.cfg.Sim.WarmupYieldEvery
	if yieldEvery < 1 {
		yieldEvery = 8
	}
	hbEvery := e.cfg.Sim.HeartbeatInterval
	if hbEvery < 1 {
		hbEvery = 10
	}

	dt := float32(e.cfg.Sim.DT)
	for i := 1; i <= steps; i++ {
		e.tick(dt)
		if e.stepErr != nil {
			e.state = StateAllocated
			return fmt.Errorf("warmup step %d: %w", i, e.stepErr)
		}
		if heartbeat != nil && i%hbEvery == 0 {
			heartbeat(i, steps)
		}
		if i%yieldEvery == 0 {
			runtime.Gosched()
		}
	}

	e.state = StateAllocated
	return nil
}

// Start begins the visible loop. The returned channel closes once after
// the first frame has rendered; the host uses it to cancel any fallback
// guard. Start after Stop resumes the loop with a fresh clock.
func (e *Engine) Start() (<-chan struct{}, error) {
	switch e.state {
	case StateAllocated, StateStopped:
	default:
		return nil, fmt.Errorf("start: invalid in state %s", e.state)
	}
	e.loop.Reset()
	e.state = StateRunning
	return e.firstFrame, nil
}

// Stop halts the loop without releasing resources. Any frame callback
// arriving after Stop returns is a no-op. The engine is resumable via
// Start.
func (e *Engine) Stop() error {
	switch e.state {
	case StateRunning, StateWarmingUp:
		e.state = StateStopped
		return nil
	case StateStopped:
		return nil
	default:
		return fmt.Errorf("stop: invalid in state %s", e.state)
	}
}

// Destroy releases every backend resource. Terminal; only Destroy itself
// is valid afterwards.
func (e *Engine) Destroy() error {
	if e.state == StateDestroyed {
		return nil
	}
	e.backend.Destroy()
	e.state = StateDestroyed
	return nil
}

// Frame is the host's per-frame callback. It consumes wall time through
// the fixed-step loop, renders exactly once, feeds the quality ladder, and
// applies at most one tier change between frames. When not running it does
// nothing, which is how stopped engines swallow stale callbacks.
func (e *Engine) Frame(now time.Time) error {
	if e.state != StateRunning {
		return nil
	}

	frameTime := e.stats.RecordFrame()

	e.loop.Advance(now, func(dt float64) {
		e.tick(float32(dt))
	})
	if e.stepErr != nil {
		err := e.stepErr
		e.stepErr = nil
		e.state = StateStopped
		e.log.Error("simulation step failed, loop stopped", "error", err)
		return err
	}

	if err := e.backend.Render(); err != nil {
		e.state = StateStopped
		e.log.Error("render failed, loop stopped", "error", err)
		return fmt.Errorf("rendering frame: %w", err)
	}
	e.firstOnce.Do(func() { close(e.firstFrame) })

	if e.out != nil && e.cfg.Telemetry.StatsWindow > 0 &&
		e.stats.Frames() > 0 && e.stats.Frames()%int64(e.cfg.Telemetry.StatsWindow) == 0 {
		_ = e.out.WriteFrame(telemetry.FrameRecord{
			Frame:    e.stats.Frames(),
			AvgMs:    float64(e.stats.Mean()) / float64(time.Millisecond),
			StdDevMs: float64(e.stats.StdDev()) / float64(time.Millisecond),
			FPS:      e.stats.FPS(),
			Tier:     e.ladder.Current().Name,
			Backend:  e.backend.Name(),
		})
	}

	if frameTime > 0 {
		prev := e.ladder.Current().Name
		if tier, changed := e.ladder.Observe(frameTime); changed {
			e.applyTier(prev, tier)
		}
	}
	return nil
}

// applyTier reallocates the grid at the new tier between frames and
// persists the choice.
func (e *Engine) applyTier(from string, tier config.TierConfig) {
	avg := e.stats.Mean()
	if err := e.backend.Resize(tier.Width, tier.Height, tier.Iterations); err != nil {
		e.state = StateStopped
		e.log.Error("tier reallocation failed, loop stopped", "tier", tier.Name, "error", err)
		return
	}
	if e.st != nil {
		if err := e.st.Set(tierKey, tier.Name); err != nil {
			e.log.Warn("persisting quality tier failed", "error", err)
		}
	}
	if e.out != nil {
		_ = e.out.WriteTier(telemetry.TierRecord{
			Frame: e.stats.Frames(),
			From:  from,
			To:    tier.Name,
			AvgMs: float64(avg) / float64(time.Millisecond),
		})
	}
	e.log.Info("quality tier changed",
		"tier", tier.Name,
		"grid", fmt.Sprintf("%dx%d", tier.Width, tier.Height),
		"iterations", tier.Iterations,
		"avg_frame_ms", avg.Milliseconds(),
	)
}

// tick runs one fixed-step simulation update: forcing first, then the
// solver step.
func (e *Engine) tick(dt float32) {
	if e.stepErr != nil {
		return
	}
	ptr := e.pointer.Snapshot()
	e.backend.ApplyPointer(ptr, e.bounds, dt)
	if err := e.backend.Step(dt); err != nil {
		e.stepErr = err
	}
}

// TierName returns the active quality tier name.
func (e *Engine) TierName() string { return e.ladder.Current().Name }

// TierResolution returns the active simulation grid resolution.
func (e *Engine) TierResolution() (int, int) {
	t := e.ladder.Current()
	return t.Width, t.Height
}

// AvgFrameTime returns the rolling average frame time.
func (e *Engine) AvgFrameTime() time.Duration { return e.stats.Mean() }

// BackendName reports which solver realization is driving the effect.
func (e *Engine) BackendName() string { return e.backend.Name() }
