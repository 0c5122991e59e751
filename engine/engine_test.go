package engine

import (
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/quellon/driftpane/config"
	"github.com/quellon/driftpane/fluid"
	"github.com/quellon/driftpane/store"
)

type alloc struct{ w, h, iterations int }

// fakeBackend records every call so tests can assert on the sequence the
// engine drives.
type fakeBackend struct {
	allocs    []alloc
	resizes   []alloc
	steps     int
	renders   int
	pointers  int
	destroyed bool

	stepErr   error
	renderErr error
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) Allocate(w, h, iterations int) error {
	f.allocs = append(f.allocs, alloc{w, h, iterations})
	return nil
}

func (f *fakeBackend) Resize(w, h, iterations int) error {
	f.resizes = append(f.resizes, alloc{w, h, iterations})
	return nil
}

func (f *fakeBackend) ApplyPointer(fluid.PointerSnapshot, fluid.Bounds, float32) {
	f.pointers++
}

func (f *fakeBackend) Step(float32) error {
	f.steps++
	return f.stepErr
}

func (f *fakeBackend) Render() error {
	f.renders++
	return f.renderErr
}

func (f *fakeBackend) Destroy() { f.destroyed = true }

func testConfig() *config.Config {
	return &config.Config{
		Screen:    config.ScreenConfig{Width: 1280, Height: 720},
		Sim:       config.SimConfig{DT: 1.0 / 60.0, MaxSubSteps: 3, WarmupSteps: 60, WarmupYieldEvery: 8, HeartbeatInterval: 10},
		Quality:   testQuality(),
		Telemetry: config.TelemetryConfig{StatsWindow: 120},
	}
}

func quietOpts() Options {
	return Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func newTestEngine(t *testing.T, cfg *config.Config, backend Backend) *Engine {
	t.Helper()
	return New(cfg, backend, NullPointer{}, nil, quietOpts())
}

func TestAllocateIsIdempotent(t *testing.T) {
	fb := &fakeBackend{}
	e := newTestEngine(t, testConfig(), fb)

	if err := e.Allocate(); err != nil {
		t.Fatalf("first allocate: %v", err)
	}
	if err := e.Allocate(); err != nil {
		t.Fatalf("second allocate: %v", err)
	}
	if len(fb.allocs) != 1 {
		t.Fatalf("backend allocated %d times, want 1", len(fb.allocs))
	}
	if fb.allocs[0] != (alloc{320, 180, 24}) {
		t.Fatalf("allocated %+v, want the top tier", fb.allocs[0])
	}
}

func TestLifecycleOrderIsEnforced(t *testing.T) {
	e := newTestEngine(t, testConfig(), &fakeBackend{})

	if err := e.Warmup(10, nil); err == nil {
		t.Fatal("warmup before allocate succeeded")
	}
	if _, err := e.Start(); err == nil {
		t.Fatal("start before allocate succeeded")
	}
	if err := e.Stop(); err == nil {
		t.Fatal("stop before start succeeded")
	}
}

func TestWarmupStepsAndHeartbeat(t *testing.T) {
	fb := &fakeBackend{}
	e := newTestEngine(t, testConfig(), fb)
	if err := e.Allocate(); err != nil {
		t.Fatal(err)
	}

	var beats []int
	err := e.Warmup(60, func(current, total int) {
		if total != 60 {
			t.Fatalf("heartbeat total = %d, want 60", total)
		}
		beats = append(beats, current)
	})
	if err != nil {
		t.Fatalf("warmup: %v", err)
	}
	if fb.steps != 60 {
		t.Fatalf("warmup ran %d steps, want 60", fb.steps)
	}
	if len(beats) != 6 {
		t.Fatalf("heartbeat fired %d times, want 6", len(beats))
	}
	if beats[len(beats)-1] != 60 {
		t.Fatalf("final heartbeat at step %d, want 60", beats[len(beats)-1])
	}
	if fb.renders != 0 {
		t.Fatalf("warmup rendered %d frames, want 0", fb.renders)
	}
	if got := e.State(); got != StateAllocated {
		t.Fatalf("state after warmup = %v, want %v", got, StateAllocated)
	}
}

func TestFrameRendersOncePerCall(t *testing.T) {
	fb := &fakeBackend{}
	e := newTestEngine(t, testConfig(), fb)
	if err := e.Allocate(); err != nil {
		t.Fatal(err)
	}
	first, err := e.Start()
	if err != nil {
		t.Fatal(err)
	}

	start := time.Now()
	if err := e.Frame(start); err != nil {
		t.Fatal(err)
	}
	select {
	case <-first:
	default:
		t.Fatal("first-frame channel not closed after the first render")
	}

	// A long gap runs the capped substep count but still renders once.
	if err := e.Frame(start.Add(time.Second)); err != nil {
		t.Fatal(err)
	}
	if fb.renders != 2 {
		t.Fatalf("rendered %d times over two frames, want 2", fb.renders)
	}
	if fb.steps != 3 {
		t.Fatalf("second frame ran %d substeps, want the cap of 3", fb.steps)
	}
}

func TestStopSwallowsLateFrames(t *testing.T) {
	fb := &fakeBackend{}
	e := newTestEngine(t, testConfig(), fb)
	if err := e.Allocate(); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Start(); err != nil {
		t.Fatal(err)
	}
	if err := e.Stop(); err != nil {
		t.Fatal(err)
	}

	if err := e.Frame(time.Now()); err != nil {
		t.Fatalf("late frame returned %v, want nil", err)
	}
	if fb.renders != 0 {
		t.Fatalf("stopped engine rendered %d frames", fb.renders)
	}

	// Stopped engines resume.
	if _, err := e.Start(); err != nil {
		t.Fatalf("restart after stop: %v", err)
	}
	if got := e.State(); got != StateRunning {
		t.Fatalf("state after restart = %v, want %v", got, StateRunning)
	}
}

func TestDestroyIsTerminal(t *testing.T) {
	fb := &fakeBackend{}
	e := newTestEngine(t, testConfig(), fb)
	if err := e.Allocate(); err != nil {
		t.Fatal(err)
	}
	if err := e.Destroy(); err != nil {
		t.Fatal(err)
	}
	if !fb.destroyed {
		t.Fatal("backend not destroyed")
	}
	if err := e.Allocate(); err == nil {
		t.Fatal("allocate after destroy succeeded")
	}
	if err := e.Destroy(); err != nil {
		t.Fatalf("repeated destroy: %v", err)
	}
}

func TestStepErrorStopsLoop(t *testing.T) {
	fb := &fakeBackend{stepErr: errors.New("solver blew up")}
	e := newTestEngine(t, testConfig(), fb)
	if err := e.Allocate(); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Start(); err != nil {
		t.Fatal(err)
	}

	start := time.Now()
	e.Frame(start) // arms the clock, no substeps yet
	if err := e.Frame(start.Add(50 * time.Millisecond)); err == nil {
		t.Fatal("frame with failing step returned nil")
	}
	if got := e.State(); got != StateStopped {
		t.Fatalf("state after step failure = %v, want %v", got, StateStopped)
	}
}

func TestTierChangeResizesAndPersists(t *testing.T) {
	cfg := testConfig()
	cfg.Quality.Window = 4
	cfg.Quality.SlowMs = 0.00001 // every real frame counts as slow

	st, err := store.Open(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatal(err)
	}

	fb := &fakeBackend{}
	e := New(cfg, fb, NullPointer{}, st, quietOpts())
	if err := e.Allocate(); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Start(); err != nil {
		t.Fatal(err)
	}

	now := time.Now()
	for i := 0; i < 20 && len(fb.resizes) == 0; i++ {
		time.Sleep(200 * time.Microsecond)
		if err := e.Frame(now.Add(time.Duration(i) * 16 * time.Millisecond)); err != nil {
			t.Fatal(err)
		}
	}

	if len(fb.resizes) == 0 {
		t.Fatal("sustained slow frames never resized the backend")
	}
	if fb.resizes[0] != (alloc{256, 144, 20}) {
		t.Fatalf("resized to %+v, want the next tier down", fb.resizes[0])
	}
	if got := e.TierName(); got != "high" {
		t.Fatalf("tier name = %q, want high", got)
	}
	if v, ok := st.Get("quality_tier"); !ok || v != "high" {
		t.Fatalf("persisted tier = %q (found %v), want high", v, ok)
	}
}

func TestPersistedTierSeedsStart(t *testing.T) {
	cfg := testConfig()
	st, err := store.Open(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatal(err)
	}
	if err := st.Set("quality_tier", "medium"); err != nil {
		t.Fatal(err)
	}

	fb := &fakeBackend{}
	e := New(cfg, fb, NullPointer{}, st, quietOpts())
	if err := e.Allocate(); err != nil {
		t.Fatal(err)
	}
	if fb.allocs[0] != (alloc{192, 108, 16}) {
		t.Fatalf("allocated %+v, want the persisted medium tier", fb.allocs[0])
	}
}

func TestUnknownPersistedTierFallsBackToTop(t *testing.T) {
	cfg := testConfig()
	st, err := store.Open(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatal(err)
	}
	if err := st.Set("quality_tier", "ludicrous"); err != nil {
		t.Fatal(err)
	}

	e := New(cfg, &fakeBackend{}, NullPointer{}, st, quietOpts())
	if got := e.TierName(); got != "ultra" {
		t.Fatalf("tier = %q, want ultra", got)
	}
}
