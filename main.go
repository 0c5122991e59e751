package main

import (
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/quellon/driftpane/config"
	"github.com/quellon/driftpane/engine"
	"github.com/quellon/driftpane/renderer"
	"github.com/quellon/driftpane/store"
	"github.com/quellon/driftpane/telemetry"
	"github.com/quellon/driftpane/ui"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	headless := flag.Bool("headless", false, "Run the CPU solver without graphics")
	seed := flag.Int64("seed", 0, "RNG seed (0 = use config, config 0 = time-based)")
	maxFrames := flag.Int("max-frames", 0, "Stop after N frames (0 = unlimited)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV telemetry")
	reducedMotion := flag.Bool("reduced-motion", false, "Suppress drift and pointer forcing")
	backend := flag.String("backend", "", "Solver backend: auto, cpu or gpu (empty = use config)")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *seed != 0 {
		cfg.Sim.Seed = *seed
	}
	if *reducedMotion {
		cfg.Sim.ReducedMotion = true
	}
	if *backend != "" {
		cfg.Sim.Backend = *backend
	}

	out, err := telemetry.NewOutputManager(*outputDir)
	if err != nil {
		slog.Error("failed to create output directory", "error", err)
		os.Exit(1)
	}
	defer out.Close()
	if dir := out.Dir(); dir != "" {
		// Snapshot the effective settings next to the telemetry.
		if err := cfg.WriteYAML(filepath.Join(dir, "config.yaml")); err != nil {
			slog.Warn("failed to write config snapshot", "error", err)
		}
	}

	var st *store.Store
	if cfg.Persist.Path != "" {
		if st, err = store.Open(cfg.Persist.Path); err != nil {
			slog.Warn("tier store unavailable", "path", cfg.Persist.Path, "error", err)
		}
	}

	if *headless {
		runHeadless(cfg, st, out, *maxFrames)
		return
	}
	runWindowed(cfg, st, out, *maxFrames)
}

// runHeadless drives the CPU backend on a virtual clock, one frame per
// nominal display interval. Used for soak runs and telemetry capture.
func runHeadless(cfg *config.Config, st *store.Store, out *telemetry.OutputManager, maxFrames int) {
	backend := renderer.NewCPUBackend(cfg, renderer.NullPresenter{})
	eng := engine.New(cfg, backend, engine.NullPointer{}, st, engine.Options{Output: out})
	defer eng.Destroy()

	if err := startEngine(eng, cfg); err != nil {
		slog.Error("engine start failed", "error", err)
		os.Exit(1)
	}

	slog.Info("headless run started", "max_frames", maxFrames, "grid", eng.TierName())

	frameInterval := time.Second / time.Duration(max(cfg.Screen.TargetFPS, 1))
	now := time.Now()
	for frame := 0; maxFrames == 0 || frame < maxFrames; frame++ {
		if err := eng.Frame(now); err != nil {
			slog.Error("frame failed", "frame", frame, "error", err)
			os.Exit(1)
		}
		now = now.Add(frameInterval)
	}
	slog.Info("headless run finished", "avg_frame_ms", eng.AvgFrameTime().Milliseconds())
}

func runWindowed(cfg *config.Config, st *store.Store, out *telemetry.OutputManager, maxFrames int) {
	rl.InitWindow(int32(cfg.Screen.Width), int32(cfg.Screen.Height), "driftpane")
	defer rl.CloseWindow()
	rl.SetTargetFPS(int32(cfg.Screen.TargetFPS))

	backend := selectBackend(cfg)
	eng := engine.New(cfg, backend, renderer.NewMousePointer(), st, engine.Options{Output: out})
	defer eng.Destroy()

	if err := startEngine(eng, cfg); err != nil {
		slog.Error("engine start failed", "error", err)
		os.Exit(1)
	}

	overlay := ui.NewOverlay()
	frames := 0
	for !rl.WindowShouldClose() {
		overlay.HandleInput()

		rl.BeginDrawing()
		rl.ClearBackground(rl.Black)

		if err := eng.Frame(time.Now()); err != nil {
			slog.Error("frame failed", "error", err)
			rl.EndDrawing()
			break
		}

		gw, gh := eng.TierResolution()
		actions := overlay.Draw(ui.OverlayData{
			Backend:    eng.BackendName(),
			Tier:       eng.TierName(),
			GridW:      gw,
			GridH:      gh,
			AvgFrameMs: float64(eng.AvgFrameTime()) / float64(time.Millisecond),
			FPS:        rl.GetFPS(),
			Frames:     int64(frames),
			Paused:     eng.State() == engine.StateStopped,
		})
		rl.EndDrawing()

		if actions.TogglePause {
			togglePause(eng)
		}

		frames++
		if maxFrames > 0 && frames >= maxFrames {
			break
		}
	}
}

// selectBackend honors the configured backend, falling back from gpu to
// cpu when the context lacks float render targets (unless gpu was forced).
func selectBackend(cfg *config.Config) engine.Backend {
	mode := cfg.Sim.Backend
	if mode == "cpu" {
		return renderer.NewCPUBackend(cfg, renderer.NewScreenPresenter())
	}

	caps, err := renderer.ProbeCaps()
	if err == nil {
		gpu, gerr := renderer.NewGPUBackend(cfg, caps)
		if gerr == nil {
			slog.Info("using gpu backend", "renderer", caps.Renderer,
				"float32", caps.Float32Render, "float16", caps.Float16Render)
			return gpu
		}
		err = gerr
	}
	if mode == "gpu" {
		slog.Error("gpu backend required but unavailable", "error", err)
		os.Exit(1)
	}
	slog.Warn("gpu backend unavailable, using cpu", "error", err)
	return renderer.NewCPUBackend(cfg, renderer.NewScreenPresenter())
}

// startEngine runs the allocate/warmup/start sequence and waits for the
// warm-up heartbeats to keep the log alive during long warmups.
func startEngine(eng *engine.Engine, cfg *config.Config) error {
	if err := eng.Allocate(); err != nil {
		return err
	}
	err := eng.Warmup(cfg.Sim.WarmupSteps, func(current, total int) {
		slog.Debug("warming up", "step", current, "total", total)
	})
	if err != nil {
		return err
	}

	firstFrame, err := eng.Start()
	if err != nil {
		return err
	}
	go func() {
		select {
		case <-firstFrame:
			slog.Info("first frame rendered")
		case <-time.After(5 * time.Second):
			slog.Warn("no frame rendered within 5s of start")
		}
	}()
	return nil
}

func togglePause(eng *engine.Engine) {
	if eng.State() == engine.StateStopped {
		if _, err := eng.Start(); err != nil {
			slog.Warn("resume failed", "error", err)
		}
		return
	}
	if err := eng.Stop(); err != nil {
		slog.Warn("pause failed", "error", err)
	}
}
