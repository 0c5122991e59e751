package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("loading embedded defaults: %v", err)
	}
	if cfg.Screen.Width != 1280 || cfg.Screen.Height != 720 {
		t.Errorf("unexpected default screen %dx%d", cfg.Screen.Width, cfg.Screen.Height)
	}
	if len(cfg.Quality.Tiers) != 4 {
		t.Fatalf("expected 4 default tiers, got %d", len(cfg.Quality.Tiers))
	}
	if cfg.Quality.Tiers[0].Name != "ultra" || cfg.Quality.Tiers[3].Name != "low" {
		t.Error("tiers not ordered highest fidelity first")
	}
	if cfg.Derived.RampA == nil || cfg.Derived.RampB == nil {
		t.Error("derived ramps not built")
	}
	if cfg.LayerA.Buoyancy != 0 {
		t.Error("layer A must not be buoyant by default")
	}
	if cfg.LayerB.Buoyancy >= 0 {
		t.Error("layer B default buoyancy should push up")
	}
}

func TestLoadUserOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "sim:\n  reduced_motion: true\n  backend: cpu\nforcing:\n  radius: 48\n"
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("loading config: %v", err)
	}
	if !cfg.Sim.ReducedMotion {
		t.Error("override of sim.reduced_motion not applied")
	}
	if cfg.Forcing.Radius != 48 {
		t.Errorf("forcing.radius = %f, want 48", cfg.Forcing.Radius)
	}
	// Untouched fields keep their defaults.
	if cfg.Forcing.DeadZone != 2.0 {
		t.Errorf("forcing.dead_zone lost its default, got %f", cfg.Forcing.DeadZone)
	}
}

func TestLoadRejectsBadRamp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "layer_b:\n  ramp:\n    positions: [0.0, 1.0]\n    colors: [\"#000000\"]\n"
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for mismatched ramp stops")
	}
}

func TestTierIndex(t *testing.T) {
	cfg := MustLoad("")
	if got := cfg.TierIndex("medium"); got != 2 {
		t.Errorf("TierIndex(medium) = %d, want 2", got)
	}
	if got := cfg.TierIndex("nope"); got != -1 {
		t.Errorf("TierIndex(nope) = %d, want -1", got)
	}
}
