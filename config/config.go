// Package config provides configuration loading for the background effect
// engine. Defaults are embedded and merged with an optional user file; the
// loaded Config is passed explicitly to the engine rather than held in a
// package global.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/lucasb-eyer/go-colorful"
	"gopkg.in/yaml.v3"

	"github.com/quellon/driftpane/fluid"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all engine configuration parameters.
type Config struct {
	Screen    ScreenConfig    `yaml:"screen"`
	Sim       SimConfig       `yaml:"sim"`
	LayerA    LayerConfig     `yaml:"layer_a"`
	LayerB    LayerConfig     `yaml:"layer_b"`
	Forcing   ForcingConfig   `yaml:"forcing"`
	Quality   QualityConfig   `yaml:"quality"`
	Effects   EffectsConfig   `yaml:"effects"`
	Blob      BlobConfig      `yaml:"blob"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Persist   PersistConfig   `yaml:"persist"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ScreenConfig holds display settings.
type ScreenConfig struct {
	Width     int `yaml:"width"`
	Height    int `yaml:"height"`
	TargetFPS int `yaml:"target_fps"`
}

// SimConfig holds timestep and lifecycle parameters.
type SimConfig struct {
	DT                float64 `yaml:"dt"`                 // fixed nominal timestep in seconds
	MaxSubSteps       int     `yaml:"max_sub_steps"`      // cap on update substeps per frame
	WarmupSteps       int     `yaml:"warmup_steps"`       // invisible steps before first visible frame
	WarmupYieldEvery  int     `yaml:"warmup_yield_every"` // steps between warm-up yields
	HeartbeatInterval int     `yaml:"heartbeat_interval"` // warm-up steps between heartbeat calls
	Seed              int64   `yaml:"seed"`               // 0 = time-based
	ReducedMotion     bool    `yaml:"reduced_motion"`     // zero drift and pointer force
	Backend           string  `yaml:"backend"`            // auto | cpu | gpu
}

// LayerConfig holds the physical tuning of one simulated layer.
type LayerConfig struct {
	Viscosity    float64    `yaml:"viscosity"`
	DyeDiffusion float64    `yaml:"dye_diffusion"`
	Buoyancy     float64    `yaml:"buoyancy"` // negative = upward
	DriftX       float64    `yaml:"drift_x"`
	DriftY       float64    `yaml:"drift_y"`
	Opacity      float64    `yaml:"opacity"`
	Ramp         RampConfig `yaml:"ramp"`
}

// RampConfig describes a multi-stop color ramp as parallel position/color
// lists. Colors are hex strings.
type RampConfig struct {
	Positions []float64 `yaml:"positions"`
	Colors    []string  `yaml:"colors"`
}

// ForcingConfig holds pointer coupling parameters.
type ForcingConfig struct {
	ForceScale float64 `yaml:"force_scale"`
	Radius     float64 `yaml:"radius"`    // grid cells
	DeadZone   float64 `yaml:"dead_zone"` // viewport units/s
	DyeAmount  float64 `yaml:"dye_amount"`
	JitterAmp  float64 `yaml:"jitter_amp"`
}

// TierConfig is one rung of the quality ladder.
type TierConfig struct {
	Name       string `yaml:"name"`
	Width      int    `yaml:"width"`
	Height     int    `yaml:"height"`
	Iterations int    `yaml:"iterations"`
}

// QualityConfig holds the adaptive quality ladder tuning. The thresholds
// are empirical defaults, not load-bearing invariants.
type QualityConfig struct {
	Tiers        []TierConfig `yaml:"tiers"` // ordered highest fidelity first
	SlowMs       float64      `yaml:"slow_ms"`
	FastMs       float64      `yaml:"fast_ms"`
	Window       int          `yaml:"window"`
	UpgradeAfter int          `yaml:"upgrade_after"` // sustained fast frames before an upgrade
}

// BloomConfig holds bloom post-effect parameters.
type BloomConfig struct {
	Enabled    bool    `yaml:"enabled"`
	Downsample int     `yaml:"downsample"`
	Passes     int     `yaml:"passes"`
	Strength   float64 `yaml:"strength"`
}

// FeatherConfig holds edge feathering parameters.
type FeatherConfig struct {
	Enabled bool   `yaml:"enabled"`
	Edge    string `yaml:"edge"` // left | right | top | bottom
	Width   int    `yaml:"width"`
	Color   string `yaml:"color"` // flat target color, hex
}

// EffectsConfig groups the optional post effects.
type EffectsConfig struct {
	Bloom   BloomConfig   `yaml:"bloom"`
	Feather FeatherConfig `yaml:"feather"`
}

// BlobConfig holds the particle blob-field effect parameters.
type BlobConfig struct {
	Enabled   bool    `yaml:"enabled"`
	Count     int     `yaml:"count"`
	MinRadius float64 `yaml:"min_radius"`
	MaxRadius float64 `yaml:"max_radius"`
	Speed     float64 `yaml:"speed"`
}

// TelemetryConfig holds frame statistics parameters.
type TelemetryConfig struct {
	StatsWindow int `yaml:"stats_window"` // frames per stats window
}

// PersistConfig locates the small key-value store for the selected tier.
type PersistConfig struct {
	Path string `yaml:"path"`
}

// DerivedConfig holds values computed from the loaded config.
type DerivedConfig struct {
	RampA        *fluid.Ramp
	RampB        *fluid.Ramp
	FeatherColor colorful.Color
}

// Load loads configuration from a YAML file, merging with embedded
// defaults. If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.computeDerived(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MustLoad is like Load but panics on error.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(fmt.Sprintf("config: failed to load: %v", err))
	}
	return cfg
}

// computeDerived validates ramps and tiers and builds the derived values.
func (c *Config) computeDerived() error {
	rampA, err := buildRamp(c.LayerA.Ramp)
	if err != nil {
		return fmt.Errorf("layer_a ramp: %w", err)
	}
	rampB, err := buildRamp(c.LayerB.Ramp)
	if err != nil {
		return fmt.Errorf("layer_b ramp: %w", err)
	}
	c.Derived.RampA = rampA
	c.Derived.RampB = rampB

	fc, err := colorful.Hex(c.Effects.Feather.Color)
	if err != nil {
		return fmt.Errorf("feather color: %w", err)
	}
	c.Derived.FeatherColor = fc

	if len(c.Quality.Tiers) == 0 {
		return fmt.Errorf("quality ladder needs at least one tier")
	}
	for i, tier := range c.Quality.Tiers {
		if tier.Width < 3 || tier.Height < 3 || tier.Iterations < 1 {
			return fmt.Errorf("quality tier %d (%s) has invalid dimensions", i, tier.Name)
		}
	}
	if c.Sim.DT <= 0 {
		return fmt.Errorf("sim dt must be positive, got %f", c.Sim.DT)
	}
	if c.Sim.MaxSubSteps < 1 {
		c.Sim.MaxSubSteps = 1
	}
	return nil
}

func buildRamp(rc RampConfig) (*fluid.Ramp, error) {
	if len(rc.Positions) != len(rc.Colors) {
		return nil, fmt.Errorf("%d positions but %d colors", len(rc.Positions), len(rc.Colors))
	}
	stops := make([]fluid.RampStop, len(rc.Positions))
	for i := range rc.Positions {
		col, err := colorful.Hex(rc.Colors[i])
		if err != nil {
			return nil, fmt.Errorf("stop %d: %w", i, err)
		}
		stops[i] = fluid.RampStop{T: rc.Positions[i], Color: col}
	}
	return fluid.NewRamp(stops)
}

// TierIndex returns the index of the named tier, or -1.
func (c *Config) TierIndex(name string) int {
	for i, tier := range c.Quality.Tiers {
		if tier.Name == name {
			return i
		}
	}
	return -1
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
