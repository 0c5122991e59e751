// Package telemetry tracks frame timing for the quality ladder and exports
// run statistics.
package telemetry

import (
	"log/slog"
	"time"

	"gonum.org/v1/gonum/stat"
)

// FrameStats tracks frame durations over a rolling window. The quality
// ladder and the diagnostics overlay both read from it.
type FrameStats struct {
	windowSize int
	samples    []float64 // seconds
	writeIndex int
	count      int

	lastFrame time.Time
	hasLast   bool
	frames    int64
}

// NewFrameStats creates a collector averaging over windowSize frames
// (e.g. 120 for two seconds at 60fps).
func NewFrameStats(windowSize int) *FrameStats {
	if windowSize < 1 {
		windowSize = 120
	}
	return &FrameStats{
		windowSize: windowSize,
		samples:    make([]float64, windowSize),
	}
}

// RecordFrame marks a frame boundary and records the elapsed time since
// the previous one. The first call only arms the clock.
func (f *FrameStats) RecordFrame() time.Duration {
	now := time.Now()
	if !f.hasLast {
		f.lastFrame = now
		f.hasLast = true
		return 0
	}
	d := now.Sub(f.lastFrame)
	f.lastFrame = now
	f.Record(d)
	return d
}

// Record adds an externally measured frame duration.
func (f *FrameStats) Record(d time.Duration) {
	f.samples[f.writeIndex] = d.Seconds()
	f.writeIndex = (f.writeIndex + 1) % f.windowSize
	if f.count < f.windowSize {
		f.count++
	}
	f.frames++
}

// Frames returns the total number of recorded frames.
func (f *FrameStats) Frames() int64 { return f.frames }

// Count returns the number of valid samples in the window.
func (f *FrameStats) Count() int { return f.count }

// Mean returns the rolling average frame time.
func (f *FrameStats) Mean() time.Duration {
	if f.count == 0 {
		return 0
	}
	m := stat.Mean(f.samples[:f.count], nil)
	return time.Duration(m * float64(time.Second))
}

// StdDev returns the rolling frame-time standard deviation.
func (f *FrameStats) StdDev() time.Duration {
	if f.count < 2 {
		return 0
	}
	s := stat.StdDev(f.samples[:f.count], nil)
	return time.Duration(s * float64(time.Second))
}

// FPS returns the rolling average frame rate.
func (f *FrameStats) FPS() float64 {
	m := f.Mean()
	if m <= 0 {
		return 0
	}
	return float64(time.Second) / float64(m)
}

// Reset clears the window but keeps the total frame count.
func (f *FrameStats) Reset() {
	f.writeIndex = 0
	f.count = 0
}

// LogValue implements slog.LogValuer for structured logging.
func (f *FrameStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("frames", f.frames),
		slog.Int64("avg_us", f.Mean().Microseconds()),
		slog.Int64("stddev_us", f.StdDev().Microseconds()),
		slog.Float64("fps", f.FPS()),
	)
}
