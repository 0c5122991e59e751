package engine

import (
	"time"

	"github.com/quellon/driftpane/config"
	"github.com/quellon/driftpane/telemetry"
)

// Ladder is the adaptive quality state machine. It watches a rolling
// window of frame times and moves one tier at a time: down when the mean
// stays above the slow threshold, up when the mean stays below the fast
// threshold and enough consecutive fast frames have passed since the last
// downgrade (hysteresis). Transitions never skip a tier.
type Ladder struct {
	tiers        []config.TierConfig
	current      int
	slow         time.Duration
	fast         time.Duration
	upgradeAfter int
	windowSize   int

	window     *telemetry.FrameStats
	fastStreak int
}

// NewLadder builds a ladder over the configured tiers, starting at
// startIndex (clamped to the valid range).
func NewLadder(qc config.QualityConfig, startIndex int) *Ladder {
	if startIndex < 0 {
		startIndex = 0
	}
	if startIndex >= len(qc.Tiers) {
		startIndex = len(qc.Tiers) - 1
	}
	window := qc.Window
	if window < 1 {
		window = 24
	}
	return &Ladder{
		tiers:        qc.Tiers,
		current:      startIndex,
		slow:         time.Duration(qc.SlowMs * float64(time.Millisecond)),
		fast:         time.Duration(qc.FastMs * float64(time.Millisecond)),
		upgradeAfter: qc.UpgradeAfter,
		windowSize:   window,
		window:       telemetry.NewFrameStats(window),
	}
}

// Current returns the active tier.
func (l *Ladder) Current() config.TierConfig { return l.tiers[l.current] }

// CurrentIndex returns the active tier index (0 = highest fidelity).
func (l *Ladder) CurrentIndex() int { return l.current }

// Observe feeds one frame time into the ladder. When a transition fires it
// returns the new tier and true; the window is reset so the next decision
// is based on fresh samples only.
func (l *Ladder) Observe(frame time.Duration) (config.TierConfig, bool) {
	l.window.Record(frame)
	if frame < l.fast {
		l.fastStreak++
	} else {
		l.fastStreak = 0
	}
	if l.window.Count() < l.windowSize {
		return l.Current(), false
	}

	mean := l.window.Mean()
	if mean > l.slow && l.current < len(l.tiers)-1 {
		l.current++
		l.window.Reset()
		l.fastStreak = 0
		return l.Current(), true
	}
	if mean < l.fast && l.current > 0 && l.fastStreak >= l.upgradeAfter {
		l.current--
		l.window.Reset()
		l.fastStreak = 0
		return l.Current(), true
	}
	return l.Current(), false
}
