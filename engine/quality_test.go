package engine

import (
	"testing"
	"time"

	"github.com/quellon/driftpane/config"
)

func testQuality() config.QualityConfig {
	return config.QualityConfig{
		Tiers: []config.TierConfig{
			{Name: "ultra", Width: 320, Height: 180, Iterations: 24},
			{Name: "high", Width: 256, Height: 144, Iterations: 20},
			{Name: "medium", Width: 192, Height: 108, Iterations: 16},
			{Name: "low", Width: 128, Height: 72, Iterations: 12},
		},
		SlowMs:       18,
		FastMs:       14,
		Window:       24,
		UpgradeAfter: 300,
	}
}

func feed(l *Ladder, frame time.Duration, n int) int {
	changes := 0
	for i := 0; i < n; i++ {
		if _, changed := l.Observe(frame); changed {
			changes++
		}
	}
	return changes
}

func TestLadderDowngradesOnceOnSustainedSlowness(t *testing.T) {
	l := NewLadder(testQuality(), 0)

	if changes := feed(l, 22*time.Millisecond, 24); changes != 1 {
		t.Fatalf("24 slow frames caused %d transitions, want 1", changes)
	}
	if got := l.Current().Name; got != "high" {
		t.Fatalf("tier after downgrade = %q, want high", got)
	}

	// The window was reset, so a handful more slow frames must not
	// trigger a second step down yet.
	if changes := feed(l, 22*time.Millisecond, 10); changes != 0 {
		t.Fatalf("partial window caused %d transitions, want 0", changes)
	}
}

func TestLadderStepsOneTierAtATime(t *testing.T) {
	l := NewLadder(testQuality(), 0)

	feed(l, 30*time.Millisecond, 24)
	if got := l.CurrentIndex(); got != 1 {
		t.Fatalf("index after one full slow window = %d, want 1", got)
	}
	feed(l, 30*time.Millisecond, 24)
	if got := l.CurrentIndex(); got != 2 {
		t.Fatalf("index after two full slow windows = %d, want 2", got)
	}
}

func TestLadderStopsAtLowestTier(t *testing.T) {
	l := NewLadder(testQuality(), 3)

	if changes := feed(l, 30*time.Millisecond, 200); changes != 0 {
		t.Fatalf("lowest tier still transitioned %d times", changes)
	}
	if got := l.Current().Name; got != "low" {
		t.Fatalf("tier = %q, want low", got)
	}
}

func TestLadderUpgradeRequiresHysteresis(t *testing.T) {
	qc := testQuality()
	qc.UpgradeAfter = 50
	l := NewLadder(qc, 2)

	// Fast frames, but fewer than the required streak: no upgrade even
	// though the window mean is well under the fast threshold.
	if changes := feed(l, 8*time.Millisecond, 49); changes != 0 {
		t.Fatalf("upgraded after only 49 fast frames")
	}
	if _, changed := l.Observe(8 * time.Millisecond); !changed {
		t.Fatalf("50th consecutive fast frame did not upgrade")
	}
	if got := l.Current().Name; got != "high" {
		t.Fatalf("tier after upgrade = %q, want high", got)
	}
}

func TestLadderSlowFrameResetsFastStreak(t *testing.T) {
	qc := testQuality()
	qc.UpgradeAfter = 30
	l := NewLadder(qc, 1)

	feed(l, 8*time.Millisecond, 29)
	l.Observe(16 * time.Millisecond) // breaks the streak
	if changes := feed(l, 8*time.Millisecond, 29); changes != 0 {
		t.Fatalf("upgraded without a full fast streak after the break")
	}
	if _, changed := l.Observe(8 * time.Millisecond); !changed {
		t.Fatalf("rebuilt streak did not upgrade")
	}
}

func TestLadderStopsAtHighestTier(t *testing.T) {
	qc := testQuality()
	qc.UpgradeAfter = 10
	l := NewLadder(qc, 0)

	if changes := feed(l, 5*time.Millisecond, 500); changes != 0 {
		t.Fatalf("highest tier still transitioned %d times", changes)
	}
}

func TestLadderClampsStartIndex(t *testing.T) {
	l := NewLadder(testQuality(), 99)
	if got := l.Current().Name; got != "low" {
		t.Fatalf("out-of-range start index landed on %q, want low", got)
	}
	l = NewLadder(testQuality(), -5)
	if got := l.Current().Name; got != "ultra" {
		t.Fatalf("negative start index landed on %q, want ultra", got)
	}
}
