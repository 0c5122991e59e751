package engine

import "time"

// FixedStep decouples the simulation rate from the render rate with an
// accumulator of unconsumed wall-clock time. Elapsed time is clamped to
// MaxSubSteps*DT so a stall cannot cause runaway catch-up.
type FixedStep struct {
	DT          float64 // seconds per update
	MaxSubSteps int

	accum   float64
	last    time.Time
	hasLast bool
}

// NewFixedStep builds a loop controller with the given nominal timestep.
func NewFixedStep(dt float64, maxSubSteps int) *FixedStep {
	if maxSubSteps < 1 {
		maxSubSteps = 3
	}
	return &FixedStep{DT: dt, MaxSubSteps: maxSubSteps}
}

// Advance consumes the wall time since the previous call and invokes
// update(DT) for every whole timestep, capped at MaxSubSteps. It returns
// the number of substeps run; the caller renders exactly once afterwards
// regardless of that count. The first call only arms the clock.
func (l *FixedStep) Advance(now time.Time, update func(dt float64)) int {
	if !l.hasLast {
		l.last = now
		l.hasLast = true
		return 0
	}
	elapsed := now.Sub(l.last).Seconds()
	l.last = now

	if limit := l.DT * float64(l.MaxSubSteps); elapsed > limit {
		elapsed = limit
	}
	l.accum += elapsed

	steps := 0
	for l.accum >= l.DT && steps < l.MaxSubSteps {
		update(l.DT)
		l.accum -= l.DT
		steps++
	}
	return steps
}

// Reset drops the accumulator and re-arms the clock, used when the loop
// restarts after a stop.
func (l *FixedStep) Reset() {
	l.accum = 0
	l.hasLast = false
}
