// Package engine drives the background effect: lifecycle state machine,
// fixed-step scheduling, pointer sampling, and the adaptive quality ladder.
// The actual solving and compositing is delegated to a Backend.
package engine

import "github.com/quellon/driftpane/fluid"

// PointerSource supplies the per-tick pointer snapshot. Implementations
// are polled once per tick; the engine never stores snapshots across
// ticks.
type PointerSource interface {
	Snapshot() fluid.PointerSnapshot
}

// NullPointer is a PointerSource that is never inside the panel. Used in
// headless mode and as a safe default.
type NullPointer struct{}

// Snapshot implements PointerSource.
func (NullPointer) Snapshot() fluid.PointerSnapshot { return fluid.PointerSnapshot{} }

// PointerFunc adapts a function to the PointerSource interface.
type PointerFunc func() fluid.PointerSnapshot

// Snapshot implements PointerSource.
func (f PointerFunc) Snapshot() fluid.PointerSnapshot { return f() }
