package renderer

import (
	"math"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/quellon/driftpane/fluid"
)

// MousePointer samples the raylib mouse as a pointer source. Velocity is
// derived from successive positions so the snapshot stays host-agnostic.
type MousePointer struct {
	prevX, prevY float32
	hasPrev      bool
}

func NewMousePointer() *MousePointer {
	return &MousePointer{}
}

// Snapshot reads the current mouse state. Speed is in screen pixels per
// second, computed against the actual frame delta.
func (m *MousePointer) Snapshot() fluid.PointerSnapshot {
	x := float32(rl.GetMouseX())
	y := float32(rl.GetMouseY())
	dt := rl.GetFrameTime()

	var vx, vy float32
	if m.hasPrev && dt > 0 {
		vx = (x - m.prevX) / dt
		vy = (y - m.prevY) / dt
	}
	m.prevX, m.prevY = x, y
	m.hasPrev = true

	inside := x >= 0 && y >= 0 &&
		x < float32(rl.GetScreenWidth()) && y < float32(rl.GetScreenHeight()) &&
		rl.IsWindowFocused()

	return fluid.PointerSnapshot{
		X: x, Y: y,
		VelX: vx, VelY: vy,
		Speed:  float32(math.Hypot(float64(vx), float64(vy))),
		Inside: inside,
	}
}
