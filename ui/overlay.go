// Package ui draws the optional diagnostics overlay on top of the effect.
package ui

import (
	"fmt"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"
)

// OverlayData is the per-frame snapshot the overlay renders.
type OverlayData struct {
	Backend    string
	Tier       string
	GridW      int
	GridH      int
	AvgFrameMs float64
	FPS        int32
	Frames     int64
	Paused     bool
}

// OverlayActions reports which controls were clicked this frame.
type OverlayActions struct {
	TogglePause bool
}

// Overlay is the debug HUD, toggled with F1.
type Overlay struct {
	visible bool
}

func NewOverlay() *Overlay {
	return &Overlay{}
}

// HandleInput processes the visibility toggle.
func (o *Overlay) HandleInput() {
	if rl.IsKeyPressed(rl.KeyF1) {
		o.visible = !o.visible
	}
}

// Visible reports whether the overlay is shown.
func (o *Overlay) Visible() bool { return o.visible }

// Draw renders the overlay when visible and returns any clicked actions.
func (o *Overlay) Draw(data OverlayData) OverlayActions {
	var actions OverlayActions
	if !o.visible {
		return actions
	}

	rl.DrawRectangle(8, 8, 250, 118, rl.Color{R: 0, G: 0, B: 0, A: 170})

	rl.DrawText("driftpane", 16, 14, 18, rl.White)
	rl.DrawText(
		fmt.Sprintf("backend: %s | tier: %s", data.Backend, data.Tier),
		16, 38, 14, rl.LightGray,
	)
	rl.DrawText(
		fmt.Sprintf("grid: %dx%d", data.GridW, data.GridH),
		16, 56, 14, rl.LightGray,
	)
	rl.DrawText(
		fmt.Sprintf("frame: %.2fms | fps: %d | n: %d", data.AvgFrameMs, data.FPS, data.Frames),
		16, 74, 14, rl.LightGray,
	)

	label := "Pause"
	if data.Paused {
		label = "Resume"
	}
	if gui.Button(rl.Rectangle{X: 16, Y: 94, Width: 90, Height: 24}, label) {
		actions.TogglePause = true
	}
	return actions
}
