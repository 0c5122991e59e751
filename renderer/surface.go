package renderer

import (
	"image/color"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// ScreenPresenter uploads composed frames into a texture and draws it
// stretched over the window. Used by the CPU backend; the GPU backend
// renders into its own texture directly.
type ScreenPresenter struct {
	tex    rl.Texture2D
	w, h   int
	loaded bool
}

// NewScreenPresenter creates the presenter. The texture itself is created
// lazily on first Present so the resolution can follow the compositor.
func NewScreenPresenter() *ScreenPresenter {
	return &ScreenPresenter{}
}

func (p *ScreenPresenter) Present(pix []color.RGBA, w, h int) {
	if !p.loaded || w != p.w || h != p.h {
		if p.loaded {
			rl.UnloadTexture(p.tex)
		}
		img := rl.GenImageColor(w, h, rl.Blank)
		p.tex = rl.LoadTextureFromImage(img)
		rl.UnloadImage(img)
		rl.SetTextureFilter(p.tex, rl.FilterBilinear)
		p.w, p.h = w, h
		p.loaded = true
	}

	rl.UpdateTexture(p.tex, pix)

	src := rl.Rectangle{Width: float32(p.w), Height: float32(p.h)}
	dst := rl.Rectangle{Width: float32(rl.GetScreenWidth()), Height: float32(rl.GetScreenHeight())}
	rl.DrawTexturePro(p.tex, src, dst, rl.Vector2{}, 0, rl.White)
}

func (p *ScreenPresenter) Close() {
	if p.loaded {
		rl.UnloadTexture(p.tex)
		p.loaded = false
	}
}
