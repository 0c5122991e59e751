package renderer

import (
	"errors"
	"fmt"

	"github.com/go-gl/gl/v4.3-core/gl"
)

// ErrNoFloatTarget is returned when the context supports neither 32-bit
// nor 16-bit float render targets. The GPU solver cannot run without one;
// callers fall back to the CPU backend.
var ErrNoFloatTarget = errors.New("no renderable float texture format available")

// Caps describes what the active GL context can do for the solver.
type Caps struct {
	Float32Render bool
	Float16Render bool
	Renderer      string
}

// Format returns the best usable internal format and texel type, or
// ErrNoFloatTarget.
func (c Caps) Format() (int32, uint32, error) {
	if c.Float32Render {
		return gl.RGBA32F, gl.FLOAT, nil
	}
	if c.Float16Render {
		return gl.RGBA16F, gl.HALF_FLOAT, nil
	}
	return 0, 0, ErrNoFloatTarget
}

// ProbeCaps inspects the current GL context. It must run on the thread
// that owns the context, after the window exists.
func ProbeCaps() (Caps, error) {
	if err := gl.Init(); err != nil {
		return Caps{}, fmt.Errorf("initializing gl bindings: %w", err)
	}

	caps := Caps{
		Renderer:      gl.GoStr(gl.GetString(gl.RENDERER)),
		Float32Render: formatRenderable(gl.RGBA32F, gl.FLOAT),
		Float16Render: formatRenderable(gl.RGBA16F, gl.HALF_FLOAT),
	}
	return caps, nil
}

// formatRenderable attaches a tiny texture of the candidate format to a
// framebuffer and checks completeness. Attachment succeeding is the only
// reliable signal; the extension strings lie on some drivers.
func formatRenderable(internalFormat int32, texelType uint32) bool {
	// Drain any stale error state first.
	for gl.GetError() != gl.NO_ERROR {
	}

	var tex, fbo uint32
	gl.GenTextures(1, &tex)
	gl.BindTexture(gl.TEXTURE_2D, tex)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	gl.TexImage2D(gl.TEXTURE_2D, 0, internalFormat, 4, 4, 0, gl.RGBA, texelType, nil)

	gl.GenFramebuffers(1, &fbo)
	gl.BindFramebuffer(gl.FRAMEBUFFER, fbo)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, tex, 0)

	ok := gl.CheckFramebufferStatus(gl.FRAMEBUFFER) == gl.FRAMEBUFFER_COMPLETE &&
		gl.GetError() == gl.NO_ERROR

	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.DeleteFramebuffers(1, &fbo)
	gl.DeleteTextures(1, &tex)
	return ok
}
