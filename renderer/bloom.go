package renderer

import "image/color"

// Bloom is a cheap CPU bloom: downsample the composed frame, box-blur it a
// few times, then screen-blend the blurred copy back over the original.
type Bloom struct {
	downsample int
	passes     int
	strength   float32

	small []float32 // rgb triples at downsampled resolution
	tmp   []float32
	sw    int
	sh    int
}

// NewBloom builds a bloom stage. downsample is the resolution divisor,
// passes the number of blur iterations.
func NewBloom(downsample, passes int, strength float64) *Bloom {
	if downsample < 1 {
		downsample = 4
	}
	if passes < 1 {
		passes = 1
	}
	return &Bloom{
		downsample: downsample,
		passes:     passes,
		strength:   float32(strength),
	}
}

// Apply blurs and screen-blends in place over pix.
func (bl *Bloom) Apply(pix []color.RGBA, w, h int) {
	sw := w / bl.downsample
	sh := h / bl.downsample
	if sw < 2 || sh < 2 {
		return
	}
	if sw != bl.sw || sh != bl.sh {
		bl.sw, bl.sh = sw, sh
		bl.small = make([]float32, sw*sh*3)
		bl.tmp = make([]float32, sw*sh*3)
	}

	bl.downsampleInto(pix, w)
	for i := 0; i < bl.passes; i++ {
		bl.blurOnce()
	}
	bl.blendOver(pix, w, h)
}

// downsampleInto averages downsample-sized blocks of the source frame.
func (bl *Bloom) downsampleInto(pix []color.RGBA, w int) {
	d := bl.downsample
	norm := 1.0 / float32(d*d)
	for sy := 0; sy < bl.sh; sy++ {
		for sx := 0; sx < bl.sw; sx++ {
			var r, g, b float32
			for dy := 0; dy < d; dy++ {
				row := (sy*d + dy) * w
				for dx := 0; dx < d; dx++ {
					p := pix[row+sx*d+dx]
					r += float32(p.R)
					g += float32(p.G)
					b += float32(p.B)
				}
			}
			i := (sy*bl.sw + sx) * 3
			bl.small[i] = r * norm
			bl.small[i+1] = g * norm
			bl.small[i+2] = b * norm
		}
	}
}

// blurOnce runs a 3x3 box blur over the small buffer.
func (bl *Bloom) blurOnce() {
	sw, sh := bl.sw, bl.sh
	for y := 0; y < sh; y++ {
		y0 := maxInt(y-1, 0)
		y1 := minInt(y+1, sh-1)
		for x := 0; x < sw; x++ {
			x0 := maxInt(x-1, 0)
			x1 := minInt(x+1, sw-1)
			var r, g, b, n float32
			for yy := y0; yy <= y1; yy++ {
				for xx := x0; xx <= x1; xx++ {
					i := (yy*sw + xx) * 3
					r += bl.small[i]
					g += bl.small[i+1]
					b += bl.small[i+2]
					n++
				}
			}
			i := (y*sw + x) * 3
			bl.tmp[i] = r / n
			bl.tmp[i+1] = g / n
			bl.tmp[i+2] = b / n
		}
	}
	bl.small, bl.tmp = bl.tmp, bl.small
}

// blendOver screen-blends the upsampled blur over the full-resolution
// frame: out = 1 - (1-base)(1-bloom*strength).
func (bl *Bloom) blendOver(pix []color.RGBA, w, h int) {
	for y := 0; y < h; y++ {
		sy := minInt(y/bl.downsample, bl.sh-1)
		for x := 0; x < w; x++ {
			sx := minInt(x/bl.downsample, bl.sw-1)
			i := (sy*bl.sw + sx) * 3
			p := &pix[y*w+x]
			p.R = screenBlend(p.R, bl.small[i]*bl.strength)
			p.G = screenBlend(p.G, bl.small[i+1]*bl.strength)
			p.B = screenBlend(p.B, bl.small[i+2]*bl.strength)
		}
	}
}

func screenBlend(base uint8, add float32) uint8 {
	b := float32(base) / 255
	a := add / 255
	if a < 0 {
		a = 0
	}
	if a > 1 {
		a = 1
	}
	out := 1 - (1-b)*(1-a)
	return uint8(out*255 + 0.5)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
