package material

import (
	"math"

	"github.com/df07/go-photon-mapper/pkg/core"
)

// ImageTexture provides color from a 2D image.
// Pixels are kept in linear space; use NewImageTextureFromSRGB for display-encoded data.
type ImageTexture struct {
	Width   int
	Height  int
	Pixels  []core.Vec3 // Row-major: Pixels[y*Width + x], row y = floor(v*Height)
	average core.Vec3
}

// NewImageTexture creates a new image texture from linear pixels
func NewImageTexture(width, height int, pixels []core.Vec3) *ImageTexture {
	t := &ImageTexture{
		Width:  width,
		Height: height,
		Pixels: pixels,
	}
	t.average = t.computeAverage()
	return t
}

// NewImageTextureFromSRGB creates a texture from sRGB-encoded pixels in [0, 1]
func NewImageTextureFromSRGB(width, height int, srgb []core.Vec3) *ImageTexture {
	linear := make([]core.Vec3, len(srgb))
	for i, c := range srgb {
		linear[i] = core.SRGBToLinearVec(c)
	}
	return NewImageTexture(width, height, linear)
}

func (t *ImageTexture) computeAverage() core.Vec3 {
	if len(t.Pixels) == 0 {
		return core.Vec3{}
	}
	sum := core.Vec3{}
	for _, p := range t.Pixels {
		sum = sum.Add(p)
	}
	return sum.Multiply(1.0 / float64(len(t.Pixels)))
}

// Average returns the mean texel color
func (t *ImageTexture) Average() core.Vec3 {
	return t.average
}

// Evaluate samples the texture with bilinear filtering on the closest 4 texels.
// Coordinates wrap (repeat) outside [0, 1).
func (t *ImageTexture) Evaluate(uv core.Vec2) core.Vec3 {
	if t.Width == 0 || t.Height == 0 {
		return core.Vec3{}
	}

	fx := uv.X * float64(t.Width)
	fy := uv.Y * float64(t.Height)
	x0f := math.Floor(fx)
	y0f := math.Floor(fy)
	dx := fx - x0f
	dy := fy - y0f

	x1 := wrap(int(x0f), t.Width)
	y1 := wrap(int(y0f), t.Height)
	// the second texel is clamped at the edge, not wrapped
	x2 := min(x1+1, t.Width-1)
	y2 := min(y1+1, t.Height-1)

	c11 := t.Pixels[y1*t.Width+x1]
	c12 := t.Pixels[y2*t.Width+x1]
	c21 := t.Pixels[y1*t.Width+x2]
	c22 := t.Pixels[y2*t.Width+x2]

	return c11.Multiply((1 - dx) * (1 - dy)).
		Add(c12.Multiply((1 - dx) * dy)).
		Add(c21.Multiply(dx * (1 - dy))).
		Add(c22.Multiply(dx * dy))
}

func wrap(i, n int) int {
	i %= n
	if i < 0 {
		i += n
	}
	return i
}
