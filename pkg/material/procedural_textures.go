package material

import (
	"math"

	"github.com/df07/go-photon-mapper/pkg/core"
)

// Checkerboard alternates two colors in a grid of Checks x Checks squares
// over the unit UV square, repeating outside it
type Checkerboard struct {
	Checks int
	Even   core.Vec3
	Odd    core.Vec3
}

// NewCheckerboard creates a checkerboard color source
func NewCheckerboard(checks int, even, odd core.Vec3) *Checkerboard {
	return &Checkerboard{Checks: max(1, checks), Even: even, Odd: odd}
}

// Evaluate returns the color of the square containing uv
func (c *Checkerboard) Evaluate(uv core.Vec2) core.Vec3 {
	n := float64(c.Checks)
	cell := int(math.Floor(uv.X*n)) + int(math.Floor(uv.Y*n))
	if cell%2 == 0 {
		return c.Even
	}
	return c.Odd
}

// Average returns the area-weighted mean of the two colors
func (c *Checkerboard) Average() core.Vec3 {
	if c.Checks%2 == 0 {
		return c.Even.Add(c.Odd).Multiply(0.5)
	}
	// an odd grid has one more even square
	squares := float64(c.Checks * c.Checks)
	even := math.Ceil(squares / 2)
	return c.Even.Multiply(even / squares).Add(c.Odd.Multiply((squares - even) / squares))
}
