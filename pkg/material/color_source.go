package material

import (
	"github.com/df07/go-photon-mapper/pkg/core"
)

// ColorSource provides spatially-varying colors for materials
type ColorSource interface {
	// Evaluate returns the linear color at the given texture coordinates
	Evaluate(uv core.Vec2) core.Vec3
	// Average returns a single representative color (used where no UV is known)
	Average() core.Vec3
}

// SolidColor provides uniform color
type SolidColor struct {
	Color core.Vec3
}

// NewSolidColor creates a new solid color source
func NewSolidColor(color core.Vec3) *SolidColor {
	return &SolidColor{Color: color}
}

// Evaluate returns the solid color regardless of UV
func (s *SolidColor) Evaluate(uv core.Vec2) core.Vec3 {
	return s.Color
}

// Average returns the solid color
func (s *SolidColor) Average() core.Vec3 {
	return s.Color
}
