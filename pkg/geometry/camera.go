package geometry

import (
	"math"

	"github.com/df07/go-photon-mapper/pkg/core"
)

// Projection selects how a Camera maps screen points to rays
type Projection int

const (
	Perspective Projection = iota
	Orthographic
)

// Camera generates primary rays. Screen coordinates (x, y) run over [0,1]²
// with (0,0) at the lower left.
type Camera struct {
	Position        core.Vec3
	PointOfInterest core.Vec3
	Up              core.Vec3
	Projection      Projection
	Angle           float64 // Vertical field of view in radians (perspective)
	Size            float64 // Screen extent in world units (orthographic)
}

// NewPerspectiveCamera creates a pinhole camera
func NewPerspectiveCamera(position, pointOfInterest, up core.Vec3, angle float64) *Camera {
	return &Camera{
		Position:        position,
		PointOfInterest: pointOfInterest,
		Up:              up.Normalize(),
		Projection:      Perspective,
		Angle:           angle,
	}
}

// NewOrthographicCamera creates a parallel-projection camera
func NewOrthographicCamera(position, pointOfInterest, up core.Vec3, size float64) *Camera {
	return &Camera{
		Position:        position,
		PointOfInterest: pointOfInterest,
		Up:              up.Normalize(),
		Projection:      Orthographic,
		Size:            size,
	}
}

// NewDefaultCamera frames a bounding box from +z with a 20 degree field of view
func NewDefaultCamera(bounds core.AABB) *Camera {
	poi := bounds.Center()
	position := poi.Add(core.NewVec3(0, 0, 4*bounds.MaxDim()))
	return NewPerspectiveCamera(position, poi, core.NewVec3(0, 1, 0), 20*math.Pi/180.0)
}

// Direction is the unit view direction
func (c *Camera) Direction() core.Vec3 {
	return c.PointOfInterest.Subtract(c.Position).Normalize()
}

// Horizontal is the unit screen x axis
func (c *Camera) Horizontal() core.Vec3 {
	return c.Direction().Cross(c.Up).Normalize()
}

// ScreenUp is the screen y axis, perpendicular to the view direction
func (c *Camera) ScreenUp() core.Vec3 {
	return c.Horizontal().Cross(c.Direction())
}

// GenerateRay returns the ray through screen point (x, y)
func (c *Camera) GenerateRay(x, y float64) core.Ray {
	dir := c.Direction()

	if c.Projection == Orthographic {
		xAxis := c.Horizontal().Multiply(c.Size)
		yAxis := c.ScreenUp().Multiply(c.Size)
		lowerLeft := c.Position.Subtract(xAxis.Multiply(0.5)).Subtract(yAxis.Multiply(0.5))
		return core.NewRay(lowerLeft.Add(xAxis.Multiply(x)).Add(yAxis.Multiply(y)), dir)
	}

	screenCenter := c.Position.Add(dir)
	screenHeight := 2 * math.Tan(c.Angle/2.0)
	xAxis := c.Horizontal().Multiply(screenHeight)
	yAxis := c.ScreenUp().Multiply(screenHeight)
	lowerLeft := screenCenter.Subtract(xAxis.Multiply(0.5)).Subtract(yAxis.Multiply(0.5))
	screenPoint := lowerLeft.Add(xAxis.Multiply(x)).Add(yAxis.Multiply(y))
	return core.NewRay(c.Position, screenPoint.Subtract(c.Position).Normalize())
}
