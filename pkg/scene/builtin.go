package scene

import (
	"github.com/df07/go-photon-mapper/pkg/core"
	"github.com/df07/go-photon-mapper/pkg/geometry"
	"github.com/df07/go-photon-mapper/pkg/material"
)

// NewCornellScene creates a Cornell box two units across, open towards +Z,
// lit by a small ceiling quad, with a mirror sphere and a glass ring inside
func NewCornellScene(raster geometry.RasterConfig) *Scene {
	s := New(raster)
	s.Name = "cornell-box"
	s.Background = core.NewVec3(0, 0, 0)

	white := material.NewDiffuse(core.NewVec3(0.73, 0.73, 0.73))
	red := material.NewDiffuse(core.NewVec3(0.65, 0.05, 0.05))
	green := material.NewDiffuse(core.NewVec3(0.12, 0.45, 0.15))
	light := material.NewEmissive(core.NewVec3(20, 20, 20))
	mirror := material.New(core.NewVec3(0.05, 0.05, 0.05), core.NewVec3(0.9, 0.9, 0.9), core.Vec3{}, core.Vec3{})
	glass := material.New(core.NewVec3(0.1, 0.1, 0.1), core.NewVec3(0.1, 0.1, 0.1), core.Vec3{}, core.NewVec3(0.8, 0.8, 0.8))
	for _, m := range []*material.Material{white, red, green, light, mirror, glass} {
		s.AddMaterial(m)
	}

	// walls face into the box
	s.AddQuad(geometry.NewQuad(core.NewVec3(-1, 0, -1), core.NewVec3(0, 0, 2), core.NewVec3(2, 0, 0), white)) // floor
	s.AddQuad(geometry.NewQuad(core.NewVec3(-1, 2, -1), core.NewVec3(2, 0, 0), core.NewVec3(0, 0, 2), white)) // ceiling
	s.AddQuad(geometry.NewQuad(core.NewVec3(-1, 0, -1), core.NewVec3(2, 0, 0), core.NewVec3(0, 2, 0), white)) // back
	s.AddQuad(geometry.NewQuad(core.NewVec3(-1, 0, -1), core.NewVec3(0, 2, 0), core.NewVec3(0, 0, 2), red))   // left
	s.AddQuad(geometry.NewQuad(core.NewVec3(1, 0, -1), core.NewVec3(0, 0, 2), core.NewVec3(0, 2, 0), green))  // right

	// just below the ceiling so it does not z-fight with it
	s.AddQuad(geometry.NewQuad(core.NewVec3(-0.25, 1.99, -0.25), core.NewVec3(0.5, 0, 0), core.NewVec3(0, 0, 0.5), light))

	s.AddPrimitive(geometry.NewSphere(core.NewVec3(-0.45, 0.4, -0.3), 0.4, mirror))
	s.AddPrimitive(geometry.NewCylinderRing(core.NewVec3(0.45, 0.2, 0.25), 0.4, 0.2, 0.35, glass))

	s.Camera = geometry.NewPerspectiveCamera(
		core.NewVec3(0, 1, 5.5),
		core.NewVec3(0, 1, 0),
		core.NewVec3(0, 1, 0),
		0.5236, // 30 degrees
	)
	return s
}

// NewRingScene creates a reflective ring on a checkered floor under a single light.
// The caustic inside the ring is carried entirely by photons.
func NewRingScene(raster geometry.RasterConfig) *Scene {
	s := New(raster)
	s.Name = "ring"
	s.Background = core.NewVec3(0.2, 0.2, 0.25)

	floor := material.NewTextured(
		material.NewCheckerboard(8, core.NewVec3(0.8, 0.8, 0.8), core.NewVec3(0.3, 0.3, 0.3)),
		core.Vec3{}, core.Vec3{}, core.Vec3{},
	)
	light := material.NewEmissive(core.NewVec3(10, 10, 10))
	gold := material.New(core.NewVec3(0.1, 0.08, 0.02), core.NewVec3(0.9, 0.75, 0.3), core.Vec3{}, core.Vec3{})
	s.AddMaterial(floor)
	s.AddMaterial(light)
	s.AddMaterial(gold)

	s.AddQuad(geometry.NewQuad(core.NewVec3(-2, 0, -2), core.NewVec3(0, 0, 4), core.NewVec3(4, 0, 0), floor))
	s.AddQuad(geometry.NewQuad(core.NewVec3(-1.5, 3, -1.5), core.NewVec3(0.5, 0, 0), core.NewVec3(0, 0, 0.5), light))
	s.AddPrimitive(geometry.NewCylinderRing(core.NewVec3(0, 0.25, 0), 0.5, 0.9, 1, gold))

	s.Camera = geometry.NewPerspectiveCamera(
		core.NewVec3(0, 3, 4),
		core.NewVec3(0, 0.2, 0),
		core.NewVec3(0, 1, 0),
		0.7,
	)
	return s
}
