package scene

import (
	"github.com/df07/go-photon-mapper/pkg/core"
	"github.com/df07/go-photon-mapper/pkg/geometry"
	"github.com/df07/go-photon-mapper/pkg/material"
)

// Scene contains all the elements needed for rendering
type Scene struct {
	Name            string
	OriginalQuads   []*geometry.Face      // Quads given directly by the scene
	Primitives      []geometry.Primitive  // Spheres and rings, intersected analytically
	RasterizedFaces []*geometry.Face      // Quad approximation of Primitives
	Lights          []*geometry.Face      // Original quads with an emissive material
	Materials       []*material.Material  // In declaration order
	Background      core.Vec3             // Display (sRGB) color
	Camera          *geometry.Camera      // nil until set or defaulted
	Raster          geometry.RasterConfig // Resolution used for RasterizedFaces

	bounds    core.AABB
	hasBounds bool
}

// New creates an empty scene with a white background
func New(raster geometry.RasterConfig) *Scene {
	return &Scene{
		Background: core.NewVec3(1, 1, 1),
		Raster:     raster,
	}
}

// AddMaterial registers a material and returns its index
func (s *Scene) AddMaterial(m *material.Material) int {
	s.Materials = append(s.Materials, m)
	return len(s.Materials) - 1
}

// AddQuad adds an original quad; emissive quads also become lights
func (s *Scene) AddQuad(f *geometry.Face) {
	s.OriginalQuads = append(s.OriginalQuads, f)
	if m := f.Material(); m != nil && m.IsEmissive() {
		s.Lights = append(s.Lights, f)
	}
	s.extend(f.BoundingBox())
}

// AddPrimitive adds an analytic primitive together with its rasterized patches
func (s *Scene) AddPrimitive(p geometry.Primitive) {
	s.Primitives = append(s.Primitives, p)
	for _, f := range p.Rasterize(s.Raster) {
		s.RasterizedFaces = append(s.RasterizedFaces, f)
		s.extend(f.BoundingBox())
	}
	// patches can lie inside the true surface
	s.extend(p.BoundingBox())
}

func (s *Scene) extend(box core.AABB) {
	if !s.hasBounds {
		s.bounds = box
		s.hasBounds = true
		return
	}
	s.bounds = s.bounds.Union(box)
}

// BoundingBox returns the box around every quad and primitive.
// ok is false for an empty scene.
func (s *Scene) BoundingBox() (box core.AABB, ok bool) {
	return s.bounds, s.hasBounds
}

// EnsureCamera installs the default camera if none was given
func (s *Scene) EnsureCamera() {
	if s.Camera != nil {
		return
	}
	if !s.hasBounds {
		s.Camera = geometry.NewDefaultCamera(core.NewAABB(core.NewVec3(-1, -1, -1), core.NewVec3(1, 1, 1)))
		return
	}
	s.Camera = geometry.NewDefaultCamera(s.bounds)
}

// AllPrimitives returns every surface photons can land on: original quads first, then primitives
func (s *Scene) AllPrimitives() []geometry.Primitive {
	all := make([]geometry.Primitive, 0, len(s.OriginalQuads)+len(s.Primitives))
	for _, f := range s.OriginalQuads {
		all = append(all, f)
	}
	return append(all, s.Primitives...)
}

// GetPrimitiveCount returns the number of quads and primitives
func (s *Scene) GetPrimitiveCount() int {
	return len(s.OriginalQuads) + len(s.Primitives)
}
