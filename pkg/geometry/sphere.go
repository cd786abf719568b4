package geometry

import (
	"math"

	"github.com/df07/go-photon-mapper/pkg/core"
	"github.com/df07/go-photon-mapper/pkg/material"
)

// minHitDistance keeps secondary rays from re-hitting the surface they leave
const minHitDistance = 0.001

// Sphere represents a sphere shape
type Sphere struct {
	photonLog
	Center   core.Vec3
	Radius   float64
	material *material.Material
}

// NewSphere creates a new sphere
func NewSphere(center core.Vec3, radius float64, m *material.Material) *Sphere {
	return &Sphere{
		Center:   center,
		Radius:   radius,
		material: m,
	}
}

// Material returns the sphere's material
func (s *Sphere) Material() *material.Material {
	return s.material
}

// Intersect solves the quadratic from substituting the ray into the sphere equation.
// The near root wins when it lies beyond minHitDistance, otherwise the far root
// (ray starting inside). T2 is the far root.
func (s *Sphere) Intersect(ray core.Ray, hit *HitRecord, allowBackface bool) bool {
	oc := ray.Origin.Subtract(s.Center)

	a := ray.Direction.Dot(ray.Direction)
	b := 2 * ray.Direction.Dot(oc)
	c := oc.Dot(oc) - s.Radius*s.Radius

	disc := b*b - 4*a*c
	if disc <= 0 {
		return false
	}

	sqrtDisc := math.Sqrt(disc)
	t1 := (-b - sqrtDisc) / (2 * a)
	t2 := (-b + sqrtDisc) / (2 * a)

	var t float64
	switch {
	case t1 > minHitDistance:
		t = t1
	case t2 > minHitDistance:
		t = t2
	default:
		return false
	}
	if t >= hit.T {
		return false
	}

	normal := ray.At(t).Subtract(s.Center).Normalize()
	hit.set(t, t2, s.material, normal, s)
	return true
}

// BoundingBox returns the axis-aligned bounding box for this sphere
func (s *Sphere) BoundingBox() core.AABB {
	return core.NewAABBAround(s.Center, s.Radius)
}

// spherePoint places a grid point: s runs around the equator, t from the
// south pole (0) to the north pole (1)
func spherePoint(s, t float64, center core.Vec3, radius float64) core.Vec3 {
	angle := 2 * math.Pi * s
	y := -math.Cos(math.Pi * t)
	factor := math.Sqrt(math.Max(0, 1-y*y))
	x := factor * math.Cos(angle)
	z := -factor * math.Sin(angle)
	return core.NewVec3(x, y, z).Multiply(radius).Add(center)
}

// Rasterize approximates the sphere with a latitude/longitude grid of quads.
// The poles are covered by pairs of quads that each share the pole vertex.
func (s *Sphere) Rasterize(config RasterConfig) []*Face {
	h := config.SphereHoriz
	if h%2 != 0 {
		h++
	}
	v := config.SphereVert

	vertex := func(i, j int) Vertex {
		u, w := float64(i)/float64(h), float64(j)/float64(v)
		return Vertex{Position: spherePoint(u, w, s.Center, s.Radius), UV: core.NewVec2(u, w)}
	}
	bottom := Vertex{Position: s.Center.Add(core.NewVec3(0, -s.Radius, 0)), UV: core.NewVec2(0, 0)}
	top := Vertex{Position: s.Center.Add(core.NewVec3(0, s.Radius, 0)), UV: core.NewVec2(0, 1)}

	faces := make([]*Face, 0, h*(v-2)+h)
	for j := 1; j < v-1; j++ {
		for i := 0; i < h; i++ {
			a := vertex(i, j)
			b := vertex((i+1)%h, j)
			c := vertex(i, j+1)
			d := vertex((i+1)%h, j+1)
			faces = append(faces, s.rasterFace(a, b, d, c))
		}
	}

	for i := 0; i < h; i += 2 {
		b := vertex(i, 1)
		c := vertex((i+1)%h, 1)
		d := vertex((i+2)%h, 1)
		faces = append(faces, s.rasterFace(d, c, b, bottom))

		b = vertex(i, v-1)
		c = vertex((i+1)%h, v-1)
		d = vertex((i+2)%h, v-1)
		faces = append(faces, s.rasterFace(b, c, d, top))
	}
	return faces
}

func (s *Sphere) rasterFace(a, b, c, d Vertex) *Face {
	f := NewFace(s.material, a, b, c, d)
	f.owner = s
	return f
}
