package geometry

import (
	"math"

	"github.com/df07/go-photon-mapper/pkg/core"
	"github.com/df07/go-photon-mapper/pkg/material"
)

const (
	// barycentricTolerance lets grazing hits on shared edges through
	barycentricTolerance = 0.00001
	// singularDeterminant is the |det| at or below which a triangle is treated as degenerate
	singularDeterminant = 0.000001
)

// Vertex is a quad corner with texture coordinates
type Vertex struct {
	Position core.Vec3
	UV       core.Vec2
}

// NewVertex creates a vertex without texture coordinates
func NewVertex(position core.Vec3) Vertex {
	return Vertex{Position: position}
}

// Face is a quadrilateral, possibly non-planar, intersected as the two
// triangles (a,b,c) and (a,c,d)
type Face struct {
	photonLog
	Vertices [4]Vertex
	material *material.Material
	owner    Primitive // Primitive this face approximates, nil for scene quads
}

// NewFace creates a quad from four vertices in winding order
func NewFace(m *material.Material, a, b, c, d Vertex) *Face {
	return &Face{
		Vertices: [4]Vertex{a, b, c, d},
		material: m,
	}
}

// NewFaceFromPoints creates a quad from four corner positions
func NewFaceFromPoints(m *material.Material, a, b, c, d core.Vec3) *Face {
	return NewFace(m, NewVertex(a), NewVertex(b), NewVertex(c), NewVertex(d))
}

// NewQuad creates a planar quad from a corner and two edge vectors.
// The front face normal points along u × v.
func NewQuad(corner, u, v core.Vec3, m *material.Material) *Face {
	return NewFace(m,
		Vertex{Position: corner, UV: core.NewVec2(0, 0)},
		Vertex{Position: corner.Add(u), UV: core.NewVec2(1, 0)},
		Vertex{Position: corner.Add(u).Add(v), UV: core.NewVec2(1, 1)},
		Vertex{Position: corner.Add(v), UV: core.NewVec2(0, 1)},
	)
}

// Material returns the face's material
func (f *Face) Material() *material.Material {
	return f.material
}

// Owner returns the primitive this face was rasterized from, or nil
func (f *Face) Owner() Primitive {
	return f.owner
}

// Point returns the position of corner i
func (f *Face) Point(i int) core.Vec3 {
	return f.Vertices[i].Position
}

// Normal averages the normals of the two triangles; the quad might be non-planar
func (f *Face) Normal() core.Vec3 {
	a, b, c, d := f.Point(0), f.Point(1), f.Point(2), f.Point(3)
	return triangleNormal(a, b, c).Add(triangleNormal(a, c, d)).Multiply(0.5)
}

func triangleNormal(p1, p2, p3 core.Vec3) core.Vec3 {
	return p2.Subtract(p1).Cross(p3.Subtract(p2)).Normalize()
}

// Centroid returns the average of the four corners
func (f *Face) Centroid() core.Vec3 {
	return f.Point(0).Add(f.Point(1)).Add(f.Point(2)).Add(f.Point(3)).Multiply(0.25)
}

// Area returns the summed area of the two triangles
func (f *Face) Area() float64 {
	a, b, c, d := f.Point(0), f.Point(1), f.Point(2), f.Point(3)
	return triangleArea(a.Subtract(b).Length(), a.Subtract(c).Length(), b.Subtract(c).Length()) +
		triangleArea(c.Subtract(d).Length(), a.Subtract(d).Length(), a.Subtract(c).Length())
}

// triangleArea uses Heron's formula on the three side lengths
func triangleArea(a, b, c float64) float64 {
	s := (a + b + c) / 2
	return math.Sqrt(math.Max(0, s*(s-a)*(s-b)*(s-c)))
}

// RandomPoint returns a point on the quad by bilinear interpolation of the corners
func (f *Face) RandomPoint(sampler core.Sampler) core.Vec3 {
	st := sampler.Get2D()
	s, t := st.X, st.Y
	a, b, c, d := f.Point(0), f.Point(1), f.Point(2), f.Point(3)
	return a.Multiply(s * t).
		Add(b.Multiply(s * (1 - t))).
		Add(d.Multiply((1 - s) * t)).
		Add(c.Multiply((1 - s) * (1 - t)))
}

// BoundingBox returns the box around the four corners
func (f *Face) BoundingBox() core.AABB {
	return core.NewAABBFromPoints(f.Point(0), f.Point(1), f.Point(2), f.Point(3))
}

// Rasterize returns the face itself
func (f *Face) Rasterize(config RasterConfig) []*Face {
	return []*Face{f}
}

// Intersect tests both triangles; the second is only tried when the first misses
func (f *Face) Intersect(ray core.Ray, hit *HitRecord, allowBackface bool) bool {
	return f.triangleIntersect(ray, hit, 0, 1, 2, allowBackface) ||
		f.triangleIntersect(ray, hit, 0, 2, 3, allowBackface)
}

func (f *Face) triangleIntersect(ray core.Ray, hit *HitRecord, ia, ib, ic int, allowBackface bool) bool {
	candidate := *hit
	if !f.planeIntersect(ray, &candidate, allowBackface) {
		return false
	}

	a, b, c := f.Vertices[ia], f.Vertices[ib], f.Vertices[ic]
	pa, pb, pc := a.Position, b.Position, c.Position
	ro, rd := ray.Origin, ray.Direction

	// [ a-b  a-c  d ] [beta gamma t]^T = a - o, solved with Cramer's rule
	detA := det3x3(
		pa.X-pb.X, pa.X-pc.X, rd.X,
		pa.Y-pb.Y, pa.Y-pc.Y, rd.Y,
		pa.Z-pb.Z, pa.Z-pc.Z, rd.Z)
	if math.Abs(detA) <= singularDeterminant {
		return false
	}

	beta := det3x3(
		pa.X-ro.X, pa.X-pc.X, rd.X,
		pa.Y-ro.Y, pa.Y-pc.Y, rd.Y,
		pa.Z-ro.Z, pa.Z-pc.Z, rd.Z) / detA
	gamma := det3x3(
		pa.X-pb.X, pa.X-ro.X, rd.X,
		pa.Y-pb.Y, pa.Y-ro.Y, rd.Y,
		pa.Z-pb.Z, pa.Z-ro.Z, rd.Z) / detA

	const lo, hi = -barycentricTolerance, 1 + barycentricTolerance
	if beta < lo || beta > hi || gamma < lo || gamma > hi || beta+gamma > hi {
		return false
	}

	alpha := 1 - beta - gamma
	candidate.UV = core.Vec2{
		X: alpha*a.UV.X + beta*b.UV.X + gamma*c.UV.X,
		Y: alpha*a.UV.Y + beta*b.UV.Y + gamma*c.UV.Y,
	}
	*hit = candidate
	return true
}

// planeIntersect solves the ray against the plane through corner 0 with the averaged normal
func (f *Face) planeIntersect(ray core.Ray, hit *HitRecord, allowBackface bool) bool {
	normal := f.Normal()
	d := normal.Dot(f.Point(0))

	numer := d - ray.Origin.Dot(normal)
	denom := ray.Direction.Dot(normal)
	if denom == 0 {
		return false // parallel
	}
	if !allowBackface && denom >= 0 {
		return false
	}

	t := numer / denom
	if t <= core.Epsilon || t >= hit.T {
		return false
	}

	var owner Primitive = f
	if f.owner != nil {
		owner = f.owner
	}
	hit.set(t, t, f.material, normal, owner)
	return true
}

// det3x3 is the determinant of the row-major matrix
func det3x3(a1, a2, a3, b1, b2, b3, c1, c2, c3 float64) float64 {
	return a1*(b2*c3-b3*c2) - a2*(b1*c3-b3*c1) + a3*(b1*c2-b2*c1)
}
