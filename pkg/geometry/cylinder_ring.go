package geometry

import (
	"math"
	"sort"

	"github.com/df07/go-photon-mapper/pkg/core"
	"github.com/df07/go-photon-mapper/pkg/material"
)

// CylinderRing is a thick-walled tube aligned with the y axis: an annulus
// swept over Height, centred on Center
type CylinderRing struct {
	photonLog
	Center      core.Vec3
	Height      float64
	InnerRadius float64
	OuterRadius float64
	material    *material.Material
}

// NewCylinderRing creates a ring; the radii are swapped if given out of order
func NewCylinderRing(center core.Vec3, height, innerRadius, outerRadius float64, m *material.Material) *CylinderRing {
	if innerRadius > outerRadius {
		innerRadius, outerRadius = outerRadius, innerRadius
	}
	return &CylinderRing{
		Center:      center,
		Height:      height,
		InnerRadius: innerRadius,
		OuterRadius: outerRadius,
		material:    m,
	}
}

// Material returns the ring's material
func (r *CylinderRing) Material() *material.Material {
	return r.material
}

// crossing is one place where a ray passes through a sub-surface of the ring
type crossing struct {
	t      float64
	normal core.Vec3
}

// cylinderCrossings intersects a ray given relative to the ring centre with the
// finite cylinder of the given radius spanning [-halfHeight, halfHeight]
func cylinderCrossings(origin, dir core.Vec3, radius, halfHeight float64) []crossing {
	a := dir.X*dir.X + dir.Z*dir.Z
	b := 2 * (dir.X*origin.X + dir.Z*origin.Z)
	c := origin.X*origin.X + origin.Z*origin.Z - radius*radius

	radical := b*b - 4*a*c
	if radical < core.Epsilon {
		return nil
	}
	radical = math.Sqrt(radical)

	var out []crossing
	for _, t := range [2]float64{(-b - radical) / (2 * a), (-b + radical) / (2 * a)} {
		if t < core.Epsilon {
			continue
		}
		p := origin.Add(dir.Multiply(t))
		if p.Y > halfHeight || p.Y < -halfHeight {
			continue
		}
		out = append(out, crossing{t: t, normal: core.NewVec3(p.X, 0, p.Z).Normalize()})
	}
	return out
}

// annulusCrossing intersects a ray (relative to the ring centre) with the
// horizontal annulus at height y
func annulusCrossing(origin, dir core.Vec3, y, inner, outer float64) (float64, bool) {
	if dir.Y == 0 {
		return 0, false
	}
	t := (y - origin.Y) / dir.Y
	if t < core.Epsilon {
		return 0, false
	}
	p := origin.Add(dir.Multiply(t))
	dist := math.Sqrt(p.X*p.X + p.Z*p.Z)
	if dist < inner || dist > outer {
		return 0, false
	}
	return t, true
}

// crossings returns every surface crossing of the ray, nearest first
func (r *CylinderRing) crossings(ray core.Ray) []crossing {
	origin := ray.Origin.Subtract(r.Center)
	dir := ray.Direction
	half := r.Height / 2

	var all []crossing
	all = append(all, cylinderCrossings(origin, dir, r.OuterRadius, half)...)
	for _, c := range cylinderCrossings(origin, dir, r.InnerRadius, half) {
		// the inner wall faces the axis
		all = append(all, crossing{t: c.t, normal: c.normal.Negate()})
	}
	if t, ok := annulusCrossing(origin, dir, half, r.InnerRadius, r.OuterRadius); ok {
		all = append(all, crossing{t: t, normal: core.NewVec3(0, 1, 0)})
	}
	if t, ok := annulusCrossing(origin, dir, -half, r.InnerRadius, r.OuterRadius); ok {
		all = append(all, crossing{t: t, normal: core.NewVec3(0, -1, 0)})
	}

	sort.Slice(all, func(i, j int) bool { return all[i].t < all[j].t })
	return all
}

// Intersect records the nearest of the four sub-surfaces. T2 is the next
// crossing along the ray, where the ray leaves the solid wall.
func (r *CylinderRing) Intersect(ray core.Ray, hit *HitRecord, allowBackface bool) bool {
	all := r.crossings(ray)
	if len(all) == 0 || all[0].t >= hit.T {
		return false
	}

	t2 := all[0].t
	if len(all) > 1 {
		t2 = all[1].t
	}
	hit.set(all[0].t, t2, r.material, all[0].normal, r)
	return true
}

// BoundingBox returns the box around the outer cylinder
func (r *CylinderRing) BoundingBox() core.AABB {
	extent := core.NewVec3(r.OuterRadius, r.Height/2, r.OuterRadius)
	return core.NewAABB(r.Center.Subtract(extent), r.Center.Add(extent))
}

func (r *CylinderRing) ringPoint(s, radius, y float64) core.Vec3 {
	angle := 2 * math.Pi * s
	return r.Center.Add(core.NewVec3(radius*math.Cos(angle), y, -radius*math.Sin(angle)))
}

// Rasterize returns 4 quads per segment: outer wall, top, inner wall, bottom
func (r *CylinderRing) Rasterize(config RasterConfig) []*Face {
	n := config.CylinderRingSegments
	half := r.Height / 2

	// per segment: outer bottom, outer top, inner top, inner bottom
	ring := make([]Vertex, 0, 4*n)
	for i := 0; i < n; i++ {
		s := float64(i) / float64(n)
		ring = append(ring,
			Vertex{Position: r.ringPoint(s, r.OuterRadius, -half), UV: core.NewVec2(s, 0)},
			Vertex{Position: r.ringPoint(s, r.OuterRadius, half), UV: core.NewVec2(s, 1)},
			Vertex{Position: r.ringPoint(s, r.InnerRadius, half), UV: core.NewVec2(s, 1)},
			Vertex{Position: r.ringPoint(s, r.InnerRadius, -half), UV: core.NewVec2(s, 0)},
		)
	}

	faces := make([]*Face, 0, 4*n)
	for i := 0; i < n; i++ {
		next := (i + 1) % n
		for j := 0; j < 4; j++ {
			f := NewFace(r.material,
				ring[4*i+j],
				ring[4*next+j],
				ring[4*next+(j+1)%4],
				ring[4*i+(j+1)%4])
			f.owner = r
			faces = append(faces, f)
		}
	}
	return faces
}
