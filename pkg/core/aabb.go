package core

import "math"

// AABB represents an axis-aligned bounding box
type AABB struct {
	Min Vec3 // Minimum corner
	Max Vec3 // Maximum corner
}

// NewAABB creates a new AABB from min and max points
func NewAABB(min, max Vec3) AABB {
	return AABB{Min: min, Max: max}
}

// NewAABBAround creates a cube centered on a point with the given half extent
func NewAABBAround(center Vec3, halfExtent float64) AABB {
	half := NewVec3(halfExtent, halfExtent, halfExtent)
	return AABB{Min: center.Subtract(half), Max: center.Add(half)}
}

// NewAABBFromPoints creates an AABB that bounds all given points
func NewAABBFromPoints(points ...Vec3) AABB {
	if len(points) == 0 {
		return AABB{}
	}

	box := AABB{Min: points[0], Max: points[0]}
	for _, point := range points[1:] {
		box = box.Extend(point)
	}
	return box
}

// Extend returns the smallest AABB containing both this box and the point
func (aabb AABB) Extend(point Vec3) AABB {
	return AABB{
		Min: Vec3{
			X: math.Min(aabb.Min.X, point.X),
			Y: math.Min(aabb.Min.Y, point.Y),
			Z: math.Min(aabb.Min.Z, point.Z),
		},
		Max: Vec3{
			X: math.Max(aabb.Max.X, point.X),
			Y: math.Max(aabb.Max.Y, point.Y),
			Z: math.Max(aabb.Max.Z, point.Z),
		},
	}
}

// Union returns an AABB that bounds both this AABB and another
func (aabb AABB) Union(other AABB) AABB {
	return aabb.Extend(other.Min).Extend(other.Max)
}

// Overlaps reports whether two boxes share any volume (touching counts).
// Boxes are disjoint when the intervals on any single axis do not intersect.
func (aabb AABB) Overlaps(other AABB) bool {
	for axis := 0; axis < 3; axis++ {
		if other.Min.Get(axis) > aabb.Max.Get(axis) || aabb.Min.Get(axis) > other.Max.Get(axis) {
			return false
		}
	}
	return true
}

// ContainsPoint reports whether the point lies inside the box widened by eps on every side
func (aabb AABB) ContainsPoint(p Vec3, eps float64) bool {
	return p.X > aabb.Min.X-eps && p.Y > aabb.Min.Y-eps && p.Z > aabb.Min.Z-eps &&
		p.X < aabb.Max.X+eps && p.Y < aabb.Max.Y+eps && p.Z < aabb.Max.Z+eps
}

// Hit reports whether the ray passes through the box for some t in [tMin, tMax]
func (aabb AABB) Hit(ray Ray, tMin, tMax float64) bool {
	for axis := 0; axis < 3; axis++ {
		lo, hi := aabb.Min.Get(axis), aabb.Max.Get(axis)
		origin, direction := ray.Origin.Get(axis), ray.Direction.Get(axis)

		if math.Abs(direction) < 1e-12 {
			if origin < lo || origin > hi {
				return false
			}
			continue
		}

		inv := 1.0 / direction
		t1 := (lo - origin) * inv
		t2 := (hi - origin) * inv
		if t1 > t2 {
			t1, t2 = t2, t1
		}

		tMin = math.Max(tMin, t1)
		tMax = math.Min(tMax, t2)
		if tMin > tMax {
			return false
		}
	}
	return true
}

// Center returns the center point of the AABB
func (aabb AABB) Center() Vec3 {
	return aabb.Min.Add(aabb.Max).Multiply(0.5)
}

// Size returns the size (extent) of the AABB along each axis
func (aabb AABB) Size() Vec3 {
	return aabb.Max.Subtract(aabb.Min)
}

// MaxDim returns the largest extent of the box
func (aabb AABB) MaxDim() float64 {
	size := aabb.Size()
	return math.Max(size.X, math.Max(size.Y, size.Z))
}

// LongestAxis returns the axis (0=X, 1=Y, 2=Z) with the longest extent.
// Ties go to the lower axis.
func (aabb AABB) LongestAxis() int {
	size := aabb.Size()
	if size.X >= size.Y && size.X >= size.Z {
		return 0
	}
	if size.Y >= size.Z {
		return 1
	}
	return 2
}

// Split cuts the box along axis at value, returning the lower and upper halves
func (aabb AABB) Split(axis int, value float64) (AABB, AABB) {
	lower := AABB{Min: aabb.Min, Max: aabb.Max.With(axis, value)}
	upper := AABB{Min: aabb.Min.With(axis, value), Max: aabb.Max}
	return lower, upper
}

// Covers reports whether this box fully contains the other box
func (aabb AABB) Covers(other AABB) bool {
	return aabb.Min.X <= other.Min.X && aabb.Min.Y <= other.Min.Y && aabb.Min.Z <= other.Min.Z &&
		aabb.Max.X >= other.Max.X && aabb.Max.Y >= other.Max.Y && aabb.Max.Z >= other.Max.Z
}

// Expand returns an AABB expanded by the given amount in all directions
func (aabb AABB) Expand(amount float64) AABB {
	expansion := NewVec3(amount, amount, amount)
	return AABB{
		Min: aabb.Min.Subtract(expansion),
		Max: aabb.Max.Add(expansion),
	}
}

// ExpandRelative grows every axis by fraction of that axis' extent on both sides
func (aabb AABB) ExpandRelative(fraction float64) AABB {
	margin := aabb.Size().Multiply(fraction)
	return AABB{
		Min: aabb.Min.Subtract(margin),
		Max: aabb.Max.Add(margin),
	}
}
