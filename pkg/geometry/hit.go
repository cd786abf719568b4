package geometry

import (
	"math"

	"github.com/df07/go-photon-mapper/pkg/core"
	"github.com/df07/go-photon-mapper/pkg/material"
)

// HitRecord accumulates the nearest intersection found so far along a ray.
// Intersect calls only ever lower T.
type HitRecord struct {
	T         float64 // Distance to the nearest hit (+Inf when nothing was hit)
	T2        float64 // Exit distance for solids; equals T for surfaces
	Material  *material.Material
	Normal    core.Vec3
	UV        core.Vec2
	Primitive Primitive // Surface the photon or ray landed on
}

// NewHitRecord returns an empty record ready for intersection tests
func NewHitRecord() HitRecord {
	return HitRecord{T: math.Inf(1), T2: math.Inf(1)}
}

// Reset clears the record for reuse
func (h *HitRecord) Reset() {
	*h = NewHitRecord()
}

// IsHit reports whether any intersection has been recorded
func (h *HitRecord) IsHit() bool {
	return !math.IsInf(h.T, 1)
}

// ExitDistance returns where the ray leaves the surface hit (T2 if it lies beyond T)
func (h *HitRecord) ExitDistance() float64 {
	if h.T2 > h.T && !math.IsInf(h.T2, 1) {
		return h.T2
	}
	return h.T
}

// set records a closer hit; texture coordinates reset to zero
func (h *HitRecord) set(t, t2 float64, m *material.Material, normal core.Vec3, p Primitive) {
	h.T = t
	h.T2 = t2
	h.Material = m
	h.Normal = normal
	h.UV = core.Vec2{}
	h.Primitive = p
}
