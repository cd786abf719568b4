package geometry

import (
	"sync"

	"github.com/df07/go-photon-mapper/pkg/core"
	"github.com/df07/go-photon-mapper/pkg/material"
	"github.com/df07/go-photon-mapper/pkg/photon"
)

// Primitive is a surface that can be ray traced, rasterized into quads, and
// can remember the photons that landed on it. The implementations are
// *Face, *Sphere and *CylinderRing.
type Primitive interface {
	// Intersect tightens hit if the ray meets the surface closer than hit.T.
	// It returns true only when hit was modified.
	Intersect(ray core.Ray, hit *HitRecord, allowBackface bool) bool
	Material() *material.Material
	BoundingBox() core.AABB
	Rasterize(config RasterConfig) []*Face

	AddPhoton(p photon.Photon)
	Photons() []photon.Photon
	ResetPhotons()
	PhotonEnergy() core.Vec3
}

// photonLog is the per-primitive photon list. Photon emission runs on
// several goroutines, so access is guarded.
type photonLog struct {
	mu      sync.Mutex
	photons []photon.Photon
}

// AddPhoton records a photon that hit this surface
func (l *photonLog) AddPhoton(p photon.Photon) {
	l.mu.Lock()
	l.photons = append(l.photons, p)
	l.mu.Unlock()
}

// Photons returns a copy of the recorded photons
func (l *photonLog) Photons() []photon.Photon {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]photon.Photon, len(l.photons))
	copy(out, l.photons)
	return out
}

// ResetPhotons forgets every recorded photon
func (l *photonLog) ResetPhotons() {
	l.mu.Lock()
	l.photons = nil
	l.mu.Unlock()
}

// PhotonEnergy returns the summed energy of the recorded photons
func (l *photonLog) PhotonEnergy() core.Vec3 {
	l.mu.Lock()
	defer l.mu.Unlock()
	total := core.Vec3{}
	for _, p := range l.photons {
		total = total.Add(p.Energy)
	}
	return total
}

// RasterConfig sets the resolution of the quad approximation of curved primitives
type RasterConfig struct {
	SphereHoriz          int // Longitude segments (rounded up to even)
	SphereVert           int // Latitude segments
	CylinderRingSegments int
}

// DefaultRasterConfig returns the stock rasterization resolution
func DefaultRasterConfig() RasterConfig {
	return RasterConfig{
		SphereHoriz:          8,
		SphereVert:           6,
		CylinderRingSegments: 20,
	}
}

// NewRasterConfig extracts the rasterization settings from a render config
func NewRasterConfig(cfg core.Config) RasterConfig {
	return RasterConfig{
		SphereHoriz:          cfg.SphereHoriz,
		SphereVert:           cfg.SphereVert,
		CylinderRingSegments: cfg.CylinderRingSegments,
	}
}
