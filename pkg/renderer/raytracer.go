package renderer

import (
	"image/color"
	"math"

	"github.com/df07/go-photon-mapper/pkg/core"
	"github.com/df07/go-photon-mapper/pkg/geometry"
	"github.com/df07/go-photon-mapper/pkg/scene"
)

// IndirectGatherer estimates indirect light at a surface point.
// The photon mapper implements it.
type IndirectGatherer interface {
	GatherIndirect(point, normal, directionFrom core.Vec3) core.Vec3
}

// Raytracer shades camera rays with direct lighting, shadows, mirror
// reflection and either flat ambient or gathered indirect light
type Raytracer struct {
	scene    *scene.Scene
	config   core.Config
	gatherer IndirectGatherer
	logger   core.Logger

	analytic   *geometry.BVH // Original quads and analytic primitives
	rasterized *geometry.BVH // Original quads and rasterized patches
}

// NewRaytracer creates a new raytracer. The scene's geometry must be
// complete: it is indexed here and later additions are not seen.
func NewRaytracer(s *scene.Scene, config core.Config, logger core.Logger) *Raytracer {
	if logger == nil {
		logger = core.NopLogger{}
	}

	quads := geometry.FacesAsPrimitives(s.OriginalQuads)
	analytic := geometry.NewBVH(append(quads[:len(quads):len(quads)], s.Primitives...))
	rasterized := geometry.NewBVH(append(quads, geometry.FacesAsPrimitives(s.RasterizedFaces)...))

	stats := rasterized.Stats()
	logger.Printf("Indexed %d surfaces and %d patch surfaces (%d nodes, depth %d)\n",
		analytic.Len(), rasterized.Len(), stats.TotalNodes, stats.MaxDepth)

	return &Raytracer{
		scene:      s,
		config:     config,
		logger:     logger,
		analytic:   analytic,
		rasterized: rasterized,
	}
}

// SetGatherer installs the source of indirect light used when GatherIndirect is on
func (rt *Raytracer) SetGatherer(g IndirectGatherer) {
	rt.gatherer = g
}

// Config returns the configuration the raytracer shades with
func (rt *Raytracer) Config() core.Config {
	return rt.config
}

// CastRay intersects the ray with every original quad and then either the
// rasterized patches or the analytic primitives. hit holds the nearest hit.
func (rt *Raytracer) CastRay(ray core.Ray, hit *geometry.HitRecord, useRasterizedPatches bool) bool {
	if useRasterizedPatches {
		return rt.rasterized.Intersect(ray, hit, rt.config.IntersectBackfacing)
	}
	return rt.analytic.Intersect(ray, hit, rt.config.IntersectBackfacing)
}

// TraceRay returns the linear color seen along ray. hit is reset and left
// holding the primary intersection. bounceCount is the number of mirror
// bounces already taken.
func (rt *Raytracer) TraceRay(ray core.Ray, hit *geometry.HitRecord, bounceCount int, sampler core.Sampler) core.Vec3 {
	hit.Reset()
	if !rt.CastRay(ray, hit, false) {
		return core.SRGBToLinearVec(rt.scene.Background)
	}

	m := hit.Material
	if m == nil {
		return core.Vec3{}
	}
	// lights seen directly are drawn white
	if m.IsEmissive() {
		return core.NewVec3(1, 1, 1)
	}

	normal := hit.Normal
	point := ray.At(hit.T)
	diffuse := m.DiffuseColor(hit.UV)

	var answer core.Vec3
	if rt.config.GatherIndirect && rt.gatherer != nil {
		answer = diffuse.MultiplyVec(rt.gatherer.GatherIndirect(point, normal, ray.Direction))
	} else {
		answer = diffuse.MultiplyVec(rt.config.AmbientLight)
	}

	for _, light := range rt.scene.Lights {
		answer = answer.Add(rt.directLight(ray, hit, point, light, sampler))
	}

	if bounceCount < rt.config.NumBounces && m.IsReflective() {
		mirror := core.MirrorDirection(normal, ray.Direction).Normalize()
		reflected := geometry.NewHitRecord()
		answer = answer.Add(rt.TraceRay(core.NewRay(point, mirror), &reflected, bounceCount+1, sampler).MultiplyVec(m.Reflective))
	}

	return answer
}

// directLight shades point with one area light. With no shadow samples the
// light's centroid is used without a shadow test, with one the centroid is
// shadow tested, and with more the result is averaged over random points.
func (rt *Raytracer) directLight(ray core.Ray, hit *geometry.HitRecord, point core.Vec3, light *geometry.Face, sampler core.Sampler) core.Vec3 {
	m := hit.Material
	emitted := light.Material().Emitted
	area := light.Area()

	shade := func(onLight core.Vec3, shadowTest bool) core.Vec3 {
		toLight := onLight.Subtract(point)
		dist := toLight.Length()
		if dist == 0 {
			return core.Vec3{}
		}
		dirToLight := toLight.Divide(dist)
		if shadowTest && rt.occluded(core.NewRay(point, dirToLight), dist) {
			return core.Vec3{}
		}
		lightColor := emitted.Multiply(area / (math.Pi * dist * dist))
		return m.Shade(ray.Direction, hit.Normal, hit.UV, dirToLight, lightColor)
	}

	switch n := rt.config.NumShadowSamples; {
	case n <= 0:
		return shade(light.Centroid(), false)
	case n == 1:
		return shade(light.Centroid(), true)
	default:
		sum := core.Vec3{}
		for i := 0; i < n; i++ {
			sum = sum.Add(shade(light.RandomPoint(sampler), true))
		}
		return sum.Divide(float64(n))
	}
}

// occluded reports whether a primitive blocks the shadow ray before dist.
// Scene quads do not cast shadows.
func (rt *Raytracer) occluded(shadowRay core.Ray, dist float64) bool {
	for _, p := range rt.scene.Primitives {
		blocker := geometry.NewHitRecord()
		if p.Intersect(shadowRay, &blocker, true) && blocker.T < dist {
			return true
		}
	}
	return false
}

// ToRGBA clamps a linear color to [0, 1] and encodes it as 8-bit sRGB
func ToRGBA(c core.Vec3) color.RGBA {
	encoded := core.LinearToSRGBVec(c.Clamp(0, 1))
	return color.RGBA{
		R: uint8(255*encoded.X + 0.5),
		G: uint8(255*encoded.Y + 0.5),
		B: uint8(255*encoded.Z + 0.5),
		A: 255,
	}
}
