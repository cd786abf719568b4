package material

import (
	"math"

	"github.com/df07/go-photon-mapper/pkg/core"
)

// PhongExponent is the fixed specular exponent used by Shade
const PhongExponent = 100.0

// emissiveThreshold is the emitted-color length above which a surface counts as a light
const emissiveThreshold = 0.001

// Material is a simple Phong-like material. Materials are shared by pointer
// between every face and primitive that uses them.
type Material struct {
	Name        string
	Diffuse     ColorSource
	Reflective  core.Vec3
	Emitted     core.Vec3
	Transmitted core.Vec3
}

// New creates a material with a solid diffuse color
func New(diffuse, reflective, emitted, transmitted core.Vec3) *Material {
	return &Material{
		Diffuse:     NewSolidColor(diffuse),
		Reflective:  reflective,
		Emitted:     emitted,
		Transmitted: transmitted,
	}
}

// NewTextured creates a material whose diffuse color comes from a texture
func NewTextured(texture ColorSource, reflective, emitted, transmitted core.Vec3) *Material {
	return &Material{
		Diffuse:     texture,
		Reflective:  reflective,
		Emitted:     emitted,
		Transmitted: transmitted,
	}
}

// NewDiffuse creates a purely diffuse material
func NewDiffuse(color core.Vec3) *Material {
	return New(color, core.Vec3{}, core.Vec3{}, core.Vec3{})
}

// NewEmissive creates a light source material
func NewEmissive(emitted core.Vec3) *Material {
	return New(core.Vec3{}, core.Vec3{}, emitted, core.Vec3{})
}

// DiffuseColor returns the diffuse color at the given texture coordinates
func (m *Material) DiffuseColor(uv core.Vec2) core.Vec3 {
	if m.Diffuse == nil {
		return core.Vec3{}
	}
	return m.Diffuse.Evaluate(uv)
}

// AverageDiffuse returns the representative diffuse color of the surface
func (m *Material) AverageDiffuse() core.Vec3 {
	if m.Diffuse == nil {
		return core.Vec3{}
	}
	return m.Diffuse.Average()
}

// IsEmissive reports whether the material marks a light source
func (m *Material) IsEmissive() bool {
	return m.Emitted.Length() > emissiveThreshold
}

// IsReflective reports whether any reflective component is present
func (m *Material) IsReflective() bool {
	return !m.Reflective.IsZero()
}

// IsTransmissive reports whether any transmissive component is present
func (m *Material) IsTransmissive() bool {
	return !m.Transmitted.IsZero()
}

// Shade computes the local (Phong) illumination contributed by one light.
// rayDir is the direction of the viewing ray, dirToLight must be normalized.
// Shadows and global effects are the caller's concern.
func (m *Material) Shade(rayDir, normal core.Vec3, uv core.Vec2, dirToLight, lightColor core.Vec3) core.Vec3 {
	e := rayDir.Negate()
	l := dirToLight

	answer := m.Emitted

	dotNL := math.Max(0, normal.Dot(l))
	answer = answer.Add(lightColor.MultiplyVec(m.DiffuseColor(uv)).Multiply(dotNL))

	// ideal reflection of the light direction
	r := l.Negate().Add(normal.Multiply(2 * dotNL)).Normalize()
	dotER := math.Max(0, e.Dot(r))
	specular := lightColor.MultiplyVec(m.Reflective).Multiply(math.Pow(dotER, PhongExponent) * dotNL)

	return answer.Add(specular)
}
