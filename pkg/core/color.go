package core

import "math"

const srgbAlpha = 0.055

// SRGBToLinear decodes a display (sRGB) intensity into linear working space
func SRGBToLinear(x float64) float64 {
	if x <= 0.04045 {
		return x / 12.92
	}
	return math.Pow((x+srgbAlpha)/(1+srgbAlpha), 2.4)
}

// LinearToSRGB encodes a linear intensity for display
func LinearToSRGB(x float64) float64 {
	if x <= 0.0031308 {
		return 12.92 * x
	}
	return (1+srgbAlpha)*math.Pow(x, 1/2.4) - srgbAlpha
}

// SRGBToLinearVec decodes every channel of an sRGB color
func SRGBToLinearVec(c Vec3) Vec3 {
	return Vec3{SRGBToLinear(c.X), SRGBToLinear(c.Y), SRGBToLinear(c.Z)}
}

// LinearToSRGBVec encodes every channel of a linear color
func LinearToSRGBVec(c Vec3) Vec3 {
	return Vec3{LinearToSRGB(c.X), LinearToSRGB(c.Y), LinearToSRGB(c.Z)}
}
