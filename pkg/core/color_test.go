package core

import (
	"math"
	"testing"
)

func TestSRGBTransfer(t *testing.T) {
	tests := []struct {
		name   string
		srgb   float64
		linear float64
	}{
		{"Black", 0, 0},
		{"White", 1, 1},
		{"Linear segment", 0.04, 0.04 / 12.92},
		{"Mid gray", 0.5, 0.21404114048223255},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			const tolerance = 1e-9
			if got := SRGBToLinear(tt.srgb); math.Abs(got-tt.linear) > tolerance {
				t.Errorf("SRGBToLinear(%f) = %f, expected %f", tt.srgb, got, tt.linear)
			}
			if got := LinearToSRGB(tt.linear); math.Abs(got-tt.srgb) > 1e-6 {
				t.Errorf("LinearToSRGB(%f) = %f, expected %f", tt.linear, got, tt.srgb)
			}
		})
	}
}

func TestSRGBToLinearVec(t *testing.T) {
	got := SRGBToLinearVec(NewVec3(1, 1, 1))
	if got != NewVec3(1, 1, 1) {
		t.Errorf("Expected white to stay white, got %v", got)
	}
}
