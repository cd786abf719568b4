package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// Config holds every rendering and photon-mapping knob
type Config struct {
	Width  int `json:"width"`
	Height int `json:"height"`

	NumBounces          int  `json:"num_bounces"`           // Ray reflection budget
	NumShadowSamples    int  `json:"num_shadow_samples"`    // 0 = centroid without shadows, 1 = hard shadows, N = soft
	NumAntialiasSamples int  `json:"num_antialias_samples"` // Camera rays per pixel
	AmbientLight        Vec3 `json:"ambient_light"`
	IntersectBackfacing bool `json:"intersect_backfacing"`

	NumPhotonsToShoot   int  `json:"num_photons_to_shoot"`
	NumPhotonsToCollect int  `json:"num_photons_to_collect"`
	GatherIndirect      bool `json:"gather_indirect"` // Photon gather instead of flat ambient
	MaxPhotonBounces    int  `json:"max_photon_bounces"`

	SphereHoriz          int `json:"sphere_horiz"`
	SphereVert           int `json:"sphere_vert"`
	CylinderRingSegments int `json:"cylinder_ring_segments"`

	Seed       int64 `json:"seed"`
	NumWorkers int   `json:"num_workers"` // 0 = use CPU count
	TileSize   int   `json:"tile_size"`
}

// DefaultConfig returns the stock settings
func DefaultConfig() Config {
	return Config{
		Width:                400,
		Height:               400,
		NumBounces:           0,
		NumShadowSamples:     0,
		NumAntialiasSamples:  1,
		AmbientLight:         NewVec3(0.1, 0.1, 0.1),
		IntersectBackfacing:  false,
		NumPhotonsToShoot:    10000,
		NumPhotonsToCollect:  100,
		GatherIndirect:       false,
		MaxPhotonBounces:     5,
		SphereHoriz:          8,
		SphereVert:           6,
		CylinderRingSegments: 20,
		Seed:                 37,
		NumWorkers:           0,
		TileSize:             32,
	}
}

// ErrInvalidConfig is returned (wrapped) by Validate
var ErrInvalidConfig = errors.New("invalid config")

// Validate checks the config for values the renderer cannot work with
func (c Config) Validate() error {
	switch {
	case c.Width <= 0 || c.Height <= 0:
		return fmt.Errorf("%w: image size must be positive, got %dx%d", ErrInvalidConfig, c.Width, c.Height)
	case c.NumBounces < 0:
		return fmt.Errorf("%w: num_bounces must be >= 0, got %d", ErrInvalidConfig, c.NumBounces)
	case c.NumShadowSamples < 0:
		return fmt.Errorf("%w: num_shadow_samples must be >= 0, got %d", ErrInvalidConfig, c.NumShadowSamples)
	case c.NumAntialiasSamples < 1:
		return fmt.Errorf("%w: num_antialias_samples must be >= 1, got %d", ErrInvalidConfig, c.NumAntialiasSamples)
	case c.NumPhotonsToShoot < 0:
		return fmt.Errorf("%w: num_photons_to_shoot must be >= 0, got %d", ErrInvalidConfig, c.NumPhotonsToShoot)
	case c.GatherIndirect && c.NumPhotonsToCollect < 1:
		return fmt.Errorf("%w: num_photons_to_collect must be >= 1 when gathering, got %d", ErrInvalidConfig, c.NumPhotonsToCollect)
	case c.MaxPhotonBounces < 0:
		return fmt.Errorf("%w: max_photon_bounces must be >= 0, got %d", ErrInvalidConfig, c.MaxPhotonBounces)
	case c.SphereHoriz < 3 || c.SphereVert < 2:
		return fmt.Errorf("%w: sphere rasterization needs at least 3x2 segments, got %dx%d", ErrInvalidConfig, c.SphereHoriz, c.SphereVert)
	case c.CylinderRingSegments < 3:
		return fmt.Errorf("%w: cylinder_ring_segments must be >= 3, got %d", ErrInvalidConfig, c.CylinderRingSegments)
	case c.NumWorkers < 0:
		return fmt.Errorf("%w: num_workers must be >= 0, got %d", ErrInvalidConfig, c.NumWorkers)
	case c.TileSize < 1:
		return fmt.Errorf("%w: tile_size must be >= 1, got %d", ErrInvalidConfig, c.TileSize)
	}
	return nil
}

// LoadConfigFile overlays the JSON document at path onto base.
// Keys missing from the file keep their value from base.
func LoadConfigFile(path string, base Config) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := base
	if err := json.Unmarshal(data, &cfg); err != nil {
		return base, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}
