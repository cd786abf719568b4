package core

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("Default config should validate, got %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"Zero width", func(c *Config) { c.Width = 0 }},
		{"Negative bounces", func(c *Config) { c.NumBounces = -1 }},
		{"No antialias samples", func(c *Config) { c.NumAntialiasSamples = 0 }},
		{"Gather without photons to collect", func(c *Config) { c.GatherIndirect = true; c.NumPhotonsToCollect = 0 }},
		{"Degenerate sphere raster", func(c *Config) { c.SphereHoriz = 2 }},
		{"Degenerate ring raster", func(c *Config) { c.CylinderRingSegments = 1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	doc := `{"num_photons_to_shoot": 500, "gather_indirect": true, "ambient_light": {"X": 0.2, "Y": 0.2, "Z": 0.2}}`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfigFile(path, DefaultConfig())
	if err != nil {
		t.Fatalf("LoadConfigFile failed: %v", err)
	}
	if cfg.NumPhotonsToShoot != 500 || !cfg.GatherIndirect {
		t.Errorf("File values not applied: %+v", cfg)
	}
	if cfg.AmbientLight != NewVec3(0.2, 0.2, 0.2) {
		t.Errorf("Ambient light not applied: %v", cfg.AmbientLight)
	}
	if cfg.Width != 400 || cfg.NumPhotonsToCollect != 100 {
		t.Errorf("Missing keys should keep defaults: %+v", cfg)
	}

	if _, err := LoadConfigFile(filepath.Join(dir, "missing.json"), DefaultConfig()); err == nil {
		t.Error("Expected error for missing file")
	}
}
