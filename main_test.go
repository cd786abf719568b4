package main

import (
	"context"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/df07/go-photon-mapper/pkg/core"
)

func TestParseColor(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    core.Vec3
		wantErr bool
	}{
		{"three components", "0.1,0.2,0.3", core.NewVec3(0.1, 0.2, 0.3), false},
		{"spaces", " 1, 0 ,0.5", core.NewVec3(1, 0, 0.5), false},
		{"single value", "0.25", core.NewVec3(0.25, 0.25, 0.25), false},
		{"two components", "1,2", core.Vec3{}, true},
		{"not a number", "a,b,c", core.Vec3{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseColor(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error for %q", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("parseColor(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseFlags(t *testing.T) {
	cfg, opts, err := parseFlags([]string{
		"-input", "ring",
		"-width", "64", "-height", "32",
		"-num_bounces", "3",
		"-ambient_light", "0,0.5,1",
		"-gather_indirect",
		"-seed", "7",
	})
	if err != nil {
		t.Fatalf("parseFlags failed: %v", err)
	}

	if opts.sceneID != "ring" {
		t.Errorf("Expected scene 'ring', got %q", opts.sceneID)
	}
	if cfg.Width != 64 || cfg.Height != 32 || cfg.NumBounces != 3 || cfg.Seed != 7 || !cfg.GatherIndirect {
		t.Errorf("Flags not applied: %+v", cfg)
	}
	if cfg.AmbientLight != core.NewVec3(0, 0.5, 1) {
		t.Errorf("Expected ambient (0,0.5,1), got %v", cfg.AmbientLight)
	}
	// untouched settings keep their defaults
	if cfg.NumPhotonsToShoot != core.DefaultConfig().NumPhotonsToShoot {
		t.Errorf("Expected default photon count, got %d", cfg.NumPhotonsToShoot)
	}
}

func TestParseFlagsConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "render.json")
	if err := os.WriteFile(path, []byte(`{"width": 50, "num_bounces": 4, "seed": 99}`), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, _, err := parseFlags([]string{"-config", path, "-num_bounces", "1"})
	if err != nil {
		t.Fatalf("parseFlags failed: %v", err)
	}
	if cfg.Width != 50 || cfg.Seed != 99 {
		t.Errorf("Config file not applied: %+v", cfg)
	}
	if cfg.NumBounces != 1 {
		t.Errorf("Expected flag to override config file, got %d bounces", cfg.NumBounces)
	}
}

func TestParseFlagsInvalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"negative width", []string{"-width", "-5"}},
		{"bad ambient", []string{"-ambient_light", "x"}},
		{"unknown flag", []string{"-no_such_flag"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := parseFlags(tt.args); err == nil {
				t.Errorf("Expected error for %v", tt.args)
			}
		})
	}
}

func TestRun(t *testing.T) {
	cfg := core.DefaultConfig()
	cfg.Width = 24
	cfg.Height = 24
	cfg.NumPhotonsToShoot = 500
	cfg.NumPhotonsToCollect = 10
	cfg.GatherIndirect = true
	cfg.NumWorkers = 2

	opts := options{sceneID: "cornell-box", outputDir: t.TempDir(), energyReport: true}
	filename, err := run(context.Background(), cfg, opts, core.NopLogger{})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if !strings.HasPrefix(filename, filepath.Join(opts.outputDir, "cornell-box")) {
		t.Errorf("Unexpected output path %s", filename)
	}

	file, err := os.Open(filename)
	if err != nil {
		t.Fatalf("Output not written: %v", err)
	}
	defer file.Close()

	img, err := png.Decode(file)
	if err != nil {
		t.Fatalf("Output is not a PNG: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 24 || b.Dy() != 24 {
		t.Errorf("Expected 24x24 image, got %v", b)
	}
}

func TestRunUnknownScene(t *testing.T) {
	opts := options{sceneID: "nonexistent", outputDir: t.TempDir()}
	if _, err := run(context.Background(), core.DefaultConfig(), opts, core.NopLogger{}); err == nil {
		t.Error("Expected error for unknown scene")
	}
}
