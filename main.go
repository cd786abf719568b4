package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/df07/go-photon-mapper/pkg/core"
	"github.com/df07/go-photon-mapper/pkg/geometry"
	"github.com/df07/go-photon-mapper/pkg/photonmap"
	"github.com/df07/go-photon-mapper/pkg/renderer"
	"github.com/df07/go-photon-mapper/pkg/scene"
)

// options are the command line settings that are not part of core.Config
type options struct {
	sceneID      string
	scenesDir    string
	configFile   string
	outputDir    string
	listScenes   bool
	energyReport bool
}

func main() {
	cfg, opts, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Printf("Error: %v\n", err)
		os.Exit(2)
	}

	if opts.listScenes {
		if err := listScenes(opts.scenesDir); err != nil {
			fmt.Printf("Error listing scenes: %v\n", err)
			os.Exit(1)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	filename, err := run(ctx, cfg, opts, core.NewDefaultLogger())
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Render saved as %s\n", filename)
}

// parseFlags builds the render config: defaults, then the -config file, then explicit flags
func parseFlags(args []string) (core.Config, options, error) {
	defaults := core.DefaultConfig()
	fs := flag.NewFlagSet("photon-mapper", flag.ContinueOnError)

	var opts options
	fs.StringVar(&opts.sceneID, "scene", "cornell-box", "Built-in scene ID, file:<name>, or path to a scene file")
	fs.StringVar(&opts.sceneID, "input", "cornell-box", "Alias for -scene")
	fs.StringVar(&opts.scenesDir, "scenes_dir", "", "Directory holding scene files (default: search for ./scenes)")
	fs.StringVar(&opts.configFile, "config", "", "JSON file overriding the default render settings")
	fs.StringVar(&opts.outputDir, "output", "output", "Directory for rendered images")
	fs.BoolVar(&opts.listScenes, "list", false, "List available scenes and exit")
	fs.BoolVar(&opts.energyReport, "energy_report", false, "Print the photon energy stored on every primitive")

	width := fs.Int("width", defaults.Width, "Image width in pixels")
	height := fs.Int("height", defaults.Height, "Image height in pixels")
	bounces := fs.Int("num_bounces", defaults.NumBounces, "Reflection bounces per camera ray")
	shadows := fs.Int("num_shadow_samples", defaults.NumShadowSamples, "Shadow rays per light (0 disables shadows)")
	antialias := fs.Int("num_antialias_samples", defaults.NumAntialiasSamples, "Camera rays per pixel")
	ambient := fs.String("ambient_light", "", "Ambient light as r,g,b")
	shoot := fs.Int("num_photons_to_shoot", defaults.NumPhotonsToShoot, "Photons emitted across all lights")
	collect := fs.Int("num_photons_to_collect", defaults.NumPhotonsToCollect, "Photons gathered per indirect estimate")
	gather := fs.Bool("gather_indirect", defaults.GatherIndirect, "Estimate indirect light from the photon map")
	backfacing := fs.Bool("intersect_backfacing", defaults.IntersectBackfacing, "Let camera rays hit back faces")
	seed := fs.Int64("seed", defaults.Seed, "Random seed")
	workers := fs.Int("workers", defaults.NumWorkers, "Worker goroutines (0 = CPU count)")

	if err := fs.Parse(args); err != nil {
		return core.Config{}, options{}, err
	}

	cfg := defaults
	if opts.configFile != "" {
		var err error
		if cfg, err = core.LoadConfigFile(opts.configFile, defaults); err != nil {
			return core.Config{}, options{}, err
		}
	}

	// explicit flags win over the config file
	var flagErr error
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "width":
			cfg.Width = *width
		case "height":
			cfg.Height = *height
		case "num_bounces":
			cfg.NumBounces = *bounces
		case "num_shadow_samples":
			cfg.NumShadowSamples = *shadows
		case "num_antialias_samples":
			cfg.NumAntialiasSamples = *antialias
		case "ambient_light":
			c, err := parseColor(*ambient)
			if err != nil {
				flagErr = fmt.Errorf("invalid -ambient_light: %w", err)
				return
			}
			cfg.AmbientLight = c
		case "num_photons_to_shoot":
			cfg.NumPhotonsToShoot = *shoot
		case "num_photons_to_collect":
			cfg.NumPhotonsToCollect = *collect
		case "gather_indirect":
			cfg.GatherIndirect = *gather
		case "intersect_backfacing":
			cfg.IntersectBackfacing = *backfacing
		case "seed":
			cfg.Seed = *seed
		case "workers":
			cfg.NumWorkers = *workers
		}
	})
	if flagErr != nil {
		return core.Config{}, options{}, flagErr
	}

	return cfg, opts, cfg.Validate()
}

// parseColor reads "r,g,b" or a single value used for all three channels
func parseColor(s string) (core.Vec3, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 1 && len(parts) != 3 {
		return core.Vec3{}, fmt.Errorf("expected r,g,b, got %q", s)
	}

	values := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return core.Vec3{}, fmt.Errorf("bad component %q: %w", p, err)
		}
		values[i] = v
	}
	if len(values) == 1 {
		return core.NewVec3(values[0], values[0], values[0]), nil
	}
	return core.NewVec3(values[0], values[1], values[2]), nil
}

func listScenes(dir string) error {
	scenes, err := scene.ListAllScenes(dir)
	if err != nil {
		return err
	}
	for _, group := range scenes.Groups {
		fmt.Printf("%s:\n", group.Name)
		for _, info := range group.Scenes {
			fmt.Printf("  %-24s %s\n", info.ID, info.Description)
		}
	}
	return nil
}

// run loads the scene, traces photons when gathering, renders and writes a PNG.
// It returns the path of the written image.
func run(ctx context.Context, cfg core.Config, opts options, logger core.Logger) (string, error) {
	loadOpts := scene.DefaultLoadOptions()
	loadOpts.Raster = geometry.NewRasterConfig(cfg)

	s, err := scene.Open(opts.sceneID, opts.scenesDir, loadOpts)
	if err != nil {
		return "", fmt.Errorf("failed to load scene: %w", err)
	}
	s.EnsureCamera()
	logger.Printf("Loaded scene %q: %d quads, %d primitives, %d lights\n",
		s.Name, len(s.OriginalQuads), len(s.Primitives), len(s.Lights))

	rt := renderer.NewRaytracer(s, cfg, logger)

	if cfg.GatherIndirect || opts.energyReport {
		pm := photonmap.New(s, rt, cfg, logger)
		start := time.Now()
		if err := pm.TraceAllPhotons(ctx); err != nil {
			return "", fmt.Errorf("photon tracing failed: %w", err)
		}
		logger.Printf("Photon tracing completed in %v\n", time.Since(start))

		if cfg.GatherIndirect {
			rt.SetGatherer(pm)
		}
		if opts.energyReport {
			printEnergyReport(logger, pm.PrimitiveEnergyReport())
		}
	}

	start := time.Now()
	img, stats, err := renderer.NewProgressiveRenderer(rt, s.Camera, cfg, logger).Render(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("render failed: %w", err)
	}
	logger.Printf("Render completed in %v\n", time.Since(start))
	logger.Printf("Samples per pixel: %.1f (range %d - %d), average luminance %.3f\n",
		stats.AverageSamples, stats.MinSamples, stats.MaxSamplesUsed, renderer.CalculateAverageLuminance(img))

	return savePNG(img, filepath.Join(opts.outputDir, s.Name))
}

func printEnergyReport(logger core.Logger, report []photonmap.PrimitiveEnergy) {
	logger.Printf("%5s  %-14s %8s  %s\n", "index", "kind", "photons", "energy")
	for _, e := range report {
		logger.Printf("%5d  %-14s %8d  %v\n", e.Index, e.Kind, e.Photons, e.Energy)
	}
}

// savePNG writes img to a timestamped file in dir
func savePNG(img image.Image, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("error creating output directory: %w", err)
	}

	timestamp := time.Now().Format("20060102_150405")
	filename := filepath.Join(dir, fmt.Sprintf("render_%s.png", timestamp))

	file, err := os.Create(filename)
	if err != nil {
		return "", fmt.Errorf("error creating file: %w", err)
	}
	defer file.Close()

	if err := png.Encode(file, img); err != nil {
		return "", fmt.Errorf("error saving PNG: %w", err)
	}
	return filename, nil
}
