package renderer

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/df07/go-photon-mapper/pkg/core"
	"github.com/df07/go-photon-mapper/pkg/geometry"
)

// ProgressiveRenderer renders an image in passes, doubling the samples per
// pixel each pass until the antialiasing sample count is reached
type ProgressiveRenderer struct {
	width, height int
	config        core.Config
	tiles         []*Tile
	pixelStats    [][]PixelStats // Row 0 is the top of the image
	tileRenderer  *TileRenderer
	logger        core.Logger
}

// NewProgressiveRenderer creates a renderer for the configured image size
func NewProgressiveRenderer(shader RayShader, camera *geometry.Camera, config core.Config, logger core.Logger) *ProgressiveRenderer {
	if logger == nil {
		logger = core.NopLogger{}
	}

	pixelStats := make([][]PixelStats, config.Height)
	for y := range pixelStats {
		pixelStats[y] = make([]PixelStats, config.Width)
	}

	return &ProgressiveRenderer{
		width:        config.Width,
		height:       config.Height,
		config:       config,
		tiles:        NewTileGrid(config.Width, config.Height, config.TileSize, config.Seed),
		pixelStats:   pixelStats,
		tileRenderer: NewTileRenderer(shader, camera, config.Width, config.Height),
		logger:       logger,
	}
}

// PassSchedule returns the cumulative samples per pixel after each pass:
// 1, 2, 4, ... capped at the configured antialiasing sample count
func (pr *ProgressiveRenderer) PassSchedule() []int {
	total := max(1, pr.config.NumAntialiasSamples)
	var schedule []int
	for samples := 1; ; samples *= 2 {
		if samples >= total {
			return append(schedule, total)
		}
		schedule = append(schedule, samples)
	}
}

// PassResult contains the result of a single pass
type PassResult struct {
	PassNumber int
	Image      *image.RGBA
	Stats      RenderStats
	IsLast     bool
}

// Render runs every pass and returns the final image. onPass, if not nil,
// is called after each pass. Cancellation is checked between tiles.
func (pr *ProgressiveRenderer) Render(ctx context.Context, onPass func(PassResult)) (*image.RGBA, RenderStats, error) {
	schedule := pr.PassSchedule()
	pool := NewWorkerPool(pr.tileRenderer, len(pr.tiles), pr.config.NumWorkers)
	pool.Start()
	defer pool.Stop()

	pr.logger.Printf("Rendering %dx%d in %d passes using %d workers...\n",
		pr.width, pr.height, len(schedule), pool.GetNumWorkers())

	var img *image.RGBA
	var stats RenderStats
	for i, target := range schedule {
		pass := i + 1
		if err := ctx.Err(); err != nil {
			pr.logger.Printf("Rendering cancelled before pass %d\n", pass)
			return nil, RenderStats{}, err
		}

		start := time.Now()
		var err error
		img, stats, err = pr.renderPass(ctx, pool, target)
		if err != nil {
			return nil, RenderStats{}, err
		}
		pr.logger.Printf("Pass %d completed in %v (%d samples/pixel)\n", pass, time.Since(start), target)

		if onPass != nil {
			onPass(PassResult{
				PassNumber: pass,
				Image:      img,
				Stats:      stats,
				IsLast:     pass == len(schedule),
			})
		}
	}

	return img, stats, nil
}

func (pr *ProgressiveRenderer) renderPass(ctx context.Context, pool *WorkerPool, targetSamples int) (*image.RGBA, RenderStats, error) {
	submitted := 0
	for id, tile := range pr.tiles {
		if ctx.Err() != nil {
			break
		}
		pool.SubmitTask(TileTask{
			Tile:          tile,
			TargetSamples: targetSamples,
			TaskID:        id,
			PixelStats:    pr.pixelStats,
		})
		submitted++
	}

	// always drain what was submitted so no worker is left writing
	var tileErr error
	for i := 0; i < submitted; i++ {
		result, ok := pool.GetResult()
		if !ok {
			return nil, RenderStats{}, fmt.Errorf("worker pool closed unexpectedly")
		}
		if result.Error != nil {
			tileErr = errors.Join(tileErr, result.Error)
			continue
		}
		pr.tiles[result.TaskID].PassesCompleted++
	}
	if tileErr != nil {
		return nil, RenderStats{}, tileErr
	}
	if err := ctx.Err(); err != nil {
		return nil, RenderStats{}, err
	}

	img, stats := pr.assembleCurrentImage(targetSamples)
	return img, stats, nil
}

// assembleCurrentImage creates an image from the current pixel stats
// and calculates render statistics in a single pass
func (pr *ProgressiveRenderer) assembleCurrentImage(targetSamples int) (*image.RGBA, RenderStats) {
	img := image.NewRGBA(image.Rect(0, 0, pr.width, pr.height))

	stats := RenderStats{
		TotalPixels: pr.width * pr.height,
		MaxSamples:  targetSamples,
		MinSamples:  targetSamples,
	}

	for y := 0; y < pr.height; y++ {
		for x := 0; x < pr.width; x++ {
			pixel := &pr.pixelStats[y][x]
			img.SetRGBA(x, y, ToRGBA(pixel.GetColor()))

			stats.TotalSamples += pixel.SampleCount
			stats.MinSamples = min(stats.MinSamples, pixel.SampleCount)
			stats.MaxSamplesUsed = max(stats.MaxSamplesUsed, pixel.SampleCount)
		}
	}

	if stats.TotalPixels > 0 {
		stats.AverageSamples = float64(stats.TotalSamples) / float64(stats.TotalPixels)
	}
	return img, stats
}

// Tile represents a rectangular region of the image to be rendered
type Tile struct {
	ID              int             // Unique tile identifier
	Bounds          image.Rectangle // Pixel bounds (x0,y0,x1,y1)
	PassesCompleted int             // Number of passes completed for this tile
	Sampler         *core.RandomSampler
}

// NewTile creates a tile whose sampler is seeded from seed and the tile ID
func NewTile(id int, bounds image.Rectangle, seed int64) *Tile {
	return &Tile{
		ID:      id,
		Bounds:  bounds,
		Sampler: core.NewSeededSampler(seed + int64(id)),
	}
}

// NewTileGrid creates a grid of tiles covering the entire image
func NewTileGrid(width, height, tileSize int, seed int64) []*Tile {
	var tiles []*Tile
	tileID := 0

	tilesX := (width + tileSize - 1) / tileSize // Ceiling division
	tilesY := (height + tileSize - 1) / tileSize

	for tileY := 0; tileY < tilesY; tileY++ {
		for tileX := 0; tileX < tilesX; tileX++ {
			x0 := tileX * tileSize
			y0 := tileY * tileSize
			x1 := min(x0+tileSize, width) // Don't exceed image bounds
			y1 := min(y0+tileSize, height)

			tiles = append(tiles, NewTile(tileID, image.Rect(x0, y0, x1, y1), seed))
			tileID++
		}
	}

	return tiles
}
