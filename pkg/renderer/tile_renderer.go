package renderer

import (
	"image"

	"github.com/df07/go-photon-mapper/pkg/core"
	"github.com/df07/go-photon-mapper/pkg/geometry"
)

// RayShader computes the color seen along a camera ray. *Raytracer implements it.
type RayShader interface {
	TraceRay(ray core.Ray, hit *geometry.HitRecord, bounceCount int, sampler core.Sampler) core.Vec3
}

// TileRenderer renders rectangular regions of the image
type TileRenderer struct {
	shader RayShader
	camera *geometry.Camera
	width  int
	height int
}

// NewTileRenderer creates a tile renderer for a width x height image
func NewTileRenderer(shader RayShader, camera *geometry.Camera, width, height int) *TileRenderer {
	return &TileRenderer{
		shader: shader,
		camera: camera,
		width:  width,
		height: height,
	}
}

// RenderTileBounds takes samples for every pixel in bounds until it has targetSamples.
// pixelStats is indexed [row][column] with row 0 at the top of the image.
func (tr *TileRenderer) RenderTileBounds(bounds image.Rectangle, pixelStats [][]PixelStats, sampler core.Sampler, targetSamples int) RenderStats {
	stats := RenderStats{
		TotalPixels: bounds.Dx() * bounds.Dy(),
		MaxSamples:  targetSamples,
		MinSamples:  targetSamples,
	}

	for row := bounds.Min.Y; row < bounds.Max.Y; row++ {
		for col := bounds.Min.X; col < bounds.Max.X; col++ {
			ps := &pixelStats[row][col]
			before := ps.SampleCount
			for ps.SampleCount < targetSamples {
				ray := tr.pixelRay(col, row, ps.SampleCount, sampler)
				hit := geometry.NewHitRecord()
				ps.AddSample(tr.shader.TraceRay(ray, &hit, 0, sampler))
			}

			used := ps.SampleCount - before
			stats.TotalSamples += used
			stats.MinSamples = min(stats.MinSamples, used)
			stats.MaxSamplesUsed = max(stats.MaxSamplesUsed, used)
		}
	}

	if stats.TotalPixels > 0 {
		stats.AverageSamples = float64(stats.TotalSamples) / float64(stats.TotalPixels)
	}
	return stats
}

// pixelRay returns the camera ray for one sample of a pixel. The first sample
// goes through the pixel center, later ones are jittered inside the pixel.
func (tr *TileRenderer) pixelRay(col, row, sample int, sampler core.Sampler) core.Ray {
	offset := core.NewVec2(0.5, 0.5)
	if sample > 0 {
		offset = sampler.Get2D()
	}
	x, y := ScreenCoordinates(float64(col)+offset.X, float64(tr.height-1-row)+offset.Y, tr.width, tr.height)
	return tr.camera.GenerateRay(x, y)
}

// ScreenCoordinates maps a position in pixel units (origin at the lower left)
// to the camera's [0,1]² screen. The longer image side spans the full screen.
func ScreenCoordinates(px, py float64, width, height int) (float64, float64) {
	maxDim := float64(max(width, height))
	x := (px-float64(width)/2)/maxDim + 0.5
	y := (py-float64(height)/2)/maxDim + 0.5
	return x, y
}
