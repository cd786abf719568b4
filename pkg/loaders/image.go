package loaders

import (
	"fmt"
	"image"
	_ "image/jpeg" // JPEG decoder
	_ "image/png"  // PNG decoder
	"os"

	_ "github.com/spakin/netpbm" // PPM/PGM/PBM decoders, the format older scene files ship textures in

	"github.com/df07/go-photon-mapper/pkg/core"
	"github.com/df07/go-photon-mapper/pkg/material"
)

// ImageData contains loaded image data as Vec3 color array.
// Values are the stored (display encoded) intensities in [0, 1].
type ImageData struct {
	Width  int
	Height int
	Pixels []core.Vec3
}

// LoadImage loads a PNG, JPEG or Netpbm image and converts it to Vec3 color array
func LoadImage(filename string) (*ImageData, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open image file: %w", err)
	}
	defer file.Close()

	// auto-detects the format from the file header
	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", filename, err)
	}

	return FromImage(img), nil
}

// FromImage converts a decoded image to row-major Vec3 pixels, top row first
func FromImage(img image.Image) *ImageData {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	pixels := make([]core.Vec3, width*height)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := img.At(x+bounds.Min.X, y+bounds.Min.Y).RGBA()
			// RGBA returns uint32 in [0, 65535]
			pixels[y*width+x] = core.NewVec3(
				float64(r)/65535.0,
				float64(g)/65535.0,
				float64(b)/65535.0,
			)
		}
	}

	return &ImageData{Width: width, Height: height, Pixels: pixels}
}

// LoadTexture loads an image file as a diffuse texture. Stored values are
// treated as sRGB and decoded to linear.
func LoadTexture(filename string) (*material.ImageTexture, error) {
	data, err := LoadImage(filename)
	if err != nil {
		return nil, err
	}
	if data.Width == 0 || data.Height == 0 {
		return nil, fmt.Errorf("texture %s has no pixels", filename)
	}
	return material.NewImageTextureFromSRGB(data.Width, data.Height, data.Pixels), nil
}
