// Package imagegen generates sample JPEG images for exercising the
// processing pipeline without real input data.
package imagegen

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
)

const jpegQuality = 95

// sizes is the spread of image dimensions the generator cycles through.
var sizes = [][2]int{
	{800, 600},
	{1024, 768},
	{1280, 960},
	{1600, 1200},
	{1920, 1440},
}

// patterns are the fill styles the generator cycles through.
var patterns = []func(*image.NRGBA, *rand.Rand){
	fillBlocks,
	fillGradient,
	fillNoise,
	fillRings,
}

// Generate writes count sample JPEGs into dir, creating it if needed, and
// returns the generated paths. Images cycle through a fixed spread of sizes
// and patterns; seed makes the noise pattern reproducible.
func Generate(dir string, count int, seed int64) ([]string, error) {
	if count < 1 {
		return nil, fmt.Errorf("count must be at least 1, got %d", count)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	rng := rand.New(rand.NewSource(seed))

	paths := make([]string, 0, count)
	for i := 0; i < count; i++ {
		size := sizes[i%len(sizes)]

		img := image.NewNRGBA(image.Rect(0, 0, size[0], size[1]))
		patterns[i%len(patterns)](img, rng)

		path := filepath.Join(dir, fmt.Sprintf("sample_%02d.jpg", i+1))
		if err := imaging.Save(img, path, imaging.JPEGQuality(jpegQuality)); err != nil {
			return nil, fmt.Errorf("save %s: %w", path, err)
		}

		paths = append(paths, path)
	}

	return paths, nil
}

var blockColors = []color.NRGBA{
	{R: 255, A: 255},
	{G: 255, A: 255},
	{B: 255, A: 255},
	{R: 255, G: 255, A: 255},
	{R: 255, B: 255, A: 255},
	{G: 255, B: 255, A: 255},
}

// fillBlocks paints a 3x2 grid of solid color blocks.
func fillBlocks(img *image.NRGBA, _ *rand.Rand) {
	b := img.Bounds()
	blockW := b.Dx() / 3
	blockH := b.Dy() / 2

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			col := min(x/blockW, 2)
			row := min(y/blockH, 1)
			img.SetNRGBA(x, y, blockColors[(row*3+col)%len(blockColors)])
		}
	}
}

// fillGradient paints a vertical red-to-blue gradient.
func fillGradient(img *image.NRGBA, _ *rand.Rand) {
	b := img.Bounds()
	height := float64(b.Dy())

	for y := b.Min.Y; y < b.Max.Y; y++ {
		t := float64(y) / height
		c := color.NRGBA{
			R: uint8(255 * (1 - t)),
			G: 100,
			B: uint8(255 * t),
			A: 255,
		}

		for x := b.Min.X; x < b.Max.X; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
}

// fillNoise paints uniform random color noise, which compresses poorly and
// makes for a usefully heavy processing load.
func fillNoise(img *image.NRGBA, rng *rand.Rand) {
	b := img.Bounds()

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(rng.Intn(256)),
				G: uint8(rng.Intn(256)),
				B: uint8(rng.Intn(256)),
				A: 255,
			})
		}
	}
}

// fillRings paints concentric rings around the image center.
func fillRings(img *image.NRGBA, _ *rand.Rand) {
	b := img.Bounds()
	cx := float64(b.Dx()) / 2
	cy := float64(b.Dy()) / 2

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			d := math.Hypot(float64(x)-cx, float64(y)-cy)
			c := blockColors[int(d/40)%len(blockColors)]
			img.SetNRGBA(x, y, c)
		}
	}
}
