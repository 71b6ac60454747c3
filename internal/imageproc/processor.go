package imageproc

import (
	"image"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"
)

const jpegQuality = 95

// Sigmas for the two gaussian blur variants.
const (
	blurSigma        = 5
	blurIntenseSigma = 10
)

// laplacianKernel is the 3x3 convolution kernel used for edge detection.
var laplacianKernel = [9]float64{
	-1, -1, -1,
	-1, 8, -1,
	-1, -1, -1,
}

// Processor transforms one image at a time. Implementations must be safe
// for concurrent use by multiple workers; they share no mutable state.
type Processor interface {
	Process(inputPath, outputPath string, ops []Operation) Result
}

// Imaging is the real Processor. It is stateless; the zero value is ready
// to use.
type Imaging struct{}

// Process loads the input image, applies each operation in order, and
// encodes the result to outputPath (JPEG at quality 95 for .jpg/.jpeg,
// format by extension otherwise). Failures are reported in the Result.
func (Imaging) Process(inputPath, outputPath string, ops []Operation) Result {
	start := time.Now()
	file := filepath.Base(inputPath)

	sizeBefore, err := fileSizeKB(inputPath)
	if err != nil {
		return failure(file, start, err)
	}

	img, err := imaging.Open(inputPath)
	if err != nil {
		return failure(file, start, err)
	}
	originalDims := dims(img)

	applied := make([]string, 0, len(ops))
	for _, op := range ops {
		img = apply(img, op)
		applied = append(applied, op.Label())
	}

	if err := imaging.Save(img, outputPath, imaging.JPEGQuality(jpegQuality)); err != nil {
		return failure(file, start, err)
	}

	sizeAfter, err := fileSizeKB(outputPath)
	if err != nil {
		return failure(file, start, err)
	}

	return Result{
		File:              file,
		Success:           true,
		TimeSeconds:       time.Since(start).Seconds(),
		SizeBeforeKB:      sizeBefore,
		SizeAfterKB:       sizeAfter,
		OriginalDims:      originalDims,
		FinalDims:         dims(img),
		OperationsApplied: applied,
	}
}

func apply(img image.Image, op Operation) image.Image {
	switch op.Type {
	case OpBlur:
		return imaging.Blur(img, blurSigma)
	case OpBlurIntense:
		return imaging.Blur(img, blurIntenseSigma)
	case OpGrayscale:
		return imaging.Grayscale(img)
	case OpSharpen:
		return imaging.Sharpen(img, 1)
	case OpEdgeDetect:
		return imaging.Convolve3x3(img, laplacianKernel, nil)
	case OpResize:
		return imaging.Resize(img, op.Width, op.Height, imaging.Lanczos)
	default:
		return img
	}
}

func failure(file string, start time.Time, err error) Result {
	return Result{
		File:        file,
		Success:     false,
		TimeSeconds: time.Since(start).Seconds(),
		Err:         err.Error(),
	}
}

func dims(img image.Image) [2]int {
	b := img.Bounds()
	return [2]int{b.Dx(), b.Dy()}
}

func fileSizeKB(path string) (float64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}

	return math.Round(float64(info.Size())/1024*100) / 100, nil
}
