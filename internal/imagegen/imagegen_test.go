package imagegen_test

import (
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"

	"github.com/morenoc/imagemill/internal/imagegen"
)

func TestGenerate(t *testing.T) {
	t.Parallel()

	t.Run("Test generated images are decodable", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()

		paths, err := imagegen.Generate(dir, 5, 42)
		if err != nil {
			t.Fatalf("expected not to receive error: got '%v'", err)
		}

		if len(paths) != 5 {
			t.Fatalf("expected path count: got '%d', want '5'", len(paths))
		}

		wantDims := [][2]int{
			{800, 600},
			{1024, 768},
			{1280, 960},
			{1600, 1200},
			{1920, 1440},
		}

		for i, path := range paths {
			img, err := imaging.Open(path)
			if err != nil {
				t.Fatalf("expected generated image to decode: got '%v'", err)
			}

			bounds := img.Bounds()
			if bounds.Dx() != wantDims[i][0] || bounds.Dy() != wantDims[i][1] {
				t.Errorf(
					"expected dimensions: got '%dx%d', want '%dx%d'",
					bounds.Dx(), bounds.Dy(),
					wantDims[i][0], wantDims[i][1],
				)
			}
		}
	})

	t.Run("Test missing directory is created", func(t *testing.T) {
		t.Parallel()

		dir := filepath.Join(t.TempDir(), "nested", "samples")

		paths, err := imagegen.Generate(dir, 1, 1)
		if err != nil {
			t.Fatalf("expected not to receive error: got '%v'", err)
		}

		if len(paths) != 1 {
			t.Errorf("expected path count: got '%d', want '1'", len(paths))
		}
	})

	t.Run("Test invalid count", func(t *testing.T) {
		t.Parallel()

		if _, err := imagegen.Generate(t.TempDir(), 0, 1); err == nil {
			t.Errorf("expected error for zero count")
		}
	})
}
