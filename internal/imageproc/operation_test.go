package imageproc_test

import (
	"testing"

	"github.com/morenoc/imagemill/internal/imageproc"
)

func TestParseOperation(t *testing.T) {
	t.Parallel()

	t.Run("Test valid operations", func(t *testing.T) {
		t.Parallel()

		scenarios := map[string]struct {
			opType string
			width  int
			height int
			want   imageproc.Operation
		}{
			"Blur": {
				opType: "blur",
				want:   imageproc.Operation{Type: imageproc.OpBlur},
			},
			"Intense blur": {
				opType: "blur_intense",
				want:   imageproc.Operation{Type: imageproc.OpBlurIntense},
			},
			"Grayscale": {
				opType: "grayscale",
				want:   imageproc.Operation{Type: imageproc.OpGrayscale},
			},
			"Sharpen": {
				opType: "sharpen",
				want:   imageproc.Operation{Type: imageproc.OpSharpen},
			},
			"Edge detect": {
				opType: "edge_detect",
				want:   imageproc.Operation{Type: imageproc.OpEdgeDetect},
			},
			"Resize with dimensions": {
				opType: "resize",
				width:  1024,
				height: 768,
				want: imageproc.Operation{
					Type:   imageproc.OpResize,
					Width:  1024,
					Height: 768,
				},
			},
			"Resize defaults to 800x600": {
				opType: "resize",
				want: imageproc.Operation{
					Type:   imageproc.OpResize,
					Width:  800,
					Height: 600,
				},
			},
			"Case insensitive": {
				opType: "Blur",
				want:   imageproc.Operation{Type: imageproc.OpBlur},
			},
		}

		for scenario, config := range scenarios {
			config := config
			t.Run(scenario, func(t *testing.T) {
				t.Parallel()

				got, err := imageproc.ParseOperation(
					config.opType,
					config.width,
					config.height,
				)
				if err != nil {
					t.Fatalf("expected not to receive error: got '%v'", err)
				}

				if got != config.want {
					t.Errorf("expected operation: got '%+v', want '%+v'", got, config.want)
				}
			})
		}
	})

	t.Run("Test unknown operation", func(t *testing.T) {
		t.Parallel()

		if _, err := imageproc.ParseOperation("rotate", 0, 0); err == nil {
			t.Errorf("expected error for unknown operation type")
		}
	})
}

func TestOperationLabels(t *testing.T) {
	t.Parallel()

	ops := []imageproc.Operation{
		{Type: imageproc.OpBlur},
		{Type: imageproc.OpBlurIntense},
		{Type: imageproc.OpGrayscale},
		{Type: imageproc.OpSharpen},
		{Type: imageproc.OpEdgeDetect},
		{Type: imageproc.OpResize, Width: 800, Height: 600},
	}

	want := []string{
		"Blur",
		"Intense Blur",
		"Grayscale",
		"Sharpen",
		"Edge Detect",
		"Resize 800x600",
	}

	for i, op := range ops {
		if got := op.Label(); got != want[i] {
			t.Errorf("expected label: got '%s', want '%s'", got, want[i])
		}
	}
}

func TestDefaultOperations(t *testing.T) {
	t.Parallel()

	got := imageproc.DefaultOperations()

	want := []imageproc.Operation{
		{Type: imageproc.OpBlur},
		{Type: imageproc.OpGrayscale},
		{Type: imageproc.OpResize, Width: 800, Height: 600},
	}

	if len(got) != len(want) {
		t.Fatalf("expected operation count: got '%d', want '%d'", len(got), len(want))
	}

	for i := range want {
		if got[i] != want[i] {
			t.Errorf("expected operation %d: got '%+v', want '%+v'", i, got[i], want[i])
		}
	}
}
