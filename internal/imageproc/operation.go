package imageproc

import (
	"fmt"
	"strings"
)

// OpType identifies one image operation variant.
type OpType string

const (
	OpBlur        OpType = "blur"
	OpBlurIntense OpType = "blur_intense"
	OpGrayscale   OpType = "grayscale"
	OpSharpen     OpType = "sharpen"
	OpEdgeDetect  OpType = "edge_detect"
	OpResize      OpType = "resize"
)

const (
	defaultResizeWidth  = 800
	defaultResizeHeight = 600
)

// Operation is one step of a transformation pipeline. Width and Height are
// only meaningful for OpResize.
type Operation struct {
	Type   OpType
	Width  int
	Height int
}

// ParseOperation validates a wire-form operation. Resize dimensions default
// to 800x600 when omitted.
func ParseOperation(opType string, width, height int) (Operation, error) {
	switch OpType(strings.ToLower(opType)) {
	case OpBlur, OpBlurIntense, OpGrayscale, OpSharpen, OpEdgeDetect:
		return Operation{Type: OpType(strings.ToLower(opType))}, nil

	case OpResize:
		if width <= 0 {
			width = defaultResizeWidth
		}
		if height <= 0 {
			height = defaultResizeHeight
		}
		return Operation{Type: OpResize, Width: width, Height: height}, nil

	default:
		return Operation{}, fmt.Errorf("unknown operation type: %q", opType)
	}
}

// Label returns the human-readable name stamped into a Result's applied
// operations list. Labels correspond one-to-one, in order, with the input
// operation sequence.
func (op Operation) Label() string {
	switch op.Type {
	case OpBlur:
		return "Blur"
	case OpBlurIntense:
		return "Intense Blur"
	case OpGrayscale:
		return "Grayscale"
	case OpSharpen:
		return "Sharpen"
	case OpEdgeDetect:
		return "Edge Detect"
	case OpResize:
		return fmt.Sprintf("Resize %dx%d", op.Width, op.Height)
	default:
		return string(op.Type)
	}
}

// DefaultOperations is the pipeline applied when a start command carries no
// operations: blur, grayscale, then resize to 800x600.
func DefaultOperations() []Operation {
	return []Operation{
		{Type: OpBlur},
		{Type: OpGrayscale},
		{Type: OpResize, Width: defaultResizeWidth, Height: defaultResizeHeight},
	}
}

// Task is one unit of work: transform the image at InputPath with the given
// operations and write it to OutputPath. A Task is immutable once built and
// owned exclusively by the worker that executes it.
type Task struct {
	InputPath  string
	OutputPath string
	Operations []Operation
}

// Result captures the outcome of processing one Task. Produced once,
// consumed once by the orchestrator, then discarded.
type Result struct {
	File              string
	Success           bool
	TimeSeconds       float64
	SizeBeforeKB      float64
	SizeAfterKB       float64
	OriginalDims      [2]int
	FinalDims         [2]int
	OperationsApplied []string
	Worker            string
	Err               string
}
