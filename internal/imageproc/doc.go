// Package imageproc provides the per-item image transformation pipeline.
//
// A Task pairs an input image with an output path and an ordered sequence
// of Operations. A Processor consumes one Task at a time and produces an
// immutable Result. Task-level failures are captured in the Result rather
// than returned as errors, so one bad item never aborts a batch.
//
// Two Processor implementations are provided: Imaging, which performs real
// transformations, and Stub, which produces synthetic failure results for
// running the server without doing any image work.
package imageproc
