// Package audio provides audio processing utilities.
//
// SampleWindow keeps the most recent W samples of a stream so a pitch
// detector can analyse overlapping windows while capture delivers frames of
// arbitrary size.
//
// Main features:
//   - Fixed capacity chosen at construction, zero-filled initially
//   - Chronological layout: index 0 is the oldest sample, W-1 the newest
//   - No allocation on Push
//
// Usage:
//
//	w := NewSampleWindow(5120)
//	if err := w.Push(frame); err != nil { ... }
//	freq, _ := detector.Detect(w.Samples())
package audio

import (
	"errors"
	"fmt"
)

// DefaultWindowSize is the analysis window used when none is configured.
const DefaultWindowSize = 5120

// ErrFrameTooLarge is returned when a frame is longer than the window.
var ErrFrameTooLarge = errors.New("frame larger than sample window")

// SampleWindow is a fixed-size sliding window over float32 samples.
// It is not safe for concurrent use; the owner serialises access.
type SampleWindow struct {
	data   []float32
	filled int // samples written since the last reset, capped at capacity
}

// NewSampleWindow creates a zero-filled window of size samples.
func NewSampleWindow(size int) *SampleWindow {
	if size <= 0 {
		size = DefaultWindowSize
	}
	return &SampleWindow{
		data: make([]float32, size),
	}
}

// Push shifts the window left by len(frame) samples, dropping the oldest,
// and writes frame into the tail. Frames longer than the window are
// rejected with ErrFrameTooLarge and leave the window unchanged.
func (w *SampleWindow) Push(frame []float32) error {
	n := len(frame)
	capacity := len(w.data)
	if n > capacity {
		return fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, n, capacity)
	}
	if n == 0 {
		return nil
	}

	copy(w.data, w.data[n:])
	copy(w.data[capacity-n:], frame)

	w.filled += n
	if w.filled > capacity {
		w.filled = capacity
	}
	return nil
}

// Samples returns the live window, oldest sample first. The slice is only
// valid until the next Push and must not be modified.
func (w *SampleWindow) Samples() []float32 {
	return w.data
}

// Snapshot returns a copy of the window.
func (w *SampleWindow) Snapshot() []float32 {
	out := make([]float32, len(w.data))
	copy(out, w.data)
	return out
}

// Reset zero-fills the window.
func (w *SampleWindow) Reset() {
	clear(w.data)
	w.filled = 0
}

// Filled returns how many real samples the window holds; the rest is the
// initial zero padding.
func (w *SampleWindow) Filled() int {
	return w.filled
}

// Full reports whether every slot holds a real sample.
func (w *SampleWindow) Full() bool {
	return w.filled == len(w.data)
}

// Capacity returns the window size in samples.
func (w *SampleWindow) Capacity() int {
	return len(w.data)
}
