package pitch

import (
	"context"
	"errors"
	"sync"
)

// Reading is one scripted Detect result.
type Reading struct {
	Frequency float64
	Err       error
}

// Readings scripts a run of successful detections; 0 means no pitch.
func Readings(freqs ...float64) []Reading {
	out := make([]Reading, len(freqs))
	for i, f := range freqs {
		out[i] = Reading{Frequency: f}
	}
	return out
}

// MockDetector replays scripted readings, cycling when it runs out, and
// keeps a copy of every window it was handed. With no readings it never
// hears a pitch.
type MockDetector struct {
	mu        sync.Mutex
	script    []Reading
	next      int
	windows   [][]float32
	destroyed bool
}

func NewMockDetector(script ...Reading) *MockDetector {
	return &MockDetector{script: script}
}

func (m *MockDetector) Detect(window []float32) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.windows = append(m.windows, append([]float32(nil), window...))
	if len(m.script) == 0 {
		return 0, nil
	}
	r := m.script[m.next]
	m.next = (m.next + 1) % len(m.script)
	return r.Frequency, r.Err
}

func (m *MockDetector) Destroy() error {
	m.mu.Lock()
	m.destroyed = true
	m.mu.Unlock()
	return nil
}

// Windows returns the windows passed to Detect, oldest first.
func (m *MockDetector) Windows() [][]float32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]float32(nil), m.windows...)
}

func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.windows)
}

func (m *MockDetector) Destroyed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.destroyed
}

// FactoryFor returns a Factory that always hands out det.
func FactoryFor(det Detector) Factory {
	return func(ctx context.Context, res Resource, sampleRate, windowSize int) (Detector, error) {
		return det, nil
	}
}

// FailingFactory returns a Factory that always fails with err.
func FailingFactory(err error) Factory {
	if err == nil {
		err = errors.New("detector construction failed")
	}
	return func(ctx context.Context, res Resource, sampleRate, windowSize int) (Detector, error) {
		return nil, err
	}
}

// GatedFactory wraps next so construction blocks until release is closed or
// ctx is done. Tests use it to hold a pipeline in its initializing state.
func GatedFactory(next Factory, release <-chan struct{}) Factory {
	return func(ctx context.Context, res Resource, sampleRate, windowSize int) (Detector, error) {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return next(ctx, res, sampleRate, windowSize)
	}
}
