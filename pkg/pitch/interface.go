package pitch

// Detector estimates the fundamental frequency of a sample window.
// Implementations are driven from a single goroutine and need not be
// safe for concurrent use.
type Detector interface {
	// Detect analyses window and returns the fundamental in Hz.
	// A return of 0 means no confident pitch; it is not an error.
	Detect(window []float32) (float64, error)

	// Destroy releases all resources held by the detector.
	// The detector must not be used afterwards.
	Destroy() error
}
