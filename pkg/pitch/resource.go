// Package pitch provides monophonic pitch detectors and the encoded
// resource that selects and configures one.
//
// A controller ships the detector description as bytes (EncodeResource) to
// the audio context, which builds the detector with a Factory:
//
//	res, _ := pitch.DecodeResource(data)
//	det, err := pitch.DefaultFactory(ctx, res, 48000, 5120)
//	freq, _ := det.Detect(window)
package pitch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

const (
	AlgorithmYIN             = "yin"
	AlgorithmAutocorrelation = "autocorrelation"
)

var (
	ErrUnknownAlgorithm = errors.New("unknown pitch algorithm")
	ErrInvalidResource  = errors.New("invalid detector resource")
)

// Resource is the decoded detector description carried by InitDetector.
type Resource struct {
	Algorithm string `json:"algorithm"`

	// Threshold is the YIN absolute threshold, or the minimum normalised
	// correlation for autocorrelation.
	Threshold float64 `json:"threshold"`

	// MinFrequency and MaxFrequency bound the search range in Hz.
	MinFrequency float64 `json:"min_frequency"`
	MaxFrequency float64 `json:"max_frequency"`

	// MinRMS gates silence: windows quieter than this report no pitch.
	MinRMS float64 `json:"min_rms"`
}

// DefaultResource covers the guitar range from drop tunings to the top fret.
func DefaultResource() Resource {
	return Resource{
		Algorithm:    AlgorithmYIN,
		Threshold:    0.15,
		MinFrequency: 60,
		MaxFrequency: 1400,
		MinRMS:       0.01,
	}
}

// IsValid checks the resource for internal consistency.
func (r Resource) IsValid() error {
	switch r.Algorithm {
	case AlgorithmYIN, AlgorithmAutocorrelation:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAlgorithm, r.Algorithm)
	}
	if r.Threshold <= 0 || r.Threshold >= 1 {
		return fmt.Errorf("%w: threshold %v not in (0,1)", ErrInvalidResource, r.Threshold)
	}
	if r.MinFrequency <= 0 || r.MaxFrequency <= r.MinFrequency {
		return fmt.Errorf("%w: frequency range [%v, %v]", ErrInvalidResource, r.MinFrequency, r.MaxFrequency)
	}
	if r.MinRMS < 0 {
		return fmt.Errorf("%w: negative min_rms", ErrInvalidResource)
	}
	return nil
}

// EncodeResource serialises a resource for the control channel.
func EncodeResource(r Resource) ([]byte, error) {
	if err := r.IsValid(); err != nil {
		return nil, err
	}
	return json.Marshal(r)
}

// DecodeResource parses and validates an encoded resource. Missing fields
// take their defaults.
func DecodeResource(data []byte) (Resource, error) {
	r := DefaultResource()
	if len(data) == 0 {
		return Resource{}, fmt.Errorf("%w: empty", ErrInvalidResource)
	}
	if err := json.Unmarshal(data, &r); err != nil {
		return Resource{}, fmt.Errorf("%w: %v", ErrInvalidResource, err)
	}
	if err := r.IsValid(); err != nil {
		return Resource{}, err
	}
	return r, nil
}

// Factory builds a detector sized for windowSize samples at sampleRate.
// Construction may be slow; callers run it off the audio path.
type Factory func(ctx context.Context, res Resource, sampleRate, windowSize int) (Detector, error)

// DefaultFactory builds one of the detectors in this package.
func DefaultFactory(ctx context.Context, res Resource, sampleRate, windowSize int) (Detector, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := res.IsValid(); err != nil {
		return nil, err
	}
	if sampleRate <= 0 || windowSize <= 0 {
		return nil, fmt.Errorf("invalid detector size: rate=%d window=%d", sampleRate, windowSize)
	}

	switch res.Algorithm {
	case AlgorithmYIN:
		return NewYIN(res, sampleRate, windowSize)
	case AlgorithmAutocorrelation:
		return NewAutocorrelation(res, sampleRate, windowSize)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, res.Algorithm)
	}
}
