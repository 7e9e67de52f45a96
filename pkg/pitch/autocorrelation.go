package pitch

import (
	"fmt"
	"math"
)

// peakTolerance picks the first correlation peak within this fraction of the
// best one, which keeps octave-down errors out.
const peakTolerance = 0.9

// Autocorrelation estimates pitch from the normalised autocorrelation of the
// window.
type Autocorrelation struct {
	sampleRate float64
	threshold  float64
	minFreq    float64
	maxFreq    float64
	minRMS     float64

	windowSize int
	minTau     int
	maxTau     int

	corr []float64
}

// NewAutocorrelation sizes an autocorrelation detector.
func NewAutocorrelation(res Resource, sampleRate, windowSize int) (*Autocorrelation, error) {
	minTau, maxTau, err := lagRange(res, sampleRate, windowSize)
	if err != nil {
		return nil, err
	}
	return &Autocorrelation{
		sampleRate: float64(sampleRate),
		threshold:  res.Threshold,
		minFreq:    res.MinFrequency,
		maxFreq:    res.MaxFrequency,
		minRMS:     res.MinRMS,
		windowSize: windowSize,
		minTau:     minTau,
		maxTau:     maxTau,
		corr:       make([]float64, maxTau+2),
	}, nil
}

// Detect implements Detector.
func (a *Autocorrelation) Detect(window []float32) (float64, error) {
	if len(window) != a.windowSize {
		return 0, fmt.Errorf("window has %d samples, detector expects %d", len(window), a.windowSize)
	}
	if rms(window) < a.minRMS {
		return 0, nil
	}

	n := a.windowSize / 2
	best := 0.0
	for tau := a.minTau - 1; tau <= a.maxTau+1; tau++ {
		var xy, xx, yy float64
		for i := 0; i < n; i++ {
			x, y := float64(window[i]), float64(window[i+tau])
			xy += x * y
			xx += x * x
			yy += y * y
		}
		c := 0.0
		if xx > 0 && yy > 0 {
			c = xy / math.Sqrt(xx*yy)
		}
		a.corr[tau] = c
		if tau >= a.minTau && tau <= a.maxTau && c > best {
			best = c
		}
	}
	if best < a.threshold {
		return 0, nil
	}

	for tau := a.minTau; tau <= a.maxTau; tau++ {
		c := a.corr[tau]
		if c < peakTolerance*best || c < a.corr[tau-1] || c < a.corr[tau+1] {
			continue
		}
		// parabolic interpolation on the negated curve finds the maximum
		neg := []float64{-a.corr[tau-1], -c, -a.corr[tau+1]}
		freq := a.sampleRate / (float64(tau-1) + parabolicInterpolation(neg, 1))
		if freq < a.minFreq || freq > a.maxFreq {
			return 0, nil
		}
		return freq, nil
	}
	return 0, nil
}

// Destroy implements Detector.
func (a *Autocorrelation) Destroy() error {
	a.corr = nil
	return nil
}
