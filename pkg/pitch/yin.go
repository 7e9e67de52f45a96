package pitch

import (
	"fmt"
	"math"
)

// YIN implements the YIN fundamental frequency estimator
// (de Cheveigné & Kawahara, 2002) over a fixed window size.
type YIN struct {
	sampleRate float64
	threshold  float64
	minFreq    float64
	maxFreq    float64
	minRMS     float64

	windowSize int
	minTau     int
	maxTau     int
	integrate  int // samples summed per lag

	buf []float64 // difference, then cumulative mean normalised difference

	probability float64
}

// NewYIN sizes a YIN detector for windowSize samples at sampleRate.
func NewYIN(res Resource, sampleRate, windowSize int) (*YIN, error) {
	minTau, maxTau, err := lagRange(res, sampleRate, windowSize)
	if err != nil {
		return nil, err
	}

	return &YIN{
		sampleRate: float64(sampleRate),
		threshold:  res.Threshold,
		minFreq:    res.MinFrequency,
		maxFreq:    res.MaxFrequency,
		minRMS:     res.MinRMS,
		windowSize: windowSize,
		minTau:     minTau,
		maxTau:     maxTau,
		integrate:  windowSize / 2, // lagRange keeps maxTau+1 inside the other half
		buf:        make([]float64, maxTau+2),
	}, nil
}

// Detect implements Detector.
func (y *YIN) Detect(window []float32) (float64, error) {
	if len(window) != y.windowSize {
		return 0, fmt.Errorf("window has %d samples, detector expects %d", len(window), y.windowSize)
	}
	y.probability = 0
	if rms(window) < y.minRMS {
		return 0, nil
	}

	y.difference(window)
	y.cumulativeMeanNormalizedDifference()

	tau := y.absoluteThreshold()
	if tau < 0 {
		return 0, nil
	}

	freq := y.sampleRate / parabolicInterpolation(y.buf, tau)
	if freq < y.minFreq || freq > y.maxFreq {
		return 0, nil
	}
	return freq, nil
}

// Probability returns the confidence of the last detected pitch in [0,1].
func (y *YIN) Probability() float64 {
	return y.probability
}

// Destroy implements Detector.
func (y *YIN) Destroy() error {
	y.buf = nil
	return nil
}

// difference computes the squared difference of the signal with a shifted
// copy of itself for every lag up to maxTau+1.
func (y *YIN) difference(x []float32) {
	for tau := range y.buf {
		var sum float64
		for i := 0; i < y.integrate; i++ {
			d := float64(x[i]) - float64(x[i+tau])
			sum += d * d
		}
		y.buf[tau] = sum
	}
}

func (y *YIN) cumulativeMeanNormalizedDifference() {
	running := 0.0
	y.buf[0] = 1
	for tau := 1; tau < len(y.buf); tau++ {
		running += y.buf[tau]
		if running == 0 {
			y.buf[tau] = 1
			continue
		}
		y.buf[tau] *= float64(tau) / running
	}
}

// absoluteThreshold returns the first lag whose normalised difference dips
// under the threshold, advanced to the bottom of that dip, or -1.
func (y *YIN) absoluteThreshold() int {
	for tau := y.minTau; tau <= y.maxTau; tau++ {
		if y.buf[tau] >= y.threshold {
			continue
		}
		for tau+1 <= y.maxTau && y.buf[tau+1] < y.buf[tau] {
			tau++
		}
		y.probability = 1 - y.buf[tau]
		return tau
	}
	return -1
}

// lagRange converts the frequency bounds into lag bounds for the window.
func lagRange(res Resource, sampleRate, windowSize int) (int, int, error) {
	if err := res.IsValid(); err != nil {
		return 0, 0, err
	}
	minTau := int(math.Floor(float64(sampleRate) / res.MaxFrequency))
	if minTau < 2 {
		minTau = 2
	}
	maxTau := int(math.Ceil(float64(sampleRate) / res.MinFrequency))
	if maxTau+2 > windowSize/2 {
		return 0, 0, fmt.Errorf("window of %d samples too short for %.1f Hz at %d Hz",
			windowSize, res.MinFrequency, sampleRate)
	}
	return minTau, maxTau, nil
}

// parabolicInterpolation refines an integer lag using its neighbours.
func parabolicInterpolation(buf []float64, tau int) float64 {
	if tau <= 0 || tau+1 >= len(buf) {
		return float64(tau)
	}
	s0, s1, s2 := buf[tau-1], buf[tau], buf[tau+1]
	denom := 2 * (2*s1 - s2 - s0)
	if denom == 0 {
		return float64(tau)
	}
	return float64(tau) + (s2-s0)/denom
}

func rms(x []float32) float64 {
	if len(x) == 0 {
		return 0
	}
	var sum float64
	for _, s := range x {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(x)))
}
