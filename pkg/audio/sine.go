package audio

import "math"

// SineWave is a phase-continuous sine oscillator.
type SineWave struct {
	sampleRate float64
	frequency  float64
	amplitude  float64
	phase      float64 // in cycles, [0,1)
}

// NewSineWave creates an oscillator at frequency Hz.
func NewSineWave(sampleRate int, frequency, amplitude float64) *SineWave {
	return &SineWave{
		sampleRate: float64(sampleRate),
		frequency:  frequency,
		amplitude:  amplitude,
	}
}

// Read fills buf with the next samples. Consecutive calls continue the
// waveform without discontinuity.
func (s *SineWave) Read(buf []float32) {
	step := s.frequency / s.sampleRate
	for i := range buf {
		buf[i] = float32(s.amplitude * math.Sin(2*math.Pi*s.phase))
		s.phase += step
		if s.phase >= 1 {
			s.phase -= math.Floor(s.phase)
		}
	}
}

// Generate returns the next n samples.
func (s *SineWave) Generate(n int) []float32 {
	buf := make([]float32, n)
	s.Read(buf)
	return buf
}

// SetFrequency changes pitch without resetting phase.
func (s *SineWave) SetFrequency(frequency float64) {
	s.frequency = frequency
}
