package audio

import (
	"encoding/binary"
	"fmt"
	"math"
)

// S16LEToFloat32 decodes 16-bit little-endian PCM into samples in [-1, 1).
// Interleaved input is downmixed to mono by averaging channels.
func S16LEToFloat32(data []byte, channels int) ([]float32, error) {
	if channels <= 0 {
		return nil, fmt.Errorf("invalid channel count: %d", channels)
	}
	frameBytes := 2 * channels
	if len(data)%frameBytes != 0 {
		return nil, fmt.Errorf("pcm length %d is not a multiple of %d", len(data), frameBytes)
	}

	out := make([]float32, len(data)/frameBytes)
	for i := range out {
		var sum float32
		for c := 0; c < channels; c++ {
			off := i*frameBytes + c*2
			sum += float32(int16(binary.LittleEndian.Uint16(data[off:off+2]))) / 32768
		}
		out[i] = sum / float32(channels)
	}
	return out, nil
}

// F32LEToFloat32 decodes 32-bit float little-endian PCM, downmixing
// interleaved channels to mono.
func F32LEToFloat32(data []byte, channels int) ([]float32, error) {
	if channels <= 0 {
		return nil, fmt.Errorf("invalid channel count: %d", channels)
	}
	frameBytes := 4 * channels
	if len(data)%frameBytes != 0 {
		return nil, fmt.Errorf("pcm length %d is not a multiple of %d", len(data), frameBytes)
	}

	out := make([]float32, len(data)/frameBytes)
	for i := range out {
		var sum float32
		for c := 0; c < channels; c++ {
			off := i*frameBytes + c*4
			sum += math.Float32frombits(binary.LittleEndian.Uint32(data[off : off+4]))
		}
		out[i] = sum / float32(channels)
	}
	return out, nil
}

// Float32ToS16LE encodes mono samples as 16-bit little-endian PCM, clipping
// to [-1, 1].
func Float32ToS16LE(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(floatToS16(s)))
	}
	return out
}

func floatToS16(s float32) int16 {
	if s > 1 {
		s = 1
	} else if s < -1 {
		s = -1
	}
	return int16(s * 32767)
}

// RMS returns the root mean square level of samples.
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}
