package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMuLawEncodeDecode(t *testing.T) {
	for _, original := range []int16{0, 100, 1000, 10000, 32000, -100, -1000, -10000, -32000} {
		decoded := MuLawDecode(MuLawEncode(original))

		// quantization step grows with magnitude
		maxErr := float64(original) * 0.05
		if maxErr < 0 {
			maxErr = -maxErr
		}
		if maxErr < 200 {
			maxErr = 200
		}
		assert.InDelta(t, float64(original), float64(decoded), maxErr, "sample %d", original)
	}
}

func TestMuLawSilence(t *testing.T) {
	assert.Equal(t, byte(0xFF), MuLawEncode(0))
	assert.Equal(t, int16(0), MuLawDecode(0xFF))
}

func TestMuLawToFloat32(t *testing.T) {
	in := []float32{0, 0.25, -0.25, 0.9, -0.9}
	out := MuLawToFloat32(Float32ToMuLaw(in))
	require.Len(t, out, len(in))
	for i := range in {
		assert.InDelta(t, in[i], out[i], 0.05, "sample %d", i)
	}
}
