package pitch

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testRate   = 48000
	testWindow = 5120
)

func sine(freq, amp float64, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(amp * math.Sin(2*math.Pi*freq*float64(i)/testRate))
	}
	return out
}

func TestDetectorsOnSineWaves(t *testing.T) {
	for _, algo := range []string{AlgorithmYIN, AlgorithmAutocorrelation} {
		t.Run(algo, func(t *testing.T) {
			res := DefaultResource()
			res.Algorithm = algo
			det, err := DefaultFactory(context.Background(), res, testRate, testWindow)
			require.NoError(t, err)
			defer det.Destroy()

			for _, freq := range []float64{82.41, 110, 196, 220, 440, 659.25} {
				got, err := det.Detect(sine(freq, 0.5, testWindow))
				require.NoError(t, err)
				assert.InEpsilon(t, freq, got, 0.01, "freq %v", freq)
			}
		})
	}
}

func TestDetectorsReportSilenceAsZero(t *testing.T) {
	for _, algo := range []string{AlgorithmYIN, AlgorithmAutocorrelation} {
		t.Run(algo, func(t *testing.T) {
			res := DefaultResource()
			res.Algorithm = algo
			det, err := DefaultFactory(context.Background(), res, testRate, testWindow)
			require.NoError(t, err)

			got, err := det.Detect(make([]float32, testWindow))
			require.NoError(t, err)
			assert.Equal(t, 0.0, got)

			got, err = det.Detect(sine(440, 0.001, testWindow))
			require.NoError(t, err)
			assert.Equal(t, 0.0, got, "below the RMS gate")
		})
	}
}

func TestDetectRejectsWrongWindowSize(t *testing.T) {
	det, err := NewYIN(DefaultResource(), testRate, testWindow)
	require.NoError(t, err)

	_, err = det.Detect(make([]float32, 1024))
	assert.Error(t, err)
}

func TestYINProbability(t *testing.T) {
	det, err := NewYIN(DefaultResource(), testRate, testWindow)
	require.NoError(t, err)

	_, err = det.Detect(sine(220, 0.5, testWindow))
	require.NoError(t, err)
	assert.Greater(t, det.Probability(), 0.85)

	_, err = det.Detect(make([]float32, testWindow))
	require.NoError(t, err)
	assert.Equal(t, 0.0, det.Probability())
}

func TestWindowTooShortForRange(t *testing.T) {
	_, err := NewYIN(DefaultResource(), testRate, 1024)
	assert.Error(t, err)

	_, err = NewAutocorrelation(DefaultResource(), testRate, 1024)
	assert.Error(t, err)
}

func TestDefaultFactory(t *testing.T) {
	t.Run("unknown algorithm", func(t *testing.T) {
		res := DefaultResource()
		res.Algorithm = "crepe"
		_, err := DefaultFactory(context.Background(), res, testRate, testWindow)
		assert.True(t, errors.Is(err, ErrUnknownAlgorithm))
	})

	t.Run("invalid size", func(t *testing.T) {
		_, err := DefaultFactory(context.Background(), DefaultResource(), 0, testWindow)
		assert.Error(t, err)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := DefaultFactory(ctx, DefaultResource(), testRate, testWindow)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestResourceEncoding(t *testing.T) {
	res := DefaultResource()
	res.Algorithm = AlgorithmAutocorrelation
	res.Threshold = 0.8

	data, err := EncodeResource(res)
	require.NoError(t, err)

	got, err := DecodeResource(data)
	require.NoError(t, err)
	assert.Equal(t, res, got)
}

func TestDecodeResource(t *testing.T) {
	t.Run("missing fields take defaults", func(t *testing.T) {
		got, err := DecodeResource([]byte(`{"algorithm":"autocorrelation"}`))
		require.NoError(t, err)
		assert.Equal(t, AlgorithmAutocorrelation, got.Algorithm)
		assert.Equal(t, DefaultResource().MinFrequency, got.MinFrequency)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := DecodeResource(nil)
		assert.ErrorIs(t, err, ErrInvalidResource)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := DecodeResource([]byte{0xde, 0xad})
		assert.ErrorIs(t, err, ErrInvalidResource)
	})

	t.Run("bad range", func(t *testing.T) {
		_, err := DecodeResource([]byte(`{"min_frequency":500,"max_frequency":100}`))
		assert.ErrorIs(t, err, ErrInvalidResource)
	})

	t.Run("unknown algorithm", func(t *testing.T) {
		_, err := DecodeResource([]byte(`{"algorithm":"fft"}`))
		assert.ErrorIs(t, err, ErrUnknownAlgorithm)
	})
}

func TestEncodeResourceValidates(t *testing.T) {
	res := DefaultResource()
	res.Threshold = 2
	_, err := EncodeResource(res)
	assert.ErrorIs(t, err, ErrInvalidResource)
}
