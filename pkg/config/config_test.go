package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/realtime-ai/fretwise/pkg/fretboard"
	"github.com/realtime-ai/fretwise/pkg/notemath"
	"github.com/realtime-ai/fretwise/pkg/pitch"
	"github.com/realtime-ai/fretwise/pkg/trace"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 48000, cfg.SampleRate)
	assert.Equal(t, 5120, cfg.WindowSize)
	assert.Equal(t, pitch.DefaultResource(), cfg.Resource())
	assert.Equal(t, trace.ExporterNone, cfg.TraceExporter)
	require.NoError(t, cfg.Validate())

	key, err := cfg.KeyPitchClass()
	require.NoError(t, err)
	assert.Equal(t, notemath.PitchClass(7), key)
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("FRETWISE_SAMPLE_RATE", "44100")
	t.Setenv("FRETWISE_WINDOW_SIZE", "4096")
	t.Setenv("FRETWISE_ALGORITHM", pitch.AlgorithmAutocorrelation)
	t.Setenv("FRETWISE_KEY", "f#")
	t.Setenv("FRETWISE_TUNING", "drop-d")
	t.Setenv("FRETWISE_ALLOWED_ORIGINS", "http://a.test, http://b.test,")
	t.Setenv("FRETWISE_TONE_DURATION", "500ms")
	t.Setenv("FRETWISE_MAX_SESSIONS", "not-a-number")

	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 44100, cfg.SampleRate)
	assert.Equal(t, 4096, cfg.WindowSize)
	assert.Equal(t, pitch.AlgorithmAutocorrelation, cfg.Resource().Algorithm)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.AllowedOrigins)
	assert.Equal(t, 500*time.Millisecond, cfg.ToneDuration)
	assert.Equal(t, 64, cfg.MaxSessions, "unparsable values fall back to the default")

	key, err := cfg.KeyPitchClass()
	require.NoError(t, err)
	assert.Equal(t, notemath.PitchClass(1), key)

	tuning, err := cfg.BoardTuning()
	require.NoError(t, err)
	assert.Equal(t, fretboard.DropDTuning, tuning)
}

func TestKeyAsNumber(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Key = "14"
	key, err := cfg.KeyPitchClass()
	require.NoError(t, err)
	assert.Equal(t, notemath.PitchClass(2), key)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"sample rate", func(c *Config) { c.SampleRate = 0 }},
		{"window", func(c *Config) { c.WindowSize = -1 }},
		{"empty key", func(c *Config) { c.Key = "" }},
		{"bad key", func(c *Config) { c.Key = "H" }},
		{"tuning", func(c *Config) { c.Tuning = "open-g" }},
		{"algorithm", func(c *Config) { c.Algorithm = "fft" }},
		{"threshold", func(c *Config) { c.Threshold = 1.5 }},
		{"exporter", func(c *Config) { c.TraceExporter = "jaeger" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestTraceConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TraceExporter = trace.ExporterStdout
	tc := cfg.Trace("v1.2.3")
	assert.Equal(t, "fretwise", tc.ServiceName)
	assert.Equal(t, "v1.2.3", tc.ServiceVersion)
	assert.Equal(t, trace.ExporterStdout, tc.ExporterType)
}
