// Package config collects fretwise settings from the environment. Command
// line flags override these values in cmd/fretwise.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/realtime-ai/fretwise/pkg/audio"
	"github.com/realtime-ai/fretwise/pkg/fretboard"
	"github.com/realtime-ai/fretwise/pkg/notemath"
	"github.com/realtime-ai/fretwise/pkg/pitch"
	"github.com/realtime-ai/fretwise/pkg/trace"
)

type Config struct {
	// Audio
	SampleRate int
	WindowSize int

	// Detector
	Algorithm    string
	Threshold    float64
	MinFrequency float64
	MaxFrequency float64
	MinRMS       float64

	// Board
	Key    string
	Tuning string

	// Server
	Addr           string
	AllowedOrigins []string
	MaxSessions    int

	// Tone
	ToneVolume   float64
	ToneDuration time.Duration

	// Tracing
	TraceExporter     string
	TraceOTLPEndpoint string
	TraceSamplingRate float64
	Environment       string
}

// DefaultConfig reads FRETWISE_* variables, falling back to defaults.
func DefaultConfig() *Config {
	res := pitch.DefaultResource()
	return &Config{
		SampleRate: getEnvInt("FRETWISE_SAMPLE_RATE", 48000),
		WindowSize: getEnvInt("FRETWISE_WINDOW_SIZE", audio.DefaultWindowSize),

		Algorithm:    getEnv("FRETWISE_ALGORITHM", res.Algorithm),
		Threshold:    getEnvFloat("FRETWISE_THRESHOLD", res.Threshold),
		MinFrequency: getEnvFloat("FRETWISE_MIN_FREQUENCY", res.MinFrequency),
		MaxFrequency: getEnvFloat("FRETWISE_MAX_FREQUENCY", res.MaxFrequency),
		MinRMS:       getEnvFloat("FRETWISE_MIN_RMS", res.MinRMS),

		Key:    getEnv("FRETWISE_KEY", "C"),
		Tuning: getEnv("FRETWISE_TUNING", fretboard.StandardTuning.Name),

		Addr:           getEnv("FRETWISE_ADDR", ":8080"),
		AllowedOrigins: getEnvList("FRETWISE_ALLOWED_ORIGINS"),
		MaxSessions:    getEnvInt("FRETWISE_MAX_SESSIONS", 64),

		ToneVolume:   getEnvFloat("FRETWISE_TONE_VOLUME", 0.3),
		ToneDuration: getEnvDuration("FRETWISE_TONE_DURATION", 2*time.Second),

		TraceExporter:     getEnv("FRETWISE_TRACE_EXPORTER", trace.ExporterNone),
		TraceOTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		TraceSamplingRate: getEnvFloat("FRETWISE_TRACE_SAMPLING_RATE", 1.0),
		Environment:       getEnv("FRETWISE_ENV", "development"),
	}
}

// Resource assembles the detector resource.
func (c *Config) Resource() pitch.Resource {
	return pitch.Resource{
		Algorithm:    c.Algorithm,
		Threshold:    c.Threshold,
		MinFrequency: c.MinFrequency,
		MaxFrequency: c.MaxFrequency,
		MinRMS:       c.MinRMS,
	}
}

// KeyPitchClass resolves Key, which is a note name ("G", "F#") or a number.
func (c *Config) KeyPitchClass() (notemath.PitchClass, error) {
	if c.Key == "" {
		return 0, fmt.Errorf("key must not be empty")
	}
	if n, err := strconv.Atoi(c.Key); err == nil {
		return notemath.NewPitchClass(n), nil
	}
	return notemath.ParsePitchClass(strings.ToUpper(c.Key[:1]) + c.Key[1:])
}

func (c *Config) BoardTuning() (fretboard.Tuning, error) {
	t, ok := fretboard.TuningByName(c.Tuning)
	if !ok {
		return fretboard.Tuning{}, fmt.Errorf("unknown tuning %q", c.Tuning)
	}
	return t, nil
}

func (c *Config) Trace(serviceVersion string) trace.Config {
	return trace.Config{
		ServiceName:    "fretwise",
		ServiceVersion: serviceVersion,
		Environment:    c.Environment,
		ExporterType:   c.TraceExporter,
		OTLPEndpoint:   c.TraceOTLPEndpoint,
		SamplingRate:   c.TraceSamplingRate,
	}
}

// Validate checks the values flags and environment can get wrong.
func (c *Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %d", c.SampleRate)
	}
	if c.WindowSize <= 0 {
		return fmt.Errorf("window size must be positive, got %d", c.WindowSize)
	}
	if _, err := c.KeyPitchClass(); err != nil {
		return err
	}
	if _, err := c.BoardTuning(); err != nil {
		return err
	}
	if err := c.Resource().IsValid(); err != nil {
		return err
	}
	switch c.TraceExporter {
	case trace.ExporterNone, trace.ExporterStdout, trace.ExporterOTLP:
	default:
		return fmt.Errorf("unknown trace exporter %q", c.TraceExporter)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var out []string
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
