package server

import (
	"time"

	"github.com/realtime-ai/fretwise/pkg/audio"
	"github.com/realtime-ai/fretwise/pkg/fretboard"
	"github.com/realtime-ai/fretwise/pkg/notemath"
	"github.com/realtime-ai/fretwise/pkg/pitch"
	"github.com/realtime-ai/fretwise/pkg/session"
)

// Config holds the configuration for the fretwise server.
type Config struct {
	// Addr is the address to listen on (e.g., ":8080").
	Addr string

	// AllowedOrigins for CORS and the WebSocket origin check. Empty allows
	// every origin.
	AllowedOrigins []string

	// MaxSessions limits concurrently hosted sessions. 0 means no limit.
	MaxSessions int

	// Key and Tuning of newly created sessions.
	Key    notemath.PitchClass
	Tuning fretboard.Tuning

	// SampleRate and WindowSize used by audio sessions whose client does
	// not pass rate or window.
	SampleRate int
	WindowSize int

	// Resource is the detector resource for audio and processor sessions.
	Resource pitch.Resource

	// Factory builds detectors for audio sessions.
	Factory pitch.Factory

	// SnapshotDebounce coalesces bursts of snapshots per client. 0 sends
	// every snapshot.
	SnapshotDebounce time.Duration

	// ControlBuffer is the control channel depth per session.
	ControlBuffer int

	// WriteTimeout bounds a single WebSocket write.
	WriteTimeout time.Duration

	// ReadBufferSize is the WebSocket read buffer size.
	ReadBufferSize int

	// WriteBufferSize is the WebSocket write buffer size.
	WriteBufferSize int
}

// DefaultConfig returns the default server configuration.
func DefaultConfig() *Config {
	return &Config{
		Addr:             ":8080",
		MaxSessions:      64,
		Key:              session.DefaultKey,
		Tuning:           fretboard.StandardTuning,
		SampleRate:       48000,
		WindowSize:       audio.DefaultWindowSize,
		Resource:         pitch.DefaultResource(),
		Factory:          pitch.DefaultFactory,
		SnapshotDebounce: 15 * time.Millisecond,
		ControlBuffer:    32,
		WriteTimeout:     5 * time.Second,
		ReadBufferSize:   8192,
		WriteBufferSize:  8192,
	}
}

func (c *Config) sessionConfig(id string) session.Config {
	cfg := session.DefaultConfig()
	cfg.ID = id
	cfg.Key = c.Key
	if c.Tuning.Name != "" {
		cfg.Tuning = c.Tuning
	}
	if c.Resource.Algorithm != "" {
		cfg.Resource = c.Resource
	}
	return cfg
}
