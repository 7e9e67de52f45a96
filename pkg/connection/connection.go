// Package connection delivers audio from a source (the local microphone or
// a remote client) to the pitch pipeline.
package connection

import (
	"github.com/realtime-ai/fretwise/pkg/pipeline"
)

// ConnectionState represents the state of a connection.
type ConnectionState int

const (
	// ConnectionStateNew - created, not yet started
	ConnectionStateNew ConnectionState = iota
	// ConnectionStateConnecting - device or peer is being opened
	ConnectionStateConnecting
	// ConnectionStateConnected - frames are flowing
	ConnectionStateConnected
	// ConnectionStatePaused - open, but frames are not delivered
	ConnectionStatePaused
	// ConnectionStateFailed - could not be opened
	ConnectionStateFailed
	// ConnectionStateClosed - released by the owner
	ConnectionStateClosed
)

func (s ConnectionState) String() string {
	switch s {
	case ConnectionStateNew:
		return "new"
	case ConnectionStateConnecting:
		return "connecting"
	case ConnectionStateConnected:
		return "connected"
	case ConnectionStatePaused:
		return "paused"
	case ConnectionStateFailed:
		return "failed"
	case ConnectionStateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ConnectionEventHandler handles connection lifecycle events.
type ConnectionEventHandler interface {
	// OnConnectionStateChange is called when the connection state changes.
	OnConnectionStateChange(state ConnectionState)

	// OnMessage is called for every captured audio frame. The message owns
	// its buffers.
	OnMessage(msg *pipeline.PipelineMessage)

	// OnError is called when an error occurs.
	OnError(err error)
}

// NoOpConnectionEventHandler is a no-op implementation for convenience.
type NoOpConnectionEventHandler struct{}

func (h *NoOpConnectionEventHandler) OnConnectionStateChange(state ConnectionState) {}
func (h *NoOpConnectionEventHandler) OnMessage(msg *pipeline.PipelineMessage)       {}
func (h *NoOpConnectionEventHandler) OnError(err error)                             {}

// FuncHandler adapts plain funcs to ConnectionEventHandler. Nil fields are
// skipped.
type FuncHandler struct {
	StateChange func(ConnectionState)
	Message     func(*pipeline.PipelineMessage)
	Error       func(error)
}

func (h FuncHandler) OnConnectionStateChange(state ConnectionState) {
	if h.StateChange != nil {
		h.StateChange(state)
	}
}

func (h FuncHandler) OnMessage(msg *pipeline.PipelineMessage) {
	if h.Message != nil {
		h.Message(msg)
	}
}

func (h FuncHandler) OnError(err error) {
	if h.Error != nil {
		h.Error(err)
	}
}

// Connection is an audio source feeding one session.
type Connection interface {
	// PeerID returns the unique identifier for this connection.
	PeerID() string

	// RegisterEventHandler registers an event handler for connection events.
	RegisterEventHandler(handler ConnectionEventHandler)

	// SampleRate is the rate of the delivered frames.
	SampleRate() int

	// Close closes the connection and releases resources.
	Close() error
}
