package server

import (
	"context"
)

// SessionEventHandler observes sessions hosted by the server.
type SessionEventHandler interface {
	// OnSessionCreated is called once a session is registered.
	OnSessionCreated(ctx context.Context, sessionID string, kind SessionKind)

	// OnSessionClosed is called after a session has been torn down.
	OnSessionClosed(ctx context.Context, sessionID string, kind SessionKind)

	// OnSessionError is called when a connection or its session fails.
	OnSessionError(ctx context.Context, sessionID string, err error)
}

// NoOpSessionEventHandler ignores every event.
type NoOpSessionEventHandler struct{}

func (h *NoOpSessionEventHandler) OnSessionCreated(ctx context.Context, sessionID string, kind SessionKind) {
}

func (h *NoOpSessionEventHandler) OnSessionClosed(ctx context.Context, sessionID string, kind SessionKind) {
}

func (h *NoOpSessionEventHandler) OnSessionError(ctx context.Context, sessionID string, err error) {
}
