package server

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/realtime-ai/fretwise/pkg/session"
)

// Client message types.
const (
	MsgKeyShift     = "key.shift"
	MsgKeySet       = "key.set"
	MsgHistoryClear = "history.clear"
)

// Server message types.
const (
	MsgSnapshot = "snapshot"
	MsgError    = "error"
)

var ErrUnknownClientMessage = errors.New("unknown client message")

// ClientMessage is a text frame sent by a viewer.
type ClientMessage struct {
	Type  string `json:"type"`
	Delta int    `json:"delta,omitempty"`
	Key   *int   `json:"key,omitempty"`
}

// ServerMessage is a text frame sent to a viewer.
type ServerMessage struct {
	Type     string            `json:"type"`
	Snapshot *session.Snapshot `json:"snapshot,omitempty"`
	Code     string            `json:"code,omitempty"`
	Error    string            `json:"error,omitempty"`
}

func parseClientMessage(data []byte) (ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return msg, fmt.Errorf("invalid client message: %w", err)
	}
	switch msg.Type {
	case MsgKeyShift:
		if msg.Delta == 0 {
			return msg, fmt.Errorf("%s needs a non-zero delta", MsgKeyShift)
		}
	case MsgKeySet:
		if msg.Key == nil {
			return msg, fmt.Errorf("%s needs a key", MsgKeySet)
		}
	case MsgHistoryClear:
	default:
		return msg, fmt.Errorf("%w: %q", ErrUnknownClientMessage, msg.Type)
	}
	return msg, nil
}

func snapshotMessage(snap session.Snapshot) ServerMessage {
	return ServerMessage{Type: MsgSnapshot, Snapshot: &snap}
}

func errorMessage(code string, err error) ServerMessage {
	return ServerMessage{Type: MsgError, Code: code, Error: err.Error()}
}
