package control

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Envelope is the wire form of a message.
type Envelope struct {
	Version int             `json:"version"`
	ID      string          `json:"id"`
	Type    Tag             `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Encode validates msg and wraps it in a versioned envelope.
func Encode(msg Message) ([]byte, error) {
	if msg == nil {
		return nil, fmt.Errorf("%w: nil", ErrInvalidMessage)
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}

	var payload json.RawMessage
	switch m := msg.(type) {
	case InitDetector, PitchDetected, DetectorError:
		b, err := json.Marshal(m)
		if err != nil {
			return nil, err
		}
		payload = b
	case Shutdown, DetectorReady:
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownTag, msg)
	}

	return json.Marshal(Envelope{
		Version: Version,
		ID:      uuid.NewString(),
		Type:    msg.Tag(),
		Payload: payload,
	})
}

// Decode parses an envelope and returns the validated message.
func Decode(data []byte) (Message, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if env.Version != Version {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, env.Version)
	}

	var msg Message
	switch env.Type {
	case TagInitDetector:
		var m InitDetector
		if err := unmarshalPayload(env.Payload, &m); err != nil {
			return nil, err
		}
		msg = m
	case TagShutdown:
		msg = Shutdown{}
	case TagDetectorReady:
		msg = DetectorReady{}
	case TagPitchDetected:
		var m PitchDetected
		if err := unmarshalPayload(env.Payload, &m); err != nil {
			return nil, err
		}
		msg = m
	case TagDetectorError:
		var m DetectorError
		if err := unmarshalPayload(env.Payload, &m); err != nil {
			return nil, err
		}
		msg = m
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTag, env.Type)
	}

	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return msg, nil
}

func unmarshalPayload(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 {
		return fmt.Errorf("%w: missing payload", ErrInvalidMessage)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	return nil
}
