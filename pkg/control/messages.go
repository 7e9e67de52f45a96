// Package control is the message protocol between the controlling context
// (session, UI) and the audio processing context (pitch element).
//
// The two sides share no memory. They exchange a closed set of message
// variants, each validated on send and again on receive:
//
//	controller → processor: InitDetector, Shutdown
//	processor → controller: DetectorReady, PitchDetected, DetectorError
package control

import (
	"errors"
	"fmt"
	"math"
)

// Version is the protocol version carried by every encoded message.
const Version = 1

// Tag identifies a message variant.
type Tag string

const (
	TagInitDetector  Tag = "init_detector"
	TagShutdown      Tag = "shutdown"
	TagDetectorReady Tag = "detector_ready"
	TagPitchDetected Tag = "pitch_detected"
	TagDetectorError Tag = "detector_error"
)

// Direction is the way a message travels.
type Direction int

const (
	ToProcessor Direction = iota
	ToController
)

func (d Direction) String() string {
	if d == ToProcessor {
		return "controller→processor"
	}
	return "processor→controller"
}

var (
	ErrInvalidMessage     = errors.New("invalid control message")
	ErrWrongDirection     = errors.New("control message sent in the wrong direction")
	ErrUnknownTag         = errors.New("unknown control message tag")
	ErrUnsupportedVersion = errors.New("unsupported control protocol version")
	ErrNotReady           = errors.New("pitch reported before detector ready")
	ErrAlreadySent        = errors.New("message may only be sent once per session")
	ErrClosed             = errors.New("control channel closed")
	ErrDropped            = errors.New("controller queue full, message dropped")
)

// Message is implemented only by the variants in this package.
type Message interface {
	Tag() Tag
	Direction() Direction
	Validate() error
	sealed()
}

// InitDetector asks the processor to build its detector.
type InitDetector struct {
	EncodedDetectorResource []byte `json:"encoded_detector_resource"`
	WindowSize              int    `json:"window_size"`
	SampleRate              int    `json:"sample_rate"`
}

func (InitDetector) Tag() Tag             { return TagInitDetector }
func (InitDetector) Direction() Direction { return ToProcessor }
func (InitDetector) sealed()              {}

func (m InitDetector) Validate() error {
	if len(m.EncodedDetectorResource) == 0 {
		return fmt.Errorf("%w: init_detector without a detector resource", ErrInvalidMessage)
	}
	if m.WindowSize <= 0 {
		return fmt.Errorf("%w: window_size %d", ErrInvalidMessage, m.WindowSize)
	}
	if m.SampleRate <= 0 {
		return fmt.Errorf("%w: sample_rate %d", ErrInvalidMessage, m.SampleRate)
	}
	return nil
}

// Shutdown asks the processor to dispose its detector.
type Shutdown struct{}

func (Shutdown) Tag() Tag             { return TagShutdown }
func (Shutdown) Direction() Direction { return ToProcessor }
func (Shutdown) Validate() error      { return nil }
func (Shutdown) sealed()              {}

// DetectorReady reports that the detector was built.
type DetectorReady struct{}

func (DetectorReady) Tag() Tag             { return TagDetectorReady }
func (DetectorReady) Direction() Direction { return ToController }
func (DetectorReady) Validate() error      { return nil }
func (DetectorReady) sealed()              {}

// PitchDetected carries one confident detection in Hz.
type PitchDetected struct {
	Frequency float64 `json:"frequency"`
}

func (PitchDetected) Tag() Tag             { return TagPitchDetected }
func (PitchDetected) Direction() Direction { return ToController }
func (PitchDetected) sealed()              {}

func (m PitchDetected) Validate() error {
	if !(m.Frequency > 0) || math.IsInf(m.Frequency, 0) {
		return fmt.Errorf("%w: frequency %v", ErrInvalidMessage, m.Frequency)
	}
	return nil
}

// DetectorError reports a processor failure. Fatal errors end pitch
// tracking for the session.
type DetectorError struct {
	Message string `json:"message"`
	Fatal   bool   `json:"fatal"`
}

func (DetectorError) Tag() Tag             { return TagDetectorError }
func (DetectorError) Direction() Direction { return ToController }
func (DetectorError) sealed()              {}

func (m DetectorError) Validate() error {
	if m.Message == "" {
		return fmt.Errorf("%w: detector_error without a message", ErrInvalidMessage)
	}
	return nil
}

// Check validates msg and its direction.
func Check(msg Message, dir Direction) error {
	if msg == nil {
		return fmt.Errorf("%w: nil", ErrInvalidMessage)
	}
	if msg.Direction() != dir {
		return fmt.Errorf("%w: %s travels %s", ErrWrongDirection, msg.Tag(), msg.Direction())
	}
	return msg.Validate()
}
