package trace

import (
	"go.opentelemetry.io/otel/attribute"
)

const (
	AttrPipelineName    = "pipeline.name"
	AttrPipelineElement = "pipeline.element"
	AttrSessionID       = "session.id"
	AttrMessageType     = "message.type"

	AttrAudioSampleRate = "audio.sample_rate"
	AttrAudioChannels   = "audio.channels"
	AttrAudioMediaType  = "audio.media_type"
	AttrAudioFrameSize  = "audio.frame_size"

	AttrDetectorAlgorithm  = "detector.algorithm"
	AttrDetectorWindowSize = "detector.window_size"
	AttrDetectorState      = "detector.state"

	AttrPitchFrequency = "pitch.frequency"
	AttrPitchNote      = "pitch.note"

	AttrKeyTonic = "key.tonic"

	AttrConnectionID    = "connection.id"
	AttrConnectionType  = "connection.type"
	AttrConnectionState = "connection.state"

	AttrErrorType    = "error.type"
	AttrErrorMessage = "error.message"
)

func SessionAttrs(sessionID string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrSessionID, sessionID),
	}
}

// AudioAttrs describes one audio frame.
func AudioAttrs(sampleRate, channels, frameSize int, mediaType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(AttrAudioSampleRate, sampleRate),
		attribute.Int(AttrAudioChannels, channels),
		attribute.Int(AttrAudioFrameSize, frameSize),
		attribute.String(AttrAudioMediaType, mediaType),
	}
}

// DetectorAttrs describes a detector configuration.
func DetectorAttrs(algorithm string, sampleRate, windowSize int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrDetectorAlgorithm, algorithm),
		attribute.Int(AttrAudioSampleRate, sampleRate),
		attribute.Int(AttrDetectorWindowSize, windowSize),
	}
}

func ConnectionAttrs(connID, connType, state string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrConnectionID, connID),
		attribute.String(AttrConnectionType, connType),
		attribute.String(AttrConnectionState, state),
	}
}

func ErrorAttrs(errType, errMsg string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrErrorType, errType),
		attribute.String(AttrErrorMessage, errMsg),
	}
}
