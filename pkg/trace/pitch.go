package trace

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentDetectorInit creates a span around detector construction.
func InstrumentDetectorInit(ctx context.Context, algorithm string, sampleRate, windowSize int) (context.Context, trace.Span) {
	return StartSpan(ctx, "detector.init",
		trace.WithAttributes(DetectorAttrs(algorithm, sampleRate, windowSize)...),
	)
}

// InstrumentDetect creates a span around a single detection call.
func InstrumentDetect(ctx context.Context, frameSize int) (context.Context, trace.Span) {
	return StartSpan(ctx, "detector.detect",
		trace.WithAttributes(attribute.Int(AttrAudioFrameSize, frameSize)),
	)
}

// RecordPitch annotates span with a detection result.
func RecordPitch(span trace.Span, frequency float64, note string) {
	span.SetAttributes(
		attribute.Float64(AttrPitchFrequency, frequency),
		attribute.String(AttrPitchNote, note),
	)
}

// InstrumentKeyChange creates a span for a key shift in a session.
func InstrumentKeyChange(ctx context.Context, sessionID string, tonic int) (context.Context, trace.Span) {
	attrs := SessionAttrs(sessionID)
	attrs = append(attrs, attribute.Int(AttrKeyTonic, tonic))
	return StartSpan(ctx, "session.key_change", trace.WithAttributes(attrs...))
}
