package trace

import (
	"context"
	"fmt"

	"github.com/realtime-ai/fretwise/pkg/pipeline"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentElementProcess creates a span for one message handled by an
// element.
func InstrumentElementProcess(ctx context.Context, elementName string, msg *pipeline.PipelineMessage) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String(AttrPipelineElement, elementName),
		attribute.String(AttrSessionID, msg.SessionID),
		attribute.Int(AttrMessageType, int(msg.Type)),
	}
	if msg.Type == pipeline.MsgTypeAudio && msg.AudioData != nil {
		size := len(msg.AudioData.Samples)
		if size == 0 {
			size = len(msg.AudioData.Data)
		}
		attrs = append(attrs, AudioAttrs(
			msg.AudioData.SampleRate,
			msg.AudioData.Channels,
			size,
			msg.AudioData.MediaType.String(),
		)...)
	}

	return StartSpan(ctx, fmt.Sprintf("element.%s.process", elementName), trace.WithAttributes(attrs...))
}

// StartPipeline starts p inside a pipeline start span.
func StartPipeline(ctx context.Context, p *pipeline.Pipeline) error {
	return WithSpan(ctx, fmt.Sprintf("pipeline.%s.start", p.Name()), p.Start,
		trace.WithAttributes(attribute.String(AttrPipelineName, p.Name())))
}

// StopPipeline stops p inside a pipeline stop span.
func StopPipeline(ctx context.Context, p *pipeline.Pipeline) error {
	return WithSpan(ctx, fmt.Sprintf("pipeline.%s.stop", p.Name()), func(context.Context) error {
		return p.Stop()
	}, trace.WithAttributes(attribute.String(AttrPipelineName, p.Name())))
}
