package pipeline

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

type AudioData struct {
	// Data holds encoded PCM as described by MediaType.
	Data []byte
	// Samples holds mono float32 samples when MediaType is
	// AudioMediaTypeSamples.
	Samples    []float32
	SampleRate int
	Channels   int
	MediaType  AudioMediaType
	Timestamp  time.Time
}

type PipelineMessageType int

const (
	MsgTypeAudio PipelineMessageType = iota
)

type PipelineMessage struct {
	Type PipelineMessageType

	SessionID string
	Timestamp time.Time

	AudioData *AudioData
}

func (p *PipelineMessage) String() string {
	return fmt.Sprintf("PipelineMessage{Type: %d, SessionID: %s, Timestamp: %s}", p.Type, p.SessionID, p.Timestamp)
}

type Pipeline struct {
	sync.Mutex
	name     string
	bus      Bus
	elements []Element
}

func NewPipeline(name string) *Pipeline {
	return &Pipeline{
		name:     name,
		bus:      NewEventBus(),
		elements: []Element{},
	}
}

func (p *Pipeline) Name() string {
	return p.name
}

func (p *Pipeline) AddElement(element Element) {
	p.Lock()
	defer p.Unlock()
	element.SetBus(p.bus)
	p.elements = append(p.elements, element)
}

func (p *Pipeline) Bus() Bus {
	return p.bus
}

// Push hands msg to the first element without blocking. A full input drops
// the message; the audio path never waits.
func (p *Pipeline) Push(msg *PipelineMessage) bool {
	p.Lock()
	if len(p.elements) == 0 {
		p.Unlock()
		return false
	}
	first := p.elements[0]
	p.Unlock()

	select {
	case first.In() <- msg:
		return true
	default:
		log.Printf("[Pipeline] %s input is full, dropping %s", p.name, msg)
		return false
	}
}

func (p *Pipeline) Start(ctx context.Context) error {
	p.Lock()
	elements := append([]Element(nil), p.elements...)
	p.Unlock()

	for _, e := range elements {
		if err := e.Init(ctx); err != nil {
			return fmt.Errorf("init %s: %w", e.GetName(), err)
		}
	}
	if err := p.bus.Start(ctx); err != nil {
		return err
	}
	for _, e := range elements {
		if err := e.Start(ctx); err != nil {
			return fmt.Errorf("start %s: %w", e.GetName(), err)
		}
	}
	return nil
}

// Stop stops elements in reverse order, then the bus.
func (p *Pipeline) Stop() error {
	p.Lock()
	defer p.Unlock()
	var firstErr error
	for i := len(p.elements) - 1; i >= 0; i-- {
		if err := p.elements[i].Stop(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("stop %s: %w", p.elements[i].GetName(), err)
		}
	}
	p.bus.Stop()
	return firstErr
}
