package control

import (
	"context"
	"fmt"
	"sync"

	"github.com/realtime-ai/fretwise/pkg/pipeline"
)

// link is the state shared by the two ends.
type link struct {
	toProcessor  chan Message
	toController *pipeline.ClearableChan[Message]

	closeOnce sync.Once
	closed    chan struct{}
}

func (l *link) close() {
	l.closeOnce.Do(func() { close(l.closed) })
}

func (l *link) isClosed() bool {
	select {
	case <-l.closed:
		return true
	default:
		return false
	}
}

// New creates a connected pair of endpoints. bufferSize bounds each
// direction's queue and is raised to 1 if smaller.
func New(bufferSize int) (*ControllerEnd, *ProcessorEnd) {
	if bufferSize < 1 {
		bufferSize = 1
	}
	l := &link{
		toProcessor:  make(chan Message, bufferSize),
		toController: pipeline.NewClearableChan[Message](bufferSize),
		closed:       make(chan struct{}),
	}
	return &ControllerEnd{link: l}, &ProcessorEnd{link: l}
}

// ControllerEnd is held by the controlling context.
type ControllerEnd struct {
	link *link

	mu       sync.Mutex
	initSent bool
	ready    bool
}

// Send delivers msg to the processor, waiting for queue space until ctx is
// done. InitDetector may be sent once.
func (c *ControllerEnd) Send(ctx context.Context, msg Message) error {
	if err := Check(msg, ToProcessor); err != nil {
		return err
	}

	c.mu.Lock()
	if _, ok := msg.(InitDetector); ok {
		if c.initSent {
			c.mu.Unlock()
			return fmt.Errorf("%w: %s", ErrAlreadySent, TagInitDetector)
		}
		c.initSent = true
	}
	c.mu.Unlock()

	if c.link.isClosed() {
		return ErrClosed
	}
	select {
	case c.link.toProcessor <- msg:
		return nil
	case <-c.link.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Recv returns the next processor message. Queued messages are still
// returned after Close; ErrClosed follows once the queue is empty.
func (c *ControllerEnd) Recv(ctx context.Context) (Message, error) {
	select {
	case msg := <-c.link.toController.Chan():
		return c.accept(msg)
	default:
	}

	select {
	case msg := <-c.link.toController.Chan():
		return c.accept(msg)
	case <-c.link.closed:
		select {
		case msg := <-c.link.toController.Chan():
			return c.accept(msg)
		default:
			return nil, ErrClosed
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *ControllerEnd) accept(msg Message) (Message, error) {
	if err := Check(msg, ToController); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	switch msg.(type) {
	case DetectorReady:
		c.ready = true
	case PitchDetected:
		if !c.ready {
			return nil, ErrNotReady
		}
	}
	return msg, nil
}

// Done is closed when either end closes the channel.
func (c *ControllerEnd) Done() <-chan struct{} {
	return c.link.closed
}

// Close closes the channel for both ends.
func (c *ControllerEnd) Close() {
	c.link.close()
}

// ProcessorEnd is held by the audio processing context. None of its
// methods block.
type ProcessorEnd struct {
	link *link

	mu        sync.Mutex
	readySent bool
}

// C delivers controller messages. Pass each one through Accept before
// acting on it.
func (p *ProcessorEnd) C() <-chan Message {
	return p.link.toProcessor
}

// Accept validates a message taken from C.
func (p *ProcessorEnd) Accept(msg Message) (Message, error) {
	if err := Check(msg, ToProcessor); err != nil {
		return nil, err
	}
	return msg, nil
}

// Send queues msg for the controller. PitchDetected is refused until
// DetectorReady has been sent. A full queue drops the message and returns
// ErrDropped.
func (p *ProcessorEnd) Send(msg Message) error {
	if err := Check(msg, ToController); err != nil {
		return err
	}
	if p.link.isClosed() {
		return ErrClosed
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	switch msg.(type) {
	case DetectorReady:
		if p.readySent {
			return fmt.Errorf("%w: %s", ErrAlreadySent, TagDetectorReady)
		}
	case PitchDetected:
		if !p.readySent {
			return ErrNotReady
		}
	}

	if !p.link.toController.Send(msg) {
		return fmt.Errorf("%w: %s", ErrDropped, msg.Tag())
	}
	if _, ok := msg.(DetectorReady); ok {
		p.readySent = true
	}
	return nil
}

// Dropped returns how many messages were discarded on a full queue.
func (p *ProcessorEnd) Dropped() uint64 {
	return p.link.toController.Dropped()
}

// Done is closed when either end closes the channel.
func (p *ProcessorEnd) Done() <-chan struct{} {
	return p.link.closed
}

// Close closes the channel for both ends.
func (p *ProcessorEnd) Close() {
	p.link.close()
}
