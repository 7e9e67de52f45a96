package pipeline

import (
	"context"
	"log"
	"sync"
	"time"
)

type EventType int

const (
	// EventDetectorReady is published once the pitch detector is built.
	EventDetectorReady EventType = iota
	// EventDetectorError carries a fatal detector construction failure.
	EventDetectorError
	// EventPitchDetected carries a PitchPayload for every confident frame.
	EventPitchDetected
	// EventFrameError reports a non-fatal failure on a single frame.
	EventFrameError
	// EventDisposed is published when the detector has been released.
	EventDisposed
)

func (t EventType) String() string {
	switch t {
	case EventDetectorReady:
		return "detector.ready"
	case EventDetectorError:
		return "detector.error"
	case EventPitchDetected:
		return "pitch.detected"
	case EventFrameError:
		return "frame.error"
	case EventDisposed:
		return "detector.disposed"
	default:
		return "unknown"
	}
}

type Event struct {
	Type      EventType
	Timestamp time.Time
	Payload   interface{}
}

// Bus fans events out to subscribers. Publish never blocks: a subscriber
// whose channel is full misses the event.
type Bus interface {
	Subscribe(eventType EventType, ch chan<- Event)
	Unsubscribe(eventType EventType, ch chan<- Event)
	// Publish reports whether every subscriber received the event.
	Publish(evt Event) bool
	Start(ctx context.Context) error
	Stop()
}

type EventBus struct {
	mu          sync.RWMutex
	subscribers map[EventType][]chan<- Event
	stopped     bool
	cancel      context.CancelFunc
	generation  int
}

func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[EventType][]chan<- Event),
	}
}

func (b *EventBus) Subscribe(eventType EventType, ch chan<- Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], ch)
}

func (b *EventBus) Unsubscribe(eventType EventType, ch chan<- Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subscribers[eventType]
	for i, sub := range subs {
		if sub == ch {
			b.subscribers[eventType] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}

func (b *EventBus) Publish(evt Event) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.stopped {
		return false
	}
	subs := b.subscribers[evt.Type]
	if len(subs) == 0 {
		return false
	}

	delivered := true
	for _, ch := range subs {
		select {
		case ch <- evt:
		default:
			log.Printf("[EventBus] subscriber full, dropping %s event", evt.Type)
			delivered = false
		}
	}
	return delivered
}

// Start marks the bus running until Stop is called or ctx is done.
// Calling Start on a running bus is a no-op.
func (b *EventBus) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancel != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	b.stopped = false
	b.generation++
	gen := b.generation

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		defer b.mu.Unlock()
		// a Stop/Start pair may have started a newer run
		if b.generation == gen {
			b.stopped = true
			b.cancel = nil
		}
	}()
	return nil
}

// Stop stops delivery. It is safe to call more than once.
func (b *EventBus) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopped = true
	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}
}
