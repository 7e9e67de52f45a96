package pipeline

import (
	"sync"
	"sync/atomic"
)

// ClearableChan is a bounded queue whose Send never blocks. When the buffer
// is full the value is dropped and counted.
type ClearableChan[T any] struct {
	mu      sync.Mutex
	ch      chan T
	dropped atomic.Uint64
}

// NewClearableChan creates a ClearableChan with a buffer of size.
func NewClearableChan[T any](size int) *ClearableChan[T] {
	return &ClearableChan[T]{
		ch: make(chan T, size),
	}
}

// Send enqueues val and reports whether it was accepted.
func (cc *ClearableChan[T]) Send(val T) bool {
	cc.mu.Lock()
	defer cc.mu.Unlock()

	select {
	case cc.ch <- val:
		return true
	default:
		cc.dropped.Add(1)
		return false
	}
}

// Recv blocks until a value is available.
func (cc *ClearableChan[T]) Recv() T {
	return <-cc.ch
}

func (cc *ClearableChan[T]) Chan() <-chan T {
	return cc.ch
}

// Len returns the number of queued values.
func (cc *ClearableChan[T]) Len() int {
	return len(cc.ch)
}

// Dropped returns how many values Send has discarded.
func (cc *ClearableChan[T]) Dropped() uint64 {
	return cc.dropped.Load()
}

// Clear discards everything currently queued.
func (cc *ClearableChan[T]) Clear() {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	for {
		select {
		case <-cc.ch:
		default:
			return
		}
	}
}
