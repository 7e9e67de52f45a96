package session

import (
	"sync"
	"time"

	"github.com/realtime-ai/fretwise/pkg/notemath"
)

// DefaultHistorySize is how many played notes a session remembers.
const DefaultHistorySize = 10

// Entry is one note in the history.
type Entry struct {
	Note      notemath.Note `json:"note"`
	Frequency float64       `json:"frequency"`
	At        time.Time     `json:"at"`
}

// History keeps the most recent distinct notes in play order. A note is
// appended only when its pitch class differs from the previous entry, so a
// sustained string shows up once.
type History struct {
	mu      sync.RWMutex
	size    int
	entries []Entry
}

func NewHistory(size int) *History {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &History{size: size, entries: make([]Entry, 0, size)}
}

// Add records e and reports whether it was appended.
func (h *History) Add(e Entry) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if n := len(h.entries); n > 0 && h.entries[n-1].Note.PitchClass == e.Note.PitchClass {
		return false
	}
	if len(h.entries) == h.size {
		copy(h.entries, h.entries[1:])
		h.entries = h.entries[:h.size-1]
	}
	h.entries = append(h.entries, e)
	return true
}

// Entries returns a copy, oldest first.
func (h *History) Entries() []Entry {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Entry, len(h.entries))
	copy(out, h.entries)
	return out
}

// Names returns the pitch class names, oldest first.
func (h *History) Names() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, len(h.entries))
	for i, e := range h.entries {
		out[i] = e.Note.PitchClass.Name()
	}
	return out
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}

func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = h.entries[:0]
}
