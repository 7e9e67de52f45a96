// Package session is the controlling side of fretwise. A Session holds the
// selected key, the latest detected note and the note history, and turns
// processor messages into fretboard snapshots for renderers.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/realtime-ai/fretwise/pkg/control"
	"github.com/realtime-ai/fretwise/pkg/fretboard"
	"github.com/realtime-ai/fretwise/pkg/notemath"
	"github.com/realtime-ai/fretwise/pkg/pitch"
	"github.com/realtime-ai/fretwise/pkg/trace"
)

// DefaultKey is C major.
const DefaultKey notemath.PitchClass = 7

// Tracking describes whether pitch tracking is available.
type Tracking string

const (
	TrackingOff      Tracking = "off"
	TrackingStarting Tracking = "starting"
	TrackingOn       Tracking = "on"
	TrackingFailed   Tracking = "failed"
)

var ErrAlreadyStarted = errors.New("session already started")

type Config struct {
	ID          string
	Key         notemath.PitchClass
	Tuning      fretboard.Tuning
	HistorySize int
	Resource    pitch.Resource
}

// DefaultConfig starts in C major, standard tuning, with the default
// detector.
func DefaultConfig() Config {
	return Config{
		Key:         DefaultKey,
		Tuning:      fretboard.StandardTuning,
		HistorySize: DefaultHistorySize,
		Resource:    pitch.DefaultResource(),
	}
}

// Snapshot is an immutable view of the session for renderers.
type Snapshot struct {
	SessionID string              `json:"session_id"`
	Key       notemath.PitchClass `json:"key"`
	KeyLabel  string              `json:"key_label"`
	Board     fretboard.Board     `json:"board"`
	Note      *notemath.Note      `json:"note,omitempty"`
	Frequency float64             `json:"frequency,omitempty"`
	Cents     float64             `json:"cents,omitempty"`
	History   []string            `json:"history"`
	Tracking  Tracking            `json:"tracking"`
	Error     string              `json:"error,omitempty"`
	Seq       uint64              `json:"seq"`
}

type Session struct {
	id       string
	ctrl     *control.ControllerEnd
	model    *fretboard.Model
	resource pitch.Resource
	history  *History

	mu        sync.RWMutex
	key       notemath.PitchClass
	note      *notemath.Note
	frequency float64
	tracking  Tracking
	lastErr   string
	started   bool
	seq       uint64

	subMu  sync.Mutex
	subs   map[int]chan Snapshot
	nextID int
}

// New creates a session. ctrl may be nil for a board-only session without
// pitch tracking.
func New(ctrl *control.ControllerEnd, cfg Config) *Session {
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	if cfg.Tuning.Name == "" {
		cfg.Tuning = fretboard.StandardTuning
	}
	if cfg.Resource.Algorithm == "" {
		cfg.Resource = pitch.DefaultResource()
	}
	return &Session{
		id:       cfg.ID,
		ctrl:     ctrl,
		model:    fretboard.NewModel(cfg.Tuning),
		resource: cfg.Resource,
		history:  NewHistory(cfg.HistorySize),
		key:      notemath.NewPitchClass(int(cfg.Key)),
		tracking: TrackingOff,
		subs:     make(map[int]chan Snapshot),
	}
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) History() *History {
	return s.history
}

// Start asks the processor to build its detector for the given stream.
func (s *Session) Start(ctx context.Context, sampleRate, windowSize int) error {
	if s.ctrl == nil {
		return fmt.Errorf("session %s has no control channel", s.id)
	}

	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.started = true
	s.mu.Unlock()

	res, err := pitch.EncodeResource(s.resource)
	if err != nil {
		s.fail(err)
		return err
	}
	err = s.ctrl.Send(ctx, control.InitDetector{
		EncodedDetectorResource: res,
		WindowSize:              windowSize,
		SampleRate:              sampleRate,
	})
	if err != nil {
		s.fail(err)
		return err
	}

	s.mu.Lock()
	if s.tracking == TrackingOff {
		s.tracking = TrackingStarting
	}
	s.mu.Unlock()
	s.notify()
	log.Printf("[Session] %s requested detector: rate=%d window=%d", s.id, sampleRate, windowSize)
	return nil
}

// Run consumes processor messages until ctx is done or the channel closes.
func (s *Session) Run(ctx context.Context) error {
	if s.ctrl == nil {
		<-ctx.Done()
		return nil
	}
	for {
		msg, err := s.ctrl.Recv(ctx)
		switch {
		case errors.Is(err, control.ErrClosed), errors.Is(err, context.Canceled):
			return nil
		case errors.Is(err, control.ErrInvalidMessage), errors.Is(err, control.ErrWrongDirection), errors.Is(err, control.ErrNotReady):
			log.Printf("[Session] %s dropped processor message: %v", s.id, err)
			continue
		case err != nil:
			return err
		}
		s.Handle(msg)
	}
}

// Handle applies one processor message.
func (s *Session) Handle(msg control.Message) {
	switch m := msg.(type) {
	case control.DetectorReady:
		s.mu.Lock()
		s.tracking = TrackingOn
		s.lastErr = ""
		s.mu.Unlock()
		log.Printf("[Session] %s pitch tracking on", s.id)
	case control.PitchDetected:
		if !s.recordPitch(m.Frequency) {
			return
		}
	case control.DetectorError:
		s.mu.Lock()
		s.lastErr = m.Message
		if m.Fatal {
			s.tracking = TrackingFailed
		}
		s.mu.Unlock()
		log.Printf("[Session] %s detector error (fatal=%v): %s", s.id, m.Fatal, m.Message)
	default:
		log.Printf("[Session] %s ignoring %s", s.id, msg.Tag())
		return
	}
	s.notify()
}

func (s *Session) recordPitch(freq float64) bool {
	note, err := notemath.FreqToNote(freq)
	if err != nil {
		log.Printf("[Session] %s: %v", s.id, err)
		return false
	}
	s.mu.Lock()
	s.note = &note
	s.frequency = freq
	// a good pitch clears the last transient error
	if s.tracking != TrackingFailed {
		s.lastErr = ""
	}
	s.mu.Unlock()

	s.history.Add(Entry{Note: note, Frequency: freq, At: time.Now()})
	return true
}

func (s *Session) fail(err error) {
	s.mu.Lock()
	s.tracking = TrackingFailed
	s.lastErr = err.Error()
	s.mu.Unlock()
	s.notify()
}

// Stop asks the processor to release its detector and closes the channel.
func (s *Session) Stop(ctx context.Context) error {
	if s.ctrl == nil {
		return nil
	}
	err := s.ctrl.Send(ctx, control.Shutdown{})
	s.ctrl.Close()
	if errors.Is(err, control.ErrClosed) {
		return nil
	}
	return err
}

func (s *Session) Key() notemath.PitchClass {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.key
}

// ShiftKey moves the key by delta semitones and returns the new key.
func (s *Session) ShiftKey(ctx context.Context, delta int) notemath.PitchClass {
	s.mu.Lock()
	s.key = notemath.TransposePitchClass(s.key, delta)
	key := s.key
	s.mu.Unlock()

	_, span := trace.InstrumentKeyChange(ctx, s.id, int(key))
	span.End()
	s.notify()
	return key
}

// SetKey selects key, folding it into [0,11].
func (s *Session) SetKey(ctx context.Context, key int) notemath.PitchClass {
	s.mu.Lock()
	s.key = notemath.NewPitchClass(key)
	k := s.key
	s.mu.Unlock()

	_, span := trace.InstrumentKeyChange(ctx, s.id, int(k))
	span.End()
	s.notify()
	return k
}

// ClearHistory forgets the played notes. The latest note stays on the board.
func (s *Session) ClearHistory() {
	s.history.Clear()
	s.notify()
}

// Snapshot builds the current view. The board is recomputed from the key
// and detected pitch class alone.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	key := s.key
	var note *notemath.Note
	if s.note != nil {
		n := *s.note
		note = &n
	}
	freq := s.frequency
	tracking := s.tracking
	lastErr := s.lastErr
	seq := s.seq
	s.mu.RUnlock()

	snap := Snapshot{
		SessionID: s.id,
		Key:       key,
		KeyLabel:  notemath.KeySignatureLabel(key),
		Note:      note,
		Frequency: freq,
		History:   s.history.Names(),
		Tracking:  tracking,
		Error:     lastErr,
		Seq:       seq,
	}

	var detected *notemath.PitchClass
	if note != nil {
		pc := note.PitchClass
		detected = &pc
		if c, err := notemath.Cents(freq); err == nil {
			snap.Cents = c
		}
	}
	snap.Board = s.model.Board(key, detected)
	return snap
}

// Subscribe returns a channel receiving a snapshot after every change and
// a func to cancel the subscription. Slow subscribers miss snapshots.
func (s *Session) Subscribe(buffer int) (<-chan Snapshot, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Snapshot, buffer)

	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	s.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
			close(ch)
		})
	}
}

func (s *Session) notify() {
	s.mu.Lock()
	s.seq++
	s.mu.Unlock()

	s.subMu.Lock()
	defer s.subMu.Unlock()
	if len(s.subs) == 0 {
		return
	}
	snap := s.Snapshot()
	for _, ch := range s.subs {
		select {
		case ch <- snap:
		default:
		}
	}
}
