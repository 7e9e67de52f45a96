package elements

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/realtime-ai/fretwise/pkg/audio"
	"github.com/realtime-ai/fretwise/pkg/control"
	"github.com/realtime-ai/fretwise/pkg/notemath"
	"github.com/realtime-ai/fretwise/pkg/pipeline"
	"github.com/realtime-ai/fretwise/pkg/pitch"
	"github.com/realtime-ai/fretwise/pkg/trace"
)

var (
	// ErrAlreadyInitialized is returned by Initialize while the element is
	// initializing or ready.
	ErrAlreadyInitialized = errors.New("pitch detector already initialized")
	// ErrDetectorInitFailed wraps detector construction failures.
	ErrDetectorInitFailed = errors.New("pitch detector init failed")
	// ErrDisposed is returned by Initialize after Dispose.
	ErrDisposed = errors.New("pitch element disposed")
)

// frameErrorReportInterval bounds how often frame errors reach the
// controller. The bus still sees every one.
const frameErrorReportInterval = time.Second

// PitchState is the detector lifecycle of a PitchElement.
type PitchState int32

const (
	StateUninitialized PitchState = iota
	StateInitializing
	StateReady
	StateDisposed
)

func (s PitchState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateDisposed:
		return "disposed"
	default:
		return fmt.Sprintf("PitchState(%d)", int32(s))
	}
}

// PitchPayload is published with EventPitchDetected.
type PitchPayload struct {
	SessionID string
	Frequency float64
	Note      notemath.Note
	Timestamp time.Time
}

// FrameErrorPayload is published with EventFrameError.
type FrameErrorPayload struct {
	SessionID string
	Err       error
	Timestamp time.Time
}

// PitchStats counts what the element did with the frames it received.
type PitchStats struct {
	Frames      uint64
	Dropped     uint64
	Detections  uint64
	FrameErrors uint64
}

type PitchElementConfig struct {
	// Factory builds the detector. Defaults to pitch.DefaultFactory.
	Factory pitch.Factory
	// Control is the processor end of the control channel. When nil the
	// element only reports on the pipeline bus.
	Control *control.ProcessorEnd
	// BufferSize of the element's input channel.
	BufferSize int
}

// PitchElement owns the sample window and the pitch detector. It pushes
// each audio frame into the window, runs the detector on the whole window
// and reports confident pitches.
type PitchElement struct {
	*pipeline.BaseElement

	factory pitch.Factory
	ctrl    *control.ProcessorEnd

	mu         sync.Mutex
	state      PitchState
	detector   pitch.Detector
	window     *audio.SampleWindow
	sampleRate int
	initCancel context.CancelFunc
	initErr    error
	lastReport time.Time

	frames      atomic.Uint64
	dropped     atomic.Uint64
	detections  atomic.Uint64
	frameErrors atomic.Uint64

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewPitchElement(cfg PitchElementConfig) *PitchElement {
	if cfg.Factory == nil {
		cfg.Factory = pitch.DefaultFactory
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 64
	}

	e := &PitchElement{
		BaseElement: pipeline.NewBaseElement("pitch-element", cfg.BufferSize),
		factory:     cfg.Factory,
		ctrl:        cfg.Control,
	}
	e.RegisterProperty(pipeline.PropertyDesc{
		Name:     "publish-pitch",
		Type:     reflect.TypeOf(true),
		Writable: true,
		Readable: true,
		Default:  true,
	})
	return e
}

// State returns the current lifecycle state.
func (e *PitchElement) State() PitchState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// InitError returns the construction failure, if any.
func (e *PitchElement) InitError() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.initErr
}

func (e *PitchElement) Stats() PitchStats {
	return PitchStats{
		Frames:      e.frames.Load(),
		Dropped:     e.dropped.Load(),
		Detections:  e.detections.Load(),
		FrameErrors: e.frameErrors.Load(),
	}
}

// Initialize builds the detector in the background. The element moves to
// Initializing at once and to Ready when construction succeeds, at which
// point DetectorReady is sent. A construction failure is reported once as a
// fatal DetectorError and leaves the element Disposed.
func (e *PitchElement) Initialize(ctx context.Context, res pitch.Resource, sampleRate, windowSize int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case StateInitializing, StateReady:
		return ErrAlreadyInitialized
	case StateDisposed:
		return ErrDisposed
	}
	if sampleRate <= 0 || windowSize <= 0 {
		err := fmt.Errorf("%w: rate=%d window=%d", ErrDetectorInitFailed, sampleRate, windowSize)
		e.failLocked(err)
		return err
	}

	e.state = StateInitializing
	e.sampleRate = sampleRate
	initCtx, cancel := context.WithCancel(ctx)
	e.initCancel = cancel

	log.Printf("[PitchElement] initializing %s detector: rate=%d window=%d", res.Algorithm, sampleRate, windowSize)

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer cancel()

		spanCtx, span := trace.InstrumentDetectorInit(initCtx, res.Algorithm, sampleRate, windowSize)
		det, err := e.factory(spanCtx, res, sampleRate, windowSize)
		trace.RecordError(span, err)
		span.End()

		e.completeInit(spanCtx, det, err, windowSize)
	}()
	return nil
}

func (e *PitchElement) completeInit(ctx context.Context, det pitch.Detector, err error, windowSize int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateInitializing {
		// disposed while building
		if det != nil {
			det.Destroy()
		}
		return
	}
	if err == nil && det == nil {
		err = errors.New("factory returned no detector")
	}
	if err != nil {
		e.failLocked(fmt.Errorf("%w: %v", ErrDetectorInitFailed, err))
		return
	}

	e.detector = det
	e.window = audio.NewSampleWindow(windowSize)
	e.state = StateReady

	if e.ctrl != nil {
		if err := e.ctrl.Send(control.DetectorReady{}); err != nil {
			log.Printf("[PitchElement] failed to report ready: %v", err)
		}
	}
	e.publish(pipeline.EventDetectorReady, nil)
	log.Printf("[PitchElement] %s", trace.LogWithTrace(ctx, "detector ready"))
}

// failLocked records a fatal init error, reports it once and disposes.
func (e *PitchElement) failLocked(err error) {
	e.initErr = err
	e.state = StateDisposed
	log.Printf("[PitchElement] %v", err)

	if e.ctrl != nil {
		if sendErr := e.ctrl.Send(control.DetectorError{Message: err.Error(), Fatal: true}); sendErr != nil {
			log.Printf("[PitchElement] failed to report init error: %v", sendErr)
		}
	}
	e.publish(pipeline.EventDetectorError, err)
}

// OnAudioFrame processes one mono frame. Frames arriving outside Ready are
// dropped. Errors on a single frame are reported and the frame is skipped.
func (e *PitchElement) OnAudioFrame(ctx context.Context, sessionID string, frame []float32) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.frames.Add(1)
	if e.state != StateReady {
		e.dropped.Add(1)
		return
	}

	if err := e.window.Push(frame); err != nil {
		e.frameErrorLocked(ctx, sessionID, err)
		return
	}

	ctx, span := trace.InstrumentDetect(ctx, len(frame))
	defer span.End()

	freq, err := e.detector.Detect(e.window.Samples())
	if err != nil {
		trace.RecordError(span, err)
		e.frameErrorLocked(ctx, sessionID, fmt.Errorf("detect: %w", err))
		return
	}
	if !(freq > 0) || math.IsInf(freq, 0) {
		return
	}

	note, err := notemath.FreqToNote(freq)
	if err != nil {
		e.frameErrorLocked(ctx, sessionID, err)
		return
	}
	trace.RecordPitch(span, freq, note.String())
	e.detections.Add(1)

	if e.ctrl != nil {
		if err := e.ctrl.Send(control.PitchDetected{Frequency: freq}); err != nil {
			log.Printf("[PitchElement] pitch not delivered: %v", err)
		}
	}
	if publish, _ := e.GetProperty("publish-pitch"); publish == true {
		e.publish(pipeline.EventPitchDetected, PitchPayload{
			SessionID: sessionID,
			Frequency: freq,
			Note:      note,
			Timestamp: time.Now(),
		})
	}
}

// frameErrorLocked reports a skipped frame on the bus and, at most once per
// frameErrorReportInterval, to the controller as a non-fatal DetectorError.
func (e *PitchElement) frameErrorLocked(ctx context.Context, sessionID string, err error) {
	e.frameErrors.Add(1)
	log.Printf("[PitchElement] %s", trace.LogWithTrace(ctx, "frame error: "+err.Error()))

	if e.ctrl != nil && time.Since(e.lastReport) >= frameErrorReportInterval {
		e.lastReport = time.Now()
		if sendErr := e.ctrl.Send(control.DetectorError{Message: err.Error()}); sendErr != nil {
			log.Printf("[PitchElement] frame error not delivered: %v", sendErr)
		}
	}
	e.publish(pipeline.EventFrameError, FrameErrorPayload{
		SessionID: sessionID,
		Err:       err,
		Timestamp: time.Now(),
	})
}

// Dispose releases the detector. It is safe to call in any state and more
// than once; later frames are dropped.
func (e *PitchElement) Dispose() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateDisposed {
		return nil
	}
	e.state = StateDisposed
	if e.initCancel != nil {
		e.initCancel()
		e.initCancel = nil
	}

	var err error
	if e.detector != nil {
		err = e.detector.Destroy()
		e.detector = nil
	}
	e.window = nil
	e.publish(pipeline.EventDisposed, nil)
	log.Printf("[PitchElement] disposed")
	return err
}

func (e *PitchElement) publish(t pipeline.EventType, payload interface{}) {
	bus := e.Bus()
	if bus == nil {
		return
	}
	bus.Publish(pipeline.Event{Type: t, Timestamp: time.Now(), Payload: payload})
}

// Start runs the processing loop: audio messages from In() and controller
// messages from the control channel.
func (e *PitchElement) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.process(ctx)
	}()
	return nil
}

// Stop ends the loop and disposes the detector.
func (e *PitchElement) Stop() error {
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	err := e.Dispose()
	e.wg.Wait()
	return err
}

func (e *PitchElement) process(ctx context.Context) {
	var (
		ctrlC    <-chan control.Message
		ctrlDone <-chan struct{}
	)
	if e.ctrl != nil {
		ctrlC = e.ctrl.C()
		ctrlDone = e.ctrl.Done()
	}

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-e.InChan:
			if !ok {
				return
			}
			e.handleMessage(ctx, msg)
		case msg := <-ctrlC:
			e.handleControl(ctx, msg)
		case <-ctrlDone:
			// controller went away; nobody is left to report to
			e.Dispose()
			return
		}
	}
}

func (e *PitchElement) handleMessage(ctx context.Context, msg *pipeline.PipelineMessage) {
	if msg == nil || msg.Type != pipeline.MsgTypeAudio || msg.AudioData == nil {
		return
	}

	ctx, span := trace.InstrumentElementProcess(ctx, e.GetName(), msg)
	defer span.End()

	samples, err := decodeFrame(msg.AudioData)
	if err == nil {
		e.mu.Lock()
		rate := e.sampleRate
		e.mu.Unlock()
		if msg.AudioData.SampleRate != 0 && rate != 0 && msg.AudioData.SampleRate != rate {
			err = fmt.Errorf("frame at %d Hz, detector runs at %d Hz", msg.AudioData.SampleRate, rate)
		}
	}
	if err != nil {
		trace.RecordError(span, err)
		e.mu.Lock()
		e.frameErrorLocked(ctx, msg.SessionID, err)
		e.mu.Unlock()
		return
	}

	e.OnAudioFrame(ctx, msg.SessionID, samples)
}

func (e *PitchElement) handleControl(ctx context.Context, raw control.Message) {
	msg, err := e.ctrl.Accept(raw)
	if err != nil {
		log.Printf("[PitchElement] rejected control message: %v", err)
		return
	}

	switch m := msg.(type) {
	case control.InitDetector:
		res, err := pitch.DecodeResource(m.EncodedDetectorResource)
		if err != nil {
			e.mu.Lock()
			if e.state == StateUninitialized {
				e.failLocked(fmt.Errorf("%w: %v", ErrDetectorInitFailed, err))
			}
			e.mu.Unlock()
			return
		}
		if err := e.Initialize(ctx, res, m.SampleRate, m.WindowSize); err != nil {
			log.Printf("[PitchElement] init_detector ignored: %v", err)
		}
	case control.Shutdown:
		if err := e.Dispose(); err != nil {
			log.Printf("[PitchElement] dispose: %v", err)
		}
	default:
		log.Printf("[PitchElement] unexpected control message %s", msg.Tag())
	}
}

// decodeFrame turns an audio payload into mono float32 samples.
func decodeFrame(a *pipeline.AudioData) ([]float32, error) {
	channels := a.Channels
	if channels == 0 {
		channels = 1
	}
	switch a.MediaType {
	case pipeline.AudioMediaTypeSamples:
		return a.Samples, nil
	case pipeline.AudioMediaTypeRaw:
		return audio.S16LEToFloat32(a.Data, channels)
	case pipeline.AudioMediaTypeFloat32:
		return audio.F32LEToFloat32(a.Data, channels)
	case pipeline.AudioMediaTypeMuLaw:
		return audio.MuLawToFloat32(a.Data), nil
	default:
		return nil, fmt.Errorf("unsupported media type %q", a.MediaType)
	}
}
