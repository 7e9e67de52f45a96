package elements

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/realtime-ai/fretwise/pkg/audio"
	"github.com/realtime-ai/fretwise/pkg/control"
	"github.com/realtime-ai/fretwise/pkg/pipeline"
	"github.com/realtime-ai/fretwise/pkg/pitch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testRate   = 48000
	testWindow = 8
)

func waitState(t *testing.T, e *PitchElement, want PitchState) {
	t.Helper()
	require.Eventually(t, func() bool { return e.State() == want },
		time.Second, 5*time.Millisecond, "state never reached %s", want)
}

func recvMsg(t *testing.T, ctrl *control.ControllerEnd) control.Message {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	msg, err := ctrl.Recv(ctx)
	require.NoError(t, err)
	return msg
}

func assertNoMsg(t *testing.T, ctrl *control.ControllerEnd) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	msg, err := ctrl.Recv(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded, "unexpected message %v", msg)
}

func frame(n int, v float32) []float32 {
	f := make([]float32, n)
	for i := range f {
		f[i] = v
	}
	return f
}

func TestFramesBeforeInitializeAreDropped(t *testing.T) {
	ctrl, proc := control.New(8)
	det := pitch.NewMockDetector(pitch.Reading{Frequency: 440})
	e := NewPitchElement(PitchElementConfig{Factory: pitch.FactoryFor(det), Control: proc})

	for i := 0; i < 5; i++ {
		e.OnAudioFrame(context.Background(), "s", frame(4, 0.5))
	}

	assert.Equal(t, StateUninitialized, e.State())
	assert.Equal(t, uint64(5), e.Stats().Dropped)
	assert.Equal(t, 0, det.Calls())
	assertNoMsg(t, ctrl)
}

func TestFramesWhileInitializingAreDropped(t *testing.T) {
	ctrl, proc := control.New(8)
	det := pitch.NewMockDetector(pitch.Reading{Frequency: 440})
	release := make(chan struct{})
	e := NewPitchElement(PitchElementConfig{
		Factory: pitch.GatedFactory(pitch.FactoryFor(det), release),
		Control: proc,
	})
	defer e.Stop()

	require.NoError(t, e.Initialize(context.Background(), pitch.DefaultResource(), testRate, testWindow))
	assert.Equal(t, StateInitializing, e.State())

	e.OnAudioFrame(context.Background(), "s", frame(4, 0.5))
	assert.ErrorIs(t, e.Initialize(context.Background(), pitch.DefaultResource(), testRate, testWindow), ErrAlreadyInitialized)
	assertNoMsg(t, ctrl)

	close(release)
	waitState(t, e, StateReady)
	assert.Equal(t, control.DetectorReady{}, recvMsg(t, ctrl))

	e.OnAudioFrame(context.Background(), "s", frame(4, 0.5))
	assert.Equal(t, control.PitchDetected{Frequency: 440}, recvMsg(t, ctrl))

	assert.Equal(t, 1, det.Calls(), "only the frame after ready reaches the detector")
	assert.Equal(t, uint64(1), e.Stats().Dropped)
	assert.ErrorIs(t, e.Initialize(context.Background(), pitch.DefaultResource(), testRate, testWindow), ErrAlreadyInitialized)
}

func TestPitchOrderFollowsFrames(t *testing.T) {
	ctrl, proc := control.New(16)
	det := pitch.NewMockDetector(pitch.Readings(110, 0, 220, 330)...)
	e := NewPitchElement(PitchElementConfig{Factory: pitch.FactoryFor(det), Control: proc})
	defer e.Stop()

	require.NoError(t, e.Initialize(context.Background(), pitch.DefaultResource(), testRate, testWindow))
	waitState(t, e, StateReady)
	require.Equal(t, control.DetectorReady{}, recvMsg(t, ctrl))

	for i := 0; i < 4; i++ {
		e.OnAudioFrame(context.Background(), "s", frame(2, 0.1))
	}

	// silence (0 Hz) is suppressed, nothing is reordered
	for _, want := range []float64{110, 220, 330} {
		assert.Equal(t, control.PitchDetected{Frequency: want}, recvMsg(t, ctrl))
	}
	assertNoMsg(t, ctrl)
	assert.Equal(t, uint64(3), e.Stats().Detections)
}

func TestDetectorInitFailureReportedOnce(t *testing.T) {
	ctrl, proc := control.New(8)
	boom := errors.New("model missing")
	e := NewPitchElement(PitchElementConfig{Factory: pitch.FailingFactory(boom), Control: proc})

	bus := pipeline.NewEventBus()
	events := make(chan pipeline.Event, 4)
	bus.Subscribe(pipeline.EventDetectorError, events)
	e.SetBus(bus)

	require.NoError(t, e.Initialize(context.Background(), pitch.DefaultResource(), testRate, testWindow))
	waitState(t, e, StateDisposed)

	msg := recvMsg(t, ctrl)
	derr, ok := msg.(control.DetectorError)
	require.True(t, ok, "got %T", msg)
	assert.True(t, derr.Fatal)
	assert.Contains(t, derr.Message, "model missing")
	assertNoMsg(t, ctrl)

	assert.ErrorIs(t, e.InitError(), ErrDetectorInitFailed)
	assert.ErrorIs(t, e.Initialize(context.Background(), pitch.DefaultResource(), testRate, testWindow), ErrDisposed)

	select {
	case evt := <-events:
		assert.ErrorIs(t, evt.Payload.(error), ErrDetectorInitFailed)
	case <-time.After(time.Second):
		t.Fatal("no detector error on the bus")
	}

	// frames after a failed init are harmless
	e.OnAudioFrame(context.Background(), "s", frame(4, 0.5))
	assert.Equal(t, uint64(1), e.Stats().Dropped)
}

func TestInitializeRejectsBadSize(t *testing.T) {
	ctrl, proc := control.New(8)
	e := NewPitchElement(PitchElementConfig{Factory: pitch.FactoryFor(pitch.NewMockDetector()), Control: proc})

	err := e.Initialize(context.Background(), pitch.DefaultResource(), 0, testWindow)
	assert.ErrorIs(t, err, ErrDetectorInitFailed)
	assert.Equal(t, StateDisposed, e.State())
	assert.IsType(t, control.DetectorError{}, recvMsg(t, ctrl))
}

func TestFrameErrorsAreNotFatal(t *testing.T) {
	det := pitch.NewMockDetector(
		pitch.Reading{Err: errors.New("malformed window")},
		pitch.Reading{Frequency: 196},
	)

	ctrl, proc := control.New(8)
	e := NewPitchElement(PitchElementConfig{Factory: pitch.FactoryFor(det), Control: proc})
	defer e.Stop()

	bus := pipeline.NewEventBus()
	errs := make(chan pipeline.Event, 4)
	bus.Subscribe(pipeline.EventFrameError, errs)
	e.SetBus(bus)

	require.NoError(t, e.Initialize(context.Background(), pitch.DefaultResource(), testRate, testWindow))
	waitState(t, e, StateReady)
	require.Equal(t, control.DetectorReady{}, recvMsg(t, ctrl))

	// oversized frame, then a detector failure, then a good frame
	e.OnAudioFrame(context.Background(), "s", frame(testWindow+1, 0.5))
	e.OnAudioFrame(context.Background(), "s", frame(4, 0.5))
	e.OnAudioFrame(context.Background(), "s", frame(4, 0.5))

	// the controller hears about the first error; the second falls inside
	// the report interval
	msg := recvMsg(t, ctrl)
	derr, ok := msg.(control.DetectorError)
	require.True(t, ok, "got %T", msg)
	assert.False(t, derr.Fatal)
	assert.Contains(t, derr.Message, "frame larger than sample window")

	assert.Equal(t, control.PitchDetected{Frequency: 196}, recvMsg(t, ctrl))
	assertNoMsg(t, ctrl)
	assert.Equal(t, StateReady, e.State())
	assert.Equal(t, uint64(2), e.Stats().FrameErrors)

	first := <-errs
	assert.ErrorIs(t, first.Payload.(FrameErrorPayload).Err, audio.ErrFrameTooLarge)
	second := <-errs
	assert.Contains(t, second.Payload.(FrameErrorPayload).Err.Error(), "malformed window")
}

func TestFrameErrorReportsAreSpaced(t *testing.T) {
	ctrl, proc := control.New(8)
	e := NewPitchElement(PitchElementConfig{Factory: pitch.FactoryFor(pitch.NewMockDetector()), Control: proc})
	defer e.Stop()

	require.NoError(t, e.Initialize(context.Background(), pitch.DefaultResource(), testRate, testWindow))
	require.Equal(t, control.DetectorReady{}, recvMsg(t, ctrl))

	e.OnAudioFrame(context.Background(), "s", frame(testWindow+1, 0.5))
	assert.IsType(t, control.DetectorError{}, recvMsg(t, ctrl))

	e.OnAudioFrame(context.Background(), "s", frame(testWindow+1, 0.5))
	assertNoMsg(t, ctrl)

	// pretend the last report is old
	e.mu.Lock()
	e.lastReport = time.Now().Add(-frameErrorReportInterval)
	e.mu.Unlock()

	e.OnAudioFrame(context.Background(), "s", frame(testWindow+1, 0.5))
	assert.IsType(t, control.DetectorError{}, recvMsg(t, ctrl))
	assert.Equal(t, uint64(3), e.Stats().FrameErrors)
}

func TestDetectorSeesWholeWindow(t *testing.T) {
	det := pitch.NewMockDetector()
	e := NewPitchElement(PitchElementConfig{Factory: pitch.FactoryFor(det)})
	defer e.Stop()

	require.NoError(t, e.Initialize(context.Background(), pitch.DefaultResource(), testRate, testWindow))
	waitState(t, e, StateReady)

	e.OnAudioFrame(context.Background(), "s", []float32{1, 2, 3})
	e.OnAudioFrame(context.Background(), "s", []float32{4, 5, 6, 7, 8, 9})

	require.Equal(t, 2, det.Calls())
	assert.Equal(t, []float32{0, 0, 0, 0, 0, 1, 2, 3}, det.Windows()[0])
	assert.Equal(t, []float32{2, 3, 4, 5, 6, 7, 8, 9}, det.Windows()[1])
}

func TestDisposeIsIdempotent(t *testing.T) {
	det := pitch.NewMockDetector(pitch.Reading{Frequency: 440})
	e := NewPitchElement(PitchElementConfig{Factory: pitch.FactoryFor(det)})

	require.NoError(t, e.Dispose(), "dispose before initialize")
	assert.Equal(t, StateDisposed, e.State())
	assert.ErrorIs(t, e.Initialize(context.Background(), pitch.DefaultResource(), testRate, testWindow), ErrDisposed)

	e2 := NewPitchElement(PitchElementConfig{Factory: pitch.FactoryFor(det)})
	require.NoError(t, e2.Initialize(context.Background(), pitch.DefaultResource(), testRate, testWindow))
	waitState(t, e2, StateReady)

	require.NoError(t, e2.Dispose())
	require.NoError(t, e2.Dispose())
	assert.True(t, det.Destroyed())

	e2.OnAudioFrame(context.Background(), "s", frame(4, 0.5))
	assert.Equal(t, 0, det.Calls())
}

func TestDisposeWhileInitializing(t *testing.T) {
	ctrl, proc := control.New(8)
	det := pitch.NewMockDetector()
	release := make(chan struct{})
	e := NewPitchElement(PitchElementConfig{
		Factory: pitch.GatedFactory(pitch.FactoryFor(det), release),
		Control: proc,
	})

	require.NoError(t, e.Initialize(context.Background(), pitch.DefaultResource(), testRate, testWindow))
	require.NoError(t, e.Dispose())
	close(release)

	require.NoError(t, e.Stop())
	assert.Equal(t, StateDisposed, e.State())
	assertNoMsg(t, ctrl)
}

func TestElementLoopDrivenByControlChannel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ctrl, proc := control.New(8)
	det := pitch.NewMockDetector(pitch.Reading{Frequency: 261.63})
	e := NewPitchElement(PitchElementConfig{Factory: pitch.FactoryFor(det), Control: proc})
	require.NoError(t, e.Start(ctx))
	defer e.Stop()

	res, err := pitch.EncodeResource(pitch.DefaultResource())
	require.NoError(t, err)
	require.NoError(t, ctrl.Send(ctx, control.InitDetector{
		EncodedDetectorResource: res,
		WindowSize:              testWindow,
		SampleRate:              testRate,
	}))
	assert.Equal(t, control.DetectorReady{}, recvMsg(t, ctrl))

	e.In() <- &pipeline.PipelineMessage{
		Type: pipeline.MsgTypeAudio,
		AudioData: &pipeline.AudioData{
			Samples:    frame(4, 0.25),
			SampleRate: testRate,
			MediaType:  pipeline.AudioMediaTypeSamples,
		},
	}
	assert.Equal(t, control.PitchDetected{Frequency: 261.63}, recvMsg(t, ctrl))

	e.In() <- &pipeline.PipelineMessage{
		Type: pipeline.MsgTypeAudio,
		AudioData: &pipeline.AudioData{
			Data:       audio.Float32ToS16LE(frame(4, 0.25)),
			SampleRate: testRate,
			Channels:   1,
			MediaType:  pipeline.AudioMediaTypeRaw,
		},
	}
	assert.Equal(t, control.PitchDetected{Frequency: 261.63}, recvMsg(t, ctrl))

	require.NoError(t, ctrl.Send(ctx, control.Shutdown{}))
	waitState(t, e, StateDisposed)
	assert.True(t, det.Destroyed())
}

func TestElementRejectsWrongSampleRate(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	det := pitch.NewMockDetector(pitch.Reading{Frequency: 440})
	e := NewPitchElement(PitchElementConfig{Factory: pitch.FactoryFor(det)})
	bus := pipeline.NewEventBus()
	errs := make(chan pipeline.Event, 1)
	bus.Subscribe(pipeline.EventFrameError, errs)
	e.SetBus(bus)

	require.NoError(t, e.Start(ctx))
	defer e.Stop()
	require.NoError(t, e.Initialize(ctx, pitch.DefaultResource(), testRate, testWindow))
	waitState(t, e, StateReady)

	e.In() <- &pipeline.PipelineMessage{
		Type: pipeline.MsgTypeAudio,
		AudioData: &pipeline.AudioData{
			Samples:    frame(4, 0.25),
			SampleRate: 16000,
			MediaType:  pipeline.AudioMediaTypeSamples,
		},
	}

	select {
	case <-errs:
	case <-time.After(time.Second):
		t.Fatal("expected a frame error")
	}
	assert.Equal(t, 0, det.Calls())
}

func TestInvalidResourceFailsInit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ctrl, proc := control.New(8)
	e := NewPitchElement(PitchElementConfig{Control: proc})
	require.NoError(t, e.Start(ctx))
	defer e.Stop()

	require.NoError(t, ctrl.Send(ctx, control.InitDetector{
		EncodedDetectorResource: []byte(`{"algorithm":"fft"}`),
		WindowSize:              testWindow,
		SampleRate:              testRate,
	}))

	msg := recvMsg(t, ctrl)
	assert.IsType(t, control.DetectorError{}, msg)
	waitState(t, e, StateDisposed)
}

func TestYINEndToEnd(t *testing.T) {
	ctrl, proc := control.New(32)
	e := NewPitchElement(PitchElementConfig{Control: proc})
	defer e.Stop()

	require.NoError(t, e.Initialize(context.Background(), pitch.DefaultResource(), testRate, audio.DefaultWindowSize))
	require.Equal(t, control.DetectorReady{}, recvMsg(t, ctrl))

	osc := audio.NewSineWave(testRate, 440, 0.5)
	for i := 0; i < 6; i++ {
		e.OnAudioFrame(context.Background(), "s", osc.Generate(1024))
	}

	// the window is full after five frames; earlier partial windows may or
	// may not lock, but every report must be close to 440 Hz
	got := recvMsg(t, ctrl).(control.PitchDetected)
	assert.Less(t, math.Abs(got.Frequency-440), 5.0)
}
