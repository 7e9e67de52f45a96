package connection

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gen2brain/malgo"
	"github.com/realtime-ai/fretwise/pkg/audio"
	"github.com/realtime-ai/fretwise/pkg/pipeline"
)

const (
	// DefaultCaptureSampleRate is requested from the device; the device may
	// pick another rate, see SampleRate.
	DefaultCaptureSampleRate = 48000
	CaptureChannels          = 1
	CapturePeriod            = 20 * time.Millisecond
)

var ErrCaptureClosed = errors.New("capture closed")

var _ Connection = (*LocalCapture)(nil)

type LocalCaptureConfig struct {
	PeerID     string
	SampleRate int
}

// LocalCapture reads mono float32 frames from the default microphone.
type LocalCapture struct {
	peerID string

	audioContext  *malgo.AllocatedContext
	captureDevice *malgo.Device
	sampleRate    int

	mu      sync.RWMutex
	handler ConnectionEventHandler
	state   ConnectionState

	paused atomic.Bool
	frames atomic.Uint64
	closed atomic.Bool
}

func NewLocalCapture(cfg LocalCaptureConfig) *LocalCapture {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = DefaultCaptureSampleRate
	}
	if cfg.PeerID == "" {
		cfg.PeerID = "local"
	}
	return &LocalCapture{
		peerID:     cfg.PeerID,
		sampleRate: cfg.SampleRate,
		handler:    &NoOpConnectionEventHandler{},
		state:      ConnectionStateNew,
	}
}

func (l *LocalCapture) PeerID() string {
	return l.peerID
}

func (l *LocalCapture) RegisterEventHandler(handler ConnectionEventHandler) {
	if handler == nil {
		handler = &NoOpConnectionEventHandler{}
	}
	l.mu.Lock()
	l.handler = handler
	l.mu.Unlock()
}

// SampleRate returns the rate the device actually runs at once started,
// and the requested rate before.
func (l *LocalCapture) SampleRate() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.sampleRate
}

func (l *LocalCapture) State() ConnectionState {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// Frames is the number of frames delivered so far.
func (l *LocalCapture) Frames() uint64 {
	return l.frames.Load()
}

// Start opens the default capture device and starts delivering frames.
func (l *LocalCapture) Start(ctx context.Context) error {
	if l.closed.Load() {
		return ErrCaptureClosed
	}
	l.setState(ConnectionStateConnecting)

	if err := l.startAudioCapture(); err != nil {
		l.release()
		l.setState(ConnectionStateFailed)
		l.getHandler().OnError(err)
		return err
	}

	l.setState(ConnectionStateConnected)
	log.Printf("[LocalCapture] %s capturing at %d Hz", l.peerID, l.SampleRate())

	go func() {
		<-ctx.Done()
		l.Close()
	}()
	return nil
}

func (l *LocalCapture) startAudioCapture() error {
	actx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		log.Printf("[LocalCapture] %s", message)
	})
	if err != nil {
		return fmt.Errorf("failed to initialize audio context: %w", err)
	}
	l.audioContext = actx

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.PeriodSizeInMilliseconds = uint32(CapturePeriod / time.Millisecond)
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = CaptureChannels
	deviceConfig.SampleRate = uint32(l.SampleRate())
	deviceConfig.Alsa.NoMMap = 1

	device, err := malgo.InitDevice(actx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: l.onData,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize capture device: %w", err)
	}
	l.captureDevice = device

	l.mu.Lock()
	if rate := int(device.SampleRate()); rate > 0 {
		l.sampleRate = rate
	}
	l.mu.Unlock()

	if err := device.Start(); err != nil {
		return fmt.Errorf("failed to start capture device: %w", err)
	}
	return nil
}

func (l *LocalCapture) onData(_, inputSamples []byte, _ uint32) {
	if l.paused.Load() || l.closed.Load() {
		return
	}
	msg, err := frameMessage(l.peerID, inputSamples, l.SampleRate(), time.Now())
	if err != nil {
		l.getHandler().OnError(err)
		return
	}
	l.frames.Add(1)
	l.getHandler().OnMessage(msg)
}

// Pause stops delivering frames without closing the device.
func (l *LocalCapture) Pause() {
	if l.closed.Load() {
		return
	}
	if !l.paused.Swap(true) {
		l.setState(ConnectionStatePaused)
	}
}

func (l *LocalCapture) Resume() {
	if l.closed.Load() {
		return
	}
	if l.paused.Swap(false) {
		l.setState(ConnectionStateConnected)
	}
}

func (l *LocalCapture) Paused() bool {
	return l.paused.Load()
}

// Close stops the device. It is safe to call more than once.
func (l *LocalCapture) Close() error {
	if l.closed.Swap(true) {
		return nil
	}
	l.release()
	l.setState(ConnectionStateClosed)
	log.Printf("[LocalCapture] %s closed after %d frames", l.peerID, l.frames.Load())
	return nil
}

func (l *LocalCapture) release() {
	if l.captureDevice != nil {
		l.captureDevice.Stop()
		l.captureDevice.Uninit()
		l.captureDevice = nil
	}
	if l.audioContext != nil {
		_ = l.audioContext.Uninit()
		l.audioContext.Free()
		l.audioContext = nil
	}
}

func (l *LocalCapture) getHandler() ConnectionEventHandler {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.handler
}

func (l *LocalCapture) setState(state ConnectionState) {
	l.mu.Lock()
	if l.state == state {
		l.mu.Unlock()
		return
	}
	l.state = state
	h := l.handler
	l.mu.Unlock()
	h.OnConnectionStateChange(state)
}

// frameMessage copies one device buffer of little-endian float32 samples
// into a pipeline message. The device reuses its buffer after the callback.
func frameMessage(peerID string, data []byte, sampleRate int, at time.Time) (*pipeline.PipelineMessage, error) {
	samples, err := audio.F32LEToFloat32(data, CaptureChannels)
	if err != nil {
		return nil, fmt.Errorf("capture frame: %w", err)
	}
	return &pipeline.PipelineMessage{
		Type:      pipeline.MsgTypeAudio,
		SessionID: peerID,
		Timestamp: at,
		AudioData: &pipeline.AudioData{
			Samples:    samples,
			SampleRate: sampleRate,
			Channels:   CaptureChannels,
			MediaType:  pipeline.AudioMediaTypeSamples,
			Timestamp:  at,
		},
	}, nil
}
