package audio

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

const (
	toneChannelCount = 2 // stereo
	toneBitDepth     = 2 // 16-bit
	toneFadeSeconds  = 0.01
)

// TonePlayer plays reference sine tones on the default output device.
// oto allows a single context per process, so create one player and reuse it.
type TonePlayer struct {
	otoCtx     *oto.Context
	sampleRate int
	volume     float64
}

// NewTonePlayer opens the output device.
func NewTonePlayer(sampleRate int, volume float64) (*TonePlayer, error) {
	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: toneChannelCount,
		Format:       oto.FormatSignedInt16LE,
	}

	otoCtx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio output: %w", err)
	}
	<-readyChan

	return &TonePlayer{
		otoCtx:     otoCtx,
		sampleRate: sampleRate,
		volume:     volume,
	}, nil
}

// Play sounds frequency Hz for d, returning early if ctx is cancelled.
func (p *TonePlayer) Play(ctx context.Context, frequency float64, d time.Duration) error {
	if frequency <= 0 {
		return fmt.Errorf("invalid tone frequency: %v", frequency)
	}

	r := newToneReader(p.sampleRate, frequency, p.volume, d)
	player := p.otoCtx.NewPlayer(r)
	defer player.Close()
	player.Play()

	timer := time.NewTimer(d + 50*time.Millisecond)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		player.Pause()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// toneReader implements io.Reader producing interleaved S16LE stereo with a
// short fade at both ends to avoid clicks.
type toneReader struct {
	mu      sync.Mutex
	osc     *SineWave
	total   int // frames to produce
	written int
	fadeLen int
	mono    []float32
}

func newToneReader(sampleRate int, frequency, volume float64, d time.Duration) *toneReader {
	total := int(d.Seconds() * float64(sampleRate))
	fade := int(toneFadeSeconds * float64(sampleRate))
	if fade*2 > total {
		fade = total / 2
	}
	return &toneReader{
		osc:     NewSineWave(sampleRate, frequency, volume),
		total:   total,
		fadeLen: fade,
	}
}

func (r *toneReader) Read(buf []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	frameBytes := toneChannelCount * toneBitDepth
	frames := len(buf) / frameBytes
	if cap(r.mono) < frames {
		r.mono = make([]float32, frames)
	}
	mono := r.mono[:frames]
	r.osc.Read(mono)

	for i, s := range mono {
		pos := r.written + i
		var v float32
		if pos < r.total {
			v = s * r.gain(pos)
		}
		sample := uint16(int16(v * 32767))
		idx := i * frameBytes
		binary.LittleEndian.PutUint16(buf[idx:], sample)
		binary.LittleEndian.PutUint16(buf[idx+2:], sample)
	}
	r.written += frames

	// Keep feeding silence after the tone; the player is closed by Play.
	return frames * frameBytes, nil
}

func (r *toneReader) gain(pos int) float32 {
	if r.fadeLen == 0 {
		return 1
	}
	if pos < r.fadeLen {
		return float32(pos) / float32(r.fadeLen)
	}
	if tail := r.total - pos; tail < r.fadeLen {
		return float32(tail) / float32(r.fadeLen)
	}
	return 1
}
