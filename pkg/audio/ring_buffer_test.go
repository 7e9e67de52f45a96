package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ramp(start, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(start + i)
	}
	return out
}

func TestNewSampleWindow(t *testing.T) {
	w := NewSampleWindow(5120)
	assert.Equal(t, 5120, w.Capacity())
	assert.Equal(t, 0, w.Filled())
	for _, s := range w.Samples() {
		if s != 0 {
			t.Fatal("expected zero-filled window")
		}
	}

	assert.Equal(t, DefaultWindowSize, NewSampleWindow(0).Capacity())
}

func TestSampleWindow_FirstPushBeforeFull(t *testing.T) {
	w := NewSampleWindow(8)
	require.NoError(t, w.Push([]float32{1, 2, 3}))

	assert.Equal(t, []float32{0, 0, 0, 0, 0, 1, 2, 3}, w.Snapshot())
	assert.Equal(t, 3, w.Filled())
	assert.False(t, w.Full())
}

func TestSampleWindow_SteadyStateStreaming(t *testing.T) {
	w := NewSampleWindow(8)
	for i := 0; i < 10; i++ {
		require.NoError(t, w.Push(ramp(i*3, 3)))
	}
	// 30 samples pushed: window holds 22..29
	assert.Equal(t, ramp(22, 8), w.Snapshot())
	assert.True(t, w.Full())
}

func TestSampleWindow_VaryingFrameSizes(t *testing.T) {
	const size = 5120
	w := NewSampleWindow(size)

	var all []float32
	next := 0
	for _, n := range []int{1, 7, 5120, 1, 7, 1024, 5120, 7, 1, 333, 7, 1} {
		frame := ramp(next, n)
		next += n
		all = append(all, frame...)
		require.NoError(t, w.Push(frame))

		if len(all) >= size {
			require.Equal(t, all[len(all)-size:], w.Snapshot())
		}
	}
}

func TestSampleWindow_SilenceThenFrame(t *testing.T) {
	w := NewSampleWindow(5120)
	silent := make([]float32, 5120)
	require.NoError(t, w.Push(silent))

	frame := make([]float32, 1024)
	for i := range frame {
		frame[i] = 0.5
	}
	require.NoError(t, w.Push(frame))

	got := w.Snapshot()
	assert.Equal(t, frame, got[4096:])
	assert.Equal(t, silent[1024:], got[:4096])
}

func TestSampleWindow_FrameTooLarge(t *testing.T) {
	w := NewSampleWindow(4)
	require.NoError(t, w.Push([]float32{1, 2, 3, 4}))

	err := w.Push([]float32{5, 6, 7, 8, 9})
	assert.ErrorIs(t, err, ErrFrameTooLarge)
	assert.Equal(t, []float32{1, 2, 3, 4}, w.Snapshot(), "window must be unchanged")
}

func TestSampleWindow_EmptyFrame(t *testing.T) {
	w := NewSampleWindow(4)
	require.NoError(t, w.Push([]float32{1, 2}))
	require.NoError(t, w.Push(nil))
	assert.Equal(t, []float32{0, 0, 1, 2}, w.Snapshot())
}

func TestSampleWindow_Reset(t *testing.T) {
	w := NewSampleWindow(4)
	require.NoError(t, w.Push([]float32{1, 2, 3, 4}))
	w.Reset()

	assert.Equal(t, []float32{0, 0, 0, 0}, w.Snapshot())
	assert.Equal(t, 0, w.Filled())
}

func TestSampleWindow_SnapshotIsCopy(t *testing.T) {
	w := NewSampleWindow(4)
	require.NoError(t, w.Push([]float32{1, 2, 3, 4}))
	snap := w.Snapshot()
	snap[0] = 99
	assert.Equal(t, float32(1), w.Samples()[0])
}
