package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/realtime-ai/fretwise/pkg/config"
	"github.com/realtime-ai/fretwise/pkg/notemath"
)

func TestToneFrequency(t *testing.T) {
	f, label, err := toneFrequency("A4")
	require.NoError(t, err)
	assert.InDelta(t, 440.0, f, 1e-9)
	assert.Contains(t, label, "A4")

	f, _, err = toneFrequency("196")
	require.NoError(t, err)
	assert.Equal(t, 196.0, f)

	_, _, err = toneFrequency("-3")
	assert.Error(t, err)
	_, _, err = toneFrequency("H2")
	assert.Error(t, err)
}

func TestSessionConfigFromFlags(t *testing.T) {
	c := config.DefaultConfig()
	c.Key = "g"
	c.Tuning = "drop-d"

	sc, err := sessionConfig(c)
	require.NoError(t, err)
	assert.Equal(t, notemath.PitchClass(2), sc.Key)
	assert.Equal(t, "drop-d", sc.Tuning.Name)

	c.Tuning = "banjo"
	_, err = sessionConfig(c)
	assert.Error(t, err)
}

func TestServerConfigAddrOverride(t *testing.T) {
	prev := cfg
	t.Cleanup(func() { cfg = prev; serveAddr = "" })

	cfg = config.DefaultConfig()
	cfg.Addr = ":9000"
	c, err := serverConfig()
	require.NoError(t, err)
	assert.Equal(t, ":9000", c.Addr)

	serveAddr = "127.0.0.1:7000"
	c, err = serverConfig()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:7000", c.Addr)
}

func TestNoteCommand(t *testing.T) {
	var out bytes.Buffer
	noteCmd.SetOut(&out)
	t.Cleanup(func() { noteCmd.SetOut(nil) })

	require.NoError(t, runNote(noteCmd, []string{"440"}))
	assert.Contains(t, out.String(), "A4")
	assert.Contains(t, out.String(), "MIDI key 69")

	assert.Error(t, runNote(noteCmd, []string{"abc"}))
	assert.Error(t, runNote(noteCmd, []string{"0"}))
}

func TestScaleLine(t *testing.T) {
	for key, want := range map[string]string{
		"C": "Scale: C D E F G A B",
		"G": "Scale: G A B C D E F#",
		"F": "Scale: F G A A# C D E",
	} {
		pc, err := notemath.ParsePitchClass(key)
		require.NoError(t, err)
		assert.Equal(t, want, scaleLine(pc), key)
	}
}
