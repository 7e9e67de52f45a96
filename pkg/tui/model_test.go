package tui

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/realtime-ai/fretwise/pkg/control"
	"github.com/realtime-ai/fretwise/pkg/notemath"
	"github.com/realtime-ai/fretwise/pkg/session"
)

type fakeCapture struct{ paused bool }

func (f *fakeCapture) Pause()       { f.paused = true }
func (f *fakeCapture) Resume()      { f.paused = false }
func (f *fakeCapture) Paused() bool { return f.paused }

func key(s string) tea.KeyMsg {
	switch s {
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune(" ")}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	require.True(t, ok)
	return nm, cmd
}

func TestArrowKeysShiftKey(t *testing.T) {
	sess := session.New(nil, session.DefaultConfig())
	m := New(sess, nil)
	assert.Contains(t, m.View(), "C Major / A Minor")

	m, _ = update(t, m, key("right"))
	assert.Equal(t, notemath.PitchClass(8), sess.Key())
	assert.Contains(t, m.View(), "C# Major / A# Minor")

	m, _ = update(t, m, key("left"))
	m, _ = update(t, m, key("h"))
	assert.Equal(t, notemath.PitchClass(6), sess.Key())
	assert.Contains(t, m.View(), "B Major / G# Minor")
}

func TestSnapshotsUpdateView(t *testing.T) {
	sess := session.New(nil, session.DefaultConfig())
	snaps, cancel := sess.Subscribe(4)
	defer cancel()
	m := New(sess, snaps)

	sess.Handle(control.DetectorReady{})
	sess.Handle(control.PitchDetected{Frequency: 440})

	cmd := m.Init()
	require.NotNil(t, cmd)
	for i := 0; i < 2; i++ {
		m, cmd = update(t, m, cmd())
	}
	require.NotNil(t, cmd)

	view := m.View()
	assert.Contains(t, view, "A4")
	assert.Contains(t, view, "440.0 Hz")
	assert.Contains(t, view, "History: A")
	assert.Contains(t, view, "Tracking: on")

	cancel()
	m, cmd = update(t, m, cmd())
	assert.Nil(t, cmd, "closed subscription stops polling")
}

func TestStaleSnapshotIgnored(t *testing.T) {
	sess := session.New(nil, session.DefaultConfig())
	sess.ShiftKey(context.Background(), 1)
	m := New(sess, nil)

	stale := sess.Snapshot()
	stale.Seq = 0
	stale.KeyLabel = "stale"
	m, _ = update(t, m, snapshotMsg(stale))
	assert.NotContains(t, m.View(), "stale")
}

func TestSpacePausesCapture(t *testing.T) {
	sess := session.New(nil, session.DefaultConfig())

	m := New(sess, nil)
	m, _ = update(t, m, key(" "))
	assert.Contains(t, m.View(), "No microphone attached")

	capture := &fakeCapture{}
	m = New(sess, nil, WithCapture(capture))
	m, _ = update(t, m, key(" "))
	assert.True(t, capture.paused)
	assert.Contains(t, m.View(), "Paused")
	m, _ = update(t, m, key(" "))
	assert.False(t, capture.paused)
	assert.Contains(t, m.View(), "Listening")
}

func TestClearAndExportHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.mid")
	sess := session.New(nil, session.DefaultConfig())
	m := New(sess, nil, WithExportPath(path))

	m, _ = update(t, m, key("e"))
	assert.Contains(t, m.View(), "Export failed")

	sess.Handle(control.PitchDetected{Frequency: 329.63})
	m, _ = update(t, m, key("e"))
	assert.Contains(t, m.View(), "Saved "+path)
	assert.FileExists(t, path)

	m, _ = update(t, m, key("c"))
	assert.Equal(t, 0, sess.History().Len())
	assert.Contains(t, m.View(), "History: none")
}

func TestQuit(t *testing.T) {
	m := New(session.New(nil, session.DefaultConfig()), nil)
	m, cmd := update(t, m, key("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Empty(t, m.View())
}

func TestBoardFitsWidth(t *testing.T) {
	m := New(session.New(nil, session.DefaultConfig()), nil)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 43, Height: 30})
	assert.Equal(t, 10, m.frets())

	lines := strings.Split(RenderBoard(m.Snapshot().Board, m.frets()), "\n")
	// header, six strings, inlays
	assert.Len(t, lines, 9)
	assert.True(t, strings.HasPrefix(lines[1], "E"))
}
