// Package tui renders a fretwise session in the terminal with Bubble Tea.
package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/realtime-ai/fretwise/pkg/notemath"
	"github.com/realtime-ai/fretwise/pkg/session"
)

// Controller is the part of a session the view drives.
type Controller interface {
	ShiftKey(ctx context.Context, delta int) notemath.PitchClass
	ClearHistory()
	Snapshot() session.Snapshot
	History() *session.History
}

// Pauser is an audio source that can stop delivering frames.
type Pauser interface {
	Pause()
	Resume()
	Paused() bool
}

// snapshotMsg carries a session snapshot into Update.
type snapshotMsg session.Snapshot

// closedMsg means the snapshot subscription ended.
type closedMsg struct{}

type Option func(*Model)

// WithCapture lets space pause and resume the microphone.
func WithCapture(p Pauser) Option {
	return func(m *Model) { m.capture = p }
}

// WithExportPath enables exporting the history with 'e'.
func WithExportPath(path string) Option {
	return func(m *Model) { m.exportPath = path }
}

// Model is the Bubble Tea model of the board view.
type Model struct {
	ctrl       Controller
	snaps      <-chan session.Snapshot
	capture    Pauser
	exportPath string

	snap     session.Snapshot
	width    int
	message  string
	quitting bool
}

// New returns a model showing ctrl. snaps is usually from
// session.Subscribe; nil means the view only refreshes on its own keys.
func New(ctrl Controller, snaps <-chan session.Snapshot, opts ...Option) Model {
	m := Model{
		ctrl:  ctrl,
		snaps: snaps,
		snap:  ctrl.Snapshot(),
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

func (m Model) Init() tea.Cmd {
	return waitForSnapshot(m.snaps)
}

func waitForSnapshot(snaps <-chan session.Snapshot) tea.Cmd {
	if snaps == nil {
		return nil
	}
	return func() tea.Msg {
		snap, ok := <-snaps
		if !ok {
			return closedMsg{}
		}
		return snapshotMsg(snap)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case snapshotMsg:
		// subscriptions may deliver out of order under load
		if msg.Seq >= m.snap.Seq {
			m.snap = session.Snapshot(msg)
		}
		return m, waitForSnapshot(m.snaps)

	case closedMsg:
		m.snaps = nil
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		m.quitting = true
		return m, tea.Quit

	case "left", "h":
		key := m.ctrl.ShiftKey(context.Background(), -1)
		m.message = "Key: " + notemath.KeySignatureLabel(key)

	case "right", "l":
		key := m.ctrl.ShiftKey(context.Background(), 1)
		m.message = "Key: " + notemath.KeySignatureLabel(key)

	case " ", "space":
		if m.capture == nil {
			m.message = "No microphone attached"
			break
		}
		if m.capture.Paused() {
			m.capture.Resume()
			m.message = "Listening"
		} else {
			m.capture.Pause()
			m.message = "Paused"
		}

	case "c":
		m.ctrl.ClearHistory()
		m.message = "History cleared"

	case "e":
		if m.exportPath == "" {
			m.message = "Export is disabled (use --export)"
			break
		}
		if err := m.ctrl.History().ExportMIDI(m.exportPath); err != nil {
			m.message = fmt.Sprintf("Export failed: %v", err)
			break
		}
		m.message = "Saved " + m.exportPath
	}

	m.snap = m.ctrl.Snapshot()
	return m, nil
}

// Snapshot returns the snapshot the view is showing.
func (m Model) Snapshot() session.Snapshot {
	return m.snap
}
