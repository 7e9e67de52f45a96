package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/realtime-ai/fretwise/pkg/fretboard"
	"github.com/realtime-ai/fretwise/pkg/notemath"
	"github.com/realtime-ai/fretwise/pkg/session"
)

const cellWidth = 4

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#7D56F4")).Padding(0, 1)
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
	labelStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	noteStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00FF00"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5555"))
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#555555"))
	soundingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#000000")).
			Background(lipgloss.Color("#FFFFFF"))
)

// fret markers drawn under the board
var inlays = map[int]string{3: "•", 5: "•", 7: "•", 9: "•", 12: "••", 15: "•", 17: "•", 19: "•", 21: "•"}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	snap := m.snap

	b.WriteString(titleStyle.Render("fretwise"))
	b.WriteString("  ")
	b.WriteString(snap.KeyLabel)
	b.WriteString(labelStyle.Render(fmt.Sprintf("  (%s tuning)", snap.Board.Tuning)))
	b.WriteString("\n\n")

	b.WriteString(RenderBoard(snap.Board, m.frets()))
	b.WriteString("\n")

	b.WriteString(renderStatus(snap))
	b.WriteString("\n")

	if m.message != "" {
		b.WriteString(labelStyle.Render(m.message))
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render("←/→ key • space pause • c clear • e export • q quit"))
	b.WriteString("\n")
	return b.String()
}

// frets is how many frets fit in the terminal.
func (m Model) frets() int {
	if m.width <= 0 {
		return fretboard.NumFrets
	}
	n := (m.width - 3) / cellWidth
	if n < 5 {
		n = 5
	}
	if n > fretboard.NumFrets {
		n = fretboard.NumFrets
	}
	return n
}

// RenderBoard draws the first frets of board as text rows, one per string.
func RenderBoard(board fretboard.Board, frets int) string {
	var b strings.Builder

	b.WriteString("   ")
	for f := 0; f < frets; f++ {
		b.WriteString(dimStyle.Render(fmt.Sprintf("%-*d", cellWidth, f)))
	}
	b.WriteString("\n")

	for s := 0; s < fretboard.NumStrings; s++ {
		open := board.Cells[s][0]
		b.WriteString(dimStyle.Render(fmt.Sprintf("%-3s", open.Name)))
		for f := 0; f < frets; f++ {
			b.WriteString(renderCell(board.Cells[s][f]))
		}
		b.WriteString("\n")
	}

	b.WriteString("   ")
	for f := 0; f < frets; f++ {
		b.WriteString(dimStyle.Render(fmt.Sprintf("%-*s", cellWidth, inlays[f])))
	}
	b.WriteString("\n")
	return b.String()
}

func renderCell(c fretboard.Cell) string {
	text := fmt.Sprintf("%-*s", cellWidth, c.Name)
	switch {
	case c.Sounding:
		return soundingStyle.Render(text)
	case c.InScale:
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(notemath.DegreeHexColor(c.Degree)))
		if c.IsRoot {
			style = style.Bold(true).Underline(true)
		}
		return style.Render(text)
	default:
		return dimStyle.Render(fmt.Sprintf("%-*s", cellWidth, "·"))
	}
}

func renderStatus(snap session.Snapshot) string {
	var b strings.Builder

	b.WriteString(labelStyle.Render("Note: "))
	if snap.Note != nil {
		b.WriteString(noteStyle.Render(snap.Note.String()))
		b.WriteString(labelStyle.Render(fmt.Sprintf("  %.1f Hz  %+.0f¢", snap.Frequency, snap.Cents)))
	} else {
		b.WriteString(dimStyle.Render("—"))
	}
	b.WriteString("\n")

	b.WriteString(labelStyle.Render("History: "))
	if len(snap.History) == 0 {
		b.WriteString(dimStyle.Render("none"))
	} else {
		b.WriteString(strings.Join(snap.History, " "))
	}
	b.WriteString("\n")

	b.WriteString(labelStyle.Render("Tracking: "))
	switch snap.Tracking {
	case session.TrackingFailed:
		b.WriteString(errorStyle.Render("failed: " + snap.Error))
	case session.TrackingOn:
		b.WriteString(noteStyle.Render(string(snap.Tracking)))
	default:
		b.WriteString(string(snap.Tracking))
	}
	b.WriteString("\n")
	return b.String()
}
