package fretboard

import (
	"github.com/realtime-ai/fretwise/pkg/notemath"
)

// Cell is one classified position, ready for a renderer.
type Cell struct {
	Position
	Classification
	PitchClass notemath.PitchClass `json:"pitch_class"`
	Name       string              `json:"name"`
	Color      string              `json:"color,omitempty"`
	Sounding   bool                `json:"sounding"`
}

// Board is an immutable classification of the whole board for one key and
// an optional detected pitch class.
type Board struct {
	Key      notemath.PitchClass  `json:"key"`
	Label    string               `json:"label"`
	Tuning   string               `json:"tuning"`
	Detected *notemath.PitchClass `json:"detected,omitempty"`

	// Cells holds the visible board indexed [string][fret].
	Cells [NumStrings][NumFrets]Cell `json:"cells"`

	// Overlay holds the in-scale positions of the halo range.
	Overlay []Cell `json:"overlay"`

	// Sounding lists every visible position playing the detected pitch class.
	Sounding []Position `json:"sounding"`
}

// Board classifies every position for key. detected may be nil when no
// pitch is being tracked.
func (m *Model) Board(key notemath.PitchClass, detected *notemath.PitchClass) Board {
	key = notemath.NewPitchClass(int(key))
	b := Board{
		Key:    key,
		Label:  notemath.KeySignatureLabel(key),
		Tuning: m.tuning.Name,
	}
	if detected != nil {
		d := notemath.NewPitchClass(int(*detected))
		b.Detected = &d
		b.Sounding = m.SoundingPositions(d)
	}

	for _, p := range Grid() {
		b.Cells[p.String][p.Fret] = m.cell(p, key, b.Detected)
	}
	for _, p := range Halo() {
		c := m.cell(p, key, b.Detected)
		if c.InScale {
			b.Overlay = append(b.Overlay, c)
		}
	}
	return b
}

// Cell returns the cell at a visible position.
func (b *Board) Cell(p Position) (Cell, bool) {
	if !p.Visible() {
		return Cell{}, false
	}
	return b.Cells[p.String][p.Fret], true
}

func (m *Model) cell(p Position, key notemath.PitchClass, detected *notemath.PitchClass) Cell {
	pc := m.PitchClass(p)
	c := Cell{
		Position:       p,
		Classification: m.Classify(p, key),
		PitchClass:     pc,
		Name:           pc.Name(),
	}
	c.Color = notemath.DegreeColor(c.Degree)
	if detected != nil {
		c.Sounding = pc == *detected
	}
	return c
}
