// Package fretboard maps string/fret positions to pitches and classifies
// them against a major-scale key.
//
// Strings are numbered from the top row of the board (high E in standard
// tuning) to the bottom row. The absolute offset of a position is the
// F-aligned semitone index used by notemath, so string 0 fret 1 is F4 and
// offset(pos) mod 12 is the pitch class of the position.
//
// A Model carries only its tuning. Classifying for a different key is a pure
// recomputation; nothing is cached between calls.
package fretboard

import (
	"github.com/realtime-ai/fretwise/pkg/notemath"
)

const (
	NumStrings = 6
	NumFrets   = 22 // frets 0..21

	// Overlay frets extend past the visible board so a shifted scale pattern
	// stays continuous at both edges.
	HaloMinFret = -12
	HaloMaxFret = 23
)

// Position is a string/fret coordinate.
type Position struct {
	String int `json:"string"`
	Fret   int `json:"fret"`
}

// Visible reports whether the position is on the drawn board.
func (p Position) Visible() bool {
	return p.String >= 0 && p.String < NumStrings && p.Fret >= 0 && p.Fret < NumFrets
}

// Classification is the scale role of a position in a key.
type Classification struct {
	InScale bool `json:"in_scale"`
	Degree  int  `json:"degree,omitempty"` // 1..7, 0 when not in scale
	IsRoot  bool `json:"is_root"`
}

// Model answers pitch questions for one tuning.
type Model struct {
	tuning Tuning
}

// NewModel returns a model for the given tuning.
func NewModel(t Tuning) *Model {
	return &Model{tuning: t}
}

// Tuning returns the model's tuning.
func (m *Model) Tuning() Tuning {
	return m.tuning
}

// Offset returns the absolute semitone offset of a position.
func (m *Model) Offset(p Position) int {
	return p.Fret - 5*p.String - m.tuning.Deviation(p.String)
}

// PitchClass returns the pitch class sounding at a position.
func (m *Model) PitchClass(p Position) notemath.PitchClass {
	return notemath.NewPitchClass(m.Offset(p))
}

// NoteAt returns the exact note, octave included, sounding at a position.
func (m *Model) NoteAt(p Position) notemath.Note {
	return notemath.NoteFromSemitone(m.Offset(p))
}

// Classify places a position in the major scale on key. Any integer key
// value is accepted and folded mod 12.
func (m *Model) Classify(p Position, key notemath.PitchClass) Classification {
	residue := m.Offset(p) - int(key)
	degree, ok := notemath.DegreeOf(residue)
	if !ok {
		return Classification{}
	}
	return Classification{
		InScale: true,
		Degree:  degree,
		IsRoot:  degree == 1,
	}
}

// IsSounding reports whether a position plays the detected pitch class.
func (m *Model) IsSounding(p Position, detected notemath.PitchClass) bool {
	return m.PitchClass(p) == notemath.NewPitchClass(int(detected))
}

// SoundingPositions returns every visible position that plays the detected
// pitch class, ordered by string then fret.
func (m *Model) SoundingPositions(detected notemath.PitchClass) []Position {
	var out []Position
	for _, p := range Grid() {
		if m.IsSounding(p, detected) {
			out = append(out, p)
		}
	}
	return out
}

// PositionsOfNote returns the visible positions that play exactly n.
func (m *Model) PositionsOfNote(n notemath.Note) []Position {
	target := n.Semitone()
	var out []Position
	for _, p := range Grid() {
		if m.Offset(p) == target {
			out = append(out, p)
		}
	}
	return out
}

// Grid enumerates the visible board, string-major.
func Grid() []Position {
	return enumerate(0, NumFrets-1)
}

// Halo enumerates the extended overlay range, string-major.
func Halo() []Position {
	return enumerate(HaloMinFret, HaloMaxFret)
}

func enumerate(minFret, maxFret int) []Position {
	out := make([]Position, 0, NumStrings*(maxFret-minFret+1))
	for s := 0; s < NumStrings; s++ {
		for f := minFret; f <= maxFret; f++ {
			out = append(out, Position{String: s, Fret: f})
		}
	}
	return out
}
