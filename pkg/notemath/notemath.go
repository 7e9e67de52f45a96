// Package notemath converts between frequencies, pitch classes and octaves.
//
// Pitch classes are numbered from F rather than C, matching the fretboard
// grid where offset 0 sits on F:
//
//	0 F   1 F#  2 G   3 G#  4 A   5 A#
//	6 B   7 C   8 C#  9 D  10 D# 11 E
//
// Octaves change between B and C, so A4 (440 Hz) is {A, 4} and the C a
// major sixth below it is {C, 4}.
//
// Usage:
//
//	n, err := notemath.FreqToNote(440)
//	fmt.Println(n) // A4
package notemath

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ReferenceA4 is the tuning reference in Hz.
const ReferenceA4 = 440.0

// referenceOffset is the number of semitones from F up to A.
const referenceOffset = 4

var log2A4 = math.Log2(ReferenceA4)

// ErrInvalidFrequency is returned for non-positive or non-finite frequencies.
var ErrInvalidFrequency = errors.New("invalid frequency")

// PitchClass is a semitone identity in [0,11], independent of octave.
type PitchClass int

var pitchClassNames = [12]string{"F", "F#", "G", "G#", "A", "A#", "B", "C", "C#", "D", "D#", "E"}

// NewPitchClass folds any integer into [0,11].
func NewPitchClass(v int) PitchClass {
	return PitchClass(mod12(v))
}

// Valid reports whether pc is in [0,11].
func (pc PitchClass) Valid() bool {
	return pc >= 0 && pc < 12
}

// Name returns the sharp-spelled note name, e.g. "C#".
func (pc PitchClass) Name() string {
	return pitchClassNames[mod12(int(pc))]
}

func (pc PitchClass) String() string {
	return pc.Name()
}

// ParsePitchClass resolves a sharp-spelled note name ("C", "F#").
func ParsePitchClass(name string) (PitchClass, error) {
	for i, n := range pitchClassNames {
		if n == name {
			return PitchClass(i), nil
		}
	}
	return 0, fmt.Errorf("unknown note name %q", name)
}

// ParseNote parses a note name with an octave, e.g. "A4", "C#3" or "E-1".
func ParseNote(s string) (Note, error) {
	i := len(s)
	for i > 0 && (s[i-1] >= '0' && s[i-1] <= '9') {
		i--
	}
	if i > 0 && s[i-1] == '-' {
		i--
	}
	if i == 0 || i == len(s) {
		return Note{}, fmt.Errorf("invalid note %q", s)
	}
	octave, err := strconv.Atoi(s[i:])
	if err != nil {
		return Note{}, fmt.Errorf("invalid octave in %q", s)
	}
	name := strings.ToUpper(s[:1]) + s[1:i]
	pc, err := ParsePitchClass(name)
	if err != nil {
		return Note{}, err
	}
	return Note{PitchClass: pc, Octave: octave}, nil
}

// Note is a pitch class together with its octave number.
type Note struct {
	PitchClass PitchClass `json:"pitch_class"`
	Octave     int        `json:"octave"`
}

func (n Note) String() string {
	return fmt.Sprintf("%s%d", n.PitchClass.Name(), n.Octave)
}

// Semitone returns the F-aligned semitone index of the note, the inverse
// of the index FreqToNote computes (A4 is 4).
func (n Note) Semitone() int {
	m := n.Octave - 3
	lo := 12*m - 17
	return lo + mod12(int(n.PitchClass)-lo)
}

// Frequency re-synthesises the equal-tempered frequency of the note.
func (n Note) Frequency() float64 {
	return ReferenceA4 * math.Pow(2, float64(n.Semitone()-referenceOffset)/12)
}

// FreqToNote maps a frequency to the nearest equal-tempered note.
func FreqToNote(freq float64) (Note, error) {
	idx, err := semitoneIndex(freq)
	if err != nil {
		return Note{}, err
	}
	return noteFromIndex(idx), nil
}

// NoteFromSemitone is the inverse of Note.Semitone.
func NoteFromSemitone(idx int) Note {
	return noteFromIndex(idx)
}

// Cents returns how far freq lies from the nearest note, in [-50, 50].
func Cents(freq float64) (float64, error) {
	idx, err := semitoneIndex(freq)
	if err != nil {
		return 0, err
	}
	target := noteFromIndex(idx).Frequency()
	return 1200 * math.Log2(freq/target), nil
}

// TransposePitchClass moves pc by delta semitones, wrapping in both directions.
func TransposePitchClass(pc PitchClass, delta int) PitchClass {
	return PitchClass(mod12(int(pc) + delta))
}

// KeySignatureLabel names the major key on tonic and its relative minor,
// e.g. "C Major / A Minor".
func KeySignatureLabel(tonic PitchClass) string {
	return fmt.Sprintf("%s Major / %s Minor", tonic.Name(), TransposePitchClass(tonic, 9).Name())
}

func semitoneIndex(freq float64) (int, error) {
	if freq <= 0 || math.IsNaN(freq) || math.IsInf(freq, 0) {
		return 0, fmt.Errorf("%w: %v", ErrInvalidFrequency, freq)
	}
	// Halves round up, not away from zero.
	return int(math.Floor((math.Log2(freq)-log2A4)*12+0.5)) + referenceOffset, nil
}

func noteFromIndex(idx int) Note {
	return Note{
		PitchClass: PitchClass(mod12(idx)),
		Octave:     3 + int(math.Ceil(float64(idx+6)/12)),
	}
}

func mod12(v int) int {
	return ((v % 12) + 12) % 12
}
