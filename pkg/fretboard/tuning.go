package fretboard

// Tuning describes how each string departs from a uniform ladder of fourths.
// A deviation of d lowers every position on that string by d semitones.
type Tuning struct {
	Name      string
	deviation [NumStrings]int
}

var (
	// StandardTuning is E B G D A E read from the top string down: fourths
	// everywhere except the major third between the G and B strings.
	StandardTuning = Tuning{Name: "standard", deviation: [NumStrings]int{1, 1, 0, 0, 0, 0}}

	// DropDTuning lowers the bottom string a whole tone.
	DropDTuning = Tuning{Name: "drop-d", deviation: [NumStrings]int{1, 1, 0, 0, 0, 2}}

	// FourthsTuning is the uniform ladder with no deviation.
	FourthsTuning = Tuning{Name: "fourths"}
)

// TuningByName resolves a tuning name used in configuration.
func TuningByName(name string) (Tuning, bool) {
	for _, t := range []Tuning{StandardTuning, DropDTuning, FourthsTuning} {
		if t.Name == name {
			return t, true
		}
	}
	return Tuning{}, false
}

// Deviation returns the deviation of a string. Strings outside the board
// (used for overlay continuity) take the value of the nearest real string.
func (t Tuning) Deviation(str int) int {
	switch {
	case str < 0:
		str = 0
	case str >= NumStrings:
		str = NumStrings - 1
	}
	return t.deviation[str]
}
