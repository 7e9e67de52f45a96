package notemath

// MajorScaleOffsets are the semitone offsets of the major scale above its tonic.
var MajorScaleOffsets = [7]int{0, 2, 4, 5, 7, 9, 11}

// degreeByResidue maps a residue above the tonic to its scale degree, 0 if
// the residue is outside the scale.
var degreeByResidue = [12]int{
	0: 1, 2: 2, 4: 3, 5: 4, 7: 5, 9: 6, 11: 7,
}

// Interval colours per scale degree, index 0 unused.
var degreeColors = [8]string{
	"",
	"rgb(229,107,26)",
	"rgb(35,100,160)",
	"rgb(44,140,107)",
	"rgba(128,128,128)",
	"rgb(232,224,73)",
	"rgb(35,100,160)",
	"rgba(128,128,128)",
}

var degreeHexColors = [8]string{
	"",
	"#E56B1A",
	"#2364A0",
	"#2C8C6B",
	"#808080",
	"#E8E049",
	"#2364A0",
	"#808080",
}

// DegreeOf returns the major-scale degree (1..7) of a semitone residue above
// the tonic. The residue is folded mod 12, so 12 is the octave and maps to 1.
func DegreeOf(residue int) (int, bool) {
	d := degreeByResidue[mod12(residue)]
	return d, d != 0
}

// InMajorScale reports whether pc belongs to the major scale on tonic.
func InMajorScale(pc, tonic PitchClass) bool {
	_, ok := DegreeOf(int(pc) - int(tonic))
	return ok
}

// ScalePitchClasses lists the seven pitch classes of the major scale on tonic.
func ScalePitchClasses(tonic PitchClass) [7]PitchClass {
	var out [7]PitchClass
	for i, off := range MajorScaleOffsets {
		out[i] = TransposePitchClass(tonic, off)
	}
	return out
}

// DegreeColor returns the CSS colour for a scale degree, "" when out of range.
func DegreeColor(degree int) string {
	if degree < 1 || degree > 7 {
		return ""
	}
	return degreeColors[degree]
}

// DegreeHexColor is DegreeColor as a #RRGGBB value for terminal styling.
func DegreeHexColor(degree int) string {
	if degree < 1 || degree > 7 {
		return ""
	}
	return degreeHexColors[degree]
}
