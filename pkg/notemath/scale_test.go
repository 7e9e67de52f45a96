package notemath

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDegreeOf(t *testing.T) {
	want := map[int]int{0: 1, 2: 2, 4: 3, 5: 4, 7: 5, 9: 6, 11: 7, 12: 1, -1: 7, -12: 1}
	for residue, degree := range want {
		got, ok := DegreeOf(residue)
		assert.True(t, ok, "residue %d", residue)
		assert.Equal(t, degree, got, "residue %d", residue)
	}

	for _, residue := range []int{1, 3, 6, 8, 10, 13} {
		_, ok := DegreeOf(residue)
		assert.False(t, ok, "residue %d", residue)
	}
}

func TestScalePitchClasses(t *testing.T) {
	names := []string{}
	for _, pc := range ScalePitchClasses(7) {
		names = append(names, pc.Name())
	}
	assert.Equal(t, []string{"C", "D", "E", "F", "G", "A", "B"}, names)

	assert.True(t, InMajorScale(0, 7))  // F in C major
	assert.False(t, InMajorScale(1, 7)) // F# in C major
	assert.True(t, InMajorScale(1, 2))  // F# in G major
}

func TestDegreeColor(t *testing.T) {
	assert.Equal(t, "rgb(229,107,26)", DegreeColor(1))
	assert.Equal(t, DegreeColor(2), DegreeColor(6))
	assert.Equal(t, "rgb(232,224,73)", DegreeColor(5))
	assert.Empty(t, DegreeColor(0))
	assert.Empty(t, DegreeColor(8))
	assert.Equal(t, "#E56B1A", DegreeHexColor(1))
	assert.Empty(t, DegreeHexColor(-1))
}
