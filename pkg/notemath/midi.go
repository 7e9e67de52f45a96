package notemath

import (
	"fmt"

	"gitlab.com/gomidi/midi/v2"
)

// midiOffset converts the F-aligned semitone index to a MIDI key (C4 = 60).
const midiOffset = 65

// MIDIKey returns the MIDI key number of the note.
func (n Note) MIDIKey() (uint8, error) {
	k := n.Semitone() + midiOffset
	if k < 0 || k > 127 {
		return 0, fmt.Errorf("note %s outside MIDI range", n)
	}
	return uint8(k), nil //nolint:gosec // bounded above
}

// MIDINote converts a MIDI key number back to a Note.
func MIDINote(key uint8) Note {
	return noteFromIndex(int(key) - midiOffset)
}

// NoteOn returns the note-on message for n on channel.
func (n Note) NoteOn(channel, velocity uint8) (midi.Message, error) {
	key, err := n.MIDIKey()
	if err != nil {
		return nil, err
	}
	return midi.NoteOn(channel, key, velocity), nil
}

// NoteOff returns the matching note-off message.
func (n Note) NoteOff(channel uint8) (midi.Message, error) {
	key, err := n.MIDIKey()
	if err != nil {
		return nil, err
	}
	return midi.NoteOff(channel, key), nil
}
