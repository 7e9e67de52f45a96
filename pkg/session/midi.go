package session

import (
	"errors"
	"fmt"
	"time"

	"gitlab.com/gomidi/midi/v2/smf"
)

const (
	ticksPerQuarterNote = 960
	exportBPM           = 120
	exportVelocity      = 100
	// minNoteTicks keeps notes played in quick succession audible.
	minNoteTicks = ticksPerQuarterNote / 8
	// maxNoteBeats caps the gap left by a pause between notes.
	maxNoteBeats = 8
)

var ErrEmptyHistory = errors.New("history is empty")

// SMF renders the history as a two-track Standard MIDI File. Each note lasts
// until the next one starts, the last one for a quarter note.
func (h *History) SMF() (*smf.SMF, error) {
	entries := h.Entries()
	if len(entries) == 0 {
		return nil, ErrEmptyHistory
	}

	sm := smf.New()
	sm.TimeFormat = smf.MetricTicks(ticksPerQuarterNote)

	var track0 smf.Track
	track0.Add(0, smf.MetaMeter(4, 4))
	track0.Add(0, smf.MetaTempo(exportBPM))
	track0.Close(0)
	if err := sm.Add(track0); err != nil {
		return nil, fmt.Errorf("error adding tempo track: %w", err)
	}

	var track smf.Track
	for i, e := range entries {
		on, err := e.Note.NoteOn(0, exportVelocity)
		if err != nil {
			return nil, err
		}
		off, err := e.Note.NoteOff(0)
		if err != nil {
			return nil, err
		}

		length := uint32(ticksPerQuarterNote)
		if i+1 < len(entries) {
			length = durationToTicks(entries[i+1].At.Sub(e.At))
		}
		track.Add(0, on)
		track.Add(length, off)
	}
	track.Close(0)
	if err := sm.Add(track); err != nil {
		return nil, fmt.Errorf("error adding note track: %w", err)
	}
	return sm, nil
}

// ExportMIDI writes the history to path.
func (h *History) ExportMIDI(path string) error {
	sm, err := h.SMF()
	if err != nil {
		return err
	}
	if err := sm.WriteFile(path); err != nil {
		return fmt.Errorf("error writing MIDI file: %w", err)
	}
	return nil
}

func durationToTicks(d time.Duration) uint32 {
	beat := time.Minute / exportBPM
	if d > maxNoteBeats*beat {
		d = maxNoteBeats * beat
	}
	ticks := uint32(d * ticksPerQuarterNote / beat)
	if ticks < minNoteTicks {
		return minNoteTicks
	}
	return ticks
}
