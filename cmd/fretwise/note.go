package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/realtime-ai/fretwise/pkg/fretboard"
	"github.com/realtime-ai/fretwise/pkg/notemath"
)

var noteCmd = &cobra.Command{
	Use:     "note <frequency>",
	Short:   "Name the note nearest to a frequency",
	Example: "  fretwise note 196\n  fretwise note 446.2",
	Args:    cobra.ExactArgs(1),
	RunE:    runNote,
}

func init() {
	rootCmd.AddCommand(noteCmd)
}

func runNote(cmd *cobra.Command, args []string) error {
	freq, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("frequency must be a number: %w", err)
	}
	note, err := notemath.FreqToNote(freq)
	if err != nil {
		return err
	}
	cents, _ := notemath.Cents(freq)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s  %.2f Hz  %+.1f cents\n", note, note.Frequency(), cents)
	if k, err := note.MIDIKey(); err == nil {
		fmt.Fprintf(out, "MIDI key %d\n", k)
	}

	tuning, err := cfg.BoardTuning()
	if err != nil {
		return err
	}
	if pos := fretboard.NewModel(tuning).PositionsOfNote(note); len(pos) > 0 {
		fmt.Fprint(out, "Played at:")
		for _, p := range pos {
			fmt.Fprintf(out, " string %d fret %d;", p.String+1, p.Fret)
		}
		fmt.Fprintln(out)
	}
	return nil
}
