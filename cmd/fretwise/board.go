package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/realtime-ai/fretwise/pkg/fretboard"
	"github.com/realtime-ai/fretwise/pkg/notemath"
	"github.com/realtime-ai/fretwise/pkg/tui"
)

var (
	boardJSON     bool
	boardFrets    int
	boardDetected string
)

var boardCmd = &cobra.Command{
	Use:   "board",
	Short: "Print the fretboard for a key",
	Example: `  fretwise board --key G
  fretwise board --key D --detected F# --json`,
	RunE: runBoard,
}

func init() {
	boardCmd.Flags().BoolVar(&boardJSON, "json", false, "print the board as JSON")
	boardCmd.Flags().IntVar(&boardFrets, "frets", fretboard.NumFrets-1, "highest fret to draw")
	boardCmd.Flags().StringVar(&boardDetected, "detected", "", "pitch class to highlight as sounding")
	rootCmd.AddCommand(boardCmd)
}

func runBoard(cmd *cobra.Command, args []string) error {
	key, err := cfg.KeyPitchClass()
	if err != nil {
		return err
	}
	tuning, err := cfg.BoardTuning()
	if err != nil {
		return err
	}

	var detected *notemath.PitchClass
	if boardDetected != "" {
		pc, err := notemath.ParsePitchClass(boardDetected)
		if err != nil {
			return err
		}
		detected = &pc
	}

	board := fretboard.NewModel(tuning).Board(key, detected)
	if boardJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(board)
	}

	fmt.Println(notemath.KeySignatureLabel(key))
	fmt.Println(scaleLine(key))
	fmt.Println(tui.RenderBoard(board, boardFrets))
	return nil
}

func scaleLine(key notemath.PitchClass) string {
	names := make([]string, 0, 7)
	for _, pc := range notemath.ScalePitchClasses(key) {
		names = append(names, pc.Name())
	}
	return "Scale: " + strings.Join(names, " ")
}
