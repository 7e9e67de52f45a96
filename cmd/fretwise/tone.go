package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/realtime-ai/fretwise/pkg/audio"
	"github.com/realtime-ai/fretwise/pkg/notemath"
)

var toneCmd = &cobra.Command{
	Use:   "tone <note|frequency>",
	Short: "Play a reference tone",
	Long: `Play a sine tone on the default output device. Useful for checking
the detector without a guitar: run "fretwise listen" in another terminal.`,
	Example: "  fretwise tone A4\n  fretwise tone 196 --duration 5s",
	Args:    cobra.ExactArgs(1),
	RunE:    runTone,
}

func init() {
	toneCmd.Flags().DurationVarP(&cfg.ToneDuration, "duration", "d", cfg.ToneDuration, "tone length")
	toneCmd.Flags().Float64Var(&cfg.ToneVolume, "volume", cfg.ToneVolume, "tone volume 0..1")
	rootCmd.AddCommand(toneCmd)
}

func toneFrequency(arg string) (float64, string, error) {
	if f, err := strconv.ParseFloat(arg, 64); err == nil {
		if f <= 0 {
			return 0, "", fmt.Errorf("frequency must be positive, got %v", f)
		}
		return f, fmt.Sprintf("%.2f Hz", f), nil
	}
	n, err := notemath.ParseNote(arg)
	if err != nil {
		return 0, "", err
	}
	return n.Frequency(), fmt.Sprintf("%s (%.2f Hz)", n, n.Frequency()), nil
}

func runTone(cmd *cobra.Command, args []string) error {
	freq, label, err := toneFrequency(args[0])
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	player, err := audio.NewTonePlayer(cfg.SampleRate, cfg.ToneVolume)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "playing %s for %s\n", label, cfg.ToneDuration)
	return player.Play(ctx, freq, cfg.ToneDuration)
}
