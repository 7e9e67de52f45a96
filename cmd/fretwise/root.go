package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/realtime-ai/fretwise/pkg/config"
	"github.com/realtime-ai/fretwise/pkg/trace"
)

var version = "dev"

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "fretwise",
	Short: "Guitar fretboard scale trainer with live pitch detection",
	Long: `fretwise draws a guitar fretboard, overlays a major scale in any of the
twelve keys and highlights the note you are playing, detected from the
microphone in real time.

Settings come from FRETWISE_* environment variables (a .env file in the
working directory is loaded first) and can be overridden with flags.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		if cfg.TraceExporter == trace.ExporterNone {
			return nil
		}
		return trace.Initialize(cmd.Context(), cfg.Trace(version))
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if err := trace.Shutdown(context.Background()); err != nil {
			log.Printf("[fretwise] trace shutdown: %v", err)
		}
	},
}

func init() {
	// .env is optional
	_ = godotenv.Load()
	cfg = config.DefaultConfig()

	f := rootCmd.PersistentFlags()
	f.StringVarP(&cfg.Key, "key", "k", cfg.Key, "major key tonic, a note name (C, F#) or 0-11")
	f.StringVar(&cfg.Tuning, "tuning", cfg.Tuning, "guitar tuning: standard, drop-d or fourths")
	f.IntVar(&cfg.SampleRate, "rate", cfg.SampleRate, "capture sample rate in Hz")
	f.IntVar(&cfg.WindowSize, "window", cfg.WindowSize, "detector window in samples")
	f.StringVar(&cfg.Algorithm, "algorithm", cfg.Algorithm, "pitch detector: yin or autocorrelation")
	f.Float64Var(&cfg.Threshold, "threshold", cfg.Threshold, "detector threshold")
	f.StringVar(&cfg.TraceExporter, "trace", cfg.TraceExporter, "trace exporter: none, stdout or otlp")
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
