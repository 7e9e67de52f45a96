package main

import (
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/realtime-ai/fretwise/pkg/tui"
)

var (
	exportPath string
	logPath    string
)

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Show the board and highlight notes played into the microphone",
	Long: `Open the default microphone and show the fretboard in the terminal.

Keys:
  ←/→    shift the key down/up a semitone
  space  pause or resume listening
  c      clear the note history
  e      export the note history as MIDI (needs --export)
  q      quit

Example:
  fretwise listen --key G --export session.mid
`,
	RunE: runListen,
}

func init() {
	listenCmd.Flags().StringVarP(&exportPath, "export", "o", "", "MIDI file the history is exported to with 'e'")
	listenCmd.Flags().StringVar(&logPath, "log", "", "write logs to this file instead of discarding them")
	rootCmd.AddCommand(listenCmd)
}

func runListen(cmd *cobra.Command, args []string) error {
	// the TUI owns the terminal
	if logPath != "" {
		f, err := tea.LogToFile(logPath, "fretwise")
		if err != nil {
			return err
		}
		defer f.Close()
	} else {
		log.SetOutput(io.Discard)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rig, err := startLocal(ctx, cfg)
	if err != nil {
		return err
	}
	defer rig.Close()

	snaps, cancel := rig.sess.Subscribe(16)
	defer cancel()

	opts := []tui.Option{tui.WithCapture(rig.capture)}
	if exportPath != "" {
		opts = append(opts, tui.WithExportPath(exportPath))
	}
	p := tea.NewProgram(tui.New(rig.sess, snaps, opts...), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
