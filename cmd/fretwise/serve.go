package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/realtime-ai/fretwise/pkg/server"
)

var (
	serveAddr string
	serveMic  bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the board and pitch sessions over HTTP and WebSocket",
	Long: `Start the fretwise server.

Endpoints:
  GET /api/board              board for ?key=&tuning=&detected=
  GET /api/note               note for ?freq=
  GET /api/sessions           hosted sessions
  GET /api/sessions/{id}      session snapshot
  GET /api/sessions/{id}/history.mid
  /ws                         board viewer (?session= attaches)
  /ws/audio                   stream PCM, detection runs on the server
  /ws/processor               remote pitch processor

With --mic the local microphone session is hosted too; viewers attach to
it with /ws?session=<id>.
`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from FRETWISE_ADDR)")
	serveCmd.Flags().BoolVar(&serveMic, "mic", false, "also track the local microphone")
	rootCmd.AddCommand(serveCmd)
}

func serverConfig() (*server.Config, error) {
	sc, err := sessionConfig(cfg)
	if err != nil {
		return nil, err
	}
	c := server.DefaultConfig()
	c.Addr = cfg.Addr
	if serveAddr != "" {
		c.Addr = serveAddr
	}
	c.AllowedOrigins = cfg.AllowedOrigins
	c.MaxSessions = cfg.MaxSessions
	c.Key = sc.Key
	c.Tuning = sc.Tuning
	c.SampleRate = cfg.SampleRate
	c.WindowSize = cfg.WindowSize
	c.Resource = sc.Resource
	return c, nil
}

type logEvents struct {
	server.NoOpSessionEventHandler
}

func (logEvents) OnSessionError(ctx context.Context, id string, err error) {
	log.Printf("[fretwise] session %s: %v", id, err)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := serverConfig()
	if err != nil {
		return err
	}
	srv := server.NewServer(c, &logEvents{})

	if serveMic {
		rig, err := startLocal(ctx, cfg)
		if err != nil {
			return err
		}
		defer rig.Close()
		if err := srv.Register(rig.sess); err != nil {
			return err
		}
		defer srv.Unregister(rig.sess.ID())
		log.Printf("[fretwise] microphone session %s", rig.sess.ID())
	}

	if err := srv.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()

	log.Println("[fretwise] shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Stop(shutdownCtx)
}
