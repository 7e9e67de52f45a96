package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/realtime-ai/fretwise/pkg/config"
	"github.com/realtime-ai/fretwise/pkg/connection"
	"github.com/realtime-ai/fretwise/pkg/control"
	"github.com/realtime-ai/fretwise/pkg/elements"
	"github.com/realtime-ai/fretwise/pkg/pipeline"
	"github.com/realtime-ai/fretwise/pkg/session"
	"github.com/realtime-ai/fretwise/pkg/trace"
)

// localRig wires the microphone through a PitchElement into a session.
type localRig struct {
	sess    *session.Session
	capture *connection.LocalCapture
	pipe    *pipeline.Pipeline
}

func sessionConfig(c *config.Config) (session.Config, error) {
	key, err := c.KeyPitchClass()
	if err != nil {
		return session.Config{}, err
	}
	tuning, err := c.BoardTuning()
	if err != nil {
		return session.Config{}, err
	}
	sc := session.DefaultConfig()
	sc.Key = key
	sc.Tuning = tuning
	sc.Resource = c.Resource()
	return sc, nil
}

// startLocal starts microphone pitch tracking. A device failure is not
// fatal: the session reports tracking as failed and the board keeps working.
func startLocal(ctx context.Context, c *config.Config) (*localRig, error) {
	sc, err := sessionConfig(c)
	if err != nil {
		return nil, err
	}

	ctrl, proc := control.New(32)
	sess := session.New(ctrl, sc)

	pipe := pipeline.NewPipeline("fretwise/local")
	pipe.AddElement(elements.NewPitchElement(elements.PitchElementConfig{Control: proc}))
	if err := trace.StartPipeline(ctx, pipe); err != nil {
		return nil, fmt.Errorf("start pipeline: %w", err)
	}
	go func() {
		if err := sess.Run(ctx); err != nil {
			log.Printf("[fretwise] session: %v", err)
		}
	}()

	capture := connection.NewLocalCapture(connection.LocalCaptureConfig{
		PeerID:     sess.ID(),
		SampleRate: c.SampleRate,
	})
	capture.RegisterEventHandler(connection.FuncHandler{
		Message: func(msg *pipeline.PipelineMessage) { pipe.Push(msg) },
		Error:   func(err error) { log.Printf("[fretwise] capture: %v", err) },
	})

	rig := &localRig{sess: sess, capture: capture, pipe: pipe}
	if err := capture.Start(ctx); err != nil {
		sess.Handle(control.DetectorError{Message: err.Error(), Fatal: true})
		return rig, nil
	}
	if err := sess.Start(ctx, capture.SampleRate(), c.WindowSize); err != nil {
		log.Printf("[fretwise] start detector: %v", err)
	}
	return rig, nil
}

func (r *localRig) Close() {
	r.capture.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := r.sess.Stop(ctx); err != nil {
		log.Printf("[fretwise] stop session: %v", err)
	}
	if err := trace.StopPipeline(ctx, r.pipe); err != nil {
		log.Printf("[fretwise] stop pipeline: %v", err)
	}
}
