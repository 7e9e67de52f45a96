package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/gorilla/websocket"

	"github.com/realtime-ai/fretwise/pkg/control"
	"github.com/realtime-ai/fretwise/pkg/elements"
	"github.com/realtime-ai/fretwise/pkg/pipeline"
	"github.com/realtime-ai/fretwise/pkg/pitch"
	"github.com/realtime-ai/fretwise/pkg/session"
	"github.com/realtime-ai/fretwise/pkg/trace"
)

const connTypeWebSocket = "websocket"

var errAudioNotAccepted = errors.New("this endpoint does not accept audio; use /ws/audio")

// wsClient serialises writes to one WebSocket connection.
type wsClient struct {
	conn    *websocket.Conn
	timeout time.Duration
	mu      sync.Mutex
}

func newWSClient(conn *websocket.Conn, timeout time.Duration) *wsClient {
	return &wsClient{conn: conn, timeout: timeout}
}

func (c *wsClient) writeJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.timeout))
	return c.conn.WriteJSON(v)
}

func (c *wsClient) writeText(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.timeout))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// streamParams are the query parameters of /ws/audio and /ws/processor.
type streamParams struct {
	sampleRate int
	windowSize int
	mediaType  pipeline.AudioMediaType
	resource   pitch.Resource
}

func (s *Server) parseStreamParams(r *http.Request) (streamParams, error) {
	q := r.URL.Query()
	p := streamParams{
		sampleRate: s.config.SampleRate,
		windowSize: s.config.WindowSize,
		mediaType:  pipeline.AudioMediaTypeRaw,
		resource:   s.config.Resource,
	}
	if p.resource.Algorithm == "" {
		p.resource = pitch.DefaultResource()
	}

	if v := q.Get("rate"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return p, fmt.Errorf("invalid rate %q", v)
		}
		p.sampleRate = n
	}
	if v := q.Get("window"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return p, fmt.Errorf("invalid window %q", v)
		}
		p.windowSize = n
	}
	switch v := q.Get("encoding"); v {
	case "", "s16le", "pcm":
		p.mediaType = pipeline.AudioMediaTypeRaw
	case "f32le", "float32":
		p.mediaType = pipeline.AudioMediaTypeFloat32
	case "mulaw", "pcmu":
		p.mediaType = pipeline.AudioMediaTypeMuLaw
	default:
		return p, fmt.Errorf("unsupported encoding %q", v)
	}
	if v := q.Get("algorithm"); v != "" {
		p.resource.Algorithm = v
		if err := p.resource.IsValid(); err != nil {
			return p, err
		}
	}
	return p, nil
}

// handleViewer serves /ws. Without ?session= it hosts a board-only session
// for the connection; with it the viewer attaches to an existing session.
func (s *Server) handleViewer(w http.ResponseWriter, r *http.Request) {
	var h *hostedSession
	if id := r.URL.Query().Get("session"); id != "" {
		var ok bool
		if h, ok = s.lookup(id); !ok {
			http.Error(w, ErrSessionNotFound.Error(), http.StatusNotFound)
			return
		}
	} else if !s.hasCapacity() {
		http.Error(w, ErrTooManySessions.Error(), http.StatusTooManyRequests)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Server] WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()
	client := newWSClient(conn, s.config.WriteTimeout)

	var ctx context.Context
	if h != nil {
		ctx = h.ctx
	} else {
		h, ctx, err = s.openSession(KindBoard, nil, pitch.Resource{})
		if err != nil {
			_ = client.writeJSON(errorMessage("session_unavailable", err))
			return
		}
		defer s.closeSession(context.Background(), h.sess.ID())
	}

	s.serveClient(ctx, client, h.sess, nil)
}

// handleAudio serves /ws/audio. Binary frames are mono audio in the
// requested encoding; they run through a PitchElement owned by the
// connection's session. Text frames are viewer messages.
func (s *Server) handleAudio(w http.ResponseWriter, r *http.Request) {
	params, err := s.parseStreamParams(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !s.hasCapacity() {
		http.Error(w, ErrTooManySessions.Error(), http.StatusTooManyRequests)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Server] WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()
	client := newWSClient(conn, s.config.WriteTimeout)

	ctrl, proc := control.New(s.config.ControlBuffer)
	h, ctx, err := s.openSession(KindAudio, ctrl, params.resource)
	if err != nil {
		ctrl.Close()
		_ = client.writeJSON(errorMessage("session_unavailable", err))
		return
	}
	id := h.sess.ID()
	defer s.closeSession(context.Background(), id)

	elem := elements.NewPitchElement(elements.PitchElementConfig{
		Factory: s.config.Factory,
		Control: proc,
	})
	pipe := pipeline.NewPipeline("fretwise/" + id)
	pipe.AddElement(elem)
	s.attachPipeline(h, pipe)

	frameErrors := make(chan pipeline.Event, 8)
	pipe.Bus().Subscribe(pipeline.EventFrameError, frameErrors)
	defer pipe.Bus().Unsubscribe(pipeline.EventFrameError, frameErrors)

	if err := trace.StartPipeline(ctx, pipe); err != nil {
		s.handler.OnSessionError(ctx, id, err)
		_ = client.writeJSON(errorMessage("pipeline_start_failed", err))
		return
	}
	go func() {
		if err := h.sess.Run(ctx); err != nil {
			log.Printf("[Server] [session %s] run: %v", id, err)
		}
	}()
	go forwardFrameErrors(ctx, client, frameErrors)

	if err := h.sess.Start(ctx, params.sampleRate, params.windowSize); err != nil {
		s.handler.OnSessionError(ctx, id, err)
		_ = client.writeJSON(errorMessage("detector_start_failed", err))
		return
	}
	log.Printf("[Server] [session %s] audio stream: rate=%d window=%d encoding=%s",
		id, params.sampleRate, params.windowSize, params.mediaType)

	s.serveClient(ctx, client, h.sess, func(data []byte) {
		now := time.Now()
		pipe.Push(&pipeline.PipelineMessage{
			Type:      pipeline.MsgTypeAudio,
			SessionID: id,
			Timestamp: now,
			AudioData: &pipeline.AudioData{
				Data:       data,
				SampleRate: params.sampleRate,
				Channels:   1,
				MediaType:  params.mediaType,
				Timestamp:  now,
			},
		})
	})
}

// handleProcessor serves /ws/processor for a remote pitch processor, e.g. a
// browser audio worklet running its own detector. Frames in both
// directions are control envelopes: the server sends init_detector and
// shutdown and accepts detector_ready, pitch_detected and detector_error.
func (s *Server) handleProcessor(w http.ResponseWriter, r *http.Request) {
	params, err := s.parseStreamParams(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !s.hasCapacity() {
		http.Error(w, ErrTooManySessions.Error(), http.StatusTooManyRequests)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Server] WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()
	client := newWSClient(conn, s.config.WriteTimeout)

	ctrl, proc := control.New(s.config.ControlBuffer)
	h, ctx, err := s.openSession(KindProcessor, ctrl, params.resource)
	if err != nil {
		ctrl.Close()
		_ = client.writeJSON(errorMessage("session_unavailable", err))
		return
	}
	id := h.sess.ID()
	defer s.closeSession(context.Background(), id)

	go func() {
		if err := h.sess.Run(ctx); err != nil {
			log.Printf("[Server] [session %s] run: %v", id, err)
		}
	}()
	go s.forwardToProcessor(ctx, client, proc, id)

	if err := h.sess.Start(ctx, params.sampleRate, params.windowSize); err != nil {
		s.handler.OnSessionError(ctx, id, err)
		return
	}

	readCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-readCtx.Done()
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[Server] [session %s] processor read error: %v", id, err)
			}
			return
		}

		msg, err := control.Decode(data)
		if err == nil {
			err = proc.Send(msg)
		}
		if err != nil {
			_, span := trace.InstrumentConnectionError(ctx, id, connTypeWebSocket, err)
			span.End()
			_ = client.writeJSON(errorMessage("rejected", err))
		}
	}
}

// forwardToProcessor relays controller messages to the remote processor as
// control envelopes.
func (s *Server) forwardToProcessor(ctx context.Context, c *wsClient, proc *control.ProcessorEnd, id string) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-proc.Done():
			// drain what the controller sent before closing, e.g. shutdown
			for {
				select {
				case raw := <-proc.C():
					s.sendEnvelope(c, proc, raw, id)
				default:
					return
				}
			}
		case raw := <-proc.C():
			s.sendEnvelope(c, proc, raw, id)
		}
	}
}

func (s *Server) sendEnvelope(c *wsClient, proc *control.ProcessorEnd, raw control.Message, id string) {
	msg, err := proc.Accept(raw)
	if err != nil {
		log.Printf("[Server] [session %s] dropped controller message: %v", id, err)
		return
	}
	data, err := control.Encode(msg)
	if err != nil {
		log.Printf("[Server] [session %s] encode %s: %v", id, msg.Tag(), err)
		return
	}
	if err := c.writeText(data); err != nil {
		log.Printf("[Server] [session %s] send %s: %v", id, msg.Tag(), err)
	}
}

// serveClient streams snapshots of sess to the client and applies its
// messages until the connection or ctx ends. onAudio receives binary
// frames; nil rejects them.
func (s *Server) serveClient(ctx context.Context, c *wsClient, sess *session.Session, onAudio func([]byte)) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	snaps, unsubscribe := sess.Subscribe(16)
	defer unsubscribe()

	if err := c.writeJSON(snapshotMessage(sess.Snapshot())); err != nil {
		return
	}
	go s.pumpSnapshots(ctx, c, snaps)
	go func() {
		// unblocks ReadMessage when the session goes away
		<-ctx.Done()
		c.conn.Close()
	}()

	for {
		mt, data, err := c.conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil && websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[Server] [session %s] WebSocket read error: %v", sess.ID(), err)
			}
			return
		}

		switch mt {
		case websocket.BinaryMessage:
			if onAudio == nil {
				_ = c.writeJSON(errorMessage("audio_not_accepted", errAudioNotAccepted))
				continue
			}
			onAudio(data)
		case websocket.TextMessage:
			s.handleClientMessage(ctx, c, sess, data)
		}
	}
}

func (s *Server) handleClientMessage(ctx context.Context, c *wsClient, sess *session.Session, data []byte) {
	ctx, span := trace.InstrumentConnectionMessage(ctx, sess.ID(), connTypeWebSocket, "inbound", len(data))
	defer span.End()

	msg, err := parseClientMessage(data)
	if err != nil {
		trace.RecordError(span, err)
		_ = c.writeJSON(errorMessage("invalid_message", err))
		return
	}

	switch msg.Type {
	case MsgKeyShift:
		sess.ShiftKey(ctx, msg.Delta)
	case MsgKeySet:
		sess.SetKey(ctx, *msg.Key)
	case MsgHistoryClear:
		sess.ClearHistory()
	}
}

// pumpSnapshots writes snapshots until the subscription closes. With a
// debounce configured only the last snapshot of a burst is written.
func (s *Server) pumpSnapshots(ctx context.Context, c *wsClient, snaps <-chan session.Snapshot) {
	var debounced func(func())
	if s.config.SnapshotDebounce > 0 {
		debounced = debounce.New(s.config.SnapshotDebounce)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-snaps:
			if !ok {
				return
			}
			send := func() {
				if ctx.Err() != nil {
					return
				}
				if err := c.writeJSON(snapshotMessage(snap)); err != nil {
					log.Printf("[Server] [session %s] snapshot write: %v", snap.SessionID, err)
				}
			}
			if debounced == nil {
				send()
				continue
			}
			debounced(send)
		}
	}
}

func forwardFrameErrors(ctx context.Context, c *wsClient, events <-chan pipeline.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-events:
			payload, ok := evt.Payload.(elements.FrameErrorPayload)
			if !ok || payload.Err == nil {
				continue
			}
			_ = c.writeJSON(errorMessage("frame_error", payload.Err))
		}
	}
}
