// Package server hosts fretwise sessions over HTTP and WebSocket: board
// viewers, browser audio ingestion and remote pitch processors.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"

	"github.com/realtime-ai/fretwise/pkg/control"
	"github.com/realtime-ai/fretwise/pkg/pipeline"
	"github.com/realtime-ai/fretwise/pkg/pitch"
	"github.com/realtime-ai/fretwise/pkg/session"
	"github.com/realtime-ai/fretwise/pkg/trace"
)

// SessionKind tells how a hosted session gets its pitches.
type SessionKind string

const (
	// KindBoard sessions have no detector; viewers only shift keys.
	KindBoard SessionKind = "board"
	// KindAudio sessions run a PitchElement on audio sent by the client.
	KindAudio SessionKind = "audio"
	// KindProcessor sessions are driven by a remote pitch processor that
	// speaks the control protocol.
	KindProcessor SessionKind = "processor"
	// KindLocal sessions are registered by the host process, e.g. the
	// microphone session of `fretwise serve`.
	KindLocal SessionKind = "local"
)

var (
	ErrTooManySessions = errors.New("too many sessions")
	ErrSessionNotFound = errors.New("session not found")
)

type hostedSession struct {
	sess    *session.Session
	kind    SessionKind
	created time.Time
	ctx     context.Context
	cancel  context.CancelFunc
	pipe    *pipeline.Pipeline
	once    sync.Once
}

// SessionInfo describes a hosted session in /api/sessions.
type SessionInfo struct {
	ID       string           `json:"id"`
	Kind     SessionKind      `json:"kind"`
	Created  time.Time        `json:"created"`
	Tracking session.Tracking `json:"tracking"`
	KeyLabel string           `json:"key_label"`
}

// Server is the fretwise HTTP and WebSocket server.
type Server struct {
	config  *Config
	handler SessionEventHandler

	sessions   map[string]*hostedSession
	sessionsMu sync.RWMutex

	router     *mux.Router
	httpServer *http.Server
	upgrader   websocket.Upgrader

	// Context for shutdown
	ctx    context.Context
	cancel context.CancelFunc
}

// NewServer creates a server. A nil config uses DefaultConfig and a nil
// handler ignores session events.
func NewServer(config *Config, handler SessionEventHandler) *Server {
	if config == nil {
		config = DefaultConfig()
	}
	if handler == nil {
		handler = &NoOpSessionEventHandler{}
	}
	if config.ControlBuffer <= 0 {
		config.ControlBuffer = DefaultConfig().ControlBuffer
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = DefaultConfig().WriteTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		config:   config,
		handler:  handler,
		sessions: make(map[string]*hostedSession),
		ctx:      ctx,
		cancel:   cancel,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  config.ReadBufferSize,
		WriteBufferSize: config.WriteBufferSize,
		CheckOrigin:     s.checkOrigin,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := mux.NewRouter().StrictSlash(true)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/board", s.handleBoard).Methods(http.MethodGet)
	api.HandleFunc("/note", s.handleNote).Methods(http.MethodGet)
	api.HandleFunc("/sessions", s.handleSessions).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}", s.handleSessionSnapshot).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}/history.mid", s.handleHistoryMIDI).Methods(http.MethodGet)

	r.HandleFunc("/ws", s.handleViewer)
	r.HandleFunc("/ws/audio", s.handleAudio)
	r.HandleFunc("/ws/processor", s.handleProcessor)

	s.router = r
}

// Handler returns the routes wrapped with CORS.
func (s *Server) Handler() http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins: s.config.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
	}).Handler(s.router)
}

// Start starts listening on the configured address.
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("[Server] starting on %s", s.config.Addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(100 * time.Millisecond):
		// Server started successfully
		return nil
	}
}

// Stop closes every session and shuts the HTTP server down.
func (s *Server) Stop(ctx context.Context) error {
	s.cancel()

	s.sessionsMu.RLock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	s.sessionsMu.RUnlock()
	for _, id := range ids {
		s.closeSession(ctx, id)
	}

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// Register hosts a session created outside the server so viewers can
// attach to it. The caller keeps ownership of its lifecycle; Unregister
// removes it.
func (s *Server) Register(sess *session.Session) error {
	if _, err := s.register(&hostedSession{sess: sess, kind: KindLocal, created: time.Now(), ctx: s.ctx}); err != nil {
		return err
	}
	s.handler.OnSessionCreated(s.ctx, sess.ID(), KindLocal)
	return nil
}

func (s *Server) Unregister(id string) {
	s.sessionsMu.Lock()
	h, ok := s.sessions[id]
	if ok && h.kind == KindLocal {
		delete(s.sessions, id)
	}
	s.sessionsMu.Unlock()
	if ok && h.kind == KindLocal {
		s.handler.OnSessionClosed(s.ctx, id, KindLocal)
	}
}

// Session returns a hosted session by ID.
func (s *Server) Session(id string) (*session.Session, bool) {
	s.sessionsMu.RLock()
	defer s.sessionsMu.RUnlock()
	h, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	return h.sess, true
}

// SessionCount returns the number of hosted sessions.
func (s *Server) SessionCount() int {
	s.sessionsMu.RLock()
	defer s.sessionsMu.RUnlock()
	return len(s.sessions)
}

// Sessions lists hosted sessions, oldest first.
func (s *Server) Sessions() []SessionInfo {
	s.sessionsMu.RLock()
	infos := make([]SessionInfo, 0, len(s.sessions))
	for id, h := range s.sessions {
		snap := h.sess.Snapshot()
		infos = append(infos, SessionInfo{
			ID:       id,
			Kind:     h.kind,
			Created:  h.created,
			Tracking: snap.Tracking,
			KeyLabel: snap.KeyLabel,
		})
	}
	s.sessionsMu.RUnlock()

	sort.Slice(infos, func(i, j int) bool {
		if infos[i].Created.Equal(infos[j].Created) {
			return infos[i].ID < infos[j].ID
		}
		return infos[i].Created.Before(infos[j].Created)
	})
	return infos
}

// openSession creates and registers a session. ctrl is nil for board
// sessions. The returned context ends when the session is closed.
func (s *Server) openSession(kind SessionKind, ctrl *control.ControllerEnd, res pitch.Resource) (*hostedSession, context.Context, error) {
	id := uuid.NewString()
	cfg := s.config.sessionConfig(id)
	if res.Algorithm != "" {
		cfg.Resource = res
	}

	ctx, cancel := context.WithCancel(s.ctx)
	h := &hostedSession{
		sess:    session.New(ctrl, cfg),
		kind:    kind,
		created: time.Now(),
		ctx:     ctx,
		cancel:  cancel,
	}
	if _, err := s.register(h); err != nil {
		cancel()
		return nil, nil, err
	}

	spanCtx, span := trace.InstrumentConnectionCreated(ctx, id, string(kind))
	span.End()
	s.handler.OnSessionCreated(spanCtx, id, kind)
	log.Printf("[Server] [session %s] opened (%s)", id, kind)
	return h, ctx, nil
}

func (s *Server) register(h *hostedSession) (*hostedSession, error) {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	if s.config.MaxSessions > 0 && len(s.sessions) >= s.config.MaxSessions {
		return nil, ErrTooManySessions
	}
	id := h.sess.ID()
	if _, exists := s.sessions[id]; exists {
		return nil, fmt.Errorf("session %s already registered", id)
	}
	s.sessions[id] = h
	return h, nil
}

// closeSession stops the session and its pipeline, if any, and forgets it.
// Sessions registered with Register are left to their owner.
func (s *Server) closeSession(ctx context.Context, id string) {
	s.sessionsMu.Lock()
	h, ok := s.sessions[id]
	var pipe *pipeline.Pipeline
	if ok && h.kind != KindLocal {
		delete(s.sessions, id)
		pipe = h.pipe
	}
	s.sessionsMu.Unlock()
	if !ok || h.kind == KindLocal {
		return
	}

	h.once.Do(func() {
		stopCtx, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := h.sess.Stop(stopCtx); err != nil {
			log.Printf("[Server] [session %s] stop: %v", id, err)
		}
		if pipe != nil {
			if err := trace.StopPipeline(ctx, pipe); err != nil {
				log.Printf("[Server] [session %s] pipeline stop: %v", id, err)
			}
		}
		if h.cancel != nil {
			h.cancel()
		}

		_, span := trace.InstrumentConnectionClosed(ctx, id, string(h.kind))
		span.End()
		s.handler.OnSessionClosed(ctx, id, h.kind)
		log.Printf("[Server] [session %s] closed", id)
	})
}

func (s *Server) lookup(id string) (*hostedSession, bool) {
	s.sessionsMu.RLock()
	defer s.sessionsMu.RUnlock()
	h, ok := s.sessions[id]
	return h, ok
}

func (s *Server) attachPipeline(h *hostedSession, p *pipeline.Pipeline) {
	s.sessionsMu.Lock()
	h.pipe = p
	s.sessionsMu.Unlock()
}

func (s *Server) hasCapacity() bool {
	if s.config.MaxSessions <= 0 {
		return true
	}
	return s.SessionCount() < s.config.MaxSessions
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.config.AllowedOrigins) == 0 || slices.Contains(s.config.AllowedOrigins, "*") {
		return true
	}
	origin := r.Header.Get("Origin")
	return origin == "" || slices.Contains(s.config.AllowedOrigins, origin)
}
