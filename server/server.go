// Package server exposes the engine over HTTP: a synchronous chat endpoint,
// an NDJSON streaming endpoint and session inspection.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/meteolab/skycast"
	"github.com/meteolab/skycast/logging"
	"github.com/meteolab/skycast/stream"
)

// Options configures the HTTP server.
type Options struct {
	Logger logging.Logger
}

// Server wires the engine into a chi router.
type Server struct {
	engine *skycast.Engine
	logger logging.Logger
	router chi.Router
}

// New constructs the HTTP surface over an engine.
func New(engine *skycast.Engine, optFns ...func(o *Options)) *Server {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	s := &Server{engine: engine, logger: opts.Logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Post("/chat", s.handleChat)
		r.Get("/chat/stream", s.handleChatStream)
		r.Get("/sessions/{sessionID}/messages", s.handleSessionMessages)
	})

	s.router = r
	return s
}

// WithLogger sets the server logger.
func WithLogger(logger logging.Logger) func(o *Options) {
	return func(o *Options) { o.Logger = logger }
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe runs the server on addr until it fails.
func (s *Server) ListenAndServe(addr string) error {
	s.logger.Info("server.listening", "addr", addr)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}

type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

func (r chatRequest) validate() string {
	if r.SessionID == "" {
		return "session_id is required"
	}
	if r.Message == "" {
		return "message is required"
	}
	return ""
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if msg := req.validate(); msg != "" {
		s.writeError(w, http.StatusBadRequest, msg)
		return
	}

	resp, err := s.engine.Chat(r.Context(), req.SessionID, req.Message)
	if err != nil {
		s.logger.Error("server.chat_failed", "session_id", req.SessionID, "error", err.Error())
		s.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.writeJSON(w, http.StatusOK, resp)
}

// handleChatStream delivers the event sequence as NDJSON terminated by the
// [DONE] sentinel. Query parameters are used instead of a body so plain
// EventSource-style clients can connect.
func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	req := chatRequest{
		SessionID: r.URL.Query().Get("session_id"),
		Message:   r.URL.Query().Get("message"),
	}
	if msg := req.validate(); msg != "" {
		s.writeError(w, http.StatusBadRequest, msg)
		return
	}

	events, err := s.engine.ChatStream(r.Context(), req.SessionID, req.Message)
	if err != nil {
		s.logger.Error("server.stream_failed", "session_id", req.SessionID, "error", err.Error())
		s.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	if err := stream.NewWriter(w).Drain(r.Context(), events); err != nil {
		// Usually a disconnected client; the emitter stops via the context.
		s.logger.Debug("server.stream_ended", "session_id", req.SessionID, "error", err.Error())
	}
}

func (s *Server) handleSessionMessages(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	sess, err := s.engine.Session(sessionID)
	if err != nil {
		s.logger.Error("server.session_failed", "session_id", sessionID, "error", err.Error())
		s.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"session_id": sess.ID,
		"messages":   sess.GetMessages(),
		"last_model": sess.GetLastModel(),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("server.encode_failed", "error", err.Error())
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
