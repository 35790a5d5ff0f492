package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Lifelong-Learning-Assisttant/agent-service/internal/logging"
	"github.com/Lifelong-Learning-Assisttant/agent-service/internal/sanitize"
	"github.com/Lifelong-Learning-Assisttant/agent-service/pkg/domain"
	"github.com/Lifelong-Learning-Assisttant/agent-service/pkg/ports"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// MessageRequest is the body of POST /v1/message.
type MessageRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

// MessageResponse is the reply of POST /v1/message.
type MessageResponse struct {
	Answer    string `json:"answer"`
	SessionID string `json:"session_id"`
}

// CreateSessionRequest is the optional body of POST /v1/sessions.
type CreateSessionRequest struct {
	SessionID string `json:"session_id,omitempty"`
}

// Server exposes an Agent over HTTP.
type Server struct {
	Agent   ports.Agent
	Streams *StreamManager

	metrics  http.Handler
	version  string
	maxInput int
	logger   *slog.Logger
}

// Option configures the handler built by NewHandler.
type Option func(*Server)

// WithStreams shares a StreamManager, typically one also registered as a progress sink.
func WithStreams(sm *StreamManager) Option {
	return func(s *Server) {
		if sm != nil {
			s.Streams = sm
		}
	}
}

// WithMetricsHandler serves h on GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithMaxInputSize bounds the size of a message in bytes.
func WithMaxInputSize(n int) Option {
	return func(s *Server) {
		s.maxInput = n
	}
}

// WithVersion reports version on GET /health.
func WithVersion(version string) Option {
	return func(s *Server) {
		s.version = strings.TrimSpace(version)
	}
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewHandler creates a new HTTP handler for the agent.
func NewHandler(agent ports.Agent, opts ...Option) http.Handler {
	server := &Server{
		Agent:  agent,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(server)
	}
	if server.Streams == nil {
		server.Streams = NewStreamManager(server.logger)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", server.GetHealth)
	if server.metrics != nil {
		r.Method(http.MethodGet, "/metrics", server.metrics)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/message", server.PostMessage)
		r.Get("/stream", server.StreamAll)

		r.Get("/sessions", server.ListSessions)
		r.Post("/sessions", server.CreateSession)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Delete("/", server.RemoveSession)
			r.Post("/cancel", server.CancelSession)
			r.Get("/events", server.GetEvents)
			r.Delete("/events", server.ClearEvents)
			r.Get("/stream", server.StreamSession)
		})
	})

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Custom-Header")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{"status": "ok"}
	if s.version != "" {
		resp["version"] = s.version
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// PostMessage handles the POST /v1/message request.
func (s *Server) PostMessage(w http.ResponseWriter, r *http.Request) {
	var body MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.logger.Warn("PostMessage: invalid request body", "err", err)
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	message, err := sanitize.Input(body.Message, s.maxInput)
	if errors.Is(err, sanitize.ErrEmptyInput) {
		s.writeError(w, http.StatusBadRequest, "message must not be empty")
		return
	}
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	body.Message = message
	if body.SessionID == "" {
		body.SessionID = uuid.NewString()
	}

	answer, err := s.Agent.Run(r.Context(), body.Message, body.SessionID)
	if err != nil {
		s.logger.Error("PostMessage: run failed", "session_id", body.SessionID, "err", err)
		s.writeError(w, statusFor(err), err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, MessageResponse{Answer: answer, SessionID: body.SessionID})
}

// ListSessions handles the GET /v1/sessions request.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.Agent.ListSessions())
}

// CreateSession handles the POST /v1/sessions request.
func (s *Server) CreateSession(w http.ResponseWriter, r *http.Request) {
	var body CreateSessionRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	if body.SessionID == "" {
		body.SessionID = uuid.NewString()
	}
	s.writeJSON(w, http.StatusCreated, s.Agent.CreateSession(body.SessionID))
}

// RemoveSession handles the DELETE /v1/sessions/{id} request.
func (s *Server) RemoveSession(w http.ResponseWriter, r *http.Request) {
	s.noContent(w, s.Agent.RemoveSession(chi.URLParam(r, "id")))
}

// CancelSession handles the POST /v1/sessions/{id}/cancel request.
func (s *Server) CancelSession(w http.ResponseWriter, r *http.Request) {
	s.noContent(w, s.Agent.CancelSession(chi.URLParam(r, "id")))
}

// GetEvents handles the GET /v1/sessions/{id}/events request.
func (s *Server) GetEvents(w http.ResponseWriter, r *http.Request) {
	events, err := s.Agent.GetEvents(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, statusFor(err), err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, events)
}

// ClearEvents handles the DELETE /v1/sessions/{id}/events request.
func (s *Server) ClearEvents(w http.ResponseWriter, r *http.Request) {
	s.noContent(w, s.Agent.ClearSessionHistory(chi.URLParam(r, "id")))
}

// StreamSession handles the GET /v1/sessions/{id}/stream request (SSE).
func (s *Server) StreamSession(w http.ResponseWriter, r *http.Request) {
	s.stream(w, r, chi.URLParam(r, "id"))
}

// StreamAll handles the GET /v1/stream request (SSE of every session).
func (s *Server) StreamAll(w http.ResponseWriter, r *http.Request) {
	s.stream(w, r, AllSessions)
}

func (s *Server) stream(w http.ResponseWriter, r *http.Request, sessionID string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.logger.Error("SSE: streaming not supported")
		s.writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	s.logger.Info("SSE: subscribing", "session_id", sessionID)
	ch, cancel := s.Streams.Subscribe(sessionID)
	defer cancel()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE: client disconnected", "session_id", sessionID)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: progress\ndata: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

func (s *Server) noContent(w http.ResponseWriter, err error) {
	if err != nil {
		s.writeError(w, statusFor(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrRegistryClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
