// Package http exposes the chat engine over a JSON HTTP API.
package http

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strconv"

	"github.com/aretw0/orderdesk/pkg/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

//go:embed openapi.yaml
var openAPISpec []byte

// Response texts shared with the web client.
const (
	msgEndSessionInvalid = "Invalid request: missing userId or sessionEnd flag."
	msgSessionNotFound   = "User session not found."
	msgSessionEnded      = "Session End logged."
	msgInternal          = "Error processing the request"
	msgModelUnavailable  = "The assistant is temporarily unavailable. Please resend your message."
)

// RetryAfterSeconds is advertised when the model call failed.
const RetryAfterSeconds = 5

// Desk is the conversation core served by the handler.
type Desk interface {
	HandleTurn(ctx context.Context, userID, message string) (domain.TurnResult, error)
	EndSession(ctx context.Context, userID string) (domain.EndSummary, error)
}

// Server holds the HTTP handlers.
type Server struct {
	desk    Desk
	version string
	origins []string
	metrics http.Handler
	logger  *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithVersion sets the version reported by /info.
func WithVersion(v string) Option {
	return func(s *Server) {
		s.version = v
	}
}

// WithCORSOrigins restricts cross-origin access. "*" allows any origin.
func WithCORSOrigins(origins ...string) Option {
	return func(s *Server) {
		s.origins = origins
	}
}

// WithMetricsHandler mounts h on /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewHandler creates the HTTP handler for desk.
func NewHandler(desk Desk, opts ...Option) (http.Handler, error) {
	s := &Server{
		desk:    desk,
		origins: []string{"*"},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	validator, err := newRequestValidator(openAPISpec, map[string]string{
		"/api/end-session": msgEndSessionInvalid,
	})
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(echoRequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.cors)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/info", s.Info)
	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		_, _ = w.Write(openAPISpec)
	})
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(validator.middleware(s.logger))
		r.Post("/api/chat", s.Chat)
		r.Post("/api/end-session", s.EndSession)
	})
	return r, nil
}

type chatRequest struct {
	UserID  string `json:"userId"`
	Message string `json:"message"`
}

type endSessionRequest struct {
	UserID     string `json:"userId"`
	SessionEnd bool   `json:"sessionEnd"`
}

// Chat handles POST /api/chat.
func (s *Server) Chat(w http.ResponseWriter, r *http.Request) {
	var body chatRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("Chat: Invalid request body", "error", err)
		return
	}

	result, err := s.desk.HandleTurn(r.Context(), body.UserID, body.Message)
	if err != nil {
		s.writeError(w, r, "Chat", err)
		return
	}
	if result.Options == nil {
		result.Options = []string{}
	}
	writeJSON(w, s.logger, result)
}

// EndSession handles POST /api/end-session.
func (s *Server) EndSession(w http.ResponseWriter, r *http.Request) {
	var body endSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.UserID == "" || !body.SessionEnd {
		http.Error(w, msgEndSessionInvalid, http.StatusBadRequest)
		return
	}

	if _, err := s.desk.EndSession(r.Context(), body.UserID); err != nil {
		s.writeError(w, r, "EndSession", err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(msgSessionEnded))
}

// Info handles GET /info.
func (s *Server) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.logger, map[string]string{
		"name":    "orderdesk",
		"version": s.version,
	})
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	logger := s.logger.With("request_id", RequestIDFrom(r.Context()))
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		http.Error(w, "Invalid input: "+err.Error(), http.StatusBadRequest)
		logger.Warn(op+": Input rejected", "error", err)
	case errors.Is(err, domain.ErrSessionNotFound):
		http.Error(w, msgSessionNotFound, http.StatusNotFound)
	case errors.Is(err, domain.ErrModelCall):
		w.Header().Set("Retry-After", strconv.Itoa(RetryAfterSeconds))
		http.Error(w, msgModelUnavailable, http.StatusServiceUnavailable)
		logger.Warn(op+": Model unavailable", "error", err)
	default:
		http.Error(w, msgInternal, http.StatusInternalServerError)
		logger.Error(op+" failed", "error", err)
	}
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Response encode failed", "error", err)
	}
}

func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		switch {
		case slices.Contains(s.origins, "*"):
			w.Header().Set("Access-Control-Allow-Origin", "*")
		case origin != "" && slices.Contains(s.origins, origin):
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

// echoRequestID returns the ID assigned by middleware.RequestID to the client.
func echoRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(RequestIDHeader, middleware.GetReqID(r.Context()))
		next.ServeHTTP(w, r)
	})
}

// RequestIDFrom returns the request ID stored in ctx.
func RequestIDFrom(ctx context.Context) string {
	return middleware.GetReqID(ctx)
}
