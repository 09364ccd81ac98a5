// Package httpapi exposes the bulb controller over HTTP for callers such as
// voice assistants and home automation webhooks.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"smarter-bulb/internal/application"
	"smarter-bulb/internal/control"
	"smarter-bulb/internal/domain"
)

const (
	maxTextBytes     = 1024
	maxSettingsBytes = 64 * 1024
)

// Commander is the part of the controller the server drives.
type Commander interface {
	Handle(ctx context.Context, text string) (*application.Result, error)
	Apply(ctx context.Context, raw json.RawMessage) (*application.Result, error)
}

type Server struct {
	addr        string
	server      *http.Server
	commander   Commander
	logger      *slog.Logger
	mu          sync.Mutex
	running     bool
	mux         *http.ServeMux
	rateLimiter *RateLimiter
	authToken   string
}

func NewServer(addr, authToken string, commander Commander, logger *slog.Logger) *Server {
	s := &Server{
		addr:        addr,
		commander:   commander,
		logger:      logger,
		mux:         http.NewServeMux(),
		rateLimiter: NewRateLimiter(30, time.Minute),
		authToken:   authToken,
	}
	s.mux.HandleFunc("POST /text", s.rateLimiter.Middleware(s.requireAuth(s.handleText)))
	s.mux.HandleFunc("POST /settings", s.rateLimiter.Middleware(s.requireAuth(s.handleSettings)))
	s.mux.HandleFunc("GET /schema", s.handleSchema)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		s.logger.Info("HTTP server starting", "addr", s.addr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error", "error", err)
		}
	}()

	s.running = true
	return nil
}

func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.server.Shutdown(ctx); err != nil {
			s.logger.Warn("graceful shutdown failed, forcing close", "error", err)
			if err := s.server.Close(); err != nil {
				return fmt.Errorf("closing server: %w", err)
			}
		}
	}

	s.running = false
	return nil
}

func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.authToken != "" {
			token := r.Header.Get("X-Auth-Token")
			if token == "" {
				token = r.URL.Query().Get("token")
			}
			if token != s.authToken {
				s.logger.Warn("unauthorized request", "path", r.URL.Path, "remote_addr", r.RemoteAddr)
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
		}
		next(w, r)
	}
}

type commandResponse struct {
	Status   string              `json:"status"`
	Commands []domain.Command    `json:"commands,omitempty"`
	Error    string              `json:"error,omitempty"`
	Fields   []domain.FieldError `json:"fields,omitempty"`
}

// readBody reads at most limit bytes. Larger bodies are rejected with 413
// rather than truncated.
func readBody(w http.ResponseWriter, r *http.Request, limit int64) ([]byte, bool) {
	defer r.Body.Close()
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("body exceeds %d bytes", limit))
			return nil, false
		}
		writeError(w, http.StatusBadRequest, "failed to read body")
		return nil, false
	}
	return data, true
}

func (s *Server) handleText(w http.ResponseWriter, r *http.Request) {
	data, ok := readBody(w, r, maxTextBytes)
	if !ok {
		return
	}

	text := strings.TrimSpace(string(data))
	if text == "" {
		writeError(w, http.StatusBadRequest, "empty text")
		return
	}

	s.logger.Info("received text command via HTTP", "text", text)
	res, err := s.commander.Handle(r.Context(), text)
	s.respond(w, res, err)
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	data, ok := readBody(w, r, maxSettingsBytes)
	if !ok {
		return
	}

	s.logger.Info("received settings via HTTP", "bytes", len(data))
	res, err := s.commander.Apply(r.Context(), data)
	s.respond(w, res, err)
}

func (s *Server) respond(w http.ResponseWriter, res *application.Result, err error) {
	if err == nil {
		writeJSON(w, http.StatusOK, commandResponse{Status: "ok", Commands: res.Batch.Commands})
		return
	}

	s.logger.Error("command failed", "error", err)

	var verr *domain.ValidationError
	var terr *domain.TransportError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, commandResponse{
			Status: "invalid",
			Error:  verr.Error(),
			Fields: verr.Fields,
		})
	case errors.As(err, &terr):
		writeJSON(w, http.StatusBadGateway, commandResponse{Status: "error", Error: terr.Error()})
	case errors.Is(err, application.ErrNothingToApply):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, application.ErrEmptyCommand):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, application.ErrNoInterpreter):
		writeError(w, http.StatusNotImplemented, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) handleSchema(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, control.ToolSchema())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()

	status := "ok"
	statusCode := http.StatusOK

	if !running {
		status = "not_ready"
		statusCode = http.StatusServiceUnavailable
	}

	writeJSON(w, statusCode, map[string]any{"status": status, "running": running})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, commandResponse{Status: "error", Error: msg})
}
