package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"ragpipe/internal/domain"
	"ragpipe/internal/stream"
	"ragpipe/internal/usecase"
)

// Server adapts the internal event stream to Server-Sent Events. It owns the
// transport concern only; the orchestrator and emitter never see HTTP.
type Server struct {
	orchestrator *usecase.Orchestrator
	emitter      *stream.Emitter
	logger       *slog.Logger

	mu       sync.Mutex
	sessions map[string]*domain.QuerySession
}

// NewServer creates the SSE boundary adapter.
func NewServer(orchestrator *usecase.Orchestrator, emitter *stream.Emitter, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		orchestrator: orchestrator,
		emitter:      emitter,
		logger:       logger,
		sessions:     make(map[string]*domain.QuerySession),
	}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /query", s.handleQuery)
	mux.HandleFunc("POST /cancel", s.handleCancel)
	return mux
}

// handleQuery accepts an intake message and streams the session's events as
// SSE frames until the terminal event.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req domain.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Type != "query" {
		http.Error(w, "unsupported message type", http.StatusBadRequest)
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}
	if req.QueryID == "" {
		req.QueryID = uuid.NewString()
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	session := domain.NewQuerySession(req.SessionID, req.QueryID, req.Content)
	s.register(session)
	defer s.unregister(session.SessionID)

	events := s.emitter.Subscribe(session.SessionID)

	// The session keeps running on its own deadline even if the client
	// disconnects. Draining to the end lets the pump deliver its terminal
	// event and release the stream instead of blocking forever.
	defer func() {
		go func() {
			for range events {
			}
		}()
	}()

	go s.orchestrator.Run(context.Background(), session)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	clientGone := r.Context().Done()
	for {
		select {
		case event, open := <-events:
			if !open {
				return
			}
			if err := writeFrame(w, event); err != nil {
				s.logger.Debug("client write failed", "session_id", session.SessionID, "error", err)
				return
			}
			flusher.Flush()
			if event.Terminal() {
				return
			}
		case <-clientGone:
			s.logger.Debug("client disconnected", "session_id", session.SessionID)
			return
		}
	}
}

// handleCancel requests cooperative cancellation of a running session.
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		http.Error(w, "session_id required", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	session, ok := s.sessions[sessionID]
	s.mu.Unlock()
	if !ok {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}

	session.Cancel()
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) register(session *domain.QuerySession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.SessionID] = session
}

func (s *Server) unregister(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}

// writeFrame encodes one event as an SSE frame: event type line, JSON data
// line, blank separator.
func writeFrame(w http.ResponseWriter, event domain.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data)
	return err
}
