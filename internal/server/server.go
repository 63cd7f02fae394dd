// Package server exposes the observability HTTP surface: health, status,
// per-user conversation stats and Prometheus metrics. It never serves
// consultations; those go through the chat channels.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pocketmedic/triage-gateway/internal/conversation"
	"github.com/pocketmedic/triage-gateway/internal/orchestrator"
	"github.com/pocketmedic/triage-gateway/internal/session"
)

// Server is the observability HTTP server.
type Server struct {
	orch          *orchestrator.Orchestrator
	sessions      *session.Store
	conversations *conversation.Store
	httpServer    *http.Server
	startTime     time.Time
	logger        *slog.Logger
}

// HealthResponse is the /healthz payload.
type HealthResponse struct {
	Status    string `json:"status"`
	Uptime    string `json:"uptime"`
	Timestamp string `json:"timestamp"`
}

// StatusResponse is the /api/v1/status payload.
type StatusResponse struct {
	Pool      PoolStatus    `json:"pool"`
	Sessions  session.Stats `json:"sessions"`
	Uptime    string        `json:"uptime"`
	Timestamp string        `json:"timestamp"`
}

// PoolStatus mirrors the orchestrator snapshot for the API.
type PoolStatus struct {
	CurrentSlot  string `json:"current_slot"`
	CurrentModel string `json:"current_model"`
	PoolSize     int    `json:"pool_size"`
	Available    int    `json:"available"`
	Failed       int    `json:"failed"`
	CoolingDown  int    `json:"cooling_down"`
}

// ConversationResponse is the per-user conversation stats payload.
type ConversationResponse struct {
	UserID       string   `json:"user_id"`
	MessageCount int      `json:"message_count"`
	Urgency      string   `json:"urgency"`
	Symptoms     []string `json:"symptoms"`
	Mode         string   `json:"mode"`
}

// New creates the server listening on host:port.
func New(host string, port int, orch *orchestrator.Orchestrator, sessions *session.Store, conversations *conversation.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		orch:          orch,
		sessions:      sessions,
		conversations: conversations,
		startTime:     time.Now(),
		logger:        logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.healthHandler)
	mux.HandleFunc("/api/v1/status", s.statusHandler)
	mux.HandleFunc("/api/v1/conversations/", s.conversationHandler)
	mux.Handle("/metrics", promhttp.Handler())

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", host, port),
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start starts the HTTP server and blocks until shutdown.
func (s *Server) Start() error {
	s.logger.Info("HTTP server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, HealthResponse{
		Status:    "healthy",
		Uptime:    time.Since(s.startTime).String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	st := s.orch.Status()
	writeJSON(w, StatusResponse{
		Pool: PoolStatus{
			CurrentSlot:  st.CurrentSlot,
			CurrentModel: st.CurrentModel,
			PoolSize:     st.PoolSize,
			Available:    st.Available,
			Failed:       st.Failed,
			CoolingDown:  st.CoolingDown,
		},
		Sessions:  s.sessions.Stats(),
		Uptime:    time.Since(s.startTime).String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) conversationHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID := strings.TrimPrefix(r.URL.Path, "/api/v1/conversations/")
	if userID == "" || strings.Contains(userID, "/") {
		http.NotFound(w, r)
		return
	}

	stats := s.conversations.Stats(userID)
	writeJSON(w, ConversationResponse{
		UserID:       userID,
		MessageCount: stats.MessageCount,
		Urgency:      stats.Urgency.String(),
		Symptoms:     stats.Symptoms,
		Mode:         string(stats.Mode),
	})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "Error encoding response", http.StatusInternalServerError)
	}
}
