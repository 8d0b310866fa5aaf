// internal/webhook/server.go
package webhook

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// SecretHeader carries the webhook secret configured with setWebhook.
const SecretHeader = "X-Telegram-Bot-Api-Secret-Token"

// UpdateHandler processes one Telegram update delivered by webhook.
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, update tgbotapi.Update) error
}

// Stats is the runtime snapshot served at /api/stats.
type Stats struct {
	PendingIntents int     `json:"pending_intents"`
	MediaSessions  int     `json:"media_sessions"`
	UptimeSeconds  float64 `json:"uptime_seconds"`
}

// StatsFunc produces the current Stats.
type StatsFunc func() Stats

// Options wires a Server. Any nil field disables the endpoints it backs.
type Options struct {
	Updates UpdateHandler
	Secret  string
	Metrics http.Handler
	Stats   StatsFunc
}

// Server is a lightweight HTTP handler for health, metrics, stats and
// webhook intake.
type Server struct {
	updates UpdateHandler
	secret  string
	stats   StatsFunc
	mux     *http.ServeMux
}

// NewServer creates a Server from opts.
func NewServer(opts Options) *Server {
	s := &Server{
		updates: opts.Updates,
		secret:  opts.Secret,
		stats:   opts.Stats,
		mux:     http.NewServeMux(),
	}
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/stats", s.handleStats)
	s.mux.HandleFunc("POST /telegram", s.handleTelegram)
	if opts.Metrics != nil {
		s.mux.Handle("GET /metrics", opts.Metrics)
	}
	return s
}

// ServeHTTP delegates to the internal mux, implementing http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		http.Error(w, `{"error":"stats not configured"}`, http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.stats())
}

func (s *Server) handleTelegram(w http.ResponseWriter, r *http.Request) {
	if s.updates == nil {
		http.Error(w, `{"error":"webhook intake not configured"}`, http.StatusServiceUnavailable)
		return
	}
	if s.secret != "" && subtle.ConstantTimeCompare([]byte(r.Header.Get(SecretHeader)), []byte(s.secret)) != 1 {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}

	// The request context ends with the response; the queue owns the
	// interaction from here on.
	if err := s.updates.HandleUpdate(context.WithoutCancel(r.Context()), update); err != nil {
		slog.Error("webhook update failed", "update_id", update.UpdateID, "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}
