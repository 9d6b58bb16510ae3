// Package server exposes the pipeline over HTTP: a trigger endpoint for
// on-demand passes and a health probe.
package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"ghent-immo-scraper/models"
	"ghent-immo-scraper/utils"
)

// PassRunner runs one full ingestion pass. Satisfied by services.Ingestor.
type PassRunner interface {
	Run(ctx context.Context) (map[string]models.SourceResult, error)
}

// Server wraps the HTTP listener and its dependencies.
type Server struct {
	http    *http.Server
	runner  PassRunner
	secret  string
	logger  *utils.Logger
	running sync.Mutex
}

// New builds the HTTP server. An empty secret leaves /scrape open.
func New(addr string, runner PassRunner, secret string, logger *utils.Logger) *Server {
	s := &Server{runner: runner, secret: secret, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.handleHealthz)
	r.Post("/scrape", s.handleScrape)

	s.http = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Start blocks until the listener fails or the server is shut down.
func (s *Server) Start() error {
	s.logger.Info("HTTP server listening on %s", s.http.Addr)
	if err := s.http.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// Handler returns the router, for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleScrape runs one pass synchronously. Only one pass runs at a time; a
// second trigger while one is in flight gets 409.
func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}
	if !s.running.TryLock() {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "a pass is already running"})
		return
	}
	defer s.running.Unlock()

	results, err := s.runner.Run(r.Context())
	if err != nil {
		s.logger.Error("scrape pass failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"ok":    false,
			"error": err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"sources": results,
	})
}

func (s *Server) authorized(r *http.Request) bool {
	if s.secret == "" {
		return true
	}
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	return subtle.ConstantTimeCompare([]byte(token), []byte(s.secret)) == 1
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
