// Package health provides a simple HTTP health check endpoint.
//
// Docker, Kubernetes and the home-automation hub poll this endpoint to
// monitor the daemon. /healthz returns 200 once the device registry is loaded
// and the transports are started; /readyz additionally reports details such
// as the LMS address and the number of known players.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"
)

// DetailsFunc returns extra fields for the /readyz response.
type DetailsFunc func() map[string]any

// Server is a lightweight HTTP server that exposes /healthz and /readyz.
type Server struct {
	port    int
	ready   atomic.Bool
	details DetailsFunc
	server  *http.Server
}

// New creates a new health check server. details may be nil.
func New(port int, details DetailsFunc) *Server {
	return &Server{port: port, details: details}
}

// SetReady marks the daemon as ready to accept traffic.
func (s *Server) SetReady(ready bool) {
	s.ready.Store(ready)
}

// Ready reports the current readiness.
func (s *Server) Ready() bool { return s.ready.Load() }

// Routes returns the health endpoints.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		s.write(w, nil)
	})
	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		s.write(w, s.details)
	})
	return mux
}

func (s *Server) write(w http.ResponseWriter, details DetailsFunc) {
	body := map[string]any{"status": "ok"}
	code := http.StatusOK
	if !s.Ready() {
		body["status"] = "not_ready"
		code = http.StatusServiceUnavailable
	}
	if details != nil {
		for k, v := range details() {
			body[k] = v
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

// ListenAndServe starts the health check HTTP server.
// It blocks until the context is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	slog.Info("health server listening", "port", s.port)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	if err := s.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("health server: %w", err)
	}
	return nil
}
