// Package http implements the HTTP transport for jukebox.
//
// This transport exposes a small REST API for command dispatch plus the
// Swagger UI. It suits scripts, dashboards and hubs that can send a proper
// HTTP request and want a JSON result back.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/nadzzz/jukebox/internal/dispatch"
	"github.com/nadzzz/jukebox/internal/message"
	"github.com/nadzzz/jukebox/internal/transport"

	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "github.com/nadzzz/jukebox/docs"
)

// SourceHeader carries the sender identifier.
const SourceHeader = "X-Jukebox-Source"

const maxBodyBytes = 64 << 10

// Transport implements transport.Transport over HTTP.
type Transport struct {
	port int

	mu     sync.Mutex
	server *http.Server
}

// New creates a new HTTP transport on the given port.
func New(port int) *Transport {
	return &Transport{port: port}
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return "http" }

// Routes returns the HTTP handler serving the API.
func (t *Transport) Routes(handler transport.Handler) http.Handler {
	mux := http.NewServeMux()

	// POST /dispatch: JSON envelope in, dispatch result out.
	mux.HandleFunc("POST /dispatch", func(w http.ResponseWriter, r *http.Request) {
		t.handleDispatch(w, r, handler)
	})

	// Swagger UI for the generated OpenAPI docs.
	mux.Handle("GET /swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	return mux
}

// Listen starts the HTTP server and routes incoming requests to the handler.
func (t *Transport) Listen(ctx context.Context, handler transport.Handler) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", t.port))
	if err != nil {
		return fmt.Errorf("http listen: %w", err)
	}
	return t.Serve(ctx, lis, handler)
}

// Serve runs the HTTP server on lis until ctx is cancelled.
func (t *Transport) Serve(ctx context.Context, lis net.Listener, handler transport.Handler) error {
	server := &http.Server{
		Handler:           t.Routes(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}
	t.mu.Lock()
	t.server = server
	t.mu.Unlock()

	slog.Info("http transport listening", "addr", lis.Addr().String())

	go func() {
		<-ctx.Done()
		slog.Info("http transport shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.Serve(lis); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http serve: %w", err)
	}
	return nil
}

// handleDispatch processes a POST /dispatch request.
//
// @Summary     Dispatch a jukebox command
// @Description Accepts a JSON envelope. "play" searches the literal parameter on the default player,
// @Description "next" and "stop" act on the default player and "jukebox" parses the parameter as a spoken request.
// @Description Unknown commands are accepted and ignored.
// @Tags        dispatch
// @Accept      json
// @Produce     json
// @Param       envelope          body    message.Envelope  true   "Command envelope"
// @Param       X-Jukebox-Source  header  string            false  "Sender identifier"
// @Success     200  {object}  message.Result  "Dispatch outcome"
// @Failure     400  {string}  string  "Malformed envelope or empty request"
// @Failure     500  {string}  string  "Internal processing error"
// @Router      /dispatch [post]
func (t *Transport) handleDispatch(w http.ResponseWriter, r *http.Request, handler transport.Handler) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "reading body: "+err.Error(), http.StatusBadRequest)
		return
	}

	env, err := message.DecodeEnvelope(body)
	if err != nil {
		http.Error(w, "invalid request: "+err.Error(), http.StatusBadRequest)
		return
	}
	env.Source = r.Header.Get(SourceHeader)
	if env.Source == "" {
		env.Source = "http:" + r.RemoteAddr
	}

	result, err := handler(r.Context(), env)
	if err != nil {
		if dispatch.IsClientError(err) {
			http.Error(w, "invalid request: "+err.Error(), http.StatusBadRequest)
			return
		}
		slog.Error("dispatch failed", "error", err)
		http.Error(w, "dispatch error: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(result)
}

// Close gracefully shuts down the HTTP server.
func (t *Transport) Close() error {
	t.mu.Lock()
	server := t.server
	t.mu.Unlock()
	if server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}
