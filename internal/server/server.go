// Package server provides the HTTP surface of SHolo: a health endpoint and a
// WebSocket stream of the transform shown by the render loop.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/ayusman/sholo/internal/log"
)

// Config holds the server configuration.
type Config struct {
	Enabled      bool          `yaml:"enabled"`
	Addr         string        `yaml:"addr"`          // Listen address, e.g. "127.0.0.1:8090"
	StaticDir    string        `yaml:"static_dir"`    // Optional directory served at /
	WriteTimeout time.Duration `yaml:"write_timeout"` // Deadline for each WebSocket write
	SendBuffer   int           `yaml:"send_buffer"`   // Per-client queued messages before dropping
}

// DefaultConfig returns the recommended configuration. The server is off by default.
func DefaultConfig() Config {
	return Config{
		Addr:         "127.0.0.1:8090",
		WriteTimeout: time.Second,
		SendBuffer:   8,
	}
}

// Validate reports every out-of-range parameter.
func (c Config) Validate() error {
	var errs []error
	if c.Enabled && c.Addr == "" {
		errs = append(errs, errors.New("addr is required when the server is enabled"))
	}
	if c.WriteTimeout <= 0 {
		errs = append(errs, fmt.Errorf("write_timeout must be positive, got %s", c.WriteTimeout))
	}
	if c.SendBuffer < 1 {
		errs = append(errs, fmt.Errorf("send_buffer must be at least 1, got %d", c.SendBuffer))
	}
	return errors.Join(errs...)
}

// Server represents the HTTP server.
type Server struct {
	config      Config
	mux         *http.ServeMux
	start       time.Time
	broadcaster *Broadcaster
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config:      config,
		mux:         http.NewServeMux(),
		start:       time.Now(),
		broadcaster: NewBroadcaster(config.WriteTimeout, config.SendBuffer),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)
	s.mux.Handle("/api/transform", s.broadcaster)

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// Broadcaster returns the render sink that feeds /api/transform.
func (s *Server) Broadcaster() *Broadcaster {
	return s.broadcaster
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]any{
		"status":  "ok",
		"uptime":  time.Since(s.start).String(),
		"clients": s.broadcaster.Clients(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// Listen binds the configured address so address errors surface before
// any loop starts.
func (s *Server) Listen() (net.Listener, error) {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", s.config.Addr, err)
	}
	return ln, nil
}

// Serve serves on ln until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	log.Info("http server listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
