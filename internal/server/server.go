// Package server provides the HTTP server for the drishti monitoring service.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ayusman/drishti/internal/server/api"
	"github.com/ayusman/drishti/internal/store"
)

// Monitor is the live monitoring service the server fronts. *app.App implements it.
type Monitor interface {
	api.FrameMonitor
	api.SessionSaver
	Analyzer
	SessionCount() int
}

// Config holds the server configuration.
type Config struct {
	StaticDir string
	Store     *store.Store
	Monitor   Monitor
	// Advisor serves /api/eye-care. Nil answers 503.
	Advisor api.Advisor
	Logger  *zap.Logger
	// RatePerSec and RateBurst bound requests per client IP. Zero disables limiting.
	RatePerSec float64
	RateBurst  int
}

// Server represents the HTTP server for the drishti service.
type Server struct {
	config   Config
	mux      *http.ServeMux
	handler  http.Handler
	logger   *zap.Logger
	validate *validator.Validate
	start    time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config:   config,
		mux:      http.NewServeMux(),
		logger:   config.Logger,
		validate: validator.New(),
		start:    time.Now(),
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	s.setupRoutes()

	var h http.Handler = s.mux
	h = withCORS(h)
	if config.RatePerSec > 0 {
		burst := config.RateBurst
		if burst <= 0 {
			burst = 1
		}
		h = withRateLimit(newRateLimiter(rate.Limit(config.RatePerSec), burst), s.logger, h)
	}
	h = withAccessLog(s.logger, h)
	s.handler = withRequestID(h)

	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)
	s.mux.HandleFunc("/api/py/helloFastApi", s.handleHello)

	if s.config.Monitor != nil {
		frames := api.NewFrameHandler(s.config.Monitor, s.validate, s.logger)
		s.mux.HandleFunc("/api/py/detect-eye-direction", frames.EyeDirection)
		s.mux.HandleFunc("/api/py/detect-blink", frames.Blink)
		s.mux.HandleFunc("/api/py/detect-ambient-light", frames.AmbientLight)
		s.mux.HandleFunc("/api/py/check-distance", frames.Distance)

		s.mux.Handle("/api/ws", NewLiveHandler(s.config.Monitor, s.logger))
	}

	if s.config.Store != nil {
		s.mux.Handle("/api/py/register-token", api.NewTokenHandler(s.config.Store, s.validate, s.logger))
		s.mux.Handle("/api/metrics", api.NewMetricsHandler(s.config.Store, s.logger))

		var saver api.SessionSaver
		if s.config.Monitor != nil {
			saver = s.config.Monitor
		}
		s.mux.Handle("/api/sessions", api.NewSessionHandler(saver, s.config.Store, s.validate, s.logger))
	}

	if s.config.Advisor != nil {
		s.mux.Handle("/api/eye-care", api.NewAdviceHandler(s.config.Advisor, s.logger))
	} else {
		s.mux.HandleFunc("/api/eye-care", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "eye-care advice is not configured", http.StatusServiceUnavailable)
		})
	}

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sessions := 0
	if s.config.Monitor != nil {
		sessions = s.config.Monitor.SessionCount()
	}

	writeJSON(w, map[string]interface{}{
		"status":   "ok",
		"uptime":   time.Since(s.start).String(),
		"sessions": sessions,
	})
}

// handleHello handles GET /api/py/helloFastApi.
func (s *Server) handleHello(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, map[string]string{"message": "Hello from FastAPI"})
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
