package handlers

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nijaru/yt-themes/config"
	"github.com/nijaru/yt-themes/middleware"
	"github.com/nijaru/yt-themes/validation"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	web       *WebHandler
	themes    *ThemesHandler
	db        Pinger
	config    *config.Config
	logger    *logrus.Logger
	server    *http.Server
	startTime time.Time
}

type ServerOption func(*Server)

// NewServer creates the HTTP server. WithService must be among opts.
func NewServer(cfg *config.Config, opts ...ServerOption) *Server {
	s := &Server{
		config:    cfg,
		logger:    logrus.StandardLogger(),
		startTime: time.Now(),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.server = &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      s.routes(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// WithService sets up the handlers with the theme service.
func WithService(service ThemeService) ServerOption {
	return func(s *Server) {
		validator := validation.NewValidator(validation.DefaultMaxThemes, validation.DefaultMaxFieldLength)
		s.web = NewWebHandler(service, validator, s.config.Defaults, s.logger)
		s.themes = NewThemesHandler(service, validator, s.logger)
	}
}

// WithLogger sets a custom logger. It must precede WithService.
func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithDatabase adds a database check to the health endpoint.
func WithDatabase(db Pinger) ServerOption {
	return func(s *Server) {
		s.db = db
	}
}

func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) Start() error {
	s.logger.WithField("port", s.config.ServerPort).Info("Starting server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")
	return s.server.Shutdown(ctx)
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	var limit func(http.Handler) http.Handler
	if s.config.RateLimit.Enabled {
		limit = middleware.NewRateLimiter(
			s.config.RateLimit.RequestsPerMinute,
			s.config.RateLimit.BurstSize,
		).Middleware
	}
	limited := func(h http.HandlerFunc) http.Handler {
		return middleware.Chain(h, limit)
	}

	mux.HandleFunc("GET /{$}", s.web.HandleIndex)
	mux.Handle("POST /analyze", limited(s.web.HandleAnalyze))

	const v1Prefix = "/api/v1"
	mux.Handle("POST "+v1Prefix+"/themes", limited(s.themes.HandleAnalyze))
	mux.HandleFunc("GET "+v1Prefix+"/themes/chart.svg", s.themes.HandleChart)
	mux.HandleFunc("GET "+v1Prefix+"/runs", s.themes.HandleListRuns)
	mux.HandleFunc("GET "+v1Prefix+"/runs/{id}", s.themes.HandleGetRun)

	mux.HandleFunc("GET /health", s.handleHealth)

	return middleware.Chain(mux,
		middleware.RequestID(),
		middleware.Logging(s.logger),
		middleware.Recovery(s.logger),
		middleware.Timeout(s.config.RequestTimeout),
	)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status":  "ok",
		"version": s.config.Version,
		"uptime":  time.Since(s.startTime).String(),
	}

	code := http.StatusOK
	if s.db != nil {
		if err := s.db.Ping(r.Context()); err != nil {
			middleware.GetLogger(r.Context()).WithError(err).Error("Database health check failed")
			status["status"] = "degraded"
			status["database"] = "unavailable"
			code = http.StatusServiceUnavailable
		} else {
			status["database"] = "ok"
		}
	}

	if s.config.Debug {
		status["goroutines"] = runtime.NumGoroutine()
		var m runtime.MemStats
		runtime.ReadMemStats(&m)
		status["memory"] = map[string]interface{}{
			"allocated": m.Alloc,
			"system":    m.Sys,
			"gc_cycles": m.NumGC,
		}
	}

	respondJSON(w, r, code, status)
}
