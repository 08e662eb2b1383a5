// Package webui serves the REST API and the bundled single-page UI.
package webui

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"finparser/excelgen"
	"finparser/filestore"
	"finparser/metrics"
	"finparser/pipeline"
)

// ServiceName is reported by /health.
const ServiceName = "Financial PDF Parser API"

// AuthProvider wraps handlers with authentication. It is implemented by
// auth.BasicAuth and kept as an interface so that package can depend on this one.
type AuthProvider interface {
	Middleware(next http.Handler) http.Handler
}

// OperationRunner tracks in-flight work so shutdown can wait for it.
// shutdown.Manager implements it.
type OperationRunner interface {
	WrapOperation(ctx context.Context, name string, fn func(context.Context) error) error
}

// runnerState is implemented by runners that can report shutdown progress.
type runnerState interface {
	ActiveOperations() int64
	IsShuttingDown() bool
}

type directRunner struct{}

func (directRunner) WrapOperation(ctx context.Context, _ string, fn func(context.Context) error) error {
	return fn(ctx)
}

// ServerConfig configures the Server.
type ServerConfig struct {
	Host string
	Port int

	// UploadDir holds uploaded PDFs while they are processed
	UploadDir      string
	MaxUploadBytes int64

	// Uploads allowed per client IP within UploadWindow
	UploadLimit  int
	UploadWindow time.Duration

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	LogSkipPaths []string
}

// DefaultServerConfig returns the defaults for a local deployment.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:            "0.0.0.0",
		Port:            5000,
		UploadDir:       "uploads",
		MaxUploadBytes:  50 << 20,
		UploadLimit:     20,
		UploadWindow:    time.Minute,
		ReadTimeout:     60 * time.Second,
		WriteTimeout:    10 * time.Minute,
		IdleTimeout:     120 * time.Second,
		ShutdownTimeout: 30 * time.Second,
		LogSkipPaths:    []string{"/health", "/metrics"},
	}
}

// Deps are the services behind the API. Metrics, Auth and Runner are optional.
type Deps struct {
	Processor *pipeline.Processor
	Results   *pipeline.Results
	Generator *excelgen.Generator
	Files     *filestore.Manager
	Metrics   *metrics.Recorder
	Auth      AuthProvider
	Runner    OperationRunner
}

// Server is the HTTP server.
type Server struct {
	config     ServerConfig
	deps       Deps
	router     *mux.Router
	httpServer *http.Server
	limiter    *RateLimiter
	static     *StaticAssetHandler
	logger     *zap.Logger
}

// NewServer creates a Server and registers all routes.
func NewServer(config ServerConfig, deps Deps, logger *zap.Logger) (*Server, error) {
	if deps.Processor == nil || deps.Results == nil || deps.Files == nil {
		return nil, errors.New("webui: processor, results and file store are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	defaults := DefaultServerConfig()
	if config.MaxUploadBytes <= 0 {
		config.MaxUploadBytes = defaults.MaxUploadBytes
	}
	if config.UploadLimit <= 0 {
		config.UploadLimit = defaults.UploadLimit
	}
	if config.UploadWindow <= 0 {
		config.UploadWindow = defaults.UploadWindow
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = defaults.ShutdownTimeout
	}
	if config.UploadDir == "" {
		config.UploadDir = defaults.UploadDir
	}
	if deps.Generator == nil {
		deps.Generator = excelgen.NewGenerator(nil)
	}
	if deps.Runner == nil {
		deps.Runner = directRunner{}
	}

	s := &Server{
		config:  config,
		deps:    deps,
		router:  mux.NewRouter(),
		limiter: NewRateLimiter(config.UploadLimit, config.UploadWindow, config.UploadWindow),
		static:  NewStaticAssetHandler(DefaultStaticAssetConfig()),
		logger:  logger.Named("webui"),
	}
	s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", config.Host, config.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	s.logger.Info("Server created",
		zap.String("addr", addr),
		zap.Bool("auth_enabled", deps.Auth != nil),
		zap.Bool("ai_enabled", deps.Processor.HasAI()))
	return s, nil
}

func (s *Server) setupRoutes() {
	r := s.router
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	if s.deps.Metrics != nil {
		r.Handle("/metrics", s.deps.Metrics.Handler()).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/companies", s.handleCompanies).Methods(http.MethodGet)
	api.HandleFunc("/parse", s.handleParse).Methods(http.MethodPost)
	api.HandleFunc("/{format:excel|csv}/{method:config|ai}", s.handleGenerate).Methods(http.MethodPost)
	api.HandleFunc("/export", s.handleExport).Methods(http.MethodPost)
	api.HandleFunc("/update-financial-data", s.handleUpdate).Methods(http.MethodPost)
	api.HandleFunc("/results/{company}/{document}", s.handleResults).Methods(http.MethodGet)
	api.PathPrefix("/download/").HandlerFunc(s.handleDownload).Methods(http.MethodGet)
	api.HandleFunc("/files", s.handleListFiles).Methods(http.MethodGet)
	api.HandleFunc("/files/{id}", s.handleFileInfo).Methods(http.MethodGet)
	api.HandleFunc("/files/{id}", s.handleDeleteFile).Methods(http.MethodDelete)
	api.HandleFunc("/files/{id}/download", s.handleFileDownload).Methods(http.MethodGet)
	api.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)
	api.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Endpoint not found")
	})

	r.PathPrefix("/static/").Handler(s.static)
	r.HandleFunc("/", s.static.ServeIndex).Methods(http.MethodGet)
}

// Handler returns the router wrapped in authentication and request logging.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.router
	if s.deps.Auth != nil {
		protected := s.deps.Auth.Middleware(s.router)
		h = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/health" {
				s.router.ServeHTTP(w, r)
				return
			}
			protected.ServeHTTP(w, r)
		})
	}
	return NewLoggingMiddleware(s.logger, s.config.LogSkipPaths...).Handler(h)
}

// Start listens until the server is shut down. The upload limiter is
// cleaned up in the background until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.limiter.StartCleanupTicker(ctx, 5*time.Minute)
	s.logger.Info("Server starting", zap.String("addr", s.httpServer.Addr))

	err := s.httpServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server error: %w", err)
	}
	return nil
}

// Shutdown stops accepting connections and waits for active requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown error: %w", err)
	}
	s.logger.Info("Server stopped")
	return nil
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}
