// Package server provides the HTTP API for the survey app.
package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/hyperjump/vidsurvey/internal/config"
	"github.com/hyperjump/vidsurvey/internal/models"
	"github.com/hyperjump/vidsurvey/internal/storage"
	"go.uber.org/zap"
)

// maxBodyBytes caps POST bodies at 100 KiB.
const maxBodyBytes = 100 << 10

// CatalogLoader loads the video catalog.
type CatalogLoader interface {
	Load(ctx context.Context) ([]models.VideoRecord, error)
}

// ContentReader reads narratives and atomic facts by identifier.
type ContentReader interface {
	Narrative(ctx context.Context, narrativeID string) (string, error)
	AtomicFacts(ctx context.Context, videoID string) ([]string, error)
}

// RevisionSource reports how often the content directory has changed.
type RevisionSource interface {
	Revision() int64
	LastChange() time.Time
}

// Server is the HTTP server for the survey API.
type Server struct {
	catalog CatalogLoader
	content ContentReader
	store   storage.Store
	watch   RevisionSource
	config  *config.Config
	logger  *zap.Logger
	now     func() time.Time

	mu      sync.Mutex
	server  *http.Server
	stopped bool
}

// Option configures optional Server dependencies.
type Option func(*Server)

// WithWatch reports the watcher's content revision on /health.
func WithWatch(w RevisionSource) Option {
	return func(s *Server) { s.watch = w }
}

// WithClock overrides the clock used to timestamp responses.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// NewServer creates a server with the given dependencies.
func NewServer(
	catalog CatalogLoader,
	content ContentReader,
	store storage.Store,
	cfg *config.Config,
	logger *zap.Logger,
	opts ...Option,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		catalog: catalog,
		content: content,
		store:   store,
		config:  cfg,
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the HTTP handler with every route and middleware installed.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/videos", s.handleVideos)
		r.Get("/narrative/{narrativeId}", s.handleNarrative)
		r.Get("/atomic-facts/{videoId}", s.handleAtomicFacts)
		r.Get("/responses/{username}", s.handleGetResponses)
		r.With(limitBody(maxBodyBytes)).Post("/responses/{username}/{videoId}", s.handleSaveResponse)
		r.NotFound(s.handleAPINotFound)
		r.MethodNotAllowed(s.handleAPIMethodNotAllowed)
	})
	r.Get("/health", s.handleHealth)

	if s.config.Server.Production {
		r.NotFound(s.handleStatic)
	}
	return r
}

// Start starts the HTTP server and blocks until it stops.
// It returns nil after a graceful Stop.
func (s *Server) Start() error {
	addr := s.config.Server.Addr()
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	hs := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.server = hs
	s.mu.Unlock()

	s.logger.Info("Starting server", zap.String("addr", addr))
	if s.config.Server.Production {
		s.logger.Info("Production mode: serving static files", zap.String("static_dir", s.config.Server.StaticDir))
	} else {
		s.logger.Info("Development mode: API only; serve the frontend separately")
	}
	if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully shuts down the server. A Start that has not begun listening yet
// returns immediately.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.stopped = true
	hs := s.server
	s.mu.Unlock()
	if hs != nil {
		return hs.Shutdown(ctx)
	}
	return nil
}
