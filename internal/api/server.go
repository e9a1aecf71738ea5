// Package api serves the detection engine over HTTP.
//
// Uploaded files are written to a per-request temporary directory that is
// removed when the request ends. Masked copies go to the download directory
// and are fetched with GET /api/download/{filename}.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ironsheep/pii-redactor/internal/analyzer"
	"github.com/ironsheep/pii-redactor/internal/tabular"
)

const (
	defaultTimeout = 10 * time.Minute
	// MaxUploadBytes bounds a multipart request body.
	MaxUploadBytes = 64 << 20
)

// Server holds the HTTP API dependencies.
type Server struct {
	router      *chi.Mux
	engine      *analyzer.Engine
	downloadDir string
	options     analyzer.Options
	seed        uint64
	version     string
	startTime   time.Time
}

// Option configures the Server.
type Option func(*Server)

// WithDefaults sets the detection options and sampling seed used when a
// request leaves them out.
func WithDefaults(opts analyzer.Options, seed uint64) Option {
	return func(s *Server) {
		s.options = opts
		s.seed = seed
	}
}

// WithVersion sets the version reported by GET /.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// NewServer builds a Server writing masked files into downloadDir.
func NewServer(engine *analyzer.Engine, downloadDir string, opts ...Option) *Server {
	s := &Server{
		router:      chi.NewRouter(),
		engine:      engine,
		downloadDir: downloadDir,
		options:     analyzer.DefaultOptions(),
		seed:        tabular.DefaultSeed,
		version:     "dev",
		startTime:   time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Routes returns the chi router with all middleware and routes.
func (s *Server) Routes() http.Handler {
	r := s.router
	r.Use(RequestIDMiddleware)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleIndex)
	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(defaultTimeout))
		r.Get("/entities", s.handleEntities)
		r.Post("/analyze/text", s.handleAnalyzeText)
		r.Post("/analyze/{kind}", s.handleAnalyzeFile)
		r.Get("/download/{filename}", s.handleDownload)
	})
	return r
}
