package server

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/nao1215/satyagyan/internal/config"
	"github.com/nao1215/satyagyan/internal/database"
	"github.com/nao1215/satyagyan/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

// shutdownTimeout bounds how long in-flight requests may run after the
// server is asked to stop.
const shutdownTimeout = 30 * time.Second

// Checker runs a single fact check.
type Checker interface {
	Check(ctx context.Context, input model.Input) (*model.FactCheckReport, error)
}

// Server serves the web form and the JSON API.
type Server struct {
	checker       Checker
	store         database.Store
	metrics       *Metrics
	logger        *slog.Logger
	maxUploadSize int64
	version       string
	templates     *template.Template
	router        *mux.Router
}

// Option configures a Server.
type Option func(*Server)

// WithStore enables the history routes.
func WithStore(store database.Store) Option {
	return func(s *Server) {
		s.store = store
	}
}

// WithMetrics sets the metrics. New creates its own when none is given.
func WithMetrics(m *Metrics) Option {
	return func(s *Server) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMaxUploadSize bounds request bodies, including document uploads.
func WithMaxUploadSize(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUploadSize = n
		}
	}
}

// WithVersion sets the version reported by /healthz.
func WithVersion(v string) Option {
	return func(s *Server) {
		s.version = v
	}
}

// New creates a Server that runs checks with c.
func New(c Checker, opts ...Option) *Server {
	s := &Server{
		checker:       c,
		logger:        slog.New(slog.DiscardHandler),
		maxUploadSize: config.DefaultMaxUploadSize,
		version:       "dev",
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = NewMetrics()
	}

	s.templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

	s.routes()
	return s
}

func (s *Server) routes() {
	r := mux.NewRouter()
	r.Use(s.metrics.Middleware)

	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/check", s.handleCheckForm).Methods(http.MethodPost)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/check", s.handleCheckAPI).Methods(http.MethodPost)
	api.HandleFunc("/checks", s.handleListChecks).Methods(http.MethodGet)
	api.HandleFunc("/checks/{id}", s.handleGetCheck).Methods(http.MethodGet)
	api.HandleFunc("/checks/{id}", s.handleDeleteCheck).Methods(http.MethodDelete)
	api.HandleFunc("/checks/{id}/report.txt", s.handleDownload).Methods(http.MethodGet)

	s.router = r
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
