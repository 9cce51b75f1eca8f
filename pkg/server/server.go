// Package server is the HTTP front end: a URL form, a variant table and a
// download endpoint that streams the staged file and then releases it.
package server

import (
	"context"
	"embed"
	stderrors "errors"
	"html/template"
	"net"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/cperrin88/grabvid/internal/logger"
	"github.com/cperrin88/grabvid/pkg/errors"
	"github.com/cperrin88/grabvid/pkg/model"
	"github.com/cperrin88/grabvid/pkg/pipeline"
)

//go:embed templates/*.html
var templateFS embed.FS

const shutdownTimeout = 10 * time.Second

// Pipeline is the part of *pipeline.Service the handlers use.
type Pipeline interface {
	FetchVariants(ctx context.Context, url string) (*model.VariantCatalog, error)
	StartDownload(ctx context.Context, url, variantID string) (*pipeline.Download, error)
	ActiveJobCount() int
	CachedCatalogs() int
}

// Options configures the HTTP server.
type Options struct {
	Listen string
	// RateLimit is requests per second across all clients. Zero disables limiting.
	RateLimit         float64
	RateBurst         int
	ReadHeaderTimeout time.Duration
}

// Server serves the web front end.
type Server struct {
	pipeline Pipeline
	opts     Options
	tmpl     *template.Template
	limiter  *rate.Limiter
	handler  http.Handler
}

// New creates a Server and parses the embedded templates.
func New(p Pipeline, opts Options) (*Server, error) {
	tmpl, err := template.New("").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse templates")
	}

	s := &Server{pipeline: p, opts: opts, tmpl: tmpl}
	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /{$}", s.handleLookup)
	mux.HandleFunc("POST /download", s.handleDownload)
	mux.HandleFunc("GET /api/variants", s.handleAPIVariants)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	s.handler = logRequests(s.rateLimit(mux))
	return s, nil
}

// Handler returns the root handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run listens on opts.Listen until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Listen)
	if err != nil {
		return errors.Wrapf(err, "failed to listen on %s", s.opts.Listen)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is canceled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: s.opts.ReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", logger.Fields{"addr": ln.Addr().String()})
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutdown")
	}
	if err := <-errCh; err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
