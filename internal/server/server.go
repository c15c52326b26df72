// Package server serves the generated site together with health, status,
// metrics, and rebuild endpoints.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	derrors "git.home.luguber.info/inful/postbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/postbuilder/internal/site"
)

// Rebuilder triggers builds and reports on the last one. *site.Runner implements it.
type Rebuilder interface {
	Run(ctx context.Context, reason string, syncContent bool) (*site.Report, error)
	Status() site.Status
}

// Options configures a Server.
type Options struct {
	Addr string
	// Dir is the generated site served at /.
	Dir string
	// Metrics, when set, is mounted at /metrics.
	Metrics http.Handler
	Logger  *slog.Logger
}

// Server is the preview and control HTTP server.
type Server struct {
	opts      Options
	rebuilder Rebuilder
	adapter   *derrors.HTTPErrorAdapter
	logger    *slog.Logger
	started   time.Time
	handler   http.Handler
}

// New wires the routes. rebuilder may be nil to serve the site read-only.
func New(opts Options, rebuilder Rebuilder) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		opts:      opts,
		rebuilder: rebuilder,
		adapter:   derrors.NewHTTPErrorAdapter(logger),
		logger:    logger,
		started:   time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	if opts.Metrics != nil {
		mux.Handle("GET /metrics", opts.Metrics)
	}
	if rebuilder != nil {
		mux.HandleFunc("GET /api/status", s.handleStatus)
		mux.HandleFunc("POST /api/rebuild", s.handleRebuild)
	}
	mux.Handle("/", newSiteHandler(opts.Dir))

	s.handler = chain(logger, s.adapter)(mux)
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.handler }

// ListenAndServe serves until ctx is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", s.opts.Addr)
	if err != nil {
		return derrors.WrapError(err, derrors.CategoryNetwork, "failed to listen").
			WithContext("addr", s.opts.Addr).
			Build()
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is canceled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", slog.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return derrors.WrapError(err, derrors.CategoryNetwork, "HTTP server failed").Build()
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return derrors.WrapError(err, derrors.CategoryRuntime, "HTTP server shutdown failed").Build()
	}
	s.logger.Info("HTTP server stopped")
	return nil
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		s.adapter.WriteErrorResponse(w, r, derrors.WrapError(err, derrors.CategoryInternal, "failed to encode response").Build())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(b, '\n'))
}
