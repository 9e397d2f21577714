// Package server exposes the tutorial over HTTP: rendered lesson pages, a
// JSON API for search, validation and simulated runs, a WebSocket live
// search, health and Prometheus metrics.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/conneroisu/luatutor/internal/catalog"
	"github.com/conneroisu/luatutor/internal/config"
	apperrors "github.com/conneroisu/luatutor/internal/errors"
	"github.com/conneroisu/luatutor/internal/logging"
	"github.com/conneroisu/luatutor/internal/metrics"
	"github.com/conneroisu/luatutor/internal/sandbox"
	"github.com/conneroisu/luatutor/internal/search"
	"github.com/conneroisu/luatutor/internal/view"
)

const (
	// Idle editor sessions are dropped after this long.
	sessionIdle   = 30 * time.Minute
	pruneInterval = time.Minute

	maxBodyBytes = 64 << 10
)

// Server serves one immutable catalog.
type Server struct {
	cfg     *config.Config
	tree    *catalog.Tree
	index   *search.Index
	runners *sandbox.Pool
	metrics *metrics.Metrics
	logger  logging.Logger
	errs    *apperrors.ErrorHandler

	httpServer   *http.Server
	serverMutex  sync.RWMutex
	shutdownOnce sync.Once
}

// New creates a Server. A nil metrics gets a fresh registry.
func New(cfg *config.Config, tree *catalog.Tree, logger logging.Logger, m *metrics.Metrics) *Server {
	if logger == nil {
		logger = logging.Nop()
	}
	if m == nil {
		m = metrics.New()
	}
	logger = logger.WithComponent("server")
	return &Server{
		cfg:     cfg,
		tree:    tree,
		index:   search.NewIndex(tree, search.WithPreviewRadius(cfg.Search.PreviewRadius)),
		runners: sandbox.NewPool(cfg.Sandbox.MaxSessions, sandbox.WithDelay(cfg.Sandbox.RunDelay)),
		metrics: m,
		logger:  logger,
		errs:    apperrors.NewErrorHandler(logger),
	}
}

// Handler returns the routed handler wrapped in middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /docs/{section}/{subsection}", s.handleDoc)
	mux.HandleFunc("GET /search", s.handleSearchPage)
	mux.HandleFunc("GET /api/catalog", s.handleCatalog)
	mux.HandleFunc("GET /api/search", s.handleSearch)
	mux.HandleFunc("POST /api/validate", s.handleValidate)
	mux.HandleFunc("POST /api/run", s.handleRun)
	mux.HandleFunc("GET /ws/search", s.handleLiveSearch)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", s.metrics.Handler())
	mux.Handle("GET /static/", view.Static())

	return s.recoverMiddleware(s.corsMiddleware(s.observeMiddleware(mux)))
}

// Start listens on the configured address and serves until ctx is cancelled
// or Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Server.Addr())
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Server.Addr(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled or Shutdown is called.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.serverMutex.Lock()
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	server := s.httpServer
	s.serverMutex.Unlock()

	go s.pruneSessions(ctx)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(shutdownCtx, err, "Shutdown failed")
		}
	}()

	s.logger.Info(ctx, "Server listening", "addr", ln.Addr().String())
	if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server. It is safe to call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.logger.Info(ctx, "Shutting down server")

		s.serverMutex.RLock()
		server := s.httpServer
		s.serverMutex.RUnlock()

		if server != nil {
			shutdownErr = server.Shutdown(ctx)
		}
	})
	return shutdownErr
}

func (s *Server) pruneSessions(ctx context.Context) {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.runners.Prune(sessionIdle); n > 0 {
				s.logger.Debug(ctx, "Pruned idle editor sessions", "count", n)
			}
		}
	}
}
