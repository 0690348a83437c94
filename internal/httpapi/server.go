// Package httpapi serves wizard sessions and market prices as a JSON API for
// web and mobile front ends.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/agrifair/agriwizard/internal/logger"
	"github.com/agrifair/agriwizard/internal/recommend"
	"github.com/agrifair/agriwizard/internal/wizard"
	"github.com/gin-gonic/gin"
)

// PriceSource is the market price collaborator.
type PriceSource interface {
	MarketPricesOrFallback(ctx context.Context) ([]recommend.MarketPrice, bool)
	CheckPrice(ctx context.Context, in recommend.PriceCheckRequest) (recommend.PriceCheck, error)
	Health(ctx context.Context) error
}

// SnapshotLog replays and follows the snapshots of a session.
type SnapshotLog interface {
	History(ctx context.Context, sessionID string) ([]wizard.Snapshot, error)
	Watch(sessionID string, fn func(wizard.Snapshot)) (func() error, error)
}

// Option configures a Server.
type Option func(*Server)

// WithSnapshotLog enables the history and events routes.
func WithSnapshotLog(log SnapshotLog) Option {
	return func(s *Server) { s.log = log }
}

// WithMount serves an extra handler under path, outside /api/v1.
func WithMount(path string, h http.Handler) Option {
	return func(s *Server) { s.mounts[path] = h }
}

// Server is the HTTP front end.
type Server struct {
	registry *wizard.Registry
	prices   PriceSource
	log      SnapshotLog
	mounts   map[string]http.Handler
	engine   *gin.Engine

	// submissions started without ?wait outlive their request; they are
	// bound to the server instead.
	baseCtx context.Context
	cancel  context.CancelFunc
}

// New builds the router.
func New(registry *wizard.Registry, prices PriceSource, opts ...Option) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		registry: registry,
		prices:   prices,
		mounts:   make(map[string]http.Handler),
		baseCtx:  ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.engine = gin.New()
	s.engine.Use(gin.Recovery(), requestLogger())
	s.routes()
	return s
}

func (s *Server) routes() {
	api := s.engine.Group("/api/v1")
	api.GET("/health", s.handleHealth)
	api.GET("/market-prices", s.handleMarketPrices)
	api.POST("/check-price", s.handleCheckPrice)

	sessions := api.Group("/sessions")
	sessions.POST("", s.handleCreate)
	sessions.GET("/:id", s.handleGet)
	sessions.DELETE("/:id", s.handleDelete)
	sessions.PUT("/:id/fields/:field", s.handleSetField)
	sessions.POST("/:id/advance", s.handleAdvance)
	sessions.POST("/:id/retreat", s.handleRetreat)
	sessions.POST("/:id/restart", s.handleRestart)
	sessions.POST("/:id/language", s.handleToggleLanguage)
	sessions.GET("/:id/labels", s.handleLabels)
	sessions.GET("/:id/history", s.handleHistory)
	sessions.GET("/:id/events", s.handleEvents)

	for path, h := range s.mounts {
		s.engine.Any(path, gin.WrapH(h))
	}
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
// ready, if non-nil, receives the bound address once the listener is open.
func (s *Server) Serve(ctx context.Context, addr string, ready func(net.Addr)) error {
	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	if ready != nil {
		ready(listener.Addr())
	}

	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(listener)
	}()
	logger.Info("httpapi: listening on %s", listener.Addr())

	select {
	case err := <-errCh:
		s.cancel()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	logger.Info("httpapi: stopped")
	return nil
}

// Close cancels submissions that were started without waiting.
func (s *Server) Close() {
	s.cancel()
}

// requestLogger routes gin's access log through the package logger.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("httpapi: %s %s -> %d (%s)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}
