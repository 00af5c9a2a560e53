// Package http provides the gin based HTTP server.
package http

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	apierrors "github.com/kart-io/catalog-chat/pkg/errors"
	httpopts "github.com/kart-io/catalog-chat/pkg/options/http"
)

// Server is the HTTP server implementation.
type Server struct {
	opts     *httpopts.Options
	engine   *gin.Engine
	server   *http.Server
	listener net.Listener
}

// NewServer creates a new HTTP server. Middleware is installed before any
// route so that route groups inherit it.
func NewServer(opts *httpopts.Options, middleware ...gin.HandlerFunc) *Server {
	if opts == nil {
		opts = httpopts.NewOptions()
	}

	gin.SetMode(opts.Mode)

	// 创建 Gin 引擎（不使用默认中间件）
	engine := gin.New()
	engine.Use(middleware...)

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"code":    apierrors.ErrRouteNotFound.Code,
			"message": apierrors.ErrRouteNotFound.MessageEN,
		})
	})

	return &Server{opts: opts, engine: engine}
}

// Name returns the server name.
func (s *Server) Name() string {
	return "http[gin]"
}

// Engine returns the underlying gin.Engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Addr returns the bound address once started, the configured one before.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.opts.Addr
}

// Start binds the listen address and serves in the background. Bind
// failures are returned synchronously.
func (s *Server) Start(_ context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return err
	}
	s.listener = ln

	s.server = &http.Server{
		Handler:      s.engine,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  s.opts.IdleTimeout,
	}

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorw("HTTP server exited", "addr", s.Addr(), "error", err.Error())
		}
	}()

	logger.Infow("HTTP server listening", "addr", s.Addr())
	return nil
}

// Stop stops the HTTP server gracefully.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
