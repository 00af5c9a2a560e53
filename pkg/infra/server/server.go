// Package server starts the HTTP server and other runnables together and
// stops them in reverse order on SIGINT or SIGTERM.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/kart-io/logger"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
)

// DefaultShutdownTimeout bounds Stop when no timeout is configured.
const DefaultShutdownTimeout = 15 * time.Second

// Runnable is a long-lived component driven by the Manager. Start returns
// once the component accepts work; Stop drains it within ctx.
type Runnable interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Option configures a Manager.
type Option func(*Manager)

// WithServer adds a runnable. Runnables start in the order given and stop
// in reverse order.
func WithServer(r Runnable) Option {
	return func(m *Manager) {
		m.servers = append(m.servers, r)
	}
}

// WithShutdownTimeout sets the graceful shutdown timeout.
func WithShutdownTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.shutdownTimeout = d
		}
	}
}

// WithCleanup registers a function run after all servers stopped.
func WithCleanup(fn func(ctx context.Context) error) Option {
	return func(m *Manager) {
		m.cleanups = append(m.cleanups, fn)
	}
}

// Manager manages multiple servers with unified lifecycle.
type Manager struct {
	servers         []Runnable
	cleanups        []func(ctx context.Context) error
	shutdownTimeout time.Duration

	mu      sync.Mutex
	started []Runnable
}

// NewManager creates a new server manager with the given options.
func NewManager(opts ...Option) *Manager {
	m := &Manager{shutdownTimeout: DefaultShutdownTimeout}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AddServer adds a custom server to the manager.
func (m *Manager) AddServer(server Runnable) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.servers = append(m.servers, server)
}

// Start starts all servers. When one fails, the ones already started are
// stopped before the error is returned.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.started) > 0 {
		return fmt.Errorf("server manager already started")
	}

	for _, server := range m.servers {
		if err := server.Start(ctx); err != nil {
			for i := len(m.started) - 1; i >= 0; i-- {
				_ = m.started[i].Stop(ctx)
			}
			m.started = nil
			return fmt.Errorf("failed to start server %s: %w", server.Name(), err)
		}
		m.started = append(m.started, server)
		logger.Infow("Server started", "name", server.Name())
	}
	return nil
}

// Stop stops all started servers gracefully, then runs cleanups.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	started := m.started
	m.started = nil
	m.mu.Unlock()

	var errs []error
	for i := len(started) - 1; i >= 0; i-- {
		server := started[i]
		if err := server.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop server %s: %w", server.Name(), err))
			continue
		}
		logger.Infow("Server stopped", "name", server.Name())
	}

	for _, cleanup := range m.cleanups {
		if err := cleanup(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return utilerrors.NewAggregate(errs)
}

// Run starts all servers and blocks until ctx is done or SIGINT/SIGTERM
// arrives, then shuts down within the shutdown timeout.
func (m *Manager) Run(ctx context.Context) error {
	if err := m.Start(ctx); err != nil {
		return err
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		logger.Infow("Server shutting down...", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Server shutting down...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), m.shutdownTimeout)
	defer cancel()

	return m.Stop(shutdownCtx)
}
