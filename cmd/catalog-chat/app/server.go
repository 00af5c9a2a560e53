// Package app provides the catalog chat server application.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kart-io/catalog-chat/cmd/catalog-chat/app/options"
	chatsvc "github.com/kart-io/catalog-chat/internal/chat"
	"github.com/kart-io/catalog-chat/pkg/infra/app"
)

// commandDesc is the description of the command.
const commandDesc = `Catalog Chat Server

A retrieval-augmented shopping assistant over a product catalog.

This server provides:
  - POST /v1/chat for multi-session conversations
  - POST /chat for the single default session
  - Vector search over Milvus, Qdrant or an in-memory index
  - Answers generated by an OpenAI compatible chat model`

// NewApp creates and returns a new App object with default parameters.
func NewApp() *app.App {
	opts := options.NewServerOptions()
	return app.NewApp(
		app.WithName(chatsvc.Name),
		app.WithShortDescription("Catalog chat server"),
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithRunFunc(run(opts)),
	)
}

// run contains the main logic for initializing and running the server.
func run(opts *options.ServerOptions) app.RunFunc {
	return func([]string) error {
		cfg, err := opts.Config()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		ctx := setupSignalContext()

		server, err := cfg.NewServer(ctx)
		if err != nil {
			return fmt.Errorf("failed to create server: %w", err)
		}

		return server.Run(ctx)
	}
}

// setupSignalContext returns a context that is cancelled on SIGINT or SIGTERM.
// A second signal exits immediately.
func setupSignalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	c := make(chan os.Signal, 2)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		cancel()
		<-c
		os.Exit(1)
	}()
	return ctx
}
