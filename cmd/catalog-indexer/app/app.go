// Package app provides the catalog indexer application.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kart-io/catalog-chat/cmd/catalog-indexer/app/options"
	"github.com/kart-io/catalog-chat/internal/indexer"
	"github.com/kart-io/catalog-chat/pkg/infra/app"
)

const commandDesc = `Catalog Indexer

Loads product CSV files, embeds every row and upserts the vectors into the
configured collection. Re-running over the same files overwrites rows with
the same id, so the collection never holds duplicates.

Use --indexer.watch to keep running and re-index a file whenever it changes.`

// NewApp creates the indexer application.
func NewApp() *app.App {
	opts := options.NewIndexerOptions()
	return app.NewApp(
		app.WithName(indexer.Name),
		app.WithShortDescription("Index product CSV files into the vector store"),
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithArgs(cobra.MinimumNArgs(1)),
		app.WithCommands(newQAJoinCommand()),
		app.WithRunFunc(run(opts)),
	)
}

func run(opts *options.IndexerOptions) app.RunFunc {
	return func(args []string) error {
		cfg, err := opts.Config(args)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		runner, err := cfg.NewRunner(ctx)
		if err != nil {
			return fmt.Errorf("failed to create indexer: %w", err)
		}
		return runner.Run(ctx)
	}
}
