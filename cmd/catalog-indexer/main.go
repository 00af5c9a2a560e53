// Package main is the entry point for the catalog indexer.
package main

import (
	_ "go.uber.org/automaxprocs"

	"github.com/kart-io/catalog-chat/cmd/catalog-indexer/app"
)

func main() {
	app.NewApp().Run()
}
