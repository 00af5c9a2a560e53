// Package main is the entry point for the catalog chat server.
package main

import (
	_ "go.uber.org/automaxprocs"

	"github.com/kart-io/catalog-chat/cmd/catalog-chat/app"
)

func main() {
	app.NewApp().Run()
}
