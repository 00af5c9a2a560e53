// Package main is the entry point for the catalog price converter.
package main

import (
	_ "go.uber.org/automaxprocs"

	"github.com/kart-io/catalog-chat/cmd/catalog-pricefix/app"
)

func main() {
	app.NewApp().Run()
}
