package main

import (
	"context"
	"log"

	"github.com/common-nighthawk/go-figure"
	"github.com/dmitrijs2005/vidhub/internal/server"
	"github.com/dmitrijs2005/vidhub/internal/server/config"
)

func main() {
	figure.NewFigure("vidhub", "", true).Print()

	ctx := context.Background()
	cfg := config.LoadConfig()

	app, err := server.NewApp(ctx, cfg)
	if err != nil {
		log.Printf("%v", err)
		return
	}

	app.Run(ctx)
}
