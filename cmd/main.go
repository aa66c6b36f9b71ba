package main

import (
	"log"

	"github.com/Will-hxw/1688/internal/app"
	"github.com/Will-hxw/1688/internal/app/config"
)

func main() {
	cfg := config.MustLoad()

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}

	application.Run()
}
