package main

import (
	"log"

	"github.com/srcvote/evote/internal/auth/app"
)

func main() {
	cfg := app.LoadConfig()

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("failed to initialize auth service: %v", err)
	}

	if err := application.Run(); err != nil {
		log.Fatalf("auth service error: %v", err)
	}
}
