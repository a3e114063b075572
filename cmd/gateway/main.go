package main

import (
	"flag"
	"log"

	"github.com/anthanhphan/go-channel-file-storage/internal/api/app"
	"github.com/joho/godotenv"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "configPath", "", "Path to configuration file")
	flag.Parse()

	// Secrets may live in a local .env; a missing file is fine.
	_ = godotenv.Load()

	application, err := app.New(configPath)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	if err := application.Run(); err != nil {
		log.Fatalf("Application failed: %v", err)
	}
}
