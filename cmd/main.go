package main

import (
	"context"
	"errors"
	"os"

	"github.com/ejmartin/freshwax/internal/shared"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	// Secrets may live in a .env file; absence is fine.
	godotenv.Load()

	config := shared.DefaultConfig()
	if _, err := os.Stat("config.toml"); err == nil {
		if loadedConfig, err := shared.LoadConfig("config.toml"); err == nil {
			config = loadedConfig
		}
	}

	runner := NewRunner(RunnerOpts{
		Config: config,
		Logger: logger,
	})

	app := &cli.Command{
		Name:     "freshwax",
		Usage:    "Discover new music from your Last.fm history as a Spotify playlist",
		Version:  "0.3.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		switch {
		case errors.Is(err, shared.ErrAuthDenied):
			logger.Fatal("authorization denied or timed out")
		case errors.Is(err, shared.ErrAuthExpired):
			logger.Fatal("access token expired and could not be refreshed")
		case errors.Is(err, shared.ErrHistoryUnavailable):
			logger.Fatalf("listening history unavailable: %v", err)
		default:
			logger.Fatalf("application error: %v", err)
		}
	}
}
