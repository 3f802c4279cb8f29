// The web command runs the DealPulse HTTP server.
package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"dealpulse/internal/app"
)

func main() {
	// Optional .env for local development; real deployments use the
	// environment directly.
	if err := godotenv.Load(); err == nil {
		slog.Info("loaded .env file")
	}

	application, err := app.NewApplication()
	if err != nil {
		slog.Error("failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
