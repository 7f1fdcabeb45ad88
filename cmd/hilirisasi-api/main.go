// Command hilirisasi-api serves the dashboard JSON API.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"hilirisasi/internal/app"
)

func main() {
	configPath := pflag.StringP("config", "c", "", "config file (default: hilirisasi.yaml, config.yaml or configs/config.yaml)")
	pflag.Parse()

	application, err := app.NewApplication(*configPath)
	if err != nil {
		slog.Error("Failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := application.Run(context.Background()); err != nil {
		application.Logger.Error("Application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
