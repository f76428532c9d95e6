// Command web serves the turnstile rankings over HTTP.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"turnstilecli/internal/app"
	"turnstilecli/pkg/contracts"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (default: $TURNSTILE_CONFIG or ./config.yaml)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(contracts.GetFullVersionString())
		return
	}

	application, err := app.NewApplication(*configPath)
	if err != nil {
		slog.Error("Failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		slog.Error("Application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
