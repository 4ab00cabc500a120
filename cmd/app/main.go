package main

import (
	"context"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:  "ekko",
		Usage: "Search, inspect, and export AI conversation archives (OpenAI and Claude export files)",
		Commands: []*cli.Command{
			listCommand(),
			searchCommand(),
			showCommand(),
			exportCommand(),
			mcpCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
