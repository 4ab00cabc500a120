package internal

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/norwick/ekko/internal/checksum"
	"github.com/norwick/ekko/internal/mcpserver"
	"github.com/norwick/ekko/internal/provider"
	"github.com/norwick/ekko/internal/search"
)

// Run starts the MCP server over stdio with the given options. It
// returns when stdin closes, the context is cancelled, or a shutdown
// signal arrives.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config
	source := app.source
	if source == "" {
		source = cfg.Source.Path
	}
	if source == "" {
		return fmt.Errorf("source path is required")
	}

	// Structured JSON logger on stderr; stdout belongs to the MCP
	// stdio transport.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	adapter, err := ResolveAdapter(cfg.Source.Provider, source)
	if err != nil {
		return err
	}

	logger.Info("Configuration loaded",
		slog.String("source", source),
		slog.String("provider", adapter.Name()),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// The server re-scans the file per tool call; the fingerprint ties
	// every answer in this session to the exact bytes served.
	if sum, err := checksum.File(source); err == nil {
		logger.Info("Source fingerprint", slog.String("sha256", sum))
	} else {
		logger.Warn("Source fingerprint unavailable", slog.String("error", err.Error()))
	}

	engine := search.NewEngine().WithSnippetWidth(cfg.Search.SnippetWidth)
	srv := mcpserver.New(adapter, engine, source, cfg.Search.DefaultLimit)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ServeStdio()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("MCP server started", slog.String("transport", "stdio"))

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("MCP server error", slog.String("error", err.Error()))
			return fmt.Errorf("mcp server: %w", err)
		}
	case sig := <-quit:
		logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
	case <-ctx.Done():
		logger.Info("Context cancelled, shutting down")
	}

	logger.Info("Server stopped")
	return nil
}

// ResolveAdapter returns the adapter for an explicit provider name, or
// detects one from the source's structural shape when name is empty or
// "auto".
func ResolveAdapter(name, source string) (*provider.Adapter, error) {
	if name == "" || name == ProviderAuto {
		return provider.Detect(source)
	}
	return provider.ByName(name)
}
