package main

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/PoLsss/ML-lightrag-core/internal/mcpadapter"
	"github.com/PoLsss/ML-lightrag-core/internal/setup"
	"github.com/PoLsss/ML-lightrag-core/internal/setup/logger"
	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
)

func main() {
	_ = godotenv.Load()

	cfg := setup.LoadConfig()

	// stdout carries the protocol
	log.Logger = logger.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	appLogger := log.Logger

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := setup.Wire(ctx, cfg, &appLogger)
	if err != nil {
		appLogger.Error().Err(err).Msg("Unable to load dependencies")
		os.Exit(1)
	}
	defer deps.Close()

	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "lightrag-query",
			Version: setup.Version,
		}, nil,
	)
	mcpadapter.Register(server, deps.Service)

	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		// EOF / "server is closing" is expected when stdin closes
		if errors.Is(err, io.EOF) || strings.Contains(err.Error(), "server is closing") {
			appLogger.Debug().Err(err).Msg("MCP server stopped")
			return
		}
		appLogger.Error().Err(err).Msg("Failed to run mcp server")
		os.Exit(1)
	}
}
