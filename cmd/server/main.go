package main

import (
	"context"
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/agenthands/snapdiff/internal/config"
	"github.com/agenthands/snapdiff/internal/core"
	"github.com/agenthands/snapdiff/internal/driver"
	"github.com/agenthands/snapdiff/internal/observability"
	"github.com/agenthands/snapdiff/internal/server"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, using defaults")
	}

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config/config.toml"
	}
	cfg, err := config.LoadOrDefault(cfgPath)
	if err != nil {
		slog.Error("failed to load configuration", "path", cfgPath, "error", err)
		os.Exit(1)
	}
	cfg.ApplyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	var graph driver.GraphDriver
	if cfg.Memgraph.URI != "" {
		d, err := driver.NewMemgraphDriver(cfg.Memgraph.URI, cfg.Memgraph.User, cfg.Memgraph.Password)
		if err != nil {
			slog.Error("failed to connect to Memgraph", "uri", cfg.Memgraph.URI, "error", err)
			os.Exit(1)
		}
		defer d.Close(context.Background())
		if err := d.BuildIndices(context.Background()); err != nil {
			slog.Warn("failed to build indices", "error", err)
		}
		graph = d
	}

	metrics := observability.NewMetrics()
	srv := server.NewServer(core.Build(cfg, graph, metrics), metrics)
	r := srv.SetupRouter()

	addr := ":" + strconv.Itoa(cfg.Server.Port)
	slog.Info("starting server", "addr", addr, "collaborator", cfg.Compare.CollaboratorEndpoint,
		"fallback", cfg.Compare.Fallback, "graph", graph != nil)
	if err := r.Run(addr); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
