// dmnserve - a DMN decision-table evaluation service.
// Copyright (c) 2025 opensource.finance
// Licensed under the Apache License 2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/dmnserve/dmnserve/internal/api"
	"github.com/dmnserve/dmnserve/internal/bus"
	"github.com/dmnserve/dmnserve/internal/cache"
	"github.com/dmnserve/dmnserve/internal/domain"
	"github.com/dmnserve/dmnserve/internal/expr"
	"github.com/dmnserve/dmnserve/internal/repository"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	logLevel := slog.LevelInfo
	if os.Getenv("DMNSERVE_DEBUG") == "true" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	slog.Info("starting dmnserve",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)

	cfg := domain.DefaultConfig()

	switch strings.ToLower(strings.TrimSpace(os.Getenv("DMNSERVE_TIER"))) {
	case "", "community":
		// Community defaults already applied.
	case "pro":
		cfg = domain.ProConfig()
		slog.Info("running in Pro tier mode")
	case "enterprise":
		slog.Warn("DMNSERVE_TIER=enterprise is not available in the open-source build; falling back to community tier")
	default:
		slog.Warn("unsupported DMNSERVE_TIER value; falling back to community tier", "value", os.Getenv("DMNSERVE_TIER"))
	}

	applyEnvOverrides(cfg)

	slog.Info("configuration loaded",
		"tier", cfg.Tier,
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	repo, err := repository.New(cfg.Repository)
	if err != nil {
		slog.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	compiler, err := expr.NewCompiler(cacheImpl)
	if err != nil {
		slog.Error("failed to initialize expression compiler", "error", err)
		os.Exit(1)
	}
	loader := expr.NewLoader(compiler)
	evaluator := expr.Evaluator{}
	slog.Info("expression engine initialized")

	srv := api.NewServer(cfg.Server, repo, cacheImpl, busImpl, loader, evaluator, Version)

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("dmnserve is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version)

	<-ctx.Done()
	slog.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("dmnserve shutdown complete")
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  dmnserve")
	fmt.Println("  DMN decision-table evaluation service")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Tier:     %s\n", cfg.Tier)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST   /tables               - Create a decision table")
	fmt.Println("    GET    /tables                - List decision tables")
	fmt.Println("    GET    /tables/{id}           - Get a decision table")
	fmt.Println("    DELETE /tables/{id}           - Delete a decision table")
	fmt.Println("    POST   /tables/{id}/evaluate  - Evaluate a decision table")
	fmt.Println("    GET    /evaluations/{id}      - Get an evaluation record")
	fmt.Println("    GET    /health                - Health check")
	fmt.Println("    GET    /ready                 - Readiness check")
	fmt.Println()
}

// applyEnvOverrides applies environment variable overrides to the config,
// enabling configuration via environment for Docker/Kubernetes deployments.
func applyEnvOverrides(cfg *domain.Config) {
	if driver := os.Getenv("DMNSERVE_DB_DRIVER"); driver != "" {
		cfg.Repository.Driver = driver
	}

	if host := os.Getenv("DMNSERVE_POSTGRES_HOST"); host != "" {
		cfg.Repository.PostgresHost = host
	}
	if port := os.Getenv("DMNSERVE_POSTGRES_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Repository.PostgresPort = p
		}
	}
	if user := os.Getenv("DMNSERVE_POSTGRES_USER"); user != "" {
		cfg.Repository.PostgresUser = user
	}
	if password := os.Getenv("DMNSERVE_POSTGRES_PASSWORD"); password != "" {
		cfg.Repository.PostgresPassword = password
	}
	if db := os.Getenv("DMNSERVE_POSTGRES_DB"); db != "" {
		cfg.Repository.PostgresDB = db
	}
	if sslMode := os.Getenv("DMNSERVE_POSTGRES_SSLMODE"); sslMode != "" {
		cfg.Repository.PostgresSSLMode = sslMode
	}

	if cacheType := os.Getenv("DMNSERVE_CACHE_TYPE"); cacheType != "" {
		cfg.Cache.Type = cacheType
	}

	if addr := os.Getenv("DMNSERVE_REDIS_ADDR"); addr != "" {
		cfg.Cache.RedisAddr = addr
	}
	if password := os.Getenv("DMNSERVE_REDIS_PASSWORD"); password != "" {
		cfg.Cache.RedisPassword = password
	}
	if db := os.Getenv("DMNSERVE_REDIS_DB"); db != "" {
		if d, err := strconv.Atoi(db); err == nil {
			cfg.Cache.RedisDB = d
		}
	}

	if busType := os.Getenv("DMNSERVE_BUS_TYPE"); busType != "" {
		cfg.EventBus.Type = busType
	}

	if url := os.Getenv("DMNSERVE_NATS_URL"); url != "" {
		cfg.EventBus.NATSUrl = url
	}

	if port := os.Getenv("DMNSERVE_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}
	if host := os.Getenv("DMNSERVE_HOST"); host != "" {
		cfg.Server.Host = host
	}
}
