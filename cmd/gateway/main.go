// Package main provides the entry point for the preview gateway.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/narvanalabs/preview-gateway/internal/api"
	"github.com/narvanalabs/preview-gateway/internal/auth"
	"github.com/narvanalabs/preview-gateway/internal/filestore"
	"github.com/narvanalabs/preview-gateway/internal/gateway"
	"github.com/narvanalabs/preview-gateway/internal/inspect"
	"github.com/narvanalabs/preview-gateway/internal/launcher"
	"github.com/narvanalabs/preview-gateway/internal/navigation"
	"github.com/narvanalabs/preview-gateway/internal/registry"
	"github.com/narvanalabs/preview-gateway/pkg/config"
	"github.com/narvanalabs/preview-gateway/pkg/logger"
)

func main() {
	// Initialize logger
	log := logger.New(slog.LevelInfo, true)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	classifierRules, err := cfg.LoadClassifierRules()
	if err != nil {
		log.Error("failed to load classifier rules", "error", err)
		os.Exit(1)
	}

	// Initialize auth service
	authService := auth.NewService(&auth.Config{
		JWTSecret: []byte(cfg.JWTSecret),
	}, log.Logger)

	// Pick the launcher: an external launcher service when configured,
	// otherwise a fixed dev-server address.
	var launch launcher.Launcher
	if cfg.LauncherEndpoint != "" {
		launch = launcher.NewHTTPLauncher(cfg.LauncherEndpoint)
		log.Info("using HTTP launcher", "endpoint", cfg.LauncherEndpoint)
	} else {
		launch = &launcher.StaticLauncher{Address: cfg.StaticPreviewAddress}
		log.Info("using static launcher", "address", cfg.StaticPreviewAddress)
	}

	// Initialize the instance registry and navigation tracker
	reg := registry.New(registry.Config{
		LaunchTimeout: cfg.LaunchTimeout,
		WorkspaceRoot: cfg.WorkspaceRoot,
	}, nil, log.Logger)
	reg.Init()

	nav := navigation.New()
	nav.Init()

	// Workspace file store backs the override and listing fallbacks
	files := filestore.NewLocalStore(cfg.WorkspaceRoot)

	gw := gateway.New(gateway.Config{
		UpstreamTimeout: cfg.UpstreamTimeout,
		ExternalOrigin:  cfg.ExternalOrigin,
		TokenParam:      cfg.TokenParam,
	}, reg, nav, files, authService, gateway.NewClassifier(classifierRules), log.Logger)

	generator := inspect.NewGenerator(reg, nav, cfg.InspectionTimeout, log.Logger)

	server := api.NewServer(cfg, api.Deps{
		Registry:  reg,
		Nav:       nav,
		Gateway:   gw,
		Generator: generator,
		Launcher:  launch,
		Auth:      authService,
	}, log.Logger)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	if err := server.Start(ctx); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}

	// Stop whatever instances are still running before exiting
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	reg.Shutdown(shutdownCtx)
	shutdownCancel()
	nav.Shutdown()

	time.Sleep(100 * time.Millisecond)
	log.Info("gateway stopped")
}
