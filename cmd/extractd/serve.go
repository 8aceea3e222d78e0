package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/arborfin/extractd/internal/config"
	httpserver "github.com/arborfin/extractd/internal/http"
	"github.com/arborfin/extractd/internal/logging"
	"github.com/arborfin/extractd/internal/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the extraction HTTP server",
	Long: `Start the extractd HTTP server.

Examples:
  # Serve with the default config file
  extractd serve

  # Serve with an explicit config
  extractd serve --config /etc/extractd/config.yaml`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	comp, err := buildComponents(cfg)
	if err != nil {
		return err
	}
	defer logging.Sync(comp.logger) //nolint:errcheck

	tel, err := telemetry.Init(cmd.Context(), cfg.Telemetry, comp.logger.Named("telemetry"))
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		if err := tel.Shutdown(context.Background()); err != nil {
			comp.logger.Warn("telemetry shutdown failed", zap.Error(err))
		}
	}()

	// The knowledge markdown loads before the server accepts traffic;
	// a failure degrades fallback context, never startup.
	loadKnowledge(cmd.Context(), comp, cfg)

	srv, err := httpserver.NewServer(comp.engine, comp.cache, comp.logger.Named("http"), &httpserver.Config{
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
	})
	if err != nil {
		return fmt.Errorf("build server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server stopped: %w", err)
	case sig := <-stop:
		comp.logger.Info("shutdown signal received", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

// loadKnowledge reads the configured markdown knowledge file into the
// engine's knowledge base, when both exist.
func loadKnowledge(ctx context.Context, comp *components, cfg *config.Config) {
	if cfg.Knowledge.Path == "" {
		return
	}
	content, err := os.ReadFile(cfg.Knowledge.Path)
	if err != nil {
		comp.logger.Warn("knowledge file unreadable, fallback context disabled",
			zap.String("path", cfg.Knowledge.Path), zap.Error(err))
		return
	}
	if comp.kb == nil {
		return
	}
	if err := comp.kb.Load(ctx, string(content)); err != nil {
		comp.logger.Warn("knowledge load failed, fallback context disabled", zap.Error(err))
	}
}
