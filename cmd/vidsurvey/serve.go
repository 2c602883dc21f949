package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hyperjump/vidsurvey/internal/catalog"
	"github.com/hyperjump/vidsurvey/internal/config"
	"github.com/hyperjump/vidsurvey/internal/content"
	"github.com/hyperjump/vidsurvey/internal/server"
	"github.com/hyperjump/vidsurvey/internal/storage"
	"github.com/hyperjump/vidsurvey/internal/watcher"
	"github.com/hyperjump/vidsurvey/pkg/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCommand(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the survey HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveServeConfig(cmd, flags.configPath, os.Getenv)
			if err != nil {
				return err
			}
			logger, err := utils.NewLogger(cfg.Debug)
			if err != nil {
				return fmt.Errorf("create logger: %w", err)
			}
			defer logger.Sync()
			logger.Info("config loaded",
				zap.String("config_path", flags.configPath),
				zap.Bool("debug", cfg.Debug),
				zap.String("storage_backend", cfg.Storage.Backend),
			)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg, logger)
		},
	}
	f := cmd.Flags()
	f.String("host", "", "Listen host")
	f.IntP("port", "p", 0, "Listen port")
	f.Bool("production", false, "Serve the built frontend from server.static_dir")
	f.Bool("debug", false, "Enable debug logging")
	f.Bool("watch", false, "Watch the data directory for content changes")
	f.String("data-dir", "", "Directory holding the catalog, narratives and atomic facts")
	f.String("responses-dir", "", "Directory for per-user response files")
	return cmd
}

// resolveServeConfig layers defaults, the config file, environment and flags, in that order.
func resolveServeConfig(cmd *cobra.Command, configPath string, getenv func(string) string) (*config.Config, error) {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return nil, err
	}
	if err := config.ApplyEnv(cfg, getenv); err != nil {
		return nil, err
	}
	f := cmd.Flags()
	if f.Changed("host") {
		cfg.Server.Host, _ = f.GetString("host")
	}
	if f.Changed("port") {
		cfg.Server.Port, _ = f.GetInt("port")
	}
	if f.Changed("production") {
		cfg.Server.Production, _ = f.GetBool("production")
	}
	if f.Changed("debug") {
		cfg.Debug, _ = f.GetBool("debug")
	}
	if f.Changed("watch") {
		cfg.Watch.Enabled, _ = f.GetBool("watch")
	}
	if f.Changed("data-dir") {
		cfg.Data.Dir, _ = f.GetString("data-dir")
	}
	if f.Changed("responses-dir") {
		cfg.Storage.ResponsesDir, _ = f.GetString("responses-dir")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// runServer serves until ctx is cancelled, then shuts down gracefully.
func runServer(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	store, err := storage.NewStore(&cfg.Storage, logger.Named("storage"))
	if err != nil {
		return fmt.Errorf("open response store: %w", err)
	}
	defer store.Close()

	var serverOpts []server.Option
	if cfg.Watch.Enabled {
		w := watcher.NewWatcher(cfg.Data.Dir, watcher.WithLogger(logger.Named("watcher")))
		if err := w.Start(ctx); err != nil {
			return fmt.Errorf("start watcher: %w", err)
		}
		defer w.Stop()
		serverOpts = append(serverOpts, server.WithWatch(w))
	}

	srv := server.NewServer(
		catalog.NewReader(cfg.Data.CatalogPath(), catalog.Options{SkipMalformedRows: cfg.Data.SkipMalformedRowsOrDefault()}, logger.Named("catalog")),
		content.NewReader(cfg.Data.Dir),
		store,
		cfg,
		logger,
		serverOpts...,
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}
