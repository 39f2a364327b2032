package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/sydlexius/crossfade/internal/api"
	"github.com/sydlexius/crossfade/internal/config"
	"github.com/sydlexius/crossfade/internal/logging"
	"github.com/sydlexius/crossfade/internal/provider"
	"github.com/sydlexius/crossfade/internal/provider/deezer"
	"github.com/sydlexius/crossfade/internal/provider/lastfm"
	"github.com/sydlexius/crossfade/internal/provider/musicbrainz"
	"github.com/sydlexius/crossfade/internal/resolver"
	"github.com/sydlexius/crossfade/internal/version"
	"github.com/sydlexius/crossfade/internal/watcher"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "version":
			fmt.Printf("crossfade %s (%s)\n", version.Version, version.Commit)
			return
		}
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// A missing .env is normal outside development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}

	configPath := os.Getenv("CF_CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logManager, logger := logging.NewManager(cfg.Logging)
	defer logManager.Close() //nolint:errcheck
	slog.SetDefault(logger)

	logger.Info("starting crossfade",
		slog.String("version", version.Version),
		slog.String("commit", version.Commit),
		slog.String("logging", cfg.Logging.String()))

	limiter := provider.NewRateLimiterMap()

	catalogA := musicbrainz.NewWithBaseURL(limiter, logger, cfg.Upstream.CatalogABaseURL)
	catalogA.SetTimeout(cfg.Upstream.Timeout)
	catalogB := deezer.NewWithBaseURL(limiter, logger, cfg.Upstream.CatalogBBaseURL)
	catalogB.SetTimeout(cfg.Upstream.Timeout)
	scrobbler := lastfm.NewWithBaseURL(limiter, logger, cfg.Upstream.ScrobblerBaseURL, cfg.Scrobbler.StripFields)
	scrobbler.SetTimeout(cfg.Upstream.Timeout)

	svc := resolver.NewService(catalogA, catalogB, resolver.Options{
		FallbackEnabled: cfg.Resolver.FallbackToSecondaryEnabled,
		SearchLimit:     cfg.Resolver.SearchLimit,
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Startup connectivity check only; an unreachable catalog is reported, not fatal.
	go func() {
		checkCtx, cancel := context.WithTimeout(ctx, cfg.Upstream.Timeout)
		defer cancel()
		if err := catalogA.TestConnection(checkCtx); err != nil {
			logger.Warn("catalog A unreachable at startup",
				slog.String("url", catalogA.BaseURL()),
				slog.String("error", err.Error()))
		}
	}()

	router, err := api.NewRouter(ctx, api.RouterDeps{
		Resolver:           svc,
		Scrobbler:          scrobbler,
		CatalogABaseURL:    cfg.Upstream.CatalogABaseURL,
		Logger:             logger,
		BasePath:           cfg.Server.BasePath,
		RateLimitPerSecond: cfg.Server.RateLimitPerSecond,
		RateLimitBurst:     cfg.Server.RateLimitBurst,
	})
	if err != nil {
		return fmt.Errorf("building router: %w", err)
	}

	configWatcher := watcher.NewConfigWatcher(configPath, config.Load, func(next *config.Config) {
		logManager.Reconfigure(next.Logging)
		if next.Resolver != cfg.Resolver || next.Upstream != cfg.Upstream || next.Server != cfg.Server {
			logger.Warn("server, upstream and resolver settings take effect after restart")
		}
	}, logger)
	go configWatcher.Start(ctx)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Leaves room for a full upstream timeout on both catalogs.
		WriteTimeout: cfg.Upstream.Timeout + 20*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", slog.String("addr", addr), slog.String("base_path", cfg.Server.BasePath))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("serving: %w", err)
		}
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
