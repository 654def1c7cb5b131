package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/meur/steamtier/internal/api"
	"github.com/meur/steamtier/internal/cache"
	"github.com/meur/steamtier/internal/config"
	"github.com/meur/steamtier/internal/logger"
	"github.com/meur/steamtier/internal/ratelimit"
	"github.com/meur/steamtier/internal/steam"
	"github.com/meur/steamtier/internal/storage"
)

func main() {
	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(2)
	}

	log := logger.New(logger.Config{
		Environment: cfg.App.Environment,
		Level:       logger.ParseLevel(cfg.Logger.Level),
		AddSource:   !cfg.IsProduction(),
	})

	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("server failed")
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	// Initialize storage
	store, err := storage.New(cfg.Storage.DBPath)
	if err != nil {
		return fmt.Errorf("initializing storage at %s: %w", cfg.Storage.DBPath, err)
	}
	defer store.Close()

	responses := cache.New(cfg.Cache.GamesTTL, cfg.Cache.SweepInterval)
	defer responses.Close()

	limiter := ratelimit.New(cfg.RateLimit.MaxRequests, cfg.RateLimit.Window)

	client := steam.NewClient(steam.ClientConfig{
		BaseURL:           cfg.Steam.BaseURL,
		APIKey:            cfg.Steam.APIKey,
		Timeout:           cfg.Steam.Timeout,
		RequestsPerSecond: cfg.Steam.RequestsPerSecond,
		Burst:             cfg.Steam.Burst,
		MaxAttempts:       cfg.Steam.MaxAttempts,
		Logger:            log.WithComponent("steam"),
	})
	if !client.HasAPIKey() {
		log.Warn("STEAM_API_KEY not set: only family imports with a user token will work")
	}
	importer := steam.NewImporter(client, responses, steam.TTLs{
		Vanity: cfg.Cache.VanityTTL,
		User:   cfg.Cache.UserTTL,
		Games:  cfg.Cache.GamesTTL,
		Family: cfg.Cache.FamilyTTL,
	}, store, log.WithComponent("importer"))

	srv := api.New(api.Options{
		Store:          store,
		Steam:          importer,
		Cache:          responses,
		Limiter:        limiter,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Logger:         log.Logger,
	})

	// Serve frontend static files (for production deployment)
	if cfg.Server.StaticDir != "" {
		api.FileServer(srv.Router(), "/", http.Dir(cfg.Server.StaticDir))
	}

	httpServer := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      srv,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go sweepLimiter(ctx, limiter, cfg.RateLimit.Window, log)

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting",
			"addr", "http://localhost:"+cfg.Server.Port,
			"env", cfg.App.Environment,
			"db", cfg.Storage.DBPath,
		)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
	}
	return nil
}

// sweepLimiter drops expired rate limit windows until ctx is done
func sweepLimiter(ctx context.Context, l *ratelimit.Limiter, every time.Duration, log *logger.Logger) {
	ticker := time.NewTicker(max(every, time.Minute))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := l.Sweep(); n > 0 {
				log.Debug("rate limit windows swept", "removed", n)
			}
		}
	}
}
