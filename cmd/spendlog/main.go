package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"spendlog/internal/backend"
	"spendlog/internal/cache"
	"spendlog/internal/cli"
	"spendlog/internal/config"
	apphttp "spendlog/internal/http"
	applog "spendlog/internal/log"
	"spendlog/internal/services"
	"spendlog/internal/session"
)

func main() {
	cfg, logger := cli.LoadAndValidateConfig(applog.ComponentApp, (*config.Config).Validate)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	caches := cache.NewManager(logger)
	if result.Cache != nil {
		caches.Register(result.Cache)
		caches.StartCleanup(context.Background(), time.Minute)
	}

	sess := session.New()
	opts := []services.Option{services.WithLogger(logger)}
	if result.Publisher != nil {
		opts = append(opts, services.WithPublisher(result.Publisher))
	}
	store := services.NewLogStore(result.Backend, sess, opts...)
	sess.OnSignOut(store.SignOut)

	if cfg.DefaultUserID != "" {
		if err := sess.SignIn(cfg.DefaultUserID); err != nil {
			logger.Error("Invalid default user", "error", err)
			os.Exit(1)
		}
		if err := store.Hydrate(context.Background()); err != nil {
			logger.Warn("Failed to load logs for default user", "error", err, applog.FieldOwnerID, cfg.DefaultUserID)
		}
	}

	srv := apphttp.NewServer(":"+cfg.Port, store, sess, logger)

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		caches.Stop()
		if err := result.Close(); err != nil {
			logger.Error("Backend cleanup failed", "error", err)
		}
	})

	logger.Info("Starting spendlog server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"change_feed", result.Publisher != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	<-done
	logger.Info("Server stopped gracefully")
}
