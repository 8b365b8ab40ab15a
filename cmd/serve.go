package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"payment-schedule/config"
	httpLayer "payment-schedule/http"
	"payment-schedule/repository"
	"payment-schedule/service"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	defaultSchedule, err := cfg.DefaultSchedule()
	if err != nil {
		return err
	}
	if errs := service.Validate(defaultSchedule); len(errs) > 0 {
		return fmt.Errorf("default schedule is invalid: %s", errs[0].Message)
	}

	projectRepo, closeRepo, err := openProjectRepository(cfg.Storage)
	if err != nil {
		return err
	}
	defer closeRepo()

	cache, closeCache := openCache(cmd.Context(), cfg.Cache)
	defer closeCache()

	scheduleService := service.NewScheduleService(projectRepo, cache, defaultSchedule, logger)
	scheduleHandler := httpLayer.NewScheduleHandler(scheduleService, logger)
	projectHandler := httpLayer.NewProjectHandler(scheduleService, logger)

	rateLimiter := httpLayer.NewRateLimiter(cfg.RateLimit.Capacity, cfg.RateLimit.Refill.Duration)
	defer rateLimiter.Stop()

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      httpLayer.NewRouter(scheduleHandler, projectHandler, rateLimiter, logger),
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
		IdleTimeout:  cfg.Server.IdleTimeout.Duration,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("API listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("starting server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("Server exited")
	return nil
}

func openProjectRepository(sc config.StorageConfig) (repository.ProjectRepository, func(), error) {
	if sc.Driver == "sqlite" {
		repo, err := repository.OpenProjectRepositorySQLite(sc.DBPath)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using sqlite project store", zap.String("path", sc.DBPath))
		return repo, func() { _ = repo.Close() }, nil
	}
	logger.Info("using in-memory project store")
	return repository.NewProjectRepositoryMemory(), func() {}, nil
}

// openCache falls back to the in-memory cache when redis is unreachable;
// the cache only saves recomputation.
func openCache(ctx context.Context, cc config.CacheConfig) (repository.CacheRepository, func()) {
	if cc.Driver == "redis" {
		rc := repository.NewRedisCache(cc.RedisAddr, cc.RedisPassword, cc.RedisDB, cc.TTL.Duration)
		if err := rc.Ping(ctx); err != nil {
			logger.Warn("redis unavailable, using in-memory cache",
				zap.String("addr", cc.RedisAddr), zap.Error(err))
			_ = rc.Close()
		} else {
			logger.Info("using redis cache", zap.String("addr", cc.RedisAddr))
			return rc, func() { _ = rc.Close() }
		}
	}
	return repository.NewMockCache(), func() {}
}
