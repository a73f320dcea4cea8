package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kashvicreations/kashvi-backend/internal/cron"
	"github.com/kashvicreations/kashvi-backend/internal/guest"
	"github.com/kashvicreations/kashvi-backend/internal/pricing"
	"github.com/kashvicreations/kashvi-backend/pkg/config"
	"github.com/kashvicreations/kashvi-backend/pkg/db"
	"github.com/kashvicreations/kashvi-backend/pkg/logger"
	"github.com/kashvicreations/kashvi-backend/pkg/metrics"
	"github.com/kashvicreations/kashvi-backend/pkg/migrate"
	"github.com/kashvicreations/kashvi-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	gormDB := dbClient.DB()

	rateFetcher, err := pricing.NewHTTPFetcher(cfg.SilverRate)
	if err != nil {
		logg.Error(context.Background(), "failed to build silver rate fetcher", err)
		os.Exit(1)
	}
	pricingSvc, err := pricing.NewService(pricing.NewRepository(gormDB), dbClient, rateFetcher, cfg.SilverRate, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create pricing service", err)
		os.Exit(1)
	}

	silverJob, err := cron.NewSilverRateJob(cron.SilverRateJobParams{
		Logger:  logg,
		Pricing: pricingSvc,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create silver rate job", err)
		os.Exit(1)
	}
	purgeJob, err := cron.NewGuestPurgeJob(cron.GuestPurgeJobParams{
		Logger: logg,
		Guests: guest.NewRepository(gormDB),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create guest purge job", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(lockName(cfg.App.Env)), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(silverJob, purgeJob),
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.SilverRate.RefreshEvery,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithField(ctx, "env", cfg.App.Env)
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockName(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf("cron-worker:%s", env)
}
