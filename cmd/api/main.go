package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	razorpay "github.com/razorpay/razorpay-go"
	"go.uber.org/multierr"

	"github.com/kashvicreations/kashvi-backend/api/routes"
	"github.com/kashvicreations/kashvi-backend/internal/catalog"
	"github.com/kashvicreations/kashvi-backend/internal/guest"
	"github.com/kashvicreations/kashvi-backend/internal/inventory"
	"github.com/kashvicreations/kashvi-backend/internal/loyalty"
	"github.com/kashvicreations/kashvi-backend/internal/mailer"
	"github.com/kashvicreations/kashvi-backend/internal/orders"
	"github.com/kashvicreations/kashvi-backend/internal/payments"
	"github.com/kashvicreations/kashvi-backend/internal/pricing"
	"github.com/kashvicreations/kashvi-backend/pkg/config"
	"github.com/kashvicreations/kashvi-backend/pkg/db"
	"github.com/kashvicreations/kashvi-backend/pkg/logger"
	"github.com/kashvicreations/kashvi-backend/pkg/migrate"
	"github.com/kashvicreations/kashvi-backend/pkg/redis"
	"github.com/kashvicreations/kashvi-backend/pkg/stripe"
)

const shutdownGrace = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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
	productRepo := catalog.NewProductRepository(gormDB)
	userRepo := catalog.NewUserRepository(gormDB)
	cartRepo := catalog.NewCartRepository(gormDB)

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

	inventorySvc, err := inventory.NewService(inventory.NewRepository(gormDB), dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory service", err)
		os.Exit(1)
	}

	loyaltySvc, err := loyalty.NewService(loyalty.NewRepository(gormDB), cfg.Loyalty)
	if err != nil {
		logg.Error(context.Background(), "failed to create loyalty service", err)
		os.Exit(1)
	}

	ordersRepo := orders.NewRepository(gormDB)
	ordersSvc, err := orders.NewService(
		ordersRepo,
		dbClient,
		productRepo,
		userRepo,
		cartRepo,
		pricingSvc,
		inventorySvc,
		loyaltySvc,
		mailer.NewLogMailer(logg),
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	guestSvc, err := guest.NewService(
		guest.NewRepository(gormDB),
		dbClient,
		productRepo,
		userRepo,
		cartRepo,
		ordersRepo,
		pricingSvc,
		cfg.Guest,
		cfg.Password,
		cfg.JWT,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create guest service", err)
		os.Exit(1)
	}

	rzpClient := razorpay.NewClient(cfg.Razorpay.KeyID, cfg.Razorpay.KeySecret)
	razorpaySvc, err := payments.NewRazorpayService(cfg.Razorpay, rzpClient.Order, ordersSvc, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create razorpay adapter", err)
		os.Exit(1)
	}

	ccavenueSvc, err := payments.NewCCAvenueService(cfg.CCAvenue, ordersSvc, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create ccavenue adapter", err)
		os.Exit(1)
	}

	stripeClient, err := stripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create stripe client", err)
		os.Exit(1)
	}
	stripeGuard, err := payments.NewStripeEventGuard(redisClient, cfg.Eventing.WebhookIdempotencyTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create stripe event guard", err)
		os.Exit(1)
	}
	stripeWebhookSvc, err := payments.NewStripeWebhookService(ordersSvc, guestSvc, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create stripe webhook service", err)
		os.Exit(1)
	}

	handler := routes.NewRouter(
		cfg,
		logg,
		dbClient,
		redisClient,
		ordersSvc,
		inventorySvc,
		pricingSvc,
		guestSvc,
		razorpaySvc,
		ccavenueSvc,
		stripeClient,
		stripeWebhookSvc,
		stripeGuard,
	)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(ctx, "shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()

		var errs error
		if err := server.Shutdown(shutdownCtx); err != nil {
			errs = multierr.Append(errs, err)
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs = multierr.Append(errs, err)
		}
		if errs != nil {
			logg.Error(ctx, "shutdown completed with errors", errs)
			os.Exit(1)
		}
	}

	logg.Info(ctx, "api server shut down gracefully")
}
