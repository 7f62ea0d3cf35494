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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/kineticlab/physio-academy-backend/api/routes"
	checkoutsvc "github.com/kineticlab/physio-academy-backend/internal/checkout"
	"github.com/kineticlab/physio-academy-backend/internal/courses"
	"github.com/kineticlab/physio-academy-backend/internal/notifications"
	"github.com/kineticlab/physio-academy-backend/internal/plans"
	"github.com/kineticlab/physio-academy-backend/internal/promocodes"
	"github.com/kineticlab/physio-academy-backend/internal/subscriptions"
	stripewebhook "github.com/kineticlab/physio-academy-backend/internal/webhooks/stripe"
	"github.com/kineticlab/physio-academy-backend/pkg/config"
	"github.com/kineticlab/physio-academy-backend/pkg/db"
	"github.com/kineticlab/physio-academy-backend/pkg/logger"
	"github.com/kineticlab/physio-academy-backend/pkg/metrics"
	"github.com/kineticlab/physio-academy-backend/pkg/migrate"
	"github.com/kineticlab/physio-academy-backend/pkg/redis"
	"github.com/kineticlab/physio-academy-backend/pkg/stripe"
)

const (
	webhookGuardScope = "stripe-webhook"
	shutdownTimeout   = 15 * time.Second
)

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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	var stripeClient *stripe.Client
	if cfg.Stripe.APIKey != "" {
		stripeClient, err = stripe.NewClient(ctx, cfg.Stripe, logg)
		if err != nil {
			return err
		}
	} else {
		logg.Warn(ctx, "stripe api key not configured; paid checkouts are disabled")
	}
	sessions := stripeClient.CheckoutSessions()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	billingMetrics := metrics.NewBillingMetrics(registry)

	catalog := plans.NewCatalog(cfg.Billing)
	invoices := notifications.NewInvoiceSender(cfg.Sendgrid, logg)
	subsRepo := subscriptions.NewRepository(dbClient.DB())
	promoRepo := promocodes.NewRepository(dbClient.DB())

	promoService, err := promocodes.NewService(promocodes.ServiceParams{Repo: promoRepo, Catalog: catalog})
	if err != nil {
		return err
	}

	checkoutService, err := checkoutsvc.NewService(checkoutsvc.ServiceParams{
		Catalog:       catalog,
		Billing:       cfg.Billing,
		Promos:        promoRepo,
		Subscriptions: subsRepo,
		Sessions:      sessions,
		Invoices:      invoices,
		Metrics:       billingMetrics,
		Logger:        logg,
	})
	if err != nil {
		return err
	}

	statusService, err := subscriptions.NewStatusService(subscriptions.StatusServiceParams{
		Repo:     subsRepo,
		Sessions: sessions,
		Logger:   logg,
	})
	if err != nil {
		return err
	}

	courseService, err := courses.NewService(courses.ServiceParams{
		Repo:          courses.NewRepository(dbClient.DB()),
		Subscriptions: subsRepo,
		Location:      cfg.Billing.Location(),
	})
	if err != nil {
		return err
	}

	webhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Subscriptions: subsRepo,
		Promos:        promoRepo,
		Catalog:       catalog,
		Invoices:      invoices,
		Metrics:       billingMetrics,
		Logger:        logg,
	})
	if err != nil {
		return err
	}

	webhookGuard, err := stripewebhook.NewIdempotencyGuard(redisClient, cfg.Billing.WebhookDedupeTTL, webhookGuardScope)
	if err != nil {
		return err
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(logCtx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, registry, routes.Services{
			Catalog:       catalog,
			Promos:        promoService,
			Checkout:      checkoutService,
			Status:        statusService,
			Courses:       courseService,
			StripeWebhook: webhookService,
			WebhookGuard:  webhookGuard,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logg.Info(logCtx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
