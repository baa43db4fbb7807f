package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/arjunmehra/swiftkart-backend/api/routes"
	"github.com/arjunmehra/swiftkart-backend/internal/audit"
	"github.com/arjunmehra/swiftkart-backend/internal/documents"
	"github.com/arjunmehra/swiftkart-backend/internal/orders"
	"github.com/arjunmehra/swiftkart-backend/internal/returns"
	"github.com/arjunmehra/swiftkart-backend/internal/users"
	"github.com/arjunmehra/swiftkart-backend/internal/webhooks"
	pkgauth "github.com/arjunmehra/swiftkart-backend/pkg/auth"
	"github.com/arjunmehra/swiftkart-backend/pkg/auth/session"
	"github.com/arjunmehra/swiftkart-backend/pkg/config"
	"github.com/arjunmehra/swiftkart-backend/pkg/db"
	"github.com/arjunmehra/swiftkart-backend/pkg/logger"
	"github.com/arjunmehra/swiftkart-backend/pkg/metrics"
	"github.com/arjunmehra/swiftkart-backend/pkg/migrate"
	"github.com/arjunmehra/swiftkart-backend/pkg/razorpay"
	"github.com/arjunmehra/swiftkart-backend/pkg/redis"
	"github.com/arjunmehra/swiftkart-backend/pkg/shiprocket"
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

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	razorpayClient, err := razorpay.NewClient(context.Background(), cfg.Razorpay, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create razorpay client", err)
		os.Exit(1)
	}

	shiprocketClient, err := shiprocket.NewClient(context.Background(), cfg.Shiprocket, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create shiprocket client", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	webhookMetrics := metrics.NewWebhookMetrics(registry)
	fulfillmentMetrics := metrics.NewFulfillmentMetrics(registry)

	ordersRepo := orders.NewRepository(dbClient.DB())
	returnsRepo := returns.NewRepository(dbClient.DB())
	usersRepo := users.NewRepository(dbClient.DB())
	auditRepo := audit.NewRepository(dbClient.DB(), cfg.Webhook.AuditCap)

	ordersService, err := orders.NewService(
		ordersRepo, dbClient, razorpayClient, shiprocketClient,
		logg, fulfillmentMetrics, cfg.Fulfillment,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	returnsService, err := returns.NewService(
		returnsRepo, ordersRepo, dbClient, razorpayClient, shiprocketClient,
		logg, fulfillmentMetrics, cfg.Returns,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create returns service", err)
		os.Exit(1)
	}

	documentsService, err := documents.NewService(ordersRepo, shiprocketClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create documents service", err)
		os.Exit(1)
	}

	webhookGuard, err := webhooks.NewGuard(redisClient, cfg.Webhook.IdempotencyTTL, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook guard", err)
		os.Exit(1)
	}
	shiprocketWebhook, err := webhooks.NewShiprocketService(
		webhookGuard, ordersService, returnsService, auditRepo, logg, webhookMetrics,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create shiprocket webhook service", err)
		os.Exit(1)
	}
	razorpayWebhook, err := webhooks.NewRazorpayService(
		webhookGuard, returnsService, auditRepo, logg, webhookMetrics,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create razorpay webhook service", err)
		os.Exit(1)
	}

	handler := routes.NewRouter(routes.Deps{
		Config:            cfg,
		Logger:            logg,
		DB:                dbClient,
		Redis:             redisClient,
		Verifier:          pkgauth.NewJWTVerifier(cfg.JWT),
		Sessions:          sessionManager,
		Users:             usersRepo,
		Orders:            ordersService,
		Returns:           returnsService,
		Documents:         documentsService,
		Audit:             auditRepo,
		ShiprocketWebhook: shiprocketWebhook,
		RazorpayWebhook:   razorpayWebhook,
		RazorpayVerifier:  razorpayClient,
		Metrics:           registry,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-runCtx.Done():
		logg.Info(ctx, "shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
			os.Exit(1)
		}
		logg.Info(ctx, "api server stopped")
	}
}
