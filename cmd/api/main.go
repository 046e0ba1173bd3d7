package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mpspetcare/petcare-backend/api/routes"
	"github.com/mpspetcare/petcare-backend/internal/adoptions"
	"github.com/mpspetcare/petcare-backend/internal/orders"
	"github.com/mpspetcare/petcare-backend/internal/payments"
	"github.com/mpspetcare/petcare-backend/internal/payments/payhere"
	"github.com/mpspetcare/petcare-backend/internal/products"
	"github.com/mpspetcare/petcare-backend/internal/users"
	payherewebhook "github.com/mpspetcare/petcare-backend/internal/webhooks/payhere"
	"github.com/mpspetcare/petcare-backend/pkg/config"
	"github.com/mpspetcare/petcare-backend/pkg/db"
	"github.com/mpspetcare/petcare-backend/pkg/logger"
	"github.com/mpspetcare/petcare-backend/pkg/metrics"
	"github.com/mpspetcare/petcare-backend/pkg/migrate"
	"github.com/mpspetcare/petcare-backend/pkg/redis"
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

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	gateway, err := payhere.NewClient(cfg.PayHere)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment gateway client", err)
		os.Exit(1)
	}

	ordersRepo := orders.NewRepository(dbClient.DB())
	productsRepo := products.NewRepository(dbClient.DB())
	usersRepo := users.NewRepository(dbClient.DB())

	ordersService, err := orders.NewService(ordersRepo, productsRepo, dbClient, logg, cfg.Shipping.FlatRateCents)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	paymentsService, err := payments.NewService(ordersRepo, usersRepo, gateway, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	webhookGuard, err := payherewebhook.NewIdempotencyGuard(redisClient, cfg.Webhook.IdempotencyTTL, "payhere")
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook idempotency guard", err)
		os.Exit(1)
	}

	webhookService, err := payherewebhook.NewService(payherewebhook.ServiceParams{
		OrdersRepo:        ordersRepo,
		Gateway:           gateway,
		TransactionRunner: dbClient,
		Logger:            logg,
		Guard:             webhookGuard,
		Metrics:           metrics.NewWebhookMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}

	adoptionService, err := adoptions.NewService(dbClient.DB(), dbClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create adoption service", err)
		os.Exit(1)
	}

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
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:          cfg,
			Logger:          logg,
			DBPinger:        dbClient,
			RedisPinger:     redisClient,
			OrdersService:   ordersService,
			PaymentsService: paymentsService,
			WebhookService:  webhookService,
			AdoptionService: adoptionService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
