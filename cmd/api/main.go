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

	"github.com/angelmondragon/eshop-backend/api/routes"
	"github.com/angelmondragon/eshop-backend/internal/cart"
	"github.com/angelmondragon/eshop-backend/internal/checkout"
	"github.com/angelmondragon/eshop-backend/internal/checkout/inventory"
	"github.com/angelmondragon/eshop-backend/internal/coupons"
	"github.com/angelmondragon/eshop-backend/internal/notifications"
	"github.com/angelmondragon/eshop-backend/internal/orders"
	"github.com/angelmondragon/eshop-backend/internal/products"
	"github.com/angelmondragon/eshop-backend/internal/users"
	stripewebhook "github.com/angelmondragon/eshop-backend/internal/webhooks/stripe"
	"github.com/angelmondragon/eshop-backend/pkg/config"
	"github.com/angelmondragon/eshop-backend/pkg/db"
	"github.com/angelmondragon/eshop-backend/pkg/email"
	"github.com/angelmondragon/eshop-backend/pkg/logger"
	"github.com/angelmondragon/eshop-backend/pkg/metrics"
	"github.com/angelmondragon/eshop-backend/pkg/migrate"
	"github.com/angelmondragon/eshop-backend/pkg/redis"
	"github.com/angelmondragon/eshop-backend/pkg/stripe"
)

const (
	webhookEventTTL = 7 * 24 * time.Hour
	shutdownTimeout = 15 * time.Second
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

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	sender, err := email.NewSender(cfg.Email, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create email sender", err)
		os.Exit(1)
	}
	dispatcher, err := notifications.NewDispatcher(sender, notifications.DispatcherOptions{
		QueueSize:   cfg.Email.QueueSize,
		SendTimeout: cfg.Email.SendTimeout,
		Metrics:     metrics.NewEmailMetrics(registry),
	}, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to start email dispatcher", err)
		os.Exit(1)
	}

	conn := dbClient.DB()
	cartRepo := cart.NewRepository(conn)
	productRepo := products.NewRepository(conn)
	usersRepo := users.NewRepository(conn)
	ordersRepo := orders.NewRepository(conn)
	cartCache := cart.NewRedisCache(redisClient, cfg.Redis.CartCacheTTL)

	cartService, err := cart.NewService(cartRepo, dbClient, productRepo, coupons.NewRepository(conn), cartCache, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(ordersRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	debitMode := inventory.ModeConditional
	if cfg.FeatureFlags.ClampInventoryDebit {
		debitMode = inventory.ModeClamp
	}
	checkoutParams := checkout.ServiceParams{
		TransactionRunner: dbClient,
		CartRepo:          cartRepo,
		OrdersRepo:        ordersRepo,
		Users:             usersRepo,
		Products:          productRepo,
		Ledger:            inventory.NewLedger(debitMode),
		CartCache:         cartCache,
		Notifier:          dispatcher,
		AdminEmail:        cfg.Email.AdminTo,
		Pricing: checkout.Pricing{
			TaxPrice:      cfg.Checkout.TaxPrice,
			ShippingPrice: cfg.Checkout.ShippingPrice,
		},
		Metrics: metrics.NewCheckoutMetrics(registry),
		Logger:  logg,
	}

	stripeClient, err := stripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Warn(logg.WithField(context.Background(), "reason", err.Error()), "stripe disabled, card checkout unavailable")
		stripeClient = nil
	} else {
		checkoutParams.Sessions = stripeClient
	}

	checkoutService, err := checkout.NewService(checkoutParams)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	var (
		webhookService *stripewebhook.Service
		webhookGuard   *stripewebhook.IdempotencyGuard
	)
	if stripeClient != nil {
		webhookService, err = stripewebhook.NewService(stripewebhook.ServiceParams{Checkout: checkoutService, Logger: logg})
		if err != nil {
			logg.Error(context.Background(), "failed to create stripe webhook service", err)
			os.Exit(1)
		}
		webhookGuard, err = stripewebhook.NewIdempotencyGuard(redisClient, webhookEventTTL, "stripe-webhook")
		if err != nil {
			logg.Error(context.Background(), "failed to create stripe webhook guard", err)
			os.Exit(1)
		}
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
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			redisClient,
			usersRepo,
			registry,
			metrics.NewHTTPMetrics(registry),
			cartService,
			checkoutService,
			ordersService,
			stripeClient,
			webhookService,
			webhookGuard,
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			logg.Error(ctx, "api server stopped unexpectedly", err)
		}
	case sig := <-stop:
		logg.Info(logg.WithField(ctx, "signal", sig.String()), "shutting down api server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.Error(ctx, "api server shutdown failed", err)
	}
	if err := dispatcher.Close(shutdownCtx); err != nil {
		logg.Error(ctx, "email dispatcher did not drain", err)
	}
}
