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

	"github.com/souqline/souqline-backend/api/routes"
	"github.com/souqline/souqline-backend/internal/branches"
	"github.com/souqline/souqline-backend/internal/countries"
	"github.com/souqline/souqline-backend/internal/coupons"
	"github.com/souqline/souqline-backend/internal/disputes"
	"github.com/souqline/souqline-backend/internal/finance"
	"github.com/souqline/souqline-backend/internal/inventory"
	"github.com/souqline/souqline-backend/internal/notifications"
	"github.com/souqline/souqline-backend/internal/onboarding"
	"github.com/souqline/souqline-backend/internal/orders"
	"github.com/souqline/souqline-backend/internal/products"
	"github.com/souqline/souqline-backend/internal/users"
	"github.com/souqline/souqline-backend/pkg/config"
	"github.com/souqline/souqline-backend/pkg/db"
	"github.com/souqline/souqline-backend/pkg/logger"
	"github.com/souqline/souqline-backend/pkg/metrics"
	"github.com/souqline/souqline-backend/pkg/migrate"
	"github.com/souqline/souqline-backend/pkg/outbox"
	"github.com/souqline/souqline-backend/pkg/redis"
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

	coreMetrics := metrics.NewCoreMetrics(prometheus.DefaultRegisterer)
	outboxEmitter := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	countryRegistry := countries.Default()

	userRepo := users.NewRepository(dbClient.DB())
	branchRepo := branches.NewRepository(dbClient.DB())
	productRepo := products.NewRepository(dbClient.DB())
	couponRepo := coupons.NewRepository(dbClient.DB())
	inventoryRepo := inventory.NewRepository(dbClient.DB())
	orderRepo := orders.NewRepository(dbClient.DB())
	disputeRepo := disputes.NewRepository(dbClient.DB())
	financeRepo := finance.NewRepository(dbClient.DB())
	notificationRepo := notifications.NewRepository(dbClient.DB())
	onboardingRepo := onboarding.NewRepository(dbClient.DB())

	notificationService, err := notifications.NewService(notificationRepo)
	requireService(logg, "notifications", err)

	branchService, err := branches.NewService(branchRepo)
	requireService(logg, "branches", err)

	productService, err := products.NewService(productRepo)
	requireService(logg, "products", err)

	couponService, err := coupons.NewService(couponRepo, orderRepo)
	requireService(logg, "coupons", err)

	inventoryService, err := inventory.NewService(inventoryRepo, dbClient, logg, coreMetrics)
	requireService(logg, "inventory", err)

	orderService, err := orders.NewService(orders.Deps{
		Repo:            orderRepo,
		Tx:              dbClient,
		Coupons:         couponService,
		Inventory:       inventoryService,
		Catalog:         inventoryRepo,
		Branches:        branchRepo,
		Users:           userRepo,
		Rates:           productRepo,
		Notifier:        notificationService,
		Countries:       countryRegistry,
		Outbox:          outboxEmitter,
		Logger:          logg,
		Metrics:         coreMetrics,
		FlatShippingFee: cfg.Checkout.FlatShippingFee,
	})
	requireService(logg, "orders", err)

	disputeService, err := disputes.NewService(disputes.Deps{
		Repo:     disputeRepo,
		Tx:       dbClient,
		Orders:   orderRepo,
		Notifier: notificationService,
		Outbox:   outboxEmitter,
		Logger:   logg,
	})
	requireService(logg, "disputes", err)

	financeService, err := finance.NewService(finance.Deps{
		Repo:     financeRepo,
		Tx:       dbClient,
		Orders:   orderRepo,
		Branches: branchRepo,
		Users:    userRepo,
		Rates:    productRepo,
		Notifier: notificationService,
		Outbox:   outboxEmitter,
		Logger:   logg,
	})
	requireService(logg, "finance", err)

	onboardingService, err := onboarding.NewService(onboarding.Deps{
		Repo:      onboardingRepo,
		Tx:        dbClient,
		Users:     userRepo,
		Branches:  branchRepo,
		Countries: countryRegistry,
		Notifier:  notificationService,
		Outbox:    outboxEmitter,
		Logger:    logg,
	})
	requireService(logg, "onboarding", err)

	userService, err := users.NewService(users.Deps{
		Repo:     userRepo,
		Tx:       dbClient,
		Notifier: notificationService,
		Outbox:   outboxEmitter,
		Logger:   logg,
	})
	requireService(logg, "users", err)

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
			branchService,
			couponService,
			disputeService,
			financeService,
			inventoryService,
			notificationService,
			onboardingService,
			orderService,
			productService,
			userService,
		),
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-shutdownCtx.Done()
		logg.Info(ctx, "shutting down api server")
		graceCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(graceCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func requireService(logg *logger.Logger, name string, err error) {
	if err == nil {
		return
	}
	logg.Error(context.Background(), "failed to create "+name+" service", err)
	os.Exit(1)
}
