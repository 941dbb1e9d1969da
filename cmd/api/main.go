package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/stockroom-labs/stockroom-backend/api/routes"
	"github.com/stockroom-labs/stockroom-backend/internal/carts"
	"github.com/stockroom-labs/stockroom-backend/internal/catalog"
	"github.com/stockroom-labs/stockroom-backend/internal/inventory"
	"github.com/stockroom-labs/stockroom-backend/internal/loadgen"
	"github.com/stockroom-labs/stockroom-backend/internal/orders"
	"github.com/stockroom-labs/stockroom-backend/internal/reservation"
	"github.com/stockroom-labs/stockroom-backend/internal/users"
	"github.com/stockroom-labs/stockroom-backend/pkg/config"
	"github.com/stockroom-labs/stockroom-backend/pkg/db"
	"github.com/stockroom-labs/stockroom-backend/pkg/logger"
	"github.com/stockroom-labs/stockroom-backend/pkg/metrics"
	"github.com/stockroom-labs/stockroom-backend/pkg/migrate"
	"github.com/stockroom-labs/stockroom-backend/pkg/redis"
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

	var redisClient *redis.Client
	if client, err := redis.New(context.Background(), cfg.Redis); err != nil {
		logg.Error(context.Background(), "redis unavailable, idempotency replay disabled", err)
	} else {
		redisClient = client
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
	}

	registry := prometheus.NewRegistry()
	txMetrics := metrics.NewTxMetrics(registry)
	loadMetrics := metrics.NewLoadMetrics(registry)

	executor, err := db.NewExecutor(dbClient, cfg.Executor, logg, txMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create transaction executor", err)
		os.Exit(1)
	}

	conn := dbClient.DB()
	userRepo := users.NewRepository(conn)
	catalogRepo := catalog.NewRepository(conn)
	invRepo := inventory.NewRepository(conn)
	cartRepo := carts.NewRepository(conn)
	orderRepo := orders.NewRepository(conn)
	runRepo := loadgen.NewRepository(conn)

	invSvc, err := inventory.NewService(invRepo, executor, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory service", err)
		os.Exit(1)
	}
	resSvc, err := reservation.NewService(cartRepo, invRepo, executor, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create reservation service", err)
		os.Exit(1)
	}
	orderSvc, err := orders.NewService(orderRepo, cartRepo, catalogRepo, invRepo, executor, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create order service", err)
		os.Exit(1)
	}

	harnessFactory := func(loadCfg config.LoadConfig) (*loadgen.Harness, error) {
		return loadgen.NewHarness(loadgen.HarnessParams{
			Config:      loadCfg,
			Runs:        runRepo,
			Users:       userRepo,
			Catalog:     catalogRepo,
			Carts:       cartRepo,
			Inventory:   invRepo,
			Restocker:   invSvc,
			Reservation: resSvc,
			Orders:      orderSvc,
			Logger:      logg,
			Metrics:     loadMetrics,
		})
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
			Config:         cfg,
			Logger:         logg,
			DB:             dbClient,
			Redis:          redisClient,
			Catalog:        catalogRepo,
			Inventory:      invRepo,
			InventorySvc:   invSvc,
			Reservation:    resSvc,
			Orders:         orderSvc,
			LoadRuns:       runRepo,
			HarnessFactory: harnessFactory,
			Metrics:        registry,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
