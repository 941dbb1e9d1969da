package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

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
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "loadgen"})

	_ = godotenv.Load()

	sessions := flag.Int("sessions", 0, "number of concurrent shopper sessions (overrides config)")
	ordersPer := flag.Int("orders", 0, "orders per session (overrides config)")
	restockEvery := flag.Int("restock-interval", 0, "restock check cadence in orders (overrides config)")
	seed := flag.Int64("seed", 0, "base RNG seed, nonzero overrides config")
	flag.Parse()

	cfg, err := config.Load()
	requireResource(logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "loadgen",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	loadCfg := cfg.Load
	if *sessions > 0 {
		loadCfg.Sessions = *sessions
	}
	if *ordersPer > 0 {
		loadCfg.OrdersPerSession = *ordersPer
	}
	if *restockEvery > 0 {
		loadCfg.RestockInterval = *restockEvery
	}
	if *seed != 0 {
		loadCfg.Seed = *seed
	}

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	requireResource(logg, "database", err)
	defer dbClient.Close()

	registry := prometheus.NewRegistry()
	executor, err := db.NewExecutor(dbClient, cfg.Executor, logg, metrics.NewTxMetrics(registry))
	requireResource(logg, "transaction executor", err)

	conn := dbClient.DB()
	cartRepo := carts.NewRepository(conn)
	invRepo := inventory.NewRepository(conn)
	catalogRepo := catalog.NewRepository(conn)

	invSvc, err := inventory.NewService(invRepo, executor, logg)
	requireResource(logg, "inventory service", err)
	resSvc, err := reservation.NewService(cartRepo, invRepo, executor, logg)
	requireResource(logg, "reservation service", err)
	orderSvc, err := orders.NewService(orders.NewRepository(conn), cartRepo, catalogRepo, invRepo, executor, logg)
	requireResource(logg, "order service", err)

	harness, err := loadgen.NewHarness(loadgen.HarnessParams{
		Config:      loadCfg,
		Runs:        loadgen.NewRepository(conn),
		Users:       users.NewRepository(conn),
		Catalog:     catalogRepo,
		Carts:       cartRepo,
		Inventory:   invRepo,
		Restocker:   invSvc,
		Reservation: resSvc,
		Orders:      orderSvc,
		Logger:      logg,
		Metrics:     metrics.NewLoadMetrics(registry),
	})
	requireResource(logg, "load harness", err)

	ctx := logg.WithFields(context.Background(), map[string]any{
		"sessions":           loadCfg.Sessions,
		"orders_per_session": loadCfg.OrdersPerSession,
		"seed":               loadCfg.Seed,
	})
	logg.Info(ctx, "starting load run")

	result, err := harness.Run(ctx)
	if err != nil {
		logg.Error(ctx, "load run failed", err)
		os.Exit(1)
	}

	fmt.Printf("run %s finished in %s\n", result.RunID, result.Duration.Round(0))
	fmt.Printf("  orders completed: %d\n", result.OrdersCompleted)
	fmt.Printf("  stock conflicts:  %d\n", result.Conflicts)
	fmt.Printf("  failures:         %d\n", result.Failed)
	fmt.Printf("  restocks:         %d\n", result.Restocks)
	fmt.Printf("  swept rows:       %d\n", result.SweptRows)

	if result.Failed > 0 {
		os.Exit(1)
	}
}

func requireResource(logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(context.Background(), fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
