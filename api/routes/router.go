package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/stockroom-labs/stockroom-backend/api/controllers"
	"github.com/stockroom-labs/stockroom-backend/api/middleware"
	"github.com/stockroom-labs/stockroom-backend/internal/catalog"
	"github.com/stockroom-labs/stockroom-backend/internal/inventory"
	"github.com/stockroom-labs/stockroom-backend/internal/loadgen"
	"github.com/stockroom-labs/stockroom-backend/internal/orders"
	"github.com/stockroom-labs/stockroom-backend/internal/reservation"
	"github.com/stockroom-labs/stockroom-backend/pkg/config"
	"github.com/stockroom-labs/stockroom-backend/pkg/db"
	"github.com/stockroom-labs/stockroom-backend/pkg/logger"
	"github.com/stockroom-labs/stockroom-backend/pkg/redis"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Config         *config.Config
	Logger         *logger.Logger
	DB             db.Pinger
	Redis          *redis.Client
	Catalog        catalog.Repository
	Inventory      inventory.Repository
	InventorySvc   inventory.Service
	Reservation    reservation.Service
	Orders         orders.Service
	LoadRuns       loadgen.Repository
	HarnessFactory controllers.HarnessFactory
	Metrics        prometheus.Gatherer
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(d.Logger),
		middleware.RequestID(d.Logger),
		middleware.Logging(d.Logger),
		middleware.CORS(),
	)

	var redisP redis.Pinger
	var store redis.IdempotencyStore
	if d.Redis != nil {
		redisP = d.Redis
		store = d.Redis
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(d.Config))
		r.Get("/ready", controllers.HealthReady(d.Config, d.Logger, d.DB, redisP))
	})

	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.Metrics, promhttp.HandlerOpts{}))
	}

	identity := middleware.Identity(d.Logger)
	idempotency := middleware.Idempotency(store, d.Logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/items", controllers.ItemsList(d.Catalog, d.Logger))
		r.Get("/items/{itemID}", controllers.ItemsGet(d.Catalog, d.Logger))

		r.Get("/inventory/transactions", controllers.InventoryTransactions(d.Inventory, d.Logger))
		r.With(idempotency).Post("/inventory/restock-check", controllers.InventoryRestockCheck(d.InventorySvc, d.Logger))

		r.With(identity).Get("/cart", controllers.CartGet(d.Reservation, d.Logger))
		r.With(identity, idempotency).Post("/cart/reserve", controllers.CartReserve(d.Reservation, d.Logger))
		r.With(identity, idempotency).Post("/cart/release", controllers.CartRelease(d.Reservation, d.Logger))
		r.With(identity, idempotency).Post("/cart/cancel", controllers.CartCancel(d.Reservation, d.Logger))

		r.With(identity, idempotency).Post("/orders", controllers.OrdersPlace(d.Orders, d.Logger))
		r.With(identity).Get("/orders", controllers.OrdersList(d.Orders, d.Logger))
		r.With(identity).Get("/orders/{orderID}", controllers.OrdersGet(d.Orders, d.Logger))
		r.With(identity, idempotency).Post("/orders/{orderID}/advance", controllers.OrdersAdvance(d.Orders, d.Logger))

		r.With(idempotency).Post("/load-runs", controllers.LoadRunsStart(d.Config.Load, d.HarnessFactory, d.Logger))
		r.Get("/load-runs", controllers.LoadRunsList(d.LoadRuns, d.Logger))
		r.Get("/load-runs/{runID}", controllers.LoadRunsGet(d.LoadRuns, d.Logger))
	})

	return r
}
