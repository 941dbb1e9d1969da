package loadgen

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/stockroom-labs/stockroom-backend/internal/carts"
	"github.com/stockroom-labs/stockroom-backend/internal/catalog"
	"github.com/stockroom-labs/stockroom-backend/internal/inventory"
	"github.com/stockroom-labs/stockroom-backend/internal/orders"
	"github.com/stockroom-labs/stockroom-backend/internal/reservation"
	"github.com/stockroom-labs/stockroom-backend/internal/users"
	"github.com/stockroom-labs/stockroom-backend/pkg/config"
	"github.com/stockroom-labs/stockroom-backend/pkg/db"
	"github.com/stockroom-labs/stockroom-backend/pkg/db/models"
)

func newHarness(t *testing.T, cfg config.LoadConfig) (*Harness, *gorm.DB) {
	t.Helper()
	dsn := "file:loadgen_" + uuid.NewString() + "?mode=memory&cache=shared&_busy_timeout=5000"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	err = conn.AutoMigrate(
		&models.User{},
		&models.Item{},
		&models.Cart{},
		&models.CartItem{},
		&models.Inventory{},
		&models.InventoryTransaction{},
		&models.Order{},
		&models.OrderItem{},
		&models.LoadRun{},
		&models.LoadRunSummary{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	exec, err := db.NewExecutor(db.NewFromConn(conn), config.ExecutorConfig{
		MaxAttempts:    5,
		AttemptTimeout: 5 * time.Second,
		BackoffInitial: time.Millisecond,
		BackoffMax:     10 * time.Millisecond,
	}, nil, nil)
	if err != nil {
		t.Fatalf("new executor: %v", err)
	}

	cartRepo := carts.NewRepository(conn)
	invRepo := inventory.NewRepository(conn)
	catalogRepo := catalog.NewRepository(conn)
	restocker, err := inventory.NewService(invRepo, exec, nil)
	if err != nil {
		t.Fatalf("new inventory service: %v", err)
	}
	reserver, err := reservation.NewService(cartRepo, invRepo, exec, nil)
	if err != nil {
		t.Fatalf("new reservation service: %v", err)
	}
	settler, err := orders.NewService(orders.NewRepository(conn), cartRepo, catalogRepo, invRepo, exec, nil)
	if err != nil {
		t.Fatalf("new order service: %v", err)
	}
	h, err := NewHarness(HarnessParams{
		Config:      cfg,
		Runs:        NewRepository(conn),
		Users:       users.NewRepository(conn),
		Catalog:     catalogRepo,
		Carts:       cartRepo,
		Inventory:   invRepo,
		Restocker:   restocker,
		Reservation: reserver,
		Orders:      settler,
	})
	if err != nil {
		t.Fatalf("new harness: %v", err)
	}
	return h, conn
}

func seedCatalog(t *testing.T, conn *gorm.DB, items, onHand int) {
	t.Helper()
	for i := 0; i < items; i++ {
		item := models.Item{ID: uuid.New(), Name: "item", PriceCents: 100 * (i + 1)}
		if err := conn.Create(&item).Error; err != nil {
			t.Fatalf("seed item: %v", err)
		}
		inv := models.Inventory{
			ID:            uuid.New(),
			ItemID:        item.ID,
			OnHand:        onHand,
			Threshold:     10,
			RestockAmount: 50,
		}
		if err := conn.Create(&inv).Error; err != nil {
			t.Fatalf("seed inventory: %v", err)
		}
	}
}

func TestHarnessRunCompletes(t *testing.T) {
	cfg := config.LoadConfig{
		Sessions:         2,
		OrdersPerSession: 3,
		RestockInterval:  2,
		Initiator:        "harness-test",
		Seed:             42,
		MaxItemsPerOrder: 2,
	}
	h, conn := newHarness(t, cfg)
	seedCatalog(t, conn, 3, 100)

	result, err := h.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.OrdersCompleted == 0 {
		t.Fatal("expected at least one completed order")
	}

	var run models.LoadRun
	if err := conn.First(&run, "id = ?", result.RunID).Error; err != nil {
		t.Fatalf("load run: %v", err)
	}
	if run.EndedAt == nil {
		t.Fatal("run should be closed")
	}
	if run.InitiatedBy != "harness-test" || run.NumSessions != 2 || run.NumOrders != 3 {
		t.Fatalf("run row should record parameters, got %+v", run)
	}

	var summaries []models.LoadRunSummary
	if err := conn.Order("session ASC").Find(&summaries, "run_id = ?", result.RunID).Error; err != nil {
		t.Fatalf("load summaries: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("expected one summary per session, got %d", len(summaries))
	}
	if summaries[0].Identity != "harness-test" {
		t.Fatalf("session 0 should act as the initiator, got %q", summaries[0].Identity)
	}
	if summaries[1].Identity != "shopper-42-s01@stockroom.dev" {
		t.Fatalf("identities must derive from the seed, got %q", summaries[1].Identity)
	}
	total := 0
	for _, s := range summaries {
		total += s.OrdersCompleted
	}
	if total != result.OrdersCompleted {
		t.Fatalf("summaries sum to %d, result says %d", total, result.OrdersCompleted)
	}

	var orderCount int64
	if err := conn.Model(&models.Order{}).Count(&orderCount).Error; err != nil {
		t.Fatalf("count orders: %v", err)
	}
	if int(orderCount) != result.OrdersCompleted {
		t.Fatalf("expected %d order rows, got %d", result.OrdersCompleted, orderCount)
	}
}

func TestHarnessSweepClearsReservations(t *testing.T) {
	cfg := config.LoadConfig{
		Sessions:         2,
		OrdersPerSession: 2,
		RestockInterval:  100,
		Initiator:        "harness-test",
		Seed:             7,
		MaxItemsPerOrder: 3,
	}
	h, conn := newHarness(t, cfg)
	seedCatalog(t, conn, 4, 50)

	// A shopper that died between reserving and settling leaves a cart line
	// behind with stock still counted as reserved. The sweep must drop the
	// line and hand the stock back.
	var stale models.Inventory
	if err := conn.First(&stale).Error; err != nil {
		t.Fatalf("load inventory: %v", err)
	}
	stranded := models.User{ID: uuid.New(), Email: "stranded@stockroom.dev"}
	if err := conn.Create(&stranded).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	cart := models.Cart{ID: uuid.New(), UserID: stranded.ID}
	if err := conn.Create(&cart).Error; err != nil {
		t.Fatalf("seed cart: %v", err)
	}
	line := models.CartItem{ID: uuid.New(), CartID: cart.ID, ItemID: stale.ItemID, Quantity: 2}
	if err := conn.Create(&line).Error; err != nil {
		t.Fatalf("seed cart item: %v", err)
	}
	err := conn.Model(&models.Inventory{}).
		Where("id = ?", stale.ID).
		Updates(map[string]interface{}{"on_hand": stale.OnHand - 2, "reserved": 2}).Error
	if err != nil {
		t.Fatalf("reserve stale stock: %v", err)
	}

	if _, err := h.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	var lineCount int64
	if err := conn.Model(&models.CartItem{}).Count(&lineCount).Error; err != nil {
		t.Fatalf("count cart items: %v", err)
	}
	if lineCount != 0 {
		t.Fatalf("sweep left %d cart items behind", lineCount)
	}

	var rows []models.Inventory
	if err := conn.Find(&rows).Error; err != nil {
		t.Fatalf("load inventories: %v", err)
	}
	for _, inv := range rows {
		if inv.Reserved != 0 {
			t.Fatalf("sweep left %d reserved on item %s", inv.Reserved, inv.ItemID)
		}
		if inv.OnHand < 0 {
			t.Fatalf("negative on_hand on item %s", inv.ItemID)
		}
	}
}

func TestHarnessRejectsEmptyCatalog(t *testing.T) {
	cfg := config.LoadConfig{
		Sessions:         1,
		OrdersPerSession: 1,
		Initiator:        "harness-test",
		MaxItemsPerOrder: 1,
	}
	h, _ := newHarness(t, cfg)
	if _, err := h.Run(context.Background()); err == nil {
		t.Fatal("expected error with no items seeded")
	}
}
