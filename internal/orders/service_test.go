package orders

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
	"github.com/stockroom-labs/stockroom-backend/internal/reservation"
	"github.com/stockroom-labs/stockroom-backend/pkg/config"
	"github.com/stockroom-labs/stockroom-backend/pkg/db"
	"github.com/stockroom-labs/stockroom-backend/pkg/db/models"
	"github.com/stockroom-labs/stockroom-backend/pkg/enums"
	pkgerrors "github.com/stockroom-labs/stockroom-backend/pkg/errors"
)

type fixture struct {
	conn     *gorm.DB
	orders   Service
	reserver reservation.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := "file:orders_" + uuid.NewString() + "?mode=memory&cache=shared&_busy_timeout=5000"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	err = conn.AutoMigrate(
		&models.Item{},
		&models.Cart{},
		&models.CartItem{},
		&models.Inventory{},
		&models.InventoryTransaction{},
		&models.Order{},
		&models.OrderItem{},
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
	svc, err := NewService(NewRepository(conn), cartRepo, catalog.NewRepository(conn), invRepo, exec, nil)
	if err != nil {
		t.Fatalf("new order service: %v", err)
	}
	reserver, err := reservation.NewService(cartRepo, invRepo, exec, nil)
	if err != nil {
		t.Fatalf("new reservation service: %v", err)
	}
	return &fixture{conn: conn, orders: svc, reserver: reserver}
}

func (f *fixture) seedItem(t *testing.T, priceCents, onHand int) uuid.UUID {
	t.Helper()
	item := models.Item{
		ID:         uuid.New(),
		Name:       "widget",
		PriceCents: priceCents,
	}
	if err := f.conn.Create(&item).Error; err != nil {
		t.Fatalf("seed item: %v", err)
	}
	inv := models.Inventory{
		ID:            uuid.New(),
		ItemID:        item.ID,
		OnHand:        onHand,
		Threshold:     10,
		RestockAmount: 50,
	}
	if err := f.conn.Create(&inv).Error; err != nil {
		t.Fatalf("seed inventory: %v", err)
	}
	return item.ID
}

func (f *fixture) counters(t *testing.T, itemID uuid.UUID) (int, int) {
	t.Helper()
	var inv models.Inventory
	if err := f.conn.First(&inv, "item_id = ?", itemID).Error; err != nil {
		t.Fatalf("load inventory: %v", err)
	}
	return inv.OnHand, inv.Reserved
}

func TestPlaceOrderSettlesReservation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	itemID := f.seedItem(t, 500, 10)
	userA := uuid.New()
	userB := uuid.New()

	if _, err := f.reserver.Reserve(ctx, userA, itemID, 3); err != nil {
		t.Fatalf("reserve a: %v", err)
	}
	if _, err := f.reserver.Reserve(ctx, userB, itemID, 8); !pkgerrors.HasCode(err, pkgerrors.CodeInsufficientStock) {
		t.Fatalf("expected insufficient stock for b, got %v", err)
	}
	if onHand, reserved := f.counters(t, itemID); onHand != 7 || reserved != 3 {
		t.Fatalf("expected 7/3 before settlement, got %d/%d", onHand, reserved)
	}

	result, err := f.orders.PlaceOrder(ctx, userA)
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	if result.Partial() {
		t.Fatalf("expected full fulfillment, got %d shortfall lines", result.ShortfallLines)
	}
	if result.Order.TotalCents != 1500 {
		t.Fatalf("expected total 1500, got %d", result.Order.TotalCents)
	}
	if result.Order.Status != enums.OrderStatusPending {
		t.Fatalf("new order should be pending, got %s", result.Order.Status)
	}
	if len(result.Items) != 1 || result.Items[0].Quantity != 3 || result.Items[0].FulfilledQty != 3 {
		t.Fatalf("unexpected order items %+v", result.Items)
	}
	if result.Items[0].Name != "widget" || result.Items[0].UnitPriceCents != 500 {
		t.Fatalf("order item should snapshot catalog fields, got %+v", result.Items[0])
	}

	if onHand, reserved := f.counters(t, itemID); onHand != 7 || reserved != 0 {
		t.Fatalf("expected 7/0 after settlement, got %d/%d", onHand, reserved)
	}

	var sale models.InventoryTransaction
	if err := f.conn.First(&sale, "type = ?", enums.InventoryTransactionSale).Error; err != nil {
		t.Fatalf("load sale entry: %v", err)
	}
	if sale.Change != -3 || sale.Reference != result.Order.ID.String() {
		t.Fatalf("unexpected sale entry %+v", sale)
	}

	var remaining int64
	if err := f.conn.Model(&models.CartItem{}).Count(&remaining).Error; err != nil {
		t.Fatalf("count cart items: %v", err)
	}
	if remaining != 0 {
		t.Fatalf("settlement should clear the cart, found %d lines", remaining)
	}
}

func TestPlaceOrderEmptyCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.orders.PlaceOrder(ctx, uuid.New())
	if !pkgerrors.HasCode(err, pkgerrors.CodeEmptyCart) {
		t.Fatalf("expected empty cart without a cart row, got %v", err)
	}

	itemID := f.seedItem(t, 100, 5)
	userID := uuid.New()
	if _, err := f.reserver.Reserve(ctx, userID, itemID, 1); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if err := f.reserver.Release(ctx, userID, itemID, 1); err != nil {
		t.Fatalf("release: %v", err)
	}
	_, err = f.orders.PlaceOrder(ctx, userID)
	if !pkgerrors.HasCode(err, pkgerrors.CodeEmptyCart) {
		t.Fatalf("expected empty cart after release, got %v", err)
	}
}

func TestPlaceOrderRecordsShortfall(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	itemID := f.seedItem(t, 250, 10)
	userID := uuid.New()

	if _, err := f.reserver.Reserve(ctx, userID, itemID, 2); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	// Simulate a lost reservation: the cart still holds 2 but only 1 unit
	// remains tracked as reserved.
	err := f.conn.Model(&models.Inventory{}).
		Where("item_id = ?", itemID).
		Update("reserved", 1).Error
	if err != nil {
		t.Fatalf("shrink reserved: %v", err)
	}

	result, err := f.orders.PlaceOrder(ctx, userID)
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	if !result.Partial() || result.ShortfallLines != 1 {
		t.Fatalf("expected one shortfall line, got %+v", result)
	}
	if result.Items[0].Quantity != 2 || result.Items[0].FulfilledQty != 1 {
		t.Fatalf("expected fulfilled 1 of 2, got %+v", result.Items[0])
	}
	if result.Order.TotalCents != 250 {
		t.Fatalf("total should cover fulfilled units only, got %d", result.Order.TotalCents)
	}

	var sale models.InventoryTransaction
	if err := f.conn.First(&sale, "type = ?", enums.InventoryTransactionSale).Error; err != nil {
		t.Fatalf("load sale entry: %v", err)
	}
	if sale.Change != -1 {
		t.Fatalf("expected sale of 1 unit, got %+v", sale)
	}
	var oos models.InventoryTransaction
	if err := f.conn.First(&oos, "type = ?", enums.InventoryTransactionOutOfStock).Error; err != nil {
		t.Fatalf("load out-of-stock entry: %v", err)
	}
	if oos.Change != 0 || oos.Reference != result.Order.ID.String() {
		t.Fatalf("unexpected out-of-stock entry %+v", oos)
	}
}

func TestPlaceOrderMissingInventoryAborts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	itemID := f.seedItem(t, 100, 5)
	userID := uuid.New()

	if _, err := f.reserver.Reserve(ctx, userID, itemID, 2); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if err := f.conn.Where("item_id = ?", itemID).Delete(&models.Inventory{}).Error; err != nil {
		t.Fatalf("delete inventory: %v", err)
	}

	_, err := f.orders.PlaceOrder(ctx, userID)
	if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	var orderCount int64
	if err := f.conn.Model(&models.Order{}).Count(&orderCount).Error; err != nil {
		t.Fatalf("count orders: %v", err)
	}
	if orderCount != 0 {
		t.Fatalf("failed settlement must not create an order, found %d", orderCount)
	}
	var lineCount int64
	if err := f.conn.Model(&models.CartItem{}).Count(&lineCount).Error; err != nil {
		t.Fatalf("count cart items: %v", err)
	}
	if lineCount != 1 {
		t.Fatalf("failed settlement must keep reservations, found %d lines", lineCount)
	}
}

func TestAdvanceStatusWalksSequence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	itemID := f.seedItem(t, 100, 5)
	userID := uuid.New()

	if _, err := f.reserver.Reserve(ctx, userID, itemID, 1); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	result, err := f.orders.PlaceOrder(ctx, userID)
	if err != nil {
		t.Fatalf("place order: %v", err)
	}

	want := []enums.OrderStatus{
		enums.OrderStatusProcessing,
		enums.OrderStatusFulfilled,
		enums.OrderStatusShipped,
		enums.OrderStatusDelivered,
		enums.OrderStatusCompleted,
	}
	for _, expect := range want {
		got, err := f.orders.AdvanceStatus(ctx, result.Order.ID)
		if err != nil {
			t.Fatalf("advance to %s: %v", expect, err)
		}
		if got != expect {
			t.Fatalf("expected %s, got %s", expect, got)
		}
	}

	_, err = f.orders.AdvanceStatus(ctx, result.Order.ID)
	if !pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("completed order must refuse transitions, got %v", err)
	}
}
