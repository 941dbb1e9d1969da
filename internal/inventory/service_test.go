package inventory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/stockroom-labs/stockroom-backend/pkg/config"
	"github.com/stockroom-labs/stockroom-backend/pkg/db"
	"github.com/stockroom-labs/stockroom-backend/pkg/db/models"
	"github.com/stockroom-labs/stockroom-backend/pkg/enums"
	pkgerrors "github.com/stockroom-labs/stockroom-backend/pkg/errors"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:inventory_" + uuid.NewString() + "?mode=memory&cache=shared&_busy_timeout=5000"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&models.Inventory{}, &models.InventoryTransaction{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

func newExecutor(t *testing.T, conn *gorm.DB) *db.Executor {
	t.Helper()
	exec, err := db.NewExecutor(db.NewFromConn(conn), config.ExecutorConfig{
		MaxAttempts:    5,
		AttemptTimeout: 5 * time.Second,
		BackoffInitial: time.Millisecond,
		BackoffMax:     5 * time.Millisecond,
	}, nil, nil)
	if err != nil {
		t.Fatalf("new executor: %v", err)
	}
	return exec
}

func seedInventory(t *testing.T, conn *gorm.DB, onHand, reserved, threshold, restockAmount int) *models.Inventory {
	t.Helper()
	inv := &models.Inventory{
		ID:            uuid.New(),
		ItemID:        uuid.New(),
		OnHand:        onHand,
		Reserved:      reserved,
		Threshold:     threshold,
		RestockAmount: restockAmount,
	}
	if err := conn.Create(inv).Error; err != nil {
		t.Fatalf("seed inventory: %v", err)
	}
	return inv
}

func TestRestockCheckTopsUpLowStock(t *testing.T) {
	conn := newTestDB(t)
	ctx := context.Background()

	low := seedInventory(t, conn, 2, 0, 10, 50)
	high := seedInventory(t, conn, 40, 0, 10, 50)

	svc, err := NewService(NewRepository(conn), newExecutor(t, conn), nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	restocked, err := svc.RestockCheck(ctx, "run-1")
	if err != nil {
		t.Fatalf("restock check: %v", err)
	}
	if restocked != 1 {
		t.Fatalf("expected 1 restocked item, got %d", restocked)
	}

	var after models.Inventory
	if err := conn.First(&after, "id = ?", low.ID).Error; err != nil {
		t.Fatalf("load inventory: %v", err)
	}
	if after.OnHand != 52 {
		t.Fatalf("expected on_hand 52, got %d", after.OnHand)
	}

	var entries []models.InventoryTransaction
	if err := conn.Find(&entries, "inventory_id = ?", low.ID).Error; err != nil {
		t.Fatalf("load ledger: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 ledger entry, got %d", len(entries))
	}
	if entries[0].Type != enums.InventoryTransactionRestock || entries[0].Change != 50 {
		t.Fatalf("unexpected ledger entry %+v", entries[0])
	}
	if entries[0].Reference != "run-1" {
		t.Fatalf("expected run reference, got %q", entries[0].Reference)
	}

	var untouched models.Inventory
	if err := conn.First(&untouched, "id = ?", high.ID).Error; err != nil {
		t.Fatalf("load inventory: %v", err)
	}
	if untouched.OnHand != 40 {
		t.Fatalf("well-stocked row should stay at 40, got %d", untouched.OnHand)
	}
}

func TestRestockCheckNoopAboveThreshold(t *testing.T) {
	conn := newTestDB(t)
	seedInventory(t, conn, 45, 0, 10, 50)

	svc, err := NewService(NewRepository(conn), newExecutor(t, conn), nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	restocked, err := svc.RestockCheck(context.Background(), "")
	if err != nil {
		t.Fatalf("restock check: %v", err)
	}
	if restocked != 0 {
		t.Fatalf("expected no restocks, got %d", restocked)
	}
}

func TestAdjustForReserveGuardsOnHand(t *testing.T) {
	conn := newTestDB(t)
	ctx := context.Background()
	inv := seedInventory(t, conn, 3, 0, 10, 50)
	repo := NewRepository(conn)

	updated, err := repo.AdjustForReserve(ctx, inv.ItemID, 2)
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if updated.OnHand != 1 || updated.Reserved != 2 {
		t.Fatalf("unexpected counters after reserve: %+v", updated)
	}

	_, err = repo.AdjustForReserve(ctx, inv.ItemID, 5)
	if !pkgerrors.HasCode(err, pkgerrors.CodeInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}

	var after models.Inventory
	if err := conn.First(&after, "id = ?", inv.ID).Error; err != nil {
		t.Fatalf("load inventory: %v", err)
	}
	if after.OnHand != 1 || after.Reserved != 2 {
		t.Fatalf("failed reserve must not mutate counters: %+v", after)
	}
}

func TestAdjustForReserveMissingRowIsIntegrityFault(t *testing.T) {
	conn := newTestDB(t)
	repo := NewRepository(conn)

	_, err := repo.AdjustForReserve(context.Background(), uuid.New(), 1)
	if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAdjustForReleaseRejectsOverRelease(t *testing.T) {
	conn := newTestDB(t)
	ctx := context.Background()
	inv := seedInventory(t, conn, 5, 2, 10, 50)
	repo := NewRepository(conn)

	_, err := repo.AdjustForRelease(ctx, inv.ItemID, 3)
	if !pkgerrors.HasCode(err, pkgerrors.CodeOverRelease) {
		t.Fatalf("expected over-release, got %v", err)
	}

	updated, err := repo.AdjustForRelease(ctx, inv.ItemID, 2)
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if updated.OnHand != 7 || updated.Reserved != 0 {
		t.Fatalf("unexpected counters after release: %+v", updated)
	}
}

func TestRestoreReservedSweep(t *testing.T) {
	conn := newTestDB(t)
	ctx := context.Background()
	a := seedInventory(t, conn, 1, 4, 10, 50)
	b := seedInventory(t, conn, 7, 0, 10, 50)
	repo := NewRepository(conn)

	swept, err := repo.RestoreReserved(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if swept != 1 {
		t.Fatalf("expected 1 swept row, got %d", swept)
	}

	var afterA, afterB models.Inventory
	if err := conn.First(&afterA, "id = ?", a.ID).Error; err != nil {
		t.Fatalf("load a: %v", err)
	}
	if err := conn.First(&afterB, "id = ?", b.ID).Error; err != nil {
		t.Fatalf("load b: %v", err)
	}
	if afterA.OnHand != 5 || afterA.Reserved != 0 {
		t.Fatalf("sweep should fold reserved into on_hand: %+v", afterA)
	}
	if afterB.OnHand != 7 || afterB.Reserved != 0 {
		t.Fatalf("row without reservations should be untouched: %+v", afterB)
	}
}
