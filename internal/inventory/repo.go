package inventory

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stockroom-labs/stockroom-backend/pkg/db/models"
	pkgerrors "github.com/stockroom-labs/stockroom-backend/pkg/errors"
)

// Repository manages persistence for inventory counters and the append-only
// transaction ledger. Mutating methods assume they run on an executor-managed
// transaction handle; they never open transactions themselves.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	GetByItemID(ctx context.Context, itemID uuid.UUID) (*models.Inventory, error)
	AdjustForReserve(ctx context.Context, itemID uuid.UUID, qty int) (*models.Inventory, error)
	AdjustForRelease(ctx context.Context, itemID uuid.UUID, qty int) (*models.Inventory, error)
	AdjustForSale(ctx context.Context, itemID uuid.UUID, qty int) (*models.Inventory, error)
	AddStock(ctx context.Context, inventoryID uuid.UUID, amount int) error
	AppendTransaction(ctx context.Context, entry *models.InventoryTransaction) error
	ListBelowThreshold(ctx context.Context) ([]models.Inventory, error)
	RestoreReserved(ctx context.Context) (int64, error)
	ListTransactions(ctx context.Context, limit int) ([]models.InventoryTransaction, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an inventory repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) GetByItemID(ctx context.Context, itemID uuid.UUID) (*models.Inventory, error) {
	var inv models.Inventory
	if err := r.db.WithContext(ctx).First(&inv, "item_id = ?", itemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inventory row missing for item")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory")
	}
	return &inv, nil
}

// AdjustForReserve moves qty units from on_hand into reserved. The update is
// guarded on on_hand >= qty so a losing writer mutates nothing.
func (r *repository) AdjustForReserve(ctx context.Context, itemID uuid.UUID, qty int) (*models.Inventory, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE inventories
		SET on_hand = on_hand - ?,
			reserved = reserved + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE item_id = ? AND on_hand >= ?
	`, qty, qty, itemID, qty)
	if res.Error != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "reserve inventory")
	}
	if res.RowsAffected == 0 {
		inv, err := r.GetByItemID(ctx, itemID)
		if err != nil {
			return nil, err
		}
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientStock, "not enough stock on hand").
			WithDetails(map[string]any{"item_id": itemID, "on_hand": inv.OnHand, "requested": qty})
	}
	return r.GetByItemID(ctx, itemID)
}

// AdjustForRelease returns qty units from reserved back to on_hand.
func (r *repository) AdjustForRelease(ctx context.Context, itemID uuid.UUID, qty int) (*models.Inventory, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE inventories
		SET on_hand = on_hand + ?,
			reserved = reserved - ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE item_id = ? AND reserved >= ?
	`, qty, qty, itemID, qty)
	if res.Error != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "release inventory")
	}
	if res.RowsAffected == 0 {
		inv, err := r.GetByItemID(ctx, itemID)
		if err != nil {
			return nil, err
		}
		return nil, pkgerrors.New(pkgerrors.CodeOverRelease, "release exceeds reserved quantity").
			WithDetails(map[string]any{"item_id": itemID, "reserved": inv.Reserved, "requested": qty})
	}
	return r.GetByItemID(ctx, itemID)
}

// AdjustForSale consumes qty reserved units. On-hand was already debited at
// reservation time, so a sale touches reserved only.
func (r *repository) AdjustForSale(ctx context.Context, itemID uuid.UUID, qty int) (*models.Inventory, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE inventories
		SET reserved = reserved - ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE item_id = ? AND reserved >= ?
	`, qty, itemID, qty)
	if res.Error != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "sell inventory")
	}
	if res.RowsAffected == 0 {
		inv, err := r.GetByItemID(ctx, itemID)
		if err != nil {
			return nil, err
		}
		return nil, pkgerrors.New(pkgerrors.CodeOverRelease, "sale exceeds reserved quantity").
			WithDetails(map[string]any{"item_id": itemID, "reserved": inv.Reserved, "requested": qty})
	}
	return r.GetByItemID(ctx, itemID)
}

func (r *repository) AddStock(ctx context.Context, inventoryID uuid.UUID, amount int) error {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE inventories
		SET on_hand = on_hand + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, amount, inventoryID)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "add stock")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "inventory row missing")
	}
	return nil
}

func (r *repository) AppendTransaction(ctx context.Context, entry *models.InventoryTransaction) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append inventory transaction")
	}
	return nil
}

func (r *repository) ListBelowThreshold(ctx context.Context) ([]models.Inventory, error) {
	var rows []models.Inventory
	if err := r.db.WithContext(ctx).
		Where("on_hand < threshold").
		Order("item_id ASC").
		Find(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list low stock")
	}
	return rows, nil
}

// RestoreReserved folds all reserved units back into on_hand. The load
// harness runs this after all sessions complete so dangling reservations
// from failed sessions do not leak stock.
func (r *repository) RestoreReserved(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE inventories
		SET on_hand = on_hand + reserved,
			reserved = 0,
			updated_at = CURRENT_TIMESTAMP
		WHERE reserved > 0
	`)
	if res.Error != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "restore reserved stock")
	}
	return res.RowsAffected, nil
}

func (r *repository) ListTransactions(ctx context.Context, limit int) ([]models.InventoryTransaction, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []models.InventoryTransaction
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list inventory transactions")
	}
	return rows, nil
}
