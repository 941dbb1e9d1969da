package carts

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/stockroom-labs/stockroom-backend/pkg/db/models"
	pkgerrors "github.com/stockroom-labs/stockroom-backend/pkg/errors"
)

// Repository persists carts and their reservation lines. Quantity math
// happens here as guarded single statements so concurrent sessions can never
// drive a line negative.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	EnsureCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	GetCartByUserID(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	GetItem(ctx context.Context, cartID, itemID uuid.UUID) (*models.CartItem, error)
	AddItemQuantity(ctx context.Context, cartID, itemID uuid.UUID, qty int) error
	RemoveItemQuantity(ctx context.Context, cartID, itemID uuid.UUID, qty int) error
	ListItems(ctx context.Context, cartID uuid.UUID) ([]models.CartItem, error)
	DeleteAllItems(ctx context.Context, cartID uuid.UUID) error
	PurgeAllItems(ctx context.Context) (int64, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// EnsureCart creates the user's cart on first use. The unique index on
// user_id makes the insert a no-op when the cart already exists.
func (r *repository) EnsureCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	cart := models.Cart{ID: uuid.New(), UserID: userID}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).
		Create(&cart).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to ensure cart")
	}
	return r.GetCartByUserID(ctx, userID)
}

func (r *repository) GetCartByUserID(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	err := r.db.WithContext(ctx).First(&cart, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found").
			WithDetails(map[string]any{"user_id": userID})
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load cart")
	}
	return &cart, nil
}

func (r *repository) GetItem(ctx context.Context, cartID, itemID uuid.UUID) (*models.CartItem, error) {
	var line models.CartItem
	err := r.db.WithContext(ctx).
		First(&line, "cart_id = ? AND item_id = ?", cartID, itemID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeReservationNotFound, "no reservation for item").
			WithDetails(map[string]any{"cart_id": cartID, "item_id": itemID})
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load cart item")
	}
	return &line, nil
}

// AddItemQuantity inserts the reservation line or bumps its quantity when
// one already exists for the cart/item pair.
func (r *repository) AddItemQuantity(ctx context.Context, cartID, itemID uuid.UUID, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive").
			WithDetails(map[string]any{"quantity": qty})
	}
	line := models.CartItem{ID: uuid.New(), CartID: cartID, ItemID: itemID, Quantity: qty}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "cart_id"}, {Name: "item_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"quantity": gorm.Expr("quantity + excluded.quantity"),
			}),
		}).
		Create(&line).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to upsert cart item")
	}
	return nil
}

// RemoveItemQuantity takes qty off the reservation line, deleting the row
// when it empties. Removing more than is held fails without mutating.
func (r *repository) RemoveItemQuantity(ctx context.Context, cartID, itemID uuid.UUID, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive").
			WithDetails(map[string]any{"quantity": qty})
	}
	res := r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("cart_id = ? AND item_id = ? AND quantity >= ?", cartID, itemID, qty).
		Update("quantity", gorm.Expr("quantity - ?", qty))
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "failed to decrement cart item")
	}
	if res.RowsAffected == 0 {
		line, err := r.GetItem(ctx, cartID, itemID)
		if err != nil {
			return err
		}
		return pkgerrors.New(pkgerrors.CodeOverRelease, "release exceeds reservation").
			WithDetails(map[string]any{
				"cart_id":   cartID,
				"item_id":   itemID,
				"held":      line.Quantity,
				"requested": qty,
			})
	}
	err := r.db.WithContext(ctx).
		Where("cart_id = ? AND item_id = ? AND quantity <= 0", cartID, itemID).
		Delete(&models.CartItem{}).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to prune empty cart item")
	}
	return nil
}

func (r *repository) ListItems(ctx context.Context, cartID uuid.UUID) ([]models.CartItem, error) {
	var lines []models.CartItem
	err := r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Order("item_id ASC").
		Find(&lines).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to list cart items")
	}
	return lines, nil
}

func (r *repository) DeleteAllItems(ctx context.Context, cartID uuid.UUID) error {
	err := r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Delete(&models.CartItem{}).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to clear cart")
	}
	return nil
}

// PurgeAllItems drops every reservation line across all carts. Dangling
// lines no longer map to reserved stock once the counters are restored, so
// the load harness purges them as part of its end-of-run sweep.
func (r *repository) PurgeAllItems(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("1 = 1").
		Delete(&models.CartItem{})
	if res.Error != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "failed to purge cart items")
	}
	return res.RowsAffected, nil
}
