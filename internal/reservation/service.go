package reservation

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stockroom-labs/stockroom-backend/internal/carts"
	"github.com/stockroom-labs/stockroom-backend/internal/inventory"
	"github.com/stockroom-labs/stockroom-backend/pkg/db/models"
	"github.com/stockroom-labs/stockroom-backend/pkg/enums"
	pkgerrors "github.com/stockroom-labs/stockroom-backend/pkg/errors"
	"github.com/stockroom-labs/stockroom-backend/pkg/logger"
)

type txRunner interface {
	Execute(ctx context.Context, label string, fn func(tx *gorm.DB) error) error
}

// Line is one item/quantity pair in a batch reservation request.
type Line struct {
	ItemID   uuid.UUID
	Quantity int
}

// Service moves stock between the sellable pool and cart reservations.
// Every operation runs inside a single serializable transaction: either the
// counters, the cart line and the ledger entry all commit, or none do.
type Service interface {
	Reserve(ctx context.Context, userID, itemID uuid.UUID, qty int) (*models.Cart, error)
	ReserveBatch(ctx context.Context, userID uuid.UUID, lines []Line) (*models.Cart, error)
	Release(ctx context.Context, userID, itemID uuid.UUID, qty int) error
	CancelCart(ctx context.Context, userID uuid.UUID) (int, error)
	GetCart(ctx context.Context, userID uuid.UUID) (*models.Cart, []models.CartItem, error)
}

type service struct {
	carts     carts.Repository
	inventory inventory.Repository
	tx        txRunner
	logg      *logger.Logger
}

func NewService(cartRepo carts.Repository, invRepo inventory.Repository, tx txRunner, logg *logger.Logger) (Service, error) {
	if cartRepo == nil || invRepo == nil {
		return nil, fmt.Errorf("cart and inventory repositories required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{carts: cartRepo, inventory: invRepo, tx: tx, logg: logg}, nil
}

func (s *service) Reserve(ctx context.Context, userID, itemID uuid.UUID, qty int) (*models.Cart, error) {
	return s.ReserveBatch(ctx, userID, []Line{{ItemID: itemID, Quantity: qty}})
}

// ReserveBatch reserves every line or nothing. Lines are deduplicated and
// applied in item-id order so concurrent batches touch inventory rows in the
// same sequence.
func (s *service) ReserveBatch(ctx context.Context, userID uuid.UUID, lines []Line) (*models.Cart, error) {
	merged, err := mergeLines(lines)
	if err != nil {
		return nil, err
	}

	var cart *models.Cart
	err = s.tx.Execute(ctx, "reserve", func(tx *gorm.DB) error {
		cartRepo := s.carts.WithTx(tx)
		invRepo := s.inventory.WithTx(tx)

		c, err := cartRepo.EnsureCart(ctx, userID)
		if err != nil {
			return err
		}
		for _, line := range merged {
			inv, err := invRepo.AdjustForReserve(ctx, line.ItemID, line.Quantity)
			if err != nil {
				return err
			}
			if err := cartRepo.AddItemQuantity(ctx, c.ID, line.ItemID, line.Quantity); err != nil {
				return err
			}
			entry := &models.InventoryTransaction{
				InventoryID: inv.ID,
				Change:      line.Quantity,
				Type:        enums.InventoryTransactionReserve,
				Reference:   c.ID.String(),
			}
			if err := invRepo.AppendTransaction(ctx, entry); err != nil {
				return err
			}
		}
		cart = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cart, nil
}

// Release hands qty units back from the user's cart to the sellable pool.
func (s *service) Release(ctx context.Context, userID, itemID uuid.UUID, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive").
			WithDetails(map[string]any{"quantity": qty})
	}
	return s.tx.Execute(ctx, "release", func(tx *gorm.DB) error {
		cartRepo := s.carts.WithTx(tx)
		invRepo := s.inventory.WithTx(tx)

		cart, err := cartRepo.GetCartByUserID(ctx, userID)
		if err != nil {
			return err
		}
		if err := cartRepo.RemoveItemQuantity(ctx, cart.ID, itemID, qty); err != nil {
			return err
		}
		inv, err := invRepo.AdjustForRelease(ctx, itemID, qty)
		if err != nil {
			return err
		}
		return invRepo.AppendTransaction(ctx, &models.InventoryTransaction{
			InventoryID: inv.ID,
			Change:      -qty,
			Type:        enums.InventoryTransactionRelease,
			Reference:   cart.ID.String(),
		})
	})
}

// CancelCart releases every reservation the user holds and empties the cart.
// Returns the number of lines released. An absent or empty cart is a no-op.
func (s *service) CancelCart(ctx context.Context, userID uuid.UUID) (int, error) {
	released := 0
	err := s.tx.Execute(ctx, "cancel_cart", func(tx *gorm.DB) error {
		released = 0
		cartRepo := s.carts.WithTx(tx)
		invRepo := s.inventory.WithTx(tx)

		cart, err := cartRepo.GetCartByUserID(ctx, userID)
		if err != nil {
			if pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
				return nil
			}
			return err
		}
		lines, err := cartRepo.ListItems(ctx, cart.ID)
		if err != nil {
			return err
		}
		for _, line := range lines {
			inv, err := invRepo.AdjustForRelease(ctx, line.ItemID, line.Quantity)
			if err != nil {
				return err
			}
			entry := &models.InventoryTransaction{
				InventoryID: inv.ID,
				Change:      -line.Quantity,
				Type:        enums.InventoryTransactionRelease,
				Reference:   cart.ID.String(),
			}
			if err := invRepo.AppendTransaction(ctx, entry); err != nil {
				return err
			}
			released++
		}
		return cartRepo.DeleteAllItems(ctx, cart.ID)
	})
	if err != nil {
		return 0, err
	}
	return released, nil
}

func (s *service) GetCart(ctx context.Context, userID uuid.UUID) (*models.Cart, []models.CartItem, error) {
	cart, err := s.carts.GetCartByUserID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	lines, err := s.carts.ListItems(ctx, cart.ID)
	if err != nil {
		return nil, nil, err
	}
	return cart, lines, nil
}

func mergeLines(lines []Line) ([]Line, error) {
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one line required")
	}
	byItem := make(map[uuid.UUID]int, len(lines))
	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive").
				WithDetails(map[string]any{"item_id": line.ItemID, "quantity": line.Quantity})
		}
		byItem[line.ItemID] += line.Quantity
	}
	merged := make([]Line, 0, len(byItem))
	for itemID, qty := range byItem {
		merged = append(merged, Line{ItemID: itemID, Quantity: qty})
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].ItemID.String() < merged[j].ItemID.String()
	})
	return merged, nil
}
