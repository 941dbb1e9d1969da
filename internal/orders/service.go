package orders

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stockroom-labs/stockroom-backend/internal/carts"
	"github.com/stockroom-labs/stockroom-backend/internal/catalog"
	"github.com/stockroom-labs/stockroom-backend/internal/inventory"
	"github.com/stockroom-labs/stockroom-backend/pkg/db/models"
	"github.com/stockroom-labs/stockroom-backend/pkg/enums"
	pkgerrors "github.com/stockroom-labs/stockroom-backend/pkg/errors"
	"github.com/stockroom-labs/stockroom-backend/pkg/logger"
)

type txRunner interface {
	Execute(ctx context.Context, label string, fn func(tx *gorm.DB) error) error
}

// Result is the outcome of a settlement. Partial fulfillment is a success:
// ShortfallLines counts the lines that could not be fully covered by their
// reservation, and the per-line FulfilledQty records what was.
type Result struct {
	Order          *models.Order
	Items          []models.OrderItem
	ShortfallLines int
}

// Partial reports whether any line settled short of its requested quantity.
func (r *Result) Partial() bool {
	return r.ShortfallLines > 0
}

// Service converts cart reservations into immutable orders and walks order
// status through its fixed sequence.
type Service interface {
	PlaceOrder(ctx context.Context, userID uuid.UUID) (*Result, error)
	AdvanceStatus(ctx context.Context, orderID uuid.UUID) (enums.OrderStatus, error)
	GetOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, []models.OrderItem, error)
	ListOrders(ctx context.Context, userID uuid.UUID, limit int) ([]models.Order, error)
}

type service struct {
	orders    Repository
	carts     carts.Repository
	catalog   catalog.Repository
	inventory inventory.Repository
	tx        txRunner
	logg      *logger.Logger
}

func NewService(
	orderRepo Repository,
	cartRepo carts.Repository,
	catalogRepo catalog.Repository,
	invRepo inventory.Repository,
	tx txRunner,
	logg *logger.Logger,
) (Service, error) {
	if orderRepo == nil || cartRepo == nil || catalogRepo == nil || invRepo == nil {
		return nil, fmt.Errorf("order, cart, catalog and inventory repositories required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		orders:    orderRepo,
		carts:     cartRepo,
		catalog:   catalogRepo,
		inventory: invRepo,
		tx:        tx,
		logg:      logg,
	}, nil
}

// PlaceOrder settles the user's cart in one transaction. On-hand stock was
// already decremented at reservation time, so settlement only consumes the
// reserved units. When the tracked reservation covers less than a line
// requests, the line settles short: release what is actually reserved, log
// OUT_OF_STOCK with change 0 for the event, and record the fulfilled
// quantity on the order instead of failing.
func (s *service) PlaceOrder(ctx context.Context, userID uuid.UUID) (*Result, error) {
	var result *Result
	err := s.tx.Execute(ctx, "place_order", func(tx *gorm.DB) error {
		result = nil
		cartRepo := s.carts.WithTx(tx)
		invRepo := s.inventory.WithTx(tx)
		orderRepo := s.orders.WithTx(tx)
		catalogRepo := s.catalog.WithTx(tx)

		cart, err := cartRepo.GetCartByUserID(ctx, userID)
		if err != nil {
			if pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
				return pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty").
					WithDetails(map[string]any{"user_id": userID})
			}
			return err
		}
		lines, err := cartRepo.ListItems(ctx, cart.ID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty").
				WithDetails(map[string]any{"cart_id": cart.ID})
		}

		itemIDs := make([]uuid.UUID, 0, len(lines))
		for _, line := range lines {
			itemIDs = append(itemIDs, line.ItemID)
		}
		items, err := catalogRepo.GetByIDs(ctx, itemIDs)
		if err != nil {
			return err
		}

		order := &models.Order{
			ID:     uuid.New(),
			UserID: userID,
			Status: enums.OrderStatusPending,
		}

		orderItems := make([]models.OrderItem, 0, len(lines))
		shortfall := 0
		total := 0
		for _, line := range lines {
			item, ok := items[line.ItemID]
			if !ok {
				return pkgerrors.New(pkgerrors.CodeNotFound, "item missing from catalog").
					WithDetails(map[string]any{"item_id": line.ItemID})
			}
			inv, err := invRepo.GetByItemID(ctx, line.ItemID)
			if err != nil {
				return err
			}

			fulfilled := line.Quantity
			if inv.Reserved < fulfilled {
				fulfilled = inv.Reserved
			}
			if fulfilled > 0 {
				if _, err := invRepo.AdjustForSale(ctx, line.ItemID, fulfilled); err != nil {
					return err
				}
				entry := &models.InventoryTransaction{
					InventoryID: inv.ID,
					Change:      -fulfilled,
					Type:        enums.InventoryTransactionSale,
					Reference:   order.ID.String(),
				}
				if err := invRepo.AppendTransaction(ctx, entry); err != nil {
					return err
				}
			}
			if fulfilled < line.Quantity {
				shortfall++
				entry := &models.InventoryTransaction{
					InventoryID: inv.ID,
					Change:      0,
					Type:        enums.InventoryTransactionOutOfStock,
					Reference:   order.ID.String(),
				}
				if err := invRepo.AppendTransaction(ctx, entry); err != nil {
					return err
				}
			}

			total += fulfilled * item.PriceCents
			orderItems = append(orderItems, models.OrderItem{
				ItemID:         line.ItemID,
				Quantity:       line.Quantity,
				FulfilledQty:   fulfilled,
				UnitPriceCents: item.PriceCents,
				Name:           item.Name,
				Description:    item.Description,
				ImageURL:       item.ImageURL,
			})
		}

		order.TotalCents = total
		if err := orderRepo.Create(ctx, order, orderItems); err != nil {
			return err
		}
		if err := cartRepo.DeleteAllItems(ctx, cart.ID); err != nil {
			return err
		}
		result = &Result{Order: order, Items: orderItems, ShortfallLines: shortfall}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		ctx = s.logg.WithFields(ctx, map[string]any{
			"order_id":  result.Order.ID.String(),
			"lines":     len(result.Items),
			"shortfall": result.ShortfallLines,
		})
		s.logg.Info(ctx, "order settled")
	}
	return result, nil
}

// AdvanceStatus moves the order one step along its lifecycle and returns the
// new status. Terminal orders refuse further transitions.
func (s *service) AdvanceStatus(ctx context.Context, orderID uuid.UUID) (enums.OrderStatus, error) {
	var next enums.OrderStatus
	err := s.tx.Execute(ctx, "advance_order", func(tx *gorm.DB) error {
		orderRepo := s.orders.WithTx(tx)
		order, _, err := orderRepo.GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		if order.Status.IsTerminal() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order already completed").
				WithDetails(map[string]any{"order_id": orderID, "status": order.Status})
		}
		next = order.Status.Next()
		return orderRepo.UpdateStatus(ctx, orderID, order.Status, next)
	})
	if err != nil {
		return "", err
	}
	return next, nil
}

func (s *service) GetOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, []models.OrderItem, error) {
	return s.orders.GetByID(ctx, orderID)
}

func (s *service) ListOrders(ctx context.Context, userID uuid.UUID, limit int) ([]models.Order, error) {
	return s.orders.ListByUser(ctx, userID, limit)
}
