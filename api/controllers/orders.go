package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/stockroom-labs/stockroom-backend/api/responses"
	"github.com/stockroom-labs/stockroom-backend/api/validators"
	"github.com/stockroom-labs/stockroom-backend/internal/catalog"
	"github.com/stockroom-labs/stockroom-backend/internal/orders"
	"github.com/stockroom-labs/stockroom-backend/pkg/db/models"
	pkgerrors "github.com/stockroom-labs/stockroom-backend/pkg/errors"
	"github.com/stockroom-labs/stockroom-backend/pkg/logger"
)

type orderLineView struct {
	ItemID         uuid.UUID `json:"item_id"`
	Name           string    `json:"name"`
	Quantity       int       `json:"quantity"`
	FulfilledQty   int       `json:"fulfilled_qty"`
	UnitPriceCents int       `json:"unit_price_cents"`
}

type orderView struct {
	ID           uuid.UUID       `json:"id"`
	Status       string          `json:"status"`
	TotalCents   int             `json:"total_cents"`
	DisplayTotal string          `json:"display_total"`
	Partial      bool            `json:"partial"`
	CreatedAt    time.Time       `json:"created_at"`
	Lines        []orderLineView `json:"lines,omitempty"`
}

func toOrderView(order *models.Order, items []models.OrderItem) orderView {
	view := orderView{
		ID:           order.ID,
		Status:       order.Status.String(),
		TotalCents:   order.TotalCents,
		DisplayTotal: catalog.DisplayPrice(order.TotalCents),
		CreatedAt:    order.CreatedAt,
	}
	for _, item := range items {
		if item.FulfilledQty < item.Quantity {
			view.Partial = true
		}
		view.Lines = append(view.Lines, orderLineView{
			ItemID:         item.ItemID,
			Name:           item.Name,
			Quantity:       item.Quantity,
			FulfilledQty:   item.FulfilledQty,
			UnitPriceCents: item.UnitPriceCents,
		})
	}
	return view
}

func OrdersPlace(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := actingUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.PlaceOrder(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, toOrderView(result.Order, result.Items))
	}
}

func OrdersList(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := actingUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := svc.ListOrders(r.Context(), userID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		views := make([]orderView, 0, len(rows))
		for i := range rows {
			views = append(views, toOrderView(&rows[i], nil))
		}
		responses.WriteSuccess(w, views)
	}
}

func OrdersGet(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := uuid.Parse(chi.URLParam(r, "orderID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "order id must be a uuid"))
			return
		}
		order, items, err := svc.GetOrder(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toOrderView(order, items))
	}
}

func OrdersAdvance(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := uuid.Parse(chi.URLParam(r, "orderID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "order id must be a uuid"))
			return
		}
		status, err := svc.AdvanceStatus(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": status.String()})
	}
}
