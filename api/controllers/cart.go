package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/stockroom-labs/stockroom-backend/api/middleware"
	"github.com/stockroom-labs/stockroom-backend/api/responses"
	"github.com/stockroom-labs/stockroom-backend/api/validators"
	"github.com/stockroom-labs/stockroom-backend/internal/reservation"
	"github.com/stockroom-labs/stockroom-backend/pkg/db/models"
	pkgerrors "github.com/stockroom-labs/stockroom-backend/pkg/errors"
	"github.com/stockroom-labs/stockroom-backend/pkg/logger"
)

type reserveLineRequest struct {
	ItemID   uuid.UUID `json:"item_id" validate:"required"`
	Quantity int       `json:"quantity" validate:"required,min=1,max=1000"`
}

type reserveRequest struct {
	Items []reserveLineRequest `json:"items" validate:"required,min=1,max=50,dive"`
}

type releaseRequest struct {
	ItemID   uuid.UUID `json:"item_id" validate:"required"`
	Quantity int       `json:"quantity" validate:"required,min=1,max=1000"`
}

type cartLineView struct {
	ItemID   uuid.UUID `json:"item_id"`
	Quantity int       `json:"quantity"`
}

type cartView struct {
	ID    uuid.UUID      `json:"id"`
	Lines []cartLineView `json:"lines"`
}

func toCartView(cart *models.Cart, lines []models.CartItem) cartView {
	view := cartView{ID: cart.ID, Lines: make([]cartLineView, 0, len(lines))}
	for _, line := range lines {
		view.Lines = append(view.Lines, cartLineView{ItemID: line.ItemID, Quantity: line.Quantity})
	}
	return view
}

func actingUser(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "acting user required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "acting user id must be a uuid")
	}
	return id, nil
}

func CartGet(svc reservation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := actingUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cart, lines, err := svc.GetCart(r.Context(), userID)
		if err != nil {
			if pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
				responses.WriteSuccess(w, cartView{Lines: []cartLineView{}})
				return
			}
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toCartView(cart, lines))
	}
}

func CartReserve(svc reservation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := actingUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req reserveRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		lines := make([]reservation.Line, 0, len(req.Items))
		for _, item := range req.Items {
			lines = append(lines, reservation.Line{ItemID: item.ItemID, Quantity: item.Quantity})
		}

		if _, err := svc.ReserveBatch(r.Context(), userID, lines); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cart, cartLines, err := svc.GetCart(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toCartView(cart, cartLines))
	}
}

func CartRelease(svc reservation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := actingUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req releaseRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Release(r.Context(), userID, req.ItemID, req.Quantity); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cart, lines, err := svc.GetCart(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toCartView(cart, lines))
	}
}

func CartCancel(svc reservation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := actingUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		released, err := svc.CancelCart(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int{"released_lines": released})
	}
}
