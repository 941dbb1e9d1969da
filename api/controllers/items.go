package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/stockroom-labs/stockroom-backend/api/responses"
	"github.com/stockroom-labs/stockroom-backend/api/validators"
	"github.com/stockroom-labs/stockroom-backend/internal/catalog"
	"github.com/stockroom-labs/stockroom-backend/pkg/db/models"
	pkgerrors "github.com/stockroom-labs/stockroom-backend/pkg/errors"
	"github.com/stockroom-labs/stockroom-backend/pkg/logger"
)

type itemView struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	PriceCents   int       `json:"price_cents"`
	DisplayPrice string    `json:"display_price"`
	Description  string    `json:"description,omitempty"`
	ImageURL     string    `json:"image_url,omitempty"`
	Category     string    `json:"category,omitempty"`
}

func toItemView(item models.Item) itemView {
	return itemView{
		ID:           item.ID,
		Name:         item.Name,
		PriceCents:   item.PriceCents,
		DisplayPrice: catalog.DisplayPrice(item.PriceCents),
		Description:  item.Description,
		ImageURL:     item.ImageURL,
		Category:     item.Category,
	}
}

func ItemsList(repo catalog.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		offset, err := validators.ParseQueryInt(r, "offset", 0, 0, 100000)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, err := repo.List(r.Context(), limit, offset)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		views := make([]itemView, 0, len(items))
		for _, item := range items {
			views = append(views, toItemView(item))
		}
		responses.WriteSuccess(w, views)
	}
}

func ItemsGet(repo catalog.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "itemID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "item id must be a uuid"))
			return
		}
		item, err := repo.GetByID(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toItemView(*item))
	}
}
