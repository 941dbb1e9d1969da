package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/stockroom-labs/stockroom-backend/api/responses"
	"github.com/stockroom-labs/stockroom-backend/api/validators"
	"github.com/stockroom-labs/stockroom-backend/internal/inventory"
	"github.com/stockroom-labs/stockroom-backend/pkg/logger"
)

type ledgerEntryView struct {
	ID          uuid.UUID `json:"id"`
	InventoryID uuid.UUID `json:"inventory_id"`
	Change      int       `json:"change"`
	Type        string    `json:"type"`
	Reference   string    `json:"reference,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func InventoryTransactions(repo inventory.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", 100, 1, 500)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := repo.ListTransactions(r.Context(), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		views := make([]ledgerEntryView, 0, len(rows))
		for _, row := range rows {
			views = append(views, ledgerEntryView{
				ID:          row.ID,
				InventoryID: row.InventoryID,
				Change:      row.Change,
				Type:        row.Type.String(),
				Reference:   row.Reference,
				CreatedAt:   row.CreatedAt,
			})
		}
		responses.WriteSuccess(w, views)
	}
}

func InventoryRestockCheck(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		restocked, err := svc.RestockCheck(r.Context(), "api-restock")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int{"restocked_items": restocked})
	}
}
