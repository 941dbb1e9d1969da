package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/stockroom-labs/stockroom-backend/api/responses"
	"github.com/stockroom-labs/stockroom-backend/api/validators"
	"github.com/stockroom-labs/stockroom-backend/internal/loadgen"
	"github.com/stockroom-labs/stockroom-backend/pkg/config"
	"github.com/stockroom-labs/stockroom-backend/pkg/db/models"
	pkgerrors "github.com/stockroom-labs/stockroom-backend/pkg/errors"
	"github.com/stockroom-labs/stockroom-backend/pkg/logger"
)

// HarnessFactory builds a harness for one run with the merged parameters.
type HarnessFactory func(config.LoadConfig) (*loadgen.Harness, error)

type startLoadRunRequest struct {
	Sessions         int   `json:"sessions" validate:"omitempty,min=1,max=64"`
	OrdersPerSession int   `json:"orders_per_session" validate:"omitempty,min=1,max=1000"`
	RestockInterval  int   `json:"restock_interval" validate:"omitempty,min=1,max=10000"`
	Seed             int64 `json:"seed" validate:"omitempty,min=0"`
}

type loadRunView struct {
	ID              uuid.UUID  `json:"id"`
	InitiatedBy     string     `json:"initiated_by"`
	NumSessions     int        `json:"num_sessions"`
	NumOrders       int        `json:"num_orders"`
	RestockInterval int        `json:"restock_interval"`
	Failed          int        `json:"failed"`
	StartedAt       time.Time  `json:"started_at"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
}

type loadRunSummaryView struct {
	Session         int       `json:"session"`
	Identity        string    `json:"identity"`
	OrdersCompleted int       `json:"orders_completed"`
	StartedAt       time.Time `json:"started_at"`
	EndedAt         time.Time `json:"ended_at"`
}

func toLoadRunView(run models.LoadRun) loadRunView {
	return loadRunView{
		ID:              run.ID,
		InitiatedBy:     run.InitiatedBy,
		NumSessions:     run.NumSessions,
		NumOrders:       run.NumOrders,
		RestockInterval: run.RestockInterval,
		Failed:          run.Failed,
		StartedAt:       run.StartedAt,
		EndedAt:         run.EndedAt,
	}
}

// LoadRunsStart kicks off a simulation in the background and returns 202.
// The run row appears once the harness has started; clients poll the list
// endpoint for progress.
func LoadRunsStart(base config.LoadConfig, factory HarnessFactory, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req startLoadRunRequest
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &req); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		cfg := base
		if req.Sessions > 0 {
			cfg.Sessions = req.Sessions
		}
		if req.OrdersPerSession > 0 {
			cfg.OrdersPerSession = req.OrdersPerSession
		}
		if req.RestockInterval > 0 {
			cfg.RestockInterval = req.RestockInterval
		}
		if req.Seed != 0 {
			cfg.Seed = req.Seed
		}

		h, err := factory(cfg)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		// The run outlives this request on purpose.
		go func() {
			ctx := context.Background()
			if _, err := h.Run(ctx); err != nil && logg != nil {
				logg.Error(ctx, "background load run failed", err)
			}
		}()

		responses.WriteSuccessStatus(w, http.StatusAccepted, map[string]any{
			"status":             "started",
			"sessions":           cfg.Sessions,
			"orders_per_session": cfg.OrdersPerSession,
			"restock_interval":   cfg.RestockInterval,
		})
	}
}

func LoadRunsList(repo loadgen.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", 20, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		runs, err := repo.ListRuns(r.Context(), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		views := make([]loadRunView, 0, len(runs))
		for _, run := range runs {
			views = append(views, toLoadRunView(run))
		}
		responses.WriteSuccess(w, views)
	}
}

func LoadRunsGet(repo loadgen.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		runID, err := uuid.Parse(chi.URLParam(r, "runID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "run id must be a uuid"))
			return
		}
		run, summaries, err := repo.GetRun(r.Context(), runID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		summaryViews := make([]loadRunSummaryView, 0, len(summaries))
		for _, s := range summaries {
			summaryViews = append(summaryViews, loadRunSummaryView{
				Session:         s.Session,
				Identity:        s.Identity,
				OrdersCompleted: s.OrdersCompleted,
				StartedAt:       s.StartedAt,
				EndedAt:         s.EndedAt,
			})
		}
		responses.WriteSuccess(w, map[string]any{
			"run":       toLoadRunView(*run),
			"summaries": summaryViews,
		})
	}
}
