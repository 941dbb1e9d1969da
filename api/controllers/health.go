package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/stockroom-labs/stockroom-backend/api/responses"
	"github.com/stockroom-labs/stockroom-backend/pkg/config"
	"github.com/stockroom-labs/stockroom-backend/pkg/logger"
)

type pinger interface {
	Ping(context.Context) error
}

// HealthLive reports process liveness only.
func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		responses.WriteSuccess(w, map[string]string{
			"status": "ok",
			"env":    cfg.App.Env,
		})
	}
}

// HealthReady checks the backing stores. A missing redis client degrades the
// report instead of failing it, since the core works without idempotency
// replay.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP pinger, redisP pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		checks := map[string]string{}
		healthy := true

		if dbP == nil {
			checks["db"] = "not configured"
			healthy = false
		} else if err := dbP.Ping(ctx); err != nil {
			checks["db"] = err.Error()
			healthy = false
			if logg != nil {
				logg.Error(ctx, "db readiness check failed", err)
			}
		} else {
			checks["db"] = "ok"
		}

		if redisP == nil {
			checks["redis"] = "not configured"
		} else if err := redisP.Ping(ctx); err != nil {
			checks["redis"] = err.Error()
			if logg != nil {
				logg.Error(ctx, "redis readiness check failed", err)
			}
		} else {
			checks["redis"] = "ok"
		}

		status := http.StatusOK
		if !healthy {
			status = http.StatusServiceUnavailable
		}
		responses.WriteSuccessStatus(w, status, map[string]any{
			"status": map[bool]string{true: "ready", false: "degraded"}[healthy],
			"checks": checks,
		})
	}
}
