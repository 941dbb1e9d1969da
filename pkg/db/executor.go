package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stockroom-labs/stockroom-backend/pkg/config"
	pkgerrors "github.com/stockroom-labs/stockroom-backend/pkg/errors"
	"github.com/stockroom-labs/stockroom-backend/pkg/logger"
	"github.com/stockroom-labs/stockroom-backend/pkg/metrics"
)

// Executor runs units of work inside serializable transactions, retrying
// transient failures with jittered exponential backoff. It is the only place
// transactions are opened; every other component receives the transaction
// handle through fn and rebinds its repositories with WithTx.
type Executor struct {
	client  *Client
	cfg     config.ExecutorConfig
	logg    *logger.Logger
	metrics *metrics.TxMetrics
}

// NewExecutor wires an Executor around the shared connection pool.
func NewExecutor(client *Client, cfg config.ExecutorConfig, logg *logger.Logger, m *metrics.TxMetrics) (*Executor, error) {
	if client == nil {
		return nil, fmt.Errorf("db client required")
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = 10 * time.Second
	}
	if cfg.BackoffInitial <= 0 {
		cfg.BackoffInitial = 100 * time.Millisecond
	}
	if cfg.BackoffMax <= 0 {
		cfg.BackoffMax = 2 * time.Second
	}
	return &Executor{client: client, cfg: cfg, logg: logg, metrics: m}, nil
}

// Execute runs fn inside a serializable transaction. Transient failures are
// retried up to the configured bound; fatal ones propagate immediately.
// Exhausting retries yields a CodeTxExhausted error wrapping the last cause,
// so callers tracking failure counters fire exactly once per logical call.
func (e *Executor) Execute(ctx context.Context, label string, fn func(tx *gorm.DB) error) error {
	txID := uuid.NewString()[:6]
	bo := e.newBackoff()

	for attempt := 1; ; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, e.cfg.AttemptTimeout)

		logCtx := e.withTxFields(attemptCtx, txID, label, attempt)
		e.log(logCtx, "tx.begin")
		e.metrics.IncAttempt(label)

		start := time.Now()
		err := e.client.conn.WithContext(attemptCtx).Transaction(fn, &sql.TxOptions{
			Isolation: sql.LevelSerializable,
		})
		cancel()

		if err == nil {
			e.metrics.ObserveCommit(label, time.Since(start))
			e.log(logCtx, "tx.commit")
			return nil
		}

		if Classify(err) == ClassFatal {
			if e.logg != nil {
				e.logg.Warn(e.logg.WithField(logCtx, "error", err.Error()), "tx.abort")
			}
			return err
		}

		if attempt >= e.cfg.MaxAttempts {
			e.metrics.IncExhausted(label)
			if e.logg != nil {
				e.logg.Error(logCtx, "tx.retries_exhausted", err)
			}
			return pkgerrors.Wrap(pkgerrors.CodeTxExhausted, err,
				fmt.Sprintf("%s failed after %d attempts", label, attempt)).
				WithDetails(map[string]any{"tx_id": txID, "attempts": attempt})
		}

		e.metrics.IncRetry(label)
		if e.logg != nil {
			e.logg.Warn(e.logg.WithField(logCtx, "error", err.Error()), "tx.conflict")
		}

		if sleepErr := sleep(ctx, bo.NextBackOff()); sleepErr != nil {
			return sleepErr
		}
	}
}

// IsRetriesExhausted reports whether err is a terminal executor failure.
func IsRetriesExhausted(err error) bool {
	return pkgerrors.HasCode(err, pkgerrors.CodeTxExhausted)
}

func (e *Executor) newBackoff() *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = e.cfg.BackoffInitial
	bo.MaxInterval = e.cfg.BackoffMax
	bo.Multiplier = 2
	bo.RandomizationFactor = 0.5
	bo.MaxElapsedTime = 0
	bo.Reset()
	return bo
}

func (e *Executor) withTxFields(ctx context.Context, txID, label string, attempt int) context.Context {
	if e.logg == nil {
		return ctx
	}
	return e.logg.WithFields(ctx, map[string]any{
		"tx_id":   txID,
		"label":   label,
		"attempt": attempt,
	})
}

func (e *Executor) log(ctx context.Context, msg string) {
	if e.logg != nil {
		e.logg.Debug(ctx, msg)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
