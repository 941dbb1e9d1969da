package loadgen

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/stockroom-labs/stockroom-backend/internal/carts"
	"github.com/stockroom-labs/stockroom-backend/internal/catalog"
	"github.com/stockroom-labs/stockroom-backend/internal/inventory"
	"github.com/stockroom-labs/stockroom-backend/internal/orders"
	"github.com/stockroom-labs/stockroom-backend/internal/reservation"
	"github.com/stockroom-labs/stockroom-backend/internal/users"
	"github.com/stockroom-labs/stockroom-backend/pkg/config"
	"github.com/stockroom-labs/stockroom-backend/pkg/db/models"
	pkgerrors "github.com/stockroom-labs/stockroom-backend/pkg/errors"
	"github.com/stockroom-labs/stockroom-backend/pkg/logger"
	"github.com/stockroom-labs/stockroom-backend/pkg/metrics"
)

// sessionStagger spaces out session starts so the first transactions do not
// all collide on the same inventory rows.
const sessionStagger = 25 * time.Millisecond

// Result aggregates the outcome of one harness run.
type Result struct {
	RunID           uuid.UUID
	OrdersCompleted int
	Conflicts       int
	Failed          int
	Restocks        int
	SweptRows       int64
	Duration        time.Duration
}

// Harness drives N concurrent simulated shopper sessions against the live
// reservation and settlement services. Each session reserves a random basket,
// settles it, and occasionally walks the resulting order along its status
// sequence. Session 0 doubles as the restocker.
type Harness struct {
	cfg       config.LoadConfig
	runs      Repository
	users     users.Repository
	catalog   catalog.Repository
	carts     carts.Repository
	inventory inventory.Repository
	restocker inventory.Service
	reserver  reservation.Service
	settler   orders.Service
	logg      *logger.Logger
	metrics   *metrics.LoadMetrics
}

type HarnessParams struct {
	Config      config.LoadConfig
	Runs        Repository
	Users       users.Repository
	Catalog     catalog.Repository
	Carts       carts.Repository
	Inventory   inventory.Repository
	Restocker   inventory.Service
	Reservation reservation.Service
	Orders      orders.Service
	Logger      *logger.Logger
	Metrics     *metrics.LoadMetrics
}

func NewHarness(p HarnessParams) (*Harness, error) {
	if p.Runs == nil || p.Users == nil || p.Catalog == nil || p.Carts == nil || p.Inventory == nil {
		return nil, fmt.Errorf("run, user, catalog, cart and inventory repositories required")
	}
	if p.Restocker == nil || p.Reservation == nil || p.Orders == nil {
		return nil, fmt.Errorf("restock, reservation and order services required")
	}
	if p.Config.Sessions <= 0 || p.Config.OrdersPerSession <= 0 {
		return nil, fmt.Errorf("sessions and orders per session must be positive")
	}
	if p.Config.MaxItemsPerOrder <= 0 {
		p.Config.MaxItemsPerOrder = 1
	}
	if p.Config.Initiator == "" {
		p.Config.Initiator = "admin@stockroom.dev"
	}
	return &Harness{
		cfg:       p.Config,
		runs:      p.Runs,
		users:     p.Users,
		catalog:   p.Catalog,
		carts:     p.Carts,
		inventory: p.Inventory,
		restocker: p.Restocker,
		reserver:  p.Reservation,
		settler:   p.Orders,
		logg:      p.Logger,
		metrics:   p.Metrics,
	}, nil
}

// Run executes the full simulation and blocks until every session finishes,
// the final sweep runs, and the run row is closed.
func (h *Harness) Run(ctx context.Context) (*Result, error) {
	itemIDs, err := h.catalog.ListActiveIDs(ctx)
	if err != nil {
		return nil, err
	}
	if len(itemIDs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no active items to simulate against")
	}

	run := &models.LoadRun{
		ID:              uuid.New(),
		InitiatedBy:     h.cfg.Initiator,
		NumSessions:     h.cfg.Sessions,
		NumOrders:       h.cfg.OrdersPerSession,
		RestockInterval: h.cfg.RestockInterval,
	}
	if err := h.runs.CreateRun(ctx, run); err != nil {
		return nil, err
	}

	if h.logg != nil {
		ctx = h.logg.WithRunID(ctx, run.ID.String())
		h.logg.Info(ctx, "load run started")
	}
	started := time.Now()

	results := make([]sessionResult, h.cfg.Sessions)
	g, gctx := errgroup.WithContext(ctx)
	for session := 0; session < h.cfg.Sessions; session++ {
		session := session
		g.Go(func() error {
			if err := sleepFor(gctx, time.Duration(session)*sessionStagger); err != nil {
				return err
			}
			results[session] = h.runSession(gctx, run, session, itemIDs)
			return nil
		})
	}
	waitErr := g.Wait()

	// The sweep and run closure still happen when a session aborted, so a
	// partial run never leaks reserved stock or an open run row.
	result := &Result{RunID: run.ID}
	for _, sr := range results {
		result.OrdersCompleted += sr.ordersCompleted
		result.Conflicts += sr.conflicts
		result.Failed += sr.failed
		result.Restocks += sr.restocks
	}

	// Dangling lines are purged before the counters are restored, so a cart
	// abandoned mid-order cannot settle against stock the sweep already
	// handed back.
	var closeErr error
	_, purgeErr := h.carts.PurgeAllItems(ctx)
	closeErr = multierr.Append(closeErr, purgeErr)
	swept, err := h.inventory.RestoreReserved(ctx)
	closeErr = multierr.Append(closeErr, err)
	result.SweptRows = swept
	closeErr = multierr.Append(closeErr, h.runs.FinishRun(ctx, run.ID, time.Now()))
	result.Duration = time.Since(started)

	if err := multierr.Append(waitErr, closeErr); err != nil {
		return result, err
	}
	if h.logg != nil {
		ctx = h.logg.WithFields(ctx, map[string]any{
			"orders":    result.OrdersCompleted,
			"conflicts": result.Conflicts,
			"failed":    result.Failed,
			"swept":     result.SweptRows,
		})
		h.logg.Info(ctx, "load run finished")
	}
	return result, nil
}

type sessionResult struct {
	ordersCompleted int
	conflicts       int
	failed          int
	restocks        int
}

func (h *Harness) runSession(ctx context.Context, run *models.LoadRun, session int, itemIDs []uuid.UUID) sessionResult {
	var sr sessionResult
	rng := rand.New(rand.NewSource(h.cfg.Seed + int64(session)))
	identity := h.sessionIdentity(session)
	startedAt := time.Now()
	if h.logg != nil {
		ctx = h.logg.WithSession(h.logg.WithRunID(ctx, run.ID.String()), session)
	}

	defer func() {
		summary := &models.LoadRunSummary{
			RunID:           run.ID,
			Session:         session,
			Identity:        identity,
			OrdersCompleted: sr.ordersCompleted,
			StartedAt:       startedAt,
			EndedAt:         time.Now(),
		}
		if err := h.runs.AddSummary(ctx, summary); err != nil && h.logg != nil {
			h.logg.Error(ctx, "failed to write session summary", err)
		}
	}()

	user, err := h.users.EnsureByEmail(ctx, identity)
	if err != nil {
		sr.failed++
		h.recordFailure(ctx, run.ID, err)
		return sr
	}

	restockEvery := h.restockEvery()
	for i := 0; i < h.cfg.OrdersPerSession; i++ {
		if ctx.Err() != nil {
			return sr
		}
		basket := h.randomBasket(rng, itemIDs)
		if _, err := h.reserver.ReserveBatch(ctx, user.ID, basket); err != nil {
			if pkgerrors.HasCode(err, pkgerrors.CodeInsufficientStock) {
				sr.conflicts++
				h.metrics.IncConflict()
			} else {
				sr.failed++
				h.recordFailure(ctx, run.ID, err)
			}
			continue
		}

		result, err := h.settler.PlaceOrder(ctx, user.ID)
		if err != nil {
			sr.failed++
			h.recordFailure(ctx, run.ID, err)
			if _, cancelErr := h.reserver.CancelCart(ctx, user.ID); cancelErr != nil && h.logg != nil {
				h.logg.Error(ctx, "failed to cancel cart after settlement failure", cancelErr)
			}
			continue
		}
		sr.ordersCompleted++
		h.metrics.IncOrder()
		h.promoteOrder(ctx, rng, result.Order.ID)

		if session == 0 && restockEvery > 0 && (i+1)%restockEvery == 0 {
			restocked, err := h.restocker.RestockCheck(ctx, run.ID.String())
			if err != nil {
				sr.failed++
				h.recordFailure(ctx, run.ID, err)
			} else if restocked > 0 {
				sr.restocks++
				h.metrics.IncRestock()
			}
		}
	}
	return sr
}

// restockEvery divides the configured interval across sessions so the single
// restocking session checks about as often as a dedicated restocker would
// across the whole run.
func (h *Harness) restockEvery() int {
	if h.cfg.RestockInterval <= 0 {
		return 0
	}
	every := h.cfg.RestockInterval / h.cfg.Sessions
	if every < 1 {
		every = 1
	}
	return every
}

// sessionIdentity derives a synthetic shopper from the configured seed and
// the session index alone, so reruns with the same seed hit the same users.
// Session 0 acts as the run initiator.
func (h *Harness) sessionIdentity(session int) string {
	if session == 0 {
		return h.cfg.Initiator
	}
	return fmt.Sprintf("shopper-%d-s%02d@stockroom.dev", h.cfg.Seed, session)
}

func (h *Harness) randomBasket(rng *rand.Rand, itemIDs []uuid.UUID) []reservation.Line {
	count := 1 + rng.Intn(h.cfg.MaxItemsPerOrder)
	if count > len(itemIDs) {
		count = len(itemIDs)
	}
	picked := rng.Perm(len(itemIDs))[:count]
	lines := make([]reservation.Line, 0, count)
	for _, idx := range picked {
		lines = append(lines, reservation.Line{ItemID: itemIDs[idx], Quantity: 1 + rng.Intn(3)})
	}
	return lines
}

// promoteOrder advances a random prefix of the status sequence, mimicking
// out-of-band fulfillment workers making independent progress.
func (h *Harness) promoteOrder(ctx context.Context, rng *rand.Rand, orderID uuid.UUID) {
	steps := rng.Intn(6)
	for i := 0; i < steps; i++ {
		if _, err := h.settler.AdvanceStatus(ctx, orderID); err != nil {
			if h.logg != nil {
				h.logg.Error(ctx, "failed to advance order status", err)
			}
			return
		}
	}
}

func (h *Harness) recordFailure(ctx context.Context, runID uuid.UUID, opErr error) {
	h.metrics.IncFailure()
	if h.logg != nil {
		h.logg.Error(ctx, "simulated operation failed", opErr)
	}
	if err := h.runs.IncrementFailed(ctx, runID); err != nil && h.logg != nil {
		h.logg.Error(ctx, "failed to record failure", err)
	}
}

func sleepFor(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
