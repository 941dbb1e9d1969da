package loadgen

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stockroom-labs/stockroom-backend/pkg/db/models"
	pkgerrors "github.com/stockroom-labs/stockroom-backend/pkg/errors"
)

// Repository persists load-run bookkeeping. The failure counter is bumped
// with an atomic increment so concurrent sessions never lose counts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateRun(ctx context.Context, run *models.LoadRun) error
	IncrementFailed(ctx context.Context, runID uuid.UUID) error
	FinishRun(ctx context.Context, runID uuid.UUID, endedAt time.Time) error
	AddSummary(ctx context.Context, summary *models.LoadRunSummary) error
	GetRun(ctx context.Context, runID uuid.UUID) (*models.LoadRun, []models.LoadRunSummary, error)
	ListRuns(ctx context.Context, limit int) ([]models.LoadRun, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateRun(ctx context.Context, run *models.LoadRun) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(run).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create load run")
	}
	return nil
}

func (r *repository) IncrementFailed(ctx context.Context, runID uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Model(&models.LoadRun{}).
		Where("id = ?", runID).
		Update("failed", gorm.Expr("failed + 1"))
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "increment failure counter")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "load run not found").
			WithDetails(map[string]any{"run_id": runID})
	}
	return nil
}

func (r *repository) FinishRun(ctx context.Context, runID uuid.UUID, endedAt time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&models.LoadRun{}).
		Where("id = ?", runID).
		Update("ended_at", endedAt)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "finish load run")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "load run not found").
			WithDetails(map[string]any{"run_id": runID})
	}
	return nil
}

func (r *repository) AddSummary(ctx context.Context, summary *models.LoadRunSummary) error {
	if summary.ID == uuid.Nil {
		summary.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(summary).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create session summary")
	}
	return nil
}

func (r *repository) GetRun(ctx context.Context, runID uuid.UUID) (*models.LoadRun, []models.LoadRunSummary, error) {
	var run models.LoadRun
	err := r.db.WithContext(ctx).First(&run, "id = ?", runID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "load run not found").
			WithDetails(map[string]any{"run_id": runID})
	}
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load run")
	}
	var summaries []models.LoadRunSummary
	if err := r.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("session ASC").
		Find(&summaries).Error; err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load session summaries")
	}
	return &run, summaries, nil
}

func (r *repository) ListRuns(ctx context.Context, limit int) ([]models.LoadRun, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var runs []models.LoadRun
	if err := r.db.WithContext(ctx).
		Order("started_at DESC").
		Limit(limit).
		Find(&runs).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list load runs")
	}
	return runs, nil
}
