package inventory

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/stockroom-labs/stockroom-backend/pkg/db/models"
	"github.com/stockroom-labs/stockroom-backend/pkg/enums"
	"github.com/stockroom-labs/stockroom-backend/pkg/logger"
)

type txRunner interface {
	Execute(ctx context.Context, label string, fn func(tx *gorm.DB) error) error
}

// Service runs the restock check: every inventory row that has dropped below
// its threshold is topped up by its restock amount, with a RESTOCK ledger
// entry, all in one transaction.
type Service interface {
	RestockCheck(ctx context.Context, reference string) (int, error)
}

type service struct {
	repo Repository
	tx   txRunner
	logg *logger.Logger
}

// NewService wires the inventory service with its repository and executor.
func NewService(repo Repository, tx txRunner, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx, logg: logg}, nil
}

func (s *service) RestockCheck(ctx context.Context, reference string) (int, error) {
	if reference == "" {
		reference = "manual-restock"
	}

	restocked := 0
	err := s.tx.Execute(ctx, "restock", func(tx *gorm.DB) error {
		restocked = 0
		repo := s.repo.WithTx(tx)

		low, err := repo.ListBelowThreshold(ctx)
		if err != nil {
			return err
		}
		for _, inv := range low {
			if err := repo.AddStock(ctx, inv.ID, inv.RestockAmount); err != nil {
				return err
			}
			if err := repo.AppendTransaction(ctx, &models.InventoryTransaction{
				InventoryID: inv.ID,
				Change:      inv.RestockAmount,
				Type:        enums.InventoryTransactionRestock,
				Reference:   reference,
			}); err != nil {
				return err
			}
			restocked++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if restocked > 0 && s.logg != nil {
		s.logg.Info(s.logg.WithField(ctx, "restocked", restocked), "inventory restocked")
	}
	return restocked, nil
}
