package repository

import (
	"context"

	"github.com/shinyyama/voxelhub-backend/internal/model"
	"gorm.io/gorm"
)

// EarningRepository is append-only: earnings are ledger entries and are never edited.
type EarningRepository interface {
	Create(ctx context.Context, e *model.Earning) error
	ListByMaker(ctx context.Context, makerUID string) ([]model.Earning, error)
	WithTx(tx *gorm.DB) EarningRepository
}

type earningRepository struct {
	db *gorm.DB
}

func NewEarningRepository(db *gorm.DB) EarningRepository {
	return &earningRepository{db: db}
}

func (r *earningRepository) WithTx(tx *gorm.DB) EarningRepository {
	return &earningRepository{db: tx}
}

func (r *earningRepository) Create(ctx context.Context, e *model.Earning) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *earningRepository) ListByMaker(ctx context.Context, makerUID string) ([]model.Earning, error) {
	var list []model.Earning
	if err := r.db.WithContext(ctx).
		Where("maker_uid = ?", makerUID).
		Order("created_at DESC, id DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}
