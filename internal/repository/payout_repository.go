package repository

import (
	"context"
	"time"

	"github.com/shinyyama/voxelhub-backend/internal/model"
	"gorm.io/gorm"
)

// PayoutTransition describes one status change of a payout.
type PayoutTransition struct {
	To            model.PayoutStatus
	ExternalID    *string
	FailureReason string
	At            time.Time
}

type PayoutRepository interface {
	Create(ctx context.Context, p *model.Payout) error
	FindByID(ctx context.Context, id uint64) (*model.Payout, error)
	ListByMaker(ctx context.Context, makerUID string) ([]model.Payout, error)
	// ListOpenByMaker returns pending/processing payouts that carry a provider reference.
	ListOpenByMaker(ctx context.Context, makerUID string) ([]model.Payout, error)
	// Transition applies t only while the payout is in one of from. Terminal statuses
	// in from are ignored, so completed and failed payouts never change. Reports whether
	// a row was updated.
	Transition(ctx context.Context, id uint64, from []model.PayoutStatus, t PayoutTransition) (bool, error)
	WithTx(tx *gorm.DB) PayoutRepository
}

type payoutRepository struct {
	db *gorm.DB
}

func NewPayoutRepository(db *gorm.DB) PayoutRepository {
	return &payoutRepository{db: db}
}

func (r *payoutRepository) WithTx(tx *gorm.DB) PayoutRepository {
	return &payoutRepository{db: tx}
}

func (r *payoutRepository) Create(ctx context.Context, p *model.Payout) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *payoutRepository) FindByID(ctx context.Context, id uint64) (*model.Payout, error) {
	var p model.Payout
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *payoutRepository) ListByMaker(ctx context.Context, makerUID string) ([]model.Payout, error) {
	var list []model.Payout
	if err := r.db.WithContext(ctx).
		Where("maker_uid = ?", makerUID).
		Order("created_at DESC, id DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *payoutRepository) ListOpenByMaker(ctx context.Context, makerUID string) ([]model.Payout, error) {
	var list []model.Payout
	if err := r.db.WithContext(ctx).
		Where("maker_uid = ? AND status IN ? AND external_id IS NOT NULL AND external_id <> ''",
			makerUID, []model.PayoutStatus{model.PayoutStatusPending, model.PayoutStatusProcessing}).
		Order("id ASC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *payoutRepository) Transition(ctx context.Context, id uint64, from []model.PayoutStatus, t PayoutTransition) (bool, error) {
	open := make([]model.PayoutStatus, 0, len(from))
	for _, s := range from {
		if !s.Terminal() {
			open = append(open, s)
		}
	}
	if len(open) == 0 {
		return false, nil
	}
	fields := map[string]interface{}{
		"status":     t.To,
		"updated_at": t.At,
	}
	if t.ExternalID != nil {
		fields["external_id"] = *t.ExternalID
	}
	switch t.To {
	case model.PayoutStatusProcessing:
		fields["sent_at"] = t.At
	case model.PayoutStatusCompleted:
		fields["completed_at"] = t.At
	case model.PayoutStatusFailed:
		fields["failure_reason"] = t.FailureReason
	}
	res := r.db.WithContext(ctx).
		Model(&model.Payout{}).
		Where("id = ? AND status IN ?", id, open).
		Updates(fields)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
