package repository

import (
	"context"
	"errors"
	"time"

	"github.com/shinyyama/voxelhub-backend/internal/model"
	"gorm.io/gorm"
)

type DesignPurchaseRepository interface {
	Create(ctx context.Context, p *model.DesignPurchase) error
	FindByID(ctx context.Context, id uint64) (*model.DesignPurchase, error)
	FindPendingByBuyer(ctx context.Context, designID uint64, buyerUID string) (*model.DesignPurchase, error)
	SetPaymentRef(ctx context.Context, id uint64, ref string) error
	CompleteIfPending(ctx context.Context, id uint64, buyerUID string, at time.Time) (int64, error)
	CancelIfPending(ctx context.Context, id uint64, buyerUID string) (int64, error)
	ListByBuyer(ctx context.Context, buyerUID string) ([]model.DesignPurchase, error)
	WithTx(tx *gorm.DB) DesignPurchaseRepository
}

type designPurchaseRepository struct {
	db *gorm.DB
}

func NewDesignPurchaseRepository(db *gorm.DB) DesignPurchaseRepository {
	return &designPurchaseRepository{db: db}
}

func (r *designPurchaseRepository) WithTx(tx *gorm.DB) DesignPurchaseRepository {
	return &designPurchaseRepository{db: tx}
}

func (r *designPurchaseRepository) Create(ctx context.Context, p *model.DesignPurchase) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *designPurchaseRepository) FindByID(ctx context.Context, id uint64) (*model.DesignPurchase, error) {
	var p model.DesignPurchase
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *designPurchaseRepository) FindPendingByBuyer(ctx context.Context, designID uint64, buyerUID string) (*model.DesignPurchase, error) {
	var p model.DesignPurchase
	err := r.db.WithContext(ctx).
		Where("design_id = ? AND buyer_uid = ? AND status = ?", designID, buyerUID, model.DesignPurchaseStatusPendingPayment).
		Order("id DESC").
		First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *designPurchaseRepository) SetPaymentRef(ctx context.Context, id uint64, ref string) error {
	return r.db.WithContext(ctx).
		Model(&model.DesignPurchase{}).
		Where("id = ?", id).
		Update("payment_ref", ref).Error
}

func (r *designPurchaseRepository) CompleteIfPending(ctx context.Context, id uint64, buyerUID string, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&model.DesignPurchase{}).
		Where("id = ? AND buyer_uid = ? AND status = ?", id, buyerUID, model.DesignPurchaseStatusPendingPayment).
		Updates(map[string]interface{}{
			"status":       model.DesignPurchaseStatusCompleted,
			"completed_at": at,
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *designPurchaseRepository) CancelIfPending(ctx context.Context, id uint64, buyerUID string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&model.DesignPurchase{}).
		Where("id = ? AND buyer_uid = ? AND status = ?", id, buyerUID, model.DesignPurchaseStatusPendingPayment).
		Update("status", model.DesignPurchaseStatusCanceled)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *designPurchaseRepository) ListByBuyer(ctx context.Context, buyerUID string) ([]model.DesignPurchase, error) {
	var list []model.DesignPurchase
	if err := r.db.WithContext(ctx).
		Where("buyer_uid = ?", buyerUID).
		Order("id DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}
