package repository

import (
	"context"
	"errors"
	"time"

	"github.com/shinyyama/voxelhub-backend/internal/model"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type BidUpdate struct {
	Price        *decimal.Decimal
	DeliveryDays *int
	Message      *string
}

type BidRepository interface {
	Create(ctx context.Context, b *model.Bid) error
	FindByID(ctx context.Context, id uint64) (*model.Bid, error)
	// FindOpenByMaker returns the maker's pending or accepted bid on the project, or nil.
	FindOpenByMaker(ctx context.Context, projectID uint64, makerUID string) (*model.Bid, error)
	ListByProject(ctx context.Context, projectID uint64) ([]model.Bid, error)
	ListByProjectAndMaker(ctx context.Context, projectID uint64, makerUID string) ([]model.Bid, error)
	ListByMaker(ctx context.Context, makerUID string) ([]model.Bid, error)
	CountByProject(ctx context.Context, projectID uint64) (int64, error)
	// Transition is a compare-and-set on status. Returns rows affected.
	Transition(ctx context.Context, id uint64, from, to model.BidStatus) (int64, error)
	// RejectPendingSiblings rejects every pending bid of the project except keepID and returns them.
	RejectPendingSiblings(ctx context.Context, projectID, keepID uint64) ([]model.Bid, error)
	UpdatePending(ctx context.Context, id uint64, upd BidUpdate) (int64, error)
	DeletePending(ctx context.Context, id uint64) (int64, error)
	ConfirmDelivery(ctx context.Context, id uint64, at time.Time) (int64, error)
	MarkReadByProject(ctx context.Context, projectID uint64) error
	WithTx(tx *gorm.DB) BidRepository
}

type bidRepository struct {
	db *gorm.DB
}

func NewBidRepository(db *gorm.DB) BidRepository {
	return &bidRepository{db: db}
}

func (r *bidRepository) WithTx(tx *gorm.DB) BidRepository {
	return &bidRepository{db: tx}
}

func (r *bidRepository) Create(ctx context.Context, b *model.Bid) error {
	return r.db.WithContext(ctx).Create(b).Error
}

func (r *bidRepository) FindByID(ctx context.Context, id uint64) (*model.Bid, error) {
	var b model.Bid
	if err := r.db.WithContext(ctx).First(&b, id).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *bidRepository) FindOpenByMaker(ctx context.Context, projectID uint64, makerUID string) (*model.Bid, error) {
	var b model.Bid
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND maker_uid = ? AND status <> ?", projectID, makerUID, model.BidStatusRejected).
		First(&b).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &b, nil
}

func (r *bidRepository) ListByProject(ctx context.Context, projectID uint64) ([]model.Bid, error) {
	var list []model.Bid
	if err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("id ASC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *bidRepository) ListByProjectAndMaker(ctx context.Context, projectID uint64, makerUID string) ([]model.Bid, error) {
	var list []model.Bid
	if err := r.db.WithContext(ctx).
		Where("project_id = ? AND maker_uid = ?", projectID, makerUID).
		Order("id ASC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *bidRepository) ListByMaker(ctx context.Context, makerUID string) ([]model.Bid, error) {
	var list []model.Bid
	if err := r.db.WithContext(ctx).
		Where("maker_uid = ?", makerUID).
		Order("id DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *bidRepository) CountByProject(ctx context.Context, projectID uint64) (int64, error) {
	var cnt int64
	if err := r.db.WithContext(ctx).Model(&model.Bid{}).Where("project_id = ?", projectID).Count(&cnt).Error; err != nil {
		return 0, err
	}
	return cnt, nil
}

func (r *bidRepository) Transition(ctx context.Context, id uint64, from, to model.BidStatus) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Bid{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *bidRepository) RejectPendingSiblings(ctx context.Context, projectID, keepID uint64) ([]model.Bid, error) {
	var siblings []model.Bid
	if err := r.db.WithContext(ctx).
		Where("project_id = ? AND id <> ? AND status = ?", projectID, keepID, model.BidStatusPending).
		Find(&siblings).Error; err != nil {
		return nil, err
	}
	if len(siblings) == 0 {
		return nil, nil
	}
	ids := make([]uint64, 0, len(siblings))
	for _, b := range siblings {
		ids = append(ids, b.ID)
	}
	if err := r.db.WithContext(ctx).
		Model(&model.Bid{}).
		Where("id IN ? AND status = ?", ids, model.BidStatusPending).
		Update("status", model.BidStatusRejected).Error; err != nil {
		return nil, err
	}
	for i := range siblings {
		siblings[i].Status = model.BidStatusRejected
	}
	return siblings, nil
}

func (r *bidRepository) UpdatePending(ctx context.Context, id uint64, upd BidUpdate) (int64, error) {
	fields := map[string]interface{}{}
	if upd.Price != nil {
		fields["price"] = *upd.Price
	}
	if upd.DeliveryDays != nil {
		fields["delivery_days"] = *upd.DeliveryDays
	}
	if upd.Message != nil {
		fields["message"] = *upd.Message
	}
	if len(fields) == 0 {
		return 1, nil
	}
	fields["is_read"] = false
	res := r.db.WithContext(ctx).
		Model(&model.Bid{}).
		Where("id = ? AND status = ?", id, model.BidStatusPending).
		Updates(fields)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *bidRepository) DeletePending(ctx context.Context, id uint64) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND status = ?", id, model.BidStatusPending).
		Delete(&model.Bid{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *bidRepository) ConfirmDelivery(ctx context.Context, id uint64, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Bid{}).
		Where("id = ? AND status = ? AND delivery_confirmed_at IS NULL", id, model.BidStatusAccepted).
		Update("delivery_confirmed_at", at)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *bidRepository) MarkReadByProject(ctx context.Context, projectID uint64) error {
	return r.db.WithContext(ctx).
		Model(&model.Bid{}).
		Where("project_id = ? AND is_read = ?", projectID, false).
		Update("is_read", true).Error
}
