package repository

import (
	"context"

	"github.com/shinyyama/voxelhub-backend/internal/model"
	"gorm.io/gorm"
)

type ReviewRepository interface {
	Create(ctx context.Context, r *model.Review) error
	Exists(ctx context.Context, bidID uint64, dir model.ReviewDirection) (bool, error)
	ListByReviewee(ctx context.Context, uid string) ([]model.Review, error)
	WithTx(tx *gorm.DB) ReviewRepository
}

type reviewRepository struct {
	db *gorm.DB
}

func NewReviewRepository(db *gorm.DB) ReviewRepository {
	return &reviewRepository{db: db}
}

func (r *reviewRepository) WithTx(tx *gorm.DB) ReviewRepository {
	return &reviewRepository{db: tx}
}

func (r *reviewRepository) Create(ctx context.Context, rv *model.Review) error {
	return r.db.WithContext(ctx).Create(rv).Error
}

func (r *reviewRepository) Exists(ctx context.Context, bidID uint64, dir model.ReviewDirection) (bool, error) {
	var cnt int64
	if err := r.db.WithContext(ctx).
		Model(&model.Review{}).
		Where("bid_id = ? AND direction = ?", bidID, dir).
		Count(&cnt).Error; err != nil {
		return false, err
	}
	return cnt > 0, nil
}

func (r *reviewRepository) ListByReviewee(ctx context.Context, uid string) ([]model.Review, error) {
	var list []model.Review
	if err := r.db.WithContext(ctx).
		Where("reviewee_uid = ?", uid).
		Order("id DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}
