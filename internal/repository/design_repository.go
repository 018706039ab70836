package repository

import (
	"context"

	"github.com/shinyyama/voxelhub-backend/internal/model"
	"gorm.io/gorm"
)

type DesignRepository interface {
	Create(ctx context.Context, d *model.Design) error
	FindByID(ctx context.Context, id uint64) (*model.Design, error)
	List(ctx context.Context, limit, offset int) ([]model.Design, int64, error)
}

type designRepository struct {
	db *gorm.DB
}

func NewDesignRepository(db *gorm.DB) DesignRepository {
	return &designRepository{db: db}
}

func (r *designRepository) Create(ctx context.Context, d *model.Design) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).Create(d).Error
}

func (r *designRepository) FindByID(ctx context.Context, id uint64) (*model.Design, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var d model.Design
	if err := r.db.WithContext(ctx).First(&d, id).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *designRepository) List(ctx context.Context, limit, offset int) ([]model.Design, int64, error) {
	if r.db == nil {
		return nil, 0, ErrDBNotReady
	}
	var (
		designs []model.Design
		total   int64
	)
	if err := r.db.WithContext(ctx).Model(&model.Design{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := r.db.WithContext(ctx).
		Order("created_at desc, id desc").
		Limit(limit).
		Offset(offset).
		Find(&designs).Error; err != nil {
		return nil, 0, err
	}
	return designs, total, nil
}
