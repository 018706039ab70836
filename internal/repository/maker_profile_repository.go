package repository

import (
	"context"

	"github.com/shinyyama/voxelhub-backend/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MakerProfileRepository interface {
	FindByUID(ctx context.Context, uid string) (*model.MakerProfile, error)
	// FindByUIDForUpdate locks the profile row for the rest of the transaction.
	FindByUIDForUpdate(ctx context.Context, uid string) (*model.MakerProfile, error)
	Save(ctx context.Context, p *model.MakerProfile) error
	WithTx(tx *gorm.DB) MakerProfileRepository
}

type makerProfileRepository struct {
	db *gorm.DB
}

func NewMakerProfileRepository(db *gorm.DB) MakerProfileRepository {
	return &makerProfileRepository{db: db}
}

func (r *makerProfileRepository) WithTx(tx *gorm.DB) MakerProfileRepository {
	return &makerProfileRepository{db: tx}
}

func (r *makerProfileRepository) FindByUID(ctx context.Context, uid string) (*model.MakerProfile, error) {
	var p model.MakerProfile
	if err := r.db.WithContext(ctx).Where("uid = ?", uid).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *makerProfileRepository) FindByUIDForUpdate(ctx context.Context, uid string) (*model.MakerProfile, error) {
	var p model.MakerProfile
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("uid = ?", uid).
		First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *makerProfileRepository) Save(ctx context.Context, p *model.MakerProfile) error {
	return r.db.WithContext(ctx).Save(p).Error
}
