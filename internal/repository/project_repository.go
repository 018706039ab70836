package repository

import (
	"context"

	"github.com/shinyyama/voxelhub-backend/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProjectRepository interface {
	Create(ctx context.Context, p *model.Project) error
	// FindByID includes soft-deleted projects so bid and chat history stays readable.
	FindByID(ctx context.Context, id uint64) (*model.Project, error)
	FindByIDForUpdate(ctx context.Context, id uint64) (*model.Project, error)
	ListAvailable(ctx context.Context, limit, offset int) ([]model.Project, int64, error)
	ListByOwner(ctx context.Context, ownerUID string) ([]model.Project, error)
	CountActiveByOwner(ctx context.Context, ownerUID string) (int64, error)
	// CompleteIfActive moves an active, live project to completed. Returns rows affected.
	CompleteIfActive(ctx context.Context, id uint64) (int64, error)
	MarkCompleted(ctx context.Context, id uint64) error
	SoftDelete(ctx context.Context, id uint64) error
	HardDelete(ctx context.Context, id uint64) error
	WithTx(tx *gorm.DB) ProjectRepository
}

type projectRepository struct {
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &projectRepository{db: db}
}

func (r *projectRepository) WithTx(tx *gorm.DB) ProjectRepository {
	return &projectRepository{db: tx}
}

func (r *projectRepository) Create(ctx context.Context, p *model.Project) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *projectRepository) FindByID(ctx context.Context, id uint64) (*model.Project, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var p model.Project
	if err := r.db.WithContext(ctx).Unscoped().Preload("Files").First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *projectRepository) FindByIDForUpdate(ctx context.Context, id uint64) (*model.Project, error) {
	var p model.Project
	if err := r.db.WithContext(ctx).
		Unscoped().
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *projectRepository) ListAvailable(ctx context.Context, limit, offset int) ([]model.Project, int64, error) {
	if r.db == nil {
		return nil, 0, ErrDBNotReady
	}
	var (
		projects []model.Project
		total    int64
	)
	q := r.db.WithContext(ctx).Model(&model.Project{}).Where("status = ?", model.ProjectStatusActive)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := r.db.WithContext(ctx).
		Preload("Files").
		Where("status = ?", model.ProjectStatusActive).
		Order("created_at desc").
		Limit(limit).
		Offset(offset).
		Find(&projects).Error; err != nil {
		return nil, 0, err
	}
	return projects, total, nil
}

func (r *projectRepository) ListByOwner(ctx context.Context, ownerUID string) ([]model.Project, error) {
	var list []model.Project
	if err := r.db.WithContext(ctx).
		Preload("Files").
		Where("owner_uid = ?", ownerUID).
		Order("id DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *projectRepository) CountActiveByOwner(ctx context.Context, ownerUID string) (int64, error) {
	var cnt int64
	if err := r.db.WithContext(ctx).
		Model(&model.Project{}).
		Where("owner_uid = ? AND status = ?", ownerUID, model.ProjectStatusActive).
		Count(&cnt).Error; err != nil {
		return 0, err
	}
	return cnt, nil
}

func (r *projectRepository) CompleteIfActive(ctx context.Context, id uint64) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Project{}).
		Where("id = ? AND status = ?", id, model.ProjectStatusActive).
		Update("status", model.ProjectStatusCompleted)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *projectRepository) MarkCompleted(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).
		Unscoped().
		Model(&model.Project{}).
		Where("id = ? AND status <> ?", id, model.ProjectStatusCompleted).
		Update("status", model.ProjectStatusCompleted).Error
}

func (r *projectRepository) SoftDelete(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Delete(&model.Project{}, id).Error
}

func (r *projectRepository) HardDelete(ctx context.Context, id uint64) error {
	if err := r.db.WithContext(ctx).Where("project_id = ?", id).Delete(&model.ProjectFile{}).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).Unscoped().Delete(&model.Project{}, id).Error
}
