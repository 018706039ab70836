package service

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shinyyama/voxelhub-backend/internal/model"
	"github.com/shinyyama/voxelhub-backend/internal/repository"
	"github.com/shinyyama/voxelhub-backend/internal/storage"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	MaxActiveProjects = 5
	MaxSTLFileSize    = 50 << 20
	maxQuantity       = 1000
)

type FileUpload struct {
	Name    string
	Size    int64
	Content io.Reader
}

type ProjectInput struct {
	Title       string
	Description string
	Material    string
	WidthMM     float64
	DepthMM     float64
	HeightMM    float64
	Quantity    int
	Files       []FileUpload
}

type ProjectService interface {
	Create(ctx context.Context, ownerUID string, in ProjectInput) (*model.Project, error)
	Get(ctx context.Context, id uint64) (*model.Project, error)
	ListAvailable(ctx context.Context, limit, offset int) ([]model.Project, int64, error)
	ListMine(ctx context.Context, ownerUID string) ([]model.Project, error)
	Delete(ctx context.Context, ownerUID string, id uint64) error
}

type ProjectDeps struct {
	Tx            repository.Transactor
	Projects      repository.ProjectRepository
	Bids          repository.BidRepository
	Blobs         storage.BlobStore
	Notifications NotificationService
}

type projectService struct {
	tx       repository.Transactor
	projects repository.ProjectRepository
	bids     repository.BidRepository
	blobs    storage.BlobStore
	notify   NotificationService
}

func NewProjectService(d ProjectDeps) ProjectService {
	return &projectService{
		tx:       d.Tx,
		projects: d.Projects,
		bids:     d.Bids,
		blobs:    d.Blobs,
		notify:   d.Notifications,
	}
}

func validateProject(in *ProjectInput) error {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Material = strings.TrimSpace(in.Material)
	if in.Title == "" || utf8.RuneCountInString(in.Title) > 120 {
		return invalid("title", "must be 1-120 characters")
	}
	if in.Material == "" || utf8.RuneCountInString(in.Material) > 64 {
		return invalid("material", "is required")
	}
	if in.WidthMM < 0 || in.DepthMM < 0 || in.HeightMM < 0 {
		return invalid("dimensions", "must not be negative")
	}
	if in.Quantity == 0 {
		in.Quantity = 1
	}
	if in.Quantity < 1 || in.Quantity > maxQuantity {
		return invalid("quantity", fmt.Sprintf("must be between 1 and %d", maxQuantity))
	}
	if len(in.Files) == 0 || len(in.Files) > model.MaxProjectFiles {
		return invalid("files", fmt.Sprintf("attach between 1 and %d STL files", model.MaxProjectFiles))
	}
	for _, f := range in.Files {
		if !strings.EqualFold(path.Ext(f.Name), ".stl") {
			return invalid("files", f.Name+" is not an .stl file")
		}
		if f.Size <= 0 || f.Size > MaxSTLFileSize {
			return invalid("files", f.Name+" must be between 1 byte and 50 MB")
		}
	}
	return nil
}

func (s *projectService) Create(ctx context.Context, ownerUID string, in ProjectInput) (*model.Project, error) {
	if err := validateProject(&in); err != nil {
		return nil, err
	}
	active, err := s.projects.CountActiveByOwner(ctx, ownerUID)
	if err != nil {
		return nil, err
	}
	if active >= MaxActiveProjects {
		return nil, ErrActiveProjectLimit
	}

	prefix := fmt.Sprintf("projects/%s/%s/", ownerUID, uuid.NewString())
	files := make([]model.ProjectFile, 0, len(in.Files))
	for _, f := range in.Files {
		key := prefix + path.Base(f.Name)
		u, err := s.blobs.Put(ctx, key, "model/stl", f.Content)
		if err != nil {
			s.removeBlobs(ctx, files)
			return nil, fmt.Errorf("upload %s: %w", f.Name, err)
		}
		files = append(files, model.ProjectFile{
			FileName:  f.Name,
			ObjectKey: key,
			URL:       u,
			SizeBytes: f.Size,
		})
	}

	p := &model.Project{
		OwnerUID:    ownerUID,
		Title:       in.Title,
		Description: in.Description,
		Material:    in.Material,
		WidthMM:     in.WidthMM,
		DepthMM:     in.DepthMM,
		HeightMM:    in.HeightMM,
		Quantity:    in.Quantity,
		Status:      model.ProjectStatusActive,
		Files:       files,
	}
	if err := s.projects.Create(ctx, p); err != nil {
		s.removeBlobs(ctx, files)
		return nil, err
	}
	return p, nil
}

func (s *projectService) removeBlobs(ctx context.Context, files []model.ProjectFile) {
	for _, f := range files {
		if err := s.blobs.Delete(ctx, f.ObjectKey); err != nil {
			zap.L().Warn("blob cleanup failed", zap.String("key", f.ObjectKey), zap.Error(err))
		}
	}
}

func (s *projectService) Get(ctx context.Context, id uint64) (*model.Project, error) {
	p, err := s.projects.FindByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return p, nil
}

func (s *projectService) ListAvailable(ctx context.Context, limit, offset int) ([]model.Project, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.projects.ListAvailable(ctx, limit, offset)
}

func (s *projectService) ListMine(ctx context.Context, ownerUID string) ([]model.Project, error) {
	return s.projects.ListByOwner(ctx, ownerUID)
}

// Delete soft-deletes projects that are completed or have bids so their history
// survives. Anything else is removed together with its files.
func (s *projectService) Delete(ctx context.Context, ownerUID string, id uint64) error {
	p, err := s.projects.FindByID(ctx, id)
	if err != nil {
		return mapNotFound(err)
	}
	if p.OwnerUID != ownerUID {
		return ErrForbidden
	}
	if p.Deleted() {
		return ErrProjectDeleted
	}
	bids, err := s.bids.CountByProject(ctx, id)
	if err != nil {
		return err
	}
	if p.Status == model.ProjectStatusCompleted || bids > 0 {
		return s.softDelete(ctx, p)
	}
	s.removeBlobs(ctx, p.Files)
	return s.projects.HardDelete(ctx, id)
}

// softDelete keeps the project row for bid and payout history. Bids still
// waiting on a decision are rejected with it.
func (s *projectService) softDelete(ctx context.Context, p *model.Project) error {
	var rejected []model.Bid
	err := s.tx.Transaction(ctx, func(tx *gorm.DB) error {
		projects := s.projects.WithTx(tx)
		locked, err := projects.FindByIDForUpdate(ctx, p.ID)
		if err != nil {
			return mapNotFound(err)
		}
		if locked.Deleted() {
			return ErrProjectDeleted
		}
		rejected, err = s.bids.WithTx(tx).RejectPendingSiblings(ctx, p.ID, 0)
		if err != nil {
			return err
		}
		return projects.SoftDelete(ctx, p.ID)
	})
	if err != nil {
		return err
	}
	if len(rejected) > 0 {
		zap.L().Info("rejected pending bids of deleted project",
			zap.Uint64("project_id", p.ID),
			zap.Int("bids", len(rejected)))
		notifyRejected(ctx, s.notify, p, rejected)
	}
	return nil
}
