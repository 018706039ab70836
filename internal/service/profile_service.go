package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/shinyyama/voxelhub-backend/internal/model"
	"github.com/shinyyama/voxelhub-backend/internal/repository"
	"gorm.io/gorm"
)

type MakerProfileInput struct {
	DisplayName string
	Location    string
	Printers    string
	Materials   string
	Bio         string
}

type ProfileService interface {
	Register(ctx context.Context, uid string, role model.Role, displayName string) (*model.User, error)
	Me(ctx context.Context, uid string) (*model.User, error)
	UpsertMakerProfile(ctx context.Context, uid string, in MakerProfileInput) (*model.MakerProfile, error)
	GetMakerProfile(ctx context.Context, uid string) (*model.MakerProfile, error)
	Reviews(ctx context.Context, uid string) ([]model.Review, error)
}

type profileService struct {
	users    repository.UserRepository
	profiles repository.MakerProfileRepository
	reviews  repository.ReviewRepository
}

func NewProfileService(users repository.UserRepository, profiles repository.MakerProfileRepository, reviews repository.ReviewRepository) ProfileService {
	return &profileService{users: users, profiles: profiles, reviews: reviews}
}

// Register records the caller's role. The role is fixed once set; the display name can change.
func (s *profileService) Register(ctx context.Context, uid string, role model.Role, displayName string) (*model.User, error) {
	if !role.Valid() {
		return nil, invalid("role", "must be client or maker")
	}
	displayName = strings.TrimSpace(displayName)
	if displayName == "" || utf8.RuneCountInString(displayName) > 120 {
		return nil, invalid("displayName", "must be 1-120 characters")
	}
	u, err := s.users.FindByUID(ctx, uid)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		u = &model.User{UID: uid, Role: role}
	}
	if u.Role != role {
		return nil, ErrRoleAlreadySet
	}
	u.DisplayName = displayName
	if err := s.users.Save(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *profileService) Me(ctx context.Context, uid string) (*model.User, error) {
	u, err := s.users.FindByUID(ctx, uid)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return u, nil
}

// UpsertMakerProfile replaces the descriptive fields and leaves the payout facet alone.
func (s *profileService) UpsertMakerProfile(ctx context.Context, uid string, in MakerProfileInput) (*model.MakerProfile, error) {
	in.DisplayName = strings.TrimSpace(in.DisplayName)
	in.Location = strings.TrimSpace(in.Location)
	if utf8.RuneCountInString(in.DisplayName) > 120 {
		return nil, invalid("displayName", "must be at most 120 characters")
	}
	if utf8.RuneCountInString(in.Location) > 120 {
		return nil, invalid("location", "must be at most 120 characters")
	}
	p, err := s.profiles.FindByUID(ctx, uid)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		p = &model.MakerProfile{UID: uid}
	}
	p.DisplayName = in.DisplayName
	p.Location = in.Location
	p.Printers = strings.TrimSpace(in.Printers)
	p.Materials = strings.TrimSpace(in.Materials)
	p.Bio = strings.TrimSpace(in.Bio)
	if err := s.profiles.Save(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *profileService) GetMakerProfile(ctx context.Context, uid string) (*model.MakerProfile, error) {
	p, err := s.profiles.FindByUID(ctx, uid)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return p, nil
}

func (s *profileService) Reviews(ctx context.Context, uid string) ([]model.Review, error) {
	return s.reviews.ListByReviewee(ctx, uid)
}
