package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shinyyama/voxelhub-backend/internal/model"
	"github.com/shinyyama/voxelhub-backend/internal/realtime"
	"github.com/shinyyama/voxelhub-backend/internal/repository"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	maxBidMessage   = 2000
	maxDeliveryDays = 365
	maxReviewText   = 2000
)

type BidInput struct {
	Price        decimal.Decimal
	DeliveryDays int
	Message      string
}

type BidService interface {
	Submit(ctx context.Context, makerUID string, projectID uint64, in BidInput) (*model.Bid, error)
	Accept(ctx context.Context, clientUID string, bidID uint64) (*model.Bid, error)
	Reject(ctx context.Context, clientUID string, bidID uint64) (*model.Bid, error)
	Edit(ctx context.Context, makerUID string, bidID uint64, upd repository.BidUpdate) (*model.Bid, error)
	Withdraw(ctx context.Context, makerUID string, bidID uint64) error
	ConfirmDelivery(ctx context.Context, clientUID string, bidID uint64, rating float64, comment string) (*model.Bid, error)
	RateClient(ctx context.Context, makerUID string, bidID uint64, rating float64, comment string) (*model.Review, error)
	ListForProject(ctx context.Context, uid string, projectID uint64) ([]model.Bid, error)
	ListForMaker(ctx context.Context, makerUID string) ([]model.Bid, error)
	MarkProjectBidsRead(ctx context.Context, clientUID string, projectID uint64) error
}

type bidService struct {
	tx       repository.Transactor
	projects repository.ProjectRepository
	bids     repository.BidRepository
	profiles repository.MakerProfileRepository
	users    repository.UserRepository
	reviews  repository.ReviewRepository
	earnings repository.EarningRepository
	notify   NotificationService
	nowFn    func() time.Time
}

type BidDeps struct {
	Tx            repository.Transactor
	Projects      repository.ProjectRepository
	Bids          repository.BidRepository
	Profiles      repository.MakerProfileRepository
	Users         repository.UserRepository
	Reviews       repository.ReviewRepository
	Earnings      repository.EarningRepository
	Notifications NotificationService
}

func NewBidService(d BidDeps) BidService {
	return &bidService{
		tx:       d.Tx,
		projects: d.Projects,
		bids:     d.Bids,
		profiles: d.Profiles,
		users:    d.Users,
		reviews:  d.Reviews,
		earnings: d.Earnings,
		notify:   d.Notifications,
		nowFn:    time.Now,
	}
}

func validateBidPrice(p decimal.Decimal) error {
	if p.LessThan(MinimumBidPrice) {
		return invalid("price", "must be at least €"+MinimumBidPrice.StringFixed(2))
	}
	if !validMoney(p) {
		return invalid("price", "at most two decimal places")
	}
	return nil
}

func validateDeliveryDays(d int) error {
	if d < 1 || d > maxDeliveryDays {
		return invalid("deliveryDays", fmt.Sprintf("must be between 1 and %d", maxDeliveryDays))
	}
	return nil
}

func validateBidMessage(m string) error {
	if utf8.RuneCountInString(m) > maxBidMessage {
		return invalid("message", fmt.Sprintf("must be at most %d characters", maxBidMessage))
	}
	return nil
}

// validateRating accepts 0.5 to 5 in half-star steps.
func validateRating(r float64) error {
	halves := r * 2
	if math.IsNaN(r) || halves != math.Trunc(halves) || halves < 1 || halves > 10 {
		return invalid("rating", "must be between 0.5 and 5 in steps of 0.5")
	}
	return nil
}

func (s *bidService) Submit(ctx context.Context, makerUID string, projectID uint64, in BidInput) (*model.Bid, error) {
	if err := validateBidPrice(in.Price); err != nil {
		return nil, err
	}
	if err := validateDeliveryDays(in.DeliveryDays); err != nil {
		return nil, err
	}
	msg := strings.TrimSpace(in.Message)
	if err := validateBidMessage(msg); err != nil {
		return nil, err
	}
	profile, err := s.profiles.FindByUID(ctx, makerUID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileIncomplete
		}
		return nil, err
	}
	if !profile.Complete() {
		return nil, ErrProfileIncomplete
	}

	var (
		bid     *model.Bid
		project *model.Project
	)
	err = s.tx.Transaction(ctx, func(tx *gorm.DB) error {
		p, err := s.projects.WithTx(tx).FindByIDForUpdate(ctx, projectID)
		if err != nil {
			return mapNotFound(err)
		}
		if p.OwnerUID == makerUID {
			return ErrOwnProject
		}
		if p.Deleted() {
			return ErrProjectDeleted
		}
		if !p.AcceptingBids() {
			return ErrProjectClosed
		}
		bids := s.bids.WithTx(tx)
		open, err := bids.FindOpenByMaker(ctx, projectID, makerUID)
		if err != nil {
			return err
		}
		if open != nil {
			return ErrDuplicateBid
		}
		b := &model.Bid{
			ProjectID:    projectID,
			MakerUID:     makerUID,
			Price:        in.Price,
			DeliveryDays: in.DeliveryDays,
			Message:      msg,
			Status:       model.BidStatusPending,
		}
		if err := bids.Create(ctx, b); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateBid
			}
			return err
		}
		bid, project = b, p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify.Notify(ctx, project.OwnerUID, Note{
		Type:      realtime.EventNewBid,
		Title:     "New bid on " + project.Title,
		Body:      fmt.Sprintf("%s offered €%s, delivery in %d days", profile.DisplayName, bid.Price.StringFixed(2), bid.DeliveryDays),
		ProjectID: uint64Ptr(project.ID),
		BidID:     uint64Ptr(bid.ID),
		Fields: map[string]interface{}{
			"makerName": profile.DisplayName,
			"price":     bid.Price.StringFixed(2),
		},
	})
	return bid, nil
}

// loadForOwner returns the bid and its project after checking that clientUID owns the project.
func (s *bidService) loadForOwner(ctx context.Context, clientUID string, bidID uint64) (*model.Bid, *model.Project, error) {
	bid, err := s.bids.FindByID(ctx, bidID)
	if err != nil {
		return nil, nil, mapNotFound(err)
	}
	project, err := s.projects.FindByID(ctx, bid.ProjectID)
	if err != nil {
		return nil, nil, mapNotFound(err)
	}
	if project.OwnerUID != clientUID {
		return nil, nil, ErrForbidden
	}
	return bid, project, nil
}

func (s *bidService) loadForMaker(ctx context.Context, makerUID string, bidID uint64) (*model.Bid, *model.Project, error) {
	bid, err := s.bids.FindByID(ctx, bidID)
	if err != nil {
		return nil, nil, mapNotFound(err)
	}
	if bid.MakerUID != makerUID {
		return nil, nil, ErrForbidden
	}
	project, err := s.projects.FindByID(ctx, bid.ProjectID)
	if err != nil {
		return nil, nil, mapNotFound(err)
	}
	return bid, project, nil
}

func (s *bidService) Accept(ctx context.Context, clientUID string, bidID uint64) (*model.Bid, error) {
	bid, project, err := s.loadForOwner(ctx, clientUID, bidID)
	if err != nil {
		return nil, err
	}
	if project.Deleted() {
		return nil, ErrProjectDeleted
	}

	var rejected []model.Bid
	err = s.tx.Transaction(ctx, func(tx *gorm.DB) error {
		projects := s.projects.WithTx(tx)
		bids := s.bids.WithTx(tx)
		p, err := projects.FindByIDForUpdate(ctx, project.ID)
		if err != nil {
			return mapNotFound(err)
		}
		if p.Deleted() {
			return ErrProjectDeleted
		}
		rows, err := projects.CompleteIfActive(ctx, p.ID)
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrProjectClosed
		}
		rows, err = bids.Transition(ctx, bid.ID, model.BidStatusPending, model.BidStatusAccepted)
		if err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrProjectClosed
			}
			return err
		}
		if rows == 0 {
			return ErrBidNotPending
		}
		rejected, err = bids.RejectPendingSiblings(ctx, p.ID, bid.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	bid.Status = model.BidStatusAccepted

	s.notify.Notify(ctx, bid.MakerUID, Note{
		Type:      realtime.EventBidAccepted,
		Title:     "Your bid was accepted",
		Body:      "Your bid on " + project.Title + " was accepted.",
		ProjectID: uint64Ptr(project.ID),
		BidID:     uint64Ptr(bid.ID),
	})
	notifyRejected(ctx, s.notify, project, rejected)
	return bid, nil
}

func notifyRejected(ctx context.Context, notify NotificationService, project *model.Project, rejected []model.Bid) {
	for _, r := range rejected {
		notify.Notify(ctx, r.MakerUID, Note{
			Type:      realtime.EventBidRejected,
			Title:     "Your bid was not selected",
			Body:      "Your bid on " + project.Title + " was rejected.",
			ProjectID: uint64Ptr(project.ID),
			BidID:     uint64Ptr(r.ID),
		})
	}
}

func (s *bidService) Reject(ctx context.Context, clientUID string, bidID uint64) (*model.Bid, error) {
	bid, project, err := s.loadForOwner(ctx, clientUID, bidID)
	if err != nil {
		return nil, err
	}
	rows, err := s.bids.Transition(ctx, bid.ID, model.BidStatusPending, model.BidStatusRejected)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, ErrBidNotPending
	}
	bid.Status = model.BidStatusRejected
	notifyRejected(ctx, s.notify, project, []model.Bid{*bid})
	return bid, nil
}

func (s *bidService) Edit(ctx context.Context, makerUID string, bidID uint64, upd repository.BidUpdate) (*model.Bid, error) {
	if upd.Price != nil {
		if err := validateBidPrice(*upd.Price); err != nil {
			return nil, err
		}
	}
	if upd.DeliveryDays != nil {
		if err := validateDeliveryDays(*upd.DeliveryDays); err != nil {
			return nil, err
		}
	}
	if upd.Message != nil {
		m := strings.TrimSpace(*upd.Message)
		if err := validateBidMessage(m); err != nil {
			return nil, err
		}
		upd.Message = &m
	}
	bid, project, err := s.loadForMaker(ctx, makerUID, bidID)
	if err != nil {
		return nil, err
	}
	if project.Deleted() {
		return nil, ErrProjectDeleted
	}
	if bid.Status != model.BidStatusPending {
		return nil, ErrBidNotPending
	}
	rows, err := s.bids.UpdatePending(ctx, bid.ID, upd)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, ErrBidNotPending
	}
	updated, err := s.bids.FindByID(ctx, bid.ID)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return updated, nil
}

func (s *bidService) Withdraw(ctx context.Context, makerUID string, bidID uint64) error {
	bid, project, err := s.loadForMaker(ctx, makerUID, bidID)
	if err != nil {
		return err
	}
	if project.Deleted() {
		return ErrProjectDeleted
	}
	if bid.Status != model.BidStatusPending {
		return ErrBidNotPending
	}
	rows, err := s.bids.DeletePending(ctx, bid.ID)
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrBidNotPending
	}
	s.notify.Notify(ctx, project.OwnerUID, Note{
		Type:      realtime.EventBidDeleted,
		Title:     "A bid was withdrawn",
		Body:      "A maker withdrew their bid on " + project.Title + ".",
		ProjectID: uint64Ptr(project.ID),
		BidID:     uint64Ptr(bid.ID),
	})
	return nil
}

func (s *bidService) ConfirmDelivery(ctx context.Context, clientUID string, bidID uint64, rating float64, comment string) (*model.Bid, error) {
	if err := validateRating(rating); err != nil {
		return nil, err
	}
	comment = strings.TrimSpace(comment)
	if utf8.RuneCountInString(comment) > maxReviewText {
		return nil, invalid("comment", fmt.Sprintf("must be at most %d characters", maxReviewText))
	}
	bid, project, err := s.loadForOwner(ctx, clientUID, bidID)
	if err != nil {
		return nil, err
	}
	if bid.Status != model.BidStatusAccepted {
		return nil, ErrBidNotAccepted
	}
	if bid.DeliveryConfirmedAt != nil {
		return nil, ErrAlreadyConfirmed
	}

	now := s.nowFn()
	var rejected []model.Bid
	err = s.tx.Transaction(ctx, func(tx *gorm.DB) error {
		rows, err := s.bids.WithTx(tx).ConfirmDelivery(ctx, bid.ID, now)
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrAlreadyConfirmed
		}
		if err := s.reviews.WithTx(tx).Create(ctx, &model.Review{
			BidID:       bid.ID,
			Direction:   model.ReviewClientToMaker,
			ProjectID:   project.ID,
			ReviewerUID: clientUID,
			RevieweeUID: bid.MakerUID,
			Rating:      rating,
			Comment:     comment,
		}); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyConfirmed
			}
			return err
		}
		if err := s.projects.WithTx(tx).MarkCompleted(ctx, project.ID); err != nil {
			return err
		}
		rejected, err = s.bids.WithTx(tx).RejectPendingSiblings(ctx, project.ID, bid.ID)
		if err != nil {
			return err
		}
		profile, err := s.profiles.WithTx(tx).FindByUID(ctx, bid.MakerUID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		return s.earnings.WithTx(tx).Create(ctx, newEarning(bid.MakerUID, model.EarningSourceBid, bid.ID, bid.Price, profile, now))
	})
	if err != nil {
		return nil, err
	}
	bid.DeliveryConfirmedAt = &now

	clientName := "Your client"
	if u, err := s.users.FindByUID(ctx, clientUID); err == nil && u.DisplayName != "" {
		clientName = u.DisplayName
	}
	s.notify.Notify(ctx, bid.MakerUID, Note{
		Type:      realtime.EventDeliveryConfirmed,
		Title:     "Delivery confirmed",
		Body:      fmt.Sprintf("%s confirmed delivery of %s. Rate your client.", clientName, project.Title),
		ProjectID: uint64Ptr(project.ID),
		BidID:     uint64Ptr(bid.ID),
		Fields: map[string]interface{}{
			"clientName":   clientName,
			"projectTitle": project.Title,
			"rating":       rating,
		},
	})
	notifyRejected(ctx, s.notify, project, rejected)
	return bid, nil
}

func (s *bidService) RateClient(ctx context.Context, makerUID string, bidID uint64, rating float64, comment string) (*model.Review, error) {
	if err := validateRating(rating); err != nil {
		return nil, err
	}
	comment = strings.TrimSpace(comment)
	if utf8.RuneCountInString(comment) > maxReviewText {
		return nil, invalid("comment", fmt.Sprintf("must be at most %d characters", maxReviewText))
	}
	bid, project, err := s.loadForMaker(ctx, makerUID, bidID)
	if err != nil {
		return nil, err
	}
	if bid.DeliveryConfirmedAt == nil {
		return nil, ErrDeliveryNotConfirmed
	}
	exists, err := s.reviews.Exists(ctx, bid.ID, model.ReviewMakerToClient)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrAlreadyRated
	}
	r := &model.Review{
		BidID:       bid.ID,
		Direction:   model.ReviewMakerToClient,
		ProjectID:   project.ID,
		ReviewerUID: makerUID,
		RevieweeUID: project.OwnerUID,
		Rating:      rating,
		Comment:     comment,
	}
	if err := s.reviews.Create(ctx, r); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrAlreadyRated
		}
		return nil, err
	}
	return r, nil
}

// ListForProject shows the owner every bid and any other caller only their own.
func (s *bidService) ListForProject(ctx context.Context, uid string, projectID uint64) ([]model.Bid, error) {
	project, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		return nil, mapNotFound(err)
	}
	if project.OwnerUID == uid {
		return s.bids.ListByProject(ctx, projectID)
	}
	return s.bids.ListByProjectAndMaker(ctx, projectID, uid)
}

func (s *bidService) ListForMaker(ctx context.Context, makerUID string) ([]model.Bid, error) {
	return s.bids.ListByMaker(ctx, makerUID)
}

func (s *bidService) MarkProjectBidsRead(ctx context.Context, clientUID string, projectID uint64) error {
	project, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		return mapNotFound(err)
	}
	if project.OwnerUID != clientUID {
		return ErrForbidden
	}
	return s.bids.MarkReadByProject(ctx, projectID)
}
