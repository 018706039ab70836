package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shinyyama/voxelhub-backend/internal/model"
	"github.com/shinyyama/voxelhub-backend/internal/payment"
	"github.com/shinyyama/voxelhub-backend/internal/repository"
	"github.com/shinyyama/voxelhub-backend/internal/storage"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var designFileTypes = map[string]string{
	".stl": "model/stl",
	".3mf": "model/3mf",
	".obj": "model/obj",
}

type DesignInput struct {
	Title       string
	Description string
	Price       decimal.Decimal
	File        *FileUpload
}

type DesignPurchaseView struct {
	Purchase model.DesignPurchase `json:"purchase"`
	Design   *model.Design        `json:"design"`
}

type DesignService interface {
	Create(ctx context.Context, makerUID string, in DesignInput) (*model.Design, error)
	Get(ctx context.Context, id uint64) (*model.Design, error)
	List(ctx context.Context, limit, offset int) ([]model.Design, int64, error)
	StartPurchase(ctx context.Context, buyerUID string, designID uint64, method model.PayoutMethod) (*model.DesignPurchase, error)
	// CompletePurchase confirms the checkout with the payment provider and credits the maker.
	CompletePurchase(ctx context.Context, buyerUID string, purchaseID uint64) (*model.DesignPurchase, error)
	CancelPurchase(ctx context.Context, buyerUID string, purchaseID uint64) (*model.DesignPurchase, error)
	ListPurchases(ctx context.Context, buyerUID string) ([]DesignPurchaseView, error)
}

type DesignDeps struct {
	Tx        repository.Transactor
	Designs   repository.DesignRepository
	Purchases repository.DesignPurchaseRepository
	Profiles  repository.MakerProfileRepository
	Earnings  repository.EarningRepository
	Blobs     storage.BlobStore
	Checkouts payment.CheckoutRegistry
	Currency  string
}

type designService struct {
	tx        repository.Transactor
	designs   repository.DesignRepository
	purchases repository.DesignPurchaseRepository
	profiles  repository.MakerProfileRepository
	earnings  repository.EarningRepository
	blobs     storage.BlobStore
	checkouts payment.CheckoutRegistry
	currency  string
	nowFn     func() time.Time
}

func NewDesignService(d DesignDeps) DesignService {
	if d.Currency == "" {
		d.Currency = "eur"
	}
	return &designService{
		tx:        d.Tx,
		designs:   d.Designs,
		purchases: d.Purchases,
		profiles:  d.Profiles,
		earnings:  d.Earnings,
		blobs:     d.Blobs,
		checkouts: d.Checkouts,
		currency:  d.Currency,
		nowFn:     time.Now,
	}
}

func (s *designService) Create(ctx context.Context, makerUID string, in DesignInput) (*model.Design, error) {
	title := strings.TrimSpace(in.Title)
	desc := strings.TrimSpace(in.Description)
	if title == "" || utf8.RuneCountInString(title) > 120 {
		return nil, invalid("title", "must be 1-120 characters")
	}
	if desc == "" {
		return nil, invalid("description", "is required")
	}
	if err := validateBidPrice(in.Price); err != nil {
		return nil, err
	}
	d := &model.Design{
		MakerUID:    makerUID,
		Title:       title,
		Description: desc,
		Price:       in.Price,
	}
	var key string
	if in.File != nil {
		ext := strings.ToLower(path.Ext(in.File.Name))
		ct, ok := designFileTypes[ext]
		if !ok {
			return nil, invalid("file", "must be .stl, .3mf or .obj")
		}
		if in.File.Size <= 0 || in.File.Size > MaxSTLFileSize {
			return nil, invalid("file", "must be between 1 byte and 50 MB")
		}
		key = fmt.Sprintf("designs/%s/%s%s", makerUID, uuid.NewString(), ext)
		u, err := s.blobs.Put(ctx, key, ct, in.File.Content)
		if err != nil {
			return nil, fmt.Errorf("upload %s: %w", in.File.Name, err)
		}
		d.FileURL = &u
	}
	if err := s.designs.Create(ctx, d); err != nil {
		if key != "" {
			_ = s.blobs.Delete(ctx, key)
		}
		return nil, err
	}
	return d, nil
}

func (s *designService) Get(ctx context.Context, id uint64) (*model.Design, error) {
	d, err := s.designs.FindByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return d, nil
}

func (s *designService) List(ctx context.Context, limit, offset int) ([]model.Design, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.designs.List(ctx, limit, offset)
}

func (s *designService) StartPurchase(ctx context.Context, buyerUID string, designID uint64, method model.PayoutMethod) (*model.DesignPurchase, error) {
	if method != model.PayoutMethodStripe && method != model.PayoutMethodPayPal {
		return nil, invalid("paymentMethod", "must be stripe or paypal")
	}
	checkout, ok := s.checkouts.For(method)
	if !ok {
		return nil, fmt.Errorf("no checkout configured for %s", method)
	}
	d, err := s.designs.FindByID(ctx, designID)
	if err != nil {
		return nil, mapNotFound(err)
	}
	if d.MakerUID == buyerUID {
		return nil, ErrOwnDesign
	}
	open, err := s.purchases.FindPendingByBuyer(ctx, designID, buyerUID)
	if err != nil {
		return nil, err
	}
	if open != nil {
		return nil, ErrPurchaseInProgress
	}
	p := &model.DesignPurchase{
		DesignID:      d.ID,
		BuyerUID:      buyerUID,
		MakerUID:      d.MakerUID,
		Amount:        d.Price,
		PaymentMethod: method,
		Status:        model.DesignPurchaseStatusPendingPayment,
	}
	if err := s.purchases.Create(ctx, p); err != nil {
		return nil, err
	}

	sess, err := checkout.CreateCheckout(ctx, payment.CheckoutRequest{
		PurchaseID:  p.ID,
		Amount:      p.Amount,
		Currency:    s.currency,
		Description: d.Title,
	})
	if err == nil {
		err = s.purchases.SetPaymentRef(ctx, p.ID, sess.Reference)
	}
	if err != nil {
		if _, cerr := s.purchases.CancelIfPending(ctx, p.ID, buyerUID); cerr != nil {
			zap.L().Error("cancel purchase after checkout error failed",
				zap.Uint64("purchase_id", p.ID),
				zap.Error(cerr))
		}
		return nil, fmt.Errorf("start checkout: %w", err)
	}
	p.PaymentRef = &sess.Reference
	p.CheckoutToken = sess.ClientToken
	return p, nil
}

func (s *designService) loadPurchase(ctx context.Context, buyerUID string, id uint64) (*model.DesignPurchase, error) {
	p, err := s.purchases.FindByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err)
	}
	if p.BuyerUID != buyerUID {
		return nil, ErrForbidden
	}
	return p, nil
}

// CompletePurchase credits the maker only after the provider reports the buyer's
// payment as collected in full.
func (s *designService) CompletePurchase(ctx context.Context, buyerUID string, purchaseID uint64) (*model.DesignPurchase, error) {
	p, err := s.loadPurchase(ctx, buyerUID, purchaseID)
	if err != nil {
		return nil, err
	}
	if p.Status != model.DesignPurchaseStatusPendingPayment {
		return nil, ErrPurchaseNotPending
	}
	if err := s.confirmPayment(ctx, p); err != nil {
		return nil, err
	}

	now := s.nowFn()
	err = s.tx.Transaction(ctx, func(tx *gorm.DB) error {
		rows, err := s.purchases.WithTx(tx).CompleteIfPending(ctx, p.ID, buyerUID, now)
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrPurchaseNotPending
		}
		profile, err := s.profiles.WithTx(tx).FindByUID(ctx, p.MakerUID)
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			profile = nil
		}
		return s.earnings.WithTx(tx).Create(ctx, newEarning(p.MakerUID, model.EarningSourceDesignPurchase, p.ID, p.Amount, profile, now))
	})
	if err != nil {
		return nil, err
	}
	p.Status = model.DesignPurchaseStatusCompleted
	p.CompletedAt = &now
	return p, nil
}

func (s *designService) confirmPayment(ctx context.Context, p *model.DesignPurchase) error {
	if p.PaymentRef == nil || *p.PaymentRef == "" {
		return ErrPaymentNotConfirmed
	}
	checkout, ok := s.checkouts.For(p.PaymentMethod)
	if !ok {
		return fmt.Errorf("no checkout configured for %s", p.PaymentMethod)
	}
	st, err := checkout.FetchCheckout(ctx, payment.CheckoutQuery{
		Reference: *p.PaymentRef,
		Amount:    p.Amount,
		Currency:  s.currency,
		CreatedAt: p.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("fetch checkout %s: %w", *p.PaymentRef, err)
	}
	switch st.Status {
	case payment.CheckoutPaid:
	case payment.CheckoutFailed:
		if _, err := s.purchases.CancelIfPending(ctx, p.ID, p.BuyerUID); err != nil {
			return err
		}
		return ErrPaymentFailed
	default:
		return ErrPaymentNotConfirmed
	}
	if !st.Amount.Equal(p.Amount) || !strings.EqualFold(st.Currency, s.currency) {
		zap.L().Error("checkout amount mismatch",
			zap.Uint64("purchase_id", p.ID),
			zap.String("payment_ref", *p.PaymentRef),
			zap.String("expected", p.Amount.StringFixed(2)+" "+s.currency),
			zap.String("collected", st.Amount.StringFixed(2)+" "+st.Currency))
		return ErrPaymentNotConfirmed
	}
	return nil
}

func (s *designService) CancelPurchase(ctx context.Context, buyerUID string, purchaseID uint64) (*model.DesignPurchase, error) {
	p, err := s.loadPurchase(ctx, buyerUID, purchaseID)
	if err != nil {
		return nil, err
	}
	rows, err := s.purchases.CancelIfPending(ctx, p.ID, buyerUID)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, ErrPurchaseNotPending
	}
	p.Status = model.DesignPurchaseStatusCanceled
	return p, nil
}

func (s *designService) ListPurchases(ctx context.Context, buyerUID string) ([]DesignPurchaseView, error) {
	list, err := s.purchases.ListByBuyer(ctx, buyerUID)
	if err != nil {
		return nil, err
	}
	out := make([]DesignPurchaseView, 0, len(list))
	for _, p := range list {
		d, err := s.designs.FindByID(ctx, p.DesignID)
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, err
			}
			zap.L().Warn("purchase references missing design",
				zap.Uint64("purchase_id", p.ID),
				zap.Uint64("design_id", p.DesignID))
			d = nil
		}
		out = append(out, DesignPurchaseView{Purchase: p, Design: d})
	}
	return out, nil
}
