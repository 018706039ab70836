package service

import (
	"context"
	"errors"
	"math/big"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shinyyama/voxelhub-backend/internal/model"
	"github.com/shinyyama/voxelhub-backend/internal/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const verifyConcurrency = 4

var (
	ibanPattern       = regexp.MustCompile(`^[A-Z]{2}[0-9]{2}[A-Z0-9]{11,30}$`)
	paypalIDPattern   = regexp.MustCompile(`^[A-Z0-9]{13}$`)
	emailPattern      = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	stripeAcctPattern = regexp.MustCompile(`^acct_[A-Za-z0-9]{6,}$`)
)

type PayoutService interface {
	SetPayoutMethod(ctx context.Context, makerUID string, dest model.PayoutDestination) (*model.MakerProfile, error)
	Balance(ctx context.Context, makerUID string) (Balance, error)
	RequestPayout(ctx context.Context, makerUID string, amount decimal.Decimal) (*model.Payout, error)
	ListPayouts(ctx context.Context, makerUID string) ([]model.Payout, error)
	ListEarnings(ctx context.Context, makerUID string) ([]EarningView, error)
	VerifyPayouts(ctx context.Context, makerUID string) ([]model.Payout, error)
}

type PayoutDeps struct {
	Tx       repository.Transactor
	Profiles repository.MakerProfileRepository
	Earnings repository.EarningRepository
	Payouts  repository.PayoutRepository
	Executor *PayoutExecutor
	Currency string
}

type payoutService struct {
	tx       repository.Transactor
	profiles repository.MakerProfileRepository
	earnings repository.EarningRepository
	payouts  repository.PayoutRepository
	executor *PayoutExecutor
	currency string
	nowFn    func() time.Time
}

func NewPayoutService(d PayoutDeps) PayoutService {
	return &payoutService{
		tx:       d.Tx,
		profiles: d.Profiles,
		earnings: d.Earnings,
		payouts:  d.Payouts,
		executor: d.Executor,
		currency: d.Currency,
		nowFn:    time.Now,
	}
}

// normalizeDestination validates d and returns it in canonical form.
func normalizeDestination(d model.PayoutDestination) (model.PayoutDestination, error) {
	switch v := d.(type) {
	case model.BankDestination:
		iban := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(v.IBAN), " ", ""))
		if !ibanPattern.MatchString(iban) || !ibanChecksumOK(iban) {
			return nil, invalid("iban", "is not a valid IBAN")
		}
		holder := strings.TrimSpace(v.AccountHolder)
		if holder == "" || utf8.RuneCountInString(holder) > 120 {
			return nil, invalid("accountHolder", "is required")
		}
		return model.BankDestination{IBAN: iban, AccountHolder: holder}, nil
	case model.PayPalDestination:
		id := strings.TrimSpace(v.AccountID)
		if !emailPattern.MatchString(id) && !paypalIDPattern.MatchString(id) {
			return nil, invalid("paypalAccountId", "must be a PayPal email or payer id")
		}
		return model.PayPalDestination{AccountID: id}, nil
	case model.StripeDestination:
		id := strings.TrimSpace(v.ConnectAccountID)
		if !stripeAcctPattern.MatchString(id) {
			return nil, invalid("stripeAccountId", "must be a Stripe Connect account id (acct_...)")
		}
		return model.StripeDestination{ConnectAccountID: id}, nil
	}
	return nil, invalid("method", "must be stripe, paypal or bank")
}

// ibanChecksumOK applies the ISO 13616 mod-97 check.
func ibanChecksumOK(iban string) bool {
	rearranged := iban[4:] + iban[:4]
	var sb strings.Builder
	for _, r := range rearranged {
		if r >= 'A' && r <= 'Z' {
			sb.WriteString(big.NewInt(int64(r - 'A' + 10)).String())
		} else {
			sb.WriteRune(r)
		}
	}
	n, ok := new(big.Int).SetString(sb.String(), 10)
	if !ok {
		return false
	}
	return new(big.Int).Mod(n, big.NewInt(97)).Int64() == 1
}

func (s *payoutService) SetPayoutMethod(ctx context.Context, makerUID string, dest model.PayoutDestination) (*model.MakerProfile, error) {
	dest, err := normalizeDestination(dest)
	if err != nil {
		return nil, err
	}
	profile, err := s.profiles.FindByUID(ctx, makerUID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		profile = &model.MakerProfile{UID: makerUID}
	}
	profile.SetDestination(dest)
	if err := s.profiles.Save(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

func (s *payoutService) Balance(ctx context.Context, makerUID string) (Balance, error) {
	earnings, err := s.earnings.ListByMaker(ctx, makerUID)
	if err != nil {
		return Balance{}, err
	}
	payouts, err := s.payouts.ListByMaker(ctx, makerUID)
	if err != nil {
		return Balance{}, err
	}
	return ComputeBalance(earnings, payouts, s.nowFn()), nil
}

func (s *payoutService) RequestPayout(ctx context.Context, makerUID string, amount decimal.Decimal) (*model.Payout, error) {
	if !amount.IsPositive() {
		return nil, invalid("amount", "must be greater than zero")
	}
	if !validMoney(amount) {
		return nil, invalid("amount", "at most two decimal places")
	}

	var (
		payout *model.Payout
		dest   model.PayoutDestination
	)
	err := s.tx.Transaction(ctx, func(tx *gorm.DB) error {
		// The profile row lock serialises concurrent requests of one maker.
		profile, err := s.profiles.WithTx(tx).FindByUIDForUpdate(ctx, makerUID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPayoutMethodMissing
			}
			return err
		}
		dest, err = profile.Destination()
		if err != nil {
			return ErrPayoutMethodMissing
		}
		if minimum := MinimumPayout(dest.Method()); amount.LessThan(minimum) {
			return &BelowMinimumError{Method: dest.Method(), Minimum: minimum}
		}
		earnings, err := s.earnings.WithTx(tx).ListByMaker(ctx, makerUID)
		if err != nil {
			return err
		}
		payouts := s.payouts.WithTx(tx)
		history, err := payouts.ListByMaker(ctx, makerUID)
		if err != nil {
			return err
		}
		now := s.nowFn()
		bal := ComputeBalance(earnings, history, now)
		if amount.GreaterThan(bal.Available) {
			return &InsufficientBalanceError{Available: bal.Available}
		}
		p := &model.Payout{
			MakerUID:  makerUID,
			Amount:    amount,
			Currency:  s.currency,
			Method:    dest.Method(),
			Status:    model.PayoutStatusPending,
			CreatedAt: now,
		}
		if err := payouts.Create(ctx, p); err != nil {
			return err
		}
		payout = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	zap.L().Info("payout requested",
		zap.Uint64("payout_id", payout.ID),
		zap.String("maker_uid", makerUID),
		zap.String("method", string(payout.Method)),
		zap.String("amount", payout.Amount.StringFixed(2)))
	if s.executor != nil {
		s.executor.Start(*payout, dest)
	}
	return payout, nil
}

func (s *payoutService) ListPayouts(ctx context.Context, makerUID string) ([]model.Payout, error) {
	return s.payouts.ListByMaker(ctx, makerUID)
}

func (s *payoutService) ListEarnings(ctx context.Context, makerUID string) ([]EarningView, error) {
	list, err := s.earnings.ListByMaker(ctx, makerUID)
	if err != nil {
		return nil, err
	}
	return viewEarnings(list, s.nowFn()), nil
}

// VerifyPayouts reconciles every open payout that has a provider reference.
// Provider errors are logged per payout and do not stop the others.
func (s *payoutService) VerifyPayouts(ctx context.Context, makerUID string) ([]model.Payout, error) {
	open, err := s.payouts.ListOpenByMaker(ctx, makerUID)
	if err != nil {
		return nil, err
	}
	if len(open) > 0 && s.executor != nil {
		var dest model.PayoutDestination
		if profile, err := s.profiles.FindByUID(ctx, makerUID); err == nil {
			dest, _ = profile.Destination()
		}
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(verifyConcurrency)
		for _, p := range open {
			p := p
			g.Go(func() error {
				if _, err := s.executor.Refresh(gctx, p, dest); err != nil {
					zap.L().Warn("payout reconciliation failed",
						zap.Uint64("payout_id", p.ID),
						zap.Error(err))
				}
				return nil
			})
		}
		_ = g.Wait()
	}
	return s.payouts.ListByMaker(ctx, makerUID)
}
