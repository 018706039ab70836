package service

import (
	"time"

	"github.com/shinyyama/voxelhub-backend/internal/model"
	"github.com/shopspring/decimal"
)

const (
	bankRetention    = 15 * 24 * time.Hour
	defaultRetention = 7 * 24 * time.Hour
)

var (
	MinimumBidPrice    = decimal.RequireFromString("0.50")
	minimumBankPayout  = decimal.NewFromInt(20)
	minimumOtherPayout = decimal.NewFromInt(10)
)

type Balance struct {
	Total     decimal.Decimal `json:"total"`
	Available decimal.Decimal `json:"available"`
	Retained  decimal.Decimal `json:"retained"`
}

// ComputeBalance derives a maker's balance from the ledger. Total deducts only
// completed payouts; available deducts every payout that has not failed, so funds
// in flight cannot be requested twice. Both are floored at zero.
func ComputeBalance(earnings []model.Earning, payouts []model.Payout, now time.Time) Balance {
	earned := decimal.Zero
	released := decimal.Zero
	retained := decimal.Zero
	for _, e := range earnings {
		earned = earned.Add(e.Amount)
		if e.AvailableAt(now) {
			released = released.Add(e.Amount)
		} else {
			retained = retained.Add(e.Amount)
		}
	}
	paid := decimal.Zero
	committed := decimal.Zero
	for _, p := range payouts {
		switch p.Status {
		case model.PayoutStatusCompleted:
			paid = paid.Add(p.Amount)
			committed = committed.Add(p.Amount)
		case model.PayoutStatusFailed:
		default:
			committed = committed.Add(p.Amount)
		}
	}
	return Balance{
		Total:     floorZero(earned.Sub(paid)),
		Available: floorZero(released.Sub(committed)),
		Retained:  retained,
	}
}

func floorZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// RetentionFor returns how long an earning is held before it can be withdrawn.
func RetentionFor(m model.PayoutMethod) time.Duration {
	switch m {
	case model.PayoutMethodStripe, model.PayoutMethodPayPal:
		return defaultRetention
	}
	return bankRetention
}

func MinimumPayout(m model.PayoutMethod) decimal.Decimal {
	if m == model.PayoutMethodBank {
		return minimumBankPayout
	}
	return minimumOtherPayout
}

// newEarning builds a ledger entry whose retention follows the maker's current
// payout method, falling back to bank when none is configured.
func newEarning(makerUID string, src model.EarningSource, srcID uint64, amount decimal.Decimal, profile *model.MakerProfile, now time.Time) *model.Earning {
	kind := model.PayoutMethodBank
	if profile != nil && profile.PayoutMethod.Valid() {
		kind = profile.PayoutMethod
	}
	return &model.Earning{
		MakerUID:      makerUID,
		SourceType:    src,
		SourceID:      srcID,
		Amount:        amount,
		RetentionKind: kind,
		AvailableDate: now.Add(RetentionFor(kind)),
		CreatedAt:     now,
	}
}

type EarningView struct {
	model.Earning
	Status string `json:"status"`
}

const (
	EarningRetained  = "retained"
	EarningAvailable = "available"
)

func viewEarnings(list []model.Earning, now time.Time) []EarningView {
	out := make([]EarningView, 0, len(list))
	for _, e := range list {
		st := EarningRetained
		if e.AvailableAt(now) {
			st = EarningAvailable
		}
		out = append(out, EarningView{Earning: e, Status: st})
	}
	return out
}

// validMoney rejects amounts with more than two decimal places.
func validMoney(d decimal.Decimal) bool {
	return d.Equal(d.Round(2))
}
