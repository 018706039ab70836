package service

import (
	"testing"
	"time"

	"github.com/shinyyama/voxelhub-backend/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestComputeBalance(t *testing.T) {
	now := time.Date(2026, 4, 10, 9, 0, 0, 0, time.UTC)
	released := func(amount string) model.Earning {
		return model.Earning{Amount: dec(amount), AvailableDate: now.Add(-time.Hour)}
	}
	held := func(amount string) model.Earning {
		return model.Earning{Amount: dec(amount), AvailableDate: now.Add(time.Hour)}
	}
	payout := func(amount string, st model.PayoutStatus) model.Payout {
		return model.Payout{Amount: dec(amount), Status: st}
	}

	tests := []struct {
		name      string
		earnings  []model.Earning
		payouts   []model.Payout
		total     string
		available string
		retained  string
	}{
		{"empty ledger", nil, nil, "0", "0", "0"},
		{"retained only", []model.Earning{held("30")}, nil, "30", "0", "30"},
		{"released and retained", []model.Earning{released("20"), held("30")}, nil, "50", "20", "30"},
		{
			"pending payout reduces available not total",
			[]model.Earning{released("50")},
			[]model.Payout{payout("20", model.PayoutStatusPending)},
			"50", "30", "0",
		},
		{
			"completed payout reduces both",
			[]model.Earning{released("50")},
			[]model.Payout{payout("20", model.PayoutStatusCompleted)},
			"30", "30", "0",
		},
		{
			"failed payout is ignored",
			[]model.Earning{released("50")},
			[]model.Payout{payout("20", model.PayoutStatusFailed), payout("10", model.PayoutStatusProcessing)},
			"50", "40", "0",
		},
		{
			"floored at zero",
			[]model.Earning{released("10"), held("5")},
			[]model.Payout{payout("40", model.PayoutStatusCompleted)},
			"0", "0", "5",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := ComputeBalance(tt.earnings, tt.payouts, now)
			assert.True(t, b.Total.Equal(dec(tt.total)), "total %s", b.Total)
			assert.True(t, b.Available.Equal(dec(tt.available)), "available %s", b.Available)
			assert.True(t, b.Retained.Equal(dec(tt.retained)), "retained %s", b.Retained)
		})
	}
}

func TestBalanceNeverNegative(t *testing.T) {
	now := time.Now()
	earnings := []model.Earning{{Amount: dec("12.34"), AvailableDate: now}}
	var payouts []model.Payout
	for _, st := range []model.PayoutStatus{
		model.PayoutStatusPending, model.PayoutStatusProcessing,
		model.PayoutStatusCompleted, model.PayoutStatusFailed,
	} {
		payouts = append(payouts, model.Payout{Amount: dec("10"), Status: st})
		b := ComputeBalance(earnings, payouts, now)
		assert.False(t, b.Total.IsNegative())
		assert.False(t, b.Available.IsNegative())
	}
}

func TestRetentionWindow(t *testing.T) {
	created := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		method model.PayoutMethod
		want   time.Duration
	}{
		{model.PayoutMethodBank, 15 * 24 * time.Hour},
		{model.PayoutMethodStripe, 7 * 24 * time.Hour},
		{model.PayoutMethodPayPal, 7 * 24 * time.Hour},
		{"", 15 * 24 * time.Hour},
	}
	for _, tt := range tests {
		t.Run(string(tt.method), func(t *testing.T) {
			var profile *model.MakerProfile
			if tt.method != "" {
				profile = &model.MakerProfile{PayoutMethod: tt.method}
			}
			e := newEarning("maker-1", model.EarningSourceBid, 1, dec("30"), profile, created)
			assert.Equal(t, tt.want, e.AvailableDate.Sub(e.CreatedAt))
			assert.True(t, e.AvailableDate.After(e.CreatedAt))
		})
	}
}

func TestStripeEarningReleasedAfterSevenDays(t *testing.T) {
	created := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	e := newEarning("maker-1", model.EarningSourceBid, 1, dec("30"),
		&model.MakerProfile{PayoutMethod: model.PayoutMethodStripe}, created)
	ledger := []model.Earning{*e}

	day6 := ComputeBalance(ledger, nil, created.Add(6*24*time.Hour))
	assert.True(t, day6.Available.IsZero())
	assert.True(t, day6.Retained.Equal(dec("30")))

	day7 := ComputeBalance(ledger, nil, created.Add(7*24*time.Hour))
	assert.True(t, day7.Available.Equal(dec("30")))
	assert.True(t, day7.Retained.IsZero())
}

func TestMinimumPayout(t *testing.T) {
	assert.True(t, MinimumPayout(model.PayoutMethodBank).Equal(dec("20")))
	assert.True(t, MinimumPayout(model.PayoutMethodStripe).Equal(dec("10")))
	assert.True(t, MinimumPayout(model.PayoutMethodPayPal).Equal(dec("10")))
}
