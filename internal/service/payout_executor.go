package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shinyyama/voxelhub-backend/internal/model"
	"github.com/shinyyama/voxelhub-backend/internal/payment"
	"github.com/shinyyama/voxelhub-backend/internal/realtime"
	"github.com/shinyyama/voxelhub-backend/internal/repository"
	"go.uber.org/zap"
)

const payoutStepTimeout = 30 * time.Second

// PayoutExecutor drives a payout through its provider after the request that
// created it has returned. Every status write is a compare-and-set, so a timer
// firing for a payout that has vanished or already settled does nothing.
type PayoutExecutor struct {
	payouts   repository.PayoutRepository
	notify    NotificationService
	providers payment.Registry
	sim       *payment.Simulator

	after func(d time.Duration, f func())
	nowFn func() time.Time
}

// NewPayoutExecutor returns an executor that calls providers, or advances payouts on
// timers when sim is non-nil.
func NewPayoutExecutor(payouts repository.PayoutRepository, notify NotificationService, providers payment.Registry, sim *payment.Simulator) *PayoutExecutor {
	return &PayoutExecutor{
		payouts:   payouts,
		notify:    notify,
		providers: providers,
		sim:       sim,
		after: func(d time.Duration, f func()) {
			time.AfterFunc(d, f)
		},
		nowFn: time.Now,
	}
}

func (e *PayoutExecutor) Simulated() bool {
	return e.sim != nil
}

// Start hands the payout to its provider without blocking the caller.
// Bank transfers are settled by hand and stay pending.
func (e *PayoutExecutor) Start(p model.Payout, dest model.PayoutDestination) {
	if p.Method == model.PayoutMethodBank {
		zap.L().Info("bank payout queued for manual processing",
			zap.Uint64("payout_id", p.ID),
			zap.String("maker_uid", p.MakerUID))
		return
	}
	if e.sim != nil {
		e.after(e.sim.Step(), func() { e.simulateSend(p, dest) })
		return
	}
	go e.submit(p, dest)
}

func (e *PayoutExecutor) simulateSend(p model.Payout, dest model.PayoutDestination) {
	ctx, cancel := context.WithTimeout(context.Background(), payoutStepTimeout)
	defer cancel()
	res, err := e.sim.CreatePayout(ctx, e.request(p, dest))
	if err != nil {
		e.fail(ctx, p, err)
		return
	}
	ext := res.ExternalID
	if !e.apply(ctx, p, []model.PayoutStatus{model.PayoutStatusPending}, repository.PayoutTransition{
		To:         model.PayoutStatusProcessing,
		ExternalID: &ext,
	}) {
		return
	}
	e.after(e.sim.Step(), func() {
		ctx, cancel := context.WithTimeout(context.Background(), payoutStepTimeout)
		defer cancel()
		e.apply(ctx, p, []model.PayoutStatus{model.PayoutStatusProcessing}, repository.PayoutTransition{
			To: model.PayoutStatusCompleted,
		})
	})
}

func (e *PayoutExecutor) submit(p model.Payout, dest model.PayoutDestination) {
	ctx, cancel := context.WithTimeout(context.Background(), payoutStepTimeout)
	defer cancel()
	provider, ok := e.providers.For(p.Method)
	if !ok {
		e.fail(ctx, p, fmt.Errorf("no provider configured for %s", p.Method))
		return
	}
	res, err := provider.CreatePayout(ctx, e.request(p, dest))
	if err != nil {
		e.fail(ctx, p, err)
		return
	}
	ext := res.ExternalID
	t := repository.PayoutTransition{To: res.Status, ExternalID: &ext}
	if res.Status == model.PayoutStatusFailed {
		t.FailureReason = "rejected by provider"
	}
	e.apply(ctx, p, []model.PayoutStatus{model.PayoutStatusPending}, t)
}

func (e *PayoutExecutor) request(p model.Payout, dest model.PayoutDestination) payment.Request {
	return payment.Request{
		PayoutID:    p.ID,
		Amount:      p.Amount,
		Currency:    p.Currency,
		Destination: dest,
	}
}

// Refresh re-queries the provider for an open payout and records any change.
// It reports whether the payout moved.
func (e *PayoutExecutor) Refresh(ctx context.Context, p model.Payout, dest model.PayoutDestination) (bool, error) {
	if p.Status.Terminal() || p.ExternalID == nil || *p.ExternalID == "" {
		return false, nil
	}
	var provider payment.Provider
	if strings.HasPrefix(*p.ExternalID, payment.SimulatedPrefix) {
		if e.sim == nil {
			return false, nil
		}
		provider = e.sim
	} else {
		var ok bool
		if provider, ok = e.providers.For(p.Method); !ok {
			return false, nil
		}
	}
	st, err := provider.FetchStatus(ctx, payment.StatusRequest{
		ExternalID:  *p.ExternalID,
		Destination: dest,
		CreatedAt:   p.CreatedAt,
	})
	if err != nil {
		return false, err
	}
	if st == p.Status {
		return false, nil
	}
	t := repository.PayoutTransition{To: st}
	if st == model.PayoutStatusFailed {
		t.FailureReason = "reported failed by provider"
	}
	return e.apply(ctx, p, []model.PayoutStatus{p.Status}, t), nil
}

func (e *PayoutExecutor) fail(ctx context.Context, p model.Payout, cause error) {
	zap.L().Error("payout failed",
		zap.Uint64("payout_id", p.ID),
		zap.String("method", string(p.Method)),
		zap.Error(cause))
	e.apply(ctx, p, []model.PayoutStatus{model.PayoutStatusPending, model.PayoutStatusProcessing}, repository.PayoutTransition{
		To:            model.PayoutStatusFailed,
		FailureReason: cause.Error(),
	})
}

// apply persists one transition and notifies the maker when it took effect.
func (e *PayoutExecutor) apply(ctx context.Context, p model.Payout, from []model.PayoutStatus, t repository.PayoutTransition) bool {
	if t.At.IsZero() {
		t.At = e.nowFn()
	}
	ok, err := e.payouts.Transition(ctx, p.ID, from, t)
	if err != nil {
		zap.L().Error("payout status update failed",
			zap.Uint64("payout_id", p.ID),
			zap.String("to", string(t.To)),
			zap.Error(err))
		return false
	}
	if !ok {
		zap.L().Debug("payout transition skipped",
			zap.Uint64("payout_id", p.ID),
			zap.String("to", string(t.To)))
		return false
	}
	fields := map[string]interface{}{
		"status":   string(t.To),
		"amount":   p.Amount.StringFixed(2),
		"currency": p.Currency,
		"method":   string(p.Method),
	}
	if t.ExternalID != nil {
		fields["externalId"] = *t.ExternalID
	}
	e.notify.Notify(ctx, p.MakerUID, Note{
		Type:     realtime.EventPayoutStatusUpdate,
		Title:    "Payout " + string(t.To),
		Body:     fmt.Sprintf("Your payout of €%s is %s.", p.Amount.StringFixed(2), t.To),
		PayoutID: uint64Ptr(p.ID),
		Fields:   fields,
	})
	return true
}
