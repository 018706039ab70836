package payment

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shinyyama/voxelhub-backend/internal/model"
)

const SimulatedPrefix = "sim_"

// Simulator stands in for a provider in development. A payout is processing after
// one step and completed after two.
type Simulator struct {
	step  time.Duration
	nowFn func() time.Time
}

func NewSimulator(step time.Duration) *Simulator {
	return &Simulator{step: step, nowFn: time.Now}
}

func (s *Simulator) Step() time.Duration {
	return s.step
}

func (s *Simulator) CreatePayout(ctx context.Context, req Request) (Result, error) {
	return Result{ExternalID: SimulatedPrefix + uuid.NewString(), Status: model.PayoutStatusProcessing}, nil
}

func (s *Simulator) FetchStatus(ctx context.Context, req StatusRequest) (model.PayoutStatus, error) {
	if s.nowFn().Sub(req.CreatedAt) >= 2*s.step {
		return model.PayoutStatusCompleted, nil
	}
	return model.PayoutStatusProcessing, nil
}

// CreateCheckout opens a simulated buyer payment that settles after one step.
func (s *Simulator) CreateCheckout(ctx context.Context, req CheckoutRequest) (CheckoutSession, error) {
	ref := SimulatedPrefix + "chk_" + uuid.NewString()
	return CheckoutSession{Reference: ref, ClientToken: ref}, nil
}

func (s *Simulator) FetchCheckout(ctx context.Context, q CheckoutQuery) (CheckoutState, error) {
	if s.nowFn().Sub(q.CreatedAt) < s.step {
		return CheckoutState{Status: CheckoutPending}, nil
	}
	return CheckoutState{Status: CheckoutPaid, Amount: q.Amount, Currency: q.Currency}, nil
}
