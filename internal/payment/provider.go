package payment

import (
	"context"
	"errors"
	"time"

	"github.com/shinyyama/voxelhub-backend/internal/model"
	"github.com/shopspring/decimal"
)

var ErrUnsupportedDestination = errors.New("payout destination not supported by provider")

type Request struct {
	PayoutID    uint64
	Amount      decimal.Decimal
	Currency    string
	Destination model.PayoutDestination
}

type Result struct {
	ExternalID string
	Status     model.PayoutStatus
}

type StatusRequest struct {
	ExternalID  string
	Destination model.PayoutDestination
	CreatedAt   time.Time
}

// Provider submits payouts to an external payment system and reports their status
// mapped onto the local payout statuses.
type Provider interface {
	CreatePayout(ctx context.Context, req Request) (Result, error)
	FetchStatus(ctx context.Context, req StatusRequest) (model.PayoutStatus, error)
}

// Registry picks the provider for a payout method.
type Registry map[model.PayoutMethod]Provider

func (r Registry) For(m model.PayoutMethod) (Provider, bool) {
	p, ok := r[m]
	return p, ok && p != nil
}
