package payment

import (
	"context"
	"time"

	"github.com/shinyyama/voxelhub-backend/internal/model"
	"github.com/shopspring/decimal"
)

type CheckoutStatus string

const (
	CheckoutPending CheckoutStatus = "pending"
	CheckoutPaid    CheckoutStatus = "paid"
	CheckoutFailed  CheckoutStatus = "failed"
)

type CheckoutRequest struct {
	PurchaseID  uint64
	Amount      decimal.Decimal
	Currency    string
	Description string
}

// CheckoutSession identifies a buyer payment at the provider. ClientToken is what the
// frontend needs to finish paying: a Stripe client secret or a PayPal approval link.
type CheckoutSession struct {
	Reference   string
	ClientToken string
}

type CheckoutQuery struct {
	Reference string
	Amount    decimal.Decimal
	Currency  string
	CreatedAt time.Time
}

// CheckoutState is the provider's view of a buyer payment. Amount is what was
// actually collected once Status is paid.
type CheckoutState struct {
	Status   CheckoutStatus
	Amount   decimal.Decimal
	Currency string
}

// Checkout collects buyer payments for design purchases.
type Checkout interface {
	CreateCheckout(ctx context.Context, req CheckoutRequest) (CheckoutSession, error)
	FetchCheckout(ctx context.Context, q CheckoutQuery) (CheckoutState, error)
}

type CheckoutRegistry map[model.PayoutMethod]Checkout

func (r CheckoutRegistry) For(m model.PayoutMethod) (Checkout, bool) {
	c, ok := r[m]
	return c, ok && c != nil
}
