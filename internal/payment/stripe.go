package payment

import (
	"context"
	"fmt"
	"strconv"

	"github.com/shinyyama/voxelhub-backend/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// StripeProvider pays out from a maker's connected account balance and collects
// design purchases through PaymentIntents on the platform account.
type StripeProvider struct {
	api *client.API
}

func NewStripeProvider(secretKey string) *StripeProvider {
	return &StripeProvider{api: client.New(secretKey, nil)}
}

func (p *StripeProvider) CreatePayout(ctx context.Context, req Request) (Result, error) {
	dest, ok := req.Destination.(model.StripeDestination)
	if !ok {
		return Result{}, ErrUnsupportedDestination
	}
	params := &stripe.PayoutParams{
		Amount:   stripe.Int64(minorUnits(req.Amount)),
		Currency: stripe.String(req.Currency),
	}
	params.Context = ctx
	params.SetStripeAccount(dest.ConnectAccountID)
	params.SetIdempotencyKey("voxelhub-payout-" + strconv.FormatUint(req.PayoutID, 10))
	params.AddMetadata("payout_id", strconv.FormatUint(req.PayoutID, 10))

	po, err := p.api.Payouts.New(params)
	if err != nil {
		return Result{}, fmt.Errorf("stripe payout: %w", err)
	}
	return Result{ExternalID: po.ID, Status: StripeStatus(po.Status)}, nil
}

func (p *StripeProvider) FetchStatus(ctx context.Context, req StatusRequest) (model.PayoutStatus, error) {
	params := &stripe.PayoutParams{}
	params.Context = ctx
	if dest, ok := req.Destination.(model.StripeDestination); ok {
		params.SetStripeAccount(dest.ConnectAccountID)
	}
	po, err := p.api.Payouts.Get(req.ExternalID, params)
	if err != nil {
		return "", fmt.Errorf("stripe payout %s: %w", req.ExternalID, err)
	}
	return StripeStatus(po.Status), nil
}

func StripeStatus(s stripe.PayoutStatus) model.PayoutStatus {
	switch s {
	case stripe.PayoutStatusPaid:
		return model.PayoutStatusCompleted
	case stripe.PayoutStatusFailed, stripe.PayoutStatusCanceled:
		return model.PayoutStatusFailed
	}
	return model.PayoutStatusProcessing
}

func (p *StripeProvider) CreateCheckout(ctx context.Context, req CheckoutRequest) (CheckoutSession, error) {
	params := &stripe.PaymentIntentParams{
		Amount:      stripe.Int64(minorUnits(req.Amount)),
		Currency:    stripe.String(req.Currency),
		Description: stripe.String(req.Description),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	params.SetIdempotencyKey("voxelhub-design-purchase-" + strconv.FormatUint(req.PurchaseID, 10))
	params.AddMetadata("design_purchase_id", strconv.FormatUint(req.PurchaseID, 10))

	pi, err := p.api.PaymentIntents.New(params)
	if err != nil {
		return CheckoutSession{}, fmt.Errorf("stripe payment intent: %w", err)
	}
	return CheckoutSession{Reference: pi.ID, ClientToken: pi.ClientSecret}, nil
}

func (p *StripeProvider) FetchCheckout(ctx context.Context, q CheckoutQuery) (CheckoutState, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := p.api.PaymentIntents.Get(q.Reference, params)
	if err != nil {
		return CheckoutState{}, fmt.Errorf("stripe payment intent %s: %w", q.Reference, err)
	}
	return CheckoutState{
		Status:   StripeCheckoutStatus(pi.Status),
		Amount:   decimal.New(pi.AmountReceived, -2),
		Currency: string(pi.Currency),
	}, nil
}

// StripeCheckoutStatus maps a PaymentIntent status. A declined card leaves the intent
// in requires_payment_method, where the buyer may still retry.
func StripeCheckoutStatus(s stripe.PaymentIntentStatus) CheckoutStatus {
	switch s {
	case stripe.PaymentIntentStatusSucceeded:
		return CheckoutPaid
	case stripe.PaymentIntentStatusCanceled:
		return CheckoutFailed
	}
	return CheckoutPending
}

func minorUnits(d decimal.Decimal) int64 {
	return d.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
