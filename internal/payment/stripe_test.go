package payment

import (
	"testing"

	"github.com/shinyyama/voxelhub-backend/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stripe/stripe-go/v76"
)

func TestStripeStatus(t *testing.T) {
	tests := []struct {
		in   stripe.PayoutStatus
		want model.PayoutStatus
	}{
		{stripe.PayoutStatusPaid, model.PayoutStatusCompleted},
		{stripe.PayoutStatusInTransit, model.PayoutStatusProcessing},
		{stripe.PayoutStatusPending, model.PayoutStatusProcessing},
		{stripe.PayoutStatusFailed, model.PayoutStatusFailed},
		{stripe.PayoutStatusCanceled, model.PayoutStatusFailed},
	}
	for _, tt := range tests {
		t.Run(string(tt.in), func(t *testing.T) {
			assert.Equal(t, tt.want, StripeStatus(tt.in))
		})
	}
}

func TestStripeCheckoutStatus(t *testing.T) {
	tests := []struct {
		in   stripe.PaymentIntentStatus
		want CheckoutStatus
	}{
		{stripe.PaymentIntentStatusSucceeded, CheckoutPaid},
		{stripe.PaymentIntentStatusProcessing, CheckoutPending},
		{stripe.PaymentIntentStatusRequiresPaymentMethod, CheckoutPending},
		{stripe.PaymentIntentStatusRequiresAction, CheckoutPending},
		{stripe.PaymentIntentStatusCanceled, CheckoutFailed},
	}
	for _, tt := range tests {
		t.Run(string(tt.in), func(t *testing.T) {
			assert.Equal(t, tt.want, StripeCheckoutStatus(tt.in))
		})
	}
}

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(2550), minorUnits(decimal.RequireFromString("25.50")))
	assert.Equal(t, int64(1000), minorUnits(decimal.NewFromInt(10)))
}
