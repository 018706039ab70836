package model

import "errors"

var ErrNoPayoutDestination = errors.New("no payout method configured")

// PayoutDestination is one of BankDestination, PayPalDestination or StripeDestination.
type PayoutDestination interface {
	Method() PayoutMethod
	isPayoutDestination()
}

type BankDestination struct {
	IBAN          string
	AccountHolder string
}

type PayPalDestination struct {
	AccountID string
}

type StripeDestination struct {
	ConnectAccountID string
}

func (BankDestination) Method() PayoutMethod   { return PayoutMethodBank }
func (PayPalDestination) Method() PayoutMethod { return PayoutMethodPayPal }
func (StripeDestination) Method() PayoutMethod { return PayoutMethodStripe }

func (BankDestination) isPayoutDestination()   {}
func (PayPalDestination) isPayoutDestination() {}
func (StripeDestination) isPayoutDestination() {}

// Destination rebuilds the configured variant from the stored columns.
func (p *MakerProfile) Destination() (PayoutDestination, error) {
	switch p.PayoutMethod {
	case PayoutMethodBank:
		if p.BankIBAN == "" {
			return nil, ErrNoPayoutDestination
		}
		return BankDestination{IBAN: p.BankIBAN, AccountHolder: p.BankAccountName}, nil
	case PayoutMethodPayPal:
		if p.PayPalAccountID == "" {
			return nil, ErrNoPayoutDestination
		}
		return PayPalDestination{AccountID: p.PayPalAccountID}, nil
	case PayoutMethodStripe:
		if p.StripeAccountID == "" {
			return nil, ErrNoPayoutDestination
		}
		return StripeDestination{ConnectAccountID: p.StripeAccountID}, nil
	}
	return nil, ErrNoPayoutDestination
}

// SetDestination stores d and clears the columns of every other variant.
func (p *MakerProfile) SetDestination(d PayoutDestination) {
	p.BankIBAN, p.BankAccountName = "", ""
	p.PayPalAccountID = ""
	p.StripeAccountID = ""
	switch v := d.(type) {
	case BankDestination:
		p.BankIBAN = v.IBAN
		p.BankAccountName = v.AccountHolder
	case PayPalDestination:
		p.PayPalAccountID = v.AccountID
	case StripeDestination:
		p.StripeAccountID = v.ConnectAccountID
	}
	p.PayoutMethod = d.Method()
}
