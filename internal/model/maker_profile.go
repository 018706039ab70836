package model

import (
	"strings"
	"time"
)

type PayoutMethod string

const (
	PayoutMethodStripe PayoutMethod = "stripe"
	PayoutMethodPayPal PayoutMethod = "paypal"
	PayoutMethodBank   PayoutMethod = "bank"
)

func (m PayoutMethod) Valid() bool {
	switch m {
	case PayoutMethodStripe, PayoutMethodPayPal, PayoutMethodBank:
		return true
	}
	return false
}

// MakerProfile is the maker-facing profile including the payout facet.
// Destination columns are populated only for the configured method.
type MakerProfile struct {
	UID             string       `gorm:"column:uid;primaryKey;size:128"`
	DisplayName     string       `gorm:"column:display_name;size:120"`
	Location        string       `gorm:"column:location;size:120"`
	Printers        string       `gorm:"column:printers;type:text"`
	Materials       string       `gorm:"column:materials;type:text"`
	Bio             string       `gorm:"column:bio;type:text"`
	PayoutMethod    PayoutMethod `gorm:"column:payout_method;size:16"`
	BankIBAN        string       `gorm:"column:bank_iban;size:34"`
	BankAccountName string       `gorm:"column:bank_account_name;size:120"`
	PayPalAccountID string       `gorm:"column:paypal_account_id;size:255"`
	StripeAccountID string       `gorm:"column:stripe_account_id;size:64"`
	CreatedAt       time.Time    `gorm:"autoCreateTime"`
	UpdatedAt       time.Time    `gorm:"autoUpdateTime"`
}

func (MakerProfile) TableName() string {
	return "maker_profiles"
}

// Complete reports whether the profile carries enough detail to bid.
func (p *MakerProfile) Complete() bool {
	return strings.TrimSpace(p.DisplayName) != "" &&
		strings.TrimSpace(p.Location) != "" &&
		strings.TrimSpace(p.Printers) != ""
}
