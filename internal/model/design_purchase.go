package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type DesignPurchaseStatus string

const (
	DesignPurchaseStatusPendingPayment DesignPurchaseStatus = "pending_payment"
	DesignPurchaseStatusCompleted      DesignPurchaseStatus = "completed"
	DesignPurchaseStatusCanceled       DesignPurchaseStatus = "canceled"
)

type DesignPurchase struct {
	ID            uint64               `gorm:"primaryKey;autoIncrement"`
	DesignID      uint64               `gorm:"column:design_id;index;not null"`
	BuyerUID      string               `gorm:"column:buyer_uid;size:128;index;not null"`
	MakerUID      string               `gorm:"column:maker_uid;size:128;index;not null"`
	Amount        decimal.Decimal      `gorm:"column:amount;type:decimal(12,2);not null"`
	PaymentMethod PayoutMethod         `gorm:"column:payment_method;size:16;not null"`
	PaymentRef    *string              `gorm:"column:payment_ref;size:128;index"`
	Status        DesignPurchaseStatus `gorm:"column:status;size:32;not null"`
	CompletedAt   *time.Time           `gorm:"column:completed_at"`
	CreatedAt     time.Time            `gorm:"autoCreateTime"`
	UpdatedAt     time.Time            `gorm:"autoUpdateTime"`

	// CheckoutToken is handed to the buyer once when checkout starts.
	CheckoutToken string `gorm:"-"`
}

func (DesignPurchase) TableName() string {
	return "design_purchases"
}
