package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type EarningSource string

const (
	EarningSourceBid            EarningSource = "bid"
	EarningSourceDesignPurchase EarningSource = "design_purchase"
)

// Earning is an append-only ledger entry. Rows are never updated or deleted.
type Earning struct {
	ID            uint64          `gorm:"primaryKey;autoIncrement"`
	MakerUID      string          `gorm:"column:maker_uid;size:128;index;not null"`
	SourceType    EarningSource   `gorm:"column:source_type;size:24;not null;uniqueIndex:uniq_earning_source"`
	SourceID      uint64          `gorm:"column:source_id;not null;uniqueIndex:uniq_earning_source"`
	Amount        decimal.Decimal `gorm:"column:amount;type:decimal(12,2);not null"`
	RetentionKind PayoutMethod    `gorm:"column:retention_kind;size:16;not null"`
	AvailableDate time.Time       `gorm:"column:available_date;index;not null"`
	CreatedAt     time.Time       `gorm:"column:created_at;not null"`
}

func (Earning) TableName() string {
	return "earnings"
}

// AvailableAt reports whether the retention period has elapsed at now.
func (e *Earning) AvailableAt(now time.Time) bool {
	return !now.Before(e.AvailableDate)
}
