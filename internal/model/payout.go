package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type PayoutStatus string

const (
	PayoutStatusPending    PayoutStatus = "pending"
	PayoutStatusProcessing PayoutStatus = "processing"
	PayoutStatusCompleted  PayoutStatus = "completed"
	PayoutStatusFailed     PayoutStatus = "failed"
)

func (s PayoutStatus) Terminal() bool {
	return s == PayoutStatusCompleted || s == PayoutStatusFailed
}

type Payout struct {
	ID            uint64          `gorm:"primaryKey;autoIncrement"`
	MakerUID      string          `gorm:"column:maker_uid;size:128;index;not null"`
	Amount        decimal.Decimal `gorm:"column:amount;type:decimal(12,2);not null"`
	Currency      string          `gorm:"column:currency;size:8;not null"`
	Method        PayoutMethod    `gorm:"column:method;size:16;not null"`
	Status        PayoutStatus    `gorm:"column:status;size:16;index;not null"`
	ExternalID    *string         `gorm:"column:external_id;size:128;index"`
	FailureReason string          `gorm:"column:failure_reason;type:text"`
	SentAt        *time.Time      `gorm:"column:sent_at"`
	CompletedAt   *time.Time      `gorm:"column:completed_at"`
	CreatedAt     time.Time       `gorm:"column:created_at;not null"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime"`
}

func (Payout) TableName() string {
	return "payouts"
}
