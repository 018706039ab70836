package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type BidStatus string

const (
	BidStatusPending  BidStatus = "pending"
	BidStatusAccepted BidStatus = "accepted"
	BidStatusRejected BidStatus = "rejected"
)

type Bid struct {
	ID                  uint64          `gorm:"primaryKey;autoIncrement"`
	ProjectID           uint64          `gorm:"column:project_id;index;not null"`
	MakerUID            string          `gorm:"column:maker_uid;size:128;index;not null"`
	Price               decimal.Decimal `gorm:"column:price;type:decimal(12,2);not null"`
	DeliveryDays        int             `gorm:"column:delivery_days;not null"`
	Message             string          `gorm:"column:message;type:text"`
	Status              BidStatus       `gorm:"column:status;size:16;index;not null"`
	IsRead              bool            `gorm:"column:is_read;not null;default:false"`
	DeliveryConfirmedAt *time.Time      `gorm:"column:delivery_confirmed_at"`
	CreatedAt           time.Time       `gorm:"autoCreateTime"`
	UpdatedAt           time.Time       `gorm:"autoUpdateTime"`
}

func (Bid) TableName() string {
	return "bids"
}
