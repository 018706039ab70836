package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Design struct {
	ID          uint64          `gorm:"primaryKey;autoIncrement"`
	MakerUID    string          `gorm:"column:maker_uid;size:128;index;not null"`
	Title       string          `gorm:"size:120;not null"`
	Description string          `gorm:"type:text;not null"`
	Price       decimal.Decimal `gorm:"column:price;type:decimal(12,2);not null"`
	FileURL     *string         `gorm:"column:file_url;size:1024"`
	CreatedAt   time.Time       `gorm:"autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime"`
}

func (Design) TableName() string {
	return "designs"
}
