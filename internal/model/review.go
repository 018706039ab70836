package model

import "time"

type ReviewDirection string

const (
	ReviewClientToMaker ReviewDirection = "client_to_maker"
	ReviewMakerToClient ReviewDirection = "maker_to_client"
)

type Review struct {
	ID          uint64          `gorm:"primaryKey;autoIncrement"`
	BidID       uint64          `gorm:"column:bid_id;not null;uniqueIndex:uniq_review_bid_direction"`
	Direction   ReviewDirection `gorm:"column:direction;size:24;not null;uniqueIndex:uniq_review_bid_direction"`
	ProjectID   uint64          `gorm:"column:project_id;index;not null"`
	ReviewerUID string          `gorm:"column:reviewer_uid;size:128;not null"`
	RevieweeUID string          `gorm:"column:reviewee_uid;size:128;index;not null"`
	Rating      float64         `gorm:"column:rating;not null"`
	Comment     string          `gorm:"column:comment;type:text"`
	CreatedAt   time.Time       `gorm:"autoCreateTime"`
}

func (Review) TableName() string {
	return "reviews"
}
