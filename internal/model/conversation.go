package model

import "time"

type Conversation struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	ProjectID uint64    `gorm:"column:project_id;index:idx_project_maker,unique" json:"projectId"`
	ClientUID string    `gorm:"column:client_uid;size:128;index" json:"clientUid"`
	MakerUID  string    `gorm:"column:maker_uid;size:128;index:idx_project_maker,unique" json:"makerUid"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Conversation) TableName() string {
	return "conversations"
}

func (c *Conversation) Participant(uid string) bool {
	return uid != "" && (uid == c.ClientUID || uid == c.MakerUID)
}

// Counterpart returns the other participant of the conversation.
func (c *Conversation) Counterpart(uid string) string {
	if uid == c.ClientUID {
		return c.MakerUID
	}
	return c.ClientUID
}
