package model

import "time"

type Role string

const (
	RoleClient Role = "client"
	RoleMaker  Role = "maker"
)

func (r Role) Valid() bool {
	return r == RoleClient || r == RoleMaker
}

type User struct {
	UID         string    `gorm:"column:uid;primaryKey;size:128"`
	Role        Role      `gorm:"column:role;size:16;not null"`
	DisplayName string    `gorm:"column:display_name;size:120"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

func (User) TableName() string {
	return "users"
}
