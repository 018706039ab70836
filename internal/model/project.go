package model

import (
	"time"

	"gorm.io/gorm"
)

type ProjectStatus string

const (
	ProjectStatusActive    ProjectStatus = "active"
	ProjectStatusReserved  ProjectStatus = "reserved"
	ProjectStatusCompleted ProjectStatus = "completed"
)

const MaxProjectFiles = 10

type Project struct {
	ID          uint64         `gorm:"primaryKey;autoIncrement"`
	OwnerUID    string         `gorm:"column:owner_uid;size:128;index;not null"`
	Title       string         `gorm:"size:120;not null"`
	Description string         `gorm:"type:text"`
	Material    string         `gorm:"size:64;not null"`
	WidthMM     float64        `gorm:"column:width_mm"`
	DepthMM     float64        `gorm:"column:depth_mm"`
	HeightMM    float64        `gorm:"column:height_mm"`
	Quantity    int            `gorm:"not null;default:1"`
	Status      ProjectStatus  `gorm:"column:status;size:16;index;not null"`
	Files       []ProjectFile  `gorm:"foreignKey:ProjectID"`
	CreatedAt   time.Time      `gorm:"autoCreateTime"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime"`
	DeletedAt   gorm.DeletedAt `gorm:"index"`
}

func (Project) TableName() string {
	return "projects"
}

func (p *Project) Deleted() bool {
	return p.DeletedAt.Valid
}

// AcceptingBids is true only for live projects that have not been awarded.
func (p *Project) AcceptingBids() bool {
	return !p.Deleted() && p.Status == ProjectStatusActive
}
