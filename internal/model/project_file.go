package model

import "time"

type ProjectFile struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	ProjectID uint64    `gorm:"column:project_id;not null;index:idx_project_files_project_id"`
	FileName  string    `gorm:"column:file_name;size:255;not null"`
	ObjectKey string    `gorm:"column:object_key;size:512;not null"`
	URL       string    `gorm:"column:url;size:1024;not null"`
	SizeBytes int64     `gorm:"column:size_bytes"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (ProjectFile) TableName() string {
	return "project_files"
}
