package models

import "time"

type TaskFile struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	TaskID       uint      `gorm:"index" json:"task_id"`
	Name         string    `gorm:"size:255" json:"name"`
	FileType     string    `gorm:"size:20" json:"file_type"`
	Size         string    `gorm:"size:20" json:"size"`
	Path         string    `gorm:"size:500" json:"-"`
	Description  string    `json:"description"`
	UploadedByID uint      `json:"uploaded_by_id"`
	UploadedAt   time.Time `gorm:"autoCreateTime" json:"uploaded_at"`
}
