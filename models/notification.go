package models

import "time"

type Notification struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"index" json:"user_id"`
	Type      string     `gorm:"size:30;default:'system'" json:"type"`
	Title     string     `gorm:"size:200" json:"title"`
	Message   string     `json:"message"`
	TaskID    *uint      `json:"task_id"`
	ActionURL string     `gorm:"size:500" json:"action_url"`
	IsRead    bool       `gorm:"default:false" json:"is_read"`
	ReadAt    *time.Time `json:"read_at"`
	CreatedAt time.Time  `json:"created_at"`
}
