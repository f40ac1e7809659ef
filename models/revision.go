package models

import "time"

type Revision struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	TaskID        uint       `gorm:"index" json:"task_id"`
	RequestedByID uint       `json:"requested_by_id"`
	RequestedBy   *User      `json:"requested_by,omitempty"`
	Feedback      string     `json:"feedback"`
	Status        string     `gorm:"size:20;default:'requested'" json:"status"`
	AdminNotes    string     `json:"admin_notes"`
	RequestedAt   time.Time  `gorm:"autoCreateTime" json:"requested_at"`
	CompletedAt   *time.Time `json:"completed_at"`
}
