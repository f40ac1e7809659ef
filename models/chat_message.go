package models

import "time"

type ChatMessage struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	TaskID   uint   `gorm:"index" json:"task_id"`
	SenderID uint   `json:"sender_id"`
	Sender   *User  `json:"sender,omitempty"`
	Message  string `json:"message"`
	FileName string `json:"file_name"`
	FileURL  string `json:"file_url"`

	IsRead    bool       `gorm:"default:false" json:"is_read"`
	ReadAt    *time.Time `json:"read_at"`
	CreatedAt time.Time  `gorm:"index" json:"created_at"`
}
