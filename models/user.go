package models

import "time"

type User struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Username       string    `gorm:"uniqueIndex;size:150" json:"username"`
	Email          string    `gorm:"uniqueIndex;size:254" json:"email"`
	Password       string    `json:"-"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	Role           string    `gorm:"size:10;default:'client'" json:"role"`
	Phone          string    `json:"phone"`
	EducationLevel string    `json:"education_level"`
	Expertise      string    `json:"expertise"`
	Avatar         string    `json:"avatar"`
	Rating         *float64  `json:"rating"`
	CompletedTasks int       `gorm:"default:0" json:"completed_tasks"`
	Earnings       float64   `gorm:"default:0" json:"earnings"`
	IsVerified     bool      `gorm:"default:false" json:"is_verified"`
	IsSuspended    bool      `gorm:"default:false" json:"is_suspended"`
	IsActive       bool      `gorm:"default:true" json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
}

func (u User) FullName() string {
	if u.FirstName == "" && u.LastName == "" {
		return u.Username
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
