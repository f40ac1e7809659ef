package models

import "time"

type Task struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	TaskID string `gorm:"uniqueIndex;size:20" json:"task_id"`

	ClientID        uint   `gorm:"index" json:"client_id"`
	Client          *User  `json:"client,omitempty"`
	AssignedAdminID *uint  `json:"assigned_admin_id"`
	AssignedAdmin   *User  `json:"assigned_admin,omitempty"`
	CategoryID      *uint  `json:"category_id"`
	Category        *TaskCategory `json:"category,omitempty"`
	TimezoneStr     string `json:"timezone"`

	Subject        string     `gorm:"size:100" json:"subject"`
	Title          string     `gorm:"size:200" json:"title"`
	Description    string     `json:"description"`
	EducationLevel string     `gorm:"size:50" json:"education_level"`
	Deadline       *time.Time `json:"deadline"`

	Status            string `gorm:"size:20;default:'submitted';index" json:"status"`
	NegotiationStatus string `gorm:"size:30;default:'none'" json:"negotiation_status"`
	Priority          string `gorm:"size:10;default:'medium'" json:"priority"`
	Progress          int    `gorm:"default:0" json:"progress"`

	Budget               *float64 `json:"budget"`
	ProposedBudget       float64  `gorm:"default:0" json:"proposed_budget"`
	AdminCounterBudget   *float64 `json:"admin_counter_budget"`
	AcceptedBudgetSource string   `gorm:"size:10" json:"accepted_budget_source"`
	NegotiationReason    string   `json:"negotiation_reason"`

	EstimatedHours int  `gorm:"default:0" json:"estimated_hours"`
	ActualHours    *int `json:"actual_hours"`

	RevisionNote     string `json:"revision_note"`
	CancelReason     string `json:"cancel_reason"`
	RejectReason     string `json:"reject_reason"`
	WithdrawalReason string `json:"withdrawal_reason"`

	CreatedAt   time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	AcceptedAt  *time.Time `json:"accepted_at"`
	CompletedAt *time.Time `json:"completed_at"`
	RejectedAt  *time.Time `json:"rejected_at"`

	WithdrawalDeadline *time.Time `json:"withdrawal_deadline"`
	WithdrawalFee      float64    `gorm:"default:0" json:"withdrawal_fee"`
	CanWithdrawFree    bool       `gorm:"default:true" json:"can_withdraw_free"`

	Files     []TaskFile `json:"files,omitempty"`
	Revisions []Revision `json:"revisions,omitempty"`
}

type TaskCategory struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"uniqueIndex;size:100" json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}
