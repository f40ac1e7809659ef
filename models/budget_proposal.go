package models

import "time"

// BudgetProposal is an append-only audit row. The Task's budget fields are
// the current negotiation state; these rows are its history and are never
// mutated after creation.
type BudgetProposal struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	TaskID       uint      `gorm:"index" json:"task_id"`
	Amount       float64   `json:"amount"`
	Description  string    `json:"description"`
	ProposedByID uint      `json:"proposed_by_id"`
	ProposedBy   *User     `json:"proposed_by,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
