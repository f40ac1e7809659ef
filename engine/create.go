package engine

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/skyloft-tech/AcademiQa/constants"
	"github.com/skyloft-tech/AcademiQa/models"
	"github.com/skyloft-tech/AcademiQa/policy"
)

type CreateTaskInput struct {
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Subject        string     `json:"subject"`
	EducationLevel string     `json:"education_level"`
	Deadline       *time.Time `json:"deadline"`
	ProposedBudget float64    `json:"proposed_budget"`
	CategoryID     *uint      `json:"category_id"`
	Timezone       string     `json:"timezone"`
	Priority       string     `json:"priority"`
	EstimatedHours int        `json:"estimated_hours"`
}

// CreateTask submits a new task for the acting client. The display token and
// the withdrawal deadline are minted exactly once here; neither is ever
// recomputed.
func (e *Engine) CreateTask(actor policy.Actor, in CreateTaskInput) (*models.Task, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, errValidation("title", "is required")
	}
	if strings.TrimSpace(in.Description) == "" {
		return nil, errValidation("description", "is required")
	}
	if in.ProposedBudget < 0 {
		return nil, errValidation("proposed_budget", "must not be negative")
	}

	now := e.now()
	deadline := now.Add(e.withdrawalGrace)
	task := models.Task{
		ClientID:           actor.ID,
		CategoryID:         in.CategoryID,
		TimezoneStr:        in.Timezone,
		Subject:            in.Subject,
		Title:              in.Title,
		Description:        in.Description,
		EducationLevel:     in.EducationLevel,
		Deadline:           in.Deadline,
		Status:             constants.TaskStatusSubmitted,
		NegotiationStatus:  constants.NegotiationNone,
		Priority:           in.Priority,
		Progress:           0,
		ProposedBudget:     in.ProposedBudget,
		EstimatedHours:     in.EstimatedHours,
		WithdrawalDeadline: &deadline,
		CanWithdrawFree:    true,
	}
	if task.Priority == "" {
		task.Priority = constants.PriorityMedium
	}

	err := e.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&task).Error; err != nil {
			return fmt.Errorf("create task: %w", err)
		}
		task.TaskID = fmt.Sprintf("TSK%04d", task.ID)
		return tx.Model(&task).Update("task_id", task.TaskID).Error
	})
	if err != nil {
		return nil, err
	}

	full, err := e.Reload(task.ID)
	if err != nil {
		return nil, err
	}
	e.hub.Publish(DashboardRoom, map[string]any{"type": "task_created", "task": full})
	e.notifier.NewTask(task.ID)
	return full, nil
}
