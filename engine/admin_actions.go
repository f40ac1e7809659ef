package engine

import (
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/skyloft-tech/AcademiQa/constants"
	"github.com/skyloft-tech/AcademiQa/models"
	"github.com/skyloft-tech/AcademiQa/policy"
)

// AcceptTask assigns the acting admin and starts work at the task's proposed
// budget terms. Re-accepting a previously rejected task is allowed.
func (e *Engine) AcceptTask(actor policy.Actor, taskID uint) (*models.Task, error) {
	if !actor.IsAdmin() {
		return nil, errForbidden("admin role required")
	}

	task, err := e.withTask(taskID, func(tx *gorm.DB, task *models.Task) error {
		if task.Status != constants.TaskStatusSubmitted && task.Status != constants.TaskStatusRejected {
			return errConflict("cannot accept task in %q status", task.Status)
		}
		task.Status = constants.TaskStatusInProgress
		task.AssignedAdminID = ptrUint(actor.ID)
		if task.AcceptedAt == nil {
			now := e.now()
			task.AcceptedAt = &now
		}
		task.Progress = 5
		return nil
	})
	if err != nil {
		return nil, err
	}

	full := e.broadcastTaskUpdate(task.ID)
	e.notifier.TaskStatusUpdate(task.ID,
		fmt.Sprintf("Your task %q has been accepted by %s and work has begun.", task.Title, actor.Username))
	return full, nil
}

// ProposeBudget records an admin counter offer and moves the task into
// negotiation. The proposing admin is provisionally assigned for the duration
// of the negotiation.
func (e *Engine) ProposeBudget(actor policy.Actor, taskID uint, amount float64, reason string) (*models.Task, *models.BudgetProposal, error) {
	if !actor.IsAdmin() {
		return nil, nil, errForbidden("admin role required")
	}
	if amount <= 0 {
		return nil, nil, errValidation("amount", "must be greater than 0")
	}

	var proposal models.BudgetProposal
	task, err := e.withTask(taskID, func(tx *gorm.DB, task *models.Task) error {
		if !inNegotiationStates(task) {
			return errConflict("cannot propose budget in %q status", task.Status)
		}

		proposal = models.BudgetProposal{
			TaskID:       task.ID,
			Amount:       amount,
			Description:  reason,
			ProposedByID: actor.ID,
		}
		if err := tx.Create(&proposal).Error; err != nil {
			return fmt.Errorf("record proposal: %w", err)
		}

		task.AdminCounterBudget = &amount
		task.NegotiationStatus = constants.NegotiationPendingStudentResponse
		task.NegotiationReason = reason
		task.Status = constants.TaskStatusBudgetNegotiation
		task.AssignedAdminID = ptrUint(actor.ID)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	full := e.broadcastTaskUpdate(task.ID)
	e.notifier.CreateNotification(task.ClientID, "Budget Counter-Offer Received",
		fmt.Sprintf("Expert has proposed a counter-offer of $%.2f for your task %q", amount, task.Title),
		ptrUint(task.ID), constants.NotifyBudgetProposed)
	return full, &proposal, nil
}

// AcceptBudget is the admin-side acceptance. The amount it commits to is
// resolved by resolveAcceptedBudget, never by latest-write.
func (e *Engine) AcceptBudget(actor policy.Actor, taskID uint) (*models.Task, error) {
	if !actor.IsAdmin() {
		return nil, errForbidden("admin role required")
	}

	var accepted float64
	task, err := e.withTask(taskID, func(tx *gorm.DB, task *models.Task) error {
		if !inNegotiationStates(task) {
			return errConflict("cannot accept budget in %q status", task.Status)
		}

		amount, source, err := resolveAcceptedBudget(task)
		if err != nil {
			return err
		}
		accepted = amount

		task.Budget = &amount
		task.AcceptedBudgetSource = source
		task.NegotiationStatus = constants.NegotiationAccepted
		task.Status = constants.TaskStatusInProgress
		task.AssignedAdminID = ptrUint(actor.ID)
		if task.AcceptedAt == nil {
			now := e.now()
			task.AcceptedAt = &now
		}
		task.Progress = 5
		return nil
	})
	if err != nil {
		return nil, err
	}

	full := e.broadcastTaskUpdate(task.ID)
	e.notifier.TaskStatusUpdate(task.ID,
		fmt.Sprintf("Expert has accepted your budget of $%.2f and started working on your task.", accepted))
	return full, nil
}

// UpdateProgress clamps the reported progress into [0,100] and optionally
// appends a progress note to the task's chat.
func (e *Engine) UpdateProgress(actor policy.Actor, taskID uint, progress *int, message string) (*models.Task, error) {
	if !actor.IsAdmin() {
		return nil, errForbidden("admin role required")
	}

	task, err := e.withTask(taskID, func(tx *gorm.DB, task *models.Task) error {
		if !policy.IsAssignedAdmin(task, actor) {
			return errForbidden("you are not assigned to this task")
		}
		if progress != nil {
			task.Progress = clampProgress(*progress)
		}
		if message != "" {
			note := models.ChatMessage{
				TaskID:   task.ID,
				SenderID: actor.ID,
				Message:  fmt.Sprintf("Progress Update: %s (Progress: %d%%)", message, task.Progress),
			}
			return tx.Create(&note).Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return e.broadcastTaskUpdate(task.ID), nil
}

// SubmitForReview hands the work over to the client.
func (e *Engine) SubmitForReview(actor policy.Actor, taskID uint) (*models.Task, error) {
	if !actor.IsAdmin() {
		return nil, errForbidden("admin role required")
	}

	task, err := e.withTask(taskID, func(tx *gorm.DB, task *models.Task) error {
		if !policy.IsAssignedAdmin(task, actor) {
			return errForbidden("you are not assigned to this task")
		}
		if task.Status != constants.TaskStatusInProgress && task.Status != constants.TaskStatusRevisionRequested {
			return errConflict("cannot submit for review in %q status", task.Status)
		}
		task.Status = constants.TaskStatusAwaitingReview
		task.Progress = 100
		return nil
	})
	if err != nil {
		return nil, err
	}

	full := e.broadcastTaskUpdate(task.ID)
	e.notifier.TaskStatusUpdate(task.ID,
		fmt.Sprintf("Your task %q is ready for review. Please check the submitted work.", task.Title))
	return full, nil
}

// MarkComplete closes the task from the admin side and credits the admin's
// stats. A second invocation finds the task no longer in an active state and
// fails without a double credit.
func (e *Engine) MarkComplete(actor policy.Actor, taskID uint) (*models.Task, error) {
	if !actor.IsAdmin() {
		return nil, errForbidden("admin role required")
	}

	task, err := e.withTask(taskID, func(tx *gorm.DB, task *models.Task) error {
		if !policy.IsAssignedAdmin(task, actor) {
			return errForbidden("you are not assigned to this task")
		}
		switch task.Status {
		case constants.TaskStatusInProgress, constants.TaskStatusAwaitingReview, constants.TaskStatusRevisionRequested:
		default:
			return errConflict("cannot complete task in %q status", task.Status)
		}

		task.Status = constants.TaskStatusCompleted
		task.Progress = 100
		if task.CompletedAt == nil {
			now := e.now()
			task.CompletedAt = &now
		}

		if task.Budget != nil {
			return creditAdmin(tx, actor.ID, *task.Budget)
		}
		return creditAdmin(tx, actor.ID, 0)
	})
	if err != nil {
		return nil, err
	}

	full := e.broadcastTaskUpdate(task.ID)
	e.notifier.TaskStatusUpdate(task.ID,
		fmt.Sprintf("Your task %q has been completed successfully.", task.Title))
	return full, nil
}

// RejectTask is callable from any status. The rejection timestamp is
// write-once: repeating the action never moves it.
func (e *Engine) RejectTask(actor policy.Actor, taskID uint, reason string) (*models.Task, error) {
	if !actor.IsAdmin() {
		return nil, errForbidden("admin role required")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, errValidation("reason", "is required")
	}

	task, err := e.withTask(taskID, func(tx *gorm.DB, task *models.Task) error {
		task.Status = constants.TaskStatusRejected
		task.RejectReason = reason
		if task.RejectedAt == nil {
			now := e.now()
			task.RejectedAt = &now
		}
		task.AssignedAdminID = nil
		return nil
	})
	if err != nil {
		return nil, err
	}

	full := e.broadcastTaskUpdate(task.ID)
	e.notifier.TaskStatusUpdate(task.ID,
		fmt.Sprintf("Your task %q has been rejected. Reason: %s", task.Title, reason))
	return full, nil
}

// SolutionFile is the stored-file metadata attached by UploadSolution; the
// bytes themselves live outside the engine.
type SolutionFile struct {
	Name     string
	FileType string
	Size     string
	Path     string
}

// UploadSolution attaches a delivered file and forces the task into review.
func (e *Engine) UploadSolution(actor policy.Actor, taskID uint, file SolutionFile) (*models.Task, error) {
	if !actor.IsAdmin() {
		return nil, errForbidden("admin role required")
	}
	if file.Name == "" {
		return nil, errValidation("file", "no file provided")
	}

	task, err := e.withTask(taskID, func(tx *gorm.DB, task *models.Task) error {
		if !policy.IsAssignedAdmin(task, actor) {
			return errForbidden("you are not assigned to this task")
		}
		if task.Status != constants.TaskStatusInProgress && task.Status != constants.TaskStatusRevisionRequested {
			return errConflict("cannot upload a solution in %q status", task.Status)
		}

		record := models.TaskFile{
			TaskID:       task.ID,
			Name:         file.Name,
			FileType:     file.FileType,
			Size:         file.Size,
			Path:         file.Path,
			UploadedByID: actor.ID,
		}
		if err := tx.Create(&record).Error; err != nil {
			return fmt.Errorf("record file: %w", err)
		}

		task.Status = constants.TaskStatusAwaitingReview
		task.Progress = 100
		return nil
	})
	if err != nil {
		return nil, err
	}

	full := e.broadcastTaskUpdate(task.ID)
	e.notifier.TaskStatusUpdate(task.ID,
		fmt.Sprintf("A solution for your task %q has been uploaded and is awaiting your approval.", task.Title))
	return full, nil
}
