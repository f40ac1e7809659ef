package engine

import (
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/skyloft-tech/AcademiQa/constants"
	"github.com/skyloft-tech/AcademiQa/models"
	"github.com/skyloft-tech/AcademiQa/policy"
)

func inNegotiationStates(task *models.Task) bool {
	return task.Status == constants.TaskStatusSubmitted ||
		task.Status == constants.TaskStatusBudgetNegotiation
}

// ClientAcceptBudget accepts the admin's counter offer and starts work.
func (e *Engine) ClientAcceptBudget(actor policy.Actor, taskID uint) (*models.Task, error) {
	task, err := e.withTask(taskID, func(tx *gorm.DB, task *models.Task) error {
		if !policy.IsTaskClient(task, actor) {
			return errForbidden("only the task's client may accept a counter offer")
		}
		if task.AdminCounterBudget == nil {
			return errConflict("no counter budget available to accept")
		}
		if !inNegotiationStates(task) {
			return errConflict("cannot accept budget in %q status", task.Status)
		}

		amount := *task.AdminCounterBudget
		task.Budget = &amount
		task.AcceptedBudgetSource = constants.BudgetSourceAdmin
		task.NegotiationStatus = constants.NegotiationAccepted
		task.Status = constants.TaskStatusInProgress
		if task.AcceptedAt == nil {
			now := e.now()
			task.AcceptedAt = &now
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	full := e.broadcastTaskUpdate(task.ID)
	if task.AssignedAdminID != nil {
		e.notifier.CreateNotification(*task.AssignedAdminID, "Budget Accepted",
			fmt.Sprintf("Client accepted your budget proposal of $%.2f for task %q", *task.Budget, task.Title),
			ptrUint(task.ID), constants.NotifyBudgetAccepted)
	}
	return full, nil
}

// ClientCounterBudget records the client's counter offer.
func (e *Engine) ClientCounterBudget(actor policy.Actor, taskID uint, amount float64, reason string) (*models.Task, error) {
	if amount <= 0 {
		return nil, errValidation("amount", "must be greater than 0")
	}

	task, err := e.withTask(taskID, func(tx *gorm.DB, task *models.Task) error {
		if !policy.IsTaskClient(task, actor) {
			return errForbidden("only the task's client may counter the budget")
		}
		if !inNegotiationStates(task) {
			return errConflict("cannot counter budget in %q status", task.Status)
		}

		proposal := models.BudgetProposal{
			TaskID:       task.ID,
			Amount:       amount,
			Description:  reason,
			ProposedByID: actor.ID,
		}
		if err := tx.Create(&proposal).Error; err != nil {
			return fmt.Errorf("record proposal: %w", err)
		}

		task.ProposedBudget = amount
		task.NegotiationStatus = constants.NegotiationPendingAdminResponse
		task.Status = constants.TaskStatusBudgetNegotiation
		task.NegotiationReason = reason
		return nil
	})
	if err != nil {
		return nil, err
	}

	full := e.broadcastTaskUpdate(task.ID)
	if task.AssignedAdminID != nil {
		e.notifier.CreateNotification(*task.AssignedAdminID, "Budget Counter-Offer Received",
			fmt.Sprintf("Client countered with $%.2f for task %q", amount, task.Title),
			ptrUint(task.ID), constants.NotifyBudgetCountered)
	}
	return full, nil
}

// ClientRejectBudget ends the negotiation. Terminal for this path.
func (e *Engine) ClientRejectBudget(actor policy.Actor, taskID uint) (*models.Task, error) {
	task, err := e.withTask(taskID, func(tx *gorm.DB, task *models.Task) error {
		if !policy.IsTaskClient(task, actor) {
			return errForbidden("only the task's client may reject the budget")
		}
		if !inNegotiationStates(task) {
			return errConflict("cannot reject budget in %q status", task.Status)
		}
		task.NegotiationStatus = constants.NegotiationRejected
		task.Status = constants.TaskStatusBudgetRejected
		return nil
	})
	if err != nil {
		return nil, err
	}

	full := e.broadcastTaskUpdate(task.ID)
	if task.AssignedAdminID != nil {
		e.notifier.CreateNotification(*task.AssignedAdminID, "Budget Rejected",
			fmt.Sprintf("Client rejected the budget negotiation for task %q", task.Title),
			ptrUint(task.ID), constants.NotifyBudgetRejected)
	}
	return full, nil
}

func (e *Engine) canWithdraw(task *models.Task) bool {
	if inNegotiationStates(task) {
		return true
	}
	if task.Status == constants.TaskStatusInProgress && task.WithdrawalDeadline != nil {
		return e.now().Before(*task.WithdrawalDeadline)
	}
	return false
}

// ClientWithdraw pulls the task out of the pipeline. In-progress tasks are
// withdrawable only until the deadline fixed at creation; the check happens
// here at action time, never by a background timer.
func (e *Engine) ClientWithdraw(actor policy.Actor, taskID uint, reason string) (*models.Task, error) {
	task, err := e.withTask(taskID, func(tx *gorm.DB, task *models.Task) error {
		if !policy.IsTaskClient(task, actor) {
			return errForbidden("only the task's client may withdraw it")
		}
		if !e.canWithdraw(task) {
			return errConflict("this task cannot be withdrawn")
		}
		task.Status = constants.TaskStatusWithdrawn
		task.WithdrawalReason = reason
		return nil
	})
	if err != nil {
		return nil, err
	}

	full := e.broadcastTaskUpdate(task.ID)
	if task.AssignedAdminID != nil {
		e.notifier.CreateNotification(*task.AssignedAdminID, "Task Withdrawn",
			fmt.Sprintf("Client withdrew task %q. Reason: %s", task.Title, reason),
			ptrUint(task.ID), constants.NotifyTaskWithdrawn)
	}
	return full, nil
}

// ClientApprove completes a task awaiting review and credits the assigned
// admin's completed count and earnings in the same transaction.
func (e *Engine) ClientApprove(actor policy.Actor, taskID uint) (*models.Task, error) {
	task, err := e.withTask(taskID, func(tx *gorm.DB, task *models.Task) error {
		if !policy.IsTaskClient(task, actor) {
			return errForbidden("only the task's client may approve it")
		}
		if task.Status != constants.TaskStatusAwaitingReview {
			return errConflict("can only approve tasks that are awaiting review")
		}

		task.Status = constants.TaskStatusCompleted
		if task.CompletedAt == nil {
			now := e.now()
			task.CompletedAt = &now
		}

		if task.AssignedAdminID != nil && task.Budget != nil {
			return creditAdmin(tx, *task.AssignedAdminID, *task.Budget)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	full := e.broadcastTaskUpdate(task.ID)
	if task.AssignedAdminID != nil {
		e.notifier.CreateNotification(*task.AssignedAdminID, "Task Approved",
			fmt.Sprintf("Client approved and completed task %q", task.Title),
			ptrUint(task.ID), constants.NotifyTaskApproved)
	}
	return full, nil
}

// ClientRequestRevision sends an awaiting-review task back with feedback.
func (e *Engine) ClientRequestRevision(actor policy.Actor, taskID uint, feedback string) (*models.Task, *models.Revision, error) {
	feedback = strings.TrimSpace(feedback)
	if feedback == "" {
		return nil, nil, errValidation("feedback", "is required")
	}

	var revision models.Revision
	task, err := e.withTask(taskID, func(tx *gorm.DB, task *models.Task) error {
		if !policy.IsTaskClient(task, actor) {
			return errForbidden("only the task's client may request a revision")
		}
		if task.Status != constants.TaskStatusAwaitingReview {
			return errConflict("can only request revision for tasks awaiting review")
		}

		task.Status = constants.TaskStatusRevisionRequested
		task.RevisionNote = feedback

		revision = models.Revision{
			TaskID:        task.ID,
			RequestedByID: actor.ID,
			Feedback:      feedback,
			Status:        constants.RevisionRequested,
		}
		return tx.Create(&revision).Error
	})
	if err != nil {
		return nil, nil, err
	}

	full := e.broadcastTaskUpdate(task.ID)
	if task.AssignedAdminID != nil {
		e.notifier.CreateNotification(*task.AssignedAdminID, "Revision Requested",
			fmt.Sprintf("Client requested revision for task %q. Feedback: %s", task.Title, feedback),
			ptrUint(task.ID), constants.NotifyRevisionRequested)
	}
	return full, &revision, nil
}

func creditAdmin(tx *gorm.DB, adminID uint, amount float64) error {
	return tx.Model(&models.User{}).Where("id = ?", adminID).Updates(map[string]any{
		"completed_tasks": gorm.Expr("completed_tasks + 1"),
		"earnings":        gorm.Expr("earnings + ?", amount),
	}).Error
}
