package constants

const (
	NotifyTaskCreated         = "task_created"
	NotifyTaskAccepted        = "task_accepted"
	NotifyTaskApproved        = "task_approved"
	NotifyTaskCompleted       = "task_completed"
	NotifyTaskWithdrawn       = "task_withdrawn"
	NotifyTaskRejected        = "task_rejected"
	NotifyMessageReceived     = "message_received"
	NotifyBudgetProposed      = "budget_proposed"
	NotifyBudgetAccepted      = "budget_accepted"
	NotifyBudgetCountered     = "budget_countered"
	NotifyBudgetRejected      = "budget_rejected"
	NotifyRevisionRequested   = "revision_requested"
	NotifyDeadlineApproaching = "deadline_approaching"
	NotifySystem              = "system"
)
