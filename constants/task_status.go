package constants

const (
	TaskStatusSubmitted         = "submitted"
	TaskStatusBudgetNegotiation = "budget_negotiation"
	TaskStatusInProgress        = "in_progress"
	TaskStatusAwaitingReview    = "awaiting_review"
	TaskStatusRevisionRequested = "revision_requested"
	TaskStatusCompleted         = "completed"
	TaskStatusWithdrawn         = "withdrawn"
	TaskStatusRejected          = "rejected"
	TaskStatusCancelled         = "cancelled"
	// Written when the client walks away from a budget negotiation.
	// Terminal, recorded separately from withdrawn so the dashboard can
	// tell the two apart.
	TaskStatusBudgetRejected = "budget_rejected"
)

const (
	NegotiationNone                   = "none"
	NegotiationPendingAdminReview     = "pending_admin_review"
	NegotiationPendingStudentResponse = "pending_student_response"
	NegotiationPendingAdminResponse   = "pending_admin_response"
	NegotiationAccepted               = "accepted"
	NegotiationRejected               = "rejected"
)

const (
	RoleClient = "client"
	RoleAdmin  = "admin"
)

const (
	BudgetSourceClient = "client"
	BudgetSourceAdmin  = "admin"
)

const (
	RevisionRequested  = "requested"
	RevisionInProgress = "in_progress"
	RevisionCompleted  = "completed"
	RevisionCancelled  = "cancelled"
)

const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)
