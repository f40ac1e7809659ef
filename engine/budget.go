package engine

import (
	"github.com/skyloft-tech/AcademiQa/constants"
	"github.com/skyloft-tech/AcademiQa/models"
)

// resolveAcceptedBudget decides which amount an admin acceptance commits to.
// The priority is not latest-write-wins. In a 500 → 900 → 700 negotiation
// (client proposes 500, admin counters 900, client counters 700), the admin
// accepting must land on 700:
//
//  1. client has just countered (pending_admin_response) → take proposed_budget
//  2. otherwise an admin counter exists → take admin_counter_budget
//  3. otherwise → take the client's original proposed_budget
//
// Reordering 1 and 2 silently accepts the stale 900.
func resolveAcceptedBudget(task *models.Task) (float64, string, error) {
	if task.NegotiationStatus == constants.NegotiationPendingAdminResponse && task.ProposedBudget > 0 {
		return task.ProposedBudget, constants.BudgetSourceClient, nil
	}
	if task.AdminCounterBudget != nil && *task.AdminCounterBudget > 0 {
		return *task.AdminCounterBudget, constants.BudgetSourceAdmin, nil
	}
	if task.ProposedBudget > 0 {
		return task.ProposedBudget, constants.BudgetSourceClient, nil
	}
	return 0, "", errConflict("no budget available to accept")
}
