// Package policy holds the pure access predicates for lifecycle actions and
// chat room membership. Predicates operate on already-loaded records and an
// explicit Actor; they never touch the database.
package policy

import (
	"github.com/skyloft-tech/AcademiQa/constants"
	"github.com/skyloft-tech/AcademiQa/models"
)

// Actor identifies an authenticated caller. Role is resolved once at the
// authentication boundary and carried explicitly from there on.
type Actor struct {
	ID       uint
	Username string
	Role     string
}

func (a Actor) IsAdmin() bool {
	return a.Role == constants.RoleAdmin
}

// IsTaskClient reports whether the actor owns the task.
func IsTaskClient(task *models.Task, actor Actor) bool {
	return task.ClientID == actor.ID
}

// IsAssignedAdmin reports whether the actor is the task's assigned handler.
func IsAssignedAdmin(task *models.Task, actor Actor) bool {
	return task.AssignedAdminID != nil && *task.AssignedAdminID == actor.ID
}

// CanJoinTaskRoom authorizes membership of the task:<id> realtime room: the
// task's client, its assigned admin, or any admin.
func CanJoinTaskRoom(task *models.Task, actor Actor) bool {
	return IsTaskClient(task, actor) || IsAssignedAdmin(task, actor) || actor.IsAdmin()
}

// CanViewTask mirrors the room predicate for the read API.
func CanViewTask(task *models.Task, actor Actor) bool {
	return CanJoinTaskRoom(task, actor)
}
