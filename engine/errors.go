package engine

import "fmt"

// ValidationError reports a missing or malformed input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// AuthorizationError reports an actor that lacks the role for an action or
// is not the task's client/assigned admin.
type AuthorizationError struct {
	Reason string
}

func (e *AuthorizationError) Error() string {
	return "authorization: " + e.Reason
}

// StateConflictError reports an action that is not valid from the task's
// current (status, negotiation_status), including "no budget available to
// accept".
type StateConflictError struct {
	Reason string
}

func (e *StateConflictError) Error() string {
	return "state conflict: " + e.Reason
}

// NotFoundError reports an unknown record id.
type NotFoundError struct {
	Resource string
	ID       uint
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Resource, e.ID)
}

func errValidation(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

func errForbidden(reason string) error {
	return &AuthorizationError{Reason: reason}
}

func errConflict(format string, args ...any) error {
	return &StateConflictError{Reason: fmt.Sprintf(format, args...)}
}

func errNotFound(resource string, id uint) error {
	return &NotFoundError{Resource: resource, ID: id}
}
