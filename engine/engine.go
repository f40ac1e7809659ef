package engine

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/skyloft-tech/AcademiQa/models"
)

// Engine applies lifecycle actions to tasks. Every action runs inside a
// per-task transaction: validate against current state and actor, mutate,
// persist, then broadcast the fully reloaded task. Nothing is published on
// failure.
type Engine struct {
	db       *gorm.DB
	hub      Publisher
	notifier Notifier

	withdrawalGrace time.Duration
	now             func() time.Time
}

func New(db *gorm.DB, hub Publisher, notifier Notifier, withdrawalGrace time.Duration) *Engine {
	return &Engine{
		db:              db,
		hub:             hub,
		notifier:        notifier,
		withdrawalGrace: withdrawalGrace,
		now:             time.Now,
	}
}

// SetClock overrides the engine's time source. Tests use this to pin the
// withdrawal deadline check.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// withTask is the atomic read-validate-mutate-write wrapper around a single
// task row. On MySQL the row is locked for the duration of the transaction
// so concurrent conflicting actions serialize; SQLite serializes writers on
// its own and rejects FOR UPDATE.
func (e *Engine) withTask(taskID uint, fn func(tx *gorm.DB, task *models.Task) error) (*models.Task, error) {
	var task models.Task
	err := e.db.Transaction(func(tx *gorm.DB) error {
		q := tx
		if tx.Dialector.Name() == "mysql" {
			q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		if err := q.First(&task, taskID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errNotFound("task", taskID)
			}
			return fmt.Errorf("load task %d: %w", taskID, err)
		}
		if err := fn(tx, &task); err != nil {
			return err
		}
		if err := tx.Save(&task).Error; err != nil {
			return fmt.Errorf("save task %d: %w", taskID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// Reload fetches the full current representation of a task, the same shape
// every broadcast carries.
func (e *Engine) Reload(taskID uint) (*models.Task, error) {
	var task models.Task
	err := e.db.
		Preload("Client").
		Preload("AssignedAdmin").
		Preload("Category").
		Preload("Files").
		Preload("Revisions").
		First(&task, taskID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errNotFound("task", taskID)
		}
		return nil, err
	}
	return &task, nil
}

// broadcastTaskUpdate fans the committed task out to its room, the admin
// dashboard, and the owning client's own connections. Always the full
// representation, never a diff.
func (e *Engine) broadcastTaskUpdate(taskID uint) *models.Task {
	task, err := e.Reload(taskID)
	if err != nil {
		return nil
	}
	payload := map[string]any{"type": "task_updated", "task": task}
	e.hub.Publish(TaskRoom(task.ID), payload)
	e.hub.Publish(DashboardRoom, payload)
	e.hub.Publish(ClientRoom(task.ClientID), payload)
	return task
}

func ptrUint(v uint) *uint {
	return &v
}

func clampProgress(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
