// Package notify turns lifecycle and chat events into durable in-app
// notifications and outbound email. Delivery is asynchronous, at-least-once
// and not idempotent: a retry that re-enqueues may produce a duplicate
// notification, which is acceptable for this domain. Failures are logged and
// dropped; they never surface to the action that triggered them.
package notify

import (
	"log/slog"
	"sync"

	"gorm.io/gorm"

	"github.com/skyloft-tech/AcademiQa/constants"
	"github.com/skyloft-tech/AcademiQa/models"
)

const (
	kindNotification = "notification"
	kindStatusUpdate = "status_update"
	kindNewTask      = "new_task"
	kindChatMessage  = "chat_message"
)

type event struct {
	kind string

	userID    uint
	title     string
	message   string
	taskID    *uint
	notifType string

	statusMessage string
	chatMessageID uint
}

type Dispatcher struct {
	db          *gorm.DB
	mailer      Mailer
	extraAdmins []string
	logger      *slog.Logger

	queue chan event
	wg    sync.WaitGroup
}

func NewDispatcher(db *gorm.DB, mailer Mailer, extraAdmins []string, queueSize, workers int, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if queueSize <= 0 {
		queueSize = 256
	}
	if workers <= 0 {
		workers = 4
	}
	d := &Dispatcher{
		db:          db,
		mailer:      mailer,
		extraAdmins: extraAdmins,
		logger:      logger,
		queue:       make(chan event, queueSize),
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

// Stop drains the queue and waits for in-flight work. No new events may be
// enqueued after Stop.
func (d *Dispatcher) Stop() {
	close(d.queue)
	d.wg.Wait()
}

// enqueue never blocks the caller; when the queue is full the event is
// dropped and logged, which the at-most-once producer side tolerates.
func (d *Dispatcher) enqueue(ev event) {
	select {
	case d.queue <- ev:
	default:
		d.logger.Warn("notification queue full, dropping event", "kind", ev.kind)
	}
}

// CreateNotification persists one in-app notification for a recipient.
func (d *Dispatcher) CreateNotification(userID uint, title, message string, taskID *uint, notifType string) {
	d.enqueue(event{
		kind:      kindNotification,
		userID:    userID,
		title:     title,
		message:   message,
		taskID:    taskID,
		notifType: notifType,
	})
}

// TaskStatusUpdate emails the task's client about a lifecycle change.
func (d *Dispatcher) TaskStatusUpdate(taskID uint, message string) {
	d.enqueue(event{kind: kindStatusUpdate, taskID: &taskID, statusMessage: message})
}

// NewTask notifies every active admin (plus any configured extra addresses)
// about a freshly submitted task.
func (d *Dispatcher) NewTask(taskID uint) {
	d.enqueue(event{kind: kindNewTask, taskID: &taskID})
}

// NewChatMessage emails the counterparty of a persisted chat message.
func (d *Dispatcher) NewChatMessage(taskID, messageID uint) {
	d.enqueue(event{kind: kindChatMessage, taskID: &taskID, chatMessageID: messageID})
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for ev := range d.queue {
		if err := d.handle(ev); err != nil {
			d.logger.Error("dispatch notification", "kind", ev.kind, "err", err)
		}
	}
}

func (d *Dispatcher) handle(ev event) error {
	switch ev.kind {
	case kindNotification:
		return d.db.Create(&models.Notification{
			UserID:  ev.userID,
			Type:    ev.notifType,
			Title:   ev.title,
			Message: ev.message,
			TaskID:  ev.taskID,
		}).Error

	case kindStatusUpdate:
		var task models.Task
		if err := d.db.Preload("Client").Preload("AssignedAdmin").First(&task, *ev.taskID).Error; err != nil {
			return err
		}
		if task.Client == nil || task.Client.Email == "" {
			return nil
		}
		return d.mailer.SendStatusUpdate(task.Client.Email, &task, ev.statusMessage)

	case kindNewTask:
		return d.handleNewTask(*ev.taskID)

	case kindChatMessage:
		return d.handleChatMessage(*ev.taskID, ev.chatMessageID)
	}
	return nil
}

func (d *Dispatcher) handleNewTask(taskID uint) error {
	var task models.Task
	if err := d.db.Preload("Client").First(&task, taskID).Error; err != nil {
		return err
	}

	var admins []models.User
	if err := d.db.Where("role = ? AND is_active = ?", constants.RoleAdmin, true).Find(&admins).Error; err != nil {
		return err
	}

	seen := make(map[string]bool)
	var recipients []string
	for _, admin := range admins {
		if admin.Email != "" && !seen[admin.Email] {
			seen[admin.Email] = true
			recipients = append(recipients, admin.Email)
		}
		// Written directly rather than re-enqueued so a draining queue
		// cannot lose the in-app copies.
		if err := d.db.Create(&models.Notification{
			UserID:  admin.ID,
			Type:    constants.NotifyTaskCreated,
			Title:   "New Task Submitted",
			Message: "New task '" + task.Title + "' has been submitted and requires review.",
			TaskID:  &task.ID,
		}).Error; err != nil {
			d.logger.Error("persist admin notification", "task", task.ID, "err", err)
		}
	}
	for _, extra := range d.extraAdmins {
		if extra != "" && !seen[extra] {
			seen[extra] = true
			recipients = append(recipients, extra)
		}
	}
	if len(recipients) == 0 {
		return nil
	}
	return d.mailer.SendNewTask(recipients, &task)
}

func (d *Dispatcher) handleChatMessage(taskID, messageID uint) error {
	var msg models.ChatMessage
	if err := d.db.First(&msg, messageID).Error; err != nil {
		return err
	}
	var task models.Task
	if err := d.db.Preload("Client").Preload("AssignedAdmin").First(&task, taskID).Error; err != nil {
		return err
	}

	// The recipient is whoever did not send the message.
	var recipient *models.User
	if msg.SenderID == task.ClientID {
		recipient = task.AssignedAdmin
	} else {
		recipient = task.Client
	}
	if recipient == nil || recipient.Email == "" {
		return nil
	}

	var sender models.User
	if err := d.db.First(&sender, msg.SenderID).Error; err != nil {
		return err
	}
	return d.mailer.SendNewMessage(recipient.Email, &task, &msg, sender.FullName())
}
