package notify

import (
	"fmt"

	"github.com/wneessen/go-mail"

	"github.com/skyloft-tech/AcademiQa/models"
)

// Mailer abstracts the outbound mail transport so the dispatcher stays
// testable without an SMTP server.
type Mailer interface {
	SendNewTask(to []string, task *models.Task) error
	SendStatusUpdate(to string, task *models.Task, update string) error
	SendNewMessage(to string, task *models.Task, msg *models.ChatMessage, senderName string) error
}

type SMTPConfig struct {
	Host        string
	Port        int
	Username    string
	Password    string
	From        string
	FrontendURL string
}

type SMTPMailer struct {
	client *mail.Client
	cfg    SMTPConfig
}

func NewSMTPMailer(cfg SMTPConfig) (*SMTPMailer, error) {
	opts := []mail.Option{mail.WithPort(cfg.Port)}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}
	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return &SMTPMailer{client: client, cfg: cfg}, nil
}

func (m *SMTPMailer) send(to []string, subject, body string) error {
	msg := mail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return err
	}
	if err := msg.To(to...); err != nil {
		return err
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)
	return m.client.DialAndSend(msg)
}

func (m *SMTPMailer) SendNewTask(to []string, task *models.Task) error {
	clientName := ""
	if task.Client != nil {
		clientName = task.Client.FullName()
	}
	subject := fmt.Sprintf("NEW TASK • %s • %s", task.Title, task.TaskID)
	body := fmt.Sprintf(
		"A new task has been submitted.\n\nTask: %s (%s)\nSubject: %s\nProposed budget: $%.2f\nSubmitted by: %s\n\nReview it at %s/admin/dashboard\n",
		task.Title, task.TaskID, task.Subject, task.ProposedBudget, clientName, m.cfg.FrontendURL)
	return m.send(to, subject, body)
}

func (m *SMTPMailer) SendStatusUpdate(to string, task *models.Task, update string) error {
	subject := "Task Update: " + task.Title
	body := fmt.Sprintf(
		"%s\n\nTask: %s (%s)\nStatus: %s\n\nView it at %s/client/dashboard/tasks/%d\n",
		update, task.Title, task.TaskID, task.Status, m.cfg.FrontendURL, task.ID)
	return m.send([]string{to}, subject, body)
}

func (m *SMTPMailer) SendNewMessage(to string, task *models.Task, msg *models.ChatMessage, senderName string) error {
	preview := msg.Message
	if len(preview) > 100 {
		preview = preview[:100] + "..."
	}
	subject := "New Message - Task: " + task.Title
	body := fmt.Sprintf(
		"%s sent a new message on task %q:\n\n%s\n\nReply at %s/client/dashboard/tasks/%d\n",
		senderName, task.Title, preview, m.cfg.FrontendURL, task.ID)
	return m.send([]string{to}, subject, body)
}

// NoopMailer is used when no SMTP host is configured, and by tests.
type NoopMailer struct{}

func (NoopMailer) SendNewTask([]string, *models.Task) error { return nil }
func (NoopMailer) SendStatusUpdate(string, *models.Task, string) error {
	return nil
}
func (NoopMailer) SendNewMessage(string, *models.Task, *models.ChatMessage, string) error {
	return nil
}
