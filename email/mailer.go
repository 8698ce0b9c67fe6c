package email

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ClientMax/Models"
)

// Mailer emails assignees about new assignments.
type Mailer struct {
	Config Models.EmailConfig
	Send   func(Models.EmailConfig, Models.EmailMessage) error
}

func NewMailer(config Models.EmailConfig) *Mailer {
	return &Mailer{Config: config, Send: SendEmail}
}

// NotifyAssignment emails the assignee. Assignments without a joined
// assignee email are skipped.
func (m *Mailer) NotifyAssignment(ctx context.Context, a Models.WorkAssignment) error {
	if a.AssignedToEmployee == nil || a.AssignedToEmployee.Email == "" {
		return nil
	}
	return m.deliver(ctx, AssignmentEmail(a))
}

// SendReport emails an attachment to recipients.
func (m *Mailer) SendReport(ctx context.Context, to []string, subject, body string, attachment Models.Attachment) error {
	return m.deliver(ctx, Models.EmailMessage{
		To:          to,
		Subject:     subject,
		Body:        body,
		Attachments: []Models.Attachment{attachment},
	})
}

func (m *Mailer) deliver(ctx context.Context, msg Models.EmailMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	send := m.Send
	if send == nil {
		send = SendEmail
	}
	if err := send(m.Config, msg); err != nil {
		return fmt.Errorf("error sending %q: %w", msg.Subject, err)
	}
	return nil
}

// AssignmentEmail renders the message sent to the assignee.
func AssignmentEmail(a Models.WorkAssignment) Models.EmailMessage {
	assigner := a.AssignedBy
	if a.AssignedByEmployee != nil && a.AssignedByEmployee.Name != "" {
		assigner = a.AssignedByEmployee.Name
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", a.AssignedToEmployee.Name)
	fmt.Fprintf(&b, "%s assigned you a new task: %s\n\n", assigner, a.Title)
	fmt.Fprintf(&b, "Priority: %s\n", a.Priority)
	if a.DueDate != nil {
		fmt.Fprintf(&b, "Due: %s\n", time.Time(*a.DueDate).Format(Models.DateLayout))
	}
	if a.Description != nil && *a.Description != "" {
		fmt.Fprintf(&b, "\n%s\n", *a.Description)
	}

	return Models.EmailMessage{
		To:      []string{a.AssignedToEmployee.Email},
		Subject: fmt.Sprintf("New assignment: %s", a.Title),
		Body:    b.String(),
	}
}
