// Package Slack posts assignment notifications and the daily digest to a
// Slack channel.
package Slack

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ClientMax/Models"
	"ClientMax/Repository"

	"github.com/slack-go/slack"
)

// Notifier posts to a single channel with a bot token.
// Required Bot Token Scopes:
// - chat:write (send messages)
// - chat:write.public (send to channels without being invited)
type Notifier struct {
	Client  *slack.Client
	Channel string
}

func NewNotifier(token, channel string, options ...slack.Option) *Notifier {
	return &Notifier{
		Client:  slack.New(token, options...),
		Channel: channel,
	}
}

// NotifyAssignment announces a new assignment.
func (n *Notifier) NotifyAssignment(ctx context.Context, a Models.WorkAssignment) error {
	return n.post(ctx, AssignmentMessage(a))
}

// PostDigest sends the daily summary with the overdue assignments listed.
func (n *Notifier) PostDigest(ctx context.Context, summary Repository.Summary, overdue []Models.WorkAssignment, day time.Time) error {
	return n.post(ctx, DigestMessage(summary, overdue, day))
}

func (n *Notifier) post(ctx context.Context, text string) error {
	_, _, err := n.Client.PostMessageContext(ctx, n.Channel,
		slack.MsgOptionText(text, false),
		slack.MsgOptionDisableLinkUnfurl(),
	)
	if err != nil {
		return fmt.Errorf("error posting to slack channel %s: %w", n.Channel, err)
	}
	return nil
}

func name(ref *Models.EmployeeRef, fallback string) string {
	if ref != nil && ref.Name != "" {
		return ref.Name
	}
	return fallback
}

// AssignmentMessage renders the announcement for a new assignment.
func AssignmentMessage(a Models.WorkAssignment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s *New assignment:* %s\n", getPriorityEmoji(a.Priority), a.Title)
	fmt.Fprintf(&b, "Assigned to: %s\n", name(a.AssignedToEmployee, a.AssignedTo))
	fmt.Fprintf(&b, "Assigned by: %s\n", name(a.AssignedByEmployee, a.AssignedBy))
	fmt.Fprintf(&b, "Priority: %s", a.Priority)
	if a.DueDate != nil {
		fmt.Fprintf(&b, "\nDue: %s", time.Time(*a.DueDate).Format(Models.DateLayout))
	}
	return b.String()
}

// DigestMessage renders the daily summary.
func DigestMessage(summary Repository.Summary, overdue []Models.WorkAssignment, day time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*Assignments for %s*\n", day.Format(Models.DateLayout))
	fmt.Fprintf(&b, "Total: %d | Due today: %d\n", summary.Total, summary.DueToday)
	fmt.Fprintf(&b, "Pending: %d | In progress: %d | Completed: %d | Cancelled: %d",
		summary.Pending, summary.InProgress, summary.Completed, summary.Cancelled)

	if len(overdue) > 0 {
		fmt.Fprintf(&b, "\n\n*Overdue (%d)*", len(overdue))
		for _, a := range overdue {
			fmt.Fprintf(&b, "\n%s %s (%s, due %s)",
				getPriorityEmoji(a.Priority),
				a.Title,
				name(a.AssignedToEmployee, a.AssignedTo),
				time.Time(*a.DueDate).Format(Models.DateLayout),
			)
		}
	}
	return b.String()
}

func getPriorityEmoji(p Models.Priority) string {
	switch p {
	case Models.PriorityUrgent:
		return "🔴"
	case Models.PriorityHigh:
		return "🟠"
	case Models.PriorityMedium:
		return "🟡"
	case Models.PriorityLow:
		return "🟢"
	default:
		return "❓"
	}
}
