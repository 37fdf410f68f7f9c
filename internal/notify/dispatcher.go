// Package notify turns task lifecycle events into email notifications.
// Dispatch is asynchronous and best-effort: a delivery failure is
// logged and never surfaces to the mutation that triggered the event.
package notify

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/taskhub/taskhub/internal/model"
)

// EventType identifies a task lifecycle event.
type EventType string

const (
	EventAssigned  EventType = "assigned"
	EventUpdated   EventType = "updated"
	EventCompleted EventType = "completed"
)

// Event is a notification intent emitted by the task service.
type Event struct {
	Type       EventType
	Task       model.Task
	Actor      model.User
	Recipients []model.User
}

// Dispatcher consumes task lifecycle events.
type Dispatcher interface {
	Notify(ev Event)
}

// sendTimeout bounds a single delivery attempt, retries included.
const sendTimeout = 30 * time.Second

// MailDispatcher queues events and delivers them from a background
// worker, retrying transient sink failures with exponential backoff.
type MailDispatcher struct {
	mailer Mailer
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
	events chan Event
	done   chan struct{}
}

// NewMailDispatcher creates a dispatcher and starts its worker.
func NewMailDispatcher(mailer Mailer, logger *slog.Logger) *MailDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	d := &MailDispatcher{
		mailer: mailer,
		logger: logger,
		events: make(chan Event, 64),
		done:   make(chan struct{}),
	}
	go d.run()
	return d
}

// Notify enqueues an event without blocking. If the queue is full the
// event is dropped with a log entry; notifications are best-effort.
// Calling Notify after Close drops the event the same way.
func (d *MailDispatcher) Notify(ev Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		d.logger.Warn("dispatcher closed, dropping event",
			"type", ev.Type, "task", ev.Task.ID)
		return
	}
	select {
	case d.events <- ev:
	default:
		d.logger.Warn("notification queue full, dropping event",
			"type", ev.Type, "task", ev.Task.ID)
	}
}

// Close stops accepting events, drains the queue, and waits for the
// worker to finish. Safe to call more than once.
func (d *MailDispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.events)
	}
	d.mu.Unlock()
	<-d.done
}

func (d *MailDispatcher) run() {
	defer close(d.done)
	for ev := range d.events {
		d.deliver(ev)
	}
}

func (d *MailDispatcher) deliver(ev Event) {
	msg, ok := BuildMessage(ev)
	if !ok {
		d.logger.Warn("no resolvable recipients for notification",
			"type", ev.Type, "task", ev.Task.ID, "title", ev.Task.Title)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)

	err := backoff.Retry(func() error {
		return d.mailer.Send(ctx, msg)
	}, policy)
	if err != nil {
		derr := &DeliveryError{Err: err}
		d.logger.Error("notification delivery failed",
			"type", ev.Type, "task", ev.Task.ID, "error", derr)
		return
	}

	d.logger.Info("notification sent",
		"type", ev.Type, "task", ev.Task.ID, "recipients", len(msg.To))
}

// BuildMessage composes the mail for an event. It returns false when no
// recipient has an email address.
func BuildMessage(ev Event) (Message, bool) {
	to := emailSet(ev.Recipients)
	if len(to) == 0 {
		return Message{}, false
	}

	var subject, intro string
	switch ev.Type {
	case EventAssigned:
		subject = fmt.Sprintf("New Task Assigned: %s", ev.Task.Title)
		intro = fmt.Sprintf("You have been assigned a new task by %s.", ev.Actor.Username)
	case EventUpdated:
		subject = fmt.Sprintf("Task Updated: %s", ev.Task.Title)
		intro = fmt.Sprintf("The task assigned to you has been updated by %s.", ev.Actor.Username)
	case EventCompleted:
		subject = fmt.Sprintf("Task Completed: %s", ev.Task.Title)
		intro = fmt.Sprintf("The task you assigned has been marked as completed by %s.", ev.Actor.Username)
	default:
		subject = fmt.Sprintf("Task Notification: %s", ev.Task.Title)
		intro = "There is activity on your task."
	}

	return Message{
		To:      to,
		Subject: subject,
		Text:    textBody(intro, ev.Task),
		HTML:    htmlBody(intro, ev.Task),
	}, true
}

// emailSet collects the distinct, non-empty addresses of users,
// preserving first-seen order.
func emailSet(users []model.User) []string {
	seen := make(map[string]bool, len(users))
	var out []string
	for _, u := range users {
		if u.Email == "" || seen[u.Email] {
			continue
		}
		seen[u.Email] = true
		out = append(out, u.Email)
	}
	return out
}

func describe(t model.Task) (description, due string) {
	description = t.Description
	if description == "" {
		description = "No description"
	}
	due = "Not specified"
	if t.DueDate != nil {
		due = t.DueDate.Format("2006-01-02")
	}
	return description, due
}

func textBody(intro string, t model.Task) string {
	description, due := describe(t)
	var b strings.Builder
	b.WriteString("Hello,\n\n")
	b.WriteString(intro + "\n\n")
	fmt.Fprintf(&b, "Task: %s\n", t.Title)
	fmt.Fprintf(&b, "Description: %s\n", description)
	fmt.Fprintf(&b, "Due Date: %s\n\n", due)
	b.WriteString("Please log in to your dashboard for details.\n\n")
	b.WriteString("Regards,\nTask Manager System\n")
	return b.String()
}

func htmlBody(intro string, t model.Task) string {
	description, due := describe(t)
	return fmt.Sprintf(`<html>
  <body>
    <p>Hello,</p>
    <p>%s</p>
    <p><strong>Task:</strong> %s<br>
       <strong>Description:</strong> %s<br>
       <strong>Due Date:</strong> %s</p>
    <p>Please log in to your dashboard for details.</p>
    <p>Regards,<br>Task Manager System</p>
  </body>
</html>`,
		html.EscapeString(intro),
		html.EscapeString(t.Title),
		html.EscapeString(description),
		due,
	)
}
