// Package sweep implements the periodic due-soon reminder job: one
// reminder email per incomplete task due today or tomorrow, addressed
// to the creator and all assignees at once.
package sweep

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/taskhub/taskhub/internal/model"
	"github.com/taskhub/taskhub/internal/notify"
	"github.com/taskhub/taskhub/internal/store"
)

// Result aggregates one sweep run.
type Result struct {
	TasksNotified      int `json:"tasks_notified"`
	RecipientsNotified int `json:"recipients_notified"`
}

// maxConcurrentSends bounds parallel mail submissions per run.
const maxConcurrentSends = 4

// Sweeper finds due-soon tasks and sends reminders through the mail
// sink. Per-task delivery failures are logged and do not abort the run.
type Sweeper struct {
	store  store.Store
	mailer notify.Mailer
	logger *slog.Logger
}

// New creates a Sweeper.
func New(s store.Store, mailer notify.Mailer, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{store: s, mailer: mailer, logger: logger}
}

// Run executes one sweep: incomplete tasks with a due date from today
// through tomorrow inclusive get one reminder each. Re-running re-sends;
// de-duplication across runs is a cadence policy, not enforced here.
func (s *Sweeper) Run(ctx context.Context) (Result, error) {
	today := dateOf(time.Now())
	tasks, err := s.store.ListDueBetween(ctx, today, today.Add(48*time.Hour))
	if err != nil {
		return Result{}, fmt.Errorf("listing due-soon tasks: %w", err)
	}

	var tasksNotified, recipientsNotified atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentSends)

	for i := range tasks {
		task := tasks[i]
		g.Go(func() error {
			recipients, err := s.recipientsFor(gctx, task)
			if err != nil {
				s.logger.Error("resolving reminder recipients",
					"task", task.ID, "title", task.Title, "error", err)
				return nil
			}
			if len(recipients) == 0 {
				s.logger.Warn("no valid emails for due-soon task",
					"task", task.ID, "title", task.Title)
				return nil
			}

			msg := reminderMessage(task, recipients)
			if err := s.mailer.Send(gctx, msg); err != nil {
				s.logger.Error("sending due-soon reminder",
					"task", task.ID, "title", task.Title,
					"error", &notify.DeliveryError{Err: err})
				return nil
			}

			tasksNotified.Add(1)
			recipientsNotified.Add(int64(len(recipients)))
			return nil
		})
	}

	// Workers swallow their own errors; Wait only observes ctx cancellation.
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	result := Result{
		TasksNotified:      int(tasksNotified.Load()),
		RecipientsNotified: int(recipientsNotified.Load()),
	}
	s.logger.Info("due-soon sweep finished",
		"tasks_notified", result.TasksNotified,
		"recipients_notified", result.RecipientsNotified)
	return result, nil
}

// RunEvery runs the sweep on a fixed cadence until ctx is cancelled.
// The first run happens after one interval, not immediately.
func (s *Sweeper) RunEvery(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Run(ctx); err != nil {
				s.logger.Error("due-soon sweep failed", "error", err)
			}
		}
	}
}

// recipientsFor unions the creator's and assignees' email addresses
// into one distinct set.
func (s *Sweeper) recipientsFor(ctx context.Context, task model.Task) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	add := func(email string) {
		if email != "" && !seen[email] {
			seen[email] = true
			out = append(out, email)
		}
	}

	creator, err := s.store.GetUserByID(ctx, task.CreatorID)
	if err != nil {
		return nil, err
	}
	add(creator.Email)

	assignees, err := s.store.GetUsersByIDs(ctx, task.AssigneeIDs)
	if err != nil {
		return nil, err
	}
	for _, a := range assignees {
		add(a.Email)
	}

	return out, nil
}

func reminderMessage(task model.Task, recipients []string) notify.Message {
	due := ""
	if task.DueDate != nil {
		due = task.DueDate.Format("2006-01-02")
	}
	text := fmt.Sprintf(
		"Hello,\n\nYour task '%s' is due on %s.\nPlease make sure to complete it on time.\n\nRegards,\nTask Manager System\n",
		task.Title, due,
	)
	return notify.Message{
		To:      recipients,
		Subject: fmt.Sprintf("Reminder: Task '%s' is due soon!", task.Title),
		Text:    text,
	}
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
