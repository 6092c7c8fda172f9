package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tmahesh/ledgerkeep/internal/database"
	"github.com/tmahesh/ledgerkeep/internal/database/repository"
)

// Notifier rolls overdue recurring reminders forward and raises due-soon
// alerts for loans and reminders. Alerts go out in small throttled batches
// so a catch-up pass after days away does not flood the user.
type Notifier struct {
	Loans     *repository.LoanRepo
	Reminders *repository.ReminderRepo
	Events    Events
	Log       *logrus.Logger

	DueSoonDays int           // inclusive window, default 3
	BatchSize   int           // alerts per batch, default 2
	BatchDelay  time.Duration // pause between batches

	Now func() time.Time
}

type alert struct {
	title   string
	message string
}

// Tick runs one notification pass. Each pass is idempotent with respect to
// stored state: rollover leaves already-current reminders alone, and alerts
// are recomputed rather than tracked.
func (n *Notifier) Tick(ctx context.Context) error {
	today := database.Day(n.now())

	if err := n.rollOverdue(ctx, today); err != nil {
		return err
	}

	var alerts []alert
	loanAlerts, err := n.dueSoonLoans(ctx, today)
	if err != nil {
		return err
	}
	alerts = append(alerts, loanAlerts...)

	remAlerts, err := n.dueReminders(ctx, today)
	if err != nil {
		return err
	}
	alerts = append(alerts, remAlerts...)

	n.deliver(ctx, alerts)
	return nil
}

// rollOverdue advances every recurring reminder whose due date has passed
// until it lands on or after today, resetting completion. The completed log
// is preserved; only the schedule moves.
func (n *Notifier) rollOverdue(ctx context.Context, today time.Time) error {
	overdue, err := n.Reminders.DueBefore(ctx, today)
	if err != nil {
		return fmt.Errorf("notifier: load overdue: %w", err)
	}
	rolled := 0
	for _, rem := range overdue {
		if !Recurs(rem.Recurrence) {
			continue
		}
		due := database.Day(rem.DueDate)
		steps := 0
		for due.Before(today) {
			next, ok := Advance(due, rem.Recurrence)
			if !ok {
				break
			}
			due = next
			steps++
			if steps >= maxBackfillSteps {
				n.Log.WithField("reminder", rem.ID).Warn("rollover ceiling reached")
				break
			}
		}
		if due.Equal(database.Day(rem.DueDate)) {
			continue
		}
		rem.DueDate = due
		rem.Completed = false
		if err := n.Reminders.Update(ctx, rem); err != nil {
			n.Log.WithError(err).WithField("reminder", rem.ID).Warn("rollover not persisted")
			continue
		}
		rolled++
	}
	if rolled > 0 && n.Events != nil {
		n.Events.Emit(EventRemindersChanged, rolled)
	}
	return nil
}

// dueSoonLoans groups uncollected loans due within the window (or overdue)
// by person, type and due date, and sums the amounts, so a split loan still
// produces a single alert.
func (n *Notifier) dueSoonLoans(ctx context.Context, today time.Time) ([]alert, error) {
	collected := false
	loans, err := n.Loans.List(ctx, repository.LoanFilters{
		Collected: &collected,
		DueBefore: today.AddDate(0, 0, n.dueSoonDays()+1),
	})
	if err != nil {
		return nil, fmt.Errorf("notifier: load loans: %w", err)
	}

	type groupKey struct {
		person string
		typ    string
		due    string
	}
	sums := map[groupKey]int64{}
	var order []groupKey
	for _, l := range loans {
		k := groupKey{l.Person, l.Type, l.DueDate.Format("2006-01-02")}
		if _, ok := sums[k]; !ok {
			order = append(order, k)
		}
		sums[k] += l.AmountCents
	}

	var out []alert
	for _, k := range order {
		direction := "to repay"
		if k.typ == repository.LoanGiven {
			direction = "to collect"
		}
		out = append(out, alert{
			title:   "Loan due: " + k.person,
			message: fmt.Sprintf("%s %s due %s", centsToAmount(sums[k]), direction, k.due),
		})
	}
	return out, nil
}

// dueReminders selects reminders worth notifying today: daily ones always,
// weekly on the matching weekday, monthly on the matching day-of-month, and
// anything inside the due-soon window regardless of recurrence.
func (n *Notifier) dueReminders(ctx context.Context, today time.Time) ([]alert, error) {
	rems, err := n.Reminders.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("notifier: load reminders: %w", err)
	}
	var out []alert
	for _, rem := range rems {
		if rem.Completed {
			continue
		}
		due := database.Day(rem.DueDate)
		days := int(due.Sub(today).Hours() / 24)
		inWindow := days >= 0 && days <= n.dueSoonDays()

		notify := inWindow
		switch NormalizeRecurrence(rem.Recurrence) {
		case RecurDaily:
			notify = true
		case RecurWeekly:
			notify = notify || due.Weekday() == today.Weekday()
		case RecurMonthly:
			notify = notify || due.Day() == today.Day()
		}
		if !notify {
			continue
		}
		msg := "due " + due.Format("2006-01-02")
		if rem.DueTime != "" {
			msg += " at " + rem.DueTime
		}
		out = append(out, alert{title: rem.Title, message: msg})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].title < out[j].title })
	return out, nil
}

// deliver sends alerts in batches of BatchSize with BatchDelay between
// batches. Cancellation of ctx stops delivery between batches.
func (n *Notifier) deliver(ctx context.Context, alerts []alert) {
	if n.Events == nil {
		return
	}
	size := n.BatchSize
	if size <= 0 {
		size = 2
	}
	for i := 0; i < len(alerts); i += size {
		if i > 0 && n.BatchDelay > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(n.BatchDelay):
			}
		}
		end := i + size
		if end > len(alerts) {
			end = len(alerts)
		}
		for _, a := range alerts[i:end] {
			n.Events.Alert(a.title, a.message)
		}
	}
}

func (n *Notifier) dueSoonDays() int {
	if n.DueSoonDays > 0 {
		return n.DueSoonDays
	}
	return 3
}

func (n *Notifier) now() time.Time {
	if n.Now != nil {
		return n.Now()
	}
	return database.Now()
}

// centsToAmount renders cents as a plain decimal string for messages.
func centsToAmount(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
