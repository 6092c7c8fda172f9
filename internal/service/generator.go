package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/tmahesh/ledgerkeep/internal/database"
	"github.com/tmahesh/ledgerkeep/internal/database/repository"
)

// maxBackfillSteps bounds a single backfill walk. Malformed due dates or
// clock skew must never leave the walk unbounded; hitting the ceiling stops
// generation and is logged as an incomplete backfill.
const maxBackfillSteps = 3650

// Generator walks a recurring loan's schedule forward from its due date,
// backfilling the instances that wall-clock time has made due and keeping
// exactly one future instance pending. Every candidate insert is
// insert-if-absent on the canonical key, so overlapping passes (timer sweep
// racing a user-triggered run) cannot double-create.
type Generator struct {
	Loans     *repository.LoanRepo
	Reminders *repository.ReminderRepo
	Events    Events
	Log       *logrus.Logger

	Now func() time.Time
}

// BackfillAndSchedule generates missing instances for one recurring loan.
// It returns the number of loans created. Non-recurring loans are a no-op.
func (g *Generator) BackfillAndSchedule(ctx context.Context, loan repository.Loan) (int, error) {
	if !Recurs(loan.Recurrence) {
		return 0, nil
	}

	// Lazy series initialization: a loan only gains a series id the first
	// time it is processed as recurring.
	if loan.SeriesID == nil {
		sid := uuid.NewString()
		loan.SeriesID = &sid
		if err := g.Loans.SetSeries(ctx, loan.ID, &sid); err != nil {
			return 0, fmt.Errorf("backfill %s: assign series: %w", loan.ID, err)
		}
	}

	today := database.Day(g.now())
	if loan.DueDate.After(today) {
		// The base loan itself is still pending; nothing to backfill and
		// it already is the one future instance.
		return 0, nil
	}

	created := 0
	lastDue := database.Day(loan.DueDate)
	for steps := 0; ; steps++ {
		if steps >= maxBackfillSteps {
			g.Log.WithFields(logrus.Fields{
				"loan":   loan.ID,
				"series": *loan.SeriesID,
				"due":    loan.DueDate.Format("2006-01-02"),
			}).Warn("backfill ceiling reached; series left incomplete")
			break
		}
		next, ok := Advance(lastDue, loan.Recurrence)
		if !ok {
			break
		}
		n, err := g.createCandidate(ctx, loan, next)
		if err != nil {
			// One failed candidate must not abort the walk.
			g.Log.WithError(err).WithField("loan", loan.ID).Warn("skipping candidate")
		}
		created += n
		lastDue = next
		if next.After(today) {
			// The instance just created (or found) is the single future one.
			break
		}
	}

	if created > 0 && g.Events != nil {
		g.Events.Emit(EventLoansChanged, created)
	}
	return created, nil
}

// createCandidate inserts the instance due on the given date unless its
// canonical key already exists, and attaches a reminder when the series
// asks for one. Returns 1 when a loan row was created.
func (g *Generator) createCandidate(ctx context.Context, base repository.Loan, due time.Time) (int, error) {
	candidate := repository.Loan{
		ID:                 uuid.NewString(),
		SeriesID:           base.SeriesID,
		Person:             base.Person,
		Type:               base.Type,
		AmountCents:        base.AmountCents,
		Category:           base.Category,
		DueDate:            due,
		Note:               base.Note,
		Recurrence:         base.Recurrence,
		Collected:          false,
		LoanAccount:        base.LoanAccount,
		AutoCreateReminder: base.AutoCreateReminder,
	}
	candidate.CanonicalKey = CanonicalKey(candidate)

	inserted, err := g.Loans.InsertIfAbsent(ctx, candidate)
	if err != nil {
		return 0, fmt.Errorf("insert candidate due %s: %w", due.Format("2006-01-02"), err)
	}
	if !inserted {
		return 0, nil
	}

	if base.AutoCreateReminder {
		loanID := candidate.ID
		rem := repository.Reminder{
			ID:           uuid.NewString(),
			Title:        TransactionNote(candidate),
			DueDate:      due,
			Recurrence:   RecurNone,
			LinkedLoanID: &loanID,
		}
		if err := g.Reminders.Insert(ctx, rem); err != nil {
			// The loan instance stands; only its reminder is missing.
			g.Log.WithError(err).WithField("loan", candidate.ID).Warn("reminder not created")
		}
	}
	return 1, nil
}

func (g *Generator) now() time.Time {
	if g.Now != nil {
		return g.Now()
	}
	return database.Now()
}
