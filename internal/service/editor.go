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

// EditScope selects which members of a series an edit touches.
type EditScope string

const (
	ScopeThis   EditScope = "this"
	ScopeFuture EditScope = "future"
	ScopeAll    EditScope = "all"
)

// LoanUpdates carries the fields of an edit; nil means "leave unchanged".
type LoanUpdates struct {
	Person             *string
	AmountCents        *int64
	Category           *string
	DueDate            *time.Time
	Note               *string
	Recurrence         *string
	Collected          *bool
	LoanAccount        *string
	AutoCreateReminder *bool
}

// Editor applies an edit to a loan under a scope and keeps every touched
// loan's mirror transaction consistent when the collected flag changes.
type Editor struct {
	Loans     *repository.LoanRepo
	Syncer    *LoanSyncer
	Generator *Generator
	Events    Events
	Log       *logrus.Logger

	Now func() time.Time
}

// ApplyEdit loads the loan and applies updates under scope.
//
// Scope rules: "this" touches only the named loan (and is forced when the
// loan has no series); "future" touches series members due on or after the
// named loan; "all" touches the whole series. A due date change only ever
// applies to the named loan — re-dating every sibling onto the same day
// would collapse the series onto one canonical key.
func (e *Editor) ApplyEdit(ctx context.Context, loanID string, u LoanUpdates, scope EditScope) error {
	loan, err := e.Loans.Get(ctx, loanID)
	if err != nil {
		return fmt.Errorf("edit %s: %w", loanID, err)
	}
	if loan == nil {
		return fmt.Errorf("edit %s: loan not found", loanID)
	}

	if loan.SeriesID == nil {
		scope = ScopeThis
	}

	affected, err := e.resolveScope(ctx, *loan, scope)
	if err != nil {
		return err
	}

	for i := range affected {
		target := &affected[i]
		isEdited := target.ID == loan.ID
		e.applyFields(target, u, isEdited)

		if u.Recurrence != nil && isEdited {
			e.applySeriesTransition(target, *loan)
		}

		if u.Collected != nil && target.Collected != *u.Collected {
			e.applyCollected(target, *u.Collected)
		}

		target.CanonicalKey = CanonicalKey(*target)
		if err := e.Loans.Update(ctx, *target); err != nil {
			return fmt.Errorf("edit %s: persist %s: %w", loanID, target.ID, err)
		}

		// Re-derive the mirror for every touched loan individually, so a
		// bulk collected change keeps each one consistent.
		if u.Collected != nil {
			if err := e.Syncer.Sync(ctx, *target, target.Collected); err != nil {
				return err
			}
		}
	}

	if e.Events != nil {
		e.Events.Emit(EventLoansChanged, len(affected))
	}

	// Wall clock may have moved past new due dates; let the series catch up.
	if u.Recurrence != nil || u.DueDate != nil {
		edited, err := e.Loans.Get(ctx, loanID)
		if err == nil && edited != nil && Recurs(edited.Recurrence) {
			if _, err := e.Generator.BackfillAndSchedule(ctx, *edited); err != nil {
				e.Log.WithError(err).WithField("loan", loanID).Warn("backfill after edit failed")
			}
		}
	}
	return nil
}

func (e *Editor) resolveScope(ctx context.Context, loan repository.Loan, scope EditScope) ([]repository.Loan, error) {
	if scope == ScopeThis || loan.SeriesID == nil {
		return []repository.Loan{loan}, nil
	}
	series, err := e.Loans.BySeries(ctx, *loan.SeriesID)
	if err != nil {
		return nil, fmt.Errorf("edit %s: load series: %w", loan.ID, err)
	}
	if scope == ScopeAll {
		return series, nil
	}
	// ScopeFuture: members due on or after the edited loan.
	var out []repository.Loan
	for _, s := range series {
		if !s.DueDate.Before(loan.DueDate) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (e *Editor) applyFields(target *repository.Loan, u LoanUpdates, isEdited bool) {
	if u.Person != nil {
		target.Person = *u.Person
	}
	if u.AmountCents != nil {
		target.AmountCents = *u.AmountCents
	}
	if u.Category != nil {
		target.Category = *u.Category
	}
	if u.DueDate != nil && isEdited {
		target.DueDate = database.Day(*u.DueDate)
	}
	if u.Note != nil {
		target.Note = *u.Note
	}
	if u.Recurrence != nil {
		target.Recurrence = NormalizeRecurrence(*u.Recurrence)
	}
	if u.LoanAccount != nil {
		target.LoanAccount = *u.LoanAccount
	}
	if u.AutoCreateReminder != nil {
		target.AutoCreateReminder = *u.AutoCreateReminder
	}
}

// applySeriesTransition handles recurrence edits on the named loan:
// becoming recurring starts a fresh series; becoming non-recurring detaches
// the loan, leaving its former siblings alone.
func (e *Editor) applySeriesTransition(target *repository.Loan, before repository.Loan) {
	wasRecurring := Recurs(before.Recurrence)
	isRecurring := Recurs(target.Recurrence)
	switch {
	case !wasRecurring && isRecurring:
		sid := uuid.NewString()
		target.SeriesID = &sid
	case wasRecurring && !isRecurring:
		target.SeriesID = nil
	}
}

func (e *Editor) applyCollected(target *repository.Loan, collected bool) {
	now := e.now()
	target.Collected = collected
	if collected {
		target.CollectedAt = &now
	} else {
		target.CollectedAt = nil
	}
	status := "pending"
	if collected {
		status = "collected"
	}
	target.CompletedLog = append(target.CompletedLog, repository.LogEntry{Time: now, Status: status})
}

func (e *Editor) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return database.Now()
}
