package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/tmahesh/ledgerkeep/internal/database"
	"github.com/tmahesh/ledgerkeep/internal/database/repository"
)

// Validation failures surfaced to the user before anything is persisted.
var (
	ErrPersonRequired  = errors.New("person is required")
	ErrAmountRequired  = errors.New("amount must be greater than zero")
	ErrDueDateRequired = errors.New("due date is required")
	ErrDuplicateLoan   = errors.New("an identical loan already exists")
)

// LoanInput is the user-supplied shape of a new loan.
type LoanInput struct {
	Person             string
	Type               string
	AmountCents        int64
	Category           string
	DueDate            time.Time
	Note               string
	Recurrence         string
	LoanAccount        string
	AutoCreateReminder bool
}

// PersonSummary is one row of the per-counterparty ledger position.
type PersonSummary struct {
	Person           string
	GivenCents       int64 // outstanding, lent out
	TakenCents       int64 // outstanding, borrowed
	CollectedCents   int64 // settled either way
	OutstandingCount int
}

// Ledger is the entry point for user-level loan operations: add, collect,
// delete, summarize. It validates first, persists through the repos, and
// hands recurring loans to the Generator.
type Ledger struct {
	Loans     *repository.LoanRepo
	Reminders *repository.ReminderRepo
	Syncer    *LoanSyncer
	Generator *Generator
	Events    Events
	Log       *logrus.Logger

	Now func() time.Time
}

// AddLoan validates and persists a new loan, then backfills its series when
// it recurs. Nothing is written when validation fails. A canonical key
// collision returns ErrDuplicateLoan together with the loan that owns the key.
func (s *Ledger) AddLoan(ctx context.Context, in LoanInput) (repository.Loan, error) {
	if err := validateLoanInput(in); err != nil {
		return repository.Loan{}, err
	}

	loan := repository.Loan{
		ID:                 uuid.NewString(),
		Person:             in.Person,
		Type:               in.Type,
		AmountCents:        in.AmountCents,
		Category:           in.Category,
		DueDate:            database.Day(in.DueDate),
		Note:               in.Note,
		Recurrence:         NormalizeRecurrence(in.Recurrence),
		LoanAccount:        in.LoanAccount,
		AutoCreateReminder: in.AutoCreateReminder,
	}
	if loan.Category == "" {
		loan.Category = "Loan"
	}
	if loan.Type != repository.LoanTaken {
		loan.Type = repository.LoanGiven
	}
	loan.CanonicalKey = CanonicalKey(loan)

	inserted, err := s.Loans.InsertIfAbsent(ctx, loan)
	if err != nil {
		return repository.Loan{}, fmt.Errorf("add loan: %w", err)
	}
	if !inserted {
		// Hand the caller the loan that already owns this key, so the UI
		// can point at it.
		if existing, err := s.Loans.GetByKey(ctx, loan.CanonicalKey); err == nil && existing != nil {
			return *existing, ErrDuplicateLoan
		}
		return repository.Loan{}, ErrDuplicateLoan
	}

	if loan.AutoCreateReminder {
		loanID := loan.ID
		rem := repository.Reminder{
			ID:           uuid.NewString(),
			Title:        TransactionNote(loan),
			DueDate:      loan.DueDate,
			Recurrence:   RecurNone,
			LinkedLoanID: &loanID,
		}
		if err := s.Reminders.Insert(ctx, rem); err != nil {
			s.Log.WithError(err).WithField("loan", loan.ID).Warn("reminder not created")
		}
	}

	if Recurs(loan.Recurrence) {
		if _, err := s.Generator.BackfillAndSchedule(ctx, loan); err != nil {
			s.Log.WithError(err).WithField("loan", loan.ID).Warn("backfill after add failed")
		}
	}

	if s.Events != nil {
		s.Events.Emit(EventLoansChanged, loan.ID)
	}
	return loan, nil
}

// SetCollected flips a loan's collected flag and keeps the mirror
// transaction in step. Setting the current value again is a no-op, which
// makes double-invocation from the UI safe.
func (s *Ledger) SetCollected(ctx context.Context, loanID string, collected bool) error {
	loan, err := s.Loans.Get(ctx, loanID)
	if err != nil {
		return fmt.Errorf("collect %s: %w", loanID, err)
	}
	if loan == nil {
		return fmt.Errorf("collect %s: loan not found", loanID)
	}
	if loan.Collected == collected {
		return nil
	}

	now := s.now()
	loan.Collected = collected
	if collected {
		loan.CollectedAt = &now
	} else {
		loan.CollectedAt = nil
	}
	status := "pending"
	if collected {
		status = "collected"
	}
	loan.CompletedLog = append(loan.CompletedLog, repository.LogEntry{Time: now, Status: status})

	if err := s.Loans.Update(ctx, *loan); err != nil {
		return fmt.Errorf("collect %s: %w", loanID, err)
	}
	if err := s.Syncer.Sync(ctx, *loan, collected); err != nil {
		return err
	}
	if s.Events != nil {
		s.Events.Emit(EventLoansChanged, loanID)
	}
	return nil
}

// DeleteLoan removes a loan together with its mirror transaction and any
// attached reminder. Deleting an unknown loan is a no-op.
func (s *Ledger) DeleteLoan(ctx context.Context, loanID string) error {
	loan, err := s.Loans.Get(ctx, loanID)
	if err != nil {
		return fmt.Errorf("delete %s: %w", loanID, err)
	}
	if loan == nil {
		return nil
	}
	if err := s.Syncer.Sync(ctx, *loan, false); err != nil {
		return err
	}
	if rem, err := s.Reminders.ByLinkedLoan(ctx, loanID); err == nil && rem != nil {
		if err := s.Reminders.Delete(ctx, rem.ID); err != nil {
			s.Log.WithError(err).WithField("reminder", rem.ID).Warn("reminder not deleted")
		}
	}
	if err := s.Loans.Delete(ctx, loanID); err != nil {
		return fmt.Errorf("delete %s: %w", loanID, err)
	}
	if s.Events != nil {
		s.Events.Emit(EventLoansChanged, loanID)
	}
	return nil
}

// SummaryByPerson aggregates the net position per counterparty.
func (s *Ledger) SummaryByPerson(ctx context.Context) ([]PersonSummary, error) {
	loans, err := s.Loans.List(ctx, repository.LoanFilters{})
	if err != nil {
		return nil, fmt.Errorf("summary: %w", err)
	}
	byPerson := map[string]*PersonSummary{}
	var order []string
	for _, l := range loans {
		ps, ok := byPerson[l.Person]
		if !ok {
			ps = &PersonSummary{Person: l.Person}
			byPerson[l.Person] = ps
			order = append(order, l.Person)
		}
		if l.Collected {
			ps.CollectedCents += l.AmountCents
			continue
		}
		ps.OutstandingCount++
		if l.Type == repository.LoanGiven {
			ps.GivenCents += l.AmountCents
		} else {
			ps.TakenCents += l.AmountCents
		}
	}
	out := make([]PersonSummary, 0, len(order))
	for _, p := range order {
		out = append(out, *byPerson[p])
	}
	return out, nil
}

func (s *Ledger) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return database.Now()
}

func validateLoanInput(in LoanInput) error {
	if in.Person == "" {
		return ErrPersonRequired
	}
	if in.AmountCents <= 0 {
		return ErrAmountRequired
	}
	if in.DueDate.IsZero() {
		return ErrDueDateRequired
	}
	return nil
}
