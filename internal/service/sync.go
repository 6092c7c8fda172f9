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

// LoanSyncer keeps a loan's mirror transaction in lock-step with its
// collected state. The mirror is keyed by linked_loan_id, so repeated calls
// with the same desired state are no-ops.
//
// Direction convention: collecting a "given" loan books an "in" transaction
// (the money comes back to the owner); collecting a "taken" loan books an
// "out" (the debt is repaid).
type LoanSyncer struct {
	Transactions *repository.TransactionRepo
	Events       Events
	Log          *logrus.Logger

	Now func() time.Time
}

// Sync makes the transaction collection reflect shouldExist for the loan.
// Removing a mirror that does not exist is a silent no-op: the loan may
// never have been collected.
func (s *LoanSyncer) Sync(ctx context.Context, loan repository.Loan, shouldExist bool) error {
	if shouldExist {
		return s.ensure(ctx, loan)
	}
	return s.remove(ctx, loan)
}

func (s *LoanSyncer) ensure(ctx context.Context, loan repository.Loan) error {
	existing, err := s.Transactions.GetByLinkedLoan(ctx, loan.ID)
	if err != nil {
		return fmt.Errorf("sync loan %s: %w", loan.ID, err)
	}
	if existing != nil {
		return nil
	}

	txType := repository.TxOut
	if loan.Type == repository.LoanGiven {
		txType = repository.TxIn
	}
	loanID := loan.ID
	t := repository.Transaction{
		ID:           uuid.NewString(),
		Date:         s.now(),
		Type:         txType,
		AmountCents:  loan.AmountCents,
		Account:      loan.LoanAccount,
		Category:     loan.Category,
		Recurrence:   RecurNone,
		Note:         TransactionNote(loan),
		LinkedLoanID: &loanID,
	}
	if err := s.Transactions.Insert(ctx, t); err != nil {
		return fmt.Errorf("sync loan %s: insert mirror: %w", loan.ID, err)
	}
	s.emit()
	return nil
}

func (s *LoanSyncer) remove(ctx context.Context, loan repository.Loan) error {
	found, err := s.Transactions.DeleteByLinkedLoan(ctx, loan.ID)
	if err != nil {
		return fmt.Errorf("sync loan %s: remove mirror: %w", loan.ID, err)
	}
	if !found {
		// Rows from pre-linkage exports match on content instead.
		found, err = s.Transactions.DeleteLatestUnlinked(ctx, TransactionNote(loan), loan.AmountCents, loan.Category)
		if err != nil {
			return fmt.Errorf("sync loan %s: remove legacy mirror: %w", loan.ID, err)
		}
	}
	if found {
		s.emit()
	}
	return nil
}

func (s *LoanSyncer) emit() {
	if s.Events != nil {
		s.Events.Emit(EventTransactionsChanged, nil)
	}
}

func (s *LoanSyncer) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return database.Now()
}

// TransactionNote renders the human-readable note written on a mirror
// transaction: "Loan from <person>" for given loans, "Loan to <person>" for
// taken ones, with the loan's own note appended when present. Identity is
// carried by linked_loan_id; the note is display only.
func TransactionNote(loan repository.Loan) string {
	direction := "to"
	if loan.Type == repository.LoanGiven {
		direction = "from"
	}
	note := fmt.Sprintf("Loan %s %s", direction, loan.Person)
	if loan.Note != "" {
		note += ": " + loan.Note
	}
	return note
}
