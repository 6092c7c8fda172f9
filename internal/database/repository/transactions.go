package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"
)

// TransactionFilters defines list filters.
type TransactionFilters struct {
	Type    string
	Account string
	Month   time.Time // first day of month; zero time = no month filter
	Search  string    // substring of note
}

// TransactionRepo handles transactions.
type TransactionRepo struct {
	db *sql.DB
}

func NewTransactionRepo(db *sql.DB) *TransactionRepo { return &TransactionRepo{db: db} }

const txColumns = `id, tx_date, tx_type, amount, account, category, recurrence, note, linked_loan_id, created_at`

func (r *TransactionRepo) Insert(ctx context.Context, t Transaction) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO transactions(
	 id, tx_date, tx_type, amount, account, category, recurrence, note, linked_loan_id, created_at)
	VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP);
	`,
		t.ID, t.Date, t.Type, t.AmountCents, t.Account, t.Category,
		t.Recurrence, t.Note, t.LinkedLoanID)
	return err
}

// GetByLinkedLoan returns the transaction mirroring the given loan, or nil.
func (r *TransactionRepo) GetByLinkedLoan(ctx context.Context, loanID string) (*Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+txColumns+` FROM transactions WHERE linked_loan_id=?`, loanID)
	t, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// DeleteByLinkedLoan removes the transaction mirroring the given loan and
// reports whether a row existed.
func (r *TransactionRepo) DeleteByLinkedLoan(ctx context.Context, loanID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE linked_loan_id=?`, loanID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DeleteLatestUnlinked removes the most recent transaction matching note,
// amount and category that carries no loan linkage. It exists to clean up
// rows imported from older exports that predate linked_loan_id, and reports
// whether such a row was found.
func (r *TransactionRepo) DeleteLatestUnlinked(ctx context.Context, note string, amountCents int64, category string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
	DELETE FROM transactions WHERE id IN (
	 SELECT id FROM transactions
	 WHERE linked_loan_id IS NULL AND note=? AND amount=? AND category=?
	 ORDER BY tx_date DESC, created_at DESC LIMIT 1
	);`, note, amountCents, category)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *TransactionRepo) List(ctx context.Context, f TransactionFilters) ([]Transaction, error) {
	var where []string
	var args []interface{}

	if f.Type != "" {
		where = append(where, "tx_type = ?")
		args = append(args, f.Type)
	}
	if f.Account != "" {
		where = append(where, "account = ?")
		args = append(args, f.Account)
	}
	if !f.Month.IsZero() {
		start := time.Date(f.Month.Year(), f.Month.Month(), 1, 0, 0, 0, 0, time.UTC)
		end := start.AddDate(0, 1, 0)
		where = append(where, "tx_date >= ? AND tx_date < ?")
		args = append(args, start, end)
	}
	if f.Search != "" {
		where = append(where, "note LIKE ?")
		args = append(args, "%"+f.Search+"%")
	}

	query := `SELECT ` + txColumns + ` FROM transactions`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY tx_date DESC, created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Count returns the number of transaction rows.
func (r *TransactionRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&n)
	return n, err
}

// Delete removes a transaction row. Missing rows are a no-op.
func (r *TransactionRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id=?`, id)
	return err
}

func scanTransaction(row rowScanner) (Transaction, error) {
	var t Transaction
	err := row.Scan(&t.ID, &t.Date, &t.Type, &t.AmountCents, &t.Account,
		&t.Category, &t.Recurrence, &t.Note, &t.LinkedLoanID, &t.CreatedAt)
	if err != nil {
		return Transaction{}, err
	}
	return t, nil
}
