package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const dueDateFormat = "2006-01-02"

// LoanFilters defines list filters.
type LoanFilters struct {
	Person    string
	Type      string
	Collected *bool
	Recurring bool // only loans with a recurrence other than "none"
	DueBefore time.Time
}

// LoanRepo handles loans.
type LoanRepo struct {
	db *sql.DB
}

func NewLoanRepo(db *sql.DB) *LoanRepo { return &LoanRepo{db: db} }

const loanColumns = `id, series_id, person, loan_type, amount, category, due_date, note,
 recurrence, collected, collected_at, loan_account, auto_create_reminder,
 canonical_key, completed_log, created_at, updated_at`

// Insert writes a new loan row. Fails on a canonical key collision.
func (r *LoanRepo) Insert(ctx context.Context, l Loan) error {
	logJSON, err := marshalLog(l.CompletedLog)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
	INSERT INTO loans(
	 id, series_id, person, loan_type, amount, category, due_date, note,
	 recurrence, collected, collected_at, loan_account, auto_create_reminder,
	 canonical_key, completed_log, created_at, updated_at)
	VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP);
	`,
		l.ID, l.SeriesID, l.Person, l.Type, l.AmountCents, l.Category,
		l.DueDate.Format(dueDateFormat), l.Note, l.Recurrence, l.Collected,
		l.CollectedAt, l.LoanAccount, l.AutoCreateReminder, l.CanonicalKey, logJSON)
	return err
}

// InsertIfAbsent writes the loan unless a row with the same canonical key
// already exists. It reports whether a row was actually inserted, so
// concurrent backfill passes can race on the same candidate without creating
// duplicates.
func (r *LoanRepo) InsertIfAbsent(ctx context.Context, l Loan) (bool, error) {
	logJSON, err := marshalLog(l.CompletedLog)
	if err != nil {
		return false, err
	}
	res, err := r.db.ExecContext(ctx, `
	INSERT INTO loans(
	 id, series_id, person, loan_type, amount, category, due_date, note,
	 recurrence, collected, collected_at, loan_account, auto_create_reminder,
	 canonical_key, completed_log, created_at, updated_at)
	VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	ON CONFLICT(canonical_key) DO NOTHING;
	`,
		l.ID, l.SeriesID, l.Person, l.Type, l.AmountCents, l.Category,
		l.DueDate.Format(dueDateFormat), l.Note, l.Recurrence, l.Collected,
		l.CollectedAt, l.LoanAccount, l.AutoCreateReminder, l.CanonicalKey, logJSON)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Update rewrites every mutable column of the loan.
func (r *LoanRepo) Update(ctx context.Context, l Loan) error {
	logJSON, err := marshalLog(l.CompletedLog)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
	UPDATE loans SET
	 series_id=?, person=?, loan_type=?, amount=?, category=?, due_date=?, note=?,
	 recurrence=?, collected=?, collected_at=?, loan_account=?, auto_create_reminder=?,
	 canonical_key=?, completed_log=?, updated_at=CURRENT_TIMESTAMP
	WHERE id=?`,
		l.SeriesID, l.Person, l.Type, l.AmountCents, l.Category,
		l.DueDate.Format(dueDateFormat), l.Note, l.Recurrence, l.Collected,
		l.CollectedAt, l.LoanAccount, l.AutoCreateReminder, l.CanonicalKey,
		logJSON, l.ID)
	return err
}

// SetSeries assigns or clears the series id of a single loan.
func (r *LoanRepo) SetSeries(ctx context.Context, id string, seriesID *string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE loans SET series_id=?, updated_at=CURRENT_TIMESTAMP WHERE id=?`, seriesID, id)
	return err
}

// Get returns the loan with id, or nil when absent.
func (r *LoanRepo) Get(ctx context.Context, id string) (*Loan, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+loanColumns+` FROM loans WHERE id=?`, id)
	l, err := scanLoan(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// GetByKey returns the loan with the given canonical key, or nil when absent.
func (r *LoanRepo) GetByKey(ctx context.Context, key string) (*Loan, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+loanColumns+` FROM loans WHERE canonical_key=?`, key)
	l, err := scanLoan(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// List returns loans matching the filters, soonest due first.
func (r *LoanRepo) List(ctx context.Context, f LoanFilters) ([]Loan, error) {
	var where []string
	var args []interface{}

	if f.Person != "" {
		where = append(where, "person = ?")
		args = append(args, f.Person)
	}
	if f.Type != "" {
		where = append(where, "loan_type = ?")
		args = append(args, f.Type)
	}
	if f.Collected != nil {
		where = append(where, "collected = ?")
		args = append(args, *f.Collected)
	}
	if f.Recurring {
		where = append(where, "recurrence != 'none' AND recurrence != ''")
	}
	if !f.DueBefore.IsZero() {
		where = append(where, "due_date < ?")
		args = append(args, f.DueBefore.Format(dueDateFormat))
	}

	query := `SELECT ` + loanColumns + ` FROM loans`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY due_date ASC, created_at ASC"

	return r.queryLoans(ctx, query, args...)
}

// BySeries returns every loan in a series ordered by due date.
func (r *LoanRepo) BySeries(ctx context.Context, seriesID string) ([]Loan, error) {
	return r.queryLoans(ctx,
		`SELECT `+loanColumns+` FROM loans WHERE series_id=? ORDER BY due_date ASC, created_at ASC`,
		seriesID)
}

// Persons returns the distinct counterparty names on record.
func (r *LoanRepo) Persons(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT person FROM loans ORDER BY person`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Delete removes a loan row. Missing rows are a no-op.
func (r *LoanRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM loans WHERE id=?`, id)
	return err
}

func (r *LoanRepo) queryLoans(ctx context.Context, query string, args ...interface{}) ([]Loan, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Loan
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanLoan(row rowScanner) (Loan, error) {
	var l Loan
	var logJSON string
	err := row.Scan(&l.ID, &l.SeriesID, &l.Person, &l.Type, &l.AmountCents,
		&l.Category, &l.DueDate, &l.Note, &l.Recurrence, &l.Collected,
		&l.CollectedAt, &l.LoanAccount, &l.AutoCreateReminder, &l.CanonicalKey,
		&logJSON, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return Loan{}, err
	}
	if err := json.Unmarshal([]byte(logJSON), &l.CompletedLog); err != nil {
		return Loan{}, fmt.Errorf("loan %s completed_log: %w", l.ID, err)
	}
	return l, nil
}

func marshalLog(entries []LogEntry) (string, error) {
	if len(entries) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(entries)
	if err != nil {
		return "", fmt.Errorf("marshal completed_log: %w", err)
	}
	return string(b), nil
}
