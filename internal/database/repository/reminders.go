package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// ReminderRepo handles reminders.
type ReminderRepo struct {
	db *sql.DB
}

func NewReminderRepo(db *sql.DB) *ReminderRepo { return &ReminderRepo{db: db} }

const reminderColumns = `id, title, due_date, due_time, recurrence, completed, completed_log, linked_loan_id, created_at`

func (r *ReminderRepo) Insert(ctx context.Context, m Reminder) error {
	logJSON, err := marshalLog(m.CompletedLog)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
	INSERT INTO reminders(id, title, due_date, due_time, recurrence, completed, completed_log, linked_loan_id, created_at)
	VALUES(?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP);
	`,
		m.ID, m.Title, m.DueDate.Format(dueDateFormat), m.DueTime, m.Recurrence,
		m.Completed, logJSON, m.LinkedLoanID)
	return err
}

func (r *ReminderRepo) Update(ctx context.Context, m Reminder) error {
	logJSON, err := marshalLog(m.CompletedLog)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
	UPDATE reminders SET title=?, due_date=?, due_time=?, recurrence=?, completed=?, completed_log=?, linked_loan_id=?
	WHERE id=?`,
		m.Title, m.DueDate.Format(dueDateFormat), m.DueTime, m.Recurrence,
		m.Completed, logJSON, m.LinkedLoanID, m.ID)
	return err
}

// Get returns the reminder with id, or nil when absent.
func (r *ReminderRepo) Get(ctx context.Context, id string) (*Reminder, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+reminderColumns+` FROM reminders WHERE id=?`, id)
	m, err := scanReminder(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ByLinkedLoan returns the reminder attached to a loan, or nil.
func (r *ReminderRepo) ByLinkedLoan(ctx context.Context, loanID string) (*Reminder, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+reminderColumns+` FROM reminders WHERE linked_loan_id=?`, loanID)
	m, err := scanReminder(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// List returns all reminders ordered by due date.
func (r *ReminderRepo) List(ctx context.Context) ([]Reminder, error) {
	return r.queryReminders(ctx,
		`SELECT `+reminderColumns+` FROM reminders ORDER BY due_date ASC, created_at ASC`)
}

// DueBefore returns reminders with a due date strictly before day.
func (r *ReminderRepo) DueBefore(ctx context.Context, day time.Time) ([]Reminder, error) {
	return r.queryReminders(ctx,
		`SELECT `+reminderColumns+` FROM reminders WHERE due_date < ? ORDER BY due_date ASC`,
		day.Format(dueDateFormat))
}

// Delete removes a reminder row. Missing rows are a no-op.
func (r *ReminderRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM reminders WHERE id=?`, id)
	return err
}

func (r *ReminderRepo) queryReminders(ctx context.Context, query string, args ...interface{}) ([]Reminder, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Reminder
	for rows.Next() {
		m, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func scanReminder(row rowScanner) (Reminder, error) {
	var m Reminder
	var logJSON string
	err := row.Scan(&m.ID, &m.Title, &m.DueDate, &m.DueTime, &m.Recurrence,
		&m.Completed, &logJSON, &m.LinkedLoanID, &m.CreatedAt)
	if err != nil {
		return Reminder{}, err
	}
	if err := json.Unmarshal([]byte(logJSON), &m.CompletedLog); err != nil {
		return Reminder{}, fmt.Errorf("reminder %s completed_log: %w", m.ID, err)
	}
	return m, nil
}
