package repository

import "time"

// Loan types.
const (
	LoanGiven = "given" // money lent out
	LoanTaken = "taken" // money borrowed
)

// Transaction directions.
const (
	TxIn  = "in"
	TxOut = "out"
)

// Account represents an account row.
type Account struct {
	ID        string
	Name      string
	Kind      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// LogEntry is one append-only status change on a loan or reminder.
type LogEntry struct {
	Time   time.Time `json:"time"`
	Status string    `json:"status"`
}

// Loan represents a loan row. A loan with a SeriesID belongs to a recurring
// series; a nil SeriesID means a standalone, non-recurring loan.
type Loan struct {
	ID                 string
	SeriesID           *string
	Person             string
	Type               string // LoanGiven or LoanTaken
	AmountCents        int64
	Category           string
	DueDate            time.Time // day granularity, midnight UTC
	Note               string
	Recurrence         string // none|daily|weekly|monthly|yearly
	Collected          bool
	CollectedAt        *time.Time
	LoanAccount        string
	AutoCreateReminder bool
	CanonicalKey       string
	CompletedLog       []LogEntry
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Transaction represents a transaction row. LinkedLoanID is set when the
// transaction mirrors a collected loan; at most one transaction may link to
// a given loan (enforced by a partial unique index).
type Transaction struct {
	ID           string
	Date         time.Time
	Type         string // TxIn or TxOut
	AmountCents  int64
	Account      string
	Category     string
	Recurrence   string
	Note         string
	LinkedLoanID *string
	CreatedAt    time.Time
}

// Reminder represents a reminder row.
type Reminder struct {
	ID           string
	Title        string
	DueDate      time.Time // day granularity, midnight UTC
	DueTime      string    // optional "15:04", empty when unset
	Recurrence   string
	Completed    bool
	CompletedLog []LogEntry
	LinkedLoanID *string
	CreatedAt    time.Time
}
