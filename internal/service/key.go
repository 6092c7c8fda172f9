package service

import (
	"strconv"
	"strings"
	"time"

	"github.com/tmahesh/ledgerkeep/internal/database/repository"
)

// keySep separates canonical key fields. A unit separator cannot appear in
// user input, so field values never collide across positions.
const keySep = "\x1f"

// CanonicalKey derives the stable identity of a scheduled obligation:
// person, type, due date, amount, category and recurrence. Two loans that
// describe the same obligation on the same date produce the same key no
// matter how their note, id, account or collected state differ.
func CanonicalKey(l repository.Loan) string {
	return CanonicalKeyFields(l.Person, l.Type, l.DueDate, l.AmountCents, l.Category, l.Recurrence)
}

// CanonicalKeyFields is CanonicalKey for callers that have not built a Loan yet.
func CanonicalKeyFields(person, loanType string, due time.Time, amountCents int64, category, recurrence string) string {
	if category == "" {
		category = "Loan"
	}
	return strings.Join([]string{
		strings.TrimSpace(person),
		loanType,
		due.Format("2006-01-02"),
		strconv.FormatInt(amountCents, 10),
		category,
		NormalizeRecurrence(recurrence),
	}, keySep)
}
