package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tmahesh/ledgerkeep/internal/database/repository"
)

func baseLoan() repository.Loan {
	return repository.Loan{
		ID:          "loan-1",
		Person:      "Ravi",
		Type:        repository.LoanGiven,
		AmountCents: 50000,
		Category:    "Loan",
		DueDate:     day(2024, time.January, 1),
		Recurrence:  "monthly",
	}
}

func TestCanonicalKeyIgnoresInsignificantFields(t *testing.T) {
	t.Parallel()

	a := baseLoan()
	b := baseLoan()
	b.ID = "loan-2"
	b.Note = "lunch money"
	b.LoanAccount = "Bank"
	b.Collected = true
	require.Equal(t, CanonicalKey(a), CanonicalKey(b))
}

func TestCanonicalKeyDiscriminates(t *testing.T) {
	t.Parallel()

	a := baseLoan()

	amount := baseLoan()
	amount.AmountCents = 50001
	require.NotEqual(t, CanonicalKey(a), CanonicalKey(amount))

	date := baseLoan()
	date.DueDate = day(2024, time.January, 2)
	require.NotEqual(t, CanonicalKey(a), CanonicalKey(date))

	typ := baseLoan()
	typ.Type = repository.LoanTaken
	require.NotEqual(t, CanonicalKey(a), CanonicalKey(typ))

	person := baseLoan()
	person.Person = "Ravi K"
	require.NotEqual(t, CanonicalKey(a), CanonicalKey(person))
}

func TestCanonicalKeyNormalizes(t *testing.T) {
	t.Parallel()

	a := baseLoan()
	a.Category = ""
	b := baseLoan()
	b.Category = "Loan"
	require.Equal(t, CanonicalKey(a), CanonicalKey(b))

	c := baseLoan()
	c.Recurrence = "Monthly"
	require.Equal(t, CanonicalKey(baseLoan()), CanonicalKey(c))
}
