package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tmahesh/ledgerkeep/internal/database/repository"
)

func TestSuggestNearMissName(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := openTestDB(t)
	loans := repository.NewLoanRepo(db)
	people := &People{Loans: loans}

	insertLoan(t, loans, repository.Loan{
		Person: "Ravi Kumar", Type: repository.LoanGiven, AmountCents: 100,
		DueDate: day(2024, time.May, 1),
	})
	insertLoan(t, loans, repository.Loan{
		Person: "Meena", Type: repository.LoanTaken, AmountCents: 100,
		DueDate: day(2024, time.May, 2),
	})

	got, ok, err := people.Suggest(ctx, "Ravi Kumaar")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "Ravi Kumar", got)

	// An established name needs no suggestion.
	_, ok, err = people.Suggest(ctx, "meena")
	require.NoError(t, err)
	require.False(t, ok)

	// Far-off names stay quiet.
	_, ok, err = people.Suggest(ctx, "Lakshmi")
	require.NoError(t, err)
	require.False(t, ok)

	// Blank input is ignored.
	_, ok, err = people.Suggest(ctx, "  ")
	require.NoError(t, err)
	require.False(t, ok)
}
