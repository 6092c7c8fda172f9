package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tmahesh/ledgerkeep/internal/database/repository"
)

func setupGenerator(t *testing.T, now func() time.Time) (*Generator, *repository.LoanRepo, *repository.ReminderRepo) {
	t.Helper()
	db := openTestDB(t)
	loans := repository.NewLoanRepo(db)
	rems := repository.NewReminderRepo(db)
	g := &Generator{Loans: loans, Reminders: rems, Log: testLogger(), Now: now}
	return g, loans, rems
}

func dueDates(t *testing.T, loans *repository.LoanRepo) []string {
	t.Helper()
	all, err := loans.List(context.Background(), repository.LoanFilters{})
	require.NoError(t, err)
	out := make([]string, 0, len(all))
	for _, l := range all {
		out = append(out, l.DueDate.Format("2006-01-02"))
	}
	return out
}

func TestBackfillSeriesCompleteness(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	g, loans, _ := setupGenerator(t, fixedNow(2024, time.April, 15))

	base := insertLoan(t, loans, repository.Loan{
		Person:      "Ravi",
		Type:        repository.LoanGiven,
		AmountCents: 50000,
		DueDate:     day(2024, time.January, 1),
		Recurrence:  "monthly",
	})

	created, err := g.BackfillAndSchedule(ctx, base)
	require.NoError(t, err)
	require.Equal(t, 4, created)

	require.Equal(t, []string{
		"2024-01-01", // base
		"2024-02-01",
		"2024-03-01",
		"2024-04-01",
		"2024-05-01", // exactly one future instance
	}, dueDates(t, loans))

	// Every generated instance shares the lazily assigned series id.
	reloaded, err := loans.Get(ctx, base.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.SeriesID)
	series, err := loans.BySeries(ctx, *reloaded.SeriesID)
	require.NoError(t, err)
	require.Len(t, series, 5)
	for _, l := range series {
		if l.ID == base.ID {
			continue
		}
		require.False(t, l.Collected)
		require.Equal(t, base.Person, l.Person)
		require.Equal(t, base.AmountCents, l.AmountCents)
	}
}

func TestBackfillIsIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	g, loans, _ := setupGenerator(t, fixedNow(2024, time.April, 15))

	base := insertLoan(t, loans, repository.Loan{
		Person:      "Ravi",
		Type:        repository.LoanGiven,
		AmountCents: 50000,
		DueDate:     day(2024, time.January, 1),
		Recurrence:  "monthly",
	})

	first, err := g.BackfillAndSchedule(ctx, base)
	require.NoError(t, err)
	require.Equal(t, 4, first)

	reloaded, err := loans.Get(ctx, base.ID)
	require.NoError(t, err)
	second, err := g.BackfillAndSchedule(ctx, *reloaded)
	require.NoError(t, err)
	require.Equal(t, 0, second)

	all, err := loans.List(ctx, repository.LoanFilters{})
	require.NoError(t, err)
	require.Len(t, all, 5)
}

func TestBackfillInclusiveToday(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	// today lands exactly on an occurrence: the loop must continue through it
	g, loans, _ := setupGenerator(t, fixedNow(2024, time.March, 1))

	base := insertLoan(t, loans, repository.Loan{
		Person:      "Ravi",
		Type:        repository.LoanGiven,
		AmountCents: 50000,
		DueDate:     day(2024, time.January, 1),
		Recurrence:  "monthly",
	})

	_, err := g.BackfillAndSchedule(ctx, base)
	require.NoError(t, err)
	require.Equal(t, []string{
		"2024-01-01",
		"2024-02-01",
		"2024-03-01", // due today
		"2024-04-01", // one future instance
	}, dueDates(t, loans))
}

func TestBackfillNonRecurringIsNoOp(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	g, loans, _ := setupGenerator(t, fixedNow(2024, time.April, 15))

	base := insertLoan(t, loans, repository.Loan{
		Person:      "Ravi",
		Type:        repository.LoanGiven,
		AmountCents: 50000,
		DueDate:     day(2024, time.January, 1),
	})

	created, err := g.BackfillAndSchedule(ctx, base)
	require.NoError(t, err)
	require.Zero(t, created)

	all, err := loans.List(ctx, repository.LoanFilters{})
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Nil(t, all[0].SeriesID)
}

func TestBackfillFutureBaseCreatesNothing(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	g, loans, _ := setupGenerator(t, fixedNow(2024, time.April, 15))

	base := insertLoan(t, loans, repository.Loan{
		Person:      "Ravi",
		Type:        repository.LoanGiven,
		AmountCents: 50000,
		DueDate:     day(2024, time.June, 1),
		Recurrence:  "monthly",
	})

	created, err := g.BackfillAndSchedule(ctx, base)
	require.NoError(t, err)
	require.Zero(t, created)

	all, err := loans.List(ctx, repository.LoanFilters{})
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestBackfillCeilingTerminates(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	// ~15 years of daily occurrences wanted, ceiling must cut it off
	g, loans, _ := setupGenerator(t, fixedNow(2024, time.April, 15))

	base := insertLoan(t, loans, repository.Loan{
		Person:      "Ravi",
		Type:        repository.LoanGiven,
		AmountCents: 100,
		DueDate:     day(2009, time.January, 1),
		Recurrence:  "daily",
	})

	created, err := g.BackfillAndSchedule(ctx, base)
	require.NoError(t, err)
	require.Equal(t, maxBackfillSteps, created)

	all, err := loans.List(ctx, repository.LoanFilters{})
	require.NoError(t, err)
	require.Len(t, all, maxBackfillSteps+1)
}

func TestBackfillCreatesLinkedReminders(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	g, loans, rems := setupGenerator(t, fixedNow(2024, time.March, 20))

	base := insertLoan(t, loans, repository.Loan{
		Person:             "Meena",
		Type:               repository.LoanTaken,
		AmountCents:        20000,
		DueDate:            day(2024, time.March, 1),
		Recurrence:         "weekly",
		AutoCreateReminder: true,
	})

	created, err := g.BackfillAndSchedule(ctx, base)
	require.NoError(t, err)
	require.Equal(t, 3, created) // Mar 8, 15, 22

	all, err := rems.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	for _, r := range all {
		require.NotNil(t, r.LinkedLoanID)
		require.Contains(t, r.Title, "Meena")
	}
}
