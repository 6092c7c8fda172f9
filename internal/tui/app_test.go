package tui

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/tmahesh/ledgerkeep/internal/config"
	"github.com/tmahesh/ledgerkeep/internal/database"
	"github.com/tmahesh/ledgerkeep/internal/database/repository"
	"github.com/tmahesh/ledgerkeep/internal/service"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	migrations, err := filepath.Abs("../database/migrations")
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations(dbPath, migrations))

	db, err := database.Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func testApp() *App {
	cfg := config.Config{}
	cfg.UI.CurrencySymbol = "₹"
	cfg.UI.DateFormat = "02/01"
	return New(context.Background(), cfg, Repos{}, Services{})
}

func TestViewRendersLoans(t *testing.T) {
	t.Parallel()

	a := testApp()
	a.loans = []repository.Loan{
		{
			Person:      "Ravi",
			Type:        repository.LoanGiven,
			AmountCents: 50000,
			DueDate:     time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC),
			Recurrence:  "monthly",
		},
		{
			Person:      "Meena",
			Type:        repository.LoanTaken,
			AmountCents: 1250,
			DueDate:     time.Date(2024, time.May, 8, 0, 0, 0, 0, time.UTC),
			Recurrence:  "none",
			Collected:   true,
		},
	}

	out := a.View()
	require.Contains(t, out, "Ravi")
	require.Contains(t, out, "500.00")
	require.Contains(t, out, "Meena")
	require.Contains(t, out, "12.50")
	require.Contains(t, out, "01/05")
}

func TestAlertFeedIsBounded(t *testing.T) {
	t.Parallel()

	a := testApp()
	for i := 0; i < maxAlertFeed+4; i++ {
		model, _ := a.Update(alertMsg{title: "t", message: "m"})
		a = model.(*App)
	}
	require.Len(t, a.alerts, maxAlertFeed)
}

func TestParseLoanLine(t *testing.T) {
	t.Parallel()

	in, err := parseLoanLine("Ravi given 500.00 2024-05-01 monthly")
	require.NoError(t, err)
	require.Equal(t, "Ravi", in.Person)
	require.Equal(t, repository.LoanGiven, in.Type)
	require.Equal(t, int64(50000), in.AmountCents)
	require.Equal(t, time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC), in.DueDate)
	require.Equal(t, "monthly", in.Recurrence)

	in, err = parseLoanLine("Meena taken 12.5 2024-06-10")
	require.NoError(t, err)
	require.Equal(t, int64(1250), in.AmountCents)
	require.Empty(t, in.Recurrence)

	_, err = parseLoanLine("Ravi given 500.00")
	require.Error(t, err, "due date is mandatory")
	_, err = parseLoanLine("Ravi given abc 2024-05-01")
	require.Error(t, err)
	_, err = parseLoanLine("Ravi given 500 05/01/2024")
	require.Error(t, err)
}

func TestInputModeEditing(t *testing.T) {
	t.Parallel()

	a := testApp()
	model, _ := a.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'a'}})
	a = model.(*App)
	require.True(t, a.inputMode)

	for _, r := range "Ravi" {
		model, _ = a.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
		a = model.(*App)
	}
	model, _ = a.Update(tea.KeyMsg{Type: tea.KeySpace})
	a = model.(*App)
	model, _ = a.Update(tea.KeyMsg{Type: tea.KeyBackspace})
	a = model.(*App)
	require.Equal(t, "Ravi", a.input)
	require.Contains(t, a.View(), "add> Ravi")

	model, _ = a.Update(tea.KeyMsg{Type: tea.KeyEsc})
	a = model.(*App)
	require.False(t, a.inputMode)
	require.Empty(t, a.input)
}

func TestBackspaceRemovesWholeRune(t *testing.T) {
	t.Parallel()

	a := testApp()
	a.inputMode = true
	a.input = "a₹"

	model, _ := a.Update(tea.KeyMsg{Type: tea.KeyBackspace})
	a = model.(*App)
	require.Equal(t, "a", a.input, "multibyte runes are removed whole")

	model, _ = a.Update(tea.KeyMsg{Type: tea.KeyBackspace})
	a = model.(*App)
	require.Empty(t, a.input)
}

func TestDeleteTransactionKey(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := openTestDB(t)
	txs := repository.NewTransactionRepo(db)

	loanID := "loan-1"
	_, err := repository.NewLoanRepo(db).InsertIfAbsent(ctx, repository.Loan{
		ID:           loanID,
		Person:       "Ravi",
		Type:         repository.LoanGiven,
		AmountCents:  50000,
		DueDate:      time.Now(),
		CanonicalKey: "key-loan-1",
	})
	require.NoError(t, err)
	mirror := repository.Transaction{
		ID: "t1", Date: time.Now(), Type: repository.TxIn,
		AmountCents: 50000, Note: "Loan from Ravi", LinkedLoanID: &loanID,
	}
	manual := repository.Transaction{
		ID: "t2", Date: time.Now(), Type: repository.TxOut,
		AmountCents: 1250, Note: "groceries",
	}
	require.NoError(t, txs.Insert(ctx, mirror))
	require.NoError(t, txs.Insert(ctx, manual))

	a := New(ctx, config.Config{}, Repos{Transactions: txs}, Services{})
	a.state = viewTransactions
	a.txs = []repository.Transaction{mirror, manual}

	// Loan mirrors are refused; the loan stays authoritative.
	model, cmd := a.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'d'}})
	a = model.(*App)
	require.Nil(t, cmd)
	require.Contains(t, a.status, "uncollect")

	a.txCursor = 1
	model, cmd = a.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'d'}})
	a = model.(*App)
	require.NotNil(t, cmd)
	require.Equal(t, refreshMsg{event: service.EventTransactionsChanged}, cmd())

	n, err := txs.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n, "only the manual transaction is gone")
}

func TestCursorClamping(t *testing.T) {
	t.Parallel()

	a := testApp()
	a.loans = []repository.Loan{{Person: "A"}, {Person: "B"}}

	a.moveCursor(1)
	require.Equal(t, 1, a.loanCursor)
	a.moveCursor(1)
	require.Equal(t, 1, a.loanCursor, "cursor stops at the last row")
	a.moveCursor(-1)
	a.moveCursor(-1)
	require.Equal(t, 0, a.loanCursor)
}
