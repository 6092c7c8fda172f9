package service

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/tmahesh/ledgerkeep/internal/database/repository"
)

func TestExportImportRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := openTestDB(t)
	txs := repository.NewTransactionRepo(db)
	svc := &ImpExp{Transactions: txs}

	require.NoError(t, txs.Insert(ctx, repository.Transaction{
		ID: uuid.NewString(), Date: day(2024, time.March, 1), Type: repository.TxIn,
		AmountCents: 50000, Account: "Cash", Category: "Loan", Recurrence: RecurNone,
		Note: "Loan from Ravi",
	}))
	require.NoError(t, txs.Insert(ctx, repository.Transaction{
		ID: uuid.NewString(), Date: day(2024, time.March, 5), Type: repository.TxOut,
		AmountCents: 1250, Account: "Bank", Category: "Food", Recurrence: RecurNone,
		Note: "groceries, market",
	}))

	var buf bytes.Buffer
	require.NoError(t, svc.Export(ctx, &buf))

	out := buf.String()
	require.Contains(t, out, "date,type,amount,account,category,note")
	require.Contains(t, out, "500.00")
	require.Contains(t, out, "12.50")
	require.Contains(t, out, `"groceries, market"`)

	// Import into a fresh database restores both rows.
	db2 := openTestDB(t)
	txs2 := repository.NewTransactionRepo(db2)
	svc2 := &ImpExp{Transactions: txs2}

	res, err := svc2.Import(ctx, strings.NewReader(out))
	require.NoError(t, err)
	require.Empty(t, res.Errors)
	require.Equal(t, 2, res.Imported)

	restored, err := txs2.List(ctx, repository.TransactionFilters{})
	require.NoError(t, err)
	require.Len(t, restored, 2)
	require.Equal(t, int64(1250), restored[0].AmountCents) // newest first
}

func TestImportCollectsLineErrors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := openTestDB(t)
	txs := repository.NewTransactionRepo(db)
	svc := &ImpExp{Transactions: txs}

	data := strings.Join([]string{
		"date,type,amount,account,category,note",
		"2024-03-01,in,100.00,Cash,Loan,ok row",
		"not-a-date,in,100.00,Cash,Loan,bad date",
		"2024-03-02,sideways,100.00,Cash,Loan,bad type",
		"2024-03-03,out,1.2345,Cash,Loan,bad amount",
	}, "\n")

	res, err := svc.Import(ctx, strings.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, 1, res.Imported)
	require.Len(t, res.Errors, 3)

	n, err := txs.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestAmountToCents(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"12.50", 1250, true},
		{"0.05", 5, true},
		{"7", 700, true},
		{"7.5", 750, true},
		{"-3.25", -325, true},
		{".99", 99, true},
		{"1.234", 0, false},
		{"abc", 0, false},
	}
	for _, tc := range cases {
		got, err := AmountToCents(tc.in)
		if !tc.ok {
			require.Error(t, err, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		require.Equal(t, tc.want, got, tc.in)
	}
}
