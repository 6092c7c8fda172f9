package service

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tmahesh/ledgerkeep/internal/database/repository"
)

// Transaction CSV columns: date, type, amount, account, category, note.
// Amounts are decimal units ("12.50"), dates are 2006-01-02.
var txCSVHeader = []string{"date", "type", "amount", "account", "category", "note"}

// ImportResult reports the outcome of a CSV import.
type ImportResult struct {
	Imported int
	Skipped  int
	Errors   []error
}

// ImpExp moves transactions in and out of CSV files. Mirror transactions
// (linked to a loan) are exported but re-imported unlinked; the syncer's
// content-matching fallback still recognizes them on removal.
type ImpExp struct {
	Transactions *repository.TransactionRepo
}

// Export writes all transactions as CSV, newest first.
func (s *ImpExp) Export(ctx context.Context, w io.Writer) error {
	txs, err := s.Transactions.List(ctx, repository.TransactionFilters{})
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(txCSVHeader); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	for _, t := range txs {
		rec := []string{
			t.Date.UTC().Format("2006-01-02"),
			t.Type,
			centsToAmount(t.AmountCents),
			t.Account,
			t.Category,
			t.Note,
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("export: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Import reads transactions from CSV, collecting per-line errors instead of
// aborting. A header row matching the export format is skipped.
func (s *ImpExp) Import(ctx context.Context, r io.Reader) (ImportResult, error) {
	res := ImportResult{}
	cr := csv.NewReader(bufio.NewReader(r))
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	line := 0
	for {
		line++
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			res.Errors = append(res.Errors, fmt.Errorf("line %d: %w", line, err))
			continue
		}
		if line == 1 && len(rec) > 0 && strings.EqualFold(rec[0], "date") {
			continue
		}
		if len(rec) < 6 {
			res.Errors = append(res.Errors, fmt.Errorf("line %d: expected 6 columns", line))
			continue
		}

		date, err := time.Parse("2006-01-02", strings.TrimSpace(rec[0]))
		if err != nil {
			res.Errors = append(res.Errors, fmt.Errorf("line %d date: %w", line, err))
			continue
		}
		txType := strings.ToLower(strings.TrimSpace(rec[1]))
		if txType != repository.TxIn && txType != repository.TxOut {
			res.Errors = append(res.Errors, fmt.Errorf("line %d: type must be in or out", line))
			continue
		}
		cents, err := AmountToCents(rec[2])
		if err != nil {
			res.Errors = append(res.Errors, fmt.Errorf("line %d amount: %w", line, err))
			continue
		}

		t := repository.Transaction{
			ID:          uuid.NewString(),
			Date:        date,
			Type:        txType,
			AmountCents: cents,
			Account:     strings.TrimSpace(rec[3]),
			Category:    strings.TrimSpace(rec[4]),
			Recurrence:  RecurNone,
			Note:        rec[5],
		}
		if err := s.Transactions.Insert(ctx, t); err != nil {
			res.Errors = append(res.Errors, fmt.Errorf("line %d: %w", line, err))
			continue
		}
		res.Imported++
	}
	return res, nil
}

// AmountToCents parses a decimal amount string into cents, rejecting more
// than two fractional digits.
func AmountToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, err
	}
	var f int64
	switch len(frac) {
	case 0:
	case 1:
		f, err = strconv.ParseInt(frac, 10, 64)
		f *= 10
	case 2:
		f, err = strconv.ParseInt(frac, 10, 64)
	default:
		return 0, fmt.Errorf("too many decimal places in %q", s)
	}
	if err != nil {
		return 0, err
	}
	cents := w*100 + f
	if neg {
		cents = -cents
	}
	return cents, nil
}
