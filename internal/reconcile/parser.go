// Package reconcile rebuilds the order and position snapshot from a broker's
// raw per-trade export. The parser tolerates the export's European locale
// (decimal comma, embedded thousands separators); the matcher replays each
// instrument's trades FIFO; Bootstrap ties both together and finishes with a
// migration pass so every reconstructed open position has a protective stop.
package reconcile

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Transaction is one parsed row of the broker export.
type Transaction struct {
	Timestamp    time.Time
	Date         string // ISO yyyy-mm-dd
	Product      string
	ISIN         string
	Exchange     string
	Venue        string
	Quantity     int // signed: positive buys, negative sells
	Price        float64
	LocalValue   float64
	ValueEUR     float64
	ExchangeRate float64
	Fees         float64
	Total        float64
	OrderRef     string
}

// Column layout of the export, after the header row.
const (
	colDate = iota
	colTime
	colProduct
	colISIN
	colExchange
	colVenue
	colQuantity
	colPrice
	colLocalValue
	colValueEUR
	colExchangeRate
	colFees
	colTotal
	colOrderRef
	colCount
)

// ParseTransactions reads the delimited export from r. Malformed rows are
// skipped, with their ISINs (when readable) collected into skipped so the
// caller can report them; a bad row never fails the batch. An empty or
// header-only input yields no transactions and no error.
func ParseTransactions(r io.Reader, sep rune) ([]Transaction, []string, error) {
	cr := csv.NewReader(r)
	if sep != 0 {
		cr.Comma = sep
	}
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("reconcile: read export: %w", err)
	}
	if len(records) <= 1 {
		return nil, nil, nil
	}

	var (
		txns    []Transaction
		skipped []string
	)
	for _, rec := range records[1:] {
		txn, err := parseRow(rec)
		if err != nil {
			if isin := rowISIN(rec); isin != "" {
				skipped = append(skipped, isin)
			}
			continue
		}
		txns = append(txns, txn)
	}
	return txns, skipped, nil
}

func rowISIN(rec []string) string {
	if len(rec) > colISIN {
		return strings.TrimSpace(rec[colISIN])
	}
	return ""
}

func parseRow(rec []string) (Transaction, error) {
	if len(rec) < colCount {
		return Transaction{}, fmt.Errorf("reconcile: row has %d columns, want %d", len(rec), colCount)
	}

	ts, err := time.Parse("02-01-2006 15:04", strings.TrimSpace(rec[colDate])+" "+strings.TrimSpace(rec[colTime]))
	if err != nil {
		return Transaction{}, fmt.Errorf("reconcile: parse timestamp: %w", err)
	}

	qty, err := parseLocaleInt(rec[colQuantity])
	if err != nil {
		return Transaction{}, fmt.Errorf("reconcile: parse quantity: %w", err)
	}

	txn := Transaction{
		Timestamp: ts,
		Date:      ts.Format("2006-01-02"),
		Product:   strings.TrimSpace(rec[colProduct]),
		ISIN:      strings.TrimSpace(rec[colISIN]),
		Exchange:  strings.TrimSpace(rec[colExchange]),
		Venue:     strings.TrimSpace(rec[colVenue]),
		Quantity:  qty,
		OrderRef:  strings.TrimSpace(rec[colOrderRef]),
	}

	for _, f := range []struct {
		dst *float64
		col int
	}{
		{&txn.Price, colPrice},
		{&txn.LocalValue, colLocalValue},
		{&txn.ValueEUR, colValueEUR},
		{&txn.ExchangeRate, colExchangeRate},
		{&txn.Fees, colFees},
		{&txn.Total, colTotal},
	} {
		v, err := parseLocaleFloat(rec[f.col])
		if err != nil {
			return Transaction{}, fmt.Errorf("reconcile: parse column %d: %w", f.col, err)
		}
		*f.dst = v
	}
	return txn, nil
}

// parseLocaleFloat normalizes a locale-formatted decimal to canonical form.
// "1.234,56" and "1234,56" become 1234.56; a plain "1234.56" passes through.
// Empty fields read as zero (the export leaves FX columns blank for EUR
// instruments).
func parseLocaleFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	switch {
	case strings.Contains(s, ","):
		// Comma is the decimal separator; any dots are thousands separators.
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	default:
		// Already canonical, or dot-as-decimal without a comma.
	}
	s = strings.ReplaceAll(s, " ", "")
	return strconv.ParseFloat(s, 64)
}

func parseLocaleInt(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty quantity")
	}
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, " ", "")
	return strconv.Atoi(s)
}
