package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/ledgerflow/internal/ledger"
)

const dateLayout = "2006-01-02"

// parseDate reads a YYYY-MM-DD flag. Empty means today.
func parseDate(s string) (time.Time, error) {
	if s == "" {
		y, m, d := time.Now().Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD)", s)
	}
	return t, nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", ""))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", s)
	}
	return d, nil
}

// parseLegs turns "CODE=AMOUNT" flag values into posting lines on one side.
func parseLegs(values []string, debit bool) ([]ledger.Line, error) {
	lines := make([]ledger.Line, 0, len(values))
	for _, v := range values {
		code, amount, ok := strings.Cut(v, "=")
		if !ok || code == "" {
			return nil, fmt.Errorf("invalid line %q (want CODE=AMOUNT)", v)
		}
		amt, err := parseAmount(amount)
		if err != nil {
			return nil, fmt.Errorf("line %s: %w", code, err)
		}
		l := ledger.Line{AccountCode: code}
		if debit {
			l.Debit = amt
		} else {
			l.Credit = amt
		}
		lines = append(lines, l)
	}
	return lines, nil
}
